package activities

import (
	"errors"
	"slices"
	"sync"
)

var (
	ErrActivityNotFound = errors.New("Activity not found")
	ErrAlreadySignedUp  = errors.New("Student already signed up for this activity")
	ErrNotSignedUp      = errors.New("Student is not signed up for this activity")
)

// Activity is an extracurricular activity and the emails of the students signed up for it.
type Activity struct {
	Description     string   `json:"description"`
	Schedule        string   `json:"schedule"`
	MaxParticipants int      `json:"max_participants"`
	Participants    []string `json:"participants"`
}

func (a Activity) clone() Activity {
	a.Participants = slices.Clone(a.Participants)
	if a.Participants == nil {
		a.Participants = []string{}
	}
	return a
}

// Catalog is the in-memory set of activities keyed by name. MaxParticipants is
// informational and not enforced on signup.
type Catalog struct {
	mu         sync.RWMutex
	activities map[string]Activity
}

// NewCatalog creates a catalog holding a copy of seed.
func NewCatalog(seed map[string]Activity) *Catalog {
	c := &Catalog{activities: make(map[string]Activity, len(seed))}
	for name, a := range seed {
		c.activities[name] = a.clone()
	}
	return c
}

// List returns a copy of every activity.
func (c *Catalog) List() map[string]Activity {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]Activity, len(c.activities))
	for name, a := range c.activities {
		out[name] = a.clone()
	}
	return out
}

// Signup adds email to the participants of the named activity.
func (c *Catalog) Signup(name, email string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	a, ok := c.activities[name]
	if !ok {
		return ErrActivityNotFound
	}
	if slices.Contains(a.Participants, email) {
		return ErrAlreadySignedUp
	}
	a.Participants = append(a.Participants, email)
	c.activities[name] = a
	return nil
}

// Unregister removes email from the participants of the named activity.
func (c *Catalog) Unregister(name, email string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	a, ok := c.activities[name]
	if !ok {
		return ErrActivityNotFound
	}
	i := slices.Index(a.Participants, email)
	if i < 0 {
		return ErrNotSignedUp
	}
	a.Participants = slices.Delete(a.Participants, i, i+1)
	c.activities[name] = a
	return nil
}
