package activities_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/jrsteele09/mergington-activities/activities"
	"github.com/stretchr/testify/require"
)

func TestDefaultActivities(t *testing.T) {
	seed := activities.DefaultActivities()
	require.Len(t, seed, 9)

	chess, ok := seed["Chess Club"]
	require.True(t, ok)
	require.Equal(t, 12, chess.MaxParticipants)
	require.Equal(t, []string{"michael@mergington.edu", "daniel@mergington.edu"}, chess.Participants)
}

func TestCatalog_Signup(t *testing.T) {
	c := activities.NewCatalog(activities.DefaultActivities())

	require.NoError(t, c.Signup("Chess Club", "a@b.com"))
	chess := c.List()["Chess Club"]
	require.Equal(t, []string{"michael@mergington.edu", "daniel@mergington.edu", "a@b.com"}, chess.Participants)

	err := c.Signup("Chess Club", "a@b.com")
	require.ErrorIs(t, err, activities.ErrAlreadySignedUp)
	require.EqualError(t, err, "Student already signed up for this activity")

	err = c.Signup("Underwater Basket Weaving", "a@b.com")
	require.ErrorIs(t, err, activities.ErrActivityNotFound)
	require.EqualError(t, err, "Activity not found")
}

func TestCatalog_Unregister(t *testing.T) {
	c := activities.NewCatalog(activities.DefaultActivities())

	require.NoError(t, c.Unregister("Chess Club", "michael@mergington.edu"))
	chess := c.List()["Chess Club"]
	require.Equal(t, []string{"daniel@mergington.edu"}, chess.Participants)

	err := c.Unregister("Chess Club", "michael@mergington.edu")
	require.ErrorIs(t, err, activities.ErrNotSignedUp)
	require.EqualError(t, err, "Student is not signed up for this activity")

	err = c.Unregister("Nope", "michael@mergington.edu")
	require.ErrorIs(t, err, activities.ErrActivityNotFound)
}

func TestCatalog_ListIsACopy(t *testing.T) {
	seed := activities.DefaultActivities()
	c := activities.NewCatalog(seed)

	// mutating the seed after construction has no effect
	seed["Chess Club"].Participants[0] = "changed@mergington.edu"

	list := c.List()
	require.Len(t, list, 9)
	require.Equal(t, "michael@mergington.edu", list["Chess Club"].Participants[0])

	list["Chess Club"].Participants[0] = "changed@mergington.edu"
	delete(list, "Basketball")

	again := c.List()
	require.Len(t, again, 9)
	require.Equal(t, "michael@mergington.edu", again["Chess Club"].Participants[0])
}

func TestCatalog_EmptyParticipantsServeAsList(t *testing.T) {
	c := activities.NewCatalog(map[string]activities.Activity{"Quiet Room": {Description: "d"}})

	a := c.List()["Quiet Room"]
	require.NotNil(t, a.Participants)
	require.Empty(t, a.Participants)
}

func TestCatalog_ConcurrentSignup(t *testing.T) {
	c := activities.NewCatalog(activities.DefaultActivities())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			email := fmt.Sprintf("student%d@mergington.edu", i%10)
			_ = c.Signup("Gym Class", email)
		}(i)
	}
	wg.Wait()

	gym := c.List()["Gym Class"]
	require.Len(t, gym.Participants, 12)
}
