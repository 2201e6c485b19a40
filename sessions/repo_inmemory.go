package sessions

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type expiring interface {
	expiry() time.Time
}

// namespace is one independently locked map of records.
type namespace[T expiring] struct {
	mu      sync.RWMutex
	records map[string]T
}

func newNamespace[T expiring]() *namespace[T] {
	return &namespace[T]{records: make(map[string]T)}
}

func (n *namespace[T]) put(key string, record T, now time.Time) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if !now.Before(record.expiry()) {
		delete(n.records, key)
		return nil
	}
	n.records[key] = record
	return nil
}

// get returns the record for key, deleting it instead when it has expired.
func (n *namespace[T]) get(key string, now time.Time) (T, error) {
	var zero T

	n.mu.RLock()
	record, ok := n.records[key]
	n.mu.RUnlock()
	if !ok {
		return zero, ErrNotFound
	}

	if !now.Before(record.expiry()) {
		n.mu.Lock()
		if current, ok := n.records[key]; ok && !now.Before(current.expiry()) {
			delete(n.records, key)
		}
		n.mu.Unlock()
		return zero, ErrNotFound
	}
	return record, nil
}

// take removes and returns the record for key in one critical section. When accept
// rejects the record it is kept and accept's error returned.
func (n *namespace[T]) take(key string, now time.Time, accept func(T) error) (T, error) {
	var zero T

	n.mu.Lock()
	defer n.mu.Unlock()

	record, ok := n.records[key]
	if !ok {
		return zero, ErrNotFound
	}
	if !now.Before(record.expiry()) {
		delete(n.records, key)
		return zero, ErrNotFound
	}
	if accept != nil {
		if err := accept(record); err != nil {
			return zero, err
		}
	}
	delete(n.records, key)
	return record, nil
}

func (n *namespace[T]) delete(key string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.records, key)
}

func (n *namespace[T]) sweep(now time.Time) int {
	n.mu.Lock()
	defer n.mu.Unlock()

	removed := 0
	for key, record := range n.records {
		if !now.Before(record.expiry()) {
			delete(n.records, key)
			removed++
		}
	}
	return removed
}

func (n *namespace[T]) len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.records)
}

// InMemoryStore is a thread-safe in-memory implementation of the Store interface.
// Each namespace has its own lock. Reading a session sweeps every namespace, and an
// optional background loop sweeps on an interval.
type InMemoryStore struct {
	pending  *namespace[*PendingAuthorization]
	sessions *namespace[*Session]
	refresh  *namespace[*RefreshToken]
	grants   *namespace[*AccessGrant]

	sweepInterval time.Duration
	stopSweep     chan struct{}
	sweepDone     chan struct{}
	closeOnce     sync.Once
}

var _ Store = (*InMemoryStore)(nil)

// InMemoryStoreOption configures an InMemoryStore instance.
type InMemoryStoreOption func(*InMemoryStore)

// WithSweepInterval starts a background sweep every interval. Zero disables it.
func WithSweepInterval(interval time.Duration) InMemoryStoreOption {
	return func(s *InMemoryStore) {
		s.sweepInterval = interval
	}
}

// NewInMemoryStore creates a new in-memory session store
func NewInMemoryStore(opts ...InMemoryStoreOption) *InMemoryStore {
	s := &InMemoryStore{
		pending:   newNamespace[*PendingAuthorization](),
		sessions:  newNamespace[*Session](),
		refresh:   newNamespace[*RefreshToken](),
		grants:    newNamespace[*AccessGrant](),
		stopSweep: make(chan struct{}),
		sweepDone: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.sweepInterval > 0 {
		go s.sweepLoop()
	} else {
		close(s.sweepDone)
	}
	return s
}

func (s *InMemoryStore) sweepLoop() {
	defer close(s.sweepDone)

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = s.SweepExpired(context.Background())
		case <-s.stopSweep:
			return
		}
	}
}

func (s *InMemoryStore) PutPending(_ context.Context, key string, pending *PendingAuthorization) error {
	if pending == nil {
		return errors.New("pending authorization cannot be nil")
	}
	copied := *pending
	return s.pending.put(key, &copied, NowTimeFunc())
}

func (s *InMemoryStore) GetPending(_ context.Context, key string) (*PendingAuthorization, error) {
	pending, err := s.pending.get(key, NowTimeFunc())
	if err != nil {
		return nil, err
	}
	copied := *pending
	return &copied, nil
}

func (s *InMemoryStore) ConsumePending(_ context.Context, key, state string) (*PendingAuthorization, error) {
	return s.pending.take(key, NowTimeFunc(), func(p *PendingAuthorization) error {
		return p.checkState(state)
	})
}

func (s *InMemoryStore) PutSession(_ context.Context, key string, session *Session) error {
	if session == nil {
		return errors.New("session cannot be nil")
	}
	copied := *session
	return s.sessions.put(key, &copied, NowTimeFunc())
}

// GetSession sweeps all namespaces before looking key up.
func (s *InMemoryStore) GetSession(ctx context.Context, key string) (*Session, error) {
	_ = s.SweepExpired(ctx)

	session, err := s.sessions.get(key, NowTimeFunc())
	if err != nil {
		return nil, err
	}
	copied := *session
	return &copied, nil
}

func (s *InMemoryStore) DeleteSession(_ context.Context, key string) error {
	s.sessions.delete(key)
	return nil
}

func (s *InMemoryStore) PutRefreshToken(_ context.Context, key string, refresh *RefreshToken) error {
	if refresh == nil {
		return errors.New("refresh token cannot be nil")
	}
	copied := *refresh
	return s.refresh.put(key, &copied, NowTimeFunc())
}

func (s *InMemoryStore) GetRefreshToken(_ context.Context, key string) (*RefreshToken, error) {
	refresh, err := s.refresh.get(key, NowTimeFunc())
	if err != nil {
		return nil, err
	}
	copied := *refresh
	return &copied, nil
}

func (s *InMemoryStore) ConsumeRefreshToken(_ context.Context, key string) (*RefreshToken, error) {
	return s.refresh.take(key, NowTimeFunc(), nil)
}

func (s *InMemoryStore) DeleteRefreshToken(_ context.Context, key string) error {
	s.refresh.delete(key)
	return nil
}

func (s *InMemoryStore) PutAccessGrant(_ context.Context, sessionID string, grant *AccessGrant) error {
	if grant == nil {
		return errors.New("access grant cannot be nil")
	}
	copied := *grant
	return s.grants.put(sessionID, &copied, NowTimeFunc())
}

func (s *InMemoryStore) GetAccessGrant(_ context.Context, sessionID string) (*AccessGrant, error) {
	grant, err := s.grants.get(sessionID, NowTimeFunc())
	if err != nil {
		return nil, err
	}
	copied := *grant
	return &copied, nil
}

func (s *InMemoryStore) DeleteAccessGrant(_ context.Context, sessionID string) error {
	s.grants.delete(sessionID)
	return nil
}

func (s *InMemoryStore) SweepExpired(_ context.Context) error {
	now := NowTimeFunc()
	removed := s.pending.sweep(now) + s.sessions.sweep(now) + s.refresh.sweep(now) + s.grants.sweep(now)
	if removed > 0 {
		stats := s.Stats()
		log.Debug().
			Int("removed", removed).
			Int("pending", stats.Pending).
			Int("sessions", stats.Sessions).
			Int("refresh", stats.Refresh).
			Int("grants", stats.Grants).
			Msg("Swept expired session records")
	}
	return nil
}

func (*InMemoryStore) Ping(_ context.Context) error {
	return nil
}

// Close stops the background sweep and waits for it to finish.
func (s *InMemoryStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopSweep)
	})
	<-s.sweepDone
	return nil
}

// Stats reports the number of records currently held, including expired ones not yet swept.
type Stats struct {
	Pending  int
	Sessions int
	Refresh  int
	Grants   int
}

func (s *InMemoryStore) Stats() Stats {
	return Stats{
		Pending:  s.pending.len(),
		Sessions: s.sessions.len(),
		Refresh:  s.refresh.len(),
		Grants:   s.grants.len(),
	}
}
