package sessions_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jrsteele09/mergington-activities/sessions"
	"github.com/jrsteele09/mergington-activities/users"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2025, 9, 1, 15, 30, 0, 0, time.UTC)

// setClock pins sessions.NowTimeFunc and returns a function that moves it forward.
func setClock(t *testing.T) func(time.Duration) {
	t.Helper()
	now := baseTime
	var mu sync.Mutex
	sessions.NowTimeFunc = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	t.Cleanup(func() { sessions.NowTimeFunc = time.Now })
	return func(d time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(d)
	}
}

type storeFactory func(t *testing.T) sessions.Store

func newMemoryStore(t *testing.T) sessions.Store {
	s := sessions.NewInMemoryStore()
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newRedisStore(t *testing.T) sessions.Store {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := sessions.NewRedisStoreWithClient(client, "test:", "session-secret")
	t.Cleanup(func() { _ = s.Close() })
	return s
}

var backends = map[string]storeFactory{
	"memory": newMemoryStore,
	"redis":  newRedisStore,
}

func testUser() users.Profile {
	return users.Profile{Email: "a@b.com", Name: "A", ID: "1"}
}

func TestStore_Contract(t *testing.T) {
	for name, factory := range backends {
		t.Run(name, func(t *testing.T) {
			t.Run("session round trip and delete", func(t *testing.T) {
				setClock(t)
				ctx := context.Background()
				s := factory(t)

				err := s.PutSession(ctx, "sess-1", &sessions.Session{User: testUser(), ExpiresAt: baseTime.Add(30 * time.Minute)})
				require.NoError(t, err)

				got, err := s.GetSession(ctx, "sess-1")
				require.NoError(t, err)
				require.Equal(t, testUser(), got.User)

				require.NoError(t, s.DeleteSession(ctx, "sess-1"))
				_, err = s.GetSession(ctx, "sess-1")
				require.ErrorIs(t, err, sessions.ErrNotFound)

				// deleting twice is fine
				require.NoError(t, s.DeleteSession(ctx, "sess-1"))
			})

			t.Run("record expired at put is never returned", func(t *testing.T) {
				setClock(t)
				ctx := context.Background()
				s := factory(t)

				err := s.PutSession(ctx, "old", &sessions.Session{User: testUser(), ExpiresAt: baseTime.Add(-time.Second)})
				require.NoError(t, err)

				_, err = s.GetSession(ctx, "old")
				require.ErrorIs(t, err, sessions.ErrNotFound)
			})

			t.Run("record expires after its ttl", func(t *testing.T) {
				advance := setClock(t)
				ctx := context.Background()
				s := factory(t)

				require.NoError(t, s.PutRefreshToken(ctx, "rt", &sessions.RefreshToken{Subject: "a@b.com", ExpiresAt: baseTime.Add(time.Hour)}))
				require.NoError(t, s.PutPending(ctx, "p", &sessions.PendingAuthorization{State: "st", CodeVerifier: "v", ExpiresAt: baseTime.Add(10 * time.Minute)}))

				advance(11 * time.Minute)
				_, err := s.GetPending(ctx, "p")
				require.ErrorIs(t, err, sessions.ErrNotFound)

				rt, err := s.GetRefreshToken(ctx, "rt")
				require.NoError(t, err)
				require.Equal(t, "a@b.com", rt.Subject)

				advance(time.Hour)
				_, err = s.GetRefreshToken(ctx, "rt")
				require.ErrorIs(t, err, sessions.ErrNotFound)
			})

			t.Run("namespaces are disjoint", func(t *testing.T) {
				setClock(t)
				ctx := context.Background()
				s := factory(t)

				require.NoError(t, s.PutPending(ctx, "same", &sessions.PendingAuthorization{State: "st", ExpiresAt: baseTime.Add(time.Minute)}))

				_, err := s.GetSession(ctx, "same")
				require.ErrorIs(t, err, sessions.ErrNotFound)
				_, err = s.GetRefreshToken(ctx, "same")
				require.ErrorIs(t, err, sessions.ErrNotFound)

				require.NoError(t, s.DeleteSession(ctx, "same"))
				p, err := s.GetPending(ctx, "same")
				require.NoError(t, err)
				require.Equal(t, "st", p.State)
			})

			t.Run("re-inserting a key does not leak the old record", func(t *testing.T) {
				advance := setClock(t)
				ctx := context.Background()
				s := factory(t)

				require.NoError(t, s.PutSession(ctx, "k", &sessions.Session{User: users.Profile{Email: "old@b.com"}, ExpiresAt: baseTime.Add(time.Minute)}))
				advance(2 * time.Minute)
				_, err := s.GetSession(ctx, "k")
				require.ErrorIs(t, err, sessions.ErrNotFound)

				require.NoError(t, s.PutSession(ctx, "k", &sessions.Session{User: users.Profile{Email: "new@b.com"}, ExpiresAt: sessions.NowTimeFunc().Add(time.Minute)}))
				got, err := s.GetSession(ctx, "k")
				require.NoError(t, err)
				require.Equal(t, "new@b.com", got.User.Email)
			})

			t.Run("consume pending checks state and removes the record", func(t *testing.T) {
				setClock(t)
				ctx := context.Background()
				s := factory(t)

				require.NoError(t, s.PutPending(ctx, "p", &sessions.PendingAuthorization{State: "st", CodeVerifier: "v", ExpiresAt: baseTime.Add(time.Minute)}))

				_, err := s.ConsumePending(ctx, "p", "forged")
				require.ErrorIs(t, err, sessions.ErrStateMismatch)
				kept, err := s.GetPending(ctx, "p")
				require.NoError(t, err)
				require.Equal(t, "v", kept.CodeVerifier)

				got, err := s.ConsumePending(ctx, "p", "st")
				require.NoError(t, err)
				require.Equal(t, "v", got.CodeVerifier)

				_, err = s.ConsumePending(ctx, "p", "st")
				require.ErrorIs(t, err, sessions.ErrNotFound)
				_, err = s.GetPending(ctx, "p")
				require.ErrorIs(t, err, sessions.ErrNotFound)
			})

			t.Run("consume of an expired record finds nothing", func(t *testing.T) {
				advance := setClock(t)
				ctx := context.Background()
				s := factory(t)

				require.NoError(t, s.PutPending(ctx, "p", &sessions.PendingAuthorization{State: "st", ExpiresAt: baseTime.Add(time.Minute)}))
				require.NoError(t, s.PutRefreshToken(ctx, "rt", &sessions.RefreshToken{Subject: "a@b.com", ExpiresAt: baseTime.Add(time.Minute)}))
				advance(2 * time.Minute)

				_, err := s.ConsumePending(ctx, "p", "st")
				require.ErrorIs(t, err, sessions.ErrNotFound)
				_, err = s.ConsumeRefreshToken(ctx, "rt")
				require.ErrorIs(t, err, sessions.ErrNotFound)
			})

			t.Run("consume refresh token once", func(t *testing.T) {
				setClock(t)
				ctx := context.Background()
				s := factory(t)

				require.NoError(t, s.PutRefreshToken(ctx, "rt", &sessions.RefreshToken{Subject: "a@b.com", ExpiresAt: baseTime.Add(time.Hour)}))

				rt, err := s.ConsumeRefreshToken(ctx, "rt")
				require.NoError(t, err)
				require.Equal(t, "a@b.com", rt.Subject)

				_, err = s.ConsumeRefreshToken(ctx, "rt")
				require.ErrorIs(t, err, sessions.ErrNotFound)
			})

			t.Run("concurrent consumers: exactly one wins", func(t *testing.T) {
				setClock(t)
				ctx := context.Background()
				s := factory(t)

				require.NoError(t, s.PutPending(ctx, "p", &sessions.PendingAuthorization{State: "st", ExpiresAt: baseTime.Add(time.Minute)}))
				require.NoError(t, s.PutRefreshToken(ctx, "rt", &sessions.RefreshToken{Subject: "a", ExpiresAt: baseTime.Add(time.Minute)}))

				var (
					wg                  sync.WaitGroup
					mu                  sync.Mutex
					pendingWins, rtWins int
				)
				for i := 0; i < 10; i++ {
					wg.Add(1)
					go func() {
						defer wg.Done()
						_, perr := s.ConsumePending(ctx, "p", "st")
						_, rerr := s.ConsumeRefreshToken(ctx, "rt")
						mu.Lock()
						defer mu.Unlock()
						if perr == nil {
							pendingWins++
						}
						if rerr == nil {
							rtWins++
						}
					}()
				}
				wg.Wait()

				require.Equal(t, 1, pendingWins)
				require.Equal(t, 1, rtWins)
			})

			t.Run("access grant round trip", func(t *testing.T) {
				advance := setClock(t)
				ctx := context.Background()
				s := factory(t)

				require.NoError(t, s.PutAccessGrant(ctx, "sid-1", &sessions.AccessGrant{ExpiresAt: baseTime.Add(time.Minute)}))
				got, err := s.GetAccessGrant(ctx, "sid-1")
				require.NoError(t, err)
				require.Equal(t, baseTime.Add(time.Minute), got.ExpiresAt.UTC())

				require.NoError(t, s.DeleteAccessGrant(ctx, "sid-1"))
				_, err = s.GetAccessGrant(ctx, "sid-1")
				require.ErrorIs(t, err, sessions.ErrNotFound)

				require.NoError(t, s.PutAccessGrant(ctx, "sid-2", &sessions.AccessGrant{ExpiresAt: baseTime.Add(time.Minute)}))
				advance(2 * time.Minute)
				_, err = s.GetAccessGrant(ctx, "sid-2")
				require.ErrorIs(t, err, sessions.ErrNotFound)
			})

			t.Run("empty key rejected", func(t *testing.T) {
				setClock(t)
				s := factory(t)
				err := s.PutSession(context.Background(), "", &sessions.Session{ExpiresAt: baseTime.Add(time.Minute)})
				require.Error(t, err)
			})

			t.Run("ping", func(t *testing.T) {
				require.NoError(t, factory(t).Ping(context.Background()))
			})
		})
	}
}

func TestInMemoryStore_SessionReadSweepsEverything(t *testing.T) {
	advance := setClock(t)
	ctx := context.Background()
	s := sessions.NewInMemoryStore()
	defer s.Close()

	require.NoError(t, s.PutSession(ctx, "s1", &sessions.Session{User: testUser(), ExpiresAt: baseTime.Add(time.Minute)}))
	require.NoError(t, s.PutSession(ctx, "s2", &sessions.Session{User: testUser(), ExpiresAt: baseTime.Add(time.Hour)}))
	require.NoError(t, s.PutRefreshToken(ctx, "r1", &sessions.RefreshToken{Subject: "a@b.com", ExpiresAt: baseTime.Add(time.Minute)}))
	require.NoError(t, s.PutPending(ctx, "p1", &sessions.PendingAuthorization{State: "x", ExpiresAt: baseTime.Add(time.Minute)}))
	require.NoError(t, s.PutAccessGrant(ctx, "g1", &sessions.AccessGrant{ExpiresAt: baseTime.Add(time.Minute)}))
	require.Equal(t, sessions.Stats{Pending: 1, Sessions: 2, Refresh: 1, Grants: 1}, s.Stats())

	advance(2 * time.Minute)
	_, err := s.GetSession(ctx, "unknown")
	require.ErrorIs(t, err, sessions.ErrNotFound)

	require.Equal(t, sessions.Stats{Pending: 0, Sessions: 1, Refresh: 0}, s.Stats())
}

func TestInMemoryStore_ReturnsCopies(t *testing.T) {
	setClock(t)
	ctx := context.Background()
	s := sessions.NewInMemoryStore()
	defer s.Close()

	pending := &sessions.PendingAuthorization{State: "st", ExpiresAt: baseTime.Add(time.Minute)}
	require.NoError(t, s.PutPending(ctx, "p", pending))
	pending.State = "changed"

	got, err := s.GetPending(ctx, "p")
	require.NoError(t, err)
	require.Equal(t, "st", got.State)
}

func TestInMemoryStore_BackgroundSweep(t *testing.T) {
	s := sessions.NewInMemoryStore(sessions.WithSweepInterval(10 * time.Millisecond))
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.PutRefreshToken(ctx, "r", &sessions.RefreshToken{Subject: "a", ExpiresAt: time.Now().Add(20 * time.Millisecond)}))

	require.Eventually(t, func() bool {
		return s.Stats().Refresh == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestInMemoryStore_CloseIsIdempotent(t *testing.T) {
	s := sessions.NewInMemoryStore(sessions.WithSweepInterval(time.Hour))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}

func TestInMemoryStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := sessions.NewInMemoryStore()
	defer s.Close()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("s-%d", i)
			expires := time.Now().Add(time.Minute)
			_ = s.PutSession(ctx, key, &sessions.Session{User: testUser(), ExpiresAt: expires})
			_ = s.PutRefreshToken(ctx, key, &sessions.RefreshToken{Subject: "a", ExpiresAt: expires})
			_, _ = s.GetSession(ctx, key)
			_, _ = s.GetRefreshToken(ctx, key)
			_ = s.DeleteSession(ctx, key)
		}(i)
	}
	wg.Wait()

	require.Equal(t, 0, s.Stats().Sessions)
	require.Equal(t, 50, s.Stats().Refresh)
}

func TestRedisStore_KeysHideTokens(t *testing.T) {
	setClock(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := sessions.NewRedisStoreWithClient(client, "test:", "session-secret")
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.PutSession(ctx, "plain-session-token", &sessions.Session{User: testUser(), ExpiresAt: baseTime.Add(30 * time.Minute)}))

	keys := mr.Keys()
	require.Len(t, keys, 1)
	require.Equal(t, s.Key(sessions.NamespaceSessions, "plain-session-token"), keys[0])
	require.NotContains(t, keys[0], "plain-session-token")
	require.Contains(t, keys[0], "test:sessions:")

	ttl := mr.TTL(keys[0])
	require.Equal(t, 30*time.Minute, ttl)

	other := sessions.NewRedisStoreWithClient(client, "test:", "another-secret")
	require.NotEqual(t, keys[0], other.Key(sessions.NamespaceSessions, "plain-session-token"))
}

func TestRedisStore_ServerTTLExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := sessions.NewRedisStoreWithClient(client, "test:", "secret")
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.PutPending(ctx, "p", &sessions.PendingAuthorization{State: "st", ExpiresAt: time.Now().Add(10 * time.Minute)}))

	mr.FastForward(11 * time.Minute)
	_, err := s.GetPending(ctx, "p")
	require.ErrorIs(t, err, sessions.ErrNotFound)
}

func TestNewRedisStore(t *testing.T) {
	t.Run("connects", func(t *testing.T) {
		mr := miniredis.RunT(t)
		s, err := sessions.NewRedisStore(context.Background(), sessions.RedisConfig{Addr: mr.Addr(), KeyPrefix: "x:", DigestSecret: "s"})
		require.NoError(t, err)
		require.NoError(t, s.Close())
	})

	t.Run("missing address", func(t *testing.T) {
		_, err := sessions.NewRedisStore(context.Background(), sessions.RedisConfig{})
		require.Error(t, err)
	})

	t.Run("unreachable", func(t *testing.T) {
		_, err := sessions.NewRedisStore(context.Background(), sessions.RedisConfig{Addr: "127.0.0.1:1"})
		require.Error(t, err)
	})
}
