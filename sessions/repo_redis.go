package sessions

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"
)

// Default timeouts for Redis operations.
const (
	DefaultDialTimeout  = 5 * time.Second
	DefaultReadTimeout  = 3 * time.Second
	DefaultWriteTimeout = 3 * time.Second
)

// maxTakeAttempts bounds the optimistic retries of a consume whose key changed
// between WATCH and EXEC.
const maxTakeAttempts = 3

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	// KeyPrefix namespaces every key, e.g. "mergington:".
	KeyPrefix string

	// DigestSecret keys the BLAKE2b digest under which token values are stored.
	DigestSecret string
}

// RedisStore implements the Store interface on Redis so several processes can share
// login state. Token values never appear in keys: each key holds a keyed digest of
// the token. Redis expires records itself, so SweepExpired has nothing to do.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
	digestKey []byte
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects to Redis and verifies the connection with a ping.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  DefaultDialTimeout,
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client, cfg.KeyPrefix, cfg.DigestSecret), nil
}

// NewRedisStoreWithClient creates a RedisStore with a pre-configured client.
// This is useful for testing with miniredis.
func NewRedisStoreWithClient(client redis.UniversalClient, keyPrefix, digestSecret string) *RedisStore {
	key := blake2b.Sum256([]byte(digestSecret))
	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix,
		digestKey: key[:],
	}
}

// Key returns the Redis key under which token is stored in ns.
func (s *RedisStore) Key(ns Namespace, token string) string {
	h, err := blake2b.New256(s.digestKey)
	if err != nil {
		// Only returned for keys longer than 64 bytes; digestKey is always 32.
		panic(err)
	}
	h.Write([]byte(token))
	return s.keyPrefix + string(ns) + ":" + hex.EncodeToString(h.Sum(nil))
}

func (s *RedisStore) put(ctx context.Context, ns Namespace, token string, record expiring) error {
	if token == "" {
		return errors.New("key cannot be empty")
	}
	key := s.Key(ns, token)

	ttl := record.expiry().Sub(NowTimeFunc())
	if ttl <= 0 {
		return s.client.Del(ctx, key).Err()
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal %s record: %w", ns, err)
	}
	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store %s record: %w", ns, err)
	}
	return nil
}

func (s *RedisStore) get(ctx context.Context, ns Namespace, token string, record expiring) error {
	key := s.Key(ns, token)

	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to get %s record: %w", ns, err)
	}

	if err := json.Unmarshal(data, record); err != nil {
		return fmt.Errorf("failed to unmarshal %s record: %w", ns, err)
	}

	if !NowTimeFunc().Before(record.expiry()) {
		_ = s.client.Del(ctx, key).Err()
		return ErrNotFound
	}
	return nil
}

// take removes and decodes the record for token inside a WATCH/MULTI transaction so
// concurrent consumers of one key cannot both succeed. When accept rejects the decoded
// record the key is left untouched.
func (s *RedisStore) take(ctx context.Context, ns Namespace, token string, record expiring, accept func() error) error {
	key := s.Key(ns, token)

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to get %s record: %w", ns, err)
		}
		if err := json.Unmarshal(data, record); err != nil {
			return fmt.Errorf("failed to unmarshal %s record: %w", ns, err)
		}

		expired := !NowTimeFunc().Before(record.expiry())
		if !expired && accept != nil {
			if err := accept(); err != nil {
				return err
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		if err != nil {
			return err
		}
		if expired {
			return ErrNotFound
		}
		return nil
	}

	for range maxTakeAttempts {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("failed to consume %s record: key changed concurrently", ns)
}

func (s *RedisStore) del(ctx context.Context, ns Namespace, token string) error {
	if err := s.client.Del(ctx, s.Key(ns, token)).Err(); err != nil {
		return fmt.Errorf("failed to delete %s record: %w", ns, err)
	}
	return nil
}

func (s *RedisStore) PutPending(ctx context.Context, key string, pending *PendingAuthorization) error {
	if pending == nil {
		return errors.New("pending authorization cannot be nil")
	}
	return s.put(ctx, NamespacePending, key, pending)
}

func (s *RedisStore) GetPending(ctx context.Context, key string) (*PendingAuthorization, error) {
	var pending PendingAuthorization
	if err := s.get(ctx, NamespacePending, key, &pending); err != nil {
		return nil, err
	}
	return &pending, nil
}

func (s *RedisStore) ConsumePending(ctx context.Context, key, state string) (*PendingAuthorization, error) {
	var pending PendingAuthorization
	err := s.take(ctx, NamespacePending, key, &pending, func() error {
		return pending.checkState(state)
	})
	if err != nil {
		return nil, err
	}
	return &pending, nil
}

func (s *RedisStore) PutSession(ctx context.Context, key string, session *Session) error {
	if session == nil {
		return errors.New("session cannot be nil")
	}
	return s.put(ctx, NamespaceSessions, key, session)
}

func (s *RedisStore) GetSession(ctx context.Context, key string) (*Session, error) {
	var session Session
	if err := s.get(ctx, NamespaceSessions, key, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *RedisStore) DeleteSession(ctx context.Context, key string) error {
	return s.del(ctx, NamespaceSessions, key)
}

func (s *RedisStore) PutRefreshToken(ctx context.Context, key string, refresh *RefreshToken) error {
	if refresh == nil {
		return errors.New("refresh token cannot be nil")
	}
	return s.put(ctx, NamespaceRefresh, key, refresh)
}

func (s *RedisStore) GetRefreshToken(ctx context.Context, key string) (*RefreshToken, error) {
	var refresh RefreshToken
	if err := s.get(ctx, NamespaceRefresh, key, &refresh); err != nil {
		return nil, err
	}
	return &refresh, nil
}

func (s *RedisStore) ConsumeRefreshToken(ctx context.Context, key string) (*RefreshToken, error) {
	var refresh RefreshToken
	if err := s.take(ctx, NamespaceRefresh, key, &refresh, nil); err != nil {
		return nil, err
	}
	return &refresh, nil
}

func (s *RedisStore) DeleteRefreshToken(ctx context.Context, key string) error {
	return s.del(ctx, NamespaceRefresh, key)
}

func (s *RedisStore) PutAccessGrant(ctx context.Context, sessionID string, grant *AccessGrant) error {
	if grant == nil {
		return errors.New("access grant cannot be nil")
	}
	return s.put(ctx, NamespaceGrants, sessionID, grant)
}

func (s *RedisStore) GetAccessGrant(ctx context.Context, sessionID string) (*AccessGrant, error) {
	var grant AccessGrant
	if err := s.get(ctx, NamespaceGrants, sessionID, &grant); err != nil {
		return nil, err
	}
	return &grant, nil
}

func (s *RedisStore) DeleteAccessGrant(ctx context.Context, sessionID string) error {
	return s.del(ctx, NamespaceGrants, sessionID)
}

// SweepExpired is a no-op; every key is written with its TTL.
func (*RedisStore) SweepExpired(_ context.Context) error {
	return nil
}

// Ping checks Redis connectivity (health check).
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis client connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
