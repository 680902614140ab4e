package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// BookingRunKey is held for the whole of a booking run, retries included.
const BookingRunKey = "booking-run"

// Locker guards booking runs so that two daemons (or the API and the
// scheduler) never drive the calendar at the same time, and remembers which
// dates were already booked.
type Locker interface {
	// Acquire takes key for ttl. ok is false when someone else holds it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
	// Mark records key for ttl.
	Mark(ctx context.Context, key string, ttl time.Duration) error
	// Seen reports whether key was marked and has not expired.
	Seen(ctx context.Context, key string) (bool, error)
}

// MemoryLocker keeps locks in process memory.
type MemoryLocker struct {
	mu    sync.Mutex
	cache *cache.Cache
}

// NewMemoryLocker creates an in-process locker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{cache: cache.New(cache.NoExpiration, 10*time.Minute)}
}

func (m *MemoryLocker) Acquire(_ context.Context, key string, ttl time.Duration) (func(), bool, error) {
	token := uuid.NewString()
	if err := m.cache.Add(lockKey(key), token, ttl); err != nil {
		return nil, false, nil
	}
	release := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if v, ok := m.cache.Get(lockKey(key)); ok && v == token {
			m.cache.Delete(lockKey(key))
		}
	}
	return release, true, nil
}

func (m *MemoryLocker) Mark(_ context.Context, key string, ttl time.Duration) error {
	m.cache.Set(markKey(key), true, ttl)
	return nil
}

func (m *MemoryLocker) Seen(_ context.Context, key string) (bool, error) {
	_, ok := m.cache.Get(markKey(key))
	return ok, nil
}

// RedisLocker shares locks between processes through Redis.
type RedisLocker struct {
	client *redis.Client
}

// NewRedisLocker connects to the Redis server at addr.
func NewRedisLocker(addr, password string, db int) *RedisLocker {
	return &RedisLocker{client: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

// NewRedisLockerFromClient wraps an existing client.
func NewRedisLockerFromClient(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

// Ping checks the connection.
func (r *RedisLocker) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (r *RedisLocker) Close() error {
	return r.client.Close()
}

// releaseScript deletes the lock only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (r *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, lockKey(key), token, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	release := func() {
		_ = releaseScript.Run(context.Background(), r.client, []string{lockKey(key)}, token).Err()
	}
	return release, true, nil
}

func (r *RedisLocker) Mark(ctx context.Context, key string, ttl time.Duration) error {
	return r.client.Set(ctx, markKey(key), "1", ttl).Err()
}

func (r *RedisLocker) Seen(ctx context.Context, key string) (bool, error) {
	err := r.client.Get(ctx, markKey(key)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func lockKey(key string) string { return "roombooker:lock:" + key }
func markKey(key string) string { return "roombooker:mark:" + key }
