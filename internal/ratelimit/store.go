package ratelimit

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CounterStore is the minimal atomic-counter surface the limiter needs.
// Any store providing increment-with-expiry semantics satisfies it.
type CounterStore interface {
	Incr(ctx context.Context, key string) (int64, error)
	IncrBy(ctx context.Context, key string, n int64) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	TTL(ctx context.Context, key string) (time.Duration, error)
	Get(ctx context.Context, key string) (int64, error)
}

type RedisCounterStore struct {
	client *redis.Client
}

func NewRedisCounterStore(client *redis.Client) *RedisCounterStore {
	return &RedisCounterStore{client: client}
}

func (s *RedisCounterStore) Incr(ctx context.Context, key string) (int64, error) {
	return s.client.Incr(ctx, key).Result()
}

func (s *RedisCounterStore) IncrBy(ctx context.Context, key string, n int64) (int64, error) {
	return s.client.IncrBy(ctx, key, n).Result()
}

func (s *RedisCounterStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return s.client.Expire(ctx, key, ttl).Err()
}

func (s *RedisCounterStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	return s.client.TTL(ctx, key).Result()
}

func (s *RedisCounterStore) Get(ctx context.Context, key string) (int64, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(val, 10, 64)
}

// localCounters is the in-process fallback used when no distributed store
// is configured or a store call fails. Windows are measured by wall clock
// comparison instead of store TTL. Each process keeps its own counters,
// so under multi-process deployment every process gets an independent
// window.
type localCounters struct {
	mu      sync.Mutex
	windows map[string]*localWindow
}

type localWindow struct {
	count   int64
	resetAt time.Time
}

func newLocalCounters() *localCounters {
	return &localCounters{windows: make(map[string]*localWindow)}
}

func (l *localCounters) incrBy(key string, n int64, ttl time.Duration) (int64, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w, exists := l.windows[key]
	if !exists || now.After(w.resetAt) {
		w = &localWindow{resetAt: now.Add(ttl)}
		l.windows[key] = w
	}
	w.count += n

	return w.count, w.resetAt
}

func (l *localCounters) get(key string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, exists := l.windows[key]
	if !exists || time.Now().After(w.resetAt) {
		return 0
	}
	return w.count
}
