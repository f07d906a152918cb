// Package ratelimit implements fixed-window request and token quotas
// backed by a pluggable atomic counter store.
package ratelimit

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Decision is the outcome of a rate limit check. Allowed=false means the
// quota for the current window is exhausted; callers translate it into a
// 429 with ResetAt as the retry hint.
type Decision struct {
	Allowed   bool      `json:"allowed"`
	Remaining int64     `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}

// TokenDecision is the outcome of a token quota check. Allowed=false
// means the day's quota has now been exceeded, not that the increment
// was blocked (see TrackTokenUsage).
type TokenDecision struct {
	Allowed   bool  `json:"allowed"`
	Remaining int64 `json:"remaining"`
}

// Limiter counts requests per fixed window and tokens per UTC day.
// When store is nil every window lives in the in-process map; when a
// store call fails the affected check degrades to the map for that call.
type Limiter struct {
	store  CounterStore
	local  *localCounters
	logger *logrus.Logger
}

// New builds a Limiter. Passing a nil store selects the in-process
// fallback for all keys, which keeps per-process windows only.
func New(store CounterStore, logger *logrus.Logger) *Limiter {
	return &Limiter{
		store:  store,
		local:  newLocalCounters(),
		logger: logger,
	}
}

// CheckRateLimit atomically counts one request against key's current
// window. The first observation of a key starts a window of the given
// length; ResetAt always reflects the store's live TTL rather than a
// recomputed full window.
func (l *Limiter) CheckRateLimit(ctx context.Context, key string, maxRequests int64, window time.Duration) Decision {
	if l.store == nil {
		return l.checkLocal(key, maxRequests, window)
	}

	count, err := l.store.Incr(ctx, key)
	if err != nil {
		l.logger.WithError(err).WithField("key", key).Warn("Counter store unavailable, using local fallback")
		return l.checkLocal(key, maxRequests, window)
	}

	if count == 1 {
		if err := l.store.Expire(ctx, key, window); err != nil {
			l.logger.WithError(err).WithField("key", key).Warn("Failed to set window expiry")
		}
	}

	resetAt := time.Now().Add(window)
	if ttl, err := l.store.TTL(ctx, key); err == nil && ttl > 0 {
		resetAt = time.Now().Add(ttl)
	}

	return Decision{
		Allowed:   count <= maxRequests,
		Remaining: remaining(maxRequests, count),
		ResetAt:   resetAt,
	}
}

// TrackTokenUsage adds tokens to key's counter for the current UTC day.
// The increment happens before the quota comparison, so the call that
// crosses the limit still takes effect and reports Allowed=false after
// the fact. This is a soft quota; do not reorder to check-then-increment
// without revisiting billing semantics.
func (l *Limiter) TrackTokenUsage(ctx context.Context, key string, tokens int64, maxTokensPerDay int64) TokenDecision {
	dayKey := dailyKey(key)

	if l.store == nil {
		total, _ := l.local.incrBy(dayKey, tokens, 24*time.Hour)
		return TokenDecision{Allowed: total <= maxTokensPerDay, Remaining: remaining(maxTokensPerDay, total)}
	}

	total, err := l.store.IncrBy(ctx, dayKey, tokens)
	if err != nil {
		l.logger.WithError(err).WithField("key", dayKey).Warn("Counter store unavailable, using local fallback")
		localTotal, _ := l.local.incrBy(dayKey, tokens, 24*time.Hour)
		return TokenDecision{Allowed: localTotal <= maxTokensPerDay, Remaining: remaining(maxTokensPerDay, localTotal)}
	}

	if total == tokens {
		if err := l.store.Expire(ctx, dayKey, 24*time.Hour); err != nil {
			l.logger.WithError(err).WithField("key", dayKey).Warn("Failed to set daily expiry")
		}
	}

	return TokenDecision{Allowed: total <= maxTokensPerDay, Remaining: remaining(maxTokensPerDay, total)}
}

// GetTokenUsage reads the current day's accumulated token count without
// mutating it. Returns 0 when no window exists or it has expired.
func (l *Limiter) GetTokenUsage(ctx context.Context, key string) int64 {
	dayKey := dailyKey(key)

	if l.store == nil {
		return l.local.get(dayKey)
	}

	total, err := l.store.Get(ctx, dayKey)
	if err != nil {
		l.logger.WithError(err).WithField("key", dayKey).Warn("Counter store unavailable, using local fallback")
		return l.local.get(dayKey)
	}
	return total
}

func (l *Limiter) checkLocal(key string, maxRequests int64, window time.Duration) Decision {
	count, resetAt := l.local.incrBy(key, 1, window)
	return Decision{
		Allowed:   count <= maxRequests,
		Remaining: remaining(maxRequests, count),
		ResetAt:   resetAt,
	}
}

func dailyKey(key string) string {
	return key + ":" + time.Now().UTC().Format("2006-01-02")
}

func remaining(max, used int64) int64 {
	if used >= max {
		return 0
	}
	return max - used
}
