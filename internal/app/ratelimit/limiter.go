// Package ratelimit implements fixed-window request counting over an atomic
// counter store (Redis in production). Each endpoint carries its own policy;
// unknown endpoints fall back to the default policy.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/sifan077/SnipURL/config"
	"go.uber.org/zap"
)

const keyPrefix = "ratelimit"

// Policy is one endpoint's request budget per window.
type Policy struct {
	Endpoint string        `json:"endpoint"`
	Requests int           `json:"requests"`
	Window   time.Duration `json:"-"`
}

// WindowSeconds is used when rendering policies over the API.
func (p Policy) WindowSeconds() int { return int(p.Window / time.Second) }

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// CounterStore is the atomic counter backend. Incr must set ttl on the first
// increment of a key; Peek must not mutate state.
type CounterStore interface {
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Peek(ctx context.Context, key string) (int64, error)
}

// Limiter gates requests per (endpoint, identifier) pair.
type Limiter struct {
	store    CounterStore
	policies map[string]Policy
	fallback Policy
	failOpen bool
	logger   *zap.Logger
	now      func() time.Time
}

// New builds a limiter from static configuration. Policies never change at
// runtime.
func New(cfg config.RateLimitConfig, store CounterStore, logger *zap.Logger) *Limiter {
	if logger == nil {
		logger = zap.NewNop()
	}

	policies := make(map[string]Policy, len(cfg.Policies))
	for _, p := range cfg.Policies {
		policies[p.Endpoint] = Policy{
			Endpoint: p.Endpoint,
			Requests: p.Requests,
			Window:   time.Duration(p.WindowSeconds) * time.Second,
		}
	}

	fallback := Policy{
		Endpoint: "default",
		Requests: cfg.Default.Requests,
		Window:   time.Duration(cfg.Default.WindowSeconds) * time.Second,
	}
	if fallback.Requests <= 0 {
		fallback.Requests = 100
	}
	if fallback.Window <= 0 {
		fallback.Window = time.Minute
	}

	return &Limiter{
		store:    store,
		policies: policies,
		fallback: fallback,
		failOpen: cfg.FailOpen,
		logger:   logger,
		now:      time.Now,
	}
}

// Policy returns the policy governing the endpoint.
func (l *Limiter) Policy(endpoint string) Policy {
	if p, ok := l.policies[endpoint]; ok {
		return p
	}
	return l.fallback
}

// Policies lists every configured policy plus the default, for introspection.
func (l *Limiter) Policies() []Policy {
	out := make([]Policy, 0, len(l.policies)+1)
	for _, p := range l.policies {
		out = append(out, p)
	}
	out = append(out, l.fallback)
	return out
}

// Allow counts the request against its window and admits or rejects it. A
// counter-store failure falls back to the configured fail-open/fail-closed
// behaviour.
func (l *Limiter) Allow(ctx context.Context, endpoint, identifier string) Decision {
	policy := l.Policy(endpoint)
	now := l.now()
	windowStart := now.Truncate(policy.Window)
	resetAt := windowStart.Add(policy.Window)

	count, err := l.store.Incr(ctx, l.key(endpoint, identifier, windowStart), policy.Window)
	if err != nil {
		l.logger.Error("rate limit counter store unavailable",
			zap.String("endpoint", endpoint),
			zap.Bool("fail_open", l.failOpen),
			zap.Error(err))
		if l.failOpen {
			return Decision{Allowed: true, Limit: policy.Requests, Remaining: policy.Requests, ResetAt: resetAt}
		}
		return Decision{Allowed: false, Limit: policy.Requests, ResetAt: resetAt, RetryAfter: resetAt.Sub(now)}
	}

	remaining := policy.Requests - int(count)
	if remaining < 0 {
		remaining = 0
	}

	if count > int64(policy.Requests) {
		return Decision{
			Allowed:    false,
			Limit:      policy.Requests,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: resetAt.Sub(now),
		}
	}

	return Decision{
		Allowed:   true,
		Limit:     policy.Requests,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}

// Status reports the current window without consuming a request.
func (l *Limiter) Status(ctx context.Context, endpoint, identifier string) (Decision, error) {
	policy := l.Policy(endpoint)
	now := l.now()
	windowStart := now.Truncate(policy.Window)
	resetAt := windowStart.Add(policy.Window)

	count, err := l.store.Peek(ctx, l.key(endpoint, identifier, windowStart))
	if err != nil {
		return Decision{}, err
	}

	remaining := policy.Requests - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   count < int64(policy.Requests),
		Limit:     policy.Requests,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}

func (l *Limiter) key(endpoint, identifier string, windowStart time.Time) string {
	return fmt.Sprintf("%s:%s:%s:%d", keyPrefix, endpoint, identifier, windowStart.Unix())
}
