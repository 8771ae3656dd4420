package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/rigbuilderhq/rigbuilder-backend/pkg/metrics"
)

// Scope names for the authentication surfaces.
const (
	ScopeLogin          = "login"
	ScopeForgotPassword = "forgot_password"
)

// Store is the counter surface the limiter needs from Redis.
type Store interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Del(ctx context.Context, keys ...string) error
	RateLimitKey(scope, key string) string
}

// Rule is one fixed-window budget: at most Limit attempts per Window.
type Rule struct {
	Limit  int
	Window time.Duration
}

// Result reports the outcome of consuming one attempt.
type Result struct {
	Allowed   bool
	Count     int64
	Remaining int64
}

// Limiter applies fixed-window rate limits keyed by scope and caller key.
// The window starts at the first attempt and is not sliding: a burst
// straddling two windows can see up to twice the budget.
type Limiter struct {
	store   Store
	rules   map[string]Rule
	metrics *metrics.APIMetrics
}

// NewLimiter validates the rules and returns a limiter.
func NewLimiter(store Store, rules map[string]Rule, apiMetrics *metrics.APIMetrics) (*Limiter, error) {
	if store == nil {
		return nil, fmt.Errorf("rate limit store required")
	}
	if len(rules) == 0 {
		return nil, fmt.Errorf("at least one rate limit rule required")
	}
	for scope, rule := range rules {
		if rule.Limit <= 0 {
			return nil, fmt.Errorf("scope %q: limit must be positive", scope)
		}
		if rule.Window <= 0 {
			return nil, fmt.Errorf("scope %q: window must be positive", scope)
		}
	}
	return &Limiter{store: store, rules: rules, metrics: apiMetrics}, nil
}

// Consume records one attempt for the scope/key pair and reports whether the
// caller is still within budget. The attempt is counted even when denied.
func (l *Limiter) Consume(ctx context.Context, scope, key string) (Result, error) {
	rule, ok := l.rules[scope]
	if !ok {
		return Result{}, fmt.Errorf("unknown rate limit scope %q", scope)
	}
	if key == "" {
		return Result{}, fmt.Errorf("rate limit key required")
	}

	count, err := l.store.IncrWithTTL(ctx, l.store.RateLimitKey(scope, key), rule.Window)
	if err != nil {
		return Result{}, fmt.Errorf("rate limit counter: %w", err)
	}

	remaining := int64(rule.Limit) - count
	if remaining < 0 {
		remaining = 0
	}
	allowed := count <= int64(rule.Limit)
	if !allowed {
		l.metrics.IncRateLimitBlocked(scope)
	}
	return Result{Allowed: allowed, Count: count, Remaining: remaining}, nil
}

// Clear resets the window for the scope/key pair. Called after a successful
// login so earlier failures stop counting against the user.
func (l *Limiter) Clear(ctx context.Context, scope, key string) error {
	if _, ok := l.rules[scope]; !ok {
		return fmt.Errorf("unknown rate limit scope %q", scope)
	}
	if key == "" {
		return fmt.Errorf("rate limit key required")
	}
	return l.store.Del(ctx, l.store.RateLimitKey(scope, key))
}
