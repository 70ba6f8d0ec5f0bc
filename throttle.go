package bookshelf

import (
	"context"
)

// FallbackOrigin is used when the network origin cannot be determined. Origin
// resolution must never block a registration on its own failure.
const FallbackOrigin = "127.0.0.1"

// LimitDecision is the outcome of a registration limit check
type LimitDecision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// LimitStore is the directory store's rate-limit surface: two opaque
// procedures the throttle queries and reports to. The orchestrator never
// mutates the underlying counters directly.
type LimitStore interface {
	CheckRegistrationLimit(ctx context.Context, origin, email string) (LimitDecision, error)
	RecordRegistrationAttempt(ctx context.Context, origin, email string, success bool) error
}

// OriginResolver derives the caller's network origin.
type OriginResolver interface {
	Origin(ctx context.Context) (string, error)
}

// OriginResolverFunc adapts a function to the OriginResolver interface.
type OriginResolverFunc func(ctx context.Context) (string, error)

// Origin implements OriginResolver.
func (f OriginResolverFunc) Origin(ctx context.Context) (string, error) {
	if f == nil {
		return "", nil
	}
	return f(ctx)
}

// RequestMetaOriginResolver reads the origin the transport layer stored in
// the context. This keeps origin derivation server-side; clients never get to
// claim their own address.
func RequestMetaOriginResolver() OriginResolver {
	return OriginResolverFunc(func(ctx context.Context) (string, error) {
		if meta, ok := RequestMetaFromContext(ctx); ok {
			return meta.Origin, nil
		}
		return "", nil
	})
}

// RegistrationThrottle bounds sign-up attempts per (origin, email) pair.
// Keying on the pair contains an abusive origin across many addresses while a
// legitimate user behind a shared origin is only blocked for the window the
// store enforces.
type RegistrationThrottle struct {
	store    LimitStore
	resolver OriginResolver
	logger   Logger
}

// ThrottleOption customizes throttle construction.
type ThrottleOption func(*RegistrationThrottle)

// WithThrottleOriginResolver overrides how the network origin is derived.
func WithThrottleOriginResolver(resolver OriginResolver) ThrottleOption {
	return func(t *RegistrationThrottle) {
		if resolver != nil {
			t.resolver = resolver
		}
	}
}

// WithThrottleLogger overrides the logger.
func WithThrottleLogger(logger Logger) ThrottleOption {
	return func(t *RegistrationThrottle) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewRegistrationThrottle returns a throttle backed by the given store.
func NewRegistrationThrottle(store LimitStore, opts ...ThrottleOption) *RegistrationThrottle {
	t := &RegistrationThrottle{
		store:    store,
		resolver: RequestMetaOriginResolver(),
		logger:   defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}

	return t
}

// Check asks the store whether this (origin, email) pair may register. The
// check fails open: when the store itself errors the attempt is allowed with
// a diagnostic reason, trading strict abuse prevention for availability.
func (t *RegistrationThrottle) Check(ctx context.Context, email string) LimitDecision {
	origin := t.origin(ctx)

	decision, err := t.store.CheckRegistrationLimit(ctx, origin, email)
	if err != nil {
		t.logger.Warn("registration limit check failed, allowing", "origin", origin, "error", err)
		return LimitDecision{Allowed: true, Reason: "limit check unavailable, allowing"}
	}

	return decision
}

// Record reports the outcome of a registration attempt so the rolling
// counters stay accurate regardless of outcome. Failure to record is logged
// but never surfaced; it must not block the user-visible flow.
func (t *RegistrationThrottle) Record(ctx context.Context, email string, success bool) {
	origin := t.origin(ctx)

	if err := t.store.RecordRegistrationAttempt(ctx, origin, email, success); err != nil {
		t.logger.Warn("record registration attempt failed", "origin", origin, "error", err)
	}
}

func (t *RegistrationThrottle) origin(ctx context.Context) string {
	if t.resolver == nil {
		return FallbackOrigin
	}

	origin, err := t.resolver.Origin(ctx)
	if err != nil || origin == "" {
		if err != nil {
			t.logger.Debug("origin resolution failed, using fallback", "error", err)
		}
		return FallbackOrigin
	}

	return origin
}
