package bookshelf

import (
	"context"
	"time"
)

// SecurityAction enumerates audited action categories.
type SecurityAction string

const (
	SecurityActionRegistrationSuccess SecurityAction = "registration_success"
	SecurityActionRegistrationFailed  SecurityAction = "registration_failed"
	SecurityActionLoginSuccess        SecurityAction = "login_success"
	SecurityActionLoginFailed         SecurityAction = "login_failed"
	SecurityActionLogout              SecurityAction = "logout"
	SecurityActionPasswordChanged     SecurityAction = "password_changed"
	SecurityActionUserApproved        SecurityAction = "user_approved"
	SecurityActionUserRejected        SecurityAction = "user_rejected"
)

// SecurityEvent captures audit-friendly information about an action.
type SecurityEvent struct {
	Origin          string
	ClientSignature string
	Action          SecurityAction
	Details         map[string]any
	Success         bool
	OccurredAt      time.Time
}

// SecuritySink consumes security events for auditing purposes. Sinks are
// write-only and best-effort: callers log failures and never propagate them.
type SecuritySink interface {
	Append(ctx context.Context, event SecurityEvent) error
}

// SecuritySinkFunc adapts a function to the SecuritySink interface.
type SecuritySinkFunc func(ctx context.Context, event SecurityEvent) error

// Append implements SecuritySink.
func (f SecuritySinkFunc) Append(ctx context.Context, event SecurityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopSecuritySink struct{}

func (noopSecuritySink) Append(context.Context, SecurityEvent) error {
	return nil
}

func normalizeSecuritySink(s SecuritySink) SecuritySink {
	if s == nil {
		return noopSecuritySink{}
	}
	return s
}

// appendSecurityEvent fills in transport metadata and timestamps before
// handing the event to the sink. Failures are logged, never returned: a
// degraded log store must not block the primary operation.
func appendSecurityEvent(ctx context.Context, sink SecuritySink, logger Logger, action SecurityAction, details map[string]any, success bool) {
	event := SecurityEvent{
		Action:     action,
		Details:    details,
		Success:    success,
		OccurredAt: time.Now(),
	}

	if meta, ok := RequestMetaFromContext(ctx); ok {
		event.Origin = meta.Origin
		event.ClientSignature = meta.ClientSignature
	}
	if event.Origin == "" {
		event.Origin = FallbackOrigin
	}

	if event.Details == nil {
		event.Details = map[string]any{}
	}

	if err := normalizeSecuritySink(sink).Append(ctx, event); err != nil {
		logger.Warn("security sink append error: %v", err)
	}
}
