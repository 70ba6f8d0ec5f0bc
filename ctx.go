package bookshelf

import (
	"context"
)

var requestMetaCtxKey = &contextKey{"request_meta"}
var sessionTokenCtxKey = &contextKey{"session_token"}

type contextKey struct {
	name string
}

// RequestMeta carries the transport-level facts the core needs for throttling
// and audit logging: where the request came from and what client sent it. The
// HTTP layer derives these server-side; the core treats them as opaque.
type RequestMeta struct {
	Origin          string
	ClientSignature string
}

// WithRequestMeta sets the request metadata in the given context
func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaCtxKey, meta)
}

// RequestMetaFromContext finds the request metadata in the context
func RequestMetaFromContext(ctx context.Context) (RequestMeta, bool) {
	meta, ok := ctx.Value(requestMetaCtxKey).(RequestMeta)
	return meta, ok
}

// WithSessionToken sets the caller's raw session token in the context so
// gateway operations scoped to "the current session" can find it.
func WithSessionToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, sessionTokenCtxKey, token)
}

// SessionTokenFromContext finds the raw session token in the context
func SessionTokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(sessionTokenCtxKey).(string)
	return token, ok
}
