package bookshelf

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// IdentityClaims is what the credential gateway reports about an identity. The
// orchestrator never sees the credential itself, only the id/email/token that
// come back from gateway calls.
type IdentityClaims struct {
	ID    uuid.UUID
	Email string
	Token string
}

// CredentialGateway owns identities and sessions: it authenticates email and
// password pairs, issues session tokens, and rotates credentials. Everything
// here is an external collaborator from the orchestrator's point of view.
type CredentialGateway interface {
	Authenticate(ctx context.Context, email, password string) (*IdentityClaims, error)
	CreateIdentity(ctx context.Context, email, password string, metadata map[string]any) (*IdentityClaims, error)
	// CurrentSession returns (nil, nil) when no live session exists.
	CurrentSession(ctx context.Context) (*IdentityClaims, error)
	// InvalidateSession is best-effort; callers log failures and move on.
	InvalidateSession(ctx context.Context) error
	UpdateCredential(ctx context.Context, newPassword string) error
	// ConfirmIdentity is the admin-triggered confirmation side effect.
	ConfirmIdentity(ctx context.Context, id uuid.UUID) error
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetTokenExpiration() int
	GetIssuer() string
	GetAudience() []string
	GetAdminEmail() string
}

// IsAdminEmail reports whether the authenticated email belongs to the
// configured administrator. Comparison is case-sensitive on purpose; the
// configured value is expected to match the stored identity email exactly.
func IsAdminEmail(email, adminEmail string) bool {
	return adminEmail != "" && email == adminEmail
}

// DefaultLogger returns the stdout fallback logger used when no Logger is
// configured.
func DefaultLogger() Logger {
	return defLogger{}
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] SHELF "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] SHELF "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] SHELF "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] SHELF "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
