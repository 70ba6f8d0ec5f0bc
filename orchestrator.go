package bookshelf

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// AuthState describes the orchestrator's lifecycle within a process.
type AuthState string

const (
	AuthStateUnknown       AuthState = "unknown"
	AuthStateChecking      AuthState = "checking"
	AuthStateAnonymous     AuthState = "anonymous"
	AuthStateAuthenticated AuthState = "authenticated"
)

// Session is the ephemeral, process-local projection of the signed-in user.
// It is never persisted here; session durability, if any, belongs to the
// credential gateway.
type Session struct {
	ID        uuid.UUID  `json:"id"`
	Email     string     `json:"email"`
	Username  string     `json:"username"`
	Status    UserStatus `json:"status"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	IsAdmin   bool       `json:"is_admin"`
	Token     string     `json:"-"`
}

// Orchestrator owns the notion of "current user". It mediates sign-up,
// sign-in with approval gating, sign-out, and password change, bridging the
// credential gateway and the directory store. There is no package-level
// singleton; callers hold an instance.
type Orchestrator struct {
	gateway    CredentialGateway
	users      Users
	throttle   *RegistrationThrottle
	security   SecuritySink
	adminEmail string
	logger     Logger

	mu      sync.RWMutex
	state   AuthState
	session *Session
}

// OrchestratorOption customizes orchestrator construction.
type OrchestratorOption func(*Orchestrator)

// WithAdminEmail sets the configured administrator address.
func WithAdminEmail(email string) OrchestratorOption {
	return func(o *Orchestrator) {
		o.adminEmail = email
	}
}

// WithThrottle sets the registration throttle.
func WithThrottle(throttle *RegistrationThrottle) OrchestratorOption {
	return func(o *Orchestrator) {
		o.throttle = throttle
	}
}

// WithSecuritySink sets the audit sink.
func WithSecuritySink(sink SecuritySink) OrchestratorOption {
	return func(o *Orchestrator) {
		o.security = normalizeSecuritySink(sink)
	}
}

// WithOrchestratorLogger overrides the logger.
func WithOrchestratorLogger(logger Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewOrchestrator returns a new session orchestrator. The gateway and users
// repository are mandatory collaborators; everything else has a usable
// default.
func NewOrchestrator(gateway CredentialGateway, users Users, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		gateway:  gateway,
		users:    users,
		security: noopSecuritySink{},
		logger:   defLogger{},
		state:    AuthStateUnknown,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	return o
}

// Start checks the gateway for an existing valid session and materializes it.
// Any failure lands in Anonymous without surfacing the error: the login page,
// not an error page, is the correct next state.
func (o *Orchestrator) Start(ctx context.Context) {
	o.setState(AuthStateChecking)

	session, err := o.Resolve(ctx)
	if err != nil {
		o.logger.Debug("session restore failed", "error", err)
		o.clearSession()
		return
	}

	if session == nil {
		o.clearSession()
		return
	}

	o.setSession(session)
}

// Resolve builds the session belonging to the caller behind ctx, from the
// token the context carries and nothing else. It returns (nil, nil) for
// anonymous callers and for tokens whose account no longer passes the
// approval gate; the held process-local session is never consulted, so one
// caller can never observe another's sign-in.
func (o *Orchestrator) Resolve(ctx context.Context) (*Session, error) {
	claims, err := o.gateway.CurrentSession(ctx)
	if err != nil {
		return nil, err
	}

	if claims == nil {
		return nil, nil
	}

	record, err := o.users.FindByID(ctx, claims.ID)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrUserRecordMissing.WithMetadata(map[string]any{
				"identity_id": claims.ID.String(),
			})
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load user record")
	}

	if !record.IsApproved() {
		return nil, nil
	}

	return &Session{
		ID:        record.ID,
		Email:     record.Email,
		Username:  record.Username,
		Status:    record.Status,
		CreatedAt: record.CreatedAt,
		IsAdmin:   IsAdminEmail(record.Email, o.adminEmail),
		Token:     claims.Token,
	}, nil
}

// SignUp creates an identity and its pending user record. Policy validators
// must already have passed; that is the caller's responsibility. Gateway
// errors come back verbatim, a failed record write after a successful
// identity create comes back as ErrUserRecordCreate so operators can
// reconcile the inconsistency manually.
func (o *Orchestrator) SignUp(ctx context.Context, email, username, password string) error {
	if o.throttle != nil {
		if decision := o.throttle.Check(ctx, email); !decision.Allowed {
			o.audit(ctx, SecurityActionRegistrationFailed, map[string]any{
				"email":  email,
				"reason": decision.Reason,
			}, false)
			return ErrRegistrationThrottled.WithMetadata(map[string]any{
				"reason": decision.Reason,
			})
		}
	}

	claims, err := o.gateway.CreateIdentity(ctx, email, password, map[string]any{
		"username":      username,
		"email_confirm": true,
	})
	if err != nil {
		o.recordAttempt(ctx, email, false)
		o.audit(ctx, SecurityActionRegistrationFailed, map[string]any{
			"email":  email,
			"reason": err.Error(),
		}, false)
		return err
	}

	now := time.Now()
	record := &User{
		ID:        claims.ID,
		Email:     email,
		Username:  username,
		Status:    UserStatusPending,
		CreatedAt: &now,
		UpdatedAt: &now,
	}

	if _, err := o.users.Upsert(ctx, record); err != nil {
		o.logger.Error("user record write failed after identity create", "identity_id", claims.ID, "error", err)
		o.recordAttempt(ctx, email, false)
		o.audit(ctx, SecurityActionRegistrationFailed, map[string]any{
			"email":  email,
			"reason": "user_record_create",
		}, false)
		return ErrUserRecordCreate.WithMetadata(map[string]any{
			"identity_id": claims.ID.String(),
		})
	}

	o.recordAttempt(ctx, email, true)
	o.audit(ctx, SecurityActionRegistrationSuccess, map[string]any{
		"email":    email,
		"username": username,
	}, true)

	return nil
}

// SignIn verifies credentials and gates the session on approval state. A
// verified credential whose record is not approved gets its gateway session
// torn down immediately so no live session outlasts the gate. The returned
// session carries the minted token for the caller's own transport; the
// process-local state is a convenience projection, never the source the
// token comes from.
func (o *Orchestrator) SignIn(ctx context.Context, email, password string) (*Session, error) {
	claims, err := o.gateway.Authenticate(ctx, email, password)
	if err != nil {
		o.audit(ctx, SecurityActionLoginFailed, map[string]any{
			"email":  email,
			"reason": err.Error(),
		}, false)
		return nil, err
	}

	record, err := o.users.FindByID(ctx, claims.ID)
	if err != nil {
		if errors.IsNotFound(err) {
			o.audit(ctx, SecurityActionLoginFailed, map[string]any{
				"email":  email,
				"reason": "user_record_missing",
			}, false)
			return nil, ErrUserRecordMissing.WithMetadata(map[string]any{
				"identity_id": claims.ID.String(),
			})
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load user record")
	}

	if !record.IsApproved() {
		if err := o.gateway.InvalidateSession(ctx); err != nil {
			o.logger.Warn("failed to invalidate unapproved session", "error", err)
		}
		o.audit(ctx, SecurityActionLoginFailed, map[string]any{
			"email":  email,
			"status": record.Status,
		}, false)
		return nil, ErrAccountNotApproved
	}

	session := &Session{
		ID:        record.ID,
		Email:     record.Email,
		Username:  record.Username,
		Status:    record.Status,
		CreatedAt: record.CreatedAt,
		IsAdmin:   IsAdminEmail(claims.Email, o.adminEmail),
		Token:     claims.Token,
	}

	o.setSession(session)

	o.audit(ctx, SecurityActionLoginSuccess, map[string]any{
		"email": email,
	}, true)

	copied := *session
	return &copied, nil
}

// SignOut invalidates the gateway session and clears local state. The local
// session is cleared even when the gateway call fails so the process can
// never get stuck authenticated.
func (o *Orchestrator) SignOut(ctx context.Context) {
	if err := o.gateway.InvalidateSession(o.sessionContext(ctx)); err != nil {
		o.logger.Warn("gateway sign out failed", "error", err)
	}

	o.clearSession()
	o.audit(ctx, SecurityActionLogout, nil, true)
}

// ChangePassword delegates to the gateway. Strength validation is the
// caller's responsibility, mirroring registration.
func (o *Orchestrator) ChangePassword(ctx context.Context, newPassword string) error {
	if err := o.gateway.UpdateCredential(o.sessionContext(ctx), newPassword); err != nil {
		o.audit(ctx, SecurityActionPasswordChanged, map[string]any{
			"reason": err.Error(),
		}, false)
		return err
	}

	o.audit(ctx, SecurityActionPasswordChanged, nil, true)
	return nil
}

// Current returns a copy of the active session, or nil when anonymous.
func (o *Orchestrator) Current() *Session {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.session == nil {
		return nil
	}

	session := *o.session
	return &session
}

// State reports the orchestrator lifecycle state.
func (o *Orchestrator) State() AuthState {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// IsAdmin reports whether the current session belongs to the administrator.
func (o *Orchestrator) IsAdmin() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.session != nil && o.session.IsAdmin
}

// sessionContext backfills the held session's token when the caller's context
// carries none, so process-local flows keep working without a transport layer.
// A token already in the context always wins.
func (o *Orchestrator) sessionContext(ctx context.Context) context.Context {
	if token, ok := SessionTokenFromContext(ctx); ok && token != "" {
		return ctx
	}

	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.session != nil && o.session.Token != "" {
		return WithSessionToken(ctx, o.session.Token)
	}

	return ctx
}

func (o *Orchestrator) setSession(session *Session) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.session = session
	o.state = AuthStateAuthenticated
}

func (o *Orchestrator) clearSession() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.session = nil
	o.state = AuthStateAnonymous
}

func (o *Orchestrator) setState(state AuthState) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = state
}

func (o *Orchestrator) recordAttempt(ctx context.Context, email string, success bool) {
	if o.throttle != nil {
		o.throttle.Record(ctx, email, success)
	}
}

func (o *Orchestrator) audit(ctx context.Context, action SecurityAction, details map[string]any, success bool) {
	appendSecurityEvent(ctx, o.security, o.logger, action, details, success)
}
