package bookshelf

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// ApprovalWorkflow holds the administrator-facing transitions. Both
// operations are keyed by record id and safe to invoke repeatedly; status is
// a last-writer-wins field with no merge semantics, so no optimistic
// concurrency check is needed.
type ApprovalWorkflow struct {
	users    Users
	gateway  CredentialGateway
	security SecuritySink
	logger   Logger
}

// ApprovalOption customizes workflow construction.
type ApprovalOption func(*ApprovalWorkflow)

// WithApprovalSecuritySink sets the audit sink.
func WithApprovalSecuritySink(sink SecuritySink) ApprovalOption {
	return func(w *ApprovalWorkflow) {
		w.security = normalizeSecuritySink(sink)
	}
}

// WithApprovalLogger overrides the logger.
func WithApprovalLogger(logger Logger) ApprovalOption {
	return func(w *ApprovalWorkflow) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewApprovalWorkflow returns the admin workflow over the given repository
// and credential gateway.
func NewApprovalWorkflow(users Users, gateway CredentialGateway, opts ...ApprovalOption) *ApprovalWorkflow {
	w := &ApprovalWorkflow{
		users:    users,
		gateway:  gateway,
		security: noopSecuritySink{},
		logger:   defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}

	return w
}

// ListUsers returns every record newest-first along with aggregate counts
// partitioned on status.
func (w *ApprovalWorkflow) ListUsers(ctx context.Context) ([]*User, UserStats, error) {
	records, err := w.users.ListNewestFirst(ctx)
	if err != nil {
		return nil, UserStats{}, errors.Wrap(err, errors.CategoryInternal, "failed to list users")
	}

	return records, CountUsers(records), nil
}

// Approve moves the record to approved, then best-effort confirms the
// credential. A failed confirmation never rolls back the status change.
// Re-approving an already approved record succeeds and retries the
// confirmation.
func (w *ApprovalWorkflow) Approve(ctx context.Context, id uuid.UUID) error {
	record, err := w.transition(ctx, id, UserStatusApproved)
	if err != nil {
		return err
	}

	if err := w.gateway.ConfirmIdentity(ctx, id); err != nil {
		w.logger.Warn("credential confirmation failed after approval", "user_id", id.String(), "error", err)
	}

	w.audit(ctx, SecurityActionUserApproved, map[string]any{
		"user_id": id.String(),
		"email":   record.Email,
	})

	return nil
}

// Reject moves the record to rejected. No credential side effect.
func (w *ApprovalWorkflow) Reject(ctx context.Context, id uuid.UUID) error {
	record, err := w.transition(ctx, id, UserStatusRejected)
	if err != nil {
		return err
	}

	w.audit(ctx, SecurityActionUserRejected, map[string]any{
		"user_id": id.String(),
		"email":   record.Email,
	})

	return nil
}

// transition validates and persists a status change. Writing the status the
// record already carries is allowed so repeats stay idempotent.
func (w *ApprovalWorkflow) transition(ctx context.Context, id uuid.UUID, target UserStatus) (*User, error) {
	record, err := w.users.FindByID(ctx, id)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrUserRecordMissing.WithMetadata(map[string]any{
				"user_id": id.String(),
			})
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load user record")
	}

	record.EnsureStatus()
	if !CanTransition(record.Status, target) {
		return nil, ErrInvalidTransition.WithMetadata(map[string]any{
			"from": record.Status,
			"to":   target,
		})
	}

	if _, err := w.users.UpdateStatus(ctx, id, target); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to update user status")
	}

	record.Status = target
	return record, nil
}

func (w *ApprovalWorkflow) audit(ctx context.Context, action SecurityAction, details map[string]any) {
	appendSecurityEvent(ctx, w.security, w.logger, action, details, true)
}
