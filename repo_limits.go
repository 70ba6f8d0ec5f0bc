package bookshelf

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Limits enforced on the rolling registration window. Per-origin caps
// contain an abusive address across many emails; the per-pair cap keeps one
// noisy neighbor from exhausting a shared origin.
const (
	RegistrationWindow    = 24 * time.Hour
	MaxAttemptsPerOrigin  = 5
	MaxAttemptsPerPair    = 3
	reasonOriginExhausted = "too many registration attempts from this origin"
	reasonPairExhausted   = "too many registration attempts for this email"
)

// RegistrationAttempts is the store-side implementation of the rate-limit
// procedures the throttle consumes.
type RegistrationAttempts interface {
	LimitStore
}

type registrationAttempts struct {
	db  *bun.DB
	now func() time.Time
}

// RegistrationAttemptsOption customizes repository construction.
type RegistrationAttemptsOption func(*registrationAttempts)

// WithRegistrationAttemptsClock injects a custom clock (useful for tests).
func WithRegistrationAttemptsClock(clock func() time.Time) RegistrationAttemptsOption {
	return func(r *registrationAttempts) {
		if clock != nil {
			r.now = clock
		}
	}
}

func NewRegistrationAttemptsRepository(db *bun.DB, opts ...RegistrationAttemptsOption) RegistrationAttempts {
	repo := &registrationAttempts{
		db:  db,
		now: time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(repo)
		}
	}

	return repo
}

func (r *registrationAttempts) CheckRegistrationLimit(ctx context.Context, origin, email string) (LimitDecision, error) {
	since := r.now().Add(-RegistrationWindow)

	originCount, err := r.db.NewSelect().
		Model((*RegistrationAttempt)(nil)).
		Where("?TableAlias.origin = ?", origin).
		Where("?TableAlias.attempted_at > ?", since).
		Count(ctx)

	if err != nil {
		return LimitDecision{}, errors.Wrap(err, errors.CategoryInternal, "failed to count origin attempts")
	}

	if originCount >= MaxAttemptsPerOrigin {
		return LimitDecision{Allowed: false, Reason: reasonOriginExhausted}, nil
	}

	pairCount, err := r.db.NewSelect().
		Model((*RegistrationAttempt)(nil)).
		Where("?TableAlias.origin = ?", origin).
		Where("?TableAlias.email = ?", email).
		Where("?TableAlias.attempted_at > ?", since).
		Count(ctx)

	if err != nil {
		return LimitDecision{}, errors.Wrap(err, errors.CategoryInternal, "failed to count pair attempts")
	}

	if pairCount >= MaxAttemptsPerPair {
		return LimitDecision{Allowed: false, Reason: reasonPairExhausted}, nil
	}

	return LimitDecision{Allowed: true, Reason: "allowed"}, nil
}

func (r *registrationAttempts) RecordRegistrationAttempt(ctx context.Context, origin, email string, success bool) error {
	now := r.now()
	record := &RegistrationAttempt{
		ID:          uuid.New(),
		Origin:      origin,
		Email:       email,
		Success:     success,
		AttemptedAt: &now,
	}

	if _, err := r.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to record registration attempt")
	}

	return nil
}
