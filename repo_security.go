package bookshelf

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SecurityLogs is the append-only audit table. Nothing in the application
// reads these rows back; they exist for operators.
type SecurityLogs interface {
	Append(ctx context.Context, record *SecurityLog) error
}

type securityLogs struct {
	db *bun.DB
}

func NewSecurityLogsRepository(db *bun.DB) SecurityLogs {
	return &securityLogs{db: db}
}

func (r *securityLogs) Append(ctx context.Context, record *SecurityLog) error {
	if record == nil {
		return nil
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	if _, err := r.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to append security log")
	}

	return nil
}

// NewStoreSecuritySink adapts the security log table to the SecuritySink the
// orchestrator and approval workflow emit into.
func NewStoreSecuritySink(logs SecurityLogs) SecuritySink {
	return SecuritySinkFunc(func(ctx context.Context, event SecurityEvent) error {
		occurred := event.OccurredAt
		record := &SecurityLog{
			Origin:          event.Origin,
			ClientSignature: event.ClientSignature,
			Action:          string(event.Action),
			Details:         event.Details,
			Success:         event.Success,
		}
		if !occurred.IsZero() {
			record.CreatedAt = &occurred
		}
		return logs.Append(ctx, record)
	})
}
