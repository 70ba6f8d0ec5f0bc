package bookshelf

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserStatus is the account's authorization state
type UserStatus = string

const (
	// UserStatusPending is the state every new registration starts in
	UserStatusPending UserStatus = "pending"
	// UserStatusApproved is the only state that may authenticate
	UserStatusApproved UserStatus = "approved"
	// UserStatusRejected is the terminal state for denied registrations
	UserStatusRejected UserStatus = "rejected"
)

// User is the durable authorization record for a shelf account. The matching
// credential lives with the gateway; this row is the source of truth for
// whether the account may sign in.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	Username      string     `bun:"username,notnull" json:"username,omitempty"`
	Status        UserStatus `bun:"status,notnull" json:"status,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// EnsureStatus defaults a blank status to pending
func (u *User) EnsureStatus() {
	if u.Status == "" {
		u.Status = UserStatusPending
	}
}

// IsApproved reports whether the account may authenticate
func (u *User) IsApproved() bool {
	return u != nil && u.Status == UserStatusApproved
}

// IsValidStatus checks the value against the known states
func IsValidStatus(status UserStatus) bool {
	switch status {
	case UserStatusPending, UserStatusApproved, UserStatusRejected:
		return true
	default:
		return false
	}
}

// CanTransition reports whether the admin workflow allows moving between the
// two states. Self transitions are allowed so that repeating a terminal write
// stays an idempotent no-op.
func CanTransition(from, to UserStatus) bool {
	if from == to {
		return true
	}

	switch from {
	case UserStatusPending:
		return to == UserStatusApproved || to == UserStatusRejected
	default:
		return false
	}
}

// UserStats aggregates the listing by status
type UserStats struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}

// CountUsers partitions records into per-status totals
func CountUsers(records []*User) UserStats {
	stats := UserStats{Total: len(records)}
	for _, record := range records {
		if record == nil {
			continue
		}
		switch record.Status {
		case UserStatusApproved:
			stats.Approved++
		case UserStatusRejected:
			stats.Rejected++
		default:
			stats.Pending++
		}
	}
	return stats
}

// SecurityLog is an append-only audit row. The orchestrator only ever writes
// these; nothing in the application reads them back.
type SecurityLog struct {
	bun.BaseModel   `bun:"table:security_logs,alias:slog"`
	ID              uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Origin          string         `bun:"origin,notnull" json:"origin,omitempty"`
	ClientSignature string         `bun:"client_signature" json:"client_signature,omitempty"`
	Action          string         `bun:"action,notnull" json:"action,omitempty"`
	Details         map[string]any `bun:"details" json:"details,omitempty"`
	Success         bool           `bun:"success" json:"success"`
	CreatedAt       *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// RegistrationAttempt is one row of the rolling rate-limit counter keyed by
// the (origin, email) pair.
type RegistrationAttempt struct {
	bun.BaseModel `bun:"table:registration_attempts,alias:rega"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Origin        string     `bun:"origin,notnull" json:"origin,omitempty"`
	Email         string     `bun:"email,notnull" json:"email,omitempty"`
	Success       bool       `bun:"success" json:"success"`
	AttemptedAt   *time.Time `bun:"attempted_at,nullzero,default:current_timestamp" json:"attempted_at,omitempty"`
}
