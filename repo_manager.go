package bookshelf

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	Users() Users
	RegistrationAttempts() RegistrationAttempts
	SecurityLogs() SecurityLogs
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error
	Validate() error
	MustValidate()
}

type mngr struct {
	db                   *bun.DB
	users                Users
	registrationAttempts RegistrationAttempts
	securityLogs         SecurityLogs
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:                   db,
		users:                NewUsersRepository(db),
		registrationAttempts: NewRegistrationAttemptsRepository(db),
		securityLogs:         NewSecurityLogsRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.registrationAttempts == nil {
		return errors.New("repository registrationAttempts should be initialized")
	}

	if m.securityLogs == nil {
		return errors.New("repository securityLogs should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Users() Users {
	return m.users
}

func (m mngr) RegistrationAttempts() RegistrationAttempts {
	return m.registrationAttempts
}

func (m mngr) SecurityLogs() SecurityLogs {
	return m.securityLogs
}
