package bookshelf

import (
	"github.com/goliatone/go-errors"
)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryAuth).
	WithTextCode("IDENTITY_NOT_FOUND").
	WithCode(errors.CodeUnauthorized)

// ErrMismatchedHashAndPassword is returned when credentials do not verify
var ErrMismatchedHashAndPassword = errors.New("invalid credentials", errors.CategoryAuth).
	WithTextCode("INVALID_CREDENTIALS").
	WithCode(errors.CodeUnauthorized)

// ErrIdentityExists is returned when registration hits an email that already
// has a credential with a different password
var ErrIdentityExists = errors.New("email already registered", errors.CategoryConflict).
	WithTextCode("IDENTITY_EXISTS").
	WithCode(errors.CodeConflict)

// ErrNoEmptyString guards hashing empty passwords
var ErrNoEmptyString = errors.New("value must not be empty", errors.CategoryValidation).
	WithTextCode("EMPTY_VALUE").
	WithCode(errors.CodeBadRequest)

// ErrAccountNotApproved is returned when the credential verified but the user
// record has not been approved by an administrator.
var ErrAccountNotApproved = errors.New("account not yet approved, awaiting administrator review", errors.CategoryAuthz).
	WithTextCode("ACCOUNT_NOT_APPROVED").
	WithCode(errors.CodeForbidden)

// ErrUserRecordMissing marks the inconsistency where an identity exists but no
// user record does. Surfaced for manual remediation, never auto-healed.
var ErrUserRecordMissing = errors.New("user record missing", errors.CategoryConflict).
	WithTextCode("USER_RECORD_MISSING").
	WithCode(errors.CodeConflict)

// ErrUserRecordCreate marks the mirror inconsistency: the identity was created
// but the user record write failed.
var ErrUserRecordCreate = errors.New("could not create user record", errors.CategoryConflict).
	WithTextCode("USER_RECORD_CREATE").
	WithCode(errors.CodeConflict)

// ErrRegistrationThrottled is returned when the rate limiter denies a sign-up
var ErrRegistrationThrottled = errors.New("too many registration attempts", errors.CategoryRateLimit).
	WithTextCode("REGISTRATION_THROTTLED")

// ErrInvalidTransition is returned when a requested status change is not allowed
var ErrInvalidTransition = errors.New("invalid user state transition", errors.CategoryValidation).
	WithTextCode("INVALID_USER_STATE_TRANSITION").
	WithCode(errors.CodeBadRequest)

// ErrNoActiveSession is returned by gateway operations that need a live session
var ErrNoActiveSession = errors.New("no active session", errors.CategoryAuth).
	WithTextCode("NO_ACTIVE_SESSION").
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired flags session tokens past their expiration
var ErrTokenExpired = errors.New("session token is expired", errors.CategoryAuth).
	WithTextCode("TOKEN_EXPIRED").
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed flags tokens we could not parse
var ErrTokenMalformed = errors.New("session token is malformed", errors.CategoryAuth).
	WithTextCode("TOKEN_MALFORMED").
	WithCode(errors.CodeUnauthorized)
