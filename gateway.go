package bookshelf

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 14

// HashPassword will generate a password hash
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	return string(h), err
}

// ComparePasswordAndHash will validate the given cleartext password matches
// the hashed password
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return err
	}
	return nil
}

// IdentityRecord is the credential row owned by the gateway. Application code
// goes through CredentialGateway and never touches this table directly.
type IdentityRecord struct {
	bun.BaseModel `bun:"table:identities,alias:idn"`
	ID            uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         string         `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash  string         `bun:"password_hash,notnull" json:"-"`
	Confirmed     bool           `bun:"is_confirmed" json:"is_confirmed,omitempty"`
	Metadata      map[string]any `bun:"metadata" json:"metadata,omitempty"`
	CreatedAt     *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time     `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// LocalGateway is a CredentialGateway backed by the application database:
// bcrypt hashed credentials in an identities table and signed JWT session
// tokens. The gateway holds no session state of its own; the caller's token
// arrives through the context (WithSessionToken), so concurrent sessions
// never observe each other.
type LocalGateway struct {
	db     *bun.DB
	tokens TokenService
	logger Logger
}

// LocalGatewayOption customizes gateway construction.
type LocalGatewayOption func(*LocalGateway)

// WithGatewayLogger overrides the logger.
func WithGatewayLogger(logger Logger) LocalGatewayOption {
	return func(g *LocalGateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithGatewayTokenService overrides the token service.
func WithGatewayTokenService(tokens TokenService) LocalGatewayOption {
	return func(g *LocalGateway) {
		if tokens != nil {
			g.tokens = tokens
		}
	}
}

// NewLocalGateway returns a gateway over the given database using token
// options from cfg.
func NewLocalGateway(db *bun.DB, cfg Config, opts ...LocalGatewayOption) *LocalGateway {
	g := &LocalGateway{
		db: db,
		tokens: NewTokenService(
			[]byte(cfg.GetSigningKey()),
			cfg.GetTokenExpiration(),
			cfg.GetIssuer(),
			cfg.GetAudience(),
			defLogger{},
		),
		logger: defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}

	return g
}

var _ CredentialGateway = (*LocalGateway)(nil)

// Authenticate verifies the email/password pair and mints a session token.
// Unknown emails and bad passwords both come back as invalid credentials.
func (g *LocalGateway) Authenticate(ctx context.Context, email, password string) (*IdentityClaims, error) {
	record := new(IdentityRecord)

	err := g.db.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMismatchedHashAndPassword
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load identity")
	}

	if err := ComparePasswordAndHash(password, record.PasswordHash); err != nil {
		return nil, err
	}

	token, err := g.tokens.Generate(record.ID, record.Email)
	if err != nil {
		return nil, err
	}

	return &IdentityClaims{
		ID:    record.ID,
		Email: record.Email,
		Token: token,
	}, nil
}

// CreateIdentity stores a new credential. The id is derived from the email so
// a duplicate-click double submission with the same password resolves to the
// existing row; the same email with a different password is a conflict, never
// a silent no-op that would strand the caller on a credential they cannot
// know.
func (g *LocalGateway) CreateIdentity(ctx context.Context, email, password string, metadata map[string]any) (*IdentityClaims, error) {
	if email == "" || password == "" {
		return nil, ErrNoEmptyString
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to hash password")
	}

	id, err := hashid.NewUUID(email)
	if err != nil {
		id = uuid.New()
	}

	now := time.Now()
	record := &IdentityRecord{
		ID:           id,
		Email:        email,
		PasswordHash: hash,
		Metadata:     metadata,
		CreatedAt:    &now,
		UpdatedAt:    &now,
	}

	res, err := g.db.NewInsert().
		Model(record).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryConflict, "could not create identity")
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		existing := new(IdentityRecord)
		err := g.db.NewSelect().
			Model(existing).
			Where("?TableAlias.id = ?", id).
			Limit(1).
			Scan(ctx)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load existing identity")
		}

		if err := ComparePasswordAndHash(password, existing.PasswordHash); err != nil {
			return nil, ErrIdentityExists.WithMetadata(map[string]any{
				"email": email,
			})
		}
	}

	return &IdentityClaims{ID: id, Email: email}, nil
}

// CurrentSession returns the claims behind the caller's session token, or
// (nil, nil) when the context carries no token. Expired tokens also resolve
// to (nil, nil): the session simply no longer exists.
func (g *LocalGateway) CurrentSession(ctx context.Context) (*IdentityClaims, error) {
	raw, ok := SessionTokenFromContext(ctx)
	if !ok || raw == "" {
		return nil, nil
	}

	claims, err := g.tokens.Validate(raw)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return nil, nil
		}
		return nil, err
	}

	id, err := claims.IdentityID()
	if err != nil {
		return nil, ErrTokenMalformed
	}

	return &IdentityClaims{
		ID:    id,
		Email: claims.Email,
		Token: raw,
	}, nil
}

// InvalidateSession is a no-op for signed stateless tokens; the session ends
// when the caller discards the token. Best-effort by contract.
func (g *LocalGateway) InvalidateSession(context.Context) error {
	return nil
}

// UpdateCredential rotates the password behind the live session.
func (g *LocalGateway) UpdateCredential(ctx context.Context, newPassword string) error {
	claims, err := g.CurrentSession(ctx)
	if err != nil {
		return err
	}

	if claims == nil {
		return ErrNoActiveSession
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to hash password")
	}

	return g.updateIdentity(ctx, claims.ID, map[string]any{"password_hash": hash})
}

// ConfirmIdentity marks the identity confirmed. Invoked by the approval
// workflow; safe to repeat.
func (g *LocalGateway) ConfirmIdentity(ctx context.Context, id uuid.UUID) error {
	return g.updateIdentity(ctx, id, map[string]any{"is_confirmed": true})
}

func (g *LocalGateway) updateIdentity(ctx context.Context, id uuid.UUID, values map[string]any) error {
	query := g.db.NewUpdate().
		Model((*IdentityRecord)(nil)).
		Where("?TableAlias.id = ?", id)

	for column, value := range values {
		query.Set("? = ?", bun.Ident(column), value)
	}
	query.Set("updated_at = ?", time.Now())

	res, err := query.Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to update identity")
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrIdentityNotFound.WithMetadata(map[string]any{
			"identity_id": id.String(),
		})
	}

	return nil
}
