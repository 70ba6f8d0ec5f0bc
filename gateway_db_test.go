package bookshelf_test

import (
	"context"
	"database/sql"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	bookshelf "github.com/goliatone/go-bookshelf"
)

const sqliteCreateIdentities = `CREATE TABLE identities (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    is_confirmed BOOLEAN NOT NULL DEFAULT FALSE,
    metadata TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP
);`

func setupGatewayDB(t *testing.T) (*bookshelf.LocalGateway, func()) {
	t.Helper()

	db, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	bunDB := bun.NewDB(db, sqlitedialect.New())

	_, err = bunDB.Exec(sqliteCreateIdentities)
	require.NoError(t, err)

	cleanup := func() {
		_ = bunDB.Close()
		_ = db.Close()
	}

	return bookshelf.NewLocalGateway(bunDB, newMockConfig()), cleanup
}

func TestLocalGatewayCreateIdentity(t *testing.T) {
	gateway, cleanup := setupGatewayDB(t)
	defer cleanup()

	ctx := context.Background()

	claims, err := gateway.CreateIdentity(ctx, "carol@example.com", "FirstPass1", nil)
	require.NoError(t, err)
	require.NotNil(t, claims)

	t.Run("same password double submission converges", func(t *testing.T) {
		again, err := gateway.CreateIdentity(ctx, "carol@example.com", "FirstPass1", nil)
		require.NoError(t, err)
		assert.Equal(t, claims.ID, again.ID)
	})

	t.Run("different password is a conflict, not a silent no-op", func(t *testing.T) {
		_, err := gateway.CreateIdentity(ctx, "carol@example.com", "SecondPass2", nil)
		require.Error(t, err)
		assert.True(t, goerrors.Is(err, bookshelf.ErrIdentityExists))

		// The original credential is untouched and still signs in.
		_, err = gateway.Authenticate(ctx, "carol@example.com", "FirstPass1")
		assert.NoError(t, err)

		_, err = gateway.Authenticate(ctx, "carol@example.com", "SecondPass2")
		assert.True(t, goerrors.Is(err, bookshelf.ErrMismatchedHashAndPassword))
	})
}

func TestLocalGatewaySessionIsolation(t *testing.T) {
	gateway, cleanup := setupGatewayDB(t)
	defer cleanup()

	ctx := context.Background()

	alice, err := gateway.CreateIdentity(ctx, "alice@example.com", "AlicePass1", nil)
	require.NoError(t, err)
	bob, err := gateway.CreateIdentity(ctx, "bob@example.com", "BobPass1", nil)
	require.NoError(t, err)

	aliceClaims, err := gateway.Authenticate(ctx, "alice@example.com", "AlicePass1")
	require.NoError(t, err)
	bobClaims, err := gateway.Authenticate(ctx, "bob@example.com", "BobPass1")
	require.NoError(t, err)

	require.NotEqual(t, aliceClaims.Token, bobClaims.Token)

	// Alice's token still resolves to Alice after Bob signed in; sessions
	// live in the tokens, not in the gateway.
	resolved, err := gateway.CurrentSession(bookshelf.WithSessionToken(ctx, aliceClaims.Token))
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, alice.ID, resolved.ID)
	assert.Equal(t, "alice@example.com", resolved.Email)

	resolved, err = gateway.CurrentSession(bookshelf.WithSessionToken(ctx, bobClaims.Token))
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, bob.ID, resolved.ID)
}

func TestLocalGatewayUpdateCredential(t *testing.T) {
	gateway, cleanup := setupGatewayDB(t)
	defer cleanup()

	ctx := context.Background()

	_, err := gateway.CreateIdentity(ctx, "dave@example.com", "OldPass1", nil)
	require.NoError(t, err)

	claims, err := gateway.Authenticate(ctx, "dave@example.com", "OldPass1")
	require.NoError(t, err)

	sessionCtx := bookshelf.WithSessionToken(ctx, claims.Token)
	require.NoError(t, gateway.UpdateCredential(sessionCtx, "NewPass2"))

	_, err = gateway.Authenticate(ctx, "dave@example.com", "OldPass1")
	assert.True(t, goerrors.Is(err, bookshelf.ErrMismatchedHashAndPassword))

	_, err = gateway.Authenticate(ctx, "dave@example.com", "NewPass2")
	assert.NoError(t, err)
}

func TestLocalGatewayConfirmIdentity(t *testing.T) {
	gateway, cleanup := setupGatewayDB(t)
	defer cleanup()

	ctx := context.Background()

	claims, err := gateway.CreateIdentity(ctx, "erin@example.com", "ErinPass1", nil)
	require.NoError(t, err)

	require.NoError(t, gateway.ConfirmIdentity(ctx, claims.ID))
	// Confirming again is safe.
	require.NoError(t, gateway.ConfirmIdentity(ctx, claims.ID))

	err = gateway.ConfirmIdentity(ctx, uuid.New())
	assert.True(t, goerrors.Is(err, bookshelf.ErrIdentityNotFound))
}
