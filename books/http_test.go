package books_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bookshelf "github.com/goliatone/go-bookshelf"
	"github.com/goliatone/go-bookshelf/books"
)

// tokenSessions resolves only the one token it was built with, the way the
// orchestrator resolves the token carried by the request context.
type tokenSessions struct {
	token   string
	session *bookshelf.Session
}

func (s *tokenSessions) Resolve(ctx context.Context) (*bookshelf.Session, error) {
	raw, ok := bookshelf.SessionTokenFromContext(ctx)
	if !ok || raw != s.token {
		return nil, nil
	}
	return s.session, nil
}

// readShelf serves canned records; the embedded interface covers the rest of
// the repository surface.
type readShelf struct {
	books.Books
	listed  bool
	records []*books.Book
}

func (s *readShelf) ListByTitle(ctx context.Context) ([]*books.Book, error) {
	s.listed = true
	return s.records, nil
}

func (s *readShelf) GetBySlug(ctx context.Context, slug string) (*books.Book, error) {
	for _, record := range s.records {
		if record.Slug == slug {
			return record, nil
		}
	}
	return nil, assert.AnError
}

// shelfCtx is the thin request surface the shelf handlers touch; the
// embedded interface covers the rest.
type shelfCtx struct {
	router.Context
	cookies map[string]string
	params  map[string]string

	status int
	body   any
}

func (c *shelfCtx) Context() context.Context { return context.Background() }

func (c *shelfCtx) Cookies(key string, defaultValue ...string) string {
	if v, ok := c.cookies[key]; ok {
		return v
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (c *shelfCtx) Param(key string, defaultValue ...string) string {
	if v, ok := c.params[key]; ok {
		return v
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (c *shelfCtx) JSON(code int, v any) error {
	c.status = code
	c.body = v
	return nil
}

func TestShelfRoutesRequireCallerSession(t *testing.T) {
	session := &bookshelf.Session{Email: "reader@example.com", Username: "reader"}
	sessions := &tokenSessions{token: "reader-token", session: session}

	t.Run("anonymous request cannot list books", func(t *testing.T) {
		shelf := &readShelf{}
		controller := books.NewShelfController(shelf, sessions)

		ctx := &shelfCtx{cookies: map[string]string{}}
		require.NoError(t, controller.ListBooks(ctx))

		assert.Equal(t, http.StatusUnauthorized, ctx.status)
		assert.False(t, shelf.listed)

		payload, ok := ctx.body.(map[string]any)
		require.True(t, ok)
		errBody, ok := payload["error"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "NO_ACTIVE_SESSION", errBody["text_code"])
	})

	t.Run("anonymous request cannot read a book", func(t *testing.T) {
		shelf := &readShelf{records: []*books.Book{{Slug: "sample-book"}}}
		controller := books.NewShelfController(shelf, sessions)

		ctx := &shelfCtx{
			cookies: map[string]string{},
			params:  map[string]string{"slug": "sample-book"},
		}
		require.NoError(t, controller.ShowBook(ctx))

		assert.Equal(t, http.StatusUnauthorized, ctx.status)
	})

	t.Run("the caller's own cookie token opens the shelf", func(t *testing.T) {
		shelf := &readShelf{records: []*books.Book{{Slug: "sample-book", Title: "Sample Book"}}}
		controller := books.NewShelfController(shelf, sessions)

		ctx := &shelfCtx{
			cookies: map[string]string{bookshelf.DefaultSessionCookie: "reader-token"},
		}
		require.NoError(t, controller.ListBooks(ctx))

		assert.Equal(t, http.StatusOK, ctx.status)
		assert.True(t, shelf.listed)
	})

	t.Run("someone else's stale token stays anonymous", func(t *testing.T) {
		shelf := &readShelf{}
		controller := books.NewShelfController(shelf, sessions)

		ctx := &shelfCtx{
			cookies: map[string]string{bookshelf.DefaultSessionCookie: "forged-token"},
		}
		require.NoError(t, controller.ListBooks(ctx))

		assert.Equal(t, http.StatusUnauthorized, ctx.status)
		assert.False(t, shelf.listed)
	})
}
