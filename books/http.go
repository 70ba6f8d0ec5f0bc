package books

import (
	"context"
	"net/http"

	"github.com/goliatone/go-router"

	bookshelf "github.com/goliatone/go-bookshelf"
)

// SessionChecker is the slice of the orchestrator the shelf routes need: the
// session belonging to the caller behind the request context, or nil.
type SessionChecker interface {
	Resolve(ctx context.Context) (*bookshelf.Session, error)
}

type ShelfController struct {
	Shelf      Books
	Auth       SessionChecker
	CookieName string
	Logger     bookshelf.Logger
}

type ShelfControllerOption func(*ShelfController) *ShelfController

func WithShelfLogger(logger bookshelf.Logger) ShelfControllerOption {
	return func(c *ShelfController) *ShelfController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithShelfCookie(name string) ShelfControllerOption {
	return func(c *ShelfController) *ShelfController {
		if name != "" {
			c.CookieName = name
		}
		return c
	}
}

func NewShelfController(shelf Books, auth SessionChecker, opts ...ShelfControllerOption) *ShelfController {
	c := &ShelfController{
		Shelf:      shelf,
		Auth:       auth,
		CookieName: bookshelf.DefaultSessionCookie,
		Logger:     bookshelf.DefaultLogger(),
	}

	for _, opt := range opts {
		c = opt(c)
	}

	return c
}

func RegisterShelfRoutes[T any](app router.Router[T], shelf Books, auth SessionChecker, opts ...ShelfControllerOption) *ShelfController {
	controller := NewShelfController(shelf, auth, opts...)

	app.Get("/books", controller.ListBooks).
		SetName("books.list")
	app.Get("/books/:slug", controller.ShowBook).
		SetName("books.show")

	return controller
}

func (c *ShelfController) ListBooks(ctx router.Context) error {
	reqCtx, ok := c.requireSession(ctx)
	if !ok {
		return c.unauthorized(ctx)
	}

	records, err := c.Shelf.ListByTitle(reqCtx)
	if err != nil {
		c.Logger.Error("list books failed", "error", err)
		return ctx.JSON(http.StatusInternalServerError, map[string]any{
			"error": map[string]any{
				"message": "could not load the shelf",
			},
		})
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"books": records,
	})
}

func (c *ShelfController) ShowBook(ctx router.Context) error {
	reqCtx, ok := c.requireSession(ctx)
	if !ok {
		return c.unauthorized(ctx)
	}

	record, err := c.Shelf.GetBySlug(reqCtx, ctx.Param("slug"))
	if err != nil {
		return ctx.JSON(http.StatusNotFound, map[string]any{
			"error": map[string]any{
				"message": "book not found",
			},
		})
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"book": record,
	})
}

// requireSession resolves the caller from the request's own cookie token.
// Only an approved, signed-in caller may browse the shelf.
func (c *ShelfController) requireSession(ctx router.Context) (context.Context, bool) {
	reqCtx := ctx.Context()
	if token := ctx.Cookies(c.CookieName); token != "" {
		reqCtx = bookshelf.WithSessionToken(reqCtx, token)
	}

	session, err := c.Auth.Resolve(reqCtx)
	if err != nil {
		c.Logger.Debug("shelf session resolve failed", "error", err)
		return reqCtx, false
	}

	return reqCtx, session != nil
}

func (c *ShelfController) unauthorized(ctx router.Context) error {
	return ctx.JSON(http.StatusUnauthorized, map[string]any{
		"error": map[string]any{
			"message":   "sign in to browse the shelf",
			"text_code": "NO_ACTIVE_SESSION",
		},
	})
}
