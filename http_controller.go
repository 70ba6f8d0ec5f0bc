package bookshelf

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// DefaultSessionCookie is the cookie name used for session tokens.
const DefaultSessionCookie = "shelf_session"

// AuthControllerRoutes holds every path the controller registers.
type AuthControllerRoutes struct {
	Register     string
	Login        string
	Logout       string
	Password     string
	Session      string
	AdminUsers   string
	AdminApprove string
	AdminReject  string
}

type AuthController struct {
	Debug          bool
	Logger         Logger
	Auth           *Orchestrator
	Approvals      *ApprovalWorkflow
	CookieName     string
	CookieDuration time.Duration
	Routes         *AuthControllerRoutes
	ErrorHandler   func(router.Context, error) error
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerAuth(auth *Orchestrator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auth = auth
		return c
	}
}

func WithControllerApprovals(approvals *ApprovalWorkflow) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Approvals = approvals
		return c
	}
}

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

func WithControllerCookie(name string, duration time.Duration) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if name != "" {
			c.CookieName = name
		}
		if duration > 0 {
			c.CookieDuration = duration
		}
		return c
	}
}

func WithControllerErrorHandler(handler func(router.Context, error) error) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if handler != nil {
			c.ErrorHandler = handler
		}
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:         defLogger{},
		ErrorHandler:   defaultErrHandler,
		CookieName:     DefaultSessionCookie,
		CookieDuration: 24 * time.Hour,
		Routes: &AuthControllerRoutes{
			Register:     "/auth/register",
			Login:        "/auth/login",
			Logout:       "/auth/logout",
			Password:     "/auth/password",
			Session:      "/auth/session",
			AdminUsers:   "/admin/users",
			AdminApprove: "/admin/users/:id/approve",
			AdminReject:  "/admin/users/:id/reject",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Auth == nil {
		panic("Missing Orchestrator in auth controller...")
	}

	if c.Approvals == nil {
		panic("Missing ApprovalWorkflow in auth controller...")
	}

	return c
}

func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) *AuthController {

	controller := NewAuthController(opts...)

	app.Post(controller.Routes.Register, controller.RegistrationCreate).
		SetName("auth.register")
	app.Post(controller.Routes.Login, controller.LoginPost).
		SetName("auth.login")
	app.Post(controller.Routes.Logout, controller.LogoutPost).
		SetName("auth.logout")
	app.Post(controller.Routes.Password, controller.PasswordChange).
		SetName("auth.password")
	app.Get(controller.Routes.Session, controller.SessionShow).
		SetName("auth.session")

	app.Get(controller.Routes.AdminUsers, controller.AdminListUsers).
		SetName("admin.users")
	app.Post(controller.Routes.AdminApprove, controller.AdminApprove).
		SetName("admin.approve")
	app.Post(controller.Routes.AdminReject, controller.AdminReject).
		SetName("admin.reject")

	return controller
}

// RegistrationCreatePayload is the sign-up body
type RegistrationCreatePayload struct {
	Email           string `form:"email" json:"email"`
	Username        string `form:"username" json:"username"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r RegistrationCreatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.By(ValidEmailRule)),
		validation.Field(&r.Username, validation.Required, validation.By(ValidUsernameRule)),
		validation.Field(&r.Password, validation.Required, validation.By(StrongPasswordRule)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AuthController) RegistrationCreate(ctx router.Context) error {
	payload := new(RegistrationCreatePayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("register parse payload: ", "error", err)
		return a.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryBadInput, "failed to parse request body").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("register validate payload: ", "error", err)
		return ctx.JSON(http.StatusBadRequest, map[string]any{
			"errors": FormatValidationErrorToMap(err),
		})
	}

	if a.Debug {
		fmt.Println("======= AUTH REGISTER ======")
		fmt.Println(print.MaybePrettyJSON(map[string]string{
			"email":    payload.Email,
			"username": payload.Username,
		}))
		fmt.Println("============================")
	}

	reqCtx := a.requestContext(ctx)
	if err := a.Auth.SignUp(reqCtx, payload.Email, payload.Username, payload.Password); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(http.StatusCreated, map[string]any{
		"status": UserStatusPending,
	})
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *AuthController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("login parse payload: ", "error", err)
		return a.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryBadInput, "failed to parse request body").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]any{
			"errors": FormatValidationErrorToMap(err),
		})
	}

	reqCtx := a.requestContext(ctx)
	session, err := a.Auth.SignIn(reqCtx, payload.Email, payload.Password)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	// The cookie is minted from this request's own sign-in result, so two
	// interleaved logins can never hand one caller the other's token.
	if session.Token != "" {
		a.setCookieToken(ctx, session.Token, a.CookieDuration)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"session": session,
	})
}

func (a *AuthController) LogoutPost(ctx router.Context) error {
	a.Auth.SignOut(a.requestContext(ctx))
	a.cookieDel(ctx, a.CookieName)
	return ctx.NoContent(http.StatusNoContent)
}

// PasswordChangePayload carries the replacement password
type PasswordChangePayload struct {
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r PasswordChangePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Password, validation.Required, validation.By(StrongPasswordRule)),
	)
}

func (a *AuthController) PasswordChange(ctx router.Context) error {
	payload := new(PasswordChangePayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("password change parse payload: ", "error", err)
		return a.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryBadInput, "failed to parse request body").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]any{
			"errors": FormatValidationErrorToMap(err),
		})
	}

	reqCtx := a.requestContext(ctx)
	if err := a.Auth.ChangePassword(reqCtx, payload.Password); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.NoContent(http.StatusNoContent)
}

func (a *AuthController) SessionShow(ctx router.Context) error {
	session, err := a.Auth.Resolve(a.requestContext(ctx))
	if err != nil {
		a.Logger.Debug("session resolve failed: ", "error", err)
		session = nil
	}

	state := AuthStateAnonymous
	if session != nil {
		state = AuthStateAuthenticated
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"state":   state,
		"session": session,
	})
}

func (a *AuthController) AdminListUsers(ctx router.Context) error {
	reqCtx := a.requestContext(ctx)
	if err := a.requireAdmin(reqCtx); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	users, stats, err := a.Approvals.ListUsers(reqCtx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"users": users,
		"stats": stats,
	})
}

func (a *AuthController) AdminApprove(ctx router.Context) error {
	reqCtx := a.requestContext(ctx)
	if err := a.requireAdmin(reqCtx); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	id, err := a.userID(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := a.Approvals.Approve(reqCtx, id); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"status": UserStatusApproved,
	})
}

func (a *AuthController) AdminReject(ctx router.Context) error {
	reqCtx := a.requestContext(ctx)
	if err := a.requireAdmin(reqCtx); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	id, err := a.userID(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := a.Approvals.Reject(reqCtx, id); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"status": UserStatusRejected,
	})
}

// requireAdmin authorizes the caller behind reqCtx, resolved from that
// request's own token. The gate never consults the process-local session, so
// one client's sign-in grants nothing to any other connection.
func (a *AuthController) requireAdmin(reqCtx context.Context) error {
	session, err := a.Auth.Resolve(reqCtx)
	if err != nil {
		return err
	}

	if session == nil {
		return ErrNoActiveSession
	}

	if !session.IsAdmin {
		return errors.New("administrator access required", errors.CategoryAuthz).
			WithTextCode("ADMIN_REQUIRED").
			WithCode(errors.CodeForbidden)
	}

	return nil
}

func (a *AuthController) userID(ctx router.Context) (uuid.UUID, error) {
	raw := ctx.Param("id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.Wrap(err, errors.CategoryBadInput, "invalid user id").
			WithCode(errors.CodeBadRequest).
			WithMetadata(map[string]any{"id": raw})
	}
	return id, nil
}

// requestContext attaches request metadata and the session cookie token to
// the handler context. The client address comes from X-Forwarded-For when a
// proxy sets it.
func (a *AuthController) requestContext(ctx router.Context) context.Context {
	origin := ctx.Header("X-Forwarded-For")
	if origin != "" {
		origin = strings.TrimSpace(strings.Split(origin, ",")[0])
	}
	if origin == "" {
		origin = ctx.Header("X-Real-Ip")
	}

	reqCtx := WithRequestMeta(ctx.Context(), RequestMeta{
		Origin:          origin,
		ClientSignature: ctx.Header("User-Agent"),
	})

	if token := ctx.Cookies(a.CookieName); token != "" {
		reqCtx = WithSessionToken(reqCtx, token)
	}

	return reqCtx
}

func (a *AuthController) setCookieToken(c router.Context, val string, duration time.Duration) {
	c.Cookie(&router.Cookie{
		Name:     a.CookieName,
		Value:    val,
		Expires:  time.Now().Add(duration),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *AuthController) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

// ValidEmailRule adapts ValidateEmail for ozzo struct validation.
func ValidEmailRule(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if !ValidateEmail(s) {
		return stderrors.New("must be a valid email address")
	}
	return nil
}

// ValidUsernameRule adapts ValidateUsername for ozzo struct validation. All
// violations are reported in one message.
func ValidUsernameRule(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if v := ValidateUsername(s); !v.Valid {
		return stderrors.New(strings.Join(v.Issues, "; "))
	}
	return nil
}

// StrongPasswordRule adapts CheckPasswordStrength for ozzo struct validation.
// All violations are reported in one message.
func StrongPasswordRule(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if v := CheckPasswordStrength(s); !v.Strong {
		return stderrors.New(strings.Join(v.Issues, "; "))
	}
	return nil
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return stderrors.New("values must match")
		}
		return nil
	}
}

// FormatValidationErrorToMap flattens ozzo validation errors into a
// field-to-message map.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	var verrs validation.Errors
	if stderrors.As(err, &verrs) {
		for field, ferr := range verrs {
			out[field] = ferr.Error()
		}
		return out
	}
	out["payload"] = err.Error()
	return out
}

func defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	status := richErr.Code
	if status == 0 {
		if richErr.Category == errors.CategoryRateLimit {
			status = http.StatusTooManyRequests
		} else {
			status = http.StatusInternalServerError
		}
	}

	return c.JSON(status, map[string]any{
		"error": map[string]any{
			"message":   richErr.Message,
			"text_code": richErr.TextCode,
			"category":  richErr.Category,
			"metadata":  richErr.Metadata,
		},
	})
}
