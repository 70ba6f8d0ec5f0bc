package bookshelf_test

import (
	"context"
	"sync"

	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	bookshelf "github.com/goliatone/go-bookshelf"
)

// MockGateway implements bookshelf.CredentialGateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Authenticate(ctx context.Context, email, password string) (*bookshelf.IdentityClaims, error) {
	args := m.Called(ctx, email, password)
	claims, _ := args.Get(0).(*bookshelf.IdentityClaims)
	return claims, args.Error(1)
}

func (m *MockGateway) CreateIdentity(ctx context.Context, email, password string, metadata map[string]any) (*bookshelf.IdentityClaims, error) {
	args := m.Called(ctx, email, password, metadata)
	claims, _ := args.Get(0).(*bookshelf.IdentityClaims)
	return claims, args.Error(1)
}

func (m *MockGateway) CurrentSession(ctx context.Context) (*bookshelf.IdentityClaims, error) {
	args := m.Called(ctx)
	claims, _ := args.Get(0).(*bookshelf.IdentityClaims)
	return claims, args.Error(1)
}

func (m *MockGateway) InvalidateSession(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockGateway) UpdateCredential(ctx context.Context, newPassword string) error {
	args := m.Called(ctx, newPassword)
	return args.Error(0)
}

func (m *MockGateway) ConfirmIdentity(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockUsers implements the subset of bookshelf.Users the orchestrator and
// approval workflow touch. The embedded interface covers the rest.
type MockUsers struct {
	mock.Mock
	bookshelf.Users
}

func (m *MockUsers) FindByID(ctx context.Context, id uuid.UUID) (*bookshelf.User, error) {
	args := m.Called(ctx, id)
	record, _ := args.Get(0).(*bookshelf.User)
	return record, args.Error(1)
}

func (m *MockUsers) Upsert(ctx context.Context, record *bookshelf.User, _ ...repository.UpdateCriteria) (*bookshelf.User, error) {
	args := m.Called(ctx, record)
	out, _ := args.Get(0).(*bookshelf.User)
	return out, args.Error(1)
}

func (m *MockUsers) UpdateStatus(ctx context.Context, id uuid.UUID, status bookshelf.UserStatus) (*bookshelf.User, error) {
	args := m.Called(ctx, id, status)
	record, _ := args.Get(0).(*bookshelf.User)
	return record, args.Error(1)
}

func (m *MockUsers) ListNewestFirst(ctx context.Context) ([]*bookshelf.User, error) {
	args := m.Called(ctx)
	records, _ := args.Get(0).([]*bookshelf.User)
	return records, args.Error(1)
}

// MockLimitStore implements bookshelf.LimitStore
type MockLimitStore struct {
	mock.Mock
}

func (m *MockLimitStore) CheckRegistrationLimit(ctx context.Context, origin, email string) (bookshelf.LimitDecision, error) {
	args := m.Called(ctx, origin, email)
	decision, _ := args.Get(0).(bookshelf.LimitDecision)
	return decision, args.Error(1)
}

func (m *MockLimitStore) RecordRegistrationAttempt(ctx context.Context, origin, email string, success bool) error {
	args := m.Called(ctx, origin, email, success)
	return args.Error(0)
}

// recordingSink captures security events for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []bookshelf.SecurityEvent
	err    error
}

func (s *recordingSink) Append(ctx context.Context, event bookshelf.SecurityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) Events() []bookshelf.SecurityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]bookshelf.SecurityEvent, len(s.events))
	copy(out, s.events)
	return out
}

func (s *recordingSink) Last() (bookshelf.SecurityEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		return bookshelf.SecurityEvent{}, false
	}
	return s.events[len(s.events)-1], true
}

// MockContext mocks router.Context for controller tests
type MockContext struct {
	mock.Mock
	NextCalled bool
}

func (m *MockContext) Next() error {
	m.NextCalled = true
	return nil
}

func (m *MockContext) Context() context.Context {
	args := m.Called()
	c, ok := args.Get(0).(context.Context)
	if !ok {
		panic("arg needs to be context.Context")
	}
	return c
}

func (m *MockContext) SetContext(ctx context.Context) {
	m.Called(ctx)
}

func (m *MockContext) Path() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Method() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Body() []byte {
	args := m.Called()
	return args.Get(0).([]byte)
}

func (m *MockContext) Status(code int) router.Context {
	m.Called(code)
	return m
}

func (m *MockContext) SendString(s string) error {
	args := m.Called(s)
	return args.Error(0)
}

func (m *MockContext) Send(b []byte) error {
	args := m.Called(b)
	return args.Error(0)
}

func (m *MockContext) JSON(code int, val any) error {
	args := m.Called(code, val)
	return args.Error(0)
}

func (m *MockContext) NoContent(code int) error {
	args := m.Called(code)
	return args.Error(0)
}

func (m *MockContext) Render(name string, bind any, layout ...string) error {
	if len(layout) > 0 {
		args := m.Called(name, bind, layout[0])
		return args.Error(0)
	}
	args := m.Called(name, bind)
	return args.Error(0)
}

func (m *MockContext) Redirect(path string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(path, status)
		return args.Error(0)
	}
	args := m.Called(path)
	return args.Error(0)
}

func (m *MockContext) RedirectToRoute(name string, data router.ViewContext, status ...int) error {
	if len(status) > 0 {
		args := m.Called(name, data, status[0])
		return args.Error(0)
	}
	args := m.Called(name, data)
	return args.Error(0)
}

func (m *MockContext) RedirectBack(fallback string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(fallback, status)
		return args.Error(0)
	}
	args := m.Called(fallback)
	return args.Error(0)
}

func (m *MockContext) SetHeader(key, val string) router.Context {
	m.Called(key, val)
	return m
}

func (m *MockContext) Header(key string) string {
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Get(key string, defaultValue any) any {
	args := m.Called(key, defaultValue)
	return args.Get(0)
}

func (m *MockContext) GetBool(key string, defaultValue bool) bool {
	args := m.Called(key, defaultValue)
	return args.Bool(0)
}

func (m *MockContext) GetInt(key string, def int) int {
	args := m.Called(key, def)
	return args.Int(0)
}

func (m *MockContext) Set(key string, val any) {
	m.Called(key, val)
}

func (m *MockContext) Bind(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindJSON(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindXML(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindQuery(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) CookieParser(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) Cookie(cookie *router.Cookie) {
	m.Called(cookie)
}

func (m *MockContext) Cookies(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Param(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) ParamsInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Query(key string, defaultValue string) string {
	args := m.Called(key, defaultValue)
	return args.String(0)
}

func (m *MockContext) QueryInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Queries() map[string]string {
	args := m.Called()
	return args.Get(0).(map[string]string)
}

func (m *MockContext) GetString(key string, defaultValue string) string {
	args := m.Called(key, defaultValue)
	return args.String(0)
}

func (m *MockContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		m.Called(key, value[0])
		return nil
	}
	args := m.Called(key)
	return args.Get(0)
}

func (m *MockContext) OriginalURL() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) OnNext(callback func() error) {
	m.Called(callback)
}

func (m *MockContext) Referer() string {
	args := m.Called()
	return args.String(0)
}

// MockConfig implements bookshelf.Config
type MockConfig struct {
	mock.Mock
}

func (m *MockConfig) GetSigningKey() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetTokenExpiration() int {
	args := m.Called()
	return args.Int(0)
}

func (m *MockConfig) GetIssuer() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetAudience() []string {
	args := m.Called()
	audience, _ := args.Get(0).([]string)
	return audience
}

func (m *MockConfig) GetAdminEmail() string {
	args := m.Called()
	return args.String(0)
}

func newMockConfig() *MockConfig {
	mockConfig := new(MockConfig)
	mockConfig.On("GetSigningKey").Return("test-signing-key")
	mockConfig.On("GetTokenExpiration").Return(24)
	mockConfig.On("GetIssuer").Return("test-issuer")
	mockConfig.On("GetAudience").Return([]string{"test:audience"})
	mockConfig.On("GetAdminEmail").Return("admin@example.com")
	return mockConfig
}
