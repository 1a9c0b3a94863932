package authgate_test

import (
	"context"
	"database/sql"
	"sync"

	authgate "github.com/goliatone/go-authgate"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

// MockIdentityClient implements authgate.IdentityClient
type MockIdentityClient struct {
	mock.Mock
}

func (m *MockIdentityClient) SignUp(ctx context.Context, email, username, password string) (string, error) {
	args := m.Called(ctx, email, username, password)
	return args.String(0), args.Error(1)
}

func (m *MockIdentityClient) SignIn(ctx context.Context, identifier, password string) (authgate.Session, error) {
	args := m.Called(ctx, identifier, password)
	if session := args.Get(0); session != nil {
		return session.(authgate.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockIdentityClient) SignOut(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockIdentityClient) ResendConfirmation(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func (m *MockIdentityClient) CurrentSession(ctx context.Context) (authgate.Session, error) {
	args := m.Called(ctx)
	if session := args.Get(0); session != nil {
		return session.(authgate.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockIdentityClient) OnSessionChange(fn func(authgate.SessionEvent)) authgate.Unsubscribe {
	args := m.Called(fn)
	if unsub := args.Get(0); unsub != nil {
		return unsub.(authgate.Unsubscribe)
	}
	return func() {}
}

// FakeIdentityClient is a programmable in-memory identity source for
// aggregator tests that need to drive session transitions.
type FakeIdentityClient struct {
	mu        sync.Mutex
	session   authgate.Session
	listeners []func(authgate.SessionEvent)
	err       error
}

func (f *FakeIdentityClient) SignUp(ctx context.Context, email, username, password string) (string, error) {
	return "", nil
}

func (f *FakeIdentityClient) SignIn(ctx context.Context, identifier, password string) (authgate.Session, error) {
	f.mu.Lock()
	session := f.session
	f.mu.Unlock()
	return session, nil
}

func (f *FakeIdentityClient) SignOut(ctx context.Context) error { return nil }

func (f *FakeIdentityClient) ResendConfirmation(ctx context.Context, email string) error {
	return nil
}

func (f *FakeIdentityClient) CurrentSession(ctx context.Context) (authgate.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session, f.err
}

func (f *FakeIdentityClient) OnSessionChange(fn func(authgate.SessionEvent)) authgate.Unsubscribe {
	f.mu.Lock()
	f.listeners = append(f.listeners, fn)
	f.mu.Unlock()
	return func() {}
}

// Emit installs the session and notifies listeners like a real sign in.
func (f *FakeIdentityClient) Emit(eventType authgate.SessionEventType, session authgate.Session) {
	f.mu.Lock()
	f.session = session
	listeners := append([]func(authgate.SessionEvent){}, f.listeners...)
	f.mu.Unlock()

	for _, fn := range listeners {
		fn(authgate.SessionEvent{Type: eventType, Session: session})
	}
}

// MockProfileStore implements authgate.ProfileStore
type MockProfileStore struct {
	mock.Mock
}

func (m *MockProfileStore) GetProfile(ctx context.Context, userID string) (*authgate.Profile, error) {
	args := m.Called(ctx, userID)
	if profile := args.Get(0); profile != nil {
		return profile.(*authgate.Profile), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProfileStore) GetRole(ctx context.Context, userID string) (authgate.Role, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(authgate.Role), args.Error(1)
}

func (m *MockProfileStore) CompleteOnboarding(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockProfileStore) UpdateDisplay(ctx context.Context, userID, displayName, avatarURL string) error {
	args := m.Called(ctx, userID, displayName, avatarURL)
	return args.Error(0)
}

// MockUsers implements authgate.Users
type MockUsers struct {
	mock.Mock
}

func (m *MockUsers) GetByIdentifier(ctx context.Context, identifier string) (*authgate.User, error) {
	args := m.Called(ctx, identifier)
	if user := args.Get(0); user != nil {
		return user.(*authgate.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string) (*authgate.User, error) {
	args := m.Called(ctx, tx, identifier)
	if user := args.Get(0); user != nil {
		return user.(*authgate.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) Register(ctx context.Context, user *authgate.User) (*authgate.User, error) {
	args := m.Called(ctx, user)
	if u := args.Get(0); u != nil {
		return u.(*authgate.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) RegisterTx(ctx context.Context, tx bun.IDB, user *authgate.User) (*authgate.User, error) {
	args := m.Called(ctx, tx, user)
	if u := args.Get(0); u != nil {
		return u.(*authgate.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) ConfirmEmail(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUsers) ConfirmEmailTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	args := m.Called(ctx, tx, id)
	return args.Error(0)
}

// MockProfiles implements authgate.Profiles
type MockProfiles struct {
	mock.Mock
}

func (m *MockProfiles) GetByUserID(ctx context.Context, userID uuid.UUID) (*authgate.Profile, error) {
	args := m.Called(ctx, userID)
	if profile := args.Get(0); profile != nil {
		return profile.(*authgate.Profile), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProfiles) GetByUserIDTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*authgate.Profile, error) {
	args := m.Called(ctx, tx, userID)
	if profile := args.Get(0); profile != nil {
		return profile.(*authgate.Profile), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProfiles) CountTx(ctx context.Context, tx bun.IDB) (int, error) {
	args := m.Called(ctx, tx)
	return args.Int(0), args.Error(1)
}

func (m *MockProfiles) CreateTx(ctx context.Context, tx bun.IDB, profile *authgate.Profile) (*authgate.Profile, error) {
	args := m.Called(ctx, tx, profile)
	if p := args.Get(0); p != nil {
		return p.(*authgate.Profile), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProfiles) UpdateDisplay(ctx context.Context, userID uuid.UUID, displayName, avatarURL string) error {
	args := m.Called(ctx, userID, displayName, avatarURL)
	return args.Error(0)
}

func (m *MockProfiles) CompleteOnboarding(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockProfiles) CompleteOnboardingTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error {
	args := m.Called(ctx, tx, userID)
	return args.Error(0)
}

// MockRepositoryManager implements authgate.RepositoryManager. RunInTx
// invokes the callback with a zero bun.Tx so command handlers exercise
// their transactional path against the mocked repositories.
type MockRepositoryManager struct {
	mock.Mock
	users    *MockUsers
	profiles *MockProfiles
}

func NewMockRepositoryManager() *MockRepositoryManager {
	return &MockRepositoryManager{
		users:    &MockUsers{},
		profiles: &MockProfiles{},
	}
}

func (m *MockRepositoryManager) Validate() error {
	return nil
}

func (m *MockRepositoryManager) MustValidate() {}

func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, fn func(context.Context, bun.Tx) error) error {
	return fn(ctx, bun.Tx{})
}

func (m *MockRepositoryManager) Users() authgate.Users {
	return m.users
}

func (m *MockRepositoryManager) Profiles() authgate.Profiles {
	return m.profiles
}

// MockContext mocks router.Context for handler and middleware tests.
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

func (m *MockContext) Query(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
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
