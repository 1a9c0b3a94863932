package authgate

import (
	"context"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-featuregate/gate"
	"github.com/google/uuid"
)

// resendWindow is the minimum gap between confirmation emails per address.
const resendWindow = time.Minute

// LocalIdentityClient implements IdentityClient against the local user
// store. It owns the in-process session and fans session transitions out
// to registered listeners.
type LocalIdentityClient struct {
	repo        RepositoryManager
	tokens      TokenService
	mailer      ConfirmationSender
	featureGate gate.FeatureGate
	logger      Logger

	mu       sync.RWMutex
	session  Session
	rawToken string

	listenerMu sync.Mutex
	listeners  map[int]func(SessionEvent)
	nextID     int

	resendMu   sync.Mutex
	lastResend map[string]time.Time
}

func NewLocalIdentityClient(repo RepositoryManager, tokens TokenService) *LocalIdentityClient {
	return &LocalIdentityClient{
		repo:       repo,
		tokens:     tokens,
		logger:     defLogger{},
		listeners:  map[int]func(SessionEvent){},
		lastResend: map[string]time.Time{},
	}
}

func (c *LocalIdentityClient) WithLogger(l Logger) *LocalIdentityClient {
	if l != nil {
		c.logger = l
	}
	return c
}

func (c *LocalIdentityClient) WithConfirmationSender(m ConfirmationSender) *LocalIdentityClient {
	c.mailer = m
	return c
}

func (c *LocalIdentityClient) WithFeatureGate(fg gate.FeatureGate) *LocalIdentityClient {
	c.featureGate = fg
	return c
}

// SignUp registers the account and, when a sender is configured, mails a
// confirmation token. It does not start a session: the account stays
// unauthenticated until the user signs in.
func (c *LocalIdentityClient) SignUp(ctx context.Context, email, username, password string) (string, error) {
	var userID string

	handler := NewRegisterAccountHandler(c.repo).WithLogger(c.logger)
	if c.featureGate != nil {
		handler = handler.WithFeatureGate(c.featureGate)
	}

	err := handler.Execute(ctx, RegisterAccountMessage{
		Email:    email,
		Username: username,
		Password: password,
		OnResponse: func(res *RegisterAccountResponse) {
			userID = res.UserID
		},
	})
	if err != nil {
		return "", err
	}

	if c.mailer != nil {
		if err := c.sendConfirmation(ctx, email); err != nil {
			c.logger.Warn("failed to send confirmation email", "error", err, "email", email)
		}
	}

	return userID, nil
}

// SignIn verifies credentials and installs a new session. Unconfirmed
// email does not block sign in; route gating keeps unverified accounts
// out of protected surfaces.
func (c *LocalIdentityClient) SignIn(ctx context.Context, identifier, password string) (Session, error) {
	user, err := c.repo.Users().GetByIdentifier(ctx, identifier)
	if err != nil {
		if goerrors.IsNotFound(err) {
			// burn a comparison so missing accounts cost the same as bad passwords
			_ = ComparePasswordAndHash(password, RandomPasswordHash())
			return nil, ErrInvalidCredentials
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load account")
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}

	role := RoleNone
	if profile, err := c.repo.Profiles().GetByUserID(ctx, user.ID); err == nil && profile != nil {
		role = profile.Role
	}

	token, err := c.tokens.Generate(user, role)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mint session token")
	}

	claims, err := c.tokens.Validate(token)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "minted token failed validation")
	}

	session, err := sessionFromAuthClaims(claims)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.session = session
	c.rawToken = token
	c.mu.Unlock()

	c.emit(SessionEvent{Type: SessionSignedIn, Session: session})

	return session, nil
}

// SignOut drops the current session. Safe to call when signed out.
func (c *LocalIdentityClient) SignOut(ctx context.Context) error {
	c.mu.Lock()
	had := c.session != nil
	c.session = nil
	c.rawToken = ""
	c.mu.Unlock()

	if had {
		c.emit(SessionEvent{Type: SessionSignedOut, Session: nil})
	}

	return nil
}

// ResendConfirmation mails a fresh confirmation token. Unknown addresses
// fail soft so the endpoint does not leak which emails are registered.
func (c *LocalIdentityClient) ResendConfirmation(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	c.resendMu.Lock()
	if last, ok := c.lastResend[email]; ok && time.Since(last) < resendWindow {
		c.resendMu.Unlock()
		return ErrEmailRateLimited
	}
	c.lastResend[email] = time.Now()
	c.resendMu.Unlock()

	if err := c.sendConfirmation(ctx, email); err != nil {
		if goerrors.IsNotFound(err) {
			c.logger.Debug("resend requested for unknown email", "email", email)
			return nil
		}
		return err
	}

	return nil
}

func (c *LocalIdentityClient) sendConfirmation(ctx context.Context, email string) error {
	if c.mailer == nil {
		return nil
	}

	user, err := c.repo.Users().GetByIdentifier(ctx, email)
	if err != nil {
		return err
	}

	token, err := c.tokens.GenerateConfirmation(user)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mint confirmation token")
	}

	return c.mailer.SendConfirmation(ctx, user.Email, token)
}

// ConfirmEmail validates a confirmation token and marks the account
// confirmed. Returns the confirmed user's ID.
func (c *LocalIdentityClient) ConfirmEmail(ctx context.Context, token string) (string, error) {
	claims, err := c.tokens.Validate(token)
	if err != nil {
		return "", err
	}

	if claims.Purpose() != PurposeEmailConfirm {
		return "", ErrTokenMalformed.WithMetadata(map[string]any{
			"purpose": claims.Purpose(),
		})
	}

	uid, err := uuid.Parse(claims.UserID())
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryBadInput, "confirmation token carries invalid user id")
	}

	if err := c.repo.Users().ConfirmEmail(ctx, uid); err != nil {
		if goerrors.IsNotFound(err) {
			return "", ErrIdentityNotFound
		}
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to confirm email")
	}

	c.refreshIfCurrent(uid.String())

	return uid.String(), nil
}

func (c *LocalIdentityClient) refreshIfCurrent(userID string) {
	c.mu.RLock()
	current := c.session
	c.mu.RUnlock()

	if current == nil || current.GetUserID() != userID {
		return
	}

	updated := &SessionObject{
		UserID:         current.GetUserID(),
		Email:          current.GetEmail(),
		Issuer:         current.GetIssuer(),
		IssuedAt:       current.GetIssuedAt(),
		ExpirationDate: current.GetExpiration(),
		EmailConfirmed: true,
		Data:           current.GetData(),
	}

	c.mu.Lock()
	c.session = updated
	c.mu.Unlock()

	c.emit(SessionEvent{Type: SessionRefreshed, Session: updated})
}

// CurrentSession returns the active session, or nil when signed out or
// expired. Expired sessions are dropped on read.
func (c *LocalIdentityClient) CurrentSession(ctx context.Context) (Session, error) {
	c.mu.RLock()
	session := c.session
	c.mu.RUnlock()

	if session == nil {
		return nil, nil
	}

	if !SessionValid(session) {
		c.mu.Lock()
		c.session = nil
		c.rawToken = ""
		c.mu.Unlock()
		c.emit(SessionEvent{Type: SessionSignedOut, Session: nil})
		return nil, nil
	}

	return session, nil
}

// OnSessionChange registers a listener for session transitions. The
// returned Unsubscribe is idempotent.
func (c *LocalIdentityClient) OnSessionChange(fn func(SessionEvent)) Unsubscribe {
	c.listenerMu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.listenerMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.listenerMu.Lock()
			delete(c.listeners, id)
			c.listenerMu.Unlock()
		})
	}
}

// SessionFromToken rebuilds a session from a raw token, e.g. one carried
// in a cookie across process restarts.
func (c *LocalIdentityClient) SessionFromToken(token string) (Session, error) {
	claims, err := c.tokens.Validate(token)
	if err != nil {
		return nil, err
	}

	if claims.Purpose() != PurposeSession {
		return nil, ErrTokenMalformed
	}

	return sessionFromAuthClaims(claims)
}

func (c *LocalIdentityClient) emit(event SessionEvent) {
	c.listenerMu.Lock()
	fns := make([]func(SessionEvent), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.listenerMu.Unlock()

	for _, fn := range fns {
		fn(event)
	}
}

var _ IdentityClient = (*LocalIdentityClient)(nil)
var _ EmailConfirmer = (*LocalIdentityClient)(nil)
