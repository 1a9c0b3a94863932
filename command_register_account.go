package authgate

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-featuregate/gate"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

type RegisterAccountMessage struct {
	Email      string `json:"email"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	OnResponse func(*RegisterAccountResponse)
}

func (e RegisterAccountMessage) Type() string { return "account.register" }

// RegisterAccountResponse reports the created identity and the role the
// bootstrap rule assigned.
type RegisterAccountResponse struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
}

// RegisterAccountHandler creates the user record and its profile in one
// transaction. The first profile ever written gets RoleAdmin, every later
// one RoleUser; the transaction plus the user_id uniqueness constraint
// serialize concurrent first registrations.
type RegisterAccountHandler struct {
	repo        RepositoryManager
	featureGate gate.FeatureGate
	logger      Logger
}

// NewRegisterAccountHandler will create a new RegisterAccountHandler
func NewRegisterAccountHandler(repo RepositoryManager) *RegisterAccountHandler {
	return &RegisterAccountHandler{
		repo:   repo,
		logger: defLogger{},
	}
}

func (h *RegisterAccountHandler) WithLogger(l Logger) *RegisterAccountHandler {
	if l != nil {
		h.logger = l
	}
	return h
}

// WithFeatureGate enables the signup kill switch
func (h *RegisterAccountHandler) WithFeatureGate(fg gate.FeatureGate) *RegisterAccountHandler {
	h.featureGate = fg
	return h
}

func (h *RegisterAccountHandler) Execute(ctx context.Context, event RegisterAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterAccountHandler) execute(ctx context.Context, event RegisterAccountMessage) error {
	if h.featureGate != nil {
		if err := requireSignupGate(ctx, h.featureGate); err != nil {
			return err
		}
	}

	if assessment := AssessPassword(event.Password); !assessment.Acceptable {
		return ErrWeakPassword.WithMetadata(map[string]any{
			"satisfied": assessment.SatisfiedCount,
			"score":     assessment.Score,
		})
	}

	user := &User{}
	var role Role

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if existing, err := h.repo.Users().GetByIdentifierTx(ctx, tx, event.Email); err != nil {
			if !goerrors.IsNotFound(err) {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check for existing account")
			}
		} else if existing != nil {
			return ErrUserExists
		}

		hash, err := HashPassword(event.Password)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		user.PasswordHash = hash
		user.Email = event.Email
		user.Username = event.Username
		if id, err := hashid.NewUUID(event.Email); err == nil {
			user.ID = id
		}

		if user, err = h.repo.Users().RegisterTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}

		count, err := h.repo.Profiles().CountTx(ctx, tx)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to count profiles for role bootstrap")
		}

		// privilege bootstrap: empty store makes this account the admin
		role = RoleUser
		if count == 0 {
			role = RoleAdmin
		}

		if _, err := h.repo.Profiles().CreateTx(ctx, tx, &Profile{
			UserID:              user.ID,
			Role:                role,
			OnboardingCompleted: false,
		}); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user profile")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "account registration transaction failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(&RegisterAccountResponse{
			UserID: user.ID.String(),
			Role:   role,
		})
	}

	return nil
}
