package authgate

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
)

// RegisterAuthGateRoutes mounts the auth surface on the given router.
// Each protected route carries its access requirement; the guard turns
// the evaluator's decision into a pass or redirect before the handler
// runs.
//
// Unmatched paths are the host's concern: the portable router surface
// has no catch-all registration, so mount NotFound as the application's
// 404 handler (for example via fiber's final app.Use).
func RegisterAuthGateRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {
	controller := NewAuthController(opts...)
	guard := controller.Guard
	paths := controller.Evaluator.Paths()

	open := RouteRequirement{}
	authed := RouteRequirement{RequireAuth: true}
	verified := RouteRequirement{RequireAuth: true, RequireEmailConfirmed: true}
	onboarded := RouteRequirement{RequireAuth: true, RequireEmailConfirmed: true, RequireOnboarding: true}
	adminOnly := RouteRequirement{
		RequireAuth:           true,
		RequireEmailConfirmed: true,
		RequireOnboarding:     true,
		AllowedRoles:          []Role{RoleAdmin},
	}

	app.Get(paths.SignIn, guard.Protect(open)(controller.LoginShow)).
		SetName("sign-in.get")
	app.Post(paths.SignIn, guard.Protect(open)(controller.LoginPost)).
		SetName("sign-in.post")

	app.Get(paths.SignUp, guard.Protect(open)(controller.RegistrationShow)).
		SetName("register.get")
	app.Post(paths.SignUp, guard.Protect(open)(controller.RegistrationCreate)).
		SetName("register.post")

	app.Get(controller.Routes.Logout, controller.LogOut).
		SetName("sign-out.get")

	app.Get(paths.VerifyEmail, guard.Protect(authed)(controller.VerifyEmailShow)).
		SetName("verify-email.get")
	app.Post(controller.Routes.ResendConfirmation, guard.Protect(authed)(controller.ResendConfirmationPost)).
		SetName("verify-email-resend.post")
	app.Get(controller.Routes.Callback, controller.CallbackShow).
		SetName("auth-callback.get")

	app.Get(paths.Onboarding, guard.Protect(verified)(controller.OnboardingShow)).
		SetName("onboarding.get")
	app.Post(controller.Routes.OnboardingProfile, guard.Protect(verified)(controller.OnboardingProfilePost)).
		SetName("onboarding-profile.post")
	app.Post(controller.Routes.OnboardingComplete, guard.Protect(verified)(controller.OnboardingCompletePost)).
		SetName("onboarding-complete.post")

	app.Get(paths.Dashboard, guard.Protect(onboarded)(controller.DashboardShow)).
		SetName("dashboard.get")
	app.Get(controller.Routes.Admin, guard.Protect(adminOnly)(controller.AdminShow)).
		SetName("admin.get")

	app.Get(paths.Unauthorized, controller.UnauthorizedShow).
		SetName("unauthorized.get")

	app.Get(controller.Routes.Home, controller.HomeRedirect).
		SetName("home.get")
}

type AuthControllerRoutes struct {
	Home               string
	Logout             string
	ResendConfirmation string
	Callback           string
	OnboardingProfile  string
	OnboardingComplete string
	Admin              string
}

type AuthControllerViews struct {
	Login        string
	Register     string
	VerifyEmail  string
	Dashboard    string
	Onboarding   string
	Unauthorized string
	Admin        string
	NotFound     string
}

type AuthController struct {
	Debug        bool
	Logger       Logger
	Identity     IdentityClient
	Confirmer    EmailConfirmer
	State        *Aggregator
	Flow         *OnboardingFlow
	Guard        *RouteGuard
	Evaluator    *Evaluator
	Presenter    *ErrorPresenter
	Routes       *AuthControllerRoutes
	Views        *AuthControllerViews
	ErrorHandler router.ErrorHandler
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerLogger(l Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if l != nil {
			c.Logger = l
		}
		return c
	}
}

func WithIdentity(client IdentityClient) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Identity = client
		if confirmer, ok := client.(EmailConfirmer); ok && c.Confirmer == nil {
			c.Confirmer = confirmer
		}
		return c
	}
}

func WithAuthState(state *Aggregator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.State = state
		return c
	}
}

func WithOnboarding(flow *OnboardingFlow) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Flow = flow
		return c
	}
}

func WithEvaluator(evaluator *Evaluator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Evaluator = evaluator
		return c
	}
}

func WithDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:       defLogger{},
		ErrorHandler: defaultErrHandler,
		Routes: &AuthControllerRoutes{
			Home:               "/",
			Logout:             "/auth/logout",
			ResendConfirmation: "/auth/verify-email/resend",
			Callback:           "/auth/callback",
			OnboardingProfile:  "/onboarding/profile",
			OnboardingComplete: "/onboarding/complete",
			Admin:              "/admin",
		},
		Views: &AuthControllerViews{
			Login:        "auth/login",
			Register:     "auth/register",
			VerifyEmail:  "auth/verify_email",
			Dashboard:    "dashboard",
			Onboarding:   "onboarding",
			Unauthorized: "errors/403",
			Admin:        "admin",
			NotFound:     "errors/404",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Identity == nil {
		panic("Missing IdentityClient in auth controller...")
	}

	if c.State == nil {
		panic("Missing auth state Aggregator in auth controller...")
	}

	if c.Evaluator == nil {
		c.Evaluator = NewEvaluator(DefaultRoutePaths())
	}

	if c.Guard == nil {
		c.Guard = NewRouteGuard(c.Evaluator, c.State).WithLogger(c.Logger)
	}

	if c.Presenter == nil {
		c.Presenter = NewErrorPresenter(c.Logger)
	}

	return c
}

func (a *AuthController) LoginShow(ctx router.Context) error {
	return ctx.Render(a.Views.Login, router.ViewContext{
		"errors":    nil,
		"record":    nil,
		"return_to": ctx.Query(ReturnToParam),
	})
}

// LoginRequest payload
type LoginRequest struct {
	Identifier string `form:"identifier" json:"identifier"`
	Password   string `form:"password" json:"password"`
	ReturnTo   string `form:"return_to" json:"return_to"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Identifier,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *AuthController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.Render(a.Views.Login, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	if a.Debug {
		fmt.Println("======= AUTH LOGIN ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("=========================")
	}

	if _, err := a.Identity.SignIn(ctx.Context(), payload.Identifier, payload.Password); err != nil {
		message := a.Presenter.Present("sign in", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message": message,
		}).Status(fiber.StatusUnauthorized).Render(a.Views.Login, router.ViewContext{
			"errors":    map[string]string{"authentication": message},
			"record":    payload,
			"return_to": payload.ReturnTo,
		})
	}

	// the form field holds the already-decoded path, so only validation
	// applies here; percent-decoding again would corrupt + and % bytes
	redirect, ok := SanitizeReturnPath(payload.ReturnTo)
	if !ok {
		redirect = a.Evaluator.Paths().Dashboard
	}

	return ctx.Redirect(redirect, router.StatusSeeOther)
}

func (a *AuthController) LogOut(ctx router.Context) error {
	if err := a.Identity.SignOut(ctx.Context()); err != nil {
		a.Logger.Error("sign out error", "error", err)
	}
	return ctx.Redirect(a.Routes.Home, router.StatusSeeOther)
}

func (a *AuthController) RegistrationShow(ctx router.Context) error {
	return ctx.Render(a.Views.Register, router.ViewContext{
		"errors":       map[string]string{},
		"record":       RegistrationCreatePayload{},
		"requirements": AssessPassword("").Requirements,
	})
}

// RegistrationCreatePayload is the form paylaod
type RegistrationCreatePayload struct {
	Email           string `form:"email" json:"email"`
	Username        string `form:"username" json:"username"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r RegistrationCreatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Username, validation.Length(0, 100)),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
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
		a.Logger.Error("register account parse payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.Register, router.ViewContext{
			"errors": map[string]string{"form": "Failed to parse form"},
			"record": payload,
		})
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("register account validate payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(a.Views.Register, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	if assessment := AssessPassword(payload.Password); !assessment.Acceptable {
		return flash.WithError(ctx, router.ViewContext{
			"error_message": UserMessage(ErrWeakPassword),
		}).Render(a.Views.Register, router.ViewContext{
			"record":       payload,
			"requirements": assessment.Requirements,
			"strength":     assessment.Strength,
		})
	}

	if _, err := a.Identity.SignUp(ctx.Context(), payload.Email, payload.Username, payload.Password); err != nil {
		message := a.Presenter.Present("sign up", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message": message,
		}).Render(a.Views.Register, router.ViewContext{
			"record": payload,
			"errors": map[string]string{"registration": message},
		})
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Check your email to confirm your account",
	}).Redirect(a.Evaluator.Paths().SignIn, fiber.StatusSeeOther)
}

func (a *AuthController) VerifyEmailShow(ctx router.Context) error {
	snap := a.State.Snapshot()

	if snap.IsEmailConfirmed {
		return ctx.Redirect(a.Evaluator.Paths().Dashboard, router.StatusSeeOther)
	}

	return ctx.Render(a.Views.VerifyEmail, router.ViewContext{
		"user_id": snap.UserID,
	})
}

// ResendConfirmationPayload carries the resend form
type ResendConfirmationPayload struct {
	Email string `form:"email" json:"email"`
}

func (r ResendConfirmationPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

func (a *AuthController) ResendConfirmationPost(ctx router.Context) error {
	payload := new(ResendConfirmationPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message": err.Error(),
		}).Render(a.Views.VerifyEmail, router.ViewContext{
			"validation": FormatValidationErrorToMap(err),
		})
	}

	if err := a.Identity.ResendConfirmation(ctx.Context(), payload.Email); err != nil {
		message := a.Presenter.Present("resend confirmation", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message": message,
		}).Render(a.Views.VerifyEmail, router.ViewContext{
			"errors": map[string]string{"resend": message},
		})
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Confirmation email sent",
	}).Redirect(a.Evaluator.Paths().VerifyEmail, fiber.StatusSeeOther)
}

// CallbackShow consumes the emailed confirmation token.
func (a *AuthController) CallbackShow(ctx router.Context) error {
	token := ctx.Query("token")

	if token == "" || a.Confirmer == nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message": "Missing confirmation token",
		}).Redirect(a.Evaluator.Paths().SignIn, fiber.StatusSeeOther)
	}

	if _, err := a.Confirmer.ConfirmEmail(ctx.Context(), token); err != nil {
		message := a.Presenter.Present("email confirmation", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message": message,
		}).Redirect(a.Evaluator.Paths().VerifyEmail, fiber.StatusSeeOther)
	}

	a.State.Refresh(ctx.Context())

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Email confirmed",
	}).Redirect(a.Evaluator.Paths().Dashboard, fiber.StatusSeeOther)
}

func (a *AuthController) DashboardShow(ctx router.Context) error {
	snap := a.State.Snapshot()
	return ctx.Render(a.Views.Dashboard, router.ViewContext{
		"user_id":  snap.UserID,
		"role":     snap.Role,
		"is_admin": snap.HasRole(RoleAdmin),
	})
}

func (a *AuthController) OnboardingShow(ctx router.Context) error {
	if a.State.Snapshot().IsOnboardingCompleted {
		return ctx.Redirect(a.Evaluator.Paths().Dashboard, router.StatusSeeOther)
	}

	if a.Flow == nil {
		return a.ErrorHandler(ctx, fmt.Errorf("onboarding flow not configured"))
	}

	step := a.Flow.GoTo(OnboardingStep(ctx.Query("step")))

	return ctx.Render(a.Views.Onboarding, router.ViewContext{
		"step":     step,
		"steps":    a.Flow.Steps(),
		"can_skip": a.Flow.CanSkip(step),
	})
}

type OnboardingProfilePayload struct {
	DisplayName string `form:"display_name" json:"display_name"`
	AvatarURL   string `form:"avatar_url" json:"avatar_url"`
}

func (p OnboardingProfilePayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.DisplayName,
			validation.Required.Error("Display name is required"),
			validation.Length(1, 120),
		),
		validation.Field(&p.AvatarURL,
			is.URL.Error("Avatar must be a valid URL"),
		),
	)
}

func (a *AuthController) OnboardingProfilePost(ctx router.Context) error {
	if a.Flow == nil {
		return a.ErrorHandler(ctx, fmt.Errorf("onboarding flow not configured"))
	}

	payload := new(OnboardingProfilePayload)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.Render(a.Views.Onboarding, router.ViewContext{
			"step":       StepProfile,
			"steps":      a.Flow.Steps(),
			"validation": FormatValidationErrorToMap(err),
		})
	}

	snap := a.State.Snapshot()
	if err := a.Flow.SaveProfile(ctx.Context(), snap.UserID, payload.DisplayName, payload.AvatarURL); err != nil {
		message := a.Presenter.Present("save profile", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message": message,
		}).Render(a.Views.Onboarding, router.ViewContext{
			"step":  StepProfile,
			"steps": a.Flow.Steps(),
		})
	}

	next := a.Flow.Next(StepProfile)
	return ctx.Redirect(a.Evaluator.Paths().Onboarding+"?step="+string(next), router.StatusSeeOther)
}

func (a *AuthController) OnboardingCompletePost(ctx router.Context) error {
	snap := a.State.Snapshot()

	if a.Flow == nil {
		return a.ErrorHandler(ctx, fmt.Errorf("onboarding flow not configured"))
	}

	if err := a.Flow.Complete(ctx.Context(), snap.UserID); err != nil {
		message := a.Presenter.Present("complete onboarding", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message": message,
		}).Render(a.Views.Onboarding, router.ViewContext{
			"step":  StepComplete,
			"steps": a.Flow.Steps(),
		})
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Welcome aboard",
	}).Redirect(a.Evaluator.Paths().Dashboard, fiber.StatusSeeOther)
}

func (a *AuthController) UnauthorizedShow(ctx router.Context) error {
	return ctx.Status(fiber.StatusForbidden).Render(a.Views.Unauthorized, router.ViewContext{
		"role": a.State.Snapshot().Role,
	})
}

func (a *AuthController) AdminShow(ctx router.Context) error {
	return ctx.Render(a.Views.Admin, router.ViewContext{
		"user_id": a.State.Snapshot().UserID,
	})
}

// HomeRedirect sends everyone to the dashboard; the guard on that route
// turns anonymous visitors into a sign-in detour with returnTo set.
func (a *AuthController) HomeRedirect(ctx router.Context) error {
	return ctx.Redirect(a.Evaluator.Paths().Dashboard, router.StatusSeeOther)
}

func (a *AuthController) NotFound(ctx router.Context) error {
	return ctx.Status(fiber.StatusNotFound).Render(a.Views.NotFound, router.ViewContext{
		"path": ctx.OriginalURL(),
	})
}

func defaultErrHandler(c router.Context, err error) error {
	return c.Render("errors/500", router.ViewContext{
		"message": err.Error(),
	})
}
