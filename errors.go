package authgate

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-errors"
)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = stderrors.New("identity not found")

// ErrNoEmptyString rejects empty passwords before hashing
var ErrNoEmptyString = stderrors.New("password can not be an empty string")

// ErrMismatchedHashAndPassword is returned on credential mismatch so we
// never leak whether the account exists
var ErrMismatchedHashAndPassword = stderrors.New("credentials do not match")

// ErrInvalidCredentials is the canonical bad-login error. The message is
// the machine string recognized by the message mapper.
var ErrInvalidCredentials = errors.New("Invalid login credentials", errors.CategoryAuth).
	WithTextCode("INVALID_CREDENTIALS").
	WithCode(errors.CodeUnauthorized)

// ErrEmailNotConfirmed blocks sign in until the address is verified
var ErrEmailNotConfirmed = errors.New("Email not confirmed", errors.CategoryAuth).
	WithTextCode("EMAIL_NOT_CONFIRMED").
	WithCode(errors.CodeUnauthorized)

// ErrUserExists is returned when registering an email that is taken
var ErrUserExists = errors.New("User already registered", errors.CategoryConflict).
	WithTextCode("USER_EXISTS").
	WithCode(errors.CodeConflict)

// ErrWeakPassword is returned when the password policy rejects a sign up
var ErrWeakPassword = errors.New("Password does not meet the minimum requirements", errors.CategoryValidation).
	WithTextCode("WEAK_PASSWORD").
	WithCode(errors.CodeBadRequest)

// ErrSignupDisabled is returned while the signup feature gate is off
var ErrSignupDisabled = errors.New("Signup is disabled", errors.CategoryAuthz).
	WithTextCode("SIGNUP_DISABLED").
	WithCode(errors.CodeForbidden)

// ErrTooManyRequests is the generic throttle error
var ErrTooManyRequests = errors.New("Too many requests", errors.CategoryOperation).
	WithTextCode("RATE_LIMITED")

// ErrEmailRateLimited throttles confirmation resends
var ErrEmailRateLimited = errors.New("Email rate limit exceeded", errors.CategoryOperation).
	WithTextCode("EMAIL_RATE_LIMITED")

// ErrTokenExpired is returned for expired session tokens
var ErrTokenExpired = errors.New("Authentication token expired", errors.CategoryAuth).
	WithTextCode("TOKEN_EXPIRED").
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned for tokens we cannot decode
var ErrTokenMalformed = errors.New("Authentication token malformed", errors.CategoryAuth).
	WithTextCode("TOKEN_MALFORMED").
	WithCode(errors.CodeUnauthorized)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return stderrors.Is(err, ErrTokenExpired) ||
		strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// ErrorKind is the coarse taxonomy used to decide how a failure is shown
type ErrorKind int

const (
	// ErrorKindUnexpected is anything we could not categorize; shown as a
	// generic message, full detail logged
	ErrorKindUnexpected ErrorKind = iota
	// ErrorKindCredential is user correctable (bad login, taken email,
	// weak password)
	ErrorKindCredential
	// ErrorKindRateLimit asks the user to wait and retry
	ErrorKindRateLimit
	// ErrorKindNetwork is a connectivity failure; retrying is up to the user
	ErrorKindNetwork
)

// ClassifyError buckets an error into the user-facing taxonomy
func ClassifyError(err error) ErrorKind {
	if err == nil {
		return ErrorKindUnexpected
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) {
		switch richErr.TextCode {
		case "RATE_LIMITED", "EMAIL_RATE_LIMITED":
			return ErrorKindRateLimit
		}
		switch richErr.Category {
		case errors.CategoryAuth, errors.CategoryAuthz, errors.CategoryValidation, errors.CategoryConflict:
			return ErrorKindCredential
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "too many requests"):
		return ErrorKindRateLimit
	case strings.Contains(msg, "network"), strings.Contains(msg, "fetch"), strings.Contains(msg, "connection"):
		return ErrorKindNetwork
	case strings.Contains(msg, "password"), strings.Contains(msg, "credential"), strings.Contains(msg, "email"):
		return ErrorKindCredential
	}

	return ErrorKindUnexpected
}

// knownErrorMessages maps backend machine strings to user-facing text.
// Raw backend messages never reach the UI directly.
var knownErrorMessages = map[string]string{
	"Invalid login credentials":                        "Invalid email or password. Please check your credentials and try again.",
	"Invalid email or password":                        "Invalid email or password. Please check your credentials and try again.",
	"Email not confirmed":                              "Please check your email and click the confirmation link before signing in.",
	"User already registered":                          "An account with this email already exists. Please sign in instead.",
	"Password should be at least 6 characters":         "Password must be at least 6 characters long.",
	"Password does not meet the minimum requirements":  "Password requirements not met. Please choose a stronger password.",
	"Unable to validate email address: invalid format": "Please enter a valid email address.",
	"Email rate limit exceeded":                        "Too many emails sent. Please wait a few minutes before trying again.",
	"Signup is disabled":                               "New account registration is currently disabled.",
	"Too many requests":                                "Too many login attempts. Please wait a few minutes before trying again.",
	"Network request failed":                           "Network error. Please check your connection and try again.",
	"Failed to fetch":                                  "Connection error. Please check your internet connection and try again.",
}

// UserMessage maps a backend error to a human readable string. Known
// machine messages take priority, then keyword heuristics, then the raw
// message as a last resort.
func UserMessage(err error) string {
	if err == nil {
		return "An unknown error occurred"
	}

	raw := rootMessage(err)
	if msg, ok := knownErrorMessages[raw]; ok {
		return msg
	}

	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(lower, "rate limit"):
		return "Too many requests. Please wait a few minutes before trying again."
	case strings.Contains(lower, "network"), strings.Contains(lower, "fetch"):
		return "Connection error. Please check your internet connection and try again."
	case strings.Contains(lower, "password"):
		return "Password requirements not met. Please choose a stronger password."
	case strings.Contains(lower, "email"):
		return "Email address issue. Please check your email format and try again."
	}

	if raw == "" {
		return "An unexpected error occurred. Please try again."
	}
	return raw
}

// rootMessage unwraps rich errors to the backend's machine message
func rootMessage(err error) string {
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr.Message
	}
	return err.Error()
}

// ErrorPresenter maps errors for display while logging the raw detail
// with operation context.
type ErrorPresenter struct {
	Logger Logger
}

// NewErrorPresenter builds a presenter with a usable logger.
func NewErrorPresenter(logger Logger) *ErrorPresenter {
	if logger == nil {
		logger = defLogger{}
	}
	return &ErrorPresenter{Logger: logger}
}

// Present returns the user-facing message for err and logs the raw error
// with its operation name for diagnosis.
func (p *ErrorPresenter) Present(operation string, err error) string {
	if err == nil {
		return ""
	}

	message := UserMessage(err)

	p.Logger.Error(
		"auth operation failed",
		"operation", operation,
		"error", err.Error(),
		"name", errorName(err),
	)

	return message
}

func errorName(err error) string {
	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.TextCode != "" {
		return richErr.TextCode
	}
	return fmt.Sprintf("%T", err)
}
