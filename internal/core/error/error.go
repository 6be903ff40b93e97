package errx

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// TryAgainMessage is shown at the UI boundary when a turn fails as a whole.
	TryAgainMessage = "Something went wrong while answering. Please try again."
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage describes a missing Redis key.
	RedisNotFoundMessage = "redis key not found"
	// AuthErrorMessage describes a failed token acquisition.
	AuthErrorMessage = "could not acquire an access token"
)

// Error taxonomy. Match with errors.Is.
var (
	ErrAuthFailure       = errors.New("auth failure")
	ErrResourceFetch     = errors.New("resource fetch failed")
	ErrFormatting        = errors.New("formatting failed")
	ErrClassification    = errors.New("classification failed")
	ErrComposer          = errors.New("response composition failed")
	ErrIdentityNotFound  = errors.New("no user matches identity")
	ErrAmbiguousIdentity = errors.New("identity matches several users")
	ErrSessionNotFound   = errors.New("session not found")
)

// AppError wraps an underlying error with an HTTP status and safe message.
type AppError struct {
	Err     error
	Status  int
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the provided information.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Status:  status,
		Message: message,
	}
}

// AuthError is the failure signal of the credential exchange. Code and
// Description mirror the identity provider's error/error_description pair.
type AuthError struct {
	Code        string
	Description string
	Err         error
}

func (e *AuthError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("%s: %s", AuthErrorMessage, e.Code)
	}
	return fmt.Sprintf("%s: %s: %s", AuthErrorMessage, e.Code, e.Description)
}

func (e *AuthError) Unwrap() error { return e.Err }

// Is makes every AuthError match ErrAuthFailure.
func (e *AuthError) Is(target error) bool {
	return target == ErrAuthFailure
}

// Auth builds an AuthError wrapped in an AppError with status 401.
func Auth(code, description string, err error) *AppError {
	return New(&AuthError{Code: code, Description: description, Err: err}, http.StatusUnauthorized, AuthErrorMessage)
}

// Classification marks a failed intent classification call.
func Classification(err error) *AppError {
	return New(fmt.Errorf("%w: %w", ErrClassification, err), http.StatusBadGateway, TryAgainMessage)
}

// Composer marks a failed final answer generation.
func Composer(err error) *AppError {
	return New(fmt.Errorf("%w: %w", ErrComposer, err), http.StatusBadGateway, TryAgainMessage)
}

// NotFound marks an identity that resolved to nobody.
func NotFound(identity string) *AppError {
	return New(fmt.Errorf("%w: %q", ErrIdentityNotFound, identity), http.StatusNotFound, "no users found with that name")
}

// StatusOf returns the HTTP status carried by err, or 500.
func StatusOf(err error) int {
	var app *AppError
	if errors.As(err, &app) && app.Status != 0 {
		return app.Status
	}
	return http.StatusInternalServerError
}

// PublicMessage returns the safe message carried by err.
func PublicMessage(err error) string {
	var app *AppError
	if errors.As(err, &app) && app.Message != "" {
		return app.Message
	}
	return SystemErrorMessage
}
