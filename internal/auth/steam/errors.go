// Package steam implements sign-in against Steam's OpenID 2.0 provider through a
// loopback redirect, plus the Web API call that turns the resulting SteamID64
// into a player profile.
package steam

import (
	"errors"
	"fmt"
	"net/http"
)

// AuthenticationError represents a failure of one login attempt.
type AuthenticationError struct {
	// Type is the stable machine-readable identifier of the error.
	Type string `json:"type"`
	// Message is the short human-readable reason delivered to the primary surface.
	Message string `json:"message"`
	// Code is the HTTP status or process exit code associated with the error.
	Code int `json:"code"`
	// Cause is the underlying error that caused this authentication error.
	Cause error `json:"-"`
}

// Error returns a string representation of the authentication error.
func (e *AuthenticationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is and errors.As.
func (e *AuthenticationError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an AuthenticationError of the same Type, so
// errors created with NewAuthenticationError match their base sentinel.
func (e *AuthenticationError) Is(target error) bool {
	t, ok := target.(*AuthenticationError)
	if !ok || t == nil {
		return false
	}
	return t.Type == e.Type
}

// Common authentication error types.
var (
	// ErrPortInUse is returned when the loopback callback listener cannot bind.
	ErrPortInUse = &AuthenticationError{
		Type:    "port_in_use",
		Message: "Callback port unavailable",
		Code:    13, // Special exit code for port-in-use
	}

	// ErrServerStartFailed is returned when the listener stops serving unexpectedly.
	ErrServerStartFailed = &AuthenticationError{
		Type:    "server_start_failed",
		Message: "Callback server failed",
		Code:    http.StatusInternalServerError,
	}

	// ErrCallbackTimeout is returned when no callback arrives in time.
	ErrCallbackTimeout = &AuthenticationError{
		Type:    "callback_timeout",
		Message: "Login timed out",
		Code:    http.StatusRequestTimeout,
	}

	// ErrAssertionInvalid is returned when the redirect carries no usable claimed identity.
	ErrAssertionInvalid = &AuthenticationError{
		Type:    "assertion_invalid",
		Message: "Invalid claimed_id",
		Code:    http.StatusBadRequest,
	}

	// ErrAssertionUnverified is returned when the provider refuses to confirm the assertion.
	ErrAssertionUnverified = &AuthenticationError{
		Type:    "assertion_unverified",
		Message: "Assertion could not be verified",
		Code:    http.StatusUnauthorized,
	}

	// ErrNoAPIKey is returned when no Steam Web API key has been saved.
	ErrNoAPIKey = &AuthenticationError{
		Type:    "no_api_key",
		Message: "No API key",
		Code:    http.StatusPreconditionFailed,
	}

	// ErrNetworkFailure is returned when the Steam Web API cannot be reached.
	ErrNetworkFailure = &AuthenticationError{
		Type:    "network_failure",
		Message: "Steam API unreachable",
		Code:    http.StatusBadGateway,
	}

	// ErrProfileFetchFailed is returned when no profile could be obtained for the subject.
	ErrProfileFetchFailed = &AuthenticationError{
		Type:    "profile_fetch_failed",
		Message: "Profile fetch failed",
		Code:    http.StatusBadGateway,
	}

	// ErrProfileStoreFailed is returned when the fetched profile could not be persisted.
	ErrProfileStoreFailed = &AuthenticationError{
		Type:    "profile_store_failed",
		Message: "Profile could not be saved",
		Code:    http.StatusInternalServerError,
	}

	// ErrCallbackException is returned when handling the callback panicked.
	ErrCallbackException = &AuthenticationError{
		Type:    "callback_exception",
		Message: "Exception",
		Code:    http.StatusInternalServerError,
	}

	// ErrUserCancelled is returned when the login window was closed before completion.
	ErrUserCancelled = &AuthenticationError{
		Type:    "user_cancelled",
		Message: "Login cancelled",
		Code:    http.StatusOK,
	}

	// ErrLoginInProgress is returned when a second login is attempted while one is pending.
	ErrLoginInProgress = &AuthenticationError{
		Type:    "login_in_progress",
		Message: "Login already in progress",
		Code:    http.StatusConflict,
	}

	// ErrNoPrimarySurface is returned when there is nowhere to deliver the result.
	ErrNoPrimarySurface = &AuthenticationError{
		Type:    "no_primary_surface",
		Message: "Main window not available",
		Code:    http.StatusServiceUnavailable,
	}
)

// NewAuthenticationError creates a new authentication error with a cause based on a base error.
func NewAuthenticationError(baseErr *AuthenticationError, cause error) *AuthenticationError {
	return &AuthenticationError{
		Type:    baseErr.Type,
		Message: baseErr.Message,
		Code:    baseErr.Code,
		Cause:   cause,
	}
}

// IsAuthenticationError checks if an error is an authentication error.
func IsAuthenticationError(err error) bool {
	var authenticationError *AuthenticationError
	return errors.As(err, &authenticationError)
}

// Reason returns the short message carried to the primary surface for err.
// The outermost AuthenticationError wins; anything else maps to "Exception".
func Reason(err error) string {
	if err == nil {
		return ""
	}
	var authErr *AuthenticationError
	if errors.As(err, &authErr) {
		return authErr.Message
	}
	return ErrCallbackException.Message
}

// GetUserFriendlyMessage returns a user-friendly error message based on the error type.
func GetUserFriendlyMessage(err error) string {
	var authErr *AuthenticationError
	if !errors.As(err, &authErr) {
		return "An unexpected error occurred. Please try again."
	}
	switch authErr.Type {
	case ErrPortInUse.Type:
		return "The login callback port is already in use. Close any other login window or application using it and try again."
	case ErrCallbackTimeout.Type:
		return "Login timed out. Please try again."
	case ErrAssertionInvalid.Type, ErrAssertionUnverified.Type:
		return "Steam did not return a valid sign-in. Please try again."
	case ErrNoAPIKey.Type:
		return "No Steam Web API key is stored. Save one in settings before logging in."
	case ErrNetworkFailure.Type, ErrProfileFetchFailed.Type:
		return "Your Steam profile could not be fetched. Check your API key and connection, then try again."
	case ErrProfileStoreFailed.Type:
		return "Your Steam profile could not be saved locally."
	case ErrUserCancelled.Type:
		return "Login was cancelled."
	case ErrLoginInProgress.Type:
		return "A login is already in progress."
	default:
		return "Login failed. Please try again."
	}
}
