package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies failures so transports can map them to a status
type ErrorKind string

const (
	KindValidation     ErrorKind = "VALIDATION_ERROR"
	KindAuthentication ErrorKind = "AUTHENTICATION_ERROR"
	KindNotFound       ErrorKind = "NOT_FOUND"
	KindExternalAPI    ErrorKind = "EXTERNAL_API_ERROR"
	KindStorage        ErrorKind = "STORAGE_ERROR"
)

// Error is the typed error raised by the auth core
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	// Status is only meaningful for KindExternalAPI, where it carries the
	// provider's HTTP status.
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same kind and code, so sentinels still match
// after Wrap attached a cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Code == e.Code
}

// Wrap returns a copy of e carrying cause
func (e *Error) Wrap(cause error) *Error {
	clone := *e
	clone.Err = cause
	return &clone
}

func newError(kind ErrorKind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// NewValidationError creates a validation error with a custom message
func NewValidationError(message string) *Error {
	return newError(KindValidation, string(KindValidation), message)
}

// NewAuthenticationError creates an authentication error with a custom message
func NewAuthenticationError(message string) *Error {
	return newError(KindAuthentication, string(KindAuthentication), message)
}

// NewNotFoundError creates a not-found error with a custom message
func NewNotFoundError(message string) *Error {
	return newError(KindNotFound, string(KindNotFound), message)
}

// NewExternalAPIError creates an error for a failed provider call.
// A non-positive status defaults to 500.
func NewExternalAPIError(status int, message string, cause error) *Error {
	if status <= 0 {
		status = http.StatusInternalServerError
	}
	return &Error{
		Kind:    KindExternalAPI,
		Code:    string(KindExternalAPI),
		Message: message,
		Status:  status,
		Err:     cause,
	}
}

// NewStorageError wraps a store failure during a required write or read
func NewStorageError(op string, cause error) *Error {
	return &Error{
		Kind:    KindStorage,
		Code:    string(KindStorage),
		Message: "storage failure during " + op,
		Err:     cause,
	}
}

// Authentication errors
var (
	ErrUserNotFound       = newError(KindNotFound, "USER_NOT_FOUND", "user not found")
	ErrInvalidCredentials = newError(KindAuthentication, "INVALID_CREDENTIALS", "invalid credentials")
	ErrUserAlreadyExists  = newError(KindValidation, "USER_EXISTS", "user already exists")
	ErrUserInactive       = newError(KindAuthentication, "ACCOUNT_INACTIVE", "user account is inactive or suspended")
	ErrWeakPassword       = newError(KindValidation, "WEAK_PASSWORD", "password must be at least 8 characters")
	ErrPasswordTooLong    = newError(KindValidation, "PASSWORD_TOO_LONG", "password must be at most 72 bytes")
	ErrInvalidEmail       = newError(KindValidation, "INVALID_EMAIL", "a valid email is required")
)

// Token errors
var (
	ErrTokenInvalid      = newError(KindAuthentication, "TOKEN_INVALID", "invalid token")
	ErrTokenExpired      = newError(KindAuthentication, "TOKEN_EXPIRED", "token has expired")
	ErrTokenMalformed    = newError(KindAuthentication, "TOKEN_MALFORMED", "malformed token")
	ErrResetTokenInvalid = newError(KindValidation, "RESET_TOKEN_INVALID", "password reset token is invalid or expired")
)

// Session errors
var (
	ErrSessionNotFound     = newError(KindNotFound, "SESSION_NOT_FOUND", "session not found")
	ErrSessionExpired      = newError(KindAuthentication, "SESSION_EXPIRED", "session has expired")
	ErrRefreshTokenInvalid = newError(KindAuthentication, "REFRESH_TOKEN_INVALID", "invalid or expired refresh token")
	ErrRefreshTokenReused  = newError(KindAuthentication, "REFRESH_TOKEN_REUSED", "refresh token has already been rotated")
	ErrSessionUserMismatch = newError(KindAuthentication, "SESSION_USER_MISMATCH", "session does not belong to token subject")
)

// OAuth errors
var (
	ErrInvalidOAuthState    = newError(KindValidation, "INVALID_OAUTH_STATE", "oauth state is invalid or expired")
	ErrRedirectURIMismatch  = newError(KindValidation, "REDIRECT_URI_MISMATCH", "redirect uri does not match authorization request")
	ErrMissingOAuthCode     = newError(KindValidation, "MISSING_OAUTH_CODE", "authorization code is required")
	ErrProviderNotConnected = newError(KindNotFound, "PROVIDER_NOT_CONNECTED", "provider account is not connected")
	ErrProviderProfileNoUID = newError(KindExternalAPI, "PROVIDER_PROFILE_INVALID", "provider profile has no uid")
	ErrOAuthDisabled        = newError(KindValidation, "OAUTH_DISABLED", "oauth provider is not configured")
	ErrProviderNoRefresh    = newError(KindValidation, "PROVIDER_REFRESH_UNAVAILABLE", "provider refresh token is missing")
)

// Authorization errors
var (
	ErrUnauthorized     = newError(KindAuthentication, "UNAUTHORIZED", "unauthorized access")
	ErrInsufficientRole = newError(KindAuthentication, "INSUFFICIENT_ROLE", "insufficient role permissions")
)

// KindOf returns the kind of a typed error, or "" for foreign errors
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// CodeOf returns the stable code of a typed error, or INTERNAL_ERROR
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "INTERNAL_ERROR"
}

// IsKind reports whether err is a typed error of the given kind
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps an error to the status a transport should answer with
func HTTPStatus(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindExternalAPI:
		if e.Status > 0 {
			return e.Status
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
