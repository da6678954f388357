package httpx

import (
	"errors"
	"fmt"
	"net/http"
)

// Machine-readable error codes carried in the response envelope.
const (
	CodeAlreadyExists      = "ALREADY_EXISTS"
	CodeNotFound           = "NOT_FOUND"
	CodeBadRequest         = "BAD_REQUEST"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeAlreadyVerified    = "ALREADY_VERIFIED"
	CodePasswordNotMatched = "PASSWORD_NOT_MATCHED"
	CodeTokenBlacklisted   = "TOKEN_BLACKLISTED"
	CodeTokenRevoked       = "TOKEN_REVOKED"
	CodeTooManyRequests    = "TOO_MANY_REQUESTS"
	CodeMaxConcurrency     = "MAX_CONCURRENCY_REACHED"
	CodeInternal           = "INTERNAL_SERVER_ERROR"
)

// APIError is a business-rule failure carried as a value. Services return
// these (directly or wrapped) instead of throwing; handlers render them with
// WriteError. It implements the error interface so it composes with errors.Is
// and errors.As.
type APIError struct {
	// HTTPCode is the HTTP status for this error.
	HTTPCode int `json:"-"`

	// Code is the machine-readable error code (e.g. "TOKEN_REVOKED").
	Code string `json:"code"`

	// Message is a human-readable description. It never carries internals.
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// WriteError renders this error as the uniform response envelope.
func (e *APIError) WriteError(w http.ResponseWriter) {
	WriteJSON(w, e.HTTPCode, Response{
		Success:  false,
		Message:  e.Message,
		Code:     e.Code,
		HTTPCode: e.HTTPCode,
	})
}

// Constructors for the common failure classes.

func Conflict(message string) *APIError {
	return &APIError{HTTPCode: http.StatusConflict, Code: CodeAlreadyExists, Message: message}
}

func NotFound(message string) *APIError {
	return &APIError{HTTPCode: http.StatusNotFound, Code: CodeNotFound, Message: message}
}

func BadRequest(message, code string) *APIError {
	if code == "" {
		code = CodeBadRequest
	}
	return &APIError{HTTPCode: http.StatusBadRequest, Code: code, Message: message}
}

func Unauthorized(message, code string) *APIError {
	if code == "" {
		code = CodeUnauthorized
	}
	return &APIError{HTTPCode: http.StatusUnauthorized, Code: code, Message: message}
}

func Forbidden(message, code string) *APIError {
	return &APIError{HTTPCode: http.StatusForbidden, Code: code, Message: message}
}

// Predefined errors shared across middleware and handlers.
var (
	// ErrInvalidToken covers a missing, malformed or undecodable bearer token.
	ErrInvalidToken = Unauthorized("invalid token", CodeUnauthorized)

	// ErrTokenVerification covers signature or expiry failures.
	ErrTokenVerification = Unauthorized("token verification failed", CodeUnauthorized)

	// ErrTokenBlacklisted means this exact session was logged out.
	ErrTokenBlacklisted = Unauthorized("token is blacklisted", CodeTokenBlacklisted)

	// ErrTokenRevoked means the token predates the user's revocation threshold.
	ErrTokenRevoked = Unauthorized("token is revoked", CodeTokenRevoked)

	// ErrTooManyRequests is the rate guard rejection. The envelope keeps the
	// original 400 contract rather than 429.
	ErrTooManyRequests = BadRequest("too many requests", CodeTooManyRequests)

	// ErrMaxConcurrency is the concurrency guard rejection.
	ErrMaxConcurrency = Forbidden("max concurrency call reached", CodeMaxConcurrency)

	// ErrInternal is the catch-all. Details stay in the logs, keyed by req_id.
	ErrInternal = &APIError{
		HTTPCode: http.StatusInternalServerError,
		Code:     CodeInternal,
		Message:  "internal server error",
	}
)

// WriteError renders err. Unrecognised errors collapse to the generic
// internal-error envelope so nothing leaks to the caller.
func WriteError(w http.ResponseWriter, err error) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		apiErr.WriteError(w)
		return
	}
	ErrInternal.WriteError(w)
}
