package errors

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
)

type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

const (
	ErrCodeInvalidInput      = "VALIDATION_ERROR"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeConflict          = "CONFLICT"
	ErrCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

// Error is an application failure kind. Services return these as sentinel
// values; the HTTP boundary matches them with errors.As and writes the
// envelope. The message is machine-stable and never carries internals.
type Error struct {
	Code    string
	Status  int
	Message string
}

func (e *Error) Error() string { return e.Message }

var (
	ErrInvalidCredentials     = &Error{Code: "INVALID_CREDENTIALS", Status: http.StatusUnauthorized, Message: "Invalid email or password"}
	ErrAccountDeactivated     = &Error{Code: "ACCOUNT_DEACTIVATED", Status: http.StatusUnauthorized, Message: "Account has been deactivated"}
	ErrInvalidAccessToken     = &Error{Code: "INVALID_ACCESS_TOKEN", Status: http.StatusUnauthorized, Message: "Invalid or expired access token"}
	ErrInvalidRefreshToken    = &Error{Code: "INVALID_REFRESH_TOKEN", Status: http.StatusUnauthorized, Message: "Invalid or expired refresh token"}
	ErrRefreshTokenNotFound   = &Error{Code: "REFRESH_TOKEN_NOT_FOUND", Status: http.StatusUnauthorized, Message: "Refresh token not found or has been revoked"}
	ErrRefreshTokenExpired    = &Error{Code: "REFRESH_TOKEN_EXPIRED", Status: http.StatusUnauthorized, Message: "Refresh token has expired"}
	ErrUserNotFound           = &Error{Code: "USER_NOT_FOUND", Status: http.StatusUnauthorized, Message: "User not found or deactivated"}
	ErrTokenNotFound          = &Error{Code: "TOKEN_NOT_FOUND", Status: http.StatusNotFound, Message: "API token not found"}
	ErrInvalidInvitationToken = &Error{Code: "INVALID_INVITATION_TOKEN", Status: http.StatusUnauthorized, Message: "Invalid invitation token"}
	ErrInvitationTokenExpired = &Error{Code: "INVITATION_TOKEN_EXPIRED", Status: http.StatusUnauthorized, Message: "Invitation token has expired"}
	ErrEmployeeNotFound       = &Error{Code: ErrCodeNotFound, Status: http.StatusNotFound, Message: "Employee not found"}
	ErrConflict               = &Error{Code: ErrCodeConflict, Status: http.StatusConflict, Message: "Resource already exists"}
	ErrUnauthorized           = &Error{Code: ErrCodeUnauthorized, Status: http.StatusUnauthorized, Message: "Authentication required"}
	ErrTokenExpired           = &Error{Code: ErrCodeUnauthorized, Status: http.StatusUnauthorized, Message: "Token expired"}
	ErrForbidden              = &Error{Code: ErrCodeForbidden, Status: http.StatusForbidden, Message: "Access denied"}
	ErrInvalidExpiresIn       = &Error{Code: ErrCodeInvalidInput, Status: http.StatusUnprocessableEntity, Message: "Invalid expiresIn format"}
	ErrInternal               = &Error{Code: ErrCodeInternal, Status: http.StatusInternalServerError, Message: "Internal server error"}
)

func WriteError(w http.ResponseWriter, status int, code, message string, details interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    code,
		Details: details,
	})
}

// Write maps an error to its HTTP envelope. Anything that is not an *Error
// is treated as internal: logged with full detail, surfaced without it.
func Write(w http.ResponseWriter, err error) {
	var appErr *Error
	if errors.As(err, &appErr) {
		WriteError(w, appErr.Status, appErr.Code, appErr.Message, nil)
		return
	}
	log.Error().Err(err).Msg("unhandled internal error")
	WriteError(w, ErrInternal.Status, ErrInternal.Code, ErrInternal.Message, nil)
}
