package identity

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ErrorCode is the machine readable code reported in error.message by the
// identity endpoints.
type ErrorCode string

const (
	CodeInvalidLoginCredentials ErrorCode = "INVALID_LOGIN_CREDENTIALS"
	CodeOperationNotAllowed     ErrorCode = "OPERATION_NOT_ALLOWED"
	CodeTooManyAttempts         ErrorCode = "TOO_MANY_ATTEMPTS_TRY_LATER"
	CodeEmailNotFound           ErrorCode = "EMAIL_NOT_FOUND"
	CodeInvalidPassword         ErrorCode = "INVALID_PASSWORD"
	CodeUserDisabled            ErrorCode = "USER_DISABLED"
	CodeUserNotFound            ErrorCode = "USER_NOT_FOUND"
	CodeEmailExists             ErrorCode = "EMAIL_EXISTS"
	CodeWeakPassword            ErrorCode = "WEAK_PASSWORD"
	CodeTokenExpired            ErrorCode = "TOKEN_EXPIRED"
	CodeInvalidRefreshToken     ErrorCode = "INVALID_REFRESH_TOKEN"
)

// APIError is returned when the identity endpoint answered with a structured
// error body.
type APIError struct {
	Status  int       // HTTP status code
	Code    ErrorCode // Code with any " : detail" suffix removed
	Message string    // Raw error.message value
}

func (e *APIError) Error() string {
	return fmt.Sprintf("identity error %d: %s", e.Status, e.Message)
}

// ParseErrorCode extracts the code from messages such as
// "WEAK_PASSWORD : Password should be at least 6 characters".
func ParseErrorCode(message string) ErrorCode {
	code, _, _ := strings.Cut(message, " : ")
	return ErrorCode(strings.TrimSpace(code))
}

// parseAPIError returns nil when body is not the documented error envelope.
func parseAPIError(status int, body []byte) *APIError {
	var envelope errorBody
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil
	}
	if envelope.Error == nil || envelope.Error.Message == "" {
		return nil
	}
	return &APIError{
		Status:  status,
		Code:    ParseErrorCode(envelope.Error.Message),
		Message: envelope.Error.Message,
	}
}
