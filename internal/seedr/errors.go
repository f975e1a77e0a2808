package seedr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNoCredentials     = errors.New("seedr: username and password are required")
	ErrNotPartialContent = errors.New("seedr: range request not answered with partial content")
)

const (
	CodeUnauthorized  = "E_UNAUTHORIZED"
	CodeForbidden     = "E_FORBIDDEN"
	CodeNotFound      = "E_NOT_FOUND"
	CodeRateLimited   = "E_RATE_LIMITED"
	CodeInternalError = "E_INTERNAL_ERROR"
	CodeUnknownError  = "E_UNKNOWN_ERR"
)

// APIError is a non-success answer from the Seedr API. The engine treats it
// as transient: the node stays unprocessed and is retried next pass.
type APIError struct {
	Op      string
	Status  int
	Code    string
	Message string
}

func newAPIError(op string, status int, message string) *APIError {
	return &APIError{
		Op:      op,
		Status:  status,
		Code:    codeForStatus(status),
		Message: message,
	}
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("seedr: %s: %d %s", e.Op, e.Status, e.Code)
	}
	return fmt.Sprintf("seedr: %s: %d %s - %s", e.Op, e.Status, e.Code, e.Message)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

func codeForStatus(status int) string {
	switch {
	case status == http.StatusUnauthorized:
		return CodeUnauthorized
	case status == http.StatusForbidden:
		return CodeForbidden
	case status == http.StatusNotFound:
		return CodeNotFound
	case status == http.StatusTooManyRequests:
		return CodeRateLimited
	case status >= 500:
		return CodeInternalError
	default:
		return CodeUnknownError
	}
}
