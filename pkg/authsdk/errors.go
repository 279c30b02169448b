package authsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/patchnotes/pkg/httpx"
)

// APIError is an error response from the service. The server writes it and
// the SDK decodes it, so callers can match on StatusCode.
type APIError struct {
	StatusCode int
	Code       string // HTTP reason, e.g. "Unauthorized"
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Code, e.Message)
}

// WriteError writes e as an ErrorResponse.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.WriteError(w, e.StatusCode, e.Code, e.Message)
}

// NewAPIError builds an APIError whose Code is the status text.
func NewAPIError(statusCode int, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		Code:       http.StatusText(statusCode),
		Message:    message,
	}
}

var (
	ErrUnauthorized = NewAPIError(http.StatusUnauthorized, "unauthorized")
	ErrForbidden    = NewAPIError(http.StatusForbidden, "forbidden resource")
	ErrInvalidBody  = NewAPIError(http.StatusBadRequest, "invalid request body")
	ErrServerError  = NewAPIError(http.StatusInternalServerError, "internal server error")
)

// IsStatus reports whether err is an *APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// parseErrorResponse turns a non-2xx response into an *APIError.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Message != "" {
		code := errResp.Error
		if code == "" {
			code = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Code: code, Message: errResp.Message}
	}

	return NewAPIError(resp.StatusCode, fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)))
}
