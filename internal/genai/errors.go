package genai

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	sdk "google.golang.org/genai"
)

// ErrMissingCredential is returned before any request when no valid key is
// selected.
var ErrMissingCredential = errors.New("genai: missing API key")

// ErrNoVideo is returned when a finished operation carries no video.
var ErrNoVideo = errors.New("genai: video generation returned no result")

// entityNotFound is the message the service uses for revoked or unknown keys
// and projects.
const entityNotFound = "Requested entity was not found"

// APIError is a non-2xx response or a failed operation.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("genai: %d %s: %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("genai: %d: %s", e.StatusCode, e.Message)
}

// IsEntityNotFound reports whether err signals an expired or invalid
// credential. Only the service's entity-not-found message qualifies; other
// 404 responses, such as an unknown operation, do not.
func IsEntityNotFound(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return strings.Contains(apiErr.Message, entityNotFound)
}

// wrapError converts SDK API errors into *APIError and annotates the rest.
func wrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	var v sdk.APIError
	if errors.As(err, &v) {
		return errors.Wrap(&APIError{StatusCode: v.Code, Status: v.Status, Message: v.Message}, msg)
	}
	var p *sdk.APIError
	if errors.As(err, &p) && p != nil {
		return errors.Wrap(&APIError{StatusCode: p.Code, Status: p.Status, Message: p.Message}, msg)
	}
	return errors.Wrap(err, msg)
}

// operationError decodes the google.rpc.Status carried by a failed operation.
func operationError(status map[string]any) *APIError {
	if len(status) == 0 {
		return nil
	}
	e := &APIError{StatusCode: http.StatusInternalServerError}
	switch code := status["code"].(type) {
	case float64:
		e.StatusCode = int(code)
	case int:
		e.StatusCode = code
	case int32:
		e.StatusCode = int(code)
	case int64:
		e.StatusCode = int(code)
	}
	e.Status, _ = status["status"].(string)
	e.Message, _ = status["message"].(string)
	return e
}
