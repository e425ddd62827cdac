package response

import (
	"errors"
	"net/http"
)

// HTTPError is an error that knows its response status
type HTTPError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.StatusCode)
}

func (e *HTTPError) Unwrap() error { return e.Err }

// NewHTTPError creates an HTTPError with a fixed message
func NewHTTPError(status int, message string) *HTTPError {
	return &HTTPError{StatusCode: status, Message: message}
}

// WithStatus wraps err so that it renders with status
func WithStatus(status int, err error) *HTTPError {
	return &HTTPError{StatusCode: status, Err: err}
}

// StatusOf returns the status carried by err, or 500
func StatusOf(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.StatusCode
	}
	return http.StatusInternalServerError
}

// RenderError writes err with the status it carries
func RenderError(w http.ResponseWriter, err error) {
	Error(w, StatusOf(err), err.Error())
}
