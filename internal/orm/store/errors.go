package store

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ubiquits/ubiquits/internal/orm/schema"
)

// fallbackMessage is used when neither a body message nor a status is available
const fallbackMessage = "Server error"

// RequestError is a non-success response, with the message extracted from it
type RequestError struct {
	Method     string
	URL        string
	Status     int
	StatusText string
	Message    string
}

// Error returns the extracted message
func (e *RequestError) Error() string { return e.Message }

// TransportError is a failed round trip or an undecodable response body.
// Its message is the underlying error's own.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

// Error returns the underlying error message
func (e *TransportError) Error() string {
	if e.Err == nil {
		return fallbackMessage
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error
func (e *TransportError) Unwrap() error { return e.Err }

// IsRequestError returns true if err is or wraps a RequestError
func IsRequestError(err error) bool {
	var target *RequestError
	return errors.As(err, &target)
}

// IsTransportError returns true if err is or wraps a TransportError
func IsTransportError(err error) bool {
	var target *TransportError
	return errors.As(err, &target)
}

// newRequestError extracts the message of a failed response: the body's
// "message" field, else "<status> - <statusText>", else a generic message.
func newRequestError(req *http.Request, resp *http.Response) *RequestError {
	e := &RequestError{
		Method:     req.Method,
		URL:        req.URL.String(),
		Status:     resp.StatusCode,
		StatusText: statusText(resp),
	}

	if msg := bodyMessage(resp.Body); msg != "" {
		e.Message = msg
	} else if e.Status != 0 {
		e.Message = fmt.Sprintf("%d - %s", e.Status, e.StatusText)
	} else {
		e.Message = fallbackMessage
	}
	return e
}

func statusText(resp *http.Response) string {
	// resp.Status reads "404 Not Found"
	if _, text, ok := strings.Cut(resp.Status, " "); ok && text != "" {
		return text
	}
	return http.StatusText(resp.StatusCode)
}

func bodyMessage(body io.Reader) string {
	if body == nil {
		return ""
	}
	data, err := io.ReadAll(io.LimitReader(body, 1<<20))
	if err != nil || len(bytes.TrimSpace(data)) == 0 {
		return ""
	}
	v, err := schema.ParseJSON(data)
	if err != nil {
		return ""
	}
	msg, _ := v.Get("message").AsString()
	return msg
}
