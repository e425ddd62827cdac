// Package response renders JSON bodies and the {"message": ...} error convention.
package response

import (
	"encoding/json"
	"net/http"
)

// ContentType is the media type of every body the API writes
const ContentType = "application/json; charset=utf-8"

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Message string `json:"message"`
}

// JSON writes v as the response body with the given status
func JSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(status)
	w.Write(body)
}

// Error writes {"message": message} with the given status
func Error(w http.ResponseWriter, status int, message string) {
	if message == "" {
		message = http.StatusText(status)
	}
	body, _ := json.Marshal(ErrorResponse{Message: message})

	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(status)
	w.Write(body)
}

// NoContent writes a 204 response
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// NotFound is a handler for unknown routes
func NotFound(w http.ResponseWriter, r *http.Request) {
	Error(w, http.StatusNotFound, "No route matches "+r.Method+" "+r.URL.Path)
}

// MethodNotAllowed is a handler for known routes hit with the wrong method
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	Error(w, http.StatusMethodNotAllowed, "Method "+r.Method+" is not allowed on "+r.URL.Path)
}
