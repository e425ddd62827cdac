package router

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/ubiquits/ubiquits/internal/web/response"
)

// Param returns the unescaped path parameter name
func Param(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

func notFound(w http.ResponseWriter, r *http.Request) {
	response.NotFound(w, r)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	response.MethodNotAllowed(w, r)
}
