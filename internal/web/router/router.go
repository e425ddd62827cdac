// Package router wraps chi and records every route with its handler stack
// for introspection.
package router

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/ubiquits/ubiquits/internal/web/middleware"
)

// RouteInfo describes a registered route
type RouteInfo struct {
	Method  string
	Pattern string
	// Stack lists the middleware names followed by the handler name
	Stack []string
}

// Router manages HTTP routing using chi
type Router struct {
	mux    chi.Router
	prefix string
	chain  *middleware.Chain

	mu     sync.RWMutex
	routes []RouteInfo
}

// New creates a router whose patterns are mounted under prefix
func New(prefix string) *Router {
	mux := chi.NewRouter()
	mux.NotFound(notFound)
	mux.MethodNotAllowed(methodNotAllowed)
	return &Router{
		mux:    mux,
		prefix: strings.TrimRight(prefix, "/"),
		chain:  middleware.NewChain(),
		routes: make([]RouteInfo, 0),
	}
}

// ServeHTTP implements http.Handler
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Prefix returns the mount prefix
func (r *Router) Prefix() string {
	return r.prefix
}

// Use appends a named middleware. All middleware must be added before the
// first route.
func (r *Router) Use(name string, m middleware.Middleware) {
	r.chain.Use(name, m)
	r.mux.Use(m)
}

// Get registers a GET route
func (r *Router) Get(pattern, name string, h http.HandlerFunc) {
	r.Handle(http.MethodGet, pattern, name, h)
}

// Head registers a HEAD route
func (r *Router) Head(pattern, name string, h http.HandlerFunc) {
	r.Handle(http.MethodHead, pattern, name, h)
}

// Post registers a POST route
func (r *Router) Post(pattern, name string, h http.HandlerFunc) {
	r.Handle(http.MethodPost, pattern, name, h)
}

// Put registers a PUT route
func (r *Router) Put(pattern, name string, h http.HandlerFunc) {
	r.Handle(http.MethodPut, pattern, name, h)
}

// Delete registers a DELETE route
func (r *Router) Delete(pattern, name string, h http.HandlerFunc) {
	r.Handle(http.MethodDelete, pattern, name, h)
}

// Handle registers h for method on prefix+pattern. name identifies the
// handler in the route table.
func (r *Router) Handle(method, pattern, name string, h http.HandlerFunc) {
	full := r.prefix + pattern
	r.mux.Method(method, full, h)

	stack := append(r.chain.Names(), name)

	r.mu.Lock()
	r.routes = append(r.routes, RouteInfo{Method: method, Pattern: full, Stack: stack})
	r.mu.Unlock()
}

// Routes returns the registered routes sorted by pattern then method
func (r *Router) Routes() []RouteInfo {
	r.mu.RLock()
	out := make([]RouteInfo, len(r.routes))
	copy(out, r.routes)
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Pattern != out[j].Pattern {
			return out[i].Pattern < out[j].Pattern
		}
		return methodRank(out[i].Method) < methodRank(out[j].Method)
	})
	return out
}

// String renders a route as "METHOD /pattern"
func (ri RouteInfo) String() string {
	return fmt.Sprintf("%s %s", ri.Method, ri.Pattern)
}

var methodOrder = []string{
	http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
	http.MethodPatch, http.MethodDelete,
}

func methodRank(m string) int {
	for i, o := range methodOrder {
		if o == m {
			return i
		}
	}
	return len(methodOrder)
}
