// Package middleware holds the HTTP middleware shared by the API server.
package middleware

import (
	"net/http"
)

// Middleware is a function that wraps an http.Handler
type Middleware func(http.Handler) http.Handler

// Named pairs a middleware with the name shown in route introspection
type Named struct {
	Name string
	Wrap Middleware
}

// Chain represents a composable chain of middleware
type Chain struct {
	layers []Named
}

// NewChain creates a new middleware chain
func NewChain(layers ...Named) *Chain {
	return &Chain{layers: layers}
}

// Use adds a middleware to the chain
func (c *Chain) Use(name string, m Middleware) *Chain {
	c.layers = append(c.layers, Named{Name: name, Wrap: m})
	return c
}

// Names returns the middleware names in execution order
func (c *Chain) Names() []string {
	names := make([]string, len(c.layers))
	for i, l := range c.layers {
		names[i] = l.Name
	}
	return names
}

// Len returns the number of middleware in the chain
func (c *Chain) Len() int {
	return len(c.layers)
}

// Then wraps handler so that middleware added first runs first
func (c *Chain) Then(handler http.Handler) http.Handler {
	for i := len(c.layers) - 1; i >= 0; i-- {
		handler = c.layers[i].Wrap(handler)
	}
	return handler
}

// ThenFunc wraps an http.HandlerFunc with the middleware chain
func (c *Chain) ThenFunc(handlerFunc http.HandlerFunc) http.Handler {
	return c.Then(handlerFunc)
}

// Append creates a new chain without mutating c
func (c *Chain) Append(layers ...Named) *Chain {
	out := make([]Named, 0, len(c.layers)+len(layers))
	out = append(out, c.layers...)
	out = append(out, layers...)
	return &Chain{layers: out}
}
