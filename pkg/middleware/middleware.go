// Package middleware holds the HTTP middleware shared by modules: request
// IDs, access logging, request metrics, CORS and bearer-token auth.
package middleware

import "net/http"

// Chain is an ordered list of middleware. The first entry is the outermost.
type Chain []func(http.Handler) http.Handler

// Use appends mw to the chain.
func (c *Chain) Use(mw func(http.Handler) http.Handler) {
	*c = append(*c, mw)
}

// Then wraps h with every middleware in c.
func (c Chain) Then(h http.Handler) http.Handler {
	for i := len(c) - 1; i >= 0; i-- {
		h = c[i](h)
	}
	return h
}
