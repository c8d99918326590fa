// Package routes registers grouped HTTP routes on a ServeMux using Go 1.22
// method and wildcard patterns.
package routes

import "net/http"

// Route binds a method and a path relative to its group to a handler.
// An empty Pattern serves the group prefix itself.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
}

// path joins the group prefix and the route pattern. The bare root is "/{$}"
// so it does not swallow every unmatched path.
func (r Route) path(prefix string) string {
	p := prefix + r.Pattern
	switch p {
	case "", "/":
		return "/{$}"
	}
	return p
}
