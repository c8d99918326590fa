package routes

import (
	"net/http"
	"slices"

	"github.com/JaimeStill/pestwatch/pkg/middleware"
)

// Group shares a prefix and middleware across its routes and child groups.
// A child inherits its parent's prefix and middleware; the parent's run first.
type Group struct {
	Prefix     string
	Middleware middleware.Chain
	Routes     []Route
	Children   []Group
}

// Register adds every route of groups to mux and returns the registered
// patterns in registration order.
func Register(mux *http.ServeMux, groups ...Group) []string {
	var patterns []string
	for _, g := range groups {
		patterns = g.register(mux, "", nil, patterns)
	}
	return patterns
}

func (g Group) register(mux *http.ServeMux, parent string, inherited middleware.Chain, patterns []string) []string {
	prefix := parent + g.Prefix
	chain := append(slices.Clip(inherited), g.Middleware...)

	for _, r := range g.Routes {
		pattern := r.Method + " " + r.path(prefix)
		mux.Handle(pattern, chain.Then(r.Handler))
		patterns = append(patterns, pattern)
	}
	for _, child := range g.Children {
		patterns = child.register(mux, prefix, chain, patterns)
	}
	return patterns
}
