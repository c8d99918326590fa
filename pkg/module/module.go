// Package module mounts self-contained HTTP handlers under single-level path
// prefixes. Each module owns its middleware stack and sees request paths with
// its prefix removed.
package module

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/JaimeStill/pestwatch/pkg/middleware"
)

// ErrInvalidPrefix is returned for a prefix that is empty, relative, or nested.
var ErrInvalidPrefix = errors.New("invalid module prefix")

// Module strips its prefix and delegates to an inner handler wrapped with its
// own middleware.
type Module struct {
	prefix     string
	inner      http.Handler
	middleware middleware.Chain
}

// New creates a Module serving inner under prefix (e.g. "/api").
func New(prefix string, inner http.Handler) (*Module, error) {
	if err := validatePrefix(prefix); err != nil {
		return nil, err
	}
	return &Module{
		prefix: prefix,
		inner:  inner,
	}, nil
}

// Prefix returns the mount prefix.
func (m *Module) Prefix() string {
	return m.prefix
}

// Use appends mw to the module's middleware. Middleware added first runs outermost.
func (m *Module) Use(mw func(http.Handler) http.Handler) {
	m.middleware.Use(mw)
}

// Handler returns the inner handler wrapped with the module's middleware.
// Paths seen by it are already relative to the prefix.
func (m *Module) Handler() http.Handler {
	return m.middleware.Then(m.inner)
}

// ServeHTTP removes the prefix from the request path and dispatches to Handler.
func (m *Module) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	m.Handler().ServeHTTP(w, stripPrefix(req, m.prefix))
}

func stripPrefix(req *http.Request, prefix string) *http.Request {
	rest := strings.TrimPrefix(req.URL.Path, prefix)
	if rest == "" {
		rest = "/"
	}

	r := req.Clone(req.Context())
	r.URL = new(url.URL)
	*r.URL = *req.URL
	r.URL.Path = rest
	r.URL.RawPath = ""
	return r
}

func validatePrefix(prefix string) error {
	switch {
	case prefix == "":
		return fmt.Errorf("%w: empty", ErrInvalidPrefix)
	case !strings.HasPrefix(prefix, "/"):
		return fmt.Errorf("%w: %q must start with /", ErrInvalidPrefix, prefix)
	case len(prefix) == 1 || strings.Count(prefix, "/") != 1:
		return fmt.Errorf("%w: %q must be a single path segment", ErrInvalidPrefix, prefix)
	}
	return nil
}
