// Package location resolves the approximate geographic position of the
// service through an ordered chain of IP geolocation providers.
package location

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Info is a best-effort position. Every field is nil when unknown.
type Info struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	City      *string  `json:"city"`
	Country   *string  `json:"country"`
}

// Complete reports whether both coordinates are present.
func (i Info) Complete() bool {
	return i.Latitude != nil && i.Longitude != nil
}

// Provider is a single geolocation source.
type Provider interface {
	Name() string
	Locate(ctx context.Context) (Info, error)
}

// Locator produces a location for a submission. It never fails.
type Locator interface {
	Resolve(ctx context.Context) Info
}

// Observer receives resolution outcomes. The provider name is "none" when
// every provider was exhausted.
type Observer interface {
	ObserveResolution(provider string)
	ObserveProviderError(provider string)
}

// NoneProvider labels a resolution in which no provider produced coordinates.
const NoneProvider = "none"

// Resolver tries providers in order and returns the first complete result.
type Resolver struct {
	mu        sync.RWMutex
	providers []Provider
	timeout   time.Duration
	observer  Observer
	logger    *slog.Logger
}

// NewResolver creates a Resolver that bounds each provider call by timeout.
// A zero timeout leaves calls bounded only by the caller's context.
func NewResolver(timeout time.Duration, logger *slog.Logger, providers ...Provider) *Resolver {
	return &Resolver{
		providers: providers,
		timeout:   timeout,
		logger:    logger.With("system", "location"),
	}
}

// WithObserver attaches an Observer and returns r.
func (r *Resolver) WithObserver(o Observer) *Resolver {
	r.observer = o
	return r
}

// Append adds p to the end of the provider chain.
func (r *Resolver) Append(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers = append(r.providers, p)
}

// Providers returns the provider names in resolution order.
func (r *Resolver) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.providers))
	for i, p := range r.providers {
		names[i] = p.Name()
	}
	return names
}

// Resolve returns the first result carrying both coordinates, or an
// all-nil Info once every provider has failed or returned partial data.
func (r *Resolver) Resolve(ctx context.Context) Info {
	r.mu.RLock()
	providers := make([]Provider, len(r.providers))
	copy(providers, r.providers)
	r.mu.RUnlock()

	for _, p := range providers {
		if ctx.Err() != nil {
			break
		}

		info, err := r.locate(ctx, p)
		if err != nil {
			r.logger.Debug("location provider failed", "provider", p.Name(), "error", err)
			if r.observer != nil {
				r.observer.ObserveProviderError(p.Name())
			}
			continue
		}
		if !info.Complete() {
			r.logger.Debug("location provider returned no coordinates", "provider", p.Name())
			continue
		}

		r.logger.Debug("location resolved", "provider", p.Name())
		if r.observer != nil {
			r.observer.ObserveResolution(p.Name())
		}
		return info
	}

	r.logger.Debug("location unresolved", "providers", len(providers))
	if r.observer != nil {
		r.observer.ObserveResolution(NoneProvider)
	}
	return Info{}
}

func (r *Resolver) locate(ctx context.Context, p Provider) (info Info, err error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	defer func() {
		if rec := recover(); rec != nil {
			info = Info{}
			err = panicError{value: rec}
		}
	}()

	return p.Locate(ctx)
}
