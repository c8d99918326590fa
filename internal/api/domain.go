package api

import (
	"github.com/JaimeStill/pestwatch/internal/predictions"
	"github.com/JaimeStill/pestwatch/internal/records"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Records     records.System
	Predictions predictions.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) *Domain {
	cfg := runtime.Config

	recordsSystem := records.New(
		runtime.Database.Connection(),
		runtime.Database.Driver(),
		runtime.Storage,
		runtime.Logger,
		cfg.API.Pagination,
		records.WithRelocation(cfg.Storage.RelocateOnReview),
	)

	predictionsSystem := predictions.New(
		recordsSystem,
		runtime.Storage,
		runtime.Predictor,
		runtime.Locator,
		runtime.Notifier,
		runtime.Logger,
		&cfg.Predictions,
		predictions.WithObserver(runtime.Metrics),
		predictions.WithPredictTimeout(cfg.Predictor.TimeoutDuration()),
	)

	return &Domain{
		Records:     recordsSystem,
		Predictions: predictionsSystem,
	}
}
