package bake_store

import (
	"time"

	"go.opentelemetry.io/otel/trace"
)

// StoreBuilderOption is a functional option for configuring a Store when it is opened.
type StoreBuilderOption func(*storeImpl)

// WithTracer is an option builder that sets the tracer used for save and load spans.
// The global tracer provider is used by default.
//
// Parameters:
//   - tracer: the tracer
//
// Returns:
//   - StoreBuilderOption: a function that applies the tracer option to a store
func WithTracer(tracer trace.Tracer) StoreBuilderOption {
	return func(s *storeImpl) {
		s.tracer = tracer
	}
}

// WithClock is an option builder that sets the time source for clip timestamps.
//
// Parameters:
//   - now: the time source
//
// Returns:
//   - StoreBuilderOption: a function that applies the clock option to a store
func WithClock(now func() time.Time) StoreBuilderOption {
	return func(s *storeImpl) {
		s.now = now
	}
}
