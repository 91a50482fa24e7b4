package library

import (
	"github.com/Carmen-Shannon/oxy-anim/engine/bake_store"
	"go.opentelemetry.io/otel/trace"
)

// LibraryBuilderOption is a functional option for configuring a Library during construction.
type LibraryBuilderOption func(*libraryImpl)

// WithWorkers is an option builder that sets the worker pool size. Values below 1 are ignored.
//
// Parameters:
//   - n: the number of workers
//
// Returns:
//   - LibraryBuilderOption: a function that applies the workers option to a library
func WithWorkers(n int) LibraryBuilderOption {
	return func(l *libraryImpl) {
		if n > 0 {
			l.workers = n
		}
	}
}

// WithTracer is an option builder that sets the tracer for bake spans.
//
// Parameters:
//   - tracer: the tracer
//
// Returns:
//   - LibraryBuilderOption: a function that applies the tracer option to a library
func WithTracer(tracer trace.Tracer) LibraryBuilderOption {
	return func(l *libraryImpl) {
		l.tracer = tracer
	}
}

// WithBakeStore is an option builder that routes BakeAll through a persistent bake store.
//
// Parameters:
//   - store: the bake store
//
// Returns:
//   - LibraryBuilderOption: a function that applies the bake store option to a library
func WithBakeStore(store bake_store.Store) LibraryBuilderOption {
	return func(l *libraryImpl) {
		l.store = store
	}
}
