package loader

import (
	"github.com/Carmen-Shannon/automation/tools/worker"
)

// LoaderBuilderOption is a function that configures a loader instance during construction.
type LoaderBuilderOption func(*meshLoader)

// WithWorkers is an option builder that sets the prefetch pool size.
//
// Parameters:
//   - n: number of pool workers (minimum 1)
//
// Returns:
//   - LoaderBuilderOption: a function that applies the worker count to a loader
func WithWorkers(n int) LoaderBuilderOption {
	return func(l *meshLoader) {
		l.workers = max(n, 1)
	}
}

// WithPool is an option builder that injects a pre-built worker pool.
//
// Parameters:
//   - pool: the pool to submit prefetch tasks to
//
// Returns:
//   - LoaderBuilderOption: a function that applies the pool to a loader
func WithPool(pool worker.DynamicWorkerPool) LoaderBuilderOption {
	return func(l *meshLoader) {
		l.pool = pool
	}
}

// WithDecoder is an option builder that replaces the mesh decode function.
//
// Parameters:
//   - decode: decoder invoked on a pool worker per prefetched path
//
// Returns:
//   - LoaderBuilderOption: a function that applies the decoder to a loader
func WithDecoder(decode DecodeFunc) LoaderBuilderOption {
	return func(l *meshLoader) {
		l.decode = decode
	}
}
