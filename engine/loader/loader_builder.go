package loader

import (
	"io/fs"
	"time"

	"github.com/Carmen-Shannon/oxy-graph/common"
)

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithFS is an option builder that resolves resource paths inside fsys instead of the local
// filesystem.
//
// Parameters:
//   - fsys: the filesystem to read from
//
// Returns:
//   - LoaderBuilderOption: a function that applies the filesystem option to a loader
func WithFS(fsys fs.FS) LoaderBuilderOption {
	return func(l *loader) {
		l.backend = fsLoaderBackend{fsys: fsys}
	}
}

// WithWorkers is an option builder that sets the maximum number of decode workers.
//
// Parameters:
//   - n: the worker count, at least 1
//
// Returns:
//   - LoaderBuilderOption: a function that applies the workers option to a loader
func WithWorkers(n int) LoaderBuilderOption {
	return func(l *loader) {
		l.workers = max(n, 1)
	}
}

// WithQueueSize is an option builder that sets the task queue and results channel capacity.
//
// Parameters:
//   - n: the capacity, at least 1
//
// Returns:
//   - LoaderBuilderOption: a function that applies the queue size option to a loader
func WithQueueSize(n int) LoaderBuilderOption {
	return func(l *loader) {
		l.queue = max(n, 1)
	}
}

// WithRetry is an option builder that configures retries of transient read failures.
//
// Parameters:
//   - retries: the maximum number of retries after the first attempt
//   - initial: the first backoff interval
//
// Returns:
//   - LoaderBuilderOption: a function that applies the retry option to a loader
func WithRetry(retries uint64, initial time.Duration) LoaderBuilderOption {
	return func(l *loader) {
		l.retries = retries
		l.retryInterval = initial
	}
}

// WithTexture is an option builder that pre-populates the texture cache.
//
// Parameters:
//   - path: the cache key
//   - data: the decoded pixels
//
// Returns:
//   - LoaderBuilderOption: a function that applies the texture option to a loader
func WithTexture(path string, data common.TextureStagingData) LoaderBuilderOption {
	return func(l *loader) {
		l.textureCache[path] = data
	}
}
