package program

// CacheBuilderOption is a functional option applied to a cache during construction via NewCache.
type CacheBuilderOption func(*cache)

// WithSourceFactory replaces the built-in WGSL source factory.
//
// Parameters:
//   - f: the source factory to generate program variants with
//
// Returns:
//   - CacheBuilderOption: a function that applies the source factory option to a cache
func WithSourceFactory(f SourceFactory) CacheBuilderOption {
	return func(c *cache) {
		c.sources = f
	}
}

// WithValidation enables naga validation of every generated variant before it reaches the device.
// Validation failures are reported as shader compile failures.
//
// Parameters:
//   - enabled: true to validate generated WGSL
//
// Returns:
//   - CacheBuilderOption: a function that applies the validation option to a cache
func WithValidation(enabled bool) CacheBuilderOption {
	return func(c *cache) {
		c.validate = enabled
	}
}
