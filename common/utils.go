package common

// Coalesce returns the first non-zero value from the provided values, or the zero value if all are zero.
//
// Parameters:
//   - values: a variadic list of values to check for non-zero status
//
// Returns:
//   - T: the first non-zero value from the input, or the zero value if all are zero
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

// NextVersion increments an arena slot version, skipping zero so a zero-valued handle never resolves.
//
// Parameters:
//   - v: the current version
//
// Returns:
//   - uint32: the next non-zero version
func NextVersion(v uint32) uint32 {
	v++
	if v == 0 {
		v = 1
	}
	return v
}
