package light

// SetBuilderOption is a function that configures a Set during construction.
type SetBuilderOption func(*set)

// WithBudget limits how many lights the set passes to its core.
//
// Parameters:
//   - n: the light budget, or <= 0 for no limit
//
// Returns:
//   - SetBuilderOption: a function that applies the budget to a set
func WithBudget(n int) SetBuilderOption {
	return func(s *set) {
		s.budget = n
	}
}

// WithLights adds initial lights to the set.
//
// Parameters:
//   - lights: the lights to add
//
// Returns:
//   - SetBuilderOption: a function that adds the lights to a set
func WithLights(lights ...Light) SetBuilderOption {
	return func(s *set) {
		s.lights = append(s.lights, lights...)
	}
}
