package model

import "github.com/Carmen-Shannon/oxy-graph/common"

// ModelBuilderOption is a functional option for configuring a Model via NewModel.
type ModelBuilderOption func(*model)

// WithName is an option builder that sets the name of the Model.
//
// Parameters:
//   - name: the model identifier
//
// Returns:
//   - ModelBuilderOption: a function that applies the name option to a model
func WithName(name string) ModelBuilderOption {
	return func(m *model) {
		m.name = name
	}
}

// WithBoundingRadius is an option builder that overrides the bounding radius computed from
// the mesh positions.
//
// Parameters:
//   - radius: the bounding sphere radius
//
// Returns:
//   - ModelBuilderOption: a function that applies the bounding radius option to a model
func WithBoundingRadius(radius float32) ModelBuilderOption {
	return func(m *model) {
		m.boundingRadius = radius
	}
}

// WithMorphFactor is an option builder that sets the initial morph blend.
//
// Parameters:
//   - f: the factor in [0, 1]
//
// Returns:
//   - ModelBuilderOption: a function that applies the morph factor option to a model
func WithMorphFactor(f float32) ModelBuilderOption {
	return func(m *model) {
		m.morphFactor = common.Clamp01(f)
	}
}
