package game_object

import (
	"github.com/Carmen-Shannon/oxy-graph/engine/core"
	"github.com/Carmen-Shannon/oxy-graph/engine/light"
	"github.com/Carmen-Shannon/oxy-graph/engine/material"
	"github.com/Carmen-Shannon/oxy-graph/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// GameObjectBuilderOption is a functional option for configuring a GameObject via NewGameObject.
type GameObjectBuilderOption func(*gameObject)

// WithName is an option builder that sets the pick name of the GameObject.
//
// Parameters:
//   - name: the name reported by picks
//
// Returns:
//   - GameObjectBuilderOption: a function that applies the name option to a gameObject
func WithName(name string) GameObjectBuilderOption {
	return func(g *gameObject) {
		g.name = name
	}
}

// WithTag is an option builder that sets the tag used by tag filtering.
//
// Parameters:
//   - tag: the tag name
//
// Returns:
//   - GameObjectBuilderOption: a function that applies the tag option to a gameObject
func WithTag(tag string) GameObjectBuilderOption {
	return func(g *gameObject) {
		g.tag = tag
	}
}

// WithFlags is an option builder that replaces the default flags.
//
// Parameters:
//   - f: the flags
//
// Returns:
//   - GameObjectBuilderOption: a function that applies the flags option to a gameObject
func WithFlags(f core.Flags) GameObjectBuilderOption {
	return func(g *gameObject) {
		g.flags = core.NewFlags(f)
	}
}

// WithModel is an option builder that sets the Model of the GameObject.
//
// Parameters:
//   - m: the model
//
// Returns:
//   - GameObjectBuilderOption: a function that applies the model option to a gameObject
func WithModel(m model.Model) GameObjectBuilderOption {
	return func(g *gameObject) {
		g.mdl = m
	}
}

// WithMaterial is an option builder that sets the Material of the GameObject.
//
// Parameters:
//   - m: the material
//
// Returns:
//   - GameObjectBuilderOption: a function that applies the material option to a gameObject
func WithMaterial(m material.Material) GameObjectBuilderOption {
	return func(g *gameObject) {
		g.mat = m
	}
}

// WithPosition is an option builder that sets the local position.
//
// Parameters:
//   - p: the position
//
// Returns:
//   - GameObjectBuilderOption: a function that applies the position option to a gameObject
func WithPosition(p mgl32.Vec3) GameObjectBuilderOption {
	return func(g *gameObject) {
		g.position = p
	}
}

// WithScale is an option builder that sets the local scale.
//
// Parameters:
//   - s: the scale
//
// Returns:
//   - GameObjectBuilderOption: a function that applies the scale option to a gameObject
func WithScale(s mgl32.Vec3) GameObjectBuilderOption {
	return func(g *gameObject) {
		g.scale = s
	}
}

// WithRotation is an option builder that sets the local Euler rotation in radians.
//
// Parameters:
//   - r: the rotation
//
// Returns:
//   - GameObjectBuilderOption: a function that applies the rotation option to a gameObject
func WithRotation(r mgl32.Vec3) GameObjectBuilderOption {
	return func(g *gameObject) {
		g.rotation = r
	}
}

// WithRotationSpeed is an option builder that sets the rotation applied per second by Tick.
//
// Parameters:
//   - r: the rotation speed in radians per second
//
// Returns:
//   - GameObjectBuilderOption: a function that applies the rotation speed option to a gameObject
func WithRotationSpeed(r mgl32.Vec3) GameObjectBuilderOption {
	return func(g *gameObject) {
		g.rotationSpeed = r
	}
}

// WithLight is an option builder that attaches a light following the object.
//
// Parameters:
//   - l: the light
//
// Returns:
//   - GameObjectBuilderOption: a function that applies the light option to a gameObject
func WithLight(l light.Light) GameObjectBuilderOption {
	return func(g *gameObject) {
		g.attachedLight = l
	}
}
