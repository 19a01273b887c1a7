package material

import (
	"github.com/Carmen-Shannon/oxy-graph/common"
	"github.com/go-gl/mathgl/mgl32"
)

// MaterialBuilderOption is a function that configures a material during construction.
type MaterialBuilderOption func(*material)

// WithName sets the material identifier.
//
// Parameters:
//   - name: the material name
//
// Returns:
//   - MaterialBuilderOption: a function that sets the name
func WithName(name string) MaterialBuilderOption {
	return func(m *material) {
		m.name = name
	}
}

// WithBaseColor sets the diffuse color.
//
// Parameters:
//   - c: the base color
//
// Returns:
//   - MaterialBuilderOption: a function that sets the base color
func WithBaseColor(c mgl32.Vec3) MaterialBuilderOption {
	return func(m *material) {
		m.payload().BaseColor = c
	}
}

// WithAlpha sets the opacity, clamped to [0, 1].
//
// Parameters:
//   - alpha: the opacity
//
// Returns:
//   - MaterialBuilderOption: a function that sets the alpha
func WithAlpha(alpha float32) MaterialBuilderOption {
	return func(m *material) {
		m.payload().Alpha = common.Clamp01(alpha)
	}
}

// WithEmissive sets the self-illumination color.
//
// Parameters:
//   - c: the emissive color
//
// Returns:
//   - MaterialBuilderOption: a function that sets the emissive color
func WithEmissive(c mgl32.Vec3) MaterialBuilderOption {
	return func(m *material) {
		m.payload().Emissive = c
	}
}

// WithSpecular sets the specular color and exponent.
//
// Parameters:
//   - c: the specular color
//   - shininess: the specular exponent
//
// Returns:
//   - MaterialBuilderOption: a function that sets the specular response
func WithSpecular(c mgl32.Vec3, shininess float32) MaterialBuilderOption {
	return func(m *material) {
		p := m.payload()
		p.Specular, p.Shininess = c, shininess
	}
}

// WithDiffuseTexture sets the path of the diffuse texture image. The image is loaded
// asynchronously by the engine's loader.
//
// Parameters:
//   - path: the image path
//
// Returns:
//   - MaterialBuilderOption: a function that sets the texture path
func WithDiffuseTexture(path string) MaterialBuilderOption {
	return func(m *material) {
		m.diffuseTexture = path
	}
}
