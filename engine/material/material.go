// Package material describes the surface response of objects and keeps the material core that
// carries it into the scene.
package material

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-graph/common"
	"github.com/Carmen-Shannon/oxy-graph/engine/core"
	"github.com/go-gl/mathgl/mgl32"
)

// material is the implementation of the Material interface.
type material struct {
	mu *sync.Mutex

	name           string
	diffuseTexture string
	core           *core.Core
	version        uint64
}

// Material defines the surface properties of the objects in its scope. The material core is
// created once; setters update its payload in place so compiled objects see the new values on
// the next draw.
type Material interface {
	// Name retrieves the material identifier.
	//
	// Returns:
	//   - string: the name of the material
	Name() string

	// BaseColor retrieves the diffuse color of the material.
	//
	// Returns:
	//   - mgl32.Vec3: the base color
	BaseColor() mgl32.Vec3

	// Alpha retrieves the opacity of the material.
	//
	// Returns:
	//   - float32: the opacity in [0, 1]
	Alpha() float32

	// Emissive retrieves the self-illumination color.
	Emissive() mgl32.Vec3

	// Specular retrieves the specular color.
	Specular() mgl32.Vec3

	// Shininess retrieves the specular exponent.
	Shininess() float32

	// DiffuseTexture retrieves the path of the diffuse texture image, or "" if none is set.
	//
	// Returns:
	//   - string: the texture path
	DiffuseTexture() string

	// Transparent reports whether the material needs the blended draw list.
	//
	// Returns:
	//   - bool: true when alpha is below one
	Transparent() bool

	// Core returns the material core.
	//
	// Returns:
	//   - *core.Core: a core with a *core.Material payload
	Core() *core.Core

	// Version returns a counter bumped on every change.
	Version() uint64

	// SetBaseColor sets the diffuse color.
	SetBaseColor(c mgl32.Vec3)

	// SetAlpha sets the opacity, clamped to [0, 1].
	SetAlpha(alpha float32)

	// SetEmissive sets the self-illumination color.
	SetEmissive(c mgl32.Vec3)
}

var _ Material = &material{}

// NewMaterial creates a white, opaque, matte material.
//
// Parameters:
//   - options: a variadic list of MaterialBuilderOption functions
//
// Returns:
//   - Material: the new material
func NewMaterial(options ...MaterialBuilderOption) Material {
	m := &material{
		mu: &sync.Mutex{},
		core: core.NewMaterial(core.Material{
			BaseColor: mgl32.Vec3{1, 1, 1},
			Specular:  mgl32.Vec3{1, 1, 1},
			Shininess: 20,
			Alpha:     1,
		}),
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *material) payload() *core.Material {
	p, _ := core.As[*core.Material](m.core)
	return p
}

func (m *material) Name() string {
	return m.name
}

func (m *material) BaseColor() mgl32.Vec3 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.payload().BaseColor
}

func (m *material) Alpha() float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.payload().Alpha
}

func (m *material) Emissive() mgl32.Vec3 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.payload().Emissive
}

func (m *material) Specular() mgl32.Vec3 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.payload().Specular
}

func (m *material) Shininess() float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.payload().Shininess
}

func (m *material) DiffuseTexture() string {
	return m.diffuseTexture
}

func (m *material) Transparent() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.payload().Alpha < 1
}

func (m *material) Core() *core.Core {
	return m.core
}

func (m *material) Version() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.version
}

func (m *material) SetBaseColor(c mgl32.Vec3) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payload().BaseColor = c
	m.version++
}

func (m *material) SetAlpha(alpha float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payload().Alpha = common.Clamp01(alpha)
	m.version++
}

func (m *material) SetEmissive(c mgl32.Vec3) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payload().Emissive = c
	m.version++
}
