package model

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-graph/common"
	"github.com/Carmen-Shannon/oxy-graph/engine/core"
	"github.com/Carmen-Shannon/oxy-graph/engine/gpu"
)

// model is the implementation of the Model interface.
type model struct {
	mu *sync.Mutex

	name           string
	mesh           *Mesh
	boundingRadius float32
	morphFactor    float32

	buffers  []gpu.BufferHandle
	geometry *core.Core
	morph    *core.Core
}

// Model owns a mesh and the device buffers uploaded from it.
// Uploading produces a geometry core, and a morph core when the mesh has a morph target,
// which are bound into a scene like any other state.
type Model interface {
	// Name retrieves the model identifier.
	//
	// Returns:
	//   - string: the model name
	Name() string

	// Mesh retrieves the CPU-side mesh.
	//
	// Returns:
	//   - *Mesh: the mesh
	Mesh() *Mesh

	// BoundingRadius returns the radius of a sphere around the origin that contains the mesh.
	//
	// Returns:
	//   - float32: the bounding radius
	BoundingRadius() float32

	// Upload creates the device buffers of the mesh. Buffers from an earlier upload are
	// released first. When any buffer fails to allocate, the buffers already created are
	// deleted and the model is left without geometry.
	//
	// Parameters:
	//   - dev: the device to upload to
	//
	// Returns:
	//   - *core.Core: the geometry core
	//   - error: an error if the mesh is invalid or a buffer could not be created
	Upload(dev gpu.Device) (*core.Core, error)

	// Geometry returns the geometry core of the last successful upload, or nil.
	Geometry() *core.Core

	// Morph returns the morph core of the last successful upload, or nil when the mesh
	// has no morph target.
	Morph() *core.Core

	// SetMorphFactor sets the blend towards the morph target. The morph core payload is updated
	// in place; the caller invalidates the image.
	//
	// Parameters:
	//   - f: the factor, clamped to [0, 1]
	SetMorphFactor(f float32)

	// Release deletes the device buffers of the model.
	//
	// Parameters:
	//   - dev: the device the buffers were created on
	Release(dev gpu.Device)
}

var _ Model = &model{}

// NewModel creates a Model around a mesh. The mesh is validated but not uploaded.
//
// Parameters:
//   - mesh: the mesh
//   - options: functional options
//
// Returns:
//   - Model: the model
//   - error: a configuration error if the mesh is invalid
func NewModel(mesh *Mesh, options ...ModelBuilderOption) (Model, error) {
	if mesh == nil {
		return nil, gpu.ConfigError("new model", "mesh is nil")
	}
	if err := mesh.Validate(); err != nil {
		return nil, err
	}
	m := &model{
		mu:   &sync.Mutex{},
		mesh: mesh,
	}
	for _, opt := range options {
		opt(m)
	}
	if m.boundingRadius == 0 {
		m.boundingRadius = mesh.BoundingRadius()
	}
	return m, nil
}

func (m *model) Name() string {
	return m.name
}

func (m *model) Mesh() *Mesh {
	return m.mesh
}

func (m *model) BoundingRadius() float32 {
	return m.boundingRadius
}

func (m *model) Upload(dev gpu.Device) (*core.Core, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.release(dev)

	var created []gpu.BufferHandle
	vertex := func(data []float32) (gpu.BufferHandle, error) {
		if len(data) == 0 {
			return 0, nil
		}
		h, err := dev.CreateVertexBuffer(data)
		if err != nil {
			return 0, err
		}
		created = append(created, h)
		return h, nil
	}
	fail := func(stream string, err error) (*core.Core, error) {
		for _, h := range created {
			dev.DeleteBuffer(h)
		}
		return nil, fmt.Errorf("failed to upload %s of model %q: %w", stream, m.name, err)
	}

	g := core.Geometry{Primitive: m.mesh.primitive(), IndexCount: len(m.mesh.Indices)}
	var err error
	if g.Positions, err = vertex(m.mesh.Positions); err != nil {
		return fail("positions", err)
	}
	if g.Normals, err = vertex(m.mesh.Normals); err != nil {
		return fail("normals", err)
	}
	if g.UVs, err = vertex(m.mesh.UVs); err != nil {
		return fail("uvs", err)
	}
	if g.Colors, err = vertex(m.mesh.Colors); err != nil {
		return fail("colors", err)
	}
	var morph core.MorphGeometry
	if t := m.mesh.Morph; t != nil {
		if morph.Positions, err = vertex(t.Positions); err != nil {
			return fail("morph positions", err)
		}
		if morph.Normals, err = vertex(t.Normals); err != nil {
			return fail("morph normals", err)
		}
		morph.Factor = m.morphFactor
	}
	if g.Indices, err = dev.CreateIndexBuffer(m.mesh.Indices); err != nil {
		return fail("indices", err)
	}
	created = append(created, g.Indices)

	m.buffers = created
	m.geometry = core.NewGeometry(g)
	if m.mesh.Morph != nil {
		m.morph = core.NewMorphGeometry(morph)
	}
	common.Logger().Debug("model uploaded", "model", m.name, "vertices", m.mesh.VertexCount(), "buffers", len(created))
	return m.geometry, nil
}

func (m *model) Geometry() *core.Core {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.geometry
}

func (m *model) Morph() *core.Core {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.morph
}

func (m *model) SetMorphFactor(f float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.morphFactor = common.Clamp01(f)
	if p, ok := core.As[*core.MorphGeometry](m.morph); ok {
		p.Factor = m.morphFactor
	}
}

func (m *model) Release(dev gpu.Device) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.release(dev)
}

func (m *model) release(dev gpu.Device) {
	for _, h := range m.buffers {
		dev.DeleteBuffer(h)
	}
	m.buffers = nil
	m.geometry = nil
	m.morph = nil
}
