package model

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-graph/engine/core"
	"github.com/Carmen-Shannon/oxy-graph/engine/gpu"
	"github.com/Carmen-Shannon/oxy-graph/engine/gpu/gputest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeshValidate(t *testing.T) {
	tests := []struct {
		name string
		mesh *Mesh
		ok   bool
	}{
		{"quad", Quad(), true},
		{"box", Box(1, 2, 3), true},
		{"bad primitive", &Mesh{Primitive: "fans", Positions: []float32{0, 0, 0}, Indices: []uint32{0}}, false},
		{"ragged positions", &Mesh{Positions: []float32{0, 0}, Indices: []uint32{0}}, false},
		{"short normals", &Mesh{Positions: []float32{0, 0, 0, 1, 1, 1}, Normals: []float32{0, 1, 0}, Indices: []uint32{0, 1}}, false},
		{"index out of range", &Mesh{Positions: []float32{0, 0, 0}, Indices: []uint32{1}}, false},
		{"no indices", &Mesh{Positions: []float32{0, 0, 0}}, false},
		{"empty morph", &Mesh{Positions: []float32{0, 0, 0}, Indices: []uint32{0}, Morph: &MorphTarget{}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.mesh.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, gpu.IsKind(err, gpu.KindConfiguration))
		})
	}
}

func TestPrimitives(t *testing.T) {
	box := Box(2, 2, 2)
	assert.Equal(t, 24, box.VertexCount())
	assert.Len(t, box.Indices, 36)
	assert.InDelta(t, 1.7320508, box.BoundingRadius(), 1e-5)

	plane := Plane(4, 4, 2)
	assert.Equal(t, 9, plane.VertexCount())
	assert.Len(t, plane.Indices, 24)
	require.NoError(t, plane.Validate())

	sphere := Sphere(2, 8, 4)
	assert.Equal(t, 45, sphere.VertexCount())
	assert.Len(t, sphere.Indices, 8*4*6)
	assert.InDelta(t, 2, sphere.BoundingRadius(), 1e-5)
	require.NoError(t, sphere.Validate())
}

func TestComputeNormals(t *testing.T) {
	m := Quad()
	m.Normals = nil
	m.ComputeNormals()
	require.Len(t, m.Normals, 12)
	for i := 0; i < 12; i += 3 {
		assert.InDelta(t, 1, m.Normals[i+2], 1e-6)
	}
}

func TestUpload(t *testing.T) {
	dev := gputest.NewRecorder(64, 64)
	m, err := NewModel(Box(1, 1, 1), WithName("box"))
	require.NoError(t, err)

	geo, err := m.Upload(dev)
	require.NoError(t, err)
	assert.Equal(t, "geo:nu", geo.Hash)
	assert.Nil(t, m.Morph())
	payload, ok := core.As[*core.Geometry](geo)
	require.True(t, ok)
	assert.Equal(t, 36, payload.IndexCount)
	assert.Equal(t, "triangles", payload.Primitive)
	assert.Equal(t, 4, dev.LiveBuffers())

	again, err := m.Upload(dev)
	require.NoError(t, err)
	assert.NotEqual(t, geo.StateID, again.StateID)
	assert.Equal(t, 4, dev.LiveBuffers())

	m.Release(dev)
	assert.Zero(t, dev.LiveBuffers())
	assert.Nil(t, m.Geometry())
	assert.Zero(t, dev.DoubleFrees())
}

func TestUploadFailureReleasesPartialBuffers(t *testing.T) {
	dev := gputest.NewRecorder(64, 64)
	mesh := Quad()
	m, err := NewModel(mesh)
	require.NoError(t, err)

	// positions and normals succeed, uvs fail
	dev.FailAfter(gputest.OpCreateBuffer, 2, errors.New("out of memory"))
	_, err = m.Upload(dev)
	require.Error(t, err)
	assert.True(t, gpu.IsKind(err, gpu.KindAllocation))
	assert.Equal(t, 3, dev.Count(gputest.OpCreateBuffer))
	assert.Equal(t, 2, dev.Count(gputest.OpDeleteBuffer))
	assert.Zero(t, dev.LiveBuffers())
	assert.Nil(t, m.Geometry())

	dev.FailNext(gputest.OpCreateBuffer, errors.New("out of memory"))
	_, err = m.Upload(dev)
	require.Error(t, err)
	assert.Zero(t, dev.LiveBuffers())

	_, err = m.Upload(dev)
	require.NoError(t, err)
	assert.Equal(t, 4, dev.LiveBuffers())
}

func TestMorph(t *testing.T) {
	dev := gputest.NewRecorder(64, 64)
	mesh := Quad()
	mesh.Morph = &MorphTarget{Positions: append([]float32(nil), mesh.Positions...)}
	m, err := NewModel(mesh, WithMorphFactor(2))
	require.NoError(t, err)

	_, err = m.Upload(dev)
	require.NoError(t, err)
	morph := m.Morph()
	require.NotNil(t, morph)
	assert.Equal(t, "morph", morph.Hash)
	payload, ok := core.As[*core.MorphGeometry](morph)
	require.True(t, ok)
	assert.Equal(t, float32(1), payload.Factor)

	m.SetMorphFactor(0.25)
	assert.Equal(t, float32(0.25), payload.Factor)
	assert.Same(t, morph, m.Morph())
}

func TestNewModelRejectsInvalidMesh(t *testing.T) {
	_, err := NewModel(nil)
	assert.Error(t, err)
	_, err = NewModel(&Mesh{})
	assert.Error(t, err)
}
