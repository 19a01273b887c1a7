package model

import (
	"github.com/Carmen-Shannon/oxy-graph/engine/gpu"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// MorphTarget is a second keyframe of a mesh's vertices.
type MorphTarget struct {
	Positions []float32
	Normals   []float32
}

// Mesh holds the CPU-side vertex streams of a model. Streams are tightly packed: three floats
// per position and normal, two per uv and four per color.
type Mesh struct {
	Primitive string
	Positions []float32
	Normals   []float32
	UVs       []float32
	Colors    []float32
	Indices   []uint32
	Morph     *MorphTarget
}

// VertexCount returns the number of vertices of the mesh.
func (m *Mesh) VertexCount() int {
	return len(m.Positions) / 3
}

// Validate checks that every stream matches the vertex count and every index is in range.
//
// Returns:
//   - error: a KindConfiguration error describing the first problem found
func (m *Mesh) Validate() error {
	const op = "validate mesh"
	if _, err := gpu.ParsePrimitive(m.primitive()); err != nil {
		return err
	}
	if len(m.Positions) == 0 || len(m.Positions)%3 != 0 {
		return gpu.ConfigError(op, "positions length %d is not a positive multiple of 3", len(m.Positions))
	}
	n := m.VertexCount()
	streams := []struct {
		name  string
		data  []float32
		width int
	}{
		{"normals", m.Normals, 3},
		{"uvs", m.UVs, 2},
		{"colors", m.Colors, 4},
	}
	if m.Morph != nil {
		streams = append(streams,
			struct {
				name  string
				data  []float32
				width int
			}{"morph positions", m.Morph.Positions, 3},
			struct {
				name  string
				data  []float32
				width int
			}{"morph normals", m.Morph.Normals, 3},
		)
		if len(m.Morph.Positions) == 0 {
			return gpu.ConfigError(op, "morph target has no positions")
		}
	}
	for _, s := range streams {
		if len(s.data) != 0 && len(s.data) != n*s.width {
			return gpu.ConfigError(op, "%s length %d does not match %d vertices", s.name, len(s.data), n)
		}
	}
	if len(m.Indices) == 0 {
		return gpu.ConfigError(op, "mesh has no indices")
	}
	for i, idx := range m.Indices {
		if int(idx) >= n {
			return gpu.ConfigError(op, "index %d at %d out of range for %d vertices", idx, i, n)
		}
	}
	return nil
}

func (m *Mesh) primitive() string {
	if m.Primitive == "" {
		return "triangles"
	}
	return m.Primitive
}

// BoundingRadius returns the distance from the origin to the farthest vertex.
func (m *Mesh) BoundingRadius() float32 {
	var r float32
	for i := 0; i+2 < len(m.Positions); i += 3 {
		v := mgl32.Vec3{m.Positions[i], m.Positions[i+1], m.Positions[i+2]}
		r = math32.Max(r, v.Len())
	}
	return r
}

// ComputeNormals fills Normals with area-weighted vertex normals of a triangle list.
func (m *Mesh) ComputeNormals() {
	normals := make([]mgl32.Vec3, m.VertexCount())
	vertex := func(i uint32) mgl32.Vec3 {
		return mgl32.Vec3{m.Positions[3*i], m.Positions[3*i+1], m.Positions[3*i+2]}
	}
	for i := 0; i+2 < len(m.Indices); i += 3 {
		a, b, c := m.Indices[i], m.Indices[i+1], m.Indices[i+2]
		face := vertex(b).Sub(vertex(a)).Cross(vertex(c).Sub(vertex(a)))
		normals[a] = normals[a].Add(face)
		normals[b] = normals[b].Add(face)
		normals[c] = normals[c].Add(face)
	}
	m.Normals = make([]float32, 0, len(normals)*3)
	for _, n := range normals {
		if n.Len() > 0 {
			n = n.Normalize()
		}
		m.Normals = append(m.Normals, n[0], n[1], n[2])
	}
}
