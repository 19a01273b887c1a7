package model

import (
	"github.com/chewxy/math32"
)

// Box returns a box mesh centered on the origin with per-face normals and uvs.
//
// Parameters:
//   - w, h, d: the box extents along x, y and z
//
// Returns:
//   - *Mesh: the mesh
func Box(w, h, d float32) *Mesh {
	x, y, z := w/2, h/2, d/2
	faces := [6]struct {
		normal [3]float32
		corner [4][3]float32
	}{
		{[3]float32{0, 0, 1}, [4][3]float32{{-x, -y, z}, {x, -y, z}, {x, y, z}, {-x, y, z}}},
		{[3]float32{0, 0, -1}, [4][3]float32{{x, -y, -z}, {-x, -y, -z}, {-x, y, -z}, {x, y, -z}}},
		{[3]float32{1, 0, 0}, [4][3]float32{{x, -y, z}, {x, -y, -z}, {x, y, -z}, {x, y, z}}},
		{[3]float32{-1, 0, 0}, [4][3]float32{{-x, -y, -z}, {-x, -y, z}, {-x, y, z}, {-x, y, -z}}},
		{[3]float32{0, 1, 0}, [4][3]float32{{-x, y, z}, {x, y, z}, {x, y, -z}, {-x, y, -z}}},
		{[3]float32{0, -1, 0}, [4][3]float32{{-x, -y, -z}, {x, -y, -z}, {x, -y, z}, {-x, -y, z}}},
	}
	m := &Mesh{Primitive: "triangles"}
	uv := [4][2]float32{{0, 1}, {1, 1}, {1, 0}, {0, 0}}
	for i, f := range faces {
		base := uint32(i * 4)
		for j, c := range f.corner {
			m.Positions = append(m.Positions, c[0], c[1], c[2])
			m.Normals = append(m.Normals, f.normal[0], f.normal[1], f.normal[2])
			m.UVs = append(m.UVs, uv[j][0], uv[j][1])
		}
		m.Indices = append(m.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	return m
}

// Plane returns a subdivided plane on the xz plane facing +y.
//
// Parameters:
//   - w, d: the plane extents along x and z
//   - segments: the number of subdivisions per side, at least 1
//
// Returns:
//   - *Mesh: the mesh
func Plane(w, d float32, segments int) *Mesh {
	segments = max(segments, 1)
	m := &Mesh{Primitive: "triangles"}
	row := uint32(segments + 1)
	for j := 0; j <= segments; j++ {
		v := float32(j) / float32(segments)
		for i := 0; i <= segments; i++ {
			u := float32(i) / float32(segments)
			m.Positions = append(m.Positions, (u-0.5)*w, 0, (v-0.5)*d)
			m.Normals = append(m.Normals, 0, 1, 0)
			m.UVs = append(m.UVs, u, v)
		}
	}
	for j := uint32(0); j < uint32(segments); j++ {
		for i := uint32(0); i < uint32(segments); i++ {
			a := j*row + i
			b := a + row
			m.Indices = append(m.Indices, a, b, a+1, a+1, b, b+1)
		}
	}
	return m
}

// Quad returns a unit quad on the xy plane facing +z.
func Quad() *Mesh {
	return &Mesh{
		Primitive: "triangles",
		Positions: []float32{-0.5, -0.5, 0, 0.5, -0.5, 0, 0.5, 0.5, 0, -0.5, 0.5, 0},
		Normals:   []float32{0, 0, 1, 0, 0, 1, 0, 0, 1, 0, 0, 1},
		UVs:       []float32{0, 1, 1, 1, 1, 0, 0, 0},
		Indices:   []uint32{0, 1, 2, 0, 2, 3},
	}
}

// Sphere returns a uv sphere centered on the origin.
//
// Parameters:
//   - radius: the sphere radius
//   - slices: the number of longitudinal segments, at least 3
//   - stacks: the number of latitudinal segments, at least 2
//
// Returns:
//   - *Mesh: the mesh
func Sphere(radius float32, slices, stacks int) *Mesh {
	slices, stacks = max(slices, 3), max(stacks, 2)
	m := &Mesh{Primitive: "triangles"}
	for j := 0; j <= stacks; j++ {
		v := float32(j) / float32(stacks)
		theta := v * math32.Pi
		for i := 0; i <= slices; i++ {
			u := float32(i) / float32(slices)
			phi := u * 2 * math32.Pi
			nx := math32.Sin(theta) * math32.Cos(phi)
			ny := math32.Cos(theta)
			nz := math32.Sin(theta) * math32.Sin(phi)
			m.Positions = append(m.Positions, nx*radius, ny*radius, nz*radius)
			m.Normals = append(m.Normals, nx, ny, nz)
			m.UVs = append(m.UVs, u, v)
		}
	}
	row := uint32(slices + 1)
	for j := uint32(0); j < uint32(stacks); j++ {
		for i := uint32(0); i < uint32(slices); i++ {
			a := j*row + i
			b := a + row
			m.Indices = append(m.Indices, a, a+1, b, a+1, b+1, b)
		}
	}
	return m
}
