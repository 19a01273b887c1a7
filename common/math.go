package common

import (
	"unsafe"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}

// StructToBytes reinterprets a pointer to a struct as a raw byte slice using unsafe.
// The returned slice has length equal to the struct's size in memory.
//
// Parameters:
//   - v: pointer to the struct to reinterpret
//
// Returns:
//   - []byte: byte slice view of the struct's memory
func StructToBytes[T any](v *T) []byte {
	size := unsafe.Sizeof(*v)
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), int(size))
}

// NormalMatrix returns the inverse-transpose of a model matrix, used to carry normals into world space.
// A singular matrix yields the identity so a degenerate scale never produces NaN normals.
//
// Parameters:
//   - m: the model matrix (column-major)
//
// Returns:
//   - mgl32.Mat4: the normal matrix
func NormalMatrix(m mgl32.Mat4) mgl32.Mat4 {
	if m.Det() == 0 {
		return mgl32.Ident4()
	}
	return m.Inv().Transpose()
}

// DepthRange recovers the near and far clip distances encoded in a projection matrix.
// Both perspective and orthographic matrices in the OpenGL convention are supported.
//
// Parameters:
//   - proj: the projection matrix (column-major)
//
// Returns:
//   - near: the near clip distance
//   - far: the far clip distance
func DepthRange(proj mgl32.Mat4) (near, far float32) {
	if proj[11] == 0 {
		// orthographic: m10 = -2/(f-n), m14 = -(f+n)/(f-n)
		near = (proj[14] + 1) / proj[10]
		far = (proj[14] - 1) / proj[10]
		return near, far
	}
	near = proj[14] / (proj[10] - 1)
	far = proj[14] / (proj[10] + 1)
	return near, far
}

// Clamp01 clamps v to the closed unit interval.
//
// Parameters:
//   - v: the value to clamp
//
// Returns:
//   - float32: v limited to [0, 1]
func Clamp01(v float32) float32 {
	return math32.Max(0, math32.Min(1, v))
}
