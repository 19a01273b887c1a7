package pick

import (
	"errors"

	"github.com/go-gl/mathgl/mgl32"
)

// ErrSingularMatrix is returned when projection × view cannot be inverted.
var ErrSingularMatrix = errors.New("projection view matrix is singular")

// Unproject reconstructs the world position of a ray pick. The canvas point is mapped to clip
// space (y inverted), the near (z=-1) and far (z=+1) points are unprojected through the inverse
// of proj × view, and the result is near + depth × (far − near).
//
// Parameters:
//   - x, y: the canvas coordinates, top-left origin
//   - width, height: the canvas size
//   - view, proj: the matrices the picked object was drawn with
//   - depth: the unpacked ray depth in [0, 1]
//
// Returns:
//   - mgl32.Vec3: the world position
//   - error: ErrSingularMatrix if the matrices cannot be inverted
func Unproject(x, y, width, height int, view, proj mgl32.Mat4, depth float64) (mgl32.Vec3, error) {
	pv := proj.Mul4(view)
	if pv.Det() == 0 {
		return mgl32.Vec3{}, ErrSingularMatrix
	}
	inv := pv.Inv()

	hw, hh := float32(width)/2, float32(height)/2
	cx := (float32(x) - hw) / hw
	cy := -(float32(y) - hh) / hh

	near := inv.Mul4x1(mgl32.Vec4{cx, cy, -1, 1})
	far := inv.Mul4x1(mgl32.Vec4{cx, cy, 1, 1})
	if near[3] == 0 || far[3] == 0 {
		return mgl32.Vec3{}, ErrSingularMatrix
	}
	n := near.Vec3().Mul(1 / near[3])
	f := far.Vec3().Mul(1 / far[3])

	return n.Add(f.Sub(n).Mul(float32(depth))), nil
}
