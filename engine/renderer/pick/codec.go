// Package pick holds the color-index and depth codecs, the lazily allocated offscreen pick
// targets and the unprojection used to turn a ray-pick depth into a world position.
package pick

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// MaxIndex is the largest pick index a 24-bit color can carry.
const MaxIndex = 1<<24 - 1

// EncodeIndex encodes a 1-based pick index as r, g, b bytes (r least significant).
// Index 0 is reserved for "no hit".
//
// Parameters:
//   - i: the pick index in [1, MaxIndex]
//
// Returns:
//   - [3]uint8: the r, g and b bytes
func EncodeIndex(i int) [3]uint8 {
	return [3]uint8{uint8(i % 256), uint8((i / 256) % 256), uint8((i / 65536) % 256)}
}

// DecodeIndex decodes r + g*256 + b*65536.
//
// Parameters:
//   - rgb: the r, g and b bytes read back from a pick target
//
// Returns:
//   - int: the 1-based pick index
//   - bool: false for (0, 0, 0), which means no hit
func DecodeIndex(rgb [3]uint8) (int, bool) {
	i := int(rgb[0]) + int(rgb[1])*256 + int(rgb[2])*65536
	return i, i != 0
}

// Color returns the uniform color that writes EncodeIndex(i) into an 8-bit unorm target.
//
// Parameters:
//   - i: the 1-based pick index
//
// Returns:
//   - mgl32.Vec4: the color with opaque alpha
func Color(i int) mgl32.Vec4 {
	b := EncodeIndex(i)
	return mgl32.Vec4{float32(b[0]) / 255, float32(b[1]) / 255, float32(b[2]) / 255, 1}
}

// PackDepth packs a [0,1] depth into four bytes with a as the most significant byte.
//
// Parameters:
//   - d: the depth, clamped to [0, 1)
//
// Returns:
//   - [4]uint8: the r, g, b and a bytes
func PackDepth(d float64) [4]uint8 {
	if d <= 0 || math.IsNaN(d) {
		return [4]uint8{}
	}
	v := uint64(d * (1 << 32))
	if v > math.MaxUint32 {
		v = math.MaxUint32
	}
	return [4]uint8{uint8(v), uint8(v >> 8), uint8(v >> 16), uint8(v >> 24)}
}

// UnpackDepth decodes a packed depth with weights 1/256³, 1/256², 1/256 and 1 applied to
// byte/256 in r, g, b, a order.
//
// Parameters:
//   - rgba: the bytes read back from a ray target
//
// Returns:
//   - float64: the depth in [0, 1)
func UnpackDepth(rgba [4]uint8) float64 {
	const b = 256.0
	return float64(rgba[0])/(b*b*b*b) +
		float64(rgba[1])/(b*b*b) +
		float64(rgba[2])/(b*b) +
		float64(rgba[3])/b
}
