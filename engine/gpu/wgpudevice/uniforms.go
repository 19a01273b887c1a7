package wgpudevice

import (
	"github.com/Carmen-Shannon/oxy-graph/common"
	"github.com/Carmen-Shannon/oxy-graph/engine/gpu"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	maxClipPlanes   = 8
	maxCustomParams = 8
	maxLights       = 64

	// uniformAlignment is the dynamic offset alignment WebGPU guarantees.
	uniformAlignment = 256
)

// uniformBlock mirrors the Uniforms struct of the generated WGSL.
type uniformBlock struct {
	Model     mgl32.Mat4
	Normal    mgl32.Mat4
	View      mgl32.Mat4
	Proj      mgl32.Mat4
	BaseColor mgl32.Vec4
	Emissive  mgl32.Vec4
	Specular  mgl32.Vec4
	Eye       mgl32.Vec4
	PickColor mgl32.Vec4
	// x: alpha, y: morph factor, z: near, w: far
	Params     mgl32.Vec4
	ClipPlanes [maxClipPlanes]mgl32.Vec4
	ClipCount  [4]uint32
	Custom     [maxCustomParams]mgl32.Vec4
}

// lightBlock mirrors the Light struct of the generated WGSL.
type lightBlock struct {
	// xyz: position, w: light type
	Position mgl32.Vec4
	// xyz: direction, w: range
	Direction mgl32.Vec4
	// rgb: color, a: intensity
	Color mgl32.Vec4
	// x: cos(inner cone), y: cos(outer cone)
	Cone mgl32.Vec4
}

func alignUp(n, a uint64) uint64 {
	return (n + a - 1) / a * a
}

var (
	uniformSize   = uint64(len(common.StructToBytes(&uniformBlock{})))
	uniformStride = alignUp(uniformSize, uniformAlignment)
	lightSize     = uint64(len(common.StructToBytes(&lightBlock{})))
	lightsBinding = lightSize * maxLights
	lightsStride  = alignUp(lightsBinding, uniformAlignment)
)

func defaultUniforms() uniformBlock {
	ident := mgl32.Ident4()
	return uniformBlock{
		Model:     ident,
		Normal:    ident,
		View:      ident,
		Proj:      ident,
		BaseColor: mgl32.Vec4{1, 1, 1, 1},
		Params:    mgl32.Vec4{1, 0, 0, 1},
	}
}

// set applies one built-in matrix uniform.
func (u *uniformBlock) setMatrix(id gpu.Uniform, m mgl32.Mat4) {
	switch id {
	case gpu.UniformModelMatrix:
		u.Model = m
	case gpu.UniformNormalMatrix:
		u.Normal = m
	case gpu.UniformViewMatrix:
		u.View = m
	case gpu.UniformProjMatrix:
		u.Proj = m
		near, far := common.DepthRange(m)
		u.Params[2], u.Params[3] = near, far
	}
}

func (u *uniformBlock) setVector(id gpu.Uniform, v mgl32.Vec4) {
	switch id {
	case gpu.UniformBaseColor:
		u.BaseColor = v
	case gpu.UniformEmissive:
		u.Emissive = v
	case gpu.UniformSpecular:
		u.Specular = v
	case gpu.UniformEye:
		u.Eye = v
	case gpu.UniformPickColor:
		u.PickColor = v
	}
}

func (u *uniformBlock) setScalar(id gpu.Uniform, v float32) {
	switch id {
	case gpu.UniformAlpha:
		u.Params[0] = v
	case gpu.UniformMorphFactor:
		u.Params[1] = v
	}
}

func (u *uniformBlock) setClipPlanes(planes []mgl32.Vec4) {
	n := copy(u.ClipPlanes[:], planes)
	u.ClipCount = [4]uint32{uint32(n)}
}

// setCustom stores a custom param in the slot its program declared it in.
func (u *uniformBlock) setCustom(slot int, value []float32) {
	if slot < 0 || slot >= maxCustomParams {
		return
	}
	var v mgl32.Vec4
	copy(v[:], value)
	u.Custom[slot] = v
}

// packLights converts lights to their storage layout. An unset intensity means full intensity.
func packLights(lights []gpu.LightData) []lightBlock {
	n := min(len(lights), maxLights)
	out := make([]lightBlock, n)
	for i, l := range lights[:n] {
		out[i] = lightBlock{
			Position:  l.Position.Vec4(float32(l.Type)),
			Direction: l.Direction.Vec4(l.Range),
			Color:     l.Color.Vec4(common.Coalesce(l.Intensity, 1)),
			Cone:      mgl32.Vec4{math32.Cos(l.InnerCone), math32.Cos(l.OuterCone), 0, 0},
		}
	}
	return out
}

// customSlots maps the custom params of a program to their uniform slots.
func customSlots(f gpu.Features) map[string]int {
	slots := make(map[string]int, len(f.CustomParams))
	for i, name := range f.CustomParams {
		if i >= maxCustomParams {
			break
		}
		slots[name] = i
	}
	return slots
}
