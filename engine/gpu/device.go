// Package gpu defines the narrow GPU capability set the render-graph core calls through.
// Backends (wgpudevice, softdevice, gputest) implement Device; the core never touches a
// graphics API directly.
package gpu

import (
	"github.com/Carmen-Shannon/oxy-graph/common"
	"github.com/go-gl/mathgl/mgl32"
)

// ProgramHandle identifies a compiled program (draw, pick and ray variants) on a device.
type ProgramHandle uint32

// BufferHandle identifies a vertex or index buffer on a device.
type BufferHandle uint32

// TextureHandle identifies a sampled texture on a device.
type TextureHandle uint32

// TargetHandle identifies an offscreen color+depth render target. CanvasTarget is the visible surface.
type TargetHandle uint32

// CanvasTarget is the handle of the visible surface. It is never created or deleted.
const CanvasTarget TargetHandle = 0

// Pass selects which program variant UseProgram binds.
type Pass int

const (
	// PassDraw renders shaded color.
	PassDraw Pass = iota

	// PassPick renders flat colors encoding the current pick index.
	PassPick

	// PassRay renders packed fragment depth for world-position reconstruction.
	PassRay
)

func (p Pass) String() string {
	switch p {
	case PassDraw:
		return "draw"
	case PassPick:
		return "pick"
	case PassRay:
		return "ray"
	default:
		return "unknown"
	}
}

// Uniform is the closed set of built-in program inputs.
type Uniform int

const (
	UniformModelMatrix Uniform = iota
	UniformNormalMatrix
	UniformViewMatrix
	UniformProjMatrix
	UniformBaseColor
	UniformEmissive
	UniformSpecular
	UniformEye
	UniformPickColor
	UniformAlpha
	UniformMorphFactor
	uniformCount
)

// UniformCount is the number of built-in uniforms.
const UniformCount = int(uniformCount)

// LightType mirrors the light kinds a program can shade with.
type LightType int

const (
	LightAmbient LightType = iota
	LightDirectional
	LightPoint
	LightSpot
)

// LightData is the packed per-light input of the draw pass.
type LightData struct {
	Type      LightType
	Position  mgl32.Vec3
	Direction mgl32.Vec3
	Color     mgl32.Vec3
	Intensity float32
	Range     float32
	InnerCone float32
	OuterCone float32
}

// Features lists the shader-relevant properties a program is generated for.
type Features struct {
	Normals      bool
	Texture      bool
	VertexColors bool
	Morph        bool
	MorphNormals bool
	Lights       int
	ClipPlanes   int

	// Custom is a WGSL snippet defining shade_custom; CustomParams names the params it reads.
	Custom       string
	CustomParams []string
}

// ProgramSource carries the generated WGSL modules of the three program variants.
// Each module defines vs_main and fs_main.
type ProgramSource struct {
	Hash     string
	Features Features
	Draw     string
	Pick     string
	Ray      string
}

// GeometryBinding names the buffers a draw call reads.
type GeometryBinding struct {
	Positions  BufferHandle
	Normals    BufferHandle
	UVs        BufferHandle
	Colors     BufferHandle
	Indices    BufferHandle
	IndexCount int
}

// ClearValue requests a color and depth clear when a pass begins.
type ClearValue struct {
	Color mgl32.Vec4
}

// Device is the narrow, GL-style capability set the render-graph core drives.
// All calls happen on one goroutine; implementations are not required to be safe for concurrent use.
type Device interface {
	// Size returns the canvas size in pixels.
	//
	// Returns:
	//   - width, height: the visible surface dimensions
	Size() (width, height int)

	// ContextLost reports whether the device context is currently lost.
	//
	// Returns:
	//   - bool: true while the context is lost
	ContextLost() bool

	// CompileProgram compiles the draw, pick and ray variants of a program.
	// Variants already created are released when a later one fails.
	//
	// Parameters:
	//   - src: the generated sources and feature set
	//
	// Returns:
	//   - ProgramHandle: the compiled program
	//   - error: a KindShaderCompile or KindContextLost *Error on failure
	CompileProgram(src ProgramSource) (ProgramHandle, error)

	// DeleteProgram releases a compiled program.
	//
	// Parameters:
	//   - h: the program to release
	DeleteProgram(h ProgramHandle)

	// UseProgram binds a program variant for subsequent draws.
	//
	// Parameters:
	//   - h: the program
	//   - pass: which variant to bind
	UseProgram(h ProgramHandle, pass Pass)

	// SetMatrix sets a matrix uniform.
	SetMatrix(u Uniform, m mgl32.Mat4)

	// SetVector sets a vector uniform.
	SetVector(u Uniform, v mgl32.Vec4)

	// SetScalar sets a scalar uniform.
	SetScalar(u Uniform, v float32)

	// SetShaderParam sets a named custom shader parameter.
	SetShaderParam(name string, value []float32)

	// SetLights uploads the lights used by subsequent draws.
	SetLights(lights []LightData)

	// SetClipPlanes uploads world-space clip planes (ax+by+cz+d >= 0 keeps a fragment).
	SetClipPlanes(planes []mgl32.Vec4)

	// CreateVertexBuffer uploads float vertex attribute data.
	//
	// Parameters:
	//   - data: the attribute values
	//
	// Returns:
	//   - BufferHandle: the created buffer
	//   - error: a KindAllocation *Error on failure
	CreateVertexBuffer(data []float32) (BufferHandle, error)

	// CreateIndexBuffer uploads index data.
	//
	// Parameters:
	//   - data: the indices
	//
	// Returns:
	//   - BufferHandle: the created buffer
	//   - error: a KindAllocation *Error on failure
	CreateIndexBuffer(data []uint32) (BufferHandle, error)

	// DeleteBuffer releases a vertex or index buffer.
	DeleteBuffer(h BufferHandle)

	// CreateTexture uploads RGBA pixel data.
	//
	// Parameters:
	//   - data: the staged pixels
	//
	// Returns:
	//   - TextureHandle: the created texture
	//   - error: a KindAllocation *Error on failure
	CreateTexture(data common.TextureStagingData) (TextureHandle, error)

	// DeleteTexture releases a texture.
	DeleteTexture(h TextureHandle)

	// BindTexture binds a texture to a sampler unit.
	BindTexture(unit int, h TextureHandle)

	// BindGeometry binds the vertex and index buffers of the next draw.
	BindGeometry(g GeometryBinding)

	// BindMorphTarget binds the second keyframe of a morphing geometry. Zero handles unbind it.
	BindMorphTarget(positions, normals BufferHandle)

	// Draw issues an indexed draw of count indices with the bound state.
	Draw(prim Primitive, count int)

	// SetBlend sets the blend state.
	SetBlend(b BlendState)

	// SetDepth sets the depth state.
	SetDepth(d DepthState)

	// SetCullMode sets face culling.
	SetCullMode(c CullMode)

	// SetFrontFace sets the front-facing winding.
	SetFrontFace(f FrontFace)

	// SetColorMask sets which color channels are written.
	SetColorMask(mask [4]bool)

	// SetLineWidth sets the width of line primitives.
	SetLineWidth(w float32)

	// CreateTarget allocates an offscreen color+depth target.
	// A color attachment created before a failing depth attachment is released.
	//
	// Parameters:
	//   - width, height: the target size in pixels
	//
	// Returns:
	//   - TargetHandle: the created target
	//   - error: a KindAllocation *Error on failure
	CreateTarget(width, height int) (TargetHandle, error)

	// DeleteTarget releases an offscreen target.
	DeleteTarget(h TargetHandle)

	// BeginPass starts rendering into a target, optionally clearing color and depth first.
	// Every pass starts from DefaultRasterState.
	//
	// Parameters:
	//   - target: the target to render into (CanvasTarget for the visible surface)
	//   - clear: the clear request, or nil to keep existing contents
	//
	// Returns:
	//   - error: an error if the target cannot be bound
	BeginPass(target TargetHandle, clear *ClearValue) error

	// EndPass finishes the current pass and submits its work.
	//
	// Returns:
	//   - error: an error if submission fails
	EndPass() error

	// Finish blocks until all submitted work has completed.
	Finish()

	// ReadPixel reads one RGBA pixel from a target. Coordinates have a top-left origin.
	//
	// Parameters:
	//   - target: the target to read
	//   - x, y: the pixel coordinates
	//
	// Returns:
	//   - [4]uint8: the pixel's r, g, b, a bytes
	//   - error: an error if the readback fails or the coordinates are outside the target
	ReadPixel(target TargetHandle, x, y int) ([4]uint8, error)

	// Present displays the last completed canvas pass.
	Present()
}
