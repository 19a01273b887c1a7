// Package chunk builds and pools chunks: small units that apply one state core's GPU effect
// under one program. Chunks carry an id so consecutive chunks with the same effect can be
// skipped when the draw lists are compressed.
package chunk

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-graph/engine/core"
	"github.com/Carmen-Shannon/oxy-graph/engine/gpu"
	"github.com/Carmen-Shannon/oxy-graph/engine/renderer/pick"
	"github.com/Carmen-Shannon/oxy-graph/engine/renderer/program"
	"github.com/go-gl/mathgl/mgl32"
)

// Type identifies what a chunk applies. The first core.SlotCount types match object slots.
type Type int

const (
	TypeProgram        Type = core.SlotProgram
	TypeModelTransform Type = core.SlotModelTransform
	TypeViewTransform  Type = core.SlotViewTransform
	TypeProjection     Type = core.SlotProjection
	TypeFlags          Type = core.SlotFlags
	TypeShader         Type = core.SlotShader
	TypeShaderParams   Type = core.SlotShaderParams
	TypeName           Type = core.SlotName
	TypeLights         Type = core.SlotLights
	TypeMaterial       Type = core.SlotMaterial
	TypeTexture        Type = core.SlotTexture
	TypeFramebuffer    Type = core.SlotFramebuffer
	TypeClip           Type = core.SlotClip
	TypeMorphGeometry  Type = core.SlotMorphGeometry
	TypeListeners      Type = core.SlotListeners
	TypeGeometry       Type = core.SlotGeometry

	// TypeRenderer applies program-global raster state. It has no object slot.
	TypeRenderer Type = core.SlotCount
	typeCount         = TypeRenderer + 1
)

type typeInfo struct {
	name     string
	category core.Category
	draw     bool
	pick     bool
	unique   bool
}

var types = [typeCount]typeInfo{
	TypeProgram:        {name: "program", category: -1, draw: true, pick: true},
	TypeModelTransform: {name: "modelTransform", category: core.CategoryTransform, draw: true, pick: true},
	TypeViewTransform:  {name: "viewTransform", category: core.CategoryView, draw: true, pick: true},
	TypeProjection:     {name: "projection", category: core.CategoryProjection, draw: true, pick: true},
	TypeFlags:          {name: "flags", category: core.CategoryFlags, draw: true, pick: true},
	TypeShader:         {name: "shader", category: core.CategoryShader, draw: true},
	TypeShaderParams:   {name: "shaderParams", category: core.CategoryShaderParams, draw: true},
	TypeName:           {name: "name", category: core.CategoryName, pick: true},
	TypeLights:         {name: "lights", category: core.CategoryLights, draw: true},
	TypeMaterial:       {name: "material", category: core.CategoryMaterial, draw: true},
	TypeTexture:        {name: "texture", category: core.CategoryTexture, draw: true},
	TypeFramebuffer:    {name: "framebuffer", category: core.CategoryFramebuffer, draw: true, pick: true},
	TypeClip:           {name: "clip", category: core.CategoryClip, draw: true, pick: true},
	TypeMorphGeometry:  {name: "morphGeometry", category: core.CategoryMorphGeometry, draw: true, pick: true},
	TypeListeners:      {name: "listeners", category: core.CategoryListeners, draw: true},
	TypeGeometry:       {name: "geometry", category: core.CategoryGeometry, draw: true, pick: true, unique: true},
	TypeRenderer:       {name: "renderer", category: core.CategoryRenderer, draw: true, pick: true},
}

func (t Type) String() string {
	if t < 0 || t >= typeCount {
		return fmt.Sprintf("Type(%d)", int(t))
	}
	return types[t].name
}

// Draw reports whether chunks of type t take part in the draw pass.
func (t Type) Draw() bool { return types[t].draw }

// Pick reports whether chunks of type t take part in the pick and ray passes.
func (t Type) Pick() bool { return types[t].pick }

// Unique reports whether chunks of type t are never deduplicated against a neighbor.
func (t Type) Unique() bool { return types[t].unique }

// Category returns the state-core category applied by t. The program type has none.
func (t Type) Category() (core.Category, bool) {
	c := types[t].category
	return c, c >= 0
}

// ForSlot returns the chunk type of an object slot.
func ForSlot(slot int) Type {
	return Type(slot)
}

// ProgramStride separates the id ranges of different programs. A program can hold at most
// ProgramStride-1 distinct live cores per chunk type.
const ProgramStride = 50000

// ID derives a chunk id:
//   - unique types: stateId + 1
//   - a present, non-empty core: (program.ID + 1) * ProgramStride + local + 1
//   - a present but empty core: no chunk (ok is false)
//   - no core: (program.ID + 1) * ProgramStride, the per-program default
//
// local is the compact id the pool bound to c's state id within (type, program). State ids
// grow without bound, so they are compacted before being packed next to the program field.
//
// Parameters:
//   - unique: whether the chunk type is unique
//   - p: the object's program
//   - c: the active core for the slot, or nil
//   - local: the compact state id of c, below ProgramStride-1
//
// Returns:
//   - int64: the chunk id
//   - bool: false when the slot must be cleared
func ID(unique bool, p *program.Program, c *core.Core, local int64) (int64, bool) {
	if unique && c != nil {
		if c.Empty {
			return 0, false
		}
		return c.StateID + 1, true
	}
	base := int64(p.ID+1) * ProgramStride
	switch {
	case c == nil:
		return base, true
	case c.Empty:
		return 0, false
	default:
		return base + local + 1, true
	}
}

// Frame is the per-pass state chunks read and write while a draw list executes.
type Frame struct {
	Device gpu.Device
	Pass   gpu.Pass

	Model mgl32.Mat4
	View  mgl32.Mat4
	Proj  mgl32.Mat4

	// Raster mirrors the raster state last sent to the device.
	Raster gpu.RasterState

	// PassBlend is the blend state of the list being drawn; renderer cores without
	// explicit blending fall back to it.
	PassBlend gpu.BlendState

	// PickIndex is the last pick index handed out in this pass.
	PickIndex int

	// PickNames holds one entry per pick index; unnamed objects record nil.
	PickNames []*pick.Name

	// DrawCalls counts geometry draws issued.
	DrawCalls int
}

// NewFrame creates a frame for one pass.
//
// Parameters:
//   - device: the device draw calls go to
//   - pass: the pass being executed
//   - blend: the blend state of the list about to run
//
// Returns:
//   - *Frame: the frame with default raster state and identity matrices
func NewFrame(device gpu.Device, pass gpu.Pass, blend gpu.BlendState) *Frame {
	raster := gpu.DefaultRasterState()
	raster.Blend = blend
	return &Frame{
		Device:    device,
		Pass:      pass,
		Model:     mgl32.Ident4(),
		View:      mgl32.Ident4(),
		Proj:      mgl32.Ident4(),
		Raster:    raster,
		PassBlend: blend,
	}
}

// Chunk is one GPU state application bound to a program and a core.
type Chunk struct {
	ID      int64
	Type    Type
	Program *program.Program

	// Core is the applied core; nil for the per-program default chunk.
	Core *core.Core

	draw func(*Frame)
	pick func(*Frame)
}

// Unique reports whether c is never deduplicated.
func (c *Chunk) Unique() bool {
	return c.Type.Unique()
}

// Draws reports whether c runs in the draw pass.
func (c *Chunk) Draws() bool {
	return c.draw != nil
}

// Picks reports whether c runs in the pick and ray passes.
func (c *Chunk) Picks() bool {
	return c.pick != nil
}

// Run applies c for the frame's pass.
//
// Parameters:
//   - f: the frame being executed
func (c *Chunk) Run(f *Frame) {
	if f.Pass == gpu.PassDraw {
		if c.draw != nil {
			c.draw(f)
		}
		return
	}
	if c.pick != nil {
		c.pick(f)
	}
}
