// Package object pools the compiled per-leaf render objects the display sorts and schedules.
package object

import (
	"github.com/Carmen-Shannon/oxy-graph/engine/core"
	"github.com/Carmen-Shannon/oxy-graph/engine/renderer/chunk"
	"github.com/Carmen-Shannon/oxy-graph/engine/renderer/program"
)

// Sort key field weights.
const (
	LayerWeight   = 100000000
	ProgramWeight = 100000
	TextureWeight = 1000

	// NoProgram is the sort key of an object without a program. Such objects never draw.
	NoProgram int64 = -1
)

// Field limits. Larger values saturate so they never carry into the field above.
const (
	maxProgramField = LayerWeight/ProgramWeight - 1
	maxTextureField = ProgramWeight/TextureWeight - 1
)

// Object is the compiled record of one renderable leaf.
type Object struct {
	// ID is the leaf id the object was built for.
	ID string

	Program *program.Program

	// Hash is the shader selection hash Program was acquired for.
	Hash string

	// Chunks holds one chunk per slot; zero handles are cleared slots.
	Chunks [core.SlotCount]chunk.Handle

	// Renderer is the handle of the out-of-slot renderer chunk.
	Renderer chunk.Handle

	SortKey int64

	// TextureKey is the compact id of Texture the display assigned, 0 without a texture.
	TextureKey int64

	// Cores read directly by the scheduler.
	Layer       *core.Core
	Tag         *core.Core
	Flags       *core.Core
	RenderState *core.Core
	Texture     *core.Core
	View        *core.Core
	Projection  *core.Core

	handle Handle
}

// Handle returns the arena handle of o.
func (o *Object) Handle() Handle {
	return o.handle
}

// ComputeSortKey derives the sort key from the program, layer and texture key:
// (layer+1)*1e8 + (program+1)*1e5 + textureKey*1e3, or NoProgram without a program.
//
// Returns:
//   - int64: the sort key, also stored in SortKey
func (o *Object) ComputeSortKey() int64 {
	if o.Program == nil {
		o.SortKey = NoProgram
		return o.SortKey
	}
	o.SortKey = SortKey(o.LayerPriority(), o.Program.ID, o.TextureKey)
	return o.SortKey
}

// SortKey combines the three sort fields. The program and texture fields saturate at their
// width, so objects stay grouped by layer first and program second however large the ids get.
//
// Parameters:
//   - layerPriority: the priority of the object's layer
//   - programID: the id of the object's program
//   - textureKey: the compact id of the object's texture, or 0
//
// Returns:
//   - int64: the sort key
func SortKey(layerPriority, programID int, textureKey int64) int64 {
	prog := min(int64(programID+1), maxProgramField)
	tex := min(max(textureKey, 0), maxTextureField)
	return int64(layerPriority+1)*LayerWeight + prog*ProgramWeight + tex*TextureWeight
}

// LayerPriority returns the priority of the object's layer, 0 without a layer core.
func (o *Object) LayerPriority() int {
	if l, ok := core.As[*core.Layer](o.Layer); ok {
		return l.Priority
	}
	return 0
}

// LayerEnabled reports whether the object's layer is enabled.
func (o *Object) LayerEnabled() bool {
	if l, ok := core.As[*core.Layer](o.Layer); ok {
		return l.Enabled
	}
	return true
}

// FlagValues returns the object's flags, or the defaults without a flags core.
func (o *Object) FlagValues() core.Flags {
	if f, ok := core.As[*core.Flags](o.Flags); ok {
		return *f
	}
	return core.DefaultFlags()
}

// TagName returns the object's tag, or nil when it has none.
func (o *Object) TagName() *core.Tag {
	if t, ok := core.As[*core.Tag](o.Tag); ok && !o.Tag.Empty {
		return t
	}
	return nil
}
