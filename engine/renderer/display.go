// Package renderer compiles the state cores active at each visited leaf into sorted,
// run-length compressed draw lists and executes them against a gpu.Device, re-running only
// the pipeline stages a change invalidated.
package renderer

import (
	"fmt"
	"image"
	"image/color"
	"regexp"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-graph/common"
	"github.com/Carmen-Shannon/oxy-graph/engine/core"
	"github.com/Carmen-Shannon/oxy-graph/engine/gpu"
	"github.com/Carmen-Shannon/oxy-graph/engine/renderer/chunk"
	"github.com/Carmen-Shannon/oxy-graph/engine/renderer/object"
	"github.com/Carmen-Shannon/oxy-graph/engine/renderer/pick"
	"github.com/Carmen-Shannon/oxy-graph/engine/renderer/program"
	"github.com/go-gl/mathgl/mgl32"
)

// RenderOptions tune a single Render call.
type RenderOptions struct {
	// Force draws the image even when no stage is dirty.
	Force bool

	// NoClear keeps the previous canvas contents instead of clearing.
	NoClear bool

	// OpaqueOnly skips the transparent list.
	OpaqueOnly bool
}

// PickOptions tune a single Pick call.
type PickOptions struct {
	// Ray additionally reconstructs the world position of the hit.
	Ray bool
}

// DrawStats are display counters. The run counts are cumulative; the list sizes describe the
// draw lists built last.
type DrawStats struct {
	// StageRuns counts the executions of each pipeline stage.
	StageRuns [stageCount]int64

	// Frames counts the images drawn to the canvas.
	Frames int64

	// Picks counts Pick calls that reached the pick buffers.
	Picks int64

	// DrawCalls counts the geometry draws issued into the canvas.
	DrawCalls int64

	// OpaqueChunks, TransparentChunks and PickChunks are the chunk counts of each list after
	// compression.
	OpaqueChunks      int
	TransparentChunks int
	PickChunks        int

	// OpaqueObjects, TransparentObjects and PickObjects are the objects scheduled into each list.
	OpaqueObjects      int
	TransparentObjects int
	PickObjects        int

	// Objects is the number of live objects, scheduled or not.
	Objects int
}

// display is the implementation of the Display interface.
type display struct {
	mu *sync.Mutex

	device   gpu.Device
	programs program.Cache
	chunks   chunk.Pool
	objects  object.Pool

	traversal *TraversalState

	// textureKeys compacts texture state ids for the sort key, counted per object.
	textureKeys *core.IDTable

	transparentCanvas bool
	clearColor        mgl32.Vec4
	observer          func(Stage)

	dirty DirtyFlags
	lost  bool

	objectList      []*object.Object
	opaqueList      []*chunk.Chunk
	transparentList []*chunk.Chunk
	pickList        []*chunk.Chunk
	transparentObjs []*object.Object
	opaqueObjs      int
	pickObjs        int

	tagFilter *regexp.Regexp
	tagMask   uint64

	pickBuf   *pick.Buffer
	rayBuf    *pick.Buffer
	readBuf   *pick.Buffer
	pickNames []*pick.Name

	stats DrawStats
}

// Display is the render graph engine: it records the cores active during a traversal, compiles
// leaves into objects and schedules their chunks into draw lists.
//
// All methods must be called from the goroutine that owns the device.
type Display interface {
	// Traversal returns the active-core registers BuildObject reads.
	//
	// Returns:
	//   - *TraversalState: the traversal state owned by the display
	Traversal() *TraversalState

	// SetActiveCore records c as the active core of cat.
	//
	// Parameters:
	//   - cat: the category
	//   - c: the core in scope, or nil to clear the category
	SetActiveCore(cat core.Category, c *core.Core)

	// BuildObject compiles the leaf from the active cores. The object is created on first visit
	// and updated in place afterwards; its program is swapped when the shader selection hash
	// changes. An ambient light among the active lights sets the clear color.
	//
	// Parameters:
	//   - leafID: the id of the visited leaf
	//
	// Returns:
	//   - error: a configuration or shader compile error
	BuildObject(leafID string) error

	// RemoveObject releases the object of a leaf. Unknown leaves are ignored.
	//
	// Parameters:
	//   - leafID: the id of the removed leaf
	RemoveObject(leafID string)

	// SelectTags restricts drawing to objects whose tag matches pattern. Untagged objects are
	// always drawn. An empty pattern removes the filter.
	//
	// Parameters:
	//   - pattern: a regular expression matched against tag names
	//
	// Returns:
	//   - error: the regexp compile error
	SelectTags(pattern string) error

	// MarkDirty marks a stage and every later stage dirty.
	//
	// Parameters:
	//   - s: the earliest invalidated stage
	MarkDirty(s Stage)

	// Invalidate marks the earliest stage a property change affects.
	//
	// Parameters:
	//   - p: the changed property
	Invalidate(p Property)

	// Dirty returns the dirty stages.
	Dirty() DirtyFlags

	// Render runs the dirty stages and, when the image is dirty or opts.Force is set, draws the
	// opaque list followed by the blended transparent list.
	//
	// Parameters:
	//   - opts: render options
	//
	// Returns:
	//   - error: the first device or build error
	Render(opts RenderOptions) error

	// Pick renders the visible image, refreshes the pick buffer if stale and decodes the object
	// under the canvas coordinate.
	//
	// Parameters:
	//   - x, y: canvas coordinates with a top-left origin
	//   - opts: pick options
	//
	// Returns:
	//   - *pick.Hit: the hit, or nil when nothing named is under the point
	//   - error: a device error
	Pick(x, y int, opts PickOptions) (*pick.Hit, error)

	// ReadPixels force-renders the draw lists into an offscreen buffer and samples each point.
	//
	// Parameters:
	//   - points: canvas coordinates with a top-left origin
	//
	// Returns:
	//   - []color.NRGBA: one color per point
	//   - error: a device error
	ReadPixels(points []image.Point) ([]color.NRGBA, error)

	// ContextRestored recompiles programs, rebuilds chunk closures and drops the offscreen
	// buffers after the device context came back. The image is marked dirty.
	//
	// Returns:
	//   - error: a compile or build error
	ContextRestored() error

	// ClearColor returns the color the canvas is cleared to.
	ClearColor() mgl32.Vec4

	// Stats returns the display counters.
	Stats() DrawStats

	// Release deletes the offscreen buffers and drops every object.
	Release()
}

var _ Display = &display{}

// NewDisplay creates a display drawing through device.
//
// Parameters:
//   - device: the GPU device
//   - options: functional options
//
// Returns:
//   - Display: the display with every stage dirty
func NewDisplay(device gpu.Device, options ...DisplayBuilderOption) Display {
	d := &display{
		mu:          &sync.Mutex{},
		device:      device,
		traversal:   &TraversalState{},
		textureKeys: core.NewIDTable(),
		clearColor:  mgl32.Vec4{0, 0, 0, 1},
		dirty:       from(StageObjectList),
	}
	for _, opt := range options {
		opt(d)
	}
	if d.programs == nil {
		d.programs = program.NewCache(device)
	}
	if d.chunks == nil {
		d.chunks = chunk.NewPool()
	}
	if d.objects == nil {
		d.objects = object.NewPool()
	}
	d.pickBuf = pick.NewBuffer(device, "pick")
	d.rayBuf = pick.NewBuffer(device, "ray")
	d.readBuf = pick.NewBuffer(device, "read")
	return d
}

func (d *display) Traversal() *TraversalState {
	return d.traversal
}

func (d *display) SetActiveCore(cat core.Category, c *core.Core) {
	d.traversal.Set(cat, c)
}

// shaderCategories are the categories whose hash fragments select a program.
var shaderCategories = []core.Category{
	core.CategoryGeometry,
	core.CategoryShader,
	core.CategoryClip,
	core.CategoryMorphGeometry,
	core.CategoryTexture,
	core.CategoryLights,
}

// shaderHash concatenates the hash fragments of the active shader-relevant cores.
func (d *display) shaderHash() string {
	parts := make([]string, 0, len(shaderCategories))
	for _, cat := range shaderCategories {
		if h := core.HashOf(d.traversal.Get(cat)); h != "" {
			parts = append(parts, h)
		}
	}
	return strings.Join(parts, ";")
}

// features derives the program features from the active cores.
func (d *display) features() gpu.Features {
	var f gpu.Features
	geo, _ := core.As[*core.Geometry](d.traversal.Get(core.CategoryGeometry))
	if geo != nil {
		f.Normals = geo.Normals != 0
		f.VertexColors = geo.Colors != 0
	}
	if tc := d.traversal.Get(core.CategoryTexture); tc != nil && !tc.Empty && geo != nil && geo.UVs != 0 {
		f.Texture = true
	}
	if mc := d.traversal.Get(core.CategoryMorphGeometry); mc != nil && !mc.Empty {
		m, _ := core.As[*core.MorphGeometry](mc)
		f.Morph = true
		f.MorphNormals = m.Normals != 0 && f.Normals
	}
	if lc := d.traversal.Get(core.CategoryLights); lc != nil && !lc.Empty {
		l, _ := core.As[*core.Lights](lc)
		f.Lights = len(l.Lights)
	}
	if cc := d.traversal.Get(core.CategoryClip); cc != nil && !cc.Empty {
		c, _ := core.As[*core.Clip](cc)
		f.ClipPlanes = len(c.Planes)
	}
	if sc := d.traversal.Get(core.CategoryShader); sc != nil && !sc.Empty {
		s, _ := core.As[*core.Shader](sc)
		f.Custom = s.Snippet
		f.CustomParams = s.Params
	}
	return f
}

func (d *display) BuildObject(leafID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	obj, created := d.objects.Get(leafID)
	if created {
		d.markDirty(StageObjectList)
	}

	hash := d.shaderHash()
	if obj.Program == nil || obj.Hash != hash {
		// Acquire before releasing so a program shared with the old hash is never torn down
		// and its id never reused while chunks keyed by it are live.
		next, err := d.programs.Get(hash, d.features())
		if err != nil {
			return fmt.Errorf("failed to build object %q: %w", leafID, err)
		}
		old := obj.Program
		obj.Program, obj.Hash = next, hash
		if old != nil {
			d.releaseChunks(obj)
			d.programs.Put(old)
		}
		d.markDirty(StageStateOrder)
	}

	if obj.Program == nil {
		// Lost context: the object stays programless until rebuilt after a restore.
		d.releaseChunks(obj)
		obj.Hash = ""
		obj.ComputeSortKey()
		return nil
	}

	drawChanged := false
	for slot := 0; slot < core.SlotCount; slot++ {
		var c *core.Core
		if cat, ok := core.SlotCategory(slot); ok {
			c = d.traversal.Get(cat)
		}
		h, err := d.chunks.Get(chunk.ForSlot(slot), obj.Program, c)
		if err != nil {
			return fmt.Errorf("failed to build object %q slot %d: %w", leafID, slot, err)
		}
		if h != obj.Chunks[slot] {
			drawChanged = true
		}
		d.chunks.Put(obj.Chunks[slot])
		obj.Chunks[slot] = h
	}

	rc := d.traversal.Get(core.CategoryRenderer)
	rh, err := d.chunks.Get(chunk.TypeRenderer, obj.Program, rc)
	if err != nil {
		return fmt.Errorf("failed to build object %q renderer: %w", leafID, err)
	}
	if rh != obj.Renderer {
		drawChanged = true
	}
	d.chunks.Put(obj.Renderer)
	obj.Renderer = rh

	layer := d.traversal.Get(core.CategoryLayer)
	texture := d.traversal.Get(core.CategoryTexture)
	if obj.Texture != texture {
		d.setTexture(obj, texture)
		d.markDirty(StageStateOrder)
	}
	if obj.Layer != layer {
		d.markDirty(StageStateOrder)
	}
	flags := d.traversal.Get(core.CategoryFlags)
	tag := d.traversal.Get(core.CategoryTag)
	if obj.Flags != flags || obj.Tag != tag || obj.RenderState != rc {
		drawChanged = true
	}
	obj.Layer = layer
	obj.Flags = flags
	obj.Tag = tag
	obj.RenderState = rc
	obj.View = d.traversal.Get(core.CategoryView)
	obj.Projection = d.traversal.Get(core.CategoryProjection)
	if drawChanged {
		d.markDirty(StageDrawList)
	}

	if l, ok := core.As[*core.Lights](d.traversal.Get(core.CategoryLights)); ok {
		if ambient, found := l.Ambient(); found {
			c := ambient.Vec4(1)
			if c != d.clearColor {
				d.clearColor = c
				d.markDirty(StageImage)
			}
		}
	}
	return nil
}

// setTexture points obj at texture and moves its texture key reference along.
func (d *display) setTexture(obj *object.Object, texture *core.Core) {
	if obj.Texture != nil && !obj.Texture.Empty {
		d.textureKeys.Release(obj.Texture.StateID)
	}
	obj.Texture, obj.TextureKey = texture, 0
	if texture != nil && !texture.Empty {
		obj.TextureKey = d.textureKeys.Acquire(texture.StateID) + 1
	}
}

// releaseChunks returns every chunk of obj to the pool.
func (d *display) releaseChunks(obj *object.Object) {
	for i, h := range obj.Chunks {
		d.chunks.Put(h)
		obj.Chunks[i] = chunk.Handle{}
	}
	d.chunks.Put(obj.Renderer)
	obj.Renderer = chunk.Handle{}
}

func (d *display) RemoveObject(leafID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	obj := d.objects.Put(leafID)
	if obj == nil {
		return
	}
	d.releaseChunks(obj)
	d.setTexture(obj, nil)
	if obj.Program != nil {
		d.programs.Put(obj.Program)
		obj.Program = nil
	}
	obj.Hash = ""
	d.markDirty(StageObjectList)
}

func (d *display) SelectTags(pattern string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if pattern == "" {
		d.tagFilter = nil
	} else {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("failed to compile tag filter: %w", err)
		}
		d.tagFilter = re
	}
	d.tagMask++
	d.markDirty(StageDrawList)
	return nil
}

func (d *display) markDirty(s Stage) {
	d.dirty |= from(s)
}

func (d *display) MarkDirty(s Stage) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.markDirty(s)
}

func (d *display) Invalidate(p Property) {
	d.MarkDirty(StageFor(p))
}

func (d *display) Dirty() DirtyFlags {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dirty
}

func (d *display) ClearColor() mgl32.Vec4 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.canvasClear()
}

func (d *display) canvasClear() mgl32.Vec4 {
	if d.transparentCanvas {
		return mgl32.Vec4{}
	}
	return d.clearColor
}

func (d *display) Stats() DrawStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.stats
	s.OpaqueChunks = len(d.opaqueList)
	s.TransparentChunks = len(d.transparentList)
	s.PickChunks = len(d.pickList)
	s.OpaqueObjects = d.opaqueObjs
	s.TransparentObjects = len(d.transparentObjs)
	s.PickObjects = d.pickObjs
	s.Objects = d.objects.Len()
	return s
}

// checkContext drops the offscreen buffers the first time a lost context is seen.
//
// Returns:
//   - bool: true while the context is lost
func (d *display) checkContext() bool {
	if !d.device.ContextLost() {
		return false
	}
	if !d.lost {
		d.lost = true
		d.pickBuf.Drop()
		d.rayBuf.Drop()
		d.readBuf.Drop()
		d.markDirty(StageImage)
		common.Logger().Info("display context lost")
	}
	return true
}

func (d *display) ContextRestored() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.programs.ContextRestored(); err != nil {
		return fmt.Errorf("failed to restore programs: %w", err)
	}
	if err := d.chunks.ContextRestored(); err != nil {
		return fmt.Errorf("failed to restore chunks: %w", err)
	}
	d.pickBuf.Drop()
	d.rayBuf.Drop()
	d.readBuf.Drop()
	d.lost = false
	d.markDirty(StageImage)
	common.Logger().Info("display context restored", "programs", d.programs.Stats().Live, "chunks", d.chunks.Len())
	return nil
}

func (d *display) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()

	var ids []string
	d.objects.Each(func(o *object.Object) { ids = append(ids, o.ID) })
	for _, id := range ids {
		obj := d.objects.Put(id)
		d.releaseChunks(obj)
		d.setTexture(obj, nil)
		if obj.Program != nil {
			d.programs.Put(obj.Program)
			obj.Program = nil
		}
	}
	d.pickBuf.Release()
	d.rayBuf.Release()
	d.readBuf.Release()
	d.objectList = nil
	d.opaqueList, d.transparentList, d.pickList = nil, nil, nil
	d.transparentObjs, d.opaqueObjs, d.pickObjs = nil, 0, 0
	d.markDirty(StageObjectList)
}
