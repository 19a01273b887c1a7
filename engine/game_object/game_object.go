package game_object

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-graph/common"
	"github.com/Carmen-Shannon/oxy-graph/engine/core"
	"github.com/Carmen-Shannon/oxy-graph/engine/light"
	"github.com/Carmen-Shannon/oxy-graph/engine/material"
	"github.com/Carmen-Shannon/oxy-graph/engine/model"
	"github.com/Carmen-Shannon/oxy-graph/engine/renderer"
	"github.com/go-gl/mathgl/mgl32"
)

var lastID atomic.Uint64

type gameObject struct {
	mu *sync.Mutex

	id   uint64
	name string
	tag  string

	mdl           model.Model
	mat           material.Material
	attachedLight light.Light

	position      mgl32.Vec3
	scale         mgl32.Vec3
	rotation      mgl32.Vec3
	rotationSpeed mgl32.Vec3
	parent        mgl32.Mat4

	transform *core.Core
	flags     *core.Core
	nameCore  *core.Core
	tagCore   *core.Core

	onChange func(renderer.Property)
}

// GameObject is a drawable leaf of a scene. It owns the per-object cores (model transform,
// flags, pick name and tag) and refers to a model for geometry and a material for surface
// state. Value changes are written into the cores in place and reported to the owning scene
// as the property they invalidate.
type GameObject interface {
	// ID returns the object's unique identifier.
	//
	// Returns:
	//   - uint64: the object ID
	ID() uint64

	// LeafID returns the identifier the display compiles this object under.
	//
	// Returns:
	//   - string: the leaf id
	LeafID() string

	// Name returns the pick name of the object.
	Name() string

	// Enabled returns whether this object is enabled for rendering.
	//
	// Returns:
	//   - bool: true if enabled
	Enabled() bool

	// Pickable returns whether this object is drawn into the pick buffer.
	Pickable() bool

	// Transparent returns whether this object is drawn in the blended pass.
	Transparent() bool

	// Model returns the Model associated with this object, or nil if not set.
	//
	// Returns:
	//   - model.Model: the associated model or nil
	Model() model.Model

	// Material returns the Material of this object, or nil to inherit from the scene.
	Material() material.Material

	// Light returns the light attached to this object, or nil.
	Light() light.Light

	// Position returns the local position.
	Position() mgl32.Vec3

	// Rotation returns the local Euler rotation in radians.
	Rotation() mgl32.Vec3

	// Scale returns the local scale.
	Scale() mgl32.Vec3

	// RotationSpeed returns the Euler rotation applied per second by Tick.
	RotationSpeed() mgl32.Vec3

	// LocalMatrix returns the translate * rotate * scale matrix.
	LocalMatrix() mgl32.Mat4

	// WorldMatrix returns the parent matrix times the local matrix.
	WorldMatrix() mgl32.Mat4

	// TransformCore returns the model transform core.
	TransformCore() *core.Core

	// FlagsCore returns the flags core.
	FlagsCore() *core.Core

	// NameCore returns the pick name core.
	NameCore() *core.Core

	// TagCore returns the tag core, or nil when the object is untagged.
	TagCore() *core.Core

	// SetEnabled sets whether the object is enabled for rendering.
	//
	// Parameters:
	//   - enabled: true to enable
	SetEnabled(enabled bool)

	// SetPickable sets whether the object is drawn into the pick buffer.
	SetPickable(pickable bool)

	// SetTransparent sets whether the object is drawn in the blended pass.
	SetTransparent(transparent bool)

	// SetBackfaces sets whether back faces are drawn.
	SetBackfaces(backfaces bool)

	// SetTag replaces the tag. An empty tag removes it.
	SetTag(tag string)

	// SetModel assigns a Model to this object.
	SetModel(m model.Model)

	// SetMaterial assigns a Material to this object.
	SetMaterial(m material.Material)

	// SetLight attaches a light that follows the object's world position.
	SetLight(l light.Light)

	// SetPosition sets the local position.
	SetPosition(p mgl32.Vec3)

	// SetRotation sets the local Euler rotation in radians.
	SetRotation(r mgl32.Vec3)

	// SetScale sets the local scale.
	SetScale(s mgl32.Vec3)

	// SetRotationSpeed sets the Euler rotation applied per second by Tick.
	SetRotationSpeed(r mgl32.Vec3)

	// SetMorphFactor blends the model towards its morph target.
	SetMorphFactor(f float32)

	// SetParentMatrix sets the world matrix of the enclosing group and refreshes the
	// transform core.
	//
	// Parameters:
	//   - m: the parent world matrix
	SetParentMatrix(m mgl32.Mat4)

	// Tick advances the rotation by the rotation speed.
	//
	// Parameters:
	//   - dt: the elapsed time in seconds
	//
	// Returns:
	//   - bool: true if the transform changed
	Tick(dt float32) bool

	// SetChangeFunc installs the callback that receives invalidated properties. Scenes set
	// this when the object is added.
	SetChangeFunc(f func(renderer.Property))
}

var _ GameObject = &gameObject{}

// NewGameObject creates a game object with identity transform, enabled and pickable flags and
// a name derived from its id.
//
// Parameters:
//   - options: functional options
//
// Returns:
//   - GameObject: the object
func NewGameObject(options ...GameObjectBuilderOption) GameObject {
	g := &gameObject{
		mu:     &sync.Mutex{},
		id:     lastID.Add(1),
		scale:  mgl32.Vec3{1, 1, 1},
		parent: mgl32.Ident4(),
		flags:  core.NewFlags(core.DefaultFlags()),
	}
	for _, opt := range options {
		opt(g)
	}
	if g.name == "" {
		g.name = fmt.Sprintf("object-%d", g.id)
	}
	g.nameCore = core.NewName(g.name, g.name, g.LeafID())
	if g.tag != "" {
		g.tagCore = core.NewTag(g.tag)
	}
	world := g.world()
	g.transform = core.NewTransform(world)
	g.moveLight(world)
	return g
}

func (g *gameObject) ID() uint64 {
	return g.id
}

func (g *gameObject) LeafID() string {
	return fmt.Sprintf("obj-%d", g.id)
}

func (g *gameObject) Name() string {
	return g.name
}

func (g *gameObject) flagsPayload() *core.Flags {
	f, _ := core.As[*core.Flags](g.flags)
	return f
}

func (g *gameObject) Enabled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.flagsPayload().Enabled
}

func (g *gameObject) Pickable() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.flagsPayload().Pickable
}

func (g *gameObject) Transparent() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.flagsPayload().Transparent
}

func (g *gameObject) Model() model.Model {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mdl
}

func (g *gameObject) Material() material.Material {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mat
}

func (g *gameObject) Light() light.Light {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.attachedLight
}

func (g *gameObject) Position() mgl32.Vec3 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.position
}

func (g *gameObject) Rotation() mgl32.Vec3 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rotation
}

func (g *gameObject) Scale() mgl32.Vec3 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.scale
}

func (g *gameObject) RotationSpeed() mgl32.Vec3 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rotationSpeed
}

func (g *gameObject) LocalMatrix() mgl32.Mat4 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.local()
}

func (g *gameObject) WorldMatrix() mgl32.Mat4 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.world()
}

func (g *gameObject) TransformCore() *core.Core { return g.transform }
func (g *gameObject) FlagsCore() *core.Core     { return g.flags }
func (g *gameObject) NameCore() *core.Core      { return g.nameCore }

func (g *gameObject) TagCore() *core.Core {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tagCore
}

// setFlag applies f to the flags payload and reports p if the value changed.
func (g *gameObject) setFlag(p renderer.Property, f func(*core.Flags) bool) {
	g.mu.Lock()
	changed := f(g.flagsPayload())
	g.mu.Unlock()
	if changed {
		g.notify(p)
	}
}

func (g *gameObject) SetEnabled(enabled bool) {
	g.setFlag(renderer.PropertyVisibility, func(f *core.Flags) bool {
		old := f.Enabled
		f.Enabled = enabled
		return old != enabled
	})
}

func (g *gameObject) SetPickable(pickable bool) {
	g.setFlag(renderer.PropertyPickable, func(f *core.Flags) bool {
		old := f.Pickable
		f.Pickable = pickable
		return old != pickable
	})
}

func (g *gameObject) SetTransparent(transparent bool) {
	g.setFlag(renderer.PropertyTransparency, func(f *core.Flags) bool {
		old := f.Transparent
		f.Transparent = transparent
		return old != transparent
	})
}

func (g *gameObject) SetBackfaces(backfaces bool) {
	g.setFlag(renderer.PropertyOther, func(f *core.Flags) bool {
		old := f.Backfaces
		f.Backfaces = backfaces
		return old != backfaces
	})
}

func (g *gameObject) SetTag(tag string) {
	g.mu.Lock()
	if tag == g.tag {
		g.mu.Unlock()
		return
	}
	g.tag = tag
	g.tagCore = nil
	if tag != "" {
		g.tagCore = core.NewTag(tag)
	}
	g.mu.Unlock()
	g.notify(renderer.PropertyStructure)
}

func (g *gameObject) SetModel(m model.Model) {
	g.mu.Lock()
	g.mdl = m
	g.mu.Unlock()
	g.notify(renderer.PropertyStructure)
}

func (g *gameObject) SetMaterial(m material.Material) {
	g.mu.Lock()
	g.mat = m
	g.mu.Unlock()
	g.notify(renderer.PropertyStructure)
}

func (g *gameObject) SetLight(l light.Light) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.attachedLight = l
	g.moveLight(g.world())
}

// setTRS applies f to the transform and refreshes the transform core.
func (g *gameObject) setTRS(f func()) {
	g.mu.Lock()
	f()
	g.refresh()
	g.mu.Unlock()
	g.notify(renderer.PropertyTransform)
}

func (g *gameObject) SetPosition(p mgl32.Vec3) {
	g.setTRS(func() { g.position = p })
}

func (g *gameObject) SetRotation(r mgl32.Vec3) {
	g.setTRS(func() { g.rotation = r })
}

func (g *gameObject) SetScale(s mgl32.Vec3) {
	g.setTRS(func() { g.scale = s })
}

func (g *gameObject) SetRotationSpeed(r mgl32.Vec3) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rotationSpeed = r
}

func (g *gameObject) SetMorphFactor(f float32) {
	m := g.Model()
	if m == nil {
		return
	}
	m.SetMorphFactor(f)
	g.notify(renderer.PropertyOther)
}

func (g *gameObject) SetParentMatrix(m mgl32.Mat4) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.parent = m
	g.refresh()
}

func (g *gameObject) Tick(dt float32) bool {
	g.mu.Lock()
	if g.rotationSpeed == (mgl32.Vec3{}) || dt <= 0 {
		g.mu.Unlock()
		return false
	}
	g.rotation = g.rotation.Add(g.rotationSpeed.Mul(dt))
	g.refresh()
	g.mu.Unlock()
	g.notify(renderer.PropertyTransform)
	return true
}

func (g *gameObject) SetChangeFunc(f func(renderer.Property)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onChange = f
}

func (g *gameObject) notify(p renderer.Property) {
	g.mu.Lock()
	f := g.onChange
	g.mu.Unlock()
	if f != nil {
		f(p)
	}
}

func (g *gameObject) local() mgl32.Mat4 {
	r := mgl32.AnglesToQuat(g.rotation[0], g.rotation[1], g.rotation[2], mgl32.XYZ).Mat4()
	return mgl32.Translate3D(g.position[0], g.position[1], g.position[2]).
		Mul4(r).
		Mul4(mgl32.Scale3D(g.scale[0], g.scale[1], g.scale[2]))
}

func (g *gameObject) world() mgl32.Mat4 {
	return g.parent.Mul4(g.local())
}

// refresh writes the world matrix into the transform core and moves the attached light.
func (g *gameObject) refresh() {
	world := g.world()
	if t, ok := core.As[*core.Transform](g.transform); ok {
		t.Matrix = world
		t.Normal = common.NormalMatrix(world)
	}
	g.moveLight(world)
}

func (g *gameObject) moveLight(world mgl32.Mat4) {
	if g.attachedLight != nil {
		g.attachedLight.SetPosition(world.Col(3).Vec3())
	}
}
