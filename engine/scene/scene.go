// Package scene holds a tree of groups and game objects and walks it into a render graph
// display, compiling one display object per drawable game object.
package scene

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-graph/common"
	"github.com/Carmen-Shannon/oxy-graph/engine/camera"
	"github.com/Carmen-Shannon/oxy-graph/engine/core"
	game_object "github.com/Carmen-Shannon/oxy-graph/engine/game_object"
	"github.com/Carmen-Shannon/oxy-graph/engine/gpu"
	"github.com/Carmen-Shannon/oxy-graph/engine/light"
	"github.com/Carmen-Shannon/oxy-graph/engine/material"
	"github.com/Carmen-Shannon/oxy-graph/engine/model"
	"github.com/Carmen-Shannon/oxy-graph/engine/renderer"
	"github.com/Carmen-Shannon/oxy-graph/engine/renderer/pick"
	"github.com/go-gl/mathgl/mgl32"
)

// Scene is a tree of groups with game objects as leaves, viewed through one camera and lit by
// one light set. Sync walks the tree into a display whenever its structure changed and
// otherwise only reports which pipeline stages value changes invalidated.
//
// Mutations may come from any goroutine. Upload, Sync and Compile must run on the goroutine
// that owns the device.
type Scene interface {
	// Name returns the scene name.
	Name() string

	// Active reports whether the scene should be rendered.
	Active() bool

	// SetActive sets whether the scene should be rendered.
	SetActive(active bool)

	// Camera returns the scene camera.
	Camera() camera.Camera

	// SetCamera replaces the camera. The tree is walked again on the next Sync.
	SetCamera(cam camera.Camera)

	// Lights returns the light set of the scene.
	Lights() light.Set

	// Root returns the root group.
	Root() Group

	// Add attaches objects to the root group.
	Add(objs ...game_object.GameObject)

	// Get returns a registered object by id, or nil.
	Get(id uint64) game_object.GameObject

	// Remove detaches an object from whichever group holds it.
	//
	// Returns:
	//   - bool: false if the object is not in the scene
	Remove(id uint64) bool

	// Count returns the number of objects in the scene.
	Count() int

	// BindTexture makes c the texture core of every material whose diffuse texture is path.
	// A nil c unbinds the path.
	//
	// Parameters:
	//   - path: the diffuse texture path
	//   - c: the texture core
	BindTexture(path string, c *core.Core)

	// TexturePaths returns the diffuse texture paths of the scene's materials that have no
	// texture bound yet.
	TexturePaths() []string

	// PrepareCompute advances object animation on the scene's worker pool.
	//
	// Parameters:
	//   - dt: the elapsed time in seconds
	PrepareCompute(dt float32)

	// Upload creates device buffers for models that have none.
	//
	// Parameters:
	//   - dev: the device
	//
	// Returns:
	//   - error: the joined upload errors
	Upload(dev gpu.Device) error

	// Restore uploads every model again after the device context was restored. Texture
	// bindings are dropped so their paths show up in TexturePaths again.
	//
	// Parameters:
	//   - dev: the restored device
	//
	// Returns:
	//   - error: the joined upload errors
	Restore(dev gpu.Device) error

	// Sync brings a display up to date with the scene. The camera and lights are refreshed,
	// value changes are forwarded as invalidations, and the tree is walked again if its
	// structure changed since the last Sync.
	//
	// Parameters:
	//   - d: the display
	//
	// Returns:
	//   - error: the first build error
	Sync(d renderer.Display) error

	// Compile walks the whole tree into the display regardless of what changed.
	//
	// Parameters:
	//   - d: the display
	//
	// Returns:
	//   - error: the first build error
	Compile(d renderer.Display) error

	// Resolve returns the object a pick hit landed on, or nil.
	//
	// Parameters:
	//   - hit: the pick hit
	//
	// Returns:
	//   - game_object.GameObject: the object or nil
	Resolve(hit *pick.Hit) game_object.GameObject
}

type scene struct {
	mu *sync.Mutex

	name   string
	active bool

	camera camera.Camera
	lights light.Set
	root   *group

	registry  map[uint64]game_object.GameObject
	parents   map[uint64]*group
	textures  map[string]*core.Core
	materials map[material.Material]uint64
	built     map[string]bool
	removed   []string

	structureDirty bool
	worldDirty     bool
	pending        map[renderer.Property]struct{}

	// computePool manages a bounded set of reusable goroutines for the parallel
	// animation phase of PrepareCompute.
	computePool    worker.DynamicWorkerPool
	computeWorkers int
}

var _ Scene = &scene{}

// NewScene creates an empty scene. NewScene panics if cam is nil.
//
// Parameters:
//   - name: the name of the scene
//   - cam: the camera to view the scene through
//   - options: functional options
//
// Returns:
//   - Scene: the scene
func NewScene(name string, cam camera.Camera, options ...SceneBuilderOption) Scene {
	if cam == nil {
		panic("scene: camera must not be nil")
	}
	s := &scene{
		mu:             &sync.Mutex{},
		name:           name,
		active:         true,
		camera:         cam,
		registry:       make(map[uint64]game_object.GameObject),
		parents:        make(map[uint64]*group),
		textures:       make(map[string]*core.Core),
		materials:      make(map[material.Material]uint64),
		built:          make(map[string]bool),
		pending:        make(map[renderer.Property]struct{}),
		structureDirty: true,
		computeWorkers: max(runtime.NumCPU()-1, 1),
	}
	s.root = newGroup(s, "root")
	for _, opt := range options {
		opt(s)
	}
	if s.lights == nil {
		s.lights = light.NewSet()
	}
	s.computePool = worker.NewDynamicWorkerPool(s.computeWorkers, 256, 1*time.Second)
	return s
}

func (s *scene) Name() string {
	return s.name
}

func (s *scene) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *scene) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *scene) Camera() camera.Camera {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.camera
}

func (s *scene) SetCamera(cam camera.Camera) {
	if cam == nil {
		return
	}
	s.mu.Lock()
	s.camera = cam
	s.mu.Unlock()
	s.structureChanged()
}

func (s *scene) Lights() light.Set {
	return s.lights
}

func (s *scene) Root() Group {
	return s.root
}

func (s *scene) Add(objs ...game_object.GameObject) {
	s.root.Add(objs...)
}

func (s *scene) Get(id uint64) game_object.GameObject {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry[id]
}

func (s *scene) Remove(id uint64) bool {
	s.mu.Lock()
	obj, parent := s.registry[id], s.parents[id]
	s.mu.Unlock()
	if obj == nil || parent == nil {
		return false
	}
	return parent.Remove(obj)
}

func (s *scene) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.registry)
}

func (s *scene) BindTexture(path string, c *core.Core) {
	s.mu.Lock()
	if c == nil {
		delete(s.textures, path)
	} else {
		s.textures[path] = c
	}
	s.mu.Unlock()
	s.structureChanged()
}

func (s *scene) TexturePaths() []string {
	s.mu.Lock()
	objs := s.objectsLocked()
	s.mu.Unlock()

	seen := make(map[string]bool)
	var paths []string
	for _, obj := range objs {
		mat := obj.Material()
		if mat == nil || mat.DiffuseTexture() == "" || seen[mat.DiffuseTexture()] {
			continue
		}
		p := mat.DiffuseTexture()
		seen[p] = true
		s.mu.Lock()
		_, bound := s.textures[p]
		s.mu.Unlock()
		if !bound {
			paths = append(paths, p)
		}
	}
	return paths
}

func (s *scene) PrepareCompute(dt float32) {
	s.mu.Lock()
	objs := s.objectsLocked()
	s.mu.Unlock()
	if len(objs) == 0 {
		return
	}

	batch := max((len(objs)+s.computeWorkers-1)/s.computeWorkers, 1)
	var wg sync.WaitGroup
	taskID := 0
	for start := 0; start < len(objs); start += batch {
		part := objs[start:min(start+batch, len(objs))]
		wg.Add(1)
		s.computePool.SubmitTask(worker.Task{
			ID: taskID,
			Do: func() (any, error) {
				defer wg.Done()
				for _, obj := range part {
					obj.Tick(dt)
				}
				return nil, nil
			},
		})
		taskID++
	}
	wg.Wait()
}

func (s *scene) Upload(dev gpu.Device) error {
	s.mu.Lock()
	objs := s.objectsLocked()
	s.mu.Unlock()

	var errs []error
	uploaded := false
	for _, obj := range objs {
		m := obj.Model()
		if m == nil || m.Geometry() != nil {
			continue
		}
		if _, err := m.Upload(dev); err != nil {
			errs = append(errs, fmt.Errorf("failed to upload object %q: %w", obj.Name(), err))
			continue
		}
		uploaded = true
	}
	if uploaded {
		s.structureChanged()
	}
	return errors.Join(errs...)
}

func (s *scene) Restore(dev gpu.Device) error {
	s.mu.Lock()
	objs := s.objectsLocked()
	clear(s.textures)
	s.mu.Unlock()

	var errs []error
	seen := make(map[model.Model]bool)
	for _, obj := range objs {
		m := obj.Model()
		if m == nil || seen[m] {
			continue
		}
		seen[m] = true
		if _, err := m.Upload(dev); err != nil {
			errs = append(errs, fmt.Errorf("failed to restore object %q: %w", obj.Name(), err))
		}
	}
	s.structureChanged()
	return errors.Join(errs...)
}

func (s *scene) Sync(d renderer.Display) error {
	s.mu.Lock()
	cam := s.camera
	objs := s.objectsLocked()
	s.mu.Unlock()

	if cam.Update() {
		s.invalidate(renderer.PropertyView)
		s.invalidate(renderer.PropertyProjection)
	}
	switch s.lights.Sync(cam.Eye()) {
	case light.ChangeValues:
		s.invalidate(renderer.PropertyLights)
	case light.ChangeReplaced:
		s.structureChanged()
	}
	s.syncMaterials(objs)

	s.mu.Lock()
	structure, world := s.structureDirty, s.worldDirty
	removed := s.removed
	s.removed = nil
	s.mu.Unlock()

	for _, leaf := range removed {
		d.RemoveObject(leaf)
	}
	if structure {
		if err := s.Compile(d); err != nil {
			return err
		}
	} else if world {
		s.refreshWorld()
		s.invalidate(renderer.PropertyTransform)
	}

	s.mu.Lock()
	pending := s.pending
	s.pending = make(map[renderer.Property]struct{})
	s.mu.Unlock()
	for p := range pending {
		d.Invalidate(p)
	}
	return nil
}

func (s *scene) Compile(d renderer.Display) error {
	s.mu.Lock()
	cam := s.camera
	s.structureDirty = false
	s.worldDirty = false
	s.mu.Unlock()

	t := d.Traversal()
	t.Reset()
	t.Set(core.CategoryView, cam.ViewCore())
	t.Set(core.CategoryProjection, cam.ProjectionCore())
	t.Set(core.CategoryLights, s.lights.Core())

	if err := s.walk(d, t, s.root, mgl32.Ident4()); err != nil {
		s.structureChanged()
		return fmt.Errorf("failed to compile scene %q: %w", s.name, err)
	}
	common.Logger().Debug("scene compiled", "scene", s.name, "objects", s.Count())
	return nil
}

func (s *scene) Resolve(hit *pick.Hit) game_object.GameObject {
	if hit == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, obj := range s.registry {
		if obj.LeafID() == hit.NodeID {
			return obj
		}
	}
	return nil
}

// walk activates the cores of g and builds its objects, then recurses into its children.
func (s *scene) walk(d renderer.Display, t *renderer.TraversalState, g *group, parent mgl32.Mat4) error {
	matrix, cores, children, objects := g.snapshot()
	world := parent.Mul4(matrix)
	saved := t.Snapshot()
	defer t.Restore(saved)

	for cat, c := range cores {
		t.Set(cat, c)
	}
	for _, obj := range objects {
		if err := s.build(d, t, obj, world); err != nil {
			return err
		}
	}
	for _, child := range children {
		if err := s.walk(d, t, child, world); err != nil {
			return err
		}
	}
	return nil
}

// build activates the cores of one object and compiles it. Objects without uploaded geometry
// are removed from the display until they have some.
func (s *scene) build(d renderer.Display, t *renderer.TraversalState, obj game_object.GameObject, world mgl32.Mat4) error {
	obj.SetParentMatrix(world)
	leaf := obj.LeafID()

	m := obj.Model()
	if m == nil || m.Geometry() == nil {
		s.mu.Lock()
		wasBuilt := s.built[leaf]
		delete(s.built, leaf)
		s.mu.Unlock()
		if wasBuilt {
			d.RemoveObject(leaf)
		}
		return nil
	}

	saved := t.Snapshot()
	defer t.Restore(saved)

	t.Set(core.CategoryTransform, obj.TransformCore())
	t.Set(core.CategoryFlags, obj.FlagsCore())
	t.Set(core.CategoryName, obj.NameCore())
	if tag := obj.TagCore(); tag != nil {
		t.Set(core.CategoryTag, tag)
	}
	if mat := obj.Material(); mat != nil {
		t.Set(core.CategoryMaterial, mat.Core())
		if p := mat.DiffuseTexture(); p != "" {
			s.mu.Lock()
			tex := s.textures[p]
			s.mu.Unlock()
			if tex != nil {
				t.Set(core.CategoryTexture, tex)
			}
		}
	}
	t.Set(core.CategoryGeometry, m.Geometry())
	if morph := m.Morph(); morph != nil {
		t.Set(core.CategoryMorphGeometry, morph)
	}

	if err := d.BuildObject(leaf); err != nil {
		return err
	}
	s.mu.Lock()
	s.built[leaf] = true
	s.mu.Unlock()
	return nil
}

// refreshWorld pushes group matrices down to the objects without rebuilding anything.
func (s *scene) refreshWorld() {
	s.mu.Lock()
	s.worldDirty = false
	s.mu.Unlock()

	var visit func(g *group, parent mgl32.Mat4)
	visit = func(g *group, parent mgl32.Mat4) {
		matrix, _, children, objects := g.snapshot()
		world := parent.Mul4(matrix)
		for _, obj := range objects {
			obj.SetParentMatrix(world)
		}
		for _, c := range children {
			visit(c, world)
		}
	}
	visit(s.root, mgl32.Ident4())
}

// syncMaterials reports material value changes and keeps object transparency in line with
// material alpha.
func (s *scene) syncMaterials(objs []game_object.GameObject) {
	changed := false
	for _, obj := range objs {
		mat := obj.Material()
		if mat == nil {
			continue
		}
		v := mat.Version()
		s.mu.Lock()
		last, seen := s.materials[mat]
		s.materials[mat] = v
		s.mu.Unlock()
		if seen && last == v {
			continue
		}
		if seen {
			changed = true
		}
		obj.SetTransparent(mat.Transparent())
	}
	if changed {
		s.invalidate(renderer.PropertyMaterial)
	}
}

func (s *scene) objectsLocked() []game_object.GameObject {
	objs := make([]game_object.GameObject, 0, len(s.registry))
	for _, obj := range s.registry {
		objs = append(objs, obj)
	}
	return objs
}

func (s *scene) invalidate(p renderer.Property) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[p] = struct{}{}
}

func (s *scene) onObjectChange(p renderer.Property) {
	if p == renderer.PropertyStructure {
		s.structureChanged()
		return
	}
	s.invalidate(p)
}

func (s *scene) structureChanged() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.structureDirty = true
}

func (s *scene) transformChanged() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.worldDirty = true
}

// attach registers an object added to group g.
func (s *scene) attach(obj game_object.GameObject, g *group) {
	obj.SetChangeFunc(s.onObjectChange)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registry[obj.ID()] = obj
	s.parents[obj.ID()] = g
	s.structureDirty = true
}

// detach unregisters an object and queues its display object for removal.
func (s *scene) detach(obj game_object.GameObject) {
	obj.SetChangeFunc(nil)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.registry, obj.ID())
	delete(s.parents, obj.ID())
	leaf := obj.LeafID()
	if s.built[leaf] {
		s.removed = append(s.removed, leaf)
		delete(s.built, leaf)
	}
	s.structureDirty = true
}
