package scene

import (
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-graph/engine/core"
	game_object "github.com/Carmen-Shannon/oxy-graph/engine/game_object"
	"github.com/go-gl/mathgl/mgl32"
)

// Group is an inner node of the scene tree. Cores set on a group are active for every object
// and group below it unless a descendant sets the same category. The group matrix multiplies
// into the world matrix of everything below it.
type Group interface {
	// Name returns the group name.
	Name() string

	// SetCore makes c active for the subtree. The category is taken from the payload.
	//
	// Parameters:
	//   - c: the core
	SetCore(c *core.Core)

	// ClearCore removes the core of a category from the group.
	//
	// Parameters:
	//   - cat: the category
	ClearCore(cat core.Category)

	// Core returns the core the group sets for a category, or nil.
	Core(cat core.Category) *core.Core

	// SetMatrix sets the local matrix of the group.
	SetMatrix(m mgl32.Mat4)

	// Matrix returns the local matrix of the group.
	Matrix() mgl32.Mat4

	// AddGroup creates a child group.
	//
	// Parameters:
	//   - name: the child name
	//
	// Returns:
	//   - Group: the child
	AddGroup(name string) Group

	// RemoveGroup detaches a child group and every object below it.
	//
	// Parameters:
	//   - child: the group to remove
	//
	// Returns:
	//   - bool: false if child is not a direct child of this group
	RemoveGroup(child Group) bool

	// Add attaches objects to the group.
	Add(objs ...game_object.GameObject)

	// Remove detaches an object from the group.
	//
	// Returns:
	//   - bool: false if the object is not a direct child of this group
	Remove(obj game_object.GameObject) bool

	// Groups returns the child groups.
	Groups() []Group

	// Objects returns the objects attached directly to the group.
	Objects() []game_object.GameObject
}

type group struct {
	mu    *sync.Mutex
	scene *scene

	name     string
	matrix   mgl32.Mat4
	cores    map[core.Category]*core.Core
	children []*group
	objects  []game_object.GameObject
}

var _ Group = &group{}

func newGroup(s *scene, name string) *group {
	return &group{
		mu:     &sync.Mutex{},
		scene:  s,
		name:   name,
		matrix: mgl32.Ident4(),
		cores:  make(map[core.Category]*core.Core),
	}
}

func (g *group) Name() string {
	return g.name
}

func (g *group) SetCore(c *core.Core) {
	if c == nil || c.Payload == nil {
		return
	}
	g.mu.Lock()
	g.cores[c.Payload.Category()] = c
	g.mu.Unlock()
	g.scene.structureChanged()
}

func (g *group) ClearCore(cat core.Category) {
	g.mu.Lock()
	_, ok := g.cores[cat]
	delete(g.cores, cat)
	g.mu.Unlock()
	if ok {
		g.scene.structureChanged()
	}
}

func (g *group) Core(cat core.Category) *core.Core {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cores[cat]
}

func (g *group) SetMatrix(m mgl32.Mat4) {
	g.mu.Lock()
	g.matrix = m
	g.mu.Unlock()
	g.scene.transformChanged()
}

func (g *group) Matrix() mgl32.Mat4 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.matrix
}

func (g *group) AddGroup(name string) Group {
	child := newGroup(g.scene, name)
	g.mu.Lock()
	g.children = append(g.children, child)
	g.mu.Unlock()
	return child
}

func (g *group) RemoveGroup(child Group) bool {
	c, ok := child.(*group)
	if !ok {
		return false
	}
	g.mu.Lock()
	i := slices.Index(g.children, c)
	if i >= 0 {
		g.children = slices.Delete(g.children, i, i+1)
	}
	g.mu.Unlock()
	if i < 0 {
		return false
	}
	c.walkObjects(g.scene.detach)
	return true
}

func (g *group) Add(objs ...game_object.GameObject) {
	g.mu.Lock()
	g.objects = append(g.objects, objs...)
	g.mu.Unlock()
	for _, obj := range objs {
		g.scene.attach(obj, g)
	}
}

func (g *group) Remove(obj game_object.GameObject) bool {
	g.mu.Lock()
	i := slices.Index(g.objects, obj)
	if i >= 0 {
		g.objects = slices.Delete(g.objects, i, i+1)
	}
	g.mu.Unlock()
	if i < 0 {
		return false
	}
	g.scene.detach(obj)
	return true
}

func (g *group) Groups() []Group {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Group, len(g.children))
	for i, c := range g.children {
		out[i] = c
	}
	return out
}

func (g *group) Objects() []game_object.GameObject {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.objects)
}

// snapshot copies the mutable state needed by a traversal.
func (g *group) snapshot() (mgl32.Mat4, map[core.Category]*core.Core, []*group, []game_object.GameObject) {
	g.mu.Lock()
	defer g.mu.Unlock()
	cores := make(map[core.Category]*core.Core, len(g.cores))
	for k, v := range g.cores {
		cores[k] = v
	}
	return g.matrix, cores, slices.Clone(g.children), slices.Clone(g.objects)
}

// walkObjects calls f for every object in the subtree.
func (g *group) walkObjects(f func(game_object.GameObject)) {
	_, _, children, objects := g.snapshot()
	for _, obj := range objects {
		f(obj)
	}
	for _, c := range children {
		c.walkObjects(f)
	}
}
