package light

import (
	"slices"
	"sort"
	"sync"

	"github.com/Carmen-Shannon/oxy-graph/engine/core"
	"github.com/Carmen-Shannon/oxy-graph/engine/gpu"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// DefaultBudget is the number of lights a Set passes to its core unless configured otherwise.
const DefaultBudget = 8

// Change reports what a Sync did to the lights core.
type Change int

const (
	// ChangeNone means the core already held the selected lights.
	ChangeNone Change = iota

	// ChangeValues means the payload was updated in place. Only the image is stale.
	ChangeValues

	// ChangeReplaced means the selected light types changed, which changes the shader variant.
	// The set holds a new core that must be bound and the objects in its scope rebuilt.
	ChangeReplaced
)

type set struct {
	mu *sync.Mutex

	lights   []Light
	budget   int
	core     *core.Core
	versions []uint64
	selected []Light
}

// Set is an ordered collection of lights bound into a scene through one lights core. When more
// lights are enabled than the budget allows, ambient and directional lights are kept first and
// the rest are ranked by their contribution at the eye.
type Set interface {
	// Add appends a light.
	//
	// Parameters:
	//   - l: the light to add
	Add(l Light)

	// Remove removes a light.
	//
	// Parameters:
	//   - l: the light to remove
	//
	// Returns:
	//   - bool: false if the light was not in the set
	Remove(l Light) bool

	// Lights returns the lights in insertion order.
	Lights() []Light

	// Core returns the lights core to bind into the scene.
	//
	// Returns:
	//   - *core.Core: a core with a *core.Lights payload
	Core() *core.Core

	// Sync selects the lights within budget as seen from eye and refreshes the core.
	//
	// Parameters:
	//   - eye: the world-space eye position used to rank point and spot lights
	//
	// Returns:
	//   - Change: what happened to the core
	Sync(eye mgl32.Vec3) Change
}

var _ Set = &set{}

// NewSet creates a light set.
//
// Parameters:
//   - options: functional options
//
// Returns:
//   - Set: the set with an empty lights core
func NewSet(options ...SetBuilderOption) Set {
	s := &set{
		mu:     &sync.Mutex{},
		budget: DefaultBudget,
		core:   core.NewLights(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *set) Add(l Light) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lights = append(s.lights, l)
}

func (s *set) Remove(l Light) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.Index(s.lights, l)
	if i < 0 {
		return false
	}
	s.lights = slices.Delete(s.lights, i, i+1)
	return true
}

func (s *set) Lights() []Light {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.lights)
}

func (s *set) Core() *core.Core {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.core
}

func (s *set) Sync(eye mgl32.Vec3) Change {
	s.mu.Lock()
	defer s.mu.Unlock()

	selected := Select(s.lights, eye, s.budget)
	versions := make([]uint64, len(selected))
	data := make([]gpu.LightData, len(selected))
	for i, l := range selected {
		versions[i] = l.Version()
		data[i] = l.Data()
	}

	payload, _ := core.As[*core.Lights](s.core)
	if slices.Equal(selected, s.selected) && slices.Equal(versions, s.versions) {
		return ChangeNone
	}
	s.selected, s.versions = selected, versions

	next := core.NewLights(data...)
	if next.Hash == s.core.Hash {
		payload.Lights = data
		return ChangeValues
	}
	s.core = next
	return ChangeReplaced
}

// Select returns the enabled lights that fit the budget, in insertion order. Ambient and
// directional lights always rank first; point and spot lights rank by intensity over squared
// distance from eye, and lights whose range ends before the eye rank last.
//
// Parameters:
//   - lights: the candidate lights
//   - eye: the world-space eye position
//   - budget: the maximum number of lights, or <= 0 for no limit
//
// Returns:
//   - []Light: the selected lights
func Select(lights []Light, eye mgl32.Vec3, budget int) []Light {
	type ranked struct {
		index int
		score float32
	}
	candidates := make([]ranked, 0, len(lights))
	for i, l := range lights {
		if !l.Enabled() {
			continue
		}
		candidates = append(candidates, ranked{index: i, score: score(l, eye)})
	}
	if budget > 0 && len(candidates) > budget {
		sort.SliceStable(candidates, func(a, b int) bool {
			return candidates[a].score > candidates[b].score
		})
		candidates = candidates[:budget]
		sort.Slice(candidates, func(a, b int) bool {
			return candidates[a].index < candidates[b].index
		})
	}
	out := make([]Light, len(candidates))
	for i, c := range candidates {
		out[i] = lights[c.index]
	}
	return out
}

func score(l Light, eye mgl32.Vec3) float32 {
	switch l.Type() {
	case LightTypeAmbient, LightTypeDirectional:
		return math32.Inf(1)
	}
	d := l.Position().Sub(eye).Len()
	if r := l.Range(); r > 0 && d > r {
		return 0
	}
	return l.Intensity() / (1 + d*d)
}
