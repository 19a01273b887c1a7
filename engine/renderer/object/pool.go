package object

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-graph/common"
)

// Handle refers to a pooled object. The zero Handle never resolves.
type Handle struct {
	index   uint32
	version uint32
}

type slot struct {
	obj     *Object
	version uint32
}

// pool is the implementation of the Pool interface.
type pool struct {
	mu *sync.Mutex

	slots []slot
	free  []uint32
	byID  map[string]uint32
}

// Pool creates and recycles objects by leaf id.
type Pool interface {
	// Get returns the object for leafID, creating it if absent.
	//
	// Parameters:
	//   - leafID: the leaf the object renders
	//
	// Returns:
	//   - *Object: the object
	//   - bool: true if the object was created by this call
	Get(leafID string) (*Object, bool)

	// Put removes the object for leafID. The caller releases the object's program and chunks first.
	//
	// Parameters:
	//   - leafID: the leaf whose object is removed
	//
	// Returns:
	//   - *Object: the removed object, or nil if none existed
	Put(leafID string) *Object

	// Lookup returns the object for leafID without creating it.
	Lookup(leafID string) *Object

	// Resolve returns the object a handle refers to, or nil once the object was removed.
	Resolve(h Handle) *Object

	// Each calls fn for every live object in arena order.
	Each(fn func(*Object))

	// Len returns the number of live objects.
	Len() int
}

var _ Pool = &pool{}

// NewPool creates an empty object pool.
//
// Returns:
//   - Pool: the object pool
func NewPool() Pool {
	return &pool{
		mu:   &sync.Mutex{},
		byID: make(map[string]uint32),
	}
}

func (p *pool) Get(leafID string) (*Object, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if idx, ok := p.byID[leafID]; ok {
		return p.slots[idx].obj, false
	}

	var idx uint32
	if n := len(p.free); n > 0 {
		idx = p.free[n-1]
		p.free = p.free[:n-1]
	} else {
		idx = uint32(len(p.slots))
		p.slots = append(p.slots, slot{})
	}
	s := &p.slots[idx]
	s.version = common.NextVersion(s.version)
	s.obj = &Object{ID: leafID, handle: Handle{index: idx, version: s.version}}
	p.byID[leafID] = idx
	return s.obj, true
}

func (p *pool) Put(leafID string) *Object {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx, ok := p.byID[leafID]
	if !ok {
		return nil
	}
	s := &p.slots[idx]
	obj := s.obj
	s.obj = nil
	delete(p.byID, leafID)
	p.free = append(p.free, idx)
	return obj
}

func (p *pool) Lookup(leafID string) *Object {
	p.mu.Lock()
	defer p.mu.Unlock()

	if idx, ok := p.byID[leafID]; ok {
		return p.slots[idx].obj
	}
	return nil
}

func (p *pool) Resolve(h Handle) *Object {
	p.mu.Lock()
	defer p.mu.Unlock()

	if h.version == 0 || int(h.index) >= len(p.slots) {
		return nil
	}
	s := p.slots[h.index]
	if s.obj == nil || s.version != h.version {
		return nil
	}
	return s.obj
}

func (p *pool) Each(fn func(*Object)) {
	p.mu.Lock()
	live := make([]*Object, 0, len(p.byID))
	for _, s := range p.slots {
		if s.obj != nil {
			live = append(live, s.obj)
		}
	}
	p.mu.Unlock()

	for _, o := range live {
		fn(o)
	}
}

func (p *pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.byID)
}
