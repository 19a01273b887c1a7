package chunk

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-graph/common"
	"github.com/Carmen-Shannon/oxy-graph/engine/core"
	"github.com/Carmen-Shannon/oxy-graph/engine/gpu"
	"github.com/Carmen-Shannon/oxy-graph/engine/renderer/program"
)

// ErrStaleHandle is returned when a handle refers to a chunk that has been released.
var ErrStaleHandle = errors.New("chunk: stale handle")

// Handle refers to a pooled chunk. The zero Handle never resolves.
type Handle struct {
	index   uint32
	version uint32
}

// Valid reports whether h was ever issued by a pool.
func (h Handle) Valid() bool {
	return h.version != 0
}

type key struct {
	typ  Type
	id   int64
	prog *program.Program
}

// localKey names the table compacting state ids for one chunk type under one program.
type localKey struct {
	typ  Type
	prog *program.Program
}

type entry struct {
	chunk   Chunk
	key     key
	uses    int
	version uint32
	live    bool

	// bound is set when the entry holds a compact id in locals[local].
	bound   bool
	local   localKey
	stateID int64
}

// pool is the implementation of the Pool interface.
type pool struct {
	mu *sync.Mutex

	entries []*entry
	free    []uint32
	byKey   map[key]uint32
	locals  map[localKey]*core.IDTable

	created, reused int64
}

// Pool shares chunks by (type, id, program) and counts their uses.
type Pool interface {
	// Get returns a handle to the chunk applying c under p for slot type t, creating the chunk on
	// first use and incrementing its use count otherwise. A present but empty core yields no chunk.
	//
	// Parameters:
	//   - t: the chunk type
	//   - p: the object's program
	//   - c: the active core, or nil for the per-program default
	//
	// Returns:
	//   - Handle: the chunk handle, or the zero Handle when the slot must be cleared
	//   - error: a KindConfiguration *gpu.Error if the core holds an unsupported enum value
	Get(t Type, p *program.Program, c *core.Core) (Handle, error)

	// Put drops one use of the chunk. At zero the chunk is discarded and its handle goes stale.
	//
	// Parameters:
	//   - h: the handle to release
	Put(h Handle)

	// Resolve returns the chunk a handle refers to.
	//
	// Parameters:
	//   - h: the handle to resolve
	//
	// Returns:
	//   - *Chunk: the chunk
	//   - error: ErrStaleHandle if the chunk was released
	Resolve(h Handle) (*Chunk, error)

	// Uses returns the use count of a live chunk, or 0 for a stale handle.
	Uses(h Handle) int

	// ContextRestored rebuilds the closures of every live chunk.
	//
	// Returns:
	//   - error: the joined build errors, if any
	ContextRestored() error

	// Len returns the number of live chunks.
	Len() int

	// Stats returns the pool counters.
	Stats() Stats
}

// Stats are cumulative chunk pool counters.
type Stats struct {
	Created int64
	Reused  int64
	Live    int
}

var _ Pool = &pool{}

// NewPool creates an empty chunk pool.
//
// Returns:
//   - Pool: the chunk pool
func NewPool() Pool {
	return &pool{
		mu:     &sync.Mutex{},
		byKey:  make(map[key]uint32),
		locals: make(map[localKey]*core.IDTable),
	}
}

func (p *pool) Get(t Type, prog *program.Program, c *core.Core) (Handle, error) {
	if t < 0 || t >= typeCount {
		return Handle{}, fmt.Errorf("get chunk: unknown type %d", int(t))
	}
	if t != TypeRenderer && prog == nil {
		return Handle{}, fmt.Errorf("get %s chunk: nil program", t)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var k key
	var binding *entry
	if t == TypeRenderer {
		if c == nil {
			c = core.Default(core.CategoryRenderer)
		}
		k = key{typ: t, id: c.StateID + 1}
	} else {
		var local int64
		if !t.Unique() && c != nil && !c.Empty {
			var err error
			if local, binding, err = p.bind(t, prog, c); err != nil {
				return Handle{}, err
			}
		}
		id, ok := ID(t.Unique(), prog, c, local)
		if !ok {
			return Handle{}, nil
		}
		k = key{typ: t, id: id, prog: prog}
	}

	if idx, ok := p.byKey[k]; ok {
		e := p.entries[idx]
		e.uses++
		p.reused++
		return Handle{index: idx, version: e.version}, nil
	}

	ch := Chunk{ID: k.id, Type: t, Program: k.prog, Core: c}
	if err := build(&ch); err != nil {
		p.unbind(binding)
		return Handle{}, err
	}

	var idx uint32
	if n := len(p.free); n > 0 {
		idx = p.free[n-1]
		p.free = p.free[:n-1]
	} else {
		idx = uint32(len(p.entries))
		p.entries = append(p.entries, &entry{})
	}
	e := p.entries[idx]
	e.chunk = ch
	e.key = k
	e.uses = 1
	e.live = true
	e.version = common.NextVersion(e.version)
	if binding != nil {
		e.bound, e.local, e.stateID = true, binding.local, binding.stateID
	}
	p.byKey[k] = idx
	p.created++

	common.Logger().Debug("chunk created", "type", t.String(), "id", k.id)
	return Handle{index: idx, version: e.version}, nil
}

// bind returns the compact id of c within (t, prog). A state id seen for the first time is bound
// to a new compact id and returned as a binding the caller's new entry takes over; a known one
// already belongs to a live entry.
func (p *pool) bind(t Type, prog *program.Program, c *core.Core) (int64, *entry, error) {
	lk := localKey{typ: t, prog: prog}
	table, ok := p.locals[lk]
	if !ok {
		table = core.NewIDTable()
		p.locals[lk] = table
	}
	if local, ok := table.Lookup(c.StateID); ok {
		return local, nil, nil
	}
	local := table.Acquire(c.StateID)
	binding := &entry{bound: true, local: lk, stateID: c.StateID}
	if local > ProgramStride-2 {
		p.unbind(binding)
		return 0, nil, gpu.AllocError("get "+t.String()+" chunk",
			fmt.Errorf("program %d holds more than %d live cores", prog.ID, ProgramStride-1))
	}
	return local, binding, nil
}

// unbind releases the compact id held by e.
func (p *pool) unbind(e *entry) {
	if e == nil || !e.bound {
		return
	}
	table, ok := p.locals[e.local]
	if !ok {
		return
	}
	table.Release(e.stateID)
	if table.Len() == 0 {
		delete(p.locals, e.local)
	}
	e.bound = false
}

func (p *pool) lookup(h Handle) (*entry, bool) {
	if !h.Valid() || int(h.index) >= len(p.entries) {
		return nil, false
	}
	e := p.entries[h.index]
	if !e.live || e.version != h.version {
		return nil, false
	}
	return e, true
}

func (p *pool) Put(h Handle) {
	if !h.Valid() {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.lookup(h)
	if !ok {
		common.Logger().Warn("chunk put on stale handle", "index", h.index)
		return
	}
	e.uses--
	if e.uses > 0 {
		return
	}
	delete(p.byKey, e.key)
	p.unbind(e)
	e.live = false
	// Chunks already resolved into a draw list keep their closures; the slot gets a fresh entry.
	p.entries[h.index] = &entry{version: e.version}
	p.free = append(p.free, h.index)
}

func (p *pool) Resolve(h Handle) (*Chunk, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.lookup(h)
	if !ok {
		return nil, ErrStaleHandle
	}
	return &e.chunk, nil
}

func (p *pool) Uses(h Handle) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.lookup(h)
	if !ok {
		return 0
	}
	return e.uses
}

func (p *pool) ContextRestored() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for _, e := range p.entries {
		if !e.live {
			continue
		}
		if err := build(&e.chunk); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.byKey)
}

func (p *pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return Stats{Created: p.created, Reused: p.reused, Live: len(p.byKey)}
}
