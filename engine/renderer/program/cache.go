package program

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-graph/common"
	"github.com/Carmen-Shannon/oxy-graph/engine/gpu"
	"github.com/gogpu/naga"
)

// Stats are cumulative program cache counters.
type Stats struct {
	Hits     int64
	Misses   int64
	Releases int64
	Live     int
}

// cache is the implementation of the Cache interface.
type cache struct {
	mu *sync.Mutex

	device  gpu.Device
	sources SourceFactory

	// validate runs naga over every generated variant before handing it to the device.
	validate bool

	programs map[string]*Program
	freeIDs  []int
	nextID   int

	hits, misses, releases atomic.Int64
}

// Cache compiles programs on first use of a hash and shares them by reference count.
type Cache interface {
	// Get returns the program for hash, compiling it from f on first use. The reference count
	// of the returned program is incremented.
	//
	// A compile failure caused by a lost device context is not an error: Get returns (nil, nil)
	// and the program is compiled again once the context is restored and the object rebuilt.
	//
	// Parameters:
	//   - hash: the shader selection hash
	//   - f: the features the program's sources are generated for
	//
	// Returns:
	//   - *Program: the program, or nil when the context is lost
	//   - error: a *gpu.Error of KindShaderCompile after a source dump on compile failure
	Get(hash string, f gpu.Features) (*Program, error)

	// Put drops one reference. At zero the device program is deleted and the id recycled.
	// Put on a program that was already released is logged and ignored.
	//
	// Parameters:
	//   - p: the program to release
	Put(p *Program)

	// Lookup returns the live program for hash without changing its reference count.
	//
	// Parameters:
	//   - hash: the shader selection hash
	//
	// Returns:
	//   - *Program: the program, or nil if none is live
	Lookup(hash string) *Program

	// ContextRestored recompiles every live program against the restored device.
	//
	// Returns:
	//   - error: the first compile failure
	ContextRestored() error

	// Stats returns the cache counters.
	//
	// Returns:
	//   - Stats: hits, misses, releases and live programs
	Stats() Stats
}

var _ Cache = &cache{}

// NewCache creates a program cache compiling through device.
//
// Parameters:
//   - device: the GPU device programs are compiled on
//   - opts: functional options
//
// Returns:
//   - Cache: the program cache
func NewCache(device gpu.Device, opts ...CacheBuilderOption) Cache {
	c := &cache{
		mu:       &sync.Mutex{},
		device:   device,
		programs: make(map[string]*Program),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.sources == nil {
		c.sources = NewSourceFactory()
	}
	return c
}

func (c *cache) Get(hash string, f gpu.Features) (*Program, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.programs[hash]; ok {
		p.refs++
		c.hits.Add(1)
		return p, nil
	}
	c.misses.Add(1)

	src, err := c.sources.Acquire(hash, f)
	if err != nil {
		return nil, &gpu.Error{Kind: gpu.KindShaderCompile, Op: "generate program source", Err: err}
	}

	handle, err := c.compile(src)
	if err != nil {
		c.sources.Release(hash)
		if c.device.ContextLost() || gpu.IsKind(err, gpu.KindContextLost) {
			common.Logger().Debug("program compile skipped, context lost", "hash", hash)
			return nil, nil
		}
		return nil, err
	}

	p := &Program{
		ID:       c.allocID(),
		Hash:     hash,
		Handle:   handle,
		Features: f,
		refs:     1,
	}
	c.programs[hash] = p
	common.Logger().Debug("program compiled", "hash", hash, "id", p.ID)
	return p, nil
}

// compile validates and compiles src, dumping the numbered sources on failure.
func (c *cache) compile(src gpu.ProgramSource) (gpu.ProgramHandle, error) {
	if c.validate {
		for _, variant := range []struct {
			pass gpu.Pass
			code string
		}{{gpu.PassDraw, src.Draw}, {gpu.PassPick, src.Pick}, {gpu.PassRay, src.Ray}} {
			if _, err := naga.Compile(variant.code); err != nil {
				dumpSource(src.Hash, variant.pass, variant.code, err)
				return 0, &gpu.Error{Kind: gpu.KindShaderCompile, Op: "validate program", Err: fmt.Errorf("%s variant: %w", variant.pass, err)}
			}
		}
	}

	handle, err := c.device.CompileProgram(src)
	if err == nil {
		return handle, nil
	}
	if c.device.ContextLost() || gpu.IsKind(err, gpu.KindContextLost) {
		return 0, err
	}

	var gerr *gpu.Error
	if !errors.As(err, &gerr) {
		gerr = &gpu.Error{Kind: gpu.KindShaderCompile, Op: "compile program", Err: err}
	}
	dumpSource(src.Hash, gpu.PassDraw, src.Draw, err)
	dumpSource(src.Hash, gpu.PassPick, src.Pick, err)
	dumpSource(src.Hash, gpu.PassRay, src.Ray, err)
	return 0, gerr
}

func dumpSource(hash string, pass gpu.Pass, code string, cause error) {
	common.Logger().Error("shader compile failed", "hash", hash, "variant", pass.String(), "error", cause, "source", numbered(code))
}

func (c *cache) allocID() int {
	if len(c.freeIDs) == 0 {
		id := c.nextID
		c.nextID++
		return id
	}
	i := slices.Index(c.freeIDs, slices.Min(c.freeIDs))
	id := c.freeIDs[i]
	c.freeIDs = slices.Delete(c.freeIDs, i, i+1)
	return id
}

func (c *cache) Put(p *Program) {
	if p == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if p.released || p.refs <= 0 {
		common.Logger().Warn("program released twice", "hash", p.Hash, "id", p.ID)
		return
	}
	p.refs--
	if p.refs > 0 {
		return
	}

	c.device.DeleteProgram(p.Handle)
	p.released = true
	p.Handle = 0
	if c.programs[p.Hash] == p {
		delete(c.programs, p.Hash)
	}
	c.sources.Release(p.Hash)
	c.freeIDs = append(c.freeIDs, p.ID)
	c.releases.Add(1)
	common.Logger().Debug("program released", "hash", p.Hash, "id", p.ID)
}

func (c *cache) Lookup(hash string) *Program {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.programs[hash]
}

func (c *cache) ContextRestored() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	hashes := make([]string, 0, len(c.programs))
	for h := range c.programs {
		hashes = append(hashes, h)
	}
	slices.Sort(hashes)

	for _, h := range hashes {
		p := c.programs[h]
		src, err := c.sources.Acquire(h, p.Features)
		if err != nil {
			return &gpu.Error{Kind: gpu.KindShaderCompile, Op: "generate program source", Err: err}
		}
		handle, err := c.compile(src)
		c.sources.Release(h)
		if err != nil {
			return fmt.Errorf("failed to recompile program %q: %w", h, err)
		}
		p.Handle = handle
	}
	common.Logger().Info("programs recompiled", "count", len(hashes))
	return nil
}

func (c *cache) Stats() Stats {
	c.mu.Lock()
	live := len(c.programs)
	c.mu.Unlock()
	return Stats{
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Releases: c.releases.Load(),
		Live:     live,
	}
}
