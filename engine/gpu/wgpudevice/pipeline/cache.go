package pipeline

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-graph/engine/gpu"
)

type cache struct {
	mu        *sync.Mutex
	pipelines map[Key]Pipeline
}

// Cache holds created pipelines by key.
type Cache interface {
	// Get returns the pipeline for a key.
	//
	// Parameters:
	//   - key: the pipeline key
	//
	// Returns:
	//   - Pipeline: the cached pipeline
	//   - bool: false if no pipeline is cached for the key
	Get(key Key) (Pipeline, bool)

	// Put caches a pipeline under its key, releasing any pipeline it replaces.
	//
	// Parameters:
	//   - p: the pipeline to cache
	Put(p Pipeline)

	// EvictProgram releases every pipeline created for a program.
	//
	// Parameters:
	//   - program: the deleted program
	//
	// Returns:
	//   - int: the number of pipelines released
	EvictProgram(program gpu.ProgramHandle) int

	// Clear releases every cached pipeline.
	Clear()

	// Len returns the number of cached pipelines.
	//
	// Returns:
	//   - int: the cache size
	Len() int
}

var _ Cache = &cache{}

// NewCache creates an empty pipeline cache.
//
// Returns:
//   - Cache: the cache
func NewCache() Cache {
	return &cache{
		mu:        &sync.Mutex{},
		pipelines: make(map[Key]Pipeline),
	}
}

func (c *cache) Get(key Key) (Pipeline, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pipelines[key]
	return p, ok
}

func (c *cache) Put(p Pipeline) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.pipelines[p.Key()]; ok && old != p {
		old.Release()
	}
	c.pipelines[p.Key()] = p
}

func (c *cache) EvictProgram(program gpu.ProgramHandle) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, p := range c.pipelines {
		if k.Program == program {
			p.Release()
			delete(c.pipelines, k)
			n++
		}
	}
	return n
}

func (c *cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, p := range c.pipelines {
		p.Release()
		delete(c.pipelines, k)
	}
}

func (c *cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pipelines)
}
