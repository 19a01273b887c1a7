package core

import (
	"sync/atomic"
)

var lastStateID atomic.Int64

// NextStateID allocates a fresh state id. Ids are positive and strictly increasing.
//
// Returns:
//   - int64: the new state id
func NextStateID() int64 {
	return lastStateID.Add(1)
}

// Payload is the typed value a core carries. The set of payloads is closed: one per Category.
type Payload interface {
	// Category returns the category this payload belongs to.
	Category() Category

	hash() string
	empty() bool
}

// Core is one state core. A changed value is a new Core with a new StateID; a core is never
// mutated while an object compiled against it is live.
type Core struct {
	// StateID is unique per distinct value instance.
	StateID int64

	// Hash is the fragment this core contributes to shader variant selection.
	Hash string

	// Empty marks a core that currently contributes no GPU effect (for example "no texture").
	Empty bool

	// Payload is the category specific value.
	Payload Payload
}

// New wraps a payload in a core with a freshly allocated state id.
//
// Parameters:
//   - p: the payload
//
// Returns:
//   - *Core: the new core
func New(p Payload) *Core {
	return &Core{
		StateID: NextStateID(),
		Hash:    p.hash(),
		Empty:   p.empty(),
		Payload: p,
	}
}

// Category returns the category of the core's payload.
func (c *Core) Category() Category {
	return c.Payload.Category()
}

// As returns the payload of c as T. A nil core or a payload of another type yields false.
//
// Parameters:
//   - c: the core
//
// Returns:
//   - T: the typed payload
//   - bool: whether the payload had type T
func As[T Payload](c *Core) (T, bool) {
	var zero T
	if c == nil || c.Payload == nil {
		return zero, false
	}
	p, ok := c.Payload.(T)
	return p, ok
}

// HashOf returns the shader hash fragment of c, or "" for nil and empty cores.
func HashOf(c *Core) string {
	if c == nil || c.Empty {
		return ""
	}
	return c.Hash
}

// StateIDOf returns the state id of c, or 0 for a nil core.
func StateIDOf(c *Core) int64 {
	if c == nil {
		return 0
	}
	return c.StateID
}
