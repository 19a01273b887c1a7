package renderer

import (
	"github.com/Carmen-Shannon/oxy-graph/engine/core"
)

// TraversalState holds the core active for each category while a scene is walked.
// A walker sets a core when it enters a state-bearing node and restores the previous one
// when it leaves; BuildObject compiles whatever is active at the leaf.
type TraversalState struct {
	active [core.CategoryCount]*core.Core
}

// Set records c as the active core of cat and returns the core it replaced. A nil c clears the
// category; an invalid category is ignored and returns nil.
//
// Parameters:
//   - cat: the category
//   - c: the core now in scope, or nil
//
// Returns:
//   - *core.Core: the previously active core, for restoring on exit
func (t *TraversalState) Set(cat core.Category, c *core.Core) *core.Core {
	if !cat.Valid() {
		return nil
	}
	prev := t.active[cat]
	t.active[cat] = c
	return prev
}

// Get returns the active core of a category, or nil if none is in scope.
func (t *TraversalState) Get(cat core.Category) *core.Core {
	if !cat.Valid() {
		return nil
	}
	return t.active[cat]
}

// Reset clears every category.
func (t *TraversalState) Reset() {
	t.active = [core.CategoryCount]*core.Core{}
}

// Snapshot returns a copy of the active cores.
func (t *TraversalState) Snapshot() [core.CategoryCount]*core.Core {
	return t.active
}

// Restore replaces the active cores with a snapshot.
func (t *TraversalState) Restore(s [core.CategoryCount]*core.Core) {
	t.active = s
}
