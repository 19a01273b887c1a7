// Package program compiles and reference-counts GPU programs keyed by the hash of the
// shader-relevant state cores active when an object is built.
package program

import (
	"github.com/Carmen-Shannon/oxy-graph/engine/gpu"
)

// Program is a compiled draw/pick/ray program shared by every object with the same hash.
type Program struct {
	// ID is small and reused after release so it fits the program field of a sort key.
	ID int

	// Hash is the shader selection hash the program was compiled for.
	Hash string

	// Handle is the device program. It changes when the program is recompiled after a context restore.
	Handle gpu.ProgramHandle

	// Features is the feature set the sources were generated for.
	Features gpu.Features

	refs     int
	released bool
}

// Refs returns the number of live references to p.
func (p *Program) Refs() int {
	return p.refs
}

// Released reports whether p has been deleted from the device.
func (p *Program) Released() bool {
	return p.released
}
