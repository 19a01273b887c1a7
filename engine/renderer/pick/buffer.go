package pick

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-graph/engine/gpu"
	"github.com/go-gl/mathgl/mgl32"
)

// State is the lifecycle state of an offscreen pick target.
type State int

const (
	// StateNone means no target is allocated.
	StateNone State = iota

	// StateDirty means the target exists but does not reflect the current draw list.
	StateDirty

	// StateClean means the target holds the current pick or ray image.
	StateClean
)

func (s State) String() string {
	switch s {
	case StateNone:
		return "none"
	case StateDirty:
		return "dirty"
	case StateClean:
		return "clean"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Name is the pick name recorded for one pick index, with the matrices active when it was emitted.
type Name struct {
	Name   string
	Path   string
	NodeID string
	View   mgl32.Mat4
	Proj   mgl32.Mat4
}

// Hit is the result of a successful pick.
type Hit struct {
	Name      string
	Path      string
	NodeID    string
	CanvasPos [2]int

	// WorldPos is set for ray picks.
	WorldPos *mgl32.Vec3
}

// Buffer is a lazily allocated offscreen color+depth target sized to the canvas.
type Buffer struct {
	device gpu.Device
	label  string

	target        gpu.TargetHandle
	width, height int
	state         State
}

// NewBuffer creates an unallocated buffer.
//
// Parameters:
//   - device: the device targets are allocated on
//   - label: a name used in errors
//
// Returns:
//   - *Buffer: the buffer in StateNone
func NewBuffer(device gpu.Device, label string) *Buffer {
	return &Buffer{device: device, label: label}
}

// Touch allocates the target on first use and reallocates it when the canvas size changed
// since allocation. A new target is dirty.
//
// Returns:
//   - error: an allocation error
func (b *Buffer) Touch() error {
	w, h := b.device.Size()
	if b.state != StateNone && w == b.width && h == b.height {
		return nil
	}
	if b.state != StateNone {
		b.device.DeleteTarget(b.target)
		b.target = 0
		b.state = StateNone
	}
	t, err := b.device.CreateTarget(w, h)
	if err != nil {
		return fmt.Errorf("failed to allocate %s buffer: %w", b.label, err)
	}
	b.target = t
	b.width, b.height = w, h
	b.state = StateDirty
	return nil
}

// State returns the buffer state.
func (b *Buffer) State() State {
	return b.state
}

// Target returns the allocated target handle, or 0 in StateNone.
func (b *Buffer) Target() gpu.TargetHandle {
	return b.target
}

// Size returns the size the target was allocated with.
func (b *Buffer) Size() (int, int) {
	return b.width, b.height
}

// MarkDirty marks an allocated buffer stale. An unallocated buffer stays in StateNone.
func (b *Buffer) MarkDirty() {
	if b.state == StateClean {
		b.state = StateDirty
	}
}

// MarkClean marks an allocated buffer current.
func (b *Buffer) MarkClean() {
	if b.state != StateNone {
		b.state = StateClean
	}
}

// Drop forgets the target without deleting it, for use after the device context was lost.
func (b *Buffer) Drop() {
	b.target = 0
	b.width, b.height = 0, 0
	b.state = StateNone
}

// Release deletes the target.
func (b *Buffer) Release() {
	if b.state == StateNone {
		return
	}
	b.device.DeleteTarget(b.target)
	b.Drop()
}
