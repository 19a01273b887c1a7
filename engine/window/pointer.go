package window

import "github.com/chewxy/math32"

// pointerState tracks one left button gesture to tell clicks from drags.
type pointerState struct {
	down         bool
	startX       float32
	startY       float32
	lastX, lastY float32
	travel       float32
}

func (p *pointerState) press(x, y float32) {
	*p = pointerState{down: true, startX: x, startY: y, lastX: x, lastY: y}
}

// move returns the movement since the last event when the button is held.
func (p *pointerState) move(x, y float32) (dx, dy float32, dragging bool) {
	if !p.down {
		p.lastX, p.lastY = x, y
		return 0, 0, false
	}
	dx, dy = x-p.lastX, y-p.lastY
	p.lastX, p.lastY = x, y
	p.travel = math32.Max(p.travel, math32.Hypot(x-p.startX, y-p.startY))
	return dx, dy, true
}

// release ends the gesture and reports whether it was a click.
func (p *pointerState) release(x, y, slop float32) bool {
	if !p.down {
		return false
	}
	p.move(x, y)
	p.down = false
	return p.travel <= slop
}
