package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClickVersusDrag(t *testing.T) {
	w := &engineWindow{clickSlop: 4}
	var clicks [][2]int
	var drags [][2]float32
	w.SetClickCallback(func(x, y int, shift bool) { clicks = append(clicks, [2]int{x, y}) })
	w.SetDragCallback(func(dx, dy float32) { drags = append(drags, [2]float32{dx, dy}) })

	w.cursorMoved(5, 5)
	assert.Empty(t, drags)

	w.buttonDown(10, 10)
	w.cursorMoved(12, 11)
	w.buttonUp(12, 11, false)
	assert.Equal(t, [][2]int{{12, 11}}, clicks)
	assert.Equal(t, [][2]float32{{2, 1}}, drags)

	drags = nil
	w.buttonDown(10, 10)
	w.cursorMoved(30, 10)
	w.cursorMoved(11, 10)
	w.buttonUp(11, 10, false)
	assert.Len(t, clicks, 1)
	assert.Equal(t, [][2]float32{{20, 0}, {-19, 0}}, drags)

	w.buttonUp(0, 0, false)
	assert.Len(t, clicks, 1)
}

func TestResized(t *testing.T) {
	w := &engineWindow{}
	var got [2]int
	w.SetResizeCallback(func(width, height int) { got = [2]int{width, height} })
	w.resized(800, 600)
	assert.Equal(t, [2]int{800, 600}, got)
	assert.Equal(t, 800, w.Width())
	assert.Equal(t, 600, w.Height())
}
