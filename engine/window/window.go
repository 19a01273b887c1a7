package window

import (
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
)

// Window is the native surface a display presents to, and the source of the pointer and
// keyboard gestures the engine turns into picks and camera moves.
type Window interface {
	// SetResizeCallback sets the function called when the framebuffer is resized.
	//
	// Parameters:
	//   - callback: function receiving new width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// SetScrollCallback sets the callback for mouse scroll wheel events.
	//
	// Parameters:
	//   - callback: function receiving scroll delta (positive = up/zoom in, negative = down/zoom out)
	SetScrollCallback(callback func(delta float32))

	// SetKeyDownCallback sets the callback for key press and repeat events.
	//
	// Parameters:
	//   - callback: function receiving the key
	SetKeyDownCallback(callback func(key Key))

	// SetKeyUpCallback sets the callback for key release events.
	SetKeyUpCallback(callback func(key Key))

	// SetClickCallback sets the callback for a left button press and release that moved less
	// than the click slop. Coordinates are framebuffer pixels with a top-left origin.
	//
	// Parameters:
	//   - callback: function receiving the click position and whether shift was held
	SetClickCallback(callback func(x, y int, shift bool))

	// SetDragCallback sets the callback for mouse movement while the left button is held.
	//
	// Parameters:
	//   - callback: function receiving the movement since the last event in pixels
	SetDragCallback(callback func(dx, dy float32))

	// SurfaceDescriptor returns the platform surface descriptor a WebGPU surface is created from.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the descriptor, or nil once the window is closed
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning reports whether the window is open and no close was requested.
	IsRunning() bool

	// RequestClose asks the message loop to stop. Safe to call from any goroutine.
	RequestClose()

	// Close destroys the native window. Call it on the thread that ran ProcessMessages.
	//
	// Returns:
	//   - error: error if the window was already closed
	Close() error

	// ProcessMessages pumps platform events until the window closes or RequestClose is called.
	ProcessMessages()

	// Width returns the current framebuffer width in pixels.
	Width() int

	// Height returns the current framebuffer height in pixels.
	Height() int
}

// platform is the native window behind an engineWindow.
type platform interface {
	running() bool
	poll()
	requestClose()
	destroy() error
	surfaceDescriptor() *wgpu.SurfaceDescriptor
}

// engineWindow is the implementation of the Window interface.
type engineWindow struct {
	title string

	minWidth, minHeight int
	maxWidth, maxHeight int

	// width and height are framebuffer pixels, which differ from screen coordinates on high-DPI displays.
	width, height int

	// clickSlop is the largest pointer travel in pixels that still counts as a click.
	clickSlop float32

	native  platform
	pointer pointerState

	onResize  func(width, height int)
	onScroll  func(delta float32)
	onKeyDown func(key Key)
	onKeyUp   func(key Key)
	onClick   func(x, y int, shift bool)
	onDrag    func(dx, dy float32)
}

var _ Window = &engineWindow{}

// NewWindow opens a GLFW window with the specified options. It panics if the platform window
// cannot be created.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the configured window
func NewWindow(options ...WindowBuilderOption) Window {
	w, err := newWindow(func(w *engineWindow) (platform, error) {
		return newGLFWPlatform(w)
	}, options...)
	if err != nil {
		panic(fmt.Sprintf("failed to create platform window: %v", err))
	}
	return w
}

func newWindow(open func(*engineWindow) (platform, error), options ...WindowBuilderOption) (*engineWindow, error) {
	w := &engineWindow{
		title:     "oxy-graph",
		maxWidth:  3840,
		maxHeight: 2160,
		minWidth:  320,
		minHeight: 240,
		width:     1280,
		height:    720,
		clickSlop: 4,
	}
	for _, opt := range options {
		opt(w)
	}
	native, err := open(w)
	if err != nil {
		return nil, err
	}
	w.native = native
	return w, nil
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *engineWindow) SetScrollCallback(callback func(delta float32)) {
	w.onScroll = callback
}

func (w *engineWindow) SetKeyDownCallback(callback func(key Key)) {
	w.onKeyDown = callback
}

func (w *engineWindow) SetKeyUpCallback(callback func(key Key)) {
	w.onKeyUp = callback
}

func (w *engineWindow) SetClickCallback(callback func(x, y int, shift bool)) {
	w.onClick = callback
}

func (w *engineWindow) SetDragCallback(callback func(dx, dy float32)) {
	w.onDrag = callback
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	if !w.native.running() {
		return nil
	}
	return w.native.surfaceDescriptor()
}

func (w *engineWindow) IsRunning() bool {
	return w.native.running()
}

func (w *engineWindow) RequestClose() {
	w.native.requestClose()
}

func (w *engineWindow) Close() error {
	if err := w.native.destroy(); err != nil {
		return fmt.Errorf("failed to close window: %w", err)
	}
	return nil
}

func (w *engineWindow) ProcessMessages() {
	for w.native.running() {
		w.native.poll()
		runtime.Gosched()
	}
}

func (w *engineWindow) Width() int {
	return w.width
}

func (w *engineWindow) Height() int {
	return w.height
}

// key forwards a key event to the down or up callback.
func (w *engineWindow) key(k Key, down bool) {
	cb := w.onKeyUp
	if down {
		cb = w.onKeyDown
	}
	if cb != nil {
		cb(k)
	}
}

func (w *engineWindow) scrolled(delta float32) {
	if w.onScroll != nil {
		w.onScroll(delta)
	}
}

// buttonDown starts tracking a left button gesture at framebuffer position (x, y).
func (w *engineWindow) buttonDown(x, y float32) {
	w.pointer.press(x, y)
}

// buttonUp ends a left button gesture and reports a click if the pointer stayed within slop.
func (w *engineWindow) buttonUp(x, y float32, shift bool) {
	if w.pointer.release(x, y, w.clickSlop) && w.onClick != nil {
		w.onClick(int(x), int(y), shift)
	}
}

// cursorMoved reports drags while the left button is held.
func (w *engineWindow) cursorMoved(x, y float32) {
	if dx, dy, ok := w.pointer.move(x, y); ok && w.onDrag != nil {
		w.onDrag(dx, dy)
	}
}

// resized stores the framebuffer size and forwards it.
func (w *engineWindow) resized(width, height int) {
	w.width, w.height = width, height
	if w.onResize != nil {
		w.onResize(width, height)
	}
}
