package window

import (
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// glfwPlatform is the GLFW backed platform. All methods must be called from the thread that
// created it.
type glfwPlatform struct {
	win    *glfw.Window
	closed bool
}

var _ platform = &glfwPlatform{}

// newGLFWPlatform initializes GLFW, opens a window without a client API and routes its input
// events into w.
//
// GLFW reference: https://www.glfw.org/docs/latest/window_guide.html
func newGLFWPlatform(w *engineWindow) (*glfwPlatform, error) {
	runtime.LockOSThread()

	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize GLFW: %w", err)
	}

	// WebGPU owns the surface, so GLFW must not create a GL context.
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)

	win, err := glfw.CreateWindow(w.width, w.height, w.title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("failed to create GLFW window: %w", err)
	}
	win.SetSizeLimits(w.minWidth, w.minHeight, w.maxWidth, w.maxHeight)

	p := &glfwPlatform{win: win}
	p.bind(w)
	w.width, w.height = win.GetFramebufferSize()
	return p, nil
}

// bind installs the GLFW callbacks that feed w.
func (p *glfwPlatform) bind(w *engineWindow) {
	p.win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		w.key(Key(key), action != glfw.Release)
	})

	p.win.SetScrollCallback(func(_ *glfw.Window, _, yoff float64) {
		w.scrolled(float32(yoff))
	})

	p.win.SetMouseButtonCallback(func(_ *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		if button != glfw.MouseButtonLeft {
			return
		}
		x, y := p.cursorPixels()
		if action == glfw.Press {
			w.buttonDown(x, y)
			return
		}
		w.buttonUp(x, y, mods&glfw.ModShift != 0)
	})

	p.win.SetCursorPosCallback(func(_ *glfw.Window, _, _ float64) {
		w.cursorMoved(p.cursorPixels())
	})

	// Framebuffer size, not window size: the canvas is sized in pixels.
	p.win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.resized(width, height)
	})
}

// cursorPixels returns the cursor position in framebuffer pixels. GLFW reports the cursor in
// screen coordinates, which are scaled on high-DPI displays.
func (p *glfwPlatform) cursorPixels() (float32, float32) {
	x, y := p.win.GetCursorPos()
	winW, winH := p.win.GetSize()
	fbW, fbH := p.win.GetFramebufferSize()
	if winW > 0 && winH > 0 {
		x *= float64(fbW) / float64(winW)
		y *= float64(fbH) / float64(winH)
	}
	return float32(x), float32(y)
}

func (p *glfwPlatform) running() bool {
	return !p.closed && !p.win.ShouldClose()
}

func (p *glfwPlatform) poll() {
	glfw.PollEvents()
}

// requestClose may be called from any goroutine; the loop notices on its next poll.
func (p *glfwPlatform) requestClose() {
	p.win.SetShouldClose(true)
	glfw.PostEmptyEvent()
}

func (p *glfwPlatform) destroy() error {
	if p.closed {
		return fmt.Errorf("window already closed")
	}
	p.closed = true
	p.win.Destroy()
	glfw.Terminate()
	return nil
}

// surfaceDescriptor builds the WebGPU surface descriptor for the native window.
//
// Reference: https://pkg.go.dev/github.com/cogentcore/webgpu/wgpuglfw#GetSurfaceDescriptor
func (p *glfwPlatform) surfaceDescriptor() *wgpu.SurfaceDescriptor {
	return wgpuglfw.GetSurfaceDescriptor(p.win)
}
