package camera

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-graph/engine/core"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

type cameraImpl struct {
	mu *sync.Mutex

	up mgl32.Vec3

	fov          float32
	aspect       float32
	near         float32
	far          float32
	orthographic bool
	orthoHeight  float32

	controller OrbitController

	view       *core.Core
	projection *core.Core
	version    uint64
}

// Camera owns the view and projection cores of a scene. The cores are created once and their
// payloads are updated in place, so objects compiled against them pick up new matrices on the
// next draw without a rebuild; the owner only has to mark the display image dirty.
type Camera interface {
	// Up returns the camera's up vector.
	//
	// Returns:
	//   - mgl32.Vec3: the up vector
	Up() mgl32.Vec3

	// Fov returns the vertical field of view in radians.
	//
	// Returns:
	//   - float32: field of view in radians
	Fov() float32

	// Aspect returns the aspect ratio (width / height).
	//
	// Returns:
	//   - float32: the aspect ratio
	Aspect() float32

	// Near returns the near clipping plane distance.
	Near() float32

	// Far returns the far clipping plane distance.
	Far() float32

	// Eye returns the world-space eye position of the current view.
	//
	// Returns:
	//   - mgl32.Vec3: the eye position
	Eye() mgl32.Vec3

	// ViewMatrix returns the current view matrix.
	ViewMatrix() mgl32.Mat4

	// ProjectionMatrix returns the current projection matrix.
	ProjectionMatrix() mgl32.Mat4

	// ViewCore returns the view core bound into the scene.
	//
	// Returns:
	//   - *core.Core: a core with a *core.View payload
	ViewCore() *core.Core

	// ProjectionCore returns the projection core bound into the scene.
	//
	// Returns:
	//   - *core.Core: a core with a *core.Projection payload
	ProjectionCore() *core.Core

	// Version returns a counter bumped every time the matrices change.
	//
	// Returns:
	//   - uint64: the matrix version
	Version() uint64

	// Controller returns the attached OrbitController, or nil.
	Controller() OrbitController

	// SetController attaches an OrbitController and recomputes the view.
	//
	// Parameters:
	//   - ctrl: the controller to attach
	SetController(ctrl OrbitController)

	// SetUp sets the camera's up vector.
	SetUp(up mgl32.Vec3)

	// SetFov sets the vertical field of view in radians.
	SetFov(fov float32)

	// SetAspect sets the aspect ratio (width / height).
	SetAspect(aspect float32)

	// SetNear sets the near clipping plane distance.
	SetNear(near float32)

	// SetFar sets the far clipping plane distance.
	SetFar(far float32)

	// SetOrthographic switches between a perspective and an orthographic projection.
	//
	// Parameters:
	//   - ortho: whether to use an orthographic projection
	//   - height: the height of the orthographic view volume in world units
	SetOrthographic(ortho bool, height float32)

	// Update reads the controller and recomputes the matrices.
	//
	// Returns:
	//   - bool: true if the view or projection changed
	Update() bool
}

var _ Camera = &cameraImpl{}

// NewCamera creates a camera looking down -Z from (0, 0, 5) until a controller is attached.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:          &sync.Mutex{},
		up:          mgl32.Vec3{0, 1, 0},
		fov:         45 * (math32.Pi / 180),
		aspect:      1,
		near:        0.1,
		far:         100,
		orthoHeight: 10,
		view:        core.NewView(mgl32.Ident4(), mgl32.Vec3{}),
		projection:  core.NewProjection(mgl32.Ident4()),
	}
	for _, option := range options {
		option(c)
	}
	c.updateMatrices()
	return c
}

func (c *cameraImpl) Up() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.up
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) Eye() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, _ := core.As[*core.View](c.view)
	return v.Eye
}

func (c *cameraImpl) ViewMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, _ := core.As[*core.View](c.view)
	return v.Matrix
}

func (c *cameraImpl) ProjectionMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, _ := core.As[*core.Projection](c.projection)
	return p.Matrix
}

func (c *cameraImpl) ViewCore() *core.Core {
	return c.view
}

func (c *cameraImpl) ProjectionCore() *core.Core {
	return c.projection
}

func (c *cameraImpl) Version() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

func (c *cameraImpl) Controller() OrbitController {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controller
}

func (c *cameraImpl) SetController(ctrl OrbitController) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controller = ctrl
	c.updateMatrices()
}

func (c *cameraImpl) SetUp(up mgl32.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.up = up
	c.updateMatrices()
}

func (c *cameraImpl) SetFov(fov float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fov = fov
	c.updateMatrices()
}

func (c *cameraImpl) SetAspect(aspect float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
	c.updateMatrices()
}

func (c *cameraImpl) SetNear(near float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.near = near
	c.updateMatrices()
}

func (c *cameraImpl) SetFar(far float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.far = far
	c.updateMatrices()
}

func (c *cameraImpl) SetOrthographic(ortho bool, height float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orthographic = ortho
	if height > 0 {
		c.orthoHeight = height
	}
	c.updateMatrices()
}

func (c *cameraImpl) Update() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updateMatrices()
}

// updateMatrices recomputes the view from the controller (or the default pose) and the
// projection from the lens settings, writing both into the core payloads.
// Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() bool {
	eye, target := mgl32.Vec3{0, 0, 5}, mgl32.Vec3{}
	if c.controller != nil {
		eye, target = c.controller.Position(), c.controller.Target()
	}
	view := mgl32.LookAtV(eye, target, c.up)

	var proj mgl32.Mat4
	if c.orthographic {
		h := c.orthoHeight / 2
		w := h * c.aspect
		proj = mgl32.Ortho(-w, w, -h, h, c.near, c.far)
	} else {
		proj = mgl32.Perspective(c.fov, c.aspect, c.near, c.far)
	}

	v, _ := core.As[*core.View](c.view)
	p, _ := core.As[*core.Projection](c.projection)
	if v.Matrix == view && v.Eye == eye && p.Matrix == proj {
		return false
	}
	v.Matrix, v.Eye = view, eye
	p.Matrix = proj
	c.version++
	return true
}
