// Package softdevice is a CPU rasterizer implementing gpu.Device on top of fauxgl.
// It interprets the built-in draw, pick and ray programs from their feature sets rather than
// executing WGSL, so custom shader snippets are accepted but not run. Blending is limited to
// source-over and depth comparisons other than "always" behave as "less".
package softdevice

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/Carmen-Shannon/oxy-graph/common"
	"github.com/Carmen-Shannon/oxy-graph/engine/gpu"
	"github.com/fogleman/fauxgl"
	"github.com/go-gl/mathgl/mgl32"
)

// Device is a gpu.Device that renders into in-memory images.
type Device interface {
	gpu.Device

	// Image returns a copy of the last presented canvas.
	//
	// Returns:
	//   - *image.NRGBA: the presented frame, or nil before the first Present
	Image() *image.NRGBA

	// LoseContext discards every device resource and fails further calls until RestoreContext.
	LoseContext()

	// RestoreContext ends a context loss. Resources must be recreated by their owners.
	RestoreContext()

	// Resize reallocates the canvas.
	//
	// Parameters:
	//   - width, height: the new canvas size in pixels
	Resize(width, height int)
}

type device struct {
	mu *sync.Mutex

	width, height int
	lost          bool

	nextHandle uint32
	programs   map[gpu.ProgramHandle]gpu.Features
	vertices   map[gpu.BufferHandle][]float32
	indices    map[gpu.BufferHandle][]uint32
	textures   map[gpu.TextureHandle]common.TextureStagingData
	targets    map[gpu.TargetHandle]*fauxgl.Context
	presented  *image.NRGBA

	// pass state
	ctx    *fauxgl.Context
	raster gpu.RasterState

	// bound state
	program  gpu.ProgramHandle
	pass     gpu.Pass
	uniforms uniforms
	geometry gpu.GeometryBinding
	morph    [2]gpu.BufferHandle
	bound    map[int]gpu.TextureHandle
}

var _ Device = &device{}

// NewDevice creates a software device with a canvas of the given size.
//
// Parameters:
//   - width, height: the canvas size in pixels
//
// Returns:
//   - Device: the software device
func NewDevice(width, height int) Device {
	d := &device{
		mu:       &sync.Mutex{},
		programs: make(map[gpu.ProgramHandle]gpu.Features),
		vertices: make(map[gpu.BufferHandle][]float32),
		indices:  make(map[gpu.BufferHandle][]uint32),
		textures: make(map[gpu.TextureHandle]common.TextureStagingData),
		targets:  make(map[gpu.TargetHandle]*fauxgl.Context),
		bound:    make(map[int]gpu.TextureHandle),
		raster:   gpu.DefaultRasterState(),
	}
	d.resize(width, height)
	d.uniforms.reset()
	return d
}

func (d *device) resize(width, height int) {
	d.width, d.height = width, height
	d.targets[gpu.CanvasTarget] = fauxgl.NewContext(width, height)
}

func (d *device) handle() uint32 {
	d.nextHandle++
	return d.nextHandle
}

func (d *device) contextLost(op string) error {
	return &gpu.Error{Kind: gpu.KindContextLost, Op: op, Err: gpu.ErrContextLost}
}

func (d *device) Size() (int, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.width, d.height
}

func (d *device) ContextLost() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lost
}

func (d *device) LoseContext() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lost = true
	clear(d.programs)
	clear(d.vertices)
	clear(d.indices)
	clear(d.textures)
	for h := range d.targets {
		if h != gpu.CanvasTarget {
			delete(d.targets, h)
		}
	}
	d.ctx = nil
	common.Logger().Info("soft device context lost")
}

func (d *device) RestoreContext() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lost = false
	common.Logger().Info("soft device context restored")
}

func (d *device) Resize(width, height int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resize(width, height)
}

func (d *device) Image() *image.NRGBA {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.presented == nil {
		return nil
	}
	out := image.NewNRGBA(d.presented.Rect)
	copy(out.Pix, d.presented.Pix)
	return out
}

func (d *device) CompileProgram(src gpu.ProgramSource) (gpu.ProgramHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lost {
		return 0, d.contextLost("compile program")
	}
	if src.Draw == "" || src.Pick == "" || src.Ray == "" {
		return 0, &gpu.Error{Kind: gpu.KindShaderCompile, Op: "compile program", Err: fmt.Errorf("program %q is missing a variant", src.Hash)}
	}
	h := gpu.ProgramHandle(d.handle())
	d.programs[h] = src.Features
	return h, nil
}

func (d *device) DeleteProgram(h gpu.ProgramHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.programs, h)
}

func (d *device) UseProgram(h gpu.ProgramHandle, pass gpu.Pass) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.program, d.pass = h, pass
}

func (d *device) SetMatrix(u gpu.Uniform, m mgl32.Mat4) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.uniforms.matrices[u] = m
}

func (d *device) SetVector(u gpu.Uniform, v mgl32.Vec4) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.uniforms.vectors[u] = v
}

func (d *device) SetScalar(u gpu.Uniform, v float32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.uniforms.scalars[u] = v
}

func (d *device) SetShaderParam(string, []float32) {}

func (d *device) SetLights(lights []gpu.LightData) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.uniforms.lights = lights
}

func (d *device) SetClipPlanes(planes []mgl32.Vec4) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.uniforms.clip = planes
}

func (d *device) CreateVertexBuffer(data []float32) (gpu.BufferHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lost {
		return 0, d.contextLost("create vertex buffer")
	}
	h := gpu.BufferHandle(d.handle())
	d.vertices[h] = append([]float32(nil), data...)
	return h, nil
}

func (d *device) CreateIndexBuffer(data []uint32) (gpu.BufferHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lost {
		return 0, d.contextLost("create index buffer")
	}
	h := gpu.BufferHandle(d.handle())
	d.indices[h] = append([]uint32(nil), data...)
	return h, nil
}

func (d *device) DeleteBuffer(h gpu.BufferHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.vertices, h)
	delete(d.indices, h)
}

func (d *device) CreateTexture(data common.TextureStagingData) (gpu.TextureHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lost {
		return 0, d.contextLost("create texture")
	}
	if data.Width == 0 || data.Height == 0 || len(data.Pixels) < int(data.Width*data.Height*4) {
		return 0, gpu.AllocError("create texture", fmt.Errorf("invalid texture %dx%d with %d bytes", data.Width, data.Height, len(data.Pixels)))
	}
	h := gpu.TextureHandle(d.handle())
	d.textures[h] = data
	return h, nil
}

func (d *device) DeleteTexture(h gpu.TextureHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.textures, h)
}

func (d *device) BindTexture(unit int, h gpu.TextureHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bound[unit] = h
}

func (d *device) BindGeometry(g gpu.GeometryBinding) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.geometry = g
}

func (d *device) BindMorphTarget(positions, normals gpu.BufferHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.morph = [2]gpu.BufferHandle{positions, normals}
}

func (d *device) SetBlend(b gpu.BlendState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.raster.Blend = b
}

func (d *device) SetDepth(ds gpu.DepthState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.raster.Depth = ds
}

func (d *device) SetCullMode(c gpu.CullMode) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.raster.Cull = c
}

func (d *device) SetFrontFace(f gpu.FrontFace) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.raster.FrontFace = f
}

func (d *device) SetColorMask(mask [4]bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.raster.ColorMask = mask
}

func (d *device) SetLineWidth(w float32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.raster.LineWidth = w
}

func (d *device) CreateTarget(width, height int) (gpu.TargetHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lost {
		return 0, d.contextLost("create target")
	}
	if width <= 0 || height <= 0 {
		return 0, gpu.AllocError("create target", fmt.Errorf("invalid target size %dx%d", width, height))
	}
	h := gpu.TargetHandle(d.handle())
	d.targets[h] = fauxgl.NewContext(width, height)
	return h, nil
}

func (d *device) DeleteTarget(h gpu.TargetHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if h == gpu.CanvasTarget {
		return
	}
	delete(d.targets, h)
}

func (d *device) BeginPass(target gpu.TargetHandle, clearValue *gpu.ClearValue) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lost {
		return d.contextLost("begin pass")
	}
	ctx, ok := d.targets[target]
	if !ok {
		return fmt.Errorf("failed to begin pass: unknown target %d", target)
	}
	d.ctx = ctx
	d.raster = gpu.DefaultRasterState()
	if clearValue != nil {
		c := clearValue.Color
		ctx.ClearColorBufferWith(fauxgl.Color{R: float64(c[0]), G: float64(c[1]), B: float64(c[2]), A: float64(c[3])})
		ctx.ClearDepthBuffer()
	}
	return nil
}

func (d *device) EndPass() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ctx == nil {
		return errors.New("failed to end pass: no pass in progress")
	}
	d.ctx = nil
	return nil
}

func (d *device) Finish() {}

func (d *device) ReadPixel(target gpu.TargetHandle, x, y int) ([4]uint8, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lost {
		return [4]uint8{}, d.contextLost("read pixel")
	}
	ctx, ok := d.targets[target]
	if !ok {
		return [4]uint8{}, fmt.Errorf("failed to read pixel: unknown target %d", target)
	}
	if x < 0 || y < 0 || x >= ctx.Width || y >= ctx.Height {
		return [4]uint8{}, fmt.Errorf("failed to read pixel: (%d, %d) outside %dx%d target", x, y, ctx.Width, ctx.Height)
	}
	c := ctx.ColorBuffer.NRGBAAt(x, y)
	return [4]uint8{c.R, c.G, c.B, c.A}, nil
}

func (d *device) Present() {
	d.mu.Lock()
	defer d.mu.Unlock()
	canvas := d.targets[gpu.CanvasTarget].ColorBuffer
	if d.presented == nil || d.presented.Rect != canvas.Rect {
		d.presented = image.NewNRGBA(canvas.Rect)
	}
	copy(d.presented.Pix, canvas.Pix)
}
