// Package wgpudevice implements gpu.Device on WebGPU. Uniform state is accumulated on the CPU
// the way a GL context would hold it and streamed into a ring buffer addressed with dynamic
// offsets on every draw; render pipelines are created lazily per program variant and raster state.
package wgpudevice

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-graph/common"
	"github.com/Carmen-Shannon/oxy-graph/engine/gpu"
	"github.com/Carmen-Shannon/oxy-graph/engine/gpu/wgpudevice/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	PresentModeUncapped
)

// MSAASampleCount is the number of samples of the canvas pass. Offscreen targets are never
// multisampled so picked colors and packed depths survive exactly.
type MSAASampleCount uint32

const (
	MSAAOff MSAASampleCount = 1
	MSAA4x  MSAASampleCount = 4
)

const (
	offscreenFormat = wgpu.TextureFormatRGBA8Unorm
	depthFormat     = wgpu.TextureFormatDepth24Plus

	uniformRingSlots = 1024
	lightRingSlots   = 64

	// readbackRowPitch is the copy row alignment WebGPU requires.
	readbackRowPitch = 256
)

type program struct {
	features gpu.Features
	modules  [3]*wgpu.ShaderModule
	custom   map[string]int
}

func (p *program) release() {
	for i, m := range p.modules {
		if m != nil {
			m.Release()
			p.modules[i] = nil
		}
	}
}

type buffer struct {
	buf  *wgpu.Buffer
	size uint64
}

type texture struct {
	tex       *wgpu.Texture
	view      *wgpu.TextureView
	bindGroup *wgpu.BindGroup
}

func (t *texture) release() {
	if t.bindGroup != nil {
		t.bindGroup.Release()
	}
	if t.view != nil {
		t.view.Release()
	}
	if t.tex != nil {
		t.tex.Release()
	}
}

type target struct {
	width, height int
	color         *wgpu.Texture
	colorView     *wgpu.TextureView
	depth         *wgpu.Texture
	depthView     *wgpu.TextureView
}

func (t *target) release() {
	for _, v := range []*wgpu.TextureView{t.colorView, t.depthView} {
		if v != nil {
			v.Release()
		}
	}
	for _, tex := range []*wgpu.Texture{t.color, t.depth} {
		if tex != nil {
			tex.Release()
		}
	}
}

type device struct {
	mu *sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface
	device   *wgpu.Device
	queue    *wgpu.Queue

	surfaceDescriptor    *wgpu.SurfaceDescriptor
	forceFallbackAdapter bool
	presentMode          wgpu.PresentMode
	sampleCount          MSAASampleCount
	label                string

	width, height int
	lost          bool
	canvasFormat  wgpu.TextureFormat
	canvas        *target
	msaaTexture   *wgpu.Texture
	msaaView      *wgpu.TextureView

	// shared layouts
	frameLayout    *wgpu.BindGroupLayout
	textureLayout  *wgpu.BindGroupLayout
	plainLayout    *wgpu.PipelineLayout
	texturedLayout *wgpu.PipelineLayout
	sampler        *wgpu.Sampler
	uniformRing    *wgpu.Buffer
	lightRing      *wgpu.Buffer
	frameGroup     *wgpu.BindGroup
	readback       *wgpu.Buffer

	nextHandle uint32
	programs   map[gpu.ProgramHandle]*program
	buffers    map[gpu.BufferHandle]*buffer
	textures   map[gpu.TextureHandle]*texture
	targets    map[gpu.TargetHandle]*target
	pipelines  pipeline.Cache

	// pass state
	encoder       *wgpu.CommandEncoder
	pass          *wgpu.RenderPassEncoder
	passTarget    gpu.TargetHandle
	passFormat    wgpu.TextureFormat
	passSamples   uint32
	frameTexture  *wgpu.Texture
	frameView     *wgpu.TextureView
	uniformCursor uint64
	lightCursor   uint64
	lightOffset   uint64
	lightsDirty   bool

	// bound state
	raster   gpu.RasterState
	program  gpu.ProgramHandle
	variant  gpu.Pass
	uniforms uniformBlock
	lights   []lightBlock
	geometry gpu.GeometryBinding
	morph    [2]gpu.BufferHandle
	bound    gpu.TextureHandle
}

// Device is a gpu.Device backed by WebGPU.
type Device interface {
	gpu.Device

	// Resize reconfigures the surface (or the headless canvas) to a new size.
	//
	// Parameters:
	//   - width, height: the new canvas size in pixels
	Resize(width, height int)

	// SetPresentMode sets the surface present mode. It takes effect on the next Resize.
	//
	// Parameters:
	//   - mode: the PresentMode to use
	SetPresentMode(mode PresentMode)

	// MarkLost flags the device context as lost, for example from a device-lost callback or a
	// failed surface acquisition. Every device resource is released.
	MarkLost()

	// Restore requests a new device from the adapter and recreates the shared resources.
	// Programs, buffers, textures and targets must be recreated by their owners.
	//
	// Returns:
	//   - error: an error if the new device cannot be created
	Restore() error

	// Release releases every WebGPU object owned by the device.
	Release()
}

var _ Device = &device{}

// NewDevice creates the WebGPU instance, adapter and device and configures the canvas.
// Without WithSurface the canvas is an offscreen texture. Failing to bring up the adapter or
// device panics, as there is nothing to render with.
//
// Parameters:
//   - width, height: the canvas size in pixels
//   - options: a variadic list of DeviceBuilderOption functions
//
// Returns:
//   - Device: the WebGPU device
func NewDevice(width, height int, options ...DeviceBuilderOption) Device {
	runtime.LockOSThread()
	d := &device{
		mu:          &sync.Mutex{},
		presentMode: wgpu.PresentModeFifo,
		sampleCount: MSAAOff,
		label:       "oxy-graph",
		programs:    make(map[gpu.ProgramHandle]*program),
		buffers:     make(map[gpu.BufferHandle]*buffer),
		textures:    make(map[gpu.TextureHandle]*texture),
		targets:     make(map[gpu.TargetHandle]*target),
		pipelines:   pipeline.NewCache(),
		raster:      gpu.DefaultRasterState(),
		uniforms:    defaultUniforms(),
	}
	for _, opt := range options {
		opt(d)
	}

	d.instance = wgpu.CreateInstance(nil)
	if d.surfaceDescriptor != nil {
		d.surface = d.instance.CreateSurface(d.surfaceDescriptor)
	}
	a, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: d.forceFallbackAdapter,
		CompatibleSurface:    d.surface,
	})
	if err != nil {
		panic(err)
	}
	d.adapter = a

	if err := d.bringUp(); err != nil {
		panic(err)
	}
	d.configure(width, height)
	return d
}

// bringUp requests the device and creates the resources every pass shares.
func (d *device) bringUp() error {
	dev, err := d.adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: d.label + " device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to request device: %w", err)
	}
	d.device = dev
	d.queue = dev.GetQueue()

	d.frameLayout, err = dev.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "frame bind group layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:             wgpu.BufferBindingTypeUniform,
					HasDynamicOffset: true,
					MinBindingSize:   uniformSize,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:             wgpu.BufferBindingTypeReadOnlyStorage,
					HasDynamicOffset: true,
					MinBindingSize:   lightsBinding,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create frame bind group layout: %w", err)
	}
	d.textureLayout, err = dev.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "texture bind group layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageFragment,
				Sampler: wgpu.SamplerBindingLayout{
					Type: wgpu.SamplerBindingTypeFiltering,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create texture bind group layout: %w", err)
	}
	d.plainLayout, err = dev.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "plain pipeline layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{d.frameLayout},
	})
	if err != nil {
		return fmt.Errorf("failed to create pipeline layout: %w", err)
	}
	d.texturedLayout, err = dev.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "textured pipeline layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{d.frameLayout, d.textureLayout},
	})
	if err != nil {
		return fmt.Errorf("failed to create pipeline layout: %w", err)
	}
	d.sampler, err = dev.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "texture sampler",
		AddressModeU:  wgpu.AddressModeRepeat,
		AddressModeV:  wgpu.AddressModeRepeat,
		AddressModeW:  wgpu.AddressModeRepeat,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return fmt.Errorf("failed to create sampler: %w", err)
	}

	d.uniformRing, err = dev.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "uniform ring",
		Size:  uniformStride * uniformRingSlots,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("failed to create uniform ring: %w", err)
	}
	d.lightRing, err = dev.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "light ring",
		Size:  lightsStride * lightRingSlots,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("failed to create light ring: %w", err)
	}
	d.frameGroup, err = dev.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "frame bind group",
		Layout: d.frameLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: d.uniformRing, Offset: 0, Size: uniformSize},
			{Binding: 1, Buffer: d.lightRing, Offset: 0, Size: lightsBinding},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create frame bind group: %w", err)
	}
	d.readback, err = dev.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "pixel readback",
		Size:  readbackRowPitch,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("failed to create readback buffer: %w", err)
	}
	return nil
}

// configure sizes the canvas: the surface and its depth (and MSAA) attachments, or an
// offscreen target when running headless.
func (d *device) configure(width, height int) {
	d.width, d.height = width, height
	if d.canvas != nil {
		d.canvas.release()
		d.canvas = nil
	}
	if d.msaaView != nil {
		d.msaaView.Release()
		d.msaaTexture.Release()
		d.msaaView, d.msaaTexture = nil, nil
	}

	if d.surface == nil {
		d.canvasFormat = offscreenFormat
		t, err := d.createTarget("canvas", width, height, offscreenFormat, 1, true)
		if err != nil {
			panic(err)
		}
		d.canvas = t
		return
	}

	capabilities := d.surface.GetCapabilities(d.adapter)
	d.canvasFormat = capabilities.Formats[0]
	d.surface.Configure(d.adapter, d.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      d.canvasFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: d.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})

	samples := uint32(d.sampleCount)
	if samples > 1 {
		tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
			Label:         "canvas msaa",
			Size:          wgpu.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1},
			MipLevelCount: 1,
			SampleCount:   samples,
			Dimension:     wgpu.TextureDimension2D,
			Format:        d.canvasFormat,
			Usage:         wgpu.TextureUsageRenderAttachment,
		})
		if err != nil {
			panic(err)
		}
		view, err := tex.CreateView(nil)
		if err != nil {
			panic(err)
		}
		d.msaaTexture, d.msaaView = tex, view
	}

	depth, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "canvas depth",
		Size:          wgpu.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   samples,
		Dimension:     wgpu.TextureDimension2D,
		Format:        depthFormat,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		panic(err)
	}
	depthView, err := depth.CreateView(nil)
	if err != nil {
		panic(err)
	}
	d.canvas = &target{width: width, height: height, depth: depth, depthView: depthView}
}

// createTarget allocates a color and depth attachment pair. The color attachment is released
// when the depth attachment cannot be created.
func (d *device) createTarget(label string, width, height int, format wgpu.TextureFormat, samples uint32, readable bool) (*target, error) {
	if width <= 0 || height <= 0 {
		return nil, gpu.AllocError("create target", fmt.Errorf("invalid target size %dx%d", width, height))
	}
	size := wgpu.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1}
	usage := wgpu.TextureUsageRenderAttachment
	if readable {
		usage |= wgpu.TextureUsageCopySrc
	}
	t := &target{width: width, height: height}
	var err error
	t.color, err = d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label + " color",
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   samples,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		return nil, gpu.AllocError("create target color", err)
	}
	t.colorView, err = t.color.CreateView(nil)
	if err != nil {
		t.release()
		return nil, gpu.AllocError("create target color view", err)
	}
	t.depth, err = d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label + " depth",
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   samples,
		Dimension:     wgpu.TextureDimension2D,
		Format:        depthFormat,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		t.release()
		return nil, gpu.AllocError("create target depth", err)
	}
	t.depthView, err = t.depth.CreateView(nil)
	if err != nil {
		t.release()
		return nil, gpu.AllocError("create target depth view", err)
	}
	return t, nil
}

func (d *device) handle() uint32 {
	d.nextHandle++
	return d.nextHandle
}

func contextLost(op string) error {
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

func (d *device) Resize(width, height int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lost {
		d.width, d.height = width, height
		return
	}
	d.configure(width, height)
}

func (d *device) SetPresentMode(mode PresentMode) {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch mode {
	case PresentModeUncapped:
		d.presentMode = wgpu.PresentModeImmediate
	default:
		d.presentMode = wgpu.PresentModeFifo
	}
}

func (d *device) MarkLost() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lost {
		return
	}
	d.lost = true
	d.releaseResources()
	common.Logger().Warn("webgpu device lost")
}

func (d *device) Restore() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.lost {
		return nil
	}
	if err := d.bringUp(); err != nil {
		return err
	}
	d.lost = false
	d.raster = gpu.DefaultRasterState()
	d.uniforms = defaultUniforms()
	d.configure(d.width, d.height)
	common.Logger().Info("webgpu device restored")
	return nil
}

// releaseResources releases everything created from the current WebGPU device.
func (d *device) releaseResources() {
	d.abortPass()
	d.pipelines.Clear()
	for h, p := range d.programs {
		p.release()
		delete(d.programs, h)
	}
	for h, b := range d.buffers {
		b.buf.Release()
		delete(d.buffers, h)
	}
	for h, t := range d.textures {
		t.release()
		delete(d.textures, h)
	}
	for h, t := range d.targets {
		t.release()
		delete(d.targets, h)
	}
	if d.canvas != nil {
		d.canvas.release()
		d.canvas = nil
	}
	if d.msaaView != nil {
		d.msaaView.Release()
		d.msaaTexture.Release()
		d.msaaView, d.msaaTexture = nil, nil
	}
	if d.frameGroup != nil {
		d.frameGroup.Release()
	}
	for _, b := range []*wgpu.Buffer{d.uniformRing, d.lightRing, d.readback} {
		if b != nil {
			b.Release()
		}
	}
	if d.sampler != nil {
		d.sampler.Release()
	}
	for _, l := range []*wgpu.PipelineLayout{d.plainLayout, d.texturedLayout} {
		if l != nil {
			l.Release()
		}
	}
	for _, l := range []*wgpu.BindGroupLayout{d.frameLayout, d.textureLayout} {
		if l != nil {
			l.Release()
		}
	}
	d.frameGroup, d.uniformRing, d.lightRing, d.readback, d.sampler = nil, nil, nil, nil, nil
	d.plainLayout, d.texturedLayout, d.frameLayout, d.textureLayout = nil, nil, nil, nil
	if d.device != nil {
		d.device.Release()
		d.device, d.queue = nil, nil
	}
}

func (d *device) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.releaseResources()
	if d.surface != nil {
		d.surface.Release()
		d.surface = nil
	}
	if d.adapter != nil {
		d.adapter.Release()
		d.adapter = nil
	}
	if d.instance != nil {
		d.instance.Release()
		d.instance = nil
	}
}

func (d *device) CompileProgram(src gpu.ProgramSource) (gpu.ProgramHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lost {
		return 0, contextLost("compile program")
	}
	p := &program{features: src.Features, custom: customSlots(src.Features)}
	variants := [3]string{gpu.PassDraw: src.Draw, gpu.PassPick: src.Pick, gpu.PassRay: src.Ray}
	for pass, code := range variants {
		m, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
			Label:          fmt.Sprintf("%s %s", src.Hash, gpu.Pass(pass)),
			WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: code},
		})
		if err != nil {
			p.release()
			return 0, &gpu.Error{Kind: gpu.KindShaderCompile, Op: "compile " + gpu.Pass(pass).String() + " variant", Err: err}
		}
		p.modules[pass] = m
	}
	h := gpu.ProgramHandle(d.handle())
	d.programs[h] = p
	return h, nil
}

func (d *device) DeleteProgram(h gpu.ProgramHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.programs[h]
	if !ok {
		return
	}
	d.pipelines.EvictProgram(h)
	p.release()
	delete(d.programs, h)
}

func (d *device) createBuffer(label string, data []byte, usage wgpu.BufferUsage) (gpu.BufferHandle, error) {
	if d.lost {
		return 0, contextLost("create " + label)
	}
	size := alignUp(uint64(max(len(data), 4)), 4)
	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: usage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return 0, gpu.AllocError("create "+label, err)
	}
	if len(data) > 0 {
		padded := data
		if uint64(len(data)) != size {
			padded = make([]byte, size)
			copy(padded, data)
		}
		d.queue.WriteBuffer(buf, 0, padded)
	}
	h := gpu.BufferHandle(d.handle())
	d.buffers[h] = &buffer{buf: buf, size: size}
	return h, nil
}

func (d *device) CreateVertexBuffer(data []float32) (gpu.BufferHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.createBuffer("vertex buffer", common.SliceToBytes(data), wgpu.BufferUsageVertex)
}

func (d *device) CreateIndexBuffer(data []uint32) (gpu.BufferHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.createBuffer("index buffer", common.SliceToBytes(data), wgpu.BufferUsageIndex)
}

func (d *device) DeleteBuffer(h gpu.BufferHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if b, ok := d.buffers[h]; ok {
		b.buf.Release()
		delete(d.buffers, h)
	}
}

func (d *device) CreateTexture(data common.TextureStagingData) (gpu.TextureHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lost {
		return 0, contextLost("create texture")
	}
	if data.Width == 0 || data.Height == 0 || len(data.Pixels) < int(data.Width*data.Height*4) {
		return 0, gpu.AllocError("create texture", fmt.Errorf("invalid texture %dx%d with %d bytes", data.Width, data.Height, len(data.Pixels)))
	}
	size := wgpu.Extent3D{Width: data.Width, Height: data.Height, DepthOrArrayLayers: 1}
	t := &texture{}
	var err error
	t.tex, err = d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "texture",
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension:     wgpu.TextureDimension2D,
		Size:          size,
		Format:        wgpu.TextureFormatRGBA8UnormSrgb,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return 0, gpu.AllocError("create texture", err)
	}
	d.queue.WriteTexture(
		&wgpu.ImageCopyTexture{Texture: t.tex, MipLevel: 0, Origin: wgpu.Origin3D{}, Aspect: wgpu.TextureAspectAll},
		data.Pixels,
		&wgpu.TextureDataLayout{Offset: 0, BytesPerRow: data.Width * 4, RowsPerImage: data.Height},
		&size,
	)
	t.view, err = t.tex.CreateView(nil)
	if err != nil {
		t.release()
		return 0, gpu.AllocError("create texture view", err)
	}
	t.bindGroup, err = d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "texture bind group",
		Layout: d.textureLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: t.view},
			{Binding: 1, Sampler: d.sampler},
		},
	})
	if err != nil {
		t.release()
		return 0, gpu.AllocError("create texture bind group", err)
	}
	h := gpu.TextureHandle(d.handle())
	d.textures[h] = t
	return h, nil
}

func (d *device) DeleteTexture(h gpu.TextureHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.textures[h]; ok {
		t.release()
		delete(d.textures, h)
	}
}

func (d *device) CreateTarget(width, height int) (gpu.TargetHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lost {
		return 0, contextLost("create target")
	}
	t, err := d.createTarget("offscreen", width, height, offscreenFormat, 1, true)
	if err != nil {
		return 0, err
	}
	h := gpu.TargetHandle(d.handle())
	d.targets[h] = t
	return h, nil
}

func (d *device) DeleteTarget(h gpu.TargetHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.targets[h]; ok {
		t.release()
		delete(d.targets, h)
	}
}

// errNoPass is returned by pass operations issued outside BeginPass/EndPass.
var errNoPass = errors.New("no render pass in progress")
