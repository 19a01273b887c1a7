package wgpudevice

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-graph/common"
	"github.com/Carmen-Shannon/oxy-graph/engine/gpu"
	"github.com/Carmen-Shannon/oxy-graph/engine/gpu/wgpudevice/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// vertexStream is one vertex buffer slot of a program: an attribute location and its layout.
type vertexStream struct {
	location uint32
	format   wgpu.VertexFormat
	stride   uint64
}

// vertexStreams lists the vertex buffers a program reads, in slot order.
func vertexStreams(f gpu.Features) []vertexStream {
	streams := []vertexStream{{location: 0, format: wgpu.VertexFormatFloat32x3, stride: 12}}
	if f.Normals {
		streams = append(streams, vertexStream{location: 1, format: wgpu.VertexFormatFloat32x3, stride: 12})
	}
	if f.Texture {
		streams = append(streams, vertexStream{location: 2, format: wgpu.VertexFormatFloat32x2, stride: 8})
	}
	if f.VertexColors {
		streams = append(streams, vertexStream{location: 3, format: wgpu.VertexFormatFloat32x4, stride: 16})
	}
	if f.Morph {
		streams = append(streams, vertexStream{location: 4, format: wgpu.VertexFormatFloat32x3, stride: 12})
		if f.MorphNormals {
			streams = append(streams, vertexStream{location: 5, format: wgpu.VertexFormatFloat32x3, stride: 12})
		}
	}
	return streams
}

// streamBuffers resolves the bound buffers of each stream. A missing morph target falls back to
// the base keyframe so the interpolation is a no-op.
func streamBuffers(streams []vertexStream, g gpu.GeometryBinding, morph [2]gpu.BufferHandle) ([]gpu.BufferHandle, bool) {
	out := make([]gpu.BufferHandle, len(streams))
	for i, s := range streams {
		var h gpu.BufferHandle
		switch s.location {
		case 0:
			h = g.Positions
		case 1:
			h = g.Normals
		case 2:
			h = g.UVs
		case 3:
			h = g.Colors
		case 4:
			h = common.Coalesce(morph[0], g.Positions)
		case 5:
			h = common.Coalesce(morph[1], g.Normals)
		}
		if h == 0 {
			return nil, false
		}
		out[i] = h
	}
	return out, true
}

func (d *device) UseProgram(h gpu.ProgramHandle, pass gpu.Pass) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.program = h
	d.variant = pass
}

func (d *device) SetMatrix(u gpu.Uniform, m mgl32.Mat4) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.uniforms.setMatrix(u, m)
}

func (d *device) SetVector(u gpu.Uniform, v mgl32.Vec4) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.uniforms.setVector(u, v)
}

func (d *device) SetScalar(u gpu.Uniform, v float32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.uniforms.setScalar(u, v)
}

func (d *device) SetShaderParam(name string, value []float32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.programs[d.program]
	if !ok {
		return
	}
	if slot, ok := p.custom[name]; ok {
		d.uniforms.setCustom(slot, value)
	}
}

func (d *device) SetLights(lights []gpu.LightData) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lights = packLights(lights)
	d.lightsDirty = true
}

func (d *device) SetClipPlanes(planes []mgl32.Vec4) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.uniforms.setClipPlanes(planes)
}

func (d *device) BindTexture(unit int, h gpu.TextureHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if unit == 0 {
		d.bound = h
	}
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

func (d *device) SetDepth(s gpu.DepthState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.raster.Depth = s
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

// SetLineWidth records the width; WebGPU rasterizes every line one pixel wide.
func (d *device) SetLineWidth(w float32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.raster.LineWidth = w
}

func (d *device) BeginPass(target gpu.TargetHandle, clear *gpu.ClearValue) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lost {
		return contextLost("begin pass")
	}
	if d.pass != nil {
		return fmt.Errorf("failed to begin pass: previous pass on target %d not ended", d.passTarget)
	}

	if target == gpu.CanvasTarget && d.surface != nil && d.frameTexture == nil {
		surfaceTexture, err := d.surface.GetCurrentTexture()
		if err != nil {
			return fmt.Errorf("failed to acquire surface texture: %w", err)
		}
		view, err := surfaceTexture.CreateView(nil)
		if err != nil {
			surfaceTexture.Release()
			return fmt.Errorf("failed to create surface view: %w", err)
		}
		d.frameTexture, d.frameView = surfaceTexture, view
	}
	if target != gpu.CanvasTarget {
		if _, ok := d.targets[target]; !ok {
			return fmt.Errorf("failed to begin pass: unknown target %d", target)
		}
	}

	d.passTarget = target
	d.raster = gpu.DefaultRasterState()
	d.uniformCursor, d.lightCursor = 0, 0
	d.lightsDirty = true
	return d.openPass(clear)
}

// openPass starts a command encoder and render pass on the current target.
func (d *device) openPass(clear *gpu.ClearValue) error {
	color := wgpu.RenderPassColorAttachment{
		LoadOp:  wgpu.LoadOpLoad,
		StoreOp: wgpu.StoreOpStore,
	}
	var depthView *wgpu.TextureView
	switch {
	case d.passTarget != gpu.CanvasTarget:
		t := d.targets[d.passTarget]
		color.View, depthView = t.colorView, t.depthView
		d.passFormat, d.passSamples = offscreenFormat, 1
	case d.surface == nil:
		color.View, depthView = d.canvas.colorView, d.canvas.depthView
		d.passFormat, d.passSamples = d.canvasFormat, 1
	case d.sampleCount > 1:
		color.View, color.ResolveTarget, depthView = d.msaaView, d.frameView, d.canvas.depthView
		d.passFormat, d.passSamples = d.canvasFormat, uint32(d.sampleCount)
	default:
		color.View, depthView = d.frameView, d.canvas.depthView
		d.passFormat, d.passSamples = d.canvasFormat, 1
	}

	depth := &wgpu.RenderPassDepthStencilAttachment{
		View:            depthView,
		DepthLoadOp:     wgpu.LoadOpLoad,
		DepthStoreOp:    wgpu.StoreOpStore,
		DepthClearValue: 1.0,
	}
	if clear != nil {
		color.LoadOp = wgpu.LoadOpClear
		color.ClearValue = wgpu.Color{
			R: float64(clear.Color[0]),
			G: float64(clear.Color[1]),
			B: float64(clear.Color[2]),
			A: float64(clear.Color[3]),
		}
		depth.DepthLoadOp = wgpu.LoadOpClear
	}

	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("failed to create command encoder: %w", err)
	}
	d.encoder = encoder
	d.pass = encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments:       []wgpu.RenderPassColorAttachment{color},
		DepthStencilAttachment: depth,
	})
	return nil
}

// submitPass ends the render pass and submits its command buffer.
func (d *device) submitPass() error {
	d.pass.End()
	d.pass.Release()
	d.pass = nil

	encoder := d.encoder
	d.encoder = nil
	defer encoder.Release()
	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("failed to finish command encoder: %w", err)
	}
	d.queue.Submit(commandBuffer)
	commandBuffer.Release()
	return nil
}

// abortPass drops a pass without submitting it.
func (d *device) abortPass() {
	if d.pass != nil {
		d.pass.End()
		d.pass.Release()
		d.pass = nil
	}
	if d.encoder != nil {
		d.encoder.Release()
		d.encoder = nil
	}
	if d.frameView != nil {
		d.frameView.Release()
		d.frameView = nil
	}
	if d.frameTexture != nil {
		d.frameTexture.Release()
		d.frameTexture = nil
	}
}

// flush submits the work recorded so far and reopens the pass on the same target, keeping its
// contents. Ring slots written before the flush may be reused after it.
func (d *device) flush() error {
	if err := d.submitPass(); err != nil {
		return err
	}
	d.uniformCursor, d.lightCursor = 0, 0
	d.lightsDirty = true
	return d.openPass(nil)
}

func (d *device) EndPass() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pass == nil {
		return errNoPass
	}
	return d.submitPass()
}

// resolvePipeline returns the pipeline of the current program variant and raster state,
// creating it on first use.
func (d *device) resolvePipeline(p *program, prim gpu.Primitive) (pipeline.Pipeline, error) {
	key := pipeline.KeyFor(d.program, d.variant, prim, d.raster, d.passFormat, d.passSamples)
	if cached, ok := d.pipelines.Get(key); ok {
		return cached, nil
	}

	pl := pipeline.NewPipeline(key)
	layout := d.plainLayout
	if d.variant == gpu.PassDraw && p.features.Texture {
		layout = d.texturedLayout
	}

	streams := vertexStreams(p.features)
	buffers := make([]wgpu.VertexBufferLayout, len(streams))
	for i, s := range streams {
		buffers[i] = wgpu.VertexBufferLayout{
			ArrayStride: s.stride,
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes: []wgpu.VertexAttribute{
				{Format: s.format, Offset: 0, ShaderLocation: s.location},
			},
		}
	}

	module := p.modules[d.variant]
	created, err := d.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  key.String(),
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
			Buffers:    buffers,
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{
					Format:    key.Format,
					Blend:     pl.BlendState(),
					WriteMask: pl.WriteMask(),
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:         pl.Topology(),
			StripIndexFormat: pl.StripIndexFormat(),
			FrontFace:        pl.FrontFace(),
			CullMode:         pl.CullMode(),
		},
		Multisample: wgpu.MultisampleState{
			Count: key.SampleCount,
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            depthFormat,
			DepthWriteEnabled: pl.DepthWriteEnabled(),
			DepthCompare:      pl.DepthCompare(),
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		},
	})
	if err != nil {
		return nil, &gpu.Error{Kind: gpu.KindShaderCompile, Op: "create pipeline " + key.String(), Err: err}
	}
	pl.SetRenderPipeline(created)
	d.pipelines.Put(pl)
	return pl, nil
}

func (d *device) Draw(prim gpu.Primitive, count int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lost || d.pass == nil || count <= 0 {
		return
	}
	p, ok := d.programs[d.program]
	if !ok {
		return
	}
	streams := vertexStreams(p.features)
	handles, ok := streamBuffers(streams, d.geometry, d.morph)
	if !ok {
		common.Logger().Debug("draw skipped: geometry lacks a stream its program reads", "program", d.program)
		return
	}
	indices, ok := d.buffers[d.geometry.Indices]
	if !ok {
		return
	}
	var textureGroup *wgpu.BindGroup
	if d.variant == gpu.PassDraw && p.features.Texture {
		t, ok := d.textures[d.bound]
		if !ok {
			common.Logger().Debug("draw skipped: textured program without a bound texture", "program", d.program)
			return
		}
		textureGroup = t.bindGroup
	}

	pl, err := d.resolvePipeline(p, prim)
	if err != nil {
		common.Logger().Error("failed to create render pipeline", "error", err)
		return
	}

	if d.uniformCursor+uniformStride > uniformStride*uniformRingSlots ||
		(d.lightsDirty && d.lightCursor+lightsStride > lightsStride*lightRingSlots) {
		if err := d.flush(); err != nil {
			common.Logger().Error("failed to flush render pass", "error", err)
			return
		}
	}
	if d.lightsDirty {
		block := make([]lightBlock, maxLights)
		copy(block, d.lights)
		d.queue.WriteBuffer(d.lightRing, d.lightCursor, common.SliceToBytes(block))
		d.lightOffset = d.lightCursor
		d.lightCursor += lightsStride
		d.lightsDirty = false
	}
	uniformOffset := d.uniformCursor
	d.queue.WriteBuffer(d.uniformRing, uniformOffset, common.StructToBytes(&d.uniforms))
	d.uniformCursor += uniformStride

	d.pass.SetPipeline(pl.RenderPipeline())
	d.pass.SetBindGroup(0, d.frameGroup, []uint32{uint32(uniformOffset), uint32(d.lightOffset)})
	if textureGroup != nil {
		d.pass.SetBindGroup(1, textureGroup, nil)
	}
	for i, h := range handles {
		b, ok := d.buffers[h]
		if !ok {
			return
		}
		d.pass.SetVertexBuffer(uint32(i), b.buf, 0, wgpu.WholeSize)
	}
	d.pass.SetIndexBuffer(indices.buf, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	d.pass.DrawIndexed(uint32(count), 1, 0, 0, 0)
}

func (d *device) Finish() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.device != nil {
		d.device.Poll(true, nil)
	}
}

func (d *device) ReadPixel(th gpu.TargetHandle, x, y int) ([4]uint8, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var px [4]uint8
	if d.lost {
		return px, contextLost("read pixel")
	}
	if d.pass != nil {
		return px, fmt.Errorf("failed to read pixel: pass on target %d still open", d.passTarget)
	}

	var t *target
	switch {
	case th != gpu.CanvasTarget:
		t = d.targets[th]
	case d.surface == nil:
		t = d.canvas
	}
	if t == nil || t.color == nil {
		return px, fmt.Errorf("failed to read pixel: target %d is not readable", th)
	}
	if x < 0 || y < 0 || x >= t.width || y >= t.height {
		return px, fmt.Errorf("failed to read pixel: (%d, %d) outside %dx%d target", x, y, t.width, t.height)
	}

	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		return px, fmt.Errorf("failed to create command encoder: %w", err)
	}
	defer encoder.Release()
	encoder.CopyTextureToBuffer(
		&wgpu.ImageCopyTexture{
			Texture:  t.color,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{X: uint32(x), Y: uint32(y)},
			Aspect:   wgpu.TextureAspectAll,
		},
		&wgpu.ImageCopyBuffer{
			Buffer: d.readback,
			Layout: wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  readbackRowPitch,
				RowsPerImage: 1,
			},
		},
		&wgpu.Extent3D{Width: 1, Height: 1, DepthOrArrayLayers: 1},
	)
	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return px, fmt.Errorf("failed to finish readback encoder: %w", err)
	}
	d.queue.Submit(commandBuffer)
	commandBuffer.Release()

	var status wgpu.BufferMapAsyncStatus
	mapped := false
	err = d.readback.MapAsync(wgpu.MapModeRead, 0, readbackRowPitch, func(s wgpu.BufferMapAsyncStatus) {
		status, mapped = s, true
	})
	if err != nil {
		return px, fmt.Errorf("failed to map readback buffer: %w", err)
	}
	d.device.Poll(true, nil)
	if !mapped || status != wgpu.BufferMapAsyncStatusSuccess {
		return px, fmt.Errorf("failed to map readback buffer: status %d", status)
	}
	copy(px[:], d.readback.GetMappedRange(0, 4))
	d.readback.Unmap()
	return px, nil
}

func (d *device) Present() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.surface == nil || d.frameTexture == nil {
		return
	}
	d.surface.Present()
	d.frameView.Release()
	d.frameTexture.Release()
	d.frameView, d.frameTexture = nil, nil
}
