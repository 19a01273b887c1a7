package pipeline

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-graph/engine/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// Key identifies one render pipeline: a program variant combined with the fixed-function state
// and attachment formats it was created for. Line width is not part of the key; WebGPU only
// rasterizes one-pixel lines.
type Key struct {
	Program     gpu.ProgramHandle
	Pass        gpu.Pass
	Primitive   gpu.Primitive
	Blend       gpu.BlendState
	Depth       gpu.DepthState
	Cull        gpu.CullMode
	FrontFace   gpu.FrontFace
	ColorMask   [4]bool
	Format      wgpu.TextureFormat
	SampleCount uint32
}

// KeyFor builds the pipeline key of a draw. Pick and ray variants never blend.
//
// Parameters:
//   - program: the bound program
//   - pass: the bound variant
//   - prim: the draw topology
//   - raster: the fixed-function state at the time of the draw
//   - format: the color attachment format of the current pass
//   - samples: the sample count of the current pass
//
// Returns:
//   - Key: the pipeline key
func KeyFor(program gpu.ProgramHandle, pass gpu.Pass, prim gpu.Primitive, raster gpu.RasterState, format wgpu.TextureFormat, samples uint32) Key {
	k := Key{
		Program:     program,
		Pass:        pass,
		Primitive:   prim,
		Blend:       raster.Blend,
		Depth:       raster.Depth,
		Cull:        raster.Cull,
		FrontFace:   raster.FrontFace,
		ColorMask:   raster.ColorMask,
		Format:      format,
		SampleCount: max(samples, 1),
	}
	if pass != gpu.PassDraw || !k.Blend.Enabled {
		k.Blend = gpu.BlendState{}
	}
	if !k.Depth.Test {
		k.Depth.Func = gpu.DepthAlways
	}
	return k
}

func (k Key) String() string {
	return fmt.Sprintf("program %d %s prim %d", k.Program, k.Pass, k.Primitive)
}

// pipeline is the implementation of the Pipeline interface.
// It holds the translated WebGPU state of one Key and the created render pipeline.
type pipeline struct {
	key Key

	renderPipeline *wgpu.RenderPipeline

	depthWriteEnabled bool
	depthCompare      wgpu.CompareFunction
	cullMode          wgpu.CullMode
	topology          wgpu.PrimitiveTopology
	stripIndexFormat  wgpu.IndexFormat
	frontFace         wgpu.FrontFace
	writeMask         wgpu.ColorWriteMask
	blendState        *wgpu.BlendState
}

// Pipeline describes a render pipeline for one Key, translated to WebGPU state.
type Pipeline interface {
	// Key returns the key the pipeline was created for.
	//
	// Returns:
	//   - Key: the pipeline key
	Key() Key

	// RenderPipeline returns the created WebGPU pipeline, or nil before SetRenderPipeline.
	//
	// Returns:
	//   - *wgpu.RenderPipeline: the render pipeline
	RenderPipeline() *wgpu.RenderPipeline

	// SetRenderPipeline stores the created WebGPU pipeline.
	//
	// Parameters:
	//   - p: the WebGPU render pipeline to set
	SetRenderPipeline(p *wgpu.RenderPipeline)

	// DepthWriteEnabled returns whether depth writing is enabled for this pipeline.
	//
	// Returns:
	//   - bool: true if depth writing is enabled, false otherwise
	DepthWriteEnabled() bool

	// DepthCompare returns the depth comparison function. Disabled depth testing maps to Always.
	//
	// Returns:
	//   - wgpu.CompareFunction: the comparison function
	DepthCompare() wgpu.CompareFunction

	// CullMode returns the cull mode configured for this pipeline.
	//
	// Returns:
	//   - wgpu.CullMode: the cull mode for this pipeline
	CullMode() wgpu.CullMode

	// Topology returns the primitive topology configured for this pipeline.
	//
	// Returns:
	//   - wgpu.PrimitiveTopology: the primitive topology for this pipeline
	Topology() wgpu.PrimitiveTopology

	// StripIndexFormat returns the index format strip topologies must declare.
	//
	// Returns:
	//   - wgpu.IndexFormat: Uint32 for strips, Undefined otherwise
	StripIndexFormat() wgpu.IndexFormat

	// FrontFace returns the front face winding order configured for this pipeline.
	//
	// Returns:
	//   - wgpu.FrontFace: the front face winding order for this pipeline
	FrontFace() wgpu.FrontFace

	// WriteMask returns the color write mask configured for this pipeline.
	//
	// Returns:
	//   - wgpu.ColorWriteMask: the color write mask for this pipeline
	WriteMask() wgpu.ColorWriteMask

	// BlendState returns the blend state configured for this pipeline.
	//
	// Returns:
	//   - *wgpu.BlendState: the blend state for this pipeline, or nil if blending is not enabled
	BlendState() *wgpu.BlendState

	// Release releases the WebGPU pipeline.
	Release()
}

var _ Pipeline = &pipeline{}

// NewPipeline translates a Key into WebGPU pipeline state. The render pipeline itself is created
// by the device and stored with SetRenderPipeline.
//
// Parameters:
//   - key: the pipeline key
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Pipeline: the translated pipeline description
func NewPipeline(key Key, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		key:               key,
		depthWriteEnabled: key.Depth.Write,
		depthCompare:      CompareFunction(key.Depth.Func),
		cullMode:          CullMode(key.Cull),
		topology:          Topology(key.Primitive),
		frontFace:         FrontFace(key.FrontFace),
		writeMask:         WriteMask(key.ColorMask),
	}
	if !key.Depth.Test {
		p.depthCompare = wgpu.CompareFunctionAlways
	}
	if key.Primitive == gpu.PrimitiveLineStrip || key.Primitive == gpu.PrimitiveTriangleStrip {
		p.stripIndexFormat = wgpu.IndexFormatUint32
	}
	if key.Blend.Enabled {
		p.blendState = BlendState(key.Blend)
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) Key() Key {
	return p.key
}

func (p *pipeline) RenderPipeline() *wgpu.RenderPipeline {
	return p.renderPipeline
}

func (p *pipeline) SetRenderPipeline(rp *wgpu.RenderPipeline) {
	p.renderPipeline = rp
}

func (p *pipeline) DepthWriteEnabled() bool {
	return p.depthWriteEnabled
}

func (p *pipeline) DepthCompare() wgpu.CompareFunction {
	return p.depthCompare
}

func (p *pipeline) CullMode() wgpu.CullMode {
	return p.cullMode
}

func (p *pipeline) Topology() wgpu.PrimitiveTopology {
	return p.topology
}

func (p *pipeline) StripIndexFormat() wgpu.IndexFormat {
	return p.stripIndexFormat
}

func (p *pipeline) FrontFace() wgpu.FrontFace {
	return p.frontFace
}

func (p *pipeline) WriteMask() wgpu.ColorWriteMask {
	return p.writeMask
}

func (p *pipeline) BlendState() *wgpu.BlendState {
	return p.blendState
}

func (p *pipeline) Release() {
	if p.renderPipeline != nil {
		p.renderPipeline.Release()
		p.renderPipeline = nil
	}
}
