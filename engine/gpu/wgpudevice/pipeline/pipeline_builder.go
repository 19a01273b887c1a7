package pipeline

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineBuilderOption is a functional option used to configure a Pipeline during construction.
type PipelineBuilderOption func(*pipeline)

// WithBlendState overrides the translated blend state, for example to blend alpha differently
// from color.
//
// Parameters:
//   - blendState: the blend state to use, or nil to disable blending
//
// Returns:
//   - PipelineBuilderOption: a function that sets the blend state for this pipeline
func WithBlendState(blendState *wgpu.BlendState) PipelineBuilderOption {
	return func(p *pipeline) {
		p.blendState = blendState
	}
}

// WithRenderPipeline attaches an already created WebGPU pipeline.
//
// Parameters:
//   - rp: the created render pipeline
//
// Returns:
//   - PipelineBuilderOption: a function that sets the render pipeline
func WithRenderPipeline(rp *wgpu.RenderPipeline) PipelineBuilderOption {
	return func(p *pipeline) {
		p.renderPipeline = rp
	}
}
