// Package pipeline translates the device-neutral raster state into WebGPU render pipeline state
// and caches the created pipelines per key.
package pipeline

import (
	"github.com/Carmen-Shannon/oxy-graph/engine/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

var blendFactors = map[gpu.BlendFactor]wgpu.BlendFactor{
	gpu.BlendZero:             wgpu.BlendFactorZero,
	gpu.BlendOne:              wgpu.BlendFactorOne,
	gpu.BlendSrcColor:         wgpu.BlendFactorSrc,
	gpu.BlendOneMinusSrcColor: wgpu.BlendFactorOneMinusSrc,
	gpu.BlendSrcAlpha:         wgpu.BlendFactorSrcAlpha,
	gpu.BlendOneMinusSrcAlpha: wgpu.BlendFactorOneMinusSrcAlpha,
	gpu.BlendDstColor:         wgpu.BlendFactorDst,
	gpu.BlendOneMinusDstColor: wgpu.BlendFactorOneMinusDst,
	gpu.BlendDstAlpha:         wgpu.BlendFactorDstAlpha,
	gpu.BlendOneMinusDstAlpha: wgpu.BlendFactorOneMinusDstAlpha,
}

// BlendFactor translates a blend operand.
func BlendFactor(f gpu.BlendFactor) wgpu.BlendFactor {
	if wf, ok := blendFactors[f]; ok {
		return wf
	}
	return wgpu.BlendFactorOne
}

// BlendState translates an enabled blend state. Alpha accumulates with one / one-minus-src-alpha
// so the target keeps an opaque alpha under source-over blending.
func BlendState(b gpu.BlendState) *wgpu.BlendState {
	return &wgpu.BlendState{
		Color: wgpu.BlendComponent{
			SrcFactor: BlendFactor(b.Src),
			DstFactor: BlendFactor(b.Dst),
			Operation: wgpu.BlendOperationAdd,
		},
		Alpha: wgpu.BlendComponent{
			SrcFactor: wgpu.BlendFactorOne,
			DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
			Operation: wgpu.BlendOperationAdd,
		},
	}
}

var compareFunctions = map[gpu.DepthFunc]wgpu.CompareFunction{
	gpu.DepthNever:        wgpu.CompareFunctionNever,
	gpu.DepthLess:         wgpu.CompareFunctionLess,
	gpu.DepthEqual:        wgpu.CompareFunctionEqual,
	gpu.DepthLessEqual:    wgpu.CompareFunctionLessEqual,
	gpu.DepthGreater:      wgpu.CompareFunctionGreater,
	gpu.DepthNotEqual:     wgpu.CompareFunctionNotEqual,
	gpu.DepthGreaterEqual: wgpu.CompareFunctionGreaterEqual,
	gpu.DepthAlways:       wgpu.CompareFunctionAlways,
}

// CompareFunction translates a depth function.
func CompareFunction(f gpu.DepthFunc) wgpu.CompareFunction {
	if wf, ok := compareFunctions[f]; ok {
		return wf
	}
	return wgpu.CompareFunctionLess
}

// CullMode translates a cull mode.
func CullMode(c gpu.CullMode) wgpu.CullMode {
	switch c {
	case gpu.CullFront:
		return wgpu.CullModeFront
	case gpu.CullBack:
		return wgpu.CullModeBack
	default:
		return wgpu.CullModeNone
	}
}

// FrontFace translates a winding order.
func FrontFace(f gpu.FrontFace) wgpu.FrontFace {
	if f == gpu.FrontFaceCW {
		return wgpu.FrontFaceCW
	}
	return wgpu.FrontFaceCCW
}

// Topology translates a primitive.
func Topology(p gpu.Primitive) wgpu.PrimitiveTopology {
	switch p {
	case gpu.PrimitivePoints:
		return wgpu.PrimitiveTopologyPointList
	case gpu.PrimitiveLines:
		return wgpu.PrimitiveTopologyLineList
	case gpu.PrimitiveLineStrip:
		return wgpu.PrimitiveTopologyLineStrip
	case gpu.PrimitiveTriangleStrip:
		return wgpu.PrimitiveTopologyTriangleStrip
	default:
		return wgpu.PrimitiveTopologyTriangleList
	}
}

// WriteMask translates an r, g, b, a color mask.
func WriteMask(mask [4]bool) wgpu.ColorWriteMask {
	bits := [4]wgpu.ColorWriteMask{wgpu.ColorWriteMaskRed, wgpu.ColorWriteMaskGreen, wgpu.ColorWriteMaskBlue, wgpu.ColorWriteMaskAlpha}
	var m wgpu.ColorWriteMask
	for i, on := range mask {
		if on {
			m |= bits[i]
		}
	}
	return m
}
