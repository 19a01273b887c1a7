package pipeline

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-graph/engine/gpu"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyForNormalizesState(t *testing.T) {
	raster := gpu.DefaultRasterState()
	raster.Blend = gpu.DefaultBlend

	draw := KeyFor(1, gpu.PassDraw, gpu.PrimitiveTriangles, raster, wgpu.TextureFormatRGBA8Unorm, 0)
	assert.True(t, draw.Blend.Enabled)
	assert.Equal(t, uint32(1), draw.SampleCount)

	pick := KeyFor(1, gpu.PassPick, gpu.PrimitiveTriangles, raster, wgpu.TextureFormatRGBA8Unorm, 1)
	assert.False(t, pick.Blend.Enabled)

	raster.Depth.Test = false
	raster.Depth.Func = gpu.DepthGreater
	a := KeyFor(1, gpu.PassDraw, gpu.PrimitiveTriangles, raster, wgpu.TextureFormatRGBA8Unorm, 1)
	raster.Depth.Func = gpu.DepthLess
	b := KeyFor(1, gpu.PassDraw, gpu.PrimitiveTriangles, raster, wgpu.TextureFormatRGBA8Unorm, 1)
	assert.Equal(t, a, b)

	raster.LineWidth = 4
	c := KeyFor(1, gpu.PassDraw, gpu.PrimitiveTriangles, raster, wgpu.TextureFormatRGBA8Unorm, 1)
	assert.Equal(t, b, c)
}

func TestNewPipelineTranslatesKey(t *testing.T) {
	raster := gpu.DefaultRasterState()
	raster.Cull = gpu.CullBack
	raster.FrontFace = gpu.FrontFaceCW
	raster.ColorMask = [4]bool{true, false, true, false}
	raster.Depth = gpu.DepthState{Test: true, Func: gpu.DepthLessEqual, Write: false}
	raster.Blend = gpu.BlendState{Enabled: true, Src: gpu.BlendOne, Dst: gpu.BlendOneMinusSrcAlpha}

	p := NewPipeline(KeyFor(3, gpu.PassDraw, gpu.PrimitiveTriangleStrip, raster, wgpu.TextureFormatRGBA8Unorm, 1))
	assert.Equal(t, wgpu.CullModeBack, p.CullMode())
	assert.Equal(t, wgpu.FrontFaceCW, p.FrontFace())
	assert.Equal(t, wgpu.ColorWriteMaskRed|wgpu.ColorWriteMaskBlue, p.WriteMask())
	assert.Equal(t, wgpu.CompareFunctionLessEqual, p.DepthCompare())
	assert.False(t, p.DepthWriteEnabled())
	assert.Equal(t, wgpu.PrimitiveTopologyTriangleStrip, p.Topology())
	assert.Equal(t, wgpu.IndexFormatUint32, p.StripIndexFormat())
	require.NotNil(t, p.BlendState())
	assert.Equal(t, wgpu.BlendFactorOne, p.BlendState().Color.SrcFactor)
	assert.Equal(t, wgpu.BlendFactorOneMinusSrcAlpha, p.BlendState().Color.DstFactor)
	assert.Nil(t, p.RenderPipeline())

	raster.Depth.Test = false
	p = NewPipeline(KeyFor(3, gpu.PassPick, gpu.PrimitiveTriangles, raster, wgpu.TextureFormatRGBA8Unorm, 1))
	assert.Equal(t, wgpu.CompareFunctionAlways, p.DepthCompare())
	assert.Nil(t, p.BlendState())
	assert.Equal(t, wgpu.IndexFormat(0), p.StripIndexFormat())

	p = NewPipeline(p.Key(), WithBlendState(BlendState(gpu.DefaultBlend)))
	assert.NotNil(t, p.BlendState())
}

func TestTranslations(t *testing.T) {
	assert.Equal(t, wgpu.BlendFactorSrcAlpha, BlendFactor(gpu.BlendSrcAlpha))
	assert.Equal(t, wgpu.BlendFactorOneMinusDst, BlendFactor(gpu.BlendOneMinusDstColor))
	assert.Equal(t, wgpu.CompareFunctionNotEqual, CompareFunction(gpu.DepthNotEqual))
	assert.Equal(t, wgpu.CompareFunctionGreaterEqual, CompareFunction(gpu.DepthGreaterEqual))
	assert.Equal(t, wgpu.CullModeNone, CullMode(gpu.CullNone))
	assert.Equal(t, wgpu.CullModeFront, CullMode(gpu.CullFront))
	assert.Equal(t, wgpu.FrontFaceCCW, FrontFace(gpu.FrontFaceCCW))
	assert.Equal(t, wgpu.PrimitiveTopologyPointList, Topology(gpu.PrimitivePoints))
	assert.Equal(t, wgpu.PrimitiveTopologyLineList, Topology(gpu.PrimitiveLines))
	assert.Equal(t, wgpu.PrimitiveTopologyLineStrip, Topology(gpu.PrimitiveLineStrip))
	assert.Equal(t, wgpu.PrimitiveTopologyTriangleList, Topology(gpu.PrimitiveTriangles))
	assert.Equal(t, wgpu.ColorWriteMaskAll, WriteMask([4]bool{true, true, true, true}))
	assert.Equal(t, wgpu.ColorWriteMask(0), WriteMask([4]bool{}))
}

func TestCacheEvictsByProgram(t *testing.T) {
	c := NewCache()
	raster := gpu.DefaultRasterState()
	for _, prog := range []gpu.ProgramHandle{1, 1, 2} {
		for _, pass := range []gpu.Pass{gpu.PassDraw, gpu.PassPick} {
			c.Put(NewPipeline(KeyFor(prog, pass, gpu.PrimitiveTriangles, raster, wgpu.TextureFormatRGBA8Unorm, 1)))
		}
	}
	assert.Equal(t, 4, c.Len())

	_, ok := c.Get(KeyFor(2, gpu.PassPick, gpu.PrimitiveTriangles, raster, wgpu.TextureFormatRGBA8Unorm, 1))
	assert.True(t, ok)

	assert.Equal(t, 2, c.EvictProgram(1))
	assert.Equal(t, 2, c.Len())
	_, ok = c.Get(KeyFor(1, gpu.PassDraw, gpu.PrimitiveTriangles, raster, wgpu.TextureFormatRGBA8Unorm, 1))
	assert.False(t, ok)

	c.Clear()
	assert.Equal(t, 0, c.Len())
}
