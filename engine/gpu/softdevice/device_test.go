package softdevice

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-graph/common"
	"github.com/Carmen-Shannon/oxy-graph/engine/gpu"
	"github.com/Carmen-Shannon/oxy-graph/engine/renderer/pick"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProgram(t *testing.T, d Device, f gpu.Features) gpu.ProgramHandle {
	t.Helper()
	h, err := d.CompileProgram(gpu.ProgramSource{Hash: "test", Features: f, Draw: "draw", Pick: "pick", Ray: "ray"})
	require.NoError(t, err)
	return h
}

// quad binds a quad spanning [x0, x1] x [y0, y1] at depth z.
func quad(t *testing.T, d Device, x0, y0, x1, y1, z float32) gpu.GeometryBinding {
	t.Helper()
	pos, err := d.CreateVertexBuffer([]float32{
		x0, y0, z,
		x1, y0, z,
		x1, y1, z,
		x0, y1, z,
	})
	require.NoError(t, err)
	idx, err := d.CreateIndexBuffer([]uint32{0, 1, 2, 0, 2, 3})
	require.NoError(t, err)
	return gpu.GeometryBinding{Positions: pos, Indices: idx, IndexCount: 6}
}

func pixel(t *testing.T, d Device, target gpu.TargetHandle, x, y int) [4]uint8 {
	t.Helper()
	p, err := d.ReadPixel(target, x, y)
	require.NoError(t, err)
	return p
}

func TestDrawPassShadesBaseColor(t *testing.T) {
	d := NewDevice(8, 8)
	prog := testProgram(t, d, gpu.Features{})
	geo := quad(t, d, -1, -1, 1, 1, 0)

	require.NoError(t, d.BeginPass(gpu.CanvasTarget, &gpu.ClearValue{Color: mgl32.Vec4{0, 0, 0, 1}}))
	d.UseProgram(prog, gpu.PassDraw)
	d.SetVector(gpu.UniformBaseColor, mgl32.Vec4{1, 0, 0, 1})
	d.BindGeometry(geo)
	d.Draw(gpu.PrimitiveTriangles, geo.IndexCount)
	require.NoError(t, d.EndPass())

	assert.Equal(t, [4]uint8{255, 0, 0, 255}, pixel(t, d, gpu.CanvasTarget, 4, 4))
	assert.Nil(t, d.Image())

	d.Present()
	img := d.Image()
	require.NotNil(t, img)
	assert.Equal(t, uint8(255), img.NRGBAAt(2, 2).R)
}

func TestClearOnlyWhenRequested(t *testing.T) {
	d := NewDevice(4, 4)
	require.NoError(t, d.BeginPass(gpu.CanvasTarget, &gpu.ClearValue{Color: mgl32.Vec4{0, 0, 1, 1}}))
	require.NoError(t, d.EndPass())
	require.NoError(t, d.BeginPass(gpu.CanvasTarget, nil))
	require.NoError(t, d.EndPass())
	assert.Equal(t, [4]uint8{0, 0, 255, 255}, pixel(t, d, gpu.CanvasTarget, 1, 1))
}

func TestPickPassWritesExactIndexBytes(t *testing.T) {
	d := NewDevice(8, 8)
	prog := testProgram(t, d, gpu.Features{})
	target, err := d.CreateTarget(8, 8)
	require.NoError(t, err)
	geo := quad(t, d, -1, -1, 1, 1, 0)

	for _, index := range []int{1, 255, 256, 70000, pick.MaxIndex} {
		require.NoError(t, d.BeginPass(target, &gpu.ClearValue{}))
		d.UseProgram(prog, gpu.PassPick)
		d.SetVector(gpu.UniformPickColor, pick.Color(index))
		d.BindGeometry(geo)
		d.Draw(gpu.PrimitiveTriangles, geo.IndexCount)
		require.NoError(t, d.EndPass())

		p := pixel(t, d, target, 3, 3)
		got, ok := pick.DecodeIndex([3]uint8{p[0], p[1], p[2]})
		assert.True(t, ok)
		assert.Equal(t, index, got)
	}
}

func TestRayPassPacksLinearDepth(t *testing.T) {
	d := NewDevice(8, 8)
	prog := testProgram(t, d, gpu.Features{})
	target, err := d.CreateTarget(8, 8)
	require.NoError(t, err)
	geo := quad(t, d, -200, -200, 200, 200, -50.5)

	require.NoError(t, d.BeginPass(target, &gpu.ClearValue{}))
	d.UseProgram(prog, gpu.PassRay)
	d.SetMatrix(gpu.UniformProjMatrix, mgl32.Perspective(mgl32.DegToRad(90), 1, 1, 100))
	d.BindGeometry(geo)
	d.Draw(gpu.PrimitiveTriangles, geo.IndexCount)
	require.NoError(t, d.EndPass())

	assert.InDelta(t, 0.5, pick.UnpackDepth(pixel(t, d, target, 4, 4)), 1e-3)
}

func TestClipPlanesDiscardFragments(t *testing.T) {
	d := NewDevice(8, 8)
	prog := testProgram(t, d, gpu.Features{ClipPlanes: 1})
	geo := quad(t, d, -1, -1, 1, 1, 0)

	require.NoError(t, d.BeginPass(gpu.CanvasTarget, &gpu.ClearValue{Color: mgl32.Vec4{0, 0, 0, 1}}))
	d.UseProgram(prog, gpu.PassDraw)
	d.SetClipPlanes([]mgl32.Vec4{{1, 0, 0, 0}})
	d.BindGeometry(geo)
	d.Draw(gpu.PrimitiveTriangles, geo.IndexCount)
	require.NoError(t, d.EndPass())

	assert.Equal(t, [4]uint8{0, 0, 0, 255}, pixel(t, d, gpu.CanvasTarget, 1, 4))
	assert.Equal(t, [4]uint8{255, 255, 255, 255}, pixel(t, d, gpu.CanvasTarget, 6, 4))
}

func TestTextureSampling(t *testing.T) {
	d := NewDevice(8, 8)
	prog := testProgram(t, d, gpu.Features{Texture: true})
	tex, err := d.CreateTexture(common.TextureStagingData{Pixels: []byte{0, 255, 0, 255}, Width: 1, Height: 1})
	require.NoError(t, err)
	geo := quad(t, d, -1, -1, 1, 1, 0)
	uvs, err := d.CreateVertexBuffer([]float32{0, 1, 1, 1, 1, 0, 0, 0})
	require.NoError(t, err)
	geo.UVs = uvs

	require.NoError(t, d.BeginPass(gpu.CanvasTarget, &gpu.ClearValue{}))
	d.UseProgram(prog, gpu.PassDraw)
	d.BindTexture(0, tex)
	d.BindGeometry(geo)
	d.Draw(gpu.PrimitiveTriangles, geo.IndexCount)
	require.NoError(t, d.EndPass())

	assert.Equal(t, [4]uint8{0, 255, 0, 255}, pixel(t, d, gpu.CanvasTarget, 4, 4))

	_, err = d.CreateTexture(common.TextureStagingData{Width: 2, Height: 2})
	assert.True(t, gpu.IsKind(err, gpu.KindAllocation))
}

func TestColorMaskSuppressesWrites(t *testing.T) {
	d := NewDevice(4, 4)
	prog := testProgram(t, d, gpu.Features{})
	geo := quad(t, d, -1, -1, 1, 1, 0)

	require.NoError(t, d.BeginPass(gpu.CanvasTarget, &gpu.ClearValue{Color: mgl32.Vec4{0, 0, 0, 1}}))
	d.UseProgram(prog, gpu.PassDraw)
	d.SetColorMask([4]bool{})
	d.BindGeometry(geo)
	d.Draw(gpu.PrimitiveTriangles, geo.IndexCount)
	require.NoError(t, d.EndPass())

	assert.Equal(t, [4]uint8{0, 0, 0, 255}, pixel(t, d, gpu.CanvasTarget, 2, 2))
}

func TestTargetsAndErrors(t *testing.T) {
	d := NewDevice(4, 4)

	_, err := d.CreateTarget(0, 4)
	assert.True(t, gpu.IsKind(err, gpu.KindAllocation))

	target, err := d.CreateTarget(2, 2)
	require.NoError(t, err)
	_, err = d.ReadPixel(target, 2, 0)
	assert.Error(t, err)

	d.DeleteTarget(target)
	assert.Error(t, d.BeginPass(target, nil))
	assert.Error(t, d.EndPass())

	_, err = d.CompileProgram(gpu.ProgramSource{Hash: "partial", Draw: "draw"})
	assert.True(t, gpu.IsKind(err, gpu.KindShaderCompile))
}

func TestContextLoss(t *testing.T) {
	d := NewDevice(4, 4)
	prog := testProgram(t, d, gpu.Features{})
	target, err := d.CreateTarget(4, 4)
	require.NoError(t, err)

	d.LoseContext()
	assert.True(t, d.ContextLost())

	_, err = d.CompileProgram(gpu.ProgramSource{Draw: "d", Pick: "p", Ray: "r"})
	assert.True(t, gpu.IsKind(err, gpu.KindContextLost))
	_, err = d.CreateVertexBuffer([]float32{0})
	assert.ErrorIs(t, err, gpu.ErrContextLost)
	assert.True(t, gpu.IsKind(d.BeginPass(gpu.CanvasTarget, nil), gpu.KindContextLost))

	d.RestoreContext()
	assert.False(t, d.ContextLost())
	require.NoError(t, d.BeginPass(gpu.CanvasTarget, nil))
	d.UseProgram(prog, gpu.PassDraw)
	d.Draw(gpu.PrimitiveTriangles, 3)
	require.NoError(t, d.EndPass())

	_, err = d.ReadPixel(target, 0, 0)
	assert.Error(t, err)
}

func TestResize(t *testing.T) {
	d := NewDevice(4, 4)
	d.Resize(6, 3)
	w, h := d.Size()
	assert.Equal(t, 6, w)
	assert.Equal(t, 3, h)
	_, err := d.ReadPixel(gpu.CanvasTarget, 5, 2)
	assert.NoError(t, err)
}
