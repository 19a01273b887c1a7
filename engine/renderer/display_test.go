package renderer

import (
	"errors"
	"image"
	"image/color"
	"strconv"
	"testing"

	"github.com/Carmen-Shannon/oxy-graph/engine/core"
	"github.com/Carmen-Shannon/oxy-graph/engine/gpu"
	"github.com/Carmen-Shannon/oxy-graph/engine/gpu/gputest"
	"github.com/Carmen-Shannon/oxy-graph/engine/renderer/chunk"
	"github.com/Carmen-Shannon/oxy-graph/engine/renderer/pick"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func geometry(n uint32) *core.Core {
	return core.NewGeometry(core.Geometry{
		Primitive:  "triangles",
		Positions:  gpu.BufferHandle(n),
		Indices:    gpu.BufferHandle(n + 1000),
		IndexCount: 3,
	})
}

// buildLeaf resets the traversal, activates cores and builds leafID.
func buildLeaf(t *testing.T, d Display, leafID string, cores ...*core.Core) {
	t.Helper()
	d.Traversal().Reset()
	for _, c := range cores {
		d.SetActiveCore(c.Category(), c)
	}
	require.NoError(t, d.BuildObject(leafID))
}

// drawnGeometry returns the position buffers of the draws issued into target, in order.
func drawnGeometry(dev *gputest.Recorder, target gpu.TargetHandle) []gpu.BufferHandle {
	var out []gpu.BufferHandle
	for _, c := range dev.CallsOf(gputest.OpBindGeometry) {
		if c.Target == target {
			out = append(out, c.Args[0].(gpu.GeometryBinding).Positions)
		}
	}
	return out
}

func TestRenderIsIdempotent(t *testing.T) {
	dev := gputest.NewRecorder(16, 16)
	d := NewDisplay(dev)
	buildLeaf(t, d, "a", geometry(1))
	buildLeaf(t, d, "b", geometry(2))

	require.NoError(t, d.Render(RenderOptions{}))
	assert.Equal(t, 1, dev.Count(gputest.OpBeginPass))
	assert.Equal(t, 2, dev.Count(gputest.OpDraw))
	assert.Equal(t, DirtyFlags(0), d.Dirty())

	dev.Reset()
	require.NoError(t, d.Render(RenderOptions{}))
	assert.Empty(t, dev.Calls())

	require.NoError(t, d.Render(RenderOptions{Force: true}))
	assert.Equal(t, 1, dev.Count(gputest.OpBeginPass))
	assert.Equal(t, 2, dev.Count(gputest.OpDraw))
}

func TestRebuildWithSameCoresKeepsPipelineClean(t *testing.T) {
	dev := gputest.NewRecorder(16, 16)
	d := NewDisplay(dev)
	geo := geometry(1)
	mat := core.NewMaterial(core.Material{BaseColor: mgl32.Vec3{1, 0, 0}, Alpha: 1})
	buildLeaf(t, d, "a", geo, mat)
	require.NoError(t, d.Render(RenderOptions{}))

	buildLeaf(t, d, "a", geo, mat)
	assert.Equal(t, DirtyFlags(0), d.Dirty())
	assert.Equal(t, 1, dev.Count(gputest.OpCompileProgram))
}

func TestDirtyFlagsCascade(t *testing.T) {
	var ran []Stage
	dev := gputest.NewRecorder(16, 16)
	d := NewDisplay(dev, WithStageObserver(func(s Stage) { ran = append(ran, s) }))
	buildLeaf(t, d, "a", geometry(1))

	require.NoError(t, d.Render(RenderOptions{}))
	assert.Equal(t, []Stage{StageObjectList, StageStateOrder, StageStateSort, StageDrawList, StageImage}, ran)

	tests := []struct {
		stage Stage
		want  []Stage
	}{
		{StageObjectList, []Stage{StageObjectList, StageStateOrder, StageStateSort, StageDrawList, StageImage}},
		{StageStateOrder, []Stage{StageStateOrder, StageStateSort, StageDrawList, StageImage}},
		{StageStateSort, []Stage{StageStateSort, StageDrawList, StageImage}},
		{StageDrawList, []Stage{StageDrawList, StageImage}},
		{StageImage, []Stage{StageImage}},
	}
	for _, tt := range tests {
		t.Run(tt.stage.String(), func(t *testing.T) {
			d.MarkDirty(tt.stage)
			for s := tt.stage; s < stageCount; s++ {
				assert.True(t, d.Dirty().Has(s), "stage %s", s)
			}
			ran = nil
			require.NoError(t, d.Render(RenderOptions{}))
			assert.Equal(t, tt.want, ran)
			assert.Equal(t, DirtyFlags(0), d.Dirty())
		})
	}
}

func TestInvalidateTable(t *testing.T) {
	tests := []struct {
		prop Property
		want Stage
	}{
		{PropertyStructure, StageObjectList},
		{PropertyGeometry, StageObjectList},
		{PropertyLayer, StageStateOrder},
		{PropertyProgram, StageStateOrder},
		{PropertyTexture, StageStateOrder},
		{PropertyVisibility, StageDrawList},
		{PropertyTag, StageDrawList},
		{PropertyTransparency, StageDrawList},
		{PropertyPickable, StageDrawList},
		{PropertyMaterial, StageImage},
		{PropertyTransform, StageImage},
		{PropertyOther, StageImage},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StageFor(tt.prop))
	}

	d := NewDisplay(gputest.NewRecorder(4, 4))
	require.NoError(t, d.Render(RenderOptions{}))
	d.Invalidate(PropertyTag)
	assert.False(t, d.Dirty().Has(StageStateSort))
	assert.True(t, d.Dirty().Has(StageDrawList))
	assert.True(t, d.Dirty().Has(StageImage))
	assert.Equal(t, "drawList|image", d.Dirty().String())
}

func TestObjectsSortByTexture(t *testing.T) {
	dev := gputest.NewRecorder(16, 16)
	d := NewDisplay(dev)
	tex7 := core.NewTexture(7)
	tex9 := core.NewTexture(9)

	buildLeaf(t, d, "a", geometry(1), tex9)
	buildLeaf(t, d, "b", geometry(2), tex7)
	buildLeaf(t, d, "c", geometry(3), tex9)
	require.NoError(t, d.Render(RenderOptions{}))

	binds := dev.CallsOf(gputest.OpBindTexture)
	require.Len(t, binds, 2)
	assert.Equal(t, gpu.TextureHandle(9), binds[0].Args[1])
	assert.Equal(t, gpu.TextureHandle(7), binds[1].Args[1])
	assert.Equal(t, []gpu.BufferHandle{1, 3, 2}, drawnGeometry(dev, gpu.CanvasTarget))
}

func TestLateTexturesKeepLayerOrder(t *testing.T) {
	dev := gputest.NewRecorder(16, 16)
	d := NewDisplay(dev)
	late := core.NewTexture(3)
	late.StateID = 200019

	buildLeaf(t, d, "textured", geometry(1), late, core.NewLayer(0, true))
	buildLeaf(t, d, "above", geometry(2), core.NewLayer(1, true))
	require.NoError(t, d.Render(RenderOptions{}))

	assert.Equal(t, []gpu.BufferHandle{1, 2}, drawnGeometry(dev, gpu.CanvasTarget))
}

func TestTextureKeysAreRecycled(t *testing.T) {
	dev := gputest.NewRecorder(16, 16)
	d := NewDisplay(dev).(*display)
	first := core.NewTexture(1)
	second := core.NewTexture(2)

	buildLeaf(t, d, "a", geometry(1), first)
	buildLeaf(t, d, "b", geometry(2), first)
	buildLeaf(t, d, "c", geometry(3), second)
	assert.Equal(t, int64(1), d.objects.Lookup("a").TextureKey)
	assert.Equal(t, int64(1), d.objects.Lookup("b").TextureKey)
	assert.Equal(t, int64(2), d.objects.Lookup("c").TextureKey)

	d.RemoveObject("a")
	buildLeaf(t, d, "b", geometry(2))
	assert.Zero(t, d.objects.Lookup("b").TextureKey)
	assert.Equal(t, 1, d.textureKeys.Len())

	buildLeaf(t, d, "d", geometry(4), core.NewTexture(3))
	assert.Equal(t, int64(1), d.objects.Lookup("d").TextureKey)
}

func TestLargeStateIDsDoNotMergeChunksAcrossPrograms(t *testing.T) {
	dev := gputest.NewRecorder(16, 16)
	d := NewDisplay(dev)
	far := core.NewTransform(mgl32.Translate3D(1, 0, 0))
	far.StateID = chunk.ProgramStride + 19
	near := core.NewTransform(mgl32.Translate3D(-1, 0, 0))
	near.StateID = 19

	buildLeaf(t, d, "a", geometry(1), far)
	buildLeaf(t, d, "b", geometry(2), near, core.NewClip(mgl32.Vec4{0, 1, 0, 0}))
	require.NoError(t, d.Render(RenderOptions{}))

	var models []mgl32.Mat4
	for _, c := range dev.CallsOf(gputest.OpSetMatrix) {
		if c.Args[0] == gpu.UniformModelMatrix {
			models = append(models, c.Args[1].(mgl32.Mat4))
		}
	}
	require.Len(t, models, 2)
	assert.ElementsMatch(t, []mgl32.Mat4{mgl32.Translate3D(1, 0, 0), mgl32.Translate3D(-1, 0, 0)}, models)
}

func TestTraversalSetAndClear(t *testing.T) {
	var ts TraversalState
	mat := core.NewMaterial(core.Material{Alpha: 1})

	assert.Nil(t, ts.Set(core.CategoryMaterial, mat))
	assert.Same(t, mat, ts.Get(core.CategoryMaterial))

	prev := ts.Set(core.CategoryMaterial, nil)
	assert.Same(t, mat, prev)
	assert.Nil(t, ts.Get(core.CategoryMaterial))
}

func TestObjectsSortByLayer(t *testing.T) {
	dev := gputest.NewRecorder(16, 16)
	d := NewDisplay(dev)

	buildLeaf(t, d, "top", geometry(1), core.NewLayer(5, true))
	buildLeaf(t, d, "bottom", geometry(2), core.NewLayer(-1, true))
	buildLeaf(t, d, "middle", geometry(3))
	require.NoError(t, d.Render(RenderOptions{}))

	assert.Equal(t, []gpu.BufferHandle{2, 3, 1}, drawnGeometry(dev, gpu.CanvasTarget))
}

func TestDrawListCompression(t *testing.T) {
	dev := gputest.NewRecorder(16, 16)
	d := NewDisplay(dev)
	shared := core.NewMaterial(core.Material{BaseColor: mgl32.Vec3{0, 1, 0}, Alpha: 1})

	for i, leaf := range []string{"a", "b", "c", "d"} {
		buildLeaf(t, d, leaf, geometry(uint32(i+1)), shared)
	}
	require.NoError(t, d.Render(RenderOptions{}))

	assert.Equal(t, 4, dev.Count(gputest.OpDraw))
	assert.Equal(t, 1, dev.Count(gputest.OpUseProgram))
	var baseColors int
	for _, c := range dev.CallsOf(gputest.OpSetVector) {
		if c.Args[0] == gpu.UniformBaseColor {
			baseColors++
		}
	}
	assert.Equal(t, 1, baseColors)
	assert.Equal(t, 1, dev.Count(gputest.OpSetLineWidth))
}

func TestDrawListReappliesInterleavedState(t *testing.T) {
	dev := gputest.NewRecorder(16, 16)
	d := NewDisplay(dev)
	red := core.NewMaterial(core.Material{BaseColor: mgl32.Vec3{1, 0, 0}, Alpha: 1})
	blue := core.NewMaterial(core.Material{BaseColor: mgl32.Vec3{0, 0, 1}, Alpha: 1})

	buildLeaf(t, d, "a", geometry(1), red)
	buildLeaf(t, d, "b", geometry(2), blue)
	buildLeaf(t, d, "c", geometry(3), red)
	require.NoError(t, d.Render(RenderOptions{}))

	var colors []mgl32.Vec4
	for _, c := range dev.CallsOf(gputest.OpSetVector) {
		if c.Args[0] == gpu.UniformBaseColor {
			colors = append(colors, c.Args[1].(mgl32.Vec4))
		}
	}
	assert.Equal(t, []mgl32.Vec4{{1, 0, 0, 1}, {0, 0, 1, 1}, {1, 0, 0, 1}}, colors)
}

func TestRendererChunkEmittedOnChange(t *testing.T) {
	dev := gputest.NewRecorder(16, 16)
	d := NewDisplay(dev)
	wide := core.NewRenderer(core.Renderer{DepthTest: true, DepthFunc: "lequal", LineWidth: 3})

	buildLeaf(t, d, "a", geometry(1))
	buildLeaf(t, d, "b", geometry(2))
	buildLeaf(t, d, "c", geometry(3), wide)
	require.NoError(t, d.Render(RenderOptions{}))

	widths := dev.CallsOf(gputest.OpSetLineWidth)
	require.Len(t, widths, 2)
	assert.Equal(t, float32(1), widths[0].Args[0])
	assert.Equal(t, float32(3), widths[1].Args[0])
}

func TestAmbientLightSetsClearColor(t *testing.T) {
	dev := gputest.NewRecorder(16, 16)
	d := NewDisplay(dev)
	lights := core.NewLights(gpu.LightData{Type: gpu.LightAmbient, Color: mgl32.Vec3{1, 0, 0}})

	buildLeaf(t, d, "a", geometry(1), lights)
	require.NoError(t, d.Render(RenderOptions{}))

	clears := dev.Clears(gpu.CanvasTarget)
	require.Len(t, clears, 1)
	assert.Equal(t, mgl32.Vec4{1, 0, 0, 1}, clears[0].Color)
	assert.Equal(t, mgl32.Vec4{1, 0, 0, 1}, d.ClearColor())
}

func TestTransparentDisplayClearsToZero(t *testing.T) {
	dev := gputest.NewRecorder(16, 16)
	d := NewDisplay(dev, WithTransparent(true))
	lights := core.NewLights(gpu.LightData{Type: gpu.LightAmbient, Color: mgl32.Vec3{1, 0, 0}})

	buildLeaf(t, d, "a", geometry(1), lights)
	require.NoError(t, d.Render(RenderOptions{}))
	assert.Equal(t, mgl32.Vec4{}, dev.Clears(gpu.CanvasTarget)[0].Color)
}

func TestNoClearKeepsCanvas(t *testing.T) {
	dev := gputest.NewRecorder(16, 16)
	d := NewDisplay(dev)
	buildLeaf(t, d, "a", geometry(1))

	require.NoError(t, d.Render(RenderOptions{NoClear: true}))
	assert.Empty(t, dev.Clears(gpu.CanvasTarget))
	assert.Equal(t, 1, dev.Count(gputest.OpDraw))
}

func TestDisabledLayerExcludedFromAllLists(t *testing.T) {
	dev := gputest.NewRecorder(16, 16)
	d := NewDisplay(dev)
	hidden := core.NewLayer(0, false)

	buildLeaf(t, d, "solid", geometry(1), hidden)
	buildLeaf(t, d, "glass", geometry(2), hidden, core.NewFlags(core.Flags{Enabled: true, Pickable: true, Transparent: true, Backfaces: true}))
	buildLeaf(t, d, "visible", geometry(3))
	require.NoError(t, d.Render(RenderOptions{}))

	assert.Equal(t, []gpu.BufferHandle{3}, drawnGeometry(dev, gpu.CanvasTarget))
	stats := d.Stats()
	assert.Equal(t, 3, stats.Objects)
	assert.Zero(t, stats.TransparentObjects)
	assert.Equal(t, 1, stats.OpaqueObjects)

	_, err := d.Pick(0, 0, PickOptions{})
	require.NoError(t, err)
	var picked []gpu.BufferHandle
	for _, c := range dev.CallsOf(gputest.OpBindGeometry) {
		if c.Pass == gpu.PassPick {
			picked = append(picked, c.Args[0].(gpu.GeometryBinding).Positions)
		}
	}
	assert.Equal(t, []gpu.BufferHandle{3}, picked)
}

func TestDisabledAndUnpickableFlags(t *testing.T) {
	dev := gputest.NewRecorder(16, 16)
	d := NewDisplay(dev)

	buildLeaf(t, d, "off", geometry(1), core.NewFlags(core.Flags{Enabled: false, Pickable: true}))
	buildLeaf(t, d, "ghost", geometry(2), core.NewFlags(core.Flags{Enabled: true, Pickable: false}))
	require.NoError(t, d.Render(RenderOptions{}))

	assert.Equal(t, []gpu.BufferHandle{2}, drawnGeometry(dev, gpu.CanvasTarget))
	stats := d.Stats()
	assert.Zero(t, stats.PickChunks)
	assert.Zero(t, stats.PickObjects)
	assert.NotZero(t, stats.OpaqueChunks)
	assert.Equal(t, 1, stats.OpaqueObjects)
}

func TestTransparentObjectsDrawLastWithBlending(t *testing.T) {
	dev := gputest.NewRecorder(16, 16)
	d := NewDisplay(dev)
	glass := core.NewFlags(core.Flags{Enabled: true, Pickable: true, Transparent: true, Backfaces: true})

	buildLeaf(t, d, "glass", geometry(1), glass)
	buildLeaf(t, d, "solid", geometry(2))
	require.NoError(t, d.Render(RenderOptions{}))

	assert.Equal(t, []gpu.BufferHandle{2, 1}, drawnGeometry(dev, gpu.CanvasTarget))

	calls := dev.Calls()
	blendOn, glassDraw := -1, -1
	for i, c := range calls {
		if c.Op == gputest.OpSetBlend && c.Args[0].(gpu.BlendState).Enabled && blendOn < 0 {
			blendOn = i
		}
		if c.Op == gputest.OpBindGeometry && c.Args[0].(gpu.GeometryBinding).Positions == 1 {
			glassDraw = i
		}
	}
	require.NotEqual(t, -1, blendOn)
	assert.Less(t, blendOn, glassDraw)
	assert.False(t, dev.Blend().Enabled)

	// Transparent objects remain pickable.
	dev.SetPixelFunc(func(_ gpu.TargetHandle, _ gpu.Pass, _, _ int) [4]uint8 {
		b := pick.EncodeIndex(1)
		return [4]uint8{b[0], b[1], b[2], 255}
	})
	buildLeaf(t, d, "glass", geometry(1), glass, core.NewName("glass", "", ""))
	hit, err := d.Pick(1, 1, PickOptions{})
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, "glass", hit.Name)
}

func TestOpaqueOnlySkipsTransparentList(t *testing.T) {
	dev := gputest.NewRecorder(16, 16)
	d := NewDisplay(dev)
	buildLeaf(t, d, "glass", geometry(1), core.NewFlags(core.Flags{Enabled: true, Transparent: true}))
	buildLeaf(t, d, "solid", geometry(2))

	require.NoError(t, d.Render(RenderOptions{OpaqueOnly: true}))
	assert.Equal(t, []gpu.BufferHandle{2}, drawnGeometry(dev, gpu.CanvasTarget))
}

func TestSelectTags(t *testing.T) {
	dev := gputest.NewRecorder(16, 16)
	d := NewDisplay(dev)
	buildLeaf(t, d, "wall", geometry(1), core.NewTag("wall"))
	buildLeaf(t, d, "floor", geometry(2), core.NewTag("floor"))
	buildLeaf(t, d, "untagged", geometry(3))

	require.NoError(t, d.SelectTags("^wall$"))
	require.NoError(t, d.Render(RenderOptions{}))
	assert.ElementsMatch(t, []gpu.BufferHandle{1, 3}, drawnGeometry(dev, gpu.CanvasTarget))

	dev.Reset()
	require.NoError(t, d.SelectTags("floor|wall"))
	require.NoError(t, d.Render(RenderOptions{}))
	assert.ElementsMatch(t, []gpu.BufferHandle{1, 2, 3}, drawnGeometry(dev, gpu.CanvasTarget))

	dev.Reset()
	require.NoError(t, d.SelectTags("fl.*"))
	require.NoError(t, d.Render(RenderOptions{}))
	assert.ElementsMatch(t, []gpu.BufferHandle{2, 3}, drawnGeometry(dev, gpu.CanvasTarget))

	assert.Error(t, d.SelectTags("("))

	dev.Reset()
	require.NoError(t, d.SelectTags(""))
	require.NoError(t, d.Render(RenderOptions{}))
	assert.Len(t, drawnGeometry(dev, gpu.CanvasTarget), 3)
}

func TestProgramsSharedAndReleasedOnce(t *testing.T) {
	dev := gputest.NewRecorder(16, 16)
	pool := chunk.NewPool()
	d := NewDisplay(dev, WithChunkPool(pool))

	const n = 6
	for i := 0; i < n; i++ {
		buildLeaf(t, d, strconv.Itoa(i), geometry(uint32(i+1)))
	}
	require.NoError(t, d.Render(RenderOptions{}))
	assert.Equal(t, 1, dev.Count(gputest.OpCompileProgram))
	assert.Equal(t, 1, dev.LivePrograms())

	for i := 0; i < n; i++ {
		d.RemoveObject(strconv.Itoa(i))
	}
	d.RemoveObject("missing")

	assert.Equal(t, 1, dev.Count(gputest.OpDeleteProgram))
	assert.Zero(t, dev.LivePrograms())
	assert.Zero(t, dev.DoubleFrees())
	assert.Zero(t, pool.Len())
	assert.True(t, d.Dirty().Has(StageObjectList))

	dev.Reset()
	require.NoError(t, d.Render(RenderOptions{}))
	assert.Zero(t, dev.Count(gputest.OpDraw))
}

func TestProgramSwapOnHashChange(t *testing.T) {
	dev := gputest.NewRecorder(16, 16)
	d := NewDisplay(dev)
	geo := geometry(1)

	buildLeaf(t, d, "a", geo)
	require.NoError(t, d.Render(RenderOptions{}))

	buildLeaf(t, d, "a", geo, core.NewClip(mgl32.Vec4{0, 1, 0, 0}))
	assert.True(t, d.Dirty().Has(StageStateOrder))
	assert.Equal(t, 2, dev.Count(gputest.OpCompileProgram))
	assert.Equal(t, 1, dev.Count(gputest.OpDeleteProgram))
	assert.Equal(t, 1, dev.LivePrograms())

	dev.Reset()
	require.NoError(t, d.Render(RenderOptions{}))
	calls := dev.CallsOf(gputest.OpSetClipPlanes)
	require.Len(t, calls, 1)
	assert.Equal(t, []mgl32.Vec4{{0, 1, 0, 0}}, calls[0].Args[0])
}

func TestBuildObjectErrors(t *testing.T) {
	dev := gputest.NewRecorder(16, 16)
	d := NewDisplay(dev)

	d.Traversal().Reset()
	d.SetActiveCore(core.CategoryGeometry, core.NewGeometry(core.Geometry{Primitive: "triangle-fan", Positions: 1, IndexCount: 3}))
	err := d.BuildObject("fan")
	require.Error(t, err)
	assert.True(t, gpu.IsKind(err, gpu.KindConfiguration))

	dev.FailNext(gputest.OpCompileProgram, errors.New("bad wgsl"))
	d.Traversal().Reset()
	d.SetActiveCore(core.CategoryGeometry, geometry(2))
	d.SetActiveCore(core.CategoryClip, core.NewClip(mgl32.Vec4{1, 0, 0, 0}))
	err = d.BuildObject("broken")
	require.Error(t, err)
	assert.True(t, gpu.IsKind(err, gpu.KindShaderCompile))
}

func TestPickDecodesIndex(t *testing.T) {
	dev := gputest.NewRecorder(16, 16)
	d := NewDisplay(dev)
	buildLeaf(t, d, "a", geometry(1), core.NewName("alpha", "root/alpha", "n1"))
	buildLeaf(t, d, "b", geometry(2), core.NewName("beta", "root/beta", "n2"))
	buildLeaf(t, d, "c", geometry(3))

	index := 0
	dev.SetPixelFunc(func(_ gpu.TargetHandle, _ gpu.Pass, _, _ int) [4]uint8 {
		b := pick.EncodeIndex(index)
		return [4]uint8{b[0], b[1], b[2], 255}
	})

	index = 2
	hit, err := d.Pick(3, 4, PickOptions{})
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, "beta", hit.Name)
	assert.Equal(t, "root/beta", hit.Path)
	assert.Equal(t, "n2", hit.NodeID)
	assert.Equal(t, [2]int{3, 4}, hit.CanvasPos)
	assert.Nil(t, hit.WorldPos)

	index = 0
	hit, err = d.Pick(3, 4, PickOptions{})
	require.NoError(t, err)
	assert.Nil(t, hit)

	// The unnamed object occupies index 3 but is not a hit.
	index = 3
	hit, err = d.Pick(3, 4, PickOptions{})
	require.NoError(t, err)
	assert.Nil(t, hit)

	index = 40
	hit, err = d.Pick(3, 4, PickOptions{})
	require.NoError(t, err)
	assert.Nil(t, hit)
}

func TestPickUsesLastPickedObject(t *testing.T) {
	dev := gputest.NewRecorder(16, 16)
	d := NewDisplay(dev)
	buildLeaf(t, d, "a", geometry(1), core.NewName("alpha", "", ""))
	buildLeaf(t, d, "b", geometry(2), core.NewName("beta", "", ""))

	hit, err := d.Pick(0, 0, PickOptions{})
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, "beta", hit.Name)
}

func TestPickBufferReusedUntilImageChanges(t *testing.T) {
	dev := gputest.NewRecorder(16, 16)
	d := NewDisplay(dev)
	buildLeaf(t, d, "a", geometry(1), core.NewName("alpha", "", ""))

	pickPasses := func() int {
		n := 0
		for _, c := range dev.CallsOf(gputest.OpUseProgram) {
			if c.Pass == gpu.PassPick {
				n++
			}
		}
		return n
	}

	_, err := d.Pick(0, 0, PickOptions{})
	require.NoError(t, err)
	_, err = d.Pick(1, 1, PickOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, pickPasses())
	assert.Equal(t, 1, dev.Count(gputest.OpCreateTarget))
	assert.Equal(t, 1, dev.Count(gputest.OpFinish))

	d.Invalidate(PropertyMaterial)
	_, err = d.Pick(0, 0, PickOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, pickPasses())
	assert.Equal(t, 1, dev.Count(gputest.OpCreateTarget))

	// A resized canvas reallocates the pick target.
	dev.Resize(32, 32)
	_, err = d.Pick(20, 20, PickOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, dev.Count(gputest.OpCreateTarget))
	assert.Equal(t, 1, dev.Count(gputest.OpDeleteTarget))
	assert.Equal(t, 3, pickPasses())
}

func TestRayPickReconstructsWorldPosition(t *testing.T) {
	dev := gputest.NewRecorder(10, 10)
	d := NewDisplay(dev)
	proj := mgl32.Perspective(mgl32.DegToRad(90), 1, 1, 100)

	buildLeaf(t, d, "a", geometry(1),
		core.NewName("target", "", ""),
		core.NewView(mgl32.Ident4(), mgl32.Vec3{}),
		core.NewProjection(proj))

	dev.SetPixelFunc(func(_ gpu.TargetHandle, pass gpu.Pass, _, _ int) [4]uint8 {
		if pass == gpu.PassRay {
			return pick.PackDepth(0.5)
		}
		b := pick.EncodeIndex(1)
		return [4]uint8{b[0], b[1], b[2], 255}
	})

	hit, err := d.Pick(5, 5, PickOptions{Ray: true})
	require.NoError(t, err)
	require.NotNil(t, hit)
	require.NotNil(t, hit.WorldPos)
	assert.InDelta(t, 0, hit.WorldPos.X(), 1e-3)
	assert.InDelta(t, 0, hit.WorldPos.Y(), 1e-3)
	assert.InDelta(t, -50.5, hit.WorldPos.Z(), 1e-2)

	var rayPasses int
	for _, c := range dev.CallsOf(gputest.OpUseProgram) {
		if c.Pass == gpu.PassRay {
			rayPasses++
		}
	}
	assert.Equal(t, 1, rayPasses)
	assert.Equal(t, 2, dev.Count(gputest.OpCreateTarget))
}

func TestPickTargetAllocationFailure(t *testing.T) {
	dev := gputest.NewRecorder(16, 16)
	d := NewDisplay(dev)
	buildLeaf(t, d, "a", geometry(1), core.NewName("alpha", "", ""))

	dev.FailNext(gputest.OpCreateTarget, errors.New("out of memory"))
	_, err := d.Pick(0, 0, PickOptions{})
	require.Error(t, err)
	assert.True(t, gpu.IsKind(err, gpu.KindAllocation))

	hit, err := d.Pick(0, 0, PickOptions{})
	require.NoError(t, err)
	assert.NotNil(t, hit)
}

func TestContextLossAndRestore(t *testing.T) {
	dev := gputest.NewRecorder(16, 16)
	d := NewDisplay(dev)
	buildLeaf(t, d, "a", geometry(1), core.NewName("alpha", "", ""))
	_, err := d.Pick(0, 0, PickOptions{})
	require.NoError(t, err)

	dev.LoseContext()
	dev.Reset()
	d.MarkDirty(StageImage)
	require.NoError(t, d.Render(RenderOptions{}))
	assert.Zero(t, dev.Count(gputest.OpBeginPass))

	hit, err := d.Pick(0, 0, PickOptions{})
	require.NoError(t, err)
	assert.Nil(t, hit)

	dev.RestoreContext()
	require.NoError(t, d.ContextRestored())
	assert.Equal(t, 1, dev.Count(gputest.OpCompileProgram))
	assert.True(t, d.Dirty().Has(StageImage))

	require.NoError(t, d.Render(RenderOptions{}))
	assert.Equal(t, 1, dev.Count(gputest.OpDraw))

	hit, err = d.Pick(0, 0, PickOptions{})
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, "alpha", hit.Name)
	assert.Zero(t, dev.Count(gputest.OpDeleteTarget))
}

func TestBuildWhileContextLostLeavesObjectWithoutProgram(t *testing.T) {
	dev := gputest.NewRecorder(16, 16)
	d := NewDisplay(dev)
	dev.LoseContext()

	buildLeaf(t, d, "a", geometry(1))
	dev.RestoreContext()
	require.NoError(t, d.ContextRestored())
	require.NoError(t, d.Render(RenderOptions{}))
	assert.Zero(t, dev.Count(gputest.OpDraw))

	buildLeaf(t, d, "a", geometry(1))
	require.NoError(t, d.Render(RenderOptions{}))
	assert.Equal(t, 1, dev.Count(gputest.OpDraw))
}

func TestReadPixels(t *testing.T) {
	dev := gputest.NewRecorder(16, 16)
	d := NewDisplay(dev)
	buildLeaf(t, d, "a", geometry(1))
	dev.SetPixelFunc(func(_ gpu.TargetHandle, _ gpu.Pass, x, y int) [4]uint8 {
		return [4]uint8{uint8(x), uint8(y), 7, 255}
	})

	colors, err := d.ReadPixels([]image.Point{{X: 1, Y: 2}, {X: 3, Y: 4}})
	require.NoError(t, err)
	assert.Equal(t, []color.NRGBA{{R: 1, G: 2, B: 7, A: 255}, {R: 3, G: 4, B: 7, A: 255}}, colors)
	assert.Equal(t, 1, dev.LiveTargets())

	_, err = d.ReadPixels([]image.Point{{X: 99, Y: 0}})
	assert.Error(t, err)
}

func TestListenersFireDuringDraw(t *testing.T) {
	dev := gputest.NewRecorder(16, 16)
	d := NewDisplay(dev)
	model := mgl32.Translate3D(1, 2, 3)
	var events []core.RenderEvent

	buildLeaf(t, d, "a", geometry(1),
		core.NewTransform(model),
		core.NewListeners(func(ev core.RenderEvent) { events = append(events, ev) }))
	require.NoError(t, d.Render(RenderOptions{}))
	_, err := d.Pick(0, 0, PickOptions{})
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.Equal(t, gpu.PassDraw, events[0].Pass)
	assert.Equal(t, model, events[0].Model)
}

func TestReleaseDropsEverything(t *testing.T) {
	dev := gputest.NewRecorder(16, 16)
	d := NewDisplay(dev)
	buildLeaf(t, d, "a", geometry(1), core.NewName("alpha", "", ""))
	_, err := d.Pick(0, 0, PickOptions{})
	require.NoError(t, err)

	d.Release()
	assert.Zero(t, dev.LivePrograms())
	assert.Zero(t, dev.LiveTargets())
	assert.Zero(t, dev.DoubleFrees())
	assert.Zero(t, d.Stats().Objects)
}
