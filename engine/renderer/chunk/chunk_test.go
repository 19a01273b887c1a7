package chunk

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-graph/engine/core"
	"github.com/Carmen-Shannon/oxy-graph/engine/gpu"
	"github.com/Carmen-Shannon/oxy-graph/engine/gpu/gputest"
	"github.com/Carmen-Shannon/oxy-graph/engine/renderer/pick"
	"github.com/Carmen-Shannon/oxy-graph/engine/renderer/program"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestID(t *testing.T) {
	p := &program.Program{ID: 2}
	full := core.NewMaterial(core.Material{Alpha: 1})
	empty := core.NewTexture()
	geo := core.NewGeometry(core.Geometry{Primitive: "triangles", Positions: 1, Indices: 2, IndexCount: 3})

	tests := []struct {
		name   string
		unique bool
		c      *core.Core
		local  int64
		want   int64
		ok     bool
	}{
		{name: "unique", unique: true, c: geo, local: 9, want: geo.StateID + 1, ok: true},
		{name: "non-empty core", c: full, local: 4, want: 3*ProgramStride + 5, ok: true},
		{name: "empty core", c: empty, ok: false},
		{name: "no core", c: nil, want: 3 * ProgramStride, ok: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := ID(tt.unique, p, tt.c, tt.local)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, id)
			}
		})
	}
}

func TestTypeTable(t *testing.T) {
	assert.Equal(t, TypeProgram, ForSlot(core.SlotProgram))
	assert.Equal(t, TypeGeometry, ForSlot(core.SlotGeometry))
	assert.True(t, TypeGeometry.Unique())
	assert.False(t, TypeMaterial.Unique())

	assert.True(t, TypeName.Pick())
	assert.False(t, TypeName.Draw())
	assert.True(t, TypeMaterial.Draw())
	assert.False(t, TypeMaterial.Pick())

	cat, ok := TypeRenderer.Category()
	require.True(t, ok)
	assert.Equal(t, core.CategoryRenderer, cat)
	_, ok = TypeProgram.Category()
	assert.False(t, ok)
	assert.Equal(t, "renderer", TypeRenderer.String())
}

func TestPoolSharesByKey(t *testing.T) {
	pool := NewPool()
	p := &program.Program{ID: 0}
	mat := core.NewMaterial(core.Material{Alpha: 1})

	a, err := pool.Get(TypeMaterial, p, mat)
	require.NoError(t, err)
	b, err := pool.Get(TypeMaterial, p, mat)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, 2, pool.Uses(a))
	assert.Equal(t, 1, pool.Len())

	// Same core under another program is a different chunk.
	other, err := pool.Get(TypeMaterial, &program.Program{ID: 1}, mat)
	require.NoError(t, err)
	assert.NotEqual(t, a, other)
	assert.Equal(t, 2, pool.Len())

	ch, err := pool.Resolve(a)
	require.NoError(t, err)
	assert.Equal(t, int64(ProgramStride+1), ch.ID)
	assert.Same(t, mat, ch.Core)
}

func TestPoolIDsStayWithinProgramRange(t *testing.T) {
	pool := NewPool()
	plain := &program.Program{ID: 0}
	clipped := &program.Program{ID: 1}

	// A state id past the stride would alias the other program's range if packed directly.
	late := core.NewTransform(mgl32.Translate3D(1, 0, 0))
	late.StateID = ProgramStride + 19
	early := core.NewTransform(mgl32.Translate3D(2, 0, 0))
	early.StateID = 19

	a, err := pool.Get(TypeModelTransform, plain, late)
	require.NoError(t, err)
	b, err := pool.Get(TypeModelTransform, clipped, early)
	require.NoError(t, err)

	ca, _ := pool.Resolve(a)
	cb, _ := pool.Resolve(b)
	assert.NotEqual(t, ca.ID, cb.ID)
	assert.Equal(t, int64(ProgramStride+1), ca.ID)
	assert.Equal(t, int64(2*ProgramStride+1), cb.ID)
	for _, id := range []int64{ca.ID, cb.ID} {
		assert.Less(t, id%ProgramStride, int64(ProgramStride))
	}
}

func TestPoolRecyclesCompactIDs(t *testing.T) {
	pool := NewPool()
	p := &program.Program{}
	first := core.NewMaterial(core.Material{Alpha: 1})
	second := core.NewMaterial(core.Material{Alpha: 0.5})

	h1, err := pool.Get(TypeMaterial, p, first)
	require.NoError(t, err)
	h2, err := pool.Get(TypeMaterial, p, second)
	require.NoError(t, err)
	c1, _ := pool.Resolve(h1)
	c2, _ := pool.Resolve(h2)
	assert.Equal(t, int64(ProgramStride+1), c1.ID)
	assert.Equal(t, int64(ProgramStride+2), c2.ID)

	// The first compact id is free again once its chunk is discarded.
	pool.Put(h1)
	third := core.NewMaterial(core.Material{Alpha: 0.25})
	h3, err := pool.Get(TypeMaterial, p, third)
	require.NoError(t, err)
	c3, _ := pool.Resolve(h3)
	assert.Equal(t, int64(ProgramStride+1), c3.ID)
	assert.Same(t, third, c3.Core)

	// A live core keeps its id.
	again, err := pool.Get(TypeMaterial, p, second)
	require.NoError(t, err)
	assert.Equal(t, h2, again)
}

func TestPoolRejectsProgramRangeOverflow(t *testing.T) {
	pool := NewPool()
	p := &program.Program{}
	for i := 0; i < ProgramStride-1; i++ {
		_, err := pool.Get(TypeClip, p, core.NewClip(mgl32.Vec4{0, 1, 0, float32(i)}))
		require.NoError(t, err)
	}
	_, err := pool.Get(TypeClip, p, core.NewClip(mgl32.Vec4{1, 0, 0, 0}))
	assert.True(t, gpu.IsKind(err, gpu.KindAllocation))
	assert.Equal(t, ProgramStride-1, pool.Len())

	// Other programs have their own range.
	_, err = pool.Get(TypeClip, &program.Program{ID: 1}, core.NewClip(mgl32.Vec4{1, 0, 0, 0}))
	assert.NoError(t, err)
}

func TestPoolEmptyCoreClearsSlot(t *testing.T) {
	pool := NewPool()
	h, err := pool.Get(TypeTexture, &program.Program{}, core.NewTexture())
	require.NoError(t, err)
	assert.False(t, h.Valid())
	assert.Zero(t, pool.Len())
}

func TestPoolPutAndStaleHandles(t *testing.T) {
	pool := NewPool()
	p := &program.Program{}
	mat := core.NewMaterial(core.Material{Alpha: 1})

	h, err := pool.Get(TypeMaterial, p, mat)
	require.NoError(t, err)
	_, err = pool.Get(TypeMaterial, p, mat)
	require.NoError(t, err)

	pool.Put(h)
	_, err = pool.Resolve(h)
	assert.NoError(t, err)

	pool.Put(h)
	_, err = pool.Resolve(h)
	assert.ErrorIs(t, err, ErrStaleHandle)
	assert.Zero(t, pool.Len())

	// The recycled slot must not satisfy the old handle.
	h2, err := pool.Get(TypeMaterial, p, core.NewMaterial(core.Material{}))
	require.NoError(t, err)
	assert.Equal(t, h.index, h2.index)
	assert.NotEqual(t, h.version, h2.version)
	_, err = pool.Resolve(h)
	assert.ErrorIs(t, err, ErrStaleHandle)

	// Putting a stale handle is ignored.
	pool.Put(h)
	assert.Equal(t, 1, pool.Uses(h2))

	_, err = pool.Resolve(Handle{})
	assert.ErrorIs(t, err, ErrStaleHandle)
}

func TestPoolRejectsBadEnums(t *testing.T) {
	pool := NewPool()
	p := &program.Program{}

	_, err := pool.Get(TypeGeometry, p, core.NewGeometry(core.Geometry{Primitive: "triangle-fan", Positions: 1, IndexCount: 3}))
	assert.True(t, gpu.IsKind(err, gpu.KindConfiguration))

	_, err = pool.Get(TypeRenderer, nil, core.NewRenderer(core.Renderer{DepthFunc: "sometimes"}))
	assert.True(t, gpu.IsKind(err, gpu.KindConfiguration))

	_, err = pool.Get(TypeRenderer, nil, core.NewRenderer(core.Renderer{Blend: true, BlendSrc: "bogus", BlendDst: "one"}))
	assert.True(t, gpu.IsKind(err, gpu.KindConfiguration))

	_, err = pool.Get(TypeFlags, p, core.NewFlags(core.Flags{FrontFace: "sideways"}))
	assert.True(t, gpu.IsKind(err, gpu.KindConfiguration))

	assert.Zero(t, pool.Len())
}

func TestPoolRendererKeyIgnoresProgram(t *testing.T) {
	pool := NewPool()
	r := core.NewRenderer(core.DefaultRenderer())

	a, err := pool.Get(TypeRenderer, &program.Program{ID: 0}, r)
	require.NoError(t, err)
	b, err := pool.Get(TypeRenderer, &program.Program{ID: 4}, r)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	ch, err := pool.Resolve(a)
	require.NoError(t, err)
	assert.Equal(t, r.StateID+1, ch.ID)
}

func TestDefaultChunkUsesDefaultCore(t *testing.T) {
	pool := NewPool()
	dev := gputest.NewRecorder(4, 4)

	h, err := pool.Get(TypeMaterial, &program.Program{}, nil)
	require.NoError(t, err)
	ch, err := pool.Resolve(h)
	require.NoError(t, err)
	assert.Equal(t, int64(ProgramStride), ch.ID)

	ch.Run(NewFrame(dev, gpu.PassDraw, gpu.BlendState{}))
	calls := dev.CallsOf(gputest.OpSetVector)
	require.NotEmpty(t, calls)
	assert.Equal(t, gpu.UniformBaseColor, calls[0].Args[0])
	assert.Equal(t, mgl32.Vec4{1, 1, 1, 1}, calls[0].Args[1])
}

func TestChunkPassSelection(t *testing.T) {
	pool := NewPool()
	dev := gputest.NewRecorder(4, 4)
	p := &program.Program{Handle: 7}

	matH, err := pool.Get(TypeMaterial, p, core.NewMaterial(core.Material{Alpha: 1}))
	require.NoError(t, err)
	mat, _ := pool.Resolve(matH)

	mat.Run(NewFrame(dev, gpu.PassPick, gpu.BlendState{}))
	assert.Zero(t, dev.Count(gputest.OpSetVector))
	assert.True(t, mat.Draws())
	assert.False(t, mat.Picks())

	progH, err := pool.Get(TypeProgram, p, nil)
	require.NoError(t, err)
	prog, _ := pool.Resolve(progH)
	prog.Run(NewFrame(dev, gpu.PassRay, gpu.BlendState{}))
	calls := dev.CallsOf(gputest.OpUseProgram)
	require.Len(t, calls, 1)
	assert.Equal(t, gpu.PassRay, calls[0].Pass)
}

func TestNameChunkAssignsPickIndices(t *testing.T) {
	pool := NewPool()
	dev := gputest.NewRecorder(4, 4)
	p := &program.Program{}

	named, err := pool.Get(TypeName, p, core.NewName("box", "root/box", "n1"))
	require.NoError(t, err)
	unnamed, err := pool.Get(TypeName, p, core.NewName("", "", ""))
	require.NoError(t, err)
	a, _ := pool.Resolve(named)
	b, _ := pool.Resolve(unnamed)

	view := mgl32.Translate3D(0, 0, -5)
	f := NewFrame(dev, gpu.PassPick, gpu.BlendState{})
	f.View = view
	a.Run(f)
	b.Run(f)

	assert.Equal(t, 2, f.PickIndex)
	require.Len(t, f.PickNames, 2)
	assert.Equal(t, &pick.Name{Name: "box", Path: "root/box", NodeID: "n1", View: view, Proj: mgl32.Ident4()}, f.PickNames[0])
	assert.Nil(t, f.PickNames[1])

	colors := dev.CallsOf(gputest.OpSetVector)
	require.Len(t, colors, 2)
	assert.Equal(t, pick.Color(1), colors[0].Args[1])
	assert.Equal(t, pick.Color(2), colors[1].Args[1])

	// The ray pass does not hand out indices.
	ray := NewFrame(dev, gpu.PassRay, gpu.BlendState{})
	a.Run(ray)
	assert.Zero(t, ray.PickIndex)
}

func TestRendererChunkBlend(t *testing.T) {
	pool := NewPool()
	dev := gputest.NewRecorder(4, 4)

	explicit, err := pool.Get(TypeRenderer, nil, core.NewRenderer(core.Renderer{
		DepthTest: true, DepthFunc: "lequal", Blend: true, BlendSrc: "one", BlendDst: "one",
	}))
	require.NoError(t, err)
	ch, _ := pool.Resolve(explicit)

	f := NewFrame(dev, gpu.PassDraw, gpu.DefaultBlend)
	ch.Run(f)
	assert.Equal(t, gpu.BlendState{Enabled: true, Src: gpu.BlendOne, Dst: gpu.BlendOne}, f.Raster.Blend)
	assert.Equal(t, gpu.DepthLessEqual, f.Raster.Depth.Func)
	assert.Equal(t, float32(1), f.Raster.LineWidth)

	// Pick passes keep the pass blend.
	pf := NewFrame(dev, gpu.PassPick, gpu.BlendState{})
	ch.Run(pf)
	assert.False(t, pf.Raster.Blend.Enabled)

	def, err := pool.Get(TypeRenderer, nil, nil)
	require.NoError(t, err)
	dch, _ := pool.Resolve(def)
	df := NewFrame(dev, gpu.PassDraw, gpu.DefaultBlend)
	dch.Run(df)
	assert.Equal(t, gpu.DefaultBlend, df.Raster.Blend)
	assert.Equal(t, core.Default(core.CategoryRenderer).StateID+1, dch.ID)
}

func TestGeometryChunkDraws(t *testing.T) {
	pool := NewPool()
	dev := gputest.NewRecorder(4, 4)
	g := core.NewGeometry(core.Geometry{Primitive: "lines", Positions: 3, Indices: 4, IndexCount: 6})

	h, err := pool.Get(TypeGeometry, &program.Program{}, g)
	require.NoError(t, err)
	ch, _ := pool.Resolve(h)
	assert.True(t, ch.Unique())
	assert.Equal(t, g.StateID+1, ch.ID)

	f := NewFrame(dev, gpu.PassDraw, gpu.BlendState{})
	ch.Run(f)
	assert.Equal(t, 1, f.DrawCalls)
	draws := dev.CallsOf(gputest.OpDraw)
	require.Len(t, draws, 1)
	assert.Equal(t, []any{gpu.PrimitiveLines, 6}, draws[0].Args)
}

func TestFlagsAndFramebufferChunks(t *testing.T) {
	pool := NewPool()
	dev := gputest.NewRecorder(4, 4)
	p := &program.Program{}

	fl, err := pool.Get(TypeFlags, p, core.NewFlags(core.Flags{Enabled: true, FrontFace: "cw"}))
	require.NoError(t, err)
	fb, err := pool.Get(TypeFramebuffer, p, core.NewFramebuffer(core.Framebuffer{ColorMask: [4]bool{true, false, true, false}}))
	require.NoError(t, err)

	f := NewFrame(dev, gpu.PassDraw, gpu.BlendState{})
	for _, h := range []Handle{fl, fb} {
		ch, err := pool.Resolve(h)
		require.NoError(t, err)
		ch.Run(f)
	}
	assert.Equal(t, gpu.CullBack, f.Raster.Cull)
	assert.Equal(t, gpu.FrontFaceCW, f.Raster.FrontFace)
	assert.Equal(t, [4]bool{true, false, true, false}, f.Raster.ColorMask)
	assert.False(t, f.Raster.Depth.Write)
}

func TestListenersChunkFires(t *testing.T) {
	pool := NewPool()
	dev := gputest.NewRecorder(4, 4)
	var events []core.RenderEvent
	l := core.NewListeners(func(ev core.RenderEvent) { events = append(events, ev) })

	h, err := pool.Get(TypeListeners, &program.Program{}, l)
	require.NoError(t, err)
	ch, _ := pool.Resolve(h)

	f := NewFrame(dev, gpu.PassDraw, gpu.BlendState{})
	f.Model = mgl32.Translate3D(1, 2, 3)
	ch.Run(f)
	require.Len(t, events, 1)
	assert.Equal(t, f.Model, events[0].Model)

	ch.Run(NewFrame(dev, gpu.PassPick, gpu.BlendState{}))
	assert.Len(t, events, 1)
}

func TestPoolContextRestoredRebuilds(t *testing.T) {
	pool := NewPool()
	p := &program.Program{Handle: 1}
	h, err := pool.Get(TypeProgram, p, nil)
	require.NoError(t, err)
	before, _ := pool.Resolve(h)

	require.NoError(t, pool.ContextRestored())
	after, err := pool.Resolve(h)
	require.NoError(t, err)
	assert.Same(t, before, after)

	dev := gputest.NewRecorder(4, 4)
	p.Handle = 9
	after.Run(NewFrame(dev, gpu.PassDraw, gpu.BlendState{}))
	assert.Equal(t, []any{gpu.ProgramHandle(9)}, dev.CallsOf(gputest.OpUseProgram)[0].Args)
	assert.Equal(t, Stats{Created: 1, Live: 1}, pool.Stats())
}
