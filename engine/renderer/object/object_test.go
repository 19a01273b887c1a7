package object

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-graph/engine/core"
	"github.com/Carmen-Shannon/oxy-graph/engine/renderer/program"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortKey(t *testing.T) {
	assert.Equal(t, int64(3*1e5+1e8+7000), SortKey(0, 2, 7))
	assert.Equal(t, int64(3*1e5+1e8+9000), SortKey(0, 2, 9))
	assert.Less(t, SortKey(0, 2, 7), SortKey(0, 2, 9))
	assert.Less(t, SortKey(0, 9, 0), SortKey(1, 0, 0))
}

func TestSortKeyFieldsSaturate(t *testing.T) {
	assert.Less(t, SortKey(0, 0, 200019), SortKey(1, 0, 0))
	assert.Less(t, SortKey(0, 0, 200019), SortKey(0, 1, 0))
	assert.Equal(t, SortKey(0, 0, 99), SortKey(0, 0, 5000))
	assert.Less(t, SortKey(0, 5000, 99), SortKey(1, 0, 0))
}

func TestComputeSortKey(t *testing.T) {
	o := &Object{}
	assert.Equal(t, NoProgram, o.ComputeSortKey())

	o.Program = &program.Program{ID: 1}
	o.Layer = core.NewLayer(2, true)
	o.Texture = core.NewTexture(1)
	o.TextureKey = 4
	assert.Equal(t, int64(3*LayerWeight+2*ProgramWeight+4*TextureWeight), o.ComputeSortKey())
	assert.Equal(t, o.SortKey, o.ComputeSortKey())
}

func TestObjectCoreAccessors(t *testing.T) {
	o := &Object{}
	assert.Equal(t, 0, o.LayerPriority())
	assert.True(t, o.LayerEnabled())
	assert.Equal(t, core.DefaultFlags(), o.FlagValues())
	assert.Nil(t, o.TagName())

	o.Layer = core.NewLayer(4, false)
	o.Flags = core.NewFlags(core.Flags{Transparent: true})
	o.Tag = core.NewTag("walls")
	assert.Equal(t, 4, o.LayerPriority())
	assert.False(t, o.LayerEnabled())
	assert.True(t, o.FlagValues().Transparent)
	require.NotNil(t, o.TagName())
	assert.Equal(t, "walls", o.TagName().Name)

	o.Tag = core.NewTag("")
	assert.Nil(t, o.TagName())
}

func TestPoolGetPut(t *testing.T) {
	p := NewPool()

	a, created := p.Get("a")
	require.True(t, created)
	again, created := p.Get("a")
	assert.False(t, created)
	assert.Same(t, a, again)

	b, _ := p.Get("b")
	assert.Equal(t, 2, p.Len())
	assert.Same(t, b, p.Lookup("b"))
	assert.Same(t, a, p.Resolve(a.Handle()))

	removed := p.Put("a")
	assert.Same(t, a, removed)
	assert.Nil(t, p.Put("a"))
	assert.Nil(t, p.Lookup("a"))
	assert.Nil(t, p.Resolve(a.Handle()))

	// A recycled slot does not resolve the old handle.
	c, created := p.Get("c")
	require.True(t, created)
	assert.Equal(t, a.Handle().index, c.Handle().index)
	assert.Nil(t, p.Resolve(a.Handle()))
	assert.Same(t, c, p.Resolve(c.Handle()))
	assert.Nil(t, p.Resolve(Handle{}))
}

func TestPoolEach(t *testing.T) {
	p := NewPool()
	for _, id := range []string{"a", "b", "c"} {
		p.Get(id)
	}
	p.Put("b")

	var ids []string
	p.Each(func(o *Object) { ids = append(ids, o.ID) })
	assert.Equal(t, []string{"a", "c"}, ids)
}
