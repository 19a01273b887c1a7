package core

import (
	"regexp"
	"testing"

	"github.com/Carmen-Shannon/oxy-graph/engine/gpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategorySlots(t *testing.T) {
	seen := map[int]Category{}
	for c := Category(0); c < categoryCount; c++ {
		slot, ok := c.Slot()
		switch c {
		case CategoryLayer, CategoryTag, CategoryRenderer:
			assert.False(t, ok, c.String())
			continue
		}
		require.True(t, ok, c.String())
		assert.NotEqual(t, SlotProgram, slot)
		_, dup := seen[slot]
		assert.False(t, dup, "slot %d assigned twice", slot)
		seen[slot] = c

		back, ok := SlotCategory(slot)
		require.True(t, ok)
		assert.Equal(t, c, back)
	}
	assert.Len(t, seen, SlotCount-1)

	geo, _ := CategoryGeometry.Slot()
	assert.Equal(t, SlotCount-1, geo)

	_, ok := SlotCategory(SlotProgram)
	assert.False(t, ok)
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory("morphGeometry")
	require.NoError(t, err)
	assert.Equal(t, CategoryMorphGeometry, c)

	_, err = ParseCategory("camera")
	assert.Error(t, err)
	assert.Equal(t, "Category(99)", Category(99).String())
}

func TestNewAllocatesIncreasingStateIDs(t *testing.T) {
	a := NewTransform(mgl32.Ident4())
	b := NewTransform(mgl32.Ident4())
	assert.Greater(t, b.StateID, a.StateID)
	assert.Positive(t, a.StateID)
}

func TestEmptyCores(t *testing.T) {
	tests := []struct {
		name  string
		core  *Core
		empty bool
	}{
		{"texture without layers", NewTexture(), true},
		{"texture with a layer", NewTexture(3), false},
		{"clip without planes", NewClip(), true},
		{"morph without target", NewMorphGeometry(MorphGeometry{}), true},
		{"geometry without indices", NewGeometry(Geometry{Positions: 1}), true},
		{"loaded geometry", NewGeometry(Geometry{Positions: 1, Indices: 2, IndexCount: 3}), false},
		{"shader without snippet", NewShader("plain", ""), true},
		{"material", NewMaterial(Material{}), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.empty, tt.core.Empty)
		})
	}
}

func TestHashFragments(t *testing.T) {
	g := NewGeometry(Geometry{Positions: 1, Normals: 2, UVs: 3, Indices: 4, IndexCount: 6})
	assert.Equal(t, "geo:nu", g.Hash)

	l := NewLights(gpu.LightData{Type: gpu.LightAmbient}, gpu.LightData{Type: gpu.LightPoint})
	assert.Equal(t, "lights:ap", l.Hash)

	assert.Equal(t, "", HashOf(NewTexture()))
	assert.Equal(t, "tex2", HashOf(NewTexture(1, 2)))
	assert.Equal(t, "", HashOf(nil))
}

func TestLightsAmbient(t *testing.T) {
	lights, ok := As[*Lights](NewLights(
		gpu.LightData{Type: gpu.LightAmbient, Color: mgl32.Vec3{1, 0, 0}},
		gpu.LightData{Type: gpu.LightDirectional, Color: mgl32.Vec3{0, 1, 0}, Intensity: 1},
	))
	require.True(t, ok)
	c, found := lights.Ambient()
	require.True(t, found)
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, c)

	none, _ := As[*Lights](NewLights(gpu.LightData{Type: gpu.LightPoint}))
	_, found = none.Ambient()
	assert.False(t, found)
}

func TestTagMatchCache(t *testing.T) {
	tag, _ := As[*Tag](NewTag("enemy.tank"))
	re := regexp.MustCompile(`^enemy\.`)
	assert.True(t, tag.Match(re, 1))

	// Same mask: the cached result wins even though the pattern changed.
	other := regexp.MustCompile(`^friend`)
	assert.True(t, tag.Match(other, 1))

	assert.False(t, tag.Match(other, 2))
}

func TestAsWrongType(t *testing.T) {
	_, ok := As[*Material](NewTransform(mgl32.Ident4()))
	assert.False(t, ok)
	_, ok = As[*Material](nil)
	assert.False(t, ok)
}

func TestDefaults(t *testing.T) {
	for c := Category(0); c < categoryCount; c++ {
		d := Default(c)
		require.NotNil(t, d, c.String())
		assert.Equal(t, c, d.Category())
		assert.Same(t, d, Default(c))
	}
	assert.Nil(t, Default(Category(-1)))

	flags, _ := As[*Flags](Default(CategoryFlags))
	assert.True(t, flags.Enabled)
	assert.True(t, flags.Pickable)
	assert.False(t, Default(CategoryName).Empty)
	assert.True(t, Default(CategoryTexture).Empty)
}
