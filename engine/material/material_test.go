package material

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-graph/engine/core"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaterialDefaults(t *testing.T) {
	m := NewMaterial(WithName("plain"))
	assert.Equal(t, "plain", m.Name())
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, m.BaseColor())
	assert.Equal(t, float32(1), m.Alpha())
	assert.False(t, m.Transparent())
	assert.Empty(t, m.DiffuseTexture())
	assert.Equal(t, core.CategoryMaterial, m.Core().Category())
}

func TestMaterialUpdatesCoreInPlace(t *testing.T) {
	m := NewMaterial(WithBaseColor(mgl32.Vec3{1, 0, 0}), WithAlpha(2), WithDiffuseTexture("brick.png"))
	assert.Equal(t, float32(1), m.Alpha())
	assert.Equal(t, "brick.png", m.DiffuseTexture())

	c := m.Core()
	id := c.StateID
	m.SetAlpha(0.5)
	m.SetEmissive(mgl32.Vec3{0.1, 0.1, 0.1})
	assert.True(t, m.Transparent())
	assert.Equal(t, uint64(2), m.Version())

	require.Same(t, c, m.Core())
	assert.Equal(t, id, c.StateID)
	p, ok := core.As[*core.Material](c)
	require.True(t, ok)
	assert.Equal(t, float32(0.5), p.Alpha)
	assert.Equal(t, mgl32.Vec3{0.1, 0.1, 0.1}, p.Emissive)
}
