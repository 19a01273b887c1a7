package light

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-graph/engine/core"
	"github.com/Carmen-Shannon/oxy-graph/engine/gpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLightData(t *testing.T) {
	l := NewLight(LightTypeSpot,
		WithPosition(mgl32.Vec3{1, 2, 3}),
		WithDirection(mgl32.Vec3{0, 0, -2}),
		WithSpotCone(10, 20),
		WithIntensity(3),
		WithRange(15),
	)
	d := l.Data()
	assert.Equal(t, gpu.LightSpot, d.Type)
	assert.Equal(t, mgl32.Vec3{0, 0, -1}, d.Direction)
	assert.InDelta(t, mgl32.DegToRad(10), d.InnerCone, 1e-6)
	assert.InDelta(t, mgl32.DegToRad(20), d.OuterCone, 1e-6)
	assert.Equal(t, float32(3), d.Intensity)
	assert.Equal(t, float32(15), d.Range)

	v := l.Version()
	l.SetColor(mgl32.Vec3{1, 0, 0})
	assert.Equal(t, v+1, l.Version())
}

func TestSelectKeepsBudgetInInsertionOrder(t *testing.T) {
	sun := NewLight(LightTypeDirectional)
	near := NewLight(LightTypePoint, WithPosition(mgl32.Vec3{0, 0, 1}))
	far := NewLight(LightTypePoint, WithPosition(mgl32.Vec3{0, 0, 50}))
	outOfRange := NewLight(LightTypePoint, WithPosition(mgl32.Vec3{0, 0, 2}), WithRange(1), WithIntensity(100))
	off := NewLight(LightTypeAmbient, WithEnabled(false))

	all := []Light{far, outOfRange, near, off, sun}
	assert.Equal(t, []Light{far, outOfRange, near, sun}, Select(all, mgl32.Vec3{}, 0))
	assert.Equal(t, []Light{far, near, sun}, Select(all, mgl32.Vec3{}, 3))
	assert.Equal(t, []Light{near, sun}, Select(all, mgl32.Vec3{}, 2))
	assert.Equal(t, []Light{sun}, Select(all, mgl32.Vec3{}, 1))
}

func TestSetSync(t *testing.T) {
	sun := NewLight(LightTypeDirectional)
	s := NewSet(WithLights(sun))
	assert.True(t, s.Core().Empty)

	require.Equal(t, ChangeReplaced, s.Sync(mgl32.Vec3{}))
	c := s.Core()
	assert.Equal(t, "lights:d", c.Hash)
	assert.Equal(t, ChangeNone, s.Sync(mgl32.Vec3{}))

	sun.SetColor(mgl32.Vec3{0, 1, 0})
	require.Equal(t, ChangeValues, s.Sync(mgl32.Vec3{}))
	assert.Same(t, c, s.Core())
	payload, ok := core.As[*core.Lights](c)
	require.True(t, ok)
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, payload.Lights[0].Color)

	s.Add(NewLight(LightTypePoint))
	require.Equal(t, ChangeReplaced, s.Sync(mgl32.Vec3{}))
	assert.Equal(t, "lights:dp", s.Core().Hash)
	assert.NotEqual(t, c.StateID, s.Core().StateID)

	assert.True(t, s.Remove(sun))
	assert.False(t, s.Remove(sun))
	assert.Len(t, s.Lights(), 1)
}
