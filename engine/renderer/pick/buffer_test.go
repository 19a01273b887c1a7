package pick

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-graph/engine/gpu/gputest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferLifecycle(t *testing.T) {
	dev := gputest.NewRecorder(64, 32)
	b := NewBuffer(dev, "pick")
	assert.Equal(t, StateNone, b.State())

	b.MarkDirty()
	b.MarkClean()
	assert.Equal(t, StateNone, b.State())

	require.NoError(t, b.Touch())
	assert.Equal(t, StateDirty, b.State())
	w, h, ok := dev.TargetSize(b.Target())
	require.True(t, ok)
	assert.Equal(t, []int{64, 32}, []int{w, h})

	b.MarkClean()
	require.NoError(t, b.Touch())
	assert.Equal(t, StateClean, b.State())
	assert.Equal(t, 1, dev.Count(gputest.OpCreateTarget))

	b.MarkDirty()
	assert.Equal(t, StateDirty, b.State())
}

func TestBufferReallocatesOnResize(t *testing.T) {
	dev := gputest.NewRecorder(64, 32)
	b := NewBuffer(dev, "pick")
	require.NoError(t, b.Touch())
	b.MarkClean()
	first := b.Target()

	dev.Resize(128, 64)
	require.NoError(t, b.Touch())

	assert.NotEqual(t, first, b.Target())
	assert.Equal(t, StateDirty, b.State())
	assert.Equal(t, 1, dev.Count(gputest.OpDeleteTarget))
	assert.Equal(t, 1, dev.LiveTargets())
	w, h := b.Size()
	assert.Equal(t, []int{128, 64}, []int{w, h})
}

func TestBufferAllocationFailure(t *testing.T) {
	dev := gputest.NewRecorder(8, 8)
	dev.FailNext(gputest.OpCreateTarget, errors.New("out of memory"))
	b := NewBuffer(dev, "ray")

	err := b.Touch()
	require.Error(t, err)
	assert.Equal(t, StateNone, b.State())

	require.NoError(t, b.Touch())
	assert.Equal(t, StateDirty, b.State())
}

func TestBufferDropAndRelease(t *testing.T) {
	dev := gputest.NewRecorder(8, 8)
	b := NewBuffer(dev, "pick")
	require.NoError(t, b.Touch())

	b.Drop()
	assert.Equal(t, StateNone, b.State())
	assert.Zero(t, dev.Count(gputest.OpDeleteTarget))

	require.NoError(t, b.Touch())
	b.Release()
	assert.Equal(t, StateNone, b.State())
	assert.Equal(t, 1, dev.Count(gputest.OpDeleteTarget))
	b.Release()
	assert.Equal(t, 1, dev.Count(gputest.OpDeleteTarget))
}
