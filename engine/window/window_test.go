package window

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlatform struct {
	polls     int
	closeAt   int
	closing   atomic.Bool
	destroyed bool
}

func (f *fakePlatform) running() bool { return !f.destroyed && !f.closing.Load() }

func (f *fakePlatform) poll() {
	f.polls++
	if f.polls == f.closeAt {
		f.closing.Store(true)
	}
}

func (f *fakePlatform) requestClose() { f.closing.Store(true) }

func (f *fakePlatform) destroy() error {
	if f.destroyed {
		return errors.New("already destroyed")
	}
	f.destroyed = true
	return nil
}

func (f *fakePlatform) surfaceDescriptor() *wgpu.SurfaceDescriptor { return &wgpu.SurfaceDescriptor{} }

func openFake(f *fakePlatform) func(*engineWindow) (platform, error) {
	return func(*engineWindow) (platform, error) { return f, nil }
}

func TestNewWindowAppliesOptions(t *testing.T) {
	w, err := newWindow(openFake(&fakePlatform{}), WithTitle("t"), WithSize(640, 480), WithClickSlop(9))
	require.NoError(t, err)
	assert.Equal(t, "t", w.title)
	assert.Equal(t, 640, w.Width())
	assert.Equal(t, 480, w.Height())
	assert.Equal(t, float32(9), w.clickSlop)

	_, err = newWindow(func(*engineWindow) (platform, error) { return nil, errors.New("no display") })
	assert.Error(t, err)
}

func TestProcessMessagesStopsOnClose(t *testing.T) {
	f := &fakePlatform{closeAt: 3}
	w, err := newWindow(openFake(f))
	require.NoError(t, err)

	w.ProcessMessages()
	assert.Equal(t, 3, f.polls)
	assert.False(t, w.IsRunning())
}

func TestRequestCloseAndClose(t *testing.T) {
	f := &fakePlatform{}
	w, err := newWindow(openFake(f))
	require.NoError(t, err)
	assert.NotNil(t, w.SurfaceDescriptor())

	w.RequestClose()
	w.ProcessMessages()
	assert.Zero(t, f.polls)
	assert.Nil(t, w.SurfaceDescriptor())

	require.NoError(t, w.Close())
	assert.Error(t, w.Close())
}

func TestKeyAndScrollRouting(t *testing.T) {
	w := &engineWindow{}
	var down, up []Key
	var scroll float32
	w.SetKeyDownCallback(func(k Key) { down = append(down, k) })
	w.SetKeyUpCallback(func(k Key) { up = append(up, k) })
	w.SetScrollCallback(func(d float32) { scroll += d })

	w.key(KeySpace, true)
	w.key(KeySpace, false)
	w.key(KeyEscape, true)
	w.scrolled(1.5)
	w.scrolled(-0.5)

	assert.Equal(t, []Key{KeySpace, KeyEscape}, down)
	assert.Equal(t, []Key{KeySpace}, up)
	assert.Equal(t, float32(1), scroll)
}
