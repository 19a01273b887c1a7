package loader

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"io/fs"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"github.com/Carmen-Shannon/oxy-graph/common"
	"github.com/Carmen-Shannon/oxy-graph/engine/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int, c color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func receive(t *testing.T, l Loader) Result {
	t.Helper()
	select {
	case res := <-l.Results():
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a load result")
		return Result{}
	}
}

func TestLoadTexture(t *testing.T) {
	fsys := fstest.MapFS{
		"tex/red.png": {Data: encodePNG(t, 2, 3, color.NRGBA{R: 255, A: 255})},
		"tex/bad.png": {Data: []byte("not an image")},
	}
	l := NewLoader(WithFS(fsys), WithWorkers(2), WithRetry(1, time.Millisecond))
	defer func() {
		go func() {
			for range l.Results() {
			}
		}()
		l.Close()
	}()

	require.NoError(t, l.LoadTexture("tex/red.png"))
	res := receive(t, l)
	require.NoError(t, res.Err)
	assert.Equal(t, ResultTexture, res.Kind)
	assert.Equal(t, "tex/red.png", res.Name)
	assert.Equal(t, uint32(2), res.Texture.Width)
	assert.Equal(t, uint32(3), res.Texture.Height)
	assert.Equal(t, []byte{255, 0, 0, 255}, res.Texture.Pixels[:4])

	cached, ok := l.Texture("tex/red.png")
	require.True(t, ok)
	assert.Equal(t, res.Texture, cached)

	require.NoError(t, l.LoadTexture("tex/bad.png"))
	res = receive(t, l)
	assert.Error(t, res.Err)

	require.NoError(t, l.LoadTexture("tex/missing.png"))
	res = receive(t, l)
	require.Error(t, res.Err)
	assert.ErrorIs(t, res.Err, fs.ErrNotExist)
}

type flakyBackend struct {
	failures atomic.Int32
	data     []byte
	opens    atomic.Int32
}

func (b *flakyBackend) Open(string) (io.ReadCloser, error) {
	b.opens.Add(1)
	if b.failures.Add(-1) >= 0 {
		return nil, errors.New("device busy")
	}
	return io.NopCloser(bytes.NewReader(b.data)), nil
}

func TestLoadTextureRetriesTransientFailures(t *testing.T) {
	b := &flakyBackend{data: encodePNG(t, 1, 1, color.NRGBA{G: 255, A: 255})}
	b.failures.Store(2)
	l := NewLoader(WithRetry(3, time.Millisecond))
	l.(*loader).backend = b

	require.NoError(t, l.LoadTexture("green.png"))
	res := receive(t, l)
	require.NoError(t, res.Err)
	assert.Equal(t, int32(3), b.opens.Load())
	l.Close()
}

func TestLoadTextureGivesUpAfterRetries(t *testing.T) {
	b := &flakyBackend{}
	b.failures.Store(100)
	l := NewLoader(WithRetry(2, time.Millisecond))
	l.(*loader).backend = b

	require.NoError(t, l.LoadTexture("busy.png"))
	res := receive(t, l)
	require.Error(t, res.Err)
	assert.Equal(t, int32(3), b.opens.Load())
	l.Close()
}

func TestLoadGeometry(t *testing.T) {
	l := NewLoader()

	require.NoError(t, l.LoadGeometry("box", func() (*model.Mesh, error) {
		return model.Box(1, 1, 1), nil
	}))
	res := receive(t, l)
	require.NoError(t, res.Err)
	assert.Equal(t, ResultGeometry, res.Kind)
	assert.Equal(t, 24, res.Mesh.VertexCount())

	require.NoError(t, l.LoadGeometry("broken", func() (*model.Mesh, error) {
		return &model.Mesh{Positions: []float32{0, 0, 0}}, nil
	}))
	res = receive(t, l)
	assert.Error(t, res.Err)
	assert.Nil(t, res.Mesh)

	require.NoError(t, l.LoadGeometry("nil", func() (*model.Mesh, error) { return nil, nil }))
	assert.Error(t, receive(t, l).Err)

	l.Close()
	_, open := <-l.Results()
	assert.False(t, open)
	assert.ErrorIs(t, l.LoadGeometry("late", nil), ErrClosed)
	assert.Zero(t, l.Pending())
}

func TestWithTexturePrepopulatesCache(t *testing.T) {
	l := NewLoader(WithFS(fstest.MapFS{}))
	_, ok := l.Texture("x.png")
	assert.False(t, ok)

	l = NewLoader(WithFS(fstest.MapFS{}), WithTexture("x.png", common.TextureStagingData{Pixels: []byte{1, 2, 3, 4}, Width: 1, Height: 1}))
	require.NoError(t, l.LoadTexture("x.png"))
	res := receive(t, l)
	require.NoError(t, res.Err)
	assert.Equal(t, uint32(1), res.Texture.Width)
	l.Close()
}
