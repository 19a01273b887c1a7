package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-graph/engine/gpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOverDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
[window]
width = 640
height = 480

[display]
backend = "soft"
transparent = true

[shaders]
validate = true
`))
	require.NoError(t, err)
	assert.Equal(t, 640, cfg.Window.Width)
	assert.Equal(t, "oxy-graph", cfg.Window.Title)
	assert.Equal(t, BackendSoft, cfg.Display.Backend)
	assert.True(t, cfg.Display.Transparent)
	assert.True(t, cfg.Shaders.Validate)
	assert.Equal(t, time.Second, cfg.Profiling.Interval())
	assert.Equal(t, 50*time.Millisecond, cfg.Loader.RetryInterval())
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown key", "[window]\nfullscreen = true\n"},
		{"bad backend", "[display]\nbackend = \"gl\"\n"},
		{"bad msaa", "[window]\nmsaa = 2\n"},
		{"zero size", "[window]\nwidth = 0\n"},
		{"clear color range", "[display]\nclear_color = [0.0, 2.0, 0.0, 1.0]\n"},
		{"zero workers", "[loader]\nworkers = 0\n"},
		{"syntax", "[window\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}

	_, err := Parse([]byte("[window]\nmsaa = 8\n"))
	assert.True(t, gpu.IsKind(err, gpu.KindConfiguration))
}

func TestDiff(t *testing.T) {
	a := Default()
	b := a
	assert.Empty(t, Diff(a, b))

	b.Display.Transparent = true
	b.Loader.Workers = 8
	assert.Equal(t, []Section{SectionDisplay, SectionLoader}, Diff(a, b))
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.toml")
	cfg := Default()
	cfg.Window.Title = "demo"
	cfg.Display.ClearColor = [4]float32{0.25, 0.5, 0.75, 1}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.toml")
	require.NoError(t, Default().Save(path))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	updates, err := Watch(ctx, path, Default())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.toml"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("[display]\ntransparent = true\n"), 0o644))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case u := <-updates:
			if u.Err != nil {
				continue
			}
			assert.Equal(t, []Section{SectionDisplay}, u.Changed)
			assert.True(t, u.Config.Display.Transparent)
			cancel()
			for range updates {
			}
			return
		case <-deadline:
			t.Fatal("no config update received")
		}
	}
}
