// Package config loads engine settings from a TOML file and watches it for changes.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Carmen-Shannon/oxy-graph/engine/gpu"
	"github.com/pelletier/go-toml/v2"
)

// Backend selects the device implementation.
type Backend string

const (
	// BackendWGPU renders through WebGPU into a window surface.
	BackendWGPU Backend = "wgpu"

	// BackendSoft renders on the CPU without a window.
	BackendSoft Backend = "soft"
)

// Section names one table of the config file.
type Section string

const (
	SectionWindow    Section = "window"
	SectionDisplay   Section = "display"
	SectionProfiling Section = "profiling"
	SectionLoader    Section = "loader"
	SectionShaders   Section = "shaders"
)

// Window configures the window and its surface.
type Window struct {
	Title  string `toml:"title"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
	VSync  bool   `toml:"vsync"`
	MSAA   int    `toml:"msaa"`
}

// Display configures the render graph display.
type Display struct {
	Backend     Backend    `toml:"backend"`
	Transparent bool       `toml:"transparent"`
	ClearColor  [4]float32 `toml:"clear_color"`
}

// Profiling configures the periodic profiler log line.
type Profiling struct {
	Enabled    bool `toml:"enabled"`
	IntervalMs int  `toml:"interval_ms"`
}

// Interval returns the report interval.
func (p Profiling) Interval() time.Duration {
	return time.Duration(p.IntervalMs) * time.Millisecond
}

// Loader configures the asynchronous resource loader.
type Loader struct {
	Workers         int    `toml:"workers"`
	Retries         uint64 `toml:"retries"`
	RetryIntervalMs int    `toml:"retry_interval_ms"`
}

// RetryInterval returns the first backoff interval.
func (l Loader) RetryInterval() time.Duration {
	return time.Duration(l.RetryIntervalMs) * time.Millisecond
}

// Shaders configures program generation.
type Shaders struct {
	Validate bool `toml:"validate"`
}

// Config is the complete engine configuration.
type Config struct {
	Window    Window    `toml:"window"`
	Display   Display   `toml:"display"`
	Profiling Profiling `toml:"profiling"`
	Loader    Loader    `toml:"loader"`
	Shaders   Shaders   `toml:"shaders"`
}

// Default returns the configuration used for settings a file leaves out.
//
// Returns:
//   - Config: the defaults
func Default() Config {
	return Config{
		Window: Window{
			Title:  "oxy-graph",
			Width:  1280,
			Height: 720,
			VSync:  true,
			MSAA:   1,
		},
		Display: Display{
			Backend:    BackendWGPU,
			ClearColor: [4]float32{0, 0, 0, 1},
		},
		Profiling: Profiling{IntervalMs: 1000},
		Loader: Loader{
			Workers:         2,
			Retries:         3,
			RetryIntervalMs: 50,
		},
	}
}

// Parse decodes TOML over the defaults. Unknown keys are rejected.
//
// Parameters:
//   - data: the TOML document
//
// Returns:
//   - Config: the decoded configuration
//   - error: a decode or validation error
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return Config{}, fmt.Errorf("failed to decode config: %s", strict.String())
		}
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads and parses a config file.
//
// Parameters:
//   - path: the file path
//
// Returns:
//   - Config: the decoded configuration
//   - error: a read, decode or validation error
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration as TOML.
//
// Parameters:
//   - path: the file path
//
// Returns:
//   - error: an encode or write error
func (c Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	return nil
}

// Validate checks value ranges.
//
// Returns:
//   - error: a KindConfiguration error for the first invalid value
func (c Config) Validate() error {
	const op = "validate config"
	switch {
	case c.Window.Width <= 0 || c.Window.Height <= 0:
		return gpu.ConfigError(op, "window size %dx%d must be positive", c.Window.Width, c.Window.Height)
	case c.Window.MSAA != 1 && c.Window.MSAA != 4:
		return gpu.ConfigError(op, "msaa must be 1 or 4, got %d", c.Window.MSAA)
	case c.Display.Backend != BackendWGPU && c.Display.Backend != BackendSoft:
		return gpu.ConfigError(op, "unknown backend %q", c.Display.Backend)
	case c.Profiling.IntervalMs <= 0:
		return gpu.ConfigError(op, "profiling interval must be positive")
	case c.Loader.Workers <= 0:
		return gpu.ConfigError(op, "loader workers must be positive")
	}
	for _, v := range c.Display.ClearColor {
		if v < 0 || v > 1 {
			return gpu.ConfigError(op, "clear color component %v out of [0, 1]", v)
		}
	}
	return nil
}

// Diff returns the sections whose values differ between two configurations.
//
// Parameters:
//   - old: the previous configuration
//   - next: the new configuration
//
// Returns:
//   - []Section: the changed sections in file order
func Diff(old, next Config) []Section {
	var changed []Section
	if old.Window != next.Window {
		changed = append(changed, SectionWindow)
	}
	if old.Display != next.Display {
		changed = append(changed, SectionDisplay)
	}
	if old.Profiling != next.Profiling {
		changed = append(changed, SectionProfiling)
	}
	if old.Loader != next.Loader {
		changed = append(changed, SectionLoader)
	}
	if old.Shaders != next.Shaders {
		changed = append(changed, SectionShaders)
	}
	return changed
}
