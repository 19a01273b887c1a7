package program

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-graph/engine/gpu"
)

//go:embed assets/uniforms.wgsl
var uniformsSource string

//go:embed assets/lights.wgsl
var lightsSource string

//go:embed assets/vertex.wgsl
var vertexSource string

//go:embed assets/clip.wgsl
var clipSource string

//go:embed assets/shade.wgsl
var shadeSource string

//go:embed assets/draw.wgsl
var drawTemplate string

//go:embed assets/pick.wgsl
var pickTemplate string

//go:embed assets/ray.wgsl
var rayTemplate string

// maxIncludeDepth bounds nested includes so a snippet that includes itself fails instead of recursing forever.
const maxIncludeDepth = 8

// sourceEntry is a generated source shared by every program compiled from the same hash.
type sourceEntry struct {
	src  gpu.ProgramSource
	refs int
}

// sourceFactory is the implementation of the SourceFactory interface.
type sourceFactory struct {
	mu *sync.Mutex

	// snippets maps include names to WGSL text.
	snippets map[string]string

	draw, pick, ray string

	entries map[string]*sourceEntry
}

// SourceFactory generates the WGSL modules of the draw, pick and ray program variants from a
// feature set and shares the result between all acquirers of the same hash.
type SourceFactory interface {
	// Acquire returns the source for hash, generating it from f on first use.
	// Every successful Acquire must be paired with a Release.
	//
	// Parameters:
	//   - hash: the shader selection hash
	//   - f: the features the source is generated for
	//
	// Returns:
	//   - gpu.ProgramSource: the generated source
	//   - error: an error if a template or snippet is malformed
	Acquire(hash string, f gpu.Features) (gpu.ProgramSource, error)

	// Release drops one reference to the source of hash. The source is forgotten at zero.
	//
	// Parameters:
	//   - hash: the shader selection hash
	Release(hash string)

	// Len returns the number of sources currently shared.
	//
	// Returns:
	//   - int: the number of live sources
	Len() int
}

var _ SourceFactory = &sourceFactory{}

// NewSourceFactory creates a SourceFactory with the built-in snippets and templates.
//
// Returns:
//   - SourceFactory: the factory
func NewSourceFactory() SourceFactory {
	return &sourceFactory{
		mu: &sync.Mutex{},
		snippets: map[string]string{
			"uniforms": uniformsSource,
			"lights":   lightsSource,
			"vertex":   vertexSource,
			"clip":     clipSource,
			"shade":    shadeSource,
		},
		draw:    drawTemplate,
		pick:    pickTemplate,
		ray:     rayTemplate,
		entries: make(map[string]*sourceEntry),
	}
}

func (s *sourceFactory) Acquire(hash string, f gpu.Features) (gpu.ProgramSource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[hash]; ok {
		e.refs++
		return e.src, nil
	}

	src := gpu.ProgramSource{Hash: hash, Features: f}
	var err error
	if src.Draw, err = s.process(s.draw, f, 0); err != nil {
		return gpu.ProgramSource{}, fmt.Errorf("failed to generate draw variant: %w", err)
	}
	if src.Pick, err = s.process(s.pick, f, 0); err != nil {
		return gpu.ProgramSource{}, fmt.Errorf("failed to generate pick variant: %w", err)
	}
	if src.Ray, err = s.process(s.ray, f, 0); err != nil {
		return gpu.ProgramSource{}, fmt.Errorf("failed to generate ray variant: %w", err)
	}

	s.entries[hash] = &sourceEntry{src: src, refs: 1}
	return src, nil
}

func (s *sourceFactory) Release(hash string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[hash]
	if !ok {
		return
	}
	e.refs--
	if e.refs <= 0 {
		delete(s.entries, hash)
	}
}

func (s *sourceFactory) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// condition is one level of the if/else stack.
type condition struct {
	parent bool
	value  bool
	inElse bool
}

// process expands directives in source for the feature set f.
func (s *sourceFactory) process(source string, f gpu.Features, depth int) (string, error) {
	if depth > maxIncludeDepth {
		return "", fmt.Errorf("includes nested deeper than %d", maxIncludeDepth)
	}

	lines := strings.Split(strings.TrimRight(source, "\n"), "\n")
	out := make([]string, 0, len(lines))
	var stack []condition
	active := true

	for i, line := range lines {
		d, err := parseDirective(line, i+1)
		if err != nil {
			return "", err
		}
		if d == nil {
			if active {
				out = append(out, line)
			}
			continue
		}

		switch d.Type {
		case directiveIf:
			value := featureEnabled(f, d.Args[0])
			stack = append(stack, condition{parent: active, value: value})
			active = active && value
		case directiveElse:
			if len(stack) == 0 || stack[len(stack)-1].inElse {
				return "", fmt.Errorf("line %d: @oxy else without matching if", d.Line)
			}
			top := &stack[len(stack)-1]
			top.inElse = true
			active = top.parent && !top.value
		case directiveEnd:
			if len(stack) == 0 {
				return "", fmt.Errorf("line %d: @oxy end without matching if", d.Line)
			}
			active = stack[len(stack)-1].parent
			stack = stack[:len(stack)-1]
		case directiveInclude:
			if !active {
				continue
			}
			snippet, ok := s.snippets[d.Args[0]]
			if !ok {
				return "", fmt.Errorf("line %d: unknown snippet %q", d.Line, d.Args[0])
			}
			expanded, err := s.process(snippet, f, depth+1)
			if err != nil {
				return "", fmt.Errorf("snippet %q: %w", d.Args[0], err)
			}
			out = append(out, expanded)
		case directiveConst:
			if !active {
				continue
			}
			out = append(out, fmt.Sprintf("const %s: u32 = %du;", d.Args[0], featureCount(f, d.Args[1])))
		case directiveCustom:
			if !active {
				continue
			}
			out = append(out, customSource(f))
		}
	}
	if len(stack) != 0 {
		return "", fmt.Errorf("%d unterminated @oxy if block(s)", len(stack))
	}
	return strings.Join(out, "\n") + "\n", nil
}

func featureEnabled(f gpu.Features, name string) bool {
	switch name {
	case featureNormals:
		return f.Normals
	case featureTexture:
		return f.Texture
	case featureVertexColors:
		return f.VertexColors
	case featureMorph:
		return f.Morph
	case featureMorphNormals:
		return f.Morph && f.MorphNormals
	case featureLights:
		return f.Lights > 0
	case featureClip:
		return f.ClipPlanes > 0
	case featureCustom:
		return f.Custom != ""
	}
	return false
}

func featureCount(f gpu.Features, name string) int {
	switch name {
	case featureLights:
		return f.Lights
	case featureClip:
		return f.ClipPlanes
	}
	return 0
}

// MaxCustomParams is the number of vec4 slots available to custom shader params.
const MaxCustomParams = 8

// customSource emits one accessor per declared param followed by the custom snippet.
func customSource(f gpu.Features) string {
	var b strings.Builder
	for i, name := range f.CustomParams {
		if i >= MaxCustomParams {
			break
		}
		fmt.Fprintf(&b, "fn param_%s() -> vec4<f32> {\n    return u.custom[%d];\n}\n\n", name, i)
	}
	b.WriteString(f.Custom)
	return b.String()
}

// numbered prefixes every line of src with its 1-based line number.
func numbered(src string) string {
	lines := strings.Split(src, "\n")
	var b strings.Builder
	for i, line := range lines {
		fmt.Fprintf(&b, "%4d: %s\n", i+1, line)
	}
	return b.String()
}
