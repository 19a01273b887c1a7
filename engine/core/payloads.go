package core

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/Carmen-Shannon/oxy-graph/common"
	"github.com/Carmen-Shannon/oxy-graph/engine/gpu"
	"github.com/go-gl/mathgl/mgl32"
)

// Transform is a model matrix.
type Transform struct {
	Matrix mgl32.Mat4
	Normal mgl32.Mat4
}

func (*Transform) Category() Category { return CategoryTransform }
func (*Transform) hash() string       { return "" }
func (*Transform) empty() bool        { return false }

// NewTransform creates a transform core; the normal matrix is derived from m.
func NewTransform(m mgl32.Mat4) *Core {
	return New(&Transform{Matrix: m, Normal: common.NormalMatrix(m)})
}

// View is a view (world to eye) matrix.
type View struct {
	Matrix mgl32.Mat4
	Eye    mgl32.Vec3
}

func (*View) Category() Category { return CategoryView }
func (*View) hash() string       { return "" }
func (*View) empty() bool        { return false }

// NewView creates a view core.
func NewView(m mgl32.Mat4, eye mgl32.Vec3) *Core {
	return New(&View{Matrix: m, Eye: eye})
}

// Projection is a projection matrix.
type Projection struct {
	Matrix mgl32.Mat4
}

func (*Projection) Category() Category { return CategoryProjection }
func (*Projection) hash() string       { return "" }
func (*Projection) empty() bool        { return false }

// NewProjection creates a projection core.
func NewProjection(m mgl32.Mat4) *Core {
	return New(&Projection{Matrix: m})
}

// Material is the surface response of an object.
type Material struct {
	BaseColor mgl32.Vec3
	Specular  mgl32.Vec3
	Shininess float32
	Emissive  mgl32.Vec3
	Alpha     float32
}

func (*Material) Category() Category { return CategoryMaterial }
func (*Material) hash() string       { return "" }
func (*Material) empty() bool        { return false }

// NewMaterial creates a material core.
func NewMaterial(m Material) *Core {
	return New(&m)
}

// Texture is the ordered set of texture layers sampled by an object.
type Texture struct {
	Layers []gpu.TextureHandle
}

func (*Texture) Category() Category { return CategoryTexture }
func (t *Texture) hash() string {
	if len(t.Layers) == 0 {
		return ""
	}
	return fmt.Sprintf("tex%d", len(t.Layers))
}
func (t *Texture) empty() bool { return len(t.Layers) == 0 }

// NewTexture creates a texture core. Without layers the core is empty.
func NewTexture(layers ...gpu.TextureHandle) *Core {
	return New(&Texture{Layers: layers})
}

// Lights is the set of lights shading an object.
type Lights struct {
	Lights []gpu.LightData
}

func (*Lights) Category() Category { return CategoryLights }
func (l *Lights) hash() string {
	var b strings.Builder
	b.WriteString("lights:")
	for _, light := range l.Lights {
		switch light.Type {
		case gpu.LightAmbient:
			b.WriteByte('a')
		case gpu.LightDirectional:
			b.WriteByte('d')
		case gpu.LightPoint:
			b.WriteByte('p')
		case gpu.LightSpot:
			b.WriteByte('s')
		}
	}
	return b.String()
}
func (l *Lights) empty() bool { return len(l.Lights) == 0 }

// Ambient returns the summed color of the ambient lights in the set.
//
// Returns:
//   - mgl32.Vec3: the ambient color scaled by intensity
//   - bool: false if the set holds no ambient light
func (l *Lights) Ambient() (mgl32.Vec3, bool) {
	var sum mgl32.Vec3
	found := false
	for _, light := range l.Lights {
		if light.Type != gpu.LightAmbient {
			continue
		}
		intensity := light.Intensity
		if intensity == 0 {
			intensity = 1
		}
		sum = sum.Add(light.Color.Mul(intensity))
		found = true
	}
	return sum, found
}

// NewLights creates a lights core.
func NewLights(lights ...gpu.LightData) *Core {
	return New(&Lights{Lights: lights})
}

// Clip is a set of world-space clipping planes. A fragment is kept when ax+by+cz+d >= 0 for every plane.
type Clip struct {
	Planes []mgl32.Vec4
}

func (*Clip) Category() Category { return CategoryClip }
func (c *Clip) hash() string {
	if len(c.Planes) == 0 {
		return ""
	}
	return fmt.Sprintf("clip%d", len(c.Planes))
}
func (c *Clip) empty() bool { return len(c.Planes) == 0 }

// NewClip creates a clip core.
func NewClip(planes ...mgl32.Vec4) *Core {
	return New(&Clip{Planes: planes})
}

// MorphGeometry blends the bound geometry towards a second keyframe.
type MorphGeometry struct {
	Positions gpu.BufferHandle
	Normals   gpu.BufferHandle
	Factor    float32
}

func (*MorphGeometry) Category() Category { return CategoryMorphGeometry }
func (m *MorphGeometry) hash() string {
	if m.Positions == 0 {
		return ""
	}
	if m.Normals != 0 {
		return "morphN"
	}
	return "morph"
}
func (m *MorphGeometry) empty() bool { return m.Positions == 0 }

// NewMorphGeometry creates a morph core.
func NewMorphGeometry(m MorphGeometry) *Core {
	return New(&m)
}

// Flags are the per-object switches read by the scheduler and the flags chunk.
type Flags struct {
	Enabled     bool
	Pickable    bool
	Transparent bool
	Backfaces   bool
	FrontFace   string
}

func (*Flags) Category() Category { return CategoryFlags }
func (*Flags) hash() string       { return "" }
func (*Flags) empty() bool        { return false }

// NewFlags creates a flags core.
func NewFlags(f Flags) *Core {
	return New(&f)
}

// DefaultFlags returns enabled, pickable, opaque, double-sided flags.
func DefaultFlags() Flags {
	return Flags{Enabled: true, Pickable: true, Backfaces: true, FrontFace: "ccw"}
}

// Layer orders objects into render bins. Lower priorities draw first.
type Layer struct {
	Priority int
	Enabled  bool
}

func (*Layer) Category() Category { return CategoryLayer }
func (*Layer) hash() string       { return "" }
func (*Layer) empty() bool        { return false }

// NewLayer creates a layer core.
func NewLayer(priority int, enabled bool) *Core {
	return New(&Layer{Priority: priority, Enabled: enabled})
}

// Tag is a name objects can be filtered by. The match result against the active filter is
// cached on the tag and recomputed only when the filter mask changes.
type Tag struct {
	Name string

	mask    uint64
	matched bool
}

func (*Tag) Category() Category { return CategoryTag }
func (*Tag) hash() string       { return "" }
func (t *Tag) empty() bool      { return t.Name == "" }

// Match reports whether the tag matches re, reusing the cached result while mask is unchanged.
// Masks start at 1; 0 never hits the cache.
//
// Parameters:
//   - re: the active tag filter
//   - mask: the filter generation
//
// Returns:
//   - bool: true if the tag name matches
func (t *Tag) Match(re *regexp.Regexp, mask uint64) bool {
	if t.mask != mask || mask == 0 {
		t.mask = mask
		t.matched = re.MatchString(t.Name)
	}
	return t.matched
}

// NewTag creates a tag core.
func NewTag(name string) *Core {
	return New(&Tag{Name: name})
}

// Shader injects a custom WGSL snippet into the draw variant. The snippet must define
// `fn shade_custom(color: vec4<f32>) -> vec4<f32>` and may read the declared params.
type Shader struct {
	Name    string
	Snippet string
	Params  []string
}

func (*Shader) Category() Category { return CategoryShader }
func (s *Shader) hash() string {
	if s.Snippet == "" {
		return ""
	}
	return "shader:" + s.Name
}
func (s *Shader) empty() bool { return s.Snippet == "" }

// NewShader creates a shader core.
func NewShader(name, snippet string, params ...string) *Core {
	return New(&Shader{Name: name, Snippet: snippet, Params: params})
}

// ShaderParams are values for custom shader params.
type ShaderParams struct {
	Params map[string][]float32
}

func (*ShaderParams) Category() Category { return CategoryShaderParams }
func (*ShaderParams) hash() string       { return "" }
func (p *ShaderParams) empty() bool      { return len(p.Params) == 0 }

// Names returns the param names in sorted order.
func (p *ShaderParams) Names() []string {
	names := make([]string, 0, len(p.Params))
	for n := range p.Params {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NewShaderParams creates a shader params core.
func NewShaderParams(params map[string][]float32) *Core {
	return New(&ShaderParams{Params: params})
}

// Renderer is program-global raster state authored with string enums. The enums are
// translated when a chunk is built for the core.
type Renderer struct {
	DepthTest bool
	DepthFunc string
	Blend     bool
	BlendSrc  string
	BlendDst  string
	LineWidth float32
}

func (*Renderer) Category() Category { return CategoryRenderer }
func (*Renderer) hash() string       { return "" }
func (*Renderer) empty() bool        { return false }

// NewRenderer creates a renderer core.
func NewRenderer(r Renderer) *Core {
	return New(&r)
}

// DefaultRenderer returns depth-tested, unblended state.
func DefaultRenderer() Renderer {
	return Renderer{DepthTest: true, DepthFunc: "less", BlendSrc: "srcAlpha", BlendDst: "oneMinusSrcAlpha", LineWidth: 1}
}

// Framebuffer controls which buffers an object writes.
type Framebuffer struct {
	ColorMask  [4]bool
	DepthWrite bool
}

func (*Framebuffer) Category() Category { return CategoryFramebuffer }
func (*Framebuffer) hash() string       { return "" }
func (*Framebuffer) empty() bool        { return false }

// NewFramebuffer creates a framebuffer core.
func NewFramebuffer(f Framebuffer) *Core {
	return New(&f)
}

// Name identifies an object for picking.
type Name struct {
	Name   string
	Path   string
	NodeID string
}

func (*Name) Category() Category { return CategoryName }
func (*Name) hash() string       { return "" }
func (*Name) empty() bool        { return false }

// NewName creates a name core.
func NewName(name, path, nodeID string) *Core {
	return New(&Name{Name: name, Path: path, NodeID: nodeID})
}

// RenderEvent is delivered to render listeners when their chunk runs.
type RenderEvent struct {
	Pass  gpu.Pass
	View  mgl32.Mat4
	Proj  mgl32.Mat4
	Model mgl32.Mat4
}

// RenderListener observes the rendering of the objects it is attached to.
type RenderListener func(RenderEvent)

// Listeners are render listeners fired during the draw pass.
type Listeners struct {
	Funcs []RenderListener
}

func (*Listeners) Category() Category { return CategoryListeners }
func (*Listeners) hash() string       { return "" }
func (l *Listeners) empty() bool      { return len(l.Funcs) == 0 }

// NewListeners creates a listeners core.
func NewListeners(funcs ...RenderListener) *Core {
	return New(&Listeners{Funcs: funcs})
}

// Geometry is the buffer set an object draws.
type Geometry struct {
	Primitive  string
	Positions  gpu.BufferHandle
	Normals    gpu.BufferHandle
	UVs        gpu.BufferHandle
	Colors     gpu.BufferHandle
	Indices    gpu.BufferHandle
	IndexCount int
}

func (*Geometry) Category() Category { return CategoryGeometry }
func (g *Geometry) hash() string {
	if g.empty() {
		return ""
	}
	var b strings.Builder
	b.WriteString("geo:")
	if g.Normals != 0 {
		b.WriteByte('n')
	}
	if g.UVs != 0 {
		b.WriteByte('u')
	}
	if g.Colors != 0 {
		b.WriteByte('c')
	}
	return b.String()
}
func (g *Geometry) empty() bool { return g.Positions == 0 || g.IndexCount == 0 }

// Binding returns the buffers of g as a device binding.
func (g *Geometry) Binding() gpu.GeometryBinding {
	return gpu.GeometryBinding{
		Positions:  g.Positions,
		Normals:    g.Normals,
		UVs:        g.UVs,
		Colors:     g.Colors,
		Indices:    g.Indices,
		IndexCount: g.IndexCount,
	}
}

// NewGeometry creates a geometry core. A geometry without positions or indices is empty.
func NewGeometry(g Geometry) *Core {
	return New(&g)
}
