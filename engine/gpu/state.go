package gpu

// Primitive is the topology a geometry chunk draws with.
type Primitive int

const (
	PrimitivePoints Primitive = iota
	PrimitiveLines
	PrimitiveLineStrip
	PrimitiveTriangles
	PrimitiveTriangleStrip
)

var primitiveNames = map[string]Primitive{
	"points":         PrimitivePoints,
	"lines":          PrimitiveLines,
	"line-strip":     PrimitiveLineStrip,
	"triangles":      PrimitiveTriangles,
	"triangle-strip": PrimitiveTriangleStrip,
}

// ParsePrimitive translates an authoring primitive name. Names the GPU cannot draw
// (for example "triangle-fan" or "line-loop") are configuration errors.
//
// Parameters:
//   - name: the authoring primitive name
//
// Returns:
//   - Primitive: the translated topology
//   - error: a KindConfiguration error for unsupported names
func ParsePrimitive(name string) (Primitive, error) {
	p, ok := primitiveNames[name]
	if !ok {
		return 0, ConfigError("translate primitive", "unsupported primitive %q", name)
	}
	return p, nil
}

// BlendFactor is a blend equation operand.
type BlendFactor int

const (
	BlendZero BlendFactor = iota
	BlendOne
	BlendSrcColor
	BlendOneMinusSrcColor
	BlendSrcAlpha
	BlendOneMinusSrcAlpha
	BlendDstColor
	BlendOneMinusDstColor
	BlendDstAlpha
	BlendOneMinusDstAlpha
)

var blendFactorNames = map[string]BlendFactor{
	"zero":             BlendZero,
	"one":              BlendOne,
	"srcColor":         BlendSrcColor,
	"oneMinusSrcColor": BlendOneMinusSrcColor,
	"srcAlpha":         BlendSrcAlpha,
	"oneMinusSrcAlpha": BlendOneMinusSrcAlpha,
	"dstColor":         BlendDstColor,
	"oneMinusDstColor": BlendOneMinusDstColor,
	"dstAlpha":         BlendDstAlpha,
	"oneMinusDstAlpha": BlendOneMinusDstAlpha,
}

// ParseBlendFactor translates an authoring blend factor name.
//
// Parameters:
//   - name: the authoring blend factor name (e.g. "srcAlpha")
//
// Returns:
//   - BlendFactor: the translated factor
//   - error: a KindConfiguration error for unsupported names
func ParseBlendFactor(name string) (BlendFactor, error) {
	f, ok := blendFactorNames[name]
	if !ok {
		return 0, ConfigError("translate blend factor", "unsupported blend factor %q", name)
	}
	return f, nil
}

// DepthFunc is the depth comparison function.
type DepthFunc int

const (
	DepthLess DepthFunc = iota
	DepthNever
	DepthEqual
	DepthLessEqual
	DepthGreater
	DepthNotEqual
	DepthGreaterEqual
	DepthAlways
)

var depthFuncNames = map[string]DepthFunc{
	"never":    DepthNever,
	"less":     DepthLess,
	"equal":    DepthEqual,
	"lequal":   DepthLessEqual,
	"greater":  DepthGreater,
	"notequal": DepthNotEqual,
	"gequal":   DepthGreaterEqual,
	"always":   DepthAlways,
}

// ParseDepthFunc translates an authoring depth function name.
//
// Parameters:
//   - name: the authoring depth function name (e.g. "lequal")
//
// Returns:
//   - DepthFunc: the translated function
//   - error: a KindConfiguration error for unsupported names
func ParseDepthFunc(name string) (DepthFunc, error) {
	f, ok := depthFuncNames[name]
	if !ok {
		return 0, ConfigError("translate depth function", "unsupported depth function %q", name)
	}
	return f, nil
}

// CullMode selects which faces are discarded.
type CullMode int

const (
	CullNone CullMode = iota
	CullFront
	CullBack
)

// ParseCullMode translates an authoring cull mode name.
//
// Parameters:
//   - name: "none", "front" or "back"
//
// Returns:
//   - CullMode: the translated mode
//   - error: a KindConfiguration error for unsupported names
func ParseCullMode(name string) (CullMode, error) {
	switch name {
	case "none", "":
		return CullNone, nil
	case "front":
		return CullFront, nil
	case "back":
		return CullBack, nil
	}
	return 0, ConfigError("translate cull mode", "unsupported cull mode %q", name)
}

// FrontFace is the winding order considered front facing.
type FrontFace int

const (
	FrontFaceCCW FrontFace = iota
	FrontFaceCW
)

// ParseFrontFace translates an authoring winding name.
//
// Parameters:
//   - name: "ccw" or "cw"
//
// Returns:
//   - FrontFace: the translated winding
//   - error: a KindConfiguration error for unsupported names
func ParseFrontFace(name string) (FrontFace, error) {
	switch name {
	case "ccw", "":
		return FrontFaceCCW, nil
	case "cw":
		return FrontFaceCW, nil
	}
	return 0, ConfigError("translate front face", "unsupported front face %q", name)
}

// BlendState configures color blending.
type BlendState struct {
	Enabled bool
	Src     BlendFactor
	Dst     BlendFactor
}

// DefaultBlend is the state the transparent pass enables: classic source-over.
var DefaultBlend = BlendState{Enabled: true, Src: BlendSrcAlpha, Dst: BlendOneMinusSrcAlpha}

// DepthState configures depth testing and writes.
type DepthState struct {
	Test  bool
	Func  DepthFunc
	Write bool
}

// DefaultDepth is the depth state every pass starts with.
var DefaultDepth = DepthState{Test: true, Func: DepthLess, Write: true}

// RasterState is the full set of fixed-function state a pass starts from.
type RasterState struct {
	Blend     BlendState
	Depth     DepthState
	Cull      CullMode
	FrontFace FrontFace
	ColorMask [4]bool
	LineWidth float32
}

// DefaultRasterState returns the state applied at the start of every pass.
//
// Returns:
//   - RasterState: blending off, depth less with writes, no culling, CCW, full color mask
func DefaultRasterState() RasterState {
	return RasterState{
		Depth:     DefaultDepth,
		Cull:      CullNone,
		FrontFace: FrontFaceCCW,
		ColorMask: [4]bool{true, true, true, true},
		LineWidth: 1,
	}
}
