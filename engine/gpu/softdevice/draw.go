package softdevice

import (
	"math"

	"github.com/Carmen-Shannon/oxy-graph/common"
	"github.com/Carmen-Shannon/oxy-graph/engine/gpu"
	"github.com/Carmen-Shannon/oxy-graph/engine/renderer/pick"
	"github.com/chewxy/math32"
	"github.com/fogleman/fauxgl"
	"github.com/go-gl/mathgl/mgl32"
)

type uniforms struct {
	matrices [gpu.UniformCount]mgl32.Mat4
	vectors  [gpu.UniformCount]mgl32.Vec4
	scalars  [gpu.UniformCount]float32
	lights   []gpu.LightData
	clip     []mgl32.Vec4
}

func (u *uniforms) reset() {
	for i := range u.matrices {
		u.matrices[i] = mgl32.Ident4()
	}
	u.vectors[gpu.UniformBaseColor] = mgl32.Vec4{1, 1, 1, 1}
	u.scalars[gpu.UniformAlpha] = 1
}

// Draw rasterizes count indices of the bound geometry with the bound program variant.
// Points are not rasterized.
func (d *device) Draw(prim gpu.Primitive, count int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lost || d.ctx == nil {
		return
	}
	features, ok := d.programs[d.program]
	if !ok {
		common.Logger().Warn("soft device draw without a program", "program", d.program)
		return
	}
	verts, ok := d.vertexData(features)
	if !ok {
		common.Logger().Warn("soft device draw with missing buffers", "positions", d.geometry.Positions)
		return
	}
	idx := d.indices[d.geometry.Indices]
	if count > len(idx) {
		count = len(idx)
	}

	sh := d.shader(features)
	d.applyRaster(sh)

	vertex := func(i uint32) fauxgl.Vertex {
		if int(i) >= len(verts) {
			return fauxgl.Vertex{}
		}
		return verts[i]
	}

	switch prim {
	case gpu.PrimitiveTriangles:
		tris := make([]*fauxgl.Triangle, 0, count/3)
		for i := 0; i+2 < count; i += 3 {
			tris = append(tris, &fauxgl.Triangle{V1: vertex(idx[i]), V2: vertex(idx[i+1]), V3: vertex(idx[i+2])})
		}
		d.ctx.DrawTriangles(tris)
	case gpu.PrimitiveTriangleStrip:
		tris := make([]*fauxgl.Triangle, 0, count)
		for i := 0; i+2 < count; i++ {
			a, b := idx[i], idx[i+1]
			if i%2 == 1 {
				a, b = b, a
			}
			tris = append(tris, &fauxgl.Triangle{V1: vertex(a), V2: vertex(b), V3: vertex(idx[i+2])})
		}
		d.ctx.DrawTriangles(tris)
	case gpu.PrimitiveLines:
		for i := 0; i+1 < count; i += 2 {
			d.ctx.DrawLine(&fauxgl.Line{V1: vertex(idx[i]), V2: vertex(idx[i+1])})
		}
	case gpu.PrimitiveLineStrip:
		for i := 0; i+1 < count; i++ {
			d.ctx.DrawLine(&fauxgl.Line{V1: vertex(idx[i]), V2: vertex(idx[i+1])})
		}
	}
}

func (d *device) applyRaster(sh *shader) {
	r := d.raster
	ctx := d.ctx
	ctx.Shader = sh
	ctx.ReadDepth = r.Depth.Test && r.Depth.Func != gpu.DepthAlways
	ctx.WriteDepth = r.Depth.Write
	ctx.WriteColor = r.ColorMask[0] || r.ColorMask[1] || r.ColorMask[2] || r.ColorMask[3]
	ctx.AlphaBlend = r.Blend.Enabled && sh.pass == gpu.PassDraw
	ctx.LineWidth = float64(r.LineWidth)
	ctx.FrontFace = fauxgl.FaceCCW
	if r.FrontFace == gpu.FrontFaceCW {
		ctx.FrontFace = fauxgl.FaceCW
	}
	switch r.Cull {
	case gpu.CullFront:
		ctx.Cull = fauxgl.CullFront
	case gpu.CullBack:
		ctx.Cull = fauxgl.CullBack
	default:
		ctx.Cull = fauxgl.CullNone
	}
}

// vertexData assembles the bound vertex streams, blending towards the morph target when one is bound.
func (d *device) vertexData(f gpu.Features) ([]fauxgl.Vertex, bool) {
	positions, ok := d.vertices[d.geometry.Positions]
	if !ok {
		return nil, false
	}
	normals := d.vertices[d.geometry.Normals]
	uvs := d.vertices[d.geometry.UVs]
	colors := d.vertices[d.geometry.Colors]
	var morphPositions, morphNormals []float32
	factor := d.uniforms.scalars[gpu.UniformMorphFactor]
	if f.Morph {
		morphPositions = d.vertices[d.morph[0]]
		morphNormals = d.vertices[d.morph[1]]
	}

	n := len(positions) / 3
	out := make([]fauxgl.Vertex, n)
	for i := range out {
		p := vec3At(positions, i)
		if len(morphPositions) >= (i+1)*3 {
			p = lerp(p, vec3At(morphPositions, i), factor)
		}
		v := fauxgl.Vertex{
			Position: fauxgl.Vector{X: float64(p[0]), Y: float64(p[1]), Z: float64(p[2])},
			Normal:   fauxgl.Vector{Z: 1},
			Color:    fauxgl.White,
		}
		if f.Normals && len(normals) >= (i+1)*3 {
			nrm := vec3At(normals, i)
			if len(morphNormals) >= (i+1)*3 {
				nrm = lerp(nrm, vec3At(morphNormals, i), factor)
			}
			v.Normal = fauxgl.Vector{X: float64(nrm[0]), Y: float64(nrm[1]), Z: float64(nrm[2])}
		}
		if f.Texture && len(uvs) >= (i+1)*2 {
			v.Texture = fauxgl.Vector{X: float64(uvs[i*2]), Y: float64(uvs[i*2+1])}
		}
		if f.VertexColors && len(colors) >= (i+1)*4 {
			v.Color = fauxgl.Color{R: float64(colors[i*4]), G: float64(colors[i*4+1]), B: float64(colors[i*4+2]), A: float64(colors[i*4+3])}
		}
		out[i] = v
	}
	return out, true
}

func vec3At(data []float32, i int) mgl32.Vec3 {
	return mgl32.Vec3{data[i*3], data[i*3+1], data[i*3+2]}
}

func lerp(a, b mgl32.Vec3, t float32) mgl32.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}

// shader snapshots the bound uniforms for one draw.
func (d *device) shader(f gpu.Features) *shader {
	u := d.uniforms
	near, far := common.DepthRange(u.matrices[gpu.UniformProjMatrix])
	sh := &shader{
		features:  f,
		pass:      d.pass,
		model:     u.matrices[gpu.UniformModelMatrix],
		normal:    u.matrices[gpu.UniformNormalMatrix],
		view:      u.matrices[gpu.UniformViewMatrix],
		proj:      u.matrices[gpu.UniformProjMatrix],
		base:      u.vectors[gpu.UniformBaseColor],
		emissive:  u.vectors[gpu.UniformEmissive],
		specular:  u.vectors[gpu.UniformSpecular],
		eye:       u.vectors[gpu.UniformEye].Vec3(),
		pickColor: u.vectors[gpu.UniformPickColor],
		alpha:     u.scalars[gpu.UniformAlpha],
		near:      near,
		far:       far,
		lights:    u.lights,
		clip:      u.clip,
	}
	if f.Texture {
		if tex, ok := d.textures[d.bound[0]]; ok {
			sh.texture = &tex
		}
	}
	return sh
}

// shader is the fauxgl shader standing in for one program variant. Vertex stores the world
// position in Position and the view depth in Texture.Z so both are interpolated per fragment.
type shader struct {
	features gpu.Features
	pass     gpu.Pass

	model, normal, view, proj mgl32.Mat4

	base, emissive, specular mgl32.Vec4
	eye                      mgl32.Vec3
	pickColor                mgl32.Vec4
	alpha                    float32
	near, far                float32

	lights  []gpu.LightData
	clip    []mgl32.Vec4
	texture *common.TextureStagingData
}

func (s *shader) Vertex(v fauxgl.Vertex) fauxgl.Vertex {
	world := s.model.Mul4x1(mgl32.Vec4{float32(v.Position.X), float32(v.Position.Y), float32(v.Position.Z), 1})
	eye := s.view.Mul4x1(world)
	clip := s.proj.Mul4x1(eye)
	n := s.normal.Mul4x1(mgl32.Vec4{float32(v.Normal.X), float32(v.Normal.Y), float32(v.Normal.Z), 0}).Vec3()
	if n.Len() > 0 {
		n = n.Normalize()
	}
	v.Output = fauxgl.VectorW{X: float64(clip[0]), Y: float64(clip[1]), Z: float64(clip[2]), W: float64(clip[3])}
	v.Position = fauxgl.Vector{X: float64(world[0]), Y: float64(world[1]), Z: float64(world[2])}
	v.Normal = fauxgl.Vector{X: float64(n[0]), Y: float64(n[1]), Z: float64(n[2])}
	v.Texture.Z = float64(-eye[2])
	return v
}

func (s *shader) Fragment(v fauxgl.Vertex) fauxgl.Color {
	world := mgl32.Vec3{float32(v.Position.X), float32(v.Position.Y), float32(v.Position.Z)}
	for _, plane := range s.clip {
		if plane.Vec3().Dot(world)+plane[3] < 0 {
			return fauxgl.Discard
		}
	}
	switch s.pass {
	case gpu.PassPick:
		return exactColor(
			uint8(math.Round(float64(s.pickColor[0])*255)),
			uint8(math.Round(float64(s.pickColor[1])*255)),
			uint8(math.Round(float64(s.pickColor[2])*255)),
			255,
		)
	case gpu.PassRay:
		depth := (float32(v.Texture.Z) - s.near) / math32.Max(s.far-s.near, 1e-6)
		b := pick.PackDepth(float64(common.Clamp01(depth)))
		return exactColor(b[0], b[1], b[2], b[3])
	}
	return s.shade(v, world)
}

func (s *shader) shade(v fauxgl.Vertex, world mgl32.Vec3) fauxgl.Color {
	vc := mgl32.Vec4{float32(v.Color.R), float32(v.Color.G), float32(v.Color.B), float32(v.Color.A)}
	base := mgl32.Vec3{s.base[0] * vc[0], s.base[1] * vc[1], s.base[2] * vc[2]}
	if s.texture != nil {
		t := sample(s.texture, float32(v.Texture.X), float32(v.Texture.Y))
		base = mgl32.Vec3{base[0] * t[0], base[1] * t[1], base[2] * t[2]}
	}
	color := s.emissive.Vec3()
	if s.features.Lights > 0 {
		n := mgl32.Vec3{float32(v.Normal.X), float32(v.Normal.Y), float32(v.Normal.Z)}
		color = color.Add(s.light(world, n, base))
	} else {
		color = color.Add(base)
	}
	return fauxgl.Color{
		R: float64(common.Clamp01(color[0])),
		G: float64(common.Clamp01(color[1])),
		B: float64(common.Clamp01(color[2])),
		A: float64(common.Clamp01(s.alpha * vc[3])),
	}
}

// light evaluates the same ambient, directional, point and spot model as the draw program.
func (s *shader) light(world, normal, base mgl32.Vec3) mgl32.Vec3 {
	var total mgl32.Vec3
	if normal.Len() > 0 {
		normal = normal.Normalize()
	}
	toEye := s.eye.Sub(world)
	if toEye.Len() > 0 {
		toEye = toEye.Normalize()
	}
	for _, light := range s.lights {
		radiance := light.Color.Mul(common.Coalesce(light.Intensity, 1))
		if light.Type == gpu.LightAmbient {
			total = total.Add(mul3(radiance, base))
			continue
		}
		l := light.Direction.Mul(-1)
		attenuation := float32(1)
		if light.Type != gpu.LightDirectional {
			toLight := light.Position.Sub(world)
			dist := toLight.Len()
			l = toLight.Mul(1 / math32.Max(dist, 1e-4))
			if light.Range > 0 {
				attenuation = common.Clamp01(1 - dist/light.Range)
			}
			if light.Type == gpu.LightSpot && light.Direction.Len() > 0 {
				cos := l.Mul(-1).Dot(light.Direction.Normalize())
				attenuation *= smoothstep(math32.Cos(light.OuterCone), math32.Cos(light.InnerCone), cos)
			}
		}
		if l.Len() == 0 {
			continue
		}
		l = l.Normalize()
		diffuse := math32.Max(normal.Dot(l), 0)
		h := l.Add(toEye)
		var spec mgl32.Vec3
		if h.Len() > 0 {
			spec = s.specular.Vec3().Mul(math32.Pow(math32.Max(normal.Dot(h.Normalize()), 0), math32.Max(s.specular[3], 1)))
		}
		total = total.Add(mul3(radiance, base.Mul(diffuse).Add(spec)).Mul(attenuation))
	}
	return total
}

func mul3(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}

func smoothstep(edge0, edge1, x float32) float32 {
	if edge0 == edge1 {
		if x < edge0 {
			return 0
		}
		return 1
	}
	t := common.Clamp01((x - edge0) / (edge1 - edge0))
	return t * t * (3 - 2*t)
}

// sample reads the nearest texel with repeat wrapping. UV (0, 0) is the top-left texel.
func sample(t *common.TextureStagingData, u, v float32) mgl32.Vec4 {
	w, h := int(t.Width), int(t.Height)
	x := int(math32.Floor((u - math32.Floor(u)) * float32(w)))
	y := int(math32.Floor((v - math32.Floor(v)) * float32(h)))
	x = min(max(x, 0), w-1)
	y = min(max(y, 0), h-1)
	i := (y*w + x) * 4
	p := t.Pixels[i : i+4]
	return mgl32.Vec4{float32(p[0]) / 255, float32(p[1]) / 255, float32(p[2]) / 255, float32(p[3]) / 255}
}

// exactColor returns a color that fauxgl quantizes back to exactly the given bytes.
func exactColor(r, g, b, a uint8) fauxgl.Color {
	const quarter = 0.25
	return fauxgl.Color{
		R: (float64(r) + quarter) / 255,
		G: (float64(g) + quarter) / 255,
		B: (float64(b) + quarter) / 255,
		A: (float64(a) + quarter) / 255,
	}
}
