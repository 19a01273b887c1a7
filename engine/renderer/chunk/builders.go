package chunk

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-graph/common"
	"github.com/Carmen-Shannon/oxy-graph/engine/core"
	"github.com/Carmen-Shannon/oxy-graph/engine/gpu"
	"github.com/Carmen-Shannon/oxy-graph/engine/renderer/pick"
)

// builder fills the draw and pick closures of a chunk. Enum translation happens here so a
// bad authoring value surfaces when the object is built, never mid-frame.
type builder func(c *Chunk, p core.Payload) error

var builders = [typeCount]builder{
	TypeProgram:        buildProgram,
	TypeModelTransform: buildModelTransform,
	TypeViewTransform:  buildViewTransform,
	TypeProjection:     buildProjection,
	TypeFlags:          buildFlags,
	TypeShader:         buildShader,
	TypeShaderParams:   buildShaderParams,
	TypeName:           buildName,
	TypeLights:         buildLights,
	TypeMaterial:       buildMaterial,
	TypeTexture:        buildTexture,
	TypeFramebuffer:    buildFramebuffer,
	TypeClip:           buildClip,
	TypeMorphGeometry:  buildMorphGeometry,
	TypeListeners:      buildListeners,
	TypeGeometry:       buildGeometry,
	TypeRenderer:       buildRenderer,
}

// build resolves the payload a chunk applies and runs the type's builder.
func build(c *Chunk) error {
	var payload core.Payload
	if cat, ok := c.Type.Category(); ok {
		src := c.Core
		if src == nil {
			src = core.Default(cat)
		}
		if src.Category() != cat {
			return gpu.ConfigError("build "+c.Type.String()+" chunk", "core category %s does not match", src.Category())
		}
		payload = src.Payload
	}
	c.draw, c.pick = nil, nil
	return builders[c.Type](c, payload)
}

func payloadError(t Type, p core.Payload) error {
	return fmt.Errorf("build %s chunk: unexpected payload %T", t, p)
}

func buildProgram(c *Chunk, _ core.Payload) error {
	prog := c.Program
	c.draw = func(f *Frame) {
		f.Device.UseProgram(prog.Handle, gpu.PassDraw)
	}
	c.pick = func(f *Frame) {
		f.Device.UseProgram(prog.Handle, f.Pass)
	}
	return nil
}

func buildModelTransform(c *Chunk, p core.Payload) error {
	t, ok := p.(*core.Transform)
	if !ok {
		return payloadError(c.Type, p)
	}
	apply := func(f *Frame) {
		f.Model = t.Matrix
		f.Device.SetMatrix(gpu.UniformModelMatrix, t.Matrix)
		f.Device.SetMatrix(gpu.UniformNormalMatrix, t.Normal)
	}
	c.draw, c.pick = apply, apply
	return nil
}

func buildViewTransform(c *Chunk, p core.Payload) error {
	v, ok := p.(*core.View)
	if !ok {
		return payloadError(c.Type, p)
	}
	apply := func(f *Frame) {
		f.View = v.Matrix
		f.Device.SetMatrix(gpu.UniformViewMatrix, v.Matrix)
		f.Device.SetVector(gpu.UniformEye, v.Eye.Vec4(1))
	}
	c.draw, c.pick = apply, apply
	return nil
}

func buildProjection(c *Chunk, p core.Payload) error {
	proj, ok := p.(*core.Projection)
	if !ok {
		return payloadError(c.Type, p)
	}
	apply := func(f *Frame) {
		f.Proj = proj.Matrix
		f.Device.SetMatrix(gpu.UniformProjMatrix, proj.Matrix)
	}
	c.draw, c.pick = apply, apply
	return nil
}

func buildFlags(c *Chunk, p core.Payload) error {
	fl, ok := p.(*core.Flags)
	if !ok {
		return payloadError(c.Type, p)
	}
	front, err := gpu.ParseFrontFace(fl.FrontFace)
	if err != nil {
		return err
	}
	cull := gpu.CullBack
	if fl.Backfaces {
		cull = gpu.CullNone
	}
	apply := func(f *Frame) {
		f.Raster.Cull = cull
		f.Raster.FrontFace = front
		f.Device.SetCullMode(cull)
		f.Device.SetFrontFace(front)
	}
	c.draw, c.pick = apply, apply
	return nil
}

func buildShader(c *Chunk, p core.Payload) error {
	s, ok := p.(*core.Shader)
	if !ok {
		return payloadError(c.Type, p)
	}
	params := s.Params
	c.draw = func(f *Frame) {
		for _, name := range params {
			f.Device.SetShaderParam(name, []float32{0, 0, 0, 0})
		}
	}
	return nil
}

func buildShaderParams(c *Chunk, p core.Payload) error {
	sp, ok := p.(*core.ShaderParams)
	if !ok {
		return payloadError(c.Type, p)
	}
	names := sp.Names()
	c.draw = func(f *Frame) {
		for _, name := range names {
			f.Device.SetShaderParam(name, sp.Params[name])
		}
	}
	return nil
}

func buildName(c *Chunk, p core.Payload) error {
	n, ok := p.(*core.Name)
	if !ok {
		return payloadError(c.Type, p)
	}
	named := n.Name != "" || n.Path != "" || n.NodeID != ""
	c.pick = func(f *Frame) {
		if f.Pass != gpu.PassPick {
			return
		}
		f.PickIndex++
		var entry *pick.Name
		if named {
			entry = &pick.Name{Name: n.Name, Path: n.Path, NodeID: n.NodeID, View: f.View, Proj: f.Proj}
		}
		f.PickNames = append(f.PickNames, entry)
		f.Device.SetVector(gpu.UniformPickColor, pick.Color(f.PickIndex))
	}
	return nil
}

func buildLights(c *Chunk, p core.Payload) error {
	l, ok := p.(*core.Lights)
	if !ok {
		return payloadError(c.Type, p)
	}
	c.draw = func(f *Frame) {
		f.Device.SetLights(l.Lights)
	}
	return nil
}

func buildMaterial(c *Chunk, p core.Payload) error {
	m, ok := p.(*core.Material)
	if !ok {
		return payloadError(c.Type, p)
	}
	c.draw = func(f *Frame) {
		f.Device.SetVector(gpu.UniformBaseColor, m.BaseColor.Vec4(m.Alpha))
		f.Device.SetVector(gpu.UniformEmissive, m.Emissive.Vec4(0))
		f.Device.SetVector(gpu.UniformSpecular, m.Specular.Vec4(m.Shininess))
		f.Device.SetScalar(gpu.UniformAlpha, m.Alpha)
	}
	return nil
}

func buildTexture(c *Chunk, p core.Payload) error {
	t, ok := p.(*core.Texture)
	if !ok {
		return payloadError(c.Type, p)
	}
	c.draw = func(f *Frame) {
		for i, layer := range t.Layers {
			f.Device.BindTexture(i, layer)
		}
	}
	return nil
}

func buildFramebuffer(c *Chunk, p core.Payload) error {
	fb, ok := p.(*core.Framebuffer)
	if !ok {
		return payloadError(c.Type, p)
	}
	apply := func(f *Frame) {
		f.Raster.ColorMask = fb.ColorMask
		f.Raster.Depth.Write = fb.DepthWrite
		f.Device.SetColorMask(fb.ColorMask)
		f.Device.SetDepth(f.Raster.Depth)
	}
	c.draw, c.pick = apply, apply
	return nil
}

func buildClip(c *Chunk, p core.Payload) error {
	cl, ok := p.(*core.Clip)
	if !ok {
		return payloadError(c.Type, p)
	}
	apply := func(f *Frame) {
		f.Device.SetClipPlanes(cl.Planes)
	}
	c.draw, c.pick = apply, apply
	return nil
}

func buildMorphGeometry(c *Chunk, p core.Payload) error {
	m, ok := p.(*core.MorphGeometry)
	if !ok {
		return payloadError(c.Type, p)
	}
	apply := func(f *Frame) {
		f.Device.BindMorphTarget(m.Positions, m.Normals)
		f.Device.SetScalar(gpu.UniformMorphFactor, m.Factor)
	}
	c.draw, c.pick = apply, apply
	return nil
}

func buildListeners(c *Chunk, p core.Payload) error {
	l, ok := p.(*core.Listeners)
	if !ok {
		return payloadError(c.Type, p)
	}
	c.draw = func(f *Frame) {
		ev := core.RenderEvent{Pass: f.Pass, View: f.View, Proj: f.Proj, Model: f.Model}
		for _, fn := range l.Funcs {
			fn(ev)
		}
	}
	return nil
}

func buildGeometry(c *Chunk, p core.Payload) error {
	g, ok := p.(*core.Geometry)
	if !ok {
		return payloadError(c.Type, p)
	}
	prim, err := gpu.ParsePrimitive(g.Primitive)
	if err != nil {
		return err
	}
	binding := g.Binding()
	apply := func(f *Frame) {
		if binding.IndexCount == 0 {
			return
		}
		f.Device.BindGeometry(binding)
		f.Device.Draw(prim, binding.IndexCount)
		f.DrawCalls++
	}
	c.draw, c.pick = apply, apply
	return nil
}

func buildRenderer(c *Chunk, p core.Payload) error {
	r, ok := p.(*core.Renderer)
	if !ok {
		return payloadError(c.Type, p)
	}
	depthFunc, err := gpu.ParseDepthFunc(common.Coalesce(r.DepthFunc, "less"))
	if err != nil {
		return err
	}
	var blend gpu.BlendState
	if r.Blend {
		src, err := gpu.ParseBlendFactor(r.BlendSrc)
		if err != nil {
			return err
		}
		dst, err := gpu.ParseBlendFactor(r.BlendDst)
		if err != nil {
			return err
		}
		blend = gpu.BlendState{Enabled: true, Src: src, Dst: dst}
	}
	lineWidth := common.Coalesce(r.LineWidth, 1)
	apply := func(f *Frame, b gpu.BlendState) {
		f.Raster.Depth.Test = r.DepthTest
		f.Raster.Depth.Func = depthFunc
		f.Device.SetDepth(f.Raster.Depth)
		f.Raster.Blend = b
		f.Device.SetBlend(b)
		f.Raster.LineWidth = lineWidth
		f.Device.SetLineWidth(lineWidth)
	}
	c.draw = func(f *Frame) {
		if r.Blend {
			apply(f, blend)
			return
		}
		apply(f, f.PassBlend)
	}
	// Pick colors and packed depth must reach the target unblended.
	c.pick = func(f *Frame) {
		apply(f, f.PassBlend)
	}
	return nil
}
