package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

var defaults [CategoryCount]*Core

func init() {
	ident := mgl32.Ident4()
	defaults[CategoryTransform] = NewTransform(ident)
	defaults[CategoryView] = NewView(ident, mgl32.Vec3{})
	defaults[CategoryProjection] = NewProjection(ident)
	defaults[CategoryMaterial] = NewMaterial(Material{BaseColor: mgl32.Vec3{1, 1, 1}, Specular: mgl32.Vec3{1, 1, 1}, Shininess: 1, Alpha: 1})
	defaults[CategoryTexture] = NewTexture()
	defaults[CategoryLights] = NewLights()
	defaults[CategoryClip] = NewClip()
	defaults[CategoryMorphGeometry] = NewMorphGeometry(MorphGeometry{})
	defaults[CategoryFlags] = NewFlags(DefaultFlags())
	defaults[CategoryLayer] = NewLayer(0, true)
	defaults[CategoryTag] = NewTag("")
	defaults[CategoryShader] = NewShader("", "")
	defaults[CategoryShaderParams] = NewShaderParams(nil)
	defaults[CategoryRenderer] = NewRenderer(DefaultRenderer())
	defaults[CategoryFramebuffer] = NewFramebuffer(Framebuffer{ColorMask: [4]bool{true, true, true, true}, DepthWrite: true})
	defaults[CategoryName] = NewName("", "", "")
	defaults[CategoryListeners] = NewListeners()
	defaults[CategoryGeometry] = NewGeometry(Geometry{Primitive: "triangles"})
}

// Default returns the shared root core of a category. Defaults are allocated once, so their
// state ids are stable for the lifetime of the process.
//
// Parameters:
//   - cat: the category
//
// Returns:
//   - *Core: the default core, or nil for an invalid category
func Default(cat Category) *Core {
	if !cat.Valid() {
		return nil
	}
	return defaults[cat]
}
