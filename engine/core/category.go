// Package core defines state cores: immutable-until-replaced descriptors of one category of
// render state, produced while a scene is traversed and consumed by the display compiler.
package core

import "fmt"

// Category is the closed set of state-core categories.
type Category int

const (
	CategoryTransform Category = iota
	CategoryView
	CategoryProjection
	CategoryMaterial
	CategoryTexture
	CategoryLights
	CategoryClip
	CategoryMorphGeometry
	CategoryFlags
	CategoryLayer
	CategoryTag
	CategoryShader
	CategoryShaderParams
	CategoryRenderer
	CategoryFramebuffer
	CategoryName
	CategoryListeners
	CategoryGeometry
	categoryCount
)

// CategoryCount is the number of state-core categories.
const CategoryCount = int(categoryCount)

// Object slot indices. Slot 0 always binds the program and the geometry slot is always last.
const (
	SlotProgram = iota
	SlotModelTransform
	SlotViewTransform
	SlotProjection
	SlotFlags
	SlotShader
	SlotShaderParams
	SlotName
	SlotLights
	SlotMaterial
	SlotTexture
	SlotFramebuffer
	SlotClip
	SlotMorphGeometry
	SlotListeners
	SlotGeometry

	// SlotCount is the fixed number of chunk slots per object.
	SlotCount
)

var categoryNames = [CategoryCount]string{
	CategoryTransform:     "transform",
	CategoryView:          "view",
	CategoryProjection:    "projection",
	CategoryMaterial:      "material",
	CategoryTexture:       "texture",
	CategoryLights:        "lights",
	CategoryClip:          "clip",
	CategoryMorphGeometry: "morphGeometry",
	CategoryFlags:         "flags",
	CategoryLayer:         "layer",
	CategoryTag:           "tag",
	CategoryShader:        "shader",
	CategoryShaderParams:  "shaderParams",
	CategoryRenderer:      "renderer",
	CategoryFramebuffer:   "framebuffer",
	CategoryName:          "name",
	CategoryListeners:     "listeners",
	CategoryGeometry:      "geometry",
}

// categorySlots maps slotted categories to their object slot; -1 marks categories the
// scheduler reads directly instead of through a chunk.
var categorySlots = [CategoryCount]int{
	CategoryTransform:     SlotModelTransform,
	CategoryView:          SlotViewTransform,
	CategoryProjection:    SlotProjection,
	CategoryMaterial:      SlotMaterial,
	CategoryTexture:       SlotTexture,
	CategoryLights:        SlotLights,
	CategoryClip:          SlotClip,
	CategoryMorphGeometry: SlotMorphGeometry,
	CategoryFlags:         SlotFlags,
	CategoryLayer:         -1,
	CategoryTag:           -1,
	CategoryShader:        SlotShader,
	CategoryShaderParams:  SlotShaderParams,
	CategoryRenderer:      -1,
	CategoryFramebuffer:   SlotFramebuffer,
	CategoryName:          SlotName,
	CategoryListeners:     SlotListeners,
	CategoryGeometry:      SlotGeometry,
}

func (c Category) String() string {
	if c < 0 || c >= categoryCount {
		return fmt.Sprintf("Category(%d)", int(c))
	}
	return categoryNames[c]
}

// Valid reports whether c is one of the defined categories.
func (c Category) Valid() bool {
	return c >= 0 && c < categoryCount
}

// Slot returns the object slot a category's chunk occupies.
//
// Returns:
//   - int: the slot index
//   - bool: false for categories without a slot (layer, tag and renderer)
func (c Category) Slot() (int, bool) {
	if !c.Valid() {
		return 0, false
	}
	s := categorySlots[c]
	return s, s >= 0
}

// SlotCategory returns the category whose chunk occupies slot s.
//
// Parameters:
//   - s: the slot index
//
// Returns:
//   - Category: the category
//   - bool: false for the program slot and out of range slots
func SlotCategory(s int) (Category, bool) {
	for c, slot := range categorySlots {
		if slot == s && slot >= 0 {
			return Category(c), true
		}
	}
	return 0, false
}

// ParseCategory translates a category name such as "morphGeometry".
//
// Parameters:
//   - name: the category name
//
// Returns:
//   - Category: the category
//   - error: an error for unknown names
func ParseCategory(name string) (Category, error) {
	for c, n := range categoryNames {
		if n == name {
			return Category(c), nil
		}
	}
	return 0, fmt.Errorf("unknown state core category %q", name)
}
