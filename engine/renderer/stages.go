package renderer

import "strings"

// Stage is one step of the render pipeline. Stages run in declaration order and a dirty stage
// dirties every stage after it.
type Stage int

const (
	// StageObjectList flattens the live objects into a list.
	StageObjectList Stage = iota

	// StageStateOrder computes each object's sort key.
	StageStateOrder

	// StageStateSort stable-sorts the object list by sort key.
	StageStateSort

	// StageDrawList rebuilds the opaque, transparent and pick draw lists.
	StageDrawList

	// StageImage executes the draw lists against the canvas.
	StageImage

	stageCount
)

var stageNames = [stageCount]string{
	StageObjectList: "objectList",
	StageStateOrder: "stateOrder",
	StageStateSort:  "stateSort",
	StageDrawList:   "drawList",
	StageImage:      "image",
}

func (s Stage) String() string {
	if s < 0 || s >= stageCount {
		return "unknown"
	}
	return stageNames[s]
}

// DirtyFlags is a bit set of dirty stages.
type DirtyFlags uint8

// Has reports whether stage s is dirty.
func (d DirtyFlags) Has(s Stage) bool {
	return d&(1<<s) != 0
}

// from returns the flags of s and every later stage.
func from(s Stage) DirtyFlags {
	var d DirtyFlags
	for ; s < stageCount; s++ {
		d |= 1 << s
	}
	return d
}

func (d DirtyFlags) String() string {
	var parts []string
	for s := StageObjectList; s < stageCount; s++ {
		if d.Has(s) {
			parts = append(parts, s.String())
		}
	}
	if len(parts) == 0 {
		return "clean"
	}
	return strings.Join(parts, "|")
}

// Property names a kind of external mutation for Invalidate.
type Property int

const (
	PropertyStructure Property = iota
	PropertyGeometry
	PropertyLayer
	PropertyProgram
	PropertyTexture
	PropertyVisibility
	PropertyTag
	PropertyTransparency
	PropertyPickable
	PropertyTransform
	PropertyMaterial
	PropertyLights
	PropertyView
	PropertyProjection
	PropertyOther
)

// invalidation maps a property to the earliest stage it affects. Properties absent from the
// table only affect the image.
var invalidation = map[Property]Stage{
	PropertyStructure:    StageObjectList,
	PropertyGeometry:     StageObjectList,
	PropertyLayer:        StageStateOrder,
	PropertyProgram:      StageStateOrder,
	PropertyTexture:      StageStateOrder,
	PropertyVisibility:   StageDrawList,
	PropertyTag:          StageDrawList,
	PropertyTransparency: StageDrawList,
	PropertyPickable:     StageDrawList,
}

// StageFor returns the earliest stage a property change invalidates.
//
// Parameters:
//   - p: the changed property
//
// Returns:
//   - Stage: the stage to mark dirty
func StageFor(p Property) Stage {
	if s, ok := invalidation[p]; ok {
		return s
	}
	return StageImage
}
