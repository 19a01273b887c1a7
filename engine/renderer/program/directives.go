// directives.go defines the @oxy: directives understood by the program source factory.
// Directives are single-line WGSL comments that include registered snippets, select
// feature-dependent blocks and emit generated constants:
//
//	//@oxy:include <snippet>
//	//@oxy:if <feature>
//	//@oxy:else
//	//@oxy:end
//	//@oxy:const <NAME> <feature>
//	//@oxy:custom
package program

import (
	"fmt"
	"slices"
	"strings"
)

// directivePrefix marks a directive inside a WGSL comment line.
const directivePrefix = "@oxy:"

type directiveType string

const (
	directiveInclude directiveType = "include"
	directiveIf      directiveType = "if"
	directiveElse    directiveType = "else"
	directiveEnd     directiveType = "end"
	directiveConst   directiveType = "const"
	directiveCustom  directiveType = "custom"
)

// Feature names usable in if and const directives.
const (
	featureNormals      = "normals"
	featureTexture      = "texture"
	featureVertexColors = "vertex_colors"
	featureMorph        = "morph"
	featureMorphNormals = "morph_normals"
	featureLights       = "lights"
	featureClip         = "clip"
	featureCustom       = "custom"
)

var validFeatures = []string{
	featureNormals,
	featureTexture,
	featureVertexColors,
	featureMorph,
	featureMorphNormals,
	featureLights,
	featureClip,
	featureCustom,
}

// countFeatures are the features a const directive can emit.
var countFeatures = []string{featureLights, featureClip}

// directive is one parsed @oxy: line.
type directive struct {
	Type directiveType
	Args []string
	Line int
}

// parseDirective parses one WGSL line. Lines without the prefix yield nil and no error.
//
// Parameters:
//   - line: the raw WGSL line
//   - lineNum: the 1-based line number for error reporting
//
// Returns:
//   - *directive: the parsed directive, or nil for ordinary lines
//   - error: a descriptive error for malformed directives
func parseDirective(line string, lineNum int) (*directive, error) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "//") {
		return nil, nil
	}
	_, after, ok := strings.Cut(trimmed, directivePrefix)
	if !ok {
		return nil, nil
	}

	args := strings.Fields(after)
	if len(args) == 0 {
		return nil, fmt.Errorf("line %d: empty @oxy directive", lineNum)
	}

	d := &directive{Type: directiveType(args[0]), Args: args[1:], Line: lineNum}
	switch d.Type {
	case directiveInclude:
		if len(d.Args) != 1 {
			return nil, fmt.Errorf("line %d: @oxy include requires exactly one snippet name", lineNum)
		}
	case directiveIf:
		if len(d.Args) != 1 {
			return nil, fmt.Errorf("line %d: @oxy if requires exactly one feature", lineNum)
		}
		if !slices.Contains(validFeatures, d.Args[0]) {
			return nil, fmt.Errorf("line %d: unknown feature %q in @oxy if", lineNum, d.Args[0])
		}
	case directiveElse, directiveEnd, directiveCustom:
		if len(d.Args) != 0 {
			return nil, fmt.Errorf("line %d: @oxy %s takes no arguments", lineNum, d.Type)
		}
	case directiveConst:
		if len(d.Args) != 2 {
			return nil, fmt.Errorf("line %d: @oxy const requires a constant name and a feature", lineNum)
		}
		if !slices.Contains(countFeatures, d.Args[1]) {
			return nil, fmt.Errorf("line %d: feature %q has no count for @oxy const", lineNum, d.Args[1])
		}
	default:
		return nil, fmt.Errorf("line %d: unknown @oxy directive %q", lineNum, args[0])
	}
	return d, nil
}
