// Package capture turns pointer gestures on rendered pages into annotation
// records.
package capture

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/example/quickmark/internal/annotation"
	"github.com/example/quickmark/internal/license"
)

// Tool is the annotation tool a gesture is drawn with.
type Tool int

const (
	ToolNone Tool = iota
	ToolHighlight
	ToolDraw
	ToolRectangle
	ToolCircle
	ToolLine
	ToolArrow
	ToolNote
	ToolUnderline
	ToolStrikethrough
)

var toolNames = []string{"none", "highlight", "draw", "rectangle", "circle", "line", "arrow", "note", "underline", "strikethrough"}

func (t Tool) String() string {
	if int(t) < len(toolNames) {
		return toolNames[t]
	}
	return fmt.Sprintf("tool(%d)", int(t))
}

// Tools returns every selectable tool.
func Tools() []Tool {
	return []Tool{ToolHighlight, ToolDraw, ToolRectangle, ToolCircle, ToolLine, ToolArrow, ToolNote, ToolUnderline, ToolStrikethrough}
}

// ParseTool returns the tool named s. "rect" and "strike" are accepted too.
func ParseTool(s string) (Tool, error) {
	switch strings.ToLower(s) {
	case "rect":
		return ToolRectangle, nil
	case "strike":
		return ToolStrikethrough, nil
	case "pen", "freehand":
		return ToolDraw, nil
	}
	for i, n := range toolNames {
		if strings.EqualFold(n, s) {
			return Tool(i), nil
		}
	}
	return ToolNone, fmt.Errorf("unknown tool %q", s)
}

// Feature returns the license feature class the tool belongs to.
func (t Tool) Feature() license.Feature {
	switch t {
	case ToolHighlight:
		return license.FeatureHighlight
	case ToolDraw:
		return license.FeatureDraw
	case ToolRectangle, ToolCircle, ToolLine, ToolArrow:
		return license.FeatureShapes
	case ToolNote:
		return license.FeatureNotes
	case ToolUnderline, ToolStrikethrough:
		return license.FeatureTextDecoration
	}
	return ""
}

// Linear reports whether the tool records a segment.
func (t Tool) Linear() bool { return t == ToolLine || t == ToolArrow }

// Decoration reports whether the tool tracks only horizontal extent.
func (t Tool) Decoration() bool { return t == ToolUnderline || t == ToolStrikethrough }

func (t Tool) shape() annotation.ShapeKind {
	switch t {
	case ToolCircle:
		return annotation.Circle
	case ToolLine:
		return annotation.Line
	case ToolArrow:
		return annotation.Arrow
	}
	return annotation.Rectangle
}

// Context is the session state read when a gesture starts. Changing it
// never affects records that already exist.
type Context struct {
	Tool  Tool
	Color color.RGBA
}

// State is the machine state.
type State int

const (
	Idle State = iota
	Armed
	Dragging
)

func (s State) String() string {
	switch s {
	case Armed:
		return "armed"
	case Dragging:
		return "dragging"
	}
	return "idle"
}
