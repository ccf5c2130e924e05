// Package export projects annotation records into drawing instructions in
// PDF user space (origin bottom-left, unscaled points).
package export

import (
	"context"
	"image"

	"github.com/golang/geo/r2"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/example/quickmark/internal/annotation"
	"github.com/example/quickmark/internal/geom"
)

// Instruction is one drawing operation. The concrete types are Rect,
// Ellipse, Line, Image and Text.
type Instruction interface {
	instruction()
}

// Rect draws a box whose Y is its bottom edge.
type Rect struct {
	Box     geom.Rect
	Fill    colorful.Color
	Filled  bool
	Stroke  colorful.Color
	Width   float64
	Opacity float64
}

// Ellipse strokes an axis aligned ellipse.
type Ellipse struct {
	Center r2.Point
	RX, RY float64
	Stroke colorful.Color
	Width  float64
}

// Line strokes a single segment.
type Line struct {
	From, To r2.Point
	Stroke   colorful.Color
	Width    float64
}

// Image places a raster stretched over Box.
type Image struct {
	Box   geom.Rect
	Image image.Image
}

// Text draws a single line with its baseline starting at At.
type Text struct {
	At    r2.Point
	Text  string
	Font  string
	Size  float64
	Color colorful.Color
}

func (Rect) instruction()    {}
func (Ellipse) instruction() {}
func (Line) instruction()    {}
func (Image) instruction()   {}
func (Text) instruction()    {}

// Stroked reports whether the rect has a border.
func (r Rect) Stroked() bool { return r.Width > 0 }

// PageSize is the size of a PDF page in points as displayed, that is with
// its /Rotate applied. Rotate is 0, 90, 180 or 270.
type PageSize struct {
	Width, Height float64
	Rotate        int
}

// Projection is the instruction list for one record.
type Projection struct {
	ID           annotation.ID
	Page         int
	Instructions []Instruction
}

// Skip records a record left out of the export and why.
type Skip struct {
	ID   annotation.ID
	Page int
	Err  error
}

// Result is the output of one export pass.
type Result struct {
	Pages       map[int]PageSize
	Projections []Projection
	Skipped     []Skip
}

// Page returns the instructions for one page in record order.
func (r *Result) Page(page int) []Instruction {
	var out []Instruction
	for _, p := range r.Projections {
		if p.Page == page {
			out = append(out, p.Instructions...)
		}
	}
	return out
}

// Sink applies a projection result, typically by writing a document.
type Sink interface {
	Apply(ctx context.Context, res *Result) error
}
