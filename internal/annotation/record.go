// Package annotation holds the in-memory record store that is the single
// source of truth for every annotation placed on a document.
package annotation

import (
	"errors"
	"fmt"
	"image/color"
	"strings"

	"github.com/golang/geo/r2"
	"github.com/google/uuid"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/example/quickmark/internal/geom"
)

var (
	// ErrNotFound is returned when an operation names an unknown record.
	ErrNotFound = errors.New("annotation: record not found")
	// ErrDegenerate marks a gesture that produced no usable geometry.
	ErrDegenerate = errors.New("annotation: degenerate gesture")
	// ErrMissingPage marks a record whose page has no rendered surface.
	ErrMissingPage = errors.New("annotation: missing page context")
	// ErrAssetDecode marks a record whose image payload cannot be decoded.
	ErrAssetDecode = errors.New("annotation: asset decode failure")
	// ErrInvalidPage is returned when a record is added with a page below 1.
	ErrInvalidPage = errors.New("annotation: invalid page")
)

// ID identifies a record for the lifetime of a session.
type ID string

// NewID returns a fresh random identifier.
func NewID() ID { return ID(uuid.New().String()) }

// Kind is the annotation category.
type Kind int

const (
	Highlight Kind = iota
	Freehand
	Shape
	StickyNote
	TextDecoration
	TextBox
	Signature
)

var kindNames = []string{"highlight", "freehand", "shape", "note", "decoration", "text", "signature"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind returns the kind named s.
func ParseKind(s string) (Kind, error) {
	for i, n := range kindNames {
		if strings.EqualFold(n, s) {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown annotation kind %q", s)
}

// ShapeKind selects the figure drawn by a Shape record.
type ShapeKind int

const (
	Rectangle ShapeKind = iota
	Circle
	Line
	Arrow
)

var shapeNames = []string{"rectangle", "circle", "line", "arrow"}

func (s ShapeKind) String() string {
	if int(s) < len(shapeNames) {
		return shapeNames[s]
	}
	return fmt.Sprintf("shape(%d)", int(s))
}

// ParseShape returns the shape named s.
func ParseShape(s string) (ShapeKind, error) {
	for i, n := range shapeNames {
		if strings.EqualFold(n, s) {
			return ShapeKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown shape %q", s)
}

// Linear reports whether the shape is stored as a segment.
func (s ShapeKind) Linear() bool { return s == Line || s == Arrow }

// DecorationKind selects underline or strikethrough.
type DecorationKind int

const (
	Underline DecorationKind = iota
	Strikethrough
)

func (d DecorationKind) String() string {
	if d == Strikethrough {
		return "strikethrough"
	}
	return "underline"
}

// Record is one annotation. Geometry is in page display pixels relative to
// the top-left corner of its page.
type Record struct {
	ID   ID
	Kind Kind
	// Page is 1-based and never changes after the record is added.
	Page       int
	Shape      ShapeKind
	Decoration DecorationKind

	// Box is used by every kind except linear shapes and notes. Decorations
	// keep their anchor height in Y with a zero Height.
	Box    geom.Rect
	Line   geom.Segment
	Anchor r2.Point

	Text  string
	Color color.RGBA
	// Image is a PNG payload for freehand strokes and signatures.
	Image []byte
}

// Linear reports whether the record stores its geometry as a segment.
func (r Record) Linear() bool { return r.Kind == Shape && r.Shape.Linear() }

// Bounds returns the display-space extent of the record.
func (r Record) Bounds() geom.Rect {
	switch {
	case r.Linear():
		return r.Line.Bounds()
	case r.Kind == StickyNote:
		return geom.Rect{X: r.Anchor.X, Y: r.Anchor.Y, Width: NoteIconSize, Height: NoteIconSize}
	}
	return r.Box
}

// Degenerate reports whether the record has no extent. Notes never are.
func (r Record) Degenerate() bool {
	switch {
	case r.Kind == StickyNote:
		return false
	case r.Linear():
		return r.Line.Degenerate()
	}
	return r.Box.Empty()
}

// Label is a short human readable description of the record type.
func (r Record) Label() string {
	switch r.Kind {
	case Shape:
		return r.Shape.String()
	case TextDecoration:
		return r.Decoration.String()
	}
	return r.Kind.String()
}

// NoteIconSize is the display size of a sticky note marker.
const NoteIconSize = 30

// Yellow is the default annotation colour.
var Yellow = color.RGBA{R: 255, G: 255, B: 0, A: 255}

// ParseColor parses a #rrggbb string. Invalid input yields Yellow.
func ParseColor(s string) color.RGBA {
	c, err := colorful.Hex(s)
	if err != nil {
		return Yellow
	}
	r, g, b := c.Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// HexColor formats c as #rrggbb.
func HexColor(c color.RGBA) string {
	cc, _ := colorful.MakeColor(color.RGBA{R: c.R, G: c.G, B: c.B, A: 255})
	return cc.Hex()
}
