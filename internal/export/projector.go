package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log"
	"math"
	"strings"

	"github.com/golang/geo/r2"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/sync/errgroup"

	"github.com/example/quickmark/internal/annotation"
	"github.com/example/quickmark/internal/geom"
)

// Fixed presentation values for exported annotations, in PDF points.
const (
	StrokeWidth      = 2
	HighlightOpacity = 0.4
	ArrowHeadSize    = 8
	ArrowHeadAngle   = math.Pi / 6

	NoteFont       = "Helvetica"
	NoteFontSize   = 9
	NoteWidth      = 120
	NotePadding    = 5
	NoteLineHeight = NoteFontSize + 2
	NoteMinHeight  = 40
	NoteEmptySize  = 30

	TextBoxFontSize = 12
)

var (
	noteFill        = colorful.Color{R: 1, G: 0.96, B: 0.7}
	noteBorder      = colorful.Color{R: 1, G: 0.8, B: 0.2}
	noteEmptyFill   = colorful.Color{R: 1, G: 0.84, B: 0}
	noteEmptyBorder = colorful.Color{R: 1, G: 0.65, B: 0}
	black           = colorful.Color{}
)

// Source provides the records to export.
type Source interface {
	Snapshot() []annotation.Record
}

// Projector turns records into drawing instructions.
type Projector struct {
	measurer    Measurer
	logger      *log.Logger
	concurrency int
}

// Option configures a Projector.
type Option func(*Projector)

// WithMeasurer sets the text measurer used for note wrapping.
func WithMeasurer(m Measurer) Option { return func(p *Projector) { p.measurer = m } }

// WithLogger sets the logger that receives skip warnings.
func WithLogger(l *log.Logger) Option { return func(p *Projector) { p.logger = l } }

// WithConcurrency bounds the number of images decoded at once.
func WithConcurrency(n int) Option { return func(p *Projector) { p.concurrency = n } }

// New returns a Projector.
func New(opts ...Option) *Projector {
	p := &Projector{concurrency: 4}
	for _, o := range opts {
		o(p)
	}
	if p.measurer == nil {
		p.measurer = DefaultMeasurer()
	}
	if p.logger == nil {
		p.logger = log.New(io.Discard, "", 0)
	}
	return p
}

// Project snapshots src and projects every record onto its page. Records on
// unknown pages or with unreadable images are skipped and logged; the
// returned error is only set when ctx is cancelled.
func (p *Projector) Project(ctx context.Context, src Source, pages map[int]PageSize, scale float64) (*Result, error) {
	if scale <= 0 {
		scale = 1
	}
	records := src.Snapshot()

	decoded := make([]image.Image, len(records))
	decodeErr := make([]error, len(records))
	g, gctx := errgroup.WithContext(ctx)
	if p.concurrency > 0 {
		g.SetLimit(p.concurrency)
	}
	for i, r := range records {
		if r.Kind != annotation.Freehand && r.Kind != annotation.Signature {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			img, _, err := image.Decode(bytes.NewReader(r.Image))
			if err != nil {
				decodeErr[i] = fmt.Errorf("decode %s image: %v: %w", r.Label(), err, annotation.ErrAssetDecode)
				return nil
			}
			decoded[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{Pages: pages}
	for i, r := range records {
		size, ok := pages[r.Page]
		if !ok {
			p.skip(res, r, fmt.Errorf("page %d: %w", r.Page, annotation.ErrMissingPage))
			continue
		}
		if decodeErr[i] != nil {
			p.skip(res, r, decodeErr[i])
			continue
		}
		ins := p.project(r, size.Height, scale, decoded[i])
		res.Projections = append(res.Projections, Projection{ID: r.ID, Page: r.Page, Instructions: ins})
	}
	return res, nil
}

func (p *Projector) skip(res *Result, r annotation.Record, err error) {
	p.logger.Printf("export: skipping %s %s: %v", r.Label(), r.ID, err)
	res.Skipped = append(res.Skipped, Skip{ID: r.ID, Page: r.Page, Err: err})
}

func toColorful(r annotation.Record) colorful.Color {
	c, _ := colorful.MakeColor(r.Color)
	if r.Color.A == 0 {
		c, _ = colorful.MakeColor(annotation.Yellow)
	}
	return c
}

func (p *Projector) project(r annotation.Record, h, s float64, img image.Image) []Instruction {
	col := toColorful(r)
	switch r.Kind {
	case annotation.Highlight:
		return []Instruction{Rect{Box: geom.DisplayToPDF(r.Box, h, s), Fill: col, Filled: true, Opacity: HighlightOpacity}}
	case annotation.Shape:
		return projectShape(r, h, s, col)
	case annotation.TextDecoration:
		from := geom.PointToPDF(r2.Point{X: r.Box.X, Y: r.Box.Y}, h, s)
		to := geom.PointToPDF(r2.Point{X: r.Box.X + r.Box.Width, Y: r.Box.Y}, h, s)
		return []Instruction{Line{From: from, To: to, Stroke: col, Width: StrokeWidth}}
	case annotation.StickyNote:
		return p.projectNote(r, h, s)
	case annotation.Freehand:
		return []Instruction{Image{Box: geom.Rect{Width: r.Box.Width / s, Height: r.Box.Height / s}, Image: img}}
	case annotation.Signature:
		return []Instruction{Image{Box: geom.DisplayToPDF(r.Box, h, s), Image: img}}
	case annotation.TextBox:
		box := geom.DisplayToPDF(r.Box, h, s)
		return []Instruction{Text{At: r2.Point{X: box.X, Y: box.Y}, Text: r.Text, Font: NoteFont, Size: TextBoxFontSize, Color: black}}
	}
	return nil
}

func projectShape(r annotation.Record, h, s float64, col colorful.Color) []Instruction {
	switch r.Shape {
	case annotation.Rectangle:
		return []Instruction{Rect{Box: geom.DisplayToPDF(r.Box, h, s), Stroke: col, Width: StrokeWidth, Opacity: 1}}
	case annotation.Circle:
		box := geom.DisplayToPDF(r.Box, h, s)
		return []Instruction{Ellipse{
			Center: r2.Point{X: box.X + box.Width/2, Y: box.Y + box.Height/2},
			RX:     box.Width / 2,
			RY:     box.Height / 2,
			Stroke: col,
			Width:  StrokeWidth,
		}}
	}
	return ArrowLines(r.Line, r.Shape == annotation.Arrow, h, s, col)
}

// ArrowLines projects a display segment to PDF space. When head is set two
// segments of ArrowHeadSize are added at the terminal point, each offset
// ArrowHeadAngle from the shaft.
func ArrowLines(seg geom.Segment, head bool, h, s float64, col colorful.Color) []Instruction {
	tip := seg.End()
	end := geom.PointToPDF(tip, h, s)
	out := []Instruction{Line{From: geom.PointToPDF(seg.Origin, h, s), To: end, Stroke: col, Width: StrokeWidth}}
	if !head {
		return out
	}
	rad := seg.Radians()
	size := ArrowHeadSize * s
	for _, a := range []float64{rad - ArrowHeadAngle, rad + ArrowHeadAngle} {
		barb := r2.Point{X: tip.X - size*math.Cos(a), Y: tip.Y - size*math.Sin(a)}
		out = append(out, Line{From: end, To: geom.PointToPDF(barb, h, s), Stroke: col, Width: StrokeWidth})
	}
	return out
}

func (p *Projector) projectNote(r annotation.Record, h, s float64) []Instruction {
	top := geom.PointToPDF(r.Anchor, h, s)
	if strings.TrimSpace(r.Text) == "" {
		return []Instruction{Rect{
			Box:     geom.Rect{X: top.X, Y: top.Y - NoteEmptySize, Width: NoteEmptySize, Height: NoteEmptySize},
			Fill:    noteEmptyFill,
			Filled:  true,
			Stroke:  noteEmptyBorder,
			Width:   1,
			Opacity: 1,
		}}
	}
	lines := Wrap(r.Text, NoteFontSize, NoteWidth-2*NotePadding, p.measurer)
	height := math.Max(NoteMinHeight, float64(len(lines)*NoteLineHeight+2*NotePadding))
	out := []Instruction{Rect{
		Box:     geom.Rect{X: top.X, Y: top.Y - height, Width: NoteWidth, Height: height},
		Fill:    noteFill,
		Filled:  true,
		Stroke:  noteBorder,
		Width:   1,
		Opacity: 1,
	}}
	for i, line := range lines {
		out = append(out, Text{
			At:    r2.Point{X: top.X + NotePadding, Y: top.Y - NotePadding - float64(i+1)*NoteLineHeight},
			Text:  line,
			Font:  NoteFont,
			Size:  NoteFontSize,
			Color: black,
		})
	}
	return out
}
