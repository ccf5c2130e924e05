package export

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"log"
	"math"
	"strings"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/quickmark/internal/annotation"
	"github.com/example/quickmark/internal/geom"
)

type records []annotation.Record

func (r records) Snapshot() []annotation.Record { return r }

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.Black)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

var letter = map[int]PageSize{1: {Width: 612, Height: 792}, 2: {Width: 612, Height: 792}}

func TestProjectHighlight(t *testing.T) {
	p := New()
	res, err := p.Project(context.Background(), records{{
		ID: "h", Kind: annotation.Highlight, Page: 1,
		Box:   geom.Rect{X: 15, Y: 30, Width: 150, Height: 30},
		Color: annotation.Yellow,
	}}, letter, 1.5)
	require.NoError(t, err)
	require.Len(t, res.Projections, 1)
	ins := res.Projections[0].Instructions
	require.Len(t, ins, 1)
	rect := ins[0].(Rect)
	assert.True(t, rect.Filled)
	assert.False(t, rect.Stroked())
	assert.Equal(t, HighlightOpacity, rect.Opacity)
	assert.True(t, rect.Box.ApproxEqual(geom.Rect{X: 10, Y: 792 - 20 - 20, Width: 100, Height: 20}, 1e-9))
}

func TestProjectCircle(t *testing.T) {
	res, err := New().Project(context.Background(), records{{
		ID: "c", Kind: annotation.Shape, Shape: annotation.Circle, Page: 1,
		Box: geom.Rect{X: 0, Y: 0, Width: 40, Height: 20},
	}}, letter, 1)
	require.NoError(t, err)
	e := res.Projections[0].Instructions[0].(Ellipse)
	assert.Equal(t, r2.Point{X: 20, Y: 782}, e.Center)
	assert.Equal(t, 20.0, e.RX)
	assert.Equal(t, 10.0, e.RY)
	assert.Equal(t, float64(StrokeWidth), e.Width)
}

func TestProjectArrowHead(t *testing.T) {
	const h = 792
	ins := ArrowLines(geom.Segment{Length: 100, Angle: 45}, true, h, 1, black)
	require.Len(t, ins, 3)
	shaft := ins[0].(Line)
	assert.InDelta(t, 70.71, shaft.To.X, 0.01)
	assert.InDelta(t, h-70.71, shaft.To.Y, 0.01)

	shaftDir := shaft.From.Sub(shaft.To)
	for _, in := range ins[1:] {
		head := in.(Line)
		assert.Equal(t, shaft.To, head.From)
		d := head.To.Sub(head.From)
		assert.InDelta(t, ArrowHeadSize, d.Norm(), 1e-9)
		cos := d.Dot(shaftDir) / (d.Norm() * shaftDir.Norm())
		assert.InDelta(t, 30, math.Acos(cos)*180/math.Pi, 1e-6)
	}
}

func TestProjectDecorationIsHorizontal(t *testing.T) {
	res, err := New().Project(context.Background(), records{{
		ID: "u", Kind: annotation.TextDecoration, Page: 1,
		Box: geom.Rect{X: 20, Y: 100, Width: 60},
	}}, letter, 2)
	require.NoError(t, err)
	l := res.Projections[0].Instructions[0].(Line)
	assert.Equal(t, r2.Point{X: 10, Y: 742}, l.From)
	assert.Equal(t, r2.Point{X: 40, Y: 742}, l.To)
}

func TestProjectEmptyNote(t *testing.T) {
	res, err := New().Project(context.Background(), records{{
		ID: "n", Kind: annotation.StickyNote, Page: 1, Anchor: r2.Point{X: 30, Y: 60}, Text: "   ",
	}}, letter, 1.5)
	require.NoError(t, err)
	ins := res.Projections[0].Instructions
	require.Len(t, ins, 1)
	r := ins[0].(Rect)
	assert.Equal(t, geom.Rect{X: 20, Y: 792 - 40 - 30, Width: 30, Height: 30}, r.Box)
}

func TestProjectNoteWithText(t *testing.T) {
	fixed := MeasureFunc(func(s string, size float64) float64 { return float64(len(s)) * 10 })
	res, err := New(WithMeasurer(fixed)).Project(context.Background(), records{{
		ID: "n", Kind: annotation.StickyNote, Page: 1, Anchor: r2.Point{X: 10, Y: 10}, Text: "hello there friend",
	}}, letter, 1)
	require.NoError(t, err)
	ins := res.Projections[0].Instructions
	// "hello there" is 110 wide and fits; "friend" wraps
	require.Len(t, ins, 3)
	bg := ins[0].(Rect)
	assert.Equal(t, float64(NoteMinHeight), bg.Box.Height)
	assert.Equal(t, float64(NoteWidth), bg.Box.Width)
	first := ins[1].(Text)
	assert.Equal(t, "hello there", first.Text)
	assert.Equal(t, r2.Point{X: 15, Y: 792 - 10 - 5 - 11}, first.At)
	assert.Equal(t, "friend", ins[2].(Text).Text)
}

func TestWrapBreaksLongWord(t *testing.T) {
	m := DefaultMeasurer()
	const max = NoteWidth - 2*NotePadding
	word := "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lines := Wrap(word, NoteFontSize, max, m)
	require.Greater(t, len(lines), 1)
	for _, l := range lines {
		assert.LessOrEqual(t, m.Width(l, NoteFontSize), float64(max), l)
	}
	assert.Equal(t, word, strings.Join(lines, ""))
	assert.Equal(t, lines, Wrap(word, NoteFontSize, max, m))
}

func TestWrapTakesAtLeastOneRune(t *testing.T) {
	wide := MeasureFunc(func(s string, size float64) float64 { return 1000 })
	assert.Equal(t, []string{"a", "b"}, Wrap("ab", 9, 10, wide))
}

func TestProjectIsolatesBadImage(t *testing.T) {
	var logs bytes.Buffer
	p := New(WithLogger(log.New(&logs, "", 0)))
	src := records{
		{ID: "a", Kind: annotation.Highlight, Page: 1, Box: geom.Rect{Width: 10, Height: 10}},
		{ID: "bad", Kind: annotation.Freehand, Page: 1, Box: geom.Rect{Width: 100, Height: 100}, Image: []byte("not a png")},
		{ID: "good", Kind: annotation.Freehand, Page: 2, Box: geom.Rect{Width: 918, Height: 1188}, Image: pngBytes(t)},
		{ID: "lost", Kind: annotation.Highlight, Page: 9, Box: geom.Rect{Width: 10, Height: 10}},
	}
	res, err := p.Project(context.Background(), src, letter, 1.5)
	require.NoError(t, err)

	var got []annotation.ID
	for _, pr := range res.Projections {
		got = append(got, pr.ID)
	}
	assert.Equal(t, []annotation.ID{"a", "good"}, got)
	require.Len(t, res.Skipped, 2)
	assert.True(t, errors.Is(res.Skipped[0].Err, annotation.ErrAssetDecode))
	assert.True(t, errors.Is(res.Skipped[1].Err, annotation.ErrMissingPage))
	assert.Contains(t, logs.String(), "bad")

	img := res.Projections[1].Instructions[0].(Image)
	assert.Equal(t, geom.Rect{Width: 612, Height: 792}, img.Box)
	assert.NotNil(t, img.Image)
	assert.Len(t, res.Page(1), 1)
}

func TestProjectDoesNotMutateSource(t *testing.T) {
	s := annotation.NewStore()
	s.Add(annotation.Record{Kind: annotation.Highlight, Page: 1, Box: geom.Rect{X: 1, Y: 2, Width: 3, Height: 4}})
	before := s.Snapshot()
	_, err := New().Project(context.Background(), s, letter, 2)
	require.NoError(t, err)
	assert.Equal(t, before, s.Snapshot())
}

func TestProjectArrowUsesPointMapping(t *testing.T) {
	const h, s = 792.0, 2.0
	seg := geom.Segment{Origin: r2.Point{X: 40, Y: 60}, Length: 200, Angle: 90}
	ins := ArrowLines(seg, true, h, s, black)
	require.Len(t, ins, 3)
	shaft := ins[0].(Line)
	assert.Equal(t, geom.PointToPDF(seg.Origin, h, s), shaft.From)
	assert.Equal(t, geom.PointToPDF(seg.End(), h, s), shaft.To)
	for _, in := range ins[1:] {
		// Heads keep their size in PDF points whatever the display zoom.
		assert.InDelta(t, ArrowHeadSize, in.(Line).To.Sub(shaft.To).Norm(), 1e-9)
	}
}
