package appstate

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/mobile/event/mouse"

	"github.com/example/quickmark/internal/annotation"
	"github.com/example/quickmark/internal/capture"
	"github.com/example/quickmark/internal/document"
	"github.com/example/quickmark/internal/export"
	"github.com/example/quickmark/internal/geom"
	"github.com/example/quickmark/internal/license"
	"github.com/example/quickmark/internal/pdfout"
	"github.com/example/quickmark/internal/render"
)

func newSession(t *testing.T, opts ...SessionOption) *Session {
	t.Helper()
	doc := document.Blank(export.PageSize{Width: 612, Height: 792}, export.PageSize{Width: 612, Height: 792})
	opts = append([]SessionOption{WithZoom(1), WithLogger(log.New(io.Discard, "", 0))}, opts...)
	return NewSession(doc, opts...)
}

func pt(x, y float64) r2.Point { return r2.Point{X: x, Y: y} }

func gesture(t *testing.T, s *Session, from, to r2.Point) annotation.ID {
	t.Helper()
	require.True(t, s.Press(from))
	s.Move(to)
	id, err := s.Release(to)
	require.NoError(t, err)
	return id
}

type sink struct{ got *export.Result }

func (k *sink) Apply(_ context.Context, res *export.Result) error {
	k.got = res
	return nil
}

func TestPressPrefersOverlay(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.Arm(capture.ToolHighlight))
	id := gesture(t, s, pt(10, 10), pt(60, 60))
	require.NotEmpty(t, id)

	require.True(t, s.Press(pt(20, 20)))
	assert.True(t, s.Overlay.Dragging())
	assert.Equal(t, capture.Armed, s.Machine.State())
	s.Move(pt(40, 30))
	_, err := s.Release(pt(40, 30))
	require.NoError(t, err)

	r, ok := s.Store.Get(id)
	require.True(t, ok)
	assert.Equal(t, geom.Rect{X: 30, Y: 20, Width: 50, Height: 50}, r.Box)
	assert.Equal(t, 1, s.Store.Len())
}

func TestNewNoteOpensEditor(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.Arm(capture.ToolNote))
	id := gesture(t, s, pt(100, 100), pt(100, 100))

	r, ok := s.EditingNote()
	require.True(t, ok)
	assert.Equal(t, id, r.ID)

	require.NoError(t, s.CommitNote("check totals"))
	r, _ = s.Store.Get(id)
	assert.Equal(t, "check totals", r.Text)
	_, ok = s.EditingNote()
	assert.False(t, ok)
	assert.NoError(t, s.CommitNote("ignored"))
}

func TestClickOnNoteEditsIt(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.Arm(capture.ToolNote))
	id := gesture(t, s, pt(100, 100), pt(100, 100))
	s.CancelNote()
	require.NoError(t, s.Arm(capture.ToolNone))

	require.True(t, s.Press(pt(110, 110)))
	_, err := s.Release(pt(110, 110))
	require.NoError(t, err)
	r, ok := s.EditingNote()
	require.True(t, ok)
	assert.Equal(t, id, r.ID)

	s.ClearAll()
	_, ok = s.EditingNote()
	assert.False(t, ok)
	assert.Equal(t, 0, s.Overlay.Len())
}

func TestGatedToolIsRefused(t *testing.T) {
	s := newSession(t, WithGate(license.FreeOnly))
	assert.False(t, s.Permitted(capture.ToolHighlight))
	assert.True(t, errors.Is(s.Arm(capture.ToolHighlight), license.ErrNotPermitted))
	assert.Equal(t, capture.ToolNone, s.Tool())

	id, err := s.PlaceText(pt(50, 50), "free")
	require.NoError(t, err)
	r, _ := s.Store.Get(id)
	assert.Equal(t, annotation.TextBox, r.Kind)
}

func TestPlaceOffPage(t *testing.T) {
	s := newSession(t, WithOrigin(pt(48, 24)))
	_, err := s.PlaceText(pt(10, 10), "x")
	assert.True(t, errors.Is(err, annotation.ErrMissingPage))
	_, err = s.PlaceSignature(pt(10, 10), nil)
	assert.True(t, errors.Is(err, annotation.ErrMissingPage))
}

func TestSetZoomKeepsPDFPosition(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.Arm(capture.ToolRectangle))
	gesture(t, s, pt(30, 45), pt(90, 60))
	require.NoError(t, s.Arm(capture.ToolArrow))
	gesture(t, s, pt(100, 100), pt(200, 150))

	before, err := s.Project(context.Background())
	require.NoError(t, err)
	s.SetZoom(2)
	assert.Equal(t, 1224, s.Layout.Page(1).Display.X)
	after, err := s.Project(context.Background())
	require.NoError(t, err)

	require.Len(t, after.Projections, len(before.Projections))
	for i := range before.Projections {
		b, a := before.Projections[i].Instructions, after.Projections[i].Instructions
		require.Len(t, a, len(b))
		for j := range b {
			switch bi := b[j].(type) {
			case export.Rect:
				assert.True(t, bi.Box.ApproxEqual(a[j].(export.Rect).Box, 1e-6))
			case export.Line:
				al := a[j].(export.Line)
				assert.InDelta(t, bi.From.X, al.From.X, 1e-6)
				assert.InDelta(t, bi.To.Y, al.To.Y, 1e-6)
			}
		}
	}
}

func TestScrollClampsToDocument(t *testing.T) {
	s := newSession(t)
	s.ScrollBy(-100, 500)
	assert.Equal(t, 0.0, s.Layout.Scroll.Y)
	s.ScrollBy(1e6, 500)
	assert.Equal(t, float64(2*792+document.PageGap-500+document.PageGap), s.Layout.Scroll.Y)
	assert.Equal(t, 2, s.CurrentPage())

	s.ScrollToPage(1)
	assert.Equal(t, 0.0, s.Layout.Scroll.Y)
	assert.Equal(t, 1, s.CurrentPage())
	s.ScrollToPage(2)
	assert.Equal(t, float64(792+document.PageGap), s.Layout.Scroll.Y)
	assert.Equal(t, 2, s.CurrentPage())
}

func TestExportHandsResultToSink(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.Arm(capture.ToolHighlight))
	gesture(t, s, pt(10, 10), pt(60, 60))

	k := &sink{}
	res, err := s.Export(context.Background(), k)
	require.NoError(t, err)
	assert.Same(t, res, k.got)
	assert.Len(t, res.Page(1), 1)
}

func TestSinkFor(t *testing.T) {
	s := newSession(t)
	w, ok := s.SinkFor("out.PDF").(*pdfout.Writer)
	require.True(t, ok)
	assert.Equal(t, "out.PDF", w.Path)
	assert.Empty(t, w.Source)

	r, ok := s.SinkFor("out.png").(*render.Rasterizer)
	require.True(t, ok)
	assert.Equal(t, 1.0, r.Zoom)
}

func TestPageImageFlattensAnnotations(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.Arm(capture.ToolHighlight))
	gesture(t, s, pt(10, 10), pt(60, 60))

	img, err := s.PageImage(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 612, img.Bounds().Dx())
	assert.Less(t, img.RGBAAt(30, 30).B, uint8(255))
	assert.Equal(t, uint8(255), img.RGBAAt(300, 300).B)
}

func TestHandleRoutesMouseEvents(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.Arm(capture.ToolRectangle))
	assert.False(t, s.Handle(mouse.Event{X: 10, Y: 10, Button: mouse.ButtonRight, Direction: mouse.DirPress}))
	assert.True(t, s.Handle(mouse.Event{X: 10, Y: 10, Button: mouse.ButtonLeft, Direction: mouse.DirPress}))
	s.Handle(mouse.Event{X: 50, Y: 40, Direction: mouse.DirNone})
	assert.True(t, s.Handle(mouse.Event{X: 50, Y: 40, Button: mouse.ButtonLeft, Direction: mouse.DirRelease}))
	assert.Equal(t, 1, s.Store.Len())
	assert.Equal(t, pt(50, 40), s.Pointer())

	// A click without extent is dropped quietly.
	s.Handle(mouse.Event{X: 300, Y: 300, Button: mouse.ButtonLeft, Direction: mouse.DirPress})
	s.Handle(mouse.Event{X: 300, Y: 300, Button: mouse.ButtonLeft, Direction: mouse.DirRelease})
	assert.Equal(t, 1, s.Store.Len())
}

func TestDeleteHovered(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.Arm(capture.ToolHighlight))
	gesture(t, s, pt(10, 10), pt(60, 60))
	require.NoError(t, s.Arm(capture.ToolNone))

	assert.NoError(t, s.DeleteHovered())
	assert.Equal(t, 1, s.Store.Len())
	assert.True(t, s.Move(pt(30, 30)))
	require.NoError(t, s.DeleteHovered())
	assert.Equal(t, 0, s.Store.Len())
}
