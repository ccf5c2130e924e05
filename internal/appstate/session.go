package appstate

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log"
	"math"
	"path/filepath"
	"strings"

	"github.com/golang/geo/r2"
	"golang.org/x/mobile/event/mouse"

	"github.com/example/quickmark/internal/annotation"
	"github.com/example/quickmark/internal/capture"
	"github.com/example/quickmark/internal/document"
	"github.com/example/quickmark/internal/export"
	"github.com/example/quickmark/internal/license"
	"github.com/example/quickmark/internal/overlay"
	"github.com/example/quickmark/internal/pdfout"
	"github.com/example/quickmark/internal/render"
)

// Session ties one document to its annotation store, gesture machine and
// overlay. It is not safe for concurrent use; the viewer calls it from the
// UI goroutine only.
type Session struct {
	Doc     *document.Document
	Store   *annotation.Store
	Layout  *document.Layout
	Machine *capture.Machine
	Overlay *overlay.Layer

	gate      license.Gate
	projector *export.Projector
	logger    *log.Logger
	editing   annotation.ID
	pointer   r2.Point
}

// SessionOption configures a Session.
type SessionOption func(*sessionConfig)

type sessionConfig struct {
	gate        license.Gate
	zoom        float64
	origin      r2.Point
	color       color.RGBA
	logger      *log.Logger
	overlayOpts []overlay.Option
}

// WithGate sets the license gate for premium tools.
func WithGate(g license.Gate) SessionOption { return func(c *sessionConfig) { c.gate = g } }

// WithZoom sets the initial display zoom.
func WithZoom(z float64) SessionOption { return func(c *sessionConfig) { c.zoom = z } }

// WithOrigin places the first page at p in window coordinates.
func WithOrigin(p r2.Point) SessionOption { return func(c *sessionConfig) { c.origin = p } }

// WithColor sets the initial annotation colour.
func WithColor(col color.RGBA) SessionOption { return func(c *sessionConfig) { c.color = col } }

// WithLogger sets the logger for gesture and export warnings.
func WithLogger(l *log.Logger) SessionOption { return func(c *sessionConfig) { c.logger = l } }

// WithOverlayOptions passes extra options to the overlay layer.
func WithOverlayOptions(opts ...overlay.Option) SessionOption {
	return func(c *sessionConfig) { c.overlayOpts = append(c.overlayOpts, opts...) }
}

// NewSession lays out doc and wires a fresh store to the machine and overlay.
func NewSession(doc *document.Document, opts ...SessionOption) *Session {
	cfg := sessionConfig{
		gate:   license.AllowAll,
		zoom:   document.DefaultZoom,
		color:  annotation.Yellow,
		logger: log.Default(),
	}
	for _, o := range opts {
		o(&cfg)
	}
	s := &Session{
		Doc:    doc,
		Store:  annotation.NewStore(),
		gate:   cfg.gate,
		logger: cfg.logger,
	}
	s.Layout = document.NewLayout(doc.Pages, cfg.zoom, document.WithOrigin(cfg.origin))
	s.Overlay = overlay.New(s.Store, s.Layout, append([]overlay.Option{overlay.WithNoteEditor(s.editNote)}, cfg.overlayOpts...)...)
	s.Machine = capture.New(s.Store, s.Layout,
		capture.WithGate(cfg.gate),
		capture.WithPresenter(s.Overlay),
		capture.WithSuppression(s.Overlay.Suppressed),
		capture.WithColor(cfg.color),
	)
	s.projector = export.New(export.WithLogger(cfg.logger))
	s.Store.Subscribe(func(ev annotation.Event) {
		if ev.Op == annotation.OpClear || (ev.Op == annotation.OpRemove && ev.Record.ID == s.editing) {
			s.editing = ""
		}
	})
	return s
}

// Permitted reports whether tool may be armed under the session's gate.
func (s *Session) Permitted(tool capture.Tool) bool { return s.gate.Permitted(tool.Feature()) }

// Arm selects tool. ToolNone disarms.
func (s *Session) Arm(tool capture.Tool) error { return s.Machine.Arm(tool) }

// Tool returns the armed tool.
func (s *Session) Tool() capture.Tool { return s.Machine.Context().Tool }

// Pointer returns the last pointer position seen.
func (s *Session) Pointer() r2.Point { return s.pointer }

// Press offers a press to the overlay first so existing annotations can be
// dragged or deleted, then to the machine.
func (s *Session) Press(p r2.Point) bool {
	s.pointer = p
	if s.Overlay.Press(p) {
		return true
	}
	return s.Machine.Press(p)
}

// Move continues whichever drag is in progress, or updates hover. It
// reports whether the screen needs repainting.
func (s *Session) Move(p r2.Point) bool {
	s.pointer = p
	switch {
	case s.Overlay.Dragging():
		return s.Overlay.Move(p)
	case s.Machine.State() == capture.Dragging:
		return s.Machine.Move(p)
	}
	hovered, tip := s.Overlay.Hovered(), s.Overlay.Tooltip()
	s.Overlay.Hover(p)
	return hovered != s.Overlay.Hovered() || tip != s.Overlay.Tooltip()
}

// Release ends the drag in progress. A new note is opened for editing.
func (s *Session) Release(p r2.Point) (annotation.ID, error) {
	s.pointer = p
	if s.Overlay.Release(p) {
		return "", nil
	}
	id, err := s.Machine.Release(p)
	if err != nil {
		return "", err
	}
	if r, ok := s.Store.Get(id); ok && r.Kind == annotation.StickyNote {
		s.editing = id
	}
	return id, nil
}

// Handle routes a left button mouse event and reports whether a repaint
// is needed. Gesture errors are logged, never returned.
func (s *Session) Handle(e mouse.Event) bool {
	if e.Button != mouse.ButtonLeft && e.Button != mouse.ButtonNone {
		return false
	}
	p := r2.Point{X: float64(e.X), Y: float64(e.Y)}
	switch e.Direction {
	case mouse.DirPress:
		return s.Press(p)
	case mouse.DirRelease:
		if _, err := s.Release(p); err != nil && !errors.Is(err, annotation.ErrDegenerate) {
			s.logger.Printf("gesture: %v", err)
		}
		return true
	case mouse.DirNone:
		return s.Move(p)
	}
	return false
}

func (s *Session) editNote(id annotation.ID) { s.editing = id }

// EditingNote returns the note waiting for text, if any.
func (s *Session) EditingNote() (annotation.Record, bool) {
	if s.editing == "" {
		return annotation.Record{}, false
	}
	return s.Store.Get(s.editing)
}

// CommitNote stores text on the note being edited and ends the edit.
func (s *Session) CommitNote(text string) error {
	id := s.editing
	s.editing = ""
	if id == "" {
		return nil
	}
	return s.Overlay.SetNoteText(id, text)
}

// CancelNote ends the edit without changing the note.
func (s *Session) CancelNote() { s.editing = "" }

// PlaceText adds a text box with its top-left at the screen point at.
func (s *Session) PlaceText(at r2.Point, text string) (annotation.ID, error) {
	page, rel, ok := s.Layout.PageAt(at)
	if !ok {
		return "", fmt.Errorf("text at %.0f,%.0f: %w", at.X, at.Y, annotation.ErrMissingPage)
	}
	return s.Machine.PlaceText(page.Number, rel, text)
}

// PlaceSignature adds sig with its top-left at the screen point at.
func (s *Session) PlaceSignature(at r2.Point, sig image.Image) (annotation.ID, error) {
	page, rel, ok := s.Layout.PageAt(at)
	if !ok {
		return "", fmt.Errorf("signature at %.0f,%.0f: %w", at.X, at.Y, annotation.ErrMissingPage)
	}
	return s.Machine.PlaceSignature(page.Number, rel, sig)
}

// DeleteHovered removes the annotation under the pointer, if any.
func (s *Session) DeleteHovered() error {
	id := s.Overlay.Hovered()
	if id == "" {
		return nil
	}
	return s.Overlay.Delete(id)
}

// ClearAll removes every annotation and wipes the freehand canvases.
func (s *Session) ClearAll() {
	s.Store.Clear()
	for _, p := range s.Layout.Pages {
		render.Clear(p.Canvas)
	}
}

// SetZoom changes the display zoom. Records are rescaled so they keep their
// place on the PDF page.
func (s *Session) SetZoom(zoom float64) {
	s.Machine.Cancel()
	f := s.Layout.SetZoom(zoom)
	if f == 1 {
		return
	}
	for _, r := range s.Store.Snapshot() {
		var p annotation.Patch
		switch {
		case r.Linear():
			seg := r.Line.Scale(f)
			p.Line = &seg
		case r.Kind == annotation.StickyNote:
			a := r.Anchor.Mul(f)
			p.Anchor = &a
		default:
			b := r.Box.Scale(f)
			p.Box = &b
		}
		if err := s.Store.Update(r.ID, p); err != nil {
			s.logger.Printf("zoom %s: %v", r.Label(), err)
		}
	}
}

// ScrollBy moves the view by dy pixels, keeping it within the document for
// a viewport of the given height.
func (s *Session) ScrollBy(dy float64, viewport int) {
	limit := math.Max(0, float64(s.Layout.Extent().Y-viewport)+document.PageGap)
	s.Layout.Scroll.Y = math.Max(0, math.Min(s.Layout.Scroll.Y+dy, limit))
}

// ScrollToPage brings the top of page n to the top of the view.
func (s *Session) ScrollToPage(n int) {
	p := s.Layout.Page(n)
	if p == nil {
		return
	}
	s.Layout.Scroll.Y += s.Layout.PageOrigin(p).Y - s.Layout.Origin.Y
}

// CurrentPage returns the first page that reaches below the top of the view.
func (s *Session) CurrentPage() int {
	for _, p := range s.Layout.Pages {
		if s.Layout.PageOrigin(p).Y+float64(p.Display.Y) > s.Layout.Origin.Y {
			return p.Number
		}
	}
	if n := len(s.Layout.Pages); n > 0 {
		return s.Layout.Pages[n-1].Number
	}
	return 0
}

// Project snapshots the store into drawing instructions.
func (s *Session) Project(ctx context.Context) (*export.Result, error) {
	return s.projector.Project(ctx, s.Store, s.Doc.Sizes(), s.Layout.Zoom)
}

// Export projects the store and hands the result to sink.
func (s *Session) Export(ctx context.Context, sink export.Sink) (*export.Result, error) {
	res, err := s.Project(ctx)
	if err != nil {
		return nil, err
	}
	if err := sink.Apply(ctx, res); err != nil {
		return res, err
	}
	return res, nil
}

// SinkFor returns the sink that writes path: an annotated copy of the
// source PDF for .pdf, a stacked PNG of every page otherwise.
func (s *Session) SinkFor(path string) export.Sink {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return &pdfout.Writer{Source: s.Doc.Path, Path: path, Logger: s.logger}
	}
	return s.rasterizer(path)
}

func (s *Session) rasterizer(path string) *render.Rasterizer {
	return &render.Rasterizer{Zoom: s.Layout.Zoom, Background: s.Doc.Background(s.Layout.Zoom), Path: path}
}

// PageImage flattens page n and its annotations at the display zoom.
func (s *Session) PageImage(ctx context.Context, n int) (*image.RGBA, error) {
	res, err := s.Project(ctx)
	if err != nil {
		return nil, err
	}
	return s.rasterizer("").Page(res, n)
}
