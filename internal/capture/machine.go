package capture

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"image/png"
	"log"
	"math"

	"github.com/golang/geo/r2"

	"github.com/example/quickmark/internal/annotation"
	"github.com/example/quickmark/internal/document"
	"github.com/example/quickmark/internal/geom"
	"github.com/example/quickmark/internal/license"
	"github.com/example/quickmark/internal/render"
)

// FreehandWidth is the stroke width of the draw tool in display pixels.
const FreehandWidth = 3

// Presenter materializes committed records on screen.
type Presenter interface {
	Materialize(r annotation.Record) error
}

// Proxy is the transient shape shown while a gesture is in progress.
type Proxy struct {
	Visible bool
	Page    int
	Tool    Tool
	Color   color.RGBA
	Box     geom.Rect
	Line    geom.Segment
}

type gesture struct {
	ctx     Context
	page    *document.Page
	origin  r2.Point
	current r2.Point
	painted bool
}

// Machine is the gesture state machine. It is driven from the UI goroutine.
type Machine struct {
	store     *annotation.Store
	layout    *document.Layout
	gate      license.Gate
	presenter Presenter
	busy      func() bool

	ctx     Context
	state   State
	pages   map[int]bool
	gesture gesture
	proxy   Proxy
}

// Option configures a Machine.
type Option func(*Machine)

// WithGate sets the license gate consulted when arming tools.
func WithGate(g license.Gate) Option { return func(m *Machine) { m.gate = g } }

// WithPresenter sets the presenter that receives committed records.
func WithPresenter(p Presenter) Option { return func(m *Machine) { m.presenter = p } }

// WithSuppression sets a check that blocks new gestures while it returns
// true, such as right after an overlay drag.
func WithSuppression(fn func() bool) Option { return func(m *Machine) { m.busy = fn } }

// WithColor sets the initial drawing colour.
func WithColor(c color.RGBA) Option { return func(m *Machine) { m.ctx.Color = c } }

// New returns an idle machine writing to store.
func New(store *annotation.Store, layout *document.Layout, opts ...Option) *Machine {
	m := &Machine{
		store:  store,
		layout: layout,
		gate:   license.AllowAll,
		pages:  map[int]bool{},
		ctx:    Context{Color: annotation.Yellow},
	}
	for _, o := range opts {
		o(m)
	}
	store.Subscribe(func(ev annotation.Event) {
		if ev.Op == annotation.OpClear {
			m.Cancel()
		}
	})
	return m
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Context returns the session state.
func (m *Machine) Context() Context { return m.ctx }

// Proxy returns the in-progress gesture shape.
func (m *Machine) Proxy() Proxy { return m.proxy }

// SetColor changes the colour used by future gestures.
func (m *Machine) SetColor(c color.RGBA) { m.ctx.Color = c }

// Arm selects tool, cancelling any gesture in progress. Premium tools are
// refused with license.ErrNotPermitted when the gate denies them.
func (m *Machine) Arm(tool Tool) error {
	m.Disarm()
	if tool == ToolNone {
		return nil
	}
	if !m.gate.Permitted(tool.Feature()) {
		return fmt.Errorf("%s: %w", tool, license.ErrNotPermitted)
	}
	m.ctx.Tool = tool
	m.state = Armed
	for _, p := range m.layout.Pages {
		m.pages[p.Number] = true
	}
	return nil
}

// Disarm deselects the tool and detaches every page.
func (m *Machine) Disarm() {
	m.Cancel()
	m.ctx.Tool = ToolNone
	m.state = Idle
	clear(m.pages)
}

// Press starts a gesture at screen point s.
func (m *Machine) Press(s r2.Point) bool {
	if m.state != Armed || (m.busy != nil && m.busy()) {
		return false
	}
	page, rel, ok := m.layout.PageAt(s)
	if !ok || !m.pages[page.Number] {
		return false
	}
	m.gesture = gesture{ctx: m.ctx, page: page, origin: rel, current: rel}
	m.state = Dragging
	m.proxy = Proxy{
		Visible: m.ctx.Tool != ToolDraw && m.ctx.Tool != ToolNote,
		Page:    page.Number,
		Tool:    m.ctx.Tool,
		Color:   m.ctx.Color,
		Box:     geom.Rect{X: rel.X, Y: rel.Y},
		Line:    geom.Segment{Origin: rel},
	}
	return true
}

// Move updates the gesture. Leaving the gesture's page ends it as Leave does.
func (m *Machine) Move(s r2.Point) bool {
	if m.state != Dragging {
		return false
	}
	rel := m.layout.Relative(m.gesture.page, s)
	if !m.gesture.page.Bounds().Contains(rel) {
		m.Leave()
		return true
	}
	m.update(rel)
	return true
}

func (m *Machine) update(rel r2.Point) {
	g := &m.gesture
	prev := g.current
	g.current = rel
	switch t := g.ctx.Tool; {
	case t == ToolDraw:
		m.paint(prev, rel)
	case t.Linear():
		m.proxy.Line = geom.SegmentFromPoints(g.origin, rel)
	case t.Decoration():
		m.proxy.Box = geom.Rect{X: math.Min(g.origin.X, rel.X), Y: g.origin.Y, Width: math.Abs(rel.X - g.origin.X)}
	case t == ToolNote:
	default:
		m.proxy.Box = geom.RectFromCorners(g.origin, rel)
	}
}

func (m *Machine) paint(from, to r2.Point) {
	if from == to {
		return
	}
	page := m.gesture.page
	sx, sy := page.CanvasScale()
	a := geom.ToBacking(from, sx, sy)
	b := geom.ToBacking(to, sx, sy)
	pen := render.Pen{Color: m.gesture.ctx.Color, Width: int(math.Round(FreehandWidth * sx)), Round: true}
	render.Line(page.Canvas, int(a.X), int(a.Y), int(b.X), int(b.Y), pen)
	m.gesture.painted = true
}

// Release ends the gesture at s and commits it. A gesture with no extent
// returns annotation.ErrDegenerate and leaves the store untouched.
func (m *Machine) Release(s r2.Point) (annotation.ID, error) {
	if m.state != Dragging {
		return "", nil
	}
	rel := m.layout.Relative(m.gesture.page, s)
	b := m.gesture.page.Bounds()
	rel.X = math.Max(b.X, math.Min(rel.X, b.X+b.Width))
	rel.Y = math.Max(b.Y, math.Min(rel.Y, b.Y+b.Height))
	m.update(rel)
	return m.commit()
}

// Leave handles the pointer leaving the page. Freehand strokes commit;
// every other gesture is discarded.
func (m *Machine) Leave() {
	if m.state != Dragging {
		return
	}
	if m.gesture.ctx.Tool == ToolDraw {
		if _, err := m.commit(); err != nil && !errors.Is(err, annotation.ErrDegenerate) {
			log.Printf("capture: %v", err)
		}
		return
	}
	m.Cancel()
}

// Cancel drops the gesture in progress without creating a record.
func (m *Machine) Cancel() {
	if m.state == Dragging && m.gesture.ctx.Tool == ToolDraw {
		render.Clear(m.gesture.page.Canvas)
	}
	m.reset()
}

func (m *Machine) reset() {
	m.gesture = gesture{}
	m.proxy = Proxy{}
	if m.ctx.Tool == ToolNone {
		m.state = Idle
	} else {
		m.state = Armed
	}
}

func (m *Machine) record() (annotation.Record, error) {
	g := m.gesture
	r := annotation.Record{Page: g.page.Number, Color: g.ctx.Color}
	switch t := g.ctx.Tool; {
	case t == ToolNote:
		r.Kind = annotation.StickyNote
		r.Anchor = g.origin
		r.Color = annotation.Yellow
	case t == ToolDraw:
		if !g.painted {
			return r, annotation.ErrDegenerate
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, g.page.Canvas); err != nil {
			return r, fmt.Errorf("encode stroke: %w", err)
		}
		r.Kind = annotation.Freehand
		r.Box = g.page.Bounds()
		r.Image = buf.Bytes()
	case t == ToolHighlight:
		r.Kind = annotation.Highlight
		r.Box = m.proxy.Box
	case t.Decoration():
		r.Kind = annotation.TextDecoration
		r.Box = m.proxy.Box
		if t == ToolStrikethrough {
			r.Decoration = annotation.Strikethrough
		}
	default:
		r.Kind = annotation.Shape
		r.Shape = t.shape()
		if t.Linear() {
			r.Line = m.proxy.Line
		} else {
			r.Box = m.proxy.Box
		}
	}
	if r.Degenerate() {
		return r, annotation.ErrDegenerate
	}
	return r, nil
}

func (m *Machine) commit() (annotation.ID, error) {
	defer m.Cancel()
	r, err := m.record()
	if err != nil {
		return "", err
	}
	return m.add(r)
}

func (m *Machine) add(r annotation.Record) (annotation.ID, error) {
	id, err := m.store.Add(r)
	if err != nil {
		return "", err
	}
	r.ID = id
	if m.presenter != nil {
		if err := m.presenter.Materialize(r); err != nil {
			log.Printf("capture: materialize %s: %v", r.Label(), err)
		}
	}
	return id, nil
}
