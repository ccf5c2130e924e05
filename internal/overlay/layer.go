// Package overlay keeps one on-screen node per annotation record and
// handles dragging, deleting and note editing of committed annotations.
package overlay

import (
	"fmt"
	"log"
	"time"

	"github.com/golang/geo/r2"

	"github.com/example/quickmark/internal/annotation"
	"github.com/example/quickmark/internal/document"
	"github.com/example/quickmark/internal/geom"
)

// DefaultSuppressWindow is how long new gestures are ignored after a drag.
const DefaultSuppressWindow = 50 * time.Millisecond

const (
	handleSize  = 20
	deleteSize  = 20
	lineSlop    = 5
	tooltipLift = 8
)

// Node is the presentation of one record.
type Node struct {
	Record annotation.Record
	// Offset is the live drag displacement not yet written to the store.
	Offset r2.Point
}

// ID returns the record id.
func (n *Node) ID() annotation.ID { return n.Record.ID }

// Bounds returns the display rectangle including any live drag offset.
func (n *Node) Bounds() geom.Rect { return n.Record.Bounds().Translate(n.Offset) }

// Handle returns the drag handle, just above and left of the node.
func (n *Node) Handle() geom.Rect {
	b := n.Bounds()
	return geom.Rect{X: b.X - handleSize, Y: b.Y - handleSize, Width: handleSize, Height: handleSize}
}

// DeleteButton returns the delete affordance at the node's top-right corner.
func (n *Node) DeleteButton() geom.Rect {
	b := n.Bounds()
	return geom.Rect{X: b.X + b.Width + 10 - deleteSize, Y: b.Y - 10, Width: deleteSize, Height: deleteSize}
}

// Draggable reports whether the node can be moved. Freehand layers cover
// the whole page and stay put.
func (n *Node) Draggable() bool { return n.Record.Kind != annotation.Freehand }

func (n *Node) hit(p r2.Point) bool {
	if n.Record.Linear() {
		return n.Record.Line.Translate(n.Offset).Distance(p) <= lineSlop
	}
	if n.Record.Kind == annotation.TextDecoration {
		return n.Bounds().Inset(lineSlop).Contains(p)
	}
	return n.Bounds().Contains(p)
}

// Tooltip is the hover text shown over a sticky note.
type Tooltip struct {
	Note annotation.ID
	Page int
	Text string
	At   r2.Point
}

type dragState struct {
	node  *Node
	start r2.Point
	moved bool
}

// Layer is the retained set of nodes. Nodes are kept in record insertion
// order so later nodes are drawn, and hit, on top.
type Layer struct {
	store  *annotation.Store
	layout *document.Layout

	nodes   []*Node
	byID    map[annotation.ID]*Node
	tooltip *Tooltip
	hover   annotation.ID
	drag    *dragState

	now           func() time.Time
	window        time.Duration
	suppressUntil time.Time
	onNoteEdit    func(annotation.ID)
	images        *ImageCache
}

// Option configures a Layer.
type Option func(*Layer)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option { return func(l *Layer) { l.now = now } }

// WithSuppressWindow changes the post-drag suppression window.
func WithSuppressWindow(d time.Duration) Option { return func(l *Layer) { l.window = d } }

// WithNoteEditor sets the callback run when a note is clicked without
// being dragged.
func WithNoteEditor(fn func(annotation.ID)) Option { return func(l *Layer) { l.onNoteEdit = fn } }

// New returns an empty layer bound to store.
func New(store *annotation.Store, layout *document.Layout, opts ...Option) *Layer {
	l := &Layer{
		store:  store,
		layout: layout,
		byID:   map[annotation.ID]*Node{},
		now:    time.Now,
		window: DefaultSuppressWindow,
		images: NewImageCache(),
	}
	for _, o := range opts {
		o(l)
	}
	store.Subscribe(l.onStore)
	return l
}

func (l *Layer) onStore(ev annotation.Event) {
	switch ev.Op {
	case annotation.OpUpdate:
		if n, ok := l.byID[ev.Record.ID]; ok {
			n.Record = ev.Record
			n.Offset = r2.Point{}
			if l.tooltip != nil && l.tooltip.Note == ev.Record.ID {
				l.tooltip.Text = ev.Record.Text
			}
		}
	case annotation.OpRemove:
		l.destroy(ev.Record.ID)
	case annotation.OpClear:
		l.TeardownAll()
	}
}

// Materialize creates the node for r. Materializing a record twice is an
// error.
func (l *Layer) Materialize(r annotation.Record) error {
	if _, ok := l.byID[r.ID]; ok {
		return fmt.Errorf("record %s already materialized", r.ID)
	}
	n := &Node{Record: r}
	l.nodes = append(l.nodes, n)
	l.byID[r.ID] = n
	return nil
}

// MaterializeAll creates nodes for every stored record not yet shown.
func (l *Layer) MaterializeAll() {
	for r := range l.store.List(0) {
		if _, ok := l.byID[r.ID]; !ok {
			_ = l.Materialize(r)
		}
	}
}

// Node returns the node for id.
func (l *Layer) Node(id annotation.ID) (*Node, bool) {
	n, ok := l.byID[id]
	return n, ok
}

// Nodes returns the nodes on page in z-order. Page 0 returns all.
func (l *Layer) Nodes(page int) []*Node {
	var out []*Node
	for _, n := range l.nodes {
		if page == 0 || n.Record.Page == page {
			out = append(out, n)
		}
	}
	return out
}

// Len returns the number of nodes.
func (l *Layer) Len() int { return len(l.nodes) }

// Tooltip returns the visible tooltip, if any.
func (l *Layer) Tooltip() *Tooltip { return l.tooltip }

// Delete removes the record and its node and tooltip together.
func (l *Layer) Delete(id annotation.ID) error {
	if err := l.store.Remove(id); err != nil {
		return err
	}
	l.destroy(id)
	return nil
}

func (l *Layer) destroy(id annotation.ID) {
	n, ok := l.byID[id]
	if !ok {
		return
	}
	delete(l.byID, id)
	for i, m := range l.nodes {
		if m == n {
			l.nodes = append(l.nodes[:i], l.nodes[i+1:]...)
			break
		}
	}
	if l.tooltip != nil && l.tooltip.Note == id {
		l.tooltip = nil
	}
	if l.drag != nil && l.drag.node == n {
		l.drag = nil
	}
	if l.hover == id {
		l.hover = ""
	}
}

// TeardownAll destroys every node and tooltip.
func (l *Layer) TeardownAll() {
	l.nodes = nil
	l.byID = map[annotation.ID]*Node{}
	l.tooltip = nil
	l.drag = nil
	l.hover = ""
	l.images = NewImageCache()
}

func (l *Layer) relative(n *Node, s r2.Point) (r2.Point, bool) {
	page := l.layout.Page(n.Record.Page)
	if page == nil {
		return r2.Point{}, false
	}
	// Handles and buttons stick out of the node. They must not reach onto
	// a neighbouring page.
	if under, _, ok := l.layout.PageAt(s); ok && under.Number != page.Number {
		return r2.Point{}, false
	}
	return l.layout.Relative(page, s), true
}

// TopmostAt returns the top node whose body is under the screen point s.
func (l *Layer) TopmostAt(s r2.Point) (*Node, bool) {
	for i := len(l.nodes) - 1; i >= 0; i-- {
		n := l.nodes[i]
		if p, ok := l.relative(n, s); ok && n.hit(p) {
			return n, true
		}
	}
	return nil, false
}

// Press handles a button press at screen point s. It reports whether an
// overlay node took the event.
func (l *Layer) Press(s r2.Point) bool {
	for i := len(l.nodes) - 1; i >= 0; i-- {
		n := l.nodes[i]
		p, ok := l.relative(n, s)
		if !ok {
			continue
		}
		switch {
		case n.DeleteButton().Contains(p) && l.hover == n.ID():
			if err := l.Delete(n.ID()); err != nil {
				log.Printf("overlay: delete %s: %v", n.ID(), err)
			}
			return true
		case n.Draggable() && (n.hit(p) || (n.Handle().Contains(p) && l.hover == n.ID())):
			l.drag = &dragState{node: n, start: s}
			return true
		}
	}
	return false
}

// Move updates a drag in progress or the hover state.
func (l *Layer) Move(s r2.Point) bool {
	if l.drag != nil {
		d := s.Sub(l.drag.start)
		if d != (r2.Point{}) {
			l.drag.moved = true
		}
		l.drag.node.Offset = d
		return true
	}
	l.Hover(s)
	return false
}

// Release ends a drag, writing the new position to the store and opening
// the suppression window. A click on a note without movement starts a text
// edit instead.
func (l *Layer) Release(s r2.Point) bool {
	if l.drag == nil {
		return false
	}
	ds := l.drag
	l.drag = nil
	n := ds.node
	d := s.Sub(ds.start)
	if !ds.moved || d == (r2.Point{}) {
		n.Offset = r2.Point{}
		if n.Record.Kind == annotation.StickyNote && l.onNoteEdit != nil {
			l.onNoteEdit(n.ID())
		}
		return true
	}
	if err := l.store.Update(n.ID(), translatePatch(n.Record, d)); err != nil {
		log.Printf("overlay: move %s: %v", n.ID(), err)
		n.Offset = r2.Point{}
	}
	l.suppressUntil = l.now().Add(l.window)
	return true
}

// Dragging reports whether a node is being dragged.
func (l *Layer) Dragging() bool { return l.drag != nil }

// Nudge moves record id by d in page display pixels, as a drag would.
func (l *Layer) Nudge(id annotation.ID, d r2.Point) error {
	r, ok := l.store.Get(id)
	if !ok {
		return fmt.Errorf("nudge %s: %w", id, annotation.ErrNotFound)
	}
	return l.store.Update(id, translatePatch(r, d))
}

func translatePatch(r annotation.Record, d r2.Point) annotation.Patch {
	switch {
	case r.Linear():
		seg := r.Line.Translate(d)
		return annotation.Patch{Line: &seg}
	case r.Kind == annotation.StickyNote:
		a := r.Anchor.Add(d)
		return annotation.Patch{Anchor: &a}
	}
	box := r.Box.Translate(d)
	return annotation.Patch{Box: &box}
}

// Suppressed reports whether a drag ended too recently for a click to
// start a new gesture.
func (l *Layer) Suppressed() bool {
	return l.drag != nil || l.now().Before(l.suppressUntil)
}

// Hover updates the hovered node and the note tooltip for screen point s.
func (l *Layer) Hover(s r2.Point) {
	l.hover = ""
	l.tooltip = nil
	n := l.hoverTarget(s, true)
	if n == nil {
		n = l.hoverTarget(s, false)
	}
	if n == nil {
		return
	}
	l.hover = n.ID()
	if n.Record.Kind == annotation.StickyNote && n.Record.Text != "" {
		b := n.Bounds()
		l.tooltip = &Tooltip{
			Note: n.ID(),
			Page: n.Record.Page,
			Text: n.Record.Text,
			At:   r2.Point{X: b.X, Y: b.Y - tooltipLift},
		}
	}
}

// hoverTarget finds the top node under s. Freehand layers span the page,
// so they are only considered when no draggable node is there.
func (l *Layer) hoverTarget(s r2.Point, draggable bool) *Node {
	for i := len(l.nodes) - 1; i >= 0; i-- {
		n := l.nodes[i]
		if n.Draggable() != draggable {
			continue
		}
		p, ok := l.relative(n, s)
		if !ok {
			continue
		}
		if n.hit(p) || n.Handle().Contains(p) || n.DeleteButton().Contains(p) {
			return n
		}
	}
	return nil
}

// Hovered returns the id of the node under the pointer.
func (l *Layer) Hovered() annotation.ID { return l.hover }

// SetNoteText replaces the text of a sticky note.
func (l *Layer) SetNoteText(id annotation.ID, text string) error {
	n, ok := l.byID[id]
	if !ok {
		return fmt.Errorf("note %s: %w", id, annotation.ErrNotFound)
	}
	if n.Record.Kind != annotation.StickyNote {
		return fmt.Errorf("%s is a %s, not a note", id, n.Record.Label())
	}
	return l.store.Update(id, annotation.Patch{Text: &text})
}
