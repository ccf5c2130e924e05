package overlay

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"
	"sync"

	"github.com/golang/geo/r2"
	xdraw "golang.org/x/image/draw"

	"github.com/example/quickmark/internal/annotation"
	"github.com/example/quickmark/internal/render"
)

const (
	strokeWidth   = 2
	arrowHead     = 8
	textSize      = 12
	tooltipSize   = 11
	tooltipMargin = 4
	highlightA    = 102
)

var (
	noteFill     = color.RGBA{R: 255, G: 215, B: 0, A: 255}
	noteBorder   = color.RGBA{R: 255, G: 165, B: 0, A: 255}
	handleFill   = color.RGBA{R: 66, G: 133, B: 244, A: 255}
	deleteFill   = color.RGBA{R: 220, G: 53, B: 69, A: 255}
	tooltipFill  = color.RGBA{R: 40, G: 40, B: 40, A: 230}
	tooltipInk   = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	textBoxColor = color.RGBA{A: 255}
)

// ImageCache keeps decoded freehand and signature images by record id.
// It is safe for concurrent use.
type ImageCache struct {
	mu sync.Mutex
	m  map[annotation.ID]image.Image
}

// NewImageCache returns an empty cache.
func NewImageCache() *ImageCache { return &ImageCache{m: map[annotation.ID]image.Image{}} }

func (c *ImageCache) get(r annotation.Record) (image.Image, error) {
	if c != nil && r.ID != "" {
		c.mu.Lock()
		img, ok := c.m[r.ID]
		c.mu.Unlock()
		if ok {
			return img, nil
		}
	}
	img, err := png.Decode(bytes.NewReader(r.Image))
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", r.Label(), r.ID, annotation.ErrAssetDecode)
	}
	if c != nil && r.ID != "" {
		c.mu.Lock()
		c.m[r.ID] = img
		c.mu.Unlock()
	}
	return img, nil
}

// retain drops every entry whose id is not in keep.
func (c *ImageCache) retain(keep map[annotation.ID]bool) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for id := range c.m {
		if !keep[id] {
			delete(c.m, id)
		}
	}
}

// Item is one record as placed on screen.
type Item struct {
	// Record has any live drag offset applied.
	Record annotation.Record
	// Origin is the screen position of the top-left of the record's page.
	Origin r2.Point
	Hover  bool
}

// Scene is a copy of what the layer shows. It shares no mutable state with
// the layer, so the paint goroutine can draw it while the UI goroutine
// carries on.
type Scene struct {
	Items []Item
	// Tooltip.At is in screen coordinates.
	Tooltip *Tooltip
	Zoom    float64
}

// Scene snapshots the layer in z-order.
func (l *Layer) Scene() Scene {
	sc := Scene{Zoom: l.layout.Zoom, Items: make([]Item, 0, len(l.nodes))}
	for _, n := range l.nodes {
		page := l.layout.Page(n.Record.Page)
		if page == nil {
			continue
		}
		rec := n.Record
		if n.Offset != (r2.Point{}) {
			rec = translateRecord(rec, n.Offset)
		}
		sc.Items = append(sc.Items, Item{Record: rec, Origin: l.layout.PageOrigin(page), Hover: n.ID() == l.hover})
	}
	if t := l.tooltip; t != nil {
		if page := l.layout.Page(t.Page); page != nil {
			tip := *t
			tip.At = t.At.Add(l.layout.PageOrigin(page))
			sc.Tooltip = &tip
		}
	}
	return sc
}

// Draw paints every node, the hover affordances and the tooltip onto dst,
// which is in screen coordinates.
func (l *Layer) Draw(dst *image.RGBA) { l.Scene().Draw(dst, l.images) }

// Draw paints the scene onto dst. Entries of cache for records no longer in
// the scene are dropped.
func (sc Scene) Draw(dst *image.RGBA, cache *ImageCache) {
	keep := make(map[annotation.ID]bool, len(sc.Items))
	for _, it := range sc.Items {
		keep[it.Record.ID] = true
		if err := DrawRecord(dst, it.Origin, it.Record, sc.Zoom, cache); err != nil {
			log.Printf("overlay: draw %s: %v", it.Record.ID, err)
		}
		if it.Hover {
			drawAffordances(dst, &Node{Record: it.Record}, it.Origin)
		}
	}
	if sc.Tooltip != nil {
		drawTooltip(dst, sc.Tooltip)
	}
	cache.retain(keep)
}

func drawAffordances(dst *image.RGBA, n *Node, origin r2.Point) {
	del := n.DeleteButton().Translate(origin).Image()
	render.FillRect(dst, del, deleteFill)
	pen := render.Pen{Color: color.White, Width: 2}
	c := del.Inset(6)
	render.Line(dst, c.Min.X, c.Min.Y, c.Max.X, c.Max.Y, pen)
	render.Line(dst, c.Min.X, c.Max.Y, c.Max.X, c.Min.Y, pen)
	if !n.Draggable() {
		return
	}
	h := n.Handle().Translate(origin).Image()
	render.FillRect(dst, h, handleFill)
	mid := h.Min.Add(h.Size().Div(2))
	render.Line(dst, h.Min.X+4, mid.Y, h.Max.X-4, mid.Y, pen)
	render.Line(dst, mid.X, h.Min.Y+4, mid.X, h.Max.Y-4, pen)
}

func drawTooltip(dst *image.RGBA, t *Tooltip) {
	w, h, _, err := render.MeasureText(t.Text, tooltipSize)
	if err != nil {
		return
	}
	at := t.At
	box := image.Rect(int(at.X), int(at.Y)-h-2*tooltipMargin, int(at.X)+w+2*tooltipMargin, int(at.Y))
	render.FillRect(dst, box, tooltipFill)
	_ = render.Text(dst, box.Min.X+tooltipMargin, box.Min.Y+tooltipMargin, t.Text, tooltipInk, tooltipSize)
}

func translateRecord(r annotation.Record, d r2.Point) annotation.Record {
	p := translatePatch(r, d)
	switch {
	case p.Line != nil:
		r.Line = *p.Line
	case p.Anchor != nil:
		r.Anchor = *p.Anchor
	case p.Box != nil:
		r.Box = *p.Box
	}
	return r
}

// DrawRecord paints r onto dst with its page top-left at origin. Text is
// scaled by zoom. Decoded images are kept in cache when it is non-nil.
func DrawRecord(dst *image.RGBA, origin r2.Point, r annotation.Record, zoom float64, cache *ImageCache) error {
	pen := render.Pen{Color: r.Color, Width: strokeWidth}
	box := r.Box.Translate(origin).Image()
	switch r.Kind {
	case annotation.Highlight:
		c := r.Color
		render.FillRect(dst, box, color.NRGBA{R: c.R, G: c.G, B: c.B, A: highlightA})
	case annotation.Shape:
		switch r.Shape {
		case annotation.Rectangle:
			render.Rect(dst, box, pen)
		case annotation.Circle:
			c := box.Min.Add(box.Size().Div(2))
			render.Ellipse(dst, c.X, c.Y, box.Dx()/2, box.Dy()/2, pen)
		case annotation.Line, annotation.Arrow:
			seg := r.Line.Translate(origin)
			a, b := seg.Origin, seg.End()
			if r.Shape == annotation.Arrow {
				render.Arrow(dst, int(a.X), int(a.Y), int(b.X), int(b.Y), arrowHead, pen)
			} else {
				render.Line(dst, int(a.X), int(a.Y), int(b.X), int(b.Y), pen)
			}
		}
	case annotation.TextDecoration:
		render.Line(dst, box.Min.X, box.Min.Y, box.Max.X, box.Min.Y, pen)
	case annotation.StickyNote:
		icon := r.Bounds().Translate(origin).Image()
		render.FillRect(dst, icon, noteFill)
		render.Rect(dst, icon, render.Pen{Color: noteBorder, Width: 2})
	case annotation.TextBox:
		return render.Text(dst, box.Min.X, box.Min.Y, r.Text, textBoxColor, textSize*zoom)
	case annotation.Freehand, annotation.Signature:
		img, err := cache.get(r)
		if err != nil {
			return err
		}
		xdraw.ApproxBiLinear.Scale(dst, box, img, img.Bounds(), xdraw.Over, nil)
	}
	return nil
}
