package document

import (
	"image"
	"math"

	"github.com/golang/geo/r2"

	"github.com/example/quickmark/internal/geom"
)

// DefaultZoom is the display scale applied when none is configured.
const DefaultZoom = 1.5

// PageGap is the vertical space between stacked pages, in screen pixels.
const PageGap = 16

// Page is one rendered page as placed on screen.
type Page struct {
	Number int
	// offset is the page's top-left in the unscrolled layout.
	offset r2.Point
	// Display is the on-screen size in pixels at the layout zoom.
	Display image.Point
	// WidthPt and HeightPt are the PDF size. Export uses the height.
	WidthPt  float64
	HeightPt float64
	// Canvas is the freehand drawing surface. Its backing store may be
	// larger than Display on high density screens.
	Canvas *image.RGBA
}

// Bounds returns the page display rectangle relative to its own origin.
func (p *Page) Bounds() geom.Rect {
	return geom.Rect{Width: float64(p.Display.X), Height: float64(p.Display.Y)}
}

// CanvasScale returns the backing store to display ratio of the canvas.
func (p *Page) CanvasScale() (sx, sy float64) {
	return geom.CanvasScale(p.Canvas.Bounds().Size(), p.Display)
}

// Layout stacks pages vertically and tracks the scroll position.
type Layout struct {
	Pages []*Page
	Zoom  float64
	// Origin is where the first page starts on screen before scrolling.
	Origin r2.Point
	// Scroll is subtracted from every page position.
	Scroll r2.Point

	ratio float64
}

// LayoutOption configures a Layout.
type LayoutOption func(*layoutConfig)

type layoutConfig struct {
	origin     r2.Point
	pixelRatio float64
}

// WithOrigin places the first page at p on screen.
func WithOrigin(p r2.Point) LayoutOption { return func(c *layoutConfig) { c.origin = p } }

// WithPixelRatio sizes freehand canvases at ratio backing pixels per
// display pixel.
func WithPixelRatio(ratio float64) LayoutOption {
	return func(c *layoutConfig) { c.pixelRatio = ratio }
}

// NewLayout lays out pages at zoom.
func NewLayout(pages []PageInfo, zoom float64, opts ...LayoutOption) *Layout {
	cfg := layoutConfig{pixelRatio: 1}
	for _, o := range opts {
		o(&cfg)
	}
	if zoom <= 0 {
		zoom = DefaultZoom
	}
	l := &Layout{Zoom: zoom, Origin: cfg.origin, ratio: cfg.pixelRatio}
	for _, info := range pages {
		l.Pages = append(l.Pages, &Page{Number: info.Number, WidthPt: info.Width, HeightPt: info.Height})
	}
	l.place()
	return l
}

func (l *Layout) place() {
	y := 0.0
	for _, p := range l.Pages {
		disp := image.Pt(int(math.Round(p.WidthPt*l.Zoom)), int(math.Round(p.HeightPt*l.Zoom)))
		backing := image.Pt(int(math.Round(float64(disp.X)*l.ratio)), int(math.Round(float64(disp.Y)*l.ratio)))
		p.offset = r2.Point{X: 0, Y: y}
		p.Display = disp
		p.Canvas = image.NewRGBA(image.Rectangle{Max: backing})
		y += float64(disp.Y) + PageGap
	}
}

// SetZoom lays the pages out again at zoom with fresh freehand canvases
// and returns the ratio of the new zoom to the old. Scroll is scaled too so
// the same part of the document stays in view.
func (l *Layout) SetZoom(zoom float64) float64 {
	if zoom <= 0 {
		return 1
	}
	f := zoom / l.Zoom
	l.Zoom = zoom
	l.Scroll = l.Scroll.Mul(f)
	l.place()
	return f
}

// Page returns page n or nil.
func (l *Layout) Page(n int) *Page {
	for _, p := range l.Pages {
		if p.Number == n {
			return p
		}
	}
	return nil
}

// PageOrigin returns the current screen position of the top-left of p.
func (l *Layout) PageOrigin(p *Page) r2.Point {
	return l.Origin.Add(p.offset).Sub(l.Scroll)
}

// PageAt returns the page under the screen point s and s relative to it.
func (l *Layout) PageAt(s r2.Point) (*Page, r2.Point, bool) {
	for _, p := range l.Pages {
		rel := geom.ToPageRelative(s, l.PageOrigin(p))
		if p.Bounds().Contains(rel) {
			return p, rel, true
		}
	}
	return nil, r2.Point{}, false
}

// Relative converts a screen point to coordinates relative to p, whether
// or not it lies inside the page.
func (l *Layout) Relative(p *Page, s r2.Point) r2.Point {
	return geom.ToPageRelative(s, l.PageOrigin(p))
}

// Extent returns the total size of the stacked pages.
func (l *Layout) Extent() image.Point {
	var ext image.Point
	for _, p := range l.Pages {
		ext.X = max(ext.X, p.Display.X)
		ext.Y = int(p.offset.Y) + p.Display.Y
	}
	return ext
}
