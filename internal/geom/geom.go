// Package geom converts between the three coordinate spaces used by the
// annotation tools: screen pixels, page display pixels (top-left origin,
// zoomed) and PDF user space (bottom-left origin, unscaled points).
package geom

import (
	"image"
	"math"

	"github.com/golang/geo/r1"
	"github.com/golang/geo/r2"
)

// Rect is an axis aligned box with a top-left origin in page display pixels.
type Rect struct {
	X, Y          float64
	Width, Height float64
}

// RectFromCorners returns the box spanned by two arbitrary corners. The result
// always has a non-negative size regardless of drag direction.
func RectFromCorners(a, b r2.Point) Rect {
	return FromR2(r2.RectFromPoints(a, b))
}

// FromR2 converts an r2.Rect into a Rect.
func FromR2(r r2.Rect) Rect {
	if r.IsEmpty() {
		return Rect{}
	}
	lo := r.Lo()
	sz := r.Size()
	return Rect{X: lo.X, Y: lo.Y, Width: sz.X, Height: sz.Y}
}

// R2 returns r as an r2.Rect.
func (r Rect) R2() r2.Rect {
	return r2.Rect{
		X: r1.Interval{Lo: r.X, Hi: r.X + r.Width},
		Y: r1.Interval{Lo: r.Y, Hi: r.Y + r.Height},
	}
}

// Origin returns the top-left corner.
func (r Rect) Origin() r2.Point { return r2.Point{X: r.X, Y: r.Y} }

// Center returns the centre of the box.
func (r Rect) Center() r2.Point { return r.R2().Center() }

// Empty reports whether the box has no area.
func (r Rect) Empty() bool { return r.Width <= 0 && r.Height <= 0 }

// Contains reports whether p lies inside the box, edges included.
func (r Rect) Contains(p r2.Point) bool { return r.R2().ContainsPoint(p) }

// Translate returns the box moved by d.
func (r Rect) Translate(d r2.Point) Rect {
	r.X += d.X
	r.Y += d.Y
	return r
}

// Scale multiplies position and size by f, as when the display zoom changes.
func (r Rect) Scale(f float64) Rect {
	return Rect{X: r.X * f, Y: r.Y * f, Width: r.Width * f, Height: r.Height * f}
}

// Inset grows the box by n on every side. Negative values shrink it.
func (r Rect) Inset(n float64) Rect {
	return Rect{X: r.X - n, Y: r.Y - n, Width: r.Width + 2*n, Height: r.Height + 2*n}
}

// Image rounds the box outwards to integer pixels.
func (r Rect) Image() image.Rectangle {
	return image.Rect(
		int(math.Floor(r.X)), int(math.Floor(r.Y)),
		int(math.Ceil(r.X+r.Width)), int(math.Ceil(r.Y+r.Height)),
	)
}

// ApproxEqual reports whether both boxes match within eps on every field.
func (r Rect) ApproxEqual(o Rect, eps float64) bool {
	return math.Abs(r.X-o.X) <= eps && math.Abs(r.Y-o.Y) <= eps &&
		math.Abs(r.Width-o.Width) <= eps && math.Abs(r.Height-o.Height) <= eps
}

// ToPageRelative subtracts the page's on-screen origin from a screen point.
func ToPageRelative(screen, pageOrigin r2.Point) r2.Point {
	return screen.Sub(pageOrigin)
}

// DisplayToPDF maps a display-space box on a page of pageHeight points viewed
// at scale into PDF user space. The returned Y is the bottom edge of the box.
func DisplayToPDF(r Rect, pageHeight, scale float64) Rect {
	if scale == 0 {
		scale = 1
	}
	w := r.Width / scale
	h := r.Height / scale
	return Rect{
		X:      r.X / scale,
		Y:      pageHeight - r.Y/scale - h,
		Width:  w,
		Height: h,
	}
}

// PDFToDisplay is the inverse of DisplayToPDF.
func PDFToDisplay(r Rect, pageHeight, scale float64) Rect {
	if scale == 0 {
		scale = 1
	}
	return Rect{
		X:      r.X * scale,
		Y:      (pageHeight - r.Y - r.Height) * scale,
		Width:  r.Width * scale,
		Height: r.Height * scale,
	}
}

// PointToPDF maps a single display point into PDF user space. Unlike
// DisplayToPDF there is no height term.
func PointToPDF(p r2.Point, pageHeight, scale float64) r2.Point {
	if scale == 0 {
		scale = 1
	}
	return r2.Point{X: p.X / scale, Y: pageHeight - p.Y/scale}
}

// CanvasScale returns the ratio between a raster surface's backing store and
// its displayed size. An empty display size yields 1 on that axis.
func CanvasScale(backing, display image.Point) (sx, sy float64) {
	sx, sy = 1, 1
	if display.X > 0 {
		sx = float64(backing.X) / float64(display.X)
	}
	if display.Y > 0 {
		sy = float64(backing.Y) / float64(display.Y)
	}
	return sx, sy
}

// ToBacking converts a display point into backing store pixels.
func ToBacking(p r2.Point, sx, sy float64) r2.Point {
	return r2.Point{X: p.X * sx, Y: p.Y * sy}
}
