// Package render draws annotation geometry onto RGBA rasters.
package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"
)

// Pen describes how strokes are drawn.
type Pen struct {
	Color color.Color
	Width int
	// Round uses a circular nib, giving round caps and joins.
	Round bool
}

func (p Pen) dab(img *image.RGBA, x, y int) {
	w := p.Width
	if w < 1 {
		w = 1
	}
	r := w / 2
	b := img.Bounds()
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if p.Round && dx*dx+dy*dy > r*r {
				continue
			}
			if image.Pt(x+dx, y+dy).In(b) {
				img.Set(x+dx, y+dy, p.Color)
			}
		}
	}
}

// Line strokes the segment from (x0, y0) to (x1, y1).
func Line(img *image.RGBA, x0, y0, x1, y1 int, pen Pen) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		pen.dab(img, x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// Rect strokes the outline of r.
func Rect(img *image.RGBA, r image.Rectangle, pen Pen) {
	x0, y0, x1, y1 := r.Min.X, r.Min.Y, r.Max.X-1, r.Max.Y-1
	Line(img, x0, y0, x1, y0, pen)
	Line(img, x1, y0, x1, y1, pen)
	Line(img, x1, y1, x0, y1, pen)
	Line(img, x0, y1, x0, y0, pen)
}

// FillRect composites col over r, honouring its alpha.
func FillRect(img *image.RGBA, r image.Rectangle, col color.Color) {
	draw.Draw(img, r, image.NewUniform(col), image.Point{}, draw.Over)
}

// Ellipse strokes the ellipse centred at (cx, cy).
func Ellipse(img *image.RGBA, cx, cy, rx, ry int, pen Pen) {
	steps := int(math.Ceil(2 * math.Pi * math.Sqrt(float64(rx*rx+ry*ry))))
	steps = max(steps, 8)
	px, py := cx+rx, cy
	for i := 1; i <= steps; i++ {
		a := 2 * math.Pi * float64(i) / float64(steps)
		x := cx + int(math.Round(math.Cos(a)*float64(rx)))
		y := cy + int(math.Round(math.Sin(a)*float64(ry)))
		Line(img, px, py, x, y, pen)
		px, py = x, y
	}
}

// FilledCircle paints a solid disc.
func FilledCircle(img *image.RGBA, cx, cy, r int, col color.Color) {
	Pen{Color: col, Width: 2 * r, Round: true}.dab(img, cx, cy)
}

// Arrow strokes a line with a two-stroke head of length size at its end.
func Arrow(img *image.RGBA, x0, y0, x1, y1 int, size float64, pen Pen) {
	Line(img, x0, y0, x1, y1, pen)
	angle := math.Atan2(float64(y1-y0), float64(x1-x0))
	for _, a := range []float64{angle + math.Pi/6, angle - math.Pi/6} {
		hx := x1 - int(math.Round(math.Cos(a)*size))
		hy := y1 - int(math.Round(math.Sin(a)*size))
		Line(img, x1, y1, hx, hy, pen)
	}
}

// DashedRect outlines r with alternating dashes of c1 and c2.
func DashedRect(img *image.RGBA, r image.Rectangle, dash int, c1, c2 color.Color) {
	if dash < 1 {
		dash = 1
	}
	b := img.Bounds()
	plot := func(i, x, y int) {
		if !image.Pt(x, y).In(b) {
			return
		}
		if (i/dash)%2 == 0 {
			img.Set(x, y, c1)
		} else {
			img.Set(x, y, c2)
		}
	}
	i := 0
	for x := r.Min.X; x < r.Max.X; x++ {
		plot(i, x, r.Min.Y)
		i++
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		plot(i, r.Max.X-1, y)
		i++
	}
	for x := r.Max.X - 1; x >= r.Min.X; x-- {
		plot(i, x, r.Max.Y-1)
		i++
	}
	for y := r.Max.Y - 1; y >= r.Min.Y; y-- {
		plot(i, r.Min.X, y)
		i++
	}
}

// Clear makes every pixel of img transparent.
func Clear(img *image.RGBA) {
	draw.Draw(img, img.Bounds(), image.Transparent, image.Point{}, draw.Src)
}

// Blank reports whether every pixel of img is fully transparent.
func Blank(img *image.RGBA) bool {
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0 {
			return false
		}
	}
	return true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
