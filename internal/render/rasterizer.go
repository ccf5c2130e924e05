package render

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"slices"

	"github.com/lucasb-eyer/go-colorful"
	xdraw "golang.org/x/image/draw"

	"github.com/example/quickmark/internal/export"
)

// pageGap separates stacked pages in a composed image.
const pageGap = 16

// Rasterizer draws export results onto page images. It implements
// export.Sink by writing a PNG with every page stacked vertically.
type Rasterizer struct {
	// Zoom is the number of pixels per PDF point.
	Zoom float64
	// Background returns the rendered page, or nil for a blank page.
	Background func(page int) (image.Image, error)
	// Path receives the PNG written by Apply.
	Path string
}

var _ export.Sink = (*Rasterizer)(nil)

// Apply composes every page of res and writes it to r.Path as PNG.
func (r *Rasterizer) Apply(ctx context.Context, res *export.Result) error {
	img, err := r.Compose(ctx, res)
	if err != nil {
		return err
	}
	f, err := os.Create(r.Path)
	if err != nil {
		return fmt.Errorf("create %s: %w", r.Path, err)
	}
	if err := png.Encode(f, img); err != nil {
		if cerr := f.Close(); cerr != nil {
			return fmt.Errorf("encode %s: %w (close: %v)", r.Path, err, cerr)
		}
		return fmt.Errorf("encode %s: %w", r.Path, err)
	}
	return f.Close()
}

// Compose draws every page of res and stacks them top to bottom.
func (r *Rasterizer) Compose(ctx context.Context, res *export.Result) (*image.RGBA, error) {
	pages := make([]int, 0, len(res.Pages))
	for p := range res.Pages {
		pages = append(pages, p)
	}
	slices.Sort(pages)

	var rendered []*image.RGBA
	w, h := 0, 0
	for _, p := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := r.Page(res, p)
		if err != nil {
			return nil, err
		}
		rendered = append(rendered, img)
		w = max(w, img.Bounds().Dx())
		if h > 0 {
			h += pageGap
		}
		h += img.Bounds().Dy()
	}
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	y := 0
	for _, img := range rendered {
		b := img.Bounds()
		draw.Draw(out, b.Add(image.Pt(0, y)), img, b.Min, draw.Src)
		y += b.Dy() + pageGap
	}
	return out, nil
}

// Page draws the instructions for one page over its background.
func (r *Rasterizer) Page(res *export.Result, page int) (*image.RGBA, error) {
	size, ok := res.Pages[page]
	if !ok {
		return nil, fmt.Errorf("page %d not in export", page)
	}
	k := r.Zoom
	if k <= 0 {
		k = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, int(math.Ceil(size.Width*k)), int(math.Ceil(size.Height*k))))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	if r.Background != nil {
		bg, err := r.Background(page)
		if err != nil {
			return nil, fmt.Errorf("page %d background: %w", page, err)
		}
		if bg != nil {
			xdraw.CatmullRom.Scale(dst, dst.Bounds(), bg, bg.Bounds(), draw.Over, nil)
		}
	}
	c := canvas{dst: dst, k: k, h: size.Height}
	for _, in := range res.Page(page) {
		c.draw(in)
	}
	return dst, nil
}

type canvas struct {
	dst *image.RGBA
	k   float64
	h   float64
}

func (c canvas) pt(x, y float64) image.Point {
	return image.Pt(int(math.Round(x*c.k)), int(math.Round((c.h-y)*c.k)))
}

func (c canvas) pen(col colorful.Color, width float64) Pen {
	return Pen{Color: nrgba(col, 1), Width: max(1, int(math.Round(width*c.k))), Round: true}
}

func nrgba(c colorful.Color, opacity float64) color.NRGBA {
	r, g, b := c.Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: uint8(math.Round(opacity * 255))}
}

func (c canvas) draw(in export.Instruction) {
	switch v := in.(type) {
	case export.Rect:
		rect := image.Rectangle{Min: c.pt(v.Box.X, v.Box.Y+v.Box.Height), Max: c.pt(v.Box.X+v.Box.Width, v.Box.Y)}
		if v.Filled {
			FillRect(c.dst, rect, nrgba(v.Fill, v.Opacity))
		}
		if v.Stroked() {
			Rect(c.dst, rect, c.pen(v.Stroke, v.Width))
		}
	case export.Ellipse:
		ctr := c.pt(v.Center.X, v.Center.Y)
		Ellipse(c.dst, ctr.X, ctr.Y, int(math.Round(v.RX*c.k)), int(math.Round(v.RY*c.k)), c.pen(v.Stroke, v.Width))
	case export.Line:
		a := c.pt(v.From.X, v.From.Y)
		b := c.pt(v.To.X, v.To.Y)
		Line(c.dst, a.X, a.Y, b.X, b.Y, c.pen(v.Stroke, v.Width))
	case export.Image:
		if v.Image == nil {
			return
		}
		rect := image.Rectangle{Min: c.pt(v.Box.X, v.Box.Y+v.Box.Height), Max: c.pt(v.Box.X+v.Box.Width, v.Box.Y)}
		xdraw.CatmullRom.Scale(c.dst, rect, v.Image, v.Image.Bounds(), draw.Over, nil)
	case export.Text:
		at := c.pt(v.At.X, v.At.Y)
		_ = TextBaseline(c.dst, at.X, at.Y, v.Text, nrgba(v.Color, 1), v.Size*c.k)
	}
}
