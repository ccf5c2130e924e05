package render

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/example/quickmark/internal/export"
	"github.com/example/quickmark/internal/geom"
)

func TestLineRoundPen(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 20, 20))
	Line(img, 2, 10, 17, 10, Pen{Color: color.Black, Width: 3, Round: true})
	if img.RGBAAt(10, 10).A == 0 || img.RGBAAt(10, 11).A == 0 {
		t.Fatalf("expected stroke pixels")
	}
	if img.RGBAAt(10, 13).A != 0 {
		t.Fatalf("stroke too wide")
	}
}

func TestClearAndBlank(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	if !Blank(img) {
		t.Fatalf("new image should be blank")
	}
	FilledCircle(img, 2, 2, 1, color.White)
	if Blank(img) {
		t.Fatalf("image should not be blank after drawing")
	}
	Clear(img)
	if !Blank(img) {
		t.Fatalf("image should be blank after clear")
	}
}

func TestDropShadowOffsets(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 60, 60))
	page := image.Rect(10, 10, 40, 40)
	DropShadow(dst, page, ShadowOptions{Radius: 2, Offset: image.Pt(5, 5), Opacity: 1})
	if dst.RGBAAt(42, 42).A == 0 {
		t.Fatalf("expected shadow below right of page")
	}
	if dst.RGBAAt(2, 2).A != 0 {
		t.Fatalf("unexpected shadow at top left")
	}
}

func TestRasterizerHighlight(t *testing.T) {
	res := &export.Result{
		Pages: map[int]export.PageSize{1: {Width: 100, Height: 100}},
		Projections: []export.Projection{{
			Page: 1,
			Instructions: []export.Instruction{
				export.Rect{Box: geom.Rect{X: 10, Y: 70, Width: 20, Height: 20}, Fill: colorful.Color{R: 1}, Filled: true, Opacity: 1},
				export.Line{From: r2.Point{X: 50, Y: 50}, To: r2.Point{X: 90, Y: 50}, Stroke: colorful.Color{B: 1}, Width: 2},
			},
		}},
	}
	r := &Rasterizer{Zoom: 1}
	img, err := r.Compose(context.Background(), res)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if got := img.RGBAAt(20, 20); got.R != 255 || got.G != 0 {
		t.Fatalf("highlight pixel = %v", got)
	}
	if got := img.RGBAAt(70, 50); got.B != 255 {
		t.Fatalf("line pixel = %v", got)
	}
	if got := img.RGBAAt(5, 5); got != (color.RGBA{255, 255, 255, 255}) {
		t.Fatalf("background pixel = %v", got)
	}
}
