package clipboard

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"testing"
)

func paper(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return img
}

func TestInkIgnoresPaperAndTransparency(t *testing.T) {
	img := paper(40, 20)
	img.SetNRGBA(5, 5, color.NRGBA{A: 0})
	img.SetNRGBA(10, 4, color.NRGBA{A: 255})
	img.SetNRGBA(30, 12, color.NRGBA{B: 200, A: 255})
	if got, want := Ink(img), image.Rect(10, 4, 31, 13); got != want {
		t.Fatalf("Ink = %v, want %v", got, want)
	}
}

func TestCropToInk(t *testing.T) {
	img := paper(40, 20)
	img.SetNRGBA(10, 4, color.NRGBA{A: 255})
	img.SetNRGBA(12, 6, color.NRGBA{R: 90, A: 255})
	out, err := CropToInk(img)
	if err != nil {
		t.Fatal(err)
	}
	if b := out.Bounds(); b != image.Rect(0, 0, 3, 3) {
		t.Fatalf("bounds = %v", b)
	}
	if _, _, _, a := out.At(0, 0).RGBA(); a != 0xffff {
		t.Fatalf("top left alpha = %d", a)
	}
}

func TestCropToInkBlank(t *testing.T) {
	if _, err := CropToInk(paper(8, 8)); !errors.Is(err, ErrBlank) {
		t.Fatalf("expected ErrBlank, got %v", err)
	}
	if _, err := CropToInk(image.NewNRGBA(image.Rect(0, 0, 4, 4))); !errors.Is(err, ErrBlank) {
		t.Fatalf("transparent: expected ErrBlank, got %v", err)
	}
}
