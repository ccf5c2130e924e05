package document

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/example/quickmark/internal/export"
)

func TestToRGBAConvertsOtherModels(t *testing.T) {
	src := image.NewNRGBA(image.Rect(5, 5, 9, 8))
	src.Set(5, 5, color.NRGBA{R: 255, A: 255})
	src.Set(8, 7, color.NRGBA{B: 255, A: 255})

	out := toRGBA(src)
	assert.Equal(t, image.Rect(0, 0, 4, 3), out.Bounds())
	assert.Equal(t, color.RGBA{R: 255, A: 255}, out.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{B: 255, A: 255}, out.RGBAAt(3, 2))
}

func TestToRGBAKeepsRGBA(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	assert.Same(t, src, toRGBA(src))
}

func TestNormalizeRotation(t *testing.T) {
	for in, want := range map[int]int{0: 0, 90: 90, 450: 90, -90: 270, 180: 180, -180: 180, 360: 0} {
		assert.Equal(t, want, NormalizeRotation(in), "rotate %d", in)
	}
}

func TestSizesCarryRotation(t *testing.T) {
	d := Blank(export.PageSize{Width: 792, Height: 612, Rotate: -270})
	assert.Equal(t, export.PageSize{Width: 792, Height: 612, Rotate: 90}, d.Sizes()[1])
}
