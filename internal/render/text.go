package render

import (
	"fmt"
	"image"
	"image/color"
	"log"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

var (
	regular   *opentype.Font
	faceCache sync.Map // map[float64]font.Face
)

func init() {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		log.Fatalf("parse font: %v", err)
	}
	regular = f
}

// Face returns the regular UI face at size points, caching faces per size.
func Face(size float64) (font.Face, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid font size %v", size)
	}
	if face, ok := faceCache.Load(size); ok {
		return face.(font.Face), nil
	}
	face, err := opentype.NewFace(regular, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, err
	}
	faceCache.Store(size, face)
	return face, nil
}

// MeasureText returns the dimensions of text at size. baseline is the offset
// from the top of the box to the baseline.
func MeasureText(text string, size float64) (width, height, baseline int, err error) {
	face, err := Face(size)
	if err != nil {
		return 0, 0, 0, err
	}
	m := face.Metrics()
	width = font.MeasureString(face, text).Ceil()
	baseline = m.Ascent.Ceil()
	height = baseline + m.Descent.Ceil()
	return width, height, baseline, nil
}

// Text draws text with its top-left corner at (x, y).
func Text(img *image.RGBA, x, y int, text string, col color.Color, size float64) error {
	face, err := Face(size)
	if err != nil {
		return err
	}
	return TextBaseline(img, x, y+face.Metrics().Ascent.Ceil(), text, col, size)
}

// TextBaseline draws text with its baseline starting at (x, y).
func TextBaseline(img *image.RGBA, x, y int, text string, col color.Color, size float64) error {
	face, err := Face(size)
	if err != nil {
		return err
	}
	d := &font.Drawer{Dst: img, Src: image.NewUniform(col), Face: face, Dot: fixed.P(x, y)}
	d.DrawString(text)
	return nil
}
