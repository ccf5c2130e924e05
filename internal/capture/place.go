package capture

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/golang/geo/r2"
	"github.com/nfnt/resize"

	"github.com/example/quickmark/internal/annotation"
	"github.com/example/quickmark/internal/geom"
	"github.com/example/quickmark/internal/license"
	"github.com/example/quickmark/internal/render"
)

// SignatureWidth is the display width a placed signature is scaled to.
const SignatureWidth = 150

// TextSize is the point size of placed text boxes before zoom.
const TextSize = 12

// PlaceText adds a text box with its top-left at the page-relative point at.
// Text boxes are a free feature and need no armed tool.
func (m *Machine) PlaceText(page int, at r2.Point, text string) (annotation.ID, error) {
	if !m.gate.Permitted(license.FeatureText) {
		return "", fmt.Errorf("text: %w", license.ErrNotPermitted)
	}
	if m.layout.Page(page) == nil {
		return "", fmt.Errorf("text on page %d: %w", page, annotation.ErrMissingPage)
	}
	w, h, _, err := render.MeasureText(text, TextSize*m.layout.Zoom)
	if err != nil {
		return "", err
	}
	return m.add(annotation.Record{
		Kind:  annotation.TextBox,
		Page:  page,
		Box:   geom.Rect{X: at.X, Y: at.Y, Width: float64(w), Height: float64(h)},
		Text:  text,
		Color: annotation.Yellow,
	})
}

// PlaceSignature scales sig to SignatureWidth display pixels, keeping its
// aspect ratio, and adds it with its top-left at at.
func (m *Machine) PlaceSignature(page int, at r2.Point, sig image.Image) (annotation.ID, error) {
	if !m.gate.Permitted(license.FeatureSignature) {
		return "", fmt.Errorf("signature: %w", license.ErrNotPermitted)
	}
	if m.layout.Page(page) == nil {
		return "", fmt.Errorf("signature on page %d: %w", page, annotation.ErrMissingPage)
	}
	if sig == nil || sig.Bounds().Empty() {
		return "", fmt.Errorf("signature: %w", annotation.ErrDegenerate)
	}
	scaled := resize.Resize(SignatureWidth, 0, sig, resize.Lanczos3)
	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return "", fmt.Errorf("encode signature: %w", err)
	}
	size := scaled.Bounds().Size()
	return m.add(annotation.Record{
		Kind:  annotation.Signature,
		Page:  page,
		Box:   geom.Rect{X: at.X, Y: at.Y, Width: float64(size.X), Height: float64(size.Y)},
		Image: buf.Bytes(),
	})
}
