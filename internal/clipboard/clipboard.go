// Package clipboard moves flattened pages and signature images through the
// system clipboard.
package clipboard

import (
	"bytes"
	"errors"
	"image"
	"image/draw"
	_ "image/jpeg"
	"image/png"
	"os"
)

var (
	errNoDisplay = errors.New("clipboard initialization requires DISPLAY or WAYLAND_DISPLAY")
	// ErrNoImage is returned when the clipboard holds no decodable image.
	ErrNoImage = errors.New("clipboard does not contain image data")
	// ErrNoText is returned when the clipboard holds no text.
	ErrNoText = errors.New("clipboard does not contain text data")
	// ErrBlank is returned when a pasted signature has no ink.
	ErrBlank = errors.New("clipboard image is blank")
)

func hasDisplay() bool {
	return os.Getenv("DISPLAY") != "" || os.Getenv("WAYLAND_DISPLAY") != ""
}

// WriteImage encodes img as PNG and publishes it to the clipboard.
func WriteImage(img image.Image) error {
	if err := ensureInit(); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return err
	}
	return writeImage(buf.Bytes())
}

// ReadImage retrieves image data from the clipboard and decodes it.
func ReadImage() (image.Image, error) {
	if err := ensureInit(); err != nil {
		return nil, err
	}
	data, err := readImage()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrNoImage
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return img, nil
}

// WriteText writes text data to the clipboard.
func WriteText(text string) error {
	if err := ensureInit(); err != nil {
		return err
	}
	return writeText([]byte(text))
}

// ReadText returns UTF-8 text data from the clipboard.
func ReadText() (string, error) {
	if err := ensureInit(); err != nil {
		return "", err
	}
	data, err := readText()
	if err != nil {
		return "", err
	}
	// Some applications include a trailing NUL in STRING responses.
	data = bytes.TrimRight(data, "\x00")
	if len(data) == 0 {
		return "", ErrNoText
	}
	return string(data), nil
}

// ReadSignature reads an image from the clipboard and crops it to its ink.
func ReadSignature() (image.Image, error) {
	img, err := ReadImage()
	if err != nil {
		return nil, err
	}
	return CropToInk(img)
}

// inkThreshold is the channel level above which an opaque pixel counts as
// paper rather than ink.
const inkThreshold = 0xf000

// Ink returns the bounds of the pixels that are neither transparent nor
// near white.
func Ink(img image.Image) image.Rectangle {
	b := img.Bounds()
	var ink image.Rectangle
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := img.At(x, y).RGBA()
			if a < 0x1000 {
				continue
			}
			// Unpremultiply before comparing against white.
			if r*0xffff/a > inkThreshold && g*0xffff/a > inkThreshold && bl*0xffff/a > inkThreshold {
				continue
			}
			ink = ink.Union(image.Rect(x, y, x+1, y+1))
		}
	}
	return ink
}

// CropToInk copies the inked part of img into a new image.
func CropToInk(img image.Image) (image.Image, error) {
	ink := Ink(img)
	if ink.Empty() {
		return nil, ErrBlank
	}
	out := image.NewNRGBA(image.Rect(0, 0, ink.Dx(), ink.Dy()))
	draw.Draw(out, out.Bounds(), img, ink.Min, draw.Src)
	return out, nil
}
