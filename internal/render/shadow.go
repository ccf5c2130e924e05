package render

import (
	"image"
	"image/color"
	"image/draw"
	"sync"
)

// ShadowOptions configures the drop shadow painted behind each page.
type ShadowOptions struct {
	Radius  int
	Offset  image.Point
	Opacity float64
}

// DefaultShadowOptions returns a soft shadow suited to document pages.
func DefaultShadowOptions() ShadowOptions {
	return ShadowOptions{Radius: 8, Offset: image.Pt(4, 4), Opacity: 0.45}
}

type shadowKey struct {
	size image.Point
	opts ShadowOptions
}

var shadowMasks sync.Map // map[shadowKey]*image.Gray

// DropShadow paints the shadow of an opaque page occupying r onto dst. Masks
// are cached per page size since every page of a document usually matches.
func DropShadow(dst *image.RGBA, r image.Rectangle, opts ShadowOptions) {
	if r.Empty() || opts.Opacity <= 0 {
		return
	}
	opts.Radius = max(opts.Radius, 0)
	opts.Opacity = min(opts.Opacity, 1)
	key := shadowKey{size: r.Size(), opts: opts}
	var mask *image.Gray
	if m, ok := shadowMasks.Load(key); ok {
		mask = m.(*image.Gray)
	} else {
		mask = shadowMask(r.Size(), opts.Radius)
		shadowMasks.Store(key, mask)
	}
	at := r.Inset(-opts.Radius).Add(opts.Offset)
	shade := image.NewUniform(color.RGBA{A: uint8(opts.Opacity*255 + 0.5)})
	draw.DrawMask(dst, at, shade, image.Point{}, mask, image.Point{}, draw.Over)
}

func shadowMask(size image.Point, radius int) *image.Gray {
	mask := image.NewGray(image.Rect(0, 0, size.X+2*radius, size.Y+2*radius))
	draw.Draw(mask, image.Rect(radius, radius, radius+size.X, radius+size.Y), image.White, image.Point{}, draw.Src)
	if radius == 0 {
		return mask
	}
	w, h := mask.Rect.Dx(), mask.Rect.Dy()
	tmp := make([]uint8, len(mask.Pix))
	for y := 0; y < h; y++ {
		boxBlur(tmp[y*mask.Stride:], mask.Pix[y*mask.Stride:], w, 1, radius)
	}
	for x := 0; x < w; x++ {
		boxBlur(mask.Pix[x:], tmp[x:], h, mask.Stride, radius)
	}
	return mask
}

// boxBlur averages n samples of src spaced step apart into dst using a
// window of radius on each side, clamped at the ends.
func boxBlur(dst, src []uint8, n, step, radius int) {
	prefix := make([]int, n+1)
	for i := 0; i < n; i++ {
		prefix[i+1] = prefix[i] + int(src[i*step])
	}
	for i := 0; i < n; i++ {
		lo := max(i-radius, 0)
		hi := min(i+radius, n-1)
		dst[i*step] = uint8((prefix[hi+1] - prefix[lo]) / (hi - lo + 1))
	}
}
