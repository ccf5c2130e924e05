// Package document reads page geometry and renders page rasters for the
// annotation tools. It is the only package that parses PDF files for display.
package document

import (
	"fmt"
	"image"
	"image/draw"
	"io"
	"os"
	"sync"

	fitz "github.com/gen2brain/go-fitz"
	"github.com/mgmeyers/unipdf/v3/model"

	"github.com/example/quickmark/internal/export"
)

// PageInfo is the geometry of one page in PDF points, with rotation applied.
type PageInfo struct {
	Number int     `yaml:"page"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
	Rotate int     `yaml:"rotate,omitempty"`
}

// Document is an opened PDF.
type Document struct {
	Path  string
	Pages []PageInfo

	mu     sync.Mutex
	raster *fitz.Document
	cache  map[renderKey]*image.RGBA
}

type renderKey struct {
	page int
	zoom float64
}

// Open reads the page geometry of path and prepares it for rendering.
func Open(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	pages, err := ReadPages(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	raster, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open %s for rendering: %w", path, err)
	}
	return &Document{Path: path, Pages: pages, raster: raster, cache: map[renderKey]*image.RGBA{}}, nil
}

// Blank returns a document of empty pages with the given sizes. It renders
// plain white pages.
func Blank(sizes ...export.PageSize) *Document {
	d := &Document{cache: map[renderKey]*image.RGBA{}}
	for i, s := range sizes {
		d.Pages = append(d.Pages, PageInfo{Number: i + 1, Width: s.Width, Height: s.Height, Rotate: NormalizeRotation(s.Rotate)})
	}
	return d
}

// ReadPages returns the geometry of every page in r.
func ReadPages(r io.ReadSeeker) ([]PageInfo, error) {
	reader, err := model.NewPdfReader(r)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	n, err := reader.GetNumPages()
	if err != nil {
		return nil, fmt.Errorf("count pages: %w", err)
	}
	pages := make([]PageInfo, 0, n)
	for i := 0; i < n; i++ {
		page, err := reader.GetPage(i + 1)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		if page.MediaBox == nil {
			return nil, fmt.Errorf("page %d: no media box", i+1)
		}
		info := PageInfo{Number: i + 1, Width: page.MediaBox.Width(), Height: page.MediaBox.Height()}
		if page.Rotate != nil {
			info.Rotate = NormalizeRotation(int(*page.Rotate))
			if info.Rotate == 90 || info.Rotate == 270 {
				info.Width, info.Height = info.Height, info.Width
			}
		}
		pages = append(pages, info)
	}
	return pages, nil
}

// NormalizeRotation maps a /Rotate value onto 0, 90, 180 or 270.
func NormalizeRotation(deg int) int {
	deg = ((deg % 360) + 360) % 360
	return deg / 90 * 90
}

// Page returns the info for the 1-based page n.
func (d *Document) Page(n int) (PageInfo, bool) {
	if n < 1 || n > len(d.Pages) {
		return PageInfo{}, false
	}
	return d.Pages[n-1], true
}

// Sizes returns the page sizes keyed by page number, as used by export.
func (d *Document) Sizes() map[int]export.PageSize {
	out := make(map[int]export.PageSize, len(d.Pages))
	for _, p := range d.Pages {
		out[p.Number] = export.PageSize{Width: p.Width, Height: p.Height, Rotate: p.Rotate}
	}
	return out
}

// Render rasterizes page n at zoom pixels per point. Results are cached.
func (d *Document) Render(n int, zoom float64) (*image.RGBA, error) {
	info, ok := d.Page(n)
	if !ok {
		return nil, fmt.Errorf("page %d out of range", n)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	key := renderKey{page: n, zoom: zoom}
	if img, ok := d.cache[key]; ok {
		return img, nil
	}
	var img *image.RGBA
	if d.raster == nil {
		img = image.NewRGBA(image.Rect(0, 0, int(info.Width*zoom+0.5), int(info.Height*zoom+0.5)))
		for i := range img.Pix {
			img.Pix[i] = 0xff
		}
	} else {
		raw, err := d.raster.ImageDPI(n-1, 72*zoom)
		if err != nil {
			return nil, fmt.Errorf("render page %d: %w", n, err)
		}
		img = toRGBA(raw)
	}
	d.cache[key] = img
	return img, nil
}

// toRGBA returns img itself when it is already an RGBA anchored at the
// origin, otherwise a copy.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

// Background adapts Render to the rasterizer's background callback.
func (d *Document) Background(zoom float64) func(int) (image.Image, error) {
	return func(n int) (image.Image, error) {
		img, err := d.Render(n, zoom)
		if err != nil {
			return nil, err
		}
		return img, nil
	}
}

// Close releases the renderer.
func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cache = map[renderKey]*image.RGBA{}
	if d.raster == nil {
		return nil
	}
	err := d.raster.Close()
	d.raster = nil
	return err
}
