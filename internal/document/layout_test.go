package document

import (
	"image"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/quickmark/internal/export"
)

func letterDoc() *Document {
	return Blank(export.PageSize{Width: 612, Height: 792}, export.PageSize{Width: 612, Height: 792})
}

func TestLayoutStacksPages(t *testing.T) {
	l := NewLayout(letterDoc().Pages, 1.5, WithOrigin(r2.Point{X: 48, Y: 24}))
	require.Len(t, l.Pages, 2)
	assert.Equal(t, image.Pt(918, 1188), l.Pages[0].Display)
	assert.Equal(t, r2.Point{X: 48, Y: 24 + 1188 + PageGap}, l.PageOrigin(l.Pages[1]))
	assert.Equal(t, image.Pt(918, 2*1188+PageGap), l.Extent())
}

func TestPageAtIgnoresScroll(t *testing.T) {
	l := NewLayout(letterDoc().Pages, 1, WithOrigin(r2.Point{X: 10, Y: 10}))
	p, rel, ok := l.PageAt(r2.Point{X: 110, Y: 60})
	require.True(t, ok)
	assert.Equal(t, 1, p.Number)
	assert.Equal(t, r2.Point{X: 100, Y: 50}, rel)

	l.Scroll = r2.Point{Y: 300}
	p, rel, ok = l.PageAt(r2.Point{X: 110, Y: 60 - 300})
	require.True(t, ok)
	assert.Equal(t, 1, p.Number)
	assert.Equal(t, r2.Point{X: 100, Y: 50}, rel)

	_, _, ok = l.PageAt(r2.Point{X: 5, Y: 5})
	assert.False(t, ok)
}

func TestCanvasBackingStore(t *testing.T) {
	l := NewLayout(letterDoc().Pages[:1], 1, WithPixelRatio(2))
	p := l.Page(1)
	assert.Equal(t, image.Pt(1224, 1584), p.Canvas.Bounds().Size())
	sx, sy := p.CanvasScale()
	assert.Equal(t, 2.0, sx)
	assert.Equal(t, 2.0, sy)
	assert.Nil(t, l.Page(7))
}

func TestBlankRender(t *testing.T) {
	d := letterDoc()
	img, err := d.Render(2, 0.5)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(306, 396), img.Bounds().Size())
	again, err := d.Render(2, 0.5)
	require.NoError(t, err)
	assert.Same(t, img, again)
	_, err = d.Render(3, 1)
	assert.Error(t, err)
	assert.Equal(t, export.PageSize{Width: 612, Height: 792}, d.Sizes()[1])
	assert.NoError(t, d.Close())
}

func TestSetZoomRelaysPages(t *testing.T) {
	l := NewLayout(letterDoc().Pages, 1, WithPixelRatio(2))
	l.Scroll = r2.Point{Y: 100}
	f := l.SetZoom(1.5)
	assert.Equal(t, 1.5, f)
	assert.Equal(t, 1.5, l.Zoom)
	assert.Equal(t, r2.Point{Y: 150}, l.Scroll)
	assert.Equal(t, image.Pt(918, 1188), l.Page(2).Display)
	assert.Equal(t, image.Pt(1836, 2376), l.Page(2).Canvas.Bounds().Size())
	assert.Equal(t, r2.Point{Y: 1188 + PageGap - 150}, l.PageOrigin(l.Page(2)))

	assert.Equal(t, 1.0, l.SetZoom(0))
	assert.Equal(t, 1.5, l.Zoom)
}
