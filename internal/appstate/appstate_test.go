package appstate

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/quickmark/internal/annotation"
	"github.com/example/quickmark/internal/capture"
	"github.com/example/quickmark/internal/geom"
)

func TestEnsurePaletteColor(t *testing.T) {
	assert.Equal(t, 2, EnsurePaletteColor(color.RGBA{255, 0, 0, 255}, "Red"))
	n := len(PaletteColors())
	idx := EnsurePaletteColor(color.RGBA{1, 2, 3, 255}, "")
	assert.Equal(t, n, idx)
	pc := PaletteColors()[idx]
	assert.Equal(t, annotation.HexColor(color.RGBA{1, 2, 3, 255}), pc.Name)
	assert.Equal(t, idx, EnsurePaletteColor(color.RGBA{1, 2, 3, 255}, "again"))
}

func TestDefaultColorIsYellow(t *testing.T) {
	assert.Equal(t, annotation.Yellow, paletteColorAt(DefaultColorIndex()))
	assert.Equal(t, "Yellow", paletteNameAt(DefaultColorIndex()))
	assert.Equal(t, 0, clampColorIndex(-3))
}

func TestProxyRecord(t *testing.T) {
	_, ok := proxyRecord(capture.Proxy{Tool: capture.ToolRectangle})
	assert.False(t, ok)

	box := geom.Rect{X: 5, Y: 5, Width: 20, Height: 10}
	r, ok := proxyRecord(capture.Proxy{Visible: true, Page: 2, Tool: capture.ToolCircle, Box: box})
	require.True(t, ok)
	assert.Equal(t, annotation.Shape, r.Kind)
	assert.Equal(t, annotation.Circle, r.Shape)
	assert.Equal(t, 2, r.Page)

	seg := geom.SegmentFromPoints(pt(0, 0), pt(10, 0))
	r, ok = proxyRecord(capture.Proxy{Visible: true, Tool: capture.ToolArrow, Line: seg})
	require.True(t, ok)
	assert.Equal(t, annotation.Arrow, r.Shape)
	assert.Equal(t, seg, r.Line)

	r, ok = proxyRecord(capture.Proxy{Visible: true, Tool: capture.ToolStrikethrough, Box: box})
	require.True(t, ok)
	assert.Equal(t, annotation.Strikethrough, r.Decoration)

	_, ok = proxyRecord(capture.Proxy{Visible: true, Tool: capture.ToolDraw})
	assert.False(t, ok)
}

func TestShortcutBarDoesNotOverlap(t *testing.T) {
	bar := shortcutBar([][2]string{{"^S:Export", "export"}, {"Q:Quit", "quit"}}, 400)
	require.Len(t, bar, 2)
	assert.False(t, bar[0].rect.Overlaps(bar[1].rect))
	assert.True(t, image.Pt(bar[1].rect.Min.X+1, 390).In(bar[1].rect))
	assert.Equal(t, "quit", bar[1].action)
}

func TestSwatchesStayInToolbar(t *testing.T) {
	top := paletteTop(len(toolSpecs) + 2)
	for i := range 16 {
		r := swatchRect(top, i)
		assert.LessOrEqual(t, r.Max.X, toolbarWidth)
		assert.GreaterOrEqual(t, r.Min.Y, top)
	}
}
