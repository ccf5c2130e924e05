package appstate

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log"
	"sync"
	"time"

	"github.com/golang/geo/r2"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"golang.org/x/exp/shiny/screen"
	"golang.org/x/mobile/event/key"

	"github.com/example/quickmark/internal/annotation"
	"github.com/example/quickmark/internal/capture"
	"github.com/example/quickmark/internal/document"
	"github.com/example/quickmark/internal/overlay"
	"github.com/example/quickmark/internal/render"
	"github.com/example/quickmark/internal/theme"
)

const (
	tabHeight    = 24
	bottomHeight = 24
	buttonHeight = 24
	tabWidth     = 40
	swatchSize   = 16
	swatchStep   = 18
	pageMargin   = 16
	scrollStep   = 48
)

var toolbarWidth = 48

// frameDropThreshold specifies how many consecutive frames can be canceled
// before a draw is allowed to complete to keep the UI responsive.
const frameDropThreshold = 10

const (
	minZoom        = 0.25
	maxZoom        = 6.0
	zoomStep       = 1.25
	messageTimeout = 2 * time.Second
	messageSize    = 28
	inputSize      = 12
)

// defaultColorIndex is yellow, the highlighter default.
const defaultColorIndex = 5

// PaletteColor is a named drawing colour.
type PaletteColor struct {
	Name  string
	Color color.RGBA
}

var (
	paletteMu sync.RWMutex
	palette   = []color.RGBA{
		{0, 0, 0, 255},
		{255, 255, 255, 255},
		{255, 0, 0, 255},
		{0, 255, 0, 255},
		{0, 0, 255, 255},
		{255, 255, 0, 255},
		{0, 255, 255, 255},
		{255, 0, 255, 255},
		{255, 165, 0, 255},
		{0, 128, 0, 255},
		{0, 0, 128, 255},
		{128, 128, 0, 255},
		{0, 128, 128, 255},
		{128, 0, 128, 255},
		{255, 192, 203, 255},
		{128, 128, 128, 255},
	}
	paletteNames = []string{
		"Black",
		"White",
		"Red",
		"Lime",
		"Blue",
		"Yellow",
		"Cyan",
		"Magenta",
		"Orange",
		"Green",
		"Navy",
		"Olive",
		"Teal",
		"Purple",
		"Pink",
		"Gray",
	}
)

// DefaultColorIndex returns the palette index used when none is configured.
func DefaultColorIndex() int { return defaultColorIndex }

// PaletteColors returns palette entries with their display names.
func PaletteColors() []PaletteColor {
	paletteMu.RLock()
	defer paletteMu.RUnlock()
	out := make([]PaletteColor, len(palette))
	for i := range palette {
		out[i] = PaletteColor{Name: paletteNames[i], Color: palette[i]}
	}
	return out
}

// EnsurePaletteColor makes sure col is present in the palette and returns its index.
func EnsurePaletteColor(col color.RGBA, name string) int {
	paletteMu.Lock()
	defer paletteMu.Unlock()
	for idx, existing := range palette {
		if existing == col {
			return idx
		}
	}
	if name == "" {
		name = annotation.HexColor(col)
	}
	palette = append(palette, col)
	paletteNames = append(paletteNames, name)
	return len(palette) - 1
}

func paletteLen() int {
	paletteMu.RLock()
	defer paletteMu.RUnlock()
	return len(palette)
}

func paletteColorAt(idx int) color.RGBA {
	paletteMu.RLock()
	defer paletteMu.RUnlock()
	if len(palette) == 0 {
		return annotation.Yellow
	}
	return palette[max(0, min(idx, len(palette)-1))]
}

func paletteNameAt(idx int) string {
	paletteMu.RLock()
	defer paletteMu.RUnlock()
	if len(paletteNames) == 0 {
		return ""
	}
	return paletteNames[max(0, min(idx, len(paletteNames)-1))]
}

func clampColorIndex(idx int) int {
	n := paletteLen()
	if n == 0 {
		return 0
	}
	return max(0, min(idx, n-1))
}

// KeyShortcut describes a keyboard combination that triggers an action.
type KeyShortcut struct {
	Rune      rune
	Code      key.Code
	Modifiers key.Modifiers
}

// KeyboardShortcuts returns the shortcuts associated with an action.
type KeyboardShortcuts interface {
	KeyboardShortcuts() []KeyShortcut
}

// shortcutList is a helper to easily satisfy the KeyboardShortcuts interface.
type shortcutList []KeyShortcut

func (s shortcutList) KeyboardShortcuts() []KeyShortcut { return []KeyShortcut(s) }

// toolSpec binds a capture tool to its toolbar label and key.
type toolSpec struct {
	tool  capture.Tool
	key   rune
	label string
}

var toolSpecs = []toolSpec{
	{capture.ToolHighlight, 'h', "H:Hilite"},
	{capture.ToolDraw, 'b', "B:Draw"},
	{capture.ToolRectangle, 'x', "X:Rect"},
	{capture.ToolCircle, 'o', "O:Circle"},
	{capture.ToolLine, 'l', "L:Line"},
	{capture.ToolArrow, 'a', "A:Arrow"},
	{capture.ToolNote, 'n', "N:Note"},
	{capture.ToolUnderline, 'u', "U:Under"},
	{capture.ToolStrikethrough, 'k', "K:Strike"},
}

// Labels of the placement buttons below the tools.
const (
	textLabel = "T:Text"
	signLabel = "G:Sign"
)

// ButtonState describes the visual state of a button.
type ButtonState int

const (
	StateDefault ButtonState = iota
	StateHover
	StatePressed
)

// Button represents an interactive UI element.
// Activate performs the button's action when clicked.
type Button interface {
	Draw(dst *image.RGBA, state ButtonState)
	Rect() image.Rectangle
	SetRect(r image.Rectangle)
	Activate()
}

// CacheButton wraps another Button and caches its rendered states. The cache
// is only touched by the paint goroutine.
type CacheButton struct {
	Button
	cache [3]*image.RGBA
}

var _ Button = (*CacheButton)(nil)

func (cb *CacheButton) Draw(dst *image.RGBA, state ButtonState) {
	if cb.cache[state] == nil {
		rect := cb.Button.Rect()
		img := image.NewRGBA(rect)
		cb.Button.Draw(img, state)
		cb.cache[state] = img
	}
	draw.Draw(dst, cb.Button.Rect(), cb.cache[state], cb.Button.Rect().Min, draw.Src)
}

func (cb *CacheButton) SetRect(r image.Rectangle) {
	if r != cb.Button.Rect() {
		cb.Button.SetRect(r)
		cb.cache = [3]*image.RGBA{}
	}
}

func buttonFill(th *theme.Theme, state ButtonState) color.RGBA {
	switch state {
	case StateHover:
		return th.ButtonBackgroundHover
	case StatePressed:
		return th.ButtonBackgroundPress
	}
	return th.ButtonBackground
}

func drawLabel(dst *image.RGBA, x, y int, label string, col color.Color) {
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(col), Face: basicfont.Face7x13, Dot: fixed.P(x, y)}
	d.DrawString(label)
}

// ToolButton selects an annotation tool. Disabled buttons belong to
// premium tools without a license and still report why on click.
type ToolButton struct {
	label    string
	tool     capture.Tool
	disabled bool
	theme    *theme.Theme
	rect     image.Rectangle
	onSelect func()
}

func (tb *ToolButton) Draw(dst *image.RGBA, state ButtonState) {
	draw.Draw(dst, tb.rect, &image.Uniform{buttonFill(tb.theme, state)}, image.Point{}, draw.Src)
	ink := tb.theme.ButtonText
	if tb.disabled {
		ink = tb.theme.ButtonTextDisabled
	}
	drawLabel(dst, tb.rect.Min.X+4, tb.rect.Min.Y+16, tb.label, ink)
}

func (tb *ToolButton) Rect() image.Rectangle { return tb.rect }

func (tb *ToolButton) SetRect(r image.Rectangle) { tb.rect = r }

func (tb *ToolButton) Activate() {
	if tb.onSelect != nil {
		tb.onSelect()
	}
}

// Shortcut is a clickable entry in the bottom bar naming a keyboard action.
type Shortcut struct {
	label  string
	action string
	rect   image.Rectangle
}

func (s *Shortcut) draw(dst *image.RGBA, th *theme.Theme, state ButtonState) {
	draw.Draw(dst, s.rect, &image.Uniform{buttonFill(th, state)}, image.Point{}, draw.Src)
	render.Rect(dst, s.rect, render.Pen{Color: th.ButtonBorder, Width: 1})
	drawLabel(dst, s.rect.Min.X+2, s.rect.Min.Y+14, s.label, th.ButtonText)
}

// TabButton jumps to a page from the header bar.
type TabButton struct {
	label string
	page  int
	rect  image.Rectangle
}

func (tb *TabButton) draw(dst *image.RGBA, th *theme.Theme, state ButtonState) {
	draw.Draw(dst, tb.rect, &image.Uniform{buttonFill(th, state)}, image.Point{}, draw.Src)
	drawLabel(dst, tb.rect.Min.X+4, tb.rect.Min.Y+16, tb.label, th.HeaderText)
}

// measureToolbar widens the toolbar so the title and every button label fit.
func measureToolbar() {
	d := &font.Drawer{Face: basicfont.Face7x13}
	w := d.MeasureString("QuickMark").Ceil() + 8
	labels := []string{textLabel, signLabel}
	for _, ts := range toolSpecs {
		labels = append(labels, ts.label)
	}
	for _, lbl := range labels {
		w = max(w, d.MeasureString(lbl).Ceil()+8)
	}
	toolbarWidth = max(toolbarWidth, w)
}

func toolButtonRect(i int) image.Rectangle {
	y := tabHeight + i*buttonHeight
	return image.Rect(0, y, toolbarWidth, y+buttonHeight)
}

// paletteTop is the y of the first swatch row below n buttons.
func paletteTop(n int) int { return tabHeight + n*buttonHeight + 4 }

func swatchRect(top, i int) image.Rectangle {
	cols := max(1, (toolbarWidth-4)/swatchStep)
	x := 4 + (i%cols)*swatchStep
	y := top + (i/cols)*swatchStep
	return image.Rect(x, y, x+swatchSize, y+swatchSize)
}

// shortcutBar lays out the bottom bar entries from the left.
func shortcutBar(labels [][2]string, height int) []Shortcut {
	meas := &font.Drawer{Face: basicfont.Face7x13}
	x := toolbarWidth + 4
	y := height - bottomHeight + 16
	out := make([]Shortcut, 0, len(labels))
	for _, l := range labels {
		w := meas.MeasureString(l[0]).Ceil()
		sc := Shortcut{label: l[0], action: l[1], rect: image.Rect(x-2, y-14, x+w+2, y+4)}
		out = append(out, sc)
		x = sc.rect.Max.X + 8
	}
	return out
}

func pageTabs(pages []*document.Page) []TabButton {
	out := make([]TabButton, 0, len(pages))
	x := toolbarWidth
	for _, p := range pages {
		out = append(out, TabButton{label: fmt.Sprint(p.Number), page: p.Number, rect: image.Rect(x, 0, x+tabWidth, tabHeight)})
		x += tabWidth
	}
	return out
}

type inputKind int

const (
	inputNone inputKind = iota
	inputText
	inputNote
)

// inputState is the text being typed for a text box or note.
type inputState struct {
	kind inputKind
	text string
	// at is the screen point the text box or note is anchored to.
	at r2.Point
}

func (in inputState) active() bool { return in.kind != inputNone }

type pageView struct {
	number int
	rect   image.Rectangle
	// stroke is a copy of the freehand canvas while a stroke is drawn.
	stroke *image.RGBA
}

type paintState struct {
	width, height int
	theme         *theme.Theme
	doc           *document.Document
	zoom          float64
	status        string

	pages   []pageView
	current int
	tabs    []TabButton
	scene   overlay.Scene
	cache   *overlay.ImageCache

	proxy       *annotation.Record
	proxyOrigin r2.Point

	tools        []*CacheButton
	tool         capture.Tool
	placing      bool
	colorIdx     int
	hoverTool    int
	hoverPalette int
	hoverTab     int

	shortcuts     []Shortcut
	hoverShortcut int

	input        inputState
	message      string
	messageUntil time.Time
}

func contentRect(width, height int) image.Rectangle {
	return image.Rect(toolbarWidth, tabHeight, width, height-bottomHeight)
}

func drawFrame(ctx context.Context, s screen.Screen, w screen.Window, st paintState) {
	b, err := s.NewBuffer(image.Point{st.width, st.height})
	if err != nil {
		log.Printf("new buffer: %v", err)
		return
	}
	defer b.Release()
	dst := b.RGBA()
	th := st.theme

	draw.Draw(dst, dst.Bounds(), &image.Uniform{th.Background}, image.Point{}, draw.Src)
	content := contentRect(st.width, st.height)
	shadow := render.DefaultShadowOptions()
	for _, pv := range st.pages {
		if ctx.Err() != nil {
			return
		}
		if !pv.rect.Overlaps(content) {
			continue
		}
		render.DropShadow(dst, pv.rect, shadow)
		bg, err := st.doc.Render(pv.number, st.zoom)
		if err != nil {
			log.Printf("render page %d: %v", pv.number, err)
			draw.Draw(dst, pv.rect, image.White, image.Point{}, draw.Src)
		} else if bg.Bounds().Size() == pv.rect.Size() {
			draw.Draw(dst, pv.rect, bg, bg.Bounds().Min, draw.Src)
		} else {
			xdraw.ApproxBiLinear.Scale(dst, pv.rect, bg, bg.Bounds(), draw.Src, nil)
		}
		render.Rect(dst, pv.rect.Inset(-1), render.Pen{Color: th.PageBorder, Width: 1})
	}
	if ctx.Err() != nil {
		return
	}

	st.scene.Draw(dst, st.cache)
	for _, pv := range st.pages {
		if pv.stroke != nil {
			xdraw.ApproxBiLinear.Scale(dst, pv.rect, pv.stroke, pv.stroke.Bounds(), draw.Over, nil)
		}
	}
	if st.proxy != nil {
		if err := overlay.DrawRecord(dst, st.proxyOrigin, *st.proxy, st.zoom, nil); err != nil {
			log.Printf("draw proxy: %v", err)
		}
		sel := st.proxy.Bounds().Translate(st.proxyOrigin).Image().Inset(-2)
		render.DashedRect(dst, sel, 4, th.Selection, color.White)
	}
	if ctx.Err() != nil {
		return
	}

	if st.input.active() {
		drawInput(dst, th, st.input, st.zoom)
	}

	drawHeader(dst, th, st)
	drawToolbar(dst, th, st)
	drawShortcuts(dst, th, st)

	if ctx.Err() != nil {
		return
	}

	if st.message != "" && time.Now().Before(st.messageUntil) {
		drawMessage(dst, th, st.message, st.width, st.height)
	}

	if ctx.Err() != nil {
		return
	}

	w.Upload(image.Point{}, b, b.Bounds())
	w.Publish()
}

func drawInput(dst *image.RGBA, th *theme.Theme, in inputState, zoom float64) {
	at := image.Pt(int(in.at.X), int(in.at.Y))
	text := in.text + "|"
	if in.kind == inputText {
		if err := render.Text(dst, at.X, at.Y, text, th.Caret, capture.TextSize*zoom); err != nil {
			log.Printf("draw text input: %v", err)
		}
		return
	}
	// Notes are edited in a small box beside the icon.
	w, h, _, err := render.MeasureText(text, inputSize)
	if err != nil {
		return
	}
	box := image.Rect(at.X+annotation.NoteIconSize+4, at.Y, at.X+annotation.NoteIconSize+4+max(w, 120)+8, at.Y+h+8)
	render.FillRect(dst, box, color.RGBA{255, 250, 205, 255})
	render.Rect(dst, box, render.Pen{Color: th.Selection, Width: 1})
	_ = render.Text(dst, box.Min.X+4, box.Min.Y+4, text, th.Caret, inputSize)
}

func drawHeader(dst *image.RGBA, th *theme.Theme, st paintState) {
	bar := image.Rect(0, 0, st.width, tabHeight)
	draw.Draw(dst, bar, &image.Uniform{th.HeaderBackground}, image.Point{}, draw.Src)
	drawLabel(dst, 4, 16, "QuickMark", th.HeaderText)
	x := toolbarWidth
	for i := range st.tabs {
		tb := &st.tabs[i]
		state := StateDefault
		if tb.page == st.current {
			state = StatePressed
		} else if i == st.hoverTab {
			state = StateHover
		}
		tb.draw(dst, th, state)
		x = tb.rect.Max.X
	}
	if st.status != "" {
		d := &font.Drawer{Face: basicfont.Face7x13}
		sx := st.width - d.MeasureString(st.status).Ceil() - 8
		if sx > x+8 {
			drawLabel(dst, sx, 16, st.status, th.HeaderText)
		}
	}
}

func drawToolbar(dst *image.RGBA, th *theme.Theme, st paintState) {
	draw.Draw(dst, image.Rect(0, tabHeight, toolbarWidth, st.height-bottomHeight), &image.Uniform{th.ToolbarBackground}, image.Point{}, draw.Src)
	for i, cb := range st.tools {
		state := StateDefault
		if tb, ok := cb.Button.(*ToolButton); ok && tb.tool != capture.ToolNone && tb.tool == st.tool {
			state = StatePressed
		} else if i == len(toolSpecs) && st.placing {
			state = StatePressed
		} else if i == st.hoverTool {
			state = StateHover
		}
		cb.Draw(dst, state)
	}

	top := paletteTop(len(st.tools))
	for i, p := range PaletteColors() {
		rect := swatchRect(top, i)
		draw.Draw(dst, rect, &image.Uniform{p.Color}, image.Point{}, draw.Src)
		if i == st.hoverPalette {
			draw.Draw(dst, rect, &image.Uniform{color.RGBA{255, 255, 255, 80}}, image.Point{}, draw.Over)
		}
		if i == st.colorIdx {
			render.Rect(dst, rect, render.Pen{Color: th.Selection, Width: 1})
		}
	}
}

func drawShortcuts(dst *image.RGBA, th *theme.Theme, st paintState) {
	rect := image.Rect(0, st.height-bottomHeight, st.width, st.height)
	draw.Draw(dst, rect, &image.Uniform{th.ToolbarBackground}, image.Point{}, draw.Src)
	for i := range st.shortcuts {
		state := StateDefault
		if i == st.hoverShortcut {
			state = StateHover
		}
		st.shortcuts[i].draw(dst, th, state)
	}
}

func drawMessage(dst *image.RGBA, th *theme.Theme, msg string, width, height int) {
	face, err := render.Face(messageSize)
	if err != nil {
		return
	}
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(th.Foreground), Face: face}
	wmsg := d.MeasureString(msg).Ceil()
	ascent := face.Metrics().Ascent.Ceil()
	descent := face.Metrics().Descent.Ceil()
	px := (width - wmsg) / 2
	py := (height-ascent-descent)/2 + ascent
	rect := image.Rect(px-8, py-ascent-8, px+wmsg+8, py+descent+8)
	draw.Draw(dst, rect, &image.Uniform{color.RGBA{255, 255, 255, 230}}, image.Point{}, draw.Over)
	render.Rect(dst, rect, render.Pen{Color: th.ButtonBorder, Width: 2})
	d.Dot = fixed.P(px, py)
	d.DrawString(msg)
}

// proxyRecord converts the in-progress gesture into a record that can be
// drawn like a committed one. Freehand and note gestures have no proxy.
func proxyRecord(px capture.Proxy) (annotation.Record, bool) {
	if !px.Visible {
		return annotation.Record{}, false
	}
	r := annotation.Record{Page: px.Page, Color: px.Color, Box: px.Box}
	switch px.Tool {
	case capture.ToolHighlight:
		r.Kind = annotation.Highlight
	case capture.ToolRectangle:
		r.Kind, r.Shape = annotation.Shape, annotation.Rectangle
	case capture.ToolCircle:
		r.Kind, r.Shape = annotation.Shape, annotation.Circle
	case capture.ToolLine, capture.ToolArrow:
		r.Kind, r.Shape = annotation.Shape, annotation.Line
		if px.Tool == capture.ToolArrow {
			r.Shape = annotation.Arrow
		}
		r.Line = px.Line
	case capture.ToolUnderline:
		r.Kind = annotation.TextDecoration
	case capture.ToolStrikethrough:
		r.Kind, r.Decoration = annotation.TextDecoration, annotation.Strikethrough
	default:
		return annotation.Record{}, false
	}
	return r, true
}
