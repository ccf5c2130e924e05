// Package pdfout writes export results into a copy of the source PDF as
// stamp annotations, one per annotated page.
package pdfout

import (
	"bytes"
	"fmt"
	"image"
	"math"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/example/quickmark/internal/export"
)

const (
	fontName  = "F1"
	alphaName = "GS0"
	// kappa places Bezier control points for a quarter ellipse.
	kappa = 0.5522847498
)

// content is the appearance stream for one page together with the
// resources it refers to.
type content struct {
	buf     bytes.Buffer
	images  []image.Image
	opacity float64
	text    bool
}

func num(v float64) string {
	return strconv.FormatFloat(math.Round(v*1000)/1000, 'f', -1, 64)
}

func (c *content) op(args ...string) {
	c.buf.WriteString(strings.Join(args, " "))
	c.buf.WriteByte('\n')
}

func (c *content) color(col colorful.Color, op string) {
	c.op(num(col.R), num(col.G), num(col.B), op)
}

// buildContent renders instructions as PDF content stream operators. Images
// are numbered Im0, Im1, ... in the order returned.
func buildContent(ins []export.Instruction) *content {
	c := &content{}
	for _, in := range ins {
		c.buf.WriteString("q\n")
		switch v := in.(type) {
		case export.Rect:
			c.rect(v)
		case export.Ellipse:
			c.ellipse(v)
		case export.Line:
			c.color(v.Stroke, "RG")
			c.op(num(v.Width), "w")
			c.op(num(v.From.X), num(v.From.Y), "m")
			c.op(num(v.To.X), num(v.To.Y), "l", "S")
		case export.Image:
			name := fmt.Sprintf("Im%d", len(c.images))
			c.images = append(c.images, v.Image)
			b := v.Box
			c.op(num(b.Width), "0", "0", num(b.Height), num(b.X), num(b.Y), "cm")
			c.op("/"+name, "Do")
		case export.Text:
			c.text = true
			c.op("BT")
			c.op("/"+fontName, num(v.Size), "Tf")
			c.color(v.Color, "rg")
			c.op(num(v.At.X), num(v.At.Y), "Td")
			c.op(pdfString(v.Text), "Tj")
			c.op("ET")
		}
		c.buf.WriteString("Q\n")
	}
	return c
}

func (c *content) rect(r export.Rect) {
	if r.Opacity > 0 && r.Opacity < 1 {
		c.opacity = r.Opacity
		c.op("/"+alphaName, "gs")
	}
	paint := ""
	if r.Filled {
		c.color(r.Fill, "rg")
		paint = "f"
	}
	if r.Stroked() {
		c.color(r.Stroke, "RG")
		c.op(num(r.Width), "w")
		paint = "S"
		if r.Filled {
			paint = "B"
		}
	}
	if paint == "" {
		return
	}
	b := r.Box
	c.op(num(b.X), num(b.Y), num(b.Width), num(b.Height), "re", paint)
}

func (c *content) ellipse(e export.Ellipse) {
	c.color(e.Stroke, "RG")
	c.op(num(e.Width), "w")
	x, y := e.Center.X, e.Center.Y
	ox, oy := e.RX*kappa, e.RY*kappa
	c.op(num(x+e.RX), num(y), "m")
	c.op(num(x+e.RX), num(y+oy), num(x+ox), num(y+e.RY), num(x), num(y+e.RY), "c")
	c.op(num(x-ox), num(y+e.RY), num(x-e.RX), num(y+oy), num(x-e.RX), num(y), "c")
	c.op(num(x-e.RX), num(y-oy), num(x-ox), num(y-e.RY), num(x), num(y-e.RY), "c")
	c.op(num(x+ox), num(y-e.RY), num(x+e.RX), num(y-oy), num(x+e.RX), num(y), "c")
	c.op("S")
}

// pdfString escapes s as a literal string. Runes outside Latin-1 have no
// glyph in the standard Helvetica encoding and become '?'.
func pdfString(s string) string {
	var b strings.Builder
	b.WriteByte('(')
	for _, r := range s {
		switch {
		case r == '\\' || r == '(' || r == ')':
			b.WriteByte('\\')
			b.WriteByte(byte(r))
		case r == '\n':
			b.WriteString(`\n`)
		case r > 0xff:
			b.WriteByte('?')
		default:
			b.WriteByte(byte(r))
		}
	}
	b.WriteByte(')')
	return b.String()
}
