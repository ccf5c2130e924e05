package pdfout

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/example/quickmark/internal/export"
	"github.com/example/quickmark/internal/geom"
)

// annotPrint is the Print bit of the annotation flags.
const annotPrint = 1 << 2

// Writer is an export.Sink that copies Source to Path with every annotated
// page carrying one stamp annotation holding its instructions.
type Writer struct {
	Source string
	Path   string
	Logger *log.Logger
}

var _ export.Sink = (*Writer)(nil)

// ErrNoSource is returned when there is no PDF to annotate.
var ErrNoSource = errors.New("no source pdf")

func (w *Writer) logf(format string, args ...any) {
	if w.Logger != nil {
		w.Logger.Printf(format, args...)
	}
}

// Apply writes res into a copy of the source document.
func (w *Writer) Apply(ctx context.Context, res *export.Result) error {
	if w.Source == "" {
		return ErrNoSource
	}
	pdf, err := api.ReadContextFile(w.Source)
	if err != nil {
		return fmt.Errorf("read %s: %w", w.Source, err)
	}
	for p := 1; p <= pdf.PageCount; p++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		ins := res.Page(p)
		if len(ins) == 0 {
			continue
		}
		if err := stampPage(pdf, p, res.Pages[p].Rotate, buildContent(ins)); err != nil {
			return fmt.Errorf("page %d: %w", p, err)
		}
		w.logf("pdfout: page %d: %d instructions", p, len(ins))
	}
	if err := api.WriteContextFile(pdf, w.Path); err != nil {
		return fmt.Errorf("write %s: %w", w.Path, err)
	}
	return nil
}

func stampPage(pdf *model.Context, page, rotate int, c *content) error {
	pageDict, _, inh, err := pdf.PageDict(page, true)
	if err != nil {
		return err
	}
	if pageDict == nil || inh == nil || inh.MediaBox == nil {
		return fmt.Errorf("no media box")
	}
	mb := inh.MediaBox
	rect := types.Array{types.Float(mb.LL.X), types.Float(mb.LL.Y), types.Float(mb.UR.X), types.Float(mb.UR.Y)}

	res, err := resources(pdf, c)
	if err != nil {
		return err
	}
	body := append([]byte(cm(pageMatrix(rotate, mb))), c.buf.Bytes()...)
	ap, err := pdf.NewStreamDictForBuf(body)
	if err != nil {
		return err
	}
	ap.Dict["Type"] = types.Name("XObject")
	ap.Dict["Subtype"] = types.Name("Form")
	ap.Dict["BBox"] = rect
	ap.Dict["Resources"] = res
	if err := ap.Encode(); err != nil {
		return err
	}
	apRef, err := pdf.IndRefForNewObject(*ap)
	if err != nil {
		return err
	}
	annot := types.Dict{
		"Type":     types.Name("Annot"),
		"Subtype":  types.Name("Stamp"),
		"Rect":     rect,
		"F":        types.Integer(annotPrint),
		"Contents": types.StringLiteral("quickmark annotations"),
		"AP":       types.Dict{"N": *apRef},
	}
	ref, err := pdf.IndRefForNewObject(annot)
	if err != nil {
		return err
	}
	if annots, ok := pageDict["Annots"].(types.Array); ok {
		pageDict["Annots"] = append(annots, *ref)
	} else {
		pageDict["Annots"] = types.Array{*ref}
	}
	return nil
}

// pageMatrix maps instructions, which are relative to the bottom-left
// corner of the page as displayed, into the media box.
func pageMatrix(rotate int, mb *types.Rectangle) geom.Matrix {
	return geom.PageRotation(rotate, mb.Width(), mb.Height()).Multiply(geom.Translate(mb.LL.X, mb.LL.Y))
}

func cm(m geom.Matrix) string {
	return fmt.Sprintf("%s %s %s %s %s %s cm\n", num(m[0]), num(m[1]), num(m[2]), num(m[3]), num(m[4]), num(m[5]))
}

func resources(pdf *model.Context, c *content) (types.Dict, error) {
	res := types.Dict{}
	if c.text {
		res["Font"] = types.Dict{
			fontName: types.Dict{
				"Type":     types.Name("Font"),
				"Subtype":  types.Name("Type1"),
				"BaseFont": types.Name("Helvetica"),
				"Encoding": types.Name("WinAnsiEncoding"),
			},
		}
	}
	if c.opacity > 0 {
		res["ExtGState"] = types.Dict{
			alphaName: types.Dict{
				"Type": types.Name("ExtGState"),
				"ca":   types.Float(c.opacity),
				"CA":   types.Float(c.opacity),
			},
		}
	}
	if len(c.images) > 0 {
		xobj := types.Dict{}
		for i, img := range c.images {
			ref, err := imageObject(pdf, img)
			if err != nil {
				return nil, err
			}
			xobj[fmt.Sprintf("Im%d", i)] = *ref
		}
		res["XObject"] = xobj
	}
	return res, nil
}

// imageObject stores img as an RGB image XObject with its alpha channel as
// a soft mask.
func imageObject(pdf *model.Context, img image.Image) (*types.IndirectRef, error) {
	rgb, alpha, w, h := splitAlpha(img)
	mask, err := pdf.NewStreamDictForBuf(alpha)
	if err != nil {
		return nil, err
	}
	setImageDict(mask.Dict, w, h, "DeviceGray")
	if err := mask.Encode(); err != nil {
		return nil, err
	}
	maskRef, err := pdf.IndRefForNewObject(*mask)
	if err != nil {
		return nil, err
	}
	sd, err := pdf.NewStreamDictForBuf(rgb)
	if err != nil {
		return nil, err
	}
	setImageDict(sd.Dict, w, h, "DeviceRGB")
	sd.Dict["SMask"] = *maskRef
	if err := sd.Encode(); err != nil {
		return nil, err
	}
	return pdf.IndRefForNewObject(*sd)
}

func setImageDict(d types.Dict, w, h int, space string) {
	d["Type"] = types.Name("XObject")
	d["Subtype"] = types.Name("Image")
	d["Width"] = types.Integer(w)
	d["Height"] = types.Integer(h)
	d["ColorSpace"] = types.Name(space)
	d["BitsPerComponent"] = types.Integer(8)
}

// splitAlpha returns the unpremultiplied colour samples and the alpha
// samples of img, top row first.
func splitAlpha(img image.Image) (rgb, alpha []byte, w, h int) {
	b := img.Bounds()
	w, h = b.Dx(), b.Dy()
	rgb = make([]byte, 0, w*h*3)
	alpha = make([]byte, 0, w*h)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := img.At(x, y).RGBA()
			if a == 0 {
				rgb = append(rgb, 0, 0, 0)
				alpha = append(alpha, 0)
				continue
			}
			rgb = append(rgb, byte(r*0xff/a), byte(g*0xff/a), byte(bl*0xff/a))
			alpha = append(alpha, byte(a>>8))
		}
	}
	return rgb, alpha, w, h
}
