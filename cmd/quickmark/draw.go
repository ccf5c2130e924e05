package main

import (
	"context"
	"flag"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/example/quickmark/internal/appstate"
	"github.com/example/quickmark/internal/clipboard"
	"github.com/example/quickmark/internal/document"
	"github.com/example/quickmark/internal/export"
	"github.com/example/quickmark/internal/license"
	"github.com/example/quickmark/internal/pdfout"
)

// letter is the page size used when no input PDF is given.
var letter = export.PageSize{Width: 612, Height: 792}

// drawCmd adds one annotation to a PDF without opening a window.
type drawCmd struct {
	file        string
	output      string
	toClipboard bool
	colorSpec   string
	color       color.RGBA
	zoom        float64
	page        int
	blankPages  int
	gesture     gestureSpec
	*root
	fs *flag.FlagSet
}

func (d *drawCmd) FlagSet() *flag.FlagSet {
	return d.fs
}

func parseDrawCmd(args []string, r *root) (*drawCmd, error) {
	fs := flag.NewFlagSet("draw", flag.ExitOnError)
	d := &drawCmd{root: r, fs: fs}
	fs.Usage = usageFunc(d)
	fs.StringVar(&d.file, "file", "", "input PDF file")
	fs.StringVar(&d.output, "output", "", "output file; .pdf writes an annotated copy, anything else a PNG")
	fs.BoolVar(&d.toClipboard, "to-clipboard", false, "copy the annotated page to the clipboard")
	fs.BoolVar(&d.toClipboard, "to-clip", false, "copy the annotated page to the clipboard (alias)")
	fs.StringVar(&d.colorSpec, "color", "", "annotation color name or hex value")
	fs.Float64Var(&d.zoom, "zoom", 1, "raster export zoom")
	fs.IntVar(&d.page, "page", 1, "page to annotate")
	fs.IntVar(&d.blankPages, "blank", 1, "number of blank letter pages when no -file is given")

	flagArgs, positionals, err := splitDrawArgs(args)
	if err != nil {
		return nil, err
	}
	if err := fs.Parse(flagArgs); err != nil {
		return nil, err
	}
	if len(positionals) < 1 {
		return nil, &UsageError{of: d}
	}
	d.gesture, err = parseGesture(d.page, positionals)
	if err != nil {
		return nil, err
	}
	d.color = r.defaultColor()
	if d.colorSpec != "" {
		if d.color, err = parseColor(d.colorSpec); err != nil {
			return nil, err
		}
	}
	if d.output == "" {
		if d.file == "" {
			return nil, fmt.Errorf("output file is required without an input file")
		}
		d.output = defaultOutput(d.file)
	}
	if d.file == "" && strings.EqualFold(filepath.Ext(d.output), ".pdf") {
		return nil, fmt.Errorf("PDF output needs an input file: %w", pdfout.ErrNoSource)
	}
	if d.zoom <= 0 {
		d.zoom = 1
	}
	if d.blankPages < 1 {
		d.blankPages = 1
	}
	return d, nil
}

func (d *drawCmd) openDocument() (*document.Document, error) {
	if d.file == "" {
		sizes := make([]export.PageSize, d.blankPages)
		for i := range sizes {
			sizes[i] = letter
		}
		return document.Blank(sizes...), nil
	}
	return document.Open(d.file)
}

func (d *drawCmd) Run() error {
	doc, err := d.openDocument()
	if err != nil {
		return err
	}
	defer doc.Close()

	var gate license.Gate = license.AllowAll
	if d.root != nil {
		gate, _ = d.root.gate()
	}
	sess := appstate.NewSession(doc, appstate.WithGate(gate), appstate.WithZoom(d.zoom), appstate.WithColor(d.color))
	if _, err := d.gesture.apply(sess); err != nil {
		return fmt.Errorf("draw %s: %w", d.gesture.tool, err)
	}

	ctx := context.Background()
	sink := sess.SinkFor(d.output)
	if _, err := sess.Export(ctx, sink); err != nil {
		return err
	}
	saved := d.output
	if abs, err := filepath.Abs(d.output); err == nil {
		saved = abs
	}
	fmt.Fprintf(os.Stderr, "saved %s\n", saved)
	if _, ok := sink.(*pdfout.Writer); ok {
		preview, err := sess.PageImage(ctx, d.page)
		if err != nil {
			return err
		}
		d.root.notifyExport(saved, preview)
	} else {
		d.root.notifySave(saved)
	}

	if d.toClipboard {
		img, err := sess.PageImage(ctx, d.page)
		if err != nil {
			return err
		}
		if err := clipboard.WriteImage(img); err != nil {
			return fmt.Errorf("copy PNG to clipboard: %w", err)
		}
		detail := fmt.Sprintf("page %d", d.page)
		fmt.Fprintf(os.Stderr, "copied %s to clipboard\n", detail)
		d.root.notifyCopy(detail)
	}
	return nil
}

var drawFlagNames = map[string]struct{}{
	"file":         {},
	"output":       {},
	"to-clipboard": {},
	"to-clip":      {},
	"color":        {},
	"zoom":         {},
	"page":         {},
	"blank":        {},
}

var drawBoolFlags = map[string]struct{}{
	"to-clipboard": {},
	"to-clip":      {},
}

// splitDrawArgs separates flags from positionals so flags may follow the
// shape and negative coordinates are not taken for flags.
func splitDrawArgs(args []string) ([]string, []string, error) {
	var flags []string
	var positionals []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			positionals = append(positionals, args[i+1:]...)
			break
		}
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			positionals = append(positionals, arg)
			continue
		}
		name := strings.TrimLeft(arg, "-")
		if name == "" {
			positionals = append(positionals, arg)
			continue
		}
		parts := strings.SplitN(name, "=", 2)
		base := strings.ToLower(parts[0])
		if _, ok := drawFlagNames[base]; !ok {
			positionals = append(positionals, arg)
			continue
		}
		// Normalise to single dash form for the flag parser.
		norm := "-" + base
		if len(parts) == 2 {
			flags = append(flags, norm+"="+parts[1])
			continue
		}
		if _, ok := drawBoolFlags[base]; ok {
			flags = append(flags, norm)
			continue
		}
		if i+1 >= len(args) {
			return nil, nil, fmt.Errorf("flag %s requires a value", arg)
		}
		flags = append(flags, norm, args[i+1])
		i++
	}
	return flags, positionals, nil
}
