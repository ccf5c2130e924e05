package main

import (
	"flag"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/example/quickmark/internal/appstate"
	"github.com/example/quickmark/internal/document"
)

// annotateCmd opens a PDF in the interactive viewer.
type annotateCmd struct {
	file   string
	output string
	zoom   float64
	color  string
	*root
	fs *flag.FlagSet
}

func (a *annotateCmd) FlagSet() *flag.FlagSet {
	return a.fs
}

func parseAnnotateCmd(args []string, r *root) (*annotateCmd, error) {
	fs := flag.NewFlagSet("annotate", flag.ExitOnError)
	a := &annotateCmd{root: r, fs: fs}
	fs.Usage = usageFunc(a)
	fs.StringVar(&a.output, "output", "", "export path; .pdf writes an annotated copy, anything else a PNG (default <file>-annotated.pdf)")
	fs.Float64Var(&a.zoom, "zoom", r.zoom(), "display zoom (0 uses the default)")
	fs.StringVar(&a.color, "color", "", "initial annotation color name or hex value")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 1 {
		return nil, &UsageError{of: a}
	}
	a.file = fs.Arg(0)
	if a.output == "" {
		a.output = defaultOutput(a.file)
	}
	if a.color != "" {
		if _, err := parseColor(a.color); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// defaultOutput names the annotated copy of file.
func defaultOutput(file string) string {
	ext := filepath.Ext(file)
	return strings.TrimSuffix(file, ext) + "-annotated.pdf"
}

func (a *annotateCmd) Run() error {
	doc, err := document.Open(a.file)
	if err != nil {
		return fmt.Errorf("open %s: %w", a.file, err)
	}
	defer doc.Close()

	col := a.root.defaultColor()
	if a.color != "" {
		col, _ = parseColor(a.color)
	}
	gate, status := a.root.gate()
	sess := appstate.NewSession(doc,
		appstate.WithGate(gate),
		appstate.WithZoom(a.zoom),
		appstate.WithColor(col),
	)
	opts := append(a.root.appOptions(),
		appstate.WithOutput(a.output),
		appstate.WithColorIndex(appstate.EnsurePaletteColor(col, "")),
		appstate.WithStatus(status),
	)
	appstate.New(sess, opts...).Run()
	return nil
}
