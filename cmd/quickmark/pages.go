package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/example/quickmark/internal/document"
)

// pagesCmd prints the page geometry of a PDF.
type pagesCmd struct {
	file   string
	asYAML bool
	*root
	fs *flag.FlagSet
}

func (p *pagesCmd) FlagSet() *flag.FlagSet {
	return p.fs
}

func parsePagesCmd(args []string, r *root) (*pagesCmd, error) {
	fs := flag.NewFlagSet("pages", flag.ExitOnError)
	p := &pagesCmd{root: r, fs: fs}
	fs.Usage = usageFunc(p)
	fs.BoolVar(&p.asYAML, "yaml", false, "print the pages as YAML")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 1 {
		return nil, &UsageError{of: p}
	}
	p.file = fs.Arg(0)
	return p, nil
}

func (p *pagesCmd) Run() error {
	f, err := os.Open(p.file)
	if err != nil {
		return err
	}
	defer f.Close()
	pages, err := document.ReadPages(f)
	if err != nil {
		return fmt.Errorf("%s: %w", p.file, err)
	}
	if p.asYAML {
		data, err := yaml.Marshal(pages)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	}
	return printPages(os.Stdout, pages)
}

func printPages(w io.Writer, pages []document.PageInfo) error {
	if len(pages) == 0 {
		_, err := fmt.Fprintln(w, "no pages")
		return err
	}
	for _, p := range pages {
		rot := ""
		if p.Rotate != 0 {
			rot = fmt.Sprintf("  rotated %d", p.Rotate)
		}
		if _, err := fmt.Fprintf(w, "%4d: %7.1f x %7.1f pt%s\n", p.Number, p.Width, p.Height, rot); err != nil {
			return err
		}
	}
	return nil
}
