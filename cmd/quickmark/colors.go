package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/example/quickmark/internal/appstate"
)

type colorsCmd struct {
	*root
	fs *flag.FlagSet
}

func parseColorsCmd(args []string, r *root) (*colorsCmd, error) {
	fs := flag.NewFlagSet("colors", flag.ExitOnError)
	cmd := &colorsCmd{root: r, fs: fs}
	fs.Usage = usageFunc(cmd)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 0 {
		return nil, &UsageError{of: cmd}
	}
	return cmd, nil
}

func (c *colorsCmd) Run() error {
	palette := appstate.PaletteColors()
	if len(palette) == 0 {
		fmt.Fprintln(os.Stdout, "no colors available")
		return nil
	}
	fmt.Fprintln(os.Stdout, "available palette colors (* marks the default color):")
	defaultIdx := clampIndex(appstate.DefaultColorIndex(), len(palette))
	for idx, entry := range palette {
		marker := " "
		if idx == defaultIdx {
			marker = "*"
		}
		cc, _ := colorful.MakeColor(entry.Color)
		hex := cc.Hex()
		name := entry.Name
		if name == "" {
			name = hex
		}
		h, s, l := cc.Hsl()
		block := fmt.Sprintf("\x1b[48;2;%d;%d;%dm  \x1b[0m", entry.Color.R, entry.Color.G, entry.Color.B)
		fmt.Fprintf(os.Stdout, "%s %2d: %-12s %s  hsl(%3.0f, %3.0f%%, %3.0f%%) %s\n", marker, idx, name, hex, h, s*100, l*100, block)
	}
	return nil
}

func (c *colorsCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func clampIndex(idx, n int) int {
	if n == 0 {
		return 0
	}
	return max(0, min(idx, n-1))
}
