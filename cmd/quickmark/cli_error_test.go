package main

import (
	"errors"
	"image/color"
	"reflect"
	"strings"
	"testing"

	"github.com/golang/geo/r2"

	"github.com/example/quickmark/internal/capture"
	"github.com/example/quickmark/internal/pdfout"
)

func TestParseDrawRequiresOutputWithoutFile(t *testing.T) {
	_, err := parseDrawCmd([]string{"rect", "0", "0", "10", "10"}, nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	if want := "output file is required without an input file"; !strings.Contains(err.Error(), want) {
		t.Fatalf("expected error to mention %q, got %v", want, err)
	}
}

func TestParseDrawPDFNeedsSource(t *testing.T) {
	_, err := parseDrawCmd([]string{"-output", "out.pdf", "rect", "0", "0", "10", "10"}, nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !errors.Is(err, pdfout.ErrNoSource) {
		t.Fatalf("expected ErrNoSource, got %v", err)
	}
}

func TestParseDrawFlagsAfterShape(t *testing.T) {
	d, err := parseDrawCmd([]string{"line", "-5", "10", "20", "30", "--output=out.png", "-color", "red"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.output != "out.png" {
		t.Fatalf("output = %q", d.output)
	}
	if d.color != (color.RGBA{R: 255, A: 255}) {
		t.Fatalf("color = %v", d.color)
	}
	want := []r2.Point{{X: -5, Y: 10}, {X: 20, Y: 30}}
	if !reflect.DeepEqual(d.gesture.points, want) {
		t.Fatalf("points = %v, want %v", d.gesture.points, want)
	}
	if d.gesture.tool != capture.ToolLine {
		t.Fatalf("tool = %v", d.gesture.tool)
	}
}

func TestSplitDrawArgsMissingValue(t *testing.T) {
	if _, _, err := splitDrawArgs([]string{"rect", "-output"}); err == nil {
		t.Fatalf("expected error for flag without value")
	}
}

func TestSplitDrawArgsDoubleDash(t *testing.T) {
	flags, pos, err := splitDrawArgs([]string{"-to-clip", "--", "-output", "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(flags, []string{"-to-clip"}) {
		t.Fatalf("flags = %v", flags)
	}
	if !reflect.DeepEqual(pos, []string{"-output", "x"}) {
		t.Fatalf("positionals = %v", pos)
	}
}

func TestParseGestureErrors(t *testing.T) {
	cases := map[string][]string{
		"missing tool":   nil,
		"unknown shape":  {"hexagon", "0", "0", "1", "1"},
		"short rect":     {"rect", "0", "0", "1"},
		"bad number":     {"rect", "0", "zero", "1", "1"},
		"odd draw":       {"draw", "0", "0", "1", "1", "2"},
		"single point":   {"draw", "0", "0"},
		"empty note":     {"note", "1", "1"},
		"blank text":     {"text", "1", "1", " "},
		"text bad coord": {"text", "x", "1", "hello"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := parseGesture(1, args); err == nil {
				t.Fatalf("expected error for %v", args)
			}
		})
	}
}

func TestParseGestureText(t *testing.T) {
	g, err := parseGesture(2, []string{"text", "10", "20", "hello", "world"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !g.text || g.words != "hello world" || g.page != 2 {
		t.Fatalf("unexpected gesture %+v", g)
	}
}

func TestParseGestureNote(t *testing.T) {
	g, err := parseGesture(1, []string{"note", "10", "20", "check"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.text || g.tool != capture.ToolNote {
		t.Fatalf("unexpected gesture %+v", g)
	}
}

func TestParseColor(t *testing.T) {
	if c, err := parseColor("Blue"); err != nil || c != (color.RGBA{B: 255, A: 255}) {
		t.Fatalf("parseColor(Blue) = %v, %v", c, err)
	}
	if c, err := parseColor("#00ff00"); err != nil || c != (color.RGBA{G: 255, A: 255}) {
		t.Fatalf("parseColor(#00ff00) = %v, %v", c, err)
	}
	for _, bad := range []string{"", "notacolor", "#zzzzzz"} {
		if _, err := parseColor(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestDefaultOutput(t *testing.T) {
	if got := defaultOutput("dir/report.pdf"); got != "dir/report-annotated.pdf" {
		t.Fatalf("defaultOutput = %q", got)
	}
}

func TestParseAnnotateRequiresFile(t *testing.T) {
	_, err := parseAnnotateCmd(nil, &root{program: "quickmark annotate"})
	var uerr *UsageError
	if !errors.As(err, &uerr) {
		t.Fatalf("expected usage error, got %v", err)
	}
	if !strings.Contains(uerr.Error(), "quickmark annotate") {
		t.Fatalf("usage does not name the program: %q", uerr.Error())
	}
}
