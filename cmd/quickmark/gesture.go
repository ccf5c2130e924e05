package main

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/golang/geo/r2"
	"golang.org/x/image/colornames"

	"github.com/example/quickmark/internal/annotation"
	"github.com/example/quickmark/internal/appstate"
	"github.com/example/quickmark/internal/capture"
	"github.com/example/quickmark/internal/theme"
)

func parseColor(s string) (color.RGBA, error) {
	spec := strings.ToLower(strings.TrimSpace(s))
	if spec == "" {
		return color.RGBA{}, fmt.Errorf("color cannot be empty")
	}
	if c, ok := colornames.Map[spec]; ok {
		return c, nil
	}
	for _, entry := range appstate.PaletteColors() {
		if strings.EqualFold(entry.Name, s) {
			return entry.Color, nil
		}
	}
	if strings.HasPrefix(spec, "#") {
		if c, err := theme.ParseColor(spec); err == nil {
			return c, nil
		}
	}
	return color.RGBA{}, fmt.Errorf("invalid color %q", s)
}

func expectFloats(args []string, n int, shape string) ([]float64, error) {
	if len(args) != n {
		return nil, fmt.Errorf("%s requires %d numeric arguments", shape, n)
	}
	return parseFloats(args)
}

func parseFloats(args []string) ([]float64, error) {
	vals := make([]float64, len(args))
	for i, raw := range args {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", raw)
		}
		vals[i] = v
	}
	return vals, nil
}

// gestureSpec is an annotation described on the command line. Points are
// in PDF points from the top-left of the page.
type gestureSpec struct {
	tool   capture.Tool
	text   bool
	page   int
	points []r2.Point
	words  string
}

// parseGesture reads "TOOL coords..." as accepted by draw and the shell.
func parseGesture(page int, args []string) (gestureSpec, error) {
	if len(args) < 1 {
		return gestureSpec{}, fmt.Errorf("missing tool")
	}
	g := gestureSpec{page: page}
	name := strings.ToLower(args[0])
	rest := args[1:]
	if name == "text" || name == "note" {
		if len(rest) < 3 {
			return g, fmt.Errorf("%s requires x y and content", name)
		}
		xy, err := expectFloats(rest[:2], 2, name)
		if err != nil {
			return g, err
		}
		g.points = []r2.Point{{X: xy[0], Y: xy[1]}}
		g.words = strings.Join(rest[2:], " ")
		if strings.TrimSpace(g.words) == "" {
			return g, fmt.Errorf("%s content cannot be empty", name)
		}
		if name == "text" {
			g.text = true
			return g, nil
		}
		g.tool = capture.ToolNote
		return g, nil
	}
	tool, err := capture.ParseTool(name)
	if err != nil || tool == capture.ToolNone {
		return g, fmt.Errorf("unsupported shape %q", args[0])
	}
	g.tool = tool
	var vals []float64
	if tool == capture.ToolDraw {
		if len(rest) < 4 || len(rest)%2 != 0 {
			return g, fmt.Errorf("draw requires at least two x y pairs")
		}
		vals, err = parseFloats(rest)
	} else {
		vals, err = expectFloats(rest, 4, name)
	}
	if err != nil {
		return g, err
	}
	for i := 0; i+1 < len(vals); i += 2 {
		g.points = append(g.points, r2.Point{X: vals[i], Y: vals[i+1]})
	}
	return g, nil
}

// apply replays g against sess as pointer events.
func (g gestureSpec) apply(sess *appstate.Session) (annotation.ID, error) {
	page := sess.Layout.Page(g.page)
	if page == nil {
		return "", fmt.Errorf("page %d: %w", g.page, annotation.ErrMissingPage)
	}
	origin := sess.Layout.PageOrigin(page)
	screen := make([]r2.Point, len(g.points))
	for i, p := range g.points {
		screen[i] = origin.Add(p.Mul(sess.Layout.Zoom))
	}
	if g.text {
		return sess.PlaceText(screen[0], g.words)
	}

	prev := sess.Tool()
	defer func() { _ = sess.Arm(prev) }()
	if err := sess.Arm(g.tool); err != nil {
		return "", err
	}
	last := screen[len(screen)-1]
	if !sess.Machine.Press(screen[0]) {
		return "", fmt.Errorf("%s at %.0f,%.0f: %w", g.tool, g.points[0].X, g.points[0].Y, annotation.ErrMissingPage)
	}
	for _, p := range screen[1:] {
		sess.Machine.Move(p)
	}
	id, err := sess.Release(last)
	if err != nil {
		return "", err
	}
	if g.tool == capture.ToolNote {
		if err := sess.CommitNote(g.words); err != nil {
			return id, err
		}
	}
	return id, nil
}
