package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"
	"github.com/golang/geo/r2"
	"gopkg.in/yaml.v2"

	"github.com/example/quickmark/internal/annotation"
	"github.com/example/quickmark/internal/appstate"
	"github.com/example/quickmark/internal/clipboard"
	"github.com/example/quickmark/internal/document"
	"github.com/example/quickmark/internal/geom"
)

// commandList collects repeated -e flags.
type commandList []string

func (c *commandList) String() string { return strings.Join(*c, "; ") }

func (c *commandList) Set(v string) error {
	*c = append(*c, v)
	return nil
}

// shellCmd edits the annotations of a document from a prompt.
type shellCmd struct {
	file  string
	zoom  float64
	gui   bool
	execs commandList
	*root
	fs *flag.FlagSet
}

func (s *shellCmd) FlagSet() *flag.FlagSet {
	return s.fs
}

func parseShellCmd(args []string, r *root) (*shellCmd, error) {
	fs := flag.NewFlagSet("shell", flag.ExitOnError)
	s := &shellCmd{root: r, fs: fs}
	fs.Usage = usageFunc(s)
	fs.Var(&s.execs, "e", "execute a shell command and exit (may be specified multiple times)")
	fs.BoolVar(&s.gui, "gui", false, "open the viewer alongside the prompt")
	fs.Float64Var(&s.zoom, "zoom", r.zoom(), "display zoom (0 uses the default)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	switch fs.NArg() {
	case 0:
	case 1:
		s.file = fs.Arg(0)
	default:
		return nil, &UsageError{of: s}
	}
	if s.gui && len(s.execs) > 0 {
		return nil, fmt.Errorf("-gui cannot be combined with -e")
	}
	return s, nil
}

func (s *shellCmd) Run() error {
	var doc *document.Document
	if s.file == "" {
		doc = document.Blank(letter)
	} else {
		var err error
		if doc, err = document.Open(s.file); err != nil {
			return err
		}
	}
	defer doc.Close()

	gate, status := s.root.gate()
	sess := appstate.NewSession(doc, appstate.WithGate(gate), appstate.WithZoom(s.zoom), appstate.WithColor(s.root.defaultColor()))
	output := "annotated.png"
	if s.file != "" {
		output = defaultOutput(s.file)
	}
	app := appstate.New(sess, append(s.root.appOptions(), appstate.WithStatus(status), appstate.WithOutput(output))...)
	ss := newShellSession(app, os.Stdout)

	if len(s.execs) > 0 {
		for _, line := range s.execs {
			if err := ss.execLine(line); err != nil {
				return err
			}
		}
		return nil
	}

	sh := ishell.New()
	sh.SetPrompt("quickmark> ")
	sh.Println("Enter commands (type 'help' for a list, 'exit' to quit)")
	for _, name := range ss.names() {
		name := name
		sh.AddCmd(&ishell.Cmd{
			Name: name,
			Help: ss.commands[name].help,
			Func: func(c *ishell.Context) {
				if err := ss.exec(name, c.Args); err != nil {
					c.Err(err)
				}
			},
		})
	}
	if !s.gui {
		sh.Run()
		return nil
	}
	go func() {
		sh.Run()
		app.Quit()
	}()
	app.Run()
	sh.Close()
	return nil
}

type shellCommand struct {
	help string
	run  func(args []string) error
}

// shellSession runs shell commands against a viewer state. Commands that
// touch the session go through AppState.Do so they are safe while the
// viewer window is open.
type shellSession struct {
	app      *appstate.AppState
	out      io.Writer
	page     int
	commands map[string]shellCommand
}

func newShellSession(app *appstate.AppState, out io.Writer) *shellSession {
	ss := &shellSession{app: app, out: out, page: 1}
	ss.commands = map[string]shellCommand{
		"page":   {"page N: select the page new annotations go on", ss.cmdPage},
		"color":  {"color NAME|#RRGGBB: set the annotation color", ss.cmdColor},
		"add":    {"add TOOL x0 y0 x1 y1 | add text|note x y words...: add an annotation in page points", ss.cmdAdd},
		"sign":   {"sign x y: place the clipboard image as a signature", ss.cmdSign},
		"list":   {"list [page]: list annotations", ss.cmdList},
		"paste":  {"paste x y: place the clipboard text as a text box", ss.cmdPaste},
		"dump":   {"dump [clip]: print annotations as YAML, or copy them to the clipboard", ss.cmdDump},
		"move":   {"move ID dx dy: move an annotation by page points", ss.cmdMove},
		"delete": {"delete ID: remove an annotation", ss.cmdDelete},
		"clear":  {"clear: remove every annotation", ss.cmdClear},
		"zoom":   {"zoom Z: change the display zoom", ss.cmdZoom},
		"pages":  {"pages: list page sizes", ss.cmdPages},
		"export": {"export PATH: write an annotated PDF or PNG", ss.cmdExport},
	}
	return ss
}

func (ss *shellSession) names() []string {
	names := make([]string, 0, len(ss.commands))
	for n := range ss.commands {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (ss *shellSession) execLine(line string) error {
	args := strings.Fields(line)
	if len(args) == 0 {
		return nil
	}
	return ss.exec(args[0], args[1:])
}

func (ss *shellSession) exec(name string, args []string) error {
	cmd, ok := ss.commands[strings.ToLower(name)]
	if !ok {
		return fmt.Errorf("unknown command %q", name)
	}
	if err := cmd.run(args); err != nil {
		return err
	}
	ss.app.NotifyChanged()
	return nil
}

// do runs fn on the session and returns its error.
func (ss *shellSession) do(fn func(*appstate.Session) error) error {
	var err error
	ss.app.Do(func(s *appstate.Session) { err = fn(s) })
	return err
}

func (ss *shellSession) cmdPage(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("page requires a page number")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid page %q", args[0])
	}
	return ss.do(func(s *appstate.Session) error {
		if s.Layout.Page(n) == nil {
			return fmt.Errorf("page %d: %w", n, annotation.ErrMissingPage)
		}
		ss.page = n
		s.ScrollToPage(n)
		return nil
	})
}

func (ss *shellSession) cmdColor(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("color requires a name or hex value")
	}
	c, err := parseColor(args[0])
	if err != nil {
		return err
	}
	return ss.do(func(s *appstate.Session) error {
		s.Machine.SetColor(c)
		return nil
	})
}

func (ss *shellSession) cmdAdd(args []string) error {
	g, err := parseGesture(ss.page, args)
	if err != nil {
		return err
	}
	return ss.addGesture(g)
}

func (ss *shellSession) addGesture(g gestureSpec) error {
	var id annotation.ID
	err := ss.do(func(s *appstate.Session) error {
		var err error
		id, err = g.apply(s)
		return err
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(ss.out, id)
	return nil
}

func (ss *shellSession) cmdSign(args []string) error {
	xy, err := expectFloats(args, 2, "sign")
	if err != nil {
		return err
	}
	sig, err := clipboard.ReadSignature()
	if err != nil {
		return fmt.Errorf("read signature: %w", err)
	}
	var id annotation.ID
	err = ss.do(func(s *appstate.Session) error {
		page := s.Layout.Page(ss.page)
		if page == nil {
			return fmt.Errorf("page %d: %w", ss.page, annotation.ErrMissingPage)
		}
		at := s.Layout.PageOrigin(page).Add(r2.Point{X: xy[0], Y: xy[1]}.Mul(s.Layout.Zoom))
		id, err = s.PlaceSignature(at, sig)
		return err
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(ss.out, id)
	return nil
}

func (ss *shellSession) cmdPaste(args []string) error {
	if _, err := expectFloats(args, 2, "paste"); err != nil {
		return err
	}
	text, err := clipboard.ReadText()
	if err != nil {
		return fmt.Errorf("read clipboard text: %w", err)
	}
	g, err := parseGesture(ss.page, []string{"text", args[0], args[1], strings.TrimSpace(text)})
	if err != nil {
		return err
	}
	return ss.addGesture(g)
}

// recordView is a record in page points, for listing and YAML dumps.
type recordView struct {
	ID     string    `yaml:"id"`
	Kind   string    `yaml:"kind"`
	Page   int       `yaml:"page"`
	Shape  string    `yaml:"shape,omitempty"`
	Bounds geom.Rect `yaml:"bounds"`
	Text   string    `yaml:"text,omitempty"`
	Color  string    `yaml:"color,omitempty"`
}

func viewOf(r annotation.Record, zoom float64) recordView {
	v := recordView{
		ID:     string(r.ID),
		Kind:   r.Kind.String(),
		Page:   r.Page,
		Bounds: r.Bounds().Scale(1 / zoom),
		Text:   r.Text,
	}
	switch r.Kind {
	case annotation.Shape:
		v.Shape = r.Shape.String()
	case annotation.TextDecoration:
		v.Shape = r.Decoration.String()
	}
	if r.Kind != annotation.StickyNote && r.Kind != annotation.Freehand {
		v.Color = annotation.HexColor(r.Color)
	}
	return v
}

func (ss *shellSession) views(page int) []recordView {
	var out []recordView
	ss.app.Do(func(s *appstate.Session) {
		for _, r := range s.Store.Snapshot() {
			if page == 0 || r.Page == page {
				out = append(out, viewOf(r, s.Layout.Zoom))
			}
		}
	})
	return out
}

func (ss *shellSession) cmdList(args []string) error {
	page := 0
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid page %q", args[0])
		}
		page = n
	}
	views := ss.views(page)
	if len(views) == 0 {
		fmt.Fprintln(ss.out, "no annotations")
		return nil
	}
	for _, v := range views {
		kind := v.Kind
		if v.Shape != "" {
			kind += "/" + v.Shape
		}
		b := v.Bounds
		fmt.Fprintf(ss.out, "%s  p%d  %-20s %6.1f %6.1f %6.1f %6.1f  %s\n", v.ID[:8], v.Page, kind, b.X, b.Y, b.Width, b.Height, v.Text)
	}
	return nil
}

func (ss *shellSession) cmdDump(args []string) error {
	data, err := yaml.Marshal(ss.views(0))
	if err != nil {
		return err
	}
	if len(args) == 1 && args[0] == "clip" {
		if err := clipboard.WriteText(string(data)); err != nil {
			return fmt.Errorf("copy to clipboard: %w", err)
		}
		fmt.Fprintln(ss.out, "copied annotations to clipboard")
		return nil
	}
	_, err = ss.out.Write(data)
	return err
}

// resolve finds the record whose id starts with prefix.
func (ss *shellSession) resolve(s *appstate.Session, prefix string) (annotation.ID, error) {
	var found annotation.ID
	for _, r := range s.Store.Snapshot() {
		if strings.HasPrefix(string(r.ID), prefix) {
			if found != "" {
				return "", fmt.Errorf("ambiguous id %q", prefix)
			}
			found = r.ID
		}
	}
	if found == "" {
		return "", fmt.Errorf("%s: %w", prefix, annotation.ErrNotFound)
	}
	return found, nil
}

func (ss *shellSession) cmdMove(args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("move requires ID dx dy")
	}
	d, err := expectFloats(args[1:], 2, "move")
	if err != nil {
		return err
	}
	return ss.do(func(s *appstate.Session) error {
		id, err := ss.resolve(s, args[0])
		if err != nil {
			return err
		}
		return s.Overlay.Nudge(id, r2.Point{X: d[0], Y: d[1]}.Mul(s.Layout.Zoom))
	})
}

func (ss *shellSession) cmdDelete(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("delete requires an ID")
	}
	return ss.do(func(s *appstate.Session) error {
		id, err := ss.resolve(s, args[0])
		if err != nil {
			return err
		}
		return s.Overlay.Delete(id)
	})
}

func (ss *shellSession) cmdClear([]string) error {
	return ss.do(func(s *appstate.Session) error {
		s.ClearAll()
		return nil
	})
}

func (ss *shellSession) cmdZoom(args []string) error {
	z, err := expectFloats(args, 1, "zoom")
	if err != nil {
		return err
	}
	if z[0] <= 0 {
		return fmt.Errorf("zoom must be positive")
	}
	return ss.do(func(s *appstate.Session) error {
		s.SetZoom(z[0])
		return nil
	})
}

func (ss *shellSession) cmdPages([]string) error {
	return ss.do(func(s *appstate.Session) error {
		return printPages(ss.out, s.Doc.Pages)
	})
}

func (ss *shellSession) cmdExport(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("export requires a path")
	}
	path := args[0]
	err := ss.do(func(s *appstate.Session) error {
		_, err := s.Export(context.Background(), s.SinkFor(path))
		return err
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(ss.out, "saved %s\n", path)
	return nil
}
