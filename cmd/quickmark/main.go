package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	"image/color"
	"os"
	"strings"

	"github.com/example/quickmark/internal/annotation"
	"github.com/example/quickmark/internal/appstate"
	"github.com/example/quickmark/internal/config"
	"github.com/example/quickmark/internal/license"
	"github.com/example/quickmark/internal/notify"
	"github.com/example/quickmark/internal/theme"
)

var (
	version            = "dev"
	commit             = ""
	date               = ""
	configPathOverride = ""
)

type runnable interface{ Run() error }

type root struct {
	fs          *flag.FlagSet
	program     string
	notifier    *notify.Notifier
	config      *config.Config
	exportAlert bool
	saveAlerts  bool
	copyAlerts  bool
	themeName   string
	licenseKey  string
	activeTheme *theme.Theme
}

func (r *root) Program() string {
	return r.program
}

func (r *root) subcommand(name string) *root {
	program := strings.TrimSpace(strings.Join([]string{r.program, name}, " "))
	return &root{
		program:     program,
		notifier:    r.notifier,
		config:      r.config,
		exportAlert: r.exportAlert,
		saveAlerts:  r.saveAlerts,
		copyAlerts:  r.copyAlerts,
		themeName:   r.themeName,
		licenseKey:  r.licenseKey,
		activeTheme: r.activeTheme,
	}
}

func (r *root) FlagSet() *flag.FlagSet {
	return r.fs
}

func newRoot() *root {
	prefs := notify.LoadPreferences()
	loader := config.NewLoader(version, configPathOverride)
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to load config: %v\n", err)
		cfg = config.New()
	}

	r := &root{
		fs:       flag.NewFlagSet("quickmark", flag.ExitOnError),
		program:  "quickmark",
		notifier: notify.New(prefs),
		config:   cfg,
	}
	r.fs.BoolVar(&r.exportAlert, "notify-export", cfg.Notify.Export, "show a desktop notification after exporting annotations")
	r.fs.BoolVar(&r.saveAlerts, "notify-save", cfg.Notify.Save, "show a desktop notification after saving a file")
	r.fs.BoolVar(&r.copyAlerts, "notify-copy", cfg.Notify.Copy, "show a desktop notification after copying to the clipboard")

	// Precedence: CLI > Env > Config > Default
	r.fs.StringVar(&r.themeName, "theme", "", "color theme to use ("+strings.Join(theme.Names(), ", ")+")")
	r.fs.StringVar(&r.licenseKey, "license", "", "premium license key or signed token")
	r.fs.Usage = usageFunc(r)
	return r
}

func (r *root) Run(args []string) error {
	if err := r.fs.Parse(args); err != nil {
		return err
	}
	if r.fs.NArg() < 1 {
		return &UsageError{of: r}
	}
	if r.notifier != nil {
		r.notifier.Enable(notify.EventExport, r.exportAlert)
		r.notifier.Enable(notify.EventSave, r.saveAlerts)
		r.notifier.Enable(notify.EventCopy, r.copyAlerts)
	}
	r.activeTheme = r.resolveTheme()

	cmdName := r.fs.Arg(0)
	subArgs := r.fs.Args()[1:]

	var (
		cmd runnable
		err error
	)
	switch cmdName {
	case "annotate":
		cmd, err = parseAnnotateCmd(subArgs, r.subcommand(cmdName))
	case "draw":
		cmd, err = parseDrawCmd(subArgs, r.subcommand(cmdName))
	case "shell":
		cmd, err = parseShellCmd(subArgs, r.subcommand(cmdName))
	case "pages":
		cmd, err = parsePagesCmd(subArgs, r.subcommand(cmdName))
	case "colors":
		cmd, err = parseColorsCmd(subArgs, r.subcommand(cmdName))
	case "license":
		cmd, err = parseLicenseCmd(subArgs, r.subcommand(cmdName))
	case "config":
		cmd, err = parseConfigCmd(subArgs, r.subcommand(cmdName))
	case "version":
		cmd = &versionCmd{r: r}
	default:
		err = &UsageError{of: r}
	}
	if err != nil {
		return err
	}
	if runErr := cmd.Run(); runErr != nil {
		return runErr
	}
	return nil
}

func (r *root) resolveTheme() *theme.Theme {
	themeName := r.themeName
	if themeName == "" {
		themeName = os.Getenv("QUICKMARK_THEME")
	}
	if themeName == "" && r.config != nil {
		themeName = r.config.Theme
	}
	if r.config != nil {
		if t, ok := r.config.Themes[themeName]; ok {
			return t
		}
	}
	t, err := theme.NewLoader().Load(themeName)
	if err != nil {
		if themeName != "" && themeName != "default" {
			fmt.Fprintf(os.Stderr, "warning: failed to load theme '%s': %v. using default.\n", themeName, err)
		}
		return theme.Default()
	}
	return t
}

// gate builds the license gate from the -license flag, the environment or
// the config, in that order. An invalid key leaves only free tools.
func (r *root) gate() (*license.PremiumGate, string) {
	var secret []byte
	key := r.licenseKey
	if key == "" {
		key = os.Getenv("QUICKMARK_LICENSE_KEY")
	}
	if r.config != nil {
		if key == "" {
			key = r.config.LicenseKey
		}
		if r.config.LicenseSecret != "" {
			secret = []byte(r.config.LicenseSecret)
		}
	}
	g := license.NewPremiumGate(secret)
	if key == "" {
		return g, "free"
	}
	if err := g.Activate(key); err != nil {
		fmt.Fprintf(os.Stderr, "warning: license: %v\n", err)
		return g, "free"
	}
	if c := g.Claims(); c != nil {
		return g, "licensed to " + c.Email
	}
	return g, "licensed"
}

// defaultColor returns the configured annotation colour or yellow.
func (r *root) defaultColor() color.RGBA {
	if r != nil && r.config != nil && r.config.Color != "" {
		if c, err := parseColor(r.config.Color); err == nil {
			return c
		}
		fmt.Fprintf(os.Stderr, "warning: invalid color %q in config\n", r.config.Color)
	}
	return annotation.Yellow
}

// zoom returns the configured display zoom, or zero for the default.
func (r *root) zoom() float64 {
	if r == nil || r.config == nil {
		return 0
	}
	return r.config.Zoom
}

func main() {
	r := newRoot()
	if err := r.Run(os.Args[1:]); err != nil {
		var uerr *UsageError
		if errors.As(err, &uerr) {
			fmt.Fprintln(os.Stderr, uerr.Error())
		} else {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
}

func (r *root) notifyExport(path string, img image.Image) {
	if r == nil || r.notifier == nil {
		return
	}
	r.notifier.Export(path, img)
}

func (r *root) notifySave(path string) {
	if r == nil || r.notifier == nil {
		return
	}
	r.notifier.Save(path)
}

func (r *root) notifyCopy(detail string) {
	if r == nil || r.notifier == nil {
		return
	}
	r.notifier.Copy(detail)
}

func (r *root) appOptions() []appstate.Option {
	opts := []appstate.Option{appstate.WithNotifier(r.notifier)}
	if r.activeTheme != nil {
		opts = append(opts, appstate.WithTheme(r.activeTheme))
	}
	return opts
}
