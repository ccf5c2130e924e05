package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/example/quickmark/internal/theme"
)

// Notify holds notification settings.
type Notify struct {
	Export bool
	Save   bool
	Copy   bool
}

// Config holds the application configuration.
type Config struct {
	Theme   string
	SaveDir string
	// Zoom is the display scale; zero means the viewer default.
	Zoom float64
	// Color is the initial annotation colour as a name or #RRGGBB.
	Color string
	// LicenseKey is a premium activation key or signed token.
	LicenseKey string
	// LicenseSecret verifies signed license tokens.
	LicenseSecret string
	Notify        Notify
	Themes        map[string]*theme.Theme
}

// New creates a new Config with defaults.
func New() *Config {
	return &Config{
		Theme:  "", // Default to empty to allow fallback to Env/Default
		Themes: make(map[string]*theme.Theme),
	}
}

// String implements fmt.Stringer and returns the configuration in RC format.
func (c *Config) String() string {
	var sb strings.Builder

	// Root section
	root := []struct{ key, value string }{
		{"theme", c.Theme},
		{"save_dir", c.SaveDir},
		{"color", c.Color},
		{"license_key", c.LicenseKey},
		{"license_secret", c.LicenseSecret},
	}
	for _, kv := range root {
		if kv.value != "" {
			fmt.Fprintf(&sb, "%s = %s\n", kv.key, kv.value)
		}
	}
	if c.Zoom != 0 {
		fmt.Fprintf(&sb, "zoom = %g\n", c.Zoom)
	}
	sb.WriteString("\n")

	// Notify section
	sb.WriteString("[notify]\n")
	fmt.Fprintf(&sb, "export = %v\n", c.Notify.Export)
	fmt.Fprintf(&sb, "save = %v\n", c.Notify.Save)
	fmt.Fprintf(&sb, "copy = %v\n", c.Notify.Copy)
	sb.WriteString("\n")

	// Sort keys for deterministic output
	var themeNames []string
	for name := range c.Themes {
		themeNames = append(themeNames, name)
	}
	sort.Strings(themeNames)

	for _, name := range themeNames {
		fmt.Fprintf(&sb, "[theme.%s]\n", name)
		_ = c.Themes[name].Format(&sb)
		sb.WriteString("\n")
	}

	return sb.String()
}
