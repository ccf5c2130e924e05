package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	input := `
theme = my_custom_theme
save_dir = /tmp/marked
zoom = 2
color = red
license_key = QM-ABCD-EFGH-JKLM-NPQR
license_secret = c2VjcmV0==

[notify]
export = true
save = false
copy = true

[theme.my_custom_theme]
Background = #111111
Foreground = #FFFFFF
`
	r := strings.NewReader(input)
	cfg, err := Parse(r)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.Theme != "my_custom_theme" {
		t.Errorf("Expected theme 'my_custom_theme', got '%s'", cfg.Theme)
	}

	if cfg.SaveDir != "/tmp/marked" {
		t.Errorf("Expected save_dir '/tmp/marked', got '%s'", cfg.SaveDir)
	}
	if cfg.Zoom != 2 {
		t.Errorf("Expected zoom 2, got %v", cfg.Zoom)
	}
	if cfg.Color != "red" {
		t.Errorf("Expected color 'red', got %q", cfg.Color)
	}
	if cfg.LicenseKey != "QM-ABCD-EFGH-JKLM-NPQR" {
		t.Errorf("Unexpected license key %q", cfg.LicenseKey)
	}
	if cfg.LicenseSecret != "c2VjcmV0==" {
		t.Errorf("Unexpected license secret %q", cfg.LicenseSecret)
	}

	if !cfg.Notify.Export {
		t.Error("Expected notify.export to be true")
	}
	if cfg.Notify.Save {
		t.Error("Expected notify.save to be false")
	}
	if !cfg.Notify.Copy {
		t.Error("Expected notify.copy to be true")
	}

	theme, ok := cfg.Themes["my_custom_theme"]
	if !ok {
		t.Fatal("Expected theme 'my_custom_theme' to be loaded")
	}

	if theme.Background.R != 0x11 || theme.Background.G != 0x11 || theme.Background.B != 0x11 {
		t.Errorf("Unexpected Background color: %+v", theme.Background)
	}
}

func TestParseRejectsBadZoom(t *testing.T) {
	if _, err := Parse(strings.NewReader("zoom = -1\n")); err == nil {
		t.Fatal("expected error for negative zoom")
	}
	if _, err := Parse(strings.NewReader("[notify]\nexport = maybe\n")); err == nil {
		t.Fatal("expected error for bad boolean")
	}
}

func TestCircular(t *testing.T) {
	input := `theme = dark
save_dir = /home/user/docs
zoom = 1.25

[notify]
export = true
save = true
copy = false

[theme.custom]
Name = custom
Background = #000000
Foreground = #FFFFFF
`
	// 1. Parse initial input
	cfg, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Initial parse failed: %v", err)
	}

	// 2. Generate string representation
	generated := cfg.String()

	// 3. Parse generated string
	cfg2, err := Parse(strings.NewReader(generated))
	if err != nil {
		t.Fatalf("Circular parse failed: %v", err)
	}

	// 4. Compare relevant fields
	if cfg.Theme != cfg2.Theme {
		t.Errorf("Theme mismatch: %q vs %q", cfg.Theme, cfg2.Theme)
	}
	if cfg.SaveDir != cfg2.SaveDir {
		t.Errorf("SaveDir mismatch: %q vs %q", cfg.SaveDir, cfg2.SaveDir)
	}
	if cfg.Zoom != cfg2.Zoom {
		t.Errorf("Zoom mismatch: %v vs %v", cfg.Zoom, cfg2.Zoom)
	}
	if cfg.Notify != cfg2.Notify {
		t.Errorf("Notify mismatch: %+v vs %+v", cfg.Notify, cfg2.Notify)
	}

	// Check theme persistence
	t1 := cfg.Themes["custom"]
	t2 := cfg2.Themes["custom"]
	if t1 == nil || t2 == nil {
		t.Fatalf("Custom theme missing in one config")
	}
	if *t1 != *t2 {
		t.Errorf("Theme mismatch: %+v vs %+v", t1, t2)
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.rc")
	cfg := New()
	cfg.Theme = "dark"
	cfg.Notify.Export = true
	if err := Save(cfg, path); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("stat: %v", err)
	}
	loaded, err := NewLoader("1.0.0", path).Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Theme != "dark" || !loaded.Notify.Export {
		t.Fatalf("loaded %+v", loaded)
	}
}

func TestLoaderDevModeUsesWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".quickmarkrc"), []byte("theme = local\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)
	t.Setenv("HOME", t.TempDir())
	l := NewLoader("dev", "")
	if got := l.GetConfigPath(); filepath.Base(got) != ".quickmarkrc" {
		t.Fatalf("config path = %q", got)
	}
	cfg, err := l.Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Theme != "local" {
		t.Fatalf("theme = %q", cfg.Theme)
	}
}
