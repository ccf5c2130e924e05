package theme

import (
	"bytes"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseCaseInsensitiveKeys(t *testing.T) {
	th, err := Parse(strings.NewReader("Name: Mine\nbackground: #102030\nSELECTION: #01020380\nUnknown: #FFFFFF\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if th.Name != "Mine" {
		t.Errorf("name = %q", th.Name)
	}
	if th.Background != (color.RGBA{0x10, 0x20, 0x30, 255}) {
		t.Errorf("background = %v", th.Background)
	}
	if th.Selection != (color.RGBA{1, 2, 3, 0x80}) {
		t.Errorf("selection = %v", th.Selection)
	}
	if th.Caret != Default().Caret {
		t.Errorf("missing keys should keep defaults")
	}
}

func TestParseRejectsBadColor(t *testing.T) {
	if _, err := Parse(strings.NewReader("Background: 102030\n")); err == nil {
		t.Fatal("expected error for colour without #")
	}
	if _, err := Parse(strings.NewReader("Background: #1234\n")); err == nil {
		t.Fatal("expected error for short colour")
	}
}

func TestFormatRoundTrip(t *testing.T) {
	want := Default()
	want.Name = "round"
	want.PageBorder = color.RGBA{9, 8, 7, 6}
	var buf bytes.Buffer
	if err := want.Format(&buf); err != nil {
		t.Fatalf("format: %v", err)
	}
	got, err := Parse(&buf)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if *got != *want {
		t.Fatalf("round trip:\n got %+v\nwant %+v", got, want)
	}
}

func TestEmbeddedThemesLoad(t *testing.T) {
	names := Names()
	if len(names) < 2 {
		t.Fatalf("embedded themes = %v", names)
	}
	l := &Loader{}
	for _, n := range names {
		th, err := l.Load(n)
		if err != nil {
			t.Fatalf("load %s: %v", n, err)
		}
		if th.Name == "" {
			t.Errorf("%s has no name", n)
		}
	}
	dark, _ := l.Load("dark")
	if dark.Background == Default().Background {
		t.Error("dark theme kept the default background")
	}
}

func TestLoaderSearchOrder(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "sepia.theme"), []byte("Name: Sepia\nBackground: #704214\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	inline := Default()
	inline.Name = "inline"
	l := &Loader{ConfigDir: dir, SystemDir: filepath.Join(dir, "missing"), Inline: map[string]*Theme{"sepia": inline}}

	th, err := l.Load("sepia")
	if err != nil || th.Name != "inline" {
		t.Fatalf("inline theme should win, got %v %v", th, err)
	}
	delete(l.Inline, "sepia")
	th, err = l.Load("sepia")
	if err != nil || th.Name != "Sepia" {
		t.Fatalf("config dir theme, got %v %v", th, err)
	}
	if _, err := l.Load("nope"); err == nil {
		t.Fatal("expected missing theme error")
	}
	th, err = l.Load("")
	if err != nil || th.Name != "Default" {
		t.Fatalf("empty name should give default, got %v %v", th, err)
	}
}
