package notify

import "testing"

func TestLoadPreferencesEnvOverrides(t *testing.T) {
	t.Setenv("QUICKMARK_NOTIFY_TITLE", "Docs")
	t.Setenv("QUICKMARK_NOTIFY_EXPORT_TEXT", "Wrote %s")
	prefs := LoadPreferences()
	if prefs.Title != "Docs" {
		t.Fatalf("title = %q", prefs.Title)
	}
	if got := prefs.Events[EventExport].Template; got != "Wrote %s" {
		t.Fatalf("export template = %q", got)
	}
	if got := prefs.Events[EventCopy].Template; got != "Copied %s to clipboard" {
		t.Fatalf("copy template = %q", got)
	}
}

func TestNotifierDisabledByDefault(t *testing.T) {
	n := New(DefaultPreferences())
	for _, ev := range []Event{EventExport, EventSave, EventCopy} {
		if n.enabledFor(ev) {
			t.Fatalf("%s enabled without Enable", ev)
		}
	}
	n.Enable(EventSave, true)
	if !n.enabledFor(EventSave) {
		t.Fatal("save not enabled")
	}
	if n.enabledFor(EventExport) {
		t.Fatal("export enabled by save")
	}
}

func TestNilNotifierIsSafe(t *testing.T) {
	var n *Notifier
	n.Enable(EventCopy, true)
	n.Copy("page 1")
	n.Save("out.png")
	n.Export("out.pdf", nil)
}

func TestNewClonesPreferences(t *testing.T) {
	prefs := DefaultPreferences()
	n := New(prefs)
	prefs.Events[EventExport] = EventPreference{Template: "changed"}
	if got := n.template(EventExport); got != "Exported %s" {
		t.Fatalf("template = %q", got)
	}
}
