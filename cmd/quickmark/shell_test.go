package main

import (
	"bytes"
	"errors"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/example/quickmark/internal/annotation"
	"github.com/example/quickmark/internal/appstate"
	"github.com/example/quickmark/internal/document"
)

func newTestShell(t *testing.T) (*shellSession, *appstate.Session, *bytes.Buffer) {
	t.Helper()
	doc := document.Blank(letter, letter)
	sess := appstate.NewSession(doc, appstate.WithZoom(1), appstate.WithLogger(log.New(io.Discard, "", 0)))
	var out bytes.Buffer
	return newShellSession(appstate.New(sess), &out), sess, &out
}

func TestShellAddListDelete(t *testing.T) {
	ss, sess, out := newTestShell(t)
	if err := ss.execLine("add rect 10 10 100 50"); err != nil {
		t.Fatalf("add: %v", err)
	}
	id := strings.TrimSpace(out.String())
	if _, ok := sess.Store.Get(annotation.ID(id)); !ok {
		t.Fatalf("added id %q not in store", id)
	}

	out.Reset()
	if err := ss.execLine("list"); err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(strings.ToLower(out.String()), "rectangle") {
		t.Fatalf("list output missing rectangle: %q", out.String())
	}

	if err := ss.execLine("delete " + id[:8]); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if sess.Store.Len() != 0 {
		t.Fatalf("expected empty store, got %d records", sess.Store.Len())
	}
	out.Reset()
	if err := ss.execLine("list"); err != nil {
		t.Fatalf("list: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "no annotations" {
		t.Fatalf("list after delete = %q", got)
	}
}

func TestShellMoveUsesPagePoints(t *testing.T) {
	ss, sess, out := newTestShell(t)
	if err := ss.execLine("zoom 2"); err != nil {
		t.Fatalf("zoom: %v", err)
	}
	if err := ss.execLine("add rect 10 10 100 50"); err != nil {
		t.Fatalf("add: %v", err)
	}
	id := annotation.ID(strings.TrimSpace(out.String()))
	before, _ := sess.Store.Get(id)
	if err := ss.execLine("move " + string(id)[:8] + " 5 -5"); err != nil {
		t.Fatalf("move: %v", err)
	}
	after, _ := sess.Store.Get(id)
	dx := after.Bounds().X - before.Bounds().X
	dy := after.Bounds().Y - before.Bounds().Y
	if dx != 10 || dy != -10 {
		t.Fatalf("moved by %v,%v display pixels, want 10,-10", dx, dy)
	}
}

func TestShellAddOnSecondPage(t *testing.T) {
	ss, sess, _ := newTestShell(t)
	if err := ss.execLine("page 2"); err != nil {
		t.Fatalf("page: %v", err)
	}
	if err := ss.execLine("add note 20 20 remember this"); err != nil {
		t.Fatalf("add note: %v", err)
	}
	recs := sess.Store.Snapshot()
	if len(recs) != 1 {
		t.Fatalf("expected one record, got %d", len(recs))
	}
	if recs[0].Page != 2 || recs[0].Kind != annotation.StickyNote || recs[0].Text != "remember this" {
		t.Fatalf("unexpected record %+v", recs[0])
	}
	if err := ss.execLine("page 3"); !errors.Is(err, annotation.ErrMissingPage) {
		t.Fatalf("expected ErrMissingPage, got %v", err)
	}
}

func TestShellDumpYAML(t *testing.T) {
	ss, _, out := newTestShell(t)
	if err := ss.execLine("add text 30 40 hello"); err != nil {
		t.Fatalf("add text: %v", err)
	}
	out.Reset()
	if err := ss.execLine("dump"); err != nil {
		t.Fatalf("dump: %v", err)
	}
	for _, want := range []string{"kind:", "page: 1", "text: hello"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("dump missing %q: %q", want, out.String())
		}
	}
}

func TestShellClearAndErrors(t *testing.T) {
	ss, sess, _ := newTestShell(t)
	for _, line := range []string{"add rect 10 10 100 50", "add circle 200 200 260 240"} {
		if err := ss.execLine(line); err != nil {
			t.Fatalf("%s: %v", line, err)
		}
	}
	if err := ss.execLine("clear"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if sess.Store.Len() != 0 {
		t.Fatalf("expected empty store after clear")
	}
	if err := ss.execLine("frobnicate"); err == nil {
		t.Fatalf("expected unknown command error")
	}
	if err := ss.execLine("delete nope"); !errors.Is(err, annotation.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := ss.execLine("zoom 0"); err == nil {
		t.Fatalf("expected zoom error")
	}
	if err := ss.execLine(""); err != nil {
		t.Fatalf("empty line: %v", err)
	}
}
