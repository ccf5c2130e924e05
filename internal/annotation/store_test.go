package annotation

import (
	"errors"
	"image/color"
	"slices"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/quickmark/internal/geom"
)

func highlight(page int, x float64) Record {
	return Record{Kind: Highlight, Page: page, Box: geom.Rect{X: x, Y: 10, Width: 50, Height: 50}, Color: Yellow}
}

func ids(seq func(func(Record) bool)) []ID {
	var out []ID
	for r := range seq {
		out = append(out, r.ID)
	}
	return out
}

func TestStoreAddKeepsInsertionOrder(t *testing.T) {
	s := NewStore()
	a, err := s.Add(highlight(1, 0))
	require.NoError(t, err)
	b, err := s.Add(highlight(2, 10))
	require.NoError(t, err)
	c, err := s.Add(highlight(1, 20))
	require.NoError(t, err)

	assert.Equal(t, []ID{a, b, c}, ids(s.List(0)))
	assert.Equal(t, []ID{a, c}, ids(s.List(1)))
	// restartable
	assert.Equal(t, []ID{a, c}, ids(s.List(1)))
	assert.Equal(t, 3, s.Len())
}

func TestStoreRejectsInvalidPage(t *testing.T) {
	s := NewStore()
	_, err := s.Add(highlight(0, 0))
	assert.True(t, errors.Is(err, ErrInvalidPage))
	assert.Equal(t, 0, s.Len())
}

func TestStoreRemove(t *testing.T) {
	s := NewStore()
	a, _ := s.Add(highlight(1, 0))
	b, _ := s.Add(highlight(1, 10))
	c, _ := s.Add(highlight(1, 20))

	require.NoError(t, s.Remove(b))
	assert.Equal(t, []ID{a, c}, ids(s.List(0)))
	_, ok := s.Get(b)
	assert.False(t, ok)
	got, ok := s.Get(c)
	require.True(t, ok)
	assert.Equal(t, 20.0, got.Box.X)

	err := s.Remove(b)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStoreUpdateMergesGeometry(t *testing.T) {
	s := NewStore()
	id, _ := s.Add(highlight(3, 10))
	box := geom.Rect{X: 30, Y: 15, Width: 50, Height: 50}
	require.NoError(t, s.Update(id, Patch{Box: &box}))

	got, _ := s.Get(id)
	assert.Equal(t, box, got.Box)
	assert.Equal(t, 3, got.Page)
	assert.Equal(t, Highlight, got.Kind)

	err := s.Update("missing", Patch{Box: &box})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStoreUpdateNoteText(t *testing.T) {
	s := NewStore()
	id, _ := s.Add(Record{Kind: StickyNote, Page: 1, Anchor: r2.Point{X: 5, Y: 5}})
	text := "remember this"
	require.NoError(t, s.Update(id, Patch{Text: &text}))
	got, _ := s.Get(id)
	assert.Equal(t, text, got.Text)
	assert.Equal(t, r2.Point{X: 5, Y: 5}, got.Anchor)
}

func TestStoreSnapshotIsIsolated(t *testing.T) {
	s := NewStore()
	s.Add(highlight(1, 0))
	snap := s.Snapshot()
	s.Add(highlight(1, 10))
	s.Clear()
	assert.Len(t, snap, 1)
	assert.Equal(t, 0, s.Len())
}

func TestStoreEvents(t *testing.T) {
	s := NewStore()
	var ops []Op
	cancel := s.Subscribe(func(ev Event) { ops = append(ops, ev.Op) })
	id, _ := s.Add(highlight(1, 0))
	box := geom.Rect{Width: 1}
	s.Update(id, Patch{Box: &box})
	s.Remove(id)
	s.Clear()
	cancel()
	s.Add(highlight(1, 0))
	assert.True(t, slices.Equal([]Op{OpAdd, OpUpdate, OpRemove, OpClear}, ops))
}

func TestParseColor(t *testing.T) {
	assert.Equal(t, color.RGBA{R: 255, G: 0, B: 0, A: 255}, ParseColor("#ff0000"))
	assert.Equal(t, Yellow, ParseColor("not a colour"))
	assert.Equal(t, "#00ff00", HexColor(color.RGBA{G: 255, A: 255}))
}

func TestRecordDegenerate(t *testing.T) {
	assert.True(t, Record{Kind: Highlight}.Degenerate())
	assert.False(t, Record{Kind: Highlight, Box: geom.Rect{Width: 4}}.Degenerate())
	assert.True(t, Record{Kind: Shape, Shape: Arrow}.Degenerate())
	assert.False(t, Record{Kind: StickyNote}.Degenerate())
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("Highlight")
	require.NoError(t, err)
	assert.Equal(t, Highlight, k)
	_, err = ParseKind("bogus")
	assert.Error(t, err)
	sh, err := ParseShape("arrow")
	require.NoError(t, err)
	assert.True(t, sh.Linear())
}
