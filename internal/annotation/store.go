package annotation

import (
	"fmt"
	"iter"

	"github.com/golang/geo/r2"

	"github.com/example/quickmark/internal/geom"
)

// Op names the kind of change reported to store listeners.
type Op int

const (
	OpAdd Op = iota
	OpUpdate
	OpRemove
	OpClear
)

// Event describes one store mutation. Record is the zero value for OpClear.
type Event struct {
	Op     Op
	Record Record
}

// Listener receives store events synchronously after the mutation.
type Listener func(Event)

// Patch carries the geometry fields to merge into a record. Nil fields are
// left untouched.
type Patch struct {
	Box    *geom.Rect
	Line   *geom.Segment
	Anchor *r2.Point
	Text   *string
}

// Store is an ordered collection of records. Insertion order is z-order.
// It is not safe for concurrent use; all mutation happens on the UI goroutine.
type Store struct {
	records   []Record
	index     map[ID]int
	listeners map[int]Listener
	nextSub   int
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{index: map[ID]int{}, listeners: map[int]Listener{}}
}

// Subscribe registers fn for change events. The returned func removes it.
func (s *Store) Subscribe(fn Listener) func() {
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = fn
	return func() { delete(s.listeners, id) }
}

func (s *Store) emit(ev Event) {
	for i := 0; i < s.nextSub; i++ {
		if fn, ok := s.listeners[i]; ok {
			fn(ev)
		}
	}
}

// Add appends r and returns its id, generating one when r.ID is empty.
func (s *Store) Add(r Record) (ID, error) {
	if r.Page < 1 {
		return "", fmt.Errorf("add %s on page %d: %w", r.Label(), r.Page, ErrInvalidPage)
	}
	if r.ID == "" {
		r.ID = NewID()
	}
	if _, dup := s.index[r.ID]; dup {
		return "", fmt.Errorf("add %s: duplicate id %s", r.Label(), r.ID)
	}
	s.index[r.ID] = len(s.records)
	s.records = append(s.records, r)
	s.emit(Event{Op: OpAdd, Record: r})
	return r.ID, nil
}

// Get returns a copy of the record with the given id.
func (s *Store) Get(id ID) (Record, bool) {
	i, ok := s.index[id]
	if !ok {
		return Record{}, false
	}
	return s.records[i], true
}

// Remove deletes the record with the given id.
func (s *Store) Remove(id ID) error {
	i, ok := s.index[id]
	if !ok {
		return fmt.Errorf("remove %s: %w", id, ErrNotFound)
	}
	r := s.records[i]
	s.records = append(s.records[:i], s.records[i+1:]...)
	delete(s.index, id)
	for j := i; j < len(s.records); j++ {
		s.index[s.records[j].ID] = j
	}
	s.emit(Event{Op: OpRemove, Record: r})
	return nil
}

// Update merges p into the record with the given id. Page and kind are
// never changed.
func (s *Store) Update(id ID, p Patch) error {
	i, ok := s.index[id]
	if !ok {
		return fmt.Errorf("update %s: %w", id, ErrNotFound)
	}
	r := &s.records[i]
	if p.Box != nil {
		r.Box = *p.Box
	}
	if p.Line != nil {
		r.Line = *p.Line
	}
	if p.Anchor != nil {
		r.Anchor = *p.Anchor
	}
	if p.Text != nil {
		r.Text = *p.Text
	}
	s.emit(Event{Op: OpUpdate, Record: *r})
	return nil
}

// List returns the records on page in insertion order. Page 0 lists every
// page. The sequence reads the store lazily and may be ranged over again.
func (s *Store) List(page int) iter.Seq[Record] {
	return func(yield func(Record) bool) {
		for i := 0; i < len(s.records); i++ {
			r := s.records[i]
			if page != 0 && r.Page != page {
				continue
			}
			if !yield(r) {
				return
			}
		}
	}
}

// Len returns the number of records.
func (s *Store) Len() int { return len(s.records) }

// Snapshot returns a shallow copy of the ordered record list.
func (s *Store) Snapshot() []Record {
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// Clear removes every record.
func (s *Store) Clear() {
	s.records = nil
	s.index = map[ID]int{}
	s.emit(Event{Op: OpClear})
}
