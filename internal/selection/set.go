// Package selection tracks which issue rows a user has checked.
package selection

import (
	"maps"
	"slices"
)

// Set is a set of issue ids. The zero value is an empty set ready to use.
// A Set is not safe for concurrent use.
type Set struct {
	ids map[int]struct{}
}

// New returns a set containing ids.
func New(ids ...int) *Set {
	s := &Set{}
	s.Add(ids...)
	return s
}

func (s *Set) Has(id int) bool {
	_, ok := s.ids[id]
	return ok
}

func (s *Set) Len() int {
	return len(s.ids)
}

// Add marks every id as selected.
func (s *Set) Add(ids ...int) {
	if s.ids == nil {
		s.ids = make(map[int]struct{}, len(ids))
	}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
}

func (s *Set) Remove(id int) {
	delete(s.ids, id)
}

// Toggle flips id and reports whether it is selected afterwards.
func (s *Set) Toggle(id int) bool {
	if s.Has(id) {
		s.Remove(id)
		return false
	}
	s.Add(id)
	return true
}

// Clear empties the set.
func (s *Set) Clear() {
	clear(s.ids)
}

// ContainsAll reports whether every id is selected. It is false for an
// empty list.
func (s *Set) ContainsAll(ids []int) bool {
	if len(ids) == 0 {
		return false
	}
	for _, id := range ids {
		if !s.Has(id) {
			return false
		}
	}
	return true
}

// TogglePage implements the header checkbox: if every row on the page is
// already selected the whole selection is cleared, otherwise the page rows
// are added to it.
func (s *Set) TogglePage(pageIDs []int) {
	if s.ContainsAll(pageIDs) {
		s.Clear()
		return
	}
	s.Add(pageIDs...)
}

// IDs returns the selected ids in ascending order.
func (s *Set) IDs() []int {
	return slices.Sorted(maps.Keys(s.ids))
}

// Clone returns an independent copy.
func (s *Set) Clone() *Set {
	return &Set{ids: maps.Clone(s.ids)}
}
