package inventory

import "go-extension-exporter/internal/browsers"

// Selection is the set of extension ids the user picked. It is owned by the controller.
type Selection struct {
	ids map[string]struct{}
}

// NewSelection creates a selection holding ids
func NewSelection(ids ...string) *Selection {
	s := &Selection{ids: make(map[string]struct{})}
	s.Select(ids...)
	return s
}

// Toggle flips the state of id and reports whether it is now selected
func (s *Selection) Toggle(id string) bool {
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// Select adds ids
func (s *Selection) Select(ids ...string) {
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
}

// SelectAll adds every record
func (s *Selection) SelectAll(records []browsers.Extension) {
	for _, r := range records {
		s.ids[r.ID] = struct{}{}
	}
}

// Clear deselects everything
func (s *Selection) Clear() {
	clear(s.ids)
}

func (s *Selection) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

func (s *Selection) Len() int {
	return len(s.ids)
}

// Filter returns the selected records in input order
func (s *Selection) Filter(records []browsers.Extension) []browsers.Extension {
	var out []browsers.Extension
	for _, r := range records {
		if s.Has(r.ID) {
			out = append(out, r)
		}
	}
	return out
}
