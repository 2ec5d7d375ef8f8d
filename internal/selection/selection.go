// Package selection tracks which entities of the current filtered view are
// checked for bulk action. Sets are immutable; every operation returns a new
// one.
package selection

import "sort"

type Set struct {
	ids map[string]struct{}
}

func New(ids ...string) Set {
	s := Set{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s
}

func (s Set) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

func (s Set) Len() int { return len(s.ids) }

// IDs returns the members sorted for stable display.
func (s Set) IDs() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Toggle flips membership of id.
func (s Set) Toggle(id string) Set {
	out := s.copy()
	if _, ok := out.ids[id]; ok {
		delete(out.ids, id)
	} else {
		out.ids[id] = struct{}{}
	}
	return out
}

// SelectAll replaces the selection with exactly the visible ids.
func SelectAll(visible []string) Set { return New(visible...) }

func Clear() Set { return New() }

// Reconcile drops ids that are no longer visible. It never adds ids.
func (s Set) Reconcile(visible []string) Set {
	keep := make(map[string]struct{}, len(visible))
	for _, id := range visible {
		keep[id] = struct{}{}
	}
	out := New()
	for id := range s.ids {
		if _, ok := keep[id]; ok {
			out.ids[id] = struct{}{}
		}
	}
	return out
}

// Union adds ids that are also visible, used when an action selects a
// recommendation's targets.
func (s Set) Union(ids, visible []string) Set {
	out := s.copy()
	for _, id := range ids {
		out.ids[id] = struct{}{}
	}
	return out.Reconcile(visible)
}

func (s Set) copy() Set {
	out := Set{ids: make(map[string]struct{}, len(s.ids))}
	for id := range s.ids {
		out.ids[id] = struct{}{}
	}
	return out
}
