package savedfilter

import (
	"sync"
	"time"

	"propdesk/internal/domain"
)

type MemoryStore struct {
	mu      sync.Mutex
	filters []domain.SavedFilter
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

func (s *MemoryStore) Save(kind domain.Kind, name string, criteria domain.Criteria) (domain.SavedFilter, error) {
	f, err := newSavedFilter(kind, name, criteria, s.now())
	if err != nil {
		return domain.SavedFilter{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = append(s.filters, f)
	return copyFilter(f), nil
}

func (s *MemoryStore) List(kind domain.Kind) ([]domain.SavedFilter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.SavedFilter
	for _, f := range s.filters {
		if kind == "" || f.Kind == kind {
			out = append(out, copyFilter(f))
		}
	}
	return out, nil
}

func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, f := range s.filters {
		if f.ID == id {
			s.filters = append(s.filters[:i:i], s.filters[i+1:]...)
			return nil
		}
	}
	return notFound(id)
}

func (s *MemoryStore) Apply(id string) (domain.Criteria, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.filters {
		if f.ID == id {
			return f.Criteria.Clone(), nil
		}
	}
	return domain.Criteria{}, notFound(id)
}

func copyFilter(f domain.SavedFilter) domain.SavedFilter {
	f.Criteria = f.Criteria.Clone()
	return f
}
