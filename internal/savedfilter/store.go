// Package savedfilter keeps named, reusable filter criteria per screen kind.
package savedfilter

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"propdesk/internal/domain"
)

// Store is append-only until an explicit Delete. Names are not unique.
// Callers serialise writes.
type Store interface {
	Save(kind domain.Kind, name string, criteria domain.Criteria) (domain.SavedFilter, error)
	List(kind domain.Kind) ([]domain.SavedFilter, error)
	Delete(id string) error
	// Apply returns a deep copy of the stored criteria.
	Apply(id string) (domain.Criteria, error)
}

func newSavedFilter(kind domain.Kind, name string, criteria domain.Criteria, now time.Time) (domain.SavedFilter, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.SavedFilter{}, fmt.Errorf("%w: filter name is required", domain.ErrValidation)
	}
	return domain.SavedFilter{
		ID:        uuid.NewString(),
		Kind:      kind,
		Name:      name,
		Criteria:  criteria.Clone(),
		CreatedAt: now,
	}, nil
}

func notFound(id string) error {
	return fmt.Errorf("%w: saved filter %q", domain.ErrNotFound, id)
}
