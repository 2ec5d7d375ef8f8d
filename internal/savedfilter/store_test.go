package savedfilter

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"propdesk/internal/domain"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "propdesk-test.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": newTestSQLite(t),
	}
}

func warsawCoal() domain.Criteria {
	return domain.NewCriteria(
		domain.CriteriaEntry{ID: "city", Value: domain.Exact{Value: "Warsaw"}},
		domain.CriteriaEntry{ID: "heatingType", Value: domain.MultiSelect{Values: []string{"coal"}}},
	)
}

func TestSaveRejectsBlankName(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Save(domain.KindBuilding, "   ", warsawCoal())
			assert.ErrorIs(t, err, domain.ErrValidation)

			list, err := s.List("")
			require.NoError(t, err)
			assert.Empty(t, list)
		})
	}
}

func TestSaveListAllowsDuplicateNames(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			a, err := s.Save(domain.KindBuilding, "Coal in Warsaw", warsawCoal())
			require.NoError(t, err)
			b, err := s.Save(domain.KindBuilding, "Coal in Warsaw", warsawCoal())
			require.NoError(t, err)
			_, err = s.Save(domain.KindClient, "Big clients", domain.NewCriteria(
				domain.CriteriaEntry{ID: "buildingsCount", Value: domain.ParseRange("5", "")},
			))
			require.NoError(t, err)

			assert.NotEqual(t, a.ID, b.ID)

			buildings, err := s.List(domain.KindBuilding)
			require.NoError(t, err)
			require.Len(t, buildings, 2)
			assert.Equal(t, a.ID, buildings[0].ID)
			assert.Equal(t, b.ID, buildings[1].ID)
			assert.Equal(t, warsawCoal(), buildings[0].Criteria)

			all, err := s.List("")
			require.NoError(t, err)
			assert.Len(t, all, 3)
		})
	}
}

func TestApplyReturnsIndependentCopy(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			f, err := s.Save(domain.KindBuilding, "Coal", warsawCoal())
			require.NoError(t, err)

			c, err := s.Apply(f.ID)
			require.NoError(t, err)
			v, _ := c.Get("heatingType")
			v.(domain.MultiSelect).Values[0] = "gas"

			again, err := s.Apply(f.ID)
			require.NoError(t, err)
			assert.Equal(t, warsawCoal(), again)
		})
	}
}

func TestDeleteAndUnknownIDs(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			f, err := s.Save(domain.KindTenant, "Debtors", domain.Criteria{})
			require.NoError(t, err)

			require.NoError(t, s.Delete(f.ID))
			assert.ErrorIs(t, s.Delete(f.ID), domain.ErrNotFound)

			_, err = s.Apply(f.ID)
			assert.ErrorIs(t, err, domain.ErrNotFound)

			list, err := s.List(domain.KindTenant)
			require.NoError(t, err)
			assert.Empty(t, list)
		})
	}
}

func TestSavedCriteriaNotAliasedToCaller(t *testing.T) {
	s := NewMemoryStore()
	values := []string{"coal"}
	c := domain.NewCriteria(
		domain.CriteriaEntry{ID: "city", Value: domain.Exact{Value: "Warsaw"}},
		domain.CriteriaEntry{ID: "heatingType", Value: domain.MultiSelect{Values: values}},
	)
	f, err := s.Save(domain.KindBuilding, "Coal", c)
	require.NoError(t, err)

	values[0] = "wood"

	stored, err := s.Apply(f.ID)
	require.NoError(t, err)
	assert.Equal(t, warsawCoal(), stored)
}
