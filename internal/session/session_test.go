package session

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"propdesk/internal/analysis"
	"propdesk/internal/domain"
	"propdesk/internal/ruleset"
	"propdesk/internal/savedfilter"
)

var fixedNow = time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

type staticSource map[domain.Kind][]domain.Entity

func (s staticSource) Entities(kind domain.Kind) []domain.Entity { return s[kind] }

func sampleBuildings() []domain.Entity {
	return []domain.Entity{
		domain.NewEntity(1, map[string]any{"name": "Mokotów House", "city": "Warsaw", "yearBuilt": 1900, "heatingType": "coal"}),
		domain.NewEntity(2, map[string]any{"name": "Wola Point", "city": "Warsaw", "yearBuilt": 2015, "heatingType": "gas", "lastInspection": "2025-03-01", "ceebStatus": "registered"}),
		domain.NewEntity(3, map[string]any{"name": "Rynek 5", "city": "Kraków", "yearBuilt": 1890, "heatingType": "coal"}),
	}
}

func newRegistry(t *testing.T) *Registry {
	t.Helper()
	src := staticSource{domain.KindBuilding: sampleBuildings()}
	return NewRegistry(ruleset.DefaultCatalog(), src, savedfilter.NewMemoryStore(), zap.NewNop(),
		WithClock(func() time.Time { return fixedNow }))
}

func TestRegistryReusesScreens(t *testing.T) {
	reg := newRegistry(t)

	a, err := reg.Screen("U1", domain.KindBuilding)
	require.NoError(t, err)
	b, err := reg.Screen("U1", domain.KindBuilding)
	require.NoError(t, err)
	c, err := reg.Screen("U2", domain.KindBuilding)
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)

	_, err = reg.Screen("U1", domain.Kind("boiler"))
	assert.ErrorIs(t, err, domain.ErrUnsupportedKind)

	reg.Close("U1")
	d, err := reg.Screen("U1", domain.KindBuilding)
	require.NoError(t, err)
	assert.NotSame(t, a, d)
}

func TestCriteriaChangeReconcilesSelection(t *testing.T) {
	s, err := newRegistry(t).Screen("U1", domain.KindBuilding)
	require.NoError(t, err)
	require.Len(t, s.Visible(), 3)

	s.SelectAll()
	s.ApplyQuery("city=Warsaw")

	assert.Equal(t, []string{"1", "2"}, domain.IDs(s.Visible()))
	assert.Equal(t, []string{"1", "2"}, s.Selection().IDs())
	assert.Equal(t, Idle, s.State())

	hist := s.History()
	assert.Equal(t, []State{Filtering, Filtered, Idle}, hist[len(hist)-3:])
}

func TestToggleIgnoresHiddenEntities(t *testing.T) {
	s, err := newRegistry(t).Screen("U1", domain.KindBuilding)
	require.NoError(t, err)

	s.ApplyQuery("city=Kraków")
	sel := s.Toggle("1")
	assert.Equal(t, 0, sel.Len())

	sel = s.Toggle("3")
	assert.Equal(t, []string{"3"}, sel.IDs())
	sel = s.Toggle("3")
	assert.Equal(t, 0, sel.Len())
}

func TestAnalyzeThenSelectRecommendation(t *testing.T) {
	s, err := newRegistry(t).Screen("U1", domain.KindBuilding)
	require.NoError(t, err)

	_, err = s.SelectRecommendation("heating_modernisation")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	s.ApplyQuery("city=Warsaw")
	res, err := s.Analyze(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fixedNow, res.RanAt)
	assert.Equal(t, 2, res.Stats.Total)

	hist := s.History()
	assert.Equal(t, []State{Scoring, Scored, Segmenting, Recommending, Idle}, hist[len(hist)-5:])

	sel, err := s.SelectRecommendation("heating_modernisation")
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, sel.IDs())

	_, err = s.SelectRecommendation("nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	s.ApplyQuery("")
	_, ok := s.LastAnalysis()
	assert.False(t, ok, "criteria change invalidates the last analysis")
	assert.Equal(t, []string{"1"}, s.Selection().IDs())
}

func TestAnalyzeCancelled(t *testing.T) {
	s, err := newRegistry(t).Screen("U1", domain.KindBuilding)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Analyze(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Idle, s.State())
	_, ok := s.LastAnalysis()
	assert.False(t, ok)
}

// gatedClock blocks the n-th call until gates[n-1] is closed.
func gatedClock(calls *atomic.Int32, gates ...chan struct{}) func() time.Time {
	return func() time.Time {
		n := int(calls.Add(1))
		if n <= len(gates) {
			<-gates[n-1]
		}
		return fixedNow
	}
}

func gatedScreen(t *testing.T, calls *atomic.Int32, gates ...chan struct{}) *Screen {
	t.Helper()
	src := staticSource{domain.KindBuilding: sampleBuildings()}
	reg := NewRegistry(ruleset.DefaultCatalog(), src, savedfilter.NewMemoryStore(), zap.NewNop(),
		WithClock(gatedClock(calls, gates...)))
	s, err := reg.Screen("U1", domain.KindBuilding)
	require.NoError(t, err)
	return s
}

func TestAnalyzeDropsResultWhenCriteriaChange(t *testing.T) {
	var calls atomic.Int32
	gate := make(chan struct{})
	s := gatedScreen(t, &calls, gate)
	s.ApplyQuery("city=Warsaw")

	errc := make(chan error, 1)
	go func() {
		_, err := s.Analyze(context.Background())
		errc <- err
	}()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)

	s.ApplyQuery("city=Kraków")
	close(gate)

	assert.ErrorIs(t, <-errc, ErrViewChanged)
	_, ok := s.LastAnalysis()
	assert.False(t, ok)
	assert.Equal(t, Idle, s.State())
	assert.Equal(t, []string{"3"}, domain.IDs(s.Visible()))

	_, err := s.SelectRecommendation("heating_modernisation")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOverlappingAnalyzeKeepsLatestState(t *testing.T) {
	var calls atomic.Int32
	first, second := make(chan struct{}), make(chan struct{})
	s := gatedScreen(t, &calls, first, second)

	older := make(chan error, 1)
	go func() {
		_, err := s.Analyze(context.Background())
		older <- err
	}()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)

	newer := make(chan error, 1)
	go func() {
		_, err := s.Analyze(context.Background())
		newer <- err
	}()
	require.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, time.Millisecond)

	close(first)
	assert.ErrorIs(t, <-older, analysis.ErrSuperseded)
	assert.Equal(t, Scoring, s.State())

	close(second)
	require.NoError(t, <-newer)
	assert.Equal(t, Idle, s.State())
	res, ok := s.LastAnalysis()
	require.True(t, ok)
	assert.Equal(t, 3, res.Stats.Total)
}

func TestSaveAndApplySaved(t *testing.T) {
	reg := newRegistry(t)
	s, err := reg.Screen("U1", domain.KindBuilding)
	require.NoError(t, err)

	s.ApplyQuery("heating=coal")
	saved, err := s.SaveCurrent("coal")
	require.NoError(t, err)
	assert.Equal(t, domain.KindBuilding, saved.Kind)

	_, err = s.SaveCurrent("  ")
	assert.ErrorIs(t, err, domain.ErrValidation)

	other, err := reg.Screen("U2", domain.KindBuilding)
	require.NoError(t, err)
	visible, err := other.ApplySaved(saved.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3"}, domain.IDs(visible))

	_, err = other.ApplySaved("missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSortIsKeptAcrossSavedFilters(t *testing.T) {
	s, err := newRegistry(t).Screen("U1", domain.KindBuilding)
	require.NoError(t, err)

	s.SetSort(&domain.SortRule{Name: "oldest"})
	assert.Equal(t, []string{"3", "1", "2"}, domain.IDs(s.Visible()))

	saved, err := s.SaveCurrent("everything")
	require.NoError(t, err)
	visible, err := s.ApplySaved(saved.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "1", "2"}, domain.IDs(visible))
}

func TestReloadReappliesCriteria(t *testing.T) {
	src := staticSource{domain.KindBuilding: sampleBuildings()}
	reg := NewRegistry(ruleset.DefaultCatalog(), src, nil, zap.NewNop())
	s, err := reg.Screen("U1", domain.KindBuilding)
	require.NoError(t, err)
	s.ApplyQuery("city=Warsaw")
	s.SelectAll()

	src[domain.KindBuilding] = sampleBuildings()[1:]
	reg.Reload()

	assert.Equal(t, []string{"2"}, domain.IDs(s.Visible()))
	assert.Equal(t, []string{"2"}, s.Selection().IDs())

	_, err = s.SaveCurrent("x")
	assert.ErrorIs(t, err, domain.ErrValidation)
}
