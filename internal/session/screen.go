// Package session keeps the per-user, per-kind list screen state the Slack
// surface works against. A Screen owns the only mutable references in the
// pipeline and replaces them wholesale after each core call.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"propdesk/internal/analysis"
	"propdesk/internal/domain"
	"propdesk/internal/filter"
	"propdesk/internal/ruleset"
	"propdesk/internal/savedfilter"
	"propdesk/internal/selection"
)

// ErrViewChanged is returned by Analyze when the criteria, sort or
// collection changed while the analysis ran. The result is discarded.
var ErrViewChanged = errors.New("list changed during analysis")

type State int

const (
	Idle State = iota
	Filtering
	Filtered
	Scoring
	Scored
	Segmenting
	Recommending
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Filtering:
		return "filtering"
	case Filtered:
		return "filtered"
	case Scoring:
		return "scoring"
	case Scored:
		return "scored"
	case Segmenting:
		return "segmenting"
	case Recommending:
		return "recommending"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type Screen struct {
	mu sync.Mutex

	user   string
	rules  ruleset.KindRules
	engine *filter.Engine
	runner *analysis.Runner
	store  savedfilter.Store
	logger *zap.Logger

	entities []domain.Entity
	criteria domain.Criteria
	sort     *domain.SortRule
	visible  []domain.Entity
	selected selection.Set
	result   *analysis.Result
	state    State
	history  []State

	// views counts refilters; analyses counts Analyze calls.
	views    uint64
	analyses uint64
}

type Deps struct {
	Rules  ruleset.KindRules
	Engine *filter.Engine
	Runner *analysis.Runner
	Store  savedfilter.Store
	Logger *zap.Logger
}

// NewScreen opens a screen over a snapshot of entities with no criteria
// applied.
func NewScreen(user string, entities []domain.Entity, d Deps) *Screen {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	engine := d.Engine
	if engine == nil {
		engine = filter.NewEngine(d.Rules.Profile)
	}
	runner := d.Runner
	if runner == nil {
		runner = analysis.NewRunner(nil, analysis.Options{}, logger)
	}
	s := &Screen{
		user:     user,
		rules:    d.Rules,
		engine:   engine,
		runner:   runner,
		store:    d.Store,
		logger:   logger.With(zap.String("user", user), zap.String("kind", string(d.Rules.Kind))),
		entities: append([]domain.Entity(nil), entities...),
		selected: selection.New(),
	}
	s.refilter(s.criteria, s.sort)
	return s
}

func (s *Screen) Kind() domain.Kind { return s.rules.Kind }

func (s *Screen) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// History lists every state the screen has passed through, oldest first.
func (s *Screen) History() []State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]State(nil), s.history...)
}

func (s *Screen) Criteria() domain.Criteria {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.criteria.Clone()
}

func (s *Screen) Sort() *domain.SortRule {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sort == nil {
		return nil
	}
	r := *s.sort
	return &r
}

// Visible is the current filtered and sorted list.
func (s *Screen) Visible() []domain.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Entity(nil), s.visible...)
}

func (s *Screen) Selection() selection.Set {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// LastAnalysis returns the most recent analysis over the current filtered
// list. It is cleared whenever the criteria change.
func (s *Screen) LastAnalysis() (analysis.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return analysis.Result{}, false
	}
	return *s.result, true
}

// ReplaceEntities swaps the underlying collection and reapplies the current
// criteria.
func (s *Screen) ReplaceEntities(entities []domain.Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities = append([]domain.Entity(nil), entities...)
	s.refilter(s.criteria, s.sort)
}

// SetCriteria applies criteria and sort to the screen's collection.
func (s *Screen) SetCriteria(criteria domain.Criteria, sort *domain.SortRule) []domain.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refilter(criteria.Clone(), sort)
	return append([]domain.Entity(nil), s.visible...)
}

// ApplyQuery parses a query string and applies it.
func (s *Screen) ApplyQuery(text string) []domain.Entity {
	q := filter.ParseQuery(text)
	return s.SetCriteria(q.Criteria, q.Sort)
}

func (s *Screen) SetSort(sort *domain.SortRule) []domain.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refilter(s.criteria, sort)
	return append([]domain.Entity(nil), s.visible...)
}

func (s *Screen) refilter(criteria domain.Criteria, sort *domain.SortRule) {
	s.transition(Filtering)
	s.criteria = criteria
	if sort != nil {
		r := *sort
		s.sort = &r
	} else {
		s.sort = nil
	}
	s.visible = s.engine.Apply(s.entities, s.criteria, s.sort)
	s.selected = s.selected.Reconcile(domain.IDs(s.visible))
	s.result = nil
	s.views++
	s.transition(Filtered)
	s.transition(Idle)
}

func (s *Screen) Toggle(id string) selection.Set {
	s.mu.Lock()
	defer s.mu.Unlock()
	visible := domain.IDs(s.visible)
	for _, v := range visible {
		if v == id {
			s.selected = s.selected.Toggle(id)
			return s.selected
		}
	}
	return s.selected
}

func (s *Screen) SelectAll() selection.Set {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = selection.SelectAll(domain.IDs(s.visible))
	return s.selected
}

func (s *Screen) ClearSelection() selection.Set {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = selection.Clear()
	return s.selected
}

// SelectRecommendation adds the targets of a recommendation from the last
// analysis to the selection, limited to what is currently visible.
func (s *Screen) SelectRecommendation(id string) (selection.Set, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return s.selected, fmt.Errorf("no analysis for this view: %w", domain.ErrNotFound)
	}
	rec, ok := s.result.Recommendation(id)
	if !ok {
		return s.selected, fmt.Errorf("recommendation %q: %w", id, domain.ErrNotFound)
	}
	s.selected = s.selected.Union(rec.TargetIDs, domain.IDs(s.visible))
	return s.selected, nil
}

// Analyze scores, segments and recommends over the current filtered list. A
// later call on the same screen supersedes this one, which then returns
// analysis.ErrSuperseded. If the list is refiltered before the result
// arrives, the result is dropped with ErrViewChanged.
func (s *Screen) Analyze(ctx context.Context) (analysis.Result, error) {
	s.mu.Lock()
	snapshot := append([]domain.Entity(nil), s.visible...)
	s.analyses++
	call, view := s.analyses, s.views
	s.transition(Scoring)
	done := s.runner.Submit(ctx, snapshot, s.rules)
	s.mu.Unlock()

	var out analysis.Outcome
	select {
	case out = <-done:
	case <-ctx.Done():
		out = analysis.Outcome{Err: ctx.Err()}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if call != s.analyses {
		// A newer call owns the state now.
		if out.Err == nil {
			out.Err = analysis.ErrSuperseded
		}
		s.logger.Debug("analysis dropped", zap.Error(out.Err))
		return analysis.Result{}, out.Err
	}
	if out.Err == nil && view != s.views {
		out.Err = ErrViewChanged
	}
	if out.Err != nil {
		s.logger.Debug("analysis dropped", zap.Error(out.Err))
		if s.state == Scoring {
			s.transition(Idle)
		}
		return analysis.Result{}, out.Err
	}
	s.transition(Scored)
	s.transition(Segmenting)
	s.transition(Recommending)
	res := out.Result
	s.result = &res
	s.transition(Idle)
	s.logger.Info("analysis ready",
		zap.Int("entities", res.Stats.Total),
		zap.Float64("average_score", res.Stats.AverageScore),
		zap.Int("recommendations", len(res.Recommendations)))
	return res, nil
}

// SaveCurrent stores the screen's criteria under name.
func (s *Screen) SaveCurrent(name string) (domain.SavedFilter, error) {
	if s.store == nil {
		return domain.SavedFilter{}, fmt.Errorf("saved filters unavailable: %w", domain.ErrValidation)
	}
	return s.store.Save(s.rules.Kind, name, s.Criteria())
}

// ApplySaved loads a saved filter and applies it, keeping the current sort.
func (s *Screen) ApplySaved(id string) ([]domain.Entity, error) {
	if s.store == nil {
		return nil, fmt.Errorf("saved filters unavailable: %w", domain.ErrValidation)
	}
	criteria, err := s.store.Apply(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refilter(criteria, s.sort)
	return append([]domain.Entity(nil), s.visible...), nil
}

const historyLimit = 64

func (s *Screen) transition(next State) {
	if len(s.history) == historyLimit {
		s.history = append(s.history[:0], s.history[1:]...)
	}
	s.history = append(s.history, next)
	s.state = next
}
