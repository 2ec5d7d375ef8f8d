package session

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"propdesk/internal/analysis"
	"propdesk/internal/domain"
	"propdesk/internal/filter"
	"propdesk/internal/ruleset"
	"propdesk/internal/savedfilter"
)

// Source supplies the entity collection for a kind.
type Source interface {
	Entities(kind domain.Kind) []domain.Entity
}

type key struct {
	user string
	kind domain.Kind
}

// Registry hands out one Screen per (user, kind), created on first use.
type Registry struct {
	mu      sync.Mutex
	screens map[key]*Screen

	catalog *ruleset.Catalog
	source  Source
	store   savedfilter.Store
	opts    analysis.Options
	clock   func() time.Time
	locale  string
	logger  *zap.Logger
}

type RegistryOption func(*Registry)

func WithAnalysisOptions(opts analysis.Options) RegistryOption {
	return func(r *Registry) { r.opts = opts }
}

func WithClock(clock func() time.Time) RegistryOption {
	return func(r *Registry) { r.clock = clock }
}

func WithLocale(tag string) RegistryOption {
	return func(r *Registry) {
		if _, err := language.Parse(tag); err == nil {
			r.locale = tag
		}
	}
}

func NewRegistry(catalog *ruleset.Catalog, source Source, store savedfilter.Store, logger *zap.Logger, opts ...RegistryOption) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		screens: make(map[key]*Screen),
		catalog: catalog,
		source:  source,
		store:   store,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Screen returns the user's screen for kind, opening it if needed.
func (r *Registry) Screen(user string, kind domain.Kind) (*Screen, error) {
	rules, err := r.catalog.Get(kind)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	k := key{user: user, kind: kind}
	if s, ok := r.screens[k]; ok {
		return s, nil
	}

	var engineOpts []filter.Option
	if r.locale != "" {
		engineOpts = append(engineOpts, filter.WithLocale(r.locale))
	}
	s := NewScreen(user, r.source.Entities(kind), Deps{
		Rules:  rules,
		Engine: filter.NewEngine(rules.Profile, engineOpts...),
		Runner: analysis.NewRunner(r.clock, r.opts, r.logger),
		Store:  r.store,
		Logger: r.logger,
	})
	r.screens[k] = s
	r.logger.Debug("screen opened", zap.String("user", user), zap.String("kind", string(kind)))
	return s, nil
}

// Reload pushes a fresh collection into every open screen.
func (r *Registry) Reload() {
	r.mu.Lock()
	screens := make([]*Screen, 0, len(r.screens))
	for _, s := range r.screens {
		screens = append(screens, s)
	}
	r.mu.Unlock()

	for _, s := range screens {
		s.ReplaceEntities(r.source.Entities(s.Kind()))
	}
	r.logger.Info("screens reloaded", zap.Int("screens", len(screens)))
}

// Close drops every screen of user.
func (r *Registry) Close(user string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range r.screens {
		if k.user == user {
			delete(r.screens, k)
		}
	}
}
