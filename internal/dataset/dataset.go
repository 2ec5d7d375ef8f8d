// Package dataset loads the entity collections the console works on from a
// YAML export of the property and inspection records.
package dataset

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"propdesk/internal/domain"
)

type document struct {
	Clients     []map[string]any `yaml:"clients"`
	Buildings   []map[string]any `yaml:"buildings"`
	Inspections []map[string]any `yaml:"inspections"`
	Tenants     []map[string]any `yaml:"tenants"`
}

func (d document) byKind() map[domain.Kind][]map[string]any {
	return map[domain.Kind][]map[string]any{
		domain.KindClient:     d.Clients,
		domain.KindBuilding:   d.Buildings,
		domain.KindInspection: d.Inspections,
		domain.KindTenant:     d.Tenants,
	}
}

// Dataset holds one loaded snapshot per kind. Reload swaps snapshots
// atomically; slices handed out earlier are never modified.
type Dataset struct {
	mu     sync.RWMutex
	path   string
	kinds  map[domain.Kind][]domain.Entity
	logger *zap.Logger
}

// Load reads the file at path. An empty path yields an empty dataset.
func Load(path string, logger *zap.Logger) (*Dataset, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dataset{path: path, kinds: map[domain.Kind][]domain.Entity{}, logger: logger}
	if path == "" {
		logger.Warn("no dataset configured, collections are empty")
		return d, nil
	}
	if err := d.Reload(); err != nil {
		return nil, err
	}
	return d, nil
}

// Parse builds a dataset from YAML bytes.
func Parse(data []byte, logger *zap.Logger) (*Dataset, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	kinds, err := decode(data, logger)
	if err != nil {
		return nil, err
	}
	return &Dataset{kinds: kinds, logger: logger}, nil
}

// Reload rereads the file the dataset was loaded from.
func (d *Dataset) Reload() error {
	if d.path == "" {
		return nil
	}
	data, err := os.ReadFile(d.path)
	if err != nil {
		return fmt.Errorf("reading dataset %s: %w", d.path, err)
	}
	kinds, err := decode(data, d.logger)
	if err != nil {
		return fmt.Errorf("dataset %s: %w", d.path, err)
	}
	d.mu.Lock()
	d.kinds = kinds
	d.mu.Unlock()

	fields := []zap.Field{zap.String("path", d.path)}
	for _, k := range domain.Kinds {
		fields = append(fields, zap.Int(string(k), len(kinds[k])))
	}
	d.logger.Info("dataset loaded", fields...)
	return nil
}

func (d *Dataset) Entities(kind domain.Kind) []domain.Entity {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.kinds[kind]
}

func (d *Dataset) Count(kind domain.Kind) int {
	return len(d.Entities(kind))
}

func decode(data []byte, logger *zap.Logger) (map[domain.Kind][]domain.Entity, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing dataset: %w", err)
	}
	out := make(map[domain.Kind][]domain.Entity, len(domain.Kinds))
	for kind, records := range doc.byKind() {
		seen := make(map[string]bool, len(records))
		list := make([]domain.Entity, 0, len(records))
		for i, rec := range records {
			rawID, ok := rec["id"]
			id := ""
			if ok {
				id = domain.NormalizeID(rawID)
			}
			if id == "" {
				logger.Warn("skipping record without id", zap.String("kind", string(kind)), zap.Int("index", i))
				continue
			}
			if seen[id] {
				logger.Warn("skipping duplicate id", zap.String("kind", string(kind)), zap.String("id", id))
				continue
			}
			seen[id] = true
			fields := make(map[string]any, len(rec))
			for k, v := range rec {
				if k != "id" {
					fields[k] = v
				}
			}
			list = append(list, domain.NewEntity(id, fields))
		}
		out[kind] = list
	}
	return out, nil
}
