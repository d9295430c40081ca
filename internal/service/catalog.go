package service

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-permalink/internal/permalink"
)

// CatalogService manages the layer catalog. Entries keep their insertion
// order, which decides base-layer precedence.
type CatalogService struct {
	dataDir string
	log     *slog.Logger

	mu     sync.RWMutex
	order  []string
	layers map[string]LayerConfig
}

// NewCatalogService creates a catalog persisted in dataDir and loads any
// previously saved entries.
func NewCatalogService(dataDir string, logger *slog.Logger) *CatalogService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &CatalogService{
		dataDir: dataDir,
		log:     logger,
		layers:  make(map[string]LayerConfig),
	}
	s.loadFromDisk()
	return s
}

// List returns all entries in catalog order.
func (s *CatalogService) List() []LayerConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]LayerConfig, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, s.layers[id])
	}
	return result
}

// Len returns the number of entries.
func (s *CatalogService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Get returns an entry by ID.
func (s *CatalogService) Get(id string) (LayerConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	layer, ok := s.layers[id]
	if !ok {
		return LayerConfig{}, fmt.Errorf("layer %q: %w", id, ErrNotFound)
	}
	return layer, nil
}

// Create adds an entry. The ID is derived from the name when empty.
func (s *CatalogService) Create(layer LayerConfig) (LayerConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if layer.ID == "" {
		layer.ID = generateID(layer.Name)
	}
	if layer.ID == "" {
		return LayerConfig{}, fmt.Errorf("layer name %q yields an empty id: %w", layer.Name, ErrInvalid)
	}
	if _, exists := s.layers[layer.ID]; exists {
		return LayerConfig{}, fmt.Errorf("layer %q: %w", layer.ID, ErrExists)
	}

	s.put(layer)
	if err := s.saveToDisk(); err != nil {
		return LayerConfig{}, err
	}
	return layer, nil
}

// Update replaces an entry by ID, keeping its position.
func (s *CatalogService) Update(id string, layer LayerConfig) (LayerConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.layers[id]; !exists {
		return LayerConfig{}, fmt.Errorf("layer %q: %w", id, ErrNotFound)
	}

	layer.ID = id
	s.layers[id] = layer
	if err := s.saveToDisk(); err != nil {
		return LayerConfig{}, err
	}
	return layer, nil
}

// Delete removes an entry by ID.
func (s *CatalogService) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.layers[id]; !exists {
		return fmt.Errorf("layer %q: %w", id, ErrNotFound)
	}

	delete(s.layers, id)
	s.order = slices.DeleteFunc(s.order, func(o string) bool { return o == id })
	return s.saveToDisk()
}

// Import upserts every entry of f, base layers first.
func (s *CatalogService) Import(f CatalogFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, group := range []struct {
		layers []LayerConfig
		base   bool
	}{{f.BaseLayers, true}, {f.Overlays, false}} {
		for _, l := range group.layers {
			l.BaseLayer = group.base
			if l.ID == "" {
				l.ID = generateID(l.Name)
			}
			if l.ID == "" {
				return fmt.Errorf("layer name %q yields an empty id: %w", l.Name, ErrInvalid)
			}
			s.put(l)
		}
	}
	return s.saveToDisk()
}

// LoadFile imports a catalog file. The format follows the extension:
// .yaml, .yml, .toml or .json.
func (s *CatalogService) LoadFile(path string) error {
	f, err := ReadCatalogFile(path)
	if err != nil {
		return err
	}
	if err := s.Import(f); err != nil {
		return fmt.Errorf("import %s: %w", path, err)
	}
	s.log.Info("catalog loaded", "path", path, "baselayers", len(f.BaseLayers), "overlays", len(f.Overlays))
	return nil
}

// ReadCatalogFile decodes a catalog file without importing it.
func ReadCatalogFile(path string) (CatalogFile, error) {
	var f CatalogFile
	data, err := os.ReadFile(path)
	if err != nil {
		return f, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &f)
	case ".toml":
		err = toml.Unmarshal(data, &f)
	case ".json":
		err = json.Unmarshal(data, &f)
	default:
		return f, fmt.Errorf("catalog %s: unsupported format %q", path, ext)
	}
	if err != nil {
		return f, fmt.Errorf("parse %s: %w", path, err)
	}
	return f, nil
}

// Layers converts the catalog to permalink layers, in catalog order.
func (s *CatalogService) Layers() []*permalink.Layer {
	layers, _ := s.Snapshot()
	return layers
}

// Snapshot returns the permalink layers together with the ones a new
// session starts with: the first base layer and every default-visible
// overlay.
func (s *CatalogService) Snapshot() (all, initial []*permalink.Layer) {
	haveBase := false
	for _, c := range s.List() {
		l := &permalink.Layer{ID: c.ID, BaseLayer: c.BaseLayer}
		if c.Nested != nil {
			l.Nested = &permalink.Layer{ID: c.Nested.ID, BaseLayer: c.BaseLayer}
		}
		all = append(all, l)

		switch {
		case c.BaseLayer && !haveBase:
			haveBase = true
			initial = append(initial, l.Target())
		case !c.BaseLayer && c.DefaultVisible:
			initial = append(initial, l.Target())
		}
	}
	return all, initial
}

// Aliases returns the overlay alias table in catalog order.
func (s *CatalogService) Aliases() []Alias {
	var ids []string
	for _, c := range s.List() {
		if !c.BaseLayer {
			ids = append(ids, c.ID)
		}
	}
	table := permalink.NewAliasTable(ids)
	result := make([]Alias, 0, len(ids))
	for _, id := range table.IDs() {
		result = append(result, Alias{ID: id, Alias: table.Alias(id)})
	}
	return result
}

func (s *CatalogService) put(l LayerConfig) {
	if _, exists := s.layers[l.ID]; !exists {
		s.order = append(s.order, l.ID)
	}
	s.layers[l.ID] = l
}

// configFile returns the path to the catalog file.
func (s *CatalogService) configFile() string {
	return filepath.Join(s.dataDir, "catalog.json")
}

// loadFromDisk loads the saved catalog.
func (s *CatalogService) loadFromDisk() {
	data, err := os.ReadFile(s.configFile())
	if err != nil {
		return // File doesn't exist yet, start empty
	}

	var layers []LayerConfig
	if err := json.Unmarshal(data, &layers); err != nil {
		s.log.Warn("ignoring unreadable catalog", "path", s.configFile(), "err", err)
		return
	}
	for _, l := range layers {
		s.put(l)
	}
}

// saveToDisk persists the catalog in order.
func (s *CatalogService) saveToDisk() error {
	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return err
	}

	layers := make([]LayerConfig, 0, len(s.order))
	for _, id := range s.order {
		layers = append(layers, s.layers[id])
	}
	data, err := json.MarshalIndent(layers, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.configFile(), data, 0644)
}

// generateID creates a URL-safe ID from a name.
func generateID(name string) string {
	id := strings.ToLower(name)
	id = strings.ReplaceAll(id, " ", "_")
	var result strings.Builder
	for _, r := range id {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// DefaultCatalog is used when no catalog is configured.
func DefaultCatalog() CatalogFile {
	return CatalogFile{
		BaseLayers: []LayerConfig{
			{ID: "osm", Name: "OpenStreetMap"},
			{ID: "topo", Name: "OpenTopoMap"},
			{ID: "satellite", Name: "Satellite"},
		},
		Overlays: []LayerConfig{
			{ID: "trails", Name: "Hiking trails", DefaultVisible: true},
			{ID: "labels", Name: "Labels"},
			{ID: "cycle_routes", Name: "Cycle routes", Nested: &NestedLayer{ID: "cycle_routes_tiles"}},
		},
	}
}
