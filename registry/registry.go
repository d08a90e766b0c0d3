package registry

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/log"
	"gopkg.in/yaml.v3"

	"github.com/ethereum-optimism/infra/op-scenario/runner"
	"github.com/ethereum-optimism/infra/op-scenario/types"
)

// Registry binds the collections of a run plan to the classes of a catalog
type Registry struct {
	config      Config
	collections []runner.Collection
	mu          sync.RWMutex
}

// Config contains registry configuration
type Config struct {
	Log      log.Logger
	PlanFile string
	Catalog  types.Catalog
}

// NewRegistry creates a new registry instance
func NewRegistry(cfg Config) (*Registry, error) {
	if cfg.PlanFile == "" {
		return nil, fmt.Errorf("plan file is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}

	plan, err := loadPlan(cfg.PlanFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load plan: %w", err)
	}
	return newRegistry(cfg, plan)
}

// NewRegistryFromPlan creates a registry from an already parsed plan.
func NewRegistryFromPlan(cfg Config, plan *types.PlanConfig) (*Registry, error) {
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	return newRegistry(cfg, plan)
}

func newRegistry(cfg Config, plan *types.PlanConfig) (*Registry, error) {
	r := &Registry{config: cfg}
	if err := r.loadCollections(plan); err != nil {
		return nil, err
	}
	cfg.Log.Debug("Registry loaded", "len(collections)", len(r.collections))
	return r, nil
}

func (r *Registry) loadCollections(plan *types.PlanConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := resolveInheritance(plan); err != nil {
		return fmt.Errorf("failed to resolve collection inheritance: %w", err)
	}

	collections := make([]runner.Collection, 0, len(plan.Collections))
	for _, cc := range plan.Collections {
		c, err := r.bind(cc)
		if err != nil {
			return err
		}
		collections = append(collections, c)
	}
	r.collections = collections
	return nil
}

// resolveInheritance checks collection IDs are unique and merges inherited
// classes and skip reasons into each collection.
func resolveInheritance(plan *types.PlanConfig) error {
	byID := make(map[string]types.CollectionConfig, len(plan.Collections))
	for _, c := range plan.Collections {
		if c.ID == "" {
			return fmt.Errorf("collection without id")
		}
		// IDs name transcript files.
		if c.ID == "." || c.ID == ".." || strings.ContainsAny(c.ID, `/\`) {
			return fmt.Errorf("invalid collection id %q", c.ID)
		}
		if _, dup := byID[c.ID]; dup {
			return fmt.Errorf("duplicate collection %q", c.ID)
		}
		byID[c.ID] = c
	}
	for i := range plan.Collections {
		if err := plan.Collections[i].ResolveInherited(byID); err != nil {
			return fmt.Errorf("invalid collection inheritance: %w", err)
		}
	}
	return nil
}

// bind looks up the classes of a collection in the catalog.
func (r *Registry) bind(cc types.CollectionConfig) (runner.Collection, error) {
	if cc.MaxWorkers < 0 {
		return runner.Collection{}, fmt.Errorf("collection %q: max_workers cannot be negative", cc.ID)
	}
	c := runner.Collection{
		Name:                   cc.ID,
		DisableParallelization: cc.DisableParallelization,
		MaxWorkers:             cc.MaxWorkers,
		Skip:                   cc.Skip,
	}

	known := make(map[string]bool)
	for _, name := range cc.Classes {
		class, ok := r.config.Catalog[name]
		if !ok {
			return runner.Collection{}, fmt.Errorf("collection %q: unknown class %q", cc.ID, name)
		}
		if err := class.Validate(); err != nil {
			return runner.Collection{}, fmt.Errorf("collection %q: %w", cc.ID, err)
		}
		c.Classes = append(c.Classes, class)
		for _, tc := range runner.NewTestCases(class) {
			known[tc.ID()] = true
		}
	}

	var unknown []string
	for id := range cc.Skip {
		if !known[id] {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		r.config.Log.Warn("Skip entries match no test case", "collection", cc.ID, "cases", unknown)
	}
	return c, nil
}

// GetCollections returns all bound collections in plan order
func (r *Registry) GetCollections() []runner.Collection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]runner.Collection(nil), r.collections...)
}

// GetCollection returns the collection with the given ID
func (r *Registry) GetCollection(id string) (runner.Collection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.collections {
		if c.Name == id {
			return c, true
		}
	}
	return runner.Collection{}, false
}

// loadPlan loads a run plan from a file
func loadPlan(path string) (*types.PlanConfig, error) {
	log.Debug("Reading plan file", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan file: %w", err)
	}
	return ParsePlan(data)
}

// ParsePlan parses a YAML run plan.
func ParsePlan(data []byte) (*types.PlanConfig, error) {
	var plan types.PlanConfig
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("parsing plan file: %w", err)
	}
	return &plan, nil
}
