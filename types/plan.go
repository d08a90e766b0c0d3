package types

import "fmt"

// PlanConfig is the on-disk description of the test collections to run.
type PlanConfig struct {
	Collections []CollectionConfig `yaml:"collections"`
}

// CollectionConfig groups test classes that share collection fixtures and a
// parallelization policy.
type CollectionConfig struct {
	ID                     string            `yaml:"id"`
	Description            string            `yaml:"description"`
	Inherits               []string          `yaml:"inherits,omitempty"`
	DisableParallelization bool              `yaml:"disable_parallelization,omitempty"`
	MaxWorkers             int               `yaml:"max_workers,omitempty"`
	Classes                []string          `yaml:"classes,omitempty"`
	Skip                   map[string]string `yaml:"skip,omitempty"`
}

// ResolveInherited merges classes and skip reasons from the collections named
// in Inherits, recursively and depth-first.
//
// The collection's own classes come first, followed by each ancestor's classes
// in Inherits order, deduplicated by name. Skip reasons declared on the child
// win over those of its ancestors.
func (c *CollectionConfig) ResolveInherited(collections map[string]CollectionConfig) error {
	processed := map[string]bool{c.ID: true}
	return c.resolveInheritedRecursive(collections, processed)
}

func (c *CollectionConfig) resolveInheritedRecursive(collections map[string]CollectionConfig, processed map[string]bool) error {
	if len(c.Inherits) == 0 {
		return nil
	}

	var mergedClasses []string
	seenClasses := make(map[string]bool)
	mergedSkip := make(map[string]string, len(c.Skip))

	addClasses := func(classes []string) {
		for _, name := range classes {
			if !seenClasses[name] {
				mergedClasses = append(mergedClasses, name)
				seenClasses[name] = true
			}
		}
	}

	addClasses(c.Classes)
	for k, v := range c.Skip {
		mergedSkip[k] = v
	}

	for _, inheritFrom := range c.Inherits {
		if processed[inheritFrom] {
			return fmt.Errorf("circular inheritance detected for collection %q", inheritFrom)
		}

		parent, ok := collections[inheritFrom]
		if !ok {
			return fmt.Errorf("collection %q inherits from non-existent collection %q", c.ID, inheritFrom)
		}

		processed[inheritFrom] = true

		if err := parent.resolveInheritedRecursive(collections, processed); err != nil {
			return fmt.Errorf("resolving inheritance for parent collection %q: %w", inheritFrom, err)
		}

		addClasses(parent.Classes)
		for k, v := range parent.Skip {
			if _, exists := mergedSkip[k]; !exists {
				mergedSkip[k] = v
			}
		}

		processed[inheritFrom] = false
	}

	c.Classes = mergedClasses
	c.Skip = mergedSkip
	return nil
}
