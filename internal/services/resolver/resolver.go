package resolver

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/opsforge/infragen/internal/types"
)

// Resolver computes a safe generation order for a set of components.
type Resolver struct {
	registry *types.Registry
}

func NewResolver(registry *types.Registry) *Resolver {
	return &Resolver{registry: registry}
}

// Resolve validates membership, expands missing dependencies until nothing
// new is added, and orders the result so that every dependency precedes its
// dependents. A cycle is not an error: the unordered remainder is appended
// as-is and reported in Resolution.Forfeited.
func (r *Resolver) Resolve(requested []string) (*types.Resolution, error) {
	deduped := dedupe(requested)
	if len(deduped) == 0 {
		return nil, types.NewValidationError("components", "", "list cannot be empty")
	}

	for _, name := range deduped {
		if !r.registry.Has(name) {
			return nil, types.NewValidationError("component", name, "Unknown component", r.registry.SortedNames()...)
		}
	}

	working, added := r.expand(deduped)
	order, forfeited := r.sort(working)

	if len(forfeited) > 0 {
		slog.Warn("⚠️ circular dependency detected, generation order is not guaranteed", "components", forfeited)
	}

	slog.Info("🧩 components to generate (in order)", "components", order)

	return &types.Resolution{
		Requested: deduped,
		Added:     added,
		Order:     order,
		Forfeited: forfeited,
	}, nil
}

func (r *Resolver) expand(requested []string) ([]string, []string) {
	working := slices.Clone(requested)
	var added []string

	for {
		changed := false
		for i := 0; i < len(working); i++ {
			component := working[i]
			for _, dep := range r.registry.Dependencies(component) {
				if slices.Contains(working, dep) {
					continue
				}
				slog.Warn(fmt.Sprintf("⚠️ %s requires %s, adding it", component, dep))
				working = append(working, dep)
				added = append(added, dep)
				changed = true
			}
		}
		if !changed {
			return working, added
		}
	}
}

func (r *Resolver) sort(working []string) ([]string, []string) {
	inWorkingSet := make(map[string]bool, len(working))
	for _, name := range working {
		inWorkingSet[name] = true
	}

	placed := make(map[string]bool, len(working))
	order := make([]string, 0, len(working))
	remaining := slices.Clone(working)

	for len(remaining) > 0 {
		next := -1
		for i, component := range remaining {
			if r.ready(component, placed, inWorkingSet) {
				next = i
				break
			}
		}

		if next == -1 {
			forfeited := slices.Clone(remaining)
			return append(order, forfeited...), forfeited
		}

		placed[remaining[next]] = true
		order = append(order, remaining[next])
		remaining = slices.Delete(remaining, next, next+1)
	}

	return order, nil
}

func (r *Resolver) ready(component string, placed, inWorkingSet map[string]bool) bool {
	for _, dep := range r.registry.Dependencies(component) {
		if inWorkingSet[dep] && !placed[dep] {
			return false
		}
	}
	return true
}

func dedupe(names []string) []string {
	result := make([]string, 0, len(names))
	for _, n := range names {
		if !slices.Contains(result, n) {
			result = append(result, n)
		}
	}
	return result
}
