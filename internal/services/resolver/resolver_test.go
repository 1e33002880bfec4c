package resolver

import (
	"errors"
	"testing"

	"github.com/opsforge/infragen/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_Resolve(t *testing.T) {
	tests := []struct {
		name          string
		requested     []string
		expectedOrder []string
		expectedAdded []string
	}{
		{
			name:          "eks-auto pulls in vpc first",
			requested:     []string{"eks-auto"},
			expectedOrder: []string{"vpc", "eks-auto"},
			expectedAdded: []string{"vpc"},
		},
		{
			name:          "already sorted input is unchanged",
			requested:     []string{"vpc", "eks-auto"},
			expectedOrder: []string{"vpc", "eks-auto"},
		},
		{
			name:          "reverse order is sorted",
			requested:     []string{"eks-auto", "vpc"},
			expectedOrder: []string{"vpc", "eks-auto"},
		},
		{
			name:          "independent component",
			requested:     []string{"vpc"},
			expectedOrder: []string{"vpc"},
		},
		{
			name:          "duplicates are removed",
			requested:     []string{"vpc", "eks-auto", "vpc"},
			expectedOrder: []string{"vpc", "eks-auto"},
		},
		{
			name:          "multi level dependencies are fully expanded",
			requested:     []string{"secrets"},
			expectedOrder: []string{"vpc", "eks", "services", "secrets"},
			expectedAdded: []string{"eks", "services", "vpc"},
		},
		{
			name:          "ties keep input order",
			requested:     []string{"common", "vpc"},
			expectedOrder: []string{"common", "vpc"},
		},
		{
			name:          "monitoring",
			requested:     []string{"monitoring"},
			expectedOrder: []string{"vpc", "eks", "services", "rds", "monitoring"},
			expectedAdded: []string{"vpc", "eks", "services", "rds"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(types.DefaultRegistry())

			resolution, err := r.Resolve(tt.requested)
			require.NoError(t, err)

			assert.Equal(t, tt.expectedOrder, resolution.Order)
			assert.Equal(t, tt.expectedAdded, resolution.Added)
			assert.True(t, resolution.FullyOrdered())
			assert.Empty(t, resolution.Forfeited)
		})
	}
}

func TestResolver_Resolve_UnknownComponent(t *testing.T) {
	r := NewResolver(types.DefaultRegistry())

	_, err := r.Resolve([]string{"vpc", "unknown-component"})
	require.Error(t, err)

	var validationErr *types.ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Contains(t, err.Error(), "Unknown component")
	assert.Contains(t, err.Error(), "eks-auto")
	assert.Contains(t, err.Error(), "vpc")
}

func TestResolver_Resolve_Empty(t *testing.T) {
	r := NewResolver(types.DefaultRegistry())

	_, err := r.Resolve(nil)
	assert.Error(t, err)
}

func TestResolver_Resolve_Cycle(t *testing.T) {
	registry, err := types.NewRegistry(
		types.Component{Name: "alpha", DependsOn: []string{"beta"}},
		types.Component{Name: "beta", DependsOn: []string{"alpha"}},
		types.Component{Name: "base"},
		types.Component{Name: "app", DependsOn: []string{"base"}},
	)
	require.NoError(t, err)

	r := NewResolver(registry)

	resolution, err := r.Resolve([]string{"alpha", "app"})
	require.NoError(t, err, "a cycle must never abort resolution")

	assert.False(t, resolution.FullyOrdered())
	assert.Equal(t, []string{"alpha", "beta"}, resolution.Forfeited)
	assert.Equal(t, []string{"base", "app", "alpha", "beta"}, resolution.Order)

	// the acyclic part is still ordered
	assert.Less(t, resolution.IndexOf("base"), resolution.IndexOf("app"))
}

func TestResolver_Resolve_DependencyOrderingProperty(t *testing.T) {
	registry := types.DefaultRegistry()
	names := registry.Names()
	r := NewResolver(registry)

	// every non-empty subset of the default registry
	for mask := 1; mask < 1<<len(names); mask++ {
		var requested []string
		for i, name := range names {
			if mask&(1<<i) != 0 {
				requested = append(requested, name)
			}
		}

		resolution, err := r.Resolve(requested)
		require.NoError(t, err)
		require.True(t, resolution.FullyOrdered())

		seen := map[string]bool{}
		for idx, component := range resolution.Order {
			assert.False(t, seen[component], "component %s appears twice in %v", component, resolution.Order)
			seen[component] = true

			for _, dep := range registry.Dependencies(component) {
				depIdx := resolution.IndexOf(dep)
				require.GreaterOrEqual(t, depIdx, 0, "dependency %s of %s missing from %v", dep, component, resolution.Order)
				assert.Less(t, depIdx, idx, "dependency %s must precede %s in %v", dep, component, resolution.Order)
			}
		}

		for _, name := range requested {
			assert.True(t, seen[name], "requested component %s missing from %v", name, resolution.Order)
		}

		// resolving an already resolved order is idempotent
		again, err := r.Resolve(resolution.Order)
		require.NoError(t, err)
		assert.Equal(t, resolution.Order, again.Order)
	}
}

func TestNewRegistry_Errors(t *testing.T) {
	_, err := types.NewRegistry(types.Component{Name: "app", DependsOn: []string{"missing"}})
	assert.ErrorContains(t, err, "unregistered component 'missing'")

	_, err = types.NewRegistry(types.Component{Name: "vpc"}, types.Component{Name: "vpc"})
	assert.ErrorContains(t, err, "registered twice")

	_, err = types.NewRegistry(types.Component{Name: ""})
	assert.Error(t, err)
}
