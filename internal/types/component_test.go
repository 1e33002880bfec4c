package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	registry := DefaultRegistry()

	assert.Equal(t, []string{"vpc", "eks", "eks-auto", "rds", "services", "secrets", "opensearch", "monitoring", "common"}, registry.Names())
	assert.Equal(t, []string{"common", "eks", "eks-auto", "monitoring", "opensearch", "rds", "secrets", "services", "vpc"}, registry.SortedNames())

	tests := []struct {
		name            string
		dependsOn       []string
		requiresModules bool
	}{
		{name: "vpc"},
		{name: "eks", dependsOn: []string{"vpc"}},
		{name: "eks-auto", dependsOn: []string{"vpc"}},
		{name: "services", dependsOn: []string{"vpc", "eks"}, requiresModules: true},
		{name: "secrets", dependsOn: []string{"eks", "services"}},
		{name: "monitoring", dependsOn: []string{"vpc", "eks", "services", "rds"}},
		{name: "common"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			component, ok := registry.Get(tt.name)
			require.True(t, ok)
			assert.Equal(t, tt.dependsOn, component.DependsOn)
			assert.Equal(t, tt.dependsOn, registry.Dependencies(tt.name))
			assert.Equal(t, tt.requiresModules, component.RequiresModules())
		})
	}

	services, _ := registry.Get("services")
	assert.True(t, services.Excludes("sftp.tf"))
	assert.True(t, services.Excludes("vanta.tf"))
	assert.False(t, services.Excludes("main.tf"))

	assert.False(t, registry.Has("elasticache"))
	assert.Nil(t, registry.Dependencies("elasticache"))
	assert.Len(t, registry.Components(), 9)
}

func TestNewRegistry_Errors(t *testing.T) {
	tests := []struct {
		name          string
		components    []Component
		expectedError string
	}{
		{
			name:          "empty name",
			components:    []Component{{Name: ""}},
			expectedError: "component name cannot be empty",
		},
		{
			name:          "duplicate",
			components:    []Component{{Name: "vpc"}, {Name: "vpc"}},
			expectedError: "component 'vpc' registered twice",
		},
		{
			name:          "unregistered dependency",
			components:    []Component{{Name: "eks", DependsOn: []string{"vpc"}}},
			expectedError: "component 'eks' depends on unregistered component 'vpc'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry, err := NewRegistry(tt.components...)
			require.Error(t, err)
			assert.Nil(t, registry)
			assert.EqualError(t, err, tt.expectedError)
		})
	}
}

func TestResolution(t *testing.T) {
	r := &Resolution{Order: []string{"vpc", "eks"}}
	assert.True(t, r.FullyOrdered())
	assert.Equal(t, 1, r.IndexOf("eks"))
	assert.Equal(t, -1, r.IndexOf("rds"))

	r.Forfeited = []string{"eks"}
	assert.False(t, r.FullyOrdered())
}
