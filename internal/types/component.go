package types

import (
	"fmt"
	"slices"
	"sort"
)

// Component is a named, independently deployable infrastructure bundle.
type Component struct {
	Name         string   `json:"name" yaml:"name"`
	DependsOn    []string `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
	ExcludeFiles []string `json:"exclude_files,omitempty" yaml:"exclude_files,omitempty"`
	Modules      []string `json:"modules,omitempty" yaml:"modules,omitempty"`
}

func (c Component) Excludes(fileName string) bool {
	return slices.Contains(c.ExcludeFiles, fileName)
}

func (c Component) RequiresModules() bool {
	return len(c.Modules) > 0
}

// Registry is the set of components a resolver is allowed to choose from.
// It is a plain value so that several registries (e.g. one per cloud) can be
// used side by side.
type Registry struct {
	components map[string]Component
	order      []string
}

// NewRegistry builds a registry and checks that every dependency refers to a
// registered component.
func NewRegistry(components ...Component) (*Registry, error) {
	r := &Registry{
		components: make(map[string]Component, len(components)),
	}

	for _, c := range components {
		if c.Name == "" {
			return nil, fmt.Errorf("component name cannot be empty")
		}
		if _, exists := r.components[c.Name]; exists {
			return nil, fmt.Errorf("component '%s' registered twice", c.Name)
		}
		r.components[c.Name] = c
		r.order = append(r.order, c.Name)
	}

	for _, c := range components {
		for _, dep := range c.DependsOn {
			if _, ok := r.components[dep]; !ok {
				return nil, fmt.Errorf("component '%s' depends on unregistered component '%s'", c.Name, dep)
			}
		}
	}

	return r, nil
}

// DefaultRegistry returns the AWS component table shipped with infragen.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(
		Component{Name: "vpc"},
		Component{Name: "eks", DependsOn: []string{"vpc"}},
		Component{Name: "eks-auto", DependsOn: []string{"vpc"}},
		Component{Name: "rds", DependsOn: []string{"vpc"}},
		Component{
			Name:         "services",
			DependsOn:    []string{"vpc", "eks"},
			ExcludeFiles: []string{"sftp.tf", "zendesk.tf", "vanta.tf"},
			Modules:      []string{"sftp"},
		},
		Component{Name: "secrets", DependsOn: []string{"eks", "services"}},
		Component{Name: "opensearch", DependsOn: []string{"vpc", "services", "eks"}},
		Component{Name: "monitoring", DependsOn: []string{"vpc", "eks", "services", "rds"}},
		Component{Name: "common"},
	)
	if err != nil {
		panic(fmt.Sprintf("default registry is invalid: %v", err))
	}
	return r
}

func (r *Registry) Get(name string) (Component, bool) {
	c, ok := r.components[name]
	return c, ok
}

func (r *Registry) Has(name string) bool {
	_, ok := r.components[name]
	return ok
}

// Dependencies returns the direct dependencies of name, nil when unknown.
func (r *Registry) Dependencies(name string) []string {
	return r.components[name].DependsOn
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	return slices.Clone(r.order)
}

// SortedNames returns the registered names alphabetically, used in error
// messages.
func (r *Registry) SortedNames() []string {
	names := r.Names()
	sort.Strings(names)
	return names
}

func (r *Registry) Components() []Component {
	components := make([]Component, 0, len(r.order))
	for _, name := range r.order {
		components = append(components, r.components[name])
	}
	return components
}

// Resolution is the outcome of dependency resolution.
type Resolution struct {
	// Requested is the deduplicated input, in input order.
	Requested []string `json:"requested"`
	// Added holds dependencies pulled in by expansion, in the order added.
	Added []string `json:"added,omitempty"`
	// Order is the generation order. Every component appears exactly once.
	Order []string `json:"order"`
	// Forfeited is the tail of Order whose relative ordering could not be
	// guaranteed because of a dependency cycle.
	Forfeited []string `json:"forfeited,omitempty"`
}

func (r *Resolution) FullyOrdered() bool {
	return len(r.Forfeited) == 0
}

func (r *Resolution) IndexOf(name string) int {
	return slices.Index(r.Order, name)
}
