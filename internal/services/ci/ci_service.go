package ci

import (
	"fmt"
	"path/filepath"

	"github.com/goccy/go-yaml"
	"github.com/opsforge/infragen/internal/types"
)

const (
	TerraformVersion = "1.5.7"

	gitlabFile = ".gitlab-ci.yml"
	githubFile = ".github/workflows/terraform.yml"
)

// CIService generates the pipeline definition for the selected provider.
type CIService struct {
	provider types.CIProvider
}

func NewCIService(provider types.CIProvider) (*CIService, error) {
	if provider == "" {
		provider = types.CIProviderGitLab
	}
	if !provider.IsValid() {
		return nil, types.NewValidationError("ci provider", string(provider), "unsupported CI provider", types.AllCIProviders()...)
	}
	return &CIService{provider: provider}, nil
}

// FilePath returns where the pipeline file lives, relative to the output root.
func (s *CIService) FilePath() string {
	if s.provider == types.CIProviderGitHub {
		return filepath.FromSlash(githubFile)
	}
	return gitlabFile
}

// Generate returns the pipeline definition covering every component, in
// deployment order, and every environment.
func (s *CIService) Generate(gc *types.GenerationContext, components []string) ([]byte, error) {
	if len(components) == 0 {
		return nil, fmt.Errorf("at least one component is required to generate a pipeline")
	}

	var doc yaml.MapSlice
	switch s.provider {
	case types.CIProviderGitHub:
		doc = githubWorkflow(gc, components)
	default:
		doc = gitlabPipeline(gc, components)
	}

	content, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s pipeline: %w", s.provider, err)
	}

	return content, nil
}

func item(key string, value any) yaml.MapItem {
	return yaml.MapItem{Key: key, Value: value}
}
