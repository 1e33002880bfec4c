package generate

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/opsforge/infragen/internal/generators/infra"
	"github.com/opsforge/infragen/internal/services/persistence"
	"github.com/opsforge/infragen/internal/types"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestGenerateCmd_Precedence(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	cfgPath := filepath.Join(dir, "infragen.yaml")

	writeFile(t, filepath.Join(dir, "template-modules", "vpc", "main.tf.tmpl"),
		"locals {\nteam = \"{{ .team }}\"\nregion = \"{{ .region }}\"\n}\n")
	writeFile(t, cfgPath, "environments:\n  - qa\nregion: eu-west-1\nci_provider: github\nteam: platform\n")

	t.Setenv("REGION", "us-west-2")

	cmd := NewGenerateCmd()
	cmd.SetArgs([]string{
		"--project-name", "demo",
		"--components", "vpc",
		"--ci-provider", "gitlab",
		"--template-dir", filepath.Join(dir, "template-modules"),
		"--source-dir", filepath.Join(dir, "infra"),
		"--modules-dir", filepath.Join(dir, "modules"),
		"--output-dir", outDir,
		"--config", cfgPath,
	})
	require.NoError(t, cmd.Execute())

	var manifest types.GenerationManifest
	manifestPath := filepath.Join(outDir, infra.ManifestDirName, infra.ManifestName)
	require.NoError(t, persistence.NewFileService(afero.NewOsFs(), manifestPath).Load(&manifest))

	assert.Equal(t, types.StateFinalized, manifest.State)
	assert.Equal(t, "us-west-2", manifest.Region, "environment beats config file")
	assert.Equal(t, []string{"qa"}, manifest.Environments, "config file beats defaults")
	assert.Equal(t, "gitlab", manifest.CIProvider, "flag beats config file")

	mainTf, err := os.ReadFile(filepath.Join(outDir, "infra", "vpc", "main.tf"))
	require.NoError(t, err)
	assert.Contains(t, string(mainTf), `"platform"`)
	assert.Contains(t, string(mainTf), `"us-west-2"`)
}

func TestRenderSummary(t *testing.T) {
	summary := renderSummary(types.GenerationManifest{
		ProjectName:  "demo",
		Components:   []string{"vpc", "eks-auto"},
		Environments: []string{"dev", "prod"},
		Added:        []string{"vpc"},
		Forfeited:    []string{"alpha"},
		CIProvider:   "gitlab",
		Files:        []string{"README.md", ".gitlab-ci.yml"},
		StartedAt:    time.Now(),
	}, "generated-infra")

	assert.Contains(t, summary, "Infrastructure generation complete")
	assert.Contains(t, summary, "vpc → eks-auto")
	assert.Contains(t, summary, "dev, prod")
	assert.Contains(t, summary, "generated-infra")
	assert.Contains(t, summary, "alpha")
}
