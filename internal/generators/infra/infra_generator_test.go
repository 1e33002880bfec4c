package infra

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/opsforge/infragen/internal/services/persistence"
	"github.com/opsforge/infragen/internal/services/renderer"
	"github.com/opsforge/infragen/internal/types"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	templateDir = "/work/template-modules"
	sourceDir   = "/work/infra"
	modulesDir  = "/work/modules"
	outputDir   = "/work/generated-infra"
)

const vpcTemplate = `resource "aws_vpc" "main" {
cidr_block = "10.0.0.0/16"
tags = {
Name = "{{ .project_name }}-vpc"
Team = "{{ default "unknown" (index . "team") }}"
}
}
`

const eksAutoTemplate = `module "eks" {
source = "terraform-aws-modules/eks/aws"
cluster_name = "{{ .project_name }}-{{ .region }}"
}
`

func newTestFs(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for path, content := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0644))
	}
	return fs
}

func newTestOpts(fs afero.Fs, components ...string) InfraGeneratorOpts {
	return InfraGeneratorOpts{
		Fs:           fs,
		ProjectName:  "test-vpc-only",
		Components:   components,
		Environments: []string{"dev"},
		Region:       "us-east-1",
		OutputDir:    outputDir,
		TemplateDir:  templateDir,
		SourceDir:    sourceDir,
		ModulesDir:   modulesDir,
	}
}

func readOutput(t *testing.T, fs afero.Fs, rel string) string {
	t.Helper()
	content, err := afero.ReadFile(fs, filepath.Join(outputDir, rel))
	require.NoError(t, err, rel)
	return string(content)
}

func loadManifest(t *testing.T, fs afero.Fs) types.GenerationManifest {
	t.Helper()
	var manifest types.GenerationManifest
	require.NoError(t, persistence.NewFileService(fs, filepath.Join(outputDir, ManifestDirName, ManifestName)).Load(&manifest))
	return manifest
}

func TestInfraGenerator_VPCOnly(t *testing.T) {
	fs := newTestFs(t, map[string]string{
		templateDir + "/vpc/main.tf.tmpl": vpcTemplate,
	})

	gen := NewInfraGenerator(newTestOpts(fs, "vpc"))
	require.NoError(t, gen.Run(context.Background()))

	assert.Equal(t, types.StateFinalized, gen.State())
	assert.Equal(t, []string{"vpc"}, gen.Resolution().Order)

	for _, rel := range []string{
		"infra/vpc/main.tf",
		".gitlab-ci.yml",
		"README.md",
		"infra/config/sample.tfvars.example",
		"infra/config/README.md",
		"infra/config/backend.hcl",
	} {
		assert.NotEmpty(t, readOutput(t, fs, rel), rel)
	}

	mainTf := readOutput(t, fs, "infra/vpc/main.tf")
	assert.Contains(t, mainTf, `Name = "test-vpc-only-vpc"`)
	assert.Contains(t, mainTf, `Team = "unknown"`)
	assert.Contains(t, mainTf, "  cidr_block = ", "output is formatted")

	manifest := loadManifest(t, fs)
	_, err := uuid.Parse(manifest.RunID)
	assert.NoError(t, err)
	assert.Equal(t, types.StateFinalized, manifest.State)
	assert.Equal(t, "test-vpc-only", manifest.ProjectName)
	assert.Equal(t, "gitlab", manifest.CIProvider)
	assert.ElementsMatch(t, []string{
		"infra/vpc/main.tf",
		".gitlab-ci.yml",
		"infra/config/README.md",
		"infra/config/sample.tfvars.example",
		"infra/config/backend.hcl",
		"README.md",
	}, manifest.Files)
	assert.Empty(t, manifest.Error)
	assert.False(t, manifest.FinishedAt.Before(manifest.StartedAt))
}

func TestInfraGenerator_ExpandsDependencies(t *testing.T) {
	fs := newTestFs(t, map[string]string{
		templateDir + "/vpc/main.tf.tmpl":      vpcTemplate,
		templateDir + "/eks-auto/main.tf.tmpl": eksAutoTemplate,
	})

	gen := NewInfraGenerator(newTestOpts(fs, "eks-auto"))
	require.NoError(t, gen.Run(context.Background()))

	assert.Equal(t, []string{"vpc", "eks-auto"}, gen.Resolution().Order)
	assert.Equal(t, []string{"vpc"}, gen.Resolution().Added)
	assert.Contains(t, readOutput(t, fs, "infra/eks-auto/main.tf"), `"test-vpc-only-us-east-1"`)

	manifest := loadManifest(t, fs)
	assert.Equal(t, []string{"vpc", "eks-auto"}, manifest.Components)
	assert.Equal(t, []string{"vpc"}, manifest.Added)
	assert.Contains(t, readOutput(t, fs, "README.md"), "1. vpc\n2. eks-auto\n")
}

func TestInfraGenerator_FallbackCopyAndModules(t *testing.T) {
	fs := newTestFs(t, map[string]string{
		templateDir + "/vpc/main.tf.tmpl":         vpcTemplate,
		sourceDir + "/eks/main.tf":                `resource "aws_eks_cluster" "this" {}`,
		sourceDir + "/services/main.tf":           `module "alb" {}`,
		sourceDir + "/services/sftp.tf":           `module "sftp" {}`,
		sourceDir + "/services/values/app.yaml":   "replicas: 2",
		modulesDir + "/sftp/main.tf":              `resource "aws_transfer_server" "this" {}`,
		modulesDir + "/sftp/.git/HEAD":            "ref: refs/heads/main",
		modulesDir + "/sftp/__pycache__/x.pyc":    "bytecode",
		modulesDir + "/sftp/scripts/helper.pyc":   "bytecode",
		modulesDir + "/sftp/scripts/bootstrap.sh": "#!/bin/sh",
	})

	gen := NewInfraGenerator(newTestOpts(fs, "services"))
	require.NoError(t, gen.Run(context.Background()))

	assert.Equal(t, []string{"vpc", "eks", "services"}, gen.Resolution().Order)

	assert.Equal(t, `module "alb" {}`, readOutput(t, fs, "infra/services/main.tf"))
	assert.Equal(t, "replicas: 2", readOutput(t, fs, "infra/services/values/app.yaml"))
	assert.NotEmpty(t, readOutput(t, fs, "infra/eks/main.tf"))
	assert.NotEmpty(t, readOutput(t, fs, "modules/sftp/main.tf"))
	assert.NotEmpty(t, readOutput(t, fs, "modules/sftp/scripts/bootstrap.sh"))

	for _, rel := range []string{
		"infra/services/sftp.tf",
		"modules/sftp/.git/HEAD",
		"modules/sftp/__pycache__/x.pyc",
		"modules/sftp/scripts/helper.pyc",
	} {
		exists, err := afero.Exists(fs, filepath.Join(outputDir, rel))
		require.NoError(t, err)
		assert.False(t, exists, rel)
	}
}

func TestInfraGenerator_GitHubProviderAndExtraKeys(t *testing.T) {
	fs := newTestFs(t, map[string]string{
		templateDir + "/vpc/main.tf.tmpl": vpcTemplate,
	})

	opts := newTestOpts(fs, "vpc")
	opts.CIProvider = "github"
	opts.AWSAccountID = "111122223333"
	opts.UseAssumeRole = true
	opts.Extra = map[string]any{"team": "platform", "_secret": "hidden"}

	gen := NewInfraGenerator(opts)
	require.NoError(t, gen.Run(context.Background()))

	assert.Contains(t, readOutput(t, fs, "infra/vpc/main.tf"), `Team = "platform"`)
	assert.Contains(t, readOutput(t, fs, ".github/workflows/terraform.yml"), "arn:aws:iam::111122223333:role/terraform")
	assert.Contains(t, readOutput(t, fs, "infra/config/backend.hcl"), "arn:aws:iam::111122223333:role/terraform")

	exists, err := afero.Exists(fs, filepath.Join(outputDir, ".gitlab-ci.yml"))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestInfraGenerator_Failures(t *testing.T) {
	tests := []struct {
		name           string
		files          map[string]string
		mutate         func(opts *InfraGeneratorOpts)
		components     []string
		assertErr      func(t *testing.T, err error)
		expectManifest bool
		expectFiles    []string
	}{
		{
			name:       "invalid project name",
			components: []string{"vpc"},
			mutate:     func(opts *InfraGeneratorOpts) { opts.ProjectName = "admin" },
			assertErr: func(t *testing.T, err error) {
				var validationErr *types.ValidationError
				assert.ErrorAs(t, err, &validationErr)
			},
		},
		{
			name:       "invalid ci provider",
			components: []string{"vpc"},
			mutate:     func(opts *InfraGeneratorOpts) { opts.CIProvider = "jenkins" },
			assertErr: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "Allowed values: gitlab, github")
			},
		},
		{
			name:       "unknown component",
			components: []string{"elasticache"},
			assertErr: func(t *testing.T, err error) {
				var validationErr *types.ValidationError
				assert.ErrorAs(t, err, &validationErr)
				assert.ErrorContains(t, err, "elasticache")
			},
			expectManifest: true,
		},
		{
			name:       "missing source keeps earlier output",
			files:      map[string]string{templateDir + "/vpc/main.tf.tmpl": vpcTemplate},
			components: []string{"rds"},
			assertErr: func(t *testing.T, err error) {
				var genErr *types.GeneratorError
				require.ErrorAs(t, err, &genErr)
				assert.Equal(t, "rds", genErr.Component)
				assert.ErrorIs(t, err, renderer.ErrNoSource)
			},
			expectManifest: true,
			expectFiles:    []string{"infra/vpc/main.tf"},
		},
		{
			name:       "template error",
			files:      map[string]string{templateDir + "/vpc/main.tf.tmpl": `name = "{{ .missing_key }}"`},
			components: []string{"vpc"},
			assertErr: func(t *testing.T, err error) {
				var renderErr *types.TemplateRenderError
				require.ErrorAs(t, err, &renderErr)
				assert.Equal(t, "vpc", renderErr.Component)
				assert.Equal(t, "main.tf.tmpl", renderErr.Template)
			},
			expectManifest: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := newTestFs(t, tt.files)
			opts := newTestOpts(fs, tt.components...)
			if tt.mutate != nil {
				tt.mutate(&opts)
			}

			gen := NewInfraGenerator(opts)
			err := gen.Run(context.Background())
			require.Error(t, err)
			tt.assertErr(t, err)
			assert.Equal(t, types.StateFailed, gen.State())

			if !tt.expectManifest {
				exists, err := afero.DirExists(fs, outputDir)
				require.NoError(t, err)
				assert.False(t, exists, "nothing is written when inputs are invalid")
				return
			}

			manifest := loadManifest(t, fs)
			assert.Equal(t, types.StateFailed, manifest.State)
			assert.Equal(t, err.Error(), manifest.Error)
			assert.ElementsMatch(t, tt.expectFiles, manifest.Files)
			for _, rel := range tt.expectFiles {
				assert.NotEmpty(t, readOutput(t, fs, rel))
			}
		})
	}
}

func TestInfraGenerator_RejectsOutputDirOverInputs(t *testing.T) {
	inputs := map[string]string{
		templateDir + "/eks/main.tf.tmpl":      eksAutoTemplate,
		modulesDir + "/sftp/main.tf":           "module",
		sourceDir + "/services/main.tf":        "resource \"null_resource\" \"a\" {}\n",
		sourceDir + "/vpc/main.tf":             "resource \"null_resource\" \"b\" {}\n",
		sourceDir + "/vpc/code/app.py":         "def handler(): pass",
		sourceDir + "/services/lambda/main.py": "def main(): pass",
	}

	tests := []struct {
		name      string
		outputDir string
		field     string
	}{
		{name: "workspace root", outputDir: "/work", field: "template directory"},
		{name: "source directory", outputDir: sourceDir, field: "source directory"},
		{name: "modules directory", outputDir: modulesDir + "/", field: "modules directory"},
		{name: "parent of source directory", outputDir: "/work/infra/..", field: "template directory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := newTestFs(t, inputs)
			opts := newTestOpts(fs, "services")
			opts.OutputDir = tt.outputDir

			gen := NewInfraGenerator(opts)
			err := gen.Run(context.Background())
			require.Error(t, err)

			var validationErr *types.ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.field, validationErr.Field)
			assert.Equal(t, types.StateFailed, gen.State())
			assert.Nil(t, gen.Resolution())

			for path, content := range inputs {
				actual, err := afero.ReadFile(fs, path)
				require.NoError(t, err, path)
				assert.Equal(t, content, string(actual), path)
			}

			exists, err := afero.Exists(fs, filepath.Join(tt.outputDir, ManifestDirName, ManifestName))
			require.NoError(t, err)
			assert.False(t, exists)
		})
	}
}

func TestInfraGenerator_RerunRemovesStaleComponentFiles(t *testing.T) {
	fs := newTestFs(t, map[string]string{
		templateDir + "/vpc/main.tf.tmpl":         vpcTemplate,
		outputDir + "/infra/vpc/network.tf":       "stale",
		outputDir + "/infra/vpc/subnets/extra.tf": "stale",
		outputDir + "/infra/notes.txt":            "kept",
	})

	require.NoError(t, NewInfraGenerator(newTestOpts(fs, "vpc")).Run(context.Background()))

	for rel, expected := range map[string]bool{
		"infra/vpc/main.tf":          true,
		"infra/vpc/network.tf":       false,
		"infra/vpc/subnets/extra.tf": false,
		"infra/notes.txt":            true,
	} {
		exists, err := afero.Exists(fs, filepath.Join(outputDir, rel))
		require.NoError(t, err)
		assert.Equal(t, expected, exists, rel)
	}
}
