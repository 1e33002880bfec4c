package infra

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/looplab/fsm"
	"github.com/opsforge/infragen/internal/services/ci"
	"github.com/opsforge/infragen/internal/services/hcl"
	"github.com/opsforge/infragen/internal/services/markdown"
	"github.com/opsforge/infragen/internal/services/persistence"
	"github.com/opsforge/infragen/internal/services/renderer"
	"github.com/opsforge/infragen/internal/services/resolver"
	"github.com/opsforge/infragen/internal/types"
	"github.com/opsforge/infragen/internal/validation"
	"github.com/spf13/afero"
)

const (
	ConfigDirName   = "config"
	ModulesDirName  = "modules"
	ManifestDirName = ".infragen"
	ManifestName    = "manifest.json"
)

// struct to hold the options for a generation run
type InfraGeneratorOpts struct {
	Fs       afero.Fs
	Registry *types.Registry

	ProjectName       string
	Components        []string
	Environments      []string
	Region            string
	AWSAccountID      string
	StateBucket       string
	DynamoDBTable     string
	UseAssumeRole     bool
	CIProvider        string
	AvailabilityZones []string
	Extra             map[string]any

	OutputDir   string
	TemplateDir string
	SourceDir   string
	ModulesDir  string
}

// InfraGenerator runs one generation: validate, resolve, render every
// component, then write the CI, config and README artifacts. Progress is
// tracked by a state machine and recorded in a manifest under the output
// directory, on success and on failure.
type InfraGenerator struct {
	opts     InfraGeneratorOpts
	fs       afero.Fs
	registry *types.Registry

	fsm      *fsm.FSM
	manifest types.GenerationManifest

	inputs     *validation.Inputs
	ciProvider types.CIProvider
	gc         *types.GenerationContext
	resolution *types.Resolution
	renderer   *renderer.Renderer
}

func NewInfraGenerator(opts InfraGeneratorOpts) *InfraGenerator {
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	registry := opts.Registry
	if registry == nil {
		registry = types.DefaultRegistry()
	}

	g := &InfraGenerator{
		opts:     opts,
		fs:       fs,
		registry: registry,
		manifest: types.GenerationManifest{
			RunID:        uuid.NewString(),
			State:        types.StatePending,
			ProjectName:  opts.ProjectName,
			Region:       opts.Region,
			Environments: slices.Clone(opts.Environments),
			Components:   slices.Clone(opts.Components),
			CIProvider:   opts.CIProvider,
			Files:        []string{},
		},
		renderer: renderer.NewRenderer(renderer.RendererOpts{
			Fs:          fs,
			TemplateDir: opts.TemplateDir,
			SourceDir:   opts.SourceDir,
			OutputDir:   opts.OutputDir,
		}),
	}
	g.initializeFSM()

	return g
}

func (g *InfraGenerator) initializeFSM() {
	active := []string{types.StatePending, types.StateValidated, types.StateResolved, types.StateRendered}

	g.fsm = fsm.NewFSM(
		types.StatePending,
		fsm.Events{
			{Name: types.EventValidate, Src: []string{types.StatePending}, Dst: types.StateValidated},
			{Name: types.EventResolve, Src: []string{types.StateValidated}, Dst: types.StateResolved},
			{Name: types.EventRender, Src: []string{types.StateResolved}, Dst: types.StateRendered},
			{Name: types.EventFinalize, Src: []string{types.StateRendered}, Dst: types.StateFinalized},
			{Name: types.EventFail, Src: active, Dst: types.StateFailed},
		},
		fsm.Callbacks{
			"after_event": func(_ context.Context, e *fsm.Event) {
				g.manifest.State = e.Dst
				slog.Debug("generation state changed", "event", e.Event, "from", e.Src, "to", e.Dst)
			},
		},
	)
}

// State returns the current pipeline state
func (g *InfraGenerator) State() string {
	return g.fsm.Current()
}

// Resolution returns the resolved components, or nil before the resolve stage
func (g *InfraGenerator) Resolution() *types.Resolution {
	return g.resolution
}

func (g *InfraGenerator) Manifest() types.GenerationManifest {
	m := g.manifest
	m.Files = slices.Clone(g.manifest.Files)
	return m
}

func (g *InfraGenerator) ManifestPath() string {
	return filepath.Join(g.opts.OutputDir, ManifestDirName, ManifestName)
}

func (g *InfraGenerator) Run(ctx context.Context) error {
	g.manifest.StartedAt = time.Now().UTC()
	slog.Info("🏁 generating infrastructure", "project", g.opts.ProjectName, "runId", g.manifest.RunID)

	runErr := g.run(ctx)
	if runErr != nil {
		g.manifest.Error = runErr.Error()
		if err := g.fsm.Event(ctx, types.EventFail); err != nil {
			slog.Warn("⚠️ failed to record failure state", "error", err)
		}
	}

	g.manifest.FinishedAt = time.Now().UTC()
	g.manifest.Files = g.renderer.Written()

	// nothing touches the output directory until inputs are valid
	if g.inputs == nil {
		return runErr
	}

	if err := g.saveManifest(); err != nil {
		if runErr != nil {
			slog.Warn("⚠️ failed to write manifest", "error", err)
			return runErr
		}
		return err
	}

	if runErr != nil {
		return runErr
	}

	slog.Info("✅ infrastructure generated successfully", "directory", g.opts.OutputDir, "files", len(g.manifest.Files))
	return nil
}

func (g *InfraGenerator) run(ctx context.Context) error {
	stages := []struct {
		event string
		fn    func() error
	}{
		{event: types.EventValidate, fn: g.validate},
		{event: types.EventResolve, fn: g.resolve},
		{event: types.EventRender, fn: g.render},
		{event: types.EventFinalize, fn: g.generateAuxiliaryArtifacts},
	}

	for _, stage := range stages {
		if err := stage.fn(); err != nil {
			return err
		}
		if err := g.fsm.Event(ctx, stage.event); err != nil {
			return fmt.Errorf("failed to transition on %s: %w", stage.event, err)
		}
	}

	return nil
}

func (g *InfraGenerator) validate() error {
	slog.Info("📋 validating inputs")

	inputs, err := validation.ValidateAll(validation.Inputs{
		ProjectName:  g.opts.ProjectName,
		Components:   g.opts.Components,
		Environments: g.opts.Environments,
		Region:       g.opts.Region,
		AWSAccountID: g.opts.AWSAccountID,
	})
	if err != nil {
		return err
	}

	ciProvider, err := types.ToCIProvider(g.opts.CIProvider)
	if err != nil {
		return err
	}

	if g.opts.OutputDir == "" {
		return types.NewValidationError("output directory", "", "output directory is required")
	}
	if _, err := validation.ValidatePath(g.opts.OutputDir, ""); err != nil {
		return err
	}
	if err := g.validateInputDirs(); err != nil {
		return err
	}

	g.inputs = inputs
	g.ciProvider = ciProvider
	g.gc = types.NewGenerationContext(types.GenerationContextOpts{
		ProjectName:  inputs.ProjectName,
		Environments: inputs.Environments,
		Region:       inputs.Region,
		AWSAccountID: inputs.AWSAccountID,
		Backend: types.Backend{
			StateBucket:   g.opts.StateBucket,
			DynamoDBTable: g.opts.DynamoDBTable,
			UseAssumeRole: g.opts.UseAssumeRole,
		},
		CIProvider:        ciProvider,
		AvailabilityZones: g.opts.AvailabilityZones,
		Extra:             validation.SanitizeTemplateContext(g.opts.Extra),
	})

	g.manifest.ProjectName = inputs.ProjectName
	g.manifest.Region = inputs.Region
	g.manifest.Environments = slices.Clone(inputs.Environments)
	g.manifest.CIProvider = string(ciProvider)

	slog.Info("🌍 generation context",
		"project", inputs.ProjectName,
		"environments", inputs.Environments,
		"region", inputs.Region,
		"ciProvider", ciProvider,
	)
	return nil
}

// validateInputDirs rejects an output directory that is, or contains, one
// of the directories generation reads from. Parts of the output tree are
// removed and rewritten on every run.
func (g *InfraGenerator) validateInputDirs() error {
	inputs := []struct {
		field string
		dir   string
	}{
		{field: "template directory", dir: g.opts.TemplateDir},
		{field: "source directory", dir: g.opts.SourceDir},
		{field: "modules directory", dir: g.opts.ModulesDir},
	}

	for _, input := range inputs {
		if input.dir == "" {
			continue
		}
		inside, err := validation.ContainsPath(g.opts.OutputDir, input.dir)
		if err != nil {
			return types.NewValidationError(input.field, input.dir, err.Error())
		}
		if inside {
			return types.NewValidationError(input.field, input.dir,
				fmt.Sprintf("must not be the output directory %s or inside it", g.opts.OutputDir))
		}
	}

	return nil
}

func (g *InfraGenerator) resolve() error {
	resolution, err := resolver.NewResolver(g.registry).Resolve(g.inputs.Components)
	if err != nil {
		return err
	}

	g.resolution = resolution
	g.manifest.Components = slices.Clone(resolution.Order)
	g.manifest.Added = slices.Clone(resolution.Added)
	g.manifest.Forfeited = slices.Clone(resolution.Forfeited)

	return nil
}

func (g *InfraGenerator) render() error {
	if err := g.copyModules(); err != nil {
		return err
	}

	data := g.gc.TemplateData()
	for _, name := range g.resolution.Order {
		component, ok := g.registry.Get(name)
		if !ok {
			return types.NewGeneratorError(name, "lookup component", errors.New("component not registered"))
		}

		slog.Info("📦 generating component", "component", name)
		if err := g.renderer.RenderComponent(component, data); err != nil {
			return err
		}
	}

	return nil
}

func (g *InfraGenerator) copyModules() error {
	var requiring []string
	for _, name := range g.resolution.Order {
		if component, ok := g.registry.Get(name); ok && component.RequiresModules() {
			requiring = append(requiring, name)
		}
	}
	if len(requiring) == 0 {
		return nil
	}

	slog.Info("📦 components require local modules", "components", requiring)
	return g.renderer.CopyModules(g.opts.ModulesDir, filepath.Join(g.opts.OutputDir, ModulesDirName))
}

func (g *InfraGenerator) generateAuxiliaryArtifacts() error {
	components := g.resolution.Order

	ciService, err := ci.NewCIService(g.ciProvider)
	if err != nil {
		return err
	}
	pipeline, err := ciService.Generate(g.gc, components)
	if err != nil {
		return types.NewGeneratorError("", "generate CI pipeline", err)
	}
	if err := g.writeArtifact(ciService.FilePath(), pipeline); err != nil {
		return err
	}

	configDir := filepath.Join(renderer.InfraDirName, ConfigDirName)
	hclService := hcl.NewConfigHCLService()

	artifacts := []struct {
		path    string
		content []byte
	}{
		{path: filepath.Join(configDir, "README.md"), content: markdown.BuildConfigReadme(g.gc).Bytes()},
		{path: filepath.Join(configDir, "sample.tfvars.example"), content: []byte(hclService.GenerateSampleTfvars(g.gc))},
		{path: filepath.Join(configDir, "backend.hcl"), content: []byte(hclService.GenerateBackendConfig(g.gc))},
		{path: "README.md", content: markdown.BuildProjectReadme(g.gc, components).Bytes()},
	}

	for _, artifact := range artifacts {
		if err := g.writeArtifact(artifact.path, artifact.content); err != nil {
			return err
		}
	}

	return nil
}

func (g *InfraGenerator) writeArtifact(relPath string, content []byte) error {
	path := filepath.Join(g.opts.OutputDir, relPath)
	if err := g.renderer.WriteFile(path, content); err != nil {
		return types.NewGeneratorError("", "write "+filepath.ToSlash(relPath), err)
	}
	slog.Info("📋 generated", "file", filepath.ToSlash(relPath))
	return nil
}

func (g *InfraGenerator) saveManifest() error {
	service := persistence.NewFileService(g.fs, g.ManifestPath())
	if err := service.SaveWithRetry(g.manifest); err != nil {
		return fmt.Errorf("failed to save generation manifest: %w", err)
	}
	return nil
}
