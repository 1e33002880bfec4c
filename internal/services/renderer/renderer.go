package renderer

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/template"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/opsforge/infragen/internal/types"
	"github.com/opsforge/infragen/internal/validation"
	"github.com/spf13/afero"
)

const (
	TemplateSuffix = ".tmpl"
	InfraDirName   = "infra"
)

// ErrNoSource is returned, wrapped in a GeneratorError, when a component has
// neither a template bundle nor a fallback source directory.
var ErrNoSource = errors.New("no template or fallback source found")

var (
	hclExtensions        = []string{".tf", ".tfvars", ".hcl"}
	moduleIgnorePatterns = []string{".git*", "__pycache__", "*.pyc"}
)

type RendererOpts struct {
	Fs          afero.Fs
	TemplateDir string
	SourceDir   string
	OutputDir   string
}

// Renderer materializes component directories under OutputDir, either from
// a template bundle or by copying a static source directory. Every write is
// checked against the output directory first.
type Renderer struct {
	fs          afero.Fs
	templateDir string
	sourceDir   string
	outputDir   string

	written []string
}

func NewRenderer(opts RendererOpts) *Renderer {
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	return &Renderer{
		fs:          fs,
		templateDir: opts.TemplateDir,
		sourceDir:   opts.SourceDir,
		outputDir:   opts.OutputDir,
	}
}

// Written returns every file written so far, relative to the output directory.
func (r *Renderer) Written() []string {
	return slices.Clone(r.written)
}

func (r *Renderer) ComponentDir(name string) string {
	return filepath.Join(r.outputDir, InfraDirName, name)
}

// HasTemplates reports whether a template bundle exists for the component.
func (r *Renderer) HasTemplates(name string) (bool, error) {
	templates, err := r.templates(name)
	if err != nil {
		return false, err
	}
	return len(templates) > 0, nil
}

// RenderComponent renders the component's template bundle, or falls back to
// copying its static source directory when no bundle exists.
func (r *Renderer) RenderComponent(component types.Component, data map[string]any) error {
	templates, err := r.templates(component.Name)
	if err != nil {
		return types.NewGeneratorError(component.Name, "list templates", err)
	}

	if len(templates) > 0 {
		if err := r.clearComponentDir(component.Name, filepath.Join(r.templateDir, component.Name)); err != nil {
			return types.NewGeneratorError(component.Name, "clear component directory", err)
		}
		return r.renderTemplates(component, templates, validation.SanitizeTemplateContext(data))
	}

	srcDir := filepath.Join(r.sourceDir, component.Name)
	exists, err := afero.DirExists(r.fs, srcDir)
	if err != nil {
		return types.NewGeneratorError(component.Name, "check fallback source", err)
	}
	if !exists {
		return types.NewGeneratorError(component.Name, "generate component",
			fmt.Errorf("%w (looked in %s and %s)", ErrNoSource,
				filepath.Join(r.templateDir, component.Name), srcDir))
	}

	slog.Warn("⚠️ no template found, copying from source", "component", component.Name, "source", srcDir)
	if err := r.clearComponentDir(component.Name, srcDir); err != nil {
		return types.NewGeneratorError(component.Name, "clear component directory", err)
	}
	if err := r.copyComponent(component, srcDir); err != nil {
		return types.NewGeneratorError(component.Name, "copy fallback source", err)
	}

	return nil
}

// clearComponentDir removes what an earlier run left in the component's
// output directory. srcDir is the directory about to be read from.
func (r *Renderer) clearComponentDir(name, srcDir string) error {
	dir := r.ComponentDir(name)
	if _, err := validation.ValidatePath(dir, r.outputDir); err != nil {
		return err
	}
	if err := checkDisjoint(srcDir, dir); err != nil {
		return err
	}

	if err := r.fs.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove existing directory %s: %w", dir, err)
	}
	return nil
}

// checkDisjoint fails when src and dest are the same directory or one
// contains the other.
func checkDisjoint(src, dest string) error {
	for _, pair := range [][2]string{{src, dest}, {dest, src}} {
		contains, err := validation.ContainsPath(pair[0], pair[1])
		if err != nil {
			return err
		}
		if contains {
			return fmt.Errorf("refusing to replace %s with %s: the directories overlap", dest, src)
		}
	}
	return nil
}

func (r *Renderer) templates(name string) ([]string, error) {
	dir := filepath.Join(r.templateDir, name)

	exists, err := afero.DirExists(r.fs, dir)
	if err != nil || !exists {
		return nil, err
	}

	entries, err := afero.ReadDir(r.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read template directory %s: %w", dir, err)
	}

	var templates []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), TemplateSuffix) {
			templates = append(templates, filepath.Join(dir, entry.Name()))
		}
	}

	return templates, nil
}

func (r *Renderer) renderTemplates(component types.Component, templates []string, data map[string]any) error {
	componentDir := r.ComponentDir(component.Name)

	for _, path := range templates {
		name := filepath.Base(path)

		content, err := afero.ReadFile(r.fs, path)
		if err != nil {
			return types.NewGeneratorError(component.Name, "read template "+name, err)
		}

		rendered, err := renderTemplate(name, content, data)
		if err != nil {
			return types.NewTemplateRenderError(component.Name, name, err)
		}

		outName := strings.TrimSuffix(name, TemplateSuffix)
		if slices.Contains(hclExtensions, filepath.Ext(outName)) {
			rendered, err = formatHCL(outName, rendered)
			if err != nil {
				return types.NewTemplateRenderError(component.Name, name, err)
			}
		}

		if err := r.WriteFile(filepath.Join(componentDir, outName), rendered); err != nil {
			return err
		}

		slog.Info("✅ generated", "component", component.Name, "file", outName)
	}

	return nil
}

func renderTemplate(name string, content []byte, data map[string]any) ([]byte, error) {
	tmpl, err := template.New(name).
		Option("missingkey=error").
		Funcs(templateFuncs()).
		Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.Bytes(), nil
}

// formatHCL rejects output that is not valid HCL and returns it in
// canonical terraform fmt layout.
func formatHCL(filename string, content []byte) ([]byte, error) {
	if _, diags := hclsyntax.ParseConfig(content, filename, hcl.InitialPos); diags.HasErrors() {
		return nil, fmt.Errorf("rendered output is not valid HCL: %w", diags)
	}
	return hclwrite.Format(content), nil
}

// WriteFile validates path against the output directory and writes content,
// creating parent directories as needed.
func (r *Renderer) WriteFile(path string, content []byte) error {
	if _, err := validation.ValidateFilename(filepath.Base(path)); err != nil {
		return err
	}
	if _, err := validation.ValidatePath(path, r.outputDir); err != nil {
		return err
	}

	if err := r.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", filepath.Dir(path), err)
	}

	if err := afero.WriteFile(r.fs, path, content, 0644); err != nil {
		return fmt.Errorf("failed to write file %s: %w", path, err)
	}

	rel, err := filepath.Rel(r.outputDir, path)
	if err != nil {
		rel = path
	}
	r.written = append(r.written, filepath.ToSlash(rel))

	return nil
}

func (r *Renderer) copyComponent(component types.Component, srcDir string) error {
	componentDir := r.ComponentDir(component.Name)
	if _, err := validation.ValidatePath(componentDir, r.outputDir); err != nil {
		return err
	}
	if err := r.fs.MkdirAll(componentDir, 0755); err != nil {
		return fmt.Errorf("failed to create component directory: %w", err)
	}

	entries, err := afero.ReadDir(r.fs, srcDir)
	if err != nil {
		return fmt.Errorf("failed to read source directory %s: %w", srcDir, err)
	}

	for _, entry := range entries {
		name := entry.Name()
		src := filepath.Join(srcDir, name)
		dest := filepath.Join(componentDir, name)

		switch {
		case entry.IsDir():
			if strings.HasPrefix(name, ".") {
				continue
			}
			if err := r.replaceDir(src, dest, nil); err != nil {
				return err
			}
			slog.Info("📁 copied directory", "component", component.Name, "directory", name+"/")
		case filepath.Ext(name) == ".tf":
			if component.Excludes(name) {
				slog.Info("⏭️ skipping client specific file", "component", component.Name, "file", name)
				continue
			}
			if err := r.copyFile(src, dest); err != nil {
				return err
			}
			slog.Info("📋 copied", "component", component.Name, "file", name)
		}
	}

	return nil
}

// CopyModules replaces dest with a copy of the shared modules directory src.
// A missing src is not an error.
func (r *Renderer) CopyModules(src, dest string) error {
	exists, err := afero.DirExists(r.fs, src)
	if err != nil {
		return types.NewGeneratorError("", "check modules directory", err)
	}
	if !exists {
		slog.Warn("⚠️ modules directory not found, skipping", "directory", src)
		return nil
	}

	if err := r.replaceDir(src, dest, ignoreModuleEntry); err != nil {
		return types.NewGeneratorError("", "copy modules", err)
	}

	slog.Info("📦 copied modules", "from", src, "to", dest)
	return nil
}

func ignoreModuleEntry(name string) bool {
	for _, pattern := range moduleIgnorePatterns {
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
	}
	return false
}

// replaceDir removes dest and recursively copies src into it. Entries for
// which ignore returns true are skipped, along with their children.
func (r *Renderer) replaceDir(src, dest string, ignore func(name string) bool) error {
	if _, err := validation.ValidatePath(dest, r.outputDir); err != nil {
		return err
	}
	if err := checkDisjoint(src, dest); err != nil {
		return err
	}

	if err := r.fs.RemoveAll(dest); err != nil {
		return fmt.Errorf("failed to remove existing directory %s: %w", dest, err)
	}

	return afero.Walk(r.fs, src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if path != src && ignore != nil && ignore(info.Name()) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return fmt.Errorf("failed to get relative path: %w", err)
		}
		target := filepath.Join(dest, rel)

		if info.IsDir() {
			return r.fs.MkdirAll(target, 0755)
		}

		return r.copyFile(path, target)
	})
}

func (r *Renderer) copyFile(src, dest string) error {
	content, err := afero.ReadFile(r.fs, src)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", src, err)
	}
	return r.WriteFile(dest, content)
}
