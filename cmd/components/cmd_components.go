package components

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/opsforge/infragen/internal/services/markdown"
	"github.com/opsforge/infragen/internal/services/renderer"
	"github.com/opsforge/infragen/internal/services/resolver"
	"github.com/opsforge/infragen/internal/types"
	"github.com/opsforge/infragen/internal/utils"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	templateDir string
	sourceDir   string
	resolve     string
)

func NewComponentsCmd() *cobra.Command {
	componentsCmd := &cobra.Command{
		Use:           "components",
		Short:         "List available components",
		Long:          "List every registered component with its dependencies and where its files come from, or print the deployment order for a set of components.",
		SilenceErrors: true,
		PreRunE:       preRunComponents,
		RunE:          runComponents,
	}

	optionalFlags := pflag.NewFlagSet("optional", pflag.ExitOnError)
	optionalFlags.SortFlags = false
	optionalFlags.StringVar(&templateDir, "template-dir", "template-modules", "Directory holding one template bundle per component")
	optionalFlags.StringVar(&sourceDir, "source-dir", "infra", "Directory copied from when a component has no template bundle")
	optionalFlags.StringVar(&resolve, "resolve", "", "Comma separated components to resolve into a deployment order")
	componentsCmd.Flags().AddFlagSet(optionalFlags)

	componentsCmd.SetUsageFunc(func(c *cobra.Command) error {
		fmt.Printf("%s\n\n", c.Short)
		fmt.Printf("Optional Flags:\n%s\n", optionalFlags.FlagUsages())
		fmt.Println("All flags can be provided via environment variables (uppercase, with underscores).")
		return nil
	})

	return componentsCmd
}

func preRunComponents(cmd *cobra.Command, args []string) error {
	return utils.BindEnvToFlags(cmd)
}

func runComponents(cmd *cobra.Command, args []string) error {
	registry := types.DefaultRegistry()

	var md *markdown.Markdown
	var err error
	if resolve != "" {
		md, err = buildResolution(registry, utils.SplitCSV(resolve))
	} else {
		md, err = buildComponentTable(afero.NewOsFs(), registry, templateDir, sourceDir)
	}
	if err != nil {
		return err
	}

	return md.Print(os.Stdout)
}

func buildComponentTable(fs afero.Fs, registry *types.Registry, templateDir, sourceDir string) (*markdown.Markdown, error) {
	r := renderer.NewRenderer(renderer.RendererOpts{Fs: fs, TemplateDir: templateDir, SourceDir: sourceDir})

	rows := [][]string{}
	for _, component := range registry.Components() {
		source, err := componentSource(fs, r, component.Name, sourceDir)
		if err != nil {
			return nil, err
		}

		rows = append(rows, []string{
			component.Name,
			joinOrDash(component.DependsOn),
			joinOrDash(component.ExcludeFiles),
			joinOrDash(component.Modules),
			source,
		})
	}

	md := markdown.New()
	md.AddHeading("Components", 2)
	md.AddTable([]string{"Component", "Depends On", "Excluded Files", "Modules", "Source"}, rows)
	return md, nil
}

func componentSource(fs afero.Fs, r *renderer.Renderer, name, sourceDir string) (string, error) {
	hasTemplates, err := r.HasTemplates(name)
	if err != nil {
		return "", fmt.Errorf("failed to check templates for %s: %w", name, err)
	}
	if hasTemplates {
		return "template", nil
	}

	exists, err := afero.DirExists(fs, filepath.Join(sourceDir, name))
	if err != nil {
		return "", fmt.Errorf("failed to check source for %s: %w", name, err)
	}
	if exists {
		return "copy", nil
	}
	return "missing", nil
}

func buildResolution(registry *types.Registry, requested []string) (*markdown.Markdown, error) {
	resolution, err := resolver.NewResolver(registry).Resolve(requested)
	if err != nil {
		return nil, err
	}

	md := markdown.New()
	md.AddHeading("Deployment Order", 2)
	md.AddOrderedList(resolution.Order)
	if len(resolution.Added) > 0 {
		md.AddParagraph("Added dependencies: " + strings.Join(resolution.Added, ", "))
	}
	if !resolution.FullyOrdered() {
		md.AddParagraph("⚠️ Order not guaranteed because of a dependency cycle: " + strings.Join(resolution.Forfeited, ", "))
	}
	return md, nil
}

func joinOrDash(values []string) string {
	if len(values) == 0 {
		return "-"
	}
	return strings.Join(values, ", ")
}
