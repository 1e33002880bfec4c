package generate

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/opsforge/infragen/internal/types"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
)

func printSummary(manifest types.GenerationManifest, outputDir string) {
	fmt.Println(renderSummary(manifest, outputDir))
}

func renderSummary(manifest types.GenerationManifest, outputDir string) string {
	row := func(label, value string) string {
		return fmt.Sprintf("%s %s", labelStyle.Render(fmt.Sprintf("%-14s", label)), value)
	}

	lines := []string{
		titleStyle.Render("✅ Infrastructure generation complete"),
		"",
		row("Project", manifest.ProjectName),
		row("Output", outputDir),
		row("Components", strings.Join(manifest.Components, " → ")),
		row("Environments", strings.Join(manifest.Environments, ", ")),
		row("CI provider", manifest.CIProvider),
		row("Files", fmt.Sprintf("%d", len(manifest.Files))),
	}

	if len(manifest.Added) > 0 {
		lines = append(lines, row("Added deps", strings.Join(manifest.Added, ", ")))
	}
	if len(manifest.Forfeited) > 0 {
		lines = append(lines, warnStyle.Render("⚠️ dependency cycle, order not guaranteed for: "+strings.Join(manifest.Forfeited, ", ")))
	}

	lines = append(lines,
		"",
		"Next steps:",
		"1. Review generated files",
		"2. Create infra/config/<env>.tfvars from sample.tfvars.example",
		"3. Initialize and apply Terraform",
	)

	return boxStyle.Render(strings.Join(lines, "\n"))
}
