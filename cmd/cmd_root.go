package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/opsforge/infragen/cmd/backend"
	"github.com/opsforge/infragen/cmd/components"
	"github.com/opsforge/infragen/cmd/generate"
	"github.com/opsforge/infragen/cmd/update"
	"github.com/opsforge/infragen/cmd/validate"
	"github.com/opsforge/infragen/cmd/version"
	"github.com/opsforge/infragen/internal/build_info"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"
)

const logFileName = "infragen.log"

var RootCmd = &cobra.Command{
	Use:   "infragen",
	Short: "Generate Terraform infrastructure from reusable components",
	Long:  "A CLI tool that resolves infrastructure components and their dependencies and generates a Terraform tree with CI pipeline, backend config and documentation. Docs: " + getDocURL(),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if build_info.IsDevBuild() {
			fmt.Printf("\n%s\n%s\n%s\n%s\n\n",
				color.RedString("┌─────────────────────────────────────────────────────────────────────────┐"),
				color.RedString("│ ⚠️  WARNING: This is a development build                                │"),
				color.RedString("│ Official releases: https://github.com/opsforge/infragen/releases        │"),
				color.RedString("└─────────────────────────────────────────────────────────────────────────┘"))
		}

		fmt.Printf("%s %s %s %s\n",
			color.CyanString("Executing infragen with build"),
			color.GreenString("version=%s", build_info.Version),
			color.YellowString("commit=%s", build_info.Commit),
			color.BlueString("date=%s", build_info.Date))

		if err := checkWritePermissions(); err != nil {
			fmt.Fprintf(os.Stderr, "%s\n", color.RedString("Error: %v", err))
			os.Exit(1)
		}
	},
}

func init() {
	cobra.EnableTraverseRunHooks = true

	lumberjackLogger := &lumberjack.Logger{
		Filename: logFileName,
		MaxSize:  25,
		Compress: true,
	}
	opts := PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	handler := NewPrettyHandler(io.MultiWriter(lumberjackLogger, os.Stdout), opts)
	slog.SetDefault(slog.New(handler))

	RootCmd.AddCommand(
		generate.NewGenerateCmd(),
		components.NewComponentsCmd(),
		validate.NewValidateCmd(),
		backend.NewBackendCmd(),
		version.NewVersionCmd(),
		update.NewUpdateCmd(),
	)
}

func getDocURL() string {
	if build_info.IsDevBuild() {
		return "https://github.com/opsforge/infragen/tree/main/docs"
	}
	return "https://github.com/opsforge/infragen/tree/v" + build_info.Version + "/docs"
}

type PrettyHandlerOptions struct {
	SlogOpts slog.HandlerOptions
}

// PrettyHandler writes "time level message key=value ..." lines
type PrettyHandler struct {
	slog.Handler
	l     *log.Logger
	attrs []slog.Attr
}

func NewPrettyHandler(out io.Writer, opts PrettyHandlerOptions) *PrettyHandler {
	return &PrettyHandler{
		Handler: slog.NewTextHandler(out, &opts.SlogOpts),
		l:       log.New(out, "", 0),
	}
}

func (h *PrettyHandler) Handle(ctx context.Context, r slog.Record) error {
	time := r.Time.Format("2006/01/02 15:04:05")

	values := []string{}
	for _, a := range h.attrs {
		values = append(values, fmt.Sprintf("%s=%v", a.Key, a.Value.Any()))
	}
	r.Attrs(func(a slog.Attr) bool {
		values = append(values, fmt.Sprintf("%s=%v", a.Key, a.Value.Any()))
		return true
	})

	line := fmt.Sprintf("%s %s %s", time, r.Level.String(), r.Message)
	if len(values) > 0 {
		line += " " + strings.Join(values, " ")
	}
	h.l.Print(line)

	return nil
}

func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &PrettyHandler{
		Handler: h.Handler.WithAttrs(attrs),
		l:       h.l,
		attrs:   append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

func checkWritePermissions() error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current working directory: %w", err)
	}

	testFile, err := os.CreateTemp(cwd, ".infragen-write-test-*")
	if err != nil {
		return fmt.Errorf("current working directory '%s' does not have write permissions for the current user", cwd)
	}

	defer os.Remove(testFile.Name())
	defer testFile.Close()

	return nil
}
