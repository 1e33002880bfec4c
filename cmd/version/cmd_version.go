package version

import (
	"fmt"
	"io"
	"runtime"

	"github.com/opsforge/infragen/internal/build_info"
	"github.com/spf13/cobra"
)

func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the infragen version, commit, build date and platform",
		Run: func(cmd *cobra.Command, args []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "Version:  %s\n", build_info.Version)
	fmt.Fprintf(w, "Commit:   %s\n", build_info.Commit)
	fmt.Fprintf(w, "Date:     %s\n", build_info.Date)
	fmt.Fprintf(w, "Platform: %s/%s (%s)\n", runtime.GOOS, runtime.GOARCH, runtime.Version())
}
