package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/readout/internal/version"
)

// versionCmd represents the version command.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		v, commit, date := version.Info()
		out := fmt.Sprintf("readout %s\n  commit:  %s\n  built:   %s\n  runtime: %s %s/%s\n",
			v, commit, date, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		if _, err := fmt.Fprint(cmd.OutOrStdout(), out); err != nil {
			return fmt.Errorf("failed to write to stdout: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
