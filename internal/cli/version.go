package cli

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/matzehuels/depgraph/pkg/buildinfo"
)

func (c *CLI) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			printKeyValue(w, "version", buildinfo.Version)
			printKeyValue(w, "commit", buildinfo.Commit)
			printKeyValue(w, "built", buildinfo.Date)
			printKeyValue(w, "go", runtime.Version())
		},
	}
}
