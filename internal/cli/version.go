package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rickgao/chatlink/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "chatclient %s\n", version.String())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
