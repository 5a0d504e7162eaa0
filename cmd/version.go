package cmd

import (
	"github.com/spf13/cobra"

	"github.com/praetorian-inc/msinfo/internal/message"
	"github.com/praetorian-inc/msinfo/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of msinfo",
	Run: func(cmd *cobra.Command, args []string) {
		message.Banner()
		message.Info("%s", version.FullVersion())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
