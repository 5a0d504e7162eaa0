package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"

	"github.com/praetorian-inc/msinfo/internal/message"
)

var docCmd = &cobra.Command{
	Use:    "gendoc",
	Short:  "Generate Markdown documentation",
	Long:   `Generate Markdown documentation for the CLI and its subcommands.`,
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return err
		}

		rootCmd.DisableAutoGenTag = true
		if err := doc.GenMarkdownTree(rootCmd, dir); err != nil {
			return err
		}
		message.Success("Documentation generated in %s", dir)
		return nil
	},
}

func init() {
	docCmd.Flags().String("dir", "./docs", "output directory")
	rootCmd.AddCommand(docCmd)
}
