package gen

import (
	"github.com/spf13/cobra"
)

// RootCmd groups commands that generate files from the CLI definition itself.
var RootCmd = &cobra.Command{
	Use:   "gen",
	Short: "Generate documentation for humlsp",
	Long: `Generate documentation for humlsp

Usage
	humlsp gen man --dir man/
`,
}

func init() {
	RootCmd.AddCommand(ManPagesCmd)
}
