package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/luma/humlsp/cmd/gen"
	"github.com/luma/humlsp/internal/meta"
)

var RootCmd = &cobra.Command{
	Use:   "humlsp",
	Short: "Language server for HUML documents",
	Long: `Language server for HUML documents

Editors start it with no arguments and talk to it over stdin and stdout.
Running it bare is the same as running "humlsp serve".`,
	Version:      meta.Version,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	addServeFlags(RootCmd)

	RootCmd.AddCommand(ServeCmd)
	RootCmd.AddCommand(VersionCmd)
	RootCmd.AddCommand(gen.RootCmd)
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
