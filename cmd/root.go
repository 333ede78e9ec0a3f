package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "incmerge",
	Short: "A CLI tool for merging diverged branches one commit at a time",
	Long: `Incmerge integrates a long-diverged upstream branch into a feature branch
incrementally, probing one upstream commit at a time so that each merge
conflict is attributable to a single originating change.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
