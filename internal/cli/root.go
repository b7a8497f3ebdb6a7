// Package cli implements the medinsight diagnostics and terminal chat commands.
package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "medinsight",
	Short: "Medical question answering over the MedQuAD dataset",
	Long: `medinsight answers medical questions from a retrieval index built over
the MedQuAD question and answer dataset, using a hosted Gemini model.

The HTTP chat server is a separate binary (cmd/server). These commands check
credentials, preview the dataset, tail chat turns and chat in the terminal.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}
