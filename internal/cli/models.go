package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"medinsight/internal/bootstrap"
)

const generateContent = "generateContent"

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Check the Google API key by listing usable models",
	Long: `Lists the models visible to GOOGLE_API_KEY that support generateContent.
A failure here usually means the key is invalid or the Generative Language API
is not enabled for the key's project.`,
	Args: cobra.NoArgs,
	RunE: runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, _ []string) error {
	cfg, err := bootstrap.ReadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Listing available models...")

	models, err := bootstrap.NewGeminiClient(cfg).ListModels(context.Background())
	if err != nil {
		fmt.Fprintln(out, "Could not reach the Google Generative Language API: check the API key and project settings.")
		return fmt.Errorf("list models failed: %w", err)
	}

	count := 0
	for _, m := range models {
		if !m.Supports(generateContent) {
			continue
		}
		fmt.Fprintf(out, "- %s\n", m.Name)
		count++
	}

	if count == 0 {
		fmt.Fprintln(out, "WARNING: no models supporting generateContent were found for this API key.")
		fmt.Fprintln(out, "Check the Google Cloud project settings and API permissions.")
		return nil
	}
	fmt.Fprintf(out, "Found %d models supporting generateContent.\n", count)
	return nil
}
