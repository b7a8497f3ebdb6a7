package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"medinsight/internal/bootstrap"
	"medinsight/internal/model"
	"medinsight/internal/platform/huggingface"
)

var datasetLimit int

var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Stream the first records of the configured dataset",
	Long: `Streams the configured Hugging Face dataset split and prints the first
records as JSON, without downloading the whole dataset. Does not need
GOOGLE_API_KEY.`,
	Args: cobra.NoArgs,
	RunE: runDataset,
}

func init() {
	datasetCmd.Flags().IntVarP(&datasetLimit, "limit", "n", 3, "number of records to print")
	rootCmd.AddCommand(datasetCmd)
}

func runDataset(cmd *cobra.Command, _ []string) error {
	cfg, err := bootstrap.ReadConfig()
	if err != nil {
		return err
	}
	if datasetLimit <= 0 {
		return fmt.Errorf("--limit must be positive, got %d", datasetLimit)
	}

	client := bootstrap.NewDatasetClient(cfg)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Streaming %s...\n", client.Name())

	printed := 0
	err = client.Stream(context.Background(), func(r model.Record) error {
		data, err := json.Marshal(r)
		if err != nil {
			return err
		}
		printed++
		fmt.Fprintf(out, "%d: %s\n", printed, data)
		if printed >= datasetLimit {
			return huggingface.ErrStop
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("stream dataset failed: %w", err)
	}
	if printed == 0 {
		fmt.Fprintln(out, "The dataset split is empty.")
	}
	return nil
}
