package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"medinsight/internal/bootstrap"
	"medinsight/internal/model"
	rabbitmqClient "medinsight/internal/platform/rabbitmq"
	"medinsight/internal/worker"
)

var turnsJSON bool

var turnsCmd = &cobra.Command{
	Use:   "turns",
	Short: "Print chat turns published by the server",
	Long: `Consumes the turn queue (rabbitmq.turn_queue) and prints every chat turn
the server publishes until interrupted. Requires RABBITMQ_URL.`,
	Args: cobra.NoArgs,
	RunE: runTurns,
}

func init() {
	turnsCmd.Flags().BoolVar(&turnsJSON, "json", false, "print raw turn events as JSON")
	rootCmd.AddCommand(turnsCmd)
}

func runTurns(cmd *cobra.Command, _ []string) error {
	cfg, err := bootstrap.ReadConfig()
	if err != nil {
		return err
	}
	if strings.TrimSpace(cfg.RabbitMQ.URL) == "" {
		return errors.New("RABBITMQ_URL is not set, the server publishes no turns without it")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		return err
	}
	defer conn.Close()

	out := cmd.OutOrStdout()
	consumer := worker.NewTurnConsumer(conn, cfg.RabbitMQ.TurnQueue, func(_ context.Context, e model.TurnEvent) error {
		return printTurn(cmd, e)
	})
	if err := consumer.Start(ctx); err != nil {
		return err
	}
	fmt.Fprintf(out, "Waiting for turns on %s. Press Ctrl+C to stop.\n", cfg.RabbitMQ.TurnQueue)

	consumer.Wait()
	return nil
}

func printTurn(cmd *cobra.Command, e model.TurnEvent) error {
	out := cmd.OutOrStdout()
	if turnsJSON {
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	status := "ok"
	if e.Failed {
		status = "failed"
	}
	fmt.Fprintf(out, "[%s] session=%s %s\n", e.CreatedAt.Format("15:04:05"), e.SessionID, status)
	fmt.Fprintf(out, "  Q: %s\n", e.Question)
	fmt.Fprintf(out, "  A: %s\n", e.Answer)
	for _, doc := range e.Sources {
		fmt.Fprintf(out, "  - %s (%s)\n", doc.Title, doc.Source)
	}
	return nil
}
