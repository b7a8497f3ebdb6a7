package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"medinsight/internal/app"
	"medinsight/internal/bootstrap"
	"medinsight/internal/model"
	"medinsight/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the medical assistant in the terminal",
	Long: `Builds the retrieval index (this loads and embeds the whole dataset, which
can take a while) and opens an interactive chat.

Controls:
  Enter      - Send the question
  PgUp/PgDn  - Scroll the conversation
  Ctrl+L     - Clear the conversation
  Esc/Ctrl+C - Quit`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	cfg, err := bootstrap.ReadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Building the retrieval index...")
	handle, err := bootstrap.NewPipeline(cfg).Initialize(context.Background())
	if err != nil {
		return fmt.Errorf("initialize rag pipeline failed: %w", err)
	}

	chat := app.NewChatService(handle, nil, nil, nil, "tui")
	summary := fmt.Sprintf("%d documents indexed, model %s", handle.DocumentCount(), cfg.LLM.Model)
	m := tui.New(chat, model.NewSession("terminal"), summary)

	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
