package ai

import (
	"context"
	"fmt"
	"strings"
)

// ChatGenerator turns a single prompt into one completion.
type ChatGenerator struct {
	client *OpenAICompatibleClient
	cfg    ChatConfig
}

func NewChatGenerator(client *OpenAICompatibleClient, cfg ChatConfig) *ChatGenerator {
	return &ChatGenerator{client: client, cfg: cfg}
}

func (g *ChatGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	out, err := g.client.Complete(ctx, g.cfg, []ChatMessage{{Role: "user", Content: prompt}})
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("model %s returned an empty response", g.cfg.Model)
	}
	return out, nil
}

func (g *ChatGenerator) Model() string {
	return g.cfg.Model
}
