package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

// Generator produces a completion for a system instruction and a user prompt.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// ArkConfig selects an Ark-hosted chat model.
type ArkConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	Region      string
	MaxTokens   int
	Temperature float32
}

func (c ArkConfig) Enabled() bool {
	return c.APIKey != "" && c.Model != ""
}

// NewArkChatModel builds the production chat model.
func NewArkChatModel(ctx context.Context, c ArkConfig) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, errors.New("ark api key and model are required")
	}
	cfg := &ark.ChatModelConfig{
		APIKey:  c.APIKey,
		Model:   c.Model,
		BaseURL: c.BaseURL,
		Region:  c.Region,
	}
	if c.MaxTokens > 0 {
		maxTokens := c.MaxTokens
		cfg.MaxTokens = &maxTokens
	}
	if c.Temperature > 0 {
		temperature := c.Temperature
		cfg.Temperature = &temperature
	}
	return ark.NewChatModel(ctx, cfg)
}

// ChainGenerator runs a system+user prompt template through a chat model.
type ChainGenerator struct {
	chain compose.Runnable[map[string]any, *schema.Message]
}

func NewChainGenerator(ctx context.Context, cm model.BaseChatModel) (*ChainGenerator, error) {
	tpl := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{prompt}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(tpl)
	chain.AppendChatModel(cm)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile chat chain: %w", err)
	}
	return &ChainGenerator{chain: runnable}, nil
}

func (g *ChainGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	msg, err := g.chain.Invoke(ctx, map[string]any{
		"system": system,
		"prompt": prompt,
	})
	if err != nil {
		return "", fmt.Errorf("run chat chain: %w", err)
	}
	return msg.Content, nil
}

// Unavailable is the Generator used when no model is configured. Every call
// fails, so structured tasks return their fallbacks.
type Unavailable struct{}

var ErrUnavailable = errors.New("language model not configured")

func (Unavailable) Generate(context.Context, string, string) (string, error) {
	return "", ErrUnavailable
}
