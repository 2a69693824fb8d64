package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/claritycoach/backend/internal/config"
	"github.com/claritycoach/backend/internal/model/chat"
)

// AnthropicCompleter calls the Anthropic messages API.
type AnthropicCompleter struct {
	client      anthropic.Client
	temperature float64
	maxTokens   int
	logger      *zap.Logger
}

// NewAnthropicCompleter creates a completer from cfg. Extra request options are
// appended after the configured key and base URL.
func NewAnthropicCompleter(cfg config.AIConfig, logger *zap.Logger, opts ...option.RequestOption) *AnthropicCompleter {
	clientOpts := []option.RequestOption{option.WithAPIKey(cfg.AnthropicAPIKey)}
	if cfg.AnthropicBaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.AnthropicBaseURL))
	}
	clientOpts = append(clientOpts, opts...)

	return &AnthropicCompleter{
		client:      anthropic.NewClient(clientOpts...),
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      logger,
	}
}

// Complete implements Completer.
func (c *AnthropicCompleter) Complete(ctx context.Context, req Request) (string, error) {
	message, err := c.client.Messages.New(ctx, c.params(req))
	if err != nil {
		return "", wrapAnthropicError(err)
	}

	var b strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}

	c.logger.Debug("anthropic completion finished",
		zap.String("model", req.Model),
		zap.Int("messages", len(req.Messages)),
		zap.Int64("outputTokens", message.Usage.OutputTokens))
	return b.String(), nil
}

// Stream implements Completer.
func (c *AnthropicCompleter) Stream(ctx context.Context, req Request, onDelta func(string) error) (string, error) {
	stream := c.client.Messages.NewStreaming(ctx, c.params(req))
	defer stream.Close()

	var b strings.Builder
	for stream.Next() {
		event := stream.Current()
		if event.Type != "content_block_delta" {
			continue
		}
		delta, ok := event.AsContentBlockDelta().Delta.AsAny().(anthropic.TextDelta)
		if !ok || delta.Text == "" {
			continue
		}
		b.WriteString(delta.Text)
		if err := onDelta(delta.Text); err != nil {
			return "", err
		}
	}
	if err := stream.Err(); err != nil {
		return "", wrapAnthropicError(err)
	}

	return b.String(), nil
}

func (c *AnthropicCompleter) params(req Request) anthropic.MessageNewParams {
	system, messages := toAnthropicMessages(req.Messages)

	maxTokens := int64(c.maxTokens)
	if maxTokens <= 0 {
		maxTokens = 800
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: maxTokens,
		Messages:  messages,
	}
	params.Temperature = anthropic.Float(c.temperature)
	if len(system) > 0 {
		params.System = system
	}
	return params
}

// toAnthropicMessages moves instruction messages into the system blocks. The
// API expects the dialogue to open with a user turn, so assistant turns that
// precede the first user message are carried as system context.
func toAnthropicMessages(messages []chat.Message) ([]anthropic.TextBlockParam, []anthropic.MessageParam) {
	var (
		system   []anthropic.TextBlockParam
		dialogue []anthropic.MessageParam
	)
	for _, msg := range messages {
		switch msg.Role {
		case chat.RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: msg.Content})
		case chat.RoleUser:
			dialogue = append(dialogue, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case chat.RoleAssistant:
			if len(dialogue) == 0 {
				system = append(system, anthropic.TextBlockParam{Text: "You already greeted the user with:\n" + msg.Content})
				continue
			}
			dialogue = append(dialogue, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	return system, dialogue
}

func wrapAnthropicError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return modelUnavailable(err)
	}
	return fmt.Errorf("anthropic completion failed: %w", err)
}
