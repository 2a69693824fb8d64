package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"go.uber.org/zap"

	"github.com/claritycoach/backend/internal/config"
	"github.com/claritycoach/backend/internal/model/chat"
)

// OpenAICompleter calls the OpenAI chat completions API.
type OpenAICompleter struct {
	client      openai.Client
	temperature float64
	maxTokens   int
	logger      *zap.Logger
}

// NewOpenAICompleter creates a completer from cfg. Extra request options are
// appended after the configured key and base URL.
func NewOpenAICompleter(cfg config.AIConfig, logger *zap.Logger, opts ...option.RequestOption) *OpenAICompleter {
	clientOpts := []option.RequestOption{option.WithAPIKey(cfg.OpenAIAPIKey)}
	if cfg.OpenAIBaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.OpenAIBaseURL))
	}
	clientOpts = append(clientOpts, opts...)

	return &OpenAICompleter{
		client:      openai.NewClient(clientOpts...),
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      logger,
	}
}

// Complete implements Completer.
func (c *OpenAICompleter) Complete(ctx context.Context, req Request) (string, error) {
	completion, err := c.client.Chat.Completions.New(ctx, c.params(req))
	if err != nil {
		return "", wrapOpenAIError(err)
	}

	if len(completion.Choices) == 0 {
		return "", nil
	}
	content := completion.Choices[0].Message.Content

	c.logger.Debug("openai completion finished",
		zap.String("model", req.Model),
		zap.Int("messages", len(req.Messages)),
		zap.Int64("totalTokens", completion.Usage.TotalTokens))
	return content, nil
}

// Stream implements Completer.
func (c *OpenAICompleter) Stream(ctx context.Context, req Request, onDelta func(string) error) (string, error) {
	stream := c.client.Chat.Completions.NewStreaming(ctx, c.params(req))
	defer stream.Close()

	var builder strings.Builder
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		builder.WriteString(delta)
		if err := onDelta(delta); err != nil {
			return "", err
		}
	}
	if err := stream.Err(); err != nil {
		return "", wrapOpenAIError(err)
	}

	return builder.String(), nil
}

func (c *OpenAICompleter) params(req Request) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(req.Model),
		Messages: toOpenAIMessages(req.Messages),
	}
	params.Temperature = openai.Float(c.temperature)
	if c.maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(c.maxTokens))
	}
	return params
}

func toOpenAIMessages(messages []chat.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case chat.RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case chat.RoleUser:
			out = append(out, openai.UserMessage(msg.Content))
		case chat.RoleAssistant:
			out = append(out, openai.AssistantMessage(msg.Content))
		}
	}
	return out
}

func wrapOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == "model_not_found" || apiErr.StatusCode == http.StatusNotFound {
			return modelUnavailable(err)
		}
	}
	return fmt.Errorf("openai completion failed: %w", err)
}
