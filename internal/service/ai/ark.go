package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/claritycoach/backend/internal/model/chat"
)

// arkModelUnavailableCodes are Ark error codes returned for endpoints or models
// the account cannot use.
var arkModelUnavailableCodes = []string{
	"InvalidEndpointOrModel",
	"ModelNotOpen",
	"model_not_found",
}

// ArkCompleter runs completions through an eino chain ending in a chat model.
type ArkCompleter struct {
	chain  compose.Runnable[map[string]any, *schema.Message]
	logger *zap.Logger
}

// NewArkCompleter compiles the prompt chain around chatModel.
func NewArkCompleter(ctx context.Context, chatModel model.BaseChatModel, logger *zap.Logger) (*ArkCompleter, error) {
	if chatModel == nil {
		return nil, errors.New("chat model is required")
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.MessagesPlaceholder("messages", false),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &ArkCompleter{chain: runnable, logger: logger}, nil
}

// Complete implements Completer.
func (c *ArkCompleter) Complete(ctx context.Context, req Request) (string, error) {
	response, err := c.chain.Invoke(ctx, buildChainInput(req.Messages), callOptions(req)...)
	if err != nil {
		return "", wrapArkError(err)
	}

	c.logger.Debug("ark completion finished",
		zap.String("model", req.Model),
		zap.Int("messages", len(req.Messages)),
		zap.Int("length", len(response.Content)))
	return response.Content, nil
}

// Stream implements Completer.
func (c *ArkCompleter) Stream(ctx context.Context, req Request, onDelta func(string) error) (string, error) {
	stream, err := c.chain.Stream(ctx, buildChainInput(req.Messages), callOptions(req)...)
	if err != nil {
		return "", wrapArkError(err)
	}
	defer stream.Close()

	chunks := make([]*schema.Message, 0, 8)
	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return "", wrapArkError(recvErr)
		}
		if chunk == nil {
			continue
		}

		chunks = append(chunks, chunk)
		if chunk.Content != "" {
			if err := onDelta(chunk.Content); err != nil {
				return "", err
			}
		}
	}

	if len(chunks) == 0 {
		return "", nil
	}
	response, err := schema.ConcatMessages(chunks)
	if err != nil {
		return "", fmt.Errorf("failed to concat stream chunks: %w", err)
	}
	return response.Content, nil
}

func buildChainInput(messages []chat.Message) map[string]any {
	return map[string]any{
		"messages": toSchemaMessages(messages),
	}
}

func callOptions(req Request) []compose.Option {
	if req.Model == "" {
		return nil
	}
	return []compose.Option{compose.WithChatModelOption(model.WithModel(req.Model))}
}

func toSchemaMessages(messages []chat.Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case chat.RoleSystem:
			out = append(out, schema.SystemMessage(msg.Content))
		case chat.RoleUser:
			out = append(out, schema.UserMessage(msg.Content))
		case chat.RoleAssistant:
			out = append(out, schema.AssistantMessage(msg.Content, nil))
		}
	}
	return out
}

func wrapArkError(err error) error {
	if errors.Is(err, ErrModelUnavailable) {
		return err
	}
	text := err.Error()
	for _, code := range arkModelUnavailableCodes {
		if strings.Contains(text, code) {
			return modelUnavailable(err)
		}
	}
	return fmt.Errorf("ark completion failed: %w", err)
}
