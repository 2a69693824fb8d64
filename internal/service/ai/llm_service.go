package ai

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/claritycoach/backend/internal/config"
	"github.com/claritycoach/backend/internal/model/chat"
)

// ErrModelUnavailable marks a provider rejection of the requested model
// identifier (unknown, not enabled for the account, retired).
var ErrModelUnavailable = errors.New("model unavailable")

// Request is one completion call.
type Request struct {
	Model    string
	Messages []chat.Message
}

// Completer sends a role-tagged transcript to a completion provider.
type Completer interface {
	// Complete returns the generated reply text.
	Complete(ctx context.Context, req Request) (string, error)
	// Stream calls onDelta for every generated fragment and returns the full reply.
	// An error returned by onDelta aborts the stream.
	Stream(ctx context.Context, req Request, onDelta func(string) error) (string, error)
}

// NewCompleter builds the provider selected by cfg.Provider.
func NewCompleter(ctx context.Context, cfg config.AIConfig, logger *zap.Logger) (Completer, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("ai provider %q is not configured", cfg.Provider)
	}

	switch cfg.Provider {
	case config.ProviderOpenAI:
		return NewOpenAICompleter(cfg, logger), nil
	case config.ProviderAnthropic:
		return NewAnthropicCompleter(cfg, logger), nil
	case config.ProviderArk:
		chatModel, err := cfg.NewChatModel(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create chat model: %w", err)
		}
		return NewArkCompleter(ctx, chatModel, logger)
	default:
		return nil, fmt.Errorf("unsupported ai provider %q", cfg.Provider)
	}
}

func modelUnavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrModelUnavailable, err)
}
