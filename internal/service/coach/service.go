package coach

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/claritycoach/backend/internal/analysis/snapshot"
	"github.com/claritycoach/backend/internal/analysis/stage"
	"github.com/claritycoach/backend/internal/model/chat"
	"github.com/claritycoach/backend/internal/service/ai"
)

var (
	// ErrInvalidConversation wraps input problems detected before classification.
	ErrInvalidConversation = errors.New("invalid conversation")
	// ErrProviderFailure wraps any completion error that survived the fallback.
	ErrProviderFailure = errors.New("completion provider failure")
)

// Result is the outcome of one chat turn.
type Result struct {
	Message  string
	Stage    chat.Stage
	PreStage chat.Stage
	Model    string
	Snapshot *snapshot.Snapshot
}

// Service runs coaching turns against a completion provider. It holds no
// per-conversation state and is safe for concurrent use.
type Service struct {
	completer     ai.Completer
	model         string
	fallbackModel string
	logger        *zap.Logger
}

// NewService creates a coaching service. An empty fallbackModel retries the
// primary model.
func NewService(completer ai.Completer, model, fallbackModel string, logger *zap.Logger) *Service {
	if fallbackModel == "" {
		fallbackModel = model
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		completer:     completer,
		model:         model,
		fallbackModel: fallbackModel,
		logger:        logger,
	}
}

type turn struct {
	prior   chat.Stage
	pre     chat.Stage
	history int
	prompt  []chat.Message
}

// Prompt assembles the messages that would be sent for conv, together with the
// stage they were built for. No provider call is made.
func Prompt(conv chat.Conversation) ([]chat.Message, chat.Stage, error) {
	t, err := prepare(conv)
	if err != nil {
		return nil, "", err
	}
	return t.prompt, t.pre, nil
}

func prepare(conv chat.Conversation) (turn, error) {
	if err := conv.Validate(); err != nil {
		return turn{}, fmt.Errorf("%w: %w", ErrInvalidConversation, err)
	}

	prior := conv.PriorStage()
	pre := stage.Classify(conv.Messages, prior)

	history := conv.Messages
	if len(history) == 1 && history[0].Role == chat.RoleUser {
		history = []chat.Message{chat.AssistantMessage(WelcomeMessage), history[0]}
	}
	window := Optimize(history, pre)

	prompt := make([]chat.Message, 0, len(window)+2)
	prompt = append(prompt,
		chat.SystemMessage(SystemPrompt()),
		chat.SystemMessage(InstructionFor(pre)),
	)
	prompt = append(prompt, window...)

	return turn{prior: prior, pre: pre, history: len(history), prompt: prompt}, nil
}

// Reply runs one turn and returns the generated reply with its stage. On
// provider failure the returned Result still carries the apology text and the
// caller's prior stage.
func (s *Service) Reply(ctx context.Context, conv chat.Conversation) (Result, error) {
	t, err := prepare(conv)
	if err != nil {
		return Result{}, err
	}

	text, model, err := s.withFallback(ctx, func(model string) (string, error) {
		return s.completer.Complete(ctx, ai.Request{Model: model, Messages: t.prompt})
	}, func() bool { return true })
	if err != nil {
		return s.failed(t, err), err
	}
	return s.finish(t, text, model), nil
}

// Stream runs one turn, forwarding generated fragments to onDelta. The fallback
// model is only tried when nothing has been forwarded yet.
func (s *Service) Stream(ctx context.Context, conv chat.Conversation, onDelta func(string) error) (Result, error) {
	t, err := prepare(conv)
	if err != nil {
		return Result{}, err
	}

	emitted := false
	forward := func(delta string) error {
		emitted = true
		return onDelta(delta)
	}

	text, model, err := s.withFallback(ctx, func(model string) (string, error) {
		return s.completer.Stream(ctx, ai.Request{Model: model, Messages: t.prompt}, forward)
	}, func() bool { return !emitted })
	if err != nil {
		return s.failed(t, err), err
	}
	return s.finish(t, text, model), nil
}

func (s *Service) withFallback(ctx context.Context, call func(model string) (string, error), retryable func() bool) (string, string, error) {
	text, err := call(s.model)
	if err == nil {
		return text, s.model, nil
	}
	if !errors.Is(err, ai.ErrModelUnavailable) || !retryable() || ctx.Err() != nil {
		return "", s.model, fmt.Errorf("%w: %w", ErrProviderFailure, err)
	}

	s.logger.Warn("primary model unavailable, retrying with fallback",
		zap.String("model", s.model),
		zap.String("fallbackModel", s.fallbackModel),
		zap.Error(err))

	text, err = call(s.fallbackModel)
	if err != nil {
		return "", s.fallbackModel, fmt.Errorf("%w: fallback model %s: %w", ErrProviderFailure, s.fallbackModel, err)
	}
	return text, s.fallbackModel, nil
}

func (s *Service) finish(t turn, text, model string) Result {
	if strings.TrimSpace(text) == "" {
		text = ApologyMessage
	}

	result := Result{
		Message:  text,
		Stage:    stage.Reduce(t.pre, text),
		PreStage: t.pre,
		Model:    model,
	}
	if result.Stage == chat.StageCompleted {
		if snap, ok := snapshot.Parse(text); ok {
			result.Snapshot = &snap
		}
	}

	s.logger.Info("coach turn completed",
		zap.String("preStage", string(t.pre)),
		zap.String("stage", string(result.Stage)),
		zap.Int("history", t.history),
		zap.Int("prompt", len(t.prompt)),
		zap.String("model", model))
	return result
}

func (s *Service) failed(t turn, err error) Result {
	s.logger.Error("coach turn failed",
		zap.String("preStage", string(t.pre)),
		zap.Error(err))
	return Result{
		Message:  ApologyMessage,
		Stage:    t.prior,
		PreStage: t.pre,
	}
}
