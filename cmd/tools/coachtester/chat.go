package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/claritycoach/backend/internal/config"
	"github.com/claritycoach/backend/internal/logging"
	"github.com/claritycoach/backend/internal/model/chat"
	"github.com/claritycoach/backend/internal/service/ai"
	"github.com/claritycoach/backend/internal/service/coach"
)

func newChatCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Hold a coaching session against the configured provider",
		Long:  "Reads one user message per line from stdin. Type /quit to stop.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			cfg.Log.Format = "console"
			logger, err := logging.New(cfg.Log)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			completer, err := ai.NewCompleter(cmd.Context(), cfg.AI, logger)
			if err != nil {
				return err
			}
			svc := coach.NewService(completer, cfg.AI.Model, cfg.AI.FallbackModel, logger)
			return runChat(cmd.Context(), svc, cmd.InOrStdin(), cmd.OutOrStdout(), timeout, logger)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 60*time.Second, "per-turn request timeout")
	return cmd
}

func runChat(ctx context.Context, svc *coach.Service, in io.Reader, out io.Writer, timeout time.Duration, logger *zap.Logger) error {
	fmt.Fprintln(out, coach.WelcomeMessage)
	fmt.Fprintln(out)

	var conv chat.Conversation
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprintf(out, "[%s] > ", conv.PriorStage())
		if !scanner.Scan() {
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		}

		next := conv.Append(chat.UserMessage(line), conv.Stage)

		turnCtx, cancel := context.WithTimeout(ctx, timeout)
		result, err := svc.Stream(turnCtx, next, func(delta string) error {
			_, err := io.WriteString(out, delta)
			return err
		})
		cancel()
		fmt.Fprintln(out)

		if err != nil {
			logger.Warn("turn failed", zap.Error(err))
			fmt.Fprintln(out, result.Message)
			continue
		}

		conv = next.Append(chat.AssistantMessage(result.Message), result.Stage)
		if result.Stage == chat.StageCompleted {
			fmt.Fprintln(out, "-- session completed --")
		}
	}
}
