package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/claritycoach/backend/internal/analysis/stage"
	"github.com/claritycoach/backend/internal/model/chat"
	"github.com/claritycoach/backend/internal/service/coach"
)

func newInspectCmd() *cobra.Command {
	var (
		transcript string
		full       bool
	)

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show the stage and prompt a transcript would produce",
		Long: `Classifies a YAML transcript and prints the prompt that would be sent,
without calling any provider.

Transcript format:

  currentStep: situation
  messages:
    - role: user
      content: I'm facing a situation...
    - role: assistant
      content: "🔍 S – Situation ..."`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conv, err := loadTranscript(transcript)
			if err != nil {
				return err
			}
			return inspect(cmd.OutOrStdout(), conv, full)
		},
	}
	cmd.Flags().StringVarP(&transcript, "transcript", "t", "", "path to a YAML transcript")
	cmd.Flags().BoolVar(&full, "full", false, "print the system prompt instead of eliding it")
	_ = cmd.MarkFlagRequired("transcript")
	return cmd
}

func loadTranscript(path string) (chat.Conversation, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return chat.Conversation{}, fmt.Errorf("read transcript: %w", err)
	}

	var conv chat.Conversation
	if err := yaml.Unmarshal(raw, &conv); err != nil {
		return chat.Conversation{}, fmt.Errorf("parse transcript %s: %w", path, err)
	}
	return conv, nil
}

func inspect(out io.Writer, conv chat.Conversation, full bool) error {
	prompt, pre, err := coach.Prompt(conv)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "prior stage:   %s\n", conv.PriorStage())
	fmt.Fprintf(out, "current stage: %s\n", pre)
	fmt.Fprintf(out, "history:       %d messages\n", len(conv.Messages))
	fmt.Fprintf(out, "window:        %d messages (recent turns %d)\n", len(prompt)-2, coach.RecentTurns(pre))

	if len(conv.Messages) > 0 {
		last := conv.Messages[len(conv.Messages)-1]
		if last.Role == chat.RoleAssistant {
			fmt.Fprintf(out, "last reply ->  %s\n", stage.ClassifyReply(last.Content, conv.PriorStage()))
		}
	}
	fmt.Fprintln(out)

	for i, msg := range prompt {
		content := msg.Content
		if i == 0 && !full {
			content = fmt.Sprintf("<system prompt, %d chars>", len(content))
		}
		fmt.Fprintf(out, "--- %d %s\n%s\n", i, msg.Role, strings.TrimSpace(content))
	}
	return nil
}
