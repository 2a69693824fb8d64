package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/claritycoach/backend/internal/model/chat"
	"github.com/claritycoach/backend/internal/service/ai"
	"github.com/claritycoach/backend/internal/service/coach"
)

const transcriptYAML = `currentStep: intro
messages:
  - role: user
    content: "I'm facing a situation..."
  - role: assistant
    content: "🔍 S – Situation\nWhat triggered you? What happened?"
  - role: user
    content: My manager criticised me in front of the team.
`

func writeTranscript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "transcript.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestInspectPrintsStageAndPrompt(t *testing.T) {
	path := writeTranscript(t, transcriptYAML)

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"inspect", "--transcript", path})
	require.NoError(t, root.Execute())

	text := out.String()
	assert.Contains(t, text, "current stage: situation")
	assert.Contains(t, text, "<system prompt,")
	assert.Contains(t, text, "My manager criticised me")
}

func TestInspectRequiresTranscript(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"inspect"})
	assert.Error(t, root.Execute())
}

func TestInspectRejectsInvalidTranscript(t *testing.T) {
	path := writeTranscript(t, "messages: []\n")

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"inspect", "-t", path})
	assert.ErrorIs(t, root.Execute(), coach.ErrInvalidConversation)
}

type cannedCompleter struct{ reply string }

func (c cannedCompleter) Complete(context.Context, ai.Request) (string, error) { return c.reply, nil }

func (c cannedCompleter) Stream(_ context.Context, _ ai.Request, onDelta func(string) error) (string, error) {
	return c.reply, onDelta(c.reply)
}

func TestRunChatTracksStage(t *testing.T) {
	svc := coach.NewService(cannedCompleter{reply: "🔍 S – Situation\nWhat triggered you? What happened?"}, "m", "", zap.NewNop())

	in := strings.NewReader("I'm facing a situation...\n/quit\n")
	var out bytes.Buffer
	require.NoError(t, runChat(context.Background(), svc, in, &out, time.Second, zap.NewNop()))

	text := out.String()
	assert.Contains(t, text, "[intro] > ")
	assert.Contains(t, text, "What triggered you?")
	assert.Contains(t, text, "[situation] > ")
}

// recordingCompleter fails its first call and records every transcript it is sent.
type recordingCompleter struct {
	reply string
	calls [][]chat.Message
}

func (c *recordingCompleter) Complete(_ context.Context, req ai.Request) (string, error) {
	c.calls = append(c.calls, req.Messages)
	if len(c.calls) == 1 {
		return "", errors.New("provider down")
	}
	return c.reply, nil
}

func (c *recordingCompleter) Stream(ctx context.Context, req ai.Request, _ func(string) error) (string, error) {
	return c.Complete(ctx, req)
}

func TestRunChatDropsFailedTurn(t *testing.T) {
	c := &recordingCompleter{reply: "🔍 S – Situation\nWhat triggered you?"}
	svc := coach.NewService(c, "m", "", zap.NewNop())

	in := strings.NewReader("first try\nsecond try\n/quit\n")
	var out bytes.Buffer
	require.NoError(t, runChat(context.Background(), svc, in, &out, time.Second, zap.NewNop()))

	require.Len(t, c.calls, 2)
	var users []string
	for _, m := range c.calls[1] {
		if m.Role == chat.RoleUser {
			users = append(users, m.Content)
		}
	}
	assert.Equal(t, []string{"second try"}, users)
	assert.Contains(t, out.String(), coach.ApologyMessage)
	assert.Contains(t, out.String(), "[situation] > ")
}
