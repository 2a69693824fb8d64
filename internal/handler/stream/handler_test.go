package stream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	chatHandler "github.com/claritycoach/backend/internal/handler/chat"
	"github.com/claritycoach/backend/internal/model/chat"
	"github.com/claritycoach/backend/internal/service/ai"
	coachService "github.com/claritycoach/backend/internal/service/coach"
)

type chunkedCompleter struct {
	chunks []string
	err    error
}

func (c *chunkedCompleter) Complete(context.Context, ai.Request) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	return strings.Join(c.chunks, ""), nil
}

func (c *chunkedCompleter) Stream(_ context.Context, _ ai.Request, onDelta func(string) error) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	for _, chunk := range c.chunks {
		if err := onDelta(chunk); err != nil {
			return "", err
		}
	}
	return strings.Join(c.chunks, ""), nil
}

func serve(t *testing.T, c ai.Completer, streaming bool, body string) []StreamResponse {
	t.Helper()
	svc := coachService.NewService(c, "primary", "", zap.NewNop())
	r := chi.NewRouter()
	New(svc, streaming, zap.NewNop()).RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodPost, "/chat/stream", bytes.NewBufferString(body))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "text/event-stream", resp.Header().Get("Content-Type"))
	return readEvents(t, resp.Body.String())
}

func readEvents(t *testing.T, raw string) []StreamResponse {
	t.Helper()
	var events []StreamResponse
	scanner := bufio.NewScanner(strings.NewReader(raw))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev StreamResponse
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev))
		events = append(events, ev)
	}
	return events
}

func eventNames(events []StreamResponse) []string {
	names := make([]string, len(events))
	for i, ev := range events {
		names[i] = ev.Event
	}
	return names
}

func messagePayload(t *testing.T, events []StreamResponse) chatHandler.Response {
	t.Helper()
	for _, ev := range events {
		if ev.Event == "message" {
			var out chatHandler.Response
			require.NoError(t, json.Unmarshal([]byte(ev.Content), &out))
			return out
		}
	}
	t.Fatal("no message event")
	return chatHandler.Response{}
}

const firstTurn = `{"messages":[{"role":"user","content":"I'm facing a situation..."}]}`

func TestStreamEmitsDeltasThenMessage(t *testing.T) {
	c := &chunkedCompleter{chunks: []string{"🔍 S – Situation\n", "What triggered you? ", "What happened?"}}

	events := serve(t, c, true, firstTurn)
	assert.Equal(t, []string{"start", "delta", "delta", "delta", "message", "end"}, eventNames(events))

	out := messagePayload(t, events)
	assert.Equal(t, chat.StageSituation, out.CurrentStep)
	assert.Equal(t, strings.Join(c.chunks, ""), out.Message)
}

func TestStreamDisabledSendsSingleMessage(t *testing.T) {
	c := &chunkedCompleter{chunks: []string{"Hello ", "there"}}

	events := serve(t, c, false, firstTurn)
	assert.Equal(t, []string{"start", "message", "end"}, eventNames(events))
	assert.Equal(t, "Hello there", messagePayload(t, events).Message)
}

func TestStreamProviderFailureSendsErrorAndApology(t *testing.T) {
	c := &chunkedCompleter{err: errors.New("boom")}

	events := serve(t, c, true, `{"messages":[{"role":"user","content":"hi"}],"currentStep":"mental"}`)
	assert.Equal(t, []string{"start", "error", "message"}, eventNames(events))
	assert.Equal(t, chatHandler.FailureText, events[1].Error)

	out := messagePayload(t, events)
	assert.Equal(t, coachService.ApologyMessage, out.Message)
	assert.Equal(t, chat.StageMental, out.CurrentStep)
}

func TestStreamRejectsMalformedConversation(t *testing.T) {
	svc := coachService.NewService(&chunkedCompleter{}, "primary", "", zap.NewNop())
	r := chi.NewRouter()
	New(svc, true, zap.NewNop()).RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodPost, "/chat/stream", bytes.NewBufferString(`{"messages":[]}`))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
