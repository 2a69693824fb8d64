package stream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	chatHandler "github.com/claritycoach/backend/internal/handler/chat"
	"github.com/claritycoach/backend/internal/model/chat"
	coachService "github.com/claritycoach/backend/internal/service/coach"
)

// pongWait is how long the connection may stay silent between frames or pongs.
const pongWait = 60 * time.Second

// WebSocketHandler runs coaching turns over a websocket. The transcript lives
// on the connection and is dropped when it closes.
type WebSocketHandler struct {
	coach       *coachService.Service
	logger      *zap.Logger
	upgrader    websocket.Upgrader
	readTimeout time.Duration
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(coach *coachService.Service, allowedOrigins []string, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		coach:       coach,
		logger:      logger,
		readTimeout: pongWait,
		upgrader: websocket.Upgrader{
			CheckOrigin:     originChecker(allowedOrigins),
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterWebSocketRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterWebSocketRoutes(r chi.Router) {
	r.Get("/chat/ws", h.handleWebSocket)
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// TextMessage is one user utterance appended to the connection transcript.
type TextMessage struct {
	Text string `json:"text"`
}

// ConfigMessage toggles per-connection options.
type ConfigMessage struct {
	StreamMode *bool `json:"streamMode,omitempty"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

type connectionState struct {
	conv       chat.Conversation
	streamMode bool
}

func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	h.extendDeadline(conn)
	conn.SetPongHandler(func(string) error {
		h.extendDeadline(conn)
		return nil
	})

	go h.pingLoop(ctx, conn)

	state := &connectionState{streamMode: true}
	h.sendInfo(conn, map[string]any{
		"type":        "connected",
		"currentStep": state.conv.PriorStage(),
	})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Info("websocket read error", zap.Error(err))
			}
			return
		}
		h.handleMessage(ctx, conn, state, &msg)
		// A turn may outlast the read timeout; restart the clock once it is done.
		h.extendDeadline(conn)
	}
}

func (h *WebSocketHandler) handleMessage(ctx context.Context, conn *websocket.Conn, state *connectionState, msg *inboundMessage) {
	switch msg.Type {
	case "text":
		h.handleTextMessage(ctx, conn, state, msg.Data)
	case "sync":
		h.handleSyncMessage(conn, state, msg.Data)
	case "reset":
		state.conv = chat.Conversation{}
		h.sendInfo(conn, map[string]any{"type": "reset", "currentStep": state.conv.PriorStage()})
	case "config":
		h.handleConfigMessage(conn, state, msg.Data)
	default:
		h.sendError(conn, "unsupported message type: "+msg.Type)
	}
}

func (h *WebSocketHandler) handleTextMessage(ctx context.Context, conn *websocket.Conn, state *connectionState, raw json.RawMessage) {
	var text TextMessage
	if err := json.Unmarshal(raw, &text); err != nil {
		h.sendError(conn, "invalid text payload")
		return
	}
	userText := strings.TrimSpace(text.Text)
	if userText == "" {
		return
	}

	conv := state.conv.Append(chat.UserMessage(userText), state.conv.Stage)

	var (
		result coachService.Result
		err    error
	)
	if state.streamMode {
		result, err = h.coach.Stream(ctx, conv, func(delta string) error {
			if delta == "" {
				return nil
			}
			return h.write(conn, outgoingMessage{Type: "result", Data: map[string]any{"type": "ai_delta", "text": delta}})
		})
	} else {
		result, err = h.coach.Reply(ctx, conv)
	}

	if err != nil {
		h.logger.Error("websocket turn failed", zap.Error(err))
		h.sendError(conn, chatHandler.FailureText)
		// Unanswered turns are dropped; the client resends the text to retry.
		h.sendFinal(conn, result, state.conv.PriorStage())
		return
	}

	state.conv = conv.Append(chat.AssistantMessage(result.Message), result.Stage)
	h.sendFinal(conn, result, result.Stage)
}

// handleSyncMessage replaces the connection transcript, e.g. after a reconnect.
func (h *WebSocketHandler) handleSyncMessage(conn *websocket.Conn, state *connectionState, raw json.RawMessage) {
	var req chatHandler.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		h.sendError(conn, "invalid sync payload")
		return
	}
	conv := req.Conversation()
	if len(conv.Messages) > 0 {
		if err := conv.Validate(); err != nil {
			h.sendError(conn, err.Error())
			return
		}
	}
	state.conv = conv
	h.sendInfo(conn, map[string]any{
		"type":        "sync",
		"messages":    len(conv.Messages),
		"currentStep": conv.PriorStage(),
	})
}

func (h *WebSocketHandler) handleConfigMessage(conn *websocket.Conn, state *connectionState, raw json.RawMessage) {
	var cfg ConfigMessage
	if err := json.Unmarshal(raw, &cfg); err != nil {
		h.sendError(conn, "invalid config payload")
		return
	}
	if cfg.StreamMode != nil {
		state.streamMode = *cfg.StreamMode
	}
	h.sendInfo(conn, map[string]any{
		"type":       "config",
		"streamMode": state.streamMode,
	})
}

func (h *WebSocketHandler) sendFinal(conn *websocket.Conn, result coachService.Result, step chat.Stage) {
	data := map[string]any{
		"type":        "ai",
		"text":        result.Message,
		"currentStep": step,
		"isFinal":     true,
	}
	if result.Snapshot != nil {
		data["snapshot"] = result.Snapshot
	}
	h.sendInfo(conn, data)
}

func (h *WebSocketHandler) sendInfo(conn *websocket.Conn, data map[string]any) {
	if err := h.write(conn, outgoingMessage{Type: "result", Data: data}); err != nil {
		h.logger.Debug("websocket write failed", zap.Error(err))
	}
}

func (h *WebSocketHandler) sendError(conn *websocket.Conn, message string) {
	if err := h.write(conn, outgoingMessage{Type: "error", Data: map[string]string{"message": message}}); err != nil {
		h.logger.Debug("websocket write failed", zap.Error(err))
	}
}

func (h *WebSocketHandler) write(conn *websocket.Conn, msg outgoingMessage) error {
	msg.Timestamp = time.Now().Unix()
	return conn.WriteJSON(msg)
}

func (h *WebSocketHandler) extendDeadline(conn *websocket.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(h.readTimeout))
}

// pingLoop 定期发送ping消息
func (h *WebSocketHandler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(h.readTimeout * 9 / 10)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second))
			if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
				return
			}
		}
	}
}

// originChecker accepts requests without an Origin header and origins on the
// allow-list. "*" allows everything.
func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}
