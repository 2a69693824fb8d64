package stream

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	chatHandler "github.com/claritycoach/backend/internal/handler/chat"
	"github.com/claritycoach/backend/internal/model/chat"
	coachService "github.com/claritycoach/backend/internal/service/coach"
	"github.com/claritycoach/backend/pkg/utils"
)

const maxBodyBytes = 1 << 20

// Handler manages streaming coach replies via Server-Sent Events
type Handler struct {
	coach     *coachService.Service
	streaming bool
	logger    *zap.Logger
}

// New creates a new stream handler. When streaming is false the reply is
// generated in one call and sent as a single message event.
func New(coach *coachService.Service, streaming bool, logger *zap.Logger) *Handler {
	return &Handler{
		coach:     coach,
		streaming: streaming,
		logger:    logger,
	}
}

// StreamResponse represents a streaming response chunk
type StreamResponse struct {
	Event    string `json:"event"`
	Content  string `json:"content,omitempty"`
	Finished bool   `json:"finished,omitempty"`
	Error    string `json:"error,omitempty"`
}

// RegisterRoutes 注册流式聊天路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat/stream", h.handleStream)
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	var payload chatHandler.Request
	if err := utils.DecodeJSON(w, r, maxBodyBytes, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	conv := payload.Conversation()
	if err := conv.Validate(); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	utils.SetupSSEHeaders(w)
	utils.SendSSEChunk(w, flusher, StreamResponse{Event: "start"})

	var (
		result coachService.Result
		err    error
	)
	if h.streaming {
		result, err = h.coach.Stream(r.Context(), conv, func(delta string) error {
			if delta == "" {
				return nil
			}
			utils.SendSSEChunk(w, flusher, StreamResponse{Event: "delta", Content: delta})
			return r.Context().Err()
		})
	} else {
		result, err = h.coach.Reply(r.Context(), conv)
	}

	if err != nil {
		if ctxErr := r.Context().Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			h.logger.Debug("client went away during stream", zap.Error(err))
			return
		}
		h.logger.Error("stream turn failed", zap.Error(err))
		utils.SendSSEChunk(w, flusher, StreamResponse{Event: "error", Error: chatHandler.FailureText})
		h.sendMessage(w, flusher, result)
		return
	}

	h.sendMessage(w, flusher, result)
	utils.SendSSEChunk(w, flusher, StreamResponse{Event: "end", Finished: true})
}

// sendMessage emits the final reply and its stage as a message event.
func (h *Handler) sendMessage(w http.ResponseWriter, flusher http.Flusher, result coachService.Result) {
	stage := result.Stage
	if stage == "" {
		stage = chat.StageIntro
	}
	content, err := json.Marshal(chatHandler.Response{
		Message:     result.Message,
		CurrentStep: stage,
		Snapshot:    result.Snapshot,
	})
	if err != nil {
		h.logger.Warn("failed to marshal stream message", zap.Error(err))
		return
	}
	utils.SendSSEChunk(w, flusher, StreamResponse{Event: "message", Content: string(content)})
}
