package chat

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/claritycoach/backend/internal/analysis/snapshot"
	"github.com/claritycoach/backend/internal/model/chat"
	coachService "github.com/claritycoach/backend/internal/service/coach"
	"github.com/claritycoach/backend/pkg/utils"
)

// maxBodyBytes bounds an inbound transcript.
const maxBodyBytes = 1 << 20

// Handler 聊天服务的HTTP处理器
type Handler struct {
	coach  *coachService.Service
	logger *zap.Logger
}

// New 创建聊天处理器
func New(coach *coachService.Service, logger *zap.Logger) *Handler {
	return &Handler{
		coach:  coach,
		logger: logger,
	}
}

// Request is the body of a chat turn.
type Request struct {
	Messages    []chat.Message `json:"messages"`
	CurrentStep string         `json:"currentStep,omitempty"`
}

// Conversation converts the request into the caller-owned aggregate. An
// unknown currentStep is dropped so the turn starts from intro.
func (r Request) Conversation() chat.Conversation {
	conv := chat.Conversation{Messages: r.Messages}
	if s, ok := chat.ParseStage(r.CurrentStep); ok {
		conv.Stage = s
	}
	return conv
}

// Response is returned for every chat turn, including provider failures.
type Response struct {
	Message     string             `json:"message"`
	CurrentStep chat.Stage         `json:"currentStep"`
	Snapshot    *snapshot.Snapshot `json:"snapshot,omitempty"`
	Error       string             `json:"error,omitempty"`
}

// FailureText is the error string callers see when the provider failed.
const FailureText = "Failed to process your request"

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
}

// handleChat 处理一轮对话
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload Request
	if err := utils.DecodeJSON(w, r, maxBodyBytes, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.coach.Reply(r.Context(), payload.Conversation())
	if err != nil {
		if errors.Is(err, coachService.ErrInvalidConversation) {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("chat turn failed", zap.Error(err))
		utils.RespondJSON(w, http.StatusInternalServerError, Response{
			Message:     result.Message,
			CurrentStep: result.Stage,
			Error:       FailureText,
		})
		return
	}

	utils.RespondJSON(w, http.StatusOK, Response{
		Message:     result.Message,
		CurrentStep: result.Stage,
		Snapshot:    result.Snapshot,
	})
}
