package snapshot

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	analysis "github.com/claritycoach/backend/internal/analysis/snapshot"
	snapshotService "github.com/claritycoach/backend/internal/service/snapshot"
	"github.com/claritycoach/backend/pkg/utils"
)

const maxBodyBytes = 64 << 10

// Handler serves the "Save to My Snapshots" endpoints.
type Handler struct {
	store  *snapshotService.Store
	logger *zap.Logger
}

// New 创建snapshot处理器
func New(store *snapshotService.Store, logger *zap.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logger,
	}
}

// SaveRequest carries either a structured snapshot or the raw reply text it
// should be parsed from.
type SaveRequest struct {
	Snapshot *analysis.Snapshot `json:"snapshot,omitempty"`
	Message  string             `json:"message,omitempty"`
}

// RegisterRoutes 注册snapshot相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/snapshots", func(r chi.Router) {
		r.Post("/", h.handleSave)
		r.Get("/{snapshotID}", h.handleGet)
	})
}

func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	var payload SaveRequest
	if err := utils.DecodeJSON(w, r, maxBodyBytes, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var snap analysis.Snapshot
	switch {
	case payload.Snapshot != nil:
		snap = *payload.Snapshot
	case payload.Message != "":
		parsed, ok := analysis.Parse(payload.Message)
		if !ok {
			utils.RespondError(w, http.StatusUnprocessableEntity, "message does not contain a Clarity Snapshot")
			return
		}
		snap = parsed
	default:
		utils.RespondError(w, http.StatusBadRequest, "snapshot or message is required")
		return
	}

	saved, err := h.store.Save(r.Context(), snap)
	if err != nil {
		if errors.Is(err, snapshotService.ErrSnapshotEmpty) {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to save snapshot", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "failed to save snapshot")
		return
	}

	h.logger.Info("snapshot saved", zap.String("snapshotID", saved.ID))
	utils.RespondJSON(w, http.StatusCreated, saved)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	saved, err := h.store.Get(r.Context(), chi.URLParam(r, "snapshotID"))
	if err != nil {
		if errors.Is(err, snapshotService.ErrSnapshotNotFound) {
			utils.RespondError(w, http.StatusNotFound, err.Error())
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "failed to load snapshot")
		return
	}
	utils.RespondJSON(w, http.StatusOK, saved)
}
