package stage

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/claritycoach/backend/internal/analysis/stage"
	"github.com/claritycoach/backend/internal/model/chat"
	"github.com/claritycoach/backend/pkg/utils"
)

// Step describes one entry of the progress bar shown next to the chat.
type Step struct {
	ID       chat.Stage `json:"id"`
	Label    string     `json:"label"`
	Icon     string     `json:"icon,omitempty"`
	Question string     `json:"question,omitempty"`
}

// Handler stage列表的HTTP处理器
type Handler struct {
	steps []Step
}

// New 创建stage处理器
func New() *Handler {
	return &Handler{steps: Steps()}
}

// Steps lists every stage in protocol order with its display metadata.
func Steps() []Step {
	steps := make([]Step, 0, len(chat.Stages()))
	for _, s := range chat.Stages() {
		switch s {
		case chat.StageIntro:
			steps = append(steps, Step{ID: s, Label: "Intro"})
		case chat.StageCompleted:
			steps = append(steps, Step{ID: s, Label: stage.SnapshotHeading, Icon: stage.SnapshotIcon})
		default:
			m, ok := stage.MarkerFor(s)
			if !ok {
				continue
			}
			steps = append(steps, Step{ID: s, Label: m.Code(), Icon: m.Icon, Question: m.Question})
		}
	}
	return steps
}

// RegisterRoutes 注册stage相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stages", h.handleListStages)
}

// handleListStages 列出所有stage
func (h *Handler) handleListStages(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.steps)
}
