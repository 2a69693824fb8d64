package stage

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/claritycoach/backend/internal/model/chat"
)

func TestListStagesInProtocolOrder(t *testing.T) {
	r := chi.NewRouter()
	New().RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodGet, "/stages", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}

	var steps []Step
	if err := json.Unmarshal(resp.Body.Bytes(), &steps); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	want := chat.Stages()
	if len(steps) != len(want) {
		t.Fatalf("expected %d steps, got %d", len(want), len(steps))
	}
	for i, step := range steps {
		if step.ID != want[i] {
			t.Fatalf("step %d: expected %s, got %s", i, want[i], step.ID)
		}
	}

	if steps[1].Label != "S – Situation" || steps[1].Icon != "🔍" {
		t.Fatalf("unexpected situation step: %+v", steps[1])
	}
	if steps[len(steps)-1].Label != "Clarity Snapshot" {
		t.Fatalf("unexpected completed label %q", steps[len(steps)-1].Label)
	}
}
