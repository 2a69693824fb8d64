package snapshot

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	snapshotService "github.com/claritycoach/backend/internal/service/snapshot"
)

func setupRouter() *chi.Mux {
	handler := New(snapshotService.NewStore(10), zap.NewNop())
	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestSaveParsedMessageAndFetch(t *testing.T) {
	r := setupRouter()

	body, _ := json.Marshal(SaveRequest{Message: "Here's your Clarity Snapshot from today's session:\n- Mantra: Breathe first.\n- Journal: What did I notice?\n\nWould you like a copy sent to your email so you can revisit it later?"})
	resp := do(r, http.MethodPost, "/snapshots/", string(body))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var saved snapshotService.Saved
	if err := json.Unmarshal(resp.Body.Bytes(), &saved); err != nil {
		t.Fatalf("decode saved: %v", err)
	}
	if saved.ID == "" {
		t.Fatal("expected snapshot id")
	}
	if saved.Snapshot.Mantra != "Breathe first." {
		t.Fatalf("unexpected mantra %q", saved.Snapshot.Mantra)
	}

	resp = do(r, http.MethodGet, "/snapshots/"+saved.ID, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
}

func TestSaveStructuredSnapshot(t *testing.T) {
	r := setupRouter()

	resp := do(r, http.MethodPost, "/snapshots/", `{"snapshot":{"action":"Call my sister"}}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", resp.Code)
	}
}

func TestSaveRejectsBadInput(t *testing.T) {
	r := setupRouter()

	cases := map[string]struct {
		body string
		want int
	}{
		"missing":    {body: `{}`, want: http.StatusBadRequest},
		"empty":      {body: `{"snapshot":{}}`, want: http.StatusBadRequest},
		"no heading": {body: `{"message":"just chatting"}`, want: http.StatusUnprocessableEntity},
		"bad json":   {body: `{"message":`, want: http.StatusBadRequest},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			resp := do(r, http.MethodPost, "/snapshots/", tc.body)
			if resp.Code != tc.want {
				t.Fatalf("expected status %d, got %d", tc.want, resp.Code)
			}
		})
	}
}

func TestGetUnknownSnapshot(t *testing.T) {
	resp := do(setupRouter(), http.MethodGet, "/snapshots/missing", "")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", resp.Code)
	}
}
