package glosas

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"3tcapital/goglosas/internal/application/orchestrator"
	"3tcapital/goglosas/internal/application/pipeline"
	coreglosas "3tcapital/goglosas/internal/core/glosas"
	"3tcapital/goglosas/internal/testutil"

	"github.com/go-chi/chi/v5"
)

type runnerStub struct {
	outcome *pipeline.Outcome
	gotReq  coreglosas.RunRequest
}

func (r *runnerStub) Run(_ context.Context, req coreglosas.RunRequest) (*pipeline.Outcome, error) {
	r.gotReq = req
	return r.outcome, nil
}

func newRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Post("/api/v1/glosas/runs", h.Run)
	r.Get("/api/v1/glosas/runs/{eps}", h.History)
	return r
}

func newHandler(runner pipeline.Runner) *Handler {
	runners := map[coreglosas.EPS]pipeline.Runner{coreglosas.EPSMutualser: runner}
	svc := orchestrator.New(runners, nil, testutil.NewNullLogger())
	return NewHandler(svc, "salidas")
}

func TestRun_Success(t *testing.T) {
	runner := &runnerStub{outcome: &pipeline.Outcome{
		ObjectionRows:  5,
		DetailRows:     7,
		FilesProcessed: 2,
		ObjectionsPath: "salidas/objeciones.xlsx",
	}}
	router := newRouter(newHandler(runner))

	body := `{"eps":"mutualser","files":[{"path":"a.xlsx"},{"path":"b.xlsx"}],"processDate":"2025-03-01"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/glosas/runs", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}

	var result coreglosas.RunResult
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if result.ObjectionRows != 5 || result.RunID == "" {
		t.Errorf("result = %+v", result)
	}

	if len(runner.gotReq.Files) != 2 {
		t.Errorf("files forwarded = %d, want 2", len(runner.gotReq.Files))
	}
	if runner.gotReq.OutputDir != "salidas" {
		t.Errorf("OutputDir = %q, want default salidas", runner.gotReq.OutputDir)
	}
	if runner.gotReq.ProcessDate.Format("2006-01-02") != "2025-03-01" {
		t.Errorf("ProcessDate = %v", runner.gotReq.ProcessDate)
	}
}

func TestRun_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"unknown eps", `{"eps":"sura","files":[{"path":"a.xlsx"}]}`},
		{"no files", `{"eps":"mutualser","files":[]}`},
		{"file without path", `{"eps":"mutualser","files":[{}]}`},
		{"bad process date", `{"eps":"mutualser","files":[{"path":"a.xlsx"}],"processDate":"01/03/2025"}`},
	}

	router := newRouter(newHandler(&runnerStub{outcome: &pipeline.Outcome{ObjectionRows: 1}}))
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/glosas/runs", strings.NewReader(tc.body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestRun_NoRowsEmitted(t *testing.T) {
	router := newRouter(newHandler(&runnerStub{outcome: &pipeline.Outcome{}}))

	body := `{"eps":"mutualser","files":[{"path":"a.xlsx"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/glosas/runs", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", w.Code)
	}
}

func TestHistory_WithoutRepository(t *testing.T) {
	router := newRouter(newHandler(&runnerStub{}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/glosas/runs/mutualser", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestHistory_BadLimit(t *testing.T) {
	router := newRouter(newHandler(&runnerStub{}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/glosas/runs/mutualser?limit=cero", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}
