package glosas

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"3tcapital/goglosas/internal/application/orchestrator"
	coreglosas "3tcapital/goglosas/internal/core/glosas"
	httperrors "3tcapital/goglosas/internal/infrastructure/http"

	"github.com/go-chi/chi/v5"
)

// Handler bridges HTTP traffic with the run orchestrator.
type Handler struct {
	service   *orchestrator.Service
	outputDir string
}

// NewHandler creates a new glosas HTTP handler. outputDir is used when the
// request does not name one.
func NewHandler(service *orchestrator.Service, outputDir string) *Handler {
	return &Handler{service: service, outputDir: outputDir}
}

// RunRequestBody is the JSON payload for starting a reconciliation run.
type RunRequestBody struct {
	EPS         string        `json:"eps"`
	Files       []RunFileBody `json:"files"`
	OutputDir   string        `json:"outputDir,omitempty"`
	ProcessDate string        `json:"processDate,omitempty"`
}

// RunFileBody is one input file reference with its optional mail timestamp.
type RunFileBody struct {
	Path       string    `json:"path"`
	ReceivedAt time.Time `json:"receivedAt,omitempty"`
}

// Run handles POST /api/v1/glosas/runs requests.
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	var body RunRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httperrors.WriteValidationError(w, "El cuerpo de la petición no es válido")
		return
	}

	eps, err := coreglosas.ParseEPS(body.EPS)
	if err != nil {
		httperrors.WriteValidationError(w, err.Error())
		return
	}
	if len(body.Files) == 0 {
		httperrors.WriteValidationError(w, "files es requerido y no puede estar vacío")
		return
	}

	req := coreglosas.RunRequest{
		EPS:       eps,
		OutputDir: body.OutputDir,
	}
	if req.OutputDir == "" {
		req.OutputDir = h.outputDir
	}
	for _, f := range body.Files {
		if f.Path == "" {
			httperrors.WriteValidationError(w, "cada archivo debe incluir path")
			return
		}
		req.Files = append(req.Files, coreglosas.InputFile{Path: f.Path, ReceivedAt: f.ReceivedAt})
	}
	if body.ProcessDate != "" {
		date, err := time.ParseInLocation("2006-01-02", body.ProcessDate, time.Local)
		if err != nil {
			httperrors.WriteValidationError(w, "processDate debe tener formato yyyy-mm-dd")
			return
		}
		req.ProcessDate = date
	}

	result, err := h.service.Run(r.Context(), req)
	if err != nil {
		h.handleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(result)
}

// History handles GET /api/v1/glosas/runs/{eps} requests.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	eps, err := coreglosas.ParseEPS(chi.URLParam(r, "eps"))
	if err != nil {
		httperrors.WriteValidationError(w, err.Error())
		return
	}

	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			httperrors.WriteValidationError(w, "limit debe ser un número entero positivo")
			return
		}
	}

	logs, err := h.service.History(r.Context(), eps, limit)
	if err != nil {
		httperrors.WriteError(w, http.StatusInternalServerError, "Error Interno del Servidor", []string{"Ha ocurrido un error interno"}, nil)
		return
	}

	response := map[string]interface{}{
		"data": logs,
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}

// handleError maps run errors to appropriate HTTP status codes.
func (h *Handler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, coreglosas.ErrNoRowsEmitted):
		httperrors.WriteError(w, http.StatusUnprocessableEntity, "La corrida no generó objeciones", []string{err.Error()}, nil)
	case errors.Is(err, coreglosas.ErrEmissionIO):
		httperrors.WriteError(w, http.StatusInternalServerError, "Error escribiendo los archivos de salida", []string{err.Error()}, nil)
	default:
		httperrors.WriteError(w, http.StatusInternalServerError, "Error Interno del Servidor", []string{err.Error()}, nil)
	}
}
