package homologacion

import (
	"encoding/json"
	"net/http"
	"strings"

	apphomologacion "3tcapital/goglosas/internal/application/homologacion"
	coreglosas "3tcapital/goglosas/internal/core/glosas"
	corehomologacion "3tcapital/goglosas/internal/core/homologacion"
	httperrors "3tcapital/goglosas/internal/infrastructure/http"

	"github.com/go-chi/chi/v5"
)

// Handler bridges HTTP traffic with the homologation store and engine.
type Handler struct {
	store  *apphomologacion.Store
	engine *apphomologacion.Engine
}

// NewHandler creates a new homologation HTTP handler.
func NewHandler(store *apphomologacion.Store, engine *apphomologacion.Engine) *Handler {
	return &Handler{store: store, engine: engine}
}

// GetTable handles GET /api/v1/homologacion/{eps} requests.
func (h *Handler) GetTable(w http.ResponseWriter, r *http.Request) {
	eps, ok := h.parseEPS(w, r)
	if !ok {
		return
	}

	table, err := h.store.Load(eps)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response := map[string]interface{}{
		"eps":            eps,
		"rows":           table.Rows,
		"hasFactColumn":  table.HasFactColumn,
		"missingColumns": table.MissingColumns,
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}

// CreateRow handles POST /api/v1/homologacion/{eps}/codigos requests.
func (h *Handler) CreateRow(w http.ResponseWriter, r *http.Request) {
	eps, ok := h.parseEPS(w, r)
	if !ok {
		return
	}

	var row corehomologacion.Row
	if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
		httperrors.WriteValidationError(w, "El cuerpo de la petición no es válido")
		return
	}

	if err := h.store.AddRow(eps, row); err != nil {
		h.handleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": true})
}

// UpdateRow handles PUT /api/v1/homologacion/{eps}/codigos/{codigo} requests.
func (h *Handler) UpdateRow(w http.ResponseWriter, r *http.Request) {
	eps, ok := h.parseEPS(w, r)
	if !ok {
		return
	}
	codigo := chi.URLParam(r, "codigo")
	if codigo == "" {
		httperrors.WriteValidationError(w, "codigo es requerido en la URL")
		return
	}

	var row corehomologacion.Row
	if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
		httperrors.WriteValidationError(w, "El cuerpo de la petición no es válido")
		return
	}

	if err := h.store.UpdateRow(eps, codigo, row); err != nil {
		h.handleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": true})
}

// DeleteRow handles DELETE /api/v1/homologacion/{eps}/codigos/{codigo} requests.
func (h *Handler) DeleteRow(w http.ResponseWriter, r *http.Request) {
	eps, ok := h.parseEPS(w, r)
	if !ok {
		return
	}
	codigo := chi.URLParam(r, "codigo")
	if codigo == "" {
		httperrors.WriteValidationError(w, "codigo es requerido en la URL")
		return
	}

	if err := h.store.DeleteRow(eps, codigo); err != nil {
		h.handleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": true})
}

// ResolveRequestBody is the JSON payload for batch code resolution.
type ResolveRequestBody struct {
	Codes []string `json:"codes"`
}

// Resolve handles POST /api/v1/homologacion/{eps}/resolver requests.
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	eps, ok := h.parseEPS(w, r)
	if !ok {
		return
	}

	var body ResolveRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httperrors.WriteValidationError(w, "El cuerpo de la petición no es válido")
		return
	}
	if len(body.Codes) == 0 {
		httperrors.WriteValidationError(w, "codes es requerido y no puede estar vacío")
		return
	}

	resolved, err := h.engine.ResolveMany(eps, body.Codes)
	if err != nil {
		h.handleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": resolved})
}

func (h *Handler) parseEPS(w http.ResponseWriter, r *http.Request) (coreglosas.EPS, bool) {
	eps, err := coreglosas.ParseEPS(chi.URLParam(r, "eps"))
	if err != nil {
		httperrors.WriteValidationError(w, err.Error())
		return "", false
	}
	return eps, true
}

// handleError maps store errors to appropriate HTTP status codes.
func (h *Handler) handleError(w http.ResponseWriter, err error) {
	errorMsg := err.Error()

	if strings.Contains(errorMsg, "already mapped") {
		httperrors.WriteError(w, http.StatusConflict, "Errores al crear el código", []string{errorMsg}, nil)
		return
	}
	if strings.Contains(errorMsg, "not found") {
		httperrors.WriteError(w, http.StatusNotFound, "Errores al actualizar el código", []string{errorMsg}, nil)
		return
	}
	if strings.Contains(errorMsg, "is required") {
		httperrors.WriteValidationError(w, errorMsg)
		return
	}
	httperrors.WriteError(w, http.StatusInternalServerError, "Error Interno del Servidor", []string{"Ha ocurrido un error interno"}, nil)
}
