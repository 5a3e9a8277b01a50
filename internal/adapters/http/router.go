package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/lebbe/premises/internal/application"
	"github.com/lebbe/premises/internal/domain"
)

type Handler struct {
	service *application.ConceptService
}

func NewRouter(service *application.ConceptService) http.Handler {
	h := &Handler{service: service}
	r := chi.NewRouter()

	r.Route("/api", func(api chi.Router) {
		api.Get("/universes", h.handleListUniverses)
		api.Put("/universes/selection", h.handleSelectUniverses)

		api.Get("/concepts", h.handleListConcepts)
		api.Get("/concepts/{id}", h.handleGetConcept)
		api.Post("/concepts", h.handleSaveConcept)
		api.Delete("/concepts", h.handleClearConcepts)

		api.Get("/graph", h.handleGraph)
		api.Post("/graph/layout", h.handleLayout)
		api.Get("/view-state", h.handleViewState)

		api.Get("/analysis/cycles", h.handleCycles)
		api.Get("/analysis/floating", h.handleFloating)

		api.Post("/import/analyze", h.handleImportAnalyze)
		api.Post("/import", h.handleImport)
		api.Get("/export", h.handleExport)
	})

	return r
}

func (h *Handler) handleListUniverses(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.Universes(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type selectUniversesRequest struct {
	Universes []string `json:"universes"`
}

func (h *Handler) handleSelectUniverses(w http.ResponseWriter, r *http.Request) {
	var req selectUniversesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	if err := h.service.SelectUniverses(r.Context(), req.Universes); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"universes": req.Universes})
}

func (h *Handler) handleListConcepts(w http.ResponseWriter, r *http.Request) {
	universes := splitCSV(r.URL.Query().Get("universes"))
	list, err := h.service.ListConcepts(r.Context(), r.URL.Query().Get("q"), universes)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) handleGetConcept(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, err := h.service.GetConcept(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "concept not found"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type saveConceptRequest struct {
	PreviousID string         `json:"previousId"`
	Concept    domain.Concept `json:"concept"`
}

func (h *Handler) handleSaveConcept(w http.ResponseWriter, r *http.Request) {
	var req saveConceptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	c, err := h.service.SaveConcept(r.Context(), req.PreviousID, req.Concept)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) handleClearConcepts(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ClearConcepts(r.Context()); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cleared": true})
}

// handleGraph derives the study graph straight from the view-state query
// string, so a shared URL reproduces the same graph.
func (h *Handler) handleGraph(w http.ResponseWriter, r *http.Request) {
	state := application.DecodeViewState(r.URL.Query(), nil)
	hierarchy := r.URL.Query().Get("layout") == "hierarchy"
	autoLayout := true
	if v, err := strconv.ParseBool(r.URL.Query().Get("auto")); err == nil {
		autoLayout = v
	}

	graph, err := h.service.BuildGraph(r.Context(), state, hierarchy, autoLayout)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, graph)
}

type layoutRequest struct {
	Nodes     []domain.GraphNode   `json:"nodes"`
	Edges     []domain.GraphEdge   `json:"edges"`
	Options   domain.LayoutOptions `json:"options"`
	Hierarchy bool                 `json:"hierarchy"`
	CentralID string               `json:"centralId"`
}

func (h *Handler) handleLayout(w http.ResponseWriter, r *http.Request) {
	var req layoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	graph := h.service.LayoutGraph(domain.Graph{Nodes: req.Nodes, Edges: req.Edges}, req.Options, req.Hierarchy, req.CentralID)
	writeJSON(w, http.StatusOK, graph)
}

// handleViewState round-trips a query string through the codec, returning
// the fully defaulted state and its canonical encoding.
func (h *Handler) handleViewState(w http.ResponseWriter, r *http.Request) {
	state := application.DecodeViewState(r.URL.Query(), nil)
	writeJSON(w, http.StatusOK, map[string]any{
		"state":   state,
		"encoded": application.EncodeViewState(state).Encode(),
	})
}

func (h *Handler) handleCycles(w http.ResponseWriter, r *http.Request) {
	focal := splitCSV(r.URL.Query().Get("concepts"))
	universes := splitCSV(r.URL.Query().Get("universes"))
	cycles, err := h.service.Cycles(r.Context(), focal, universes)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cycles": cycles})
}

func (h *Handler) handleFloating(w http.ResponseWriter, r *http.Request) {
	focal := splitCSV(r.URL.Query().Get("concepts"))
	universes := splitCSV(r.URL.Query().Get("universes"))
	records, prompt, err := h.service.FloatingAbstractions(r.Context(), focal, universes)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"floatingAbstractions": records, "prompt": prompt})
}

func (h *Handler) handleImportAnalyze(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	writeJSON(w, http.StatusOK, h.service.AnalyzeImport(r.Context(), data))
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	analysis := h.service.RunImport(r.Context(), data)
	if analysis.Error != "" {
		writeJSON(w, http.StatusBadRequest, analysis)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	universes := splitCSV(r.URL.Query().Get("universes"))
	doc, err := h.service.Export(r.Context(), universes)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func splitCSV(input string) []string {
	if strings.TrimSpace(input) == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
