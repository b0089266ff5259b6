package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/clausedesk/internal/analysis"
	"github.com/dukerupert/clausedesk/internal/usage"
)

type AnalysisHandler struct {
	gate     *Gate
	analyzer *analysis.Analyzer
	logger   *slog.Logger
}

func NewAnalysisHandler(gate *Gate, analyzer *analysis.Analyzer, logger *slog.Logger) *AnalysisHandler {
	return &AnalysisHandler{gate: gate, analyzer: analyzer, logger: logger}
}

type analyzeRequest struct {
	Text     string `json:"text"`
	Query    string `json:"query"`
	Question string `json:"question"`
}

// Analyze handles POST /api/analysis
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := analysis.ValidateText(req.Text); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !h.gate.Allow(w, r, usage.ActionAnalysis) {
		return
	}

	writeJSON(w, http.StatusOK, h.analyzer.Full(r.Context(), req.Text))
}

// Clause handles POST /api/analysis/clause
func (h *AnalysisHandler) Clause(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := analysis.ValidateText(req.Text); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	if !h.gate.Allow(w, r, usage.ActionQueries) {
		return
	}

	answer, res := h.analyzer.ClauseQuery(r.Context(), req.Text, req.Query)
	writeJSON(w, http.StatusOK, map[string]any{"answer": answer, "result": res})
}

// Ask handles POST /api/analysis/ask
func (h *AnalysisHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := analysis.ValidateText(req.Text); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}
	if !h.gate.Allow(w, r, usage.ActionQueries) {
		return
	}

	answer, res := h.analyzer.Ask(r.Context(), req.Text, req.Question)
	writeJSON(w, http.StatusOK, map[string]any{"answer": answer, "result": res})
}

type generateRequest struct {
	ContractType string `json:"contract_type"`
	Details      string `json:"details"`
}

// Generate handles POST /api/contracts/generate
func (h *AnalysisHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ContractType) == "" {
		writeError(w, http.StatusBadRequest, "contract_type is required")
		return
	}
	if !h.gate.Allow(w, r, usage.ActionGeneration) {
		return
	}

	contract, res := h.analyzer.GenerateContract(r.Context(), req.ContractType, req.Details)
	writeJSON(w, http.StatusOK, map[string]any{"contract": contract, "result": res})
}
