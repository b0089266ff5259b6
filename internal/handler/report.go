package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/clausedesk/internal/analysis"
	"github.com/dukerupert/clausedesk/internal/auth"
	"github.com/dukerupert/clausedesk/internal/model"
	"github.com/dukerupert/clausedesk/internal/report"
	"github.com/dukerupert/clausedesk/internal/store"
	"github.com/dukerupert/clausedesk/internal/usage"
)

// ReportArchive stores rendered reports.
type ReportArchive interface {
	Enabled() bool
	Put(ctx context.Context, userID string, reportID int64, data []byte) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
}

type ReportHandler struct {
	gate    *Gate
	reports *store.ReportStore
	archive ReportArchive
	logger  *slog.Logger
	now     func() time.Time
}

func NewReportHandler(gate *Gate, reports *store.ReportStore, archive ReportArchive, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{gate: gate, reports: reports, archive: archive, logger: logger, now: time.Now}
}

type reportRequest struct {
	Title    string        `json:"title"`
	Company  string        `json:"company"`
	Analysis analysis.Full `json:"analysis"`
}

// Create handles POST /api/reports. It renders the PDF, records it, archives
// it when storage is configured, and returns the document.
func (h *ReportHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !h.gate.Allow(w, r, usage.ActionReports) {
		return
	}

	now := h.now()
	pdf, err := report.Render(report.Input{
		Title:       strings.TrimSpace(req.Title),
		Company:     strings.TrimSpace(req.Company),
		GeneratedAt: now,
		Analysis:    req.Analysis,
	})
	if err != nil {
		h.logger.Error("render report", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to generate report")
		return
	}

	userID := auth.UserID(r.Context())
	filename := report.Filename(now)
	rec, err := h.reports.Create(userID, filename, int64(len(pdf)))
	if err != nil {
		h.logger.Error("record report", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save report")
		return
	}

	if h.archive != nil && h.archive.Enabled() {
		key, err := h.archive.Put(r.Context(), userID, rec.ID, pdf)
		if err != nil {
			h.logger.Warn("archive report", "report_id", rec.ID, "error", err)
			if err := h.reports.MarkFailed(rec.ID, err.Error()); err != nil {
				h.logger.Error("mark report failed", "report_id", rec.ID, "error", err)
			}
		} else if err := h.reports.MarkArchived(rec.ID, key); err != nil {
			h.logger.Error("mark report archived", "report_id", rec.ID, "error", err)
		}
	}

	w.Header().Set("X-Report-ID", strconv.FormatInt(rec.ID, 10))
	writePDF(w, filename, pdf)
}

// List handles GET /api/reports
func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	reports, err := h.reports.List(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("list reports", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list reports")
		return
	}
	if reports == nil {
		reports = []model.Report{}
	}
	writeJSON(w, http.StatusOK, reports)
}

// Get handles GET /api/reports/{id}, downloading an archived report.
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	rec, err := h.reports.GetByID(id, auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("get report", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load report")
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}
	if rec.ObjectKey == nil || h.archive == nil || !h.archive.Enabled() {
		writeError(w, http.StatusNotFound, "report is not archived")
		return
	}

	pdf, err := h.archive.Get(r.Context(), *rec.ObjectKey)
	if err != nil {
		h.logger.Error("fetch archived report", "report_id", rec.ID, "error", err)
		writeError(w, http.StatusBadGateway, "failed to fetch report")
		return
	}
	writePDF(w, rec.Filename, pdf)
}

func writePDF(w http.ResponseWriter, filename string, pdf []byte) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}
