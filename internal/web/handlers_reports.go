package web

import (
	"net/http"

	"github.com/ReturnPro5/wm-reverse-control-sub001/internal/report"
)

// handleFunnel returns cumulative unit counts per lifecycle stage.
func (s *Server) handleFunnel(w http.ResponseWriter, r *http.Request) {
	funnel, err := s.reports.Funnel(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, funnel)
}

// handleWeeklyTrend returns sales totals bucketed by fiscal week.
func (s *Server) handleWeeklyTrend(w http.ResponseWriter, r *http.Request) {
	trend, err := s.reports.WeeklyTrend(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, trend)
}

// handleQuarterlyTrend returns sales totals bucketed by fiscal quarter.
func (s *Server) handleQuarterlyTrend(w http.ResponseWriter, r *http.Request) {
	trend, err := s.reports.QuarterlyTrend(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, trend)
}

// handleVariance accepts an expected-fee reference file and returns the
// per-unit, per-fee variance between expected and computed amounts.
func (s *Server) handleVariance(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Ingest.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, r, http.StatusBadRequest, "file too large or invalid form")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	ref, err := report.LoadExpectedFees(file)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid reference file: "+err.Error())
		return
	}

	variances, err := s.reports.Variance(r.Context(), ref)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]any{"count": len(variances), "variances": variances})
}
