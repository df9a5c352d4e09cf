package web

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ReturnPro5/wm-reverse-control-sub001/internal/store"
	"github.com/ReturnPro5/wm-reverse-control-sub001/internal/unit"
	"github.com/go-chi/chi/v5"
)

const dateLayout = "2006-01-02"

// handleListUnits returns canonical unit rows matching the query filters.
//
// Query parameters: stage, week_from, week_to, from, to (dates apply to the
// order-closed date, formatted YYYY-MM-DD).
func (s *Server) handleListUnits(w http.ResponseWriter, r *http.Request) {
	var f store.UnitFilter

	if v := r.URL.Query().Get("stage"); v != "" {
		stage := unit.ParseStage(v)
		if stage == unit.StageNone {
			writeError(w, r, http.StatusBadRequest, "invalid stage: "+v)
			return
		}
		f.Stage = &stage
	}
	if v := r.URL.Query().Get("week_from"); v != "" {
		week, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid week_from")
			return
		}
		f.WeekFrom = &week
	}
	if v := r.URL.Query().Get("week_to"); v != "" {
		week, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid week_to")
			return
		}
		f.WeekTo = &week
	}
	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid from date, want YYYY-MM-DD")
			return
		}
		f.From = &t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid to date, want YYYY-MM-DD")
			return
		}
		f.To = &t
	}

	units, err := s.service.Store().ListUnits(r.Context(), f)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]any{"count": len(units), "units": units})
}

// handleGetUnit returns the canonical record for one unit.
func (s *Server) handleGetUnit(w http.ResponseWriter, r *http.Request) {
	trgid := chi.URLParam(r, "trgid")
	if trgid == "" {
		writeError(w, r, http.StatusBadRequest, "missing trgid")
		return
	}

	rec, err := s.service.Store().GetUnit(r.Context(), trgid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "unit not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, rec)
}

// handleUnitEvents returns the lifecycle event history for one unit.
func (s *Server) handleUnitEvents(w http.ResponseWriter, r *http.Request) {
	trgid := chi.URLParam(r, "trgid")
	if trgid == "" {
		writeError(w, r, http.StatusBadRequest, "missing trgid")
		return
	}

	events, err := s.service.Store().ListEvents(r.Context(), store.EventFilter{TRGID: trgid})
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]any{"trgid": trgid, "events": events})
}
