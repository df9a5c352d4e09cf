package web

import (
	"errors"
	"net/http"

	"github.com/ReturnPro5/wm-reverse-control-sub001/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// handleListFiles returns all recorded file uploads, newest first.
func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.service.Store().ListFileUploads(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, files)
}

// handleGetFile returns one file upload record.
func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "fileID"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid file ID")
		return
	}

	fu, err := s.service.Store().GetFileUpload(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "file upload not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, fu)
}

// handleDeleteFile removes a file upload together with its lifecycle events
// and derived metrics. Canonical unit rows are left in place.
func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "fileID"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid file ID")
		return
	}

	if err := s.service.Store().DeleteFileUpload(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "file upload not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"deleted"}`))
}

// handleFileMetrics returns the per-file ingestion summaries.
func (s *Server) handleFileMetrics(w http.ResponseWriter, r *http.Request) {
	fms, err := s.service.Store().ListFileMetrics(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, fms)
}
