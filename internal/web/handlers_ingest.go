package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ReturnPro5/wm-reverse-control-sub001/internal/unit"
	"github.com/go-chi/chi/v5"
)

// handleIngestFile accepts a CSV file upload and starts an asynchronous
// ingestion. The file is consumed as a stream, so memory stays constant
// regardless of file size. Responds with the ingestion ID.
func (s *Server) handleIngestFile(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Ingest.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, r, http.StatusBadRequest, "file too large or invalid form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	// An explicit type overrides file-name classification.
	declared := unit.FileType(r.FormValue("type"))

	id, err := s.service.Start(header.Filename, declared, file, header.Size)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, map[string]string{"ingestion_id": id})
}

// handleIngestProgress streams ingestion progress via Server-Sent Events.
// Supports resumption via lastEventId query parameter: the event ID is the
// progress percentage, so reconnecting clients skip already-seen events.
func (s *Server) handleIngestProgress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "ingestionID")
	if id == "" {
		writeError(w, r, http.StatusBadRequest, "missing ingestion ID")
		return
	}

	lastEventIDStr := r.URL.Query().Get("lastEventId")
	var lastEventID int
	if lastEventIDStr != "" {
		lastEventID, _ = strconv.Atoi(lastEventIDStr)
	}

	progressCh, err := s.service.Subscribe(id)
	if err != nil {
		writeError(w, r, http.StatusNotFound, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, "streaming not supported")
		return
	}

	for {
		select {
		case progress, ok := <-progressCh:
			if !ok {
				// Channel closed - ingestion finished or was cancelled
				fmt.Fprintf(w, "event: complete\ndata: {}\n\n")
				flusher.Flush()
				return
			}

			// Skip events already delivered before a reconnect
			if lastEventIDStr != "" && progress.Percent <= lastEventID {
				continue
			}

			data, _ := json.Marshal(progress)
			fmt.Fprintf(w, "id: %d\nevent: progress\ndata: %s\n\n", progress.Percent, data)
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

// handleCancelIngest cancels an in-progress ingestion. Batches already
// committed stay committed.
func (s *Server) handleCancelIngest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "ingestionID")
	if id == "" {
		writeError(w, r, http.StatusBadRequest, "missing ingestion ID")
		return
	}

	if err := s.service.Cancel(id); err != nil {
		writeError(w, r, http.StatusNotFound, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"cancelled"}`))
}

// handleIngestResult returns the final result of an ingestion, or 202 while
// it is still running.
func (s *Server) handleIngestResult(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "ingestionID")
	if id == "" {
		writeError(w, r, http.StatusBadRequest, "missing ingestion ID")
		return
	}

	result, err := s.service.Result(id)
	if err != nil {
		writeError(w, r, http.StatusNotFound, err.Error())
		return
	}
	if result == nil {
		w.WriteHeader(http.StatusAccepted)
		writeJSON(w, map[string]string{"status": "running"})
		return
	}

	writeJSON(w, result)
}
