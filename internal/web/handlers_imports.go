package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/admiralorbiter/VMS-sub002/internal/importer"
	"github.com/admiralorbiter/VMS-sub002/internal/logging"
	"github.com/admiralorbiter/VMS-sub002/internal/rowsource"
)

// batchResponse decorates a batch with its derived values.
type batchResponse struct {
	*importer.ImportBatch
	DurationSeconds *float64 `json:"durationSeconds"`
	SuccessRate     float64  `json:"successRate"`
}

func toBatchResponse(b *importer.ImportBatch) batchResponse {
	return batchResponse{
		ImportBatch:     b,
		DurationSeconds: b.DurationSeconds(),
		SuccessRate:     b.SuccessRate(),
	}
}

// importResult is the response body for a completed import run.
type importResult struct {
	Batch     batchResponse               `json:"batch"`
	Unmatched []*importer.UnmatchedRecord `json:"unmatched"`
}

// handleRunImport accepts a multipart upload and runs it through the
// import pipeline synchronously. Only one import runs at a time; a
// second request while one is in flight gets 409.
func (s *Server) handleRunImport(w http.ResponseWriter, r *http.Request) {
	if !s.importMu.TryLock() {
		writeError(w, r, http.StatusConflict, "an import is already running")
		return
	}
	defer s.importMu.Unlock()

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxFileSize)
	if err := r.ParseMultipartForm(s.cfg.Import.MaxFileSize); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	kind := importer.ImportKind(r.FormValue("kind"))
	if !kind.Valid() {
		writeError(w, r, http.StatusBadRequest, "kind must be session_report or user_report")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	src, err := rowsource.FromFile(header.Filename, file)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Import.Timeout)
	defer cancel()

	log := logging.FromContext(r.Context())
	log.Info("import started", "filename", header.Filename, "kind", string(kind))

	batch, recs, err := s.orchestrator.Run(ctx, kind, header.Filename, r.FormValue("initiator"), src)
	if err != nil {
		var missing *importer.MissingColumnsError
		switch {
		case errors.As(err, &missing):
			// The batch is persisted for audit; tell the client what to fix.
			writeJSON(w, http.StatusUnprocessableEntity, importResult{
				Batch:     toBatchResponse(batch),
				Unmatched: recs,
			})
		case importer.IsPersistence(err):
			writeError(w, r, http.StatusInternalServerError, err.Error())
		default:
			writeError(w, r, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, importResult{
		Batch:     toBatchResponse(batch),
		Unmatched: recs,
	})
}

// handleListImports returns batches most recent first.
func (s *Server) handleListImports(w http.ResponseWriter, r *http.Request) {
	batches, err := s.store.Batches.List(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]batchResponse, 0, len(batches))
	for _, b := range batches {
		out = append(out, toBatchResponse(b))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetImport(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid batch id")
		return
	}
	batch, err := s.store.Batches.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	if batch == nil {
		writeError(w, r, http.StatusNotFound, "batch not found")
		return
	}
	writeJSON(w, http.StatusOK, toBatchResponse(batch))
}

// handleImportUnmatched lists the unmatched records queued by one batch.
func (s *Server) handleImportUnmatched(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid batch id")
		return
	}
	recs, err := s.store.Unmatched.List(r.Context(), importer.UnmatchedFilter{BatchID: &id})
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	if recs == nil {
		recs = []*importer.UnmatchedRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}
