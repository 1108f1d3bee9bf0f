package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/admiralorbiter/VMS-sub002/internal/importer"
)

// handleListUnmatched lists review-queue records, optionally filtered by
// status and kind query parameters.
func (s *Server) handleListUnmatched(w http.ResponseWriter, r *http.Request) {
	filter := importer.UnmatchedFilter{}

	if v := r.URL.Query().Get("status"); v != "" {
		status := importer.ResolutionStatus(v)
		if !status.Valid() {
			writeError(w, r, http.StatusBadRequest, "invalid status filter")
			return
		}
		filter.Status = status
	}
	if v := r.URL.Query().Get("kind"); v != "" {
		kind := importer.UnmatchedKind(v)
		if !kind.Valid() {
			writeError(w, r, http.StatusBadRequest, "invalid kind filter")
			return
		}
		filter.Kind = kind
	}
	if v := r.URL.Query().Get("batch"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid batch filter")
			return
		}
		filter.BatchID = &id
	}

	recs, err := s.review.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	if recs == nil {
		recs = []*importer.UnmatchedRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleGetUnmatched(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid record id")
		return
	}
	rec, err := s.review.Get(r.Context(), id)
	if errors.Is(err, importer.ErrUnknownRecord) {
		writeError(w, r, http.StatusNotFound, "record not found")
		return
	}
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// resolveRequest is the body for explicit record resolution.
type resolveRequest struct {
	Status   string     `json:"status"`
	Notes    string     `json:"notes"`
	Resolver string     `json:"resolver"`
	LinkedID *uuid.UUID `json:"linkedId"`
}

// handleResolveUnmatched moves a pending record to resolved or ignored.
func (s *Server) handleResolveUnmatched(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid record id")
		return
	}

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	status := importer.ResolutionStatus(req.Status)
	if status != importer.ResolutionResolved && status != importer.ResolutionIgnored {
		writeError(w, r, http.StatusBadRequest, "status must be resolved or ignored")
		return
	}
	if status == importer.ResolutionResolved && req.LinkedID == nil {
		writeError(w, r, http.StatusBadRequest, "resolved status requires linkedId")
		return
	}

	rec, err := s.review.Resolve(r.Context(), id, status, req.Notes, req.Resolver, req.LinkedID)
	if err != nil {
		s.writeReviewError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// createRequest is the body for creating a participant from a record.
type createRequest struct {
	Notes    string `json:"notes"`
	Resolver string `json:"resolver"`
}

// handleCreateFromUnmatched creates a participant from a pending record's
// retained fields and marks the record created.
func (s *Server) handleCreateFromUnmatched(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid record id")
		return
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := s.review.CreateFromRecord(r.Context(), id, req.Notes, req.Resolver)
	if err != nil {
		s.writeReviewError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) writeReviewError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, importer.ErrUnknownRecord):
		writeError(w, r, http.StatusNotFound, "record not found")
	case errors.Is(err, importer.ErrAlreadyResolved):
		writeError(w, r, http.StatusConflict, "record already resolved")
	case importer.IsPersistence(err):
		writeError(w, r, http.StatusInternalServerError, err.Error())
	default:
		writeError(w, r, http.StatusBadRequest, err.Error())
	}
}
