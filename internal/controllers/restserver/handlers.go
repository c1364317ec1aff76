package restserver

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/BerringDC/BDC-qc/internal/ingest"
	"github.com/BerringDC/BDC-qc/internal/qc"
	"github.com/BerringDC/BDC-qc/internal/storage"
	"github.com/BerringDC/BDC-qc/pkg/responseformat"
)

// maxBodyBytes bounds a submitted profile document.
const maxBodyBytes = 32 << 20

// Handlers contains all HTTP handlers for the REST server
type Handlers struct {
	controller *Controller
	formatter  *responseformat.Formatter
}

// NewHandlers creates a new handlers instance
func NewHandlers(ctrl *Controller) *Handlers {
	return &Handlers{
		controller: ctrl,
		formatter:  responseformat.NewFormatter(),
	}
}

func (h *Handlers) respond(w http.ResponseWriter, req *http.Request, status int, data any) {
	if err := h.formatter.WriteResponse(w, req, status, data); err != nil {
		h.controller.logger.Errorw("failed to write response", "path", req.URL.Path, "error", err)
	}
}

func (h *Handlers) fail(w http.ResponseWriter, req *http.Request, status int, msg string) {
	if err := h.formatter.WriteError(w, req, status, msg); err != nil {
		h.controller.logger.Errorw("failed to write error response", "path", req.URL.Path, "error", err)
	}
}

// statusFor maps input and engine errors to response codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ingest.ErrMalformedDocument), errors.Is(err, qc.ErrMissingRequiredField):
		return http.StatusBadRequest
	case errors.Is(err, qc.ErrUnknownConfiguration):
		return http.StatusUnprocessableEntity
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// PostQC runs a submitted profile through the engine. With store=true the
// annotated profile is also saved and its id returned.
func (h *Handlers) PostQC(w http.ResponseWriter, req *http.Request) {
	store := false
	if v := req.URL.Query().Get("store"); v != "" {
		var err error
		if store, err = strconv.ParseBool(v); err != nil {
			h.fail(w, req, http.StatusBadRequest, "invalid store parameter")
			return
		}
	}
	if store && h.controller.store == nil {
		h.fail(w, req, http.StatusServiceUnavailable, "storage not configured")
		return
	}

	p, err := ingest.DecodeProfile(io.LimitReader(req.Body, maxBodyBytes))
	if err != nil {
		h.fail(w, req, statusFor(err), err.Error())
		return
	}

	out, err := h.controller.engine.Process(p)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			h.controller.logger.Errorw("QC failed", "vessel", p.Vessel, "error", err)
		}
		h.fail(w, req, status, err.Error())
		return
	}

	doc := ingest.EncodeProfile(out)
	if store {
		id, err := h.controller.store.Save(req.Context(), out)
		if err != nil {
			h.controller.logger.Errorw("failed to store profile", "vessel", out.Vessel, "error", err)
			h.fail(w, req, http.StatusInternalServerError, "failed to store profile")
			return
		}
		doc.ID = id.String()
	}
	h.respond(w, req, http.StatusOK, doc)
}

// GetProfile returns one stored annotated profile.
func (h *Handlers) GetProfile(w http.ResponseWriter, req *http.Request) {
	if h.controller.store == nil {
		h.fail(w, req, http.StatusServiceUnavailable, "storage not configured")
		return
	}

	id, err := uuid.Parse(mux.Vars(req)["id"])
	if err != nil {
		h.fail(w, req, http.StatusBadRequest, "invalid profile id")
		return
	}

	p, err := h.controller.store.Get(req.Context(), id)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			h.controller.logger.Errorw("failed to load profile", "id", id, "error", err)
			h.fail(w, req, status, "failed to load profile")
			return
		}
		h.fail(w, req, status, err.Error())
		return
	}

	doc := ingest.EncodeProfile(p)
	doc.ID = id.String()
	h.respond(w, req, http.StatusOK, doc)
}

// ListProfiles returns summaries of recent profiles, optionally for one
// vessel.
func (h *Handlers) ListProfiles(w http.ResponseWriter, req *http.Request) {
	if h.controller.store == nil {
		h.fail(w, req, http.StatusServiceUnavailable, "storage not configured")
		return
	}

	limit := storage.DefaultListLimit
	if v := req.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			h.fail(w, req, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	summaries, err := h.controller.store.ListRecent(req.Context(), req.URL.Query().Get("vessel"), limit)
	if err != nil {
		h.controller.logger.Errorw("failed to list profiles", "error", err)
		h.fail(w, req, http.StatusInternalServerError, "failed to list profiles")
		return
	}
	h.respond(w, req, http.StatusOK, ProfileList{Profiles: summaries})
}

// GetChecks lists the battery in evaluation order.
func (h *Handlers) GetChecks(w http.ResponseWriter, req *http.Request) {
	var list CheckList
	for _, c := range qc.Checks() {
		list.Checks = append(list.Checks, CheckDescription{Name: c.Name, Contributes: c.Contributes})
	}
	h.respond(w, req, http.StatusOK, list)
}

func (h *Handlers) GetHealth(w http.ResponseWriter, req *http.Request) {
	h.respond(w, req, http.StatusOK, HealthResponse{Status: "ok", Storage: h.controller.store != nil})
}
