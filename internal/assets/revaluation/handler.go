package revaluation

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mrwhyte0520/contabi/internal/platform/httpx"
	"github.com/mrwhyte0520/contabi/internal/shared"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Post("/{id}/submit", h.Submit)
	r.Post("/{id}/approve", h.Approve)
	r.Post("/{id}/reject", h.Reject)
}

type decisionRequest struct {
	Note string `json:"note" validate:"max=500"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := Filter{Status: Status(q.Get("status"))}
	f.AssetID, _ = strconv.ParseInt(q.Get("asset_id"), 10, 64)
	f.Page.Limit, _ = strconv.Atoi(q.Get("limit"))
	f.Page.Offset, _ = strconv.Atoi(q.Get("offset"))
	records, err := h.service.List(r.Context(), f)
	if err != nil {
		h.logger.Error("list revaluations", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, records)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	rec, err := h.service.Create(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, rec)
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	id, note, ok := h.decision(w, r)
	if !ok {
		return
	}
	rec, err := h.service.Submit(r.Context(), id, note)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	id, note, ok := h.decision(w, r)
	if !ok {
		return
	}
	rec, err := h.service.Reject(r.Context(), id, note)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	id, note, ok := h.decision(w, r)
	if !ok {
		return
	}
	res, err := h.service.Approve(r.Context(), id, note)
	if err != nil {
		h.logger.Warn("approve revaluation", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) decision(w http.ResponseWriter, r *http.Request) (int64, string, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, shared.ErrValidation)
		return 0, "", false
	}
	var req decisionRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.RespondError(w, err)
			return 0, "", false
		}
	}
	return id, req.Note, true
}
