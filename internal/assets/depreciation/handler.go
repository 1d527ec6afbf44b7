package depreciation

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mrwhyte0520/contabi/internal/platform/httpx"
	"github.com/mrwhyte0520/contabi/internal/shared"
)

// Handler exposes depreciation runs and records over HTTP.
type Handler struct {
	scheduler *Scheduler
	logger    *slog.Logger
}

func NewHandler(logger *slog.Logger, scheduler *Scheduler) *Handler {
	return &Handler{logger: logger, scheduler: scheduler}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/records", h.List)
	r.Post("/runs", h.Run)
	r.Post("/records/{id}/reverse", h.Reverse)
	r.Post("/records/{id}/restore", h.Restore)
}

type runRequest struct {
	Period string `json:"period" validate:"required,datetime=2006-01"`
}

func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	period, err := ParsePeriod(req.Period)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.scheduler.Run(r.Context(), period.End())
	if err != nil {
		h.logger.Error("depreciation run", slog.String("period", req.Period), slog.Any("error", err))
		if len(result.Entries) == 0 {
			httpx.RespondError(w, err)
			return
		}
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := Filter{Status: Status(q.Get("status")), Category: q.Get("category")}
	if v := q.Get("asset_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "asset_id must be numeric")
			return
		}
		f.AssetID = id
	}
	if v := q.Get("period"); v != "" {
		p, err := ParsePeriod(v)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		f.Period = p
	}
	f.Page.Limit, _ = strconv.Atoi(q.Get("limit"))
	f.Page.Offset, _ = strconv.Atoi(q.Get("offset"))
	records, err := h.scheduler.List(r.Context(), f)
	if err != nil {
		h.logger.Error("list depreciation records", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, records)
}

func (h *Handler) Reverse(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.scheduler.Reverse)
}

func (h *Handler) Restore(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.scheduler.Restore)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id int64) (Record, error)) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, shared.ErrValidation)
		return
	}
	rec, err := fn(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}
