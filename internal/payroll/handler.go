package payroll

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mrwhyte0520/contabi/internal/platform/httpx"
	"github.com/mrwhyte0520/contabi/internal/shared"
)

// Handler exposes payroll period operations.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/periods/{id}", h.Summary)
	r.Post("/periods/{id}/calculate", h.Calculate)
	r.Post("/periods/{id}/close", h.Close)
	r.Post("/periods/{id}/pay", h.Pay)
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	id, ok := periodID(w, r)
	if !ok {
		return
	}
	summary, err := h.service.Summary(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	id, ok := periodID(w, r)
	if !ok {
		return
	}
	summary, err := h.service.CalculatePeriod(r.Context(), id)
	if err != nil {
		h.logger.Warn("payroll calculate", slog.Int64("period_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	h.advance(w, r, h.service.Close)
}

func (h *Handler) Pay(w http.ResponseWriter, r *http.Request) {
	h.advance(w, r, h.service.Pay)
}

func (h *Handler) advance(w http.ResponseWriter, r *http.Request, fn func(context.Context, int64) (Period, error)) {
	id, ok := periodID(w, r)
	if !ok {
		return
	}
	period, err := fn(r.Context(), id)
	if err != nil {
		h.logger.Warn("payroll advance", slog.Int64("period_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, period)
}

func periodID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, shared.ErrValidation)
		return 0, false
	}
	return id, true
}
