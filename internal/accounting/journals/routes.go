package journals

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{number}", h.Get)
}

func chiParam(r *http.Request, key string) string {
	return chi.URLParam(r, key)
}
