package journals

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/mrwhyte0520/contabi/internal/platform/httpx"
	base "github.com/mrwhyte0520/contabi/internal/shared"
)

type Handler struct {
	service *Service
	reader  Getter
	logger  *slog.Logger
}

// NewHandler wires journal read endpoints. reader may be a CachedReader.
func NewHandler(logger *slog.Logger, service *Service, reader Getter) *Handler {
	if reader == nil {
		reader = service
	}
	return &Handler{logger: logger, service: service, reader: reader}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := base.Page{
		Limit:  atoiDefault(r.URL.Query().Get("limit")),
		Offset: atoiDefault(r.URL.Query().Get("offset")),
	}
	entries, err := h.service.List(r.Context(), page)
	if err != nil {
		h.logger.Error("list journals", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	number := strings.ToUpper(chiParam(r, "number"))
	entry, err := h.reader.GetByNumber(r.Context(), number)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func atoiDefault(v string) int {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}
