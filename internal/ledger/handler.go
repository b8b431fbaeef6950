package ledger

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tallyledger/tallyledger/internal/platform/httpx"
	"github.com/tallyledger/tallyledger/internal/shared"
)

// Handler exposes financial-year lifecycle endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers financial-year routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/financial-years/{id}/close", h.closeYear)
}

func (h *Handler) closeYear(w http.ResponseWriter, r *http.Request) {
	yearID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || yearID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "id must be a positive integer")
		return
	}

	result, err := h.service.CloseFinancialYear(r.Context(), CloseInput{
		YearID:  yearID,
		ActorID: actorID(r),
	})
	switch {
	case err == nil:
	case errors.Is(err, ErrYearNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "financial year not found")
		return
	case errors.Is(err, ErrYearAlreadyClosed):
		httpx.Problem(w, http.StatusConflict, "Year Already Closed", "")
		return
	case errors.Is(err, ErrNoEquityAccount):
		httpx.Problem(w, http.StatusUnprocessableEntity, "No Equity Account", "create an equity account before closing the year")
		return
	case errors.Is(err, shared.ErrLockHeld):
		httpx.Problem(w, http.StatusConflict, "Close In Progress", "another close for this year is running")
		return
	default:
		h.logger.Error("year close failed", "year_id", yearID, "error", err)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"year_id":    yearID,
		"net_profit": result.NetProfit,
		"entry_id":   result.Entry.ID,
	})
}

func actorID(r *http.Request) int64 {
	if raw := r.Header.Get("X-Actor-ID"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
			return id
		}
	}
	return 1
}
