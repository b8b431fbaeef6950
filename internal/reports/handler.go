package reports

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tallyledger/tallyledger/internal/platform/httpx"
)

// Handler serves the reporting API.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/reports/trial-balance", h.trialBalance)
	r.Get("/reports/profit-loss", h.profitAndLoss)
	r.Get("/reports/balance-sheet", h.balanceSheet)
	r.Get("/reports/stock-summary", h.stockSummary)
	r.Get("/reports/day-book", h.dayBook)
}

func (h *Handler) dayBook(w http.ResponseWriter, r *http.Request) {
	from, to, ok := dateWindow(w, r)
	if !ok {
		return
	}
	book, err := h.service.DayBook(r.Context(), from, to)
	if err != nil {
		h.logger.Error("day book failed", "error", err)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, book)
}

func (h *Handler) trialBalance(w http.ResponseWriter, r *http.Request) {
	from, to, ok := dateWindow(w, r)
	if !ok {
		return
	}
	tb, err := h.service.TrialBalance(r.Context(), from, to)
	if err != nil {
		h.logger.Error("trial balance failed", "error", err)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, tb)
}

func (h *Handler) profitAndLoss(w http.ResponseWriter, r *http.Request) {
	from, to, ok := dateWindow(w, r)
	if !ok {
		return
	}
	pl, err := h.service.ProfitAndLoss(r.Context(), from, to)
	if err != nil {
		h.logger.Error("profit and loss failed", "error", err)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, pl)
}

func (h *Handler) balanceSheet(w http.ResponseWriter, r *http.Request) {
	asOf, ok := asOfDate(w, r)
	if !ok {
		return
	}
	bs, err := h.service.BalanceSheet(r.Context(), asOf)
	if err != nil {
		h.logger.Error("balance sheet failed", "error", err)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, bs)
}

func (h *Handler) stockSummary(w http.ResponseWriter, r *http.Request) {
	asOf, ok := asOfDate(w, r)
	if !ok {
		return
	}
	summary, err := h.service.StockSummary(r.Context(), asOf)
	if err != nil {
		h.logger.Error("stock summary failed", "error", err)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func dateWindow(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	from, err := time.Parse("2006-01-02", r.URL.Query().Get("from"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "from must be YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}
	to, err := time.Parse("2006-01-02", r.URL.Query().Get("to"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "to must be YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}
	if to.Before(from) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "to precedes from")
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

func asOfDate(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	raw := r.URL.Query().Get("as_of")
	if raw == "" {
		return time.Now(), true
	}
	asOf, err := time.Parse("2006-01-02", raw)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "as_of must be YYYY-MM-DD")
		return time.Time{}, false
	}
	return asOf, true
}
