package vouchers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tallyledger/tallyledger/internal/ledger"
	"github.com/tallyledger/tallyledger/internal/platform/httpx"
)

// Handler serves the voucher posting API.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
	}
}

// MountRoutes registers voucher routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/vouchers", h.list)
	r.Post("/vouchers", h.create)
	r.Get("/vouchers/{id}", h.show)
	r.Put("/vouchers/{id}", h.amend)
	r.Get("/vouchers/{id}/journal-entries", h.history)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeInput(w, r)
	if !ok {
		return
	}
	v, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.respondError(w, r, "create voucher failed", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, NewVoucherResponse(v))
}

func (h *Handler) amend(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid voucher id")
		return
	}
	in, ok := h.decodeInput(w, r)
	if !ok {
		return
	}
	v, err := h.service.Amend(r.Context(), id, in)
	if err != nil {
		h.respondError(w, r, "amend voucher failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewVoucherResponse(v))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	entries, meta, err := h.service.List(r.Context(), page, perPage)
	if err != nil {
		h.respondError(w, r, "list vouchers failed", err)
		return
	}
	items := make([]VoucherResponse, 0, len(entries))
	for _, v := range entries {
		items = append(items, NewVoucherResponse(v))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"vouchers": items, "pagination": meta})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid voucher id")
		return
	}
	v, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, r, "get voucher failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewVoucherResponse(v))
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid voucher id")
		return
	}
	entries, err := h.service.History(r.Context(), id)
	if err != nil {
		h.respondError(w, r, "voucher history failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"journal_entries": entries})
}

func (h *Handler) decodeInput(w http.ResponseWriter, r *http.Request) (CreateInput, bool) {
	var req CreateVoucherRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return CreateInput{}, false
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return CreateInput{}, false
	}
	in, err := req.ToInput(actorID(r))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid date")
		return CreateInput{}, false
	}
	return in, true
}

// respondError maps the posting taxonomy onto HTTP statuses. Anything
// outside it is an integrity failure and logs at error level.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	switch {
	case errors.Is(err, ErrVoucherNotFound), errors.Is(err, ErrVoucherTypeNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicateVoucherNumber):
		httpx.Problem(w, http.StatusConflict, "Duplicate Voucher Number", err.Error())
	case errors.Is(err, ledger.ErrYearClosed), errors.Is(err, ledger.ErrYearLocked), errors.Is(err, ledger.ErrBeforeBooksBegin):
		httpx.Problem(w, http.StatusConflict, "Period Closed Or Locked", err.Error())
	case errors.Is(err, ledger.ErrNoFinancialYear):
		httpx.Problem(w, http.StatusUnprocessableEntity, "No Financial Year", err.Error())
	case errors.Is(err, ErrValidationBlocked):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Blocked", err.Error())
	case IsExpected(err):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error(msg, "error", err, "path", r.URL.Path)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

// actorID resolves the acting user. Authentication sits outside this
// layer; a reverse proxy injects the header.
func actorID(r *http.Request) int64 {
	if v := r.Header.Get("X-Actor-ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			return id
		}
	}
	return 1
}
