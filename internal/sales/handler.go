package sales

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/barberdesk/barberdesk/internal/platform/httpx"
)

// Handler exposes the sale write surface.
type Handler struct {
	service  *Service
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler constructs the handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
		logger:   logger,
	}
}

// MountRoutes attaches sale routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.recordSale)
	r.Post("/{saleID}/cancel", h.cancelSale)
	r.Post("/{saleID}/refund", h.refundSale)
}

func (h *Handler) recordSale(w http.ResponseWriter, r *http.Request) {
	var input RecordSaleInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	sale, err := h.service.RecordSale(r.Context(), input)
	if err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			httpx.Problem(w, http.StatusConflict, "Duplicate", "sale already recorded")
			return
		}
		h.logger.Error("record sale", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusCreated, sale)
}

func (h *Handler) cancelSale(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.CancelSale)
}

func (h *Handler) refundSale(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.RefundSale)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id uuid.UUID) error) {
	id, err := uuid.Parse(chi.URLParam(r, "saleID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Sale ID", err.Error())
		return
	}
	if err := fn(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "sale not found")
			return
		}
		h.logger.Error("sale status transition", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
