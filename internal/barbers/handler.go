package barbers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/barberdesk/barberdesk/internal/platform/httpx"
	"github.com/barberdesk/barberdesk/internal/reporting"
)

// Store is the persistence surface the handler needs.
type Store interface {
	List(ctx context.Context) ([]reporting.BarberRef, error)
	Get(ctx context.Context, id uuid.UUID) (Barber, error)
	Create(ctx context.Context, barber Barber) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

type createBarberInput struct {
	Name string `json:"name" validate:"required,min=1,max=120"`
}

type setActiveInput struct {
	Active bool `json:"active"`
}

// Handler exposes the roster surface.
type Handler struct {
	store    Store
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler constructs the handler.
func NewHandler(store Store, logger *slog.Logger) *Handler {
	return &Handler{store: store, validate: validator.New(), logger: logger}
}

// MountRoutes attaches roster routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{barberID}", h.get)
	r.Put("/{barberID}/active", h.setActive)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	refs, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error("list barbers", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"barbers": refs})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "barberID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Barber ID", err.Error())
		return
	}
	barber, err := h.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "barber not found")
			return
		}
		h.logger.Error("get barber", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, barber)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var input createBarberInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	barber := Barber{ID: uuid.New(), Name: input.Name, Active: true}
	if err := h.store.Create(r.Context(), barber); err != nil {
		h.logger.Error("create barber", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusCreated, barber)
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "barberID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Barber ID", err.Error())
		return
	}
	var input setActiveInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.store.SetActive(r.Context(), id, input.Active); err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "barber not found")
			return
		}
		h.logger.Error("set barber active", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
