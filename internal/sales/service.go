package sales

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// SaleStore is the persistence surface the service needs.
type SaleStore interface {
	Insert(ctx context.Context, sale Sale) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
}

// CacheInvalidator lets the write path orphan cached reports and
// availability indexes when new revenue lands.
type CacheInvalidator interface {
	InvalidateCache(ctx context.Context) error
}

// RecordSaleInput is the validated POS payload.
type RecordSaleInput struct {
	ID         *uuid.UUID `json:"id" validate:"omitempty"`
	BarberID   uuid.UUID  `json:"barber_id" validate:"required"`
	Kind       Kind       `json:"kind" validate:"required,oneof=product walk_in"`
	Amount     int64      `json:"amount" validate:"gte=0"`
	Quantity   int        `json:"quantity" validate:"gte=0"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// Service handles the sale write path.
type Service struct {
	store       SaleStore
	invalidator CacheInvalidator
	logger      *slog.Logger
	now         func() time.Time
}

// NewService constructs the sale service.
func NewService(store SaleStore, invalidator CacheInvalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:       store,
		invalidator: invalidator,
		logger:      logger,
		now:         time.Now,
	}
}

// RecordSale persists a completed POS event and bumps the reporting cache.
// Clients may supply an id for idempotent retries; a missing occurred_at
// defaults to the current instant, never to row creation time.
func (s *Service) RecordSale(ctx context.Context, input RecordSaleInput) (Sale, error) {
	sale := Sale{
		BarberID:   input.BarberID,
		Kind:       input.Kind,
		Amount:     input.Amount,
		Quantity:   input.Quantity,
		OccurredAt: input.OccurredAt,
		Status:     StatusCompleted,
	}
	if input.ID != nil {
		sale.ID = *input.ID
	} else {
		sale.ID = uuid.New()
	}
	if sale.Quantity == 0 {
		sale.Quantity = 1
	}
	if sale.OccurredAt.IsZero() {
		sale.OccurredAt = s.now()
	}

	if err := s.store.Insert(ctx, sale); err != nil {
		return Sale{}, fmt.Errorf("record sale: %w", err)
	}
	s.bump(ctx)
	return sale, nil
}

// CancelSale marks a sale cancelled. Its amount stops counting from the next
// read; previously produced reports are not rewritten.
func (s *Service) CancelSale(ctx context.Context, id uuid.UUID) error {
	if err := s.store.UpdateStatus(ctx, id, StatusCancelled); err != nil {
		return err
	}
	s.bump(ctx)
	return nil
}

// RefundSale marks a sale refunded, with the same non-retroactive semantics
// as cancellation.
func (s *Service) RefundSale(ctx context.Context, id uuid.UUID) error {
	if err := s.store.UpdateStatus(ctx, id, StatusRefunded); err != nil {
		return err
	}
	s.bump(ctx)
	return nil
}

func (s *Service) bump(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.InvalidateCache(ctx); err != nil {
		s.logger.Warn("report cache bump", slog.Any("error", err))
	}
}
