package transfers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chainpay/chainpay-backend/internal/domain"
)

// ScheduleInput represents the input for scheduling a future-dated transfer
type ScheduleInput struct {
	UserAddress        string
	Recipients         []domain.Recipient
	Amount             decimal.Decimal
	AmountPerRecipient bool
	ScheduledDate      time.Time
	RetryLimit         int
	ParentRecurringID  *uuid.UUID
}

// Service handles scheduled transfer request operations: creation, lookup
// and cancellation. Execution belongs to the executor engine.
type Service struct {
	TransferRepo domain.ScheduledTransferRepository
}

// NewService creates a new transfers service instance
func NewService(transferRepo domain.ScheduledTransferRepository) *Service {
	return &Service{TransferRepo: transferRepo}
}

// Schedule creates a new transfer in scheduled status
func (s *Service) Schedule(ctx context.Context, input ScheduleInput) (*domain.ScheduledTransfer, error) {
	now := time.Now().UTC()

	transfer := &domain.ScheduledTransfer{
		ID:                 uuid.New(),
		UserAddress:        input.UserAddress,
		Recipients:         input.Recipients,
		Amount:             input.Amount,
		AmountPerRecipient: input.AmountPerRecipient,
		ScheduledDate:      input.ScheduledDate,
		RetryLimit:         input.RetryLimit,
		Status:             domain.TransferStatusScheduled,
		ParentRecurringID:  input.ParentRecurringID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := transfer.Validate(); err != nil {
		return nil, err
	}

	if err := s.TransferRepo.Save(ctx, transfer); err != nil {
		return nil, fmt.Errorf("failed to persist scheduled transfer: %w", err)
	}

	return transfer, nil
}

// Get retrieves a scheduled transfer by id
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.ScheduledTransfer, error) {
	return s.TransferRepo.GetByID(ctx, id)
}

// Cancel marks a transfer cancelled. Legal only while the transfer is still
// scheduled: a cancellation that races with the engine and arrives after the
// executing transition is rejected with ErrInvalidTransferState.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*domain.ScheduledTransfer, error) {
	transfer, err := s.TransferRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if transfer.Status != domain.TransferStatusScheduled {
		return nil, fmt.Errorf("%w: transfer %s is %s, only scheduled transfers can be cancelled",
			domain.ErrInvalidTransferState, id, transfer.Status)
	}

	if err := transfer.TransitionTo(domain.TransferStatusCancelled); err != nil {
		return nil, fmt.Errorf("%w: transfer %s", err, id)
	}
	transfer.UpdatedAt = time.Now().UTC()

	if err := s.TransferRepo.Save(ctx, transfer); err != nil {
		return nil, fmt.Errorf("failed to persist cancelled transfer: %w", err)
	}

	return transfer, nil
}
