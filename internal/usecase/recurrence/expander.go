package recurrence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chainpay/chainpay-backend/internal/domain"
)

// Expander chains a completed recurring transfer instance into the next one.
// Idempotent against duplicate invocation: at most one child instance exists
// per (definition, occurrence date), enforced both by a repository existence
// check and a store-level uniqueness constraint.
type Expander struct {
	RecurringRepo domain.RecurringTransferRepository
	TransferRepo  domain.ScheduledTransferRepository
	Logger        *zap.Logger
}

// NewExpander creates a new recurrence expander instance
func NewExpander(
	recurringRepo domain.RecurringTransferRepository,
	transferRepo domain.ScheduledTransferRepository,
	logger *zap.Logger,
) *Expander {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Expander{
		RecurringRepo: recurringRepo,
		TransferRepo:  transferRepo,
		Logger:        logger,
	}
}

// GenerateNextInstance computes the next occurrence of the parent's recurring
// definition and persists a new scheduled transfer for it.
// Returns (nil, nil) when no instance is needed: inactive definition, or the
// instance already exists from an earlier invocation.
func (x *Expander) GenerateNextInstance(ctx context.Context, parent *domain.ScheduledTransfer) (*domain.ScheduledTransfer, error) {
	if parent.ParentRecurringID == nil {
		return nil, errors.New("transfer has no parent recurring definition")
	}

	definition, err := x.RecurringRepo.GetByID(ctx, *parent.ParentRecurringID)
	if err != nil {
		return nil, err
	}

	if !definition.IsActive {
		x.Logger.Info("recurring definition inactive, no instance generated",
			zap.String("recurring_id", definition.ID.String()))
		return nil, nil
	}

	nextDate := definition.NextOccurrence(parent.ScheduledDate)

	exists, err := x.TransferRepo.ExistsForParent(ctx, definition.ID, nextDate)
	if err != nil {
		return nil, fmt.Errorf("failed to check for existing instance: %w", err)
	}
	if exists {
		return nil, nil
	}

	instance := x.buildInstance(definition, nextDate)
	if err := x.TransferRepo.Save(ctx, instance); err != nil {
		if errors.Is(err, domain.ErrDuplicateInstance) {
			// Lost the race against a concurrent invocation; the instance is
			// already there, which is exactly what we wanted.
			return nil, nil
		}
		return nil, fmt.Errorf("failed to persist next instance: %w", err)
	}

	x.Logger.Info("generated next recurring instance",
		zap.String("recurring_id", definition.ID.String()),
		zap.String("transfer_id", instance.ID.String()),
		zap.Time("scheduled_date", nextDate))

	return instance, nil
}

func (x *Expander) buildInstance(definition *domain.RecurringTransfer, scheduledDate time.Time) *domain.ScheduledTransfer {
	recipients := make([]domain.Recipient, len(definition.Recipients))
	copy(recipients, definition.Recipients)

	parentID := definition.ID
	now := time.Now().UTC()

	return &domain.ScheduledTransfer{
		ID:                 uuid.New(),
		UserAddress:        definition.UserAddress,
		Recipients:         recipients,
		Amount:             definition.Amount,
		AmountPerRecipient: definition.AmountPerRecipient,
		ScheduledDate:      scheduledDate,
		RetryLimit:         definition.RetryLimit,
		Status:             domain.TransferStatusScheduled,
		ParentRecurringID:  &parentID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}
