package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ScheduledTransferRepository defines the interface for scheduled transfer
// persistence operations
type ScheduledTransferRepository interface {
	// FindDue retrieves transfers with status scheduled and scheduled_date <= now,
	// ordered ascending by scheduled date
	FindDue(ctx context.Context, now time.Time) ([]*ScheduledTransfer, error)

	// GetByID retrieves a transfer by its ID
	// Returns an error wrapping ErrTransferNotFound when the id is unknown
	GetByID(ctx context.Context, id uuid.UUID) (*ScheduledTransfer, error)

	// Save atomically persists the full record, inserting or replacing it.
	// Callers re-read before mutating to reduce races with external cancellation.
	Save(ctx context.Context, transfer *ScheduledTransfer) error

	// CountByStatus returns per-status counts for reporting
	// If userAddress is empty, counts cover all users
	CountByStatus(ctx context.Context, userAddress string) (map[TransferStatus]int, error)

	// ExistsForParent reports whether an instance spawned by the given recurring
	// definition already exists for the given occurrence date
	ExistsForParent(ctx context.Context, parentRecurringID uuid.UUID, scheduledDate time.Time) (bool, error)
}

// RecurringTransferRepository defines the interface for recurring definition
// persistence operations
type RecurringTransferRepository interface {
	// GetByID retrieves a recurring definition by its ID
	// Returns an error wrapping ErrRecurringNotFound when the id is unknown
	GetByID(ctx context.Context, id uuid.UUID) (*RecurringTransfer, error)
}
