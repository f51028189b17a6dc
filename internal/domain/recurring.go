package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Frequency represents how often a recurring transfer spawns a new instance
type Frequency string

const (
	FrequencyDaily    Frequency = "daily"
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
	FrequencyMonthly  Frequency = "monthly"
)

// RecurringTransfer represents a recurring transfer definition.
// Each completed instance chains a new ScheduledTransfer carrying
// ParentRecurringID back to this definition.
type RecurringTransfer struct {
	ID                 uuid.UUID
	UserAddress        string
	Recipients         []Recipient
	Amount             decimal.Decimal
	AmountPerRecipient bool
	Frequency          Frequency
	StartDate          time.Time
	RetryLimit         int
	IsActive           bool
}

// Validate ensures the recurring definition adheres to domain rules
func (r *RecurringTransfer) Validate() error {
	if r.UserAddress == "" {
		return errors.New("recurring transfer user address cannot be empty")
	}

	if len(r.Recipients) == 0 {
		return errors.New("recurring transfer must have at least one recipient")
	}

	if r.Amount.LessThanOrEqual(decimal.Zero) {
		return errors.New("recurring transfer amount must be positive")
	}

	switch r.Frequency {
	case FrequencyDaily, FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly:
	default:
		return errors.New("recurring transfer frequency must be daily, weekly, biweekly or monthly")
	}

	return nil
}

// NextOccurrence computes the scheduled date of the instance that follows
// the given occurrence. Monthly recurrence uses calendar months, so Jan 31
// rolls to Mar 3 (time.AddDate normalization) rather than erroring.
func (r *RecurringTransfer) NextOccurrence(after time.Time) time.Time {
	switch r.Frequency {
	case FrequencyDaily:
		return after.AddDate(0, 0, 1)
	case FrequencyWeekly:
		return after.AddDate(0, 0, 7)
	case FrequencyBiweekly:
		return after.AddDate(0, 0, 14)
	case FrequencyMonthly:
		return after.AddDate(0, 1, 0)
	default:
		return after
	}
}
