package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransferStatus represents the lifecycle state of a scheduled transfer
type TransferStatus string

const (
	TransferStatusScheduled TransferStatus = "scheduled"
	TransferStatusExecuting TransferStatus = "executing"
	TransferStatusCompleted TransferStatus = "completed"
	TransferStatusFailed    TransferStatus = "failed"
	TransferStatusCancelled TransferStatus = "cancelled"
)

// IsTerminal reports whether a status admits no further transitions
func (s TransferStatus) IsTerminal() bool {
	return s == TransferStatusCompleted || s == TransferStatusFailed || s == TransferStatusCancelled
}

// allowedTransitions encodes the one-directional status state machine.
// Terminal statuses have no outgoing edges.
var allowedTransitions = map[TransferStatus][]TransferStatus{
	TransferStatusScheduled: {TransferStatusExecuting, TransferStatusCancelled, TransferStatusFailed},
	TransferStatusExecuting: {TransferStatusCompleted, TransferStatusFailed},
}

// Recipient represents a single destination of a scheduled transfer.
// Amount, when set, overrides the transfer-level amount for this recipient.
type Recipient struct {
	Address string           `json:"address"`
	Amount  *decimal.Decimal `json:"amount,omitempty"`
}

// RecipientResultStatus represents the outcome of a single recipient send
type RecipientResultStatus string

const (
	RecipientResultCompleted RecipientResultStatus = "completed"
	RecipientResultFailed    RecipientResultStatus = "failed"
)

// RecipientResult records the outcome of one on-chain send to one recipient
type RecipientResult struct {
	Recipient     string                `json:"recipient"`
	TransactionID string                `json:"transactionId,omitempty"`
	Status        RecipientResultStatus `json:"status"`
	Error         string                `json:"error,omitempty"`
}

// ScheduledTransfer represents a future-dated value transfer in the domain layer
type ScheduledTransfer struct {
	ID                 uuid.UUID
	UserAddress        string
	Recipients         []Recipient
	Recipient          string // legacy single-recipient field, superseded by Recipients
	Amount             decimal.Decimal
	AmountPerRecipient bool // when true, Amount is sent to each recipient instead of being split
	ScheduledDate      time.Time
	RetryLimit         int
	Status             TransferStatus
	ExecutedAt         *time.Time
	Results            []RecipientResult
	TransactionID      string // legacy mirror of the first result's transaction id
	ErrorMessage       string
	ParentRecurringID  *uuid.UUID
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Validate ensures the transfer adheres to domain rules
// Returns an error if validation fails
func (t *ScheduledTransfer) Validate() error {
	if t.UserAddress == "" {
		return errors.New("transfer user address cannot be empty")
	}

	if len(t.NormalizedRecipients()) == 0 {
		return errors.New("transfer must have at least one recipient")
	}

	for _, r := range t.NormalizedRecipients() {
		if r.Address == "" {
			return errors.New("recipient address cannot be empty")
		}
		if r.Amount != nil && r.Amount.LessThanOrEqual(decimal.Zero) {
			return errors.New("recipient amount must be positive")
		}
	}

	if t.Amount.LessThanOrEqual(decimal.Zero) {
		return errors.New("transfer amount must be positive")
	}

	if t.ScheduledDate.IsZero() {
		return errors.New("transfer scheduled date cannot be empty")
	}

	if t.RetryLimit < 0 {
		return errors.New("transfer retry limit cannot be negative")
	}

	return nil
}

// NormalizedRecipients returns the recipient list, folding the legacy
// single-recipient field into a one-element list when Recipients is empty
func (t *ScheduledTransfer) NormalizedRecipients() []Recipient {
	if len(t.Recipients) > 0 {
		return t.Recipients
	}
	if t.Recipient != "" {
		return []Recipient{{Address: t.Recipient}}
	}
	return nil
}

// TotalRequired computes the total amount the authorization must cover by
// summing each recipient's actual send amount, so the guard and the fan-out
// always agree, including when a recipient carries an explicit amount override
func (t *ScheduledTransfer) TotalRequired(recipients []Recipient) decimal.Decimal {
	total := decimal.Zero
	for _, r := range recipients {
		total = total.Add(t.AmountFor(r, len(recipients)))
	}
	return total
}

// AmountFor computes the individual amount for one recipient: the recipient's
// own amount when set, Amount when AmountPerRecipient is set, otherwise an
// even split of Amount across all recipients
func (t *ScheduledTransfer) AmountFor(r Recipient, recipientCount int) decimal.Decimal {
	if r.Amount != nil {
		return *r.Amount
	}
	if t.AmountPerRecipient {
		return t.Amount
	}
	return t.Amount.Div(decimal.NewFromInt(int64(recipientCount)))
}

// IsDue reports whether the transfer is eligible for execution at the given time
func (t *ScheduledTransfer) IsDue(now time.Time) bool {
	return t.Status == TransferStatusScheduled && !t.ScheduledDate.After(now)
}

// TransitionTo moves the transfer to the next status, enforcing the
// one-directional state machine. Terminal statuses reject all transitions.
func (t *ScheduledTransfer) TransitionTo(next TransferStatus) error {
	for _, allowed := range allowedTransitions[t.Status] {
		if next == allowed {
			t.Status = next
			return nil
		}
	}
	return ErrInvalidTransferState
}
