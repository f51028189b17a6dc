package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chainpay/chainpay-backend/internal/domain"
)

// recurringTransferRepository implements domain.RecurringTransferRepository
type recurringTransferRepository struct {
	db *DB
}

// NewRecurringTransferRepository creates a new recurring transfer repository
func NewRecurringTransferRepository(db *DB) domain.RecurringTransferRepository {
	return &recurringTransferRepository{db: db}
}

// GetByID retrieves a recurring definition by its ID
func (r *recurringTransferRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.RecurringTransfer, error) {
	query := `
		SELECT id, user_address, recipients, amount, amount_per_recipient,
			frequency, start_date, retry_limit, is_active
		FROM recurring_transfers
		WHERE id = $1
	`

	var recurring domain.RecurringTransfer
	var recipientsJSON []byte
	var amountStr string

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&recurring.ID,
		&recurring.UserAddress,
		&recipientsJSON,
		&amountStr,
		&recurring.AmountPerRecipient,
		&recurring.Frequency,
		&recurring.StartDate,
		&recurring.RetryLimit,
		&recurring.IsActive,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrRecurringNotFound, id)
		}
		return nil, fmt.Errorf("failed to get recurring transfer: %w", err)
	}

	if len(recipientsJSON) > 0 {
		if err := json.Unmarshal(recipientsJSON, &recurring.Recipients); err != nil {
			return nil, fmt.Errorf("failed to unmarshal recipients: %w", err)
		}
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse amount: %w", err)
	}
	recurring.Amount = amount

	return &recurring, nil
}
