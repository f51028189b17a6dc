package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/chainpay/chainpay-backend/internal/domain"
)

// uniqueViolation is the PostgreSQL error code for unique constraint violations
const uniqueViolation = "23505"

// scheduledTransferRepository implements domain.ScheduledTransferRepository
type scheduledTransferRepository struct {
	db *DB
}

// NewScheduledTransferRepository creates a new scheduled transfer repository
func NewScheduledTransferRepository(db *DB) domain.ScheduledTransferRepository {
	return &scheduledTransferRepository{db: db}
}

const transferColumns = `
	id, user_address, recipients, amount, amount_per_recipient,
	scheduled_date, retry_limit, status, executed_at, results,
	transaction_id, error_message, parent_recurring_id, created_at, updated_at
`

// FindDue retrieves transfers still scheduled whose scheduled date has passed,
// oldest first
func (r *scheduledTransferRepository) FindDue(ctx context.Context, now time.Time) ([]*domain.ScheduledTransfer, error) {
	query := `
		SELECT ` + transferColumns + `
		FROM scheduled_transfers
		WHERE status = $1 AND scheduled_date <= $2
		ORDER BY scheduled_date ASC
	`

	rows, err := r.db.QueryContext(ctx, query, string(domain.TransferStatusScheduled), now)
	if err != nil {
		return nil, fmt.Errorf("failed to query due transfers: %w", err)
	}
	defer rows.Close()

	transfers := make([]*domain.ScheduledTransfer, 0)
	for rows.Next() {
		transfer, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		transfers = append(transfers, transfer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate due transfers: %w", err)
	}

	return transfers, nil
}

// GetByID retrieves a transfer by its ID
func (r *scheduledTransferRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ScheduledTransfer, error) {
	query := `
		SELECT ` + transferColumns + `
		FROM scheduled_transfers
		WHERE id = $1
	`

	row := r.db.QueryRowContext(ctx, query, id)
	transfer, err := scanTransfer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrTransferNotFound, id)
		}
		return nil, err
	}

	return transfer, nil
}

// Save atomically persists the full record, inserting or replacing it
func (r *scheduledTransferRepository) Save(ctx context.Context, transfer *domain.ScheduledTransfer) error {
	recipientsJSON, err := marshalRecipients(transfer)
	if err != nil {
		return fmt.Errorf("failed to marshal recipients: %w", err)
	}

	resultsJSON, err := json.Marshal(transfer.Results)
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}

	query := `
		INSERT INTO scheduled_transfers (` + transferColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			user_address = EXCLUDED.user_address,
			recipients = EXCLUDED.recipients,
			amount = EXCLUDED.amount,
			amount_per_recipient = EXCLUDED.amount_per_recipient,
			scheduled_date = EXCLUDED.scheduled_date,
			retry_limit = EXCLUDED.retry_limit,
			status = EXCLUDED.status,
			executed_at = EXCLUDED.executed_at,
			results = EXCLUDED.results,
			transaction_id = EXCLUDED.transaction_id,
			error_message = EXCLUDED.error_message,
			parent_recurring_id = EXCLUDED.parent_recurring_id,
			updated_at = EXCLUDED.updated_at
	`

	var executedAt interface{}
	if transfer.ExecutedAt != nil {
		executedAt = *transfer.ExecutedAt
	}

	var parentRecurringID interface{}
	if transfer.ParentRecurringID != nil {
		parentRecurringID = *transfer.ParentRecurringID
	}

	_, err = r.db.ExecContext(ctx, query,
		transfer.ID,
		transfer.UserAddress,
		recipientsJSON,
		transfer.Amount.String(),
		transfer.AmountPerRecipient,
		transfer.ScheduledDate,
		transfer.RetryLimit,
		string(transfer.Status),
		executedAt,
		resultsJSON,
		transfer.TransactionID,
		transfer.ErrorMessage,
		parentRecurringID,
		transfer.CreatedAt,
		transfer.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			// The (parent_recurring_id, scheduled_date) unique index guards
			// duplicate recurrence instances.
			return fmt.Errorf("%w: %v", domain.ErrDuplicateInstance, err)
		}
		return fmt.Errorf("failed to save transfer: %w", err)
	}

	return nil
}

// CountByStatus returns per-status counts, optionally filtered to one user
func (r *scheduledTransferRepository) CountByStatus(ctx context.Context, userAddress string) (map[domain.TransferStatus]int, error) {
	query := `
		SELECT status, COUNT(*)
		FROM scheduled_transfers
	`
	args := []interface{}{}
	if userAddress != "" {
		query += ` WHERE user_address = $1`
		args = append(args, userAddress)
	}
	query += ` GROUP BY status`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count transfers by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.TransferStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[domain.TransferStatus(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate status counts: %w", err)
	}

	return counts, nil
}

// ExistsForParent reports whether a recurrence instance already exists for the
// given definition and occurrence date
func (r *scheduledTransferRepository) ExistsForParent(ctx context.Context, parentRecurringID uuid.UUID, scheduledDate time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM scheduled_transfers
			WHERE parent_recurring_id = $1 AND scheduled_date = $2
		)
	`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, parentRecurringID, scheduledDate).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check for existing instance: %w", err)
	}

	return exists, nil
}

// marshalRecipients serializes the recipient list for storage, folding the
// legacy single-recipient field into it so legacy records survive a round-trip
func marshalRecipients(transfer *domain.ScheduledTransfer) ([]byte, error) {
	return json.Marshal(transfer.NormalizedRecipients())
}

// rowScanner covers both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransfer(row rowScanner) (*domain.ScheduledTransfer, error) {
	var transfer domain.ScheduledTransfer
	var recipientsJSON, resultsJSON []byte
	var amountStr string
	var executedAt sql.NullTime
	var transactionID, errorMessage sql.NullString
	var parentRecurringID sql.NullString

	err := row.Scan(
		&transfer.ID,
		&transfer.UserAddress,
		&recipientsJSON,
		&amountStr,
		&transfer.AmountPerRecipient,
		&transfer.ScheduledDate,
		&transfer.RetryLimit,
		&transfer.Status,
		&executedAt,
		&resultsJSON,
		&transactionID,
		&errorMessage,
		&parentRecurringID,
		&transfer.CreatedAt,
		&transfer.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan transfer: %w", err)
	}

	if len(recipientsJSON) > 0 {
		if err := json.Unmarshal(recipientsJSON, &transfer.Recipients); err != nil {
			return nil, fmt.Errorf("failed to unmarshal recipients: %w", err)
		}
	}

	if len(resultsJSON) > 0 {
		if err := json.Unmarshal(resultsJSON, &transfer.Results); err != nil {
			return nil, fmt.Errorf("failed to unmarshal results: %w", err)
		}
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse amount: %w", err)
	}
	transfer.Amount = amount

	if executedAt.Valid {
		t := executedAt.Time
		transfer.ExecutedAt = &t
	}
	if transactionID.Valid {
		transfer.TransactionID = transactionID.String
	}
	if errorMessage.Valid {
		transfer.ErrorMessage = errorMessage.String
	}
	if parentRecurringID.Valid {
		parentUUID, err := uuid.Parse(parentRecurringID.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse parent_recurring_id: %w", err)
		}
		transfer.ParentRecurringID = &parentUUID
	}

	return &transfer, nil
}
