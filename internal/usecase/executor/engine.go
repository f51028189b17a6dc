package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/chainpay/chainpay-backend/internal/domain"
)

// RecurrenceExpander chains a completed recurring instance into the next one
type RecurrenceExpander interface {
	GenerateNextInstance(ctx context.Context, parent *domain.ScheduledTransfer) (*domain.ScheduledTransfer, error)
}

// Observer is notified after a transfer reaches a terminal status.
// Notifications run synchronously on the executing goroutine; observers
// must not block.
type Observer func(transfer *domain.ScheduledTransfer)

// ExecutionResult is the outcome of executing one scheduled transfer
type ExecutionResult struct {
	Transfer *domain.ScheduledTransfer
	Results  []domain.RecipientResult
}

// Engine orchestrates one transfer's lifecycle: authorization check, amount
// validation, fan-out to recipients, result aggregation, status transition
// and recurrence chaining
type Engine struct {
	TransferRepo  domain.ScheduledTransferRepository
	AuthChecker   domain.AuthorizationChecker
	ChainExecutor domain.ChainExecutor
	Expander      RecurrenceExpander

	// CallTimeout bounds each external authorization check and chain send.
	// A timeout is treated as a check/send failure, never as a hang.
	CallTimeout time.Duration

	Logger    *zap.Logger
	observers []Observer
}

// NewEngine creates a new execution engine instance
func NewEngine(
	transferRepo domain.ScheduledTransferRepository,
	authChecker domain.AuthorizationChecker,
	chainExecutor domain.ChainExecutor,
	expander RecurrenceExpander,
	callTimeout time.Duration,
	logger *zap.Logger,
) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		TransferRepo:  transferRepo,
		AuthChecker:   authChecker,
		ChainExecutor: chainExecutor,
		Expander:      expander,
		CallTimeout:   callTimeout,
		Logger:        logger,
	}
}

// RegisterObserver adds a callback invoked after every terminal transition
// (completed, failed, or forced-failed). Not safe for concurrent use with
// Execute; register observers before starting the scheduler.
func (e *Engine) RegisterObserver(fn Observer) {
	e.observers = append(e.observers, fn)
}

// Execute runs the full lifecycle for one scheduled transfer.
// Logic:
//  1. Load the transfer; unknown ids fail with ErrTransferNotFound
//  2. Require status == scheduled; anything else fails with
//     ErrInvalidTransferState without mutating the record
//  3. Consult the authorization checker fresh; an invalid authorization is a
//     hard failure (terminal failed status)
//  4. Normalize recipients and pre-flight the total against the authorization
//     limit; ErrExceedsAuthorization leaves the transfer scheduled so a later
//     run against a raised authorization can succeed
//  5. Transition to executing, persist, then send to each recipient in order.
//     Fan-out is all-attempted: a failed send is recorded and the loop continues
//  6. All sends completed -> completed (+ recurrence chaining); any failed ->
//     failed, keeping successful transaction ids for manual reconciliation
func (e *Engine) Execute(ctx context.Context, id uuid.UUID) (*ExecutionResult, error) {
	transfer, err := e.TransferRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if transfer.Status != domain.TransferStatusScheduled {
		return nil, fmt.Errorf("%w: transfer %s is %s, expected scheduled", domain.ErrInvalidTransferState, id, transfer.Status)
	}

	auth, err := e.checkAuthorization(ctx, transfer.UserAddress)
	if err != nil {
		err = fmt.Errorf("authorization check failed: %w", err)
		e.forceFail(ctx, id, err)
		return nil, err
	}

	if !auth.IsValid {
		err = fmt.Errorf("%w: user %s", domain.ErrUnauthorized, transfer.UserAddress)
		e.forceFail(ctx, id, err)
		return nil, err
	}

	recipients := transfer.NormalizedRecipients()
	if len(recipients) == 0 {
		err = errors.New("transfer has no recipients")
		e.forceFail(ctx, id, err)
		return nil, err
	}

	totalAmount := transfer.TotalRequired(recipients)
	if totalAmount.GreaterThan(auth.MaxAmount) {
		// Pre-flight guard, not a terminal failure: no funds have moved and the
		// record stays scheduled.
		return nil, fmt.Errorf("%w: requires %s, authorization allows %s",
			domain.ErrExceedsAuthorization, totalAmount.String(), auth.MaxAmount.String())
	}

	if err := transfer.TransitionTo(domain.TransferStatusExecuting); err != nil {
		return nil, fmt.Errorf("%w: transfer %s", err, id)
	}
	if err := e.TransferRepo.Save(ctx, transfer); err != nil {
		// Persistence failure before any send: surface it, transfer stays in
		// its last persisted state.
		return nil, fmt.Errorf("failed to mark transfer %s executing: %w", id, err)
	}

	results := make([]domain.RecipientResult, 0, len(recipients))
	failedCount := 0
	for _, recipient := range recipients {
		amount := transfer.AmountFor(recipient, len(recipients))
		result := e.sendToRecipient(ctx, transfer, recipient.Address, amount)
		if result.Status == domain.RecipientResultFailed {
			failedCount++
		}
		results = append(results, result)
	}

	now := time.Now().UTC()
	transfer.Results = results
	transfer.ExecutedAt = &now
	if len(results) == 1 {
		transfer.TransactionID = results[0].TransactionID
	}

	if failedCount > 0 {
		// Partial successes are not rolled back; their transaction ids stay in
		// the result set for manual reconciliation.
		if err := transfer.TransitionTo(domain.TransferStatusFailed); err != nil {
			return nil, fmt.Errorf("%w: transfer %s", err, id)
		}
		transfer.ErrorMessage = fmt.Sprintf("%d of %d recipient sends failed", failedCount, len(results))
		if err := e.TransferRepo.Save(ctx, transfer); err != nil {
			return nil, fmt.Errorf("failed to persist failed transfer %s: %w", id, err)
		}
		e.notify(transfer)
		return &ExecutionResult{Transfer: transfer, Results: results},
			fmt.Errorf("%w: %s", domain.ErrRecipientSendFailure, transfer.ErrorMessage)
	}

	if err := transfer.TransitionTo(domain.TransferStatusCompleted); err != nil {
		return nil, fmt.Errorf("%w: transfer %s", err, id)
	}
	if err := e.TransferRepo.Save(ctx, transfer); err != nil {
		return nil, fmt.Errorf("failed to persist completed transfer %s: %w", id, err)
	}

	if transfer.ParentRecurringID != nil && e.Expander != nil {
		// A chaining failure never flips a successfully executed transfer back
		// to a failure state.
		if _, err := e.Expander.GenerateNextInstance(ctx, transfer); err != nil {
			e.Logger.Warn("failed to generate next recurring instance",
				zap.String("transfer_id", transfer.ID.String()),
				zap.String("recurring_id", transfer.ParentRecurringID.String()),
				zap.Error(err))
		}
	}

	e.notify(transfer)
	return &ExecutionResult{Transfer: transfer, Results: results}, nil
}

// checkAuthorization consults the checker under the call-level timeout
func (e *Engine) checkAuthorization(ctx context.Context, userAddress string) (*domain.Authorization, error) {
	callCtx, cancel := e.callContext(ctx)
	defer cancel()
	return e.AuthChecker.Check(callCtx, userAddress)
}

// sendToRecipient performs one chain send and folds any error into a failed
// recipient result so the fan-out loop never aborts early
func (e *Engine) sendToRecipient(ctx context.Context, transfer *domain.ScheduledTransfer, toAddress string, amount decimal.Decimal) domain.RecipientResult {
	callCtx, cancel := e.callContext(ctx)
	defer cancel()

	sendResult, err := e.ChainExecutor.Send(callCtx, transfer.UserAddress, toAddress, amount, transfer.RetryLimit)
	if err != nil {
		e.Logger.Warn("recipient send failed",
			zap.String("transfer_id", transfer.ID.String()),
			zap.String("recipient", toAddress),
			zap.Error(err))
		return domain.RecipientResult{
			Recipient: toAddress,
			Status:    domain.RecipientResultFailed,
			Error:     err.Error(),
		}
	}

	if !sendResult.Success {
		return domain.RecipientResult{
			Recipient:     toAddress,
			TransactionID: sendResult.TransactionID,
			Status:        domain.RecipientResultFailed,
			Error:         sendResult.Error,
		}
	}

	return domain.RecipientResult{
		Recipient:     toAddress,
		TransactionID: sendResult.TransactionID,
		Status:        domain.RecipientResultCompleted,
	}
}

// forceFail reloads the transfer and best-effort forces it to failed with the
// triggering error message. Reload/save errors are only logged; the original
// cause is reported to the caller by Execute.
func (e *Engine) forceFail(ctx context.Context, id uuid.UUID, cause error) {
	transfer, err := e.TransferRepo.GetByID(ctx, id)
	if err != nil {
		e.Logger.Error("unable to reload transfer to mark it failed",
			zap.String("transfer_id", id.String()),
			zap.Error(err))
		return
	}

	if err := transfer.TransitionTo(domain.TransferStatusFailed); err != nil {
		// Already terminal; leave it alone.
		return
	}

	now := time.Now().UTC()
	transfer.ExecutedAt = &now
	transfer.ErrorMessage = cause.Error()

	if err := e.TransferRepo.Save(ctx, transfer); err != nil {
		e.Logger.Error("unable to persist failed transfer state",
			zap.String("transfer_id", id.String()),
			zap.Error(err))
		return
	}

	e.notify(transfer)
}

func (e *Engine) notify(transfer *domain.ScheduledTransfer) {
	for _, fn := range e.observers {
		fn(transfer)
	}
}

func (e *Engine) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.CallTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, e.CallTimeout)
}
