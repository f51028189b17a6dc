package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// SendResult reports the outcome of a single on-chain send
type SendResult struct {
	Success       bool
	TransactionID string
	Error         string
}

// ChainExecutor submits one transfer leg to the chain and reports the outcome.
// retryLimit is passed through verbatim; retry mechanics live in the
// executor/chain layer, not in this core.
type ChainExecutor interface {
	Send(ctx context.Context, fromAddress, toAddress string, amount decimal.Decimal, retryLimit int) (*SendResult, error)
}
