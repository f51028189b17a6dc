package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Authorization represents an externally-issued, time- and amount-bounded
// permission to move funds on a user's behalf
type Authorization struct {
	IsValid    bool
	MaxAmount  decimal.Decimal
	ExpiryDate time.Time
}

// AuthorizationChecker validates that a user has a live, sufficiently-funded
// authorization. Implementations are consulted fresh per execution attempt;
// results are never cached by the core.
type AuthorizationChecker interface {
	Check(ctx context.Context, userAddress string) (*Authorization, error)
}
