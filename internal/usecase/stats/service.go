package stats

import (
	"context"
	"fmt"

	"github.com/chainpay/chainpay-backend/internal/domain"
)

// TransferStats represents per-status scheduled transfer counts
type TransferStats struct {
	Total     int
	Scheduled int
	Executing int
	Completed int
	Failed    int
	Cancelled int
}

// Service handles scheduled transfer reporting operations
type Service struct {
	TransferRepo domain.ScheduledTransferRepository
}

// NewService creates a new stats service instance
func NewService(transferRepo domain.ScheduledTransferRepository) *Service {
	return &Service{TransferRepo: transferRepo}
}

// GetScheduledTransferStats returns per-status counts, optionally filtered to
// one user. An empty userAddress covers all users.
func (s *Service) GetScheduledTransferStats(ctx context.Context, userAddress string) (*TransferStats, error) {
	counts, err := s.TransferRepo.CountByStatus(ctx, userAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to count transfers by status: %w", err)
	}

	stats := &TransferStats{
		Scheduled: counts[domain.TransferStatusScheduled],
		Executing: counts[domain.TransferStatusExecuting],
		Completed: counts[domain.TransferStatusCompleted],
		Failed:    counts[domain.TransferStatusFailed],
		Cancelled: counts[domain.TransferStatusCancelled],
	}
	stats.Total = stats.Scheduled + stats.Executing + stats.Completed + stats.Failed + stats.Cancelled

	return stats, nil
}
