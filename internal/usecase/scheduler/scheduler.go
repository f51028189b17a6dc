package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/chainpay/chainpay-backend/internal/domain"
	"github.com/chainpay/chainpay-backend/internal/usecase/executor"
)

// DefaultPollInterval is how often the scheduler polls for due transfers
// when no interval is configured
const DefaultPollInterval = 60 * time.Second

// transferExecutor is the slice of the execution engine the scheduler drives
type transferExecutor interface {
	Execute(ctx context.Context, id uuid.UUID) (*executor.ExecutionResult, error)
}

// TransferRunResult records the outcome of one transfer within a polling run
type TransferRunResult struct {
	TransferID uuid.UUID
	Success    bool
	Error      string
}

// RunSummary aggregates one polling run. A run with zero due transfers is a
// normal no-op with Processed == 0.
type RunSummary struct {
	Processed  int
	Successful int
	Failed     int
	Results    []TransferRunResult
}

// Scheduler is the periodic driver that discovers due transfers and executes
// them sequentially, oldest scheduled date first. Exactly one instance must
// run against a given store to avoid duplicate execution.
type Scheduler struct {
	TransferRepo domain.ScheduledTransferRepository
	Engine       transferExecutor
	Interval     time.Duration
	Logger       *zap.Logger

	metrics *schedulerMetrics

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// NewScheduler creates a new due-transfer scheduler instance
func NewScheduler(
	transferRepo domain.ScheduledTransferRepository,
	engine transferExecutor,
	interval time.Duration,
	logger *zap.Logger,
	registerer prometheus.Registerer,
) *Scheduler {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if registerer == nil {
		registerer = prometheus.NewRegistry()
	}
	return &Scheduler{
		TransferRepo: transferRepo,
		Engine:       engine,
		Interval:     interval,
		Logger:       logger,
		metrics:      newSchedulerMetrics(registerer),
	}
}

// ProcessDueTransfers queries the store for due transfers and executes each
// sequentially in ascending scheduled-date order. Individual transfer errors
// are recorded in the summary and never abort the batch; only a store query
// failure is propagated.
func (s *Scheduler) ProcessDueTransfers(ctx context.Context, now time.Time) (*RunSummary, error) {
	due, err := s.TransferRepo.FindDue(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query due transfers: %w", err)
	}

	s.metrics.dueTransfers.Set(float64(len(due)))

	summary := &RunSummary{Results: make([]TransferRunResult, 0, len(due))}
	for _, transfer := range due {
		summary.Processed++

		_, err := s.Engine.Execute(ctx, transfer.ID)
		if err != nil {
			summary.Failed++
			summary.Results = append(summary.Results, TransferRunResult{
				TransferID: transfer.ID,
				Error:      err.Error(),
			})
			s.metrics.transfersProcessed.WithLabelValues("failed").Inc()
			s.Logger.Warn("scheduled transfer execution failed",
				zap.String("transfer_id", transfer.ID.String()),
				zap.Error(err))
			continue
		}

		summary.Successful++
		summary.Results = append(summary.Results, TransferRunResult{
			TransferID: transfer.ID,
			Success:    true,
		})
		s.metrics.transfersProcessed.WithLabelValues("successful").Inc()
	}

	s.metrics.runs.Inc()
	return summary, nil
}

// Start launches the periodic polling loop. It returns an error if the
// scheduler is already running; the singleton guard is per process, the
// deployment must ensure a single instance per store.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("scheduler already running")
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go s.run(ctx, s.stop, s.done)

	s.Logger.Info("due-transfer scheduler started", zap.Duration("interval", s.Interval))
	return nil
}

// Stop terminates the polling loop and waits for an in-flight run to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stop)
	done := s.done
	s.mu.Unlock()

	<-done
	s.Logger.Info("due-transfer scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			summary, err := s.ProcessDueTransfers(ctx, time.Now().UTC())
			if err != nil {
				s.Logger.Error("due-transfer run failed", zap.Error(err))
				continue
			}
			if summary.Processed > 0 {
				s.Logger.Info("due-transfer run finished",
					zap.Int("processed", summary.Processed),
					zap.Int("successful", summary.Successful),
					zap.Int("failed", summary.Failed))
			}
		}
	}
}
