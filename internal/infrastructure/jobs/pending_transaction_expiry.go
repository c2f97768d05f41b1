package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"spark.backend/internal/domain/entities"
	"spark.backend/internal/infrastructure/metrics"
	"spark.backend/pkg/logger"
)

const expiryBatchSize = 100

type pendingTransactionStore interface {
	GetExpiredPending(ctx context.Context, before time.Time, limit int) ([]*entities.WalletTransaction, error)
	FailPending(ctx context.Context, ids []uuid.UUID) (int64, error)
}

// PendingTransactionExpiryJob fails pending ledger rows that were never confirmed
type PendingTransactionExpiryJob struct {
	repo     pendingTransactionStore
	metrics  metrics.Collector
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
	stop     chan struct{}
}

func NewPendingTransactionExpiryJob(repo pendingTransactionStore, collector metrics.Collector, ttl, interval time.Duration) *PendingTransactionExpiryJob {
	if collector == nil {
		collector = metrics.NoopCollector{}
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &PendingTransactionExpiryJob{
		repo:     repo,
		metrics:  collector,
		ttl:      ttl,
		interval: interval,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
}

func (j *PendingTransactionExpiryJob) Start(ctx context.Context) {
	logger.Info(ctx, "Starting pending transaction expiry job",
		zap.Duration("ttl", j.ttl), zap.Duration("interval", j.interval))

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Pending transaction expiry job stopped (context cancelled)")
			return
		case <-j.stop:
			logger.Info(ctx, "Pending transaction expiry job stopped")
			return
		case <-ticker.C:
			j.processExpired(ctx)
		}
	}
}

func (j *PendingTransactionExpiryJob) Stop() {
	close(j.stop)
}

// processExpired drains expired rows in batches until none remain or a batch makes no progress
func (j *PendingTransactionExpiryJob) processExpired(ctx context.Context) int {
	cutoff := j.now().Add(-j.ttl)
	total := 0
	for {
		expired, err := j.repo.GetExpiredPending(ctx, cutoff, expiryBatchSize)
		if err != nil {
			logger.Error(ctx, "Error fetching expired pending transactions", zap.Error(err))
			return total
		}
		if len(expired) == 0 {
			break
		}

		ids := make([]uuid.UUID, 0, len(expired))
		for _, tx := range expired {
			ids = append(ids, tx.ID)
		}

		n, err := j.repo.FailPending(ctx, ids)
		if err != nil {
			logger.Error(ctx, "Error failing expired pending transactions", zap.Error(err))
			return total
		}
		total += int(n)
		if n == 0 || len(expired) < expiryBatchSize {
			break
		}
	}

	if total > 0 {
		j.metrics.RecordPendingExpired(total)
		logger.Info(ctx, "Expired pending transactions", zap.Int("count", total))
	}
	return total
}
