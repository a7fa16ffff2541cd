// Package balancerefresh keeps balance snapshots and pool data warm.
// Three triggers feed the same refresh path: a short on-chain ticker,
// a cron schedule for pool rates, and connectivity coming back after
// an outage.
package balancerefresh

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/nimrid/Corre/internal/domain/entities"
	"github.com/nimrid/Corre/pkg/logger"
	"github.com/nimrid/Corre/pkg/retry"
)

// BalanceRefresher is the balance service surface the worker drives.
type BalanceRefresher interface {
	Refresh(ctx context.Context, owner string) (*entities.BalanceSnapshot, error)
	RefreshPoolData(ctx context.Context) (*entities.PoolData, error)
}

// ConnectivitySource reports state and publishes transitions.
type ConnectivitySource interface {
	IsOnline() bool
	Subscribe() <-chan bool
}

// Config holds worker configuration
type Config struct {
	OnChainInterval time.Duration
	PoolSchedule    string
}

// DefaultConfig returns default worker configuration
func DefaultConfig() Config {
	return Config{
		OnChainInterval: 15 * time.Second,
		PoolSchedule:    "@every 20m",
	}
}

// Worker refreshes balances for the tracked owners in the background.
type Worker struct {
	balances     BalanceRefresher
	connectivity ConnectivitySource
	config       Config
	logger       *logger.Logger
	cron         *cron.Cron
	retrier      *retry.Retrier

	mu     sync.Mutex
	owners map[string]struct{}

	stopCh  chan struct{}
	stopped sync.Once
}

// NewWorker creates a balance refresh worker.
func NewWorker(balances BalanceRefresher, connectivity ConnectivitySource, config Config, logger *logger.Logger) *Worker {
	if config.OnChainInterval <= 0 {
		config.OnChainInterval = 15 * time.Second
	}
	if config.PoolSchedule == "" {
		config.PoolSchedule = "@every 20m"
	}
	retrier := retry.NewRetrier(retry.Policy{
		MaxAttempts:  3,
		BaseDelay:    2 * time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2,
		JitterFactor: 0.2,
	}, logger.Zap())
	return &Worker{
		balances:     balances,
		connectivity: connectivity,
		config:       config,
		logger:       logger,
		cron:         cron.New(),
		retrier:      retrier,
		owners:       make(map[string]struct{}),
		stopCh:       make(chan struct{}),
	}
}

// Track adds an owner to the refresh set and refreshes it immediately.
func (w *Worker) Track(ctx context.Context, owner string) {
	if owner == "" {
		return
	}
	w.mu.Lock()
	_, known := w.owners[owner]
	w.owners[owner] = struct{}{}
	w.mu.Unlock()

	if !known {
		if _, err := w.balances.Refresh(ctx, owner); err != nil {
			w.logger.Warn("Initial balance refresh failed", "owner", owner, "error", err)
		}
	}
}

// Untrack stops refreshing an owner.
func (w *Worker) Untrack(owner string) {
	w.mu.Lock()
	delete(w.owners, owner)
	w.mu.Unlock()
}

// Start launches the ticker loop, the pool cron, and the connectivity
// listener.
func (w *Worker) Start(ctx context.Context) error {
	if _, err := w.cron.AddFunc(w.config.PoolSchedule, func() {
		refreshCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		err := w.retrier.Do(refreshCtx, func() error {
			_, rerr := w.balances.RefreshPoolData(refreshCtx)
			return rerr
		})
		if err != nil {
			w.logger.Warn("Scheduled pool data refresh failed", "error", err)
		}
	}); err != nil {
		return err
	}
	w.cron.Start()

	go w.tickLoop(ctx)
	go w.connectivityLoop(ctx)

	w.logger.Info("Balance refresh worker started",
		"onchain_interval", w.config.OnChainInterval, "pool_schedule", w.config.PoolSchedule)
	return nil
}

func (w *Worker) tickLoop(ctx context.Context) {
	ticker := time.NewTicker(w.config.OnChainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			if !w.connectivity.IsOnline() {
				continue
			}
			w.refreshAll(ctx)
		}
	}
}

func (w *Worker) connectivityLoop(ctx context.Context) {
	transitions := w.connectivity.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case online := <-transitions:
			if !online {
				continue
			}
			// figures accumulated while offline are stale now
			w.logger.Info("Connectivity restored, refreshing balances")
			w.refreshAll(ctx)
		}
	}
}

func (w *Worker) refreshAll(ctx context.Context) {
	w.mu.Lock()
	owners := make([]string, 0, len(w.owners))
	for owner := range w.owners {
		owners = append(owners, owner)
	}
	w.mu.Unlock()

	for _, owner := range owners {
		refreshCtx, cancel := context.WithTimeout(ctx, w.config.OnChainInterval)
		if _, err := w.balances.Refresh(refreshCtx, owner); err != nil {
			w.logger.Warn("Background balance refresh failed", "owner", owner, "error", err)
		}
		cancel()
	}
}

// Shutdown stops the loops and the cron scheduler.
func (w *Worker) Shutdown(timeout time.Duration) error {
	w.stopped.Do(func() { close(w.stopCh) })
	cronCtx := w.cron.Stop()
	select {
	case <-cronCtx.Done():
	case <-time.After(timeout):
	}
	return nil
}
