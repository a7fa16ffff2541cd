// Package handlers exposes the HTTP surface: balances, pools,
// transfers, the off-ramp flow, and billing records.
package handlers

import (
	"context"

	"github.com/nimrid/Corre/internal/domain/entities"
	"github.com/nimrid/Corre/internal/domain/services/billing"
	"github.com/nimrid/Corre/internal/domain/services/offramp"
	"github.com/nimrid/Corre/internal/domain/services/orchestrator"
	"github.com/nimrid/Corre/internal/domain/services/wallet"
	"github.com/nimrid/Corre/pkg/logger"
)

// BalanceService is the balance surface the handlers need.
type BalanceService interface {
	Snapshot(ctx context.Context, owner string) (*entities.BalanceSnapshot, error)
	Refresh(ctx context.Context, owner string) (*entities.BalanceSnapshot, error)
	PoolData(ctx context.Context) (*entities.PoolData, error)
}

// OwnerTracker registers owners for background refresh.
type OwnerTracker interface {
	Track(ctx context.Context, owner string)
}

// ReadinessChecker reports whether a dependency is reachable.
type ReadinessChecker interface {
	Ping(ctx context.Context) error
}

// OnlineChecker reports current connectivity.
type OnlineChecker interface {
	IsOnline() bool
}

// Handlers carries every service the HTTP layer fronts.
type Handlers struct {
	wallet       wallet.Wallet
	balances     BalanceService
	operations   *orchestrator.Sources
	engine       *orchestrator.Orchestrator
	offramp      *offramp.Service
	billing      *billing.Service
	tracker      OwnerTracker
	store        ReadinessChecker
	connectivity OnlineChecker
	logger       *logger.Logger
}

// New creates the handler set.
func New(
	w wallet.Wallet,
	balances BalanceService,
	operations *orchestrator.Sources,
	engine *orchestrator.Orchestrator,
	offrampSvc *offramp.Service,
	billingSvc *billing.Service,
	tracker OwnerTracker,
	store ReadinessChecker,
	connectivity OnlineChecker,
	logger *logger.Logger,
) *Handlers {
	return &Handlers{
		wallet:       w,
		balances:     balances,
		operations:   operations,
		engine:       engine,
		offramp:      offrampSvc,
		billing:      billingSvc,
		tracker:      tracker,
		store:        store,
		connectivity: connectivity,
		logger:       logger,
	}
}

// owner returns the connected wallet's address.
func (h *Handlers) owner() string {
	return h.wallet.Address().String()
}
