// Package balance aggregates wallet and pool holdings into consistent
// snapshots. A snapshot is assembled from independent sources and each
// source degrades on its own: one failing upstream marks its slice
// stale instead of blanking everything.
package balance

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/nimrid/Corre/internal/adapters/lulo"
	"github.com/nimrid/Corre/internal/adapters/solanarpc"
	"github.com/nimrid/Corre/internal/domain/entities"
	domainerrors "github.com/nimrid/Corre/internal/domain/errors"
	"github.com/nimrid/Corre/internal/infrastructure/cache"
	"github.com/nimrid/Corre/pkg/logger"
	"github.com/nimrid/Corre/pkg/metrics"
)

const (
	snapshotKeyPrefix = "balance:snapshot:"
	poolDataKey       = "pools:data"
)

// ChainReader reads token holdings from the chain. GetTokenAccounts
// returns every token account the owner holds in one call; the service
// buckets them by mint itself.
type ChainReader interface {
	GetTokenAccounts(ctx context.Context, owner string) ([]solanarpc.TokenAccount, error)
}

// PoolReader reads pool rates and per-owner pool balances.
type PoolReader interface {
	GetPools(ctx context.Context) (*lulo.PoolsResponse, error)
	GetAccount(ctx context.Context, owner string) (*lulo.AccountResponse, error)
}

// OnlineChecker reports current connectivity.
type OnlineChecker interface {
	IsOnline() bool
}

// inflight tracks one refresh in progress so concurrent callers for
// the same owner share a single fetch instead of stacking requests.
type inflight struct {
	done chan struct{}
	snap *entities.BalanceSnapshot
	err  error
}

// Service aggregates balances across the chain and the lending pools.
type Service struct {
	rpc          ChainReader
	pools        PoolReader
	store        *cache.Store
	connectivity OnlineChecker
	tokens       map[entities.Asset]string // asset -> mint
	poolDataTTL  time.Duration
	logger       *logger.Logger

	mu       sync.Mutex
	inflight map[string]*inflight
}

// NewService creates a balance service.
func NewService(
	rpc ChainReader,
	pools PoolReader,
	store *cache.Store,
	connectivity OnlineChecker,
	tokens map[entities.Asset]string,
	poolDataTTL time.Duration,
	logger *logger.Logger,
) *Service {
	if poolDataTTL <= 0 {
		poolDataTTL = 20 * time.Minute
	}
	return &Service{
		rpc:          rpc,
		pools:        pools,
		store:        store,
		connectivity: connectivity,
		tokens:       tokens,
		poolDataTTL:  poolDataTTL,
		logger:       logger,
		inflight:     make(map[string]*inflight),
	}
}

// Snapshot returns the owner's balances, preferring the cached
// snapshot and fetching fresh only on a miss. An empty owner returns
// the last cached snapshot if any, never an error.
func (s *Service) Snapshot(ctx context.Context, owner string) (*entities.BalanceSnapshot, error) {
	if owner == "" {
		return nil, domainerrors.ValidationError("owner", "owner address is required")
	}

	var snap entities.BalanceSnapshot
	if err := s.store.Get(ctx, snapshotKeyPrefix+owner, &snap); err == nil {
		return &snap, nil
	}
	return s.Refresh(ctx, owner)
}

// Refresh fetches balances from every source and stores the combined
// snapshot. Concurrent refreshes for the same owner coalesce into one
// fetch whose result all callers share.
func (s *Service) Refresh(ctx context.Context, owner string) (*entities.BalanceSnapshot, error) {
	if owner == "" {
		return nil, domainerrors.ValidationError("owner", "owner address is required")
	}

	s.mu.Lock()
	if fl, ok := s.inflight[owner]; ok {
		s.mu.Unlock()
		select {
		case <-fl.done:
			return fl.snap, fl.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	fl := &inflight{done: make(chan struct{})}
	s.inflight[owner] = fl
	s.mu.Unlock()

	fl.snap, fl.err = s.fetch(ctx, owner)
	close(fl.done)

	s.mu.Lock()
	delete(s.inflight, owner)
	s.mu.Unlock()

	return fl.snap, fl.err
}

// Invalidate drops the cached snapshot so the next read fetches fresh.
func (s *Service) Invalidate(ctx context.Context, owner string) error {
	return s.store.Invalidate(ctx, snapshotKeyPrefix+owner)
}

// InvalidateAndRefresh is the post-confirmation hook: stale figures
// are dropped first so no reader sees them while the refetch runs.
func (s *Service) InvalidateAndRefresh(ctx context.Context, owner string) (*entities.BalanceSnapshot, error) {
	if err := s.Invalidate(ctx, owner); err != nil {
		s.logger.Warn("Snapshot invalidation failed", "owner", owner, "error", err)
	}
	return s.Refresh(ctx, owner)
}

func (s *Service) fetch(ctx context.Context, owner string) (*entities.BalanceSnapshot, error) {
	if !s.connectivity.IsOnline() {
		// offline: serve the last snapshot rather than a doomed fetch
		var snap entities.BalanceSnapshot
		if err := s.store.Get(ctx, snapshotKeyPrefix+owner, &snap); err == nil {
			return &snap, nil
		}
		return nil, domainerrors.UpstreamError("rpc", "cannot fetch balances while offline", nil)
	}

	snap := &entities.BalanceSnapshot{
		Owner:   owner,
		Assets:  make([]entities.AssetBalance, 0, len(s.tokens)),
		Pools:   []entities.PoolBalance{},
		Sources: make(map[entities.BalanceSource]entities.SourceStatus),
		TakenAt: time.Now().UTC(),
	}

	s.fetchChain(ctx, owner, snap)
	s.fetchPools(ctx, owner, snap)

	if snap.Sources[entities.BalanceSourceChain] == entities.SourceStatusError &&
		snap.Sources[entities.BalanceSourceLulo] == entities.SourceStatusError {
		return nil, domainerrors.UpstreamError("balance", "all balance sources failed", nil)
	}

	if err := s.store.Set(ctx, snapshotKeyPrefix+owner, snap, 0); err != nil {
		s.logger.Warn("Snapshot store failed", "owner", owner, "error", err)
	}
	return snap, nil
}

func (s *Service) fetchChain(ctx context.Context, owner string, snap *entities.BalanceSnapshot) {
	timer := prometheus.NewTimer(metrics.BalanceRefreshDuration.WithLabelValues("chain"))
	defer timer.ObserveDuration()

	// One RPC round trip covers every watched mint; accounts for mints
	// we do not track are simply skipped.
	accounts, err := s.rpc.GetTokenAccounts(ctx, owner)
	if err != nil {
		s.logger.Warn("Chain balance fetch failed", "owner", owner, "error", err)
		metrics.BalanceRefreshTotal.WithLabelValues("chain", "error").Inc()
		snap.Sources[entities.BalanceSourceChain] = entities.SourceStatusError
		s.fillChainFromCache(ctx, owner, snap)
		return
	}

	totals := make(map[string]uint64, len(s.tokens))
	for _, acc := range accounts {
		units, perr := strconv.ParseUint(acc.Amount, 10, 64)
		if perr != nil {
			s.logger.Warn("Unparseable token amount", "account", acc.Address, "amount", acc.Amount)
			continue
		}
		totals[acc.Mint] += units
	}

	assets := make([]entities.AssetBalance, 0, len(s.tokens))
	for asset, mint := range s.tokens {
		assets = append(assets, entities.NewAssetBalance(asset, mint, totals[mint], entities.StablecoinDecimals))
	}

	sort.Slice(assets, func(i, j int) bool { return assets[i].Asset < assets[j].Asset })
	snap.Assets = assets
	snap.Sources[entities.BalanceSourceChain] = entities.SourceStatusOK
	metrics.BalanceRefreshTotal.WithLabelValues("chain", "ok").Inc()
}

// fillChainFromCache keeps the previous chain figures, marked stale,
// when the live fetch fails.
func (s *Service) fillChainFromCache(ctx context.Context, owner string, snap *entities.BalanceSnapshot) {
	var prev entities.BalanceSnapshot
	if err := s.store.Get(ctx, snapshotKeyPrefix+owner, &prev); err != nil {
		return
	}
	snap.Assets = prev.Assets
	snap.Sources[entities.BalanceSourceChain] = entities.SourceStatusStale
}

func (s *Service) fetchPools(ctx context.Context, owner string, snap *entities.BalanceSnapshot) {
	timer := prometheus.NewTimer(metrics.BalanceRefreshDuration.WithLabelValues("lulo"))
	defer timer.ObserveDuration()

	account, err := s.pools.GetAccount(ctx, owner)
	if err != nil {
		s.logger.Warn("Pool balance fetch failed", "owner", owner, "error", err)
		metrics.BalanceRefreshTotal.WithLabelValues("lulo", "error").Inc()
		snap.Sources[entities.BalanceSourceLulo] = entities.SourceStatusError
		s.fillPoolsFromCache(ctx, owner, snap)
		return
	}

	snap.Pools = []entities.PoolBalance{
		poolBalance(entities.PoolKindRegular, account.RegularBalance),
		poolBalance(entities.PoolKindProtected, account.ProtectedBalance),
	}
	snap.Sources[entities.BalanceSourceLulo] = entities.SourceStatusOK
	metrics.BalanceRefreshTotal.WithLabelValues("lulo", "ok").Inc()
}

func (s *Service) fillPoolsFromCache(ctx context.Context, owner string, snap *entities.BalanceSnapshot) {
	var prev entities.BalanceSnapshot
	if err := s.store.Get(ctx, snapshotKeyPrefix+owner, &prev); err != nil {
		return
	}
	snap.Pools = prev.Pools
	snap.Sources[entities.BalanceSourceLulo] = entities.SourceStatusStale
}

// baseUnits converts a display-unit upstream figure into base units.
// Going through decimal avoids the float truncation that turns 0.29
// into 289999.
func baseUnits(displayAmount float64) uint64 {
	return uint64(decimal.NewFromFloat(displayAmount).Shift(entities.StablecoinDecimals).Round(0).IntPart())
}

// poolBalance converts a display-unit pool figure into base units.
func poolBalance(kind entities.PoolKind, displayAmount float64) entities.PoolBalance {
	units := baseUnits(displayAmount)
	return entities.PoolBalance{
		Pool:      kind,
		Asset:     entities.AssetUSDC,
		BaseUnits: units,
		Display:   entities.FormatBaseUnits(units, entities.StablecoinDecimals),
	}
}

// PoolData returns the cached pool dataset, fetching fresh on a miss.
// A corrupt or version-mismatched record reads as a miss, so the data
// and its fetch time always come from the same write.
func (s *Service) PoolData(ctx context.Context) (*entities.PoolData, error) {
	var data entities.PoolData
	if err := s.store.Get(ctx, poolDataKey, &data); err == nil {
		return &data, nil
	}
	return s.RefreshPoolData(ctx)
}

// RefreshPoolData fetches pool rates and stores them as one record
// with the configured TTL.
func (s *Service) RefreshPoolData(ctx context.Context) (*entities.PoolData, error) {
	resp, err := s.pools.GetPools(ctx)
	if err != nil {
		// expired data beats no data when the upstream is down
		var stale entities.PoolData
		if cerr := s.store.Get(ctx, poolDataKey, &stale); cerr == nil {
			return &stale, nil
		}
		var apiErr *lulo.ErrorResponse
		if errors.As(err, &apiErr) {
			return nil, domainerrors.UpstreamError("lulo", apiErr.Error(), err)
		}
		return nil, domainerrors.UpstreamError("lulo", "", err)
	}

	data := &entities.PoolData{
		Pools: []entities.PoolDescriptor{
			descriptor(entities.PoolKindRegular, resp.Regular),
			descriptor(entities.PoolKindProtected, resp.Protected),
		},
		FetchedAt: time.Now().UTC(),
	}

	if err := s.store.Set(ctx, poolDataKey, data, s.poolDataTTL); err != nil {
		s.logger.Warn("Pool data store failed", "error", err)
	}
	return data, nil
}

func descriptor(kind entities.PoolKind, p lulo.Pool) entities.PoolDescriptor {
	return entities.PoolDescriptor{
		Kind:                kind,
		APY:                 p.APY,
		MaxWithdrawalAmount: baseUnits(p.MaxWithdrawalAmount),
		OpenCapacity:        baseUnits(p.OpenCapacity),
		Price:               p.Price,
	}
}

// SnapshotKey exposes the cache key for an owner, used by tests.
func SnapshotKey(owner string) string {
	return fmt.Sprintf("%s%s", snapshotKeyPrefix, owner)
}
