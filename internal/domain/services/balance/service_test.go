package balance

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nimrid/Corre/internal/adapters/lulo"
	"github.com/nimrid/Corre/internal/adapters/solanarpc"
	"github.com/nimrid/Corre/internal/domain/entities"
	"github.com/nimrid/Corre/internal/infrastructure/cache"
	"github.com/nimrid/Corre/pkg/logger"
)

const (
	testOwner = "owner-address"
	usdcMint  = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

type fakeChain struct {
	mu       sync.Mutex
	accounts []solanarpc.TokenAccount
	err      error
	calls    int32
	block    chan struct{}
}

func (f *fakeChain) GetTokenAccounts(_ context.Context, owner string) ([]solanarpc.TokenAccount, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.accounts, nil
}

type fakePools struct {
	pools   *lulo.PoolsResponse
	account *lulo.AccountResponse
	err     error
	calls   int32
}

func (f *fakePools) GetPools(context.Context) (*lulo.PoolsResponse, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	return f.pools, nil
}

func (f *fakePools) GetAccount(context.Context, string) (*lulo.AccountResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.account, nil
}

type alwaysOnline struct{ online bool }

func (a alwaysOnline) IsOnline() bool { return a.online }

func newTestService(t *testing.T, chain *fakeChain, pools *fakePools, online bool) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := cache.NewStore(cache.NewRedisClientFromConn(client, zap.NewNop()), zap.NewNop())
	svc := NewService(chain, pools, store, alwaysOnline{online},
		map[entities.Asset]string{entities.AssetUSDC: usdcMint},
		time.Minute, logger.NewLogger("test"))
	return svc, mr
}

func defaultPools() *fakePools {
	return &fakePools{
		pools: &lulo.PoolsResponse{
			Regular:   lulo.Pool{Type: "regular", APY: 9.5},
			Protected: lulo.Pool{Type: "protected", APY: 5.2},
		},
		account: &lulo.AccountResponse{RegularBalance: 10, ProtectedBalance: 2.5},
	}
}

func TestRefreshAggregatesSources(t *testing.T) {
	chain := &fakeChain{accounts: []solanarpc.TokenAccount{
		{Mint: usdcMint, Amount: "12500000", Decimals: 6},
	}}
	svc, _ := newTestService(t, chain, defaultPools(), true)

	snap, err := svc.Refresh(context.Background(), testOwner)
	require.NoError(t, err)
	require.Len(t, snap.Assets, 1)
	assert.Equal(t, "12.50", snap.Assets[0].Display)
	assert.Equal(t, entities.SourceStatusOK, snap.Sources[entities.BalanceSourceChain])
	assert.Equal(t, entities.SourceStatusOK, snap.Sources[entities.BalanceSourceLulo])
	assert.Equal(t, "25.00", snap.TotalDisplay())
}

func TestZeroAccountsReadsAsZeroBalance(t *testing.T) {
	chain := &fakeChain{}
	svc, _ := newTestService(t, chain, defaultPools(), true)

	snap, err := svc.Refresh(context.Background(), testOwner)
	require.NoError(t, err)
	require.Len(t, snap.Assets, 1)
	assert.Equal(t, "0.00", snap.Assets[0].Display)
	assert.Equal(t, uint64(0), snap.Assets[0].BaseUnits)
}

func TestSingleChainCallCoversAllMints(t *testing.T) {
	usdtMint := "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"
	chain := &fakeChain{accounts: []solanarpc.TokenAccount{
		{Mint: usdcMint, Amount: "4000000", Decimals: 6},
		{Mint: usdcMint, Amount: "1000000", Decimals: 6},
		{Mint: usdtMint, Amount: "2000000", Decimals: 6},
		{Mint: "unwatched-mint", Amount: "7000000", Decimals: 6},
	}}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := cache.NewStore(cache.NewRedisClientFromConn(client, zap.NewNop()), zap.NewNop())
	svc := NewService(chain, defaultPools(), store, alwaysOnline{true},
		map[entities.Asset]string{entities.AssetUSDC: usdcMint, entities.AssetUSDT: usdtMint},
		time.Minute, logger.NewLogger("test"))

	snap, err := svc.Refresh(context.Background(), testOwner)
	require.NoError(t, err)

	// one round trip serves every watched mint; accounts under other
	// mints are ignored
	assert.Equal(t, int32(1), atomic.LoadInt32(&chain.calls))
	require.Len(t, snap.Assets, 2)
	assert.Equal(t, entities.AssetUSDC, snap.Assets[0].Asset)
	assert.Equal(t, "5.00", snap.Assets[0].Display)
	assert.Equal(t, entities.AssetUSDT, snap.Assets[1].Asset)
	assert.Equal(t, "2.00", snap.Assets[1].Display)
}

func TestPoolFiguresConvertWithoutTruncation(t *testing.T) {
	chain := &fakeChain{}
	pools := defaultPools()
	pools.account = &lulo.AccountResponse{RegularBalance: 0.29, ProtectedBalance: 1.01}
	svc, _ := newTestService(t, chain, pools, true)

	snap, err := svc.Refresh(context.Background(), testOwner)
	require.NoError(t, err)
	require.Len(t, snap.Pools, 2)
	assert.Equal(t, uint64(290_000), snap.Pools[0].BaseUnits)
	assert.Equal(t, "0.29", snap.Pools[0].Display)
	assert.Equal(t, uint64(1_010_000), snap.Pools[1].BaseUnits)
}

func TestPoolDescriptorLimitsConvertWithoutTruncation(t *testing.T) {
	pools := defaultPools()
	pools.pools.Regular.MaxWithdrawalAmount = 123.45
	pools.pools.Regular.OpenCapacity = 0.29
	svc, _ := newTestService(t, &fakeChain{}, pools, true)

	data, err := svc.RefreshPoolData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(123_450_000), data.Pools[0].MaxWithdrawalAmount)
	assert.Equal(t, uint64(290_000), data.Pools[0].OpenCapacity)
}

func TestPoolSourceFailureDegradesOnlyPools(t *testing.T) {
	chain := &fakeChain{accounts: []solanarpc.TokenAccount{
		{Mint: usdcMint, Amount: "5000000", Decimals: 6},
	}}
	pools := &fakePools{err: errors.New("lulo down")}
	svc, _ := newTestService(t, chain, pools, true)

	snap, err := svc.Refresh(context.Background(), testOwner)
	require.NoError(t, err)
	assert.Equal(t, entities.SourceStatusOK, snap.Sources[entities.BalanceSourceChain])
	assert.Equal(t, entities.SourceStatusError, snap.Sources[entities.BalanceSourceLulo])
	assert.Equal(t, "5.00", snap.Assets[0].Display)
}

func TestAllSourcesFailingReturnsError(t *testing.T) {
	chain := &fakeChain{err: errors.New("rpc down")}
	pools := &fakePools{err: errors.New("lulo down")}
	svc, _ := newTestService(t, chain, pools, true)

	_, err := svc.Refresh(context.Background(), testOwner)
	assert.Error(t, err)
}

func TestConcurrentRefreshesCoalesce(t *testing.T) {
	chain := &fakeChain{
		accounts: []solanarpc.TokenAccount{{Mint: usdcMint, Amount: "1", Decimals: 6}},
		block:    make(chan struct{}),
	}
	svc, _ := newTestService(t, chain, defaultPools(), true)

	const callers = 5
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			svc.Refresh(context.Background(), testOwner)
		}()
	}

	// let the goroutines pile up behind the first fetch
	time.Sleep(50 * time.Millisecond)
	close(chain.block)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&chain.calls))
}

func TestSnapshotPrefersCache(t *testing.T) {
	chain := &fakeChain{accounts: []solanarpc.TokenAccount{
		{Mint: usdcMint, Amount: "1000000", Decimals: 6},
	}}
	svc, _ := newTestService(t, chain, defaultPools(), true)

	_, err := svc.Refresh(context.Background(), testOwner)
	require.NoError(t, err)
	before := atomic.LoadInt32(&chain.calls)

	_, err = svc.Snapshot(context.Background(), testOwner)
	require.NoError(t, err)
	assert.Equal(t, before, atomic.LoadInt32(&chain.calls))
}

func TestOfflineServesLastSnapshot(t *testing.T) {
	chain := &fakeChain{accounts: []solanarpc.TokenAccount{
		{Mint: usdcMint, Amount: "3000000", Decimals: 6},
	}}
	pools := defaultPools()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := cache.NewStore(cache.NewRedisClientFromConn(client, zap.NewNop()), zap.NewNop())
	tokens := map[entities.Asset]string{entities.AssetUSDC: usdcMint}

	online := NewService(chain, pools, store, alwaysOnline{true}, tokens, time.Minute, logger.NewLogger("test"))
	_, err := online.Refresh(context.Background(), testOwner)
	require.NoError(t, err)

	offline := NewService(chain, pools, store, alwaysOnline{false}, tokens, time.Minute, logger.NewLogger("test"))
	snap, err := offline.Refresh(context.Background(), testOwner)
	require.NoError(t, err)
	assert.Equal(t, "3.00", snap.Assets[0].Display)
}

func TestInvalidateForcesRefetch(t *testing.T) {
	chain := &fakeChain{accounts: []solanarpc.TokenAccount{
		{Mint: usdcMint, Amount: "1000000", Decimals: 6},
	}}
	svc, _ := newTestService(t, chain, defaultPools(), true)
	ctx := context.Background()

	_, err := svc.Refresh(ctx, testOwner)
	require.NoError(t, err)

	chain.mu.Lock()
	chain.accounts = []solanarpc.TokenAccount{{Mint: usdcMint, Amount: "9000000", Decimals: 6}}
	chain.mu.Unlock()

	snap, err := svc.InvalidateAndRefresh(ctx, testOwner)
	require.NoError(t, err)
	assert.Equal(t, "9.00", snap.Assets[0].Display)
}

func TestPoolDataCachedUntilTTL(t *testing.T) {
	pools := defaultPools()
	svc, mr := newTestService(t, &fakeChain{}, pools, true)
	ctx := context.Background()

	data, err := svc.PoolData(ctx)
	require.NoError(t, err)
	require.Len(t, data.Pools, 2)
	first := atomic.LoadInt32(&pools.calls)

	// within TTL: served from the store
	_, err = svc.PoolData(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, atomic.LoadInt32(&pools.calls))

	// after TTL: refetched
	mr.FastForward(2 * time.Minute)
	_, err = svc.PoolData(ctx)
	require.NoError(t, err)
	assert.Equal(t, first+1, atomic.LoadInt32(&pools.calls))
}

func TestEmptyOwnerRejected(t *testing.T) {
	svc, _ := newTestService(t, &fakeChain{}, defaultPools(), true)

	_, err := svc.Refresh(context.Background(), "")
	assert.Error(t, err)
	_, err = svc.Snapshot(context.Background(), "")
	assert.Error(t, err)
}
