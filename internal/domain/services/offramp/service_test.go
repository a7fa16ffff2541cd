package offramp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/mr-tron/base58"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nimrid/Corre/internal/adapters/pajcash"
	domainerrors "github.com/nimrid/Corre/internal/domain/errors"
	"github.com/nimrid/Corre/internal/domain/services/wallet"
	"github.com/nimrid/Corre/internal/infrastructure/cache"
	"github.com/nimrid/Corre/pkg/logger"
)

const testOwner = "owner-address"

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) InitiateSession(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func (m *MockProvider) VerifySession(ctx context.Context, email, otp string) (*pajcash.SessionResponse, error) {
	args := m.Called(ctx, email, otp)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pajcash.SessionResponse), args.Error(1)
}

func (m *MockProvider) ListBanks(ctx context.Context) ([]pajcash.Bank, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]pajcash.Bank), args.Error(1)
}

func (m *MockProvider) ListBankAccounts(ctx context.Context, token string) ([]pajcash.BankAccount, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]pajcash.BankAccount), args.Error(1)
}

func (m *MockProvider) AddBankAccount(ctx context.Context, token string, req *pajcash.AddBankAccountRequest) (*pajcash.BankAccount, error) {
	args := m.Called(ctx, token, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pajcash.BankAccount), args.Error(1)
}

func (m *MockProvider) ResolveAccount(ctx context.Context, token, bankID, accountNumber string) (*pajcash.ResolvedAccount, error) {
	args := m.Called(ctx, token, bankID, accountNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pajcash.ResolvedAccount), args.Error(1)
}

func (m *MockProvider) GetRate(ctx context.Context, amount string) (*pajcash.RateResponse, error) {
	args := m.Called(ctx, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pajcash.RateResponse), args.Error(1)
}

func (m *MockProvider) GetTxPoolAddress(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockProvider) GetWallet(ctx context.Context, token, publicKey string) (*pajcash.Wallet, error) {
	args := m.Called(ctx, token, publicKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pajcash.Wallet), args.Error(1)
}

func (m *MockProvider) LinkWallet(ctx context.Context, token string, req *pajcash.LinkWalletRequest) (*pajcash.Wallet, error) {
	args := m.Called(ctx, token, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pajcash.Wallet), args.Error(1)
}

func newTestService(t *testing.T, provider Provider) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := cache.NewStore(cache.NewRedisClientFromConn(client, zap.NewNop()), zap.NewNop())
	return NewService(provider, store, time.Hour, logger.NewLogger("test")), mr
}

func establishSession(t *testing.T, svc *Service, provider *MockProvider) {
	t.Helper()
	provider.On("VerifySession", mock.Anything, "user@example.com", "123456").
		Return(&pajcash.SessionResponse{Token: "session-token"}, nil).Once()
	require.NoError(t, svc.CompleteSession(context.Background(), testOwner, "user@example.com", "123456"))
}

func TestCompleteSessionStoresToken(t *testing.T) {
	provider := new(MockProvider)
	svc, _ := newTestService(t, provider)

	establishSession(t, svc, provider)
	assert.True(t, svc.HasSession(context.Background(), testOwner))
	provider.AssertExpectations(t)
}

func TestExpiredSessionForcesReauth(t *testing.T) {
	provider := new(MockProvider)
	svc, mr := newTestService(t, provider)
	ctx := context.Background()

	establishSession(t, svc, provider)
	mr.FastForward(2 * time.Hour)

	assert.False(t, svc.HasSession(ctx, testOwner))

	_, err := svc.BankAccounts(ctx, testOwner)
	require.Error(t, err)
	assert.True(t, domainerrors.IsValidation(err))
	assert.Equal(t, "session expired, verify your email again", domainerrors.UserMessage(err))
	provider.AssertNotCalled(t, "ListBankAccounts", mock.Anything, mock.Anything)
}

func TestBanksAreCached(t *testing.T) {
	provider := new(MockProvider)
	svc, _ := newTestService(t, provider)
	ctx := context.Background()

	provider.On("ListBanks", mock.Anything).
		Return([]pajcash.Bank{{ID: "bank-1", Name: "Test Bank"}}, nil).Once()

	banks, err := svc.Banks(ctx)
	require.NoError(t, err)
	require.Len(t, banks, 1)

	// second call served from the store
	banks, err = svc.Banks(ctx)
	require.NoError(t, err)
	assert.Equal(t, "bank-1", banks[0].ID)
	provider.AssertExpectations(t)
}

func TestAddBankAccountResolvesHolderFirst(t *testing.T) {
	provider := new(MockProvider)
	svc, _ := newTestService(t, provider)
	ctx := context.Background()

	establishSession(t, svc, provider)
	provider.On("ResolveAccount", mock.Anything, "session-token", "bank-1", "0123456789").
		Return(&pajcash.ResolvedAccount{AccountName: "ADA OBI"}, nil)
	provider.On("AddBankAccount", mock.Anything, "session-token", &pajcash.AddBankAccountRequest{
		BankID:        "bank-1",
		AccountNumber: "0123456789",
		AccountName:   "ADA OBI",
	}).Return(&pajcash.BankAccount{ID: "acc-1", AccountName: "ADA OBI"}, nil)

	account, err := svc.AddBankAccount(ctx, testOwner, "bank-1", "0123456789")
	require.NoError(t, err)
	assert.Equal(t, "acc-1", account.ID)
	provider.AssertExpectations(t)
}

func TestQuoteFormatsBaseUnits(t *testing.T) {
	provider := new(MockProvider)
	svc, _ := newTestService(t, provider)

	rate := &pajcash.RateResponse{}
	rate.Rate.Rate.TargetCurrency = 1545.5
	provider.On("GetRate", mock.Anything, "100.00").Return(rate, nil)

	resp, err := svc.Quote(context.Background(), 100_000_000)
	require.NoError(t, err)
	assert.Equal(t, 1545.5, resp.FiatRate())
	provider.AssertExpectations(t)
}

func TestQuoteRejectsZeroAmount(t *testing.T) {
	provider := new(MockProvider)
	svc, _ := newTestService(t, provider)

	_, err := svc.Quote(context.Background(), 0)
	assert.True(t, domainerrors.IsValidation(err))
}

func TestEnsureWalletLinkedSignsPayload(t *testing.T) {
	provider := new(MockProvider)
	svc, _ := newTestService(t, provider)
	ctx := context.Background()

	establishSession(t, svc, provider)
	w := wallet.NewRandomWallet()
	publicKey := w.Address().String()

	provider.On("GetWallet", mock.Anything, "session-token", publicKey).
		Return(nil, pajcash.ErrWalletNotFound)
	provider.On("LinkWallet", mock.Anything, "session-token", mock.MatchedBy(func(req *pajcash.LinkWalletRequest) bool {
		if req.Payload.PublicKey != publicKey || req.Payload.AccountID != "acc-1" {
			return false
		}
		// signature must verify against the JSON payload
		message, err := json.Marshal(req.Payload)
		if err != nil {
			return false
		}
		sig, err := base58.Decode(req.Signature)
		if err != nil {
			return false
		}
		expected, err := w.SignMessage(context.Background(), message)
		if err != nil {
			return false
		}
		return string(sig) == string(expected)
	})).Return(&pajcash.Wallet{PublicKey: publicKey, AccountID: "acc-1"}, nil)

	require.NoError(t, svc.EnsureWalletLinked(ctx, testOwner, w, "acc-1"))
	provider.AssertExpectations(t)
}

func TestEnsureWalletLinkedSkipsWhenAlreadyLinked(t *testing.T) {
	provider := new(MockProvider)
	svc, _ := newTestService(t, provider)

	establishSession(t, svc, provider)
	w := wallet.NewRandomWallet()

	provider.On("GetWallet", mock.Anything, "session-token", w.Address().String()).
		Return(&pajcash.Wallet{PublicKey: w.Address().String(), AccountID: "acc-1"}, nil)

	require.NoError(t, svc.EnsureWalletLinked(context.Background(), testOwner, w, "acc-1"))
	provider.AssertNotCalled(t, "LinkWallet", mock.Anything, mock.Anything, mock.Anything)
}

func TestProviderMessageSurfacesVerbatim(t *testing.T) {
	provider := new(MockProvider)
	svc, _ := newTestService(t, provider)

	provider.On("ListBanks", mock.Anything).
		Return(nil, &pajcash.ErrorResponse{Message: "service under maintenance", StatusCode: 503})

	_, err := svc.Banks(context.Background())
	require.Error(t, err)
	assert.True(t, domainerrors.IsUpstream(err))
	assert.Equal(t, "service under maintenance", domainerrors.UserMessage(err))
}
