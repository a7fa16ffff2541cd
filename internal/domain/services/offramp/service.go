// Package offramp manages the fiat payout provider: OTP sessions,
// payout banks and accounts, rate quotes, and wallet linking.
package offramp

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/mr-tron/base58"
	"github.com/sony/gobreaker"

	"github.com/nimrid/Corre/internal/adapters/pajcash"
	"github.com/nimrid/Corre/internal/domain/entities"
	domainerrors "github.com/nimrid/Corre/internal/domain/errors"
	"github.com/nimrid/Corre/internal/domain/services/wallet"
	"github.com/nimrid/Corre/internal/infrastructure/cache"
	"github.com/nimrid/Corre/pkg/logger"
)

const (
	sessionKeyPrefix = "offramp:session:"
	banksKey         = "offramp:banks"
	banksTTL         = 6 * time.Hour
)

// Provider is the payout provider API surface this service needs.
type Provider interface {
	InitiateSession(ctx context.Context, email string) error
	VerifySession(ctx context.Context, email, otp string) (*pajcash.SessionResponse, error)
	ListBanks(ctx context.Context) ([]pajcash.Bank, error)
	ListBankAccounts(ctx context.Context, token string) ([]pajcash.BankAccount, error)
	AddBankAccount(ctx context.Context, token string, req *pajcash.AddBankAccountRequest) (*pajcash.BankAccount, error)
	ResolveAccount(ctx context.Context, token, bankID, accountNumber string) (*pajcash.ResolvedAccount, error)
	GetRate(ctx context.Context, amount string) (*pajcash.RateResponse, error)
	GetTxPoolAddress(ctx context.Context) (string, error)
	GetWallet(ctx context.Context, token, publicKey string) (*pajcash.Wallet, error)
	LinkWallet(ctx context.Context, token string, req *pajcash.LinkWalletRequest) (*pajcash.Wallet, error)
}

// session is the stored provider session.
type session struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

// Service wraps the payout provider with session storage and a
// circuit breaker.
type Service struct {
	provider   Provider
	store      *cache.Store
	sessionTTL time.Duration
	breaker    *gobreaker.CircuitBreaker
	logger     *logger.Logger
}

// NewService creates an off-ramp service.
func NewService(provider Provider, store *cache.Store, sessionTTL time.Duration, logger *logger.Logger) *Service {
	if sessionTTL <= 0 {
		sessionTTL = time.Hour
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "pajcash",
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})
	return &Service{
		provider:   provider,
		store:      store,
		sessionTTL: sessionTTL,
		breaker:    breaker,
		logger:     logger,
	}
}

// StartSession begins the email OTP flow.
func (s *Service) StartSession(ctx context.Context, owner, email string) error {
	if email == "" {
		return domainerrors.ValidationError("email", "email is required")
	}
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.provider.InitiateSession(ctx, email)
	})
	if err != nil {
		return s.wrapProviderError(err)
	}
	return nil
}

// CompleteSession verifies the OTP and stores the session token with
// the configured TTL. Expired tokens read as absent, which forces a
// fresh OTP flow.
func (s *Service) CompleteSession(ctx context.Context, owner, email, otp string) error {
	if otp == "" {
		return domainerrors.ValidationError("otp", "verification code is required")
	}
	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.provider.VerifySession(ctx, email, otp)
	})
	if err != nil {
		return s.wrapProviderError(err)
	}
	resp := result.(*pajcash.SessionResponse)

	sess := session{Email: email, Token: resp.Token}
	if err := s.store.Set(ctx, sessionKeyPrefix+owner, sess, s.sessionTTL); err != nil {
		return domainerrors.InternalError("failed to store session", err)
	}
	s.logger.Info("Off-ramp session established", "owner", owner)
	return nil
}

// HasSession reports whether the owner holds a live session.
func (s *Service) HasSession(ctx context.Context, owner string) bool {
	var sess session
	return s.store.Get(ctx, sessionKeyPrefix+owner, &sess) == nil
}

// token retrieves the owner's session token or a validation error
// telling them to sign in again.
func (s *Service) token(ctx context.Context, owner string) (string, error) {
	var sess session
	if err := s.store.Get(ctx, sessionKeyPrefix+owner, &sess); err != nil {
		return "", domainerrors.New(domainerrors.KindValidation, "session expired, verify your email again")
	}
	return sess.Token, nil
}

// Banks lists payout banks, cached since the list rarely changes.
func (s *Service) Banks(ctx context.Context) ([]pajcash.Bank, error) {
	var banks []pajcash.Bank
	if err := s.store.Get(ctx, banksKey, &banks); err == nil {
		return banks, nil
	}

	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.provider.ListBanks(ctx)
	})
	if err != nil {
		return nil, s.wrapProviderError(err)
	}
	banks = result.([]pajcash.Bank)

	if err := s.store.Set(ctx, banksKey, banks, banksTTL); err != nil {
		s.logger.Warn("Bank list store failed", "error", err)
	}
	return banks, nil
}

// BankAccounts lists the owner's saved payout accounts.
func (s *Service) BankAccounts(ctx context.Context, owner string) ([]pajcash.BankAccount, error) {
	token, err := s.token(ctx, owner)
	if err != nil {
		return nil, err
	}
	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.provider.ListBankAccounts(ctx, token)
	})
	if err != nil {
		return nil, s.wrapProviderError(err)
	}
	return result.([]pajcash.BankAccount), nil
}

// AddBankAccount resolves the account holder first, then saves the
// account under the resolved name.
func (s *Service) AddBankAccount(ctx context.Context, owner, bankID, accountNumber string) (*pajcash.BankAccount, error) {
	if bankID == "" || accountNumber == "" {
		return nil, domainerrors.ValidationError("bank_account", "bank and account number are required")
	}
	token, err := s.token(ctx, owner)
	if err != nil {
		return nil, err
	}

	resolved, err := s.ResolveAccount(ctx, owner, bankID, accountNumber)
	if err != nil {
		return nil, err
	}

	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.provider.AddBankAccount(ctx, token, &pajcash.AddBankAccountRequest{
			BankID:        bankID,
			AccountNumber: accountNumber,
			AccountName:   resolved.AccountName,
		})
	})
	if err != nil {
		return nil, s.wrapProviderError(err)
	}
	return result.(*pajcash.BankAccount), nil
}

// ResolveAccount looks up the holder name for an account number.
func (s *Service) ResolveAccount(ctx context.Context, owner, bankID, accountNumber string) (*pajcash.ResolvedAccount, error) {
	token, err := s.token(ctx, owner)
	if err != nil {
		return nil, err
	}
	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.provider.ResolveAccount(ctx, token, bankID, accountNumber)
	})
	if err != nil {
		return nil, s.wrapProviderError(err)
	}
	return result.(*pajcash.ResolvedAccount), nil
}

// Quote returns the fiat payout for a stablecoin amount in base units.
func (s *Service) Quote(ctx context.Context, amount uint64) (*pajcash.RateResponse, error) {
	if amount == 0 {
		return nil, domainerrors.ValidationError("amount", "amount must be positive")
	}
	display := entities.FormatBaseUnits(amount, entities.StablecoinDecimals)
	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.provider.GetRate(ctx, display)
	})
	if err != nil {
		return nil, s.wrapProviderError(err)
	}
	return result.(*pajcash.RateResponse), nil
}

// PoolAddress returns the provider wallet that receives off-ramp funds.
func (s *Service) PoolAddress(ctx context.Context) (string, error) {
	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.provider.GetTxPoolAddress(ctx)
	})
	if err != nil {
		return "", s.wrapProviderError(err)
	}
	return result.(string), nil
}

// EnsureWalletLinked checks the wallet's link status and links it on
// first use. Linking signs a timestamped payload so the provider can
// verify key control.
func (s *Service) EnsureWalletLinked(ctx context.Context, owner string, w wallet.Wallet, accountID string) error {
	token, err := s.token(ctx, owner)
	if err != nil {
		return err
	}
	publicKey := w.Address().String()

	_, err = s.provider.GetWallet(ctx, token, publicKey)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pajcash.ErrWalletNotFound) {
		return s.wrapProviderError(err)
	}

	payload := pajcash.LinkWalletPayload{
		PublicKey: publicKey,
		AccountID: accountID,
		Timestamp: time.Now().Unix(),
	}
	message, err := json.Marshal(payload)
	if err != nil {
		return domainerrors.InternalError("failed to encode link payload", err)
	}

	signature, err := w.SignMessage(ctx, message)
	if err != nil {
		return domainerrors.SigningError(err)
	}

	_, err = s.provider.LinkWallet(ctx, token, &pajcash.LinkWalletRequest{
		Payload:   payload,
		Signature: base58.Encode(signature),
	})
	if err != nil {
		return s.wrapProviderError(err)
	}

	s.logger.Info("Wallet linked to off-ramp account", "owner", owner)
	return nil
}

// wrapProviderError converts provider and breaker failures into the
// domain taxonomy, keeping the provider's own message when it sent one.
func (s *Service) wrapProviderError(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return domainerrors.UpstreamError("pajcash", "payout provider temporarily unavailable", err)
	}
	var apiErr *pajcash.ErrorResponse
	if errors.As(err, &apiErr) {
		return domainerrors.UpstreamError("pajcash", apiErr.Message, err)
	}
	return domainerrors.UpstreamError("pajcash", "", err)
}
