package pajcash

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/nimrid/Corre/pkg/logger"
)

// ErrWalletNotFound indicates the wallet has not been linked to an
// off-ramp account yet.
var ErrWalletNotFound = errors.New("wallet not linked")

// Config represents PAJ cash API configuration
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client is a client for the PAJ cash off-ramp API
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient creates a new PAJ cash API client
func NewClient(config Config, logger *logger.Logger) *Client {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api-staging.paj.cash"
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger,
	}
}

// InitiateSession starts an email OTP flow.
func (c *Client) InitiateSession(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	if err := c.doRequest(ctx, http.MethodPost, "/pub/initiate", "", body, nil); err != nil {
		return fmt.Errorf("initiate session failed: %w", err)
	}
	return nil
}

// VerifySession exchanges the OTP for a session token.
func (c *Client) VerifySession(ctx context.Context, email, otp string) (*SessionResponse, error) {
	body := map[string]string{"email": email, "otp": otp}
	var resp SessionResponse
	if err := c.doRequest(ctx, http.MethodPost, "/pub/verify", "", body, &resp); err != nil {
		return nil, fmt.Errorf("verify session failed: %w", err)
	}
	if resp.Token == "" {
		return nil, fmt.Errorf("verify session returned no token")
	}
	return &resp, nil
}

// ListBanks returns the supported payout banks.
func (c *Client) ListBanks(ctx context.Context) ([]Bank, error) {
	var resp []Bank
	if err := c.doRequest(ctx, http.MethodGet, "/pub/bank", "", nil, &resp); err != nil {
		return nil, fmt.Errorf("list banks failed: %w", err)
	}
	return resp, nil
}

// ListBankAccounts returns the caller's saved payout accounts.
func (c *Client) ListBankAccounts(ctx context.Context, token string) ([]BankAccount, error) {
	var resp []BankAccount
	if err := c.doRequest(ctx, http.MethodGet, "/pub/bankaccount", token, nil, &resp); err != nil {
		return nil, fmt.Errorf("list bank accounts failed: %w", err)
	}
	return resp, nil
}

// AddBankAccount saves a new payout account.
func (c *Client) AddBankAccount(ctx context.Context, token string, req *AddBankAccountRequest) (*BankAccount, error) {
	var resp BankAccount
	if err := c.doRequest(ctx, http.MethodPost, "/pub/bankaccount", token, req, &resp); err != nil {
		return nil, fmt.Errorf("add bank account failed: %w", err)
	}
	return &resp, nil
}

// ResolveAccount looks up the holder name for a bank account number.
func (c *Client) ResolveAccount(ctx context.Context, token, bankID, accountNumber string) (*ResolvedAccount, error) {
	q := url.Values{}
	q.Set("bankId", bankID)
	q.Set("accountNumber", accountNumber)

	var resp ResolvedAccount
	endpoint := "/pub/bankaccount/resolve?" + q.Encode()
	if err := c.doRequest(ctx, http.MethodGet, endpoint, token, nil, &resp); err != nil {
		return nil, fmt.Errorf("resolve account failed: %w", err)
	}
	return &resp, nil
}

// GetRate quotes the fiat payout for a stablecoin amount in display units.
func (c *Client) GetRate(ctx context.Context, amount string) (*RateResponse, error) {
	var resp RateResponse
	endpoint := fmt.Sprintf("/pub/rate/%s", amount)
	if err := c.doRequest(ctx, http.MethodGet, endpoint, "", nil, &resp); err != nil {
		return nil, fmt.Errorf("get rate failed: %w", err)
	}
	return &resp, nil
}

// GetTxPoolAddress returns the pool wallet that receives off-ramp funds.
func (c *Client) GetTxPoolAddress(ctx context.Context) (string, error) {
	var resp struct {
		Address string `json:"address"`
	}
	if err := c.doRequest(ctx, http.MethodGet, "/pub/txpool-address", "", nil, &resp); err != nil {
		return "", fmt.Errorf("get txpool address failed: %w", err)
	}
	if resp.Address == "" {
		return "", fmt.Errorf("txpool address is empty")
	}
	return resp.Address, nil
}

// GetWallet looks up a linked wallet. Returns ErrWalletNotFound when
// the public key has never been linked.
func (c *Client) GetWallet(ctx context.Context, token, publicKey string) (*Wallet, error) {
	var resp Wallet
	endpoint := fmt.Sprintf("/pub/wallet/%s", publicKey)
	err := c.doRequest(ctx, http.MethodGet, endpoint, token, nil, &resp)
	if err != nil {
		var apiErr *ErrorResponse
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("get wallet failed: %w", err)
	}
	return &resp, nil
}

// LinkWallet links a wallet to the account. The signature proves
// control of the public key.
func (c *Client) LinkWallet(ctx context.Context, token string, req *LinkWalletRequest) (*Wallet, error) {
	var resp Wallet
	if err := c.doRequest(ctx, http.MethodPost, "/pub/wallet", token, req, &resp); err != nil {
		return nil, fmt.Errorf("link wallet failed: %w", err)
	}
	return &resp, nil
}

func (c *Client) doRequest(ctx context.Context, method, endpoint, token string, body, response interface{}) error {
	fullURL := c.config.BaseURL + endpoint

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.logger.Debug("Sending PAJ API request", "method", method, "url", fullURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	c.logger.Debug("Received PAJ API response", "status_code", resp.StatusCode, "body_size", len(respBody))

	if resp.StatusCode >= 400 {
		var errResp ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Message != "" {
			errResp.StatusCode = resp.StatusCode
			return &errResp
		}
		return &ErrorResponse{
			Message:    fmt.Sprintf("API error: status %d", resp.StatusCode),
			StatusCode: resp.StatusCode,
		}
	}

	if response != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, response); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	return nil
}
