package lulo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nimrid/Corre/pkg/logger"
)

// Config represents Lulo API configuration
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client is a client for the Lulo lending API
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient creates a new Lulo API client
func NewClient(config Config, logger *logger.Logger) *Client {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.lulo.fi/v1"
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger,
	}
}

// GetPools retrieves current pool rates and capacity.
func (c *Client) GetPools(ctx context.Context) (*PoolsResponse, error) {
	var resp PoolsResponse
	if err := c.doRequest(ctx, http.MethodGet, "/pool.getPools", nil, &resp); err != nil {
		return nil, fmt.Errorf("get pools failed: %w", err)
	}
	return &resp, nil
}

// GetAccount retrieves an owner's pool balances.
func (c *Client) GetAccount(ctx context.Context, owner string) (*AccountResponse, error) {
	var resp AccountResponse
	endpoint := fmt.Sprintf("/account.getAccount?owner=%s", owner)
	if err := c.doRequest(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, fmt.Errorf("get account failed: %w", err)
	}
	return &resp, nil
}

// GenerateDepositTransaction asks Lulo to build an unsigned deposit
// transaction splitting funds across the regular and protected pools.
func (c *Client) GenerateDepositTransaction(ctx context.Context, req *DepositRequest) (*TransactionResponse, error) {
	var resp TransactionResponse
	if err := c.doRequest(ctx, http.MethodPost, "/generate.transactions.deposit", req, &resp); err != nil {
		return nil, fmt.Errorf("generate deposit failed: %w", err)
	}
	return &resp, nil
}

// GenerateWithdrawTransaction asks Lulo to build an unsigned withdrawal
// transaction. Protected withdrawals complete immediately; regular ones
// only start the cooldown.
func (c *Client) GenerateWithdrawTransaction(ctx context.Context, req *WithdrawRequest) (*TransactionResponse, error) {
	endpoint := "/generate.transactions.initiateRegularWithdraw"
	if req.Protected {
		endpoint = "/generate.transactions.withdrawProtected"
	}

	var resp TransactionResponse
	if err := c.doRequest(ctx, http.MethodPost, endpoint, req, &resp); err != nil {
		return nil, fmt.Errorf("generate withdraw failed: %w", err)
	}
	return &resp, nil
}

func (c *Client) doRequest(ctx context.Context, method, endpoint string, body, response interface{}) error {
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
	req.Header.Set("x-api-key", c.config.APIKey)

	c.logger.Debug("Sending Lulo API request", "method", method, "url", fullURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	c.logger.Debug("Received Lulo API response", "status_code", resp.StatusCode, "body_size", len(respBody))

	if resp.StatusCode >= 400 {
		var errResp ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Inner.Message != "" {
			errResp.StatusCode = resp.StatusCode
			return &errResp
		}
		return fmt.Errorf("API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	if response != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, response); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	return nil
}
