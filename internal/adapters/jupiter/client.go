package jupiter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/nimrid/Corre/pkg/logger"
)

// Config represents Jupiter Ultra API configuration
type Config struct {
	BaseURL     string
	SlippageBps int
	Timeout     time.Duration
}

// Client is a client for the Jupiter Ultra swap API
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient creates a new Jupiter API client
func NewClient(config Config, logger *logger.Logger) *Client {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.jup.ag"
	}
	if config.SlippageBps == 0 {
		config.SlippageBps = 100
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger,
	}
}

// GetOrder requests a swap quote with an unsigned transaction for the
// taker to sign.
func (c *Client) GetOrder(ctx context.Context, req *OrderRequest) (*OrderResponse, error) {
	q := url.Values{}
	q.Set("inputMint", req.InputMint)
	q.Set("outputMint", req.OutputMint)
	q.Set("amount", strconv.FormatUint(req.Amount, 10))
	q.Set("slippageBps", strconv.Itoa(c.config.SlippageBps))
	q.Set("taker", req.Taker)

	var resp OrderResponse
	endpoint := "/ultra/v1/order?" + q.Encode()
	if err := c.doRequest(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, fmt.Errorf("get order failed: %w", err)
	}
	if resp.Transaction == "" {
		return nil, fmt.Errorf("order has no transaction for taker %s", req.Taker)
	}
	return &resp, nil
}

// Execute submits a signed order transaction through Jupiter and
// returns the execution outcome.
func (c *Client) Execute(ctx context.Context, req *ExecuteRequest) (*ExecuteResponse, error) {
	var resp ExecuteResponse
	if err := c.doRequest(ctx, http.MethodPost, "/ultra/v1/execute", req, &resp); err != nil {
		return nil, fmt.Errorf("execute failed: %w", err)
	}
	if resp.Status != ExecuteStatusSuccess {
		return nil, &ExecuteError{Status: resp.Status, Code: resp.Code, Message: resp.Error}
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

	c.logger.Debug("Sending Jupiter API request", "method", method, "url", fullURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	c.logger.Debug("Received Jupiter API response", "status_code", resp.StatusCode, "body_size", len(respBody))

	if resp.StatusCode >= 400 {
		var errResp ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Message != "" {
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
