package solanarpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nimrid/Corre/pkg/logger"
	"github.com/nimrid/Corre/pkg/metrics"
)

var (
	// ErrTxFailed indicates the transaction executed on chain and failed.
	ErrTxFailed = errors.New("transaction failed on chain")

	// ErrConfirmationTimeout indicates the confirmation budget was
	// exhausted with the transaction outcome still unknown.
	ErrConfirmationTimeout = errors.New("confirmation timed out")
)

// Config represents Solana RPC configuration
type Config struct {
	RPCURL              string
	Commitment          string
	TokenProgramID      string
	Timeout             time.Duration
	ConfirmPollInterval time.Duration
	ConfirmMaxAttempts  int
}

// DefaultTokenProgramID is the SPL Token program.
const DefaultTokenProgramID = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"

// Client is a JSON-RPC client for a Solana node
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient creates a new Solana RPC client
func NewClient(config Config, logger *logger.Logger) *Client {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.Commitment == "" {
		config.Commitment = "confirmed"
	}
	if config.ConfirmPollInterval == 0 {
		config.ConfirmPollInterval = 2 * time.Second
	}
	if config.ConfirmMaxAttempts == 0 {
		config.ConfirmMaxAttempts = 30
	}
	if config.TokenProgramID == "" {
		config.TokenProgramID = DefaultTokenProgramID
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger,
	}
}

// GetTokenAccountsByOwner returns the parsed token accounts an owner
// holds for a given mint.
func (c *Client) GetTokenAccountsByOwner(ctx context.Context, owner, mint string) ([]TokenAccount, error) {
	return c.tokenAccounts(ctx, owner, map[string]string{"mint": mint})
}

// GetTokenAccounts returns every token account the owner holds under
// the token program. One call covers all mints; callers bucket the
// result themselves.
func (c *Client) GetTokenAccounts(ctx context.Context, owner string) ([]TokenAccount, error) {
	return c.tokenAccounts(ctx, owner, map[string]string{"programId": c.config.TokenProgramID})
}

func (c *Client) tokenAccounts(ctx context.Context, owner string, filter map[string]string) ([]TokenAccount, error) {
	params := []interface{}{
		owner,
		filter,
		map[string]string{"encoding": "jsonParsed", "commitment": c.config.Commitment},
	}

	var result tokenAccountsResult
	if err := c.call(ctx, "getTokenAccountsByOwner", params, &result); err != nil {
		return nil, fmt.Errorf("get token accounts failed: %w", err)
	}

	accounts := make([]TokenAccount, 0, len(result.Value))
	for _, v := range result.Value {
		info := v.Account.Data.Parsed.Info
		accounts = append(accounts, TokenAccount{
			Address:  v.Pubkey,
			Mint:     info.Mint,
			Owner:    info.Owner,
			Amount:   info.TokenAmount.Amount,
			Decimals: info.TokenAmount.Decimals,
		})
	}
	return accounts, nil
}

// HasTokenAccount reports whether an owner already holds a token
// account for a mint.
func (c *Client) HasTokenAccount(ctx context.Context, owner, mint string) (bool, error) {
	accounts, err := c.GetTokenAccountsByOwner(ctx, owner, mint)
	if err != nil {
		return false, err
	}
	return len(accounts) > 0, nil
}

// GetLatestBlockhash returns a recent blockhash for transaction building.
func (c *Client) GetLatestBlockhash(ctx context.Context) (string, error) {
	params := []interface{}{
		map[string]string{"commitment": c.config.Commitment},
	}

	var result blockhashResult
	if err := c.call(ctx, "getLatestBlockhash", params, &result); err != nil {
		return "", fmt.Errorf("get latest blockhash failed: %w", err)
	}
	return result.Value.Blockhash, nil
}

// SendRawTransaction submits a signed transaction encoded as base64 and
// returns its signature.
func (c *Client) SendRawTransaction(ctx context.Context, txBase64 string) (string, error) {
	params := []interface{}{
		txBase64,
		map[string]interface{}{
			"encoding":            "base64",
			"skipPreflight":       false,
			"preflightCommitment": c.config.Commitment,
			"maxRetries":          3,
		},
	}

	var signature string
	if err := c.call(ctx, "sendTransaction", params, &signature); err != nil {
		return "", fmt.Errorf("send transaction failed: %w", err)
	}
	return signature, nil
}

// GetSignatureStatus returns the confirmation status of a signature,
// or nil if the node has not seen it yet.
func (c *Client) GetSignatureStatus(ctx context.Context, signature string) (*SignatureStatus, error) {
	params := []interface{}{
		[]string{signature},
		map[string]bool{"searchTransactionHistory": true},
	}

	var result signatureStatusesResult
	if err := c.call(ctx, "getSignatureStatuses", params, &result); err != nil {
		return nil, fmt.Errorf("get signature status failed: %w", err)
	}
	if len(result.Value) == 0 || result.Value[0] == nil {
		return nil, nil
	}
	return result.Value[0], nil
}

// WaitForConfirmation polls a signature until it reaches the configured
// commitment, fails on chain, or the polling budget runs out.
func (c *Client) WaitForConfirmation(ctx context.Context, signature string) error {
	ticker := time.NewTicker(c.config.ConfirmPollInterval)
	defer ticker.Stop()

	polls := 0
	for attempt := 0; attempt < c.config.ConfirmMaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		polls++
		status, err := c.GetSignatureStatus(ctx, signature)
		if err != nil {
			c.logger.Warn("Signature status poll failed", "signature", signature, "error", err)
			continue
		}
		if status == nil {
			continue
		}
		if status.Err != nil {
			metrics.ConfirmationPolls.Observe(float64(polls))
			return fmt.Errorf("%w: %v", ErrTxFailed, status.Err)
		}
		if status.Reached(c.config.Commitment) {
			metrics.ConfirmationPolls.Observe(float64(polls))
			c.logger.Debug("Transaction confirmed", "signature", signature, "polls", polls)
			return nil
		}
	}

	return fmt.Errorf("%w: %s after %d polls", ErrConfirmationTimeout, signature, polls)
}

// Health checks the node's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	var result string
	if err := c.call(ctx, "getHealth", nil, &result); err != nil {
		return err
	}
	if result != "ok" {
		return fmt.Errorf("node unhealthy: %s", result)
	}
	return nil
}

// call performs a single JSON-RPC request against the node.
func (c *Client) call(ctx context.Context, method string, params interface{}, result interface{}) error {
	reqBody, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.RPCURL, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("Sending RPC request", "method", method)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}

	if result != nil && len(rpcResp.Result) > 0 {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("failed to unmarshal result: %w", err)
		}
	}
	return nil
}
