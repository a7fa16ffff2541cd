package lulo

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimrid/Corre/pkg/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Config{BaseURL: server.URL, APIKey: "test-key"}, logger.NewLogger("test"))
}

func TestGetPools(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/pool.getPools", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))

		json.NewEncoder(w).Encode(PoolsResponse{
			Regular:   Pool{Type: "regular", APY: 9.12, MaxWithdrawalAmount: 50000},
			Protected: Pool{Type: "protected", APY: 4.85, OpenCapacity: 120000},
		})
	})

	resp, err := client.GetPools(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 9.12, resp.Regular.APY)
	assert.Equal(t, 4.85, resp.Protected.APY)
	assert.Equal(t, float64(120000), resp.Protected.OpenCapacity)
}

func TestGetAccount(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/account.getAccount", r.URL.Path)
		assert.Equal(t, "owner-key", r.URL.Query().Get("owner"))

		json.NewEncoder(w).Encode(AccountResponse{
			Owner:            "owner-key",
			RegularBalance:   150.25,
			ProtectedBalance: 42.5,
			TotalUSDValue:    192.75,
		})
	})

	resp, err := client.GetAccount(context.Background(), "owner-key")
	require.NoError(t, err)
	assert.Equal(t, 150.25, resp.RegularBalance)
	assert.Equal(t, 42.5, resp.ProtectedBalance)
}

func TestGenerateDepositTransaction(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/generate.transactions.deposit", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req DepositRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "owner-key", req.Owner)
		assert.Equal(t, uint64(1_000_000), req.RegularAmount)
		assert.Equal(t, uint64(500_000), req.ProtectedAmount)

		json.NewEncoder(w).Encode(TransactionResponse{Transaction: "base64-tx"})
	})

	resp, err := client.GenerateDepositTransaction(context.Background(), &DepositRequest{
		Owner:           "owner-key",
		FeePayer:        "owner-key",
		MintAddress:     "mint",
		RegularAmount:   1_000_000,
		ProtectedAmount: 500_000,
	})
	require.NoError(t, err)
	assert.Equal(t, "base64-tx", resp.Transaction)
	assert.NoError(t, resp.Validate())
}

func TestGenerateWithdrawRoutesByPool(t *testing.T) {
	var gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(TransactionResponse{Transaction: "base64-tx"})
	})

	_, err := client.GenerateWithdrawTransaction(context.Background(), &WithdrawRequest{
		Owner: "owner-key", Amount: 1, Protected: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "/generate.transactions.withdrawProtected", gotPath)

	_, err = client.GenerateWithdrawTransaction(context.Background(), &WithdrawRequest{
		Owner: "owner-key", Amount: 1, Protected: false,
	})
	require.NoError(t, err)
	assert.Equal(t, "/generate.transactions.initiateRegularWithdraw", gotPath)
}

func TestErrorBodyMessageIsSurfaced(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":{"message":"Pool is at capacity"}}`))
	})

	_, err := client.GenerateDepositTransaction(context.Background(), &DepositRequest{Owner: "owner-key"})
	require.Error(t, err)

	var apiErr *ErrorResponse
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Pool is at capacity", apiErr.Error())
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
}

func TestUnstructuredErrorBodyFallsBack(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	})

	_, err := client.GetPools(context.Background())
	require.Error(t, err)

	var apiErr *ErrorResponse
	assert.False(t, errors.As(err, &apiErr))
	assert.Contains(t, err.Error(), "502")
}

func TestEmptyTransactionFailsValidation(t *testing.T) {
	resp := &TransactionResponse{}
	assert.Error(t, resp.Validate())
}
