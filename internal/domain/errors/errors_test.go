package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpstreamErrorKeepsProviderMessage(t *testing.T) {
	err := UpstreamError("lulo", "Pool is at capacity", errors.New("status 422"))
	assert.Equal(t, "Pool is at capacity", err.Error())
	assert.Equal(t, "Pool is at capacity", UserMessage(err))
	assert.Equal(t, KindUpstream, KindOf(err))
	assert.True(t, IsUpstream(err))
}

func TestUpstreamErrorFallbackMessage(t *testing.T) {
	err := UpstreamError("jupiter", "", errors.New("connection refused"))
	assert.Equal(t, "jupiter request failed", err.Error())
}

func TestKindOfDefaultsToInternal(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("plain error")))
	assert.Equal(t, "something went wrong", UserMessage(errors.New("plain error")))
}

func TestKindOfUnwrapsThroughFmtErrorf(t *testing.T) {
	inner := ValidationError("amount", "amount must be positive")
	wrapped := fmt.Errorf("handling request: %w", inner)
	assert.Equal(t, KindValidation, KindOf(wrapped))
	assert.Equal(t, "amount must be positive", UserMessage(wrapped))
}

func TestConfirmationTimeout(t *testing.T) {
	err := ConfirmationTimeoutError("sig-abc")
	assert.Equal(t, "transaction status unknown, check again later", err.Error())
	assert.True(t, IsConfirmationTimeout(err))
	assert.True(t, errors.Is(err, ErrConfirmationLost))
}

func TestConflictError(t *testing.T) {
	err := ConflictError("pool_deposit", "mint-1")
	assert.Equal(t, "a pool_deposit for mint-1 is already in progress", err.Error())
	assert.True(t, IsConflict(err))
	assert.True(t, errors.Is(err, ErrConflict))
}

func TestNotFound(t *testing.T) {
	err := NotFoundError("client")
	assert.Equal(t, "client not found", err.Error())
	assert.True(t, IsNotFound(err))
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSigningAndOnChainKinds(t *testing.T) {
	assert.True(t, IsSigning(SigningError(errors.New("user rejected"))))

	onchain := OnChainError("sig-abc", errors.New("custom program error"))
	assert.True(t, IsOnChain(onchain))
	assert.Contains(t, onchain.Error(), "sig-abc")
}

func TestPredicatesRejectOtherKinds(t *testing.T) {
	validation := ValidationError("owner", "owner is required")
	assert.False(t, IsUpstream(validation))
	assert.False(t, IsNotFound(validation))
	assert.False(t, IsConflict(validation))
	assert.False(t, IsConfirmationTimeout(validation))
}
