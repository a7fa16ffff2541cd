package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nimrid/Corre/internal/domain/entities"
	domainerrors "github.com/nimrid/Corre/internal/domain/errors"
)

// amountRequest carries a user-entered decimal amount.
type depositRequest struct {
	MintAddress     string `json:"mint_address" binding:"required"`
	RegularAmount   string `json:"regular_amount"`
	ProtectedAmount string `json:"protected_amount"`
}

// DepositToPool moves wallet funds into the lending pools.
func (h *Handlers) DepositToPool(c *gin.Context) {
	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid deposit request")
		return
	}

	regular, err := parseOptionalAmount(req.RegularAmount)
	if err != nil {
		respondBadRequest(c, "invalid regular amount")
		return
	}
	protected, err := parseOptionalAmount(req.ProtectedAmount)
	if err != nil {
		respondBadRequest(c, "invalid protected amount")
		return
	}

	attempt, err := h.operations.Deposit(c.Request.Context(), &entities.PoolDepositRequest{
		Owner:           h.owner(),
		MintAddress:     req.MintAddress,
		RegularAmount:   regular,
		ProtectedAmount: protected,
	})
	respondAttempt(c, attempt, err)
}

type withdrawRequest struct {
	MintAddress string `json:"mint_address" binding:"required"`
	Kind        string `json:"kind" binding:"required"`
	Amount      string `json:"amount" binding:"required"`
}

// WithdrawFromPool moves pool funds back to the wallet.
func (h *Handlers) WithdrawFromPool(c *gin.Context) {
	var req withdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid withdraw request")
		return
	}

	amount, err := entities.ParseDisplayAmount(req.Amount, entities.StablecoinDecimals)
	if err != nil {
		respondBadRequest(c, "invalid amount")
		return
	}

	attempt, err := h.operations.Withdraw(c.Request.Context(), &entities.PoolWithdrawRequest{
		Owner:       h.owner(),
		MintAddress: req.MintAddress,
		Kind:        entities.PoolKind(req.Kind),
		Amount:      amount,
	})
	respondAttempt(c, attempt, err)
}

type transferRequest struct {
	Recipient   string `json:"recipient" binding:"required"`
	MintAddress string `json:"mint_address" binding:"required"`
	Amount      string `json:"amount" binding:"required"`
}

// TransferToWallet sends stablecoins to another wallet.
func (h *Handlers) TransferToWallet(c *gin.Context) {
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid transfer request")
		return
	}

	amount, err := entities.ParseDisplayAmount(req.Amount, entities.StablecoinDecimals)
	if err != nil {
		respondBadRequest(c, "invalid amount")
		return
	}
	if err := h.checkSpendable(c.Request.Context(), req.MintAddress, amount); err != nil {
		respondDomainError(c, err)
		return
	}

	attempt, err := h.operations.Transfer(c.Request.Context(), &entities.TransferRequest{
		Owner:       h.owner(),
		Recipient:   req.Recipient,
		MintAddress: req.MintAddress,
		Amount:      amount,
	})
	respondAttempt(c, attempt, err)
}

type bankTransferRequest struct {
	MintAddress   string `json:"mint_address" binding:"required"`
	Amount        string `json:"amount" binding:"required"`
	BankAccountID string `json:"bank_account_id" binding:"required"`
}

// TransferToBank sends stablecoins to the off-ramp for fiat payout.
func (h *Handlers) TransferToBank(c *gin.Context) {
	var req bankTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid bank transfer request")
		return
	}

	amount, err := entities.ParseDisplayAmount(req.Amount, entities.StablecoinDecimals)
	if err != nil {
		respondBadRequest(c, "invalid amount")
		return
	}
	if err := h.checkSpendable(c.Request.Context(), req.MintAddress, amount); err != nil {
		respondDomainError(c, err)
		return
	}

	// the payout provider needs the sending wallet linked to the account
	if err := h.offramp.EnsureWalletLinked(c.Request.Context(), h.owner(), h.wallet, req.BankAccountID); err != nil {
		respondDomainError(c, err)
		return
	}

	attempt, err := h.operations.BankTransfer(c.Request.Context(), &entities.BankTransferRequest{
		Owner:         h.owner(),
		MintAddress:   req.MintAddress,
		Amount:        amount,
		BankAccountID: req.BankAccountID,
	})
	respondAttempt(c, attempt, err)
}

type swapRequest struct {
	InputMint  string `json:"input_mint" binding:"required"`
	OutputMint string `json:"output_mint" binding:"required"`
	Amount     string `json:"amount" binding:"required"`
}

// Swap exchanges one token for another through the aggregator.
func (h *Handlers) Swap(c *gin.Context) {
	var req swapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid swap request")
		return
	}

	amount, err := entities.ParseDisplayAmount(req.Amount, entities.StablecoinDecimals)
	if err != nil {
		respondBadRequest(c, "invalid amount")
		return
	}

	attempt, err := h.operations.Swap(c.Request.Context(), &entities.SwapRequest{
		Owner:      h.owner(),
		InputMint:  req.InputMint,
		OutputMint: req.OutputMint,
		Amount:     amount,
	})
	respondAttempt(c, attempt, err)
}

// GetOperation returns the state of a tracked attempt.
func (h *Handlers) GetOperation(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "invalid operation id")
		return
	}

	attempt, err := h.engine.Attempt(id)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"operation": attempt})
}

type cancelRequest struct {
	Operation string `json:"operation" binding:"required"`
	Target    string `json:"target" binding:"required"`
}

// CancelOperation withdraws the in-flight claim for a target so a new
// attempt can start.
func (h *Handlers) CancelOperation(c *gin.Context) {
	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid cancel request")
		return
	}

	op := entities.Operation(req.Operation)
	if !op.IsValid() {
		respondBadRequest(c, "unknown operation kind")
		return
	}

	h.engine.Cancel(op, req.Target)
	c.JSON(http.StatusOK, gin.H{"cancelled": true})
}

// respondAttempt renders an operation outcome. The attempt is included
// even on failure so the caller sees the terminal state and signature.
func respondAttempt(c *gin.Context, attempt *entities.Attempt, err error) {
	if err != nil {
		if attempt == nil {
			respondDomainError(c, err)
			return
		}
		c.JSON(statusForKind(domainerrors.Kind(attempt.FailureKind)), gin.H{
			"operation": attempt,
			"error":     attempt.Error,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"operation": attempt})
}

// checkSpendable rejects transfers that exceed the last known wallet
// balance for the mint. A missing snapshot does not block the transfer;
// the chain is the final arbiter either way.
func (h *Handlers) checkSpendable(ctx context.Context, mintAddress string, amount uint64) error {
	snap, err := h.balances.Snapshot(ctx, h.owner())
	if err != nil {
		return nil
	}
	for _, asset := range snap.Assets {
		if asset.Mint == mintAddress && amount > asset.BaseUnits {
			return domainerrors.ValidationError("amount", "amount exceeds available balance")
		}
	}
	return nil
}

func parseOptionalAmount(amount string) (uint64, error) {
	if amount == "" {
		return 0, nil
	}
	return entities.ParseDisplayAmount(amount, entities.StablecoinDecimals)
}
