package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nimrid/Corre/internal/domain/entities"
)

type startSessionRequest struct {
	Email string `json:"email" binding:"required"`
}

// StartOfframpSession begins the payout provider's email OTP flow.
func (h *Handlers) StartOfframpSession(c *gin.Context) {
	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "email is required")
		return
	}
	if err := h.offramp.StartSession(c.Request.Context(), h.owner(), req.Email); err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent": true})
}

type verifySessionRequest struct {
	Email string `json:"email" binding:"required"`
	OTP   string `json:"otp" binding:"required"`
}

// VerifyOfframpSession completes the OTP flow and stores the session.
func (h *Handlers) VerifyOfframpSession(c *gin.Context) {
	var req verifySessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "email and otp are required")
		return
	}
	if err := h.offramp.CompleteSession(c.Request.Context(), h.owner(), req.Email, req.OTP); err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"verified": true})
}

// GetOfframpSession reports whether a live session exists.
func (h *Handlers) GetOfframpSession(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"active": h.offramp.HasSession(c.Request.Context(), h.owner()),
	})
}

// ListBanks returns the supported payout banks.
func (h *Handlers) ListBanks(c *gin.Context) {
	banks, err := h.offramp.Banks(c.Request.Context())
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"banks": banks})
}

// ListBankAccounts returns the owner's saved payout accounts.
func (h *Handlers) ListBankAccounts(c *gin.Context) {
	accounts, err := h.offramp.BankAccounts(c.Request.Context(), h.owner())
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": accounts})
}

type addBankAccountRequest struct {
	BankID        string `json:"bank_id" binding:"required"`
	AccountNumber string `json:"account_number" binding:"required"`
}

// AddBankAccount resolves and saves a payout account.
func (h *Handlers) AddBankAccount(c *gin.Context) {
	var req addBankAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "bank_id and account_number are required")
		return
	}
	account, err := h.offramp.AddBankAccount(c.Request.Context(), h.owner(), req.BankID, req.AccountNumber)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"account": account})
}

// ResolveBankAccount looks up the holder name for an account number.
func (h *Handlers) ResolveBankAccount(c *gin.Context) {
	bankID := c.Query("bank_id")
	accountNumber := c.Query("account_number")
	if bankID == "" || accountNumber == "" {
		respondBadRequest(c, "bank_id and account_number are required")
		return
	}
	resolved, err := h.offramp.ResolveAccount(c.Request.Context(), h.owner(), bankID, accountNumber)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": resolved})
}

// GetRate quotes the fiat payout for a stablecoin amount.
func (h *Handlers) GetRate(c *gin.Context) {
	amount, err := entities.ParseDisplayAmount(c.Param("amount"), entities.StablecoinDecimals)
	if err != nil {
		respondBadRequest(c, "invalid amount")
		return
	}
	rate, err := h.offramp.Quote(c.Request.Context(), amount)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"rate":   rate.FiatRate(),
		"payout": rate.PayoutAmount(),
	})
}
