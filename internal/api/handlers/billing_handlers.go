package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nimrid/Corre/internal/domain/entities"
)

type clientRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email"`
	Company string `json:"company"`
}

// CreateClient saves a new billing client.
func (h *Handlers) CreateClient(c *gin.Context) {
	var req clientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "client name is required")
		return
	}
	client, err := h.billing.CreateClient(c.Request.Context(), &entities.Client{
		Owner:   h.owner(),
		Name:    req.Name,
		Email:   req.Email,
		Company: req.Company,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"client": client})
}

// ListClients returns the owner's clients.
func (h *Handlers) ListClients(c *gin.Context) {
	clients, err := h.billing.Clients(c.Request.Context(), h.owner())
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"clients": clients})
}

// UpdateClient replaces a client's editable fields.
func (h *Handlers) UpdateClient(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "invalid client id")
		return
	}
	var req clientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "client name is required")
		return
	}
	client, err := h.billing.UpdateClient(c.Request.Context(), h.owner(), id, &entities.Client{
		Owner:   h.owner(),
		Name:    req.Name,
		Email:   req.Email,
		Company: req.Company,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"client": client})
}

// DeleteClient removes a client.
func (h *Handlers) DeleteClient(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "invalid client id")
		return
	}
	if err := h.billing.DeleteClient(c.Request.Context(), h.owner(), id); err != nil {
		respondDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type invoiceLineRequest struct {
	Description string `json:"description" binding:"required"`
	Quantity    int64  `json:"quantity" binding:"required"`
	UnitAmount  string `json:"unit_amount" binding:"required"`
}

type invoiceRequest struct {
	ClientID string               `json:"client_id" binding:"required"`
	Number   string               `json:"number"`
	DueAt    time.Time            `json:"due_at" binding:"required"`
	Lines    []invoiceLineRequest `json:"lines" binding:"required"`
}

// CreateInvoice saves a new draft invoice.
func (h *Handlers) CreateInvoice(c *gin.Context) {
	var req invoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid invoice request")
		return
	}
	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		respondBadRequest(c, "invalid client id")
		return
	}

	lines := make([]entities.InvoiceLine, 0, len(req.Lines))
	for _, l := range req.Lines {
		unit, perr := entities.ParseDisplayAmount(l.UnitAmount, entities.StablecoinDecimals)
		if perr != nil {
			respondBadRequest(c, "invalid line amount")
			return
		}
		lines = append(lines, entities.InvoiceLine{
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitAmount:  unit,
		})
	}

	invoice, err := h.billing.CreateInvoice(c.Request.Context(), &entities.Invoice{
		Owner:    h.owner(),
		ClientID: clientID,
		Number:   req.Number,
		DueAt:    req.DueAt,
		Lines:    lines,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"invoice": invoice})
}

// ListInvoices returns the owner's invoices.
func (h *Handlers) ListInvoices(c *gin.Context) {
	invoices, err := h.billing.Invoices(c.Request.Context(), h.owner())
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoices": invoices})
}

type invoiceStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// SetInvoiceStatus moves an invoice through its lifecycle.
func (h *Handlers) SetInvoiceStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "invalid invoice id")
		return
	}
	var req invoiceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "status is required")
		return
	}
	invoice, err := h.billing.SetInvoiceStatus(c.Request.Context(), h.owner(), id, entities.InvoiceStatus(req.Status))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoice": invoice})
}

type beneficiaryRequest struct {
	Label         string `json:"label" binding:"required"`
	WalletAddress string `json:"wallet_address"`
	BankAccountID string `json:"bank_account_id"`
}

// AddBeneficiary saves a transfer destination.
func (h *Handlers) AddBeneficiary(c *gin.Context) {
	var req beneficiaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "beneficiary label is required")
		return
	}
	b, err := h.billing.AddBeneficiary(c.Request.Context(), &entities.Beneficiary{
		Owner:         h.owner(),
		Label:         req.Label,
		WalletAddress: req.WalletAddress,
		BankAccountID: req.BankAccountID,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"beneficiary": b})
}

// ListBeneficiaries returns the owner's saved destinations.
func (h *Handlers) ListBeneficiaries(c *gin.Context) {
	list, err := h.billing.Beneficiaries(c.Request.Context(), h.owner())
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"beneficiaries": list})
}

// DeleteBeneficiary removes a saved destination.
func (h *Handlers) DeleteBeneficiary(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "invalid beneficiary id")
		return
	}
	if err := h.billing.DeleteBeneficiary(c.Request.Context(), h.owner(), id); err != nil {
		respondDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
