package entities

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// InvoiceStatus is the payment state of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusDraft   InvoiceStatus = "draft"
	InvoiceStatusSent    InvoiceStatus = "sent"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusOverdue InvoiceStatus = "overdue"
)

// Client is someone a freelancer bills.
type Client struct {
	ID        uuid.UUID `json:"id"`
	Owner     string    `json:"owner"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Company   string    `json:"company,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks required client fields.
func (c *Client) Validate() error {
	if c.Owner == "" {
		return ErrMissingOwner
	}
	if c.Name == "" {
		return errors.New("client name is required")
	}
	return nil
}

// InvoiceLine is one billed item on an invoice.
type InvoiceLine struct {
	Description string `json:"description"`
	Quantity    int64  `json:"quantity"`
	UnitAmount  uint64 `json:"unit_amount"`
}

// Invoice is a bill issued to a client, amounts in base units.
type Invoice struct {
	ID        uuid.UUID     `json:"id"`
	Owner     string        `json:"owner"`
	ClientID  uuid.UUID     `json:"client_id"`
	Number    string        `json:"number"`
	Lines     []InvoiceLine `json:"lines"`
	Total     uint64        `json:"total"`
	Status    InvoiceStatus `json:"status"`
	DueAt     time.Time     `json:"due_at"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// ComputeTotal recalculates the invoice total from its lines.
func (i *Invoice) ComputeTotal() {
	var total uint64
	for _, l := range i.Lines {
		total += uint64(l.Quantity) * l.UnitAmount
	}
	i.Total = total
}

// Validate checks required invoice fields.
func (i *Invoice) Validate() error {
	if i.Owner == "" {
		return ErrMissingOwner
	}
	if i.ClientID == uuid.Nil {
		return errors.New("invoice client is required")
	}
	if len(i.Lines) == 0 {
		return errors.New("invoice needs at least one line")
	}
	for _, l := range i.Lines {
		if l.Quantity <= 0 {
			return errors.New("line quantity must be positive")
		}
	}
	return nil
}

// Beneficiary is a saved transfer destination, either another wallet
// or a verified bank account.
type Beneficiary struct {
	ID            uuid.UUID `json:"id"`
	Owner         string    `json:"owner"`
	Label         string    `json:"label"`
	WalletAddress string    `json:"wallet_address,omitempty"`
	BankAccountID string    `json:"bank_account_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Validate checks that the beneficiary names exactly one destination.
func (b *Beneficiary) Validate() error {
	if b.Owner == "" {
		return ErrMissingOwner
	}
	if b.Label == "" {
		return errors.New("beneficiary label is required")
	}
	hasWallet := b.WalletAddress != ""
	hasBank := b.BankAccountID != ""
	if hasWallet == hasBank {
		return errors.New("beneficiary needs exactly one destination")
	}
	return nil
}
