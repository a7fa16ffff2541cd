// Package billing manages clients, invoices, and saved beneficiaries.
// Records are stored per owner with no TTL; the store is the system of
// record for this data.
package billing

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/nimrid/Corre/internal/domain/entities"
	domainerrors "github.com/nimrid/Corre/internal/domain/errors"
	"github.com/nimrid/Corre/internal/infrastructure/cache"
	"github.com/nimrid/Corre/pkg/logger"
)

const (
	clientsKeyPrefix       = "billing:clients:"
	invoicesKeyPrefix      = "billing:invoices:"
	beneficiariesKeyPrefix = "billing:beneficiaries:"
)

// Service stores billing records keyed by owner.
type Service struct {
	store  *cache.Store
	logger *logger.Logger
}

// NewService creates a billing service.
func NewService(store *cache.Store, logger *logger.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// CreateClient saves a new client.
func (s *Service) CreateClient(ctx context.Context, client *entities.Client) (*entities.Client, error) {
	if err := client.Validate(); err != nil {
		return nil, domainerrors.ValidationError("client", err.Error())
	}

	now := time.Now().UTC()
	client.ID = uuid.New()
	client.CreatedAt = now
	client.UpdatedAt = now

	clients, err := s.listClients(ctx, client.Owner)
	if err != nil {
		return nil, err
	}
	clients = append(clients, *client)
	if err := s.store.Set(ctx, clientsKeyPrefix+client.Owner, clients, 0); err != nil {
		return nil, domainerrors.InternalError("failed to store client", err)
	}
	return client, nil
}

// Clients lists an owner's clients, newest first.
func (s *Service) Clients(ctx context.Context, owner string) ([]entities.Client, error) {
	clients, err := s.listClients(ctx, owner)
	if err != nil {
		return nil, err
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].CreatedAt.After(clients[j].CreatedAt)
	})
	return clients, nil
}

// UpdateClient replaces a client's editable fields.
func (s *Service) UpdateClient(ctx context.Context, owner string, id uuid.UUID, update *entities.Client) (*entities.Client, error) {
	clients, err := s.listClients(ctx, owner)
	if err != nil {
		return nil, err
	}
	for i := range clients {
		if clients[i].ID != id {
			continue
		}
		clients[i].Name = update.Name
		clients[i].Email = update.Email
		clients[i].Company = update.Company
		clients[i].UpdatedAt = time.Now().UTC()
		if err := clients[i].Validate(); err != nil {
			return nil, domainerrors.ValidationError("client", err.Error())
		}
		if err := s.store.Set(ctx, clientsKeyPrefix+owner, clients, 0); err != nil {
			return nil, domainerrors.InternalError("failed to store client", err)
		}
		return &clients[i], nil
	}
	return nil, domainerrors.NotFoundError("client")
}

// DeleteClient removes a client.
func (s *Service) DeleteClient(ctx context.Context, owner string, id uuid.UUID) error {
	clients, err := s.listClients(ctx, owner)
	if err != nil {
		return err
	}
	kept := clients[:0]
	found := false
	for _, c := range clients {
		if c.ID == id {
			found = true
			continue
		}
		kept = append(kept, c)
	}
	if !found {
		return domainerrors.NotFoundError("client")
	}
	return s.store.Set(ctx, clientsKeyPrefix+owner, kept, 0)
}

// CreateInvoice saves a new invoice in draft, totals computed from its
// lines.
func (s *Service) CreateInvoice(ctx context.Context, invoice *entities.Invoice) (*entities.Invoice, error) {
	if err := invoice.Validate(); err != nil {
		return nil, domainerrors.ValidationError("invoice", err.Error())
	}
	if _, err := s.findClient(ctx, invoice.Owner, invoice.ClientID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	invoice.ID = uuid.New()
	invoice.Status = entities.InvoiceStatusDraft
	invoice.CreatedAt = now
	invoice.UpdatedAt = now
	invoice.ComputeTotal()
	if invoice.Number == "" {
		invoice.Number = fmt.Sprintf("INV-%s", now.Format("20060102-150405"))
	}

	invoices, err := s.listInvoices(ctx, invoice.Owner)
	if err != nil {
		return nil, err
	}
	invoices = append(invoices, *invoice)
	if err := s.store.Set(ctx, invoicesKeyPrefix+invoice.Owner, invoices, 0); err != nil {
		return nil, domainerrors.InternalError("failed to store invoice", err)
	}
	return invoice, nil
}

// Invoices lists an owner's invoices, newest first. Sent invoices past
// their due date read back as overdue.
func (s *Service) Invoices(ctx context.Context, owner string) ([]entities.Invoice, error) {
	invoices, err := s.listInvoices(ctx, owner)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	for i := range invoices {
		if invoices[i].Status == entities.InvoiceStatusSent && now.After(invoices[i].DueAt) {
			invoices[i].Status = entities.InvoiceStatusOverdue
		}
	}
	sort.Slice(invoices, func(i, j int) bool {
		return invoices[i].CreatedAt.After(invoices[j].CreatedAt)
	})
	return invoices, nil
}

// SetInvoiceStatus moves an invoice through its lifecycle.
func (s *Service) SetInvoiceStatus(ctx context.Context, owner string, id uuid.UUID, status entities.InvoiceStatus) (*entities.Invoice, error) {
	invoices, err := s.listInvoices(ctx, owner)
	if err != nil {
		return nil, err
	}
	for i := range invoices {
		if invoices[i].ID != id {
			continue
		}
		invoices[i].Status = status
		invoices[i].UpdatedAt = time.Now().UTC()
		if err := s.store.Set(ctx, invoicesKeyPrefix+owner, invoices, 0); err != nil {
			return nil, domainerrors.InternalError("failed to store invoice", err)
		}
		return &invoices[i], nil
	}
	return nil, domainerrors.NotFoundError("invoice")
}

// AddBeneficiary saves a transfer destination for reuse.
func (s *Service) AddBeneficiary(ctx context.Context, b *entities.Beneficiary) (*entities.Beneficiary, error) {
	if err := b.Validate(); err != nil {
		return nil, domainerrors.ValidationError("beneficiary", err.Error())
	}
	b.ID = uuid.New()
	b.CreatedAt = time.Now().UTC()

	list, err := s.listBeneficiaries(ctx, b.Owner)
	if err != nil {
		return nil, err
	}
	list = append(list, *b)
	if err := s.store.Set(ctx, beneficiariesKeyPrefix+b.Owner, list, 0); err != nil {
		return nil, domainerrors.InternalError("failed to store beneficiary", err)
	}
	return b, nil
}

// Beneficiaries lists an owner's saved destinations.
func (s *Service) Beneficiaries(ctx context.Context, owner string) ([]entities.Beneficiary, error) {
	return s.listBeneficiaries(ctx, owner)
}

// DeleteBeneficiary removes a saved destination.
func (s *Service) DeleteBeneficiary(ctx context.Context, owner string, id uuid.UUID) error {
	list, err := s.listBeneficiaries(ctx, owner)
	if err != nil {
		return err
	}
	kept := list[:0]
	found := false
	for _, b := range list {
		if b.ID == id {
			found = true
			continue
		}
		kept = append(kept, b)
	}
	if !found {
		return domainerrors.NotFoundError("beneficiary")
	}
	return s.store.Set(ctx, beneficiariesKeyPrefix+owner, kept, 0)
}

func (s *Service) findClient(ctx context.Context, owner string, id uuid.UUID) (*entities.Client, error) {
	clients, err := s.listClients(ctx, owner)
	if err != nil {
		return nil, err
	}
	for i := range clients {
		if clients[i].ID == id {
			return &clients[i], nil
		}
	}
	return nil, domainerrors.NotFoundError("client")
}

func (s *Service) listClients(ctx context.Context, owner string) ([]entities.Client, error) {
	var clients []entities.Client
	if err := s.store.Get(ctx, clientsKeyPrefix+owner, &clients); err != nil {
		return []entities.Client{}, nil
	}
	return clients, nil
}

func (s *Service) listInvoices(ctx context.Context, owner string) ([]entities.Invoice, error) {
	var invoices []entities.Invoice
	if err := s.store.Get(ctx, invoicesKeyPrefix+owner, &invoices); err != nil {
		return []entities.Invoice{}, nil
	}
	return invoices, nil
}

func (s *Service) listBeneficiaries(ctx context.Context, owner string) ([]entities.Beneficiary, error) {
	var list []entities.Beneficiary
	if err := s.store.Get(ctx, beneficiariesKeyPrefix+owner, &list); err != nil {
		return []entities.Beneficiary{}, nil
	}
	return list, nil
}
