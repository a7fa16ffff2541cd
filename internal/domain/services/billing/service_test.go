package billing

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nimrid/Corre/internal/domain/entities"
	domainerrors "github.com/nimrid/Corre/internal/domain/errors"
	"github.com/nimrid/Corre/internal/infrastructure/cache"
	"github.com/nimrid/Corre/pkg/logger"
)

const testOwner = "owner-address"

func newTestService(t *testing.T) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := cache.NewStore(cache.NewRedisClientFromConn(client, zap.NewNop()), zap.NewNop())
	return NewService(store, logger.NewLogger("test"))
}

func createClient(t *testing.T, svc *Service, name string) *entities.Client {
	t.Helper()
	client, err := svc.CreateClient(context.Background(), &entities.Client{
		Owner: testOwner,
		Name:  name,
		Email: "client@example.com",
	})
	require.NoError(t, err)
	return client
}

func TestClientLifecycle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created := createClient(t, svc, "Acme")
	assert.NotEqual(t, uuid.Nil, created.ID)

	clients, err := svc.Clients(ctx, testOwner)
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, "Acme", clients[0].Name)

	updated, err := svc.UpdateClient(ctx, testOwner, created.ID, &entities.Client{
		Owner: testOwner,
		Name:  "Acme Corp",
		Email: "billing@acme.example",
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", updated.Name)

	require.NoError(t, svc.DeleteClient(ctx, testOwner, created.ID))
	clients, err = svc.Clients(ctx, testOwner)
	require.NoError(t, err)
	assert.Empty(t, clients)
}

func TestClientValidation(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.CreateClient(context.Background(), &entities.Client{Owner: testOwner})
	assert.True(t, domainerrors.IsValidation(err))
}

func TestUpdateMissingClient(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.UpdateClient(context.Background(), testOwner, uuid.New(), &entities.Client{
		Owner: testOwner, Name: "Nobody",
	})
	assert.True(t, domainerrors.IsNotFound(err))
}

func TestCreateInvoiceComputesTotal(t *testing.T) {
	svc := newTestService(t)
	client := createClient(t, svc, "Acme")

	invoice, err := svc.CreateInvoice(context.Background(), &entities.Invoice{
		Owner:    testOwner,
		ClientID: client.ID,
		Lines: []entities.InvoiceLine{
			{Description: "Design", Quantity: 2, UnitAmount: 250_000_000},
			{Description: "Development", Quantity: 10, UnitAmount: 100_000_000},
		},
		DueAt: time.Now().Add(14 * 24 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1_500_000_000), invoice.Total)
	assert.Equal(t, entities.InvoiceStatusDraft, invoice.Status)
	assert.NotEmpty(t, invoice.Number)
}

func TestCreateInvoiceRequiresKnownClient(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.CreateInvoice(context.Background(), &entities.Invoice{
		Owner:    testOwner,
		ClientID: uuid.New(),
		Lines:    []entities.InvoiceLine{{Description: "Work", Quantity: 1, UnitAmount: 1}},
	})
	assert.True(t, domainerrors.IsNotFound(err))
}

func TestSentInvoicePastDueReadsAsOverdue(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	client := createClient(t, svc, "Acme")

	invoice, err := svc.CreateInvoice(ctx, &entities.Invoice{
		Owner:    testOwner,
		ClientID: client.ID,
		Lines:    []entities.InvoiceLine{{Description: "Work", Quantity: 1, UnitAmount: 1_000_000}},
		DueAt:    time.Now().Add(-24 * time.Hour),
	})
	require.NoError(t, err)

	// drafts never go overdue
	invoices, err := svc.Invoices(ctx, testOwner)
	require.NoError(t, err)
	assert.Equal(t, entities.InvoiceStatusDraft, invoices[0].Status)

	_, err = svc.SetInvoiceStatus(ctx, testOwner, invoice.ID, entities.InvoiceStatusSent)
	require.NoError(t, err)

	invoices, err = svc.Invoices(ctx, testOwner)
	require.NoError(t, err)
	assert.Equal(t, entities.InvoiceStatusOverdue, invoices[0].Status)

	_, err = svc.SetInvoiceStatus(ctx, testOwner, invoice.ID, entities.InvoiceStatusPaid)
	require.NoError(t, err)

	invoices, err = svc.Invoices(ctx, testOwner)
	require.NoError(t, err)
	assert.Equal(t, entities.InvoiceStatusPaid, invoices[0].Status)
}

func TestInvoicesNewestFirst(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	client := createClient(t, svc, "Acme")

	for _, desc := range []string{"first", "second"} {
		_, err := svc.CreateInvoice(ctx, &entities.Invoice{
			Owner:    testOwner,
			ClientID: client.ID,
			Lines:    []entities.InvoiceLine{{Description: desc, Quantity: 1, UnitAmount: 1}},
		})
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	invoices, err := svc.Invoices(ctx, testOwner)
	require.NoError(t, err)
	require.Len(t, invoices, 2)
	assert.Equal(t, "second", invoices[0].Lines[0].Description)
}

func TestBeneficiaryNeedsExactlyOneDestination(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddBeneficiary(ctx, &entities.Beneficiary{
		Owner: testOwner, Label: "both",
		WalletAddress: "wallet", BankAccountID: "bank",
	})
	assert.True(t, domainerrors.IsValidation(err))

	_, err = svc.AddBeneficiary(ctx, &entities.Beneficiary{
		Owner: testOwner, Label: "neither",
	})
	assert.True(t, domainerrors.IsValidation(err))

	b, err := svc.AddBeneficiary(ctx, &entities.Beneficiary{
		Owner: testOwner, Label: "wallet only", WalletAddress: "wallet",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, b.ID)
}

func TestDeleteBeneficiary(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	b, err := svc.AddBeneficiary(ctx, &entities.Beneficiary{
		Owner: testOwner, Label: "savings", BankAccountID: "acc-1",
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteBeneficiary(ctx, testOwner, b.ID))
	assert.True(t, domainerrors.IsNotFound(svc.DeleteBeneficiary(ctx, testOwner, b.ID)))

	list, err := svc.Beneficiaries(ctx, testOwner)
	require.NoError(t, err)
	assert.Empty(t, list)
}
