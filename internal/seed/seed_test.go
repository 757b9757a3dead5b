package seed

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	clientrepo "github.com/smallbiznis/bizadmin/internal/client/repository"
	clientservice "github.com/smallbiznis/bizadmin/internal/client/service"
	companyservice "github.com/smallbiznis/bizadmin/internal/companysettings/service"
	invoicedomain "github.com/smallbiznis/bizadmin/internal/invoice/domain"
	invoicerepo "github.com/smallbiznis/bizadmin/internal/invoice/repository"
	invoiceservice "github.com/smallbiznis/bizadmin/internal/invoice/service"
	projectrepo "github.com/smallbiznis/bizadmin/internal/project/repository"
	projectservice "github.com/smallbiznis/bizadmin/internal/project/service"
	"github.com/smallbiznis/bizadmin/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	db := testutil.NewDB(t)
	node := testutil.NewNode(t)
	log := zap.NewNop()
	clients := clientrepo.Provide()

	svc := NewService(Params{
		DB:         db,
		Log:        log,
		ClientRepo: clients,
		Clients:    clientservice.New(clientservice.Params{DB: db, Log: log, GenID: node, Repo: clients}),
		Projects:   projectservice.New(projectservice.Params{DB: db, Log: log, GenID: node, Repo: projectrepo.Provide()}),
		Invoices:   invoiceservice.NewService(invoiceservice.ServiceParam{DB: db, Log: log, GenID: node, Repo: invoicerepo.Provide()}),
		Settings:   companyservice.New(companyservice.Params{DB: db, Log: log, GenID: node}),
	})
	return svc, db, node
}

func TestSeedSampleDataCreatesDataSet(t *testing.T) {
	svc, db, node := newTestService(t)
	ctx := testutil.OwnerContext(node.Generate())

	res, err := svc.SeedSampleData(ctx)
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, MessageCreated, res.Message)

	var counts struct {
		Clients  int64
		Projects int64
		Items    int64
	}
	require.NoError(t, db.Raw(`SELECT
		(SELECT COUNT(*) FROM clients) AS clients,
		(SELECT COUNT(*) FROM projects) AS projects,
		(SELECT COUNT(*) FROM invoice_items) AS items`).Scan(&counts).Error)
	assert.EqualValues(t, 3, counts.Clients)
	assert.EqualValues(t, 4, counts.Projects)
	assert.EqualValues(t, 9, counts.Items)

	var invoices []invoicedomain.Invoice
	require.NoError(t, db.Order("invoice_number ASC").Find(&invoices).Error)
	require.Len(t, invoices, 4)

	expected := []struct {
		number string
		excl   float64
		vat    float64
		incl   float64
		paid   bool
	}{
		{"FY2023-01-001", 3500, 735, 4235, true},
		{"FY2023-04-002", 7250, 1522.5, 8772.5, true},
		{"FY2023-05-003", 12500, 2625, 15125, false},
		{"FY2023-06-004", 5800, 1218, 7018, false},
	}
	for i, want := range expected {
		got := invoices[i]
		assert.Equal(t, want.number, got.InvoiceNumber)
		assert.InDelta(t, want.excl, got.TotalExclVAT, 1e-9)
		assert.InDelta(t, want.vat, got.VATAmount, 1e-9)
		assert.InDelta(t, want.incl, got.TotalInclVAT, 1e-9)
		assert.Equal(t, want.paid, got.IsPaid)
	}
}

func TestSeedSampleDataSkipsWhenClientsExist(t *testing.T) {
	svc, db, node := newTestService(t)
	ctx := testutil.OwnerContext(node.Generate())

	_, err := svc.SeedSampleData(ctx)
	require.NoError(t, err)

	res, err := svc.SeedSampleData(ctx)
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, MessageAlreadyExists, res.Message)

	var clients int64
	require.NoError(t, db.Raw(`SELECT COUNT(*) FROM clients`).Scan(&clients).Error)
	assert.EqualValues(t, 3, clients)
}

func TestSeedSampleDataRequiresOwner(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.SeedSampleData(context.Background())
	assert.ErrorIs(t, err, ErrInvalidOwner)
}
