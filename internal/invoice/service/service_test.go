package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	clientdomain "github.com/smallbiznis/bizadmin/internal/client/domain"
	"github.com/smallbiznis/bizadmin/internal/clock"
	companydomain "github.com/smallbiznis/bizadmin/internal/companysettings/domain"
	"github.com/smallbiznis/bizadmin/internal/config"
	"github.com/smallbiznis/bizadmin/internal/invoice/calc"
	invoicedomain "github.com/smallbiznis/bizadmin/internal/invoice/domain"
	"github.com/smallbiznis/bizadmin/internal/invoice/repository"
	projectdomain "github.com/smallbiznis/bizadmin/internal/project/domain"
	"github.com/smallbiznis/bizadmin/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db      *gorm.DB
	node    *snowflake.Node
	svc     *Service
	ctx     context.Context
	ownerID snowflake.ID
	client  clientdomain.Client
	project projectdomain.Project
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewDB(t)
	node := testutil.NewNode(t)
	ownerID := node.Generate()
	now := time.Now().UTC()

	client := clientdomain.Client{
		ID:        node.Generate(),
		OwnerID:   ownerID,
		Name:      "Gemeente Amsterdam",
		Address:   "Amstel 1\n1011 PN Amsterdam",
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, db.Create(&client).Error)

	project := projectdomain.Project{
		ID:            node.Generate(),
		OwnerID:       ownerID,
		ClientID:      client.ID,
		ProjectNumber: "PRJ-2023-001",
		Title:         "Vondelpark Onderhoud",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, db.Create(&project).Error)

	svc := newService(ServiceParam{
		DB:           db,
		Log:          zap.NewNop(),
		GenID:        node,
		Repo:         repository.Provide(),
		Clock:        clock.NewFakeClock(time.Date(2023, 5, 17, 9, 30, 0, 0, time.UTC)),
		InvoicingCfg: config.NewStaticInvoicingConfigHolder(config.DefaultInvoicingConfig()),
	})

	return &fixture{
		db:      db,
		node:    node,
		svc:     svc,
		ctx:     testutil.OwnerContext(ownerID),
		ownerID: ownerID,
		client:  client,
		project: project,
	}
}

func vat(v float64) *float64 { return &v }

func TestCreatePersistsRecomputedTotals(t *testing.T) {
	f := newFixture(t)

	invoice, err := f.svc.Create(f.ctx, invoicedomain.CreateInvoiceRequest{
		ClientID:    f.client.ID.String(),
		InvoiceDate: "2023-04-15",
		VATPercent:  vat(21),
		Items: []invoicedomain.LineItemInput{
			{ProjectID: f.project.ID.String(), Description: "Ontwerp", Quantity: 1, UnitPrice: 1250},
			{Description: "Materialen", Quantity: 1, UnitPrice: 3500},
			{Description: "Arbeid", Quantity: 50, UnitPrice: 50},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "FY2023-04-001", invoice.InvoiceNumber)
	assert.InDelta(t, 7250.0, invoice.TotalExclVAT, 1e-9)
	assert.InDelta(t, 1522.5, invoice.VATAmount, 1e-9)
	assert.InDelta(t, 8772.5, invoice.TotalInclVAT, 1e-9)

	require.Len(t, invoice.Items, 3)
	assert.Equal(t, "Ontwerp", invoice.Items[0].Description)
	assert.Equal(t, 0, invoice.Items[0].Position)
	require.NotNil(t, invoice.Items[0].Project)
	assert.Equal(t, "PRJ-2023-001", invoice.Items[0].Project.ProjectNumber)
	assert.InDelta(t, 2500.0, invoice.Items[2].Total, 1e-9)

	require.NotNil(t, invoice.Client)
	assert.Equal(t, "Gemeente Amsterdam", invoice.Client.Name)

	var stored invoicedomain.Invoice
	require.NoError(t, f.db.First(&stored, "id = ?", invoice.ID).Error)
	assert.InDelta(t, 8772.5, stored.TotalInclVAT, 1e-9)
}

func TestCreateIgnoresMalformedAmounts(t *testing.T) {
	f := newFixture(t)

	invoice, err := f.svc.Create(f.ctx, invoicedomain.CreateInvoiceRequest{
		ClientID:   f.client.ID.String(),
		VATPercent: vat(21),
		Items: []invoicedomain.LineItemInput{
			{Description: "Negatief", Quantity: -3, UnitPrice: 10},
			{Description: "Geldig", Quantity: 2, UnitPrice: 10},
		},
	})
	require.NoError(t, err)

	assert.InDelta(t, 20.0, invoice.TotalExclVAT, 1e-9)
	assert.InDelta(t, 0.0, invoice.Items[0].Total, 1e-9)
	assert.Equal(t, time.Date(2023, 5, 17, 0, 0, 0, 0, time.UTC), invoice.Date())
}

func TestCreateUsesCompanyDefaultVAT(t *testing.T) {
	f := newFixture(t)
	now := time.Now().UTC()
	require.NoError(t, f.db.Create(&companydomain.CompanySettings{
		ID:          f.node.Generate(),
		OwnerID:     f.ownerID,
		CompanyName: "Acme",
		VATDefault:  9,
		CreatedAt:   now,
		UpdatedAt:   now,
	}).Error)

	invoice, err := f.svc.Create(f.ctx, invoicedomain.CreateInvoiceRequest{
		ClientID: f.client.ID.String(),
		Items:    []invoicedomain.LineItemInput{{Quantity: 10, UnitPrice: 10}},
	})
	require.NoError(t, err)

	assert.Equal(t, 9.0, invoice.VATPercent)
	assert.InDelta(t, 9.0, invoice.VATAmount, 1e-9)
}

func TestCreateFallsBackToStandardVAT(t *testing.T) {
	f := newFixture(t)

	invoice, err := f.svc.Create(f.ctx, invoicedomain.CreateInvoiceRequest{
		ClientID: f.client.ID.String(),
		Items:    []invoicedomain.LineItemInput{{Quantity: 1, UnitPrice: 100}},
	})
	require.NoError(t, err)
	assert.Equal(t, 21.0, invoice.VATPercent)
	assert.InDelta(t, 121.0, invoice.TotalInclVAT, 1e-9)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		ctx  context.Context
		req  invoicedomain.CreateInvoiceRequest
		err  error
	}{
		{"missing owner", context.Background(), invoicedomain.CreateInvoiceRequest{ClientID: f.client.ID.String()}, invoicedomain.ErrInvalidOwner},
		{"bad client id", f.ctx, invoicedomain.CreateInvoiceRequest{ClientID: "abc"}, invoicedomain.ErrInvalidClient},
		{"unknown client", f.ctx, invoicedomain.CreateInvoiceRequest{ClientID: f.node.Generate().String()}, invoicedomain.ErrClientNotFound},
		{"bad date", f.ctx, invoicedomain.CreateInvoiceRequest{ClientID: f.client.ID.String(), InvoiceDate: "17-05-2023"}, invoicedomain.ErrInvalidInvoiceDate},
		{"vat above 100", f.ctx, invoicedomain.CreateInvoiceRequest{ClientID: f.client.ID.String(), VATPercent: vat(150)}, invoicedomain.ErrInvalidVATPercent},
		{"foreign project", f.ctx, invoicedomain.CreateInvoiceRequest{
			ClientID: f.client.ID.String(),
			Items:    []invoicedomain.LineItemInput{{ProjectID: f.node.Generate().String()}},
		}, invoicedomain.ErrInvalidProject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(tt.ctx, tt.req)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestCreateRejectsDuplicateNumber(t *testing.T) {
	f := newFixture(t)

	req := invoicedomain.CreateInvoiceRequest{
		ClientID:      f.client.ID.String(),
		InvoiceNumber: "FY2023-05-100",
	}
	_, err := f.svc.Create(f.ctx, req)
	require.NoError(t, err)

	_, err = f.svc.Create(f.ctx, req)
	assert.ErrorIs(t, err, invoicedomain.ErrDuplicateNumber)
}

func TestGeneratedNumberSkipsManualNumbers(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(f.ctx, invoicedomain.CreateInvoiceRequest{
		ClientID:      f.client.ID.String(),
		InvoiceNumber: "FY2023-05-001",
		InvoiceDate:   "2023-05-01",
	})
	require.NoError(t, err)

	generated, err := f.svc.Create(f.ctx, invoicedomain.CreateInvoiceRequest{
		ClientID:    f.client.ID.String(),
		InvoiceDate: "2023-05-02",
	})
	require.NoError(t, err)
	assert.Equal(t, "FY2023-05-002", generated.InvoiceNumber)
}

func TestUpdateVATOnlyRecomputesTotals(t *testing.T) {
	f := newFixture(t)

	created, err := f.svc.Create(f.ctx, invoicedomain.CreateInvoiceRequest{
		ClientID:   f.client.ID.String(),
		VATPercent: vat(21),
		Items:      []invoicedomain.LineItemInput{{Quantity: 80, UnitPrice: 43.75}},
	})
	require.NoError(t, err)
	assert.InDelta(t, 735.0, created.VATAmount, 1e-9)

	updated, err := f.svc.Update(f.ctx, invoicedomain.UpdateInvoiceRequest{
		ID:         created.ID.String(),
		VATPercent: vat(9),
	})
	require.NoError(t, err)

	assert.InDelta(t, 3500.0, updated.TotalExclVAT, 1e-9)
	assert.InDelta(t, 315.0, updated.VATAmount, 1e-9)
	assert.InDelta(t, 3815.0, updated.TotalInclVAT, 1e-9)
	assert.Len(t, updated.Items, 1)
}

func TestUpdateReplacesItems(t *testing.T) {
	f := newFixture(t)

	created, err := f.svc.Create(f.ctx, invoicedomain.CreateInvoiceRequest{
		ClientID:   f.client.ID.String(),
		VATPercent: vat(21),
		Items: []invoicedomain.LineItemInput{
			{Description: "a", Quantity: 1, UnitPrice: 10},
			{Description: "b", Quantity: 1, UnitPrice: 20},
		},
	})
	require.NoError(t, err)

	items := []invoicedomain.LineItemInput{{Description: "c", Quantity: 3, UnitPrice: 100}}
	updated, err := f.svc.Update(f.ctx, invoicedomain.UpdateInvoiceRequest{
		ID:    created.ID.String(),
		Items: &items,
	})
	require.NoError(t, err)

	require.Len(t, updated.Items, 1)
	assert.Equal(t, "c", updated.Items[0].Description)
	assert.InDelta(t, 363.0, updated.TotalInclVAT, 1e-9)

	var count int64
	require.NoError(t, f.db.Model(&invoicedomain.LineItem{}).Where("invoice_id = ?", created.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUpdateUnknownInvoice(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Update(f.ctx, invoicedomain.UpdateInvoiceRequest{ID: f.node.Generate().String()})
	assert.ErrorIs(t, err, invoicedomain.ErrNotFound)
}

func TestMarkPaidAndDelete(t *testing.T) {
	f := newFixture(t)

	created, err := f.svc.Create(f.ctx, invoicedomain.CreateInvoiceRequest{
		ClientID: f.client.ID.String(),
		Items:    []invoicedomain.LineItemInput{{Quantity: 1, UnitPrice: 1}},
	})
	require.NoError(t, err)
	assert.False(t, created.IsPaid)

	paid, err := f.svc.MarkPaid(f.ctx, created.ID.String(), true)
	require.NoError(t, err)
	assert.True(t, paid.IsPaid)

	require.NoError(t, f.svc.Delete(f.ctx, created.ID.String()))
	_, err = f.svc.GetByID(f.ctx, created.ID.String())
	assert.ErrorIs(t, err, invoicedomain.ErrNotFound)
	assert.ErrorIs(t, f.svc.Delete(f.ctx, created.ID.String()), invoicedomain.ErrNotFound)

	var count int64
	require.NoError(t, f.db.Model(&invoicedomain.LineItem{}).Where("invoice_id = ?", created.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestOwnerIsolation(t *testing.T) {
	f := newFixture(t)

	created, err := f.svc.Create(f.ctx, invoicedomain.CreateInvoiceRequest{ClientID: f.client.ID.String()})
	require.NoError(t, err)

	other := testutil.OwnerContext(f.node.Generate())
	_, err = f.svc.GetByID(other, created.ID.String())
	assert.ErrorIs(t, err, invoicedomain.ErrNotFound)

	_, err = f.svc.Create(other, invoicedomain.CreateInvoiceRequest{ClientID: f.client.ID.String()})
	assert.ErrorIs(t, err, invoicedomain.ErrClientNotFound)
}

func TestListFilters(t *testing.T) {
	f := newFixture(t)

	for _, date := range []string{"2023-01-10", "2023-03-10", "2023-06-10"} {
		_, err := f.svc.Create(f.ctx, invoicedomain.CreateInvoiceRequest{
			ClientID:    f.client.ID.String(),
			InvoiceDate: date,
			IsPaid:      date == "2023-01-10",
		})
		require.NoError(t, err)
	}

	all, err := f.svc.List(f.ctx, invoicedomain.ListInvoiceRequest{})
	require.NoError(t, err)
	require.Len(t, all.Invoices, 3)
	require.NotNil(t, all.Invoices[0].Client)
	assert.Equal(t, f.client.Name, all.Invoices[0].Client.Name)

	unpaid := false
	open, err := f.svc.List(f.ctx, invoicedomain.ListInvoiceRequest{IsPaid: &unpaid})
	require.NoError(t, err)
	assert.Len(t, open.Invoices, 2)

	from := time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC)
	ranged, err := f.svc.List(f.ctx, invoicedomain.ListInvoiceRequest{DateFrom: &from, DateTo: &to})
	require.NoError(t, err)
	require.Len(t, ranged.Invoices, 1)
	assert.Equal(t, "2023-03-10", ranged.Invoices[0].Date().Format(invoicedomain.DateLayout))

	page, err := f.svc.List(f.ctx, invoicedomain.ListInvoiceRequest{PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, page.Invoices, 2)
	assert.True(t, page.HasMore)
	assert.NotEmpty(t, page.NextPageToken)
}

func TestPreviewTotals(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.PreviewTotals(invoicedomain.PreviewTotalsRequest{
		VATPercent: 21,
		Items: []calc.Item{
			{Quantity: 2, UnitPrice: 10},
			{Quantity: 1.5, UnitPrice: 20},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []float64{20, 30}, resp.LineTotals)
	assert.InDelta(t, 50.0, resp.Subtotal, 1e-9)
	assert.InDelta(t, 60.5, resp.Total, 1e-9)
}

func TestPreviewTotalsRejectsOverflow(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.PreviewTotals(invoicedomain.PreviewTotalsRequest{
		VATPercent: 21,
		Items:      []calc.Item{{Quantity: calc.ParseAmount("1e200"), UnitPrice: calc.ParseAmount("1e200")}},
	})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidAmount)
}

func TestCreateRejectsAmountsOutsideColumns(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(f.ctx, invoicedomain.CreateInvoiceRequest{
		ClientID:    f.client.ID.String(),
		InvoiceDate: "2023-01-31",
		VATPercent:  vat(21),
		Items: []invoicedomain.LineItemInput{
			{Description: "Overflow", Quantity: calc.ParseAmount("1e200"), UnitPrice: calc.ParseAmount("1e200")},
		},
	})
	require.ErrorIs(t, err, invoicedomain.ErrInvalidAmount)

	var count int64
	require.NoError(t, f.db.Model(&invoicedomain.Invoice{}).Where("owner_id = ?", f.ownerID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestUpdateRejectsAmountsOutsideColumns(t *testing.T) {
	f := newFixture(t)

	created, err := f.svc.Create(f.ctx, invoicedomain.CreateInvoiceRequest{
		ClientID:    f.client.ID.String(),
		InvoiceDate: "2023-01-31",
		VATPercent:  vat(21),
		Items:       []invoicedomain.LineItemInput{{Description: "Snoeiwerk", Quantity: 80, UnitPrice: 43.75}},
	})
	require.NoError(t, err)

	items := []invoicedomain.LineItemInput{{Description: "Te veel", Quantity: 1_000_000, UnitPrice: 1_000_000}}
	_, err = f.svc.Update(f.ctx, invoicedomain.UpdateInvoiceRequest{ID: created.ID.String(), Items: &items})
	require.ErrorIs(t, err, invoicedomain.ErrInvalidAmount)

	got, err := f.svc.GetByID(f.ctx, created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 4235.0, got.TotalInclVAT)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Snoeiwerk", got.Items[0].Description)
}

func TestTimestampsFollowClock(t *testing.T) {
	f := newFixture(t)
	want := time.Date(2023, 5, 17, 9, 30, 0, 0, time.UTC)

	created, err := f.svc.Create(f.ctx, invoicedomain.CreateInvoiceRequest{
		ClientID:    f.client.ID.String(),
		InvoiceDate: "2023-01-31",
		Items:       []invoicedomain.LineItemInput{{Description: "Snoeiwerk", Quantity: 1, UnitPrice: 10}},
	})
	require.NoError(t, err)
	assert.True(t, want.Equal(created.CreatedAt))
	assert.True(t, want.Equal(created.UpdatedAt))

	paid, err := f.svc.MarkPaid(f.ctx, created.ID.String(), true)
	require.NoError(t, err)
	assert.True(t, want.Equal(paid.UpdatedAt))
}
