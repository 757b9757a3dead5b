package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizadmin/internal/client/domain"
	"github.com/smallbiznis/bizadmin/internal/client/repository"
	invoicedomain "github.com/smallbiznis/bizadmin/internal/invoice/domain"
	projectdomain "github.com/smallbiznis/bizadmin/internal/project/domain"
	"github.com/smallbiznis/bizadmin/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (domain.Service, *gorm.DB, *snowflake.Node, context.Context) {
	t.Helper()

	db := testutil.NewDB(t)
	node := testutil.NewNode(t)
	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	})
	return svc, db, node, testutil.OwnerContext(node.Generate())
}

func TestCreateTrimsAndValidates(t *testing.T) {
	svc, _, _, ctx := newTestService(t)

	client, err := svc.Create(ctx, domain.CreateClientRequest{
		Name:      "  Gemeente Amsterdam ",
		Email:     " facturen@amsterdam.nl ",
		KvKNumber: " 12345678 ",
	})
	require.NoError(t, err)
	assert.NotZero(t, client.ID)
	assert.Equal(t, "Gemeente Amsterdam", client.Name)
	assert.Equal(t, "facturen@amsterdam.nl", client.Email)
	assert.Equal(t, "12345678", client.KvKNumber)

	_, err = svc.Create(ctx, domain.CreateClientRequest{Name: "   "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.Create(ctx, domain.CreateClientRequest{Name: "Ok", Email: "not-an-email"})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)

	_, err = svc.Create(context.Background(), domain.CreateClientRequest{Name: "Ok"})
	assert.ErrorIs(t, err, domain.ErrInvalidOwner)
}

func TestUpdateAndGet(t *testing.T) {
	svc, _, _, ctx := newTestService(t)

	created, err := svc.Create(ctx, domain.CreateClientRequest{Name: "Familie de Vries"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, domain.UpdateClientRequest{
		ID:                  created.ID.String(),
		CreateClientRequest: domain.CreateClientRequest{Name: "Familie de Vries", Phone: "06-12345678"},
	})
	require.NoError(t, err)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)

	got, err := svc.GetByID(ctx, created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "06-12345678", got.Phone)

	_, err = svc.GetByID(ctx, "abc")
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	_, err = svc.Update(ctx, domain.UpdateClientRequest{
		ID:                  "42",
		CreateClientRequest: domain.CreateClientRequest{Name: "Nobody"},
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOwnerIsolation(t *testing.T) {
	svc, _, node, ctx := newTestService(t)

	created, err := svc.Create(ctx, domain.CreateClientRequest{Name: "Bakkerij Jansen"})
	require.NoError(t, err)

	other := testutil.OwnerContext(node.Generate())
	_, err = svc.GetByID(other, created.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, svc.Delete(other, created.ID.String()), domain.ErrNotFound)

	list, err := svc.List(other, domain.ListClientRequest{})
	require.NoError(t, err)
	assert.Empty(t, list.Clients)
}

func TestListFiltersAndPages(t *testing.T) {
	svc, _, _, ctx := newTestService(t)

	for _, name := range []string{"Alpha", "Bravo", "Charlie"} {
		_, err := svc.Create(ctx, domain.CreateClientRequest{Name: name, Email: name + "@example.nl"})
		require.NoError(t, err)
	}

	byName, err := svc.List(ctx, domain.ListClientRequest{Name: "Bravo"})
	require.NoError(t, err)
	require.Len(t, byName.Clients, 1)
	assert.Equal(t, "Bravo", byName.Clients[0].Name)

	byEmail, err := svc.List(ctx, domain.ListClientRequest{Email: "Charlie@example.nl"})
	require.NoError(t, err)
	require.Len(t, byEmail.Clients, 1)

	page, err := svc.List(ctx, domain.ListClientRequest{PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, page.Clients, 2)
	assert.True(t, page.HasMore)
	assert.NotEmpty(t, page.NextPageToken)
}

func TestDeleteRemovesDependents(t *testing.T) {
	svc, db, node, ctx := newTestService(t)

	client, err := svc.Create(ctx, domain.CreateClientRequest{Name: "Hotel Krasnapolsky"})
	require.NoError(t, err)

	now := time.Now().UTC()
	project := projectdomain.Project{
		ID:        node.Generate(),
		OwnerID:   client.OwnerID,
		ClientID:  client.ID,
		Title:     "Binnentuin",
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, db.Create(&project).Error)

	invoice := invoicedomain.Invoice{
		ID:            node.Generate(),
		OwnerID:       client.OwnerID,
		ClientID:      client.ID,
		InvoiceNumber: "FY2023-01-001",
		InvoiceDate:   datatypes.Date(time.Date(2023, 1, 16, 0, 0, 0, 0, time.UTC)),
		VATPercent:    21,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, db.Create(&invoice).Error)

	item := invoicedomain.LineItem{
		ID:          node.Generate(),
		OwnerID:     client.OwnerID,
		InvoiceID:   invoice.ID,
		ProjectID:   &project.ID,
		Description: "Snoeiwerk",
		Quantity:    1,
		UnitPrice:   100,
		Total:       100,
		CreatedAt:   now,
	}
	require.NoError(t, db.Create(&item).Error)

	require.NoError(t, svc.Delete(ctx, client.ID.String()))

	for _, table := range []string{"clients", "projects", "invoices", "invoice_items"} {
		var count int64
		require.NoError(t, db.Table(table).Where("owner_id = ?", client.OwnerID).Count(&count).Error)
		assert.Zero(t, count, table)
	}

	assert.ErrorIs(t, svc.Delete(ctx, client.ID.String()), domain.ErrNotFound)
}
