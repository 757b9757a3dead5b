package service

import (
	"context"
	"testing"

	"github.com/smallbiznis/bizadmin/internal/companysettings/domain"
	"github.com/smallbiznis/bizadmin/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGetBeforeSave(t *testing.T) {
	db := testutil.NewDB(t)
	node := testutil.NewNode(t)
	svc := New(Params{DB: db, Log: zap.NewNop(), GenID: node})

	_, err := svc.Get(testutil.OwnerContext(node.Generate()))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Get(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidOwner)
}

func TestUpsertCreatesThenUpdates(t *testing.T) {
	db := testutil.NewDB(t)
	node := testutil.NewNode(t)
	svc := New(Params{DB: db, Log: zap.NewNop(), GenID: node})
	ctx := testutil.OwnerContext(node.Generate())

	first, err := svc.Upsert(ctx, domain.UpsertRequest{
		CompanyName: " Yohannes Hoveniersbedrijf B.V. ",
		IBAN:        "nl91 abna 0417 1643 00",
		Email:       "info@hovenier.nl",
	})
	require.NoError(t, err)
	assert.Equal(t, "Yohannes Hoveniersbedrijf B.V.", first.CompanyName)
	assert.Equal(t, "NL91ABNA0417164300", first.IBAN)
	assert.Equal(t, domain.DefaultVATPercent, first.VATDefault)

	vat := 9.0
	second, err := svc.Upsert(ctx, domain.UpsertRequest{
		CompanyName: "Yohannes Hoveniersbedrijf B.V.",
		VATDefault:  &vat,
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)

	got, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 9.0, got.VATDefault)
	assert.Empty(t, got.IBAN)
	assert.Empty(t, got.Email)

	var count int64
	require.NoError(t, db.Model(&domain.CompanySettings{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUpsertValidation(t *testing.T) {
	db := testutil.NewDB(t)
	node := testutil.NewNode(t)
	svc := New(Params{DB: db, Log: zap.NewNop(), GenID: node})
	ctx := testutil.OwnerContext(node.Generate())

	_, err := svc.Upsert(ctx, domain.UpsertRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidCompanyName)

	over := 101.0
	_, err = svc.Upsert(ctx, domain.UpsertRequest{CompanyName: "X", VATDefault: &over})
	assert.ErrorIs(t, err, domain.ErrInvalidVATDefault)

	_, err = svc.Upsert(ctx, domain.UpsertRequest{CompanyName: "X", Email: "nope"})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)
}
