package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invoicelens/invoice-extractor/constants"
	"github.com/invoicelens/invoice-extractor/internal/common"
	"github.com/invoicelens/invoice-extractor/internal/entity"
	"github.com/invoicelens/invoice-extractor/internal/normalize"
)

func newTestRepo(t *testing.T) InvoiceRepository {
	t.Helper()
	db, err := Open(common.DatabaseConfig{DSN: ":memory:", MaxOpenConns: 1, MaxIdleConns: 1}, nil)
	require.NoError(t, err)
	return NewInvoiceRepository(db, nil)
}

func sampleResult() *normalize.Result {
	return &normalize.Result{
		CustomerName:  "Acme Corp",
		CustomerEmail: "billing@acme.test",
		InvoiceNumber: "INV-1001",
		OrderDate:     time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		TotalAmount:   decimal.RequireFromString("37.50"),
		TaxAmount:     decimal.RequireFromString("2.50"),
		Items: []normalize.Item{
			{ProductName: "Widget", Quantity: 2, UnitPrice: decimal.RequireFromString("12.50"), LineTotal: decimal.RequireFromString("25.00")},
			{ProductName: "Gadget", Quantity: 1, UnitPrice: decimal.RequireFromString("10.00"), LineTotal: decimal.RequireFromString("10.00")},
		},
	}
}

func TestCreateFromExtractionAndGet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	inv, err := repo.CreateFromExtraction(ctx, sampleResult(), "uploads/invoice.pdf")
	require.NoError(t, err)
	require.NotEmpty(t, inv.ID)

	got, err := repo.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", got.CustomerName)
	assert.Equal(t, "INV-1001", got.InvoiceNumber)
	assert.Len(t, got.LineItems, 2)
	assert.True(t, got.TotalAmount.Equal(decimal.RequireFromString("37.50")))
	assert.Equal(t, constants.InvoiceStatusExtracted, got.Status, "fresh rows carry the extracted status until reviewed")
}

func TestGetByIDNotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetByID(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestListPaginates(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		res := sampleResult()
		_, err := repo.CreateFromExtraction(ctx, res, "f.pdf")
		require.NoError(t, err)
	}

	page1, total, err := repo.List(ctx, 1, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	assert.Len(t, page1, 2)

	page3, _, err := repo.List(ctx, 3, 2)
	require.NoError(t, err)
	assert.Len(t, page3, 1)
}

func TestUpdateHeaderIgnoresUnknownFields(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	inv, err := repo.CreateFromExtraction(ctx, sampleResult(), "f.pdf")
	require.NoError(t, err)

	got, err := repo.UpdateHeader(ctx, inv.ID, map[string]any{
		"customer_name": "New Name",
		"id":            "attacker-controlled",
	})
	require.NoError(t, err)
	assert.Equal(t, "New Name", got.CustomerName)
	assert.Equal(t, inv.ID, got.ID)

	_, err = repo.UpdateHeader(ctx, inv.ID, map[string]any{"bogus": 1})
	assert.True(t, errors.Is(err, common.ErrInvalidInput))
}

func TestReplaceLineItemsRecomputesTotal(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	inv, err := repo.CreateFromExtraction(ctx, sampleResult(), "f.pdf")
	require.NoError(t, err)

	got, err := repo.ReplaceLineItems(ctx, inv.ID, []entity.LineItem{
		{ProductName: "Sprocket", Quantity: 4, UnitPrice: decimal.RequireFromString("5.00")},
	})
	require.NoError(t, err)

	require.Len(t, got.LineItems, 1)
	assert.True(t, got.LineItems[0].LineTotal.Equal(decimal.RequireFromString("20.00")), "line total recomputed from qty x unit price")
	// 20.00 items + 2.50 tax
	assert.True(t, got.TotalAmount.Equal(decimal.RequireFromString("22.50")), "got %s", got.TotalAmount)
}

func TestDeleteLineItemRecomputesTotal(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	inv, err := repo.CreateFromExtraction(ctx, sampleResult(), "f.pdf")
	require.NoError(t, err)
	require.Len(t, inv.LineItems, 2)

	got, err := repo.DeleteLineItem(ctx, inv.ID, inv.LineItems[0].ID)
	require.NoError(t, err)
	assert.Len(t, got.LineItems, 1)
	// 10.00 remaining item + 2.50 tax
	assert.True(t, got.TotalAmount.Equal(decimal.RequireFromString("12.50")), "got %s", got.TotalAmount)

	_, err = repo.DeleteLineItem(ctx, inv.ID, 99999)
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestDeleteCascadesLineItems(t *testing.T) {
	repo := newTestRepo(t).(*invoiceRepository)
	ctx := context.Background()

	inv, err := repo.CreateFromExtraction(ctx, sampleResult(), "f.pdf")
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, inv.ID))

	_, err = repo.GetByID(ctx, inv.ID)
	assert.True(t, errors.Is(err, common.ErrNotFound))

	var count int64
	require.NoError(t, repo.db.Model(&entity.LineItem{}).Where("invoice_id = ?", inv.ID).Count(&count).Error)
	assert.EqualValues(t, 0, count)

	assert.True(t, errors.Is(repo.Delete(ctx, inv.ID), common.ErrNotFound))
}
