package normalize

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invoicelens/invoice-extractor/internal/common"
)

func TestNormalizeCleanPayload(t *testing.T) {
	raw := []byte(`{
		"customer_name": "Acme Corp",
		"customer_email": "billing@acme.test",
		"order_date": "2024-03-15",
		"invoice_number": "INV-1001",
		"total_amount": 37.50,
		"tax_amount": 2.50,
		"shipping_address": "1 Main St",
		"billing_address": "1 Main St",
		"order_details": [
			{"product_name": "Widget", "product_code": "W-1", "quantity": 3, "unit_price": 12.50, "line_total": 37.50, "description": "blue"}
		]
	}`)

	r, err := Normalize(raw)
	require.NoError(t, err)

	assert.Equal(t, "Acme Corp", r.CustomerName)
	assert.Equal(t, "INV-1001", r.InvoiceNumber)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), r.OrderDate)
	assert.True(t, r.TotalAmount.Equal(decimal.RequireFromString("37.50")))
	require.Len(t, r.Items, 1)
	assert.Equal(t, 3, r.Items[0].Quantity)
	assert.False(t, r.Unverified)
}

func TestNormalizeRecomputesLineTotal(t *testing.T) {
	raw := []byte(`{
		"customer_name": "Acme",
		"invoice_number": "1",
		"total_amount": 37.50,
		"order_details": [{"product_name": "Widget", "quantity": 3, "unit_price": 12.50, "line_total": 0}]
	}`)

	r, err := Normalize(raw)
	require.NoError(t, err)
	assert.True(t, r.Items[0].LineTotal.Equal(decimal.RequireFromString("37.50")),
		"got %s", r.Items[0].LineTotal)
}

func TestNormalizeCoercions(t *testing.T) {
	raw := []byte(`{
		"customer_name": "  Acme  ",
		"invoice_number": 1001,
		"order_date": "not a date",
		"total_amount": "$1,234.56",
		"tax_amount": "garbage",
		"order_details": [{"product_name": "Widget", "quantity": 0, "unit_price": "5"}]
	}`)

	r, err := Normalize(raw)
	require.NoError(t, err)

	assert.Equal(t, "Acme", r.CustomerName)
	assert.Equal(t, "1001", r.InvoiceNumber, "numeric invoice numbers become strings")
	assert.True(t, r.TotalAmount.Equal(decimal.RequireFromString("1234.56")))
	assert.True(t, r.TaxAmount.IsZero(), "unparsable amount coerces to zero")

	today := time.Now().UTC()
	assert.Equal(t, today.Truncate(24*time.Hour).Day(), r.OrderDate.Day(), "unparsable date falls back to today")

	require.Len(t, r.Items, 1)
	assert.Equal(t, 1, r.Items[0].Quantity, "zero quantity defaults to 1")
	assert.True(t, r.Items[0].LineTotal.Equal(decimal.RequireFromString("5")))
}

func TestNormalizeIdempotent(t *testing.T) {
	raw := []byte(`{
		"customer_name": "Acme",
		"invoice_number": "INV-9",
		"order_date": "03/15/2024",
		"total_amount": "12.00",
		"order_details": [{"product_name": "Widget", "quantity": 2, "unit_price": 6}]
	}`)

	first, err := Normalize(raw)
	require.NoError(t, err)

	again, err := json.Marshal(map[string]any{
		"customer_name":  first.CustomerName,
		"invoice_number": first.InvoiceNumber,
		"order_date":     first.OrderDate.Format("2006-01-02"),
		"total_amount":   first.TotalAmount,
		"tax_amount":     first.TaxAmount,
		"order_details": []map[string]any{{
			"product_name": first.Items[0].ProductName,
			"quantity":     first.Items[0].Quantity,
			"unit_price":   first.Items[0].UnitPrice,
			"line_total":   first.Items[0].LineTotal,
		}},
	})
	require.NoError(t, err)

	second, err := Normalize(again)
	require.NoError(t, err)

	assert.Equal(t, first.CustomerName, second.CustomerName)
	assert.Equal(t, first.InvoiceNumber, second.InvoiceNumber)
	assert.Equal(t, first.OrderDate, second.OrderDate)
	assert.True(t, first.TotalAmount.Equal(second.TotalAmount))
	assert.True(t, first.TaxAmount.Equal(second.TaxAmount))
	require.Len(t, second.Items, len(first.Items))
	assert.Equal(t, first.Items[0].ProductName, second.Items[0].ProductName)
	assert.Equal(t, first.Items[0].Quantity, second.Items[0].Quantity)
	assert.True(t, first.Items[0].UnitPrice.Equal(second.Items[0].UnitPrice))
	assert.True(t, first.Items[0].LineTotal.Equal(second.Items[0].LineTotal))
}

func TestNormalizeMissingCustomerName(t *testing.T) {
	raw := []byte(`{"customer_name": "", "invoice_number": "INV-1", "total_amount": 1}`)

	_, err := Normalize(raw)
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "customer_name", verr.Field)
	assert.True(t, errors.Is(err, common.ErrValidation))
}

func TestNormalizeExtractsEmbeddedJSON(t *testing.T) {
	raw := []byte("Here is the invoice data:\n```json\n{\"customer_name\":\"Acme\",\"invoice_number\":\"INV-7\",\"total_amount\":5}\n```\nLet me know if you need anything else.")

	r, err := Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, "Acme", r.CustomerName)
	assert.Equal(t, "INV-7", r.InvoiceNumber)
}

func TestNormalizeMalformedJSON(t *testing.T) {
	_, err := Normalize([]byte(`{nope`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrValidation))
}
