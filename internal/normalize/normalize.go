package normalize

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/invoicelens/invoice-extractor/internal/common"
	"github.com/invoicelens/invoice-extractor/internal/llm"
)

// ValidationError reports exactly which field failed strict validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("field %q: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return common.ErrValidation }

// Item is one normalized invoice line.
type Item struct {
	ProductName string
	ProductCode string
	Quantity    int
	UnitPrice   decimal.Decimal
	LineTotal   decimal.Decimal
	Description string
}

// Result is the normalized, strictly validated invoice record.
type Result struct {
	CustomerName    string
	CustomerEmail   string
	InvoiceNumber   string
	OrderDate       time.Time
	TotalAmount     decimal.Decimal
	TaxAmount       decimal.Decimal
	ShippingAddress string
	BillingAddress  string
	Unverified      bool
	Items           []Item
}

// dateFormats are tried in order when parsing order_date. Anything that
// parses under none of them falls back to today.
var dateFormats = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"02-01-2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
}

// Normalize parses a raw model payload into a typed record, applying lenient
// coercions first and strict validation second. Coercions never fail: an
// unparsable amount becomes zero, an unparsable date becomes today, a zero
// line total is recomputed from quantity and unit price. Validation failures
// after coercion are fatal and name the offending field.
//
// Normalizing an already-normalized payload is a no-op.
func Normalize(raw []byte) (*Result, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		// The payload may still be wrapped in prose or code fences.
		span, exErr := llm.ExtractJSONObject(string(raw))
		if exErr != nil {
			return nil, fmt.Errorf("%w: parse payload: %v", common.ErrValidation, err)
		}
		if err := json.Unmarshal(span, &m); err != nil {
			return nil, fmt.Errorf("%w: parse payload: %v", common.ErrValidation, err)
		}
	}

	r := &Result{
		CustomerName:    asString(m["customer_name"]),
		CustomerEmail:   asString(m["customer_email"]),
		InvoiceNumber:   asString(m["invoice_number"]),
		OrderDate:       asDate(m["order_date"]),
		TotalAmount:     asDecimal(m["total_amount"]),
		TaxAmount:       asDecimal(m["tax_amount"]),
		ShippingAddress: asString(m["shipping_address"]),
		BillingAddress:  asString(m["billing_address"]),
		Unverified:      asBool(m["unverified"]),
	}

	if details, ok := m["order_details"].([]any); ok {
		for _, d := range details {
			dm, ok := d.(map[string]any)
			if !ok {
				continue
			}
			item := Item{
				ProductName: asString(dm["product_name"]),
				ProductCode: asString(dm["product_code"]),
				Quantity:    asInt(dm["quantity"]),
				UnitPrice:   asDecimal(dm["unit_price"]),
				LineTotal:   asDecimal(dm["line_total"]),
				Description: asString(dm["description"]),
			}
			if item.Quantity <= 0 {
				item.Quantity = 1
			}
			if item.LineTotal.IsZero() && !item.UnitPrice.IsZero() {
				item.LineTotal = item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
			}
			r.Items = append(r.Items, item)
		}
	}

	if err := r.validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Result) validate() error {
	if r.CustomerName == "" {
		return &ValidationError{Field: "customer_name", Reason: "must not be empty"}
	}
	if r.InvoiceNumber == "" {
		return &ValidationError{Field: "invoice_number", Reason: "must not be empty"}
	}
	if r.TotalAmount.IsNegative() {
		return &ValidationError{Field: "total_amount", Reason: "must not be negative"}
	}
	if r.TaxAmount.IsNegative() {
		return &ValidationError{Field: "tax_amount", Reason: "must not be negative"}
	}
	for i, item := range r.Items {
		if item.ProductName == "" {
			return &ValidationError{
				Field:  fmt.Sprintf("order_details[%d].product_name", i),
				Reason: "must not be empty",
			}
		}
	}
	return nil
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return decimal.NewFromFloat(t).String()
	case bool:
		return ""
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

func asDecimal(v any) decimal.Decimal {
	switch t := v.(type) {
	case float64:
		return decimal.NewFromFloat(t)
	case string:
		s := strings.TrimSpace(t)
		s = strings.TrimLeft(s, "$€£ ")
		s = strings.ReplaceAll(s, ",", "")
		if s == "" {
			return decimal.Zero
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero
		}
		return d
	default:
		return decimal.Zero
	}
}

func asInt(v any) int {
	return int(asDecimal(v).IntPart())
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func asDate(v any) time.Time {
	s := asString(v)
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
