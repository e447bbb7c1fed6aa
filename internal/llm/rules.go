package llm

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"
)

// Rule-based extraction patterns, applied to the document text when every
// model candidate has failed. Labels cover the common invoice layouts
// ("Bill To:", "Invoice #:", "Total:", "Date:").
var (
	reCustomerName  = regexp.MustCompile(`(?im)(?:customer|client|bill to|sold to|name)[:\s]*([A-Za-z .]{3,50})(?:\n|$)`)
	reInvoiceNumber = regexp.MustCompile(`(?im)(?:invoice|inv|number|#)[\s#:]*([A-Z0-9\-_]{3,20})`)
	reTotalAmount   = regexp.MustCompile(`(?im)(?:total|amount|due|balance)[\s:$]*([\d,]+\.?\d{0,2})`)
	reOrderDate     = regexp.MustCompile(`(?im)(?:date|invoice date|order date)[\s:]*(\d{1,2}[/\-]\d{1,2}[/\-]\d{2,4})`)
)

// localExtract pulls what it can out of the document text with regexes. It is
// the last strategy in the chain before the synthetic placeholder: the text is
// already in hand, so a header-level best effort beats an all-empty record.
// The result is always marked unverified.
func localExtract(documentText string) []byte {
	customer := "Unknown Customer"
	if m := reCustomerName.FindStringSubmatch(documentText); m != nil {
		if name := strings.TrimSpace(m[1]); name != "" {
			customer = name
		}
	}

	invoiceNumber := fmt.Sprintf("INV-%04d", textHash(documentText)%10000)
	if m := reInvoiceNumber.FindStringSubmatch(documentText); m != nil {
		invoiceNumber = strings.TrimSpace(m[1])
	}

	// Amount and date labels repeat on invoices (subtotal, total, due); the
	// last occurrence is usually the grand total.
	total := "0"
	if ms := reTotalAmount.FindAllStringSubmatch(documentText, -1); len(ms) > 0 {
		total = strings.ReplaceAll(ms[len(ms)-1][1], ",", "")
	}

	orderDate := ""
	if ms := reOrderDate.FindAllStringSubmatch(documentText, -1); len(ms) > 0 {
		orderDate = strings.TrimSpace(ms[len(ms)-1][1])
	}

	p := map[string]any{
		"customer_name":    customer,
		"customer_email":   "",
		"order_date":       orderDate,
		"invoice_number":   invoiceNumber,
		"total_amount":     total,
		"tax_amount":       0,
		"shipping_address": "",
		"billing_address":  "",
		"order_details":    []any{},
		"unverified":       true,
	}
	b, _ := json.Marshal(p)
	return b
}

func textHash(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}
