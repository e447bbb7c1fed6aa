package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildInvoiceJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map describing the payload we expect from the model. The chain uses
// it to decide whether a candidate's response is usable; strict field-level
// validation happens later in the normalizer.
func BuildInvoiceJSONSchema() map[string]any {
	item := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"product_name": map[string]any{"type": "string"},
			"product_code": map[string]any{"type": "string"},
			"quantity":     map[string]any{"type": []string{"number", "string"}},
			"unit_price":   map[string]any{"type": []string{"number", "string"}},
			"line_total":   map[string]any{"type": []string{"number", "string"}},
			"description":  map[string]any{"type": "string"},
		},
		"required": []string{"product_name"},
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"customer_name":    map[string]any{"type": "string"},
			"customer_email":   map[string]any{"type": "string"},
			"order_date":       map[string]any{"type": "string"},
			"invoice_number":   map[string]any{"type": []string{"string", "number"}},
			"total_amount":     map[string]any{"type": []string{"number", "string"}},
			"tax_amount":       map[string]any{"type": []string{"number", "string"}},
			"shipping_address": map[string]any{"type": "string"},
			"billing_address":  map[string]any{"type": "string"},
			"order_details":    map[string]any{"type": "array", "items": item},
			"unverified":       map[string]any{"type": "boolean"},
		},
		"required": []string{"customer_name", "invoice_number", "total_amount"},
	}
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
