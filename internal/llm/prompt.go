package llm

import "strings"

// maxDocumentChars caps how much of the document text is embedded in the
// prompt; invoices front-load the fields we care about.
const maxDocumentChars = 4000

// BuildExtractionPrompt composes the fixed extraction prompt: persona, strict
// output rules, a literal example of the required JSON structure, and
// field-location guidelines, followed by the (truncated) document text.
func BuildExtractionPrompt(documentText string) string {
	doc := documentText
	if len(doc) > maxDocumentChars {
		doc = doc[:maxDocumentChars]
	}

	var b strings.Builder
	b.WriteString(`You are a professional document processing AI specialized in invoice data extraction. Your task is to analyze the provided document text and extract structured information as a valid JSON object.

CRITICAL INSTRUCTIONS:
1. Return ONLY a complete and valid JSON object - no additional text, markdown, or code blocks
2. MUST start with '{' and MUST end with '}'
3. ALL closing braces } and brackets ] MUST be included - do not truncate
4. If a field cannot be found, use empty string "" for text and 0 for numbers
5. All required fields must be present in the output
6. Parse dates to ISO format (YYYY-MM-DD)
7. Amounts are numbers only, no currency symbols

REQUIRED DATA STRUCTURE:
{
  "customer_name": "string (full name or company name)",
  "customer_email": "string (email address)",
  "order_date": "string (format: YYYY-MM-DD)",
  "invoice_number": "string (invoice/receipt number)",
  "total_amount": number (total payable amount as float/integer without currency symbol),
  "tax_amount": number (tax amount as float/integer without currency symbol),
  "shipping_address": "string (complete shipping address)",
  "billing_address": "string (complete billing address)",
  "order_details": [
    {
      "product_name": "string (name of product/item)",
      "product_code": "string (SKU/product code)",
      "quantity": number (integer quantity),
      "unit_price": number (price per unit as float/integer),
      "line_total": number (quantity x unit_price as float/integer),
      "description": "string (product description)"
    }
  ]
}

EXTRACTION GUIDELINES:
- "customer_name": Look for "Bill To:", "Customer:", "Client:", "Name:" or similar
- "customer_email": Look for "Email:", "@" symbol patterns
- "order_date": Look for "Date:", "Invoice Date:", "Order Date:" - convert to YYYY-MM-DD
- "invoice_number": Look for "Invoice #:", "Receipt #:", "Order #:"
- "total_amount": Look for "Total:", "Amount Due:", "Grand Total:" - extract numeric value only
- "tax_amount": Look for "Tax:", "VAT:", "GST:", "Tax Amount:" - extract numeric value only
- "shipping_address": Look for "Ship To:", "Delivery Address:", "Shipping:"
- "billing_address": Look for "Bill To:", "Billing Address:", "Invoice Address:"
- "order_details": Extract line items, typically in a table format with product information

DOCUMENT TEXT TO PROCESS:
`)
	b.WriteString(doc)
	b.WriteString(`

Return ONLY the complete, valid JSON object with ALL closing braces and brackets. Do not truncate or omit any closing characters.`)
	return b.String()
}
