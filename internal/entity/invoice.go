package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/invoicelens/invoice-extractor/constants"
)

// Invoice is the persisted header of one extracted invoice.
type Invoice struct {
	ID              string                  `gorm:"primaryKey;size:36" json:"id"`
	CustomerName    string                  `gorm:"size:255;not null" json:"customer_name"`
	CustomerEmail   string                  `gorm:"size:255" json:"customer_email"`
	OrderDate       time.Time               `json:"order_date"`
	InvoiceNumber   string                  `gorm:"size:64;not null;index" json:"invoice_number"`
	TotalAmount     decimal.Decimal         `gorm:"type:numeric(12,2)" json:"total_amount"`
	TaxAmount       decimal.Decimal         `gorm:"type:numeric(12,2)" json:"tax_amount"`
	ShippingAddress string                  `gorm:"size:512" json:"shipping_address"`
	BillingAddress  string                  `gorm:"size:512" json:"billing_address"`
	Status          constants.InvoiceStatus `gorm:"size:32;not null" json:"status"`
	Unverified      bool                    `json:"unverified"`
	SourceFile      string                  `gorm:"size:512" json:"source_file"`

	LineItems []LineItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"line_items"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LineItem is one product row on an invoice.
type LineItem struct {
	ID          uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	InvoiceID   string          `gorm:"size:36;not null;index" json:"invoice_id"`
	ProductName string          `gorm:"size:255;not null" json:"product_name"`
	ProductCode string          `gorm:"size:64" json:"product_code"`
	Quantity    int             `gorm:"not null;default:1" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(12,2)" json:"unit_price"`
	LineTotal   decimal.Decimal `gorm:"type:numeric(12,2)" json:"line_total"`
	Description string          `gorm:"size:512" json:"description"`
}
