package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/invoicelens/invoice-extractor/constants"
	"github.com/invoicelens/invoice-extractor/internal/common"
	"github.com/invoicelens/invoice-extractor/internal/entity"
	"github.com/invoicelens/invoice-extractor/internal/normalize"
)

// InvoiceRepository persists extraction results and serves the CRUD surface.
// Header and line items are always written in one transaction: a header
// without its items never becomes visible.
type InvoiceRepository interface {
	CreateFromExtraction(ctx context.Context, res *normalize.Result, sourceFile string) (*entity.Invoice, error)
	GetByID(ctx context.Context, id string) (*entity.Invoice, error)
	List(ctx context.Context, page, pageSize int) ([]entity.Invoice, int64, error)
	UpdateHeader(ctx context.Context, id string, fields map[string]any) (*entity.Invoice, error)
	ReplaceLineItems(ctx context.Context, id string, items []entity.LineItem) (*entity.Invoice, error)
	DeleteLineItem(ctx context.Context, invoiceID string, itemID uint) (*entity.Invoice, error)
	Delete(ctx context.Context, id string) error
}

type invoiceRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewInvoiceRepository(db *gorm.DB, logger *slog.Logger) InvoiceRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &invoiceRepository{db: db, logger: logger}
}

func (r *invoiceRepository) CreateFromExtraction(ctx context.Context, res *normalize.Result, sourceFile string) (*entity.Invoice, error) {
	inv := &entity.Invoice{
		ID:              uuid.NewString(),
		CustomerName:    res.CustomerName,
		CustomerEmail:   res.CustomerEmail,
		OrderDate:       res.OrderDate,
		InvoiceNumber:   res.InvoiceNumber,
		TotalAmount:     res.TotalAmount,
		TaxAmount:       res.TaxAmount,
		ShippingAddress: res.ShippingAddress,
		BillingAddress:  res.BillingAddress,
		Status:          constants.InvoiceStatusExtracted,
		Unverified:      res.Unverified,
		SourceFile:      sourceFile,
	}
	for _, it := range res.Items {
		inv.LineItems = append(inv.LineItems, entity.LineItem{
			ProductName: it.ProductName,
			ProductCode: it.ProductCode,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			LineTotal:   it.LineTotal,
			Description: it.Description,
		})
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(inv).Error
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create invoice: %v", common.ErrStorage, err)
	}

	r.logger.Info("repository.invoice.created",
		"invoice_id", inv.ID,
		"invoice_number", inv.InvoiceNumber,
		"line_items", len(inv.LineItems),
	)
	return inv, nil
}

func (r *invoiceRepository) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	var inv entity.Invoice
	err := r.db.WithContext(ctx).Preload("LineItems").First(&inv, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: invoice %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get invoice: %v", common.ErrStorage, err)
	}
	return &inv, nil
}

func (r *invoiceRepository) List(ctx context.Context, page, pageSize int) ([]entity.Invoice, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&entity.Invoice{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("%w: count invoices: %v", common.ErrStorage, err)
	}

	var invoices []entity.Invoice
	err := r.db.WithContext(ctx).
		Preload("LineItems").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&invoices).Error
	if err != nil {
		return nil, 0, fmt.Errorf("%w: list invoices: %v", common.ErrStorage, err)
	}
	return invoices, total, nil
}

// headerFields are the invoice columns a client may update directly.
var headerFields = map[string]struct{}{
	"customer_name":    {},
	"customer_email":   {},
	"order_date":       {},
	"invoice_number":   {},
	"total_amount":     {},
	"tax_amount":       {},
	"shipping_address": {},
	"billing_address":  {},
	"status":           {},
	"unverified":       {},
}

func (r *invoiceRepository) UpdateHeader(ctx context.Context, id string, fields map[string]any) (*entity.Invoice, error) {
	updates := make(map[string]any, len(fields))
	for k, v := range fields {
		if _, ok := headerFields[k]; ok {
			updates[k] = v
		}
	}
	if len(updates) == 0 {
		return nil, fmt.Errorf("%w: no updatable fields", common.ErrInvalidInput)
	}

	res := r.db.WithContext(ctx).Model(&entity.Invoice{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("%w: update invoice: %v", common.ErrStorage, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: invoice %s", common.ErrNotFound, id)
	}
	return r.GetByID(ctx, id)
}

func (r *invoiceRepository) ReplaceLineItems(ctx context.Context, id string, items []entity.LineItem) (*entity.Invoice, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv entity.Invoice
		if err := tx.First(&inv, "id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Where("invoice_id = ?", id).Delete(&entity.LineItem{}).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].ID = 0
			items[i].InvoiceID = id
			if items[i].Quantity <= 0 {
				items[i].Quantity = 1
			}
			if items[i].LineTotal.IsZero() && !items[i].UnitPrice.IsZero() {
				items[i].LineTotal = items[i].UnitPrice.Mul(decimal.NewFromInt(int64(items[i].Quantity)))
			}
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return err
			}
		}
		return recomputeTotal(tx, &inv)
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: invoice %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: replace line items: %v", common.ErrStorage, err)
	}
	return r.GetByID(ctx, id)
}

func (r *invoiceRepository) DeleteLineItem(ctx context.Context, invoiceID string, itemID uint) (*entity.Invoice, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv entity.Invoice
		if err := tx.First(&inv, "id = ?", invoiceID).Error; err != nil {
			return err
		}
		res := tx.Where("invoice_id = ? AND id = ?", invoiceID, itemID).Delete(&entity.LineItem{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return recomputeTotal(tx, &inv)
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: invoice %s item %d", common.ErrNotFound, invoiceID, itemID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: delete line item: %v", common.ErrStorage, err)
	}
	return r.GetByID(ctx, invoiceID)
}

func (r *invoiceRepository) Delete(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&entity.Invoice{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		// Explicit child delete keeps SQLite correct even without enforced
		// foreign keys.
		return tx.Where("invoice_id = ?", id).Delete(&entity.LineItem{}).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: invoice %s", common.ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("%w: delete invoice: %v", common.ErrStorage, err)
	}
	return nil
}

// recomputeTotal refreshes the header total from the current line items plus
// tax.
func recomputeTotal(tx *gorm.DB, inv *entity.Invoice) error {
	var items []entity.LineItem
	if err := tx.Where("invoice_id = ?", inv.ID).Find(&items).Error; err != nil {
		return err
	}
	total := inv.TaxAmount
	for _, it := range items {
		total = total.Add(it.LineTotal)
	}
	return tx.Model(&entity.Invoice{}).Where("id = ?", inv.ID).Update("total_amount", total).Error
}
