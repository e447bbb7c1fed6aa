package export

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/invoicelens/invoice-extractor/internal/entity"
)

// ContentTypeXLSX is the MIME type for xlsx workbooks.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Service produces XLSX workbooks from extracted invoices.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// WriteXLSX writes a two-sheet workbook: invoice headers and line items.
func (s *Service) WriteXLSX(w io.Writer, invoices []entity.Invoice) error {
	start := time.Now()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const headerSheet = "Invoices"
	const itemSheet = "Line Items"

	if err := f.SetSheetName("Sheet1", headerSheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(itemSheet); err != nil {
		return err
	}

	headers := []string{
		"Invoice Number",
		"Customer Name",
		"Customer Email",
		"Order Date",
		"Total Amount",
		"Tax Amount",
		"Status",
		"Unverified",
		"Source File",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(headerSheet, cell, h)
	}

	itemHeaders := []string{
		"Invoice Number",
		"Product Name",
		"Product Code",
		"Quantity",
		"Unit Price",
		"Line Total",
		"Description",
	}
	for i, h := range itemHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(itemSheet, cell, h)
	}

	write := func(sheet string, col, row int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheet, cell, v)
	}

	headerRow := 2
	itemRow := 2
	for _, inv := range invoices {
		write(headerSheet, 1, headerRow, inv.InvoiceNumber)
		write(headerSheet, 2, headerRow, inv.CustomerName)
		write(headerSheet, 3, headerRow, inv.CustomerEmail)
		if !inv.OrderDate.IsZero() {
			write(headerSheet, 4, headerRow, inv.OrderDate.Format("2006-01-02"))
		}
		write(headerSheet, 5, headerRow, inv.TotalAmount.String())
		write(headerSheet, 6, headerRow, inv.TaxAmount.String())
		write(headerSheet, 7, headerRow, string(inv.Status))
		write(headerSheet, 8, headerRow, inv.Unverified)
		write(headerSheet, 9, headerRow, inv.SourceFile)
		headerRow++

		for _, it := range inv.LineItems {
			write(itemSheet, 1, itemRow, inv.InvoiceNumber)
			write(itemSheet, 2, itemRow, it.ProductName)
			write(itemSheet, 3, itemRow, it.ProductCode)
			write(itemSheet, 4, itemRow, it.Quantity)
			write(itemSheet, 5, itemRow, it.UnitPrice.String())
			write(itemSheet, 6, itemRow, it.LineTotal.String())
			write(itemSheet, 7, itemRow, it.Description)
			itemRow++
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	s.logger.Info("export.xlsx.ok",
		"invoices", len(invoices),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}
