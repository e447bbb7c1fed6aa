package extract

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
)

func (e *Extractor) extractPDF(ctx context.Context, path string) (Result, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return Result{}, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	if pageCount == 0 {
		return Result{}, fmt.Errorf("pdf has no pages")
	}

	var b strings.Builder
	for n := 0; n < pageCount; n++ {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		default:
		}
		txt, err := doc.Text(n)
		if err != nil {
			e.logger.Warn("extract.pdf.page_text_failed", "path", path, "page", n+1, "error", err)
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\f\n")
		}
		b.WriteString(txt)
	}

	text := b.String()
	if !needsOCR(text) {
		return Result{Text: text, Pages: pageCount, Method: "pdf-text"}, nil
	}

	// Thin or missing text layer: the document is likely scanned. Rasterize
	// the first pages and OCR them instead.
	e.logger.Info("extract.pdf.ocr_fallback", "path", path, "text_layer_len", len(strings.TrimSpace(text)))
	return e.pdfOCR(ctx, doc, pageCount)
}

func (e *Extractor) pdfOCR(ctx context.Context, doc *fitz.Document, pageCount int) (Result, error) {
	tmpDir, err := os.MkdirTemp("", "invoice-ocr-*")
	if err != nil {
		return Result{}, fmt.Errorf("create temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	pages := pageCount
	if pages > e.cfg.MaxOCRPages {
		pages = e.cfg.MaxOCRPages
	}

	var b strings.Builder
	for n := 0; n < pages; n++ {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		default:
		}

		img, err := doc.ImageDPI(n, float64(e.cfg.DPI))
		if err != nil {
			e.logger.Warn("extract.pdf.rasterize_failed", "page", n+1, "error", err)
			continue
		}

		imgPath := filepath.Join(tmpDir, fmt.Sprintf("page-%03d.png", n+1))
		f, err := os.Create(imgPath)
		if err != nil {
			return Result{}, fmt.Errorf("create page image: %w", err)
		}
		encErr := png.Encode(f, img)
		_ = f.Close()
		if encErr != nil {
			return Result{}, fmt.Errorf("encode page %d: %w", n+1, encErr)
		}

		txt, err := e.tesseractOCR(ctx, imgPath)
		if err != nil {
			e.logger.Warn("extract.pdf.page_ocr_failed", "page", n+1, "error", err)
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\f\n")
		}
		b.WriteString(txt)
	}

	if strings.TrimSpace(b.String()) == "" {
		return Result{}, fmt.Errorf("ocr produced no text")
	}
	return Result{Text: b.String(), Pages: pages, Method: "pdf-ocr"}, nil
}
