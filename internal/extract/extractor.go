package extract

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/invoicelens/invoice-extractor/constants"
	"github.com/invoicelens/invoice-extractor/internal/common"
)

// minTextLayerChars is the threshold below which a PDF's embedded text layer
// is considered empty (scanned document) and we fall back to OCR.
const minTextLayerChars = 100

type Config struct {
	Tesseract     string // binary name or absolute path; if empty -> "tesseract"
	TesseractLang string // default "eng"
	DPI           int    // rasterization DPI for scanned PDFs, default 300
	MaxOCRPages   int    // cap on pages rasterized for OCR, default 5
}

type Result struct {
	Text     string
	Pages    int
	Method   string // "pdf-text" | "pdf-ocr" | "image-ocr"
	Duration time.Duration
}

type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.MaxOCRPages <= 0 {
		cfg.MaxOCRPages = 5
	}
	return &Extractor{cfg: cfg, runner: execRunner{}, logger: logger}
}

// Extract picks a strategy based on file extension. Failures are input
// errors: there is no point retrying an unreadable document.
func (e *Extractor) Extract(ctx context.Context, path string) (Result, error) {
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(path))
	e.logger.Debug("extract.start", "path", path, "ext", ext)

	var res Result
	var err error
	switch constants.MapExtToFormat(ext) {
	case constants.PDF:
		res, err = e.extractPDF(ctx, path)
	case constants.IMAGE:
		res, err = e.extractImage(ctx, path)
	default:
		return Result{}, fmt.Errorf("%w: unsupported extension %q", common.ErrInput, ext)
	}
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", common.ErrInput, err)
	}

	res.Duration = time.Since(start)
	e.logger.Info("extract.ok",
		"path", path,
		"method", res.Method,
		"pages", res.Pages,
		"text_len", len(res.Text),
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

// needsOCR reports whether a PDF text layer is too thin to be usable.
func needsOCR(text string) bool {
	return len(strings.TrimSpace(text)) < minTextLayerChars
}
