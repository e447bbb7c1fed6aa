package extract

import (
	"context"
	"fmt"
)

func (e *Extractor) extractImage(ctx context.Context, path string) (Result, error) {
	txt, err := e.tesseractOCR(ctx, path)
	if err != nil {
		return Result{}, err
	}
	return Result{Text: txt, Pages: 1, Method: "image-ocr"}, nil
}

func (e *Extractor) tesseractOCR(ctx context.Context, path string) (string, error) {
	// tesseract <file> stdout -l <lang>
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, path, "stdout", "-l", e.cfg.TesseractLang)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w (stderr: %s)", err, truncate(string(errb), 512))
	}
	return string(out), nil
}
