// Command extract runs text extraction on a single file and prints the
// result. Useful for checking tesseract setup and inspecting what the
// pipeline will feed the model.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/invoicelens/invoice-extractor/internal/common"
	"github.com/invoicelens/invoice-extractor/internal/extract"
)

func main() {
	_ = godotenv.Load()

	timeout := flag.Duration("timeout", 2*time.Minute, "extraction timeout")
	quiet := flag.Bool("quiet", false, "print only the extracted text")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: extract [flags] <file>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	cfg := common.LoadConfig()

	extractor := extract.NewExtractor(extract.Config{
		Tesseract:     cfg.Extract.Tesseract,
		TesseractLang: cfg.Extract.TesseractLang,
		DPI:           cfg.Extract.DPI,
		MaxOCRPages:   cfg.Extract.MaxOCRPages,
	}, logger)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	res, err := extractor.Extract(ctx, path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "extract: %v\n", err)
		os.Exit(1)
	}

	if !*quiet {
		fmt.Fprintf(os.Stderr, "method=%s pages=%d chars=%d duration=%s\n",
			res.Method, res.Pages, len(res.Text), res.Duration.Round(time.Millisecond))
	}
	fmt.Println(res.Text)
}
