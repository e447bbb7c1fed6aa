package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/invoicelens/invoice-extractor/internal/common"
	"github.com/invoicelens/invoice-extractor/internal/llm"
)

// Client calls the Gemini generateContent endpoint. It implements
// llm.CompletionClient; all failures are wrapped as transport errors so the
// fallback chain can absorb them.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float32 `json:"temperature"`
	TopP            float32 `json:"topP"`
	TopK            int     `json:"topK"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Complete sends one prompt to the named model and returns the concatenated
// text of the first candidate.
func (c *Client) Complete(ctx context.Context, model, prompt string, opts llm.Options) (string, error) {
	start := time.Now()

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     opts.Temperature,
			TopP:            opts.TopP,
			TopK:            opts.TopK,
			MaxOutputTokens: opts.MaxOutputTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %v", common.ErrTransport, err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(c.cfg.BaseURL, "/"), model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", common.ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	c.logger.Debug("gemini.complete.start", "model", model, "prompt_len", len(prompt))

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", common.ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("gemini.complete.http_error",
			"model", model,
			"status", resp.StatusCode,
			"body_len", len(raw),
		)
		return "", fmt.Errorf("%w: gemini status %d: %s", common.ErrTransport, resp.StatusCode, truncate(string(raw), 256))
	}

	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", common.ErrTransport, err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("%w: gemini error %d (%s): %s", common.ErrTransport, out.Error.Code, out.Error.Status, out.Error.Message)
	}
	if len(out.Candidates) == 0 {
		return "", fmt.Errorf("%w: gemini returned no candidates", common.ErrTransport)
	}

	var sb strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: gemini returned empty text (finish_reason=%s)", common.ErrTransport, out.Candidates[0].FinishReason)
	}

	c.logger.Debug("gemini.complete.ok",
		"model", model,
		"text_len", len(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
