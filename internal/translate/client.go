package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client speaks the LibreTranslate wire protocol: a JSON POST to
// <base>/translate carrying {q, source, target, format} and an
// optional api_key.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a client with a per-request timeout. Callers also
// pass a context, so the shorter of the two governs.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
	}
}

type translateRequest struct {
	Q      []string `json:"q"`
	Source string   `json:"source"`
	Target string   `json:"target"`
	Format string   `json:"format"`
	APIKey string   `json:"api_key,omitempty"`
}

type translateResponse struct {
	TranslatedText json.RawMessage `json:"translatedText"`
	Error          string          `json:"error,omitempty"`
}

// Translate sends one batch of texts to an endpoint and returns the
// translations in input order. Timeouts, non-2xx responses, and
// malformed payloads all return an error so the coordinator can fall
// back to the next endpoint.
func (c *Client) Translate(ctx context.Context, ep Endpoint, texts []string, source, target string) ([]string, error) {
	payload, err := json.Marshal(translateRequest{
		Q:      texts,
		Source: source,
		Target: target,
		Format: "text",
		APIKey: ep.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := ep.BaseURL + "/translate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("endpoint %s: status %d: %s", ep.BaseURL, resp.StatusCode, truncate(string(body), 200))
	}

	var parsed translateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("malformed response from %s: %w", ep.BaseURL, err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("endpoint %s: %s", ep.BaseURL, parsed.Error)
	}

	translated, err := decodeTranslatedText(parsed.TranslatedText)
	if err != nil {
		return nil, fmt.Errorf("malformed response from %s: %w", ep.BaseURL, err)
	}
	if len(translated) != len(texts) {
		return nil, fmt.Errorf("endpoint %s: got %d translations for %d texts", ep.BaseURL, len(translated), len(texts))
	}
	return translated, nil
}

// decodeTranslatedText accepts both response shapes the protocol uses:
// an array for array q, a bare string for single-text q.
func decodeTranslatedText(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("missing translatedText")
	}

	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		return many, nil
	}

	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		return []string{one}, nil
	}
	return nil, fmt.Errorf("unexpected translatedText shape")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
