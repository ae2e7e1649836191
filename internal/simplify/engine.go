// Package simplify turns extracted document text into a plain-language
// rendition via an external two-pass NLP engine.
package simplify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Engine is the narrow interface to the NLP collaborator. The pipeline has
// no knowledge of model internals; both calls may fail independently.
type Engine interface {
	Summarize(ctx context.Context, text string, maxLen, minLen int) (string, error)
	Simplify(ctx context.Context, text string, maxLen int) (string, error)
}

// HTTPEngine talks to the model inference sidecar over JSON HTTP.
type HTTPEngine struct {
	baseURL string
	client  *http.Client
}

// NewHTTPEngine creates an engine client for the sidecar at baseURL.
func NewHTTPEngine(baseURL string, timeout time.Duration) *HTTPEngine {
	return &HTTPEngine{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type summarizeRequest struct {
	Text      string `json:"text"`
	MaxLength int    `json:"max_length"`
	MinLength int    `json:"min_length"`
}

type summarizeResponse struct {
	SummaryText string `json:"summary_text"`
}

type simplifyRequest struct {
	Text      string `json:"text"`
	MaxLength int    `json:"max_length"`
}

type simplifyResponse struct {
	GeneratedText string `json:"generated_text"`
}

func (e *HTTPEngine) Summarize(ctx context.Context, text string, maxLen, minLen int) (string, error) {
	var resp summarizeResponse
	err := e.post(ctx, "/summarize", summarizeRequest{Text: text, MaxLength: maxLen, MinLength: minLen}, &resp)
	if err != nil {
		return "", err
	}
	return resp.SummaryText, nil
}

func (e *HTTPEngine) Simplify(ctx context.Context, text string, maxLen int) (string, error) {
	var resp simplifyResponse
	err := e.post(ctx, "/simplify", simplifyRequest{Text: text, MaxLength: maxLen}, &resp)
	if err != nil {
		return "", err
	}
	return resp.GeneratedText, nil
}

func (e *HTTPEngine) post(ctx context.Context, path string, payload, target any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal engine request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build engine request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("call engine %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("engine %s returned status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode engine response: %w", err)
	}
	return nil
}
