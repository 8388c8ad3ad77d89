// Package scout fetches short narrative reports about a player from a
// generative text API. Reports are decorative: callers are expected to
// substitute FallbackReport on any error and never block on a fetch.
package scout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/kameshai/premier-auction/internal/config"
	"github.com/kameshai/premier-auction/internal/store"
)

const (
	// PendingReport is shown while a report fetch is in flight.
	PendingReport = "Accessing Terminal..."
	// FallbackReport is shown when the report fetch fails.
	FallbackReport = "The scout is currently unavailable, but this player is a top talent."
)

// Reporter produces a scouting report for a player.
type Reporter interface {
	Report(ctx context.Context, p store.Player) (string, error)
}

// Client calls the generateContent endpoint of a Gemini-style API.
type Client struct {
	baseURL string
	model   string
	apiKey  string
	httpc   *http.Client
	logger  *slog.Logger
}

// NewClient creates a scout client from config.
func NewClient(cfg config.ScoutConfig, logger *slog.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		apiKey:  cfg.APIKey,
		httpc:   &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Report asks the text API for a two-sentence hype report on the
// player. Returns an error on any transport, status or decode failure;
// it never fabricates content itself.
func (c *Client) Report(ctx context.Context, p store.Player) (string, error) {
	prompt := fmt.Sprintf(
		"You are an excited sports auction commentator. Write a short, punchy two-sentence scouting report for %s, a %s from %s with a rating of %d. Hype up the bidding.",
		p.Name, p.Type, p.Club, p.Rating,
	)

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("encoding scout request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building scout request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-goog-api-key", c.apiKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling scout api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("scout api returned %d: %s", resp.StatusCode, data)
	}

	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decoding scout response: %w", err)
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("scout api returned no candidates")
	}

	text := decoded.Candidates[0].Content.Parts[0].Text
	if text == "" {
		return "", fmt.Errorf("scout api returned empty report")
	}
	return text, nil
}
