package ground

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cognicore/indrabot/pkg/indrabot/internalerr"
)

// GildaClient calls a Gilda-compatible grounding service.
type GildaClient struct {
	BaseURL string

	HTTPClient *http.Client
}

type groundRequest struct {
	Text string `json:"text"`
}

type scoredMatch struct {
	Term struct {
		DB        string `json:"db"`
		ID        string `json:"id"`
		EntryName string `json:"entry_name"`
	} `json:"term"`
	Score float64 `json:"score"`
}

// Ground returns the best scoring grounding for text. A name the service
// does not know is returned as a TEXT grounding.
func (c *GildaClient) Ground(ctx context.Context, text string) (Grounding, error) {
	if c.BaseURL == "" {
		return Grounding{}, fmt.Errorf("gilda: base URL required")
	}
	matches, err := c.send(ctx, text)
	if err != nil {
		return Grounding{}, err
	}
	for _, m := range matches {
		if m.Term.DB == "" || m.Term.ID == "" {
			continue
		}
		return Grounding{
			Namespace: m.Term.DB,
			ID:        m.Term.ID,
			Name:      m.Term.EntryName,
			Score:     m.Score,
		}, nil
	}
	return Text(text), nil
}

func (c *GildaClient) send(ctx context.Context, text string) ([]scoredMatch, error) {
	reqBody, err := json.Marshal(groundRequest{Text: text})
	if err != nil {
		return nil, err
	}
	url := strings.TrimRight(c.BaseURL, "/") + "/ground"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("gilda: %w: %v", internalerr.ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("gilda: %w: status %d: %s",
			internalerr.ErrUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var matches []scoredMatch
	if err := json.NewDecoder(resp.Body).Decode(&matches); err != nil {
		return nil, fmt.Errorf("gilda: decode response: %w", err)
	}
	return matches, nil
}

func (c *GildaClient) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 15 * time.Second}
}
