package llm

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
	"github.com/cognicore/indrabot/pkg/indrabot/statements"
)

// maxFacts bounds the statements placed in a prompt.
const maxFacts = 20

// Client calls an OpenAI-compatible chat completion endpoint.
type Client struct {
	BaseURL string
	APIKey  string
	Model   string
	// MaxTokens caps the completion length; zero means 400.
	MaxTokens int

	HTTPClient *http.Client
}

// defaultMaxTokens keeps summaries to a paragraph or two.
const defaultMaxTokens = 400

// maxResponseBytes bounds how much of a completion response is read.
const maxResponseBytes = 1 << 20

var defaultHTTPClient = &http.Client{Timeout: 30 * time.Second}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Summarize writes a short answer to question grounded in the retrieved
// statements, best supported first.
func (c *Client) Summarize(ctx context.Context, question string, stmts []statements.Statement, totals map[string]int) (string, error) {
	system := "You are a molecular biology curator. Answer using ONLY the provided mechanisms. Cite PMIDs."
	user := formatPrompt(question, stmts, totals)
	return c.Chat(ctx, system, user)
}

// Chat sends one system and one user message and returns the reply,
// sampled at temperature 0.
func (c *Client) Chat(ctx context.Context, system, user string) (string, error) {
	if c.BaseURL == "" || c.Model == "" {
		return "", fmt.Errorf("llm: %w: base URL and model required", internalerr.ErrInvalidConfig)
	}
	maxTokens := c.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return c.complete(ctx, chatRequest{
		Model: c.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens: maxTokens,
	})
}

// complete posts a completion request. Rate limits and server failures
// wrap ErrUnavailable.
func (c *Client) complete(ctx context.Context, cr chatRequest) (string, error) {
	body, err := json.Marshal(cr)
	if err != nil {
		return "", fmt.Errorf("llm: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	client := c.HTTPClient
	if client == nil {
		client = defaultHTTPClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm: %w: %v", internalerr.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("llm: %w: read response: %v", internalerr.ErrUnavailable, err)
	}
	var payload chatResponse
	decodeErr := json.Unmarshal(raw, &payload)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(raw))
		if decodeErr == nil && payload.Error != nil {
			msg = payload.Error.Message
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return "", fmt.Errorf("llm: %w: status %d: %s", internalerr.ErrUnavailable, resp.StatusCode, msg)
		}
		return "", fmt.Errorf("llm: status %d: %s", resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("llm: decode response: %w", decodeErr)
	}
	if payload.Error != nil {
		return "", fmt.Errorf("llm error: %s", payload.Error.Message)
	}
	if len(payload.Choices) == 0 {
		return "", fmt.Errorf("llm: empty response")
	}
	return strings.TrimSpace(payload.Choices[0].Message.Content), nil
}

func formatPrompt(question string, stmts []statements.Statement, totals map[string]int) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Question: %s\nMechanisms:\n", question)
	for idx := range stmts {
		if idx == maxFacts {
			fmt.Fprintf(&buf, "(%d more omitted)\n", len(stmts)-maxFacts)
			break
		}
		s := &stmts[idx]
		fmt.Fprintf(&buf, "%d. %s", idx+1, statements.English(s))
		if n := totals[s.Hash]; n > 0 {
			fmt.Fprintf(&buf, " [%d evidence]", n)
		}
		buf.WriteByte('\n')
		if ev, ok := s.FirstEvidence(); ok && ev.Text != "" {
			fmt.Fprintf(&buf, "   Evidence: %s", ev.Text)
			if ev.PMID != "" {
				fmt.Fprintf(&buf, " (PMID%s)", ev.PMID)
			}
			buf.WriteByte('\n')
		}
	}
	fmt.Fprintf(&buf, "\nRespond with a concise answer using these mechanisms and cite PMIDs explicitly.\n")
	return buf.String()
}
