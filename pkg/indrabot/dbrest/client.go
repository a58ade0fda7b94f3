// Package dbrest is a client for the INDRA DB REST statement service.
package dbrest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cognicore/indrabot/pkg/indrabot/internalerr"
	"github.com/cognicore/indrabot/pkg/indrabot/query"
	"github.com/cognicore/indrabot/pkg/indrabot/statements"
)

// DefaultBaseURL is the public INDRA DB REST endpoint.
const DefaultBaseURL = "https://db.indra.bio"

// Client retrieves statements matching a query.
type Client struct {
	BaseURL string
	APIKey  string
	// MaxStatements caps the statements returned; zero leaves it to the
	// service.
	MaxStatements int
	// EvidenceLimit caps the evidence returned per statement.
	EvidenceLimit int

	HTTPClient *http.Client
}

// Result is the set of statements answering a query.
type Result struct {
	Statements     []statements.Statement
	EvidenceTotals map[string]int
}

type statementsResponse struct {
	Statements     map[string]statements.Statement `json:"statements"`
	EvidenceTotals map[string]int                  `json:"evidence_totals"`
	EvidenceCounts map[string]int                  `json:"evidence_counts"`
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// GetStatements fetches statements for q, ordered by total evidence with
// the best supported first.
func (c *Client) GetStatements(ctx context.Context, q query.Query) (Result, error) {
	if q.Empty() {
		return Result{}, fmt.Errorf("%w: query needs at least one agent", internalerr.ErrInvalidInput)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(q), nil)
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("dbrest: %w: %v", internalerr.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, statusError(resp)
	}

	var payload statementsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Result{}, fmt.Errorf("dbrest: decode response: %w", err)
	}
	return buildResult(payload), nil
}

func (c *Client) endpoint(q query.Query) string {
	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	params := url.Values{}
	if q.Subject != "" {
		params.Set("subject", q.Subject)
	}
	if q.Object != "" {
		params.Set("object", q.Object)
	}
	for i, a := range q.Agents {
		params.Set("agent"+strconv.Itoa(i), a)
	}
	if q.Type != "" {
		params.Set("type", q.Type)
	}
	params.Set("format", "json")
	params.Set("best_first", "true")
	if c.EvidenceLimit > 0 {
		params.Set("ev_limit", strconv.Itoa(c.EvidenceLimit))
	}
	if c.MaxStatements > 0 {
		params.Set("max_stmts", strconv.Itoa(c.MaxStatements))
	}
	if c.APIKey != "" {
		params.Set("api_key", c.APIKey)
	}
	return strings.TrimRight(base, "/") + "/statements/from_agents?" + params.Encode()
}

func buildResult(payload statementsResponse) Result {
	totals := payload.EvidenceTotals
	if len(totals) == 0 {
		totals = payload.EvidenceCounts
	}
	if totals == nil {
		totals = map[string]int{}
	}

	res := Result{
		Statements:     make([]statements.Statement, 0, len(payload.Statements)),
		EvidenceTotals: totals,
	}
	for hash, stmt := range payload.Statements {
		// Evidence totals are keyed by the map key.
		stmt.Hash = hash
		res.Statements = append(res.Statements, stmt)
	}
	sort.SliceStable(res.Statements, func(i, j int) bool {
		a, b := res.Statements[i], res.Statements[j]
		ta, tb := totals[a.Hash], totals[b.Hash]
		if ta != tb {
			return ta > tb
		}
		return a.Hash < b.Hash
	})
	return res
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.TrimSpace(string(body))
	var e errorResponse
	if json.Unmarshal(body, &e) == nil {
		if e.Message != "" {
			msg = e.Message
		} else if e.Error != "" {
			msg = e.Error
		}
	}
	if resp.StatusCode >= 500 {
		return fmt.Errorf("dbrest: %w: status %d: %s", internalerr.ErrUnavailable, resp.StatusCode, msg)
	}
	return fmt.Errorf("dbrest: status %d: %s", resp.StatusCode, msg)
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 60 * time.Second}
}
