// Package publish makes rendered answer pages shareable by URL.
package publish

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/indrabot/pkg/indrabot/internalerr"
	"github.com/cognicore/indrabot/pkg/indrabot/store"
)

// Page is a rendered HTML answer.
type Page struct {
	Question   string
	Statements int
	HTML       []byte
}

// Publisher stores a page and returns its public URL.
type Publisher interface {
	Publish(ctx context.Context, p Page) (string, error)
}

// IDs generates monotonically increasing ULIDs. Safe for concurrent use.
type IDs struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewIDs creates an ID generator.
func NewIDs() *IDs {
	return &IDs{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// New returns the next ID.
func (g *IDs) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Now(), g.entropy).String()
}

// StorePublisher keeps pages in the store and serves them from the web
// front end under /results/{id}.
type StorePublisher struct {
	store   store.Store
	baseURL string
	ids     *IDs
}

// NewStorePublisher creates a publisher linking to baseURL.
func NewStorePublisher(st store.Store, baseURL string) (*StorePublisher, error) {
	if st == nil {
		return nil, fmt.Errorf("%w: store publisher needs a store", internalerr.ErrInvalidConfig)
	}
	if baseURL == "" {
		return nil, fmt.Errorf("%w: store publisher needs a base URL", internalerr.ErrInvalidConfig)
	}
	return &StorePublisher{
		store:   st,
		baseURL: strings.TrimRight(baseURL, "/"),
		ids:     NewIDs(),
	}, nil
}

// Publish implements Publisher.
func (p *StorePublisher) Publish(ctx context.Context, page Page) (string, error) {
	id := p.ids.New()
	err := p.store.SaveResult(ctx, store.ResultPage{
		ID:          id,
		CreatedAt:   time.Now(),
		Question:    page.Question,
		Statements:  page.Statements,
		ContentType: "text/html; charset=utf-8",
		Body:        page.HTML,
	})
	if err != nil {
		return "", fmt.Errorf("save result page: %w", err)
	}
	return p.baseURL + "/results/" + id, nil
}
