package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cognicore/indrabot/pkg/indrabot/internalerr"
	"github.com/cognicore/indrabot/pkg/indrabot/store"
)

// Store is an in-memory implementation of store.Store for tests.
type Store struct {
	mu        sync.RWMutex
	nextID    int64
	questions []store.QuestionLog
	results   map[string]store.ResultPage
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		nextID:  1,
		results: make(map[string]store.ResultPage),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// RecordQuestion appends a question to the log.
func (s *Store) RecordQuestion(ctx context.Context, q store.QuestionLog) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if q.AskedAt.IsZero() {
		q.AskedAt = time.Now()
	}
	q.ID = s.nextID
	s.nextID++
	s.questions = append(s.questions, q)
	return q.ID, nil
}

// RecentQuestions returns up to limit questions, newest first.
func (s *Store) RecentQuestions(ctx context.Context, limit int) ([]store.QuestionLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	out := make([]store.QuestionLog, len(s.questions))
	copy(out, s.questions)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].AskedAt.Equal(out[j].AskedAt) {
			return out[i].AskedAt.After(out[j].AskedAt)
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// OutcomeCounts tallies the log by outcome.
func (s *Store) OutcomeCounts(ctx context.Context) (map[store.Outcome]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[store.Outcome]int)
	for _, q := range s.questions {
		counts[q.Outcome]++
	}
	return counts, nil
}

// SaveResult stores a copy of the page, replacing any with the same id.
func (s *Store) SaveResult(ctx context.Context, r store.ResultPage) error {
	if r.ID == "" {
		return fmt.Errorf("%w: result id required", internalerr.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	s.results[r.ID] = copyPage(r)
	return nil
}

// GetResult returns a copy of the stored page.
func (s *Store) GetResult(ctx context.Context, id string) (store.ResultPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.results[id]
	if !ok {
		return store.ResultPage{}, fmt.Errorf("result %s: %w", id, internalerr.ErrNotFound)
	}
	return copyPage(r), nil
}

func copyPage(r store.ResultPage) store.ResultPage {
	out := r
	if r.Body != nil {
		out.Body = append([]byte(nil), r.Body...)
	}
	return out
}
