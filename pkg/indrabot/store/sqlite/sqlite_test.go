package sqlite

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cognicore/indrabot/pkg/indrabot/internalerr"
	"github.com/cognicore/indrabot/pkg/indrabot/store"
)

func openTest(t *testing.T) store.Store {
	t.Helper()
	st, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestQuestionLog(t *testing.T) {
	ctx := context.Background()
	st := openTest(t)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	logs := []store.QuestionLog{
		{AskedAt: base, UserID: "U1", Channel: "C1", Text: "what binds BRAF", Format: "tsv", Outcome: store.OutcomeAnswered, Statements: 12},
		{AskedAt: base.Add(time.Minute), UserID: "U2", Channel: "D2", Text: "help", Outcome: store.OutcomeHelp},
		{AskedAt: base.Add(2 * time.Minute), UserID: "U1", Channel: "C1", Text: "what MEK", Outcome: store.OutcomeClarified},
		{AskedAt: base.Add(3 * time.Minute), UserID: "U3", Channel: "C1", Text: "what binds X", Outcome: store.OutcomeAnswered},
	}
	var lastID int64
	for _, q := range logs {
		id, err := st.RecordQuestion(ctx, q)
		if err != nil {
			t.Fatalf("RecordQuestion: %v", err)
		}
		if id <= lastID {
			t.Fatalf("ids not increasing: %d after %d", id, lastID)
		}
		lastID = id
	}

	recent, err := st.RecentQuestions(ctx, 2)
	if err != nil {
		t.Fatalf("RecentQuestions: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("got %d questions, want 2", len(recent))
	}
	if recent[0].Text != "what binds X" || recent[1].Text != "what MEK" {
		t.Errorf("unexpected order: %q, %q", recent[0].Text, recent[1].Text)
	}
	if !recent[1].AskedAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("asked_at round trip: %v", recent[1].AskedAt)
	}

	counts, err := st.OutcomeCounts(ctx)
	if err != nil {
		t.Fatalf("OutcomeCounts: %v", err)
	}
	if counts[store.OutcomeAnswered] != 2 || counts[store.OutcomeHelp] != 1 || counts[store.OutcomeFailed] != 0 {
		t.Errorf("counts = %v", counts)
	}
}

func TestRecentQuestionsSubSecondOrder(t *testing.T) {
	ctx := context.Background()
	st := openTest(t)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		text string
		at   time.Time
	}{
		{"whole second", base},
		{"tenth", base.Add(100 * time.Millisecond)},
		{"twelve hundredths", base.Add(120 * time.Millisecond)},
		{"nanos", base.Add(120*time.Millisecond + 5)},
		{"next second", base.Add(time.Second)},
	}
	for _, tt := range tests {
		if _, err := st.RecordQuestion(ctx, store.QuestionLog{AskedAt: tt.at, Text: tt.text, Outcome: store.OutcomeAnswered}); err != nil {
			t.Fatalf("RecordQuestion: %v", err)
		}
	}

	recent, err := st.RecentQuestions(ctx, 10)
	if err != nil {
		t.Fatalf("RecentQuestions: %v", err)
	}
	if len(recent) != len(tests) {
		t.Fatalf("got %d questions, want %d", len(recent), len(tests))
	}
	for i, q := range recent {
		want := tests[len(tests)-1-i]
		if q.Text != want.text {
			t.Errorf("recent[%d] = %q, want %q", i, q.Text, want.text)
		}
		if !q.AskedAt.Equal(want.at) {
			t.Errorf("recent[%d] asked_at = %v, want %v", i, q.AskedAt, want.at)
		}
	}
}

func TestResultPages(t *testing.T) {
	ctx := context.Background()
	st := openTest(t)

	page := store.ResultPage{
		ID:          "01HQZ",
		Question:    "what phosphorylates RB1",
		Statements:  3,
		ContentType: "text/html",
		Body:        []byte("<html>v1</html>"),
	}
	if err := st.SaveResult(ctx, page); err != nil {
		t.Fatalf("SaveResult: %v", err)
	}
	page.Body = []byte("<html>v2</html>")
	if err := st.SaveResult(ctx, page); err != nil {
		t.Fatalf("SaveResult replace: %v", err)
	}

	got, err := st.GetResult(ctx, "01HQZ")
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if !bytes.Equal(got.Body, page.Body) || got.Statements != 3 || got.ContentType != "text/html" {
		t.Errorf("unexpected page %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("created_at should default to now")
	}

	if _, err := st.GetResult(ctx, "missing"); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := st.SaveResult(ctx, store.ResultPage{}); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty id, got %v", err)
	}
}

func TestSchemaIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")

	st, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if _, err := st.RecordQuestion(ctx, store.QuestionLog{Text: "help", Outcome: store.OutcomeHelp}); err != nil {
		t.Fatalf("RecordQuestion: %v", err)
	}
	st.Close()

	st, err = OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st.Close()
	recent, err := st.RecentQuestions(ctx, 10)
	if err != nil {
		t.Fatalf("RecentQuestions: %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("got %d questions after reopen, want 1", len(recent))
	}
}

func TestConcurrentRecord(t *testing.T) {
	ctx := context.Background()
	st := openTest(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := st.RecordQuestion(ctx, store.QuestionLog{Text: "q", Outcome: store.OutcomeAnswered}); err != nil {
				t.Errorf("RecordQuestion: %v", err)
			}
		}()
	}
	wg.Wait()

	counts, err := st.OutcomeCounts(ctx)
	if err != nil {
		t.Fatalf("OutcomeCounts: %v", err)
	}
	if counts[store.OutcomeAnswered] != 8 {
		t.Errorf("answered = %d, want 8", counts[store.OutcomeAnswered])
	}
}
