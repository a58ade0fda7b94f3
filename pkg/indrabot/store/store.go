package store

import (
	"context"
	"time"
)

// Store persists the question log and published result pages.
type Store interface {
	Close() error

	// Question log
	RecordQuestion(ctx context.Context, q QuestionLog) (int64, error)
	RecentQuestions(ctx context.Context, limit int) ([]QuestionLog, error)
	OutcomeCounts(ctx context.Context) (map[Outcome]int, error)

	// Result pages
	SaveResult(ctx context.Context, r ResultPage) error
	GetResult(ctx context.Context, id string) (ResultPage, error)
}

// Outcome records how a question was handled.
type Outcome string

const (
	OutcomeAnswered  Outcome = "answered"
	OutcomeClarified Outcome = "clarified"
	OutcomeHelp      Outcome = "help"
	OutcomeFailed    Outcome = "failed"
)

// QuestionLog is one handled question
type QuestionLog struct {
	ID         int64
	AskedAt    time.Time
	UserID     string
	Channel    string
	Text       string
	Format     string
	Outcome    Outcome
	Statements int
}

// ResultPage is a rendered, shareable answer page
type ResultPage struct {
	ID          string
	CreatedAt   time.Time
	Question    string
	Statements  int
	ContentType string
	Body        []byte
}
