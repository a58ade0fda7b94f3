package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/indrabot/pkg/indrabot/internalerr"
	"github.com/cognicore/indrabot/pkg/indrabot/store"
)

// timeLayout is fixed width so that text order in SQLite is time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite allows one writer; serialize through a single connection.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	// Initialize schema
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS questions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	asked_at TEXT NOT NULL,
	user_id TEXT,
	channel TEXT,
	text TEXT NOT NULL,
	format TEXT,
	outcome TEXT NOT NULL,
	statements INTEGER DEFAULT 0
);

CREATE INDEX IF NOT EXISTS questions_asked_at ON questions(asked_at);

CREATE TABLE IF NOT EXISTS results (
	id TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	question TEXT,
	statements INTEGER DEFAULT 0,
	content_type TEXT NOT NULL,
	body BLOB NOT NULL
);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// RecordQuestion appends a question to the log and returns its id
func (s *sqliteStore) RecordQuestion(ctx context.Context, q store.QuestionLog) (int64, error) {
	if q.AskedAt.IsZero() {
		q.AskedAt = time.Now()
	}
	const stmt = `
INSERT INTO questions (asked_at, user_id, channel, text, format, outcome, statements)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING id;
`
	var id int64
	err := s.db.QueryRowContext(
		ctx,
		stmt,
		q.AskedAt.UTC().Format(timeLayout),
		q.UserID,
		q.Channel,
		q.Text,
		q.Format,
		string(q.Outcome),
		q.Statements,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("record question: %w", err)
	}
	return id, nil
}

// RecentQuestions returns the latest questions, newest first
func (s *sqliteStore) RecentQuestions(ctx context.Context, limit int) ([]store.QuestionLog, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, asked_at, user_id, channel, text, format, outcome, statements
FROM questions
ORDER BY asked_at DESC, id DESC
LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.QuestionLog
	for rows.Next() {
		var (
			q       store.QuestionLog
			askedAt string
			outcome string
		)
		if err := rows.Scan(&q.ID, &askedAt, &q.UserID, &q.Channel, &q.Text, &q.Format, &outcome, &q.Statements); err != nil {
			return nil, err
		}
		q.AskedAt, _ = time.Parse(timeLayout, askedAt)
		q.Outcome = store.Outcome(outcome)
		out = append(out, q)
	}
	return out, rows.Err()
}

// OutcomeCounts tallies the question log by outcome
func (s *sqliteStore) OutcomeCounts(ctx context.Context) (map[store.Outcome]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT outcome, COUNT(*) FROM questions GROUP BY outcome`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[store.Outcome]int)
	for rows.Next() {
		var (
			outcome string
			n       int
		)
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, err
		}
		counts[store.Outcome(outcome)] = n
	}
	return counts, rows.Err()
}

// SaveResult inserts or replaces a result page
func (s *sqliteStore) SaveResult(ctx context.Context, r store.ResultPage) error {
	if r.ID == "" {
		return fmt.Errorf("%w: result id required", internalerr.ErrInvalidInput)
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	const stmt = `
INSERT INTO results (id, created_at, question, statements, content_type, body)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	created_at=excluded.created_at,
	question=excluded.question,
	statements=excluded.statements,
	content_type=excluded.content_type,
	body=excluded.body;
`
	_, err := s.db.ExecContext(
		ctx,
		stmt,
		r.ID,
		r.CreatedAt.UTC().Format(timeLayout),
		r.Question,
		r.Statements,
		r.ContentType,
		r.Body,
	)
	return err
}

// GetResult loads a result page by id
func (s *sqliteStore) GetResult(ctx context.Context, id string) (store.ResultPage, error) {
	var (
		r         store.ResultPage
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, `
SELECT id, created_at, question, statements, content_type, body
FROM results WHERE id = ?`, id).Scan(&r.ID, &createdAt, &r.Question, &r.Statements, &r.ContentType, &r.Body)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ResultPage{}, fmt.Errorf("result %s: %w", id, internalerr.ErrNotFound)
	}
	if err != nil {
		return store.ResultPage{}, err
	}
	r.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	return r, nil
}
