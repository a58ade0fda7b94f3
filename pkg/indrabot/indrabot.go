// Package indrabot answers natural language questions about molecular
// mechanisms with statements from the INDRA database.
package indrabot

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cognicore/indrabot/pkg/indrabot/dbrest"
	"github.com/cognicore/indrabot/pkg/indrabot/format"
	"github.com/cognicore/indrabot/pkg/indrabot/ground"
	"github.com/cognicore/indrabot/pkg/indrabot/internalerr"
	"github.com/cognicore/indrabot/pkg/indrabot/match"
	"github.com/cognicore/indrabot/pkg/indrabot/query"
	"github.com/cognicore/indrabot/pkg/indrabot/statements"
)

// Retriever fetches statements for a query.
type Retriever interface {
	GetStatements(ctx context.Context, q query.Query) (dbrest.Result, error)
}

// Summarizer writes a prose answer from statements.
type Summarizer interface {
	Summarize(ctx context.Context, question string, stmts []statements.Statement, totals map[string]int) (string, error)
}

// Bot is the question answering facade
type Bot struct {
	matcher    *match.Matcher
	builder    *query.Builder
	retriever  Retriever
	summarizer Summarizer
	logger     *zap.Logger
}

// Options configures a Bot
type Options struct {
	// Matcher defaults to the built-in templates.
	Matcher    *match.Matcher
	Grounder   ground.Grounder
	Retriever  Retriever
	Summarizer Summarizer
	Logger     *zap.Logger
}

// New creates a Bot with the given dependencies
func New(opts Options) (*Bot, error) {
	if opts.Grounder == nil {
		return nil, fmt.Errorf("%w: bot needs a grounder", internalerr.ErrInvalidConfig)
	}
	if opts.Retriever == nil {
		return nil, fmt.Errorf("%w: bot needs a retriever", internalerr.ErrInvalidConfig)
	}
	if opts.Matcher == nil {
		opts.Matcher = match.NewMatcher()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Bot{
		matcher:    opts.Matcher,
		builder:    query.NewBuilder(opts.Grounder),
		retriever:  opts.Retriever,
		summarizer: opts.Summarizer,
		logger:     opts.Logger,
	}, nil
}

// Response is the outcome of a question. Either Clarification is set or
// the question was answered with Statements (possibly none).
type Response struct {
	Question       string
	Match          match.Match
	Query          query.Query
	Statements     []statements.Statement
	EvidenceTotals map[string]int
	// Clarification asks the user to rephrase when no template matched.
	Clarification string
	// Suggestion is a follow-up question worth trying.
	Suggestion string
}

// Answered reports whether the question matched a template.
func (r Response) Answered() bool {
	return r.Clarification == ""
}

// Answer is the response as renderer input.
func (r Response) Answer() format.Answer {
	return format.Answer{
		Question:       r.Question,
		Statements:     r.Statements,
		EvidenceTotals: r.EvidenceTotals,
	}
}

// HandleQuestion matches the question against the templates, builds and
// runs the query and applies the filters the service cannot express.
func (b *Bot) HandleQuestion(ctx context.Context, text string) (Response, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Response{}, fmt.Errorf("%w: empty question", internalerr.ErrInvalidInput)
	}
	resp := Response{Question: text}

	m, ok := b.matcher.Match(text)
	if !ok {
		s, ok := b.matcher.Suggest(text)
		if !ok {
			return Response{}, fmt.Errorf("%w: %q", internalerr.ErrNoMatch, text)
		}
		b.logger.Debug("no template matched", zap.String("question", text), zap.String("closest", s.Example), zap.Int("score", s.Score))
		resp.Clarification = fmt.Sprintf("Your question is similar to %q, is that what you meant?", s.Example)
		resp.Suggestion = s.Example
		return resp, nil
	}
	resp.Match = m

	q, err := b.builder.Build(ctx, m)
	if err != nil {
		return Response{}, fmt.Errorf("build query: %w", err)
	}
	resp.Query = q
	b.logger.Debug("query built",
		zap.String("question", text),
		zap.String("action", m.Template.Action.String()),
		zap.Stringer("query", q),
	)

	res, err := b.retriever.GetStatements(ctx, q)
	if err != nil {
		return Response{}, fmt.Errorf("get statements: %w", err)
	}
	resp.Statements = q.Filter(res.Statements)
	resp.EvidenceTotals = res.EvidenceTotals

	if len(resp.Statements) == 0 {
		resp.Suggestion = broaden(m)
	}
	b.logger.Info("question answered",
		zap.String("question", text),
		zap.Int("statements", len(resp.Statements)),
	)
	return resp, nil
}

// broaden proposes a wider question when a narrow one found nothing.
func broaden(m match.Match) string {
	if m.Template.Action == match.Neighborhood || len(m.Args) == 0 {
		return ""
	}
	return fmt.Sprintf("You could try a broader question, like \"what interacts with %s?\"", m.Args[0])
}

// Summarize writes a prose answer for resp. Bots without a summarizer
// return an empty string.
func (b *Bot) Summarize(ctx context.Context, resp Response) (string, error) {
	if b.summarizer == nil || len(resp.Statements) == 0 {
		return "", nil
	}
	return b.summarizer.Summarize(ctx, resp.Question, resp.Statements, resp.EvidenceTotals)
}
