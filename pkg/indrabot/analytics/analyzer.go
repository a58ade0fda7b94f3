package analytics

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/cognicore/indrabot/pkg/indrabot/match"
	"github.com/cognicore/indrabot/pkg/indrabot/store"
)

// DefaultWindow is the number of recent questions examined when no limit
// is given.
const DefaultWindow = 200

// topN bounds the repeated questions listed in a report.
const topN = 10

// Analyzer summarizes the question log.
type Analyzer struct {
	store store.Store
}

// NewAnalyzer creates an analyzer over st.
func NewAnalyzer(st store.Store) *Analyzer {
	return &Analyzer{store: st}
}

// QuestionCount is a question asked more than once.
type QuestionCount struct {
	Question string `json:"question"`
	Count    int    `json:"count"`
}

// Report is a snapshot of how questions were handled.
type Report struct {
	Total    int                   `json:"total"`
	Outcomes map[store.Outcome]int `json:"outcomes"`
	// AnswerRate is the share of real questions (help requests excluded)
	// that were answered.
	AnswerRate float64 `json:"answer_rate"`
	// MeanStatements is averaged over answered questions in the window.
	MeanStatements float64 `json:"mean_statements"`
	// Empty counts answered questions in the window with no statements.
	Empty  int                 `json:"empty"`
	Window int                 `json:"window"`
	Top    []QuestionCount     `json:"top,omitempty"`
	Recent []store.QuestionLog `json:"recent,omitempty"`
}

// Report builds a report with overall outcome counts and statistics over
// the latest limit questions.
func (a *Analyzer) Report(ctx context.Context, limit int) (Report, error) {
	if limit <= 0 {
		limit = DefaultWindow
	}
	counts, err := a.store.OutcomeCounts(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("outcome counts: %w", err)
	}
	recent, err := a.store.RecentQuestions(ctx, limit)
	if err != nil {
		return Report{}, fmt.Errorf("recent questions: %w", err)
	}

	r := Report{Outcomes: counts, Window: len(recent), Recent: recent}
	for _, n := range counts {
		r.Total += n
	}
	asked := r.Total - counts[store.OutcomeHelp]
	if asked > 0 {
		r.AnswerRate = float64(counts[store.OutcomeAnswered]) / float64(asked)
	}

	var (
		answered int
		stmts    int
		freq     = make(map[string]int)
	)
	for _, q := range recent {
		if q.Outcome == store.OutcomeHelp {
			continue
		}
		if q.Outcome == store.OutcomeAnswered {
			answered++
			stmts += q.Statements
			if q.Statements == 0 {
				r.Empty++
			}
		}
		if key := normalize(q.Text); key != "" {
			freq[key]++
		}
	}
	if answered > 0 {
		r.MeanStatements = float64(stmts) / float64(answered)
	}
	r.Top = topQuestions(freq, topN)
	return r, nil
}

func normalize(text string) string {
	return strings.ToLower(match.Sanitize(text))
}

func topQuestions(freq map[string]int, n int) []QuestionCount {
	out := make([]QuestionCount, 0, len(freq))
	for q, c := range freq {
		if c > 1 {
			out = append(out, QuestionCount{Question: q, Count: c})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Question < out[j].Question
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

var outcomeOrder = []store.Outcome{
	store.OutcomeAnswered, store.OutcomeClarified, store.OutcomeFailed, store.OutcomeHelp,
}

// WriteText prints the report as aligned plain text.
func (r Report) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "questions\t%d\n", r.Total)
	for _, o := range outcomeOrder {
		fmt.Fprintf(tw, "  %s\t%d\n", o, r.Outcomes[o])
	}
	fmt.Fprintf(tw, "answer rate\t%.1f%%\n", r.AnswerRate*100)
	fmt.Fprintf(tw, "mean statements (last %d)\t%.1f\n", r.Window, r.MeanStatements)
	fmt.Fprintf(tw, "answered with nothing (last %d)\t%d\n", r.Window, r.Empty)
	if len(r.Top) > 0 {
		fmt.Fprintf(tw, "\nrepeated questions\t\n")
		for _, q := range r.Top {
			fmt.Fprintf(tw, "  %s\t%d\n", q.Question, q.Count)
		}
	}
	if len(r.Recent) > 0 {
		fmt.Fprintf(tw, "\nrecent\t\n")
		for i, q := range r.Recent {
			if i == topN {
				break
			}
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", q.AskedAt.Format("2006-01-02 15:04"), q.Outcome, q.Text)
		}
	}
	return tw.Flush()
}
