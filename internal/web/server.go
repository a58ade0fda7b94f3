// Package web serves the question form, a JSON API and published result
// pages.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cognicore/indrabot/pkg/indrabot"
	"github.com/cognicore/indrabot/pkg/indrabot/format"
	"github.com/cognicore/indrabot/pkg/indrabot/internalerr"
	"github.com/cognicore/indrabot/pkg/indrabot/statements"
	"github.com/cognicore/indrabot/pkg/indrabot/store"
)

const (
	notFoundReply = "Sorry, I couldn't find anything!"
	failedReply   = "Sorry, I can't answer that, ask something else."
)

// Bot answers and summarizes questions.
type Bot interface {
	HandleQuestion(ctx context.Context, text string) (indrabot.Response, error)
	Summarize(ctx context.Context, resp indrabot.Response) (string, error)
}

// Options configures a Server.
type Options struct {
	Addr            string
	ReadTimeout     time.Duration
	ShutdownTimeout time.Duration

	Bot      Bot
	Store    store.Store
	Renderer *format.Renderer
	Logger   *zap.Logger
}

// Server is the web front end.
type Server struct {
	bot             Bot
	store           store.Store
	renderer        *format.Renderer
	logger          *zap.Logger
	httpServer      *http.Server
	shutdownTimeout time.Duration
}

// New creates a Server. Store is optional; without it questions are not
// logged and result pages are not served.
func New(opts Options) (*Server, error) {
	if opts.Bot == nil {
		return nil, fmt.Errorf("%w: web server needs a bot", internalerr.ErrInvalidConfig)
	}
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 30 * time.Second
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	if opts.Renderer == nil {
		opts.Renderer = &format.Renderer{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	s := &Server{
		bot:             opts.Bot,
		store:           opts.Store,
		renderer:        opts.Renderer,
		logger:          opts.Logger,
		shutdownTimeout: opts.ShutdownTimeout,
	}
	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: opts.ReadTimeout,
		ReadTimeout:       opts.ReadTimeout,
	}
	return s, nil
}

// Handler returns the routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /{$}", s.handleIndex)
	mux.HandleFunc("POST /api/ask", s.handleAsk)
	mux.HandleFunc("GET /results/{id}", s.handleResult)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	serveErr := make(chan error, 1)
	s.logger.Info("web server listening", zap.String("addr", s.httpServer.Addr))
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Ask INDRA</title>
</head>
<body>
<form method="post" action="/">
<input type="text" name="question" size="60" value="{{.Question}}">
<input type="submit" value="Ask INDRA">
</form>
{{if .Message}}<p>{{.Message}}</p>{{end}}
{{if .Summary}}<p><i>{{.Summary}}</i></p>{{end}}
{{range .Groups}}
<h3>{{.Type}}</h3>
{{range .Lines}}<p>{{.}}</p>
{{end}}
{{end}}
{{if .Suggestion}}<p>{{.Suggestion}}</p>{{end}}
</body>
</html>
`))

type indexPage struct {
	Question   string
	Message    string
	Summary    string
	Suggestion string
	Groups     []lineGroup
}

type lineGroup struct {
	Type  string
	Lines []string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page := indexPage{}
	status := http.StatusOK
	if r.Method == http.MethodPost {
		page.Question = strings.TrimSpace(r.FormValue("question"))
	}
	if page.Question != "" {
		resp, err := s.bot.HandleQuestion(r.Context(), page.Question)
		switch {
		case err != nil:
			s.logger.Error("could not answer", zap.String("question", page.Question), zap.Error(err))
			s.record(r.Context(), page.Question, "", store.OutcomeFailed, 0)
			status = statusFor(err)
			page.Message = failedReply
		case !resp.Answered():
			s.record(r.Context(), page.Question, "", store.OutcomeClarified, 0)
			page.Message = resp.Clarification
		case len(resp.Statements) == 0:
			s.record(r.Context(), page.Question, "", store.OutcomeAnswered, 0)
			page.Message = notFoundReply
			page.Suggestion = resp.Suggestion
		default:
			s.record(r.Context(), page.Question, "", store.OutcomeAnswered, len(resp.Statements))
			page.Groups = groupLines(resp.Statements)
			summary, err := s.bot.Summarize(r.Context(), resp)
			if err != nil {
				s.logger.Warn("summarize", zap.Error(err))
			}
			page.Summary = summary
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := indexTemplate.Execute(w, page); err != nil {
		s.logger.Error("render index", zap.Error(err))
	}
}

// groupLines lists "statement, evidence" lines grouped by statement type.
func groupLines(stmts []statements.Statement) []lineGroup {
	byType := make(map[string][]string)
	for i := range stmts {
		st := &stmts[i]
		line := st.String()
		if ev, ok := st.FirstEvidence(); ok && ev.Text != "" {
			line += ", " + format.StripHTML(ev.Text)
		}
		byType[st.Type] = append(byType[st.Type], line)
	}
	types := make([]string, 0, len(byType))
	for t := range byType {
		types = append(types, t)
	}
	sort.Strings(types)
	groups := make([]lineGroup, 0, len(types))
	for _, t := range types {
		groups = append(groups, lineGroup{Type: t, Lines: byType[t]})
	}
	return groups
}

type askRequest struct {
	Question string `json:"question"`
	Format   string `json:"format,omitempty"`
}

type askResponse struct {
	Question       string                 `json:"question"`
	Answered       bool                   `json:"answered"`
	Clarification  string                 `json:"clarification,omitempty"`
	Suggestion     string                 `json:"suggestion,omitempty"`
	Query          string                 `json:"query,omitempty"`
	Statements     []statements.Statement `json:"statements"`
	EvidenceTotals map[string]int         `json:"evidence_totals,omitempty"`
	Summary        string                 `json:"summary,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	f, err := format.Parse(req.Format)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if req.Format == "" {
		f = format.JSON
	}

	resp, err := s.bot.HandleQuestion(r.Context(), req.Question)
	if err != nil {
		s.logger.Error("could not answer", zap.String("question", req.Question), zap.Error(err))
		s.record(r.Context(), req.Question, string(f), store.OutcomeFailed, 0)
		writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
		return
	}
	if !resp.Answered() {
		s.record(r.Context(), req.Question, string(f), store.OutcomeClarified, 0)
	} else {
		s.record(r.Context(), req.Question, string(f), store.OutcomeAnswered, len(resp.Statements))
	}

	if f != format.JSON && resp.Answered() {
		art, err := s.renderer.Render(r.Context(), f, resp.Answer())
		if err != nil {
			writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
			return
		}
		w.Header().Set("Content-Type", f.ContentType())
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", art.Filename))
		_, _ = w.Write(art.Content)
		return
	}

	out := askResponse{
		Question:       resp.Question,
		Answered:       resp.Answered(),
		Clarification:  resp.Clarification,
		Suggestion:     resp.Suggestion,
		Statements:     resp.Statements,
		EvidenceTotals: resp.EvidenceTotals,
	}
	if out.Statements == nil {
		out.Statements = []statements.Statement{}
	}
	if resp.Answered() {
		out.Query = resp.Query.String()
		summary, err := s.bot.Summarize(r.Context(), resp)
		if err != nil {
			s.logger.Warn("summarize", zap.Error(err))
		}
		out.Summary = summary
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.NotFound(w, r)
		return
	}
	page, err := s.store.GetResult(r.Context(), r.PathValue("id"))
	if errors.Is(err, internalerr.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.logger.Error("load result", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", page.ContentType)
	_, _ = w.Write(page.Body)
}

func (s *Server) record(ctx context.Context, question, f string, outcome store.Outcome, n int) {
	if s.store == nil {
		return
	}
	_, err := s.store.RecordQuestion(ctx, store.QuestionLog{
		AskedAt:    time.Now(),
		Channel:    "web",
		Text:       question,
		Format:     f,
		Outcome:    outcome,
		Statements: n,
	})
	if err != nil {
		s.logger.Warn("record question", zap.Error(err))
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, internalerr.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, internalerr.ErrNoMatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, internalerr.ErrUnavailable):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
