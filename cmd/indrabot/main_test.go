package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/cognicore/indrabot/internal/conversation"
	"github.com/cognicore/indrabot/pkg/indrabot"
	"github.com/cognicore/indrabot/pkg/indrabot/config"
	"github.com/cognicore/indrabot/pkg/indrabot/dbrest"
	"github.com/cognicore/indrabot/pkg/indrabot/format"
	"github.com/cognicore/indrabot/pkg/indrabot/ground"
	"github.com/cognicore/indrabot/pkg/indrabot/internalerr"
	"github.com/cognicore/indrabot/pkg/indrabot/publish"
	"github.com/cognicore/indrabot/pkg/indrabot/query"
	"github.com/cognicore/indrabot/pkg/indrabot/statements"
	"github.com/cognicore/indrabot/pkg/indrabot/store"
	"github.com/cognicore/indrabot/pkg/indrabot/store/memstore"
)

func TestBuildAppDefaults(t *testing.T) {
	a, cleanup, err := buildApp(context.Background(), config.Default(), zap.NewNop())
	if err != nil {
		t.Fatalf("buildApp: %v", err)
	}
	defer cleanup()

	if a.bot == nil || a.store == nil || a.renderer == nil {
		t.Fatalf("incomplete app: %+v", a)
	}
	if a.publisher != nil {
		t.Errorf("publish backend none should leave publisher nil, got %T", a.publisher)
	}
	if _, ok := a.store.(*memstore.Store); !ok {
		t.Errorf("empty store path should use memory store, got %T", a.store)
	}
}

func TestBuildAppStorePublisher(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Path = filepath.Join(t.TempDir(), "indrabot.db")
	cfg.Publish.Backend = "store"
	cfg.Publish.BaseURL = "http://localhost:8080"

	a, cleanup, err := buildApp(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("buildApp: %v", err)
	}
	defer cleanup()

	if _, ok := a.publisher.(*publish.StorePublisher); !ok {
		t.Errorf("expected store publisher, got %T", a.publisher)
	}
}

func TestBuildAppMissingGroundings(t *testing.T) {
	cfg := config.Default()
	cfg.GroundingsPath = filepath.Join(t.TempDir(), "missing.yaml")

	if _, _, err := buildApp(context.Background(), cfg, zap.NewNop()); err == nil {
		t.Fatal("buildApp should fail with a missing grounding map")
	}
}

type stubRetriever struct{}

func (stubRetriever) GetStatements(ctx context.Context, q query.Query) (dbrest.Result, error) {
	if q.Object == "9884@HGNC" {
		return dbrest.Result{
			Statements: []statements.Statement{{
				Type: "Phosphorylation",
				Hash: "-101",
				Enz:  &statements.Agent{Name: "CDK4"},
				Sub:  &statements.Agent{Name: "RB1"},
			}},
			EvidenceTotals: map[string]int{"-101": 12},
		}, nil
	}
	return dbrest.Result{}, errors.New("unexpected query " + q.String())
}

func newTestHandler(t *testing.T, st store.Store) *conversation.Handler {
	t.Helper()
	groundings := ground.NewMap(map[string]map[string]string{"RB1": {"HGNC": "9884"}})
	chain, err := ground.NewChain(groundings, nil, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	bot, err := indrabot.New(indrabot.Options{Grounder: chain, Retriever: stubRetriever{}})
	if err != nil {
		t.Fatal(err)
	}
	h, err := conversation.New(conversation.Options{Bot: bot, Renderer: &format.Renderer{}, Store: st})
	if err != nil {
		t.Fatal(err)
	}
	return h
}

func TestAskLoop(t *testing.T) {
	logger = zap.NewNop()
	dir := t.TempDir()
	st := memstore.New()
	h := newTestHandler(t, st)

	var out bytes.Buffer
	in := strings.NewReader("help\n\nwhat phosphorylates RB1?\nwhat sticks to RB1\n")
	if err := askLoop(context.Background(), h, in, consoleReplier{out: &out, dir: dir}); err != nil {
		t.Fatalf("askLoop: %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"Ask me a question",
		"I found 1 statement about that.",
		"Saved " + filepath.Join(dir, "indrabot.tsv"),
		"is that what you meant?",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, "indrabot.tsv"))
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if !strings.Contains(string(data), "CDK4") {
		t.Errorf("artifact missing statement: %q", data)
	}

	counts, err := st.OutcomeCounts(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if counts[store.OutcomeHelp] != 1 || counts[store.OutcomeAnswered] != 1 || counts[store.OutcomeClarified] != 1 {
		t.Errorf("outcome counts = %v", counts)
	}
}

func TestConsoleReplierWriteError(t *testing.T) {
	r := consoleReplier{out: &bytes.Buffer{}, dir: filepath.Join(t.TempDir(), "missing")}
	err := r.Upload(context.Background(), "console", format.Artifact{Filename: "indrabot.json", Content: []byte("[]")})
	if err == nil {
		t.Fatal("expected error writing into a missing directory")
	}
}

func TestWriteStats(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	for _, o := range []store.Outcome{store.OutcomeAnswered, store.OutcomeAnswered, store.OutcomeFailed} {
		if _, err := st.RecordQuestion(ctx, store.QuestionLog{Text: "what binds BRAF", Outcome: o, Statements: 2}); err != nil {
			t.Fatal(err)
		}
	}

	var text bytes.Buffer
	if err := writeStats(ctx, st, &text, 10, false); err != nil {
		t.Fatalf("writeStats: %v", err)
	}
	if !strings.Contains(text.String(), "66.7%") {
		t.Errorf("text report missing answer rate:\n%s", text.String())
	}

	var raw bytes.Buffer
	if err := writeStats(ctx, st, &raw, 10, true); err != nil {
		t.Fatalf("writeStats json: %v", err)
	}
	var decoded struct {
		Total    int            `json:"total"`
		Outcomes map[string]int `json:"outcomes"`
	}
	if err := json.Unmarshal(raw.Bytes(), &decoded); err != nil {
		t.Fatalf("decode: %v\n%s", err, raw.String())
	}
	if decoded.Total != 3 || decoded.Outcomes["failed"] != 1 {
		t.Errorf("unexpected json report %+v", decoded)
	}
}

func TestNewSlackBotNeedsAppToken(t *testing.T) {
	logger = zap.NewNop()
	cfg = config.Default()
	cfg.Slack.BotToken = "xoxb-test"

	_, err := newSlackBot(&app{})
	if !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}
