package conversation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cognicore/indrabot/pkg/indrabot"
	"github.com/cognicore/indrabot/pkg/indrabot/format"
	"github.com/cognicore/indrabot/pkg/indrabot/publish"
	"github.com/cognicore/indrabot/pkg/indrabot/statements"
	"github.com/cognicore/indrabot/pkg/indrabot/store"
	"github.com/cognicore/indrabot/pkg/indrabot/store/memstore"
)

const botID = "U2F1KPXEW"

type fakeBot struct {
	questions []string
	resp      indrabot.Response
	err       error
}

func (f *fakeBot) HandleQuestion(ctx context.Context, text string) (indrabot.Response, error) {
	f.questions = append(f.questions, text)
	resp := f.resp
	resp.Question = text
	return resp, f.err
}

type upload struct {
	channel string
	art     format.Artifact
}

type fakeReplier struct {
	sent    []string
	uploads []upload
	sendErr error
}

func (f *fakeReplier) Send(ctx context.Context, channel, text string) error {
	f.sent = append(f.sent, text)
	return f.sendErr
}

func (f *fakeReplier) Upload(ctx context.Context, channel string, art format.Artifact) error {
	f.uploads = append(f.uploads, upload{channel: channel, art: art})
	return nil
}

type fakePublisher struct {
	pages []publish.Page
	err   error
}

func (f *fakePublisher) Publish(ctx context.Context, p publish.Page) (string, error) {
	f.pages = append(f.pages, p)
	if f.err != nil {
		return "", f.err
	}
	return "https://results.test/1", nil
}

func twoStatements() []statements.Statement {
	return []statements.Statement{
		{Type: "Complex", Hash: "1", Members: []*statements.Agent{{Name: "BRAF"}, {Name: "RAF1"}}},
		{Type: "Activation", Hash: "2", Subj: &statements.Agent{Name: "BRAF"}, Obj: &statements.Agent{Name: "MAP2K1"}},
	}
}

func newHandler(t *testing.T, bot Answerer, pub publish.Publisher, st store.Store) *Handler {
	t.Helper()
	h, err := New(Options{BotID: botID, Bot: bot, Publisher: pub, Store: st})
	require.NoError(t, err)
	h.pick = func(int) int { return 0 }
	return h
}

func TestAddressed(t *testing.T) {
	h := newHandler(t, &fakeBot{}, nil, nil)
	tests := []struct {
		name string
		msg  Message
		want bool
	}{
		{"own message", Message{UserID: botID, Text: "<@" + botID + "> help", Private: true}, false},
		{"public without mention", Message{UserID: "U1", Text: "what binds BRAF"}, false},
		{"public with mention", Message{UserID: "U1", Text: "<@" + botID + "> what binds BRAF"}, true},
		{"private without mention", Message{UserID: "U1", Text: "what binds BRAF", Private: true}, true},
		{"file upload", Message{UserID: "U1", Text: "<@U1> uploaded a file", Private: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, h.Addressed(tt.msg))
		})
	}
}

func TestHelp(t *testing.T) {
	st := memstore.New()
	h := newHandler(t, &fakeBot{}, nil, st)
	r := &fakeReplier{}
	ctx := context.Background()

	require.NoError(t, h.Handle(ctx, Message{UserID: "U1", Text: "<@" + botID + "> Help!", Channel: "C1"}, r))
	require.NoError(t, h.Handle(ctx, Message{UserID: "U1", Text: "what can you do?", Private: true}, r))

	require.Len(t, r.sent, 2)
	require.Equal(t, Help(false), r.sent[0])
	require.Equal(t, Help(true), r.sent[1])
	require.Contains(t, r.sent[0], "what can you do?")
	require.Contains(t, r.sent[1], "Output Formats")

	counts, err := st.OutcomeCounts(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, counts[store.OutcomeHelp])
}

func TestAnswerWithStatements(t *testing.T) {
	bot := &fakeBot{resp: indrabot.Response{Statements: twoStatements()}}
	pub := &fakePublisher{}
	st := memstore.New()
	h := newHandler(t, bot, pub, st)
	r := &fakeReplier{}
	ctx := context.Background()

	msg := Message{UserID: "U1", Channel: "C1", Text: "<@" + botID + "> what binds BRAF? /json"}
	require.NoError(t, h.Handle(ctx, msg, r))

	require.Equal(t, []string{"what binds BRAF?"}, bot.questions)
	require.Equal(t, []string{
		"That's a great question, <@U1>! I found 2 statements about that.",
		"You can also view these results here: https://results.test/1",
	}, r.sent)

	require.Len(t, r.uploads, 1)
	require.Equal(t, "C1", r.uploads[0].channel)
	require.Equal(t, "indrabot.json", r.uploads[0].art.Filename)
	require.Equal(t, "json", r.uploads[0].art.Filetype)

	require.Len(t, pub.pages, 1)
	require.Equal(t, 2, pub.pages[0].Statements)
	require.Contains(t, string(pub.pages[0].HTML), "<h2>Activation</h2>")

	recent, err := st.RecentQuestions(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	require.Equal(t, store.OutcomeAnswered, recent[0].Outcome)
	require.Equal(t, 2, recent[0].Statements)
	require.Equal(t, "json", recent[0].Format)
	require.Equal(t, "what binds BRAF?", recent[0].Text)
}

func TestAnswerSingleStatementNoPublisher(t *testing.T) {
	bot := &fakeBot{resp: indrabot.Response{Statements: twoStatements()[:1]}}
	h := newHandler(t, bot, nil, nil)
	h.pick = func(int) int { return 3 }
	r := &fakeReplier{}

	require.NoError(t, h.Handle(context.Background(), Message{UserID: "U9", Text: "what binds BRAF", Private: true}, r))
	require.Equal(t, []string{"Very interesting, <@U9>! I found 1 statement about that."}, r.sent)
	require.Len(t, r.uploads, 1)
	require.Equal(t, "indrabot.tsv", r.uploads[0].art.Filename)
}

func TestAnswerNoStatements(t *testing.T) {
	bot := &fakeBot{resp: indrabot.Response{Suggestion: "try something broader"}}
	pub := &fakePublisher{}
	h := newHandler(t, bot, pub, nil)
	r := &fakeReplier{}

	require.NoError(t, h.Handle(context.Background(), Message{UserID: "U1", Text: "what phosphorylates X", Private: true}, r))
	require.Equal(t, []string{
		"That's a great question, <@U1> but I couldn't find any statements about that.",
		"try something broader",
	}, r.sent)
	require.Empty(t, r.uploads)
	require.Empty(t, pub.pages)
}

func TestPublishFailureIsNotFatal(t *testing.T) {
	bot := &fakeBot{resp: indrabot.Response{Statements: twoStatements()}}
	st := memstore.New()
	h := newHandler(t, bot, &fakePublisher{err: errors.New("s3 down")}, st)
	r := &fakeReplier{}
	ctx := context.Background()

	require.NoError(t, h.Handle(ctx, Message{UserID: "U1", Text: "what binds BRAF", Private: true}, r))
	require.Len(t, r.sent, 1)
	require.Len(t, r.uploads, 1)

	counts, err := st.OutcomeCounts(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, counts[store.OutcomeAnswered])
}

func TestClarification(t *testing.T) {
	bot := &fakeBot{resp: indrabot.Response{Clarification: `Your question is similar to "what binds X", is that what you meant?`}}
	st := memstore.New()
	h := newHandler(t, bot, nil, st)
	r := &fakeReplier{}
	ctx := context.Background()

	require.NoError(t, h.Handle(ctx, Message{UserID: "U1", Text: "what sticks to BRAF", Private: true}, r))
	require.Equal(t, []string{bot.resp.Clarification}, r.sent)

	counts, err := st.OutcomeCounts(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, counts[store.OutcomeClarified])
}

func TestFailureReply(t *testing.T) {
	bot := &fakeBot{err: errors.New("db down")}
	st := memstore.New()
	h := newHandler(t, bot, nil, st)
	r := &fakeReplier{}
	ctx := context.Background()

	require.NoError(t, h.Handle(ctx, Message{UserID: "U1", Text: "what binds BRAF", Private: true}, r))
	require.Equal(t, []string{SorryReply}, r.sent)

	counts, err := st.OutcomeCounts(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, counts[store.OutcomeFailed])
}

func TestRenderFailureReply(t *testing.T) {
	bot := &fakeBot{resp: indrabot.Response{Statements: twoStatements()}}
	h, err := New(Options{
		BotID:    botID,
		Bot:      bot,
		Renderer: &format.Renderer{DotPath: "indrabot-no-such-dot-binary"},
	})
	require.NoError(t, err)
	h.pick = func(int) int { return 0 }
	r := &fakeReplier{}

	require.NoError(t, h.Handle(context.Background(), Message{UserID: "U1", Text: "what binds BRAF /pdf", Private: true}, r))
	require.Len(t, r.sent, 2)
	require.Equal(t, SorryReply, r.sent[1])
}

func TestDeliveryErrorReturned(t *testing.T) {
	h := newHandler(t, &fakeBot{}, nil, nil)
	r := &fakeReplier{sendErr: errors.New("channel_not_found")}
	err := h.Handle(context.Background(), Message{UserID: "U1", Text: "help", Private: true}, r)
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "channel_not_found"))
}

func TestIgnoredMessages(t *testing.T) {
	bot := &fakeBot{}
	h := newHandler(t, bot, nil, nil)
	r := &fakeReplier{}

	require.NoError(t, h.Handle(context.Background(), Message{UserID: "U1", Text: "what binds BRAF"}, r))
	require.Empty(t, r.sent)
	require.Empty(t, bot.questions)
}

func TestNewRequiresBot(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
}
