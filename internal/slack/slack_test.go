package slack

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/cognicore/indrabot/internal/conversation"
	"github.com/cognicore/indrabot/pkg/indrabot"
	"github.com/cognicore/indrabot/pkg/indrabot/format"
)

const botID = "UBOT"

type post struct {
	channel string
}

type fakeAPI struct {
	mu          sync.Mutex
	posts       []post
	uploads     []slack.UploadFileV2Parameters
	uploadBody  []string
	userCalls   int
	convCalls   int
	authCalls   int
	channelIsIM map[string]bool
}

func (f *fakeAPI) AuthTestContext(ctx context.Context) (*slack.AuthTestResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authCalls++
	return &slack.AuthTestResponse{UserID: botID}, nil
}

func (f *fakeAPI) GetUserInfoContext(ctx context.Context, user string) (*slack.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userCalls++
	return &slack.User{ID: user, Name: "name-" + user}, nil
}

func (f *fakeAPI) GetConversationInfoContext(ctx context.Context, input *slack.GetConversationInfoInput) (*slack.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.convCalls++
	ch := &slack.Channel{}
	ch.ID = input.ChannelID
	ch.IsIM = f.channelIsIM[input.ChannelID]
	return ch, nil
}

func (f *fakeAPI) PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts = append(f.posts, post{channel: channelID})
	return channelID, "1", nil
}

func (f *fakeAPI) UploadFileV2Context(ctx context.Context, params slack.UploadFileV2Parameters) (*slack.FileSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	body := params.Content
	if params.Reader != nil {
		b, _ := io.ReadAll(params.Reader)
		body = string(b)
	}
	f.uploads = append(f.uploads, params)
	f.uploadBody = append(f.uploadBody, body)
	return &slack.FileSummary{ID: "F1"}, nil
}

func (f *fakeAPI) postCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.posts)
}

type fakeSource struct {
	mu   sync.Mutex
	acks int
}

func (f *fakeSource) RunContext(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakeSource) Ack(req socketmode.Request, payload ...interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acks++
}

type helpBot struct{}

func (helpBot) HandleQuestion(ctx context.Context, text string) (indrabot.Response, error) {
	return indrabot.Response{}, errors.New("should not be asked")
}

func newTestBot(t *testing.T, api *fakeAPI, source *fakeSource, events chan socketmode.Event) *Bot {
	t.Helper()
	handler, err := conversation.New(conversation.Options{Bot: helpBot{}})
	require.NoError(t, err)
	bot, err := New(api, source, events, handler, Options{})
	require.NoError(t, err)
	return bot
}

func eventsAPI(inner interface{}) socketmode.Event {
	return socketmode.Event{
		Type: socketmode.EventTypeEventsAPI,
		Data: slackevents.EventsAPIEvent{
			Type:       slackevents.CallbackEvent,
			InnerEvent: slackevents.EventsAPIInnerEvent{Data: inner},
		},
		Request: &socketmode.Request{EnvelopeID: "env"},
	}
}

func TestRunHandlesMessages(t *testing.T) {
	defer goleak.VerifyNone(t)

	api := &fakeAPI{channelIsIM: map[string]bool{}}
	source := &fakeSource{}
	events := make(chan socketmode.Event)
	bot := newTestBot(t, api, source, events)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bot.Run(ctx) }()

	// Direct message: answered without a mention.
	events <- eventsAPI(&slackevents.MessageEvent{
		User: "U1", Text: "help", Channel: "D1", ChannelType: "im", TimeStamp: "1.0",
	})
	// Channel mention delivered twice: answered once.
	events <- eventsAPI(&slackevents.MessageEvent{
		User: "U2", Text: "<@" + botID + "> help", Channel: "C1", ChannelType: "channel", TimeStamp: "2.0",
	})
	events <- eventsAPI(&slackevents.AppMentionEvent{
		User: "U2", Text: "<@" + botID + "> help", Channel: "C1", TimeStamp: "2.0",
	})
	// Channel message without a mention is ignored.
	events <- eventsAPI(&slackevents.MessageEvent{
		User: "U3", Text: "help", Channel: "C1", ChannelType: "channel", TimeStamp: "3.0",
	})
	// Bot messages are ignored.
	events <- eventsAPI(&slackevents.MessageEvent{
		BotID: "B1", Text: "help", Channel: "D1", ChannelType: "im", TimeStamp: "4.0",
	})

	require.Eventually(t, func() bool { return api.postCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	source.mu.Lock()
	require.Equal(t, 5, source.acks)
	source.mu.Unlock()
	api.mu.Lock()
	defer api.mu.Unlock()
	require.Equal(t, 1, api.authCalls)
	require.Equal(t, 3, api.userCalls)
	require.ElementsMatch(t, []string{"D1", "C1"}, []string{api.posts[0].channel, api.posts[1].channel})
}

func TestIsPrivateLooksUpAndCaches(t *testing.T) {
	api := &fakeAPI{channelIsIM: map[string]bool{"D9": true}}
	bot := newTestBot(t, api, &fakeSource{}, make(chan socketmode.Event))
	ctx := context.Background()

	require.True(t, bot.isPrivate(ctx, "D9", ""))
	require.True(t, bot.isPrivate(ctx, "D9", ""))
	require.False(t, bot.isPrivate(ctx, "C9", ""))
	require.False(t, bot.isPrivate(ctx, "C8", "channel"))
	require.Equal(t, 2, api.convCalls)
}

func TestUserNameCached(t *testing.T) {
	api := &fakeAPI{}
	bot := newTestBot(t, api, &fakeSource{}, make(chan socketmode.Event))
	ctx := context.Background()

	require.Equal(t, "name-U1", bot.userName(ctx, "U1"))
	require.Equal(t, "name-U1", bot.userName(ctx, "U1"))
	require.Equal(t, 1, api.userCalls)
}

func TestReplierUpload(t *testing.T) {
	api := &fakeAPI{}
	r := replier{api: api}
	ctx := context.Background()

	require.NoError(t, r.Upload(ctx, "C1", format.Artifact{Filename: "indrabot.tsv", Filetype: "tsv", Content: []byte("a\tb\n")}))
	require.NoError(t, r.Upload(ctx, "C1", format.Artifact{Filename: "indrabot.pdf", Filetype: "pdf", Content: []byte("%PDF")}))

	require.Len(t, api.uploads, 2)
	require.Equal(t, "a\tb\n", api.uploads[0].Content)
	require.Equal(t, 4, api.uploads[0].FileSize)
	require.Nil(t, api.uploads[0].Reader)
	require.Empty(t, api.uploads[1].Content)
	require.Equal(t, "%PDF", api.uploadBody[1])
	require.Equal(t, "C1", api.uploads[1].Channel)
}

func TestRunStopsWhenEventsClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	events := make(chan socketmode.Event)
	bot := newTestBot(t, &fakeAPI{}, &fakeSource{}, events)
	bot.botID = botID

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- bot.Run(ctx) }()

	close(events)
	// The loop exits cleanly; the connection keeps running until cancelled.
	cancel()
	require.NoError(t, <-done)
}
