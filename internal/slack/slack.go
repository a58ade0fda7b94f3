// Package slack runs the bot on a Slack workspace over socket mode.
package slack

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cognicore/indrabot/internal/conversation"
	"github.com/cognicore/indrabot/pkg/indrabot/format"
)

// API is the part of the Slack Web API the bot uses.
type API interface {
	AuthTestContext(ctx context.Context) (*slack.AuthTestResponse, error)
	GetUserInfoContext(ctx context.Context, user string) (*slack.User, error)
	GetConversationInfoContext(ctx context.Context, input *slack.GetConversationInfoInput) (*slack.Channel, error)
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
	UploadFileV2Context(ctx context.Context, params slack.UploadFileV2Parameters) (*slack.FileSummary, error)
}

// EventSource is a socket mode connection.
type EventSource interface {
	RunContext(ctx context.Context) error
	Ack(req socketmode.Request, payload ...interface{})
}

// Options configures a Bot.
type Options struct {
	// BotUserID is looked up with auth.test when empty.
	BotUserID string
	CacheSize int
	// Workers bounds the messages handled concurrently.
	Workers int
	Logger  *zap.Logger
}

// Bot relays Slack messages to a conversation handler.
type Bot struct {
	api     API
	source  EventSource
	events  <-chan socketmode.Event
	handler *conversation.Handler
	botID   string
	workers int
	users   *lru.Cache[string, string]
	private *lru.Cache[string, bool]
	seen    *lru.Cache[string, struct{}]
	logger  *zap.Logger
}

// Dial creates the Web API client and socket mode connection for a bot
// token and an app-level token.
func Dial(botToken, appToken string) (*slack.Client, *socketmode.Client) {
	api := slack.New(botToken, slack.OptionAppLevelToken(appToken))
	return api, socketmode.New(api)
}

// New creates a Bot reading events from the source's channel.
func New(api API, source EventSource, events <-chan socketmode.Event, handler *conversation.Handler, opts Options) (*Bot, error) {
	if api == nil || source == nil || handler == nil {
		return nil, errors.New("slack: api, event source and handler are required")
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 512
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	users, err := lru.New[string, string](opts.CacheSize)
	if err != nil {
		return nil, err
	}
	private, err := lru.New[string, bool](opts.CacheSize)
	if err != nil {
		return nil, err
	}
	seen, err := lru.New[string, struct{}](opts.CacheSize)
	if err != nil {
		return nil, err
	}
	return &Bot{
		api:     api,
		source:  source,
		events:  events,
		handler: handler,
		botID:   opts.BotUserID,
		workers: opts.Workers,
		users:   users,
		private: private,
		seen:    seen,
		logger:  opts.Logger,
	}, nil
}

// Run connects and handles events until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	if b.botID == "" {
		auth, err := b.api.AuthTestContext(ctx)
		if err != nil {
			return fmt.Errorf("slack auth test: %w", err)
		}
		b.botID = auth.UserID
	}
	b.handler.SetBotID(b.botID)
	b.logger.Info("slack bot starting", zap.String("bot_id", b.botID))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return b.source.RunContext(gctx)
	})
	g.Go(func() error {
		return b.loop(gctx)
	})
	err := g.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (b *Bot) loop(ctx context.Context) error {
	var handlers errgroup.Group
	handlers.SetLimit(b.workers)
	defer handlers.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-b.events:
			if !ok {
				return nil
			}
			msg, ok := b.dispatch(ctx, evt)
			if !ok {
				continue
			}
			handlers.Go(func() error {
				b.handle(ctx, msg)
				return nil
			})
		}
	}
}

// dispatch acknowledges the event and extracts a message worth handling.
func (b *Bot) dispatch(ctx context.Context, evt socketmode.Event) (conversation.Message, bool) {
	switch evt.Type {
	case socketmode.EventTypeConnecting:
		b.logger.Info("connecting to slack")
	case socketmode.EventTypeConnected:
		b.logger.Info("connected to slack")
	case socketmode.EventTypeConnectionError:
		b.logger.Warn("slack connection error")
	case socketmode.EventTypeEventsAPI:
		if evt.Request != nil {
			b.source.Ack(*evt.Request)
		}
		apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok || apiEvent.Type != slackevents.CallbackEvent {
			return conversation.Message{}, false
		}
		return b.message(ctx, apiEvent.InnerEvent.Data)
	}
	return conversation.Message{}, false
}

func (b *Bot) message(ctx context.Context, data interface{}) (conversation.Message, bool) {
	var (
		msg         conversation.Message
		ts          string
		channelType string
	)
	switch ev := data.(type) {
	case *slackevents.MessageEvent:
		if ev.User == "" || ev.BotID != "" || ev.SubType != "" {
			return msg, false
		}
		msg = conversation.Message{Channel: ev.Channel, UserID: ev.User, Text: ev.Text}
		ts, channelType = ev.TimeStamp, ev.ChannelType
	case *slackevents.AppMentionEvent:
		if ev.User == "" || ev.BotID != "" {
			return msg, false
		}
		msg = conversation.Message{Channel: ev.Channel, UserID: ev.User, Text: ev.Text}
		ts = ev.TimeStamp
	default:
		return msg, false
	}

	// A mention in a channel arrives both as a message and as an app
	// mention.
	key := msg.Channel + "/" + ts
	if ok, _ := b.seen.ContainsOrAdd(key, struct{}{}); ok {
		return msg, false
	}

	msg.Private = b.isPrivate(ctx, msg.Channel, channelType)
	msg.UserName = b.userName(ctx, msg.UserID)
	return msg, true
}

func (b *Bot) handle(ctx context.Context, msg conversation.Message) {
	if err := b.handler.Handle(ctx, msg, replier{api: b.api}); err != nil {
		b.logger.Error("reply failed", zap.String("channel", msg.Channel), zap.Error(err))
	}
}

// isPrivate reports whether the channel is a direct conversation.
func (b *Bot) isPrivate(ctx context.Context, channel, channelType string) bool {
	if channelType != "" {
		return channelType == "im"
	}
	if p, ok := b.private.Get(channel); ok {
		return p
	}
	info, err := b.api.GetConversationInfoContext(ctx, &slack.GetConversationInfoInput{ChannelID: channel})
	if err != nil {
		b.logger.Warn("conversation info", zap.String("channel", channel), zap.Error(err))
		return false
	}
	b.private.Add(channel, info.IsIM)
	return info.IsIM
}

func (b *Bot) userName(ctx context.Context, user string) string {
	if name, ok := b.users.Get(user); ok {
		return name
	}
	info, err := b.api.GetUserInfoContext(ctx, user)
	if err != nil {
		b.logger.Warn("user info", zap.String("user", user), zap.Error(err))
		return ""
	}
	b.users.Add(user, info.Name)
	return info.Name
}

// replier posts replies through the Web API.
type replier struct {
	api API
}

func (r replier) Send(ctx context.Context, channel, text string) error {
	_, _, err := r.api.PostMessageContext(ctx, channel,
		slack.MsgOptionText(text, false),
		slack.MsgOptionAsUser(true),
	)
	if err != nil {
		return fmt.Errorf("post message: %w", err)
	}
	return nil
}

func (r replier) Upload(ctx context.Context, channel string, art format.Artifact) error {
	params := slack.UploadFileV2Parameters{
		Channel:  channel,
		Filename: art.Filename,
		Title:    art.Filename,
		FileSize: len(art.Content),
	}
	if format.Format(art.Filetype).Inline() {
		params.Content = string(art.Content)
	} else {
		params.Reader = bytes.NewReader(art.Content)
	}
	if _, err := r.api.UploadFileV2Context(ctx, params); err != nil {
		return fmt.Errorf("upload %s: %w", art.Filename, err)
	}
	return nil
}
