// Package conversation is the reply flow shared by the chat front ends.
package conversation

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cognicore/indrabot/pkg/indrabot"
	"github.com/cognicore/indrabot/pkg/indrabot/format"
	"github.com/cognicore/indrabot/pkg/indrabot/internalerr"
	"github.com/cognicore/indrabot/pkg/indrabot/publish"
	"github.com/cognicore/indrabot/pkg/indrabot/store"
)

// SorryReply is sent when a question could not be answered.
const SorryReply = "Sorry, I can't answer that, ask something else."

var prefixes = []string{
	"That's a great question",
	"What an interesting question",
	"As always, I'm happy to answer that",
	"Very interesting",
}

// Message is an incoming chat message.
type Message struct {
	Channel  string
	UserID   string
	UserName string
	Text     string
	// Private is true for direct conversations, where the bot answers
	// without being mentioned.
	Private bool
}

// Replier delivers replies to a channel.
type Replier interface {
	Send(ctx context.Context, channel, text string) error
	Upload(ctx context.Context, channel string, art format.Artifact) error
}

// Answerer answers questions.
type Answerer interface {
	HandleQuestion(ctx context.Context, text string) (indrabot.Response, error)
}

// Options configures a Handler.
type Options struct {
	// BotID is the bot's own user id; its mention is stripped from
	// questions.
	BotID     string
	Bot       Answerer
	Renderer  *format.Renderer
	Publisher publish.Publisher
	Store     store.Store
	Logger    *zap.Logger
}

// Handler turns messages into replies.
type Handler struct {
	botID     string
	bot       Answerer
	renderer  *format.Renderer
	publisher publish.Publisher
	store     store.Store
	logger    *zap.Logger
	pick      func(n int) int
}

// New creates a Handler. Publisher and Store are optional.
func New(opts Options) (*Handler, error) {
	if opts.Bot == nil {
		return nil, fmt.Errorf("%w: conversation needs a bot", internalerr.ErrInvalidConfig)
	}
	if opts.Renderer == nil {
		opts.Renderer = &format.Renderer{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Handler{
		botID:     opts.BotID,
		bot:       opts.Bot,
		renderer:  opts.Renderer,
		publisher: opts.Publisher,
		store:     opts.Store,
		logger:    opts.Logger,
		pick:      rand.IntN,
	}, nil
}

// SetBotID sets the id whose mentions address the bot.
func (h *Handler) SetBotID(id string) {
	h.botID = id
}

func (h *Handler) mention() string {
	return "<@" + h.botID + ">"
}

// Addressed reports whether msg is meant for the bot: not its own message,
// in a private conversation or mentioning it, and not a file upload notice.
func (h *Handler) Addressed(msg Message) bool {
	if h.botID != "" && msg.UserID == h.botID {
		return false
	}
	if !msg.Private && (h.botID == "" || !strings.Contains(msg.Text, h.mention())) {
		return false
	}
	return !strings.Contains(msg.Text, "uploaded a file")
}

var punctuation = strings.NewReplacer(".", "", ",", "", "?", "", "!", "", ";", "", ":", "")

// Handle replies to msg. Failures to answer become apologies; only
// delivery failures are returned.
func (h *Handler) Handle(ctx context.Context, msg Message, r Replier) error {
	if !h.Addressed(msg) {
		return nil
	}
	text := msg.Text
	if h.botID != "" {
		text = strings.ReplaceAll(text, h.mention(), "")
	}
	text = strings.TrimSpace(text)
	f, text := format.ParseModifier(text)

	entry := store.QuestionLog{
		AskedAt: time.Now(),
		UserID:  msg.UserID,
		Channel: msg.Channel,
		Text:    text,
		Format:  string(f),
	}
	h.logger.Info("message received",
		zap.String("user", msg.UserName),
		zap.String("channel", msg.Channel),
		zap.String("text", text),
	)

	switch cmd := strings.ToLower(punctuation.Replace(text)); cmd {
	case "help", "what can you do":
		entry.Outcome = store.OutcomeHelp
		h.record(ctx, entry)
		return r.Send(ctx, msg.Channel, Help(cmd == "what can you do"))
	}

	n, err := h.answer(ctx, msg, text, f, r, &entry)
	if err != nil {
		h.logger.Error("could not answer", zap.String("question", text), zap.Error(err))
		entry.Outcome = store.OutcomeFailed
		h.record(ctx, entry)
		return r.Send(ctx, msg.Channel, SorryReply)
	}
	entry.Statements = n
	h.record(ctx, entry)
	return nil
}

// answer runs the question and sends the reply, returning the number of
// statements found.
func (h *Handler) answer(ctx context.Context, msg Message, text string, f format.Format, r Replier, entry *store.QuestionLog) (int, error) {
	resp, err := h.bot.HandleQuestion(ctx, text)
	if err != nil {
		return 0, err
	}
	if !resp.Answered() {
		entry.Outcome = store.OutcomeClarified
		return 0, r.Send(ctx, msg.Channel, resp.Clarification)
	}
	entry.Outcome = store.OutcomeAnswered

	n := len(resp.Statements)
	reply := fmt.Sprintf("%s, <@%s>", prefixes[h.pick(len(prefixes))], msg.UserID)
	if n == 0 {
		reply += " but I couldn't find any statements about that."
	} else {
		plural := ""
		if n > 1 {
			plural = "s"
		}
		reply += fmt.Sprintf("! I found %d statement%s about that.", n, plural)
	}
	if err := r.Send(ctx, msg.Channel, reply); err != nil {
		return n, err
	}

	if n > 0 {
		art, err := h.renderer.Render(ctx, f, resp.Answer())
		if err != nil {
			return n, err
		}
		if err := r.Upload(ctx, msg.Channel, art); err != nil {
			return n, err
		}
		if url := h.publishPage(ctx, resp, f, art); url != "" {
			if err := r.Send(ctx, msg.Channel, "You can also view these results here: "+url); err != nil {
				return n, err
			}
		}
	}

	if resp.Suggestion != "" {
		if err := r.Send(ctx, msg.Channel, resp.Suggestion); err != nil {
			return n, err
		}
	}
	return n, nil
}

// publishPage makes an HTML page for resp shareable. Failures are only
// logged.
func (h *Handler) publishPage(ctx context.Context, resp indrabot.Response, f format.Format, art format.Artifact) string {
	if h.publisher == nil {
		return ""
	}
	page := art.Content
	if f != format.HTML {
		var err error
		page, err = h.renderer.HTML(resp.Answer())
		if err != nil {
			h.logger.Error("render page", zap.Error(err))
			return ""
		}
	}
	url, err := h.publisher.Publish(ctx, publish.Page{
		Question:   resp.Question,
		Statements: len(resp.Statements),
		HTML:       page,
	})
	if err != nil {
		h.logger.Error("publish page", zap.Error(err))
		return ""
	}
	return url
}

func (h *Handler) record(ctx context.Context, entry store.QuestionLog) {
	if h.store == nil {
		return
	}
	if _, err := h.store.RecordQuestion(ctx, entry); err != nil {
		h.logger.Warn("record question", zap.Error(err))
	}
}
