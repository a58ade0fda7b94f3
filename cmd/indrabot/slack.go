package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cognicore/indrabot/internal/conversation"
	"github.com/cognicore/indrabot/internal/slack"
	"github.com/cognicore/indrabot/pkg/indrabot/internalerr"
)

var slackWorkers int

var slackCmd = &cobra.Command{
	Use:   "slack",
	Short: "Run the Slack bot",
	Long: `Connect to Slack in socket mode and answer questions that mention the
bot, or any message in a direct conversation. The bot token comes from
slack.bot_token or the token file; socket mode also needs an app-level
token (slack.app_token).`,
	RunE: runSlack,
}

func init() {
	slackCmd.Flags().IntVar(&slackWorkers, "workers", 4, "Messages handled concurrently")
}

func runSlack(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, cleanup, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	bot, err := newSlackBot(a)
	if err != nil {
		return err
	}
	return bot.Run(ctx)
}

func newSlackBot(a *app) (*slack.Bot, error) {
	token, err := cfg.SlackBotToken()
	if err != nil {
		return nil, err
	}
	if cfg.Slack.AppToken == "" {
		return nil, fmt.Errorf("%w: slack.app_token is required for socket mode", internalerr.ErrInvalidConfig)
	}

	handler, err := conversation.New(conversation.Options{
		BotID:     cfg.Slack.BotUserID,
		Bot:       a.bot,
		Renderer:  a.renderer,
		Publisher: a.publisher,
		Store:     a.store,
		Logger:    logger.Named("conversation"),
	})
	if err != nil {
		return nil, err
	}

	api, socket := slack.Dial(token, cfg.Slack.AppToken)
	return slack.New(api, socket, socket.Events, handler, slack.Options{
		BotUserID: cfg.Slack.BotUserID,
		CacheSize: cfg.Slack.CacheSize,
		Workers:   slackWorkers,
		Logger:    logger.Named("slack"),
	})
}
