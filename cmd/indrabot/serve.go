package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cognicore/indrabot/internal/slack"
	"github.com/cognicore/indrabot/internal/web"
)

var (
	serveAddr      string
	serveWithSlack bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the web front end",
	Long: `Serve the question form, the JSON API under /api/ask and published
result pages under /results/{id}. With --slack the Slack bot runs in the
same process.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides web.addr)")
	serveCmd.Flags().BoolVar(&serveWithSlack, "slack", false, "Also run the Slack bot")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if serveAddr != "" {
		cfg.Web.Addr = serveAddr
	}

	a, cleanup, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	srv, err := web.New(web.Options{
		Addr:            cfg.Web.Addr,
		ReadTimeout:     cfg.Web.ReadTimeout,
		ShutdownTimeout: cfg.Web.ShutdownTimeout,
		Bot:             a.bot,
		Store:           a.store,
		Renderer:        a.renderer,
		Logger:          logger.Named("web"),
	})
	if err != nil {
		return fmt.Errorf("web server: %w", err)
	}

	var slackBot *slack.Bot
	if serveWithSlack {
		slackBot, err = newSlackBot(a)
		if err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(gctx)
	})
	if slackBot != nil {
		g.Go(func() error {
			return slackBot.Run(gctx)
		})
	}
	return g.Wait()
}
