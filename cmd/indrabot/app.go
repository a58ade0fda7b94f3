package main

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/cognicore/indrabot/internal/llm"
	"github.com/cognicore/indrabot/pkg/indrabot"
	"github.com/cognicore/indrabot/pkg/indrabot/config"
	"github.com/cognicore/indrabot/pkg/indrabot/dbrest"
	"github.com/cognicore/indrabot/pkg/indrabot/format"
	"github.com/cognicore/indrabot/pkg/indrabot/ground"
	"github.com/cognicore/indrabot/pkg/indrabot/match"
	"github.com/cognicore/indrabot/pkg/indrabot/publish"
	"github.com/cognicore/indrabot/pkg/indrabot/store"
	"github.com/cognicore/indrabot/pkg/indrabot/store/memstore"
	"github.com/cognicore/indrabot/pkg/indrabot/store/sqlite"
)

// app holds the components shared by every front end.
type app struct {
	bot       *indrabot.Bot
	store     store.Store
	renderer  *format.Renderer
	publisher publish.Publisher
}

// buildApp wires the bot from cfg. The returned cleanup closes the store.
func buildApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, func(), error) {
	loader := config.NewLoader(cfg)
	components, err := loader.Load()
	if err != nil {
		return nil, nil, err
	}

	st, err := openStore(ctx, cfg.Store.Path)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := st.Close(); err != nil {
			logger.Warn("store.close", zap.Error(err))
		}
	}

	var remote ground.Grounder
	if cfg.Gilda.URL != "" {
		remote = &ground.GildaClient{
			BaseURL:    cfg.Gilda.URL,
			HTTPClient: &http.Client{Timeout: cfg.Gilda.Timeout},
		}
	}
	grounder, err := ground.NewChain(components.Groundings, remote, cfg.Gilda.CacheSize, logger.Named("ground"))
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("grounding cache: %w", err)
	}

	opts := indrabot.Options{
		Matcher:  match.NewMatcher(components.Templates...),
		Grounder: grounder,
		Retriever: &dbrest.Client{
			BaseURL:       cfg.DBRest.URL,
			APIKey:        cfg.DBRest.APIKey,
			MaxStatements: cfg.DBRest.MaxStatements,
			EvidenceLimit: cfg.DBRest.EvidenceLimit,
			HTTPClient:    &http.Client{Timeout: cfg.DBRest.Timeout},
		},
		Logger: logger.Named("bot"),
	}
	if cfg.LLM.Enabled() {
		opts.Summarizer = &llm.Client{
			BaseURL: cfg.LLM.BaseURL,
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
		}
	}
	bot, err := indrabot.New(opts)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	publisher, err := newPublisher(cfg, st, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	logger.Info("indrabot.ready",
		zap.Int("groundings", components.Groundings.Len()),
		zap.Int("templates", len(opts.Matcher.Templates())),
		zap.String("dbrest", cfg.DBRest.URL),
		zap.String("publish", cfg.Publish.Backend),
		zap.Bool("summaries", cfg.LLM.Enabled()),
	)

	return &app{
		bot:   bot,
		store: st,
		renderer: &format.Renderer{
			DotPath:   cfg.DotPath,
			DBRestURL: cfg.DBRest.URL,
			Logger:    logger.Named("format"),
		},
		publisher: publisher,
	}, cleanup, nil
}

func openStore(ctx context.Context, path string) (store.Store, error) {
	if path == "" {
		return memstore.New(), nil
	}
	st, err := sqlite.OpenSQLite(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	return st, nil
}

func newPublisher(cfg config.Config, st store.Store, logger *zap.Logger) (publish.Publisher, error) {
	switch cfg.Publish.Backend {
	case "store":
		return publish.NewStorePublisher(st, cfg.Publish.BaseURL)
	case "s3":
		s3cfg := cfg.Publish.S3
		return publish.NewS3PublisherFromConfig(publish.S3Config{
			Bucket:          s3cfg.Bucket,
			Region:          s3cfg.Region,
			Endpoint:        s3cfg.Endpoint,
			AccessKeyID:     s3cfg.AccessKeyID,
			SecretAccessKey: s3cfg.SecretAccessKey,
		}, logger.Named("s3"))
	}
	return nil, nil
}
