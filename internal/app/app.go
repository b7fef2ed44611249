// Package app assembles the service from configuration: storage, scrape
// pipeline, notifications, events, and the HTTP front-end.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mpop-24/vantageflow/internal/api"
	"github.com/mpop-24/vantageflow/internal/archive"
	"github.com/mpop-24/vantageflow/internal/clock/system"
	"github.com/mpop-24/vantageflow/internal/config"
	"github.com/mpop-24/vantageflow/internal/events"
	"github.com/mpop-24/vantageflow/internal/monitor"
	"github.com/mpop-24/vantageflow/internal/notify"
	"github.com/mpop-24/vantageflow/internal/scrape"
	"github.com/mpop-24/vantageflow/internal/track"
)

// App contains the application's dependencies.
type App struct {
	Config      config.Config
	Logger      *zap.Logger
	Store       track.Provider
	Pipeline    *scrape.Pipeline
	Alerter     monitor.Alerter
	Publisher   events.Publisher
	Coordinator *monitor.Coordinator
	Server      *api.Server

	archiveGCS *archive.GCSProvider
}

// New wires an App from configuration. Callers own Close.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}
	clk := system.Clock{}

	store, err := newStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Store = store

	archiveProvider, err := a.newArchive(ctx, cfg, logger)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	pipeline, err := scrape.NewPipeline(scrape.Config{
		UserAgent:            cfg.Scrape.UserAgent,
		RequestTimeout:       cfg.ScrapeTimeout(),
		ProxyBaseURL:         cfg.Scrape.ProxyBaseURL,
		RenderEnabled:        cfg.Scrape.RenderEnabled,
		RenderTimeout:        time.Duration(cfg.Scrape.RenderTimeoutSeconds) * time.Second,
		RenderSettle:         time.Duration(cfg.Scrape.RenderSettleSeconds) * time.Second,
		RenderMaxConcurrency: cfg.Scrape.RenderMaxParallel,
		RenderDomainQPS:      cfg.Scrape.RenderDomainQPS,
		DetectorMinHTMLBytes: cfg.Scrape.DetectorMinHTMLBytes,
		DetectorKeywords:     cfg.Scrape.DetectorKeywords,
	}, clk, archiveProvider, cfg.Archive.Prefix, logger)
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("init scrape pipeline: %w", err)
	}
	a.Pipeline = pipeline

	if cfg.Slack.BotToken != "" {
		client := notify.NewSlackClient(cfg.Slack.BaseURL, cfg.Slack.BotToken, 15*time.Second, logger)
		a.Alerter = notify.NewSlackAlerter(client)
	} else {
		logger.Warn("slack bot token unset; alerts disabled")
	}

	publisher, err := newPublisher(ctx, cfg)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.Publisher = publisher

	a.Coordinator = monitor.NewCoordinator(
		a.Store,
		pipeline.Builder,
		a.Alerter,
		a.Publisher,
		clk,
		cfg.Monitor.StatePath,
		cfg.Monitor.TeamID,
		logger,
	)

	a.Server = api.NewServer(a.Store, pipeline.Builder, cfg.Slack.SigningSecret, clk, logger)
	return a, nil
}

func newStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (track.Provider, error) {
	switch cfg.Store.Provider {
	case "rest":
		return track.NewRESTProvider(cfg.Store.RESTBaseURL, cfg.Store.RESTAPIKey, cfg.StoreTimeout(), logger), nil
	case "postgres":
		provider, err := track.NewPostgresProvider(ctx, track.PostgresConfig{
			DSN:      cfg.Store.DSN,
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
		return provider, nil
	case "noop":
		return track.NewNoOpProvider(), nil
	default:
		return nil, fmt.Errorf("unknown store.provider %q", cfg.Store.Provider)
	}
}

func (a *App) newArchive(ctx context.Context, cfg config.Config, logger *zap.Logger) (archive.Provider, error) {
	switch cfg.Archive.Provider {
	case "local":
		provider, err := archive.NewLocalProvider(cfg.Archive.LocalDir)
		if err != nil {
			return nil, fmt.Errorf("init local archive: %w", err)
		}
		return provider, nil
	case "gcs":
		provider, err := archive.NewGCSProvider(ctx, cfg.Archive.GCSBucket, logger)
		if err != nil {
			return nil, fmt.Errorf("init gcs archive: %w", err)
		}
		a.archiveGCS = provider
		return provider, nil
	case "noop":
		return &archive.NoOpProvider{}, nil
	default:
		return nil, fmt.Errorf("unknown archive.provider %q", cfg.Archive.Provider)
	}
}

func newPublisher(ctx context.Context, cfg config.Config) (events.Publisher, error) {
	switch cfg.Events.Provider {
	case "pubsub":
		publisher, err := events.NewPubSubPublisher(ctx, cfg.Events.ProjectID, cfg.Events.TopicName)
		if err != nil {
			return nil, fmt.Errorf("init pubsub publisher: %w", err)
		}
		return publisher, nil
	case "memory":
		return events.NewMemoryPublisher(), nil
	case "noop":
		return events.NewNoOpPublisher(), nil
	default:
		return nil, fmt.Errorf("unknown events.provider %q", cfg.Events.Provider)
	}
}

// Close releases everything New acquired. Safe on a partially built App.
func (a *App) Close(ctx context.Context) {
	if a.Pipeline != nil {
		if err := a.Pipeline.Close(ctx); err != nil {
			a.Logger.Warn("close scrape pipeline failed", zap.Error(err))
		}
	}
	if a.Publisher != nil {
		if err := a.Publisher.Close(); err != nil {
			a.Logger.Warn("close event publisher failed", zap.Error(err))
		}
	}
	if a.archiveGCS != nil {
		if err := a.archiveGCS.Close(); err != nil {
			a.Logger.Warn("close gcs archive failed", zap.Error(err))
		}
	}
	if a.Store != nil {
		a.Store.Close()
	}
}
