package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/fanloremedia/fanlore/internal/catalog/repository"
	"github.com/fanloremedia/fanlore/internal/catalog/service"
	"github.com/fanloremedia/fanlore/internal/catalog/source"
	"github.com/fanloremedia/fanlore/internal/config"
	natsintegration "github.com/fanloremedia/fanlore/internal/integration/nats"
	"github.com/fanloremedia/fanlore/pkg/cache"
	"github.com/fanloremedia/fanlore/pkg/database"
	"github.com/fanloremedia/fanlore/pkg/events"
	"github.com/fanloremedia/fanlore/pkg/interfaces"
	"github.com/fanloremedia/fanlore/pkg/logger"
)

// app holds the wired-up services a command needs. Built lazily so
// commands like help never touch the database.
type app struct {
	cfg      *config.Config
	log      interfaces.Logger
	db       *gorm.DB
	repo     repository.Repository
	eventBus interfaces.EventBus
	links    *service.LinkService
	dedup    *service.DedupService
	monetize *service.MonetizeService
	sync     *service.SyncService
	cleanup  []func()
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	log := logger.New()

	db, err := database.NewGormDB(cfg.Database.ToPostgresConfig())
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := database.RunMigrations(db); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	repo := repository.NewGormRepository(db)
	eventBus := events.NewInMemoryEventBus(log)

	a := &app{
		cfg:      cfg,
		log:      log,
		db:       db,
		repo:     repo,
		eventBus: eventBus,
	}

	// Optional: relay catalog events onto JetStream when NATS is
	// configured.
	if cfg.NATS.URL != "" {
		zapLogger, err := logger.NewZapLogger(cfg.Environment == "development")
		if err != nil {
			return nil, fmt.Errorf("building NATS logger: %w", err)
		}
		client, cleanup, err := natsintegration.NewClient(cfg.NATS, zapLogger.Zap())
		if err != nil {
			return nil, fmt.Errorf("connecting to NATS: %w", err)
		}
		a.cleanup = append(a.cleanup, cleanup)
		publisher := natsintegration.NewPublisher(client, zapLogger.Zap())
		for _, eventType := range []string{
			"episode.created", "episode.merged", "entity.linked",
			"listing.annotated", "sync.completed",
		} {
			if err := eventBus.Subscribe(eventType, natsintegration.NewRelay(publisher, eventType)); err != nil {
				return nil, fmt.Errorf("subscribing NATS relay: %w", err)
			}
		}
	}

	if err := eventBus.Start(context.Background()); err != nil {
		return nil, fmt.Errorf("starting event bus: %w", err)
	}
	// Runs before the NATS drain, so in-flight events still get relayed.
	a.cleanup = append(a.cleanup, func() { _ = eventBus.Stop() })

	a.links = service.NewLinkService(repo, eventBus, cache.NewInMemoryCache(), log)
	a.dedup = service.NewDedupService(repo, eventBus, log)
	a.monetize = service.NewMonetizeService(repo, eventBus, log, cfg.Monetization.AllowedProviders)

	var src source.CandidateSource
	if cfg.Sync.SourceBaseURL != "" {
		src = source.NewClient(cfg.Sync.SourceBaseURL, cfg.Sync.SourceAPIKey, cfg.Sync.FetchTimeout)
	}
	a.sync = service.NewSyncService(repo, src, a.links, a.dedup, a.monetize, eventBus, log, service.SyncConfig{
		PageSize:     cfg.Sync.PageSize,
		FetchTimeout: cfg.Sync.FetchTimeout,
		MaxRetries:   cfg.Sync.MaxRetries,
		RetryBackoff: cfg.Sync.RetryBackoff,
	})

	return a, nil
}

func (a *app) close() {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i]()
	}
}

// resolveCelebrity accepts either a UUID or a slug.
func (a *app) resolveCelebrity(cmd *cobra.Command, ref string) (uuid.UUID, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return id, nil
	}
	celebrity, err := a.repo.GetCelebrityBySlug(cmd.Context(), ref)
	if err != nil {
		return uuid.Nil, fmt.Errorf("celebrity %q not found: %w", ref, err)
	}
	return celebrity.ID, nil
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "fanlore",
		Short:         "Fanlore catalog sync pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(
		newSyncCommand(),
		newCelebrityCommand(),
		newReportCommand(),
		newOrphansCommand(),
		newDedupCommand(),
		newMigrateCommand(),
	)
	return cmd
}
