package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/Skotchmaster/storefront/internal/admin"
	"github.com/Skotchmaster/storefront/internal/catalog"
	"github.com/Skotchmaster/storefront/internal/config"
	"github.com/Skotchmaster/storefront/internal/db"
	"github.com/Skotchmaster/storefront/internal/es"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/localstore"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/notify"
	"github.com/Skotchmaster/storefront/internal/recordstore"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/internal/tokens"
)

// adminTokenTTL bounds the token minted for one admin command.
const adminTokenTTL = 15 * time.Minute

var ErrNoAdminSecret = errors.New("JWT_SECRET is required for admin commands")

type App struct {
	Session *session.Session
	Catalog *catalog.Service
	// Admin returns the back-office service, or an error when the process
	// cannot act as an administrator.
	Admin func() (*admin.Service, error)

	closers []func()
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// OpenFromEnv loads configuration and wires the application: local state in
// sqlite, the record store over HTTP, optional Kafka events and optional
// Elasticsearch search.
func OpenFromEnv(ctx context.Context) (*App, error) {
	cfg := config.Load()
	logger := logging.NewTo(os.Stderr, cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)
	return Open(logging.IntoContext(ctx, logger), cfg)
}

func Open(ctx context.Context, cfg config.Config) (*App, error) {
	l := logging.FromContext(ctx)
	app := &App{}

	gdb, err := db.Open(ctx, "", cfg.LocalDBPath)
	if err != nil {
		return nil, fmt.Errorf("open local state: %w", err)
	}
	app.closers = append(app.closers, func() { db.Close(gdb) })

	local, err := localstore.NewGormStore(gdb)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("migrate local state: %w", err)
	}

	notes := notify.NewQueue(cfg.NotificationTTL)
	app.closers = append(app.closers, notes.Close)

	var pub events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		p, err := events.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			l.Warn("events_disabled", "error", err)
		} else {
			pub = p
			app.closers = append(app.closers, func() { _ = p.Close() })
		}
	}

	store := recordstore.NewHTTPClient(cfg.RecordStoreURL)
	app.Catalog = &catalog.Service{Store: store}

	var esClient *elasticsearch.Client
	if cfg.ESURL != "" {
		client, err := es.NewClient(ctx, es.Config{URL: cfg.ESURL, User: cfg.ESUser, Password: cfg.ESPassword})
		if err != nil {
			l.Warn("search_disabled", "reason", "elasticsearch unavailable", "error", err)
		} else {
			esClient = client
			app.Catalog.Searcher = &catalog.ESSearcher{Client: client, Index: cfg.ESIndex}
		}
	}

	app.Session = session.New(ctx, session.Deps{
		Store:  store,
		Local:  local,
		Notes:  notes,
		Events: pub,
	})

	app.Admin = func() (*admin.Service, error) {
		if len(cfg.JWTSecret) == 0 {
			return nil, ErrNoAdminSecret
		}
		tok, err := tokens.CreateAccessToken(models.RoleAdmin, "storefront-cli", time.Now().Add(adminTokenTTL), cfg.JWTSecret)
		if err != nil {
			return nil, fmt.Errorf("mint admin token: %w", err)
		}
		authed := store.WithToken(tok)
		svc := &admin.Service{Store: authed, Producer: pub}
		if esClient != nil {
			svc.Indexer = &catalog.Indexer{Client: esClient, Index: cfg.ESIndex, Store: authed}
		}
		return svc, nil
	}
	return app, nil
}
