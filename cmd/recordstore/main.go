package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/storefront/internal/catalog"
	"github.com/Skotchmaster/storefront/internal/config"
	"github.com/Skotchmaster/storefront/internal/db"
	"github.com/Skotchmaster/storefront/internal/es"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/logging"
	loggingmw "github.com/Skotchmaster/storefront/internal/middleware/logging"
	"github.com/Skotchmaster/storefront/internal/recordserver"
	"github.com/Skotchmaster/storefront/internal/recordstore"
)

func main() {
	cfg := config.Load()
	cfg.MustRecordStore()

	logger := logging.New(cfg.LogLevel).With("service", "recordstore")
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	gdb, err := db.Open(ctx, cfg.DatabaseURL, cfg.RecordDBPath)
	cancel()
	if err != nil {
		log.Fatalf("db open: %v", err)
	}

	repo, err := recordserver.NewGormRepo(gdb)
	if err != nil {
		log.Fatalf("migrate: %v", err)
	}

	var producer events.Publisher = events.Nop{}
	var kafkaProducer *events.Producer
	if len(cfg.KafkaBrokers) > 0 {
		tctx, tcancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := events.EnsureTopics(tctx, cfg.KafkaBrokers[0], events.Topics...); err != nil {
			logger.Warn("ensure_topics_failed", "error", err)
		}
		tcancel()
		kafkaProducer, err = events.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			log.Fatalf("kafka producer: %v", err)
		}
		producer = kafkaProducer
	}

	svc := &recordserver.RecordService{
		Repo:        repo,
		Collections: recordserver.DefaultCollections,
		Producer:    producer,
	}
	handler := &recordserver.RecordHTTP{Svc: svc}

	if cfg.SeedFile != "" {
		sctx := logging.IntoContext(context.Background(), logger)
		n, err := svc.Seed(sctx, cfg.SeedFile)
		if err != nil {
			log.Fatalf("seed: %v", err)
		}
		logger.Info("seeded", "file", cfg.SeedFile, "records", n)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(echomw.CORS())

	recordserver.Register(e, &recordserver.Deps{
		RecordHandler: handler,
		JWTSecret:     cfg.JWTSecret,
	})

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.ServerPort),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
	}

	bg, stopBg := context.WithCancel(logging.IntoContext(context.Background(), logger))
	if kafkaProducer != nil && cfg.ESURL != "" {
		startIndexer(bg, cfg, srv.Addr, logger)
	}

	go func() {
		log.Printf("recordstore listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	stopBg()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	if kafkaProducer != nil {
		_ = kafkaProducer.Close()
	}
	db.Close(gdb)

	log.Println("recordstore stopped")
}

// startIndexer keeps the search index in step with product writes by
// consuming the product topic and reading products back over HTTP.
func startIndexer(ctx context.Context, cfg config.Config, addr string, logger *slog.Logger) {
	esCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	client, err := es.NewClient(esCtx, es.Config{URL: cfg.ESURL, User: cfg.ESUser, Password: cfg.ESPassword})
	cancel()
	if err != nil {
		logger.Warn("search_disabled", "reason", "elasticsearch unavailable", "error", err)
		return
	}

	ix := &catalog.Indexer{
		Client: client,
		Index:  cfg.ESIndex,
		Store:  recordstore.NewHTTPClient("http://localhost" + addr),
	}

	go func() {
		// Give the listener a moment before reading products back.
		time.Sleep(time.Second)
		if n, err := ix.Reindex(ctx); err != nil {
			logger.Warn("reindex_failed", "error", err)
		} else {
			logger.Info("reindexed", "products", n)
		}
		if err := events.Consume(ctx, cfg.KafkaBrokers, events.ProductTopic, "recordstore-indexer", ix.HandleEvent); err != nil {
			logger.Error("indexer_stopped", "error", err)
		}
	}()
}
