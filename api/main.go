package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DeafMist/competitor-radar/internal/config"
	"github.com/DeafMist/competitor-radar/internal/dashboard"
	"github.com/DeafMist/competitor-radar/internal/elasticsearch"
	"github.com/DeafMist/competitor-radar/internal/logger"
	"github.com/DeafMist/competitor-radar/internal/source"
	"github.com/DeafMist/competitor-radar/internal/taxonomy"
)

func main() {
	log := logger.New("api")
	cfg, err := config.LoadAPI()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	tax := taxonomy.Default()
	if cfg.TaxonomyPath != "" {
		tax, err = taxonomy.Load(cfg.TaxonomyPath)
		if err != nil {
			log.Error("load taxonomy", slog.Any("err", err))
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	srv := &server{
		log: log,
		cfg: cfg,
		svc: dashboard.New(tax, log),
	}

	remote := source.NewHTTP(cfg.Fetch, nil, log)
	mux := source.NewMux().
		Handle(source.Snapshot, remote).
		Handle(source.History, remote)

	switch cfg.NewsSource {
	case config.NewsSourceRSS:
		mux.Handle(source.News, source.NewRSS(cfg.RSSFeeds, cfg.Fetch, nil, log))
	case config.NewsSourceElasticsearch:
		esClient, err := elasticsearch.Connect(ctx, cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log, 10)
		if err != nil {
			log.Error("init elasticsearch", slog.Any("err", err))
			os.Exit(1)
		}
		mux.Handle(source.News, source.NewElasticsearch(esClient, cfg.NewsLookback, elasticsearch.MaxListSize))
		srv.health = esClient
	default:
		mux.Handle(source.News, remote)
	}
	srv.src = mux

	warm := source.LoadAll(ctx, mux)
	if err := warm.Err(); err != nil {
		log.Warn("initial dataset load incomplete", slog.Any("err", err))
	}
	log.Info("datasets loaded",
		slog.Int("news", warm.News.Len()),
		slog.Int("snapshot", warm.Snapshot.Len()),
		slog.Int("history", warm.History.Len()),
	)

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	go func() {
		log.Info("api server starting",
			slog.String("addr", cfg.BindAddr),
			slog.String("news_source", cfg.NewsSource),
			slog.Int("categories", len(tax.Labels())),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", slog.Any("err", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", slog.Any("err", err))
	}
}
