package main

import (
	"context"
	"log"
	"log/slog"
	"time"

	"narrativelens/db"
	"narrativelens/internal/config"
	"narrativelens/internal/repository"
	"narrativelens/pkg/news"
)

const fetchLimit = 50

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}

	slog.SetDefault(config.NewLogger(cfg.LogLevel))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	err = db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("error connecting to DB: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("error migrating DB: %v", err)
	}

	var clients []news.NewsClient
	if cfg.FinnhubKey != "" {
		clients = append(clients, news.NewFinnHubClient(cfg.FinnhubKey))
	}
	if cfg.AlphaVantageKey != "" {
		clients = append(clients, news.NewAlphaVantageClient(cfg.AlphaVantageKey))
	}
	if cfg.MassiveKey != "" {
		clients = append(clients, news.NewMassiveClient(cfg.MassiveKey))
	}

	if len(clients) == 0 {
		slog.Error("no news source API keys configured")
		return
	}

	repo := repository.NewHeadlineRepository(db.DB)

	headlines, failed := news.FetchAll(ctx, clients, fetchLimit)
	for source, err := range failed {
		slog.Error("error fetching headlines", "source", source, "error", err)
	}

	var saved, duplicated, errors int

	for i := range headlines {
		h := &headlines[i]
		if h.URL == "" || h.Headline == "" {
			continue
		}

		success, err := repo.Save(ctx, h)
		if err != nil {
			slog.Error("error saving headline", "source", h.Source, "error", err)
			errors++
			continue
		}

		if !success {
			slog.Debug("duplicate headline skipped", "source", h.Source, "url", h.URL)
			duplicated++
			continue
		}

		saved++
	}

	slog.Info("fetch complete", "saved", saved, "duplicated", duplicated, "errors", errors, "failed_sources", len(failed))
}
