package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os/signal"
	"syscall"

	"narrativelens/db"
	"narrativelens/internal/config"
	"narrativelens/internal/refresh"
	"narrativelens/internal/repository"
	"narrativelens/pkg/llm"
)

func main() {
	once := flag.Bool("once", false, "run a single refresh and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}

	slog.SetDefault(config.NewLogger(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("error connecting to DB: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("error migrating DB: %v", err)
	}

	taxonomy, err := llm.LoadTaxonomy(cfg.TaxonomyFile)
	if err != nil {
		log.Fatalf("error loading taxonomy: %v", err)
	}

	llmClient, err := llm.New(cfg.LLMProvider, llm.Options{
		OpenAIKey:      cfg.OpenAIKey,
		OpenAIBaseURL:  cfg.OpenAIBaseURL,
		OpenAIModel:    cfg.OpenAIModel,
		AnthropicKey:   cfg.AnthropicKey,
		AnthropicModel: cfg.AnthropicModel,
	})
	if err != nil {
		log.Fatalf("error configuring LLM client: %v", err)
	}

	narrativeRepo := repository.NewNarrativeRepository(db.DB)
	headlineRepo := repository.NewHeadlineRepository(db.DB)

	cache, err := narrativeCache(ctx, cfg, *once)
	if err != nil {
		log.Fatalf("error connecting to Redis: %v", err)
	}
	defer db.CloseRedis()

	svc := refresh.NewService(narrativeRepo, llmClient, taxonomy, headlineRepo, cache)

	if *once {
		result, err := svc.Run(ctx)
		if err != nil {
			log.Fatalf("error refreshing narratives: %v", err)
		}
		slog.Info("refresh complete", "narratives", result.Narratives, "edges", result.Edges, "model", result.Model)
		return
	}

	if cfg.RefreshInterval > 0 {
		slog.Info("scheduled refresh enabled", "interval", cfg.RefreshInterval.String())
		go refresh.Schedule(ctx, svc, cfg.RefreshInterval)
	}

	worker := refresh.NewWorker(svc,
		db.NewQueue(db.Redis, db.RefreshQueueKey),
		db.NewQueue(db.Redis, db.DeadLetterKey))

	slog.Info("refresher waiting for jobs", "queue", db.RefreshQueueKey)

	if err := worker.Run(ctx); err != nil {
		log.Fatalf("error processing refresh queue: %v", err)
	}
}

// narrativeCache connects Redis so a refresh can invalidate the API's cached
// narrative list. A one-shot refresh runs without Redis and only warns; the
// queue worker requires it.
func narrativeCache(ctx context.Context, cfg *config.Config, once bool) (refresh.CacheInvalidator, error) {
	err := db.ConnectRedis(ctx, cfg.RedisURL)
	if err != nil {
		if !once {
			return nil, err
		}
		slog.Warn("narrative cache will not be invalidated", "error", err)
		return nil, nil
	}
	return db.NewCache(db.Redis, db.NarrativeCacheKey, cfg.CacheTTL), nil
}
