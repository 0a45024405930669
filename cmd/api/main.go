package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"narrativelens/db"
	"narrativelens/internal/config"
	"narrativelens/internal/handler"
	"narrativelens/internal/repository"
	"narrativelens/pkg/llm"
)

func main() {
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

	err = db.ConnectRedis(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("error connecting to Redis: %v", err)
	}
	defer db.CloseRedis()

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

	cache := db.NewCache(db.Redis, db.NarrativeCacheKey, cfg.CacheTTL)
	queue := db.NewQueue(db.Redis, db.RefreshQueueKey)
	catalog := handler.NewCatalog(narrativeRepo, cache)

	narrativeHandler := handler.NewNarrativeHandler(catalog, queue)
	portfolioHandler := handler.NewPortfolioHandler(catalog)
	explainHandler := handler.NewExplainHandler(llmClient, catalog)
	headlineHandler := handler.NewHeadlineHandler(headlineRepo)

	r := gin.Default()

	allowedOrigins := []string{"http://localhost:3000"}

	if cfg.FrontendURL != "" {
		allowedOrigins = append(allowedOrigins, cfg.FrontendURL)
	}

	slog.Info("AllowOrigins URL:", "urls", allowedOrigins)

	r.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
	}))

	r.GET("/narratives/stats", narrativeHandler.GetStats)
	r.GET("/narratives/:id", narrativeHandler.GetNarrative)
	r.GET("/narratives", narrativeHandler.GetNarratives)
	r.POST("/narratives/refresh", narrativeHandler.Refresh)
	r.GET("/edges", narrativeHandler.GetEdges)
	r.POST("/portfolio/import", portfolioHandler.Import)
	r.POST("/portfolio/exposure", portfolioHandler.Exposure)
	r.POST("/explain", explainHandler.Explain)
	r.GET("/headlines", headlineHandler.GetHeadlines)
	r.GET("/health", narrativeHandler.GetHealth)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("api listening", "port", cfg.Port, "llm_provider", cfg.LLMProvider, "model", llmClient.ModelName())

	err = srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("error starting server: %v", err)
	}
}
