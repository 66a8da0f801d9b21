// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"manuscript-pipeline/internal/config"
	"manuscript-pipeline/internal/domain/ports/adapter"
	aiAdapters "manuscript-pipeline/internal/infra/adapters/ai"
	mediaAdapters "manuscript-pipeline/internal/infra/adapters/media"
	ocrAdapters "manuscript-pipeline/internal/infra/adapters/ocr"
	videoAdapters "manuscript-pipeline/internal/infra/adapters/video"
	"manuscript-pipeline/internal/infra/api"
	pg "manuscript-pipeline/internal/infra/db/postgres"
	"manuscript-pipeline/internal/infra/logging"
	"manuscript-pipeline/internal/infra/metrics"
	red "manuscript-pipeline/internal/infra/redis"
	"manuscript-pipeline/internal/infra/scheduler"
	"manuscript-pipeline/internal/infra/worker"
	"manuscript-pipeline/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, dev dispatch secret)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] Enabled")
	}
	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	if cfg.Database.AutoMigrate {
		if err := pg.Migrate(ctx, pool, "up", logger); err != nil {
			logger.Fatal().Err(err).Msg("migrate")
		}
	}
	go pg.ReportPoolStats(ctx, pool, 15*time.Second)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)
	rateLimiter := red.NewRateLimiter(redisClient)

	// ---- Repositories ----
	tm := pg.NewTxManager(pool)
	jobRepo := pg.NewJobRepo(pool, tm)
	recordRepo := pg.NewProcessingRecordRepoCacheDecorator(pg.NewProcessingRecordRepo(pool), redisClient, cfg.Redis.TTL, logger)
	mediaRepo := pg.NewMediaRepo(pool)

	// ---- Generative AI (Gemini / OpenAI) ----
	ai := buildAI(ctx, cfg, logger)

	// ---- Extractors ----
	fetcher := mediaAdapters.NewHTTPFetcher(cfg.Media.FetchTimeout, cfg.Media.MaxBytes)
	ocrClient := ocrAdapters.NewHTTPClient(cfg.OCR.BaseURL, cfg.OCR.RequestTimeout)
	imageEx := usecase.NewImageExtractor(fetcher, ocrClient, cfg.OCR.Parallelism, cfg.OCR.RequestTimeout, logger)
	audioEx := usecase.NewAudioExtractor(fetcher, ai, cfg.AI.TranscribeModel)

	var videoEx usecase.Extractor
	if cfg.Video.Enabled {
		analyzer, err := videoAdapters.NewIntelligenceAnalyzer(ctx, cfg.Video)
		if err != nil {
			logger.Fatal().Err(err).Msg("video intelligence")
		}
		defer analyzer.Close()
		videoEx = usecase.NewVideoExtractor(analyzer)
	} else {
		logger.Warn().Msg("video.enabled=false; VIDEO_EXTRACTION jobs will fail")
	}

	// ---- Use cases ----
	queueUC := usecase.NewQueueUseCase(jobRepo, recordRepo, tm, cfg.Queue.MaxAttempts, cfg.Queue.BackoffUnit, logger)
	dispatcher := usecase.NewDispatcherUseCase(
		jobRepo, recordRepo, tm,
		usecase.NewExtractorFactory(imageEx, audioEx, videoEx),
		usecase.NewReconstructor(ai, cfg.AI.ReconstructModel, cfg.AI.MaxInputTokens),
		cfg.Queue.BackoffUnit, cfg.Pipeline.InvocationTimeout, logger,
	)
	statusUC := usecase.NewStatusUseCase(recordRepo, jobRepo, mediaRepo, queueUC, locker, logger)
	translationUC := usecase.NewTranslationUseCase(recordRepo, ai, rateLimiter, cfg.AI.TranslateModel,
		cfg.Translation.RateLimit, cfg.Translation.RateWindow, logger)

	// ---- Workers ----
	var workers *worker.Pool
	if cfg.Worker.Enabled {
		workers = worker.NewPool(cfg.Worker.PoolSize, logger)
		workers.Start(ctx)
		go worker.NewDispatchLoop(dispatcher, cfg.Worker.PollInterval, logger).Start(ctx, workers)
	}
	reaper := scheduler.NewScheduler(cfg.Queue.ReapInterval, cfg.Queue.StuckAge, queueUC, logger)
	reaper.Start(ctx)

	// ---- HTTP ----
	auth := api.NewAuthManager(cfg.Auth, cfg.Runtime.Dev)
	srv := api.NewServer(queueUC, dispatcher, statusUC, translationUC, auth, cfg.HTTP.RequestTimeout, logger)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
	case <-ctx.Done():
	}
	logger.Info().Msg("shutdown requested")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 30*time.Second)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	cancel()
	reaper.Stop()
	if workers != nil {
		workers.Stop()
	}
}

// buildAI wires every configured provider behind the router, then applies
// the concurrency cap and per-call timeout.
func buildAI(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) adapter.AIServiceAdapter {
	providers := map[string]adapter.AIServiceAdapter{}
	if cfg.AI.GeminiKey != "" {
		g, err := aiAdapters.NewGeminiAdapter(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiURL, cfg.AI.ReconstructModel, cfg.AI.MaxOutputTokens)
		if err != nil {
			logger.Fatal().Err(err).Msg("gemini adapter")
		}
		providers["gemini"] = g
	}
	if cfg.AI.OpenAIKey != "" {
		o, err := aiAdapters.NewOpenAIAdapter(cfg.AI.OpenAIKey, cfg.AI.OpenAIURL, "", cfg.AI.MaxOutputTokens)
		if err != nil {
			logger.Fatal().Err(err).Msg("openai adapter")
		}
		providers["openai"] = o
	}
	if len(providers) == 0 {
		logger.Fatal().Msg("no AI provider configured: set ai.gemini_key or ai.openai_key")
	}
	if _, ok := providers[cfg.AI.Provider]; !ok {
		logger.Warn().Str("provider", cfg.AI.Provider).Msg("default AI provider has no key; models route by name only")
	}
	logger.Info().
		Str("provider", cfg.AI.Provider).
		Str("reconstruct_model", cfg.AI.ReconstructModel).
		Str("translate_model", cfg.AI.TranslateModel).
		Str("transcribe_model", cfg.AI.TranscribeModel).
		Msg("AI adapters ready")

	var ai adapter.AIServiceAdapter = aiAdapters.NewMultiAIAdapter(cfg.AI.Provider, providers, cfg.AI.ModelProviders)
	ai = aiAdapters.NewLimitedAI(ai, cfg.AI.ConcurrentLimit)
	return aiAdapters.NewTimeoutAI(ai, cfg.AI.RequestTimeout)
}
