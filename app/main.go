package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"newspulse/app/analysis"
	"newspulse/app/api"
	"newspulse/app/cfg"
	"newspulse/app/database"
	"newspulse/app/feed"
	"newspulse/app/llm"
	"newspulse/app/tasks"
	"newspulse/app/topics"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was requested
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting NewsPulse", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBHost, appCfg.DBPort, appCfg.DBUser,
		appCfg.DBPassword, appCfg.DBName)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database schema ready", "version", version, "dirty", dirty)

	sources, err := feed.LoadSources(appCfg.FeedsDir)
	if err != nil {
		slog.Error("Failed to load feed sources", "dir", appCfg.FeedsDir, "error", err)
		os.Exit(1)
	}
	slog.Info("Loaded feed sources", "count", len(sources), "dir", appCfg.FeedsDir)

	feedRepo := database.NewFeedRepository(db)
	articleRepo := database.NewArticleRepository(db)
	topicRepo := database.NewTopicRepository(db)

	// The completion-service client is constructed once. Missing
	// credentials fail fast instead of surfacing per request.
	var llmClient llm.Client
	if appCfg.LLMEnabled {
		llmClient, err = llm.New(appCfg)
		if err != nil {
			slog.Error("Failed to initialize completion-service client", "error", err)
			os.Exit(1)
		}
		slog.Info("Completion service enabled", "provider", llmClient.Name())
	} else {
		slog.Info("Completion service disabled, topics will use keyword clustering")
	}

	var analyzer *analysis.Analyzer
	var grouper *topics.SemanticGrouper
	if llmClient != nil {
		analyzer = analysis.NewAnalyzer(llmClient, articleRepo, appCfg.AnalysisBatchSize)
		grouper = topics.NewSemanticGrouper(llmClient, articleRepo, appCfg.MinGroupSize)
	}

	titler := topics.NewTitler(llmClient)
	builder := topics.NewBuilder(articleRepo, topicRepo, grouper, titler,
		appCfg.SimilarityThreshold, time.Duration(appCfg.TopicMaxAgeHours)*time.Hour)
	ranker := topics.NewRanker(topicRepo, appCfg.TopStoriesLimit, appCfg.TopMaxPerCategory)

	httpClient := &http.Client{Timeout: 60 * time.Second}
	parser := feed.NewParser()
	contentExtractor := feed.NewContentExtractor()

	scheduler := tasks.NewScheduler(sources, feedRepo, articleRepo, httpClient,
		parser, contentExtractor, analyzer, builder)
	scheduler.Start()
	defer scheduler.Stop()
	slog.Info("Background scheduler started", "workers", appCfg.WorkerCount)

	handler := api.NewHandler(feedRepo, articleRepo, topicRepo, analyzer, llmClient, builder, ranker, scheduler)
	server := api.NewServer(handler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("HTTP server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}
