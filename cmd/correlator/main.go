package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nahuel893/bank-reconciliation-arg/internal/api"
	"github.com/nahuel893/bank-reconciliation-arg/internal/application/factories/infrastructure"
	"github.com/nahuel893/bank-reconciliation-arg/internal/config"
	"github.com/nahuel893/bank-reconciliation-arg/internal/correlate"
	"github.com/nahuel893/bank-reconciliation-arg/internal/emit"
	"github.com/nahuel893/bank-reconciliation-arg/internal/infrastructure/kafka"
	"github.com/nahuel893/bank-reconciliation-arg/internal/infrastructure/postgres"
	"github.com/nahuel893/bank-reconciliation-arg/internal/ingest"
	"github.com/nahuel893/bank-reconciliation-arg/internal/logger"
	"github.com/nahuel893/bank-reconciliation-arg/internal/usecase"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		// No logger yet.
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(cfg.App.Name, cfg.Log.Level)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	infraFactory := infrastructure.NewFactory(cfg)
	defer infraFactory.Close()

	pgPool, err := infraFactory.Postgres(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	// Redis is a cache in front of the sink's exists-check; the correlator
	// keeps running without it.
	redisClient, err := infraFactory.Redis(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, running without the dedup cache")
		redisClient = nil
	}

	repo := postgres.NewCorrelationRepository(pgPool)
	txManager := postgres.NewTxManager(pgPool)
	gateway := emit.NewGateway(txManager, repo, redisClient, log)

	classifier := ingest.NewClassifier(cfg.Correlator.Group, log)
	live := correlate.NewLive(gateway, cfg.Correlator.LiveWait(), log)
	historical := correlate.NewHistorical(gateway, cfg.Correlator.Window(), cfg.Correlator.BatchSize, log)
	dispatcher := ingest.NewDispatcher(classifier, live, historical, log)

	// Diagnostics API
	handlers := api.NewHandlers(
		usecase.NewGetCorrelation(redisClient, repo),
		usecase.NewListUnresolved(repo),
		usecase.NewGetStats(repo),
	)
	srv := &http.Server{
		Addr:    ":" + cfg.HTTP.Port,
		Handler: api.NewRouter(handlers),
	}
	go func() {
		log.Info().Str("port", cfg.HTTP.Port).Msg("diagnostics server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("diagnostics server failed")
		}
	}()

	// The historical pass runs to completion before live listening begins.
	if cfg.Correlator.HistoryFile != "" {
		events, err := ingest.LoadTranscript(cfg.Correlator.HistoryFile)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load transcript")
		}
		emitted, err := dispatcher.RunHistorical(ctx, events)
		if err != nil {
			log.Fatal().Err(err).Int("emitted", emitted).Msg("historical pass failed")
		}
		log.Info().Int("emitted", emitted).Msg("historical pass complete")
	}

	kafkaConsumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID)
	defer kafkaConsumer.Close()

	loop := ingest.NewLoop(kafkaConsumer, dispatcher, log)
	log.Info().
		Str("group", cfg.Correlator.Group).
		Str("topic", cfg.Kafka.Topic).
		Msg("correlator started")

	if err := loop.Run(ctx); err != nil {
		log.Error().Err(err).Msg("live loop exited with error")
	}

	// Shutdown: force-resolve open slots to the sentinel, then stop the API.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := live.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to flush pending slots")
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("diagnostics server shutdown failed")
	}

	log.Info().Msg("correlator stopped")
}
