// Command replay publishes a JSON transcript to the live chat-events topic.
// Useful for backfills and load tests against a running correlator.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/nahuel893/bank-reconciliation-arg/internal/config"
	"github.com/nahuel893/bank-reconciliation-arg/internal/domain/chat"
	"github.com/nahuel893/bank-reconciliation-arg/internal/infrastructure/kafka"
	"github.com/nahuel893/bank-reconciliation-arg/internal/ingest"
	"github.com/nahuel893/bank-reconciliation-arg/internal/logger"
)

func main() {
	file := flag.String("file", "", "path to the transcript JSON file")
	delay := flag.Duration("delay", 0, "pause between published events")
	flag.Parse()

	cfg, err := config.New()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New("replay", cfg.Log.Level)

	if *file == "" {
		log.Fatal().Msg("-file is required")
	}

	events, err := ingest.LoadTranscript(*file)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load transcript")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	producer := kafka.NewProducer(kafka.Config{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Topic,
	})
	defer producer.Close()

	published := 0
	for _, ev := range events {
		if ctx.Err() != nil {
			break
		}

		// Transcript entries without an id get one; the correlator rejects
		// id-less events as malformed.
		if ev.ID == "" {
			ev.ID = uuid.New().String()
		}
		ev.Mode = chat.ModeLive

		value, err := json.Marshal(ev)
		if err != nil {
			log.Error().Err(err).Str("event_id", ev.ID).Msg("failed to marshal event")
			continue
		}

		sendCtx, sendCancel := context.WithTimeout(ctx, 5*time.Second)
		err = producer.SendEvent(sendCtx, []byte(ev.Author), value, string(ev.Kind))
		sendCancel()
		if err != nil {
			log.Fatal().Err(err).Str("event_id", ev.ID).Msg("failed to publish event")
		}

		published++
		if *delay > 0 {
			time.Sleep(*delay)
		}
	}

	log.Info().
		Str("topic", producer.Topic()).
		Int("published", published).
		Int("total", len(events)).
		Msg("replay finished")
}
