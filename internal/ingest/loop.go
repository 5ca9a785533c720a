package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	segkafka "github.com/segmentio/kafka-go"

	"github.com/nahuel893/bank-reconciliation-arg/internal/domain/chat"
)

// MessageSource is the slice of the kafka consumer the loop needs.
type MessageSource interface {
	FetchMessage(ctx context.Context) (segkafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...segkafka.Message) error
}

// Loop pulls live chat events from kafka and feeds them to the dispatcher.
// A message is committed only after the dispatcher accepted it, so a sink
// fault leads to redelivery; the idempotent gateway absorbs the replays.
type Loop struct {
	source     MessageSource
	dispatcher *Dispatcher
	log        zerolog.Logger
}

func NewLoop(source MessageSource, dispatcher *Dispatcher, log zerolog.Logger) *Loop {
	return &Loop{
		source:     source,
		dispatcher: dispatcher,
		log:        log.With().Str("component", "live-loop").Logger(),
	}
}

func (l *Loop) Run(ctx context.Context) error {
	l.log.Info().Msg("live loop started")

	for {
		msg, err := l.source.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			l.log.Error().Err(err).Msg("failed to fetch message")
			time.Sleep(1 * time.Second)
			continue
		}

		var ev chat.Event
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			// Not our payload (or corrupt). Commit and move on.
			l.log.Error().Err(err).Msg("failed to unmarshal chat event")
			if err := l.source.CommitMessages(ctx, msg); err != nil {
				l.log.Error().Err(err).Msg("failed to commit skipped message")
			}
			continue
		}
		ev.Mode = chat.ModeLive

		if err := l.dispatchWithRetry(ctx, ev); err != nil {
			// Committing a later offset would silently drop this event, so
			// the loop stops with it uncommitted; the next run redelivers it
			// and the idempotent sink absorbs anything already written.
			return fmt.Errorf("dispatch event %s (author %s): %w", ev.ID, ev.Author, err)
		}

		if err := l.source.CommitMessages(ctx, msg); err != nil {
			l.log.Error().Err(err).Msg("failed to commit kafka message")
		}
	}
}

const maxDispatchRetries = 5

func (l *Loop) dispatchWithRetry(ctx context.Context, ev chat.Event) error {
	var err error
	for attempt := 0; attempt <= maxDispatchRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<attempt) * time.Second
			l.log.Warn().Err(err).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Str("event_id", ev.ID).
				Msg("retrying dispatch")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err = l.dispatcher.DispatchLive(ctx, ev); err == nil {
			return nil
		}
	}
	return err
}
