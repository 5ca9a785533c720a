package ingest

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/nahuel893/bank-reconciliation-arg/internal/correlate"
	"github.com/nahuel893/bank-reconciliation-arg/internal/domain/chat"
)

// Dispatcher owns the two correlation paths. The historical pass runs to
// completion before the live loop starts, so the paths never share mutable
// state or interleave for the same author.
type Dispatcher struct {
	classifier *Classifier
	live       *correlate.Live
	historical *correlate.Historical
	log        zerolog.Logger
}

func NewDispatcher(classifier *Classifier, live *correlate.Live, historical *correlate.Historical, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		classifier: classifier,
		live:       live,
		historical: historical,
		log:        log.With().Str("component", "dispatcher").Logger(),
	}
}

// DispatchLive routes one pushed event to the live state machine. Malformed
// events are dropped and logged here; a correlation or sink failure is
// returned so the caller can decline the delivery.
func (d *Dispatcher) DispatchLive(ctx context.Context, ev chat.Event) error {
	ok, err := d.classifier.Admit(ev)
	if err != nil {
		d.log.Warn().Err(err).Msg("dropping malformed event")
		return nil
	}
	if !ok {
		return nil
	}
	if ev.Mode == chat.ModeHistorical {
		return fmt.Errorf("historical event %s pushed to the live path", ev.ID)
	}
	return d.live.Handle(ctx, ev)
}

// RunHistorical filters, sorts, and correlates a complete transcript,
// returning the number of results emitted.
func (d *Dispatcher) RunHistorical(ctx context.Context, events []chat.Event) (int, error) {
	admitted := make([]chat.Event, 0, len(events))
	for _, ev := range events {
		ok, err := d.classifier.Admit(ev)
		if err != nil {
			d.log.Warn().Err(err).Msg("dropping malformed transcript event")
			continue
		}
		if ok {
			admitted = append(admitted, ev)
		}
	}

	correlate.SortEvents(admitted)

	d.log.Info().Int("events", len(admitted)).Msg("starting historical pass")
	return d.historical.Run(ctx, admitted)
}
