// Package ingest is the boundary between the event sources and the
// correlation engines: it validates inbound events, filters them to the
// single monitored group, and routes them to the live or historical path.
package ingest

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/nahuel893/bank-reconciliation-arg/internal/domain/chat"
)

var (
	eventsAdmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "correlator_events_admitted_total",
		Help: "The total number of events admitted to a correlation path, by kind",
	}, []string{"kind"})
	eventsFiltered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "correlator_events_filtered_total",
		Help: "The total number of events dropped for belonging to another group",
	})
	eventsMalformed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "correlator_events_malformed_total",
		Help: "The total number of events dropped as malformed",
	})
)

// Classifier admits events for the configured group and rejects malformed
// ones. Events from any other source are dropped silently.
type Classifier struct {
	group string
	log   zerolog.Logger
}

func NewClassifier(group string, log zerolog.Logger) *Classifier {
	return &Classifier{
		group: group,
		log:   log.With().Str("component", "classifier").Logger(),
	}
}

// Admit returns true when the event should reach a correlation path. A
// malformed event yields an error so the caller can log it; it is never
// silently correlated.
func (c *Classifier) Admit(ev chat.Event) (bool, error) {
	if err := ev.Validate(); err != nil {
		eventsMalformed.Inc()
		return false, fmt.Errorf("malformed event %q from %q: %w", ev.ID, ev.Author, err)
	}
	if ev.Group != c.group {
		eventsFiltered.Inc()
		return false, nil
	}
	eventsAdmitted.WithLabelValues(string(ev.Kind)).Inc()
	return true, nil
}
