// Package emit is the at-most-once handoff between the correlation engines
// and the external sink.
package emit

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	go_redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/nahuel893/bank-reconciliation-arg/internal/domain/correlation"
	"github.com/nahuel893/bank-reconciliation-arg/internal/infrastructure/postgres"
)

var (
	resultsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "correlator_results_emitted_total",
		Help: "The total number of correlation results written to the sink, by source",
	}, []string{"source"})
	duplicatesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "correlator_duplicates_skipped_total",
		Help: "The total number of results discarded because the media id was already known",
	})
	sinkFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "correlator_sink_failures_total",
		Help: "The total number of failed sink writes",
	})
	emitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "correlator_emit_duration_seconds",
		Help:    "Time taken to hand one result to the sink",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1},
	})
)

const cacheTTL = 24 * time.Hour

// Gateway writes results through the idempotent sink. A redis membership
// cache sits in front of the exists-check; redis is optional and the
// gateway degrades to postgres-only when the client is nil.
type Gateway struct {
	txManager postgres.Transactor
	repo      correlation.Repository
	cache     *go_redis.Client
	log       zerolog.Logger
}

func NewGateway(txManager postgres.Transactor, repo correlation.Repository, cache *go_redis.Client, log zerolog.Logger) *Gateway {
	return &Gateway{
		txManager: txManager,
		repo:      repo,
		cache:     cache,
		log:       log.With().Str("component", "gateway").Logger(),
	}
}

// Emit hands one result to the sink. A result whose media id is already
// known is discarded silently: that is how retried deliveries and restart
// replays are absorbed. A sink fault is returned so the caller can retry
// the whole media event later; nothing is considered lost.
func (g *Gateway) Emit(ctx context.Context, res *correlation.Result) error {
	started := time.Now()

	if g.cached(ctx, res.MediaID) {
		duplicatesSkipped.Inc()
		return nil
	}

	var inserted bool
	err := g.txManager.WithinTransaction(ctx, func(txCtx context.Context) error {
		exists, err := g.repo.Exists(txCtx, res.MediaID)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
		inserted, err = g.repo.Insert(txCtx, res)
		return err
	})
	if err != nil {
		sinkFailures.Inc()
		return fmt.Errorf("sink write for media %s (author %s): %w", res.MediaID, res.Author, err)
	}

	g.remember(ctx, res.MediaID)

	if !inserted {
		duplicatesSkipped.Inc()
		return nil
	}

	resultsEmitted.WithLabelValues(string(res.Source)).Inc()
	emitDuration.Observe(time.Since(started).Seconds())

	g.log.Info().
		Str("media_id", res.MediaID).
		Str("author", res.Author).
		Str("code", res.Code).
		Str("source", string(res.Source)).
		Msg("correlation emitted")
	return nil
}

func (g *Gateway) cached(ctx context.Context, mediaID string) bool {
	if g.cache == nil {
		return false
	}
	err := g.cache.Get(ctx, cacheKey(mediaID)).Err()
	return err == nil
}

func (g *Gateway) remember(ctx context.Context, mediaID string) {
	if g.cache == nil {
		return
	}
	if err := g.cache.Set(ctx, cacheKey(mediaID), "1", cacheTTL).Err(); err != nil {
		// Cache misses only cost an extra exists-query.
		g.log.Debug().Err(err).Str("media_id", mediaID).Msg("failed to cache media id")
	}
}

func cacheKey(mediaID string) string {
	return fmt.Sprintf("correlated:%s", mediaID)
}
