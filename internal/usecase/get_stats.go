package usecase

import (
	"context"
	"fmt"

	"github.com/nahuel893/bank-reconciliation-arg/internal/infrastructure/postgres"
)

type StatsDTO struct {
	Total          int64            `json:"total"`
	Unresolved     int64            `json:"unresolved"`
	UnresolvedPct  float64          `json:"unresolved_pct"`
	CountsBySource map[string]int64 `json:"counts_by_source"`
}

type GetStats struct {
	repo *postgres.CorrelationRepository
}

func NewGetStats(repo *postgres.CorrelationRepository) *GetStats {
	return &GetStats{repo: repo}
}

func (uc *GetStats) Execute(ctx context.Context) (*StatsDTO, error) {
	counts, err := uc.repo.CountBySource(ctx)
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}

	stats := &StatsDTO{CountsBySource: make(map[string]int64, len(counts))}
	for src, n := range counts {
		stats.Total += n
		stats.CountsBySource[string(src)] = n
	}
	// A windowed-forward row can be resolved or sentinel, so the unresolved
	// tally comes from counting the sentinel itself, not the source tags.
	unresolved, err := uc.repo.CountUnresolved(ctx)
	if err != nil {
		return nil, fmt.Errorf("count unresolved: %w", err)
	}
	stats.Unresolved = unresolved

	if stats.Total > 0 {
		stats.UnresolvedPct = float64(stats.Unresolved) / float64(stats.Total) * 100
	}
	return stats, nil
}
