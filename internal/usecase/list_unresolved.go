package usecase

import (
	"context"
	"fmt"

	"github.com/nahuel893/bank-reconciliation-arg/internal/infrastructure/postgres"
)

const defaultUnresolvedLimit = 50

// ListUnresolved surfaces the media events stuck on the unknown sentinel so
// an operator can inspect them manually.
type ListUnresolved struct {
	repo *postgres.CorrelationRepository
}

func NewListUnresolved(repo *postgres.CorrelationRepository) *ListUnresolved {
	return &ListUnresolved{repo: repo}
}

func (uc *ListUnresolved) Execute(ctx context.Context, limit int) ([]*CorrelationDTO, error) {
	if limit <= 0 || limit > 500 {
		limit = defaultUnresolvedLimit
	}

	results, err := uc.repo.ListUnresolved(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list unresolved: %w", err)
	}

	dtos := make([]*CorrelationDTO, 0, len(results))
	for _, res := range results {
		dtos = append(dtos, toDTO(res))
	}
	return dtos, nil
}
