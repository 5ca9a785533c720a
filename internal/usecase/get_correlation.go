package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nahuel893/bank-reconciliation-arg/internal/domain/correlation"
	"github.com/nahuel893/bank-reconciliation-arg/internal/infrastructure/postgres"
)

type CorrelationDTO struct {
	MediaID        string `json:"media_id"`
	Author         string `json:"author"`
	Timestamp      int64  `json:"timestamp"`
	ResolvedCode   string `json:"resolved_code"`
	Source         string `json:"source"`
	AssociatedText string `json:"associated_text"`
	Resolved       bool   `json:"resolved"`
}

type GetCorrelation struct {
	redisClient *redis.Client
	repo        *postgres.CorrelationRepository
}

func NewGetCorrelation(redisClient *redis.Client, repo *postgres.CorrelationRepository) *GetCorrelation {
	return &GetCorrelation{
		redisClient: redisClient,
		repo:        repo,
	}
}

func (uc *GetCorrelation) Execute(ctx context.Context, mediaID string) (*CorrelationDTO, error) {
	cacheKey := fmt.Sprintf("correlation:%s", mediaID)

	if uc.redisClient != nil {
		val, err := uc.redisClient.Get(ctx, cacheKey).Result()
		if err == nil {
			var dto CorrelationDTO
			if err := json.Unmarshal([]byte(val), &dto); err == nil {
				return &dto, nil
			}
		}
	}

	res, err := uc.repo.GetByMediaID(ctx, mediaID)
	if err != nil {
		return nil, fmt.Errorf("get correlation: %w", err)
	}

	dto := toDTO(res)

	if uc.redisClient != nil {
		data, _ := json.Marshal(dto)
		uc.redisClient.Set(ctx, cacheKey, data, 30*time.Second)
	}

	return dto, nil
}

func toDTO(res *correlation.Result) *CorrelationDTO {
	return &CorrelationDTO{
		MediaID:        res.MediaID,
		Author:         res.Author,
		Timestamp:      res.Timestamp,
		ResolvedCode:   res.Code,
		Source:         string(res.Source),
		AssociatedText: res.AssociatedText,
		Resolved:       res.Resolved(),
	}
}
