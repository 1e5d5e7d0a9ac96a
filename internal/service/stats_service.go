package service

import (
	"context"

	"farmlink/internal/models"
	"farmlink/internal/observability"
	"farmlink/internal/repository"
)

// StatsService computes the admin dashboard aggregate. Results are never
// cached.
type StatsService struct {
	repo repository.StatsRepository
}

func NewStatsService(repo repository.StatsRepository) *StatsService {
	return &StatsService{repo: repo}
}

func (s *StatsService) ComputeStats(ctx context.Context) (*models.Stats, error) {
	ctx, span := observability.StartSpan(ctx, "StatsService.ComputeStats")
	stats, err := s.repo.Snapshot(ctx)
	observability.EndSpan(span, err)
	return stats, err
}
