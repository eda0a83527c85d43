package service

import (
	"context"
	"fmt"

	"mediarank/internal/models"
	"mediarank/internal/stats"
	"mediarank/internal/validation"
)

// StatsService serves the engagement dashboard and leaderboard
type StatsService struct {
	engine
	settings Settings
}

// NewStatsService creates a new stats service
func NewStatsService(deps Deps, settings Settings) *StatsService {
	return &StatsService{engine: newEngine(deps), settings: settings}
}

// GetAggregatedStats projects the user's stats for today. An empty userID
// yields the zero snapshot.
func (s *StatsService) GetAggregatedStats(ctx context.Context, userID string) (models.AggregatedStats, error) {
	now := s.clock()
	if userID == "" {
		return s.tracker.Project(nil, now, false), nil
	}

	current, err := s.repos.stats.Get(ctx, userID)
	if err != nil {
		return models.AggregatedStats{}, fmt.Errorf("failed to load stats: %w", err)
	}
	return s.tracker.Project(current, now, true), nil
}

// GetTopItems returns the user's highest rated items with percentiles.
// An empty userID yields an empty list; limit <= 0 uses the configured default.
func (s *StatsService) GetTopItems(ctx context.Context, userID string, category models.MediaType, limit int) ([]models.TopItem, error) {
	if userID == "" {
		return []models.TopItem{}, nil
	}
	if category != "" && !category.Valid() {
		return nil, validation.ValidationError{Field: "category", Message: "must be one of: ANIME MANGA"}
	}
	if limit <= 0 {
		limit = s.settings.TopItemsLimit
	}

	items, err := s.repos.library.ListByRating(ctx, userID, category)
	if err != nil {
		return nil, fmt.Errorf("failed to list library by rating: %w", err)
	}
	return stats.TopItems(items, category, limit), nil
}

// EnsureStats returns the user's stats row, creating an empty one first
// when none exists
func (s *StatsService) EnsureStats(ctx context.Context, userID string) (*models.UserStats, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	var out *models.UserStats
	err := s.mutate(ctx, userID, func(repos repositories) error {
		current, err := repos.stats.Get(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to load stats: %w", err)
		}
		if current != nil {
			out = current
			return nil
		}

		created := models.NewUserStats(userID)
		created.UpdatedAt = s.clock()
		if err := saveStats(ctx, repos, created); err != nil {
			return err
		}
		out = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
