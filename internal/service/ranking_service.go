package service

import (
	"context"
	"fmt"
	"time"

	"mediarank/internal/logging"
	"mediarank/internal/metrics"
	"mediarank/internal/models"
	"mediarank/internal/rating"
)

// RankingService runs the comparison loop: pair selection, rating updates
// and the comparison ledger
type RankingService struct {
	engine
	selector rating.PairSelector
	settings Settings
}

// NewRankingService creates a new ranking service. A nil selector uses
// uniform random selection.
func NewRankingService(deps Deps, selector rating.PairSelector, settings Settings) *RankingService {
	if selector == nil {
		selector = rating.NewRandomSelector(nil)
	}
	return &RankingService{
		engine:   newEngine(deps),
		selector: selector,
		settings: settings,
	}
}

// GetComparisonPair picks two library items to compare. It returns nil when
// the user has fewer than two items.
func (s *RankingService) GetComparisonPair(ctx context.Context, userID string) (*models.Pair, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	items, err := s.repos.library.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list library: %w", err)
	}

	a, b, ok := s.selector.SelectPair(items)
	metrics.RecordPairServed(ok)
	if !ok {
		return nil, nil
	}

	enriched, err := attachMedia(ctx, s.repos.media, a, b)
	if err != nil {
		return nil, err
	}
	return &models.Pair{Item1: enriched[0], Item2: enriched[1]}, nil
}

// SubmitComparison records that winnerID was preferred over loserID and
// updates both ratings. Everything happens in one transaction.
func (s *RankingService) SubmitComparison(ctx context.Context, userID string, winnerID, loserID int64) (*models.ComparisonResult, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if winnerID == loserID {
		return nil, fmt.Errorf("%w: an item cannot be compared with itself", ErrInvalidState)
	}

	start := time.Now()
	var result models.ComparisonResult
	var winnerOld float64

	err := s.mutate(ctx, userID, func(repos repositories) error {
		winner, err := repos.library.GetByID(ctx, userID, winnerID)
		if err != nil {
			return fmt.Errorf("failed to load winner: %w", err)
		}
		loser, err := repos.library.GetByID(ctx, userID, loserID)
		if err != nil {
			return fmt.Errorf("failed to load loser: %w", err)
		}
		if winner == nil || loser == nil {
			return fmt.Errorf("%w: one or both items not found", ErrNotFound)
		}

		winnerOld = winner.Rating
		result.WinnerNewRating, result.LoserNewRating = rating.Update(
			winner.Rating, loser.Rating, winner.ComparisonCount, loser.ComparisonCount)

		now := s.clock()
		if err := repos.library.ApplyRatingPatch(ctx, userID, winner.ID,
			models.RatingPatch{Rating: result.WinnerNewRating, Won: true, ComparedAt: now}); err != nil {
			return fmt.Errorf("failed to update winner: %w", err)
		}
		if err := repos.library.ApplyRatingPatch(ctx, userID, loser.ID,
			models.RatingPatch{Rating: result.LoserNewRating, Won: false, ComparedAt: now}); err != nil {
			return fmt.Errorf("failed to update loser: %w", err)
		}

		record := &models.ComparisonRecord{
			UserID:    userID,
			WinnerID:  winner.ID,
			LoserID:   loser.ID,
			CreatedAt: now,
		}
		if err := repos.comparisons.Append(ctx, record); err != nil {
			return fmt.Errorf("failed to record comparison: %w", err)
		}
		if err := repos.pairs.Bump(ctx, userID, winner.ID, loser.ID, now); err != nil {
			return fmt.Errorf("failed to update comparison pair: %w", err)
		}

		current, err := repos.stats.Get(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to load stats: %w", err)
		}
		// Elo leaves rd untouched, so neither item changes ranked state here.
		next := s.tracker.RecordComparison(current, userID, now, false)
		return saveStats(ctx, repos, next)
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordComparison(time.Since(start), result.WinnerNewRating-winnerOld)
	logging.Ctx(ctx).Debug().
		Int64("winner_id", winnerID).
		Int64("loser_id", loserID).
		Float64("winner_rating", result.WinnerNewRating).
		Float64("loser_rating", result.LoserNewRating).
		Msg("Comparison recorded")

	return &result, nil
}

// GetHistory returns the user's most recent comparisons, newest first.
// limit <= 0 uses the configured default and is capped at the configured max.
func (s *RankingService) GetHistory(ctx context.Context, userID string, limit int) ([]models.HistoryEntry, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	limit = s.historyLimit(limit)

	records, err := s.repos.comparisons.Recent(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	if len(records) == 0 {
		return []models.HistoryEntry{}, nil
	}

	seen := make(map[int64]bool, 2*len(records))
	ids := make([]int64, 0, 2*len(records))
	for _, rec := range records {
		for _, id := range []int64{rec.WinnerID, rec.LoserID} {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}

	items, err := s.repos.library.GetByIDs(ctx, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load compared items: %w", err)
	}
	enriched, err := attachMedia(ctx, s.repos.media, items...)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*models.LibraryItemWithMedia, len(enriched))
	for i := range enriched {
		byID[enriched[i].ID] = &enriched[i]
	}

	entries := make([]models.HistoryEntry, len(records))
	for i, rec := range records {
		entries[i] = models.HistoryEntry{
			ComparisonRecord: rec,
			Winner:           byID[rec.WinnerID],
			Loser:            byID[rec.LoserID],
		}
	}
	return entries, nil
}

func (s *RankingService) historyLimit(limit int) int {
	if limit <= 0 {
		limit = s.settings.HistoryLimit
	}
	if s.settings.MaxHistoryLimit > 0 && limit > s.settings.MaxHistoryLimit {
		limit = s.settings.MaxHistoryLimit
	}
	return limit
}

// ResetRankings returns every item to the default rating and deletes the
// comparison ledger. Library membership is kept.
func (s *RankingService) ResetRankings(ctx context.Context, userID string) (*models.ResetResult, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	var result models.ResetResult
	err := s.mutate(ctx, userID, func(repos repositories) error {
		var err error
		if result.ComparisonsCleared, err = repos.comparisons.DeleteByUser(ctx, userID); err != nil {
			return fmt.Errorf("failed to delete comparisons: %w", err)
		}
		if result.PairsCleared, err = repos.pairs.DeleteByUser(ctx, userID); err != nil {
			return fmt.Errorf("failed to delete comparison pairs: %w", err)
		}

		now := s.clock()
		if result.ItemsReset, err = repos.library.ResetRatings(ctx, userID, s.settings.Defaults, now); err != nil {
			return fmt.Errorf("failed to reset ratings: %w", err)
		}

		current, err := repos.stats.Get(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to load stats: %w", err)
		}
		if current == nil {
			return nil
		}
		return saveStats(ctx, repos, s.tracker.ResetRankings(current, s.settings.Defaults.RD, now))
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordLibraryChange("reset")
	logging.Ctx(ctx).Info().
		Int("items_reset", result.ItemsReset).
		Int("comparisons_cleared", result.ComparisonsCleared).
		Msg("Rankings reset")

	return &result, nil
}
