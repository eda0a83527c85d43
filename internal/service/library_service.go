package service

import (
	"context"
	"fmt"

	"mediarank/internal/logging"
	"mediarank/internal/metrics"
	"mediarank/internal/models"
	"mediarank/internal/stats"
	"mediarank/internal/validation"
)

// LibraryService manages the items a user ranks
type LibraryService struct {
	engine
	settings Settings
}

// NewLibraryService creates a new library service
func NewLibraryService(deps Deps, settings Settings) *LibraryService {
	return &LibraryService{engine: newEngine(deps), settings: settings}
}

// AddToLibrary adds a catalog entry to the user's library with default ratings
func (s *LibraryService) AddToLibrary(ctx context.Context, userID string, input models.AddLibraryItemInput) (*models.LibraryItem, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := validation.ValidateStruct(input); err != nil {
		return nil, err
	}
	if input.WatchStatus == "" {
		input.WatchStatus = models.WatchStatusCompleted
	}

	var created *models.LibraryItem
	err := s.mutate(ctx, userID, func(repos repositories) error {
		existing, err := repos.library.GetByMediaItem(ctx, userID, input.MediaItemID)
		if err != nil {
			return fmt.Errorf("failed to check library: %w", err)
		}
		if existing != nil {
			return fmt.Errorf("%w: item already in library", ErrInvalidState)
		}

		media, err := repos.media.GetByID(ctx, input.MediaItemID)
		if err != nil {
			return fmt.Errorf("failed to load media item: %w", err)
		}
		if media == nil {
			return fmt.Errorf("%w: media item %d", ErrNotFound, input.MediaItemID)
		}

		now := s.clock()
		item := &models.LibraryItem{
			UserID:           userID,
			MediaItemID:      media.ID,
			MediaTitle:       media.DisplayTitle(),
			MediaCoverImage:  media.CoverImage,
			MediaBannerImage: media.BannerImage,
			MediaType:        media.Type,
			MediaGenres:      media.Genres,
			Rating:           s.settings.Defaults.Rating,
			RD:               s.settings.Defaults.RD,
			Volatility:       s.settings.Defaults.Volatility,
			WatchStatus:      input.WatchStatus,
			UserNotes:        input.UserNotes,
			CustomTags:       []string{},
			AddedAt:          now,
			UpdatedAt:        now,
		}
		id, err := repos.library.Create(ctx, item)
		if err != nil {
			return fmt.Errorf("failed to create library item: %w", err)
		}
		item.ID = id

		current, err := repos.stats.Get(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to load stats: %w", err)
		}
		next := s.tracker.ApplyLibraryChange(current, userID, item.MediaType, item.RD, stats.ActionAdd, now)
		if err := saveStats(ctx, repos, next); err != nil {
			return err
		}

		created = item
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordLibraryChange("add")
	logging.Ctx(ctx).Debug().Int64("item_id", created.ID).Int64("media_item_id", created.MediaItemID).Msg("Library item added")
	return created, nil
}

// RemoveFromLibrary deletes one of the user's items. Its past comparisons stay
// in the ledger.
func (s *LibraryService) RemoveFromLibrary(ctx context.Context, userID string, itemID int64) error {
	if err := requireUser(userID); err != nil {
		return err
	}

	err := s.mutate(ctx, userID, func(repos repositories) error {
		item, err := repos.library.GetByID(ctx, userID, itemID)
		if err != nil {
			return fmt.Errorf("failed to load library item: %w", err)
		}
		if item == nil {
			return fmt.Errorf("%w: library item %d", ErrNotFound, itemID)
		}

		if _, err := repos.library.Delete(ctx, userID, itemID); err != nil {
			return fmt.Errorf("failed to delete library item: %w", err)
		}

		current, err := repos.stats.Get(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to load stats: %w", err)
		}
		next := s.tracker.ApplyLibraryChange(current, userID, item.MediaType, item.RD, stats.ActionRemove, s.clock())
		return saveStats(ctx, repos, next)
	})
	if err != nil {
		return err
	}

	metrics.RecordLibraryChange("remove")
	logging.Ctx(ctx).Debug().Int64("item_id", itemID).Msg("Library item removed")
	return nil
}

// UpdateLibraryItem applies a partial update. Moving an item to COMPLETED
// flags it for re-ranking.
func (s *LibraryService) UpdateLibraryItem(ctx context.Context, userID string, itemID int64, update models.LibraryItemUpdate) (*models.LibraryItem, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := validation.ValidateStruct(update); err != nil {
		return nil, err
	}

	var updated *models.LibraryItem
	err := s.mutate(ctx, userID, func(repos repositories) error {
		item, err := repos.library.GetByID(ctx, userID, itemID)
		if err != nil {
			return fmt.Errorf("failed to load library item: %w", err)
		}
		if item == nil {
			return fmt.Errorf("%w: library item %d", ErrNotFound, itemID)
		}

		if update.WatchStatus != nil {
			if *update.WatchStatus == models.WatchStatusCompleted && item.WatchStatus != models.WatchStatusCompleted {
				item.NeedsReranking = true
			}
			item.WatchStatus = *update.WatchStatus
		}
		if update.UserNotes != nil {
			item.UserNotes = *update.UserNotes
		}
		if update.CustomTags != nil {
			item.CustomTags = update.CustomTags
		}
		if update.CustomTitle != nil {
			item.CustomTitle = *update.CustomTitle
		}
		item.UpdatedAt = s.clock()

		if err := repos.library.UpdateDetails(ctx, item); err != nil {
			return fmt.Errorf("failed to update library item: %w", err)
		}
		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordLibraryChange("update")
	return updated, nil
}

// ListLibrary returns the user's items, most recently added first
func (s *LibraryService) ListLibrary(ctx context.Context, userID string) ([]models.LibraryItem, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	items, err := s.repos.library.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list library: %w", err)
	}
	return items, nil
}

// ListByRating returns the user's items by rating, highest first. An empty
// category includes every category.
func (s *LibraryService) ListByRating(ctx context.Context, userID string, category models.MediaType) ([]models.LibraryItem, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if category != "" && !category.Valid() {
		return nil, validation.ValidationError{Field: "category", Message: "must be one of: ANIME MANGA"}
	}
	items, err := s.repos.library.ListByRating(ctx, userID, category)
	if err != nil {
		return nil, fmt.Errorf("failed to list library by rating: %w", err)
	}
	return items, nil
}

// GetLibraryItem returns one of the user's items with its catalog entry
func (s *LibraryService) GetLibraryItem(ctx context.Context, userID string, itemID int64) (*models.LibraryItemWithMedia, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	item, err := s.repos.library.GetByID(ctx, userID, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to load library item: %w", err)
	}
	if item == nil {
		return nil, fmt.Errorf("%w: library item %d", ErrNotFound, itemID)
	}

	enriched, err := attachMedia(ctx, s.repos.media, *item)
	if err != nil {
		return nil, err
	}
	return &enriched[0], nil
}

// ClearAllData deletes the user's library, comparisons and pair bookkeeping
// and zeroes their stats
func (s *LibraryService) ClearAllData(ctx context.Context, userID string) (*models.ClearResult, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	var result models.ClearResult
	err := s.mutate(ctx, userID, func(repos repositories) error {
		var err error
		if result.ComparisonsDeleted, err = repos.comparisons.DeleteByUser(ctx, userID); err != nil {
			return fmt.Errorf("failed to delete comparisons: %w", err)
		}
		if result.PairsDeleted, err = repos.pairs.DeleteByUser(ctx, userID); err != nil {
			return fmt.Errorf("failed to delete comparison pairs: %w", err)
		}
		if result.LibraryItemsDeleted, err = repos.library.DeleteByUser(ctx, userID); err != nil {
			return fmt.Errorf("failed to delete library: %w", err)
		}

		current, err := repos.stats.Get(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to load stats: %w", err)
		}
		return saveStats(ctx, repos, s.tracker.ClearAll(current, s.clock()))
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordLibraryChange("clear")
	logging.Ctx(ctx).Info().
		Int("library_items_deleted", result.LibraryItemsDeleted).
		Int("comparisons_deleted", result.ComparisonsDeleted).
		Msg("User data cleared")

	return &result, nil
}
