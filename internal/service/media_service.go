package service

import (
	"context"
	"fmt"

	"mediarank/internal/database"
	"mediarank/internal/logging"
	"mediarank/internal/models"
	"mediarank/internal/validation"
)

// MediaService manages the shared media catalog
type MediaService struct {
	engine
}

// NewMediaService creates a new media service
func NewMediaService(deps Deps) *MediaService {
	return &MediaService{engine: newEngine(deps)}
}

// UpsertMediaItem creates or refreshes a catalog entry keyed by its external id
func (s *MediaService) UpsertMediaItem(ctx context.Context, input models.MediaItemInput) (*models.MediaItem, error) {
	if err := validation.ValidateStruct(input); err != nil {
		return nil, err
	}

	var item *models.MediaItem
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		var err error
		item, err = s.repos.media.WithTx(tx).Upsert(ctx, input, s.clock())
		if err != nil {
			return fmt.Errorf("failed to upsert media item: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.Ctx(ctx).Debug().Int64("media_item_id", item.ID).Int64("external_id", item.ExternalID).Msg("Media item upserted")
	return item, nil
}

// GetMediaItem returns a catalog entry by id
func (s *MediaService) GetMediaItem(ctx context.Context, id int64) (*models.MediaItem, error) {
	item, err := s.repos.media.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load media item: %w", err)
	}
	if item == nil {
		return nil, fmt.Errorf("%w: media item %d", ErrNotFound, id)
	}
	return item, nil
}
