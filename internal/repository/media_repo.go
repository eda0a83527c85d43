package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"mediarank/internal/database"
	"mediarank/internal/models"
)

// MediaRepository handles catalog database operations
type MediaRepository struct {
	db database.DBTX
}

// NewMediaRepository creates a new media repository
func NewMediaRepository(db database.DBTX) *MediaRepository {
	return &MediaRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *MediaRepository) WithTx(tx database.DBTX) *MediaRepository {
	return &MediaRepository{db: tx}
}

const mediaColumns = `id, external_id, media_type, title, title_english, cover_image,
	banner_image, genres, created_at, updated_at`

func scanMedia(s scanner) (*models.MediaItem, error) {
	m := &models.MediaItem{}
	var mediaType, genres string

	err := s.Scan(
		&m.ID,
		&m.ExternalID,
		&mediaType,
		&m.Title,
		&m.TitleEnglish,
		&m.CoverImage,
		&m.BannerImage,
		&genres,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	m.Type = models.MediaType(mediaType)
	if m.Genres, err = decodeStrings(genres); err != nil {
		return nil, err
	}
	return m, nil
}

// GetByID retrieves a media item, returning nil when it does not exist
func (r *MediaRepository) GetByID(ctx context.Context, id int64) (*models.MediaItem, error) {
	query := `SELECT ` + mediaColumns + ` FROM media_items WHERE id = ?`

	m, err := scanMedia(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return m, err
}

// GetByExternalID retrieves a media item by its AniList id
func (r *MediaRepository) GetByExternalID(ctx context.Context, externalID int64) (*models.MediaItem, error) {
	query := `SELECT ` + mediaColumns + ` FROM media_items WHERE external_id = ?`

	m, err := scanMedia(r.db.QueryRowContext(ctx, query, externalID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return m, err
}

// GetByIDs loads several media items keyed by id. Missing ids are absent from the map.
func (r *MediaRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]*models.MediaItem, error) {
	out := make(map[int64]*models.MediaItem, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query := `SELECT ` + mediaColumns + ` FROM media_items WHERE id IN (` + placeholders(len(ids)) + `)`

	rows, err := r.db.QueryContext(ctx, query, int64Args(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		out[m.ID] = m
	}
	return out, rows.Err()
}

// Upsert inserts a catalog entry or refreshes the one with the same external id
func (r *MediaRepository) Upsert(ctx context.Context, in models.MediaItemInput, now time.Time) (*models.MediaItem, error) {
	genres, err := encodeStrings(in.Genres)
	if err != nil {
		return nil, err
	}

	existing, err := r.GetByExternalID(ctx, in.ExternalID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up media item: %w", err)
	}

	if existing != nil {
		query := `
			UPDATE media_items
			SET media_type = ?, title = ?, title_english = ?, cover_image = ?,
			    banner_image = ?, genres = ?, updated_at = ?
			WHERE id = ?
		`
		_, err := r.db.ExecContext(ctx, query,
			string(in.Type), in.Title, in.TitleEnglish, in.CoverImage,
			in.BannerImage, genres, now, existing.ID)
		if err != nil {
			return nil, err
		}
		return r.GetByID(ctx, existing.ID)
	}

	query := `
		INSERT INTO media_items (external_id, media_type, title, title_english, cover_image,
		                         banner_image, genres, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query,
		in.ExternalID, string(in.Type), in.Title, in.TitleEnglish, in.CoverImage,
		in.BannerImage, genres, now, now)
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}
