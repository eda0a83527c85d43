package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"mediarank/internal/database"
	"mediarank/internal/models"
)

// LibraryRepository handles library item database operations.
// Every query is scoped to the owning user.
type LibraryRepository struct {
	db database.DBTX
}

// NewLibraryRepository creates a new library repository
func NewLibraryRepository(db database.DBTX) *LibraryRepository {
	return &LibraryRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *LibraryRepository) WithTx(tx database.DBTX) *LibraryRepository {
	return &LibraryRepository{db: tx}
}

const libraryColumns = `id, user_id, media_item_id, media_title, media_cover_image, media_banner_image,
	media_type, media_genres, rating, rd, volatility, comparison_count, total_wins,
	total_losses, total_ties, watch_status, user_notes, custom_title, custom_tags,
	needs_reranking, last_compared_at, added_at, updated_at`

func scanLibraryItem(s scanner) (*models.LibraryItem, error) {
	item := &models.LibraryItem{}
	var mediaType, genres, watchStatus, tags string
	var lastComparedAt sql.NullTime

	err := s.Scan(
		&item.ID,
		&item.UserID,
		&item.MediaItemID,
		&item.MediaTitle,
		&item.MediaCoverImage,
		&item.MediaBannerImage,
		&mediaType,
		&genres,
		&item.Rating,
		&item.RD,
		&item.Volatility,
		&item.ComparisonCount,
		&item.TotalWins,
		&item.TotalLosses,
		&item.TotalTies,
		&watchStatus,
		&item.UserNotes,
		&item.CustomTitle,
		&tags,
		&item.NeedsReranking,
		&lastComparedAt,
		&item.AddedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.MediaType = models.MediaType(mediaType)
	item.WatchStatus = models.WatchStatus(watchStatus)
	if lastComparedAt.Valid {
		t := lastComparedAt.Time
		item.LastComparedAt = &t
	}
	if item.MediaGenres, err = decodeStrings(genres); err != nil {
		return nil, err
	}
	if item.CustomTags, err = decodeStrings(tags); err != nil {
		return nil, err
	}
	return item, nil
}

func (r *LibraryRepository) queryItems(ctx context.Context, query string, args ...interface{}) ([]models.LibraryItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.LibraryItem{}
	for rows.Next() {
		item, err := scanLibraryItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// Create inserts a library item and returns its id
func (r *LibraryRepository) Create(ctx context.Context, item *models.LibraryItem) (int64, error) {
	genres, err := encodeStrings(item.MediaGenres)
	if err != nil {
		return 0, err
	}
	tags, err := encodeStrings(item.CustomTags)
	if err != nil {
		return 0, err
	}

	query := `
		INSERT INTO library_items (user_id, media_item_id, media_title, media_cover_image,
		                           media_banner_image, media_type, media_genres, rating, rd, volatility,
		                           comparison_count, total_wins, total_losses, total_ties, watch_status,
		                           user_notes, custom_title, custom_tags, needs_reranking,
		                           last_compared_at, added_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var lastComparedAt interface{}
	if item.LastComparedAt != nil {
		lastComparedAt = *item.LastComparedAt
	}

	return r.db.ExecReturningID(ctx, query,
		item.UserID, item.MediaItemID, item.MediaTitle, item.MediaCoverImage,
		item.MediaBannerImage, string(item.MediaType), genres, item.Rating, item.RD, item.Volatility,
		item.ComparisonCount, item.TotalWins, item.TotalLosses, item.TotalTies, string(item.WatchStatus),
		item.UserNotes, item.CustomTitle, tags, item.NeedsReranking,
		lastComparedAt, item.AddedAt, item.UpdatedAt,
	)
}

// GetByID retrieves one of the user's items, returning nil when the user has no such item
func (r *LibraryRepository) GetByID(ctx context.Context, userID string, id int64) (*models.LibraryItem, error) {
	query := `SELECT ` + libraryColumns + ` FROM library_items WHERE id = ? AND user_id = ?`

	item, err := scanLibraryItem(r.db.QueryRowContext(ctx, query, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return item, err
}

// GetByMediaItem finds the user's entry for a catalog item
func (r *LibraryRepository) GetByMediaItem(ctx context.Context, userID string, mediaItemID int64) (*models.LibraryItem, error) {
	query := `SELECT ` + libraryColumns + ` FROM library_items WHERE user_id = ? AND media_item_id = ?`

	item, err := scanLibraryItem(r.db.QueryRowContext(ctx, query, userID, mediaItemID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return item, err
}

// GetByIDs loads several of the user's items. Ids the user does not own are skipped.
func (r *LibraryRepository) GetByIDs(ctx context.Context, userID string, ids []int64) ([]models.LibraryItem, error) {
	if len(ids) == 0 {
		return []models.LibraryItem{}, nil
	}

	query := `SELECT ` + libraryColumns + ` FROM library_items
		WHERE user_id = ? AND id IN (` + placeholders(len(ids)) + `)`
	args := append([]interface{}{userID}, int64Args(ids)...)
	return r.queryItems(ctx, query, args...)
}

// ListByUser returns the user's items, most recently added first
func (r *LibraryRepository) ListByUser(ctx context.Context, userID string) ([]models.LibraryItem, error) {
	query := `SELECT ` + libraryColumns + ` FROM library_items WHERE user_id = ? ORDER BY added_at DESC, id DESC`
	return r.queryItems(ctx, query, userID)
}

// ListByRating returns the user's items highest rated first. An empty
// category returns every item.
func (r *LibraryRepository) ListByRating(ctx context.Context, userID string, category models.MediaType) ([]models.LibraryItem, error) {
	if category == "" {
		query := `SELECT ` + libraryColumns + ` FROM library_items WHERE user_id = ? ORDER BY rating DESC, id ASC`
		return r.queryItems(ctx, query, userID)
	}

	query := `SELECT ` + libraryColumns + ` FROM library_items
		WHERE user_id = ? AND media_type = ? ORDER BY rating DESC, id ASC`
	return r.queryItems(ctx, query, userID, string(category))
}

// ApplyRatingPatch records the outcome of one comparison on an item
func (r *LibraryRepository) ApplyRatingPatch(ctx context.Context, userID string, id int64, patch models.RatingPatch) error {
	wins, losses := 0, 1
	if patch.Won {
		wins, losses = 1, 0
	}

	query := `
		UPDATE library_items
		SET rating = ?, comparison_count = comparison_count + 1,
		    total_wins = total_wins + ?, total_losses = total_losses + ?,
		    last_compared_at = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		patch.Rating, wins, losses, patch.ComparedAt, patch.ComparedAt, id, userID)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

// UpdateDetails persists the user-editable fields of item
func (r *LibraryRepository) UpdateDetails(ctx context.Context, item *models.LibraryItem) error {
	tags, err := encodeStrings(item.CustomTags)
	if err != nil {
		return err
	}

	query := `
		UPDATE library_items
		SET watch_status = ?, user_notes = ?, custom_title = ?, custom_tags = ?,
		    needs_reranking = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		string(item.WatchStatus), item.UserNotes, item.CustomTitle, tags,
		item.NeedsReranking, item.UpdatedAt, item.ID, item.UserID)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

// Delete removes one of the user's items. It reports whether a row was deleted.
func (r *LibraryRepository) Delete(ctx context.Context, userID string, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM library_items WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	return n > 0, err
}

// DeleteByUser removes every item the user owns
func (r *LibraryRepository) DeleteByUser(ctx context.Context, userID string) (int, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM library_items WHERE user_id = ?", userID)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	return int(n), err
}

// ResetRatings restores every item the user owns to the rating defaults
func (r *LibraryRepository) ResetRatings(ctx context.Context, userID string, defaults models.RatingDefaults, now time.Time) (int, error) {
	query := `
		UPDATE library_items
		SET rating = ?, rd = ?, volatility = ?, comparison_count = 0,
		    total_wins = 0, total_losses = 0, total_ties = 0,
		    last_compared_at = NULL, needs_reranking = ` + r.db.GetDialect().BoolValue(false) + `,
		    updated_at = ?
		WHERE user_id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		defaults.Rating, defaults.RD, defaults.Volatility, now, userID)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	return int(n), err
}

// ErrNoRowsAffected is returned when an update matched nothing
var ErrNoRowsAffected = errors.New("no rows affected")

func expectOneRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoRowsAffected
	}
	return nil
}
