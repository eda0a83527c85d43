package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"mediarank/internal/database"
	"mediarank/internal/models"
)

// ComparisonRepository is the append-only comparison ledger
type ComparisonRepository struct {
	db database.DBTX
}

// NewComparisonRepository creates a new comparison repository
func NewComparisonRepository(db database.DBTX) *ComparisonRepository {
	return &ComparisonRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *ComparisonRepository) WithTx(tx database.DBTX) *ComparisonRepository {
	return &ComparisonRepository{db: tx}
}

// Append records a comparison and sets rec.ID
func (r *ComparisonRepository) Append(ctx context.Context, rec *models.ComparisonRecord) error {
	query := `
		INSERT INTO comparisons (user_id, winner_id, loser_id, created_at)
		VALUES (?, ?, ?, ?)
	`

	id, err := r.db.ExecReturningID(ctx, query, rec.UserID, rec.WinnerID, rec.LoserID, rec.CreatedAt)
	if err != nil {
		return err
	}
	rec.ID = id
	return nil
}

func (r *ComparisonRepository) queryRecords(ctx context.Context, query string, args ...interface{}) ([]models.ComparisonRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []models.ComparisonRecord{}
	for rows.Next() {
		var rec models.ComparisonRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.WinnerID, &rec.LoserID, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Recent returns up to limit comparisons, newest first
func (r *ComparisonRepository) Recent(ctx context.Context, userID string, limit int) ([]models.ComparisonRecord, error) {
	query := `
		SELECT id, user_id, winner_id, loser_id, created_at
		FROM comparisons
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`
	return r.queryRecords(ctx, query, userID, limit)
}

// ListByUser returns every comparison in insertion order
func (r *ComparisonRepository) ListByUser(ctx context.Context, userID string) ([]models.ComparisonRecord, error) {
	query := `
		SELECT id, user_id, winner_id, loser_id, created_at
		FROM comparisons
		WHERE user_id = ?
		ORDER BY id ASC
	`
	return r.queryRecords(ctx, query, userID)
}

// CountByUser returns the number of comparisons the user has made
func (r *ComparisonRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM comparisons WHERE user_id = ?", userID).Scan(&count)
	return count, err
}

// DeleteByUser removes the user's ledger
func (r *ComparisonRepository) DeleteByUser(ctx context.Context, userID string) (int, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM comparisons WHERE user_id = ?", userID)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	return int(n), err
}

// PairRepository tracks how often each pair of items has been compared
type PairRepository struct {
	db database.DBTX
}

// NewPairRepository creates a new pair repository
func NewPairRepository(db database.DBTX) *PairRepository {
	return &PairRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *PairRepository) WithTx(tx database.DBTX) *PairRepository {
	return &PairRepository{db: tx}
}

// Bump increments the counter for the unordered pair {a, b}, creating it on first use
func (r *PairRepository) Bump(ctx context.Context, userID string, a, b int64, now time.Time) error {
	lo, hi := models.OrderedPair(a, b)

	_, err := r.db.ExecContext(ctx, r.db.GetDialect().UpsertComparisonPair(), userID, lo, hi, now)
	return err
}

// Get returns the pair record for {a, b}, or nil when never compared
func (r *PairRepository) Get(ctx context.Context, userID string, a, b int64) (*models.ComparisonPair, error) {
	lo, hi := models.OrderedPair(a, b)

	query := `
		SELECT id, user_id, item_a_id, item_b_id, times_compared, last_compared_at
		FROM comparison_pairs
		WHERE user_id = ? AND item_a_id = ? AND item_b_id = ?
	`

	p := &models.ComparisonPair{}
	err := r.db.QueryRowContext(ctx, query, userID, lo, hi).Scan(
		&p.ID, &p.UserID, &p.ItemAID, &p.ItemBID, &p.TimesCompared, &p.LastComparedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListByUser returns every pair record for the user
func (r *PairRepository) ListByUser(ctx context.Context, userID string) ([]models.ComparisonPair, error) {
	query := `
		SELECT id, user_id, item_a_id, item_b_id, times_compared, last_compared_at
		FROM comparison_pairs
		WHERE user_id = ?
		ORDER BY item_a_id, item_b_id
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pairs := []models.ComparisonPair{}
	for rows.Next() {
		var p models.ComparisonPair
		if err := rows.Scan(&p.ID, &p.UserID, &p.ItemAID, &p.ItemBID, &p.TimesCompared, &p.LastComparedAt); err != nil {
			return nil, err
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}

// Restore inserts a pair record verbatim
func (r *PairRepository) Restore(ctx context.Context, p models.ComparisonPair) error {
	lo, hi := models.OrderedPair(p.ItemAID, p.ItemBID)
	query := `
		INSERT INTO comparison_pairs (user_id, item_a_id, item_b_id, times_compared, last_compared_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query, p.UserID, lo, hi, p.TimesCompared, p.LastComparedAt)
	return err
}

// DeleteByUser removes the user's pair records
func (r *PairRepository) DeleteByUser(ctx context.Context, userID string) (int, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM comparison_pairs WHERE user_id = ?", userID)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	return int(n), err
}
