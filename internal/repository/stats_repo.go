package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/goccy/go-json"

	"mediarank/internal/database"
	"mediarank/internal/models"
)

// StatsRepository persists the per-user engagement aggregate
type StatsRepository struct {
	db database.DBTX
}

// NewStatsRepository creates a new stats repository
func NewStatsRepository(db database.DBTX) *StatsRepository {
	return &StatsRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *StatsRepository) WithTx(tx database.DBTX) *StatsRepository {
	return &StatsRepository{db: tx}
}

// Get loads the user's aggregate, returning nil when none exists yet
func (r *StatsRepository) Get(ctx context.Context, userID string) (*models.UserStats, error) {
	query := `
		SELECT user_id, total_comparisons, tie_count, current_streak, longest_streak,
		       last_comparison_date, last_7_days, updated_at
		FROM user_stats
		WHERE user_id = ?
	`

	s := models.NewUserStats(userID)
	var lastDate sql.NullString
	var window string

	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&s.UserID,
		&s.TotalComparisons,
		&s.TieCount,
		&s.CurrentStreak,
		&s.LongestStreak,
		&lastDate,
		&window,
		&s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	s.LastComparisonDate = lastDate.String
	if window != "" {
		if err := json.Unmarshal([]byte(window), &s.Last7Days); err != nil {
			return nil, fmt.Errorf("failed to decode last_7_days: %w", err)
		}
	}
	if s.Last7Days == nil {
		s.Last7Days = []models.DayCount{}
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT category, item_count, ranked_count FROM user_category_stats WHERE user_id = ?", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var category string
		var c models.CategoryCounts
		if err := rows.Scan(&category, &c.ItemCount, &c.RankedCount); err != nil {
			return nil, err
		}
		s.Categories[models.MediaType(category)] = c
	}
	return s, rows.Err()
}

// Save writes the whole aggregate, creating the row when needed
func (r *StatsRepository) Save(ctx context.Context, s *models.UserStats) error {
	window := s.Last7Days
	if window == nil {
		window = []models.DayCount{}
	}
	encoded, err := encodeJSON(window)
	if err != nil {
		return err
	}

	var lastDate interface{}
	if s.LastComparisonDate != "" {
		lastDate = s.LastComparisonDate
	}

	_, err = r.db.ExecContext(ctx, r.db.GetDialect().UpsertUserStats(),
		s.UserID, s.TotalComparisons, s.TieCount, s.CurrentStreak,
		s.LongestStreak, lastDate, encoded, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save user stats: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, "DELETE FROM user_category_stats WHERE user_id = ?", s.UserID); err != nil {
		return fmt.Errorf("failed to clear category stats: %w", err)
	}

	categories := make([]string, 0, len(s.Categories))
	for c := range s.Categories {
		categories = append(categories, string(c))
	}
	sort.Strings(categories)

	for _, c := range categories {
		counts := s.Categories[models.MediaType(c)]
		_, err := r.db.ExecContext(ctx,
			"INSERT INTO user_category_stats (user_id, category, item_count, ranked_count) VALUES (?, ?, ?, ?)",
			s.UserID, c, counts.ItemCount, counts.RankedCount)
		if err != nil {
			return fmt.Errorf("failed to save category stats: %w", err)
		}
	}
	return nil
}
