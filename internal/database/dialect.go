package database

import (
	"database/sql"
	"strconv"
	"strings"
	"time"
)

// Dialect hides the differences between the supported SQL engines.
// Repositories write queries with ? placeholders and ask the dialect for
// the statements whose syntax cannot be shared.
type Dialect interface {
	// DriverName returns the database/sql driver name
	DriverName() string

	// DSN builds the connection string
	DSN(config DialectConfig) string

	// RewriteQuery converts ? placeholders when the driver needs another syntax
	RewriteQuery(query string) string

	// SupportsLastInsertId reports whether sql.Result.LastInsertId works;
	// otherwise inserts are run with RETURNING id
	SupportsLastInsertId() bool

	// ConfigureConnection tunes the pool and session after the first ping
	ConfigureConnection(db *sql.DB) error

	// MigrationsSubdir names the migrations directory for this engine
	MigrationsSubdir() string

	// CreateMigrationsTableQuery creates the applied-migrations table
	CreateMigrationsTableQuery() string

	// BoolValue renders a boolean literal
	BoolValue(b bool) string

	// UpsertUserStats writes a user's stats row in one statement. Arguments:
	// user_id, total_comparisons, tie_count, current_streak, longest_streak,
	// last_comparison_date, last_7_days, updated_at.
	UpsertUserStats() string

	// UpsertComparisonPair creates a pair with times_compared = 1 or bumps an
	// existing one. Arguments: user_id, item_a_id, item_b_id, last_compared_at.
	UpsertComparisonPair() string
}

// DialectConfig holds configuration for database connection
type DialectConfig struct {
	// SQLite file path
	Path string

	// PostgreSQL/MySQL connection URL
	URL string
}

const (
	maxOpenConns    = 25
	maxIdleConns    = 5
	connMaxLifetime = 5 * time.Minute
	connMaxIdleTime = time.Minute
)

func configurePool(db *sql.DB) {
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetConnMaxIdleTime(connMaxIdleTime)
}

// userStatsInsert is shared by every dialect; only the conflict clause differs
const userStatsInsert = `
	INSERT INTO user_stats (user_id, total_comparisons, tie_count, current_streak,
	                        longest_streak, last_comparison_date, last_7_days, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

const comparisonPairInsert = `
	INSERT INTO comparison_pairs (user_id, item_a_id, item_b_id, times_compared, last_compared_at)
	VALUES (?, ?, ?, 1, ?)
`

// onConflictUserStats is the ON CONFLICT form understood by SQLite and PostgreSQL
const onConflictUserStats = userStatsInsert + `
	ON CONFLICT (user_id) DO UPDATE SET
		total_comparisons = excluded.total_comparisons,
		tie_count = excluded.tie_count,
		current_streak = excluded.current_streak,
		longest_streak = excluded.longest_streak,
		last_comparison_date = excluded.last_comparison_date,
		last_7_days = excluded.last_7_days,
		updated_at = excluded.updated_at
`

const onConflictComparisonPair = comparisonPairInsert + `
	ON CONFLICT (user_id, item_a_id, item_b_id) DO UPDATE SET
		times_compared = comparison_pairs.times_compared + 1,
		last_compared_at = excluded.last_compared_at
`

// rewritePlaceholdersToNumbered converts ? placeholders to $1, $2, etc.
// Question marks inside single-quoted literals are left alone.
func rewritePlaceholdersToNumbered(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)

	counter := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case c == '?' && !inQuote:
			counter++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(counter))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
