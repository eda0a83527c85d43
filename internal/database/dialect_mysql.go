package database

import (
	"database/sql"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLDialect implements Dialect for MySQL
type MySQLDialect struct{}

// NewMySQLDialect creates a new MySQL dialect
func NewMySQLDialect() *MySQLDialect {
	return &MySQLDialect{}
}

func (d *MySQLDialect) DriverName() string {
	return "mysql"
}

// DSN expects a go-sql-driver URL. parseTime=true is required so DATETIME
// columns scan into time.Time, and multiStatements=true for migrations.
func (d *MySQLDialect) DSN(config DialectConfig) string {
	return config.URL
}

func (d *MySQLDialect) RewriteQuery(query string) string {
	return query
}

func (d *MySQLDialect) SupportsLastInsertId() bool {
	return true
}

func (d *MySQLDialect) ConfigureConnection(db *sql.DB) error {
	configurePool(db)

	_, err := db.Exec("SET FOREIGN_KEY_CHECKS = 1;")
	return err
}

func (d *MySQLDialect) MigrationsSubdir() string {
	return "mysql"
}

func (d *MySQLDialect) CreateMigrationsTableQuery() string {
	return `
		CREATE TABLE IF NOT EXISTS migrations (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			filename VARCHAR(255) UNIQUE NOT NULL,
			executed_at DATETIME(6) DEFAULT CURRENT_TIMESTAMP(6)
		);
	`
}

func (d *MySQLDialect) BoolValue(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

func (d *MySQLDialect) UpsertUserStats() string {
	return userStatsInsert + `
	ON DUPLICATE KEY UPDATE
		total_comparisons = VALUES(total_comparisons),
		tie_count = VALUES(tie_count),
		current_streak = VALUES(current_streak),
		longest_streak = VALUES(longest_streak),
		last_comparison_date = VALUES(last_comparison_date),
		last_7_days = VALUES(last_7_days),
		updated_at = VALUES(updated_at)
`
}

func (d *MySQLDialect) UpsertComparisonPair() string {
	return comparisonPairInsert + `
	ON DUPLICATE KEY UPDATE
		times_compared = times_compared + 1,
		last_compared_at = VALUES(last_compared_at)
`
}
