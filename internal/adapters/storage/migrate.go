package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS quotes (
		id VARCHAR(36) NOT NULL PRIMARY KEY,
		quote TEXT NOT NULL,
		author VARCHAR(255) NULL,
		created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		updated_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		INDEX idx_quotes_created_at (created_at)
	) DEFAULT CHARSET = utf8mb4`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS quotes (
		id TEXT NOT NULL PRIMARY KEY,
		quote TEXT NOT NULL,
		author TEXT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_quotes_created_at ON quotes (created_at)`,
}

// A table created before the DATETIME(6) schema keeps its own column type,
// often plain TIMESTAMP with whole seconds.
const mysqlTimestampDigits = `SELECT DATETIME_PRECISION FROM information_schema.COLUMNS
	WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = 'quotes' AND COLUMN_NAME = 'created_at'`

// migrate creates the quotes table if it does not exist yet.
// Every statement is idempotent, so it runs on each startup.
func (db *DB) migrate(ctx context.Context) error {
	statements := sqliteSchema
	if db.driver == DriverMySQL {
		statements = mysqlSchema
	}

	for i, stmt := range statements {
		if _, err := db.sql.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}

	if db.driver != DriverMySQL {
		return nil
	}

	var digits sql.NullInt64
	if err := db.sql.QueryRowContext(ctx, mysqlTimestampDigits).Scan(&digits); err != nil {
		return fmt.Errorf("read timestamp precision: %w", err)
	}

	if digits.Valid {
		db.precision = precisionFor(digits.Int64)
	}

	return nil
}

// precisionFor converts a fractional-second digit count to a duration,
// never finer than what the domain keeps.
func precisionFor(digits int64) time.Duration {
	d := time.Second
	for i := int64(0); i < digits && d > time.Microsecond; i++ {
		d /= 10
	}

	return d
}
