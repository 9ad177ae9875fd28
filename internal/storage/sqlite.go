package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatali-fataliyev/finance_tracker/logging"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var sqliteDialect = dialect{
	name: "SQLite",
	upsertLimit: "INSERT INTO category_limits (username, category, amount_cents) VALUES (?, ?, ?) " +
		"ON CONFLICT(username, category) DO UPDATE SET amount_cents = excluded.amount_cents;",
	isDuplicate: func(err error) bool {
		var sqliteErr *sqlite.Error
		return errors.As(err, &sqliteErr) && sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
	},
}

// OpenSQLite opens the database file at path, creating it and applying
// migrations when needed.
func OpenSQLite(path string) (*SQLStorage, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

	if err := runMigrations("sqlite", dsn); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logging.Logger.Infof("SQLite database ready at %s", path)
	return &SQLStorage{db: db, dialect: sqliteDialect}, nil
}
