package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite connection shared by the stores.
type DB struct {
	*sql.DB
}

// NewDB opens (or creates) the database at path and applies the pragmas
// the stores rely on.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	return &DB{db}, nil
}

// nullFloat converts an optional float into a nullable column value.
func nullFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

// nullString converts an empty string into a nullable column value.
func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
