// Package sqlite selects the SQLite driver used for verse datasets.
//
// Build modes:
//   - Default (CGO_ENABLED=0): pure Go modernc.org/sqlite, driver name "sqlite"
//   - -tags cgo_sqlite (CGO_ENABLED=1): mattn/go-sqlite3, driver name "sqlite3"
//
// Use Open instead of sql.Open so the registered driver always matches the build.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// DriverName returns the database/sql driver name registered by this build.
func DriverName() string {
	return driverName
}

// DriverType returns "cgo" for mattn/go-sqlite3 and "purego" for modernc.org/sqlite.
func DriverType() string {
	return driverType
}

// IsCGO reports whether the CGO implementation is linked in.
func IsCGO() bool {
	return driverType == "cgo"
}

// Open opens a SQLite database with the build's driver.
func Open(dataSourceName string) (*sql.DB, error) {
	return sql.Open(driverName, dataSourceName)
}

// OpenReadOnly opens the database file at path in read-only mode.
func OpenReadOnly(path string) (*sql.DB, error) {
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	return Open(path + "?mode=ro")
}

// WithTx runs fn inside a transaction, committing on success and rolling
// back when fn returns an error.
func WithTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

// Info describes the linked SQLite driver.
type Info struct {
	DriverName string `json:"driver_name"`
	DriverType string `json:"driver_type"`
	IsCGO      bool   `json:"is_cgo"`
	Package    string `json:"package"`
}

// GetInfo returns information about the current SQLite configuration.
func GetInfo() Info {
	return Info{
		DriverName: driverName,
		DriverType: driverType,
		IsCGO:      IsCGO(),
		Package:    driverPackage,
	}
}
