// Package storage provides read-only SQLite access to the pre-built
// reference datasets: the approved-products database and the program-spending
// database. The engine never writes through this package; the dataset builder
// is the only writer and uses the build-time API in schema.go.
package storage

import (
	"database/sql"
	"fmt"

	"github.com/rxcost/rxcost/internal/service"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore implements service.Store over the reference databases.
type SQLiteStore struct {
	products *sql.DB
	costs    *sql.DB
}

// Compile-time interface check.
var _ service.Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens both reference databases read-only and verifies they
// are reachable.
func NewSQLiteStore(productsPath, costsPath string) (*SQLiteStore, error) {
	products, err := openReadOnly(productsPath)
	if err != nil {
		return nil, fmt.Errorf("products database: %w", err)
	}

	costs, err := openReadOnly(costsPath)
	if err != nil {
		_ = products.Close()
		return nil, fmt.Errorf("costs database: %w", err)
	}

	return &SQLiteStore{products: products, costs: costs}, nil
}

// Close closes both database handles.
func (s *SQLiteStore) Close() error {
	var firstErr error
	if err := s.products.Close(); err != nil {
		firstErr = err
	}
	if err := s.costs.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func openReadOnly(path string) (*sql.DB, error) {
	if err := validateString(path, "path"); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %s: %v", service.ErrStorageUnavailable, path, err)
	}

	// Read-only handles are safe to pool across concurrent callers.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: failed to ping %s: %v", service.ErrStorageUnavailable, path, err)
	}

	return db, nil
}
