package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rxcost/rxcost/internal/model"
	"github.com/rxcost/rxcost/internal/normalize"
)

// Build-time API. The dataset builder (and tests) are the only writers; the
// engine itself opens the databases read-only. Normalized columns are derived
// here with the same normalize.Normalize the engine uses at query time, so
// build-time and query-time keys always agree.

// OpenReadWrite opens a reference database for writing, creating the parent
// directory if needed.
func OpenReadWrite(path string) (*sql.DB, error) {
	if err := validateString(path, "path"); err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single writer keeps SQLite happy during bulk inserts.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// EnsureProductsSchema creates the products table and its lookup indexes.
func EnsureProductsSchema(ctx context.Context, db *sql.DB) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if db == nil {
		return ErrNilDatabase
	}

	queries := []string{
		`CREATE TABLE IF NOT EXISTS products (
			appl_type TEXT,
			appl_no TEXT,
			product_no TEXT,
			trade_name TEXT,
			ingredient TEXT,
			strength TEXT,
			dosage_form TEXT,
			route TEXT,
			applicant TEXT,
			te_code TEXT,

			trade_name_n TEXT,
			ingredient_n TEXT,
			strength_n TEXT,
			dosage_form_n TEXT,
			route_n TEXT,
			te_code_n TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_products_trade_name_n ON products(trade_name_n)`,
		`CREATE INDEX IF NOT EXISTS idx_products_ingredient_n ON products(ingredient_n)`,
		`CREATE INDEX IF NOT EXISTS idx_products_identity
			ON products(ingredient_n, strength_n, dosage_form_n, route_n)`,
	}

	for _, query := range queries {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create products schema: %w", err)
		}
	}
	return nil
}

// EnsureCostsSchema creates the cost table and its lookup indexes.
func EnsureCostsSchema(ctx context.Context, db *sql.DB) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if db == nil {
		return ErrNilDatabase
	}

	queries := []string{
		`CREATE TABLE IF NOT EXISTS part_d_costs (
			brand_name TEXT,
			generic_name TEXT,
			manufacturer TEXT,
			tot_mftr INTEGER,
			year INTEGER NOT NULL,
			avg_spend_per_dose REAL,
			outlier_flag INTEGER NOT NULL DEFAULT 0,

			brand_name_n TEXT,
			generic_name_n TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_costs_brand ON part_d_costs(brand_name_n, year)`,
		`CREATE INDEX IF NOT EXISTS idx_costs_generic ON part_d_costs(generic_name_n, year)`,
		`CREATE INDEX IF NOT EXISTS idx_costs_year ON part_d_costs(year)`,
	}

	for _, query := range queries {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create costs schema: %w", err)
		}
	}
	return nil
}

// CostRow is a cost record headed for the store. HasAvgSpend distinguishes a
// genuine zero spend from a source row with no spend figure; rows without one
// are stored but never returned by cost lookups.
type CostRow struct {
	model.CostRecord
	HasAvgSpend bool
}

// InsertProducts writes product records with derived normalized columns in a
// single transaction.
func InsertProducts(ctx context.Context, db *sql.DB, products []model.ProductIdentity) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if db == nil {
		return ErrNilDatabase
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO products (
			appl_type, appl_no, product_no, trade_name, ingredient,
			strength, dosage_form, route, applicant, te_code,
			trade_name_n, ingredient_n, strength_n, dosage_form_n, route_n, te_code_n
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare product insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, p := range products {
		_, err := stmt.ExecContext(ctx,
			p.ApplType, p.ApplNo, p.ProductNo, p.TradeName, p.Ingredient,
			p.Strength, p.DosageForm, p.Route, p.Applicant, p.TECode,
			normalize.Normalize(p.TradeName),
			normalize.Normalize(p.Ingredient),
			normalize.Normalize(p.Strength),
			normalize.Normalize(p.DosageForm),
			normalize.Normalize(p.Route),
			normalize.Normalize(p.TECode),
		)
		if err != nil {
			return fmt.Errorf("failed to insert product %q: %w", p.TradeName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit products: %w", err)
	}
	return nil
}

// InsertCosts writes cost rows with derived normalized columns in a single
// transaction.
func InsertCosts(ctx context.Context, db *sql.DB, rows []CostRow) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if db == nil {
		return ErrNilDatabase
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO part_d_costs (
			brand_name, generic_name, manufacturer, tot_mftr, year,
			avg_spend_per_dose, outlier_flag, brand_name_n, generic_name_n
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare cost insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, row := range rows {
		var avg any
		if row.HasAvgSpend {
			avg = row.AvgSpendPerDose
		}
		_, err := stmt.ExecContext(ctx,
			row.BrandName, row.GenericName, row.Manufacturer, row.TotManufacturer,
			row.Year, avg, row.OutlierFlag,
			normalize.Normalize(row.BrandName),
			normalize.Normalize(row.GenericName),
		)
		if err != nil {
			return fmt.Errorf("failed to insert cost row %q/%d: %w", row.BrandName, row.Year, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cost rows: %w", err)
	}
	return nil
}
