package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/rxcost/rxcost/internal/model"
	"github.com/rxcost/rxcost/internal/service"
)

// Row caps keep pathological queries bounded; real lookups sit far below.
const (
	maxExactRows      = 2000
	maxEquivalentRows = 5000
)

const productColumns = `appl_type, appl_no, product_no, trade_name, ingredient,
		strength, dosage_form, route, applicant, te_code`

// ProductsByExactName returns products whose normalized trade name or
// normalized ingredient equals key.
func (s *SQLiteStore) ProductsByExactName(ctx context.Context, key string) ([]model.ProductIdentity, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(key, "key"); err != nil {
		return nil, err
	}

	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE trade_name_n = ? OR ingredient_n = ?
		ORDER BY trade_name, applicant
		LIMIT ?`

	return s.queryProducts(ctx, query, key, key, maxExactRows)
}

// ProductsByNamePrefix returns products whose normalized trade name or
// normalized ingredient starts with prefix. Normalized keys never contain
// LIKE wildcards, so the prefix can be interpolated directly.
func (s *SQLiteStore) ProductsByNamePrefix(ctx context.Context, prefix string, limit int) ([]model.ProductIdentity, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(prefix, "prefix"); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > maxExactRows {
		limit = maxExactRows
	}

	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE trade_name_n LIKE ? OR ingredient_n LIKE ?
		ORDER BY trade_name, applicant
		LIMIT ?`

	like := prefix + "%"
	return s.queryProducts(ctx, query, like, like, limit)
}

// AllProducts returns every product record, for whole-catalog fuzzy scans.
func (s *SQLiteStore) AllProducts(ctx context.Context) ([]model.ProductIdentity, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT ` + productColumns + `
		FROM products
		ORDER BY trade_name, applicant`

	return s.queryProducts(ctx, query)
}

// CountProducts reports the number of product rows in the store.
func (s *SQLiteStore) CountProducts(ctx context.Context) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var count int64
	err := s.products.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to count products: %v", service.ErrStorageUnavailable, err)
	}
	return count, nil
}

// Equivalents returns products matching all four normalized identity keys
// whose therapeutic-equivalence code starts with "A". The A-prefix filter
// runs in SQL so the composite identity index is used.
func (s *SQLiteStore) Equivalents(ctx context.Context, ingredient, strength, form, route string) ([]model.ProductIdentity, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(ingredient, "ingredient"); err != nil {
		return nil, err
	}

	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE ingredient_n = ?
		  AND strength_n = ?
		  AND dosage_form_n = ?
		  AND route_n = ?
		  AND te_code_n LIKE 'a%'
		ORDER BY trade_name, applicant
		LIMIT ?`

	return s.queryProducts(ctx, query, ingredient, strength, form, route, maxEquivalentRows)
}

func (s *SQLiteStore) queryProducts(ctx context.Context, query string, args ...any) ([]model.ProductIdentity, error) {
	rows, err := s.products.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query products: %v", service.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var products []model.ProductIdentity
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error iterating products: %v", service.ErrStorageUnavailable, err)
	}

	slog.Debug("retrieved products", "count", len(products))
	return products, nil
}

func scanProduct(rows *sql.Rows) (model.ProductIdentity, error) {
	var p model.ProductIdentity
	err := rows.Scan(
		&p.ApplType, &p.ApplNo, &p.ProductNo, &p.TradeName, &p.Ingredient,
		&p.Strength, &p.DosageForm, &p.Route, &p.Applicant, &p.TECode,
	)
	if err != nil {
		return model.ProductIdentity{}, fmt.Errorf("failed to scan product: %w", err)
	}
	return p, nil
}
