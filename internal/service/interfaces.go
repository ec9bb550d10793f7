// Package service defines the storage contracts and error taxonomy shared by
// the engine components.
package service

import (
	"context"

	"github.com/rxcost/rxcost/internal/model"
)

// ProductStore is the read-only contract over the approved-products table.
// All name parameters are normalized keys (see internal/normalize).
type ProductStore interface {
	// ProductsByExactName returns products whose normalized trade name or
	// normalized ingredient equals key.
	ProductsByExactName(ctx context.Context, key string) ([]model.ProductIdentity, error)

	// ProductsByNamePrefix returns products whose normalized trade name or
	// normalized ingredient starts with prefix.
	ProductsByNamePrefix(ctx context.Context, prefix string, limit int) ([]model.ProductIdentity, error)

	// AllProducts returns every product record, for whole-catalog fuzzy scans.
	AllProducts(ctx context.Context) ([]model.ProductIdentity, error)

	// CountProducts reports the number of product rows in the store.
	CountProducts(ctx context.Context) (int64, error)

	// Equivalents returns products matching all four normalized identity keys
	// whose therapeutic-equivalence code starts with "A".
	Equivalents(ctx context.Context, ingredient, strength, form, route string) ([]model.ProductIdentity, error)
}

// CostStore is the read-only contract over the program-spending table.
type CostStore interface {
	// CostsByName returns cost records for the given year whose normalized
	// brand or generic name equals key, ordered ascending by average spend
	// per dose with ties broken by manufacturer name.
	CostsByName(ctx context.Context, key string, year, limit int) ([]model.CostRecord, error)

	// LatestYear returns the maximum year present in the cost table, or
	// ErrEmptyDataset when the table has no rows.
	LatestYear(ctx context.Context) (int, error)
}

// Store is the combined read-only reference store.
type Store interface {
	ProductStore
	CostStore
	Close() error
}
