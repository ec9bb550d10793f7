package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/rxcost/rxcost/internal/storage"

	"github.com/schollz/progressbar/v3"
)

const insertBatchSize = 50_000

// BuildConfig names the source files and the databases to produce.
type BuildConfig struct {
	ProductsFile string // Orange Book products.txt
	SpendingFile string // CMS Part D spending CSV
	ProductsDB   string
	CostsDB      string
	ShowProgress bool
}

// BuildResult reports how many rows each database received.
type BuildResult struct {
	Products int
	CostRows int
}

// Build creates both reference databases from scratch. Existing tables are
// replaced wholesale - the dataset is write-once and rebuilt, never patched.
func Build(ctx context.Context, cfg BuildConfig) (*BuildResult, error) {
	products, err := buildProducts(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("building products database: %w", err)
	}

	costRows, err := buildCosts(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("building costs database: %w", err)
	}

	slog.Info("dataset build complete",
		"products", products, "cost_rows", costRows,
		"products_db", cfg.ProductsDB, "costs_db", cfg.CostsDB)

	return &BuildResult{Products: products, CostRows: costRows}, nil
}

func buildProducts(ctx context.Context, cfg BuildConfig) (int, error) {
	reader, closeFn, err := openSource(cfg.ProductsFile, "parsing products", cfg.ShowProgress)
	if err != nil {
		return 0, err
	}
	defer closeFn()

	products, err := parseOrangeBook(reader)
	if err != nil {
		return 0, err
	}

	db, err := storage.OpenReadWrite(cfg.ProductsDB)
	if err != nil {
		return 0, err
	}
	defer func() { _ = db.Close() }()

	if err := resetTable(ctx, db, "products"); err != nil {
		return 0, err
	}
	if err := storage.EnsureProductsSchema(ctx, db); err != nil {
		return 0, err
	}

	for batch := range batches(len(products)) {
		chunk := products[batch.start:batch.end]
		if err := storage.InsertProducts(ctx, db, chunk); err != nil {
			return 0, err
		}
	}

	return len(products), nil
}

func buildCosts(ctx context.Context, cfg BuildConfig) (int, error) {
	reader, closeFn, err := openSource(cfg.SpendingFile, "parsing spending data", cfg.ShowProgress)
	if err != nil {
		return 0, err
	}
	defer closeFn()

	rows, err := parseMedicareCosts(reader)
	if err != nil {
		return 0, err
	}

	db, err := storage.OpenReadWrite(cfg.CostsDB)
	if err != nil {
		return 0, err
	}
	defer func() { _ = db.Close() }()

	if err := resetTable(ctx, db, "part_d_costs"); err != nil {
		return 0, err
	}
	if err := storage.EnsureCostsSchema(ctx, db); err != nil {
		return 0, err
	}

	for batch := range batches(len(rows)) {
		chunk := rows[batch.start:batch.end]
		if err := storage.InsertCosts(ctx, db, chunk); err != nil {
			return 0, err
		}
	}

	return len(rows), nil
}

// openSource opens a source file, optionally wrapping it in a byte-progress
// bar on stderr.
func openSource(path, description string, showProgress bool) (io.Reader, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	closeFn := func() { _ = f.Close() }
	if !showProgress {
		return f, closeFn, nil
	}

	info, err := f.Stat()
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	bar := progressbar.DefaultBytes(info.Size(), description)
	return io.TeeReader(f, bar), closeFn, nil
}

func resetTable(ctx context.Context, db *sql.DB, table string) error {
	if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
		return fmt.Errorf("failed to reset table %s: %w", table, err)
	}
	return nil
}

type span struct{ start, end int }

// batches yields index spans of insertBatchSize over n items.
func batches(n int) func(func(span) bool) {
	return func(yield func(span) bool) {
		for start := 0; start < n; start += insertBatchSize {
			end := min(start+insertBatchSize, n)
			if !yield(span{start: start, end: end}) {
				return
			}
		}
	}
}
