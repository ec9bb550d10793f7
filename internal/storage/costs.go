package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/rxcost/rxcost/internal/model"
	"github.com/rxcost/rxcost/internal/service"
)

const defaultCostLimit = 200

// CostsByName returns cost records for the given year whose normalized brand
// or generic name equals key. Rows without an average spend per dose are
// excluded - they cannot participate in cost ranking. Ordering is ascending
// spend with manufacturer name breaking ties, so results are deterministic.
func (s *SQLiteStore) CostsByName(ctx context.Context, key string, year, limit int) ([]model.CostRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(key, "key"); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultCostLimit
	}

	query := `
		SELECT brand_name, generic_name, manufacturer, tot_mftr, year,
		       avg_spend_per_dose, outlier_flag
		FROM part_d_costs
		WHERE year = ?
		  AND (brand_name_n = ? OR generic_name_n = ?)
		  AND avg_spend_per_dose IS NOT NULL
		ORDER BY avg_spend_per_dose ASC, manufacturer ASC
		LIMIT ?`

	rows, err := s.costs.QueryContext(ctx, query, year, key, key, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query costs: %v", service.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var records []model.CostRecord
	for rows.Next() {
		var rec model.CostRecord
		var totMftr sql.NullInt64
		if err := rows.Scan(
			&rec.BrandName, &rec.GenericName, &rec.Manufacturer, &totMftr,
			&rec.Year, &rec.AvgSpendPerDose, &rec.OutlierFlag,
		); err != nil {
			return nil, fmt.Errorf("failed to scan cost record: %w", err)
		}
		if totMftr.Valid {
			rec.TotManufacturer = int(totMftr.Int64)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error iterating cost records: %v", service.ErrStorageUnavailable, err)
	}

	slog.Debug("retrieved cost records", "key", key, "year", year, "count", len(records))
	return records, nil
}

// LatestYear returns the maximum year present in the cost table.
func (s *SQLiteStore) LatestYear(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var year sql.NullInt64
	err := s.costs.QueryRowContext(ctx, `SELECT MAX(year) FROM part_d_costs`).Scan(&year)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to query latest year: %v", service.ErrStorageUnavailable, err)
	}
	if !year.Valid {
		return 0, service.ErrEmptyDataset
	}

	return int(year.Int64), nil
}
