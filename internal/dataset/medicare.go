package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/rxcost/rxcost/internal/model"
	"github.com/rxcost/rxcost/internal/storage"
)

// The CMS Part D file is wide: one row per drug/manufacturer with per-year
// spending columns. The build flattens it to one row per (drug, year).
const (
	spendColumnPrefix   = "Avg_Spnd_Per_Dsg_Unt_Wghtd_"
	outlierColumnPrefix = "Outlier_Flag_"
)

var requiredMedicareColumns = []string{"Brnd_Name", "Gnrc_Name", "Mftr_Name", "Tot_Mftr"}

// parseMedicareCosts reads the spending CSV into long-format cost rows.
// Drug-years without a spend figure are dropped, as the source publishes
// blanks for years a product was not on the market.
func parseMedicareCosts(r io.Reader) ([]storage.CostRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read spending header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, c := range header {
		index[strings.TrimSpace(c)] = i
	}

	var missing []string
	for _, c := range requiredMedicareColumns {
		if _, ok := index[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("spending file is missing expected columns: %s", strings.Join(missing, ", "))
	}

	years := spendYears(header)
	if len(years) == 0 {
		return nil, fmt.Errorf("spending file has no %s columns", spendColumnPrefix)
	}

	field := func(record []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var rows []storage.CostRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read spending row: %w", err)
		}

		totMftr, _ := strconv.Atoi(field(record, "Tot_Mftr"))

		for _, year := range years {
			spendRaw := field(record, spendColumnPrefix+strconv.Itoa(year))
			spend, err := strconv.ParseFloat(spendRaw, 64)
			if err != nil {
				continue
			}

			outlierRaw := field(record, outlierColumnPrefix+strconv.Itoa(year))
			outlier, _ := strconv.Atoi(outlierRaw)

			rows = append(rows, storage.CostRow{
				CostRecord: model.CostRecord{
					BrandName:       field(record, "Brnd_Name"),
					GenericName:     field(record, "Gnrc_Name"),
					Manufacturer:    field(record, "Mftr_Name"),
					TotManufacturer: totMftr,
					Year:            year,
					AvgSpendPerDose: spend,
					OutlierFlag:     outlier != 0,
				},
				HasAvgSpend: true,
			})
		}
	}

	return rows, nil
}

// spendYears extracts the data years present in the header, ascending.
func spendYears(header []string) []int {
	var years []int
	for _, c := range header {
		suffix, ok := strings.CutPrefix(strings.TrimSpace(c), spendColumnPrefix)
		if !ok {
			continue
		}
		year, err := strconv.Atoi(suffix)
		if err != nil || year < 2000 || year > 2100 {
			continue
		}
		years = append(years, year)
	}
	sort.Ints(years)
	return years
}
