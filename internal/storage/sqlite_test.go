package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rxcost/rxcost/internal/model"
	"github.com/rxcost/rxcost/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestStore builds temporary reference databases seeded with the given
// fixtures and opens them the way the engine does: read-only.
func createTestStore(t *testing.T, products []model.ProductIdentity, costs []CostRow) *SQLiteStore {
	t.Helper()
	ctx := context.Background()
	tmpDir := t.TempDir()
	productsPath := filepath.Join(tmpDir, "products.db")
	costsPath := filepath.Join(tmpDir, "medicare.db")

	pdb, err := OpenReadWrite(productsPath)
	require.NoError(t, err)
	require.NoError(t, EnsureProductsSchema(ctx, pdb))
	if len(products) > 0 {
		require.NoError(t, InsertProducts(ctx, pdb, products))
	}
	require.NoError(t, pdb.Close())

	cdb, err := OpenReadWrite(costsPath)
	require.NoError(t, err)
	require.NoError(t, EnsureCostsSchema(ctx, cdb))
	if len(costs) > 0 {
		require.NoError(t, InsertCosts(ctx, cdb, costs))
	}
	require.NoError(t, cdb.Close())

	store, err := NewSQLiteStore(productsPath, costsPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func testProducts() []model.ProductIdentity {
	return []model.ProductIdentity{
		{
			ApplType: "N", ApplNo: "020702", ProductNo: "003",
			TradeName: "LIPITOR", Ingredient: "ATORVASTATIN CALCIUM",
			Strength: "20MG", DosageForm: "TABLET", Route: "ORAL",
			Applicant: "PFIZER", TECode: "AB",
		},
		{
			ApplType: "A", ApplNo: "091001", ProductNo: "001",
			TradeName: "ATORVASTATIN CALCIUM", Ingredient: "ATORVASTATIN CALCIUM",
			Strength: "20MG", DosageForm: "TABLET", Route: "ORAL",
			Applicant: "SANDOZ", TECode: "AB",
		},
		{
			ApplType: "A", ApplNo: "091002", ProductNo: "001",
			TradeName: "ATORVASTATIN CALCIUM", Ingredient: "ATORVASTATIN CALCIUM",
			Strength: "20MG", DosageForm: "TABLET", Route: "ORAL",
			Applicant: "MYLAN", TECode: "BX",
		},
		{
			ApplType: "N", ApplNo: "020357", ProductNo: "001",
			TradeName: "GLUCOPHAGE", Ingredient: "METFORMIN HYDROCHLORIDE",
			Strength: "500MG", DosageForm: "TABLET", Route: "ORAL",
			Applicant: "BRISTOL", TECode: "AB",
		},
	}
}

func testCosts() []CostRow {
	return []CostRow{
		{CostRecord: model.CostRecord{
			BrandName: "Lipitor", GenericName: "Atorvastatin Calcium",
			Manufacturer: "Pfizer", TotManufacturer: 3, Year: 2022,
			AvgSpendPerDose: 4.51,
		}, HasAvgSpend: true},
		{CostRecord: model.CostRecord{
			BrandName: "Atorvastatin Calcium", GenericName: "Atorvastatin Calcium",
			Manufacturer: "Sandoz", TotManufacturer: 3, Year: 2022,
			AvgSpendPerDose: 0.12,
		}, HasAvgSpend: true},
		{CostRecord: model.CostRecord{
			BrandName: "Atorvastatin Calcium", GenericName: "Atorvastatin Calcium",
			Manufacturer: "Mylan", TotManufacturer: 3, Year: 2022,
			AvgSpendPerDose: 0.12,
		}, HasAvgSpend: true},
		{CostRecord: model.CostRecord{
			BrandName: "Lipitor", GenericName: "Atorvastatin Calcium",
			Manufacturer: "Pfizer", TotManufacturer: 3, Year: 2021,
			AvgSpendPerDose: 4.02,
		}, HasAvgSpend: true},
		{CostRecord: model.CostRecord{
			BrandName: "Glucophage", GenericName: "Metformin Hydrochloride",
			Manufacturer: "Bristol", TotManufacturer: 1, Year: 2022,
		}, HasAvgSpend: false},
	}
}

func TestProductsByExactName(t *testing.T) {
	store := createTestStore(t, testProducts(), nil)
	ctx := context.Background()

	tests := []struct {
		name      string
		key       string
		wantCount int
	}{
		{name: "trade name hit", key: "lipitor", wantCount: 1},
		{name: "ingredient hit returns all salt-form rows", key: "atorvastatin calcium", wantCount: 3},
		{name: "no match is empty not error", key: "nosuchdrug", wantCount: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.ProductsByExactName(ctx, tt.key)
			require.NoError(t, err)
			assert.Len(t, got, tt.wantCount)
		})
	}
}

func TestProductsByNamePrefix(t *testing.T) {
	store := createTestStore(t, testProducts(), nil)
	ctx := context.Background()

	got, err := store.ProductsByNamePrefix(ctx, "lipi", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "LIPITOR", got[0].TradeName)

	got, err = store.ProductsByNamePrefix(ctx, "ator", 0)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	got, err = store.ProductsByNamePrefix(ctx, "zzz", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEquivalents(t *testing.T) {
	store := createTestStore(t, testProducts(), nil)
	ctx := context.Background()

	got, err := store.Equivalents(ctx, "atorvastatin calcium", "20mg", "tablet", "oral")
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, p := range got {
		assert.True(t, p.IsTherapeuticallyEquivalent(), "te_code %q must start with A", p.TECode)
	}

	// Strength mismatch filters everything out.
	got, err = store.Equivalents(ctx, "atorvastatin calcium", "40mg", "tablet", "oral")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCostsByName(t *testing.T) {
	store := createTestStore(t, nil, testCosts())
	ctx := context.Background()

	got, err := store.CostsByName(ctx, "atorvastatin calcium", 2022, 0)
	require.NoError(t, err)
	// Three priced 2022 rows match the generic name; the Lipitor brand row
	// matches via generic_name_n too.
	require.Len(t, got, 3)

	// Ascending spend, manufacturer breaks the 0.12 tie.
	assert.Equal(t, "Mylan", got[0].Manufacturer)
	assert.Equal(t, "Sandoz", got[1].Manufacturer)
	assert.Equal(t, "Pfizer", got[2].Manufacturer)
	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, got[i-1].AvgSpendPerDose, got[i].AvgSpendPerDose)
	}

	// Unpriced rows never come back.
	got, err = store.CostsByName(ctx, "metformin hydrochloride", 2022, 0)
	require.NoError(t, err)
	assert.Empty(t, got)

	// Year restriction.
	got, err = store.CostsByName(ctx, "lipitor", 2021, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 2021, got[0].Year)
}

func TestLatestYear(t *testing.T) {
	store := createTestStore(t, nil, testCosts())
	year, err := store.LatestYear(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2022, year)
}

func TestLatestYearEmptyDataset(t *testing.T) {
	store := createTestStore(t, nil, nil)
	_, err := store.LatestYear(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, service.ErrEmptyDataset)
}

func TestCountProducts(t *testing.T) {
	store := createTestStore(t, testProducts(), nil)
	count, err := store.CountProducts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
}

func TestNewSQLiteStoreMissingFile(t *testing.T) {
	tmpDir := t.TempDir()
	_, err := NewSQLiteStore(
		filepath.Join(tmpDir, "missing-products.db"),
		filepath.Join(tmpDir, "missing-medicare.db"),
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, service.ErrStorageUnavailable)
}
