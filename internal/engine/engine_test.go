package engine

import (
	"context"
	"testing"

	"github.com/rxcost/rxcost/internal/match"
	"github.com/rxcost/rxcost/internal/model"
	"github.com/rxcost/rxcost/internal/normalize"
	"github.com/rxcost/rxcost/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore serves fixed catalogs from memory with the same normalized-key
// semantics as the SQLite store.
type fakeStore struct {
	products []model.ProductIdentity
	costs    []model.CostRecord
}

func (f *fakeStore) ProductsByExactName(_ context.Context, key string) ([]model.ProductIdentity, error) {
	var out []model.ProductIdentity
	for _, p := range f.products {
		if normalize.Normalize(p.TradeName) == key || normalize.Normalize(p.Ingredient) == key {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) ProductsByNamePrefix(_ context.Context, prefix string, _ int) ([]model.ProductIdentity, error) {
	var out []model.ProductIdentity
	for _, p := range f.products {
		trade := normalize.Normalize(p.TradeName)
		ingredient := normalize.Normalize(p.Ingredient)
		if hasPrefix(trade, prefix) || hasPrefix(ingredient, prefix) {
			out = append(out, p)
		}
	}
	return out, nil
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func (f *fakeStore) AllProducts(_ context.Context) ([]model.ProductIdentity, error) {
	return f.products, nil
}

func (f *fakeStore) CountProducts(_ context.Context) (int64, error) {
	return int64(len(f.products)), nil
}

func (f *fakeStore) Equivalents(_ context.Context, ingredient, strength, form, route string) ([]model.ProductIdentity, error) {
	var out []model.ProductIdentity
	for _, p := range f.products {
		if normalize.Normalize(p.Ingredient) == ingredient &&
			normalize.Normalize(p.Strength) == strength &&
			normalize.Normalize(p.DosageForm) == form &&
			normalize.Normalize(p.Route) == route &&
			p.IsTherapeuticallyEquivalent() {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) CostsByName(_ context.Context, key string, year, _ int) ([]model.CostRecord, error) {
	var out []model.CostRecord
	for _, r := range f.costs {
		if r.Year != year {
			continue
		}
		if normalize.Normalize(r.BrandName) == key || normalize.Normalize(r.GenericName) == key {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) LatestYear(_ context.Context) (int, error) {
	latest := 0
	for _, r := range f.costs {
		if r.Year > latest {
			latest = r.Year
		}
	}
	if latest == 0 {
		return 0, service.ErrEmptyDataset
	}
	return latest, nil
}

func (f *fakeStore) Close() error { return nil }

func testStore() *fakeStore {
	return &fakeStore{
		products: []model.ProductIdentity{
			{ApplType: "N", ApplNo: "020702", ProductNo: "003", TradeName: "LIPITOR",
				Ingredient: "ATORVASTATIN CALCIUM", Strength: "20MG", DosageForm: "TABLET",
				Route: "ORAL", Applicant: "PFIZER", TECode: "AB"},
			{ApplType: "A", ApplNo: "091001", ProductNo: "001", TradeName: "ATORVASTATIN CALCIUM",
				Ingredient: "ATORVASTATIN CALCIUM", Strength: "20MG", DosageForm: "TABLET",
				Route: "ORAL", Applicant: "SANDOZ", TECode: "AB"},
			{ApplType: "A", ApplNo: "091007", ProductNo: "001", TradeName: "ATORVASTATIN CALCIUM",
				Ingredient: "ATORVASTATIN CALCIUM", Strength: "20MG", DosageForm: "TABLET",
				Route: "ORAL", Applicant: "TEVA", TECode: "AB"},
			{ApplType: "A", ApplNo: "091002", ProductNo: "001", TradeName: "ATORVASTATIN CALCIUM",
				Ingredient: "ATORVASTATIN CALCIUM", Strength: "20MG", DosageForm: "TABLET",
				Route: "ORAL", Applicant: "MYLAN", TECode: "BX"},
			{ApplType: "N", ApplNo: "020357", ProductNo: "001", TradeName: "GLUCOPHAGE",
				Ingredient: "METFORMIN HYDROCHLORIDE", Strength: "500MG", DosageForm: "TABLET",
				Route: "ORAL", Applicant: "BRISTOL", TECode: "AB"},
		},
		costs: []model.CostRecord{
			{BrandName: "Lipitor", GenericName: "Atorvastatin Calcium", Manufacturer: "Pfizer",
				TotManufacturer: 3, Year: 2022, AvgSpendPerDose: 4.51},
			{BrandName: "Atorvastatin Calcium", GenericName: "Atorvastatin Calcium", Manufacturer: "Sandoz",
				TotManufacturer: 3, Year: 2022, AvgSpendPerDose: 0.12},
			{BrandName: "Atorvastatin Calcium", GenericName: "Atorvastatin Calcium", Manufacturer: "Mylan",
				TotManufacturer: 3, Year: 2022, AvgSpendPerDose: 0.10},
			{BrandName: "Lipitor", GenericName: "Atorvastatin Calcium", Manufacturer: "Pfizer",
				TotManufacturer: 3, Year: 2021, AvgSpendPerDose: 4.02},
			{BrandName: "Metformin", GenericName: "Metformin", Manufacturer: "Aurobindo",
				TotManufacturer: 5, Year: 2022, AvgSpendPerDose: 0.03},
		},
	}
}

func newTestEngine() *Engine {
	return New(testStore(), match.DefaultConfig())
}

func TestFindEquivalentsFiltersAndDedupes(t *testing.T) {
	e := newTestEngine()
	got, err := e.FindEquivalents(context.Background(), "Atorvastatin Calcium", "20MG", "TABLET", "ORAL")
	require.NoError(t, err)

	// Three A-rated rows, but the two generic rows share a trade name.
	require.Len(t, got, 2)
	names := []string{got[0].TradeName, got[1].TradeName}
	assert.Contains(t, names, "LIPITOR")
	assert.Contains(t, names, "ATORVASTATIN CALCIUM")
	for _, p := range got {
		assert.True(t, p.IsTherapeuticallyEquivalent())
	}
}

func TestLookupCostsSortedAscending(t *testing.T) {
	e := newTestEngine()
	got, err := e.LookupCosts(context.Background(), "Atorvastatin Calcium", 0)
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, "Mylan", got[0].Manufacturer)
	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, got[i-1].AvgSpendPerDose, got[i].AvgSpendPerDose)
		assert.Equal(t, 2022, got[i].Year)
	}
}

func TestLookupCostsExplicitYear(t *testing.T) {
	e := newTestEngine()
	got, err := e.LookupCosts(context.Background(), "Lipitor", 2021)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 4.02, got[0].AvgSpendPerDose, 0.001)
}

func TestLookupCostsEmptyIsNotError(t *testing.T) {
	e := newTestEngine()
	got, err := e.LookupCosts(context.Background(), "Glucophage", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLatestYear(t *testing.T) {
	e := newTestEngine()
	year, err := e.LatestYear(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2022, year)

	empty := New(&fakeStore{products: testStore().products}, match.DefaultConfig())
	_, err = empty.LatestYear(context.Background())
	assert.ErrorIs(t, err, service.ErrEmptyDataset)
}

func TestCheapestEquivalents(t *testing.T) {
	e := newTestEngine()
	got, err := e.CheapestEquivalents(context.Background(), "Lipitor", "20mg")
	require.NoError(t, err)

	assert.Equal(t, "LIPITOR", got.Match.Best.Product.TradeName)
	assert.Equal(t, "ATORVASTATIN CALCIUM", got.Match.Best.Product.Ingredient)
	assert.Equal(t, 2022, got.Year)
	require.Len(t, got.Equivalents, 2)

	// The generic comes first: its cheapest record (0.10) beats Lipitor's 4.51.
	assert.Equal(t, "ATORVASTATIN CALCIUM", got.Equivalents[0].Product.TradeName)
	assert.Equal(t, "Mylan", got.Equivalents[0].Records[0].Manufacturer)
	assert.Equal(t, "LIPITOR", got.Equivalents[1].Product.TradeName)
	assert.Empty(t, got.Equivalents[0].FallbackName)
}

func TestCheapestEquivalentsGenericFallback(t *testing.T) {
	// Glucophage has no cost rows under its trade name, but the bare
	// ingredient "metformin" does.
	e := newTestEngine()
	got, err := e.CheapestEquivalents(context.Background(), "Glucophage", "")
	require.NoError(t, err)

	require.Len(t, got.Equivalents, 1)
	entry := got.Equivalents[0]
	assert.Equal(t, "GLUCOPHAGE", entry.Product.TradeName)
	assert.Equal(t, "metformin", entry.FallbackName)
	require.NotEmpty(t, entry.Records)
	assert.Equal(t, "Aurobindo", entry.Records[0].Manufacturer)
}

func TestCheapestEquivalentsLowConfidence(t *testing.T) {
	e := newTestEngine()
	got, err := e.CheapestEquivalents(context.Background(), "qqqqqq", "")
	require.NoError(t, err)

	assert.True(t, got.Match.LowConfidence)
	assert.Empty(t, got.Equivalents)
}
