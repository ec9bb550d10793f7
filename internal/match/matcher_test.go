package match

import (
	"context"
	"strings"
	"testing"

	"github.com/rxcost/rxcost/internal/model"
	"github.com/rxcost/rxcost/internal/normalize"
	"github.com/rxcost/rxcost/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProductStore serves a fixed catalog from memory, applying the same
// normalized-key semantics the SQLite store implements.
type fakeProductStore struct {
	products []model.ProductIdentity
}

func (f *fakeProductStore) ProductsByExactName(_ context.Context, key string) ([]model.ProductIdentity, error) {
	var out []model.ProductIdentity
	for _, p := range f.products {
		if normalize.Normalize(p.TradeName) == key || normalize.Normalize(p.Ingredient) == key {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProductStore) ProductsByNamePrefix(_ context.Context, prefix string, _ int) ([]model.ProductIdentity, error) {
	var out []model.ProductIdentity
	for _, p := range f.products {
		if strings.HasPrefix(normalize.Normalize(p.TradeName), prefix) ||
			strings.HasPrefix(normalize.Normalize(p.Ingredient), prefix) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProductStore) AllProducts(_ context.Context) ([]model.ProductIdentity, error) {
	return f.products, nil
}

func (f *fakeProductStore) CountProducts(_ context.Context) (int64, error) {
	return int64(len(f.products)), nil
}

func (f *fakeProductStore) Equivalents(_ context.Context, ingredient, strength, form, route string) ([]model.ProductIdentity, error) {
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

func testCatalog() []model.ProductIdentity {
	return []model.ProductIdentity{
		{
			ApplType: "N", ApplNo: "020702", ProductNo: "003",
			TradeName: "LIPITOR", Ingredient: "ATORVASTATIN CALCIUM",
			Strength: "20MG", DosageForm: "TABLET", Route: "ORAL",
			Applicant: "PFIZER", TECode: "AB",
		},
		{
			ApplType: "N", ApplNo: "020702", ProductNo: "004",
			TradeName: "LIPITOR", Ingredient: "ATORVASTATIN CALCIUM",
			Strength: "40MG", DosageForm: "TABLET", Route: "ORAL",
			Applicant: "PFIZER", TECode: "AB",
		},
		{
			ApplType: "A", ApplNo: "091001", ProductNo: "001",
			TradeName: "ATORVASTATIN CALCIUM", Ingredient: "ATORVASTATIN CALCIUM",
			Strength: "20MG", DosageForm: "TABLET", Route: "ORAL",
			Applicant: "SANDOZ", TECode: "AB",
		},
		{
			ApplType: "N", ApplNo: "021656", ProductNo: "001",
			TradeName: "LIPIDIL", Ingredient: "FENOFIBRATE",
			Strength: "145MG", DosageForm: "TABLET", Route: "ORAL",
			Applicant: "ABBOTT", TECode: "",
		},
		{
			ApplType: "N", ApplNo: "020357", ProductNo: "001",
			TradeName: "GLUCOPHAGE", Ingredient: "METFORMIN HYDROCHLORIDE",
			Strength: "500MG", DosageForm: "TABLET", Route: "ORAL",
			Applicant: "BRISTOL", TECode: "AB",
		},
	}
}

func newTestMatcher() *Matcher {
	return New(&fakeProductStore{products: testCatalog()}, DefaultConfig())
}

func TestMatchExactStage(t *testing.T) {
	m := newTestMatcher()
	got, err := m.Match(context.Background(), "Lipitor", "")
	require.NoError(t, err)

	assert.Equal(t, "LIPITOR", got.Best.Product.TradeName)
	assert.Equal(t, model.StageExact, got.Best.Stage)
	assert.InDelta(t, 100, got.Best.Score, 0.001)
	assert.Equal(t, model.ClassificationBrand, got.Classification)
	assert.False(t, got.LowConfidence)
}

func TestMatchIngredientQueryClassifiesGeneric(t *testing.T) {
	m := newTestMatcher()
	got, err := m.Match(context.Background(), "atorvastatin calcium", "")
	require.NoError(t, err)

	assert.Equal(t, model.StageExact, got.Best.Stage)
	// Query shape looks like an ingredient, so the generic product wins the
	// 100-point tie against the brand rows.
	assert.Equal(t, model.ClassificationGeneric, got.Classification)
	assert.Equal(t, "SANDOZ", got.Best.Product.Applicant)
}

func TestMatchPrefixStage(t *testing.T) {
	m := newTestMatcher()
	got, err := m.Match(context.Background(), "lipi", "")
	require.NoError(t, err)

	assert.Equal(t, model.StagePrefix, got.Best.Stage)
	assert.Less(t, got.Best.Score, 100.0)
	assert.GreaterOrEqual(t, got.Best.Score, 50.0)
	assert.NotEmpty(t, got.Alternates)
}

func TestMatchFuzzyStage(t *testing.T) {
	m := newTestMatcher()
	got, err := m.Match(context.Background(), "liptor", "")
	require.NoError(t, err)

	assert.Equal(t, model.StageFuzzy, got.Best.Stage)
	assert.Equal(t, "LIPITOR", got.Best.Product.TradeName)
	assert.Less(t, got.Best.Score, 80.0)
	assert.Greater(t, got.Best.Score, 0.0)
}

func TestStageOrdering(t *testing.T) {
	// Exact always outranks prefix, which always outranks fuzzy, for the
	// same catalog.
	m := newTestMatcher()
	ctx := context.Background()

	exact, err := m.Match(ctx, "lipitor", "")
	require.NoError(t, err)
	prefix, err := m.Match(ctx, "lipi", "")
	require.NoError(t, err)
	fuzzy, err := m.Match(ctx, "liptor", "")
	require.NoError(t, err)

	assert.Greater(t, exact.Best.Score, prefix.Best.Score)
	assert.Greater(t, prefix.Best.Score, fuzzy.Best.Score)
}

func TestStrengthBonus(t *testing.T) {
	m := newTestMatcher()
	ctx := context.Background()

	// Without strength the two Lipitor rows tie at 100 and sort by catalog
	// tie-break; with strength 40MG the 40MG row must win.
	got, err := m.Match(ctx, "lipitor", "40MG")
	require.NoError(t, err)
	assert.Equal(t, "40MG", got.Best.Product.Strength)
	assert.True(t, got.Best.StrengthMatch)

	got, err = m.Match(ctx, "lipitor", "20mg")
	require.NoError(t, err)
	assert.Equal(t, "20MG", got.Best.Product.Strength)
}

func TestStrengthBonusNeverExceeds100(t *testing.T) {
	m := newTestMatcher()
	got, err := m.Match(context.Background(), "lipitor", "40MG")
	require.NoError(t, err)

	assert.LessOrEqual(t, got.Best.Score, 100.0)
	for _, alt := range got.Alternates {
		assert.LessOrEqual(t, alt.Score, 100.0)
	}
}

func TestOmittedStrengthDoesNotChangeRanking(t *testing.T) {
	m := newTestMatcher()
	ctx := context.Background()

	first, err := m.Match(ctx, "lipi", "")
	require.NoError(t, err)
	second, err := m.Match(ctx, "lipi", "")
	require.NoError(t, err)

	assert.Equal(t, first.Best, second.Best)
	assert.Equal(t, first.Alternates, second.Alternates)
}

func TestNoMatchIsLowConfidenceNotError(t *testing.T) {
	m := newTestMatcher()
	got, err := m.Match(context.Background(), "zzzzzz", "")
	require.NoError(t, err)

	assert.True(t, got.LowConfidence)
	assert.Empty(t, got.Alternates)
	assert.Equal(t, model.ClassificationUnknown, got.Classification)
	assert.Zero(t, got.Best.Score)
}

func TestEmptyStoreIsNotFound(t *testing.T) {
	m := New(&fakeProductStore{}, DefaultConfig())
	_, err := m.Match(context.Background(), "lipitor", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestEmptyQueryIsError(t *testing.T) {
	m := newTestMatcher()
	_, err := m.Match(context.Background(), "  ", "")
	require.Error(t, err)
}

func TestTieBreakAlphabetical(t *testing.T) {
	catalog := []model.ProductIdentity{
		{ApplType: "A", ApplNo: "1", ProductNo: "1", TradeName: "ZETIA-CLONE",
			Ingredient: "EZETIMIBE", Strength: "10MG", DosageForm: "TABLET", Route: "ORAL", Applicant: "B"},
		{ApplType: "A", ApplNo: "2", ProductNo: "1", TradeName: "AETIA-CLONE",
			Ingredient: "EZETIMIBE", Strength: "10MG", DosageForm: "TABLET", Route: "ORAL", Applicant: "A"},
	}
	m := New(&fakeProductStore{products: catalog}, DefaultConfig())

	got, err := m.Match(context.Background(), "ezetimibe", "")
	require.NoError(t, err)
	assert.Equal(t, "AETIA-CLONE", got.Best.Product.TradeName)
}
