// Package engine composes the matcher, equivalence resolver, and cost ranker
// behind a single facade. Every operation is synchronous, read-only, and safe
// for concurrent use; the facade holds no mutable cross-call state.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/rxcost/rxcost/internal/match"
	"github.com/rxcost/rxcost/internal/model"
	"github.com/rxcost/rxcost/internal/normalize"
	"github.com/rxcost/rxcost/internal/service"
)

const defaultCostLimit = 50

// Service is the functional surface consumed by the CLI and HTTP server.
type Service interface {
	MatchIdentity(ctx context.Context, drugName, strength string) (*model.MatchResult, error)
	FindEquivalents(ctx context.Context, ingredient, strength, form, route string) ([]model.ProductIdentity, error)
	GenericCandidates(ingredient string) []string
	LatestYear(ctx context.Context) (int, error)
	LookupCosts(ctx context.Context, name string, year int) (model.RankedCostList, error)
	CheapestEquivalents(ctx context.Context, drugName, strength string) (*CostComparison, error)
}

// Engine implements Service over a reference store.
type Engine struct {
	store   service.Store
	matcher *match.Matcher
}

// Compile-time interface check.
var _ Service = (*Engine)(nil)

// New creates an engine over the given store using the supplied matching
// constants.
func New(store service.Store, cfg match.Config) *Engine {
	return &Engine{
		store:   store,
		matcher: match.New(store, cfg),
	}
}

// MatchIdentity resolves a user-supplied drug name (and optional strength,
// empty for none) to the best-matching product identity plus alternates.
func (e *Engine) MatchIdentity(ctx context.Context, drugName, strength string) (*model.MatchResult, error) {
	return e.matcher.Match(ctx, drugName, strength)
}

// FindEquivalents enumerates products rated therapeutically equivalent to the
// given identity, including the identity itself. Duplicate trade names
// collapse to the first record.
func (e *Engine) FindEquivalents(ctx context.Context, ingredient, strength, form, route string) ([]model.ProductIdentity, error) {
	rows, err := e.store.Equivalents(ctx,
		normalize.Normalize(ingredient),
		normalize.Normalize(strength),
		normalize.Normalize(form),
		normalize.Normalize(route),
	)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(rows))
	equivalents := make([]model.ProductIdentity, 0, len(rows))
	for _, p := range rows {
		key := normalize.Normalize(p.TradeName)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		equivalents = append(equivalents, p)
	}

	return equivalents, nil
}

// GenericCandidates derives bare-ingredient fallback names from a salt-form
// ingredient name. Pure; no storage access.
func (e *Engine) GenericCandidates(ingredient string) []string {
	return normalize.GenericCandidates(ingredient)
}

// LatestYear reports the most recent year with cost data.
func (e *Engine) LatestYear(ctx context.Context) (int, error) {
	return e.store.LatestYear(ctx)
}

// LookupCosts retrieves spending records matching name for the given year
// (zero means latest), cheapest first. An empty list is a valid result; the
// caller decides whether to retry with generic candidates.
func (e *Engine) LookupCosts(ctx context.Context, name string, year int) (model.RankedCostList, error) {
	key := normalize.Normalize(name)
	if key == "" {
		return nil, fmt.Errorf("name is empty")
	}

	if year <= 0 {
		latest, err := e.store.LatestYear(ctx)
		if err != nil {
			return nil, err
		}
		year = latest
	}

	records, err := e.store.CostsByName(ctx, key, year, defaultCostLimit)
	if err != nil {
		return nil, err
	}

	ranked := model.RankedCostList(records)
	ranked.Sort()
	return ranked, nil
}

// EquivalentCost pairs an equivalent product with its cost records for the
// comparison year. FallbackName is set when the records came from a generic
// candidate of the ingredient rather than the trade name.
type EquivalentCost struct {
	Product      model.ProductIdentity
	Records      model.RankedCostList
	FallbackName string
}

// CostComparison is the end-to-end result: the resolved identity and its
// equivalents ordered by their cheapest available record.
type CostComparison struct {
	Match       *model.MatchResult
	Equivalents []EquivalentCost
	Year        int
}

// CheapestEquivalents runs the full workflow: resolve the drug name, find the
// therapeutic equivalents of the best match, and rank each equivalent by
// observed cost for the latest year. When an equivalent's trade name has no
// cost rows the lookup retries once per generic candidate of its ingredient,
// first non-empty result wins.
func (e *Engine) CheapestEquivalents(ctx context.Context, drugName, strength string) (*CostComparison, error) {
	matched, err := e.MatchIdentity(ctx, drugName, strength)
	if err != nil {
		return nil, err
	}

	if matched.LowConfidence {
		slog.Debug("match below confidence threshold, skipping cost lookup",
			"query", drugName, "score", matched.Best.Score)
		return &CostComparison{Match: matched}, nil
	}

	year, err := e.LatestYear(ctx)
	if err != nil {
		return nil, err
	}

	best := matched.Best.Product
	equivalents, err := e.FindEquivalents(ctx, best.Ingredient, best.Strength, best.DosageForm, best.Route)
	if err != nil {
		return nil, err
	}
	if len(equivalents) == 0 {
		// A product without an A-rated code still has itself as a candidate.
		equivalents = []model.ProductIdentity{best}
	}

	costs := make([]EquivalentCost, 0, len(equivalents))
	for _, equiv := range equivalents {
		entry := EquivalentCost{Product: equiv}

		records, err := e.LookupCosts(ctx, equiv.TradeName, year)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			records, entry.FallbackName, err = e.lookupByGenericCandidates(ctx, equiv.Ingredient, year)
			if err != nil {
				return nil, err
			}
		}
		entry.Records = records
		costs = append(costs, entry)
	}

	sortByCheapest(costs)

	return &CostComparison{
		Match:       matched,
		Equivalents: costs,
		Year:        year,
	}, nil
}

// lookupByGenericCandidates tries each generic candidate of the ingredient in
// specificity order and returns the first non-empty result.
func (e *Engine) lookupByGenericCandidates(ctx context.Context, ingredient string, year int) (model.RankedCostList, string, error) {
	for _, candidate := range normalize.GenericCandidates(ingredient) {
		records, err := e.LookupCosts(ctx, candidate, year)
		if err != nil {
			return nil, "", err
		}
		if len(records) > 0 {
			slog.Debug("cost lookup satisfied by generic candidate",
				"ingredient", ingredient, "candidate", candidate, "count", len(records))
			return records, candidate, nil
		}
	}
	return nil, "", nil
}

// sortByCheapest orders equivalents by their cheapest record ascending;
// entries without records sink to the end. Trade name breaks ties.
func sortByCheapest(costs []EquivalentCost) {
	sort.SliceStable(costs, func(i, j int) bool {
		a, b := costs[i], costs[j]
		switch {
		case len(a.Records) == 0 && len(b.Records) == 0:
			return a.Product.TradeName < b.Product.TradeName
		case len(a.Records) == 0:
			return false
		case len(b.Records) == 0:
			return true
		}
		if a.Records[0].AvgSpendPerDose != b.Records[0].AvgSpendPerDose {
			return a.Records[0].AvgSpendPerDose < b.Records[0].AvgSpendPerDose
		}
		return a.Product.TradeName < b.Product.TradeName
	})
}
