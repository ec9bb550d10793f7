// Package match resolves free-text drug names to product identities through a
// staged pipeline: exact normalized lookup, then prefix lookup, then a fuzzy
// whole-catalog scan. Each stage is a pure function from the normalized query
// and a candidate set to scored candidates; stages compose in fixed order and
// the first stage that produces candidates supplies the best match, while
// later lookups only widen the alternate list.
package match

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/rxcost/rxcost/internal/model"
	"github.com/rxcost/rxcost/internal/normalize"
	"github.com/rxcost/rxcost/internal/service"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

// Stage scoring constants. Exact always outranks prefix, prefix always
// outranks fuzzy: exact pins 100, prefix spans [50, 80], and fuzzy scores are
// only consulted when the earlier stages found nothing.
const (
	scoreExact       = 100.0
	scorePrefixBase  = 80.0
	maxPrefixPenalty = 30.0
	minPrefixLength  = 3

	// Fuzzy candidates below this score are noise, not matches. Queries with
	// nothing resembling them in the catalog come back with no candidates at
	// all rather than a top-K of zeros.
	fuzzyFloor = 20.0

	// SQLite sees at most this many leading characters of the query so the
	// prefix lookup stays on the name index; the exact prefix filter runs
	// in memory afterwards.
	indexPrefixLength = 8
)

// Config holds the tunable matching constants.
type Config struct {
	// TopK is how many fuzzy-stage candidates are kept.
	TopK int
	// Alternates is how many runner-up matches a result carries.
	Alternates int
	// StrengthBonus is added to candidates whose strength equals the query
	// strength, capped so no score exceeds 100.
	StrengthBonus float64
	// MinConfidence is the acceptance threshold below which a result is
	// flagged low-confidence.
	MinConfidence float64
}

// DefaultConfig returns the standard matching constants.
func DefaultConfig() Config {
	return Config{
		TopK:          5,
		Alternates:    5,
		StrengthBonus: 15,
		MinConfidence: 40,
	}
}

// Matcher resolves drug names against a product store.
type Matcher struct {
	store  service.ProductStore
	metric *metrics.SorensenDice
	cfg    Config
}

// New creates a matcher over the given product store. Zero config fields fall
// back to the defaults.
func New(store service.ProductStore, cfg Config) *Matcher {
	def := DefaultConfig()
	if cfg.TopK <= 0 {
		cfg.TopK = def.TopK
	}
	if cfg.Alternates <= 0 {
		cfg.Alternates = def.Alternates
	}
	if cfg.StrengthBonus <= 0 {
		cfg.StrengthBonus = def.StrengthBonus
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = def.MinConfidence
	}

	metric := metrics.NewSorensenDice()
	metric.CaseSensitive = false

	return &Matcher{store: store, metric: metric, cfg: cfg}
}

// Match resolves drugName (and optional strength, empty for none) to the
// best-matching product identity plus ranked alternates. "No match" is a
// low-confidence result, not an error; service.ErrNotFound is returned only
// when the product store holds zero rows.
func (m *Matcher) Match(ctx context.Context, drugName, strength string) (*model.MatchResult, error) {
	key := normalize.Normalize(drugName)
	if key == "" {
		return nil, fmt.Errorf("drug name is empty")
	}

	candidates, err := m.collectCandidates(ctx, key)
	if err != nil {
		return nil, err
	}

	if len(candidates) == 0 {
		count, err := m.store.CountProducts(ctx)
		if err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, service.ErrNotFound
		}
		slog.Debug("no match for query", "key", key)
		return &model.MatchResult{
			Classification: model.ClassificationUnknown,
			Alternates:     []model.ScoredProduct{},
			LowConfidence:  true,
		}, nil
	}

	m.applyStrengthBonus(candidates, strength)
	sortCandidates(candidates, queryShape(key, candidates))

	best := candidates[0]
	alternates := candidates[1:]
	if len(alternates) > m.cfg.Alternates {
		alternates = alternates[:m.cfg.Alternates]
	}

	return &model.MatchResult{
		Best:           best,
		Alternates:     alternates,
		Classification: best.Product.Classification(),
		LowConfidence:  best.Score < m.cfg.MinConfidence,
	}, nil
}

// collectCandidates runs the stages. Exact and prefix lookups always run so
// prefix hits can populate alternates behind an exact best match; the fuzzy
// scan is the fallback when neither found anything.
func (m *Matcher) collectCandidates(ctx context.Context, key string) ([]model.ScoredProduct, error) {
	var candidates []model.ScoredProduct
	seen := make(map[string]struct{})

	add := func(p model.ProductIdentity, stage model.MatchStage, score float64) {
		id := p.ApplNo + "/" + p.ProductNo + "/" + p.TradeName + "/" + p.Strength
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		candidates = append(candidates, model.ScoredProduct{Product: p, Stage: stage, Score: score})
	}

	exact, err := m.store.ProductsByExactName(ctx, key)
	if err != nil {
		return nil, err
	}
	for _, p := range exact {
		add(p, model.StageExact, scoreExact)
	}

	if len(key) >= minPrefixLength {
		indexPrefix := key
		if len(indexPrefix) > indexPrefixLength {
			indexPrefix = indexPrefix[:indexPrefixLength]
		}
		rows, err := m.store.ProductsByNamePrefix(ctx, indexPrefix, 0)
		if err != nil {
			return nil, err
		}
		for _, p := range rows {
			if score, ok := prefixScore(key, p); ok {
				add(p, model.StagePrefix, score)
			}
		}
	}

	if len(candidates) == 0 {
		all, err := m.store.AllProducts(ctx)
		if err != nil {
			return nil, err
		}
		for _, sp := range m.fuzzyCandidates(key, all) {
			add(sp.Product, sp.Stage, sp.Score)
		}
	}

	return candidates, nil
}

// prefixScore scores a prefix-stage candidate: 80 minus a penalty
// proportional to how much longer the matched name is than the query.
func prefixScore(key string, p model.ProductIdentity) (float64, bool) {
	best := 0.0
	found := false
	for _, name := range []string{normalize.Normalize(p.TradeName), normalize.Normalize(p.Ingredient)} {
		if name == "" || !strings.HasPrefix(name, key) {
			continue
		}
		penalty := min(maxPrefixPenalty, float64(len(name)-len(key)))
		if score := scorePrefixBase - penalty; !found || score > best {
			best = score
			found = true
		}
	}
	return best, found
}

// fuzzyCandidates similarity-scores the whole catalog against the query and
// keeps the top K.
func (m *Matcher) fuzzyCandidates(key string, products []model.ProductIdentity) []model.ScoredProduct {
	scored := make([]model.ScoredProduct, 0, len(products))
	for _, p := range products {
		trade := strutil.Similarity(key, normalize.Normalize(p.TradeName), m.metric)
		ingredient := strutil.Similarity(key, normalize.Normalize(p.Ingredient), m.metric)
		score := 100 * max(trade, ingredient)
		if score < fuzzyFloor {
			continue
		}
		scored = append(scored, model.ScoredProduct{Product: p, Stage: model.StageFuzzy, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		if scored[i].Product.TradeName != scored[j].Product.TradeName {
			return scored[i].Product.TradeName < scored[j].Product.TradeName
		}
		return scored[i].Product.Applicant < scored[j].Product.Applicant
	})

	if len(scored) > m.cfg.TopK {
		scored = scored[:m.cfg.TopK]
	}
	return scored
}

// applyStrengthBonus boosts candidates whose normalized strength equals the
// queried strength. Scores never exceed 100; the StrengthMatch flag breaks
// ties between saturated scores.
func (m *Matcher) applyStrengthBonus(candidates []model.ScoredProduct, strength string) {
	qs := normalize.Normalize(strength)
	if qs == "" {
		return
	}
	for i := range candidates {
		if normalize.Normalize(candidates[i].Product.Strength) == qs {
			candidates[i].StrengthMatch = true
			candidates[i].Score = min(100, candidates[i].Score+m.cfg.StrengthBonus)
		}
	}
}

// queryShape guesses whether the query names a brand or an ingredient by
// counting which kind of name the candidates matched on. Brand wins ties.
func queryShape(key string, candidates []model.ScoredProduct) model.Classification {
	tradeHits, ingredientHits := 0, 0
	for _, c := range candidates {
		if strings.HasPrefix(normalize.Normalize(c.Product.TradeName), key) {
			tradeHits++
		}
		if strings.HasPrefix(normalize.Normalize(c.Product.Ingredient), key) {
			ingredientHits++
		}
	}
	if ingredientHits > tradeHits {
		return model.ClassificationGeneric
	}
	return model.ClassificationBrand
}

// sortCandidates orders candidates by score descending, breaking ties by
// strength match, then by preferring the classification the query shape
// suggests, then alphabetically for determinism.
func sortCandidates(candidates []model.ScoredProduct, preferred model.Classification) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.StrengthMatch != b.StrengthMatch {
			return a.StrengthMatch
		}
		aPref := a.Product.Classification() == preferred
		bPref := b.Product.Classification() == preferred
		if aPref != bPref {
			return aPref
		}
		if a.Product.TradeName != b.Product.TradeName {
			return a.Product.TradeName < b.Product.TradeName
		}
		return a.Product.Applicant < b.Product.Applicant
	})
}
