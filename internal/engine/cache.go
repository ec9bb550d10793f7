package engine

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/rxcost/rxcost/internal/model"
)

// Cached is a memoizing decorator around a Service. The underlying reference
// store is immutable, so entries never go stale on their own; Invalidate
// clears the cache explicitly (e.g. after a dataset rebuild). Cached results
// are shared between callers and must be treated as read-only.
type Cached struct {
	inner   Service
	mu      sync.RWMutex
	entries map[string]any
}

// Compile-time interface check.
var _ Service = (*Cached)(nil)

// NewCached wraps a service with a keyed lookup cache.
func NewCached(inner Service) *Cached {
	return &Cached{
		inner:   inner,
		entries: make(map[string]any),
	}
}

// Invalidate drops every cached entry.
func (c *Cached) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]any)
}

// Len reports the number of cached entries.
func (c *Cached) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cached) get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *Cached) put(key string, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = v
}

func cacheKey(op string, args ...string) string {
	return op + "\x00" + strings.Join(args, "\x00")
}

// MatchIdentity implements Service. Errors are never cached.
func (c *Cached) MatchIdentity(ctx context.Context, drugName, strength string) (*model.MatchResult, error) {
	key := cacheKey("match", drugName, strength)
	if v, ok := c.get(key); ok {
		return v.(*model.MatchResult), nil
	}
	result, err := c.inner.MatchIdentity(ctx, drugName, strength)
	if err != nil {
		return nil, err
	}
	c.put(key, result)
	return result, nil
}

// FindEquivalents implements Service.
func (c *Cached) FindEquivalents(ctx context.Context, ingredient, strength, form, route string) ([]model.ProductIdentity, error) {
	key := cacheKey("equivalents", ingredient, strength, form, route)
	if v, ok := c.get(key); ok {
		return v.([]model.ProductIdentity), nil
	}
	result, err := c.inner.FindEquivalents(ctx, ingredient, strength, form, route)
	if err != nil {
		return nil, err
	}
	c.put(key, result)
	return result, nil
}

// GenericCandidates implements Service. The computation is pure and cheap, so
// it bypasses the cache.
func (c *Cached) GenericCandidates(ingredient string) []string {
	return c.inner.GenericCandidates(ingredient)
}

// LatestYear implements Service.
func (c *Cached) LatestYear(ctx context.Context) (int, error) {
	key := cacheKey("latest_year")
	if v, ok := c.get(key); ok {
		return v.(int), nil
	}
	year, err := c.inner.LatestYear(ctx)
	if err != nil {
		return 0, err
	}
	c.put(key, year)
	return year, nil
}

// LookupCosts implements Service.
func (c *Cached) LookupCosts(ctx context.Context, name string, year int) (model.RankedCostList, error) {
	key := cacheKey("costs", name, strconv.Itoa(year))
	if v, ok := c.get(key); ok {
		return v.(model.RankedCostList), nil
	}
	result, err := c.inner.LookupCosts(ctx, name, year)
	if err != nil {
		return nil, err
	}
	c.put(key, result)
	return result, nil
}

// CheapestEquivalents implements Service.
func (c *Cached) CheapestEquivalents(ctx context.Context, drugName, strength string) (*CostComparison, error) {
	key := cacheKey("cheapest", drugName, strength)
	if v, ok := c.get(key); ok {
		return v.(*CostComparison), nil
	}
	result, err := c.inner.CheapestEquivalents(ctx, drugName, strength)
	if err != nil {
		return nil, err
	}
	c.put(key, result)
	return result, nil
}
