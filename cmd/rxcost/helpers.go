package main

import (
	"github.com/rxcost/rxcost/internal/config"
	"github.com/rxcost/rxcost/internal/engine"
	"github.com/rxcost/rxcost/internal/match"
	"github.com/rxcost/rxcost/internal/service"
	"github.com/rxcost/rxcost/internal/storage"

	"github.com/spf13/viper"
)

// databasePaths resolves the reference database locations from config, with
// tilde and environment variable expansion.
func databasePaths() (products, costs string) {
	products = viper.GetString("database.products_path")
	if products == "" {
		products = config.DefaultProductsDB()
	}
	costs = viper.GetString("database.medicare_path")
	if costs == "" {
		costs = config.DefaultCostsDB()
	}
	return config.ExpandPath(products), config.ExpandPath(costs)
}

// initStore opens both reference databases read-only.
func initStore() (service.Store, error) {
	products, costs := databasePaths()
	store, err := storage.NewSQLiteStore(products, costs)
	if err != nil {
		return nil, service.NewUserError("could not open reference databases - run 'rxcost build' first", err)
	}
	return store, nil
}

// matcherConfig builds the matching constants from config, falling back to
// defaults for unset keys.
func matcherConfig() match.Config {
	cfg := match.DefaultConfig()
	if v := viper.GetInt("matcher.top_k"); v > 0 {
		cfg.TopK = v
	}
	if v := viper.GetInt("matcher.alternates"); v > 0 {
		cfg.Alternates = v
	}
	if v := viper.GetFloat64("matcher.strength_bonus"); v > 0 {
		cfg.StrengthBonus = v
	}
	if v := viper.GetFloat64("matcher.min_confidence"); v > 0 {
		cfg.MinConfidence = v
	}
	return cfg
}

// initEngine opens the store and wraps the engine in the memoizing cache.
// Callers own the returned store and must Close it.
func initEngine() (engine.Service, service.Store, error) {
	store, err := initStore()
	if err != nil {
		return nil, nil, err
	}
	return engine.NewCached(engine.New(store, matcherConfig())), store, nil
}
