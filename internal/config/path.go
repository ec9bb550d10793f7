// Package config provides configuration utilities for the application.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath expands ~ and environment variables in a file path.
// It handles both ~ for home directory and $VAR style environment variables.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = home
		}
	}

	return os.ExpandEnv(path)
}

// DefaultDataDir returns the directory holding the reference databases,
// creating it if needed.
func DefaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".local", "share", "rxcost")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// DefaultProductsDB returns the default path of the product reference database.
func DefaultProductsDB() string {
	return defaultDBPath("products.db")
}

// DefaultCostsDB returns the default path of the Medicare spending database.
func DefaultCostsDB() string {
	return defaultDBPath("medicare.db")
}

func defaultDBPath(name string) string {
	dir, err := DefaultDataDir()
	if err != nil {
		return name
	}
	return filepath.Join(dir, name)
}
