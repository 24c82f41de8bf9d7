package main

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/metalagman/robolab/internal/challenge"
	"github.com/metalagman/robolab/internal/config"
	"github.com/spf13/viper"
)

var (
	defaultConfigPath = filepath.Join(".robolab", "config.yaml")
	jsonConfigPath    = filepath.Join(".robolab", "config.json")
)

// resolveConfigPath makes path absolute against root. The default YAML path
// falls back to config.json next to it when only that one exists.
func resolveConfigPath(root, path string) string {
	if path == "" {
		path = defaultConfigPath
	}
	isDefault := path == defaultConfigPath
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	if !isDefault {
		return path
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		alt := filepath.Join(root, jsonConfigPath)
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}
	return path
}

// loadConfig reads the configuration relative to root. Only an explicitly
// chosen config file has to exist.
func loadConfig(root string) (config.Config, error) {
	flagPath := viper.GetString("config")
	required := flagPath != "" && flagPath != defaultConfigPath
	return config.Load(viper.GetViper(), resolveConfigPath(root, flagPath), required)
}

func loadCatalog(cfg config.Config) (*challenge.Catalog, error) {
	if cfg.Catalog.Path != "" {
		return challenge.LoadFile(cfg.Catalog.Path)
	}
	return challenge.Default()
}
