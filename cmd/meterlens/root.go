// Copyright 2025 Matthew Gall <me@matthewgall.dev>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matthewgall/meterlens/internal/cache"
	"github.com/matthewgall/meterlens/internal/config"
	"github.com/matthewgall/meterlens/internal/logging"
	"github.com/matthewgall/meterlens/internal/store"
	"github.com/matthewgall/meterlens/internal/version"
)

var (
	cfgFile  string
	dbPath   string
	userFlag string
	debug    bool
	jsonLogs bool

	cfg    *config.Config
	logger *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "meterlens",
	Short: "Estimate household electricity usage from photos",
	Long: `meterlens reads energy values from photos of meters, bills and supplier apps,
reconciles them into consumption records and projects annual usage and cost
using a seasonal profile for your region.`,
	Version:           version.Get(),
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: defaults plus METERLENS_* environment)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database file (overrides config)")
	rootCmd.PersistentFlags().StringVar(&userFlag, "user", "", "household user ID (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "log as JSON")
}

// setup loads and validates configuration before any command runs
func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.LoadConfig(cfgFile)
	if err != nil {
		return err
	}

	if dbPath != "" {
		loaded.DatabasePath = dbPath
	}
	if userFlag != "" {
		loaded.UserID = userFlag
	}
	if debug {
		loaded.Debug = true
	}

	if jsonLogs {
		logger = logging.NewJSONLogger(loaded.Debug)
	} else {
		logger = logging.NewLogger(loaded.Debug)
	}

	if err := loaded.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		return err
	}

	cfg = loaded
	logger.Debug("Configuration loaded", "config_file", cfgFile, "database", cfg.DatabasePath)
	return nil
}

// openStore opens the configured database
func openStore() (*store.Store, error) {
	s, err := store.Open(cfg.DatabasePath, logger)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return s, nil
}

// openCache opens the configured result cache
func openCache() (*cache.Cache, error) {
	c, err := cache.New(cache.Options{Path: cfg.CachePath, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	return c, nil
}
