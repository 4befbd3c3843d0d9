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
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the analysis cache",
}

var cacheSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove expired cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCache()
		if err != nil {
			return err
		}
		removed, err := c.Sweep()
		if err != nil {
			return fmt.Errorf("sweeping cache: %w", err)
		}
		fmt.Printf("Removed %d expired entries\n", removed)
		return nil
	},
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache entry counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCache()
		if err != nil {
			return err
		}
		stats := c.Stats()
		fmt.Println(renderTable("Cache "+cfg.CachePath,
			[]string{"Entries", "Expired"},
			[][]string{{fmt.Sprintf("%d", stats.Total), fmt.Sprintf("%d", stats.Expired)}},
			[]columnAlignment{alignRight, alignRight},
		))
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cache entry",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCache()
		if err != nil {
			return err
		}
		if err := c.Clear(); err != nil {
			return fmt.Errorf("clearing cache: %w", err)
		}
		fmt.Println("Cache cleared")
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheSweepCmd, cacheStatsCmd, cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}
