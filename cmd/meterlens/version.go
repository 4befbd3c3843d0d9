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

	"github.com/matthewgall/meterlens/internal/version"
)

var checkUpdates bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	RunE: func(cmd *cobra.Command, args []string) error {
		current := version.Get()
		fmt.Printf("meterlens %s (%s)\n", current, version.Commit)
		if !checkUpdates {
			return nil
		}

		release, err := version.CheckForUpdates(cmd.Context(), current, logger)
		if err != nil {
			logger.Debug("Update check failed", "error", err)
			return nil
		}
		if release != nil {
			fmt.Printf("A newer version is available: %s\n%s\n", release.TagName, release.HTMLURL)
		}
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolVar(&checkUpdates, "check", false, "check GitHub for a newer release")
	rootCmd.AddCommand(versionCmd)
}
