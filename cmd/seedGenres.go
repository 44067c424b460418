/*
Copyright 2020 Google LLC

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ademuri/taste-genealogy/internal/store"
	"github.com/ademuri/taste-genealogy/internal/taxonomy"
)

var seedGenresCmd = &cobra.Command{
	Use:   "seed-genres [file]",
	Short: "Loads the genre taxonomy into the database",
	Long: `Replaces the stored genre taxonomy with the one in the given YAML seed file,
or with the built-in taxonomy when no file is given. Cached genealogies are
discarded.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var path string
		if len(args) > 0 {
			path = args[0]
		}
		err := seedGenres(cmd.Context(), viper.GetString("database"), path)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(seedGenresCmd)
}

func seedGenres(ctx context.Context, dbPath string, seedPath string) error {
	nodes, err := readSeeds(seedPath)
	if err != nil {
		return err
	}

	db, err := store.New(dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if err := db.SaveGenres(ctx, nodes); err != nil {
		return fmt.Errorf("saving genres: %w", err)
	}
	fmt.Printf("Seeded %d genres\n", len(nodes))
	return nil
}

func readSeeds(path string) ([]taxonomy.GenreNode, error) {
	if path == "" {
		return taxonomy.DefaultNodes()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening seed file: %w", err)
	}
	defer f.Close()

	seeds, err := taxonomy.LoadSeeds(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	nodes, err := taxonomy.Resolve(seeds)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	// Reject cycles before anything is written.
	if _, err := taxonomy.New(nodes); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return nodes, nil
}
