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

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ademuri/taste-genealogy/internal/analysis"
	"github.com/ademuri/taste-genealogy/internal/store"
)

// trackFile is the format accepted by import-tracks.
type trackFile struct {
	Tracks []analysis.Track `yaml:"tracks" validate:"required,min=1,dive"`
}

var importTracksCmd = &cobra.Command{
	Use:   "import-tracks <file>",
	Short: "Imports analysed tracks from a YAML file",
	Long: `Adds the tracks listed in a YAML file to the user's catalog. Tracks that
match an existing one by artist, title and source update its features.`,
	Args:    cobra.ExactArgs(1),
	PreRunE: requireUser,
	Run: func(cmd *cobra.Command, args []string) {
		err := importTracks(cmd.Context(), viper.GetString("database"), viper.GetString("user"), args[0])
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(importTracksCmd)
}

func readTrackFile(path string) ([]analysis.Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening track file: %w", err)
	}
	defer f.Close()

	var tf trackFile
	if err := yaml.NewDecoder(f).Decode(&tf); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(&tf); err != nil {
		return nil, fmt.Errorf("invalid track file %s: %w", path, err)
	}
	return tf.Tracks, nil
}

func importTracks(ctx context.Context, dbPath string, user string, path string) error {
	tracks, err := readTrackFile(path)
	if err != nil {
		return err
	}

	db, err := store.New(dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	added, err := db.AddTracks(ctx, user, tracks)
	if err != nil {
		return fmt.Errorf("importing tracks: %w", err)
	}
	fmt.Printf("Imported %d tracks for %q (%d new, %d updated)\n", len(tracks), user, added, len(tracks)-added)
	return nil
}
