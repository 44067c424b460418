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
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ademuri/taste-genealogy/internal/analysis"
	"github.com/ademuri/taste-genealogy/internal/store"
	"github.com/ademuri/taste-genealogy/internal/taxonomy"
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose <genre>",
	Short: "Explains why tracks match a genre",
	Long: `Scores every track of the catalog against one genre, given by id or slug, and
lists the qualifying matches with a per-factor breakdown. The verdict flags
genres that appear only because of free-text genre tags.`,
	Args:    cobra.ExactArgs(1),
	PreRunE: requireUser,
	Run: func(cmd *cobra.Command, args []string) {
		err := runDiagnose(cmd.Context(), os.Stdout, viper.GetString("user"), args[0], viper.GetString("format"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error diagnosing %q: %v\n", args[0], err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(diagnoseCmd)

	var limit int
	diagnoseCmd.Flags().IntVar(&limit, "limit", 10, "Number of matches to show in table output")
	viper.BindPFlag("diagnose_limit", diagnoseCmd.Flags().Lookup("limit"))
}

func loadTaxonomy(ctx context.Context, db *store.Store) (*taxonomy.Taxonomy, error) {
	tax, err := db.LoadTaxonomy(ctx)
	if errors.Is(err, store.ErrNoGenres) {
		return nil, errors.New("no genres seeded, run 'seed-genres' first")
	}
	return tax, err
}

func runDiagnose(ctx context.Context, w io.Writer, user string, genre string, format string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	mode, err := analysis.ParseFilterMode(viper.GetString("mode"))
	if err != nil {
		return err
	}
	cfg, err := analysisConfig()
	if err != nil {
		return err
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	tax, err := loadTaxonomy(ctx, db)
	if err != nil {
		return err
	}
	node, ok := tax.Lookup(genre)
	if !ok {
		return fmt.Errorf("unknown genre %q", genre)
	}
	tracks, err := db.ListTracks(ctx, user, mode)
	if err != nil {
		return err
	}

	d := analysis.NewMatcher(cfg).Diagnose(tracks, node)
	limit := viper.GetInt("diagnose_limit")
	return writeOutput(w, format, d, func() Table { return diagnosisTable(d, limit) })
}

func diagnosisTable(d analysis.Diagnosis, limit int) Table {
	t := Table{header: []string{
		"#", "Title", "Artist", "BPM", "Energy", "Tag", "Tag bonus", "Tempo score", "Energy score", "Total", "Strength",
	}}
	for i, m := range d.Matches {
		if limit > 0 && i >= limit {
			break
		}
		bpm := "-"
		if tempo, ok := m.Track.MatchTempo(); ok {
			bpm = fmt.Sprintf("%.1f", tempo)
		}
		t.rows = append(t.rows, []string{
			fmt.Sprint(i + 1),
			m.Track.Title,
			m.Track.Artist,
			bpm,
			optional(m.Track.Energy, "%.2f"),
			m.Track.GenreTag,
			fmt.Sprintf("%.0f", m.Breakdown.TagBonus),
			fmt.Sprintf("%.1f", m.Breakdown.TempoScore),
			fmt.Sprintf("%.1f", m.Breakdown.EnergyScore),
			fmt.Sprintf("%.1f", m.Breakdown.Total),
			m.Strength,
		})
	}

	summary := fmt.Sprintf("%s (%s): %d of %d tracks match; %d by tag, %d in tempo range, %d strong",
		d.Genre.Name, d.Genre.Era(), len(d.Matches), d.TrackCount, d.TagMatches, d.InRangeMatches, d.StrongMatches)
	for _, warning := range d.Warnings {
		summary += "\nWarning: " + warning
	}
	t.summary = summary + "\nVerdict: " + d.Verdict
	return t
}
