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
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ademuri/taste-genealogy/internal/analysis"
)

var genealogyCmd = &cobra.Command{
	Use:   "genealogy",
	Short: "Reports the genre genealogy of a user's catalog",
	Long: `Classifies every track against the genre taxonomy and reports the weighted
influences, the lineage of the primary genre and a short narrative. Results
are cached until the catalog changes or the cache expires.`,
	PreRunE: requireUser,
	Run: func(cmd *cobra.Command, args []string) {
		err := runGenealogy(cmd.Context(), os.Stdout, viper.GetString("user"), viper.GetString("format"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error generating genealogy: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(genealogyCmd)
}

func runGenealogy(ctx context.Context, w io.Writer, user string, format string) error {
	report, err := analyze(ctx, user)
	if err != nil {
		return err
	}
	return writeOutput(w, format, report, func() Table { return genealogyTable(report) })
}

// analyze runs one analysis for user with the configured request options.
func analyze(ctx context.Context, user string) (*analysis.Report, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := analysisRequest(user)
	if err != nil {
		return nil, err
	}

	db, err := openStore()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	log, err := newLogger()
	if err != nil {
		return nil, err
	}
	defer log.Sync()

	a, err := newAnalyzer(db, log)
	if err != nil {
		return nil, err
	}
	report, err := a.Analyze(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("analyzing %q: %w", user, err)
	}
	return report, nil
}

func genealogyTable(r *analysis.Report) Table {
	t := Table{header: []string{"#", "Genre", "Era", "Share", "Tracks", "Avg BPM", "Subgenres"}}
	g := r.Genealogy
	if !g.Available {
		t.summary = g.Reason
		return t
	}

	for i, inf := range g.Influences {
		t.rows = append(t.rows, []string{
			fmt.Sprint(i + 1),
			inf.GenreName,
			inf.Era,
			fmt.Sprintf("%.1f%%", inf.Percentage),
			fmt.Sprint(inf.TrackCount),
			optional(inf.AvgTempo, "%.1f"),
			strings.Join(inf.Subgenres, ", "),
		})
	}
	t.summary = fmt.Sprintf("Lineage: %s\n%d of %d tracks classified",
		strings.Join(g.Lineage, " → "), g.ClassifiedTracks, r.TrackCount)
	if r.FromCache {
		t.summary += fmt.Sprintf(" (cached %s)", r.ComputedAt.Format("2006-01-02 15:04"))
	}
	return t
}

func optional(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}
