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

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ademuri/taste-genealogy/internal/analysis"
)

var historyCmd = &cobra.Command{
	Use:     "history",
	Short:   "Lists past analysis runs",
	Long:    `Shows the newest snapshots recorded by fresh genealogy computations for the user.`,
	PreRunE: requireUser,
	Run: func(cmd *cobra.Command, args []string) {
		err := runHistory(cmd.Context(), os.Stdout, viper.GetString("user"), viper.GetString("format"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing history: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)

	var limit int
	historyCmd.Flags().IntVar(&limit, "limit", 12, "Number of snapshots to show")
	viper.BindPFlag("history_limit", historyCmd.Flags().Lookup("limit"))
}

func runHistory(ctx context.Context, w io.Writer, user string, format string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	snapshots, err := db.History(ctx, user, viper.GetInt("history_limit"))
	if err != nil {
		return err
	}
	return writeOutput(w, format, snapshots, func() Table { return historyTable(snapshots) })
}

func historyTable(snapshots []analysis.Snapshot) Table {
	t := Table{header: []string{"Date", "Mode", "Granularity", "Tracks", "Avg BPM", "Avg energy", "Primary genre", "Coherence"}}
	for _, s := range snapshots {
		t.rows = append(t.rows, []string{
			s.CreatedAt.Format("2006-01-02 15:04"),
			string(s.Mode),
			string(s.Granularity),
			fmt.Sprint(s.TrackCount),
			fmt.Sprintf("%.1f", s.AvgTempo),
			fmt.Sprintf("%.2f", s.AvgEnergy),
			s.PrimaryGenre,
			fmt.Sprintf("%.2f", s.Coherence),
		})
	}
	if len(snapshots) == 0 {
		t.summary = "No analysis runs recorded"
	}
	return t
}
