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

var coherenceCmd = &cobra.Command{
	Use:     "coherence",
	Short:   "Reports how focused a user's taste is",
	Long:    `Scores tempo, energy, genre, key and mood consistency of the catalog from 0 (diverse) to 1 (focused).`,
	PreRunE: requireUser,
	Run: func(cmd *cobra.Command, args []string) {
		err := runCoherence(cmd.Context(), os.Stdout, viper.GetString("user"), viper.GetString("format"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error computing coherence: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(coherenceCmd)
}

func runCoherence(ctx context.Context, w io.Writer, user string, format string) error {
	report, err := analyze(ctx, user)
	if err != nil {
		return err
	}
	c := report.Coherence
	return writeOutput(w, format, c, func() Table { return coherenceTable(c) })
}

func coherenceTable(c analysis.CoherenceReport) Table {
	t := Table{header: []string{"Dimension", "Score"}}
	if !c.Available {
		t.summary = c.Reason
		return t
	}
	for _, row := range []struct {
		name  string
		score float64
	}{
		{"Tempo", c.TempoConsistency},
		{"Energy", c.EnergyConsistency},
		{"Genre", c.GenreCoherence},
		{"Key", c.KeyCoherence},
		{"Mood", c.MoodCoherence},
		{"Overall", c.Overall},
	} {
		t.rows = append(t.rows, []string{row.name, fmt.Sprintf("%.2f", row.score)})
	}
	t.summary = "Interpretation: " + c.InterpretationLabel
	return t
}
