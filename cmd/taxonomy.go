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

	"github.com/ademuri/taste-genealogy/internal/taxonomy"
)

type genreView struct {
	ID          int64       `yaml:"id" json:"id"`
	Name        string      `yaml:"name" json:"name"`
	Slug        string      `yaml:"slug" json:"slug"`
	Era         string      `yaml:"era,omitempty" json:"era,omitempty"`
	Tempo       string      `yaml:"tempo" json:"tempo"`
	Energy      string      `yaml:"energy" json:"energy"`
	Origin      string      `yaml:"origin,omitempty" json:"origin,omitempty"`
	Description string      `yaml:"description,omitempty" json:"description,omitempty"`
	Children    []genreView `yaml:"children,omitempty" json:"children,omitempty"`
}

type genreDetail struct {
	Genre       genreView `yaml:"genre" json:"genre"`
	Lineage     []string  `yaml:"lineage" json:"lineage"`
	Children    []string  `yaml:"children,omitempty" json:"children,omitempty"`
	Descendants []string  `yaml:"descendants,omitempty" json:"descendants,omitempty"`
}

var taxonomyCmd = &cobra.Command{
	Use:   "taxonomy [genre]",
	Short: "Shows the genre taxonomy",
	Long: `Without arguments, prints the full genre tree. With a genre id or slug, prints
its lineage and descendants. With --tempo and --energy, lists the genres whose
ranges contain both values.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var genre string
		if len(args) > 0 {
			genre = args[0]
		}
		err := runTaxonomy(cmd.Context(), os.Stdout, genre, viper.GetString("format"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error showing taxonomy: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(taxonomyCmd)

	var tempo float64
	taxonomyCmd.Flags().Float64Var(&tempo, "tempo", 0, "Find genres containing this tempo (requires --energy)")
	viper.BindPFlag("signature_tempo", taxonomyCmd.Flags().Lookup("tempo"))

	var energy float64
	taxonomyCmd.Flags().Float64Var(&energy, "energy", -1, "Find genres containing this energy (requires --tempo)")
	viper.BindPFlag("signature_energy", taxonomyCmd.Flags().Lookup("energy"))
}

func runTaxonomy(ctx context.Context, w io.Writer, genre string, format string) error {
	if ctx == nil {
		ctx = context.Background()
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

	tempo, energy := viper.GetFloat64("signature_tempo"), viper.GetFloat64("signature_energy")
	switch {
	case tempo > 0 && energy >= 0:
		var views []genreView
		for _, n := range tax.FindBySonicSignature(tempo, energy) {
			views = append(views, newGenreView(n))
		}
		return writeOutput(w, format, views, func() Table { return genreTable(views) })
	case genre != "":
		node, ok := tax.Lookup(genre)
		if !ok {
			return fmt.Errorf("unknown genre %q", genre)
		}
		detail := genreDetail{
			Genre:       newGenreView(node),
			Lineage:     names(tax.Lineage(node.ID)),
			Children:    names(tax.Children(node.ID)),
			Descendants: names(tax.Descendants(node.ID)),
		}
		return writeOutput(w, format, detail, func() Table { return genreDetailTable(detail) })
	}

	tree := treeViews(tax.FullTree())
	return writeOutput(w, format, tree, func() Table { return genreTable(flatten(tree, 0)) })
}

func newGenreView(n taxonomy.GenreNode) genreView {
	return genreView{
		ID:          n.ID,
		Name:        n.Name,
		Slug:        n.Slug,
		Era:         n.Era(),
		Tempo:       fmt.Sprintf("%g-%g", n.TempoMin, n.TempoMax),
		Energy:      fmt.Sprintf("%g-%g", n.EnergyMin, n.EnergyMax),
		Origin:      n.OriginLocation,
		Description: n.Description,
	}
}

func treeViews(nodes []taxonomy.TreeNode) []genreView {
	var out []genreView
	for _, n := range nodes {
		v := newGenreView(n.GenreNode)
		v.Children = treeViews(n.Children)
		out = append(out, v)
	}
	return out
}

// flatten lists a tree depth first, indenting names by depth.
func flatten(views []genreView, depth int) []genreView {
	var out []genreView
	for _, v := range views {
		children := v.Children
		v.Children = nil
		v.Name = strings.Repeat("  ", depth) + v.Name
		out = append(out, v)
		out = append(out, flatten(children, depth+1)...)
	}
	return out
}

func names(nodes []taxonomy.GenreNode) []string {
	var out []string
	for _, n := range nodes {
		out = append(out, n.Name)
	}
	return out
}

func genreTable(views []genreView) Table {
	t := Table{header: []string{"ID", "Genre", "Slug", "Era", "BPM", "Energy"}}
	for _, v := range views {
		t.rows = append(t.rows, []string{fmt.Sprint(v.ID), v.Name, v.Slug, v.Era, v.Tempo, v.Energy})
	}
	return t
}

func genreDetailTable(d genreDetail) Table {
	t := genreTable([]genreView{d.Genre})
	t.summary = "Lineage: " + strings.Join(d.Lineage, " → ")
	if len(d.Descendants) > 0 {
		t.summary += "\nDescendants: " + strings.Join(d.Descendants, ", ")
	}
	return t
}
