package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/ademuri/taste-genealogy/internal/analysis"
)

func TestAnalysisConfig(t *testing.T) {
	viper.Set("top_n", 5)
	viper.Set("cache_expiry_days", 2)
	viper.Set("match", map[string]interface{}{
		"acceptance_floor": 40,
		"tie_break_margin": 3,
	})
	t.Cleanup(func() {
		viper.Set("top_n", 15)
		viper.Set("cache_expiry_days", 7)
		viper.Set("match", nil)
	})

	cfg, err := analysisConfig()
	if err != nil {
		t.Fatalf("analysisConfig() error: %v", err)
	}
	if cfg.TopN != 5 || cfg.CacheExpiry != 48*time.Hour {
		t.Errorf("TopN = %d, CacheExpiry = %v", cfg.TopN, cfg.CacheExpiry)
	}
	if cfg.AcceptanceFloor != 40 || cfg.TieBreakMargin != 3 {
		t.Errorf("AcceptanceFloor = %v, TieBreakMargin = %v", cfg.AcceptanceFloor, cfg.TieBreakMargin)
	}
	// Keys absent from the config keep their defaults.
	if want := analysis.DefaultConfig().ExactTagBonus; cfg.ExactTagBonus != want {
		t.Errorf("ExactTagBonus = %v, want %v", cfg.ExactTagBonus, want)
	}
}

func TestAnalysisRequest(t *testing.T) {
	viper.Set("mode", "personal")
	viper.Set("granularity", "simplified")
	t.Cleanup(func() {
		viper.Set("mode", "all")
		viper.Set("granularity", "detailed")
	})

	req, err := analysisRequest("alice")
	if err != nil {
		t.Fatalf("analysisRequest() error: %v", err)
	}
	if req.User != "alice" || req.Mode != analysis.ModePersonal || req.Granularity != analysis.Simplified {
		t.Errorf("analysisRequest() = %+v", req)
	}

	viper.Set("mode", "radio")
	if _, err := analysisRequest("alice"); err == nil {
		t.Error("analysisRequest() with mode radio succeeded, want error")
	}
}

func TestWriteOutput(t *testing.T) {
	v := struct {
		Name  string  `yaml:"name" json:"name"`
		Score float64 `yaml:"score" json:"score"`
	}{"Grime", 72.5}
	table := func() Table {
		return Table{
			header:  []string{"Genre", "Score"},
			rows:    [][]string{{"Grime", "72.5"}},
			summary: "1 genre",
		}
	}

	tests := []struct {
		format string
		want   []string
	}{
		{formatYAML, []string{"name: Grime\n", "score: 72.5\n"}},
		{formatJSON, []string{`"name": "Grime"`, `"score": 72.5`}},
		{formatTable, []string{"Grime", "72.5", "1 genre\n"}},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			out := new(bytes.Buffer)
			if err := writeOutput(out, tt.format, v, table); err != nil {
				t.Fatalf("writeOutput() error: %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(out.String(), want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
		})
	}

	if err := writeOutput(new(bytes.Buffer), "xml", v, table); err == nil {
		t.Error("writeOutput(xml) succeeded, want error")
	}
	if err := writeOutput(new(bytes.Buffer), formatTable, v, nil); err == nil {
		t.Error("writeOutput(table) without a table succeeded, want error")
	}
}
