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
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/goccy/go-json"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ademuri/taste-genealogy/internal/analysis"
	"github.com/ademuri/taste-genealogy/internal/logging"
	"github.com/ademuri/taste-genealogy/internal/store"
)

const (
	formatYAML  = "yaml"
	formatJSON  = "json"
	formatTable = "table"
)

// analysisConfig starts from the defaults and applies the configured
// overrides. Matching constants live under the "match" key of the config file.
func analysisConfig() (analysis.Config, error) {
	cfg := analysis.DefaultConfig()
	if err := viper.UnmarshalKey("match", &cfg); err != nil {
		return cfg, fmt.Errorf("parsing match config: %w", err)
	}
	if n := viper.GetInt("top_n"); n > 0 {
		cfg.TopN = n
	}
	if days := viper.GetInt("cache_expiry_days"); days > 0 {
		cfg.CacheExpiry = time.Duration(days) * 24 * time.Hour
	}
	if scaleMax := viper.GetInt("rating_scale_max"); scaleMax > 0 {
		cfg.RatingScaleMax = float64(scaleMax)
	}
	return cfg, nil
}

func newLogger() (*zap.SugaredLogger, error) {
	return logging.New(viper.GetString("log_level"))
}

func newAnalyzer(db *store.Store, log *zap.SugaredLogger) (*analysis.Analyzer, error) {
	cfg, err := analysisConfig()
	if err != nil {
		return nil, err
	}
	return analysis.NewAnalyzer(db, db, db, cfg, log), nil
}

func analysisRequest(user string) (analysis.Request, error) {
	mode, err := analysis.ParseFilterMode(viper.GetString("mode"))
	if err != nil {
		return analysis.Request{}, err
	}
	granularity, err := analysis.ParseGranularity(viper.GetString("granularity"))
	if err != nil {
		return analysis.Request{}, err
	}
	return analysis.Request{
		User:         user,
		Mode:         mode,
		Granularity:  granularity,
		ForceRefresh: viper.GetBool("force"),
	}, nil
}

// Table is tabular command output with an optional summary line.
type Table struct {
	header  []string
	rows    [][]string
	summary string
}

func (t Table) String() string {
	out := new(bytes.Buffer)
	table := tablewriter.NewWriter(out)
	table.Header(t.header)
	for _, row := range t.rows {
		if err := table.Append(row); err != nil {
			return fmt.Sprintf("Error rendering table: %v", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Sprintf("Error rendering table: %v", err)
	}
	if t.summary != "" {
		fmt.Fprintf(out, "%s\n", t.summary)
	}
	return out.String()
}

// writeOutput encodes v in the configured format. table renders the table
// format; it may be nil for values without a tabular form.
func writeOutput(w io.Writer, format string, v interface{}, table func() Table) error {
	switch format {
	case formatYAML, "":
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(v); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return encoder.Close()
	case formatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(v); err != nil {
			return fmt.Errorf("encoding json: %w", err)
		}
		return nil
	case formatTable:
		if table == nil {
			return fmt.Errorf("format %q is not supported by this command", format)
		}
		_, err := fmt.Fprint(w, table().String())
		return err
	}
	return fmt.Errorf("unknown format %q", format)
}
