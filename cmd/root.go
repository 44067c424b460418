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
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/ademuri/taste-genealogy/internal/metrics"
	"github.com/ademuri/taste-genealogy/internal/store"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "taste-genealogy",
	Short: "Traces the genre ancestry of a music catalog",
	Long: `Classifies every track of a catalog against a curated genre taxonomy,
aggregates the matches into weighted influences and explains where the
resulting taste comes from.`,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return writeMetrics(viper.GetString("metrics_file"))
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default is $HOME/.taste-genealogy.yaml)")

	var user string
	rootCmd.PersistentFlags().StringVarP(&user, "user", "u", "", "User whose catalog to act on")
	viper.BindPFlag("user", rootCmd.PersistentFlags().Lookup("user"))

	var databasePath string
	rootCmd.PersistentFlags().StringVarP(
		&databasePath, "database", "d", "./genealogy.db", "Path to the SQLite database")
	viper.BindPFlag("database", rootCmd.PersistentFlags().Lookup("database"))

	var logLevel string
	rootCmd.PersistentFlags().StringVar(&logLevel, "log_level", "warn", "Log level (debug, info, warn, error)")
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log_level"))

	var mode string
	rootCmd.PersistentFlags().StringVar(&mode, "mode", "all", "Which tracks to analyse: all, dj or personal")
	viper.BindPFlag("mode", rootCmd.PersistentFlags().Lookup("mode"))

	var granularity string
	rootCmd.PersistentFlags().StringVar(&granularity, "granularity", "detailed", "Influence granularity: detailed or simplified")
	viper.BindPFlag("granularity", rootCmd.PersistentFlags().Lookup("granularity"))

	var force bool
	rootCmd.PersistentFlags().BoolVarP(&force, "force", "f", false, "Recompute even when a valid cached result exists")
	viper.BindPFlag("force", rootCmd.PersistentFlags().Lookup("force"))

	var topN int
	rootCmd.PersistentFlags().IntVar(&topN, "top_n", 15, "Maximum number of influences to report")
	viper.BindPFlag("top_n", rootCmd.PersistentFlags().Lookup("top_n"))

	var cacheExpiryDays int
	rootCmd.PersistentFlags().IntVar(&cacheExpiryDays, "cache_expiry_days", 7, "Age in days after which a cached result is recomputed")
	viper.BindPFlag("cache_expiry_days", rootCmd.PersistentFlags().Lookup("cache_expiry_days"))

	var ratingScaleMax int
	rootCmd.PersistentFlags().IntVar(&ratingScaleMax, "rating_scale_max", 255, "Maximum value of the track rating scale")
	viper.BindPFlag("rating_scale_max", rootCmd.PersistentFlags().Lookup("rating_scale_max"))

	var format string
	rootCmd.PersistentFlags().StringVar(&format, "format", formatYAML, "Output format: yaml, json or table")
	viper.BindPFlag("format", rootCmd.PersistentFlags().Lookup("format"))

	var metricsFile string
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics_file", "", "If set, write Prometheus metrics to this file after each command")
	viper.BindPFlag("metrics_file", rootCmd.PersistentFlags().Lookup("metrics_file"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".taste-genealogy" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".taste-genealogy")
	}

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	// See https://github.com/spf13/viper/pull/852
	rootCmd.Flags().VisitAll(func(f *pflag.Flag) {
		if viper.IsSet(f.Name) && viper.GetString(f.Name) != "" {
			rootCmd.Flags().Set(f.Name, viper.GetString(f.Name))
		}
	})
}

func requireUser(cmd *cobra.Command, args []string) error {
	if viper.GetString("user") == "" {
		return fmt.Errorf("required flag(s) \"user\" not set")
	}
	return nil
}

func openStore() (*store.Store, error) {
	db, err := store.New(viper.GetString("database"))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

// writeMetrics dumps the process metrics to path in the textfile collector
// format. An empty path disables the dump.
func writeMetrics(path string) error {
	if path == "" {
		return nil
	}
	if err := metrics.WriteFile(path); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
