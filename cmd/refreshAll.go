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
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"

	"github.com/ademuri/taste-genealogy/internal/analysis"
)

var refreshAllCmd = &cobra.Command{
	Use:   "refresh-all",
	Short: "Refreshes the genealogy of every user",
	Long: `Runs the genealogy analysis for every user in the database with the configured
mode and granularity. Users whose catalog is unchanged are served from cache
unless --force is given.`,
	Run: func(cmd *cobra.Command, args []string) {
		err := refreshAll(cmd.Context(), viper.GetDuration("interval"))
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(refreshAllCmd)

	var interval time.Duration
	refreshAllCmd.Flags().DurationVar(&interval, "interval", 100*time.Millisecond, "Minimum time between two analyses")
	viper.BindPFlag("interval", refreshAllCmd.Flags().Lookup("interval"))
}

func refreshAll(ctx context.Context, interval time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	a, err := newAnalyzer(db, log)
	if err != nil {
		return err
	}

	users, err := db.ListUsers(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Refreshing %d users\n", len(users))

	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	limiter := rate.NewLimiter(limit, 1)

	errOccurred := false
	for _, user := range users {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		req, err := analysisRequest(user)
		if err != nil {
			return err
		}
		report, err := a.Analyze(ctx, req)
		if err != nil {
			errOccurred = true
			fmt.Printf("Error refreshing %q: %v\n", user, err)
			continue
		}
		fmt.Println(refreshSummary(report))
	}

	if errOccurred {
		return errors.New("error occurred while refreshing users")
	}
	return nil
}

func refreshSummary(r *analysis.Report) string {
	status := "computed"
	if r.FromCache {
		status = "cached"
	}
	if !r.Genealogy.Available {
		return fmt.Sprintf("%s (%s): %s", r.User, status, r.Genealogy.Reason)
	}
	return fmt.Sprintf("%s (%s): %d tracks, primary genre %s", r.User, status, r.TrackCount, r.Genealogy.PrimaryGenre)
}
