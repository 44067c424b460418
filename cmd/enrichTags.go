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
	"strings"
	"time"

	"github.com/ademuri/lastfm-go/lastfm"
	"github.com/avast/retry-go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"

	"github.com/ademuri/taste-genealogy/internal/metrics"
	"github.com/ademuri/taste-genealogy/internal/store"
	"github.com/ademuri/taste-genealogy/internal/taxonomy"
)

var lastFmApiKey string
var lastFmSecret string

// Tags that describe listening habits rather than a genre.
var junkTags = map[string]bool{
	"seen live":            true,
	"favorites":            true,
	"favourites":           true,
	"favorite":             true,
	"albums i own":         true,
	"my music":             true,
	"love":                 true,
	"awesome":              true,
	"beautiful":            true,
	"female vocalists":     true,
	"male vocalists":       true,
	"under 2000 listeners": true,
}

// tagFetcher returns the top tags of an artist, most used first.
type tagFetcher func(artist string) ([]string, error)

var enrichTagsCmd = &cobra.Command{
	Use:   "enrich-tags",
	Short: "Fills missing genre tags from last.fm",
	Long: `Fetches the top last.fm tags of every artist with untagged tracks and stores
the best genre tag on those tracks. Tags entered by hand are never replaced.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if err := requireUser(cmd, args); err != nil {
			return err
		}
		if viper.GetString("api_key") == "" || viper.GetString("secret") == "" {
			return fmt.Errorf("required flag(s) \"api_key\", \"secret\" not set")
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		err := enrichTags(cmd.Context(), viper.GetString("user"), viper.GetString("api_key"), viper.GetString("secret"))
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(enrichTagsCmd)

	enrichTagsCmd.Flags().StringVar(&lastFmApiKey, "api_key", "", "last.fm API key")
	viper.BindPFlag("api_key", enrichTagsCmd.Flags().Lookup("api_key"))

	enrichTagsCmd.Flags().StringVar(&lastFmSecret, "secret", "", "last.fm secret")
	viper.BindPFlag("secret", enrichTagsCmd.Flags().Lookup("secret"))
}

func enrichTags(ctx context.Context, user string, apiKey string, secret string) error {
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

	client := lastfm.New(apiKey, secret)
	client.SetUserAgent("taste-genealogy/1.0")
	limiter := rate.NewLimiter(rate.Every(1*time.Second), 1)
	return enrichArtists(ctx, db, user, tax, lastfmTopTags(client), limiter)
}

func enrichArtists(ctx context.Context, db *store.Store, user string, tax *taxonomy.Taxonomy, fetch tagFetcher, limiter *rate.Limiter) error {
	artists, err := db.ArtistsMissingTags(ctx, user)
	if err != nil {
		return err
	}
	fmt.Printf("Found %d artists with untagged tracks\n", len(artists))

	errOccurred := false
	for i, artist := range artists {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		fmt.Printf("[%d/%d] Fetching tags for artist: %s\n", i+1, len(artists), artist)

		tags, err := fetch(artist)
		if err != nil {
			errOccurred = true
			fmt.Printf("Error fetching tags for artist %s: %v\n", artist, err)
			continue
		}
		tag := pickGenreTag(tags, tax)
		if tag == "" {
			fmt.Printf("No genre tag found for artist %s\n", artist)
			continue
		}

		n, err := db.SetArtistGenreTag(ctx, user, artist, tag)
		if err != nil {
			return fmt.Errorf("saving tag for artist %s: %w", artist, err)
		}
		fmt.Printf("Tagged %d tracks by %s as %q\n", n, artist, tag)
	}

	if errOccurred {
		return errors.New("error occurred while fetching tags")
	}
	return nil
}

// pickGenreTag prefers the most used tag naming a known genre, then the most
// used tag that is not junk.
func pickGenreTag(tags []string, tax *taxonomy.Taxonomy) string {
	var fallback string
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		normalized := strings.ToLower(tag)
		if normalized == "" || junkTags[normalized] {
			continue
		}
		if tax != nil && isGenre(normalized, tax) {
			return tag
		}
		if fallback == "" {
			fallback = tag
		}
	}
	return fallback
}

func isGenre(tag string, tax *taxonomy.Taxonomy) bool {
	slug := strings.ReplaceAll(tag, " ", "-")
	if _, ok := tax.NodeBySlug(slug); ok {
		return true
	}
	for _, n := range tax.All() {
		if strings.ToLower(n.Name) == tag {
			return true
		}
	}
	return false
}

func lastfmTopTags(client *lastfm.Api) tagFetcher {
	return func(artist string) ([]string, error) {
		var topTags lastfm.ArtistGetTopTags
		err := retry.Do(
			func() error {
				var err error
				topTags, err = client.Artist.GetTopTags(lastfm.P{
					"artist":      artist,
					"autocorrect": 1,
				})
				metrics.LastfmRequests.WithLabelValues("artist.getTopTags", requestStatus(err)).Inc()
				return err
			},
			retry.RetryIf(func(err error) bool {
				var lerr *lastfm.LastfmError
				if errors.As(err, &lerr) && lerr.Code/100 == 5 {
					fmt.Printf("last.fm errored, retrying: %v\n", lerr)
					return true
				}
				return false
			}),
		)
		if err != nil {
			return nil, err
		}

		var tags []string
		for _, t := range topTags.Tags {
			tags = append(tags, t.Name)
		}
		return tags, nil
	}
}

func requestStatus(err error) string {
	if err == nil {
		return "ok"
	}
	var lerr *lastfm.LastfmError
	if errors.As(err, &lerr) {
		return fmt.Sprint(lerr.Code)
	}
	return "error"
}
