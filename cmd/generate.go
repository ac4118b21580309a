package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/mdabushayem62/plex-playlists-sub003/core/generator"
	"github.com/mdabushayem62/plex-playlists-sub003/core/selection"

	"github.com/spf13/cobra"
)

var (
	generateWindow   string
	generateStrategy string
	generateCount    int
	generateGenres   []string
	generateMoods    []string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate one playlist and publish it to Plex",
	Long: `Generate a playlist for a time window (or the current time of day when
no window is given), publish it to the Plex server, and save the record locally.`,
	Run: func(cmd *cobra.Command, args []string) {
		svc := newServices()
		defer svc.close()

		playlist, err := svc.generator.Generate(context.Background(), generator.Request{
			Window:      generateWindow,
			Strategy:    generateStrategy,
			TargetCount: generateCount,
			Genres:      generateGenres,
			Moods:       generateMoods,
		})
		if err != nil && !errors.Is(err, selection.ErrInsufficientCandidates) {
			log.Fatalf("generation failed: %v", err)
		}
		if playlist == nil {
			log.Fatalf("generation failed: %v", err)
		}
		if err != nil {
			fmt.Printf("warning: %v\n", err)
		}

		fmt.Printf("created %q (%s/%s) with %d tracks\n",
			playlist.Title, playlist.Window, playlist.Strategy, playlist.TrackCount)
		for _, track := range playlist.Tracks {
			fmt.Printf("%3d. %s - %s (%.3f)\n", track.Position, track.Artist, track.Title, track.Score)
		}
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVarP(&generateWindow, "window", "w", "",
		"playlist window: "+strings.Join(generator.WindowNames(), ", "))
	generateCmd.Flags().StringVarP(&generateStrategy, "strategy", "s", "", "override the window's scoring strategy")
	generateCmd.Flags().IntVarP(&generateCount, "count", "n", 0, "target track count (0 uses the configured default)")
	generateCmd.Flags().StringSliceVarP(&generateGenres, "genre", "g", nil, "keep only tracks matching any of these genres")
	generateCmd.Flags().StringSliceVarP(&generateMoods, "mood", "m", nil, "keep only tracks matching any of these moods")
}
