package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/mdabushayem62/plex-playlists-sub003/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "plexplaylists",
	Short: "plexplaylists generates Plex music playlists from listening history.",
	Run: func(cmd *cobra.Command, args []string) {
		log.Println("Starting plexplaylists server...")
		server.Start()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
