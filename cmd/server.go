package cmd

import (
	"github.com/mdabushayem62/plex-playlists-sub003/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the HTTP API server",
	Long:  `Run the playlist recommendation HTTP server with the background cache maintenance scheduler.`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
