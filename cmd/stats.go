package cmd

import (
	"fmt"
	"log"
	"sort"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show genre cache statistics",
	Run: func(cmd *cobra.Command, args []string) {
		svc := newServices()
		defer svc.close()

		stats, err := svc.enrich.Stats()
		if err != nil {
			log.Fatalf("failed to compute cache stats: %v", err)
		}

		fmt.Printf("total entries:   %d\n", stats.TotalEntries)
		fmt.Printf("expired:         %d\n", stats.ExpiredEntries)
		fmt.Printf("expiring in 7d:  %d\n", stats.ExpiringIn7d)
		fmt.Printf("expiring in 30d: %d\n", stats.ExpiringIn30d)

		sources := make([]string, 0, len(stats.BySource))
		for source := range stats.BySource {
			sources = append(sources, source)
		}
		sort.Strings(sources)
		for _, source := range sources {
			fmt.Printf("  %-12s %d\n", source, stats.BySource[source])
		}
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
