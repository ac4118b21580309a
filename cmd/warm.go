package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

var warmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Run one cache maintenance round",
	Long:  `Refresh genre cache entries expiring soon and purge entries past their grace period.`,
	Run: func(cmd *cobra.Command, args []string) {
		svc := newServices()
		defer svc.close()

		report, err := svc.warmer.RefreshExpiring(context.Background())
		if err != nil {
			log.Fatalf("cache maintenance failed: %v", err)
		}
		fmt.Printf("attempted %d, refreshed %d, failed %d, skipped %d, purged %d\n",
			report.Attempted, report.Refreshed, report.Failed, report.Skipped, report.Purged)
	},
}

func init() {
	rootCmd.AddCommand(warmCmd)
}
