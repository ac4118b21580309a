package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

var patternsRefresh bool

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Show learned listening patterns",
	Long:  `Print the learned listening patterns. With --refresh, re-analyze the listening history first.`,
	Run: func(cmd *cobra.Command, args []string) {
		svc := newServices()
		defer svc.close()

		p := svc.patterns.GetWithCache(context.Background(), patternsRefresh, svc.analyzer)
		if p == nil {
			log.Fatal("no patterns available; run with --refresh to analyze listening history")
		}

		out, err := json.MarshalIndent(p, "", "  ")
		if err != nil {
			log.Fatalf("failed to render patterns: %v", err)
		}
		fmt.Println(string(out))
	},
}

func init() {
	rootCmd.AddCommand(patternsCmd)
	patternsCmd.Flags().BoolVarP(&patternsRefresh, "refresh", "r", false, "re-analyze listening history before printing")
}
