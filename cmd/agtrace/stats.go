package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func statsCmd() *cobra.Command {
	var projectHash, provider string
	var limit int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize corpus-wide tool usage and failures",
		Run: func(cmd *cobra.Command, args []string) {
			runStats(projectHash, provider, limit)
		},
	}
	cmd.Flags().StringVar(&projectHash, "project", "", "filter by project hash")
	cmd.Flags().StringVar(&provider, "provider", "", "filter by provider")
	cmd.Flags().IntVar(&limit, "limit", 200, "maximum sessions to sample")
	return cmd
}

func runStats(projectHash, provider string, limit int) {
	client := openIndexedClient()
	ctx := context.Background()

	corpus, err := client.Stats(ctx, projectHash, limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "agtrace stats: %s\n", err)
		os.Exit(1)
	}
	fmt.Printf("sampled %d session(s): %d tool call(s), %d failure(s), max turn load %.0f%%\n",
		corpus.SampleSize, corpus.TotalToolCalls, corpus.TotalFailures, corpus.MaxTurnHeavyPct*100)

	toolStats, err := client.ToolStats(ctx, limit, provider)
	if err != nil {
		fmt.Fprintf(os.Stderr, "agtrace stats: %s\n", err)
		os.Exit(1)
	}
	for prov, ps := range toolStats.ByProvider {
		fmt.Printf("%s:\n", prov)
		for _, t := range ps.Tools {
			fmt.Printf("  %-24s %4d calls  (%s)\n", t.ToolName, ps.Counts[t.ToolName], t.Kind)
		}
	}
}
