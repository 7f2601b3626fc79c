package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/agtrace"
	"github.com/nextlevelbuilder/agtrace/internal/index"
)

func sessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Browse indexed sessions",
	}

	var projectHash, provider string
	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List indexed sessions",
		Run: func(cmd *cobra.Command, args []string) {
			runSessionList(projectHash, provider, limit)
		},
	}
	list.Flags().StringVar(&projectHash, "project", "", "filter by project hash")
	list.Flags().StringVar(&provider, "provider", "", "filter by provider")
	list.Flags().IntVar(&limit, "limit", 50, "maximum sessions to list")
	cmd.AddCommand(list)

	show := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show one session's assembled turns",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			runSessionShow(args[0])
		},
	}
	cmd.AddCommand(show)

	var packProject string
	var packLimit int
	pack := &cobra.Command{
		Use:   "pack",
		Short: "Select a provider-balanced, health-scored session sample",
		Run: func(cmd *cobra.Command, args []string) {
			runSessionPack(packProject, packLimit)
		},
	}
	pack.Flags().StringVar(&packProject, "project", "", "project hash to pack")
	pack.Flags().IntVar(&packLimit, "limit", 20, "maximum sessions to select")
	cmd.AddCommand(pack)

	return cmd
}

func openIndexedClient() *agtrace.Client {
	cfg := loadConfig()
	idx, err := index.Open(cfg.IndexPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "agtrace: open index: %s\n", err)
		os.Exit(1)
	}
	return agtrace.NewClient(idx, cfg)
}

func runSessionList(projectHash, provider string, limit int) {
	client := openIndexedClient()
	rows, err := client.Sessions().List(context.Background(), agtrace.SessionFilter{
		ProjectHash: projectHash, Provider: provider, Limit: limit,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "agtrace session list: %s\n", err)
		os.Exit(1)
	}
	for _, r := range rows {
		fmt.Printf("%s  %-10s  %s -> %s\n", r.SessionID, r.Provider, r.StartTS.Format("2006-01-02T15:04:05"), r.EndTS.Format("15:04:05"))
	}
}

func runSessionShow(sessionID string) {
	client := openIndexedClient()
	ctx := context.Background()

	handle, err := client.Sessions().Find(ctx, sessionID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "agtrace session show: %s\n", err)
		os.Exit(1)
	}

	sess, err := handle.Assembled(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "agtrace session show: %s\n", err)
		os.Exit(1)
	}

	for _, t := range sess.Turns {
		fmt.Printf("turn %d: %d steps, heavy=%.0f%%\n", t.Index, len(t.Steps), t.HeavyPct*100)
	}
}

func runSessionPack(projectHash string, limit int) {
	client := openIndexedClient()
	result, err := client.PackContext(context.Background(), projectHash, limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "agtrace session pack: %s\n", err)
		os.Exit(1)
	}

	fmt.Printf("packed %d of %d (balanced %d)\n", len(result.Selections), result.RawCount, result.BalancedCount)
	enc := json.NewEncoder(os.Stdout)
	for _, d := range result.Selections {
		enc.Encode(map[string]any{
			"session_id": d.SessionID,
			"provider":   d.Provider,
			"health":     d.Health,
			"score":      d.Score,
		})
	}
}
