package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/agtrace"
	"github.com/nextlevelbuilder/agtrace/internal/lens"
)

func analyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <session-id>",
		Short: "Run the diagnostic lens panel over a session",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			runAnalyze(args[0])
		},
	}
}

func runAnalyze(sessionID string) {
	client := openIndexedClient()
	ctx := context.Background()

	handle, err := client.Sessions().Find(ctx, sessionID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "agtrace analyze: %s\n", err)
		os.Exit(1)
	}

	sess, err := handle.Assembled(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "agtrace analyze: %s\n", err)
		os.Exit(1)
	}

	report := agtrace.NewSessionAnalyzer(sess).Through(lens.Default()...).Report()

	fmt.Printf("health: %d/100\n", report.Health)
	for _, insight := range report.Insights {
		fmt.Printf("  [%s] turn %d: %s\n", insight.Lens, insight.TurnIdx, insight.Summary)
	}
}
