package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func findCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "find <session-id>",
		Short: "Locate a session and show its backing files",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			runFind(args[0])
		},
	}
}

func runFind(sessionID string) {
	client := openIndexedClient()
	ctx := context.Background()

	handle, err := client.Sessions().Find(ctx, sessionID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "agtrace find: %s\n", err)
		os.Exit(1)
	}

	files, err := handle.RawFiles(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "agtrace find: %s\n", err)
		os.Exit(1)
	}

	events, err := handle.Events(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "agtrace find: %s\n", err)
		os.Exit(1)
	}

	fmt.Printf("session %s: %d event(s) across %d file(s)\n", sessionID, len(events), len(files))
	for _, f := range files {
		fmt.Printf("  %s (%d bytes)\n", f.Path, f.Size)
	}
}
