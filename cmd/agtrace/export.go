package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/agtrace/internal/query"
)

func exportCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "export <session-id>",
		Short: "Export a session's events as JSONL or JSON",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			runExport(args[0], format)
		},
	}
	cmd.Flags().StringVar(&format, "format", "jsonl", "jsonl or json")
	return cmd
}

func runExport(sessionID, format string) {
	client := openIndexedClient()
	ctx := context.Background()

	handle, err := client.Sessions().Find(ctx, sessionID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "agtrace export: %s\n", err)
		os.Exit(1)
	}

	f := query.ExportJSONL
	if format == "json" {
		f = query.ExportJSON
	}
	if err := handle.Export(ctx, os.Stdout, f); err != nil {
		fmt.Fprintf(os.Stderr, "agtrace export: %s\n", err)
		os.Exit(1)
	}
}
