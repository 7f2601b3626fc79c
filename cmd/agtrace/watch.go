package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/agtrace"
	"github.com/nextlevelbuilder/agtrace/internal/providers"
	"github.com/nextlevelbuilder/agtrace/internal/watch"
)

func watchCmd() *cobra.Command {
	var mode, provider, sessionID string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Tail a session log as it is appended to",
		Run: func(cmd *cobra.Command, args []string) {
			runWatch(mode, provider, sessionID)
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "console", "console or tui")
	cmd.Flags().StringVar(&provider, "provider", "claude", "provider to watch")
	cmd.Flags().StringVar(&sessionID, "id", "", "attach to a specific session path instead of the newest")
	return cmd
}

// runWatch never opens the pointer index: tailing a live file needs only
// the provider's configured log root, not the index the scanner writes.
func runWatch(mode, provider, sessionID string) {
	if mode != "console" {
		fmt.Fprintln(os.Stderr, "agtrace watch: --mode tui is not part of this build; rendering is a collaborator's concern, use --mode console")
		os.Exit(1)
	}

	cfg := loadConfig()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client := agtrace.NewClient(nil, cfg)
	wb := client.Watch().Provider(providers.Name(provider))
	if sessionID != "" {
		wb = wb.SessionID(sessionID)
	}

	stream, err := wb.Start(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "agtrace watch: %s\n", err)
		os.Exit(1)
	}

	for {
		sig, ok := stream.NextBlocking(ctx)
		if !ok {
			return
		}
		printSignal(sig)
	}
}

func printSignal(sig watch.Signal) {
	switch sig.Kind {
	case watch.Waiting:
		fmt.Println("waiting for a session file to appear...")
	case watch.Attached:
		fmt.Printf("attached: %s\n", sig.Path)
	case watch.Appended:
		for _, ev := range sig.Events {
			fmt.Printf("%s  %s\n", ev.Timestamp.Format("15:04:05"), ev.ID)
		}
	case watch.Rotated:
		fmt.Printf("rotated: %s\n", sig.Path)
	case watch.Fatal:
		fmt.Fprintf(os.Stderr, "fatal: %v\n", sig.Err)
	}
}
