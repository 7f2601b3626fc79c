package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/agtrace"
	"github.com/nextlevelbuilder/agtrace/internal/index"
)

func indexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage the pointer index",
	}

	var allProjects bool
	update := &cobra.Command{
		Use:   "update",
		Short: "Scan every enabled provider root and upsert changed files",
		Run: func(cmd *cobra.Command, args []string) {
			runIndexUpdate()
		},
	}
	update.Flags().BoolVar(&allProjects, "all-projects", true, "has no effect: update always indexes sessions from every project")
	cmd.AddCommand(update)

	return cmd
}

func runIndexUpdate() {
	cfg := loadConfig()
	idx, err := index.Open(cfg.IndexPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "agtrace index update: %s\n", err)
		os.Exit(1)
	}
	defer idx.Close()

	client := agtrace.NewClient(idx, cfg)
	if err := client.Update(context.Background(), 4); err != nil {
		fmt.Fprintf(os.Stderr, "agtrace index update: %s\n", err)
		os.Exit(1)
	}
	fmt.Println("agtrace: index updated")
}
