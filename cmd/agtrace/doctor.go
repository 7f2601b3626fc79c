package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/agtrace"
)

func doctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check provider roots and parsing health",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Diagnose every enabled provider's log root",
		Run: func(cmd *cobra.Command, args []string) {
			runDoctor()
		},
	})
	return cmd
}

func runDoctor() {
	cfg := loadConfig()
	p := agtrace.WithConfig(cfg)

	results, err := p.Diagnose(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "agtrace doctor: %s\n", err)
		os.Exit(1)
	}

	fmt.Println("agtrace doctor")
	for _, d := range results {
		fmt.Printf("  %-10s %d files, %d ok, %d failed\n", d.Provider, d.TotalFiles, d.Successful, d.Failed)
		for _, e := range d.Errors {
			fmt.Printf("    - %s\n", e)
		}
	}
}
