package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/agtrace/internal/config"
)

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Run: func(cmd *cobra.Command, args []string) {
			runInit()
		},
	}
}

func runInit() {
	path := resolveConfigPath()
	if _, err := os.Stat(path); err == nil {
		fmt.Printf("agtrace: config already exists at %s\n", path)
		return
	}

	cfg := config.Default()
	if err := config.Save(path, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "agtrace: write config: %s\n", err)
		os.Exit(1)
	}
	fmt.Printf("agtrace: wrote default config to %s\n", path)
	fmt.Printf("agtrace: index will live at %s\n", cfg.IndexPath())
}
