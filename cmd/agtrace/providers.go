package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/agtrace"
	"github.com/nextlevelbuilder/agtrace/internal/config"
)

func providersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "Inspect and configure vendor log roots",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List configured providers",
		Run: func(cmd *cobra.Command, args []string) {
			runProvidersList()
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "detect",
		Short: "Probe default log roots for every supported vendor",
		Run: func(cmd *cobra.Command, args []string) {
			runProvidersDetect()
		},
	})

	var root string
	var enabled bool
	set := &cobra.Command{
		Use:   "set <name>",
		Short: "Enable or change a provider's log root",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			runProvidersSet(args[0], root, enabled)
		},
	}
	set.Flags().StringVar(&root, "root", "", "log root path")
	set.Flags().BoolVar(&enabled, "enabled", true, "enable or disable this provider")
	cmd.AddCommand(set)

	return cmd
}

func runProvidersList() {
	cfg := loadConfig()
	for _, r := range cfg.Providers.Roots {
		status := "disabled"
		if r.Enabled {
			status = "enabled"
		}
		fmt.Printf("%-10s %-8s %s\n", r.Name, status, r.LogRoot)
	}
}

func runProvidersDetect() {
	infos, err := agtrace.Detect(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "agtrace providers detect: %s\n", err)
		os.Exit(1)
	}
	for _, info := range infos {
		status := "not found"
		if info.Exists {
			status = "found"
		}
		fmt.Printf("%-10s %-10s %s\n", info.Name, status, info.LogRoot)
	}
}

func runProvidersSet(name, root string, enabled bool) {
	path := resolveConfigPath()
	cfg := loadConfig()

	found := false
	for i := range cfg.Providers.Roots {
		if cfg.Providers.Roots[i].Name == name {
			if root != "" {
				cfg.Providers.Roots[i].LogRoot = root
			}
			cfg.Providers.Roots[i].Enabled = enabled
			found = true
			break
		}
	}
	if !found {
		cfg.Providers.Roots = append(cfg.Providers.Roots, config.ProviderRoot{Name: name, LogRoot: root, Enabled: enabled})
	}

	if err := config.Save(path, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "agtrace providers set: %s\n", err)
		os.Exit(1)
	}
	fmt.Printf("agtrace: %s updated\n", name)
}
