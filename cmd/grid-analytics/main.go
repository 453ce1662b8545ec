package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/awaistahir/grid-analytics/internal/backend"
	"github.com/awaistahir/grid-analytics/internal/config"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	dbPath  string
	cfg     *config.Config
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "grid-analytics",
		Short: "Grid Analytics - KPIs for smart-meter and transformer telemetry",
		Long: `Grid Analytics computes consumption, availability, overload, revenue and
load-profile metrics over smart-meter telemetry for a set of companies and sites.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.grid-analytics/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (default is $HOME/.grid-analytics/grid.db)")

	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(companyCmd())
	rootCmd.AddCommand(siteCmd())
	rootCmd.AddCommand(tariffCmd())
	rootCmd.AddCommand(deviceCmd())
	rootCmd.AddCommand(ledgerCmd())
	rootCmd.AddCommand(readingsCmd())
	rootCmd.AddCommand(metricsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig() error {
	if err := os.MkdirAll(config.Dir(), 0755); err != nil {
		return err
	}

	loaded, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if dbPath != "" {
		loaded.Database.Path = dbPath
	}
	cfg = loaded
	return nil
}

// withBackend opens the configured backend for the duration of fn
func withBackend(ctx context.Context, fn func(*backend.Backend) error) error {
	b, err := backend.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()
	return fn(b)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the registry database and the readings schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd.Context(), func(b *backend.Backend) error {
				if err := b.EnsureSchema(cmd.Context()); err != nil {
					return err
				}

				fmt.Println("✓ Initialized registry")
				fmt.Printf("Database: %s\n", cfg.Database.Path)
				fmt.Printf("Readings: %s\n", b.Driver)
				fmt.Println("\nNext steps:")
				fmt.Println("  1. Register sites and devices: grid-analytics company add, site add, device add")
				fmt.Println("  2. Import readings: grid-analytics readings import readings.csv")
				fmt.Println("  3. Compute a metric: grid-analytics metrics total-consumption")
				return nil
			})
		},
	}
}
