package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/awaistahir/grid-analytics/internal/api"
	"github.com/awaistahir/grid-analytics/internal/backend"
	"github.com/awaistahir/grid-analytics/internal/config"
	"github.com/spf13/cobra"
)

func main() {
	var (
		cfgFile string
		port    int
		dbPath  string
	)

	rootCmd := &cobra.Command{
		Use:          "grid-analyticsd",
		Short:        "Grid Analytics HTTP dashboard server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if dbPath != "" {
				cfg.Database.Path = dbPath
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			b, err := backend.Open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer b.Close()

			if err := b.EnsureSchema(cmd.Context()); err != nil {
				return fmt.Errorf("preparing readings schema: %w", err)
			}

			srv := api.NewServer(b.Store, b.Readings, b.Store, cfg.Engine,
				api.WithTimeout(cfg.Server.RequestTimeout))

			addr := fmt.Sprintf(":%d", cfg.Server.Port)
			log.Printf("Grid Analytics server starting on port %d", cfg.Server.Port)
			log.Printf("Database: %s", cfg.Database.Path)
			log.Printf("Request timeout: %s", cfg.Server.RequestTimeout)
			log.Printf("Dashboard API: http://localhost:%d/api/status", cfg.Server.Port)

			return http.ListenAndServe(addr, srv.Handler())
		},
	}

	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.grid-analytics/config.yaml)")
	rootCmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP port")
	rootCmd.Flags().StringVar(&dbPath, "db", "", "Database path")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
