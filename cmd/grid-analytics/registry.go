package main

import (
	"fmt"
	"time"

	"github.com/awaistahir/grid-analytics/internal/backend"
	"github.com/awaistahir/grid-analytics/internal/engine"
	"github.com/awaistahir/grid-analytics/internal/store"
	"github.com/spf13/cobra"
)

func companyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "company",
		Short: "Manage companies",
	}

	var c store.Company
	add := &cobra.Command{
		Use:   "add",
		Short: "Add or update a company",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd.Context(), func(b *backend.Backend) error {
				if err := b.Store.SaveCompany(cmd.Context(), c); err != nil {
					return err
				}
				fmt.Printf("✓ Saved company %d: %s\n", c.ID, c.Name)
				return nil
			})
		},
	}
	add.Flags().Int64Var(&c.ID, "id", 0, "Company ID (required)")
	add.Flags().StringVarP(&c.Name, "name", "n", "", "Company name (required)")
	add.MarkFlagRequired("id")
	add.MarkFlagRequired("name")

	cmd.AddCommand(add)
	return cmd
}

func siteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "site",
		Short: "Manage sites",
	}

	var s store.Site
	add := &cobra.Command{
		Use:   "add",
		Short: "Add or update a site",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd.Context(), func(b *backend.Backend) error {
				if err := b.Store.SaveSite(cmd.Context(), s); err != nil {
					return err
				}
				fmt.Printf("✓ Saved site %d: %s (%s)\n", s.ID, s.Name, s.District)
				return nil
			})
		},
	}
	add.Flags().Int64Var(&s.ID, "id", 0, "Site ID (required)")
	add.Flags().Int64Var(&s.CompanyID, "company", 0, "Owning company ID (required)")
	add.Flags().StringVarP(&s.Name, "name", "n", "", "Site name (required)")
	add.Flags().StringVarP(&s.District, "district", "d", "", "District")
	add.MarkFlagRequired("id")
	add.MarkFlagRequired("company")
	add.MarkFlagRequired("name")

	list := &cobra.Command{
		Use:   "list",
		Short: "List all sites",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd.Context(), func(b *backend.Backend) error {
				sites, err := b.Store.GetSites(cmd.Context())
				if err != nil {
					return err
				}
				if len(sites) == 0 {
					fmt.Println("No sites configured")
					return nil
				}

				fmt.Printf("%-8s %-8s %-30s %-20s\n", "ID", "COMPANY", "NAME", "DISTRICT")
				fmt.Println("--------------------------------------------------------------------")
				for _, s := range sites {
					fmt.Printf("%-8d %-8d %-30s %-20s\n", s.ID, s.CompanyID, s.Name, s.District)
				}
				return nil
			})
		},
	}

	cmd.AddCommand(add, list)
	return cmd
}

func tariffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tariff",
		Short: "Manage tariffs",
	}

	var t store.Tariff
	add := &cobra.Command{
		Use:   "add",
		Short: "Add or update a tariff",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd.Context(), func(b *backend.Backend) error {
				if err := b.Store.SaveTariff(cmd.Context(), t); err != nil {
					return err
				}
				fmt.Printf("✓ Saved tariff %d: %s at %.2f per unit\n", t.ID, t.Name, t.Price)
				return nil
			})
		},
	}
	add.Flags().Int64Var(&t.ID, "id", 0, "Tariff ID (required)")
	add.Flags().StringVarP(&t.Name, "name", "n", "", "Tariff name (required)")
	add.Flags().Float64VarP(&t.Price, "price", "p", 0, "Price per unit of energy")
	add.MarkFlagRequired("id")
	add.MarkFlagRequired("name")

	cmd.AddCommand(add)
	return cmd
}

func deviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "device",
		Short: "Manage metering devices",
	}

	var d store.DeviceRecord
	add := &cobra.Command{
		Use:   "add",
		Short: "Register or update a device",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd.Context(), func(b *backend.Backend) error {
				if err := b.Store.SaveDevice(cmd.Context(), d); err != nil {
					return err
				}
				fmt.Printf("✓ Saved device: %s\n", d.Serial)
				fmt.Printf("  Site: %d\n", d.SiteID)
				fmt.Printf("  Capacity: %.1f kW\n", d.AssetCapacity)
				return nil
			})
		},
	}
	add.Flags().StringVarP(&d.Serial, "serial", "s", "", "Device serial (required)")
	add.Flags().StringVarP(&d.Name, "name", "n", "", "Device name")
	add.Flags().Int64Var(&d.SiteID, "site", 0, "Site ID (required)")
	add.Flags().Int64Var(&d.TariffID, "tariff", 0, "Tariff ID")
	add.Flags().Float64VarP(&d.AssetCapacity, "capacity", "c", 0, "Asset capacity in kW")
	add.MarkFlagRequired("serial")
	add.MarkFlagRequired("site")

	var companies, sites []int64
	list := &cobra.Command{
		Use:   "list",
		Short: "List devices, optionally filtered by company and site",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd.Context(), func(b *backend.Backend) error {
				devices, err := b.Store.Resolve(cmd.Context(), companies, sites)
				if err != nil {
					return err
				}
				if len(devices) == 0 {
					fmt.Println("No devices registered")
					return nil
				}

				fmt.Printf("%-20s %-8s %-15s %10s %10s\n", "SERIAL", "SITE", "DISTRICT", "CAPACITY", "TARIFF")
				fmt.Println("--------------------------------------------------------------------")
				for _, d := range devices {
					fmt.Printf("%-20s %-8d %-15s %10.1f %10.2f\n", d.ID, d.SiteID, d.District, d.AssetCapacity, d.TariffPrice)
				}
				return nil
			})
		},
	}
	list.Flags().Int64SliceVar(&companies, "companies", nil, "Company IDs")
	list.Flags().Int64SliceVar(&sites, "sites", nil, "Site IDs")

	remove := &cobra.Command{
		Use:   "remove SERIAL",
		Short: "Remove a device from the registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd.Context(), func(b *backend.Backend) error {
				if err := b.Store.DeleteDevice(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Printf("✓ Removed device: %s\n", args[0])
				return nil
			})
		},
	}

	cmd.AddCommand(add, list, remove)
	return cmd
}

func ledgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Manage site transaction ledgers",
	}

	var (
		tx   store.Transaction
		date string
	)
	add := &cobra.Command{
		Use:   "add",
		Short: "Append a purchase/billing entry to a site's ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := time.Parse(engine.DateFormat, date)
			if err != nil {
				return fmt.Errorf("invalid date format (use YYYY-MM-DD): %w", err)
			}
			tx.Date = day

			return withBackend(cmd.Context(), func(b *backend.Backend) error {
				id, err := b.Store.AddTransaction(cmd.Context(), tx)
				if err != nil {
					return err
				}
				fmt.Printf("✓ Added ledger entry %d for site %d on %s\n", id, tx.SiteID, date)
				return nil
			})
		},
	}
	add.Flags().Int64Var(&tx.SiteID, "site", 0, "Site ID (required)")
	add.Flags().StringVarP(&date, "date", "d", time.Now().Format(engine.DateFormat), "Entry date (YYYY-MM-DD)")
	add.Flags().Float64Var(&tx.AmountBought, "bought", 0, "Amount bought")
	add.Flags().Float64Var(&tx.AmountBilled, "billed", 0, "Amount billed")
	add.MarkFlagRequired("site")

	cmd.AddCommand(add)
	return cmd
}
