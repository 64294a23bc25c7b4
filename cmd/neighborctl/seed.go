package main

import (
	"fmt"
	"time"

	"github.com/chamsedd0/neighbor/internal/config"
	"github.com/chamsedd0/neighbor/internal/database"
	"github.com/chamsedd0/neighbor/internal/seeds"
	"github.com/chamsedd0/neighbor/internal/stores"
	"github.com/spf13/cobra"
)

func seedCmd() *cobra.Command {
	var opts seeds.Options
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the database with sample accounts, listings and bookings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.AppConfig
			if cfg.IsProduction() {
				return fmt.Errorf("refusing to seed a production database")
			}

			ctx := cmd.Context()
			gw, err := database.Open(ctx, cfg, nil)
			if err != nil {
				return err
			}
			defer gw.Close()

			users := stores.NewUserDirectory(gw, time.Minute)
			defer users.Close()

			sum, err := seeds.Run(ctx, stores.Deps{Gateway: gw, Users: users, PageSize: cfg.PageSize}, opts)
			if err != nil {
				return err
			}
			fmt.Printf("Seeded %d users, %d properties, %d bookings, %d conversations (password %q)\n",
				sum.Users, sum.Properties, sum.Bookings, sum.Conversations, seeds.DefaultPassword)
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.Owners, "owners", 3, "number of owner accounts")
	cmd.Flags().IntVar(&opts.PropertiesPerOwner, "properties", 4, "listings per owner")
	cmd.Flags().IntVar(&opts.Tenants, "tenants", 5, "number of tenant accounts")
	return cmd
}
