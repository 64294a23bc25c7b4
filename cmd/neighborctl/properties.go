package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/chamsedd0/neighbor/internal/config"
	"github.com/chamsedd0/neighbor/internal/database"
	"github.com/chamsedd0/neighbor/internal/stores"
	"github.com/spf13/cobra"
)

func propertiesCmd() *cobra.Command {
	var (
		filters stores.PropertyFilters
		limit   int
	)
	cmd := &cobra.Command{
		Use:   "properties",
		Short: "List the newest properties matching the filters",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			gw, err := database.Open(ctx, config.AppConfig, nil)
			if err != nil {
				return err
			}
			defer gw.Close()

			s := stores.NewSession(ctx, stores.Deps{Gateway: gw})
			defer s.Close()
			if err := s.Properties.FetchProperties(ctx, filters, limit); err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tPRICE\tBEDS\tTYPE\tLOCATION")
			for _, p := range s.Properties.State().Properties {
				fmt.Fprintf(w, "%s\t%s\t%.2f/%s\t%d\t%s\t%s\n",
					p.ID, p.Title, p.Price, p.PriceUnit, p.Bedrooms, p.PropertyType, p.Location)
			}
			return w.Flush()
		},
	}

	cmd.Flags().Float64Var(&filters.MinPrice, "min-price", 0, "minimum price")
	cmd.Flags().Float64Var(&filters.MaxPrice, "max-price", 0, "maximum price")
	cmd.Flags().IntVar(&filters.Bedrooms, "bedrooms", 0, "minimum bedrooms")
	cmd.Flags().IntVar(&filters.Bathrooms, "bathrooms", 0, "minimum bathrooms")
	cmd.Flags().StringVar(&filters.PropertyType, "type", "", "property type")
	cmd.Flags().IntVar(&limit, "limit", 20, "page size")
	return cmd
}
