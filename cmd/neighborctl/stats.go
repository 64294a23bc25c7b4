package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/chamsedd0/neighbor/internal/models"
	"github.com/spf13/cobra"
)

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print record counts per collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := sqlDB()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "COLLECTION\tCOUNT")
			for _, table := range models.Tables() {
				var count int64
				if err := db.Model(table).Count(&count).Error; err != nil {
					return err
				}
				name := fmt.Sprintf("%T", table)
				if t, ok := table.(interface{ TableName() string }); ok {
					name = t.TableName()
				}
				fmt.Fprintf(w, "%s\t%d\n", name, count)
			}

			var pending int64
			db.Model(&models.Booking{}).Where("status = ?", models.BookingPending).Count(&pending)
			fmt.Fprintf(w, "bookings (pending)\t%d\n", pending)
			return w.Flush()
		},
	}
}
