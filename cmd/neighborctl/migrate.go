package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/chamsedd0/neighbor/internal/config"
	"github.com/chamsedd0/neighbor/internal/database"
	"github.com/chamsedd0/neighbor/internal/migrations"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func sqlDB() (*gorm.DB, error) {
	if config.AppConfig.DatabaseDriver == "mongo" {
		return nil, fmt.Errorf("migrations apply to sql drivers only; mongo indexes are ensured at startup")
	}
	return database.Connect(config.AppConfig)
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create tables and apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := sqlDB()
			if err != nil {
				return err
			}
			return database.Migrate(db)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show status of all migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := sqlDB()
			if err != nil {
				return err
			}
			statuses, err := migrations.NewMigrator(db).Status()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tSTATUS")
			for _, s := range statuses {
				status := "Pending"
				if s.Applied {
					status = "Applied"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", s.ID, s.Name, status)
			}
			return w.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rollback",
		Short: "Revert the most recently applied migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := sqlDB()
			if err != nil {
				return err
			}
			return migrations.NewMigrator(db).Rollback()
		},
	})

	return cmd
}
