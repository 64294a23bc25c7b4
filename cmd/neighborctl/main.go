// Command neighborctl runs maintenance tasks against the configured database.
package main

import (
	"fmt"
	"os"

	"github.com/chamsedd0/neighbor/internal/config"
	"github.com/chamsedd0/neighbor/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "neighborctl",
		Short:         "neighbor maintenance tool",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg := config.LoadConfig()
			logger.Init(cfg.Env)
		},
	}

	rootCmd.AddCommand(
		migrateCmd(),
		seedCmd(),
		propertiesCmd(),
		statsCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
