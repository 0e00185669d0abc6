package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cargo/internal/app"
	"cargo/internal/config"
)

var (
	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "quotectl",
	Short: "Freight quote tooling",
	Long:  "Prices routes from the command line, inspects the vehicle catalog and smoke-tests a running API.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c
		l, err := app.NewLogger(cfg)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	SilenceUsage: true,
}

func main() {
	rootCmd.AddCommand(quoteCmd, vehiclesCmd, validateCmd, smokeCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
