package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"signflow/internal/config"
	"signflow/internal/logging"
)

var (
	cfg *config.AppConfig
	log *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:   "signflow",
	Short: "Sequential multi-signer PDF signing service",
	Long: `Signflow collects signatures on a PDF from an ordered list of signers.
Each signer signs in turn and every signed version is kept in object storage.`,
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
	RunE:              runServe,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "override LOG_LEVEL")
	rootCmd.PersistentFlags().String("store", "", "override STORE_DRIVER (postgres or sqlite)")
}

// initConfig loads the environment and builds the process logger.
func initConfig(cmd *cobra.Command, _ []string) error {
	c, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		c.LogLevel = v
	}
	if v, _ := cmd.Flags().GetString("store"); v != "" {
		switch v {
		case "postgres", "sqlite":
			c.StoreDriver = v
		default:
			return fmt.Errorf("unsupported store %q", v)
		}
	}

	cfg = c
	log = logging.New(cfg.LogLevel, cfg.Location())
	return nil
}
