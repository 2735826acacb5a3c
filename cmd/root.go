package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scentlab/accord/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "accord",
	Short: "Perfume formula analysis pipeline",
	Long:  "Normalizes perfume formulas, derives olfactive features against a knowledge base, and requests structured analyses from a language model.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Best effort; a missing .env file is fine.
		_ = godotenv.Load()

		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
