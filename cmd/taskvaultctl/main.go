package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jhoicas/taskvault-api/pkg/config"
	"github.com/jhoicas/taskvault-api/pkg/logger"
)

var Version = "dev"

// runtime estado compartido por los subcomandos tras PersistentPreRunE.
type runtime struct {
	cfg *config.Config
	log *logger.Logger
}

func main() {
	rt := &runtime{}
	var envFile string

	rootCmd := &cobra.Command{
		Use:           "taskvaultctl",
		Short:         "Operaciones administrativas de TaskVault",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if envFile != "" {
				if err := godotenv.Load(envFile); err != nil {
					return fmt.Errorf("cargar %s: %w", envFile, err)
				}
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("cargar configuración: %w", err)
			}
			rt.cfg = cfg
			rt.log = logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Output: os.Stderr}).Named("ctl")
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "archivo .env a cargar antes de leer la configuración")

	rootCmd.AddCommand(migrateCmd(rt))
	rootCmd.AddCommand(seedSuperAdminCmd(rt))
	rootCmd.AddCommand(reconcileCmd(rt))
	rootCmd.AddCommand(replayWebhooksCmd(rt))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
