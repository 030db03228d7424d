package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhoicas/taskvault-api/internal/bootstrap"
)

func reconcileCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Concilia contra la pasarela las órdenes pendientes",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := bootstrap.New(cmd.Context(), rt.cfg, rt.log)
			if err != nil {
				return err
			}
			defer c.Close()
			c.StartBackground(cmd.Context())

			report, err := c.Subscriptions.ReconcilePendingOrders(cmd.Context())
			if err != nil {
				return fmt.Errorf("conciliar: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "revisadas=%d activadas=%d fallidas=%d errores=%d\n",
				report.Checked, report.Activated, report.Failed, report.Errors)
			return nil
		},
	}
}

func replayWebhooksCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "replay-webhooks",
		Short: "Reencola eventos de webhook que quedaron sin procesar",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := bootstrap.New(cmd.Context(), rt.cfg, rt.log)
			if err != nil {
				return err
			}
			defer c.Close()

			n, err := c.Subscriptions.ReplayStaleEvents(cmd.Context())
			if err != nil {
				return fmt.Errorf("reencolar webhooks: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "eventos reencolados: %d\n", n)
			return nil
		},
	}
}
