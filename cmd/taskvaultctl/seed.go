package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhoicas/taskvault-api/internal/application/auth"
	"github.com/jhoicas/taskvault-api/internal/infrastructure/postgres"
)

func seedSuperAdminCmd(rt *runtime) *cobra.Command {
	var email, password, name string

	cmd := &cobra.Command{
		Use:   "seed-superadmin",
		Short: "Crea el super-admin si todavía no existe",
		RunE: func(cmd *cobra.Command, args []string) error {
			seed := rt.cfg.Seed
			if email != "" {
				seed.SuperAdminEmail = email
			}
			if password != "" {
				seed.SuperAdminPassword = password
			}
			if name != "" {
				seed.SuperAdminName = name
			}

			ctx := cmd.Context()
			pool, err := postgres.NewPool(ctx, rt.cfg.DB)
			if err != nil {
				return err
			}
			defer pool.Close()

			// El seed sólo toca usuarios: sin Redis ni notificaciones.
			uc := auth.NewAuthUseCase(
				postgres.NewUserRepository(pool),
				postgres.NewOrganizationRepository(pool),
				nil, nil, nil,
				auth.JWTConfig{},
				rt.log,
			)
			created, err := uc.SeedSuperAdmin(ctx, seed.SuperAdminEmail, seed.SuperAdminPassword, seed.SuperAdminName)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "super-admin %s creado\n", seed.SuperAdminEmail)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "ya existe un super-admin; nada que hacer")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email del super-admin (por defecto SUPER_ADMIN_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "password del super-admin (por defecto SUPER_ADMIN_PASSWORD)")
	cmd.Flags().StringVar(&name, "name", "", "nombre visible (por defecto SUPER_ADMIN_NAME)")

	return cmd
}
