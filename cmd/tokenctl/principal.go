package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rhuss/portier/pkg/auth/pgmanager"
)

func newPrincipalCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "principal",
		Short: "Manage principals in the postgres auth store",
	}
	cmd.AddCommand(newPrincipalAddCmd(root))
	return cmd
}

func newPrincipalAddCmd(root *rootOptions) *cobra.Command {
	var (
		p        pgmanager.Principal
		password string
		apiKey   string
		migrate  bool
	)

	cmd := &cobra.Command{
		Use:     "add USERNAME",
		Short:   "Create a principal with a password and/or API key",
		Example: `  tokenctl principal add ci-bot --tenant acme --api-key sk-... --role deployer`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" && apiKey == "" {
				return errors.New("one of --password or --api-key is required")
			}
			cfg, err := root.load()
			if err != nil {
				return err
			}
			if cfg.Auth.Type != "postgres" {
				return fmt.Errorf("auth.type is %q, principal management needs \"postgres\"", cfg.Auth.Type)
			}

			pgCfg := cfg.Auth.Postgres.Manager()
			pgCfg.MigrateOnStart = pgCfg.MigrateOnStart || migrate
			m, err := pgmanager.New(cmd.Context(), pgCfg)
			if err != nil {
				return err
			}
			defer m.Close()

			p.Username = args[0]
			if err := m.CreatePrincipal(cmd.Context(), p, password, apiKey); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "created principal %s\n", p.Username)
			return err
		},
	}

	cmd.Flags().StringVar(&p.TenantID, "tenant", "", "tenant the principal belongs to (empty: all tenants)")
	cmd.Flags().StringVar(&p.Application, "application", "", "application name")
	cmd.Flags().StringSliceVar(&p.Roles, "role", nil, "role (repeatable)")
	cmd.Flags().StringSliceVar(&p.Permissions, "permission", nil, "permission (repeatable)")
	cmd.Flags().StringVar(&password, "password", "", "password for basic authentication")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key for bearer authentication")
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply schema migrations first")
	return cmd
}
