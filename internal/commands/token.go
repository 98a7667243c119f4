package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmynk/splitwiser/internal/auth"
	"github.com/mmynk/splitwiser/internal/config"
)

func newTokenCommand() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "token <member-id>",
		Short: "Sign a development bearer token with JWT_SECRET",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if !cfg.AuthEnabled() {
				return fmt.Errorf("JWT_SECRET is not set")
			}

			token, err := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTDuration).Generate(args[0], name)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name claim")

	return cmd
}
