package cmd

import (
	"fmt"
	"time"

	"github.com/klaudly/klaudly/internal/config"
	"github.com/klaudly/klaudly/internal/service"
	"github.com/spf13/cobra"
)

// TokenCmd mints a bearer token for local testing against the API.
func TokenCmd(cfg *config.Config) *cobra.Command {
	var expiry time.Duration

	tokenCmd := &cobra.Command{
		Use:   "token <principal>",
		Short: "Print a signed bearer token for a principal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.IsProduction() {
				return fmt.Errorf("refusing to mint tokens with APP_ENV=production")
			}

			identity := service.NewIdentityService(cfg.JWTSecret, expiry)
			token, err := identity.GenerateJWT(args[0])
			if err != nil {
				return fmt.Errorf("failed to sign token: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	tokenCmd.Flags().DurationVar(&expiry, "expiry", cfg.JWTExpiry, "token lifetime")

	return tokenCmd
}
