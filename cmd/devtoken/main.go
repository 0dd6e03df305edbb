// devtoken mints a bearer token signed with the configured jwt.secret, for
// calling the API locally. Tokens in production come from the auth service.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"habitrack/internal/config"
	"habitrack/internal/streak"
	"habitrack/pkg/rbac"
	"habitrack/pkg/util"
)

func main() {
	var (
		role string
		ttl  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "devtoken <uid>",
		Short: "Mint a JWT for an owner id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := streak.ParseID("uid", args[0])
			if err != nil {
				return err
			}
			if role != "" && role != rbac.RoleUser && role != rbac.RoleViewer {
				return fmt.Errorf("unknown role %q", role)
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			token, err := util.GenerateJWTWithRole(owner.String(), role, cfg.JWT.Secret, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "role claim (user or viewer)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
