package cli

import (
	"fmt"
	"time"

	"evolv/internal/config"
	"evolv/internal/domain"
	transport "evolv/internal/transport/http"
	"github.com/spf13/cobra"
)

// NewTokenCmd mints a bearer token for local use.
func NewTokenCmd(configPath *string) *cobra.Command {
	var (
		userID string
		name   string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed bearer token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return fmt.Errorf("auth.jwt_secret not configured")
			}
			auth := transport.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
			token, err := auth.Issue(domain.Caller{UserID: userID, Name: name}, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id placed in the subject claim")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
