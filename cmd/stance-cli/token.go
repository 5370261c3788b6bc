package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bobmcallan/stance/internal/server"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an admin bearer token for the cache endpoints",
	Long: `Sign an HS256 token with the configured auth.jwt_secret. The token
grants the admin role on /api/admin/* until it expires.`,
	Args: cobra.NoArgs,
	RunE: runToken,
}

var (
	tokenSubject string
	tokenTTL     time.Duration
)

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "operator", "Token subject")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "Token lifetime (default: auth.token_expiry)")
}

func runToken(cmd *cobra.Command, args []string) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}

	ttl := tokenTTL
	if ttl <= 0 {
		ttl = config.Auth.GetTokenExpiry()
	}

	token, err := server.SignAdminToken([]byte(config.Auth.JWTSecret), tokenSubject, ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
