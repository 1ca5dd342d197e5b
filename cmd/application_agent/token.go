package main

import (
	"fmt"

	"github.com/jonathan/application-assistant/internal/config"
	"github.com/jonathan/application-assistant/internal/server"
	"github.com/spf13/cobra"
)

var (
	tokenUserID string
	tokenEmail  string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for local testing",
	Long: `Sign a JWT with JWT_SECRET for the given user. Production tokens come from
the identity provider; this is for exercising the authenticated endpoints locally.`,
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUserID, "user", "", "User ID placed in the sub claim (required)")
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "Email claim, used to match payment webhooks")
	_ = tokenCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		return err
	}

	token, err := server.NewJWTService(jwtConfig).GenerateToken(tokenUserID, tokenEmail)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
	return err
}
