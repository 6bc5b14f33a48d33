package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"adjunct-search-go/internal/config"
	"adjunct-search-go/pkg/token"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a coordinator access token signed with jwt.secret",
	RunE:  runToken,
}

var (
	tokenEmail string
	tokenRole  string
)

func init() {
	tokenCmd.Flags().StringVarP(&tokenEmail, "email", "e", "", "Coordinator email (required)")
	tokenCmd.Flags().StringVarP(&tokenRole, "role", "r", token.RoleCoordinator, "Role: COORDINATOR or ADMIN")
	if err := tokenCmd.MarkFlagRequired("email"); err != nil {
		panic(fmt.Sprintf("failed to mark email flag as required: %v", err))
	}
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	role := strings.ToUpper(tokenRole)
	if !token.CanSearch(role) {
		return fmt.Errorf("role %q cannot access applicants", tokenRole)
	}
	cfg := config.Conf.JWT
	if cfg.Secret == "" {
		return fmt.Errorf("jwt.secret is empty")
	}
	hours := cfg.AccessTokenExpireHours
	if hours <= 0 {
		hours = 24
	}
	signed, err := token.NewJWTManager(cfg.Secret, hours).GenerateToken(tokenEmail, role)
	if err != nil {
		return fmt.Errorf("failed to sign token: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), signed)
	return nil
}
