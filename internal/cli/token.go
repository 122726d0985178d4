package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"engagement-engine/internal/middleware"
)

var (
	tokenSubject string
	tokenRole    string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a JWT for the record ingestion endpoints",
	Long: `Issue an HS256 JWT signed with server.jwt_secret for the record ingestion endpoints.

Examples:
  learnctl token --subject collector
  learnctl token --subject ops --role admin --ttl 1h`,
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "", "token subject (required)")
	tokenCmd.Flags().StringVar(&tokenRole, "role", "ingest", "role claim")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("subject")
}

func runToken(cmd *cobra.Command, args []string) error {
	if cfg.Server.JWTSecret == "" {
		return errors.New("server.jwt_secret is not set")
	}
	token, err := middleware.IssueToken(cfg.Server.JWTSecret, tokenSubject, tokenRole, tokenTTL)
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
