package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/fleet-service-api/internal/models"
	"github.com/noah-isme/fleet-service-api/internal/service"
	"github.com/noah-isme/fleet-service-api/pkg/clock"
	"github.com/noah-isme/fleet-service-api/pkg/config"
)

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token for local testing",
		Long: `Signs an access token with JWT_SECRET. Production tokens come from the
external auth service; this command is meant for development only.

Usage:
  fleet-api token --id disp-1 --role dispatch
  fleet-api token --id T1 --role technician --ttl 30m`,
		RunE: runToken,
	}
	cmd.Flags().String("id", "", "Actor ID")
	cmd.Flags().String("role", "", "Actor role (customer, office, dispatch, technician, admin)")
	cmd.Flags().Duration("ttl", time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func runToken(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Env == config.EnvProduction {
		return fmt.Errorf("token minting is disabled in production")
	}

	id, _ := cmd.Flags().GetString("id")
	rawRole, _ := cmd.Flags().GetString("role")
	ttl, _ := cmd.Flags().GetDuration("ttl")

	role, ok := models.NormalizeRole(rawRole)
	if !ok {
		return fmt.Errorf("unknown role %q", rawRole)
	}

	token, err := service.NewAuthService(cfg.JWT.Secret, clock.Real()).IssueToken(models.Actor{ID: id, Role: role}, ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
