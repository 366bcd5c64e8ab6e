package main

import (
	"fmt"
	"time"

	"plus-api/internal/service"
	"plus-api/pkg/uid"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			repo, err := openRepository(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			defer repo.Close()

			logger.Info("schema is up to date", zap.String("db_type", cfg.Database.Type))
			return nil
		},
	}
}

func newTokenCommand() *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token <player-uuid>",
		Short: "Issue a player token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			player, err := uid.ParsePlayer(args[0])
			if err != nil {
				return err
			}

			cfg, _, err := setup()
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = cfg.Auth.TokenTTL
			}

			tokens, err := service.NewTokenService(cfg.Auth.TokenSecret, ttl)
			if err != nil {
				return fmt.Errorf("invalid AUTH_TOKEN_SECRET: %w", err)
			}

			token, data, err := tokens.GenerateToken(player)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, token)
			fmt.Fprintf(out, "expires %s\n", data.ExpiresAt.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to AUTH_TOKEN_TTL)")
	return cmd
}
