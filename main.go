package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"talklink/middleware"
	"talklink/pkg/config"
	"talklink/pkg/store"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "talklink",
		Short: "Multilingual message relay",
		Long: `talklink links a host and invited guests who speak different languages.

Every message is translated, stored and relayed to everyone in the room and
to an optional Discord channel.

Examples:
  talklink                        # same as "talklink serve"
  talklink migrate                # create or update the database schema
  talklink token --sub 1 --name Minsu`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			st, err := store.Open(cfg.DBDriver, cfg.DatabaseDSN)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer st.Close()
			if err := st.Migrate(); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			cfg.NewLogger().WithField("driver", cfg.DBDriver).Info("[migrate] schema up to date")
			return nil
		},
	})

	rootCmd.AddCommand(newTokenCommand())
	return rootCmd
}

func newTokenCommand() *cobra.Command {
	var (
		sub  string
		name string
		ttl  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a host token for the websocket and HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			tok, err := middleware.SignHostToken(cfg.JWTSecret, sub, name, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&sub, "sub", "1", "host id (JWT subject)")
	cmd.Flags().StringVar(&name, "name", "Host", "display name shown to guests")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
