package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"go-archive-app/internal/auth"
	"go-archive-app/internal/config"
	"go-archive-app/internal/data"
	"go-archive-app/internal/logger"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations to the local and remote databases",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			log := logger.New(cfg.Log, nil)
			st, err := openStores(cfg, log, true)
			if err != nil {
				return err
			}
			st.Close()
			log.Info("Migrations applied successfully.")
			return nil
		},
	}
}

func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push the local snapshot to the remote database",
		Long:  "Upsert every node of the local SQLite snapshot into the remote MySQL database. Remote rows missing locally are kept.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			if !cfg.Remote.Enabled() {
				return errors.New("remote.dsn is not set")
			}
			log := logger.New(cfg.Log, nil)
			st, err := openStores(cfg, log, true)
			if err != nil {
				return err
			}
			defer st.Close()

			n, err := newNodeService(st, log).SyncToRemote(context.Background())
			if err != nil {
				return err
			}
			log.Info(fmt.Sprintf("Synced %d nodes to the remote database.", n))
			return nil
		},
	}
}

func schemaCmd() *cobra.Command {
	var dialect string
	cmd := &cobra.Command{
		Use:     "schema",
		Short:   "Print the SQL schema for a backend",
		Example: "schema --dialect mysql > schema.sql",
		RunE: func(cmd *cobra.Command, args []string) error {
			d := data.Dialect(dialect)
			if d != data.DialectMySQL && d != data.DialectSQLite {
				return fmt.Errorf("unknown dialect %q", dialect)
			}
			sql, err := data.SchemaSQL(d)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), sql)
			return nil
		},
	}
	cmd.Flags().StringVar(&dialect, "dialect", string(data.DialectMySQL), "mysql or sqlite")
	return cmd
}

func passcodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "passcode [passcode]",
		Short: "Print the bcrypt hash of an admin passcode",
		Long:  "Print the bcrypt hash for admin.passcodeHash. Without an argument the passcode is read from stdin.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var passcode string
			if len(args) == 1 {
				passcode = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return err
				}
				passcode = strings.TrimSpace(line)
			}
			hash, err := auth.HashPasscode(passcode)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
