package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/tbourn/go-mdt-backend/internal/auth"
	"github.com/tbourn/go-mdt-backend/internal/repo"
	"github.com/tbourn/go-mdt-backend/internal/services"
	"github.com/tbourn/go-mdt-backend/internal/sysutil"
)

// openPrimary connects to the MDT store and brings its schema up to date.
func (a *app) openPrimary() (*gorm.DB, error) {
	db, err := repo.Open(a.cfg.DB.Driver, a.cfg.DB.Path, a.cfg.DB.DSN)
	if err != nil {
		return nil, err
	}
	if err := repo.AutoMigrate(db); err != nil {
		closeDB(db)
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the MDT tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.openPrimary()
			if err != nil {
				return err
			}
			defer closeDB(db)
			a.log.Info().Str("driver", a.cfg.DB.Driver).Msg("schema up to date")
			fmt.Fprintln(cmd.OutOrStdout(), "migrated")
			return nil
		},
	}
}

func newOfficerCmd(a *app) *cobra.Command {
	officer := &cobra.Command{
		Use:   "officer",
		Short: "Manage officer accounts",
	}

	var in services.NewOfficer
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an officer account (use role admin for the first account)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(in.Username) == "" {
				return errors.New("--username is required")
			}
			in.DisplayName = sysutil.FirstNonEmpty(in.DisplayName, in.Username)
			db, err := a.openPrimary()
			if err != nil {
				return err
			}
			defer closeDB(db)

			svc := &services.OfficerService{DB: db}
			o, err := svc.Create(cmd.Context(), auth.Principal{}, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "officer %d %s (%s)\n", o.ID, o.Username, o.Role)
			return nil
		},
	}
	f := create.Flags()
	f.StringVar(&in.Username, "username", "", "login name")
	f.StringVar(&in.Password, "password", "", "password (min 8 characters)")
	f.StringVar(&in.DisplayName, "name", "", "display name (defaults to the username)")
	f.StringVar(&in.Badge, "badge", "", "badge number")
	f.StringVar(&in.Rank, "rank", "", "rank")
	f.StringVar(&in.Role, "role", "officer", "officer, supervisor or admin")

	officer.AddCommand(create)
	return officer
}

func newTokenCmd(a *app) *cobra.Command {
	token := &cobra.Command{
		Use:   "token",
		Short: "Manage bot API tokens",
	}

	create := &cobra.Command{
		Use:   "create NAME",
		Short: "Mint a bot token; the plaintext is printed once",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openPrimary()
			if err != nil {
				return err
			}
			defer closeDB(db)

			plain, t, err := services.NewTokenService(db, a.cfg.BotTokenCacheTTL).Create(cmd.Context(), auth.Principal{}, args[0])
			if err != nil {
				return err
			}
			a.log.Info().Uint("token_id", t.ID).Str("name", t.Name).Msg("bot token created")
			fmt.Fprintln(cmd.OutOrStdout(), plain)
			return nil
		},
	}
	token.AddCommand(create)
	return token
}
