package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-mdt-backend/internal/config"
	"github.com/tbourn/go-mdt-backend/internal/sysutil"
)

// app is the state shared by every subcommand once the root pre-run loaded
// the configuration.
type app struct {
	envFiles []string
	cfg      config.Config
	log      zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "mdt",
		Short:         "Police MDT backend for role-play game servers",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadDotEnv(a.envFiles...); err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log = sysutil.SetupLogger(cfg.LogLevel, cfg.LogPretty, cmd.ErrOrStderr())
			return nil
		},
	}
	root.PersistentFlags().StringSliceVar(&a.envFiles, "env-file", []string{".env"}, "dotenv files to load before reading the environment")

	root.AddCommand(
		newServeCmd(a),
		newMigrateCmd(a),
		newOfficerCmd(a),
		newTokenCmd(a),
	)
	return root
}
