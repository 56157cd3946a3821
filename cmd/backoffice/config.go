package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/backoffice/internal/config"
	"github.com/vango-dev/backoffice/internal/errors"
)

func configCmd(load func() (*config.Config, error), configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage " + config.ConfigFileName,
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with the defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := *configPath
			if path == "" {
				path = config.ConfigFileName
			}
			if _, err := os.Stat(path); err == nil && !force {
				return errors.Newf(errors.CategoryConfig, "%s already exists", path).
					WithSuggestion("Pass --force to overwrite it")
			}
			if err := config.New().SaveTo(path); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Wrote %s", path)
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration and print the effective settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if _, err := cfg.ServerConfig(); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			source := cfg.Path()
			if source == "" {
				source = "built-in defaults"
			}
			success(w, "Configuration is valid (%s)", source)
			info(w, "Listen:    %s", cfg.Address())
			info(w, "Database:  %s", cfg.Database.Driver)
			info(w, "Uploads:   %s", cfg.Uploads.Backend)
			info(w, "Language:  %s", cfg.I18n.DefaultLanguage)
			info(w, "Log:       %s/%s", cfg.Log.Level, cfg.Log.Format)
			if p := cfg.Principal(); !p.IsZero() {
				warn(w, "Default user %q applies to requests without identity headers", p.ID)
			}
			return nil
		},
	}

	cmd.AddCommand(initCmd, checkCmd)
	return cmd
}
