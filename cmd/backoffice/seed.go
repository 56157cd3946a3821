package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/backoffice/internal/config"
	"github.com/vango-dev/backoffice/internal/errors"
	"github.com/vango-dev/backoffice/internal/store"
)

func seedCmd(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Fill an empty database with demo records",
		Long: `Create the schema and insert the demo records.
A database that already holds records is left untouched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg, os.Stderr)
			if err != nil {
				return err
			}

			records, err := store.Open(cmd.Context(), cfg.Database.Driver, cfg.DatabaseDSN(), store.WithLogger(logger))
			if err != nil {
				return errors.New("E140").Wrap(err)
			}
			defer records.Close()

			n, err := records.Seed(cmd.Context())
			if err != nil {
				return errors.New("E141").Wrap(err)
			}

			w := cmd.OutOrStdout()
			if n == 0 {
				warn(w, "Database already has records, nothing seeded")
				return nil
			}
			success(w, "Seeded %d records", n)
			return nil
		},
	}
}
