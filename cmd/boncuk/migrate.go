package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/boncukgram/boncuk/pkg/settings"
)

func newMigrateCommand(a *app) *cobra.Command {
	var dsn string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the settings schema to a Postgres database",
		Example: `  boncuk migrate --database-url postgres://boncuk@localhost/boncuk
  BONCUK_DATABASE_URL=postgres://... boncuk migrate`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dsn == "" {
				dsn = a.clientConfig().Settings.DatabaseURL
			}
			if dsn == "" {
				return errors.New("--database-url or BONCUK_DATABASE_URL is required")
			}
			if err := settings.Migrate(cmd.Context(), dsn, a.logger); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "settings schema is up to date")
			return nil
		},
	}
	cmd.Flags().StringVar(&dsn, "database-url", "", "Postgres connection string (default: $BONCUK_DATABASE_URL)")
	return cmd
}
