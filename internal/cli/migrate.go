package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"weather-qc/pkg/database"
)

func migrateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:       "migrate up|down",
		Short:     "Apply or roll back the database schema",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{database.MigrateUp, database.MigrateDown},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			// migrate always needs the database
			opts.persist = true

			a, err := newApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			applied, err := a.db.Migrate(ctx, args[0])
			for _, name := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", green("applied"), name)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Migration %s completed (%s)\n", args[0], a.db.Driver())
			return nil
		},
	}

	return cmd
}
