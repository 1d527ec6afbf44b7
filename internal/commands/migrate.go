package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrwhyte0520/contabi/internal/platform/db"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			applied, err := db.Migrate(cmd.Context(), e.pool)
			for _, name := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", name)
			}
			if err != nil {
				return fmt.Errorf("migrating: %w", err)
			}
			return nil
		},
	}
}
