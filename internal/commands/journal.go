package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newJournalCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect posted journal entries",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show <entry-number>",
		Short: "Print a journal entry with its lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			number := strings.ToUpper(strings.TrimSpace(args[0]))
			if number == "" {
				return fmt.Errorf("entry number required")
			}

			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			entry, err := e.services.Journals.GetByNumber(cmd.Context(), number)
			if err != nil {
				return fmt.Errorf("journal %s: %w", number, err)
			}
			return printJSON(cmd.OutOrStdout(), entry)
		},
	})
	cmd.AddCommand(newTrialBalanceCommand())
	return cmd
}

func newTrialBalanceCommand() *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "trial-balance",
		Short: "Print the trial balance for a date range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			start, err := time.Parse("2006-01-02", from)
			if err != nil {
				return fmt.Errorf("parsing --from: %w", err)
			}
			end, err := time.Parse("2006-01-02", to)
			if err != nil {
				return fmt.Errorf("parsing --to: %w", err)
			}

			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			tb, err := e.services.Reports.TrialBalance(cmd.Context(), start, end)
			if err != nil {
				return fmt.Errorf("trial balance: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), tb)
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first day as YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&to, "to", "", "last day as YYYY-MM-DD (required)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}
