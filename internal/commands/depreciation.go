package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrwhyte0520/contabi/internal/assets/depreciation"
)

func newDepreciationCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "depreciation",
		Short: "Run or inspect monthly depreciation",
	}
	cmd.AddCommand(newDepreciationRunCommand())
	return cmd
}

func newDepreciationRunCommand() *cobra.Command {
	var period string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Post depreciation for a month (defaults to the previous month)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			target, err := resolveRunPeriod(period, time.Now().UTC())
			if err != nil {
				return err
			}

			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			result, err := e.services.Depreciation.Run(cmd.Context(), target.End())
			if printErr := printJSON(cmd.OutOrStdout(), result); printErr != nil {
				return printErr
			}
			if err != nil {
				return fmt.Errorf("depreciation run %s: %w", target, err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&period, "period", "", "month to depreciate as YYYY-MM")

	return cmd
}

func resolveRunPeriod(raw string, now time.Time) (depreciation.Period, error) {
	if raw == "" {
		return depreciation.PeriodOf(now.AddDate(0, 0, -now.Day())), nil
	}
	p, err := depreciation.ParsePeriod(raw)
	if err != nil {
		return depreciation.Period{}, fmt.Errorf("parsing --period: %w", err)
	}
	return p, nil
}
