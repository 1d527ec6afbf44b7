package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mrwhyte0520/contabi/internal/payroll"
)

func newPayrollCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payroll",
		Short: "Drive a payroll period through its lifecycle",
	}
	cmd.AddCommand(
		payrollStep("calculate", "Calculate entries and move the period to processing",
			func(ctx context.Context, svc *payroll.Service, id int64) (any, error) {
				return svc.CalculatePeriod(ctx, id)
			}),
		payrollStep("close", "Post the accrual entry and close the period",
			func(ctx context.Context, svc *payroll.Service, id int64) (any, error) {
				return svc.Close(ctx, id)
			}),
		payrollStep("pay", "Post the payment entry and mark the period paid",
			func(ctx context.Context, svc *payroll.Service, id int64) (any, error) {
				return svc.Pay(ctx, id)
			}),
		payrollStep("show", "Print a period with its entries",
			func(ctx context.Context, svc *payroll.Service, id int64) (any, error) {
				return svc.Summary(ctx, id)
			}),
	)
	return cmd
}

type payrollAction func(ctx context.Context, svc *payroll.Service, id int64) (any, error)

func payrollStep(use, short string, action payrollAction) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <period-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid period id %q", args[0])
			}

			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			out, err := action(cmd.Context(), e.services.Payroll, id)
			if err != nil {
				return fmt.Errorf("payroll %s %d: %w", use, id, err)
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}
