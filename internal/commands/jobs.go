package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/mrwhyte0520/contabi/internal/app"
	"github.com/mrwhyte0520/contabi/jobs"
)

// triggerable lists the job names accepted by "jobs trigger".
var triggerable = []string{jobs.TaskDepreciationRun, jobs.TaskLedgerIntegrity, jobs.TaskQuoteExpiry}

func newJobsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Enqueue and inspect background jobs",
	}
	cmd.AddCommand(newJobsTriggerCommand(), newJobsStatsCommand())
	return cmd
}

func newJobsTriggerCommand() *cobra.Command {
	var period string

	cmd := &cobra.Command{
		Use:       "trigger <job>",
		Short:     "Enqueue a job for the worker",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: triggerable,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			client, err := jobs.NewClient(cfg.AsynqRedis())
			if err != nil {
				return err
			}
			defer client.Close()

			info, err := trigger(cmd.Context(), client, args[0], period)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s (%s) on %s\n", info.Type, info.ID, info.Queue)
			return nil
		},
	}

	cmd.Flags().StringVar(&period, "period", jobs.PeriodPrevious, "month for "+jobs.TaskDepreciationRun+" as YYYY-MM")

	return cmd
}

func trigger(ctx context.Context, client *jobs.Client, name, period string) (*asynq.TaskInfo, error) {
	switch name {
	case jobs.TaskDepreciationRun:
		return client.EnqueueDepreciationRun(ctx, period)
	case jobs.TaskLedgerIntegrity:
		return client.EnqueueLedgerIntegrity(ctx)
	case jobs.TaskQuoteExpiry:
		return client.EnqueueQuoteExpiry(ctx)
	default:
		return nil, fmt.Errorf("unsupported job %s", name)
	}
}

// queueStats summarises the current queue state.
type queueStats struct {
	Queue     string `json:"queue"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Scheduled int    `json:"scheduled"`
	Retry     int    `json:"retry"`
	Archived  int    `json:"archived"`
}

func newJobsStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print default queue counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			inspector := asynq.NewInspector(cfg.AsynqRedis())
			defer inspector.Close()

			info, err := inspector.GetQueueInfo(jobs.QueueDefault)
			if err != nil && !errors.Is(err, asynq.ErrQueueNotFound) {
				return fmt.Errorf("inspecting queue: %w", err)
			}
			stats := queueStats{Queue: jobs.QueueDefault}
			if info != nil {
				stats.Pending = info.Pending
				stats.Active = info.Active
				stats.Scheduled = info.Scheduled
				stats.Retry = info.Retry
				stats.Archived = info.Archived
			}
			return printJSON(cmd.OutOrStdout(), stats)
		},
	}
}
