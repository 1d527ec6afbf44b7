package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/mrwhyte0520/contabi/internal/app"
	"github.com/mrwhyte0520/contabi/internal/platform/db"
)

// Version is overridden at build time with -ldflags.
var Version = "dev"

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "contabictl",
		Short:   "Ledger administration for contabi",
		Version: Version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newMigrateCommand(),
		newDepreciationCommand(),
		newPayrollCommand(),
		newJournalCommand(),
		newJobsCommand(),
	)

	return rootCmd
}

// env holds the connections opened for a single command invocation.
type env struct {
	cfg      *app.Config
	logger   *slog.Logger
	pool     *pgxpool.Pool
	services *app.Services
}

func openEnv(ctx context.Context) (*env, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	logger := app.NewLogger(cfg, "contabi-cli")
	pool, err := db.New(ctx, cfg.PoolConfig("contabi-cli"))
	if err != nil {
		return nil, fmt.Errorf("connecting database: %w", err)
	}
	return &env{
		cfg:      cfg,
		logger:   logger,
		pool:     pool,
		services: app.NewServices(cfg, pool, nil, nil, logger),
	}, nil
}

func (e *env) Close() {
	if e != nil && e.pool != nil {
		e.pool.Close()
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
