package app

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/mrwhyte0520/contabi/internal/accounting/accounts"
	"github.com/mrwhyte0520/contabi/internal/accounting/journals"
	"github.com/mrwhyte0520/contabi/internal/accounting/mappings"
	"github.com/mrwhyte0520/contabi/internal/accounting/periods"
	"github.com/mrwhyte0520/contabi/internal/accounting/reports"
	"github.com/mrwhyte0520/contabi/internal/assets"
	"github.com/mrwhyte0520/contabi/internal/assets/depreciation"
	"github.com/mrwhyte0520/contabi/internal/assets/revaluation"
	"github.com/mrwhyte0520/contabi/internal/observability"
	"github.com/mrwhyte0520/contabi/internal/payroll"
	"github.com/mrwhyte0520/contabi/internal/platform/cache"
	"github.com/mrwhyte0520/contabi/internal/platform/db"
	"github.com/mrwhyte0520/contabi/internal/sales/quotations"
	"github.com/mrwhyte0520/contabi/internal/shared"
)

// Services holds the wired domain services shared by the API, worker and CLI.
type Services struct {
	Directory    *accounts.Directory
	Journals     *journals.Service
	Reader       journals.Getter
	Reports      *reports.Service
	Depreciation *depreciation.Scheduler
	Revaluation  *revaluation.Service
	Payroll      *payroll.Service
	Quotes       *quotations.Service
}

// NewServices wires repositories and services. A nil redis client disables
// the journal read cache; a nil metrics disables posting counters.
func NewServices(cfg *Config, pool *pgxpool.Pool, redisClient *redis.Client, metrics *observability.Metrics, logger *slog.Logger) *Services {
	tx := db.NewTxManager(pool)
	auditLogger := shared.NewAuditLogger(pool)
	approvals := shared.NewApprovalRecorder(pool, logger)

	directory := accounts.NewDirectory(accounts.NewRepository(pool), mappings.NewRepository(pool))
	journalRepo := journals.NewRepository(pool)
	engine := journals.NewService(journalRepo, tx, periods.NewGuard(periods.NewRepository(pool)), auditLogger, logger)
	if metrics != nil {
		engine.WithObserver(metrics)
	}

	ttl := cfg.JournalCacheTTL
	reader := journals.NewCachedReader(engine, cache.NewJSONCache(redisClient, "contabi", ttl))

	assetRepo := assets.NewRepository(pool)
	return &Services{
		Directory:    directory,
		Journals:     engine,
		Reader:       reader,
		Reports:      reports.NewService(reports.NewRepository(pool)),
		Depreciation: depreciation.NewScheduler(assetRepo, depreciation.NewRepository(pool), directory, engine, auditLogger, logger),
		Revaluation:  revaluation.NewService(revaluation.NewRepository(pool), assetRepo, directory, engine, tx, approvals, logger),
		Payroll:      payroll.NewService(payroll.NewRepository(pool), tx, directory, engine, cfg.PayrollFallbackRate, logger),
		Quotes:       quotations.NewService(quotations.NewRepository(pool), approvals, logger),
	}
}
