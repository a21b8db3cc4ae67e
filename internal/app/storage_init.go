package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/printshop/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/printshop/internal/health"
	"github.com/vladislavdragonenkov/printshop/internal/storage/memory"
	"github.com/vladislavdragonenkov/printshop/internal/storage/postgres"
)

// catalogRepositories - справочники каталога; есть только у PostgreSQL.
type catalogRepositories struct {
	products  domain.ProductRepository
	filaments domain.FilamentRepository
	loginLogs domain.LoginLogRepository
	uploads   domain.ModelUploadRepository
}

type runtimeDependencies struct {
	addresses      domain.AddressRepository
	orders         domain.OrderRepository
	outbox         domain.OutboxRepository
	settings       domain.SettingsRepository
	catalog        *catalogRepositories
	storageChecker healthcheck.Checker
	closeFn        func() error
}

func (d *runtimeDependencies) close() error {
	if d == nil || d.closeFn == nil {
		return nil
	}
	return d.closeFn()
}

// initRuntimeDependencies создаёт репозитории выбранного драйвера.
func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry, registerer prometheus.Registerer) (*runtimeDependencies, error) {
	switch cfg.StorageDriver {
	case StorageDriverMemory:
		return initMemoryStorage(logger), nil
	case StorageDriverPostgres:
		return initPostgresStorage(ctx, cfg, logger, registerer)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

func initMemoryStorage(logger *log.Entry) *runtimeDependencies {
	addresses := memory.NewAddressRepository()
	outbox := memory.NewOutboxRepository()
	logger.Info("using in-memory storage")

	return &runtimeDependencies{
		addresses: addresses,
		orders:    memory.NewOrderRepository(addresses, outbox),
		outbox:    outbox,
		settings:  memory.NewSettingsRepository(),
		storageChecker: healthcheck.NewFuncChecker("storage", func(context.Context) error {
			return nil
		}),
	}
}

func initPostgresStorage(ctx context.Context, cfg Config, logger *log.Entry, registerer prometheus.Registerer) (*runtimeDependencies, error) {
	if cfg.PostgresDSN == "" {
		return nil, errors.New("postgres dsn is required")
	}

	store, err := postgres.Open(ctx, cfg.PostgresDSN, postgres.PoolOptions{
		MaxConns:        cfg.PostgresMaxConns,
		ConnectAttempts: cfg.PostgresConnectAttempts,
	})
	if err != nil {
		return nil, err
	}
	if cfg.PostgresAutoMigrate {
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		logger.Info("postgres migrations applied")
	}

	collector := postgres.NewPoolStatsCollector(store.Pool())
	registered := false
	if registerer != nil {
		if err := registerer.Register(collector); err != nil {
			logger.WithError(err).Warn("failed to register postgres pool metrics")
		} else {
			registered = true
		}
	}

	db := store.DB()
	logger.Info("using postgres storage")
	return &runtimeDependencies{
		addresses: postgres.NewAddressRepository(db),
		orders:    postgres.NewOrderRepository(db),
		outbox:    postgres.NewOutboxRepository(db),
		settings:  postgres.NewSettingsRepository(db),
		catalog: &catalogRepositories{
			products:  postgres.NewProductRepository(db),
			filaments: postgres.NewFilamentRepository(db),
			loginLogs: postgres.NewLoginLogRepository(db),
			uploads:   postgres.NewModelUploadRepository(db),
		},
		storageChecker: healthcheck.NewFuncChecker("postgres", store.Ping),
		closeFn: func() error {
			if registered {
				registerer.Unregister(collector)
			}
			return store.Close()
		},
	}, nil
}
