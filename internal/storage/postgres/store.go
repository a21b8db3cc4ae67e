package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/printshop/internal/domain"
)

const (
	defaultConnTimeout     = 5 * time.Second
	defaultMaxConns        = 25
	defaultMinConns        = 2
	defaultConnMaxLifetime = 30 * time.Minute
	defaultConnMaxIdleTime = 5 * time.Minute
	defaultConnectAttempts = 3
	defaultConnectBackoff  = time.Second

	opTimeout = 5 * time.Second
)

// DBTX - общий интерфейс pgxpool.Pool, pgx.Tx и pgxmock.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PoolOptions задаёт параметры пула подключений.
type PoolOptions struct {
	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	ConnectAttempts int
}

func (o PoolOptions) withDefaults() PoolOptions {
	if o.MaxConns <= 0 {
		o.MaxConns = defaultMaxConns
	}
	if o.MinConns < 0 || o.MinConns > o.MaxConns {
		o.MinConns = defaultMinConns
	}
	if o.ConnMaxLifetime <= 0 {
		o.ConnMaxLifetime = defaultConnMaxLifetime
	}
	if o.ConnMaxIdleTime <= 0 {
		o.ConnMaxIdleTime = defaultConnMaxIdleTime
	}
	if o.ConnectAttempts <= 0 {
		o.ConnectAttempts = defaultConnectAttempts
	}
	return o
}

// Store оборачивает пул подключений к PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// Open открывает пул подключений и проверяет доступность базы.
// При старте выполняется несколько попыток с экспоненциальной задержкой.
func Open(ctx context.Context, dsn string, opts PoolOptions) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	opts = opts.withDefaults()
	cfg.MaxConns = opts.MaxConns
	cfg.MinConns = opts.MinConns
	cfg.MaxConnLifetime = opts.ConnMaxLifetime
	cfg.MaxConnIdleTime = opts.ConnMaxIdleTime

	logger := log.WithField("component", "postgres")

	var lastErr error
	for attempt := 1; attempt <= opts.ConnectAttempts; attempt++ {
		pool, err := pgxpool.NewWithConfig(ctx, cfg)
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
			err = pool.Ping(pingCtx)
			cancel()
			if err == nil {
				return &Store{pool: pool}, nil
			}
			pool.Close()
		}
		lastErr = err

		if attempt == opts.ConnectAttempts {
			break
		}
		wait := defaultConnectBackoff << (attempt - 1)
		logger.WithError(err).WithFields(log.Fields{
			"attempt": attempt,
			"backoff": wait,
		}).Warn("postgres is not reachable, retrying")

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("connect postgres: %w", ctx.Err())
		case <-time.After(wait):
		}
	}

	return nil, fmt.Errorf("connect postgres after %d attempts: %w", opts.ConnectAttempts, lastErr)
}

// DB возвращает пул в виде DBTX для репозиториев.
func (s *Store) DB() DBTX {
	return s.pool
}

// Pool возвращает raw pgxpool, когда нужен низкоуровневый доступ (метрики, миграции).
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// Ping проверяет доступность подключения.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("postgres store is not initialized")
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
	defer cancel()
	return s.pool.Ping(pingCtx)
}

// EnsureSchema применяет все up-миграции.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.MigrateUp(ctx, 0)
}

// Close закрывает пул подключений.
func (s *Store) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

// inTx выполняет fn в транзакции; при ошибке транзакция откатывается.
func inTx(ctx context.Context, db DBTX, fn func(tx pgx.Tx) error) (err error) {
	tx, err := db.Begin(ctx)
	if err != nil {
		return domain.NewStoreError("begin tx", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return domain.NewStoreError("commit tx", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
