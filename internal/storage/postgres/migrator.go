package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
)

const (
	migrationsGlob    = "sql/migrations/*.sql"
	migrationLockKey  = int64(70231501)
	migrationTableDDL = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version BIGINT PRIMARY KEY,
    name TEXT NOT NULL,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`
)

var (
	//go:embed sql/migrations/*.sql
	migrationsFS embed.FS

	migrationFilePattern = regexp.MustCompile(`^(\d+)_([a-zA-Z0-9_]+)\.(up|down)\.sql$`)
)

type migrationDirection string

const (
	migrationUp   migrationDirection = "up"
	migrationDown migrationDirection = "down"
)

type migration struct {
	Version int64
	Name    string
	UpSQL   string
	DownSQL string
}

// MigrateUp применяет up-миграции.
// steps=0 означает "применить все доступные".
func (s *Store) MigrateUp(ctx context.Context, steps int) error {
	return s.migrate(ctx, migrationUp, steps)
}

// MigrateDown откатывает миграции.
// steps<=0 интерпретируется как 1 шаг.
func (s *Store) MigrateDown(ctx context.Context, steps int) error {
	if steps <= 0 {
		steps = 1
	}
	return s.migrate(ctx, migrationDown, steps)
}

// MigrationStatus возвращает текущую версию и количество применённых миграций.
func (s *Store) MigrationStatus(ctx context.Context) (int64, int, error) {
	if s == nil || s.pool == nil {
		return 0, 0, errStoreNotInitialized
	}

	queryCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := s.pool.Exec(queryCtx, migrationTableDDL); err != nil {
		return 0, 0, fmt.Errorf("ensure migration table: %w", err)
	}
	applied, err := appliedVersions(queryCtx, s.pool)
	if err != nil {
		return 0, 0, err
	}
	if len(applied) == 0 {
		return 0, 0, nil
	}
	return applied[len(applied)-1], len(applied), nil
}

var errStoreNotInitialized = errors.New("postgres store is not initialized")

func (s *Store) migrate(ctx context.Context, direction migrationDirection, steps int) error {
	if s == nil || s.pool == nil {
		return errStoreNotInitialized
	}
	if direction != migrationUp && direction != migrationDown {
		return fmt.Errorf("unsupported migration direction: %s", direction)
	}

	migrations, err := loadMigrationsFromFS(migrationsFS)
	if err != nil {
		return err
	}

	// Advisory lock держится на сессии, поэтому все шаги выполняются на одном соединении.
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire db connection: %w", err)
	}
	defer conn.Release()

	lockCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if _, err := conn.Exec(lockCtx, "SELECT pg_advisory_lock($1)", migrationLockKey); err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	defer func() {
		_, _ = conn.Exec(context.Background(), "SELECT pg_advisory_unlock($1)", migrationLockKey)
	}()

	return runMigrations(ctx, conn, migrations, direction, steps)
}

// runMigrations применяет план на одном соединении; каждая миграция - отдельная транзакция.
func runMigrations(ctx context.Context, conn DBTX, migrations []migration, direction migrationDirection, steps int) error {
	if _, err := conn.Exec(ctx, migrationTableDDL); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}
	applied, err := appliedVersions(ctx, conn)
	if err != nil {
		return err
	}

	var plan []migration
	if direction == migrationUp {
		plan = planUp(migrations, applied, steps)
	} else if plan, err = planDown(migrations, applied, steps); err != nil {
		return err
	}

	for _, m := range plan {
		if err := applyMigration(ctx, conn, m, direction); err != nil {
			return err
		}
	}
	return nil
}

// planUp возвращает неприменённые миграции по возрастанию версии; steps<=0 - все.
func planUp(migrations []migration, applied []int64, steps int) []migration {
	done := make(map[int64]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}

	var plan []migration
	for _, m := range migrations {
		if done[m.Version] {
			continue
		}
		plan = append(plan, m)
		if steps > 0 && len(plan) == steps {
			break
		}
	}
	return plan
}

// planDown возвращает последние steps применённых миграций от новых к старым.
// Версия без файла миграции - ошибка: откатить её нечем.
func planDown(migrations []migration, applied []int64, steps int) ([]migration, error) {
	byVersion := make(map[int64]migration, len(migrations))
	for _, m := range migrations {
		byVersion[m.Version] = m
	}

	var plan []migration
	for i := len(applied) - 1; i >= 0 && len(plan) < steps; i-- {
		m, ok := byVersion[applied[i]]
		if !ok {
			return nil, fmt.Errorf("cannot rollback unknown migration version %d", applied[i])
		}
		plan = append(plan, m)
	}
	return plan, nil
}

func applyMigration(ctx context.Context, conn DBTX, m migration, direction migrationDirection) error {
	body, record, args := m.UpSQL, `INSERT INTO schema_migrations (version, name, applied_at) VALUES ($1, $2, NOW())`, []any{m.Version, m.Name}
	if direction == migrationDown {
		body, record, args = m.DownSQL, `DELETE FROM schema_migrations WHERE version = $1`, []any{m.Version}
	}
	label := fmt.Sprintf("%s migration %d_%s", direction, m.Version, m.Name)

	err := inTx(ctx, conn, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, body); err != nil {
			return fmt.Errorf("execute: %w", err)
		}
		if _, err := tx.Exec(ctx, record, args...); err != nil {
			return fmt.Errorf("record: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", label, err)
	}
	return nil
}

// appliedVersions возвращает применённые версии по возрастанию.
func appliedVersions(ctx context.Context, conn DBTX) ([]int64, error) {
	rows, err := conn.Query(ctx, `SELECT version FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("scan applied migrations: %w", err)
	}
	return versions, nil
}

// loadMigrationsFromFS собирает пары up/down из sql/migrations, отсортированные по версии.
func loadMigrationsFromFS(fsys fs.FS) ([]migration, error) {
	files, err := fs.Glob(fsys, migrationsGlob)
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	if len(files) == 0 {
		return nil, errors.New("no migration files found")
	}

	byVersion := make(map[int64]*migration, len(files)/2)
	for _, file := range files {
		version, name, direction, err := parseMigrationFileName(path.Base(file))
		if err != nil {
			return nil, err
		}
		raw, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("read migration file %s: %w", file, err)
		}
		body := strings.TrimSpace(string(raw))
		if body == "" {
			return nil, fmt.Errorf("migration file is empty: %s", path.Base(file))
		}

		m, ok := byVersion[version]
		if !ok {
			m = &migration{Version: version, Name: name}
			byVersion[version] = m
		}
		if m.Name != name {
			return nil, fmt.Errorf("migration name mismatch for version %d: %s vs %s", version, m.Name, name)
		}

		target := &m.UpSQL
		if direction == migrationDown {
			target = &m.DownSQL
		}
		if *target != "" {
			return nil, fmt.Errorf("duplicate %s migration for version %d", direction, version)
		}
		*target = body
	}

	migrations := make([]migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.UpSQL == "" || m.DownSQL == "" {
			return nil, fmt.Errorf("migration %d_%s must have both up and down files", m.Version, m.Name)
		}
		migrations = append(migrations, *m)
	}
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	return migrations, nil
}

// parseMigrationFileName разбирает имя вида 0001_name.up.sql.
func parseMigrationFileName(base string) (int64, string, migrationDirection, error) {
	m := migrationFilePattern.FindStringSubmatch(base)
	if m == nil {
		return 0, "", "", fmt.Errorf("invalid migration file name: %s", base)
	}
	version, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, "", "", fmt.Errorf("parse migration version from %s: %w", base, err)
	}
	return version, m[2], migrationDirection(m[3]), nil
}
