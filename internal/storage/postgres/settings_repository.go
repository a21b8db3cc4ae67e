package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/vladislavdragonenkov/printshop/internal/domain"
)

// SettingsRepository - key/value настройки в таблице settings.
type SettingsRepository struct {
	db DBTX
}

// NewSettingsRepository создаёт PostgreSQL-реализацию SettingsRepository.
func NewSettingsRepository(db DBTX) *SettingsRepository {
	return &SettingsRepository{db: db}
}

func (r *SettingsRepository) All(ctx context.Context) ([]domain.Setting, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return r.list(ctx, "list settings", `
		SELECT setting_key, setting_value, setting_group, updated_at
		FROM settings
		ORDER BY setting_key
	`)
}

func (r *SettingsRepository) ListGroup(ctx context.Context, group string) ([]domain.Setting, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return r.list(ctx, "list settings group", `
		SELECT setting_key, setting_value, setting_group, updated_at
		FROM settings
		WHERE setting_group = $1
		ORDER BY setting_key
	`, group)
}

func (r *SettingsRepository) list(ctx context.Context, op, query string, args ...any) ([]domain.Setting, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, domain.NewStoreError(op, err)
	}
	defer rows.Close()

	result := make([]domain.Setting, 0)
	for rows.Next() {
		var s domain.Setting
		if err := rows.Scan(&s.Key, &s.Value, &s.Group, &s.UpdatedAt); err != nil {
			return nil, domain.NewStoreError("scan setting", err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError("iterate settings", err)
	}
	return result, nil
}

func (r *SettingsRepository) Get(ctx context.Context, key string) (*domain.Setting, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var s domain.Setting
	err := r.db.QueryRow(ctx, `
		SELECT setting_key, setting_value, setting_group, updated_at
		FROM settings
		WHERE setting_key = $1
	`, key).Scan(&s.Key, &s.Value, &s.Group, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, domain.NewStoreError("select setting", err)
	}
	return &s, nil
}

func (r *SettingsRepository) Upsert(ctx context.Context, setting domain.Setting) error {
	if setting.Key == "" {
		return domain.ErrSettingKeyRequired
	}
	if setting.Group == "" {
		setting.Group = "general"
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := r.db.Exec(ctx, `
		INSERT INTO settings (setting_key, setting_value, setting_group, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (setting_key) DO UPDATE
		SET setting_value = EXCLUDED.setting_value,
		    setting_group = EXCLUDED.setting_group,
		    updated_at = NOW()
	`, setting.Key, setting.Value, setting.Group); err != nil {
		return domain.NewStoreError("upsert setting", err)
	}
	return nil
}

func (r *SettingsRepository) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := r.db.Exec(ctx, `DELETE FROM settings WHERE setting_key = $1`, key); err != nil {
		return domain.NewStoreError("delete setting", err)
	}
	return nil
}

var _ domain.SettingsRepository = (*SettingsRepository)(nil)
