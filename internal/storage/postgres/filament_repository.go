package postgres

import (
	"context"

	"github.com/vladislavdragonenkov/printshop/internal/domain"
)

// FilamentRepository - палитра цветов филамента.
type FilamentRepository struct {
	db DBTX
}

// NewFilamentRepository создаёт PostgreSQL-реализацию FilamentRepository.
func NewFilamentRepository(db DBTX) *FilamentRepository {
	return &FilamentRepository{db: db}
}

func (r *FilamentRepository) ListActive(ctx context.Context) ([]domain.FilamentColor, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT id, name, hex_code, material, is_active, sort_order
		FROM filament_colors
		WHERE is_active
		ORDER BY sort_order ASC, name ASC
	`)
	if err != nil {
		return nil, domain.NewStoreError("list filament colors", err)
	}
	defer rows.Close()

	result := make([]domain.FilamentColor, 0)
	for rows.Next() {
		var c domain.FilamentColor
		if err := rows.Scan(&c.ID, &c.Name, &c.HexCode, &c.Material, &c.IsActive, &c.SortOrder); err != nil {
			return nil, domain.NewStoreError("scan filament color", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError("iterate filament colors", err)
	}
	return result, nil
}

func (r *FilamentRepository) Create(ctx context.Context, color domain.FilamentColor) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var id int64
	if err := r.db.QueryRow(ctx, `
		INSERT INTO filament_colors (name, hex_code, material, is_active, sort_order)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, color.Name, color.HexCode, color.Material, color.IsActive, color.SortOrder).Scan(&id); err != nil {
		return 0, domain.NewStoreError("insert filament color", err)
	}
	return id, nil
}

func (r *FilamentRepository) SetActive(ctx context.Context, id int64, active bool) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tag, err := r.db.Exec(ctx, `UPDATE filament_colors SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return domain.NewStoreError("update filament color", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrFilamentNotFound
	}
	return nil
}

var _ domain.FilamentRepository = (*FilamentRepository)(nil)
