package postgres

import (
	"context"

	"github.com/vladislavdragonenkov/printshop/internal/domain"
	"github.com/vladislavdragonenkov/printshop/internal/pagination"
)

// ModelUploadRepository - метаданные загруженных 3D-моделей.
type ModelUploadRepository struct {
	db DBTX
}

// NewModelUploadRepository создаёт PostgreSQL-реализацию ModelUploadRepository.
func NewModelUploadRepository(db DBTX) *ModelUploadRepository {
	return &ModelUploadRepository{db: db}
}

func (r *ModelUploadRepository) Create(ctx context.Context, upload domain.NewModelUpload) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var id int64
	if err := r.db.QueryRow(ctx, `
		INSERT INTO model_uploads (
			user_id, original_name, stored_path, file_size, material, color_id, quantity, notes, status
		) VALUES ($1, $2, $3, $4, $5, NULLIF($6::bigint, 0), $7, $8, $9)
		RETURNING id
	`,
		upload.UserID, upload.OriginalName, upload.StoredPath, upload.FileSize, upload.Material,
		upload.ColorID, upload.Quantity, upload.Notes, string(domain.UploadStatusPending),
	).Scan(&id); err != nil {
		return 0, domain.NewStoreError("insert model upload", err)
	}
	return id, nil
}

func (r *ModelUploadRepository) ListForUser(ctx context.Context, userID int64, page, perPage int) (pagination.Page[domain.ModelUpload], error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	p := pagination.Normalize(page, perPage)

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM model_uploads WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return pagination.Page[domain.ModelUpload]{}, domain.NewStoreError("count model uploads", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, original_name, stored_path, file_size, material, COALESCE(color_id, 0),
		       quantity, notes, status, quoted_price_minor, created_at
		FROM model_uploads
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, userID, int64(p.PerPage), int64(p.Offset))
	if err != nil {
		return pagination.Page[domain.ModelUpload]{}, domain.NewStoreError("list model uploads", err)
	}
	defer rows.Close()

	uploads := make([]domain.ModelUpload, 0, p.PerPage)
	for rows.Next() {
		var (
			u      domain.ModelUpload
			status string
		)
		if err := rows.Scan(
			&u.ID, &u.UserID, &u.OriginalName, &u.StoredPath, &u.FileSize, &u.Material, &u.ColorID,
			&u.Quantity, &u.Notes, &status, &u.QuotedPriceMinor, &u.CreatedAt,
		); err != nil {
			return pagination.Page[domain.ModelUpload]{}, domain.NewStoreError("scan model upload", err)
		}
		u.Status = domain.UploadStatus(status)
		uploads = append(uploads, u)
	}
	if err := rows.Err(); err != nil {
		return pagination.Page[domain.ModelUpload]{}, domain.NewStoreError("iterate model uploads", err)
	}

	return pagination.New(uploads, total, p.Page, p.PerPage), nil
}

func (r *ModelUploadRepository) UpdateStatus(ctx context.Context, id int64, status domain.UploadStatus) error {
	if !status.Valid() {
		return domain.ErrInvalidUploadStatus
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tag, err := r.db.Exec(ctx, `UPDATE model_uploads SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return domain.NewStoreError("update model upload status", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUploadNotFound
	}
	return nil
}

// SetQuote фиксирует расчётную цену и переводит загрузку в quoted.
func (r *ModelUploadRepository) SetQuote(ctx context.Context, id int64, priceMinor int64) error {
	if priceMinor < 0 {
		return domain.ErrInvalidInput
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE model_uploads SET quoted_price_minor = $2, status = $3
		WHERE id = $1
	`, id, priceMinor, string(domain.UploadStatusQuoted))
	if err != nil {
		return domain.NewStoreError("set model upload quote", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUploadNotFound
	}
	return nil
}

var _ domain.ModelUploadRepository = (*ModelUploadRepository)(nil)
