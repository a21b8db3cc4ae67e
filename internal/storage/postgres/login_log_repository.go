package postgres

import (
	"context"
	"time"

	"github.com/vladislavdragonenkov/printshop/internal/domain"
	"github.com/vladislavdragonenkov/printshop/internal/pagination"
)

// LoginLogRepository - аудит попыток входа.
type LoginLogRepository struct {
	db DBTX
}

// NewLoginLogRepository создаёт PostgreSQL-реализацию LoginLogRepository.
func NewLoginLogRepository(db DBTX) *LoginLogRepository {
	return &LoginLogRepository{db: db}
}

func (r *LoginLogRepository) Record(ctx context.Context, attempt domain.LoginAttempt) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var id int64
	if err := r.db.QueryRow(ctx, `
		INSERT INTO login_logs (user_id, email, ip_address, user_agent, success)
		VALUES (NULLIF($1::bigint, 0), $2, $3, $4, $5)
		RETURNING id
	`, attempt.UserID, attempt.Email, attempt.IPAddress, attempt.UserAgent, attempt.Success).Scan(&id); err != nil {
		return 0, domain.NewStoreError("insert login log", err)
	}
	return id, nil
}

func (r *LoginLogRepository) ListForUser(ctx context.Context, userID int64, page, perPage int) (pagination.Page[domain.LoginLog], error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	p := pagination.Normalize(page, perPage)

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM login_logs WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return pagination.Page[domain.LoginLog]{}, domain.NewStoreError("count login logs", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, COALESCE(user_id, 0), email, ip_address, user_agent, success, created_at
		FROM login_logs
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, userID, int64(p.PerPage), int64(p.Offset))
	if err != nil {
		return pagination.Page[domain.LoginLog]{}, domain.NewStoreError("list login logs", err)
	}
	defer rows.Close()

	logs := make([]domain.LoginLog, 0, p.PerPage)
	for rows.Next() {
		var l domain.LoginLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.Email, &l.IPAddress, &l.UserAgent, &l.Success, &l.CreatedAt); err != nil {
			return pagination.Page[domain.LoginLog]{}, domain.NewStoreError("scan login log", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return pagination.Page[domain.LoginLog]{}, domain.NewStoreError("iterate login logs", err)
	}

	return pagination.New(logs, total, p.Page, p.PerPage), nil
}

// CountRecentFailures считает неудачные попытки входа для email начиная с since.
func (r *LoginLogRepository) CountRecentFailures(ctx context.Context, email string, since time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var n int64
	if err := r.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM login_logs
		WHERE email = $1 AND NOT success AND created_at >= $2
	`, email, since.UTC()).Scan(&n); err != nil {
		return 0, domain.NewStoreError("count login failures", err)
	}
	return n, nil
}

var _ domain.LoginLogRepository = (*LoginLogRepository)(nil)
