package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/vladislavdragonenkov/printshop/internal/domain"
)

const (
	defaultOutboxBatch = 100

	outboxSent   = "sent"
	outboxFailed = "failed"
)

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// OutboxRepository - PostgreSQL-реализация transactional outbox.
type OutboxRepository struct {
	db DBTX
}

// NewOutboxRepository создаёт PostgreSQL-реализацию OutboxRepository.
func NewOutboxRepository(db DBTX) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// enqueueOutbox пишет сообщение через переданный execer; внутри транзакции заказа
// это гарантирует атомарность изменения и события.
func enqueueOutbox(ctx context.Context, db execer, msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	now := time.Now().UTC()

	_, err := db.Exec(ctx, `
		INSERT INTO outbox_messages (
			id, aggregate_type, aggregate_id, event_type, payload,
			status, attempt_count, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,'pending',0,$6,$6)
	`,
		msg.ID, msg.AggregateType, msg.AggregateID, msg.EventType, msg.Payload, now,
	)
	if err != nil {
		return domain.OutboxMessage{}, domain.NewStoreError("enqueue outbox message", err)
	}
	return msg, nil
}

// Enqueue пишет сообщение вне транзакции заказа.
func (r *OutboxRepository) Enqueue(ctx context.Context, msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return enqueueOutbox(ctx, r.db, msg)
}

// PullPending возвращает до limit ожидающих сообщений в порядке создания.
func (r *OutboxRepository) PullPending(ctx context.Context, limit int) ([]domain.OutboxMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if limit <= 0 {
		limit = defaultOutboxBatch
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, aggregate_type, aggregate_id, event_type, payload
		FROM outbox_messages
		WHERE status = 'pending'
		ORDER BY created_at, id
		LIMIT $1
	`, int64(limit))
	if err != nil {
		return nil, domain.NewStoreError("pull pending outbox messages", err)
	}
	pending, err := pgx.CollectRows(rows, pgx.RowToStructByPos[domain.OutboxMessage])
	if err != nil {
		return nil, domain.NewStoreError("scan outbox messages", err)
	}
	return pending, nil
}

// Stats возвращает размер очереди и время создания самого старого сообщения.
func (r *OutboxRepository) Stats(ctx context.Context) (domain.OutboxStats, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var (
		stats  domain.OutboxStats
		count  int64
		oldest pgtype.Timestamptz
	)

	if err := r.db.QueryRow(ctx, `
		SELECT COUNT(*), MIN(created_at)
		FROM outbox_messages
		WHERE status = 'pending'
	`).Scan(&count, &oldest); err != nil {
		return domain.OutboxStats{}, domain.NewStoreError("outbox stats", err)
	}

	stats.PendingCount = int(count)
	if oldest.Valid {
		stats.OldestPendingAt = oldest.Time.UTC()
	}

	return stats, nil
}

// MarkSent фиксирует успешную публикацию.
func (r *OutboxRepository) MarkSent(ctx context.Context, id string) error {
	return r.finish(ctx, id, outboxSent)
}

// MarkFailed выводит сообщение из очереди после исчерпания попыток.
func (r *OutboxRepository) MarkFailed(ctx context.Context, id string) error {
	return r.finish(ctx, id, outboxFailed)
}

func (r *OutboxRepository) finish(ctx context.Context, id, status string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE outbox_messages
		SET status = $2, attempt_count = attempt_count + 1, updated_at = $3
		WHERE id = $1
	`, id, status, time.Now().UTC())
	if err != nil {
		return domain.NewStoreError("mark outbox message "+status, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("outbox message %s: %w", id, domain.ErrOutboxPublish)
	}
	return nil
}

var _ domain.OutboxRepository = (*OutboxRepository)(nil)
