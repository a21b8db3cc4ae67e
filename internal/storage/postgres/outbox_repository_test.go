package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/printshop/internal/domain"
)

func TestOutboxRepository_EnqueueAssignsID(t *testing.T) {
	mock := newMockPool(t)
	repo := NewOutboxRepository(mock)

	mock.ExpectExec("INSERT INTO outbox_messages").
		WithArgs(pgxmock.AnyArg(), "order", "42", "order.created", []byte(`{}`), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	msg, err := repo.Enqueue(context.Background(), domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   "42",
		EventType:     "order.created",
		Payload:       []byte(`{}`),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxRepository_PullPending(t *testing.T) {
	mock := newMockPool(t)
	repo := NewOutboxRepository(mock)

	mock.ExpectQuery("SELECT id, aggregate_type, aggregate_id, event_type, payload FROM outbox_messages WHERE status = 'pending'").
		WithArgs(int64(100)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "aggregate_type", "aggregate_id", "event_type", "payload"}).
			AddRow("m-1", "order", "1", "order.created", []byte(`{"order_id":1}`)).
			AddRow("m-2", "order", "1", "order.shipped", []byte(`{"order_id":1}`)))

	msgs, err := repo.PullPending(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "m-1", msgs[0].ID)
	assert.Equal(t, "order.shipped", msgs[1].EventType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxRepository_Stats(t *testing.T) {
	mock := newMockPool(t)
	repo := NewOutboxRepository(mock)
	oldest := time.Date(2024, 1, 30, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT COUNT.+, MIN.+ FROM outbox_messages").
		WillReturnRows(pgxmock.NewRows([]string{"count", "min"}).AddRow(int64(3), oldest))

	stats, err := repo.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.PendingCount)
	assert.True(t, stats.OldestPendingAt.Equal(oldest))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxRepository_MarkStatus(t *testing.T) {
	mock := newMockPool(t)
	repo := NewOutboxRepository(mock)

	mock.ExpectExec("UPDATE outbox_messages").
		WithArgs("m-1", "sent", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE outbox_messages").
		WithArgs("m-404", "failed", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectExec("UPDATE outbox_messages").
		WithArgs("m-2", "sent", pgxmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))

	require.NoError(t, repo.MarkSent(context.Background(), "m-1"))
	assert.ErrorIs(t, repo.MarkFailed(context.Background(), "m-404"), domain.ErrOutboxPublish)

	err := repo.MarkSent(context.Background(), "m-2")
	assert.True(t, domain.IsStoreError(err))
	assert.Contains(t, err.Error(), "mark outbox message sent")
	assert.NoError(t, mock.ExpectationsWereMet())
}
