package postgres

import (
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func fixedNow() time.Time {
	return time.Date(2024, 1, 31, 18, 30, 0, 0, time.UTC)
}

func addressRowColumns() []string {
	return []string{
		"id", "user_id", "address", "number", "complement", "neighborhood",
		"city", "state", "zipcode", "is_default", "created_at",
	}
}

func orderRowColumns() []string {
	return []string{
		"id", "user_id", "order_number", "status", "payment_method", "payment_status",
		"shipping_address_id", "shipping_method", "shipping_cost_minor",
		"subtotal_minor", "discount_minor", "total_minor", "notes", "tracking_code",
		"created_at", "updated_at",
	}
}

func orderViewRowColumns() []string {
	return append(orderRowColumns(), "customer_name", "customer_email")
}
