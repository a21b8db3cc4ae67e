package postgres

import (
	"context"

	"github.com/vladislavdragonenkov/printshop/internal/domain"
)

// salesBucketExpr - выражения группировки по периоду. Ключи сортируются лексикографически
// в хронологическом порядке, поэтому ORDER BY bucket DESC даёт самые свежие корзины.
var salesBucketExpr = map[domain.SalesPeriod]string{
	domain.SalesPeriodDaily:   `to_char(o.created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD')`,
	domain.SalesPeriodWeekly:  `to_char(o.created_at AT TIME ZONE 'UTC', 'IYYY-"W"IW')`,
	domain.SalesPeriodMonthly: `to_char(o.created_at AT TIME ZONE 'UTC', 'YYYY-MM')`,
	domain.SalesPeriodYearly:  `to_char(o.created_at AT TIME ZONE 'UTC', 'YYYY')`,
}

// SalesStats агрегирует не отменённые заказы по корзинам периода (не более 12 последних).
func (r *OrderRepository) SalesStats(ctx context.Context, period domain.SalesPeriod) ([]domain.SalesBucket, error) {
	expr, ok := salesBucketExpr[period]
	if !ok {
		expr = salesBucketExpr[domain.SalesPeriodMonthly]
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT `+expr+` AS bucket,
		       COUNT(*),
		       COALESCE(SUM(o.total_minor), 0)::bigint,
		       COALESCE(ROUND(AVG(o.total_minor)), 0)::bigint
		FROM orders o
		WHERE o.status <> $1
		GROUP BY bucket
		ORDER BY bucket DESC
		LIMIT $2
	`, string(domain.OrderStatusCanceled), int64(domain.SalesBucketLimit))
	if err != nil {
		return nil, domain.NewStoreError("query sales stats", err)
	}
	defer rows.Close()

	buckets := make([]domain.SalesBucket, 0, domain.SalesBucketLimit)
	for rows.Next() {
		var b domain.SalesBucket
		if err := rows.Scan(&b.PeriodLabel, &b.OrderCount, &b.RevenueMinor, &b.AverageOrderMinor); err != nil {
			return nil, domain.NewStoreError("scan sales bucket", err)
		}
		buckets = append(buckets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError("iterate sales buckets", err)
	}

	return buckets, nil
}

// TopProducts возвращает самые продаваемые товары по количеству; при равенстве - по product_id.
func (r *OrderRepository) TopProducts(ctx context.Context, limit int) ([]domain.TopProduct, error) {
	limit = domain.TopProductsLimit(limit)

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT oi.product_id,
		       COALESCE(p.name, ''),
		       COALESCE(p.slug, ''),
		       SUM(oi.quantity)::bigint AS total_quantity,
		       COUNT(DISTINCT oi.order_id),
		       SUM(oi.quantity::bigint * oi.price_minor)::bigint
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE o.status <> $1
		GROUP BY oi.product_id, p.name, p.slug
		ORDER BY total_quantity DESC, oi.product_id ASC
		LIMIT $2
	`, string(domain.OrderStatusCanceled), int64(limit))
	if err != nil {
		return nil, domain.NewStoreError("query top products", err)
	}
	defer rows.Close()

	result := make([]domain.TopProduct, 0)
	for rows.Next() {
		var tp domain.TopProduct
		if err := rows.Scan(
			&tp.ProductID, &tp.ProductName, &tp.ProductSlug,
			&tp.TotalQuantity, &tp.OrderCount, &tp.TotalRevenueMinor,
		); err != nil {
			return nil, domain.NewStoreError("scan top product", err)
		}
		result = append(result, tp)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError("iterate top products", err)
	}

	return result, nil
}
