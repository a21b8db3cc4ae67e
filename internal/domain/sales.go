package domain

import (
	"fmt"
	"strings"
	"time"
)

// SalesPeriod — гранулярность корзин отчёта о продажах.
type SalesPeriod string

const (
	SalesPeriodDaily   SalesPeriod = "daily"
	SalesPeriodWeekly  SalesPeriod = "weekly"
	SalesPeriodMonthly SalesPeriod = "monthly"
	SalesPeriodYearly  SalesPeriod = "yearly"
)

// SalesBucketLimit — сколько последних корзин возвращает отчёт.
const SalesBucketLimit = 12

const (
	// DefaultTopProductsLimit используется, если лимит не задан.
	DefaultTopProductsLimit = 10
	// MaxTopProductsLimit ограничивает отчёт сверху.
	MaxTopProductsLimit = 100
)

// TopProductsLimit приводит лимит отчёта к диапазону [1, MaxTopProductsLimit]; limit<=0 - значение по умолчанию.
func TopProductsLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultTopProductsLimit
	case limit > MaxTopProductsLimit:
		return MaxTopProductsLimit
	default:
		return limit
	}
}

// ParseSalesPeriod возвращает период; неизвестные значения трактуются как monthly.
func ParseSalesPeriod(raw string) SalesPeriod {
	switch p := SalesPeriod(strings.ToLower(strings.TrimSpace(raw))); p {
	case SalesPeriodDaily, SalesPeriodWeekly, SalesPeriodMonthly, SalesPeriodYearly:
		return p
	default:
		return SalesPeriodMonthly
	}
}

// BucketLabel возвращает ключ корзины для момента времени.
// Формат ключей лексикографически совпадает с хронологическим порядком.
func (p SalesPeriod) BucketLabel(t time.Time) string {
	t = t.UTC()
	switch p {
	case SalesPeriodDaily:
		return t.Format("2006-01-02")
	case SalesPeriodWeekly:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	case SalesPeriodYearly:
		return t.Format("2006")
	default:
		return t.Format("2006-01")
	}
}

// SalesBucket — агрегат продаж за одну корзину.
type SalesBucket struct {
	PeriodLabel       string `json:"period_label"`
	OrderCount        int64  `json:"order_count"`
	RevenueMinor      int64  `json:"revenue_minor"`
	AverageOrderMinor int64  `json:"average_order_minor"`
}

// TopProduct — строка отчёта о самых продаваемых товарах.
type TopProduct struct {
	ProductID         int64  `json:"product_id"`
	ProductName       string `json:"product_name"`
	ProductSlug       string `json:"product_slug"`
	TotalQuantity     int64  `json:"total_quantity"`
	OrderCount        int64  `json:"order_count"`
	TotalRevenueMinor int64  `json:"total_revenue_minor"`
}
