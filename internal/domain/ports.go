package domain

import (
	"context"
	"time"

	"github.com/vladislavdragonenkov/printshop/internal/pagination"
)

// AddressRepository хранит адресную книгу и поддерживает инвариант
// «ровно один адрес по умолчанию» для пользователя с адресами.
type AddressRepository interface {
	ListForUser(ctx context.Context, userID int64) ([]Address, error)
	GetDefault(ctx context.Context, userID int64) (*Address, error)
	Get(ctx context.Context, addressID int64) (*Address, error)
	Add(ctx context.Context, userID int64, fields AddressFields) (int64, error)
	SetDefault(ctx context.Context, addressID, userID int64) error
	Update(ctx context.Context, addressID int64, update AddressUpdate) error
	Delete(ctx context.Context, addressID, userID int64) error
	DeleteAllForUser(ctx context.Context, userID int64) error
}

// OrderRepository хранит заказы, их позиции и строит отчёты о продажах.
// Lookup-методы возвращают nil без ошибки, если запись не найдена.
type OrderRepository interface {
	Create(ctx context.Context, order NewOrder) (int64, error)
	Get(ctx context.Context, id int64) (*OrderView, error)
	FindByOrderNumber(ctx context.Context, orderNumber string) (*OrderView, error)
	ListForUser(ctx context.Context, userID int64, page, perPage int) (pagination.Page[Order], error)
	Search(ctx context.Context, filter OrderFilter, page, perPage int) (pagination.Page[OrderView], error)
	UpdateStatus(ctx context.Context, id int64, status OrderStatus) error
	UpdatePaymentStatus(ctx context.Context, id int64, status PaymentStatus) error
	AddTrackingCode(ctx context.Context, id int64, code string) error
	Items(ctx context.Context, orderID int64) ([]OrderItem, error)
	ShippingAddress(ctx context.Context, addressID int64) (*Address, error)
	SalesStats(ctx context.Context, period SalesPeriod) ([]SalesBucket, error)
	TopProducts(ctx context.Context, limit int) ([]TopProduct, error)
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(ctx context.Context, msg OutboxMessage) (OutboxMessage, error)
	PullPending(ctx context.Context, limit int) ([]OutboxMessage, error)
	Stats(ctx context.Context) (OutboxStats, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error
}

// SettingsRepository - key/value хранилище настроек.
type SettingsRepository interface {
	All(ctx context.Context) ([]Setting, error)
	Get(ctx context.Context, key string) (*Setting, error)
	ListGroup(ctx context.Context, group string) ([]Setting, error)
	Upsert(ctx context.Context, setting Setting) error
	Delete(ctx context.Context, key string) error
}

// ProductRepository - каталог товаров.
type ProductRepository interface {
	Create(ctx context.Context, product NewProduct) (int64, error)
	FindBySlug(ctx context.Context, slug string) (*Product, error)
	ListActive(ctx context.Context, page, perPage int) (pagination.Page[Product], error)
}

// FilamentRepository - палитра цветов филамента.
type FilamentRepository interface {
	ListActive(ctx context.Context) ([]FilamentColor, error)
	Create(ctx context.Context, color FilamentColor) (int64, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

// LoginLogRepository - аудит попыток входа.
type LoginLogRepository interface {
	Record(ctx context.Context, attempt LoginAttempt) (int64, error)
	ListForUser(ctx context.Context, userID int64, page, perPage int) (pagination.Page[LoginLog], error)
	CountRecentFailures(ctx context.Context, email string, since time.Time) (int64, error)
}

// ModelUploadRepository - метаданные загруженных 3D-моделей.
type ModelUploadRepository interface {
	Create(ctx context.Context, upload NewModelUpload) (int64, error)
	ListForUser(ctx context.Context, userID int64, page, perPage int) (pagination.Page[ModelUpload], error)
	UpdateStatus(ctx context.Context, id int64, status UploadStatus) error
	SetQuote(ctx context.Context, id int64, priceMinor int64) error
}
