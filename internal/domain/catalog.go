package domain

import "time"

// Setting - запись key/value хранилища настроек.
type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	Group     string    `json:"group"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Product - товар каталога.
type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	PriceMinor  int64     `json:"price_minor"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewProduct - поля для создания товара.
type NewProduct struct {
	Name        string `json:"name" validate:"required,max=255"`
	Slug        string `json:"slug" validate:"required,max=255"`
	Description string `json:"description"`
	PriceMinor  int64  `json:"price_minor" validate:"gte=0"`
	IsActive    bool   `json:"is_active"`
}

// FilamentColor - цвет филамента, доступный для печати.
type FilamentColor struct {
	ID        int64  `json:"id"`
	Name      string `json:"name" validate:"required,max=100"`
	HexCode   string `json:"hex_code" validate:"required,hexcolor"`
	Material  string `json:"material" validate:"required,max=50"`
	IsActive  bool   `json:"is_active"`
	SortOrder int32  `json:"sort_order"`
}

// LoginAttempt - попытка входа для аудита. UserID = 0, если пользователь не опознан.
type LoginAttempt struct {
	UserID    int64  `json:"user_id,omitempty"`
	Email     string `json:"email"`
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
	Success   bool   `json:"success"`
}

// LoginLog - сохранённая запись аудита входов.
type LoginLog struct {
	ID int64 `json:"id"`
	LoginAttempt
	CreatedAt time.Time `json:"created_at"`
}

// UploadStatus - этап обработки загруженной 3D-модели.
type UploadStatus string

const (
	UploadStatusPending  UploadStatus = "pending"
	UploadStatusQuoted   UploadStatus = "quoted"
	UploadStatusApproved UploadStatus = "approved"
	UploadStatusRejected UploadStatus = "rejected"
)

// Valid проверяет, что статус загрузки поддерживается.
func (s UploadStatus) Valid() bool {
	switch s {
	case UploadStatusPending, UploadStatusQuoted, UploadStatusApproved, UploadStatusRejected:
		return true
	default:
		return false
	}
}

// NewModelUpload - метаданные загруженного файла модели. Сам файл хранится вне этого слоя.
type NewModelUpload struct {
	UserID       int64  `json:"user_id" validate:"required,gt=0"`
	OriginalName string `json:"original_name" validate:"required,max=255"`
	StoredPath   string `json:"stored_path" validate:"required,max=500"`
	FileSize     int64  `json:"file_size" validate:"gt=0"`
	Material     string `json:"material" validate:"max=50"`
	ColorID      int64  `json:"color_id" validate:"gte=0"`
	Quantity     int32  `json:"quantity" validate:"gte=1"`
	Notes        string `json:"notes" validate:"max=2000"`
}

// ModelUpload - загрузка модели вместе со статусом и расчётной ценой.
type ModelUpload struct {
	ID int64 `json:"id"`
	NewModelUpload
	Status           UploadStatus `json:"status"`
	QuotedPriceMinor int64        `json:"quoted_price_minor"`
	CreatedAt        time.Time    `json:"created_at"`
}
