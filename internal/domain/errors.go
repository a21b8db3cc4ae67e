package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrStore - базовая ошибка хранилища; любая StoreError сопоставляется с ней через errors.Is.
	ErrStore = errors.New("store failure")
	// ErrInvalidInput - входные данные не прошли валидацию.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUserRequired - не указан владелец записи.
	ErrUserRequired = errors.New("user_id is required")

	// ErrAddressNotFound возвращается мутациями, если адрес не найден.
	ErrAddressNotFound = errors.New("address not found")
	// ErrAddressNotOwned - адрес не принадлежит указанному пользователю.
	ErrAddressNotOwned = errors.New("address does not belong to user")

	// ErrOrderNotFound возвращается мутациями, если заказ не найден.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderNumberRequired - заказ нельзя создать без заранее сгенерированного номера.
	ErrOrderNumberRequired = errors.New("order_number is required")
	// ErrOrderNumberNumeric - номер из одних цифр неотличим от id заказа в адресах API.
	ErrOrderNumberNumeric = errors.New("order_number must contain a non-digit character")
	// ErrOrderNumberConflict - номер заказа уже занят (нарушение уникальности в хранилище).
	ErrOrderNumberConflict = errors.New("order number already exists")
	// ErrInvalidOrderStatus - статус заказа не входит в перечисление.
	ErrInvalidOrderStatus = errors.New("invalid order status")
	// ErrInvalidPaymentStatus - статус оплаты не входит в перечисление.
	ErrInvalidPaymentStatus = errors.New("invalid payment status")
	// ErrTrackingCodeRequired - пустой трек-номер.
	ErrTrackingCodeRequired = errors.New("tracking code is required")

	// ErrSettingKeyRequired - пустой ключ настройки.
	ErrSettingKeyRequired = errors.New("setting key is required")
	// ErrProductNotFound возвращается мутациями каталога.
	ErrProductNotFound = errors.New("product not found")
	// ErrSlugConflict - slug товара уже занят.
	ErrSlugConflict = errors.New("product slug already exists")
	// ErrFilamentNotFound - цвет филамента не найден.
	ErrFilamentNotFound = errors.New("filament color not found")
	// ErrUploadNotFound - загрузка модели не найдена.
	ErrUploadNotFound = errors.New("model upload not found")
	// ErrInvalidUploadStatus - статус загрузки не входит в перечисление.
	ErrInvalidUploadStatus = errors.New("invalid model upload status")

	// ErrOutboxPublish - ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// StoreError описывает сбой хранилища (соединение, синтаксис, ограничения).
// Ошибка не подменяется значением по умолчанию, решение о fallback принимает вызывающий код.
type StoreError struct {
	Op  string
	Err error
}

// NewStoreError оборачивает ошибку драйвера. nil остаётся nil.
func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is позволяет сравнивать любую StoreError с ErrStore.
func (e *StoreError) Is(target error) bool {
	return target == ErrStore
}

// IsStoreError проверяет, является ли ошибка сбоем хранилища.
func IsStoreError(err error) bool {
	return errors.Is(err, ErrStore)
}

// IsOrderNumberConflict проверяет конфликт уникальности номера заказа.
func IsOrderNumberConflict(err error) bool {
	return errors.Is(err, ErrOrderNumberConflict)
}

// IsNotFound объединяет все not-found ошибки мутаций.
func IsNotFound(err error) bool {
	switch {
	case errors.Is(err, ErrAddressNotFound),
		errors.Is(err, ErrOrderNotFound),
		errors.Is(err, ErrProductNotFound),
		errors.Is(err, ErrFilamentNotFound),
		errors.Is(err, ErrUploadNotFound):
		return true
	default:
		return false
	}
}
