package domain

// PaymentStatus описывает состояние оплаты заказа.
type PaymentStatus string

const (
	// PaymentStatusPending — оплата ещё не подтверждена.
	PaymentStatusPending PaymentStatus = "pending"
	// PaymentStatusPaid — оплата получена.
	PaymentStatusPaid PaymentStatus = "paid"
	// PaymentStatusFailed — провайдер отклонил платёж.
	PaymentStatusFailed PaymentStatus = "failed"
	// PaymentStatusRefunded — деньги возвращены клиенту.
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Valid проверяет, что статус оплаты относится к поддерживаемым значениям.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	default:
		return false
	}
}
