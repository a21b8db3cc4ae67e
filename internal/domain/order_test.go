package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/printshop/internal/domain"
)

func TestOrderStatusValid(t *testing.T) {
	for _, s := range []domain.OrderStatus{
		domain.OrderStatusPending, domain.OrderStatusProcessing, domain.OrderStatusShipped,
		domain.OrderStatusDelivered, domain.OrderStatusCanceled, domain.OrderStatusRefunded,
	} {
		if !s.Valid() {
			t.Errorf("expected %q to be valid", s)
		}
	}
	for _, s := range []domain.OrderStatus{"", "cancelled", "SHIPPED", "lost"} {
		if s.Valid() {
			t.Errorf("expected %q to be invalid", s)
		}
	}
}

func TestPaymentStatusValid(t *testing.T) {
	if !domain.PaymentStatusRefunded.Valid() {
		t.Fatal("refunded must be valid")
	}
	if domain.PaymentStatus("chargeback").Valid() {
		t.Fatal("chargeback must be invalid")
	}
}

func TestNewOrderNormalize(t *testing.T) {
	o := domain.NewOrder{UserID: 1}
	o.Normalize()
	if o.Status != domain.OrderStatusPending || o.PaymentStatus != domain.PaymentStatusPending {
		t.Fatalf("unexpected defaults: %q/%q", o.Status, o.PaymentStatus)
	}

	o = domain.NewOrder{Status: domain.OrderStatusProcessing, PaymentStatus: domain.PaymentStatusPaid}
	o.Normalize()
	if o.Status != domain.OrderStatusProcessing || o.PaymentStatus != domain.PaymentStatusPaid {
		t.Fatalf("explicit statuses must be kept, got %q/%q", o.Status, o.PaymentStatus)
	}
}

func TestOrderFilterCreatedRange(t *testing.T) {
	f := domain.OrderFilter{DateFrom: "2024-01-01", DateTo: "2024-01-31"}
	from, to, err := f.CreatedRange()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC); !from.Equal(want) {
		t.Errorf("from = %v, want %v", from, want)
	}
	if want := time.Date(2024, 1, 31, 23, 59, 59, 999999000, time.UTC); !to.Equal(want) {
		t.Errorf("to = %v, want %v", to, want)
	}
}

func TestOrderFilterCreatedRange_Open(t *testing.T) {
	from, to, err := domain.OrderFilter{}.CreatedRange()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !from.IsZero() || !to.IsZero() {
		t.Fatalf("expected zero bounds, got %v..%v", from, to)
	}
}

func TestOrderFilterCreatedRange_Invalid(t *testing.T) {
	cases := []domain.OrderFilter{
		{DateFrom: "01/02/2024"},
		{DateTo: "2024-13-01"},
	}
	for _, f := range cases {
		if _, _, err := f.CreatedRange(); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("filter %+v: expected ErrInvalidInput, got %v", f, err)
		}
	}
}

func TestNewOrderCheck_RejectsNumericNumber(t *testing.T) {
	o := domain.NewOrder{UserID: 1, OrderNumber: "123456"}
	o.Normalize()
	if err := o.Check(); !errors.Is(err, domain.ErrOrderNumberNumeric) {
		t.Fatalf("expected ErrOrderNumberNumeric, got %v", err)
	}

	o.OrderNumber = "ORD20240131183005AB12"
	if err := o.Check(); err != nil {
		t.Fatalf("generated number must pass: %v", err)
	}
}

func TestIsNumericOrderRef(t *testing.T) {
	for ref, want := range map[string]bool{
		"":         false,
		"42":       true,
		"0042":     true,
		"ORD42":    false,
		"42-A":     false,
		"١٢":       false,
		"20240131": true,
	} {
		if got := domain.IsNumericOrderRef(ref); got != want {
			t.Errorf("IsNumericOrderRef(%q) = %v, want %v", ref, got, want)
		}
	}
}
