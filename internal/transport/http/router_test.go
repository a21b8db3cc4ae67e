package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/printshop/internal/domain"
	"github.com/vladislavdragonenkov/printshop/internal/metrics"
	"github.com/vladislavdragonenkov/printshop/internal/service/address"
	"github.com/vladislavdragonenkov/printshop/internal/service/order"
	"github.com/vladislavdragonenkov/printshop/internal/service/settings"
	"github.com/vladislavdragonenkov/printshop/internal/storage/memory"
)

type fixture struct {
	handler http.Handler
	orders  *memory.OrderRepository
	outbox  *memory.OutboxRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := log.New()
	logger.SetOutput(io.Discard)
	entry := logger.WithField("component", "http-test")
	m := metrics.NewStoreMetricsWithRegisterer(prometheus.NewRegistry())

	addresses := memory.NewAddressRepository()
	outbox := memory.NewOutboxRepository()
	orders := memory.NewOrderRepository(addresses, outbox)
	orders.PutUser(1, "Ana Souza", "ana@example.com")
	orders.PutProduct(10, "Vaso Espiral", "vaso-espiral")
	cfg := memory.NewSettingsRepository(domain.Setting{Key: "store_name", Value: "PrintShop"})

	handler := NewRouter(Services{
		Addresses: address.NewManager(addresses, m, entry),
		Orders:    order.NewService(orders, m, entry),
		Settings:  settings.NewService(cfg, nil, m, entry),
	}, entry)

	return &fixture{handler: handler, orders: orders, outbox: outbox}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var envelope struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	return envelope.Data
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotNil(t, resp.Error)
	return *resp.Error
}

func validAddress(street string) map[string]any {
	return map[string]any{
		"address":      street,
		"number":       "100",
		"neighborhood": "Centro",
		"city":         "Curitiba",
		"state":        "pr",
		"zipcode":      "80010-000",
	}
}

func TestAddresses_Lifecycle(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/users/1/addresses", validAddress("Rua XV"))
	require.Equal(t, http.StatusCreated, rec.Code)
	first := decodeData[domain.Address](t, rec)
	assert.True(t, first.IsDefault)
	assert.Equal(t, "PR", first.State)

	rec = f.do(t, http.MethodPost, "/api/v1/users/1/addresses", validAddress("Av. Batel"))
	require.Equal(t, http.StatusCreated, rec.Code)
	second := decodeData[domain.Address](t, rec)
	assert.False(t, second.IsDefault)

	rec = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/users/1/addresses/%d/default", second.ID), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/users/1/addresses/default", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, second.ID, decodeData[domain.Address](t, rec).ID)

	rec = f.do(t, http.MethodPut, fmt.Sprintf("/api/v1/users/1/addresses/%d", first.ID), map[string]any{"city": "Londrina"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Londrina", decodeData[domain.Address](t, rec).City)

	rec = f.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/users/1/addresses/%d", second.ID), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/users/1/addresses", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeData[[]domain.Address](t, rec)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsDefault)

	rec = f.do(t, http.MethodDelete, "/api/v1/users/1/addresses", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/users/1/addresses/default", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddresses_Errors(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/users/1/addresses", validAddress("Rua XV"))
	require.Equal(t, http.StatusCreated, rec.Code)
	owned := decodeData[domain.Address](t, rec)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{
			name: "validation", method: http.MethodPost, path: "/api/v1/users/1/addresses",
			body: map[string]any{"address": "Rua", "city": "Curitiba", "state": "PRX", "zipcode": "1"}, status: http.StatusBadRequest, code: CodeValidation,
		},
		{
			name: "unknown field", method: http.MethodPost, path: "/api/v1/users/1/addresses",
			body: map[string]any{"street": "Rua"}, status: http.StatusBadRequest, code: CodeInvalidInput,
		},
		{
			name: "bad user id", method: http.MethodGet, path: "/api/v1/users/abc/addresses",
			status: http.StatusBadRequest, code: CodeInvalidParam,
		},
		{
			name: "foreign default", method: http.MethodPost, path: fmt.Sprintf("/api/v1/users/2/addresses/%d/default", owned.ID),
			status: http.StatusForbidden, code: CodeForbidden,
		},
		{
			name: "foreign update", method: http.MethodPut, path: fmt.Sprintf("/api/v1/users/2/addresses/%d", owned.ID),
			body: map[string]any{"city": "X"}, status: http.StatusForbidden, code: CodeForbidden,
		},
		{
			name: "missing delete", method: http.MethodDelete, path: "/api/v1/users/1/addresses/999",
			status: http.StatusNotFound, code: CodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}
}

func TestAddresses_ValidationFields(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/users/1/addresses", map[string]any{"address": "Rua XV"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	errResp := decodeError(t, rec)
	assert.Contains(t, errResp.Fields, "city")
	assert.Contains(t, errResp.Fields, "zipcode")
}

func newOrderBody() map[string]any {
	return map[string]any{
		"user_id":        1,
		"payment_method": "pix",
		"subtotal_minor": 9000,
		"total_minor":    9000,
		"items":          []map[string]any{{"product_id": 10, "quantity": 2, "price_minor": 4500}},
	}
}

func TestOrders_Lifecycle(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/orders", newOrderBody())
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeData[domain.OrderView](t, rec)
	assert.Equal(t, "Ana Souza", created.CustomerName)
	assert.Equal(t, domain.OrderStatusPending, created.Status)

	rec = f.do(t, http.MethodGet, "/api/v1/orders/"+created.OrderNumber, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.ID, decodeData[domain.OrderView](t, rec).ID)

	byID := fmt.Sprintf("/api/v1/orders/%d", created.ID)
	rec = f.do(t, http.MethodGet, byID+"/items", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items := decodeData[[]domain.OrderItem](t, rec)
	require.Len(t, items, 1)
	assert.Equal(t, "vaso-espiral", items[0].ProductSlug)

	rec = f.do(t, http.MethodPut, byID+"/payment-status", map[string]any{"payment_status": "paid"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.PaymentStatusPaid, decodeData[domain.OrderView](t, rec).PaymentStatus)

	rec = f.do(t, http.MethodPut, byID+"/tracking", map[string]any{"tracking_code": "BR123"})
	require.Equal(t, http.StatusOK, rec.Code)
	shipped := decodeData[domain.OrderView](t, rec)
	assert.Equal(t, domain.OrderStatusShipped, shipped.Status)
	assert.Equal(t, "BR123", shipped.TrackingCode)

	rec = f.do(t, http.MethodPut, byID+"/status", map[string]any{"status": "delivered"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, byID+"/shipping-address", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/users/1/orders?page=1&per_page=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decodeData[struct {
		Items []domain.Order `json:"items"`
		Total int64          `json:"total"`
	}](t, rec)
	assert.Equal(t, int64(1), page.Total)
	require.Len(t, page.Items, 1)

	assert.Len(t, f.outbox.AllPending(), 4)
}

func TestOrders_SearchAndErrors(t *testing.T) {
	f := newFixture(t)

	for i := 0; i < 3; i++ {
		rec := f.do(t, http.MethodPost, "/api/v1/orders", newOrderBody())
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := f.do(t, http.MethodGet, "/api/v1/orders?customer=souza&per_page=2&page=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decodeData[struct {
		Items       []domain.OrderView `json:"items"`
		Total       int64              `json:"total"`
		CurrentPage int                `json:"current_page"`
	}](t, rec)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 2, page.CurrentPage)
	assert.Len(t, page.Items, 1)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{name: "unknown status filter", method: http.MethodGet, path: "/api/v1/orders?status=lost", status: http.StatusBadRequest, code: CodeInvalidInput},
		{name: "bad date", method: http.MethodGet, path: "/api/v1/orders?date_from=01-02-2026", status: http.StatusBadRequest, code: CodeInvalidInput},
		{name: "bad page", method: http.MethodGet, path: "/api/v1/orders?page=-1", status: http.StatusBadRequest, code: CodeInvalidParam},
		{name: "missing order", method: http.MethodGet, path: "/api/v1/orders/ORD00000000000000XXXX", status: http.StatusNotFound, code: CodeNotFound},
		{name: "unknown status", method: http.MethodPut, path: "/api/v1/orders/1/status", body: map[string]any{"status": "lost"}, status: http.StatusBadRequest, code: CodeInvalidInput},
		{name: "empty tracking", method: http.MethodPut, path: "/api/v1/orders/1/tracking", body: map[string]any{"tracking_code": " "}, status: http.StatusBadRequest, code: CodeInvalidInput},
		{name: "invalid order", method: http.MethodPost, path: "/api/v1/orders", body: map[string]any{"user_id": 0}, status: http.StatusBadRequest, code: CodeValidation},
		{name: "bad limit", method: http.MethodGet, path: "/api/v1/reports/top-products?limit=x", status: http.StatusBadRequest, code: CodeInvalidParam},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}
}

func TestReports(t *testing.T) {
	f := newFixture(t)

	for i := 0; i < 2; i++ {
		rec := f.do(t, http.MethodPost, "/api/v1/orders", newOrderBody())
		require.Equal(t, http.StatusCreated, rec.Code)
	}
	rec := f.do(t, http.MethodPut, "/api/v1/orders/2/status", map[string]any{"status": "canceled"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/reports/sales?period=daily", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	buckets := decodeData[[]domain.SalesBucket](t, rec)
	require.Len(t, buckets, 1)
	assert.Equal(t, int64(1), buckets[0].OrderCount)
	assert.Equal(t, int64(9000), buckets[0].RevenueMinor)

	rec = f.do(t, http.MethodGet, "/api/v1/reports/top-products", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	top := decodeData[[]domain.TopProduct](t, rec)
	require.Len(t, top, 1)
	assert.Equal(t, int64(2), top[0].TotalQuantity)
}

func TestSettings(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/settings/store_name", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "PrintShop", decodeData[domain.Setting](t, rec).Value)

	rec = f.do(t, http.MethodPut, "/api/v1/settings/pix_key", map[string]any{"value": "loja@pix", "group": "payment"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "payment", decodeData[domain.Setting](t, rec).Group)

	rec = f.do(t, http.MethodGet, "/api/v1/settings?group=payment", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeData[[]domain.Setting](t, rec), 1)

	rec = f.do(t, http.MethodDelete, "/api/v1/settings/pix_key", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/settings/pix_key", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeData[[]domain.Setting](t, rec), 1)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{domain.ErrOrderNotFound, http.StatusNotFound, CodeNotFound},
		{domain.ErrAddressNotOwned, http.StatusForbidden, CodeForbidden},
		{domain.ErrOrderNumberConflict, http.StatusConflict, CodeConflict},
		{domain.ErrSlugConflict, http.StatusConflict, CodeConflict},
		{domain.ErrInvalidPaymentStatus, http.StatusBadRequest, CodeInvalidInput},
		{domain.NewStoreError("select", errors.New("boom")), http.StatusInternalServerError, CodeInternal},
	}

	for _, tt := range tests {
		status, code, _ := classify(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.Equal(t, tt.code, code, tt.err.Error())
	}
}

func TestWriteError_HidesInternalDetails(t *testing.T) {
	logger := log.New()
	logger.SetOutput(io.Discard)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	writeError(rec, req, domain.NewStoreError("select orders", errors.New("password authentication failed")), logger.WithField("component", "test"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	errResp := decodeError(t, rec)
	assert.Equal(t, "an internal error occurred", errResp.Message)
}

func TestOrders_NumberAndIDReferencesDoNotOverlap(t *testing.T) {
	f := newFixture(t)

	numeric := newOrderBody()
	numeric["order_number"] = "20240131"
	rec := f.do(t, http.MethodPost, "/api/v1/orders", numeric)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeInvalidInput, decodeError(t, rec).Code)

	named := newOrderBody()
	named["order_number"] = "PS-2024-0001"
	rec = f.do(t, http.MethodPost, "/api/v1/orders", named)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeData[domain.OrderView](t, rec)

	rec = f.do(t, http.MethodGet, "/api/v1/orders/PS-2024-0001", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.ID, decodeData[domain.OrderView](t, rec).ID)

	rec = f.do(t, http.MethodGet, "/api/v1/orders/99999999999999999999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReports_TopProductsHugeLimit(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/reports/top-products?limit=9000000000000000", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/orders?page=922337203685477580", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
