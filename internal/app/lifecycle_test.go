package app

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"github.com/vladislavdragonenkov/printshop/internal/domain"
	"github.com/vladislavdragonenkov/printshop/internal/metrics"
	"github.com/vladislavdragonenkov/printshop/internal/service/address"
	"github.com/vladislavdragonenkov/printshop/internal/service/order"
	"github.com/vladislavdragonenkov/printshop/internal/service/outbox"
	"github.com/vladislavdragonenkov/printshop/internal/storage/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.OutboxMessage
}

func (p *recordingPublisher) Publish(event domain.OutboxMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType)
	}
	return out
}

// OrderLifecycleTestSuite проверяет полный путь заказа через runtime-зависимости memory-драйвера.
type OrderLifecycleTestSuite struct {
	suite.Suite
	deps      *runtimeDependencies
	addresses *address.Manager
	orders    *order.Service
	worker    *outbox.Worker
	published *recordingPublisher
}

func (s *OrderLifecycleTestSuite) SetupTest() {
	logger := quietLogger()
	deps, err := initRuntimeDependencies(context.Background(), DefaultConfig(), logger, nil)
	s.Require().NoError(err)
	s.deps = deps

	repo, ok := deps.orders.(*memory.OrderRepository)
	s.Require().True(ok)
	repo.PutUser(7, "Bruna Lima", "bruna@example.com")
	repo.PutProduct(10, "Vaso Espiral", "vaso-espiral")
	repo.PutProduct(11, "Luminária Lua", "luminaria-lua")

	m := metrics.NewStoreMetricsWithRegisterer(prometheus.NewRegistry())
	s.addresses = address.NewManager(deps.addresses, m, logger)
	s.orders = order.NewService(deps.orders, m, logger)
	s.published = &recordingPublisher{}
	s.worker = outbox.NewWorker(deps.outbox, s.published,
		outbox.WithLogger(logger),
		outbox.WithPollInterval(10*time.Millisecond),
	)
}

func (s *OrderLifecycleTestSuite) TearDownTest() {
	s.NoError(s.deps.close())
}

func (s *OrderLifecycleTestSuite) addAddress(street string, isDefault bool) int64 {
	id, err := s.addresses.Add(context.Background(), 7, domain.AddressFields{
		Address: street, Number: "12", Neighborhood: "Batel",
		City: "Curitiba", State: "PR", Zipcode: "80420-090", IsDefault: isDefault,
	})
	s.Require().NoError(err)
	return id
}

func (s *OrderLifecycleTestSuite) TestShippedOrderPublishesEvents() {
	ctx := context.Background()

	home := s.addAddress("Rua Comendador Araújo", false)
	def, err := s.addresses.GetDefault(ctx, 7)
	s.Require().NoError(err)
	s.Require().NotNil(def)
	s.Equal(home, def.ID, "first address becomes default")

	id, number, err := s.orders.Create(ctx, domain.NewOrder{
		UserID:            7,
		PaymentMethod:     "pix",
		ShippingAddressID: home,
		ShippingMethod:    "sedex",
		ShippingCostMinor: 1500,
		SubtotalMinor:     13770,
		TotalMinor:        15270,
		Items: []domain.NewOrderLine{
			{ProductID: 10, Quantity: 3, PriceMinor: 4590},
		},
	})
	s.Require().NoError(err)
	s.NotEmpty(number)

	s.Require().NoError(s.orders.UpdatePaymentStatus(ctx, id, domain.PaymentStatusPaid))
	s.Require().NoError(s.orders.UpdateStatus(ctx, id, domain.OrderStatusProcessing))
	s.Require().NoError(s.orders.AddTrackingCode(ctx, id, "BR123456789"))

	view, err := s.orders.FindByOrderNumber(ctx, number)
	s.Require().NoError(err)
	s.Require().NotNil(view)
	s.Equal(domain.OrderStatusShipped, view.Status)
	s.Equal("Bruna Lima", view.CustomerName)

	addr, err := s.orders.ShippingAddress(ctx, view.Order)
	s.Require().NoError(err)
	s.Require().NotNil(addr)
	s.Equal("Rua Comendador Araújo", addr.Address)

	s.Equal(4, s.worker.ProcessOnce(ctx))
	s.Equal([]string{
		string(domain.EventOrderCreated),
		string(domain.EventOrderPaymentStatusChanged),
		string(domain.EventOrderStatusChanged),
		string(domain.EventOrderShipped),
	}, s.published.types())

	var shipped map[string]any
	s.Require().NoError(json.Unmarshal(s.published.events[3].Payload, &shipped))
	s.Equal("BR123456789", shipped["tracking_code"])

	stats, err := s.worker.Backlog(ctx)
	s.Require().NoError(err)
	s.Zero(stats.PendingCount)
}

func (s *OrderLifecycleTestSuite) TestCanceledOrdersLeaveReports() {
	ctx := context.Background()

	create := func(product int64, qty int32) int64 {
		id, _, err := s.orders.Create(ctx, domain.NewOrder{
			UserID: 7, PaymentMethod: "card",
			SubtotalMinor: int64(qty) * 1000, TotalMinor: int64(qty) * 1000,
			Items: []domain.NewOrderLine{{ProductID: product, Quantity: qty, PriceMinor: 1000}},
		})
		s.Require().NoError(err)
		return id
	}

	create(10, 1)
	create(11, 2)
	canceled := create(11, 50)
	s.Require().NoError(s.orders.UpdateStatus(ctx, canceled, domain.OrderStatusCanceled))

	top, err := s.orders.TopProducts(ctx, 0)
	s.Require().NoError(err)
	s.Require().Len(top, 2)
	s.Equal("luminaria-lua", top[0].ProductSlug)
	s.Equal(int64(2), top[0].TotalQuantity)

	buckets, err := s.orders.SalesStats(ctx, "yearly")
	s.Require().NoError(err)
	s.Require().Len(buckets, 1)
	s.Equal(int64(2), buckets[0].OrderCount)
	s.Equal(int64(3000), buckets[0].RevenueMinor)
	s.Equal(int64(1500), buckets[0].AverageOrderMinor)
}

func (s *OrderLifecycleTestSuite) TestDeletingShippingAddressKeepsOrder() {
	ctx := context.Background()

	first := s.addAddress("Rua XV de Novembro", false)
	second := s.addAddress("Avenida Sete de Setembro", false)

	id, _, err := s.orders.Create(ctx, domain.NewOrder{
		UserID: 7, PaymentMethod: "boleto", ShippingAddressID: first,
		Items: []domain.NewOrderLine{{ProductID: 10, Quantity: 1}},
	})
	s.Require().NoError(err)

	s.Require().NoError(s.addresses.Delete(ctx, first, 7))

	def, err := s.addresses.GetDefault(ctx, 7)
	s.Require().NoError(err)
	s.Require().NotNil(def)
	s.Equal(second, def.ID, "remaining address is promoted")

	view, err := s.orders.Get(ctx, id)
	s.Require().NoError(err)
	s.Require().NotNil(view)
	addr, err := s.orders.ShippingAddress(ctx, view.Order)
	s.Require().NoError(err)
	s.Nil(addr)
}

func (s *OrderLifecycleTestSuite) TestWorkerRunDrainsBacklog() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.worker.Run(ctx)
	}()

	_, _, err := s.orders.Create(context.Background(), domain.NewOrder{
		UserID: 7, PaymentMethod: "pix",
		Items: []domain.NewOrderLine{{ProductID: 10, Quantity: 1, PriceMinor: 4590}},
	})
	s.Require().NoError(err)

	s.Eventually(func() bool { return len(s.published.types()) == 1 }, time.Second, 10*time.Millisecond)
	shutdownOutboxWorker(cancel, done, quietLogger())
}

func TestOrderLifecycleTestSuite(t *testing.T) {
	suite.Run(t, new(OrderLifecycleTestSuite))
}
