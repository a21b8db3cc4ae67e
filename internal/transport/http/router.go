// Package http - административный HTTP API поверх сервисов адресов, заказов,
// отчётов и настроек.
package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/printshop/internal/domain"
	"github.com/vladislavdragonenkov/printshop/internal/service/address"
	"github.com/vladislavdragonenkov/printshop/internal/service/order"
	"github.com/vladislavdragonenkov/printshop/internal/service/settings"
)

// Services - зависимости роутера.
type Services struct {
	Addresses *address.Manager
	Orders    *order.Service
	Settings  *settings.Service

	// Справочники каталога есть только у PostgreSQL; nil отключает маршруты.
	Products  domain.ProductRepository
	Filaments domain.FilamentRepository
}

// NewRouter создаёт chi-роутер со всеми маршрутами API.
func NewRouter(svc Services, logger *log.Entry) http.Handler {
	if logger == nil {
		logger = log.WithField("component", "http-api")
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(requestLogger(logger))

	addresses := &addressHandler{svc: svc.Addresses, logger: logger}
	orders := &orderHandler{svc: svc.Orders, logger: logger}
	cfg := &settingsHandler{svc: svc.Settings, logger: logger}
	catalog := &catalogHandler{products: svc.Products, filaments: svc.Filaments, logger: logger}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/addresses", addresses.list)
			r.Post("/addresses", addresses.create)
			r.Delete("/addresses", addresses.deleteAll)
			r.Get("/addresses/default", addresses.getDefault)
			r.Put("/addresses/{addressID}", addresses.update)
			r.Delete("/addresses/{addressID}", addresses.delete)
			r.Post("/addresses/{addressID}/default", addresses.setDefault)

			r.Get("/orders", orders.listForUser)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", orders.create)
			r.Get("/", orders.search)
			r.Get("/{order}", orders.get)
			r.Get("/{order}/items", orders.items)
			r.Get("/{order}/shipping-address", orders.shippingAddress)
			r.Put("/{order}/status", orders.updateStatus)
			r.Put("/{order}/payment-status", orders.updatePaymentStatus)
			r.Put("/{order}/tracking", orders.addTracking)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/sales", orders.salesStats)
			r.Get("/top-products", orders.topProducts)
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", cfg.list)
			r.Get("/{key}", cfg.get)
			r.Put("/{key}", cfg.put)
			r.Delete("/{key}", cfg.delete)
		})

		if svc.Products != nil {
			r.Get("/products", catalog.listProducts)
			r.Get("/products/{slug}", catalog.productBySlug)
		}
		if svc.Filaments != nil {
			r.Get("/filaments", catalog.listFilaments)
		}
	})

	return r
}

// requestLogger пишет одну строку на запрос.
func requestLogger(logger *log.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			started := time.Now()
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			entry := logger.WithFields(log.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      status,
				"duration_ms": time.Since(started).Milliseconds(),
				"request_id":  chimw.GetReqID(r.Context()),
			})
			if status >= http.StatusInternalServerError {
				entry.Warn("request failed")
				return
			}
			entry.Debug("request served")
		})
	}
}
