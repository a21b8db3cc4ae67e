package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/printshop/internal/domain"
	"github.com/vladislavdragonenkov/printshop/internal/service/order"
)

type orderHandler struct {
	svc    *order.Service
	logger *log.Entry
}

type statusRequest struct {
	Status domain.OrderStatus `json:"status"`
}

type paymentStatusRequest struct {
	PaymentStatus domain.PaymentStatus `json:"payment_status"`
}

type trackingRequest struct {
	TrackingCode string `json:"tracking_code"`
}

// lookup находит заказ по параметру {order}: число - id, иначе номер заказа.
// Номера из одних цифр не принимаются при создании, поэтому ссылки не пересекаются.
// Отсутствующий заказ - 404.
func (h *orderHandler) lookup(w http.ResponseWriter, r *http.Request) (*domain.OrderView, bool) {
	ref := chi.URLParam(r, "order")

	var (
		view *domain.OrderView
		err  error
	)
	if domain.IsNumericOrderRef(ref) {
		id, parseErr := strconv.ParseInt(ref, 10, 64)
		if parseErr != nil || id <= 0 {
			writeError(w, r, domain.ErrOrderNotFound, h.logger)
			return nil, false
		}
		view, err = h.svc.Get(r.Context(), id)
	} else {
		view, err = h.svc.FindByOrderNumber(r.Context(), ref)
	}
	if err != nil {
		writeError(w, r, err, h.logger)
		return nil, false
	}
	if view == nil {
		writeError(w, r, domain.ErrOrderNotFound, h.logger)
		return nil, false
	}
	return view, true
}

func (h *orderHandler) create(w http.ResponseWriter, r *http.Request) {
	var req domain.NewOrder
	if !decodeJSON(w, r, &req) {
		return
	}

	id, _, err := h.svc.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	view, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeData(w, http.StatusCreated, view)
}

func (h *orderHandler) get(w http.ResponseWriter, r *http.Request) {
	view, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeData(w, http.StatusOK, view)
}

func (h *orderHandler) listForUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	page, perPage, ok := pageParams(w, r)
	if !ok {
		return
	}
	result, err := h.svc.ListForUser(r.Context(), userID, page, perPage)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, result)
}

func (h *orderHandler) search(w http.ResponseWriter, r *http.Request) {
	page, perPage, ok := pageParams(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	filter := domain.OrderFilter{
		Status:        domain.OrderStatus(q.Get("status")),
		PaymentMethod: q.Get("payment_method"),
		PaymentStatus: domain.PaymentStatus(q.Get("payment_status")),
		DateFrom:      q.Get("date_from"),
		DateTo:        q.Get("date_to"),
		OrderNumber:   q.Get("order_number"),
		Customer:      q.Get("customer"),
	}

	result, err := h.svc.Search(r.Context(), filter, page, perPage)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, result)
}

func (h *orderHandler) items(w http.ResponseWriter, r *http.Request) {
	view, ok := h.lookup(w, r)
	if !ok {
		return
	}
	items, err := h.svc.Items(r.Context(), view.ID)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	if items == nil {
		items = []domain.OrderItem{}
	}
	writeData(w, http.StatusOK, items)
}

func (h *orderHandler) shippingAddress(w http.ResponseWriter, r *http.Request) {
	view, ok := h.lookup(w, r)
	if !ok {
		return
	}
	addr, err := h.svc.ShippingAddress(r.Context(), view.Order)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	if addr == nil {
		writeErrorCode(w, r, http.StatusNotFound, CodeNotFound, "order has no shipping address")
		return
	}
	writeData(w, http.StatusOK, addr)
}

func (h *orderHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	h.mutate(w, r, &req, func(id int64) error {
		return h.svc.UpdateStatus(r.Context(), id, req.Status)
	})
}

func (h *orderHandler) updatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	var req paymentStatusRequest
	h.mutate(w, r, &req, func(id int64) error {
		return h.svc.UpdatePaymentStatus(r.Context(), id, req.PaymentStatus)
	})
}

func (h *orderHandler) addTracking(w http.ResponseWriter, r *http.Request) {
	var req trackingRequest
	h.mutate(w, r, &req, func(id int64) error {
		return h.svc.AddTrackingCode(r.Context(), id, req.TrackingCode)
	})
}

// mutate разбирает тело, применяет изменение и возвращает обновлённый заказ.
func (h *orderHandler) mutate(w http.ResponseWriter, r *http.Request, body any, apply func(id int64) error) {
	view, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if !decodeJSON(w, r, body) {
		return
	}
	if err := apply(view.ID); err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	updated, err := h.svc.Get(r.Context(), view.ID)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, updated)
}

func (h *orderHandler) salesStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.SalesStats(r.Context(), r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	if stats == nil {
		stats = []domain.SalesBucket{}
	}
	writeData(w, http.StatusOK, stats)
}

func (h *orderHandler) topProducts(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit", domain.DefaultTopProductsLimit)
	if !ok {
		return
	}
	top, err := h.svc.TopProducts(r.Context(), limit)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	if top == nil {
		top = []domain.TopProduct{}
	}
	writeData(w, http.StatusOK, top)
}

func pageParams(w http.ResponseWriter, r *http.Request) (page, perPage int, ok bool) {
	if page, ok = queryInt(w, r, "page", 1); !ok {
		return 0, 0, false
	}
	if perPage, ok = queryInt(w, r, "per_page", 0); !ok {
		return 0, 0, false
	}
	return page, perPage, true
}
