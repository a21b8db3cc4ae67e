package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/printshop/internal/domain"
)

// catalogHandler - витрина каталога только для чтения.
type catalogHandler struct {
	products  domain.ProductRepository
	filaments domain.FilamentRepository
	logger    *log.Entry
}

func (h *catalogHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	page, perPage, ok := pageParams(w, r)
	if !ok {
		return
	}
	result, err := h.products.ListActive(r.Context(), page, perPage)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, result)
}

func (h *catalogHandler) productBySlug(w http.ResponseWriter, r *http.Request) {
	product, err := h.products.FindBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	if product == nil {
		writeErrorCode(w, r, http.StatusNotFound, CodeNotFound, "product not found")
		return
	}
	writeData(w, http.StatusOK, product)
}

func (h *catalogHandler) listFilaments(w http.ResponseWriter, r *http.Request) {
	colors, err := h.filaments.ListActive(r.Context())
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	if colors == nil {
		colors = []domain.FilamentColor{}
	}
	writeData(w, http.StatusOK, colors)
}
