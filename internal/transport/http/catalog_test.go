package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/printshop/internal/domain"
	"github.com/vladislavdragonenkov/printshop/internal/pagination"
)

type stubProducts struct {
	domain.ProductRepository
	items []domain.Product
}

func (s *stubProducts) FindBySlug(_ context.Context, slug string) (*domain.Product, error) {
	for _, p := range s.items {
		if p.Slug == slug {
			p := p
			return &p, nil
		}
	}
	return nil, nil
}

func (s *stubProducts) ListActive(_ context.Context, page, perPage int) (pagination.Page[domain.Product], error) {
	return pagination.New(s.items, int64(len(s.items)), page, perPage), nil
}

type stubFilaments struct {
	domain.FilamentRepository
}

func (stubFilaments) ListActive(context.Context) ([]domain.FilamentColor, error) {
	return nil, nil
}

func TestCatalogRoutes(t *testing.T) {
	logger := log.New()
	logger.SetOutput(io.Discard)

	handler := NewRouter(Services{
		Products: &stubProducts{items: []domain.Product{
			{ID: 1, Name: "Vaso Espiral", Slug: "vaso-espiral", PriceMinor: 4590, IsActive: true},
		}},
		Filaments: stubFilaments{},
	}, logger.WithField("component", "http-test"))

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	rec := get("/api/v1/products?per_page=5")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decodeData[pagination.Page[domain.Product]](t, rec)
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, 5, page.PerPage)
	require.Len(t, page.Items, 1)

	rec = get("/api/v1/products/vaso-espiral")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Vaso Espiral", decodeData[domain.Product](t, rec).Name)

	rec = get("/api/v1/products/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = get("/api/v1/products?page=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = get("/api/v1/filaments")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeData[[]domain.FilamentColor](t, rec))
}

func TestCatalogRoutes_DisabledWithoutRepositories(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/v1/products", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
