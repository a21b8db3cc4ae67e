package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/vladislavdragonenkov/printshop/internal/domain"
	"github.com/vladislavdragonenkov/printshop/internal/pagination"
)

const productColumns = `id, name, slug, description, price_minor, is_active, created_at`

// ProductRepository - каталог товаров.
type ProductRepository struct {
	db DBTX
}

// NewProductRepository создаёт PostgreSQL-реализацию ProductRepository.
func NewProductRepository(db DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.Name, &p.Slug, &p.Description, &p.PriceMinor, &p.IsActive, &p.CreatedAt)
	return p, err
}

func (r *ProductRepository) Create(ctx context.Context, product domain.NewProduct) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO products (name, slug, description, price_minor, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, product.Name, product.Slug, product.Description, product.PriceMinor, product.IsActive).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, domain.ErrSlugConflict
		}
		return 0, domain.NewStoreError("insert product", err)
	}
	return id, nil
}

func (r *ProductRepository) FindBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	p, err := scanProduct(r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE slug = $1`, slug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, domain.NewStoreError("select product by slug", err)
	}
	return &p, nil
}

func (r *ProductRepository) ListActive(ctx context.Context, page, perPage int) (pagination.Page[domain.Product], error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	p := pagination.Normalize(page, perPage)

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE is_active`).Scan(&total); err != nil {
		return pagination.Page[domain.Product]{}, domain.NewStoreError("count products", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE is_active
		ORDER BY name ASC, id ASC
		LIMIT $1 OFFSET $2
	`, int64(p.PerPage), int64(p.Offset))
	if err != nil {
		return pagination.Page[domain.Product]{}, domain.NewStoreError("list products", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0, p.PerPage)
	for rows.Next() {
		item, err := scanProduct(rows)
		if err != nil {
			return pagination.Page[domain.Product]{}, domain.NewStoreError("scan product", err)
		}
		products = append(products, item)
	}
	if err := rows.Err(); err != nil {
		return pagination.Page[domain.Product]{}, domain.NewStoreError("iterate products", err)
	}

	return pagination.New(products, total, p.Page, p.PerPage), nil
}

var _ domain.ProductRepository = (*ProductRepository)(nil)
