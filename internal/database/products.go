package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const productColumns = `p.id, p.name, p.description, p.price, p.image_url,
p.category_id, p.featured, p.is_active, p.created_at, p.updated_at`

const listProducts = `
SELECT ` + productColumns + `, c.name, c.color, c.icon
FROM products p
JOIN categories c ON c.id = p.category_id
WHERE p.is_active = true
ORDER BY p.created_at DESC
`

// ListProductsRow joins in the category display fields the storefront needs.
type ListProductsRow struct {
	Product
	CategoryName  string
	CategoryColor string
	CategoryIcon  string
}

func (q *Queries) ListProducts(ctx context.Context) ([]ListProductsRow, error) {
	rows, err := q.db.Query(ctx, listProducts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ListProductsRow
	for rows.Next() {
		var r ListProductsRow
		if err := rows.Scan(
			&r.ID, &r.Name, &r.Description, &r.Price, &r.ImageURL,
			&r.CategoryID, &r.Featured, &r.IsActive, &r.CreatedAt, &r.UpdatedAt,
			&r.CategoryName, &r.CategoryColor, &r.CategoryIcon,
		); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const getProduct = `
SELECT ` + productColumns + `
FROM products p
WHERE p.id = $1 AND p.is_active = true
`

func (q *Queries) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	var p Product
	err := q.db.QueryRow(ctx, getProduct, id).Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.ImageURL,
		&p.CategoryID, &p.Featured, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

const getProductForOrder = `
SELECT id, name, price
FROM products
WHERE id = $1 AND is_active = true
`

// GetProductForOrderRow is the price snapshot source for order lines.
type GetProductForOrderRow struct {
	ID    uuid.UUID
	Name  string
	Price pgtype.Numeric
}

func (q *Queries) GetProductForOrder(ctx context.Context, id uuid.UUID) (GetProductForOrderRow, error) {
	var r GetProductForOrderRow
	err := q.db.QueryRow(ctx, getProductForOrder, id).Scan(&r.ID, &r.Name, &r.Price)
	return r, err
}

const createProduct = `
INSERT INTO products (name, description, price, image_url, category_id, featured)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + productColumnsBare

const productColumnsBare = `id, name, description, price, image_url,
category_id, featured, is_active, created_at, updated_at`

type CreateProductParams struct {
	Name        string
	Description string
	Price       pgtype.Numeric
	ImageURL    pgtype.Text
	CategoryID  uuid.UUID
	Featured    bool
}

func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error) {
	var p Product
	err := q.db.QueryRow(ctx, createProduct,
		arg.Name, arg.Description, arg.Price, arg.ImageURL, arg.CategoryID, arg.Featured,
	).Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.ImageURL,
		&p.CategoryID, &p.Featured, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

const updateProduct = `
UPDATE products
SET name = $2, description = $3, price = $4, image_url = $5,
    category_id = $6, featured = $7, updated_at = now()
WHERE id = $1 AND is_active = true
RETURNING ` + productColumnsBare

type UpdateProductParams struct {
	ID          uuid.UUID
	Name        string
	Description string
	Price       pgtype.Numeric
	ImageURL    pgtype.Text
	CategoryID  uuid.UUID
	Featured    bool
}

func (q *Queries) UpdateProduct(ctx context.Context, arg UpdateProductParams) (Product, error) {
	var p Product
	err := q.db.QueryRow(ctx, updateProduct,
		arg.ID, arg.Name, arg.Description, arg.Price, arg.ImageURL, arg.CategoryID, arg.Featured,
	).Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.ImageURL,
		&p.CategoryID, &p.Featured, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

const softDeleteProduct = `
UPDATE products
SET is_active = false, updated_at = now()
WHERE id = $1 AND is_active = true
RETURNING id
`

func (q *Queries) SoftDeleteProduct(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var deleted uuid.UUID
	err := q.db.QueryRow(ctx, softDeleteProduct, id).Scan(&deleted)
	return deleted, err
}
