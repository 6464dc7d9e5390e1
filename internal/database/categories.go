package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const listCategories = `
SELECT id, name, description, color, icon, created_at
FROM categories
ORDER BY created_at DESC
`

func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := q.db.Query(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.Color, &c.Icon, &c.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const getCategory = `
SELECT id, name, description, color, icon, created_at
FROM categories
WHERE id = $1
`

func (q *Queries) GetCategory(ctx context.Context, id uuid.UUID) (Category, error) {
	var c Category
	err := q.db.QueryRow(ctx, getCategory, id).
		Scan(&c.ID, &c.Name, &c.Description, &c.Color, &c.Icon, &c.CreatedAt)
	return c, err
}

const createCategory = `
INSERT INTO categories (name, description, color, icon)
VALUES ($1, $2, $3, $4)
RETURNING id, name, description, color, icon, created_at
`

type CreateCategoryParams struct {
	Name        string
	Description pgtype.Text
	Color       string
	Icon        string
}

func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (Category, error) {
	var c Category
	err := q.db.QueryRow(ctx, createCategory, arg.Name, arg.Description, arg.Color, arg.Icon).
		Scan(&c.ID, &c.Name, &c.Description, &c.Color, &c.Icon, &c.CreatedAt)
	return c, err
}

const updateCategory = `
UPDATE categories
SET name = $2, description = $3, color = $4, icon = $5
WHERE id = $1
RETURNING id, name, description, color, icon, created_at
`

type UpdateCategoryParams struct {
	ID          uuid.UUID
	Name        string
	Description pgtype.Text
	Color       string
	Icon        string
}

func (q *Queries) UpdateCategory(ctx context.Context, arg UpdateCategoryParams) (Category, error) {
	var c Category
	err := q.db.QueryRow(ctx, updateCategory, arg.ID, arg.Name, arg.Description, arg.Color, arg.Icon).
		Scan(&c.ID, &c.Name, &c.Description, &c.Color, &c.Icon, &c.CreatedAt)
	return c, err
}

const deleteCategory = `
DELETE FROM categories
WHERE id = $1
RETURNING id
`

func (q *Queries) DeleteCategory(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var deleted uuid.UUID
	err := q.db.QueryRow(ctx, deleteCategory, id).Scan(&deleted)
	return deleted, err
}

const countProductsByCategory = `
SELECT COUNT(*)
FROM products
WHERE category_id = $1
`

func (q *Queries) CountProductsByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countProductsByCategory, categoryID).Scan(&count)
	return count, err
}
