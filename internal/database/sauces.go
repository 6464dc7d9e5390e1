package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const sauceColumns = `id, name, description, surcharge, spice_level, is_active, created_at`

const listSauces = `
SELECT ` + sauceColumns + `
FROM sauces
WHERE is_active = true
ORDER BY created_at DESC
`

func (q *Queries) ListSauces(ctx context.Context) ([]Sauce, error) {
	rows, err := q.db.Query(ctx, listSauces)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Sauce
	for rows.Next() {
		var s Sauce
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.Surcharge, &s.SpiceLevel, &s.IsActive, &s.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

const getSauceForOrder = `
SELECT id, name, surcharge
FROM sauces
WHERE id = $1 AND is_active = true
`

// GetSauceForOrderRow is the surcharge snapshot source for order lines.
type GetSauceForOrderRow struct {
	ID        uuid.UUID
	Name      string
	Surcharge pgtype.Numeric
}

func (q *Queries) GetSauceForOrder(ctx context.Context, id uuid.UUID) (GetSauceForOrderRow, error) {
	var r GetSauceForOrderRow
	err := q.db.QueryRow(ctx, getSauceForOrder, id).Scan(&r.ID, &r.Name, &r.Surcharge)
	return r, err
}

const createSauce = `
INSERT INTO sauces (name, description, surcharge, spice_level)
VALUES ($1, $2, $3, $4)
RETURNING ` + sauceColumns

type CreateSauceParams struct {
	Name        string
	Description pgtype.Text
	Surcharge   pgtype.Numeric
	SpiceLevel  int32
}

func (q *Queries) CreateSauce(ctx context.Context, arg CreateSauceParams) (Sauce, error) {
	var s Sauce
	err := q.db.QueryRow(ctx, createSauce, arg.Name, arg.Description, arg.Surcharge, arg.SpiceLevel).
		Scan(&s.ID, &s.Name, &s.Description, &s.Surcharge, &s.SpiceLevel, &s.IsActive, &s.CreatedAt)
	return s, err
}

const updateSauce = `
UPDATE sauces
SET name = $2, description = $3, surcharge = $4, spice_level = $5
WHERE id = $1 AND is_active = true
RETURNING ` + sauceColumns

type UpdateSauceParams struct {
	ID          uuid.UUID
	Name        string
	Description pgtype.Text
	Surcharge   pgtype.Numeric
	SpiceLevel  int32
}

func (q *Queries) UpdateSauce(ctx context.Context, arg UpdateSauceParams) (Sauce, error) {
	var s Sauce
	err := q.db.QueryRow(ctx, updateSauce, arg.ID, arg.Name, arg.Description, arg.Surcharge, arg.SpiceLevel).
		Scan(&s.ID, &s.Name, &s.Description, &s.Surcharge, &s.SpiceLevel, &s.IsActive, &s.CreatedAt)
	return s, err
}

const softDeleteSauce = `
UPDATE sauces
SET is_active = false
WHERE id = $1 AND is_active = true
RETURNING id
`

func (q *Queries) SoftDeleteSauce(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var deleted uuid.UUID
	err := q.db.QueryRow(ctx, softDeleteSauce, id).Scan(&deleted)
	return deleted, err
}
