package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const clientColumns = `id, name, phone, address, email, notes, status,
total_spent, order_count, last_order_at, created_at`

const listClients = `
SELECT ` + clientColumns + `
FROM clients
WHERE ($3::text IS NULL OR name ILIKE '%' || $3 || '%' OR phone ILIKE '%' || $3 || '%')
ORDER BY created_at DESC
LIMIT $1 OFFSET $2
`

type ListClientsParams struct {
	Limit  int32
	Offset int32
	Search pgtype.Text
}

func (q *Queries) ListClients(ctx context.Context, arg ListClientsParams) ([]Client, error) {
	rows, err := q.db.Query(ctx, listClients, arg.Limit, arg.Offset, arg.Search)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Client
	for rows.Next() {
		var c Client
		if err := scanClient(rows, &c); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const getClient = `
SELECT ` + clientColumns + `
FROM clients
WHERE id = $1
`

func (q *Queries) GetClient(ctx context.Context, id uuid.UUID) (Client, error) {
	var c Client
	err := scanClient(q.db.QueryRow(ctx, getClient, id), &c)
	return c, err
}

const createClient = `
INSERT INTO clients (name, phone, address, email, notes, status)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + clientColumns

type CreateClientParams struct {
	Name    string
	Phone   string
	Address string
	Email   pgtype.Text
	Notes   pgtype.Text
	Status  string
}

func (q *Queries) CreateClient(ctx context.Context, arg CreateClientParams) (Client, error) {
	var c Client
	err := scanClient(q.db.QueryRow(ctx, createClient,
		arg.Name, arg.Phone, arg.Address, arg.Email, arg.Notes, arg.Status), &c)
	return c, err
}

const updateClient = `
UPDATE clients
SET name = $2, phone = $3, address = $4, email = $5, notes = $6, status = $7
WHERE id = $1
RETURNING ` + clientColumns

type UpdateClientParams struct {
	ID      uuid.UUID
	Name    string
	Phone   string
	Address string
	Email   pgtype.Text
	Notes   pgtype.Text
	Status  string
}

func (q *Queries) UpdateClient(ctx context.Context, arg UpdateClientParams) (Client, error) {
	var c Client
	err := scanClient(q.db.QueryRow(ctx, updateClient,
		arg.ID, arg.Name, arg.Phone, arg.Address, arg.Email, arg.Notes, arg.Status), &c)
	return c, err
}

const deleteClient = `
DELETE FROM clients
WHERE id = $1
RETURNING id
`

// DeleteClient removes the client unconditionally. Orders keep a
// denormalized customer snapshot, so no referential check is needed.
func (q *Queries) DeleteClient(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var deleted uuid.UUID
	err := q.db.QueryRow(ctx, deleteClient, id).Scan(&deleted)
	return deleted, err
}

const recordClientOrder = `
INSERT INTO clients (name, phone, address, email, status, total_spent, order_count, last_order_at)
VALUES ($1, $2, $3, $4, 'ACTIVE', $5, 1, now())
ON CONFLICT (phone) DO UPDATE
SET total_spent   = clients.total_spent + EXCLUDED.total_spent,
    order_count   = clients.order_count + 1,
    last_order_at = now()
RETURNING ` + clientColumns

type RecordClientOrderParams struct {
	Name       string
	Phone      string
	Address    string
	Email      pgtype.Text
	OrderTotal pgtype.Numeric
}

// RecordClientOrder upserts the per-customer ledger keyed by phone. A known
// phone only accumulates stats; its stored contact fields stay untouched.
func (q *Queries) RecordClientOrder(ctx context.Context, arg RecordClientOrderParams) (Client, error) {
	var c Client
	err := scanClient(q.db.QueryRow(ctx, recordClientOrder,
		arg.Name, arg.Phone, arg.Address, arg.Email, arg.OrderTotal), &c)
	return c, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClient(row rowScanner, c *Client) error {
	return row.Scan(
		&c.ID, &c.Name, &c.Phone, &c.Address, &c.Email, &c.Notes, &c.Status,
		&c.TotalSpent, &c.OrderCount, &c.LastOrderAt, &c.CreatedAt,
	)
}
