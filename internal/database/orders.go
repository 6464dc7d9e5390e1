package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, reference, order_number, customer_name, customer_phone,
customer_address, delivery_type, status, subtotal, tip, total, notes, created_at, updated_at`

const getNextOrderNumber = `
SELECT COALESCE(MAX(order_number), 0) + 1
FROM orders
`

// GetNextOrderNumber returns the next sequential ticket number. Callers must
// run it inside the order-creation transaction and retry on a unique
// violation, since concurrent checkouts can race to the same number.
func (q *Queries) GetNextOrderNumber(ctx context.Context) (int32, error) {
	var n int32
	err := q.db.QueryRow(ctx, getNextOrderNumber).Scan(&n)
	return n, err
}

const createOrder = `
INSERT INTO orders (reference, order_number, customer_name, customer_phone,
customer_address, delivery_type, status, subtotal, tip, total, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	Reference       string
	OrderNumber     int32
	CustomerName    string
	CustomerPhone   string
	CustomerAddress string
	DeliveryType    string
	Status          string
	Subtotal        pgtype.Numeric
	Tip             pgtype.Numeric
	Total           pgtype.Numeric
	Notes           pgtype.Text
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	var o Order
	err := scanOrder(q.db.QueryRow(ctx, createOrder,
		arg.Reference, arg.OrderNumber, arg.CustomerName, arg.CustomerPhone,
		arg.CustomerAddress, arg.DeliveryType, arg.Status,
		arg.Subtotal, arg.Tip, arg.Total, arg.Notes), &o)
	return o, err
}

const createOrderItem = `
INSERT INTO order_items (order_id, product_id, product_name, unit_price, quantity, notes)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, order_id, product_id, product_name, unit_price, quantity, notes
`

type CreateOrderItemParams struct {
	OrderID     uuid.UUID
	ProductID   uuid.UUID
	ProductName string
	UnitPrice   pgtype.Numeric
	Quantity    int32
	Notes       pgtype.Text
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	var it OrderItem
	err := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID, arg.ProductID, arg.ProductName, arg.UnitPrice, arg.Quantity, arg.Notes,
	).Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.UnitPrice, &it.Quantity, &it.Notes)
	return it, err
}

const createOrderItemSauce = `
INSERT INTO order_item_sauces (order_item_id, sauce_id, sauce_name, surcharge)
VALUES ($1, $2, $3, $4)
RETURNING id, order_item_id, sauce_id, sauce_name, surcharge
`

type CreateOrderItemSauceParams struct {
	OrderItemID uuid.UUID
	SauceID     uuid.UUID
	SauceName   string
	Surcharge   pgtype.Numeric
}

func (q *Queries) CreateOrderItemSauce(ctx context.Context, arg CreateOrderItemSauceParams) (OrderItemSauce, error) {
	var s OrderItemSauce
	err := q.db.QueryRow(ctx, createOrderItemSauce,
		arg.OrderItemID, arg.SauceID, arg.SauceName, arg.Surcharge,
	).Scan(&s.ID, &s.OrderItemID, &s.SauceID, &s.SauceName, &s.Surcharge)
	return s, err
}

const getOrder = `
SELECT ` + orderColumns + `
FROM orders
WHERE id = $1
`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	var o Order
	err := scanOrder(q.db.QueryRow(ctx, getOrder, id), &o)
	return o, err
}

const listOrders = `
SELECT ` + orderColumns + `
FROM orders
WHERE ($3::text IS NULL OR status = $3)
  AND ($4::date IS NULL OR created_at::date = $4)
ORDER BY created_at DESC
LIMIT $1 OFFSET $2
`

type ListOrdersParams struct {
	Limit  int32
	Offset int32
	Status pgtype.Text
	Date   pgtype.Date
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders, arg.Limit, arg.Offset, arg.Status, arg.Date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Order
	for rows.Next() {
		var o Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

const listOrdersByPhone = `
SELECT ` + orderColumns + `
FROM orders
WHERE customer_phone = $1
ORDER BY created_at DESC
`

func (q *Queries) ListOrdersByPhone(ctx context.Context, phone string) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrdersByPhone, phone)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Order
	for rows.Next() {
		var o Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

const listOrderItemsByOrder = `
SELECT id, order_id, product_id, product_name, unit_price, quantity, notes
FROM order_items
WHERE order_id = $1
ORDER BY id
`

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.UnitPrice, &it.Quantity, &it.Notes); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

const listOrderItemSaucesByOrder = `
SELECT s.id, s.order_item_id, s.sauce_id, s.sauce_name, s.surcharge
FROM order_item_sauces s
JOIN order_items i ON i.id = s.order_item_id
WHERE i.order_id = $1
ORDER BY s.id
`

// ListOrderItemSaucesByOrder loads every sauce row for an order in one
// round trip; callers group them by order_item_id.
func (q *Queries) ListOrderItemSaucesByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItemSauce, error) {
	rows, err := q.db.Query(ctx, listOrderItemSaucesByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItemSauce
	for rows.Next() {
		var s OrderItemSauce
		if err := rows.Scan(&s.ID, &s.OrderItemID, &s.SauceID, &s.SauceName, &s.Surcharge); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

const updateOrderStatus = `
UPDATE orders
SET status = $3, updated_at = now()
WHERE id = $1 AND status = $2
RETURNING ` + orderColumns

type UpdateOrderStatusParams struct {
	ID         uuid.UUID
	FromStatus string
	ToStatus   string
}

// UpdateOrderStatus is a compare-and-swap: it only moves the order if it is
// still in the status the caller read, so two admins can't double-advance.
func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	var o Order
	err := scanOrder(q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.FromStatus, arg.ToStatus), &o)
	return o, err
}

const updateOrderCustomer = `
UPDATE orders
SET customer_name = $2, customer_phone = $3, customer_address = $4,
    delivery_type = $5, notes = $6, updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

type UpdateOrderCustomerParams struct {
	ID              uuid.UUID
	CustomerName    string
	CustomerPhone   string
	CustomerAddress string
	DeliveryType    string
	Notes           pgtype.Text
}

func (q *Queries) UpdateOrderCustomer(ctx context.Context, arg UpdateOrderCustomerParams) (Order, error) {
	var o Order
	err := scanOrder(q.db.QueryRow(ctx, updateOrderCustomer,
		arg.ID, arg.CustomerName, arg.CustomerPhone, arg.CustomerAddress,
		arg.DeliveryType, arg.Notes), &o)
	return o, err
}

const updateOrderTotals = `
UPDATE orders
SET subtotal = $2, tip = $3, total = $4, updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

type UpdateOrderTotalsParams struct {
	ID       uuid.UUID
	Subtotal pgtype.Numeric
	Tip      pgtype.Numeric
	Total    pgtype.Numeric
}

func (q *Queries) UpdateOrderTotals(ctx context.Context, arg UpdateOrderTotalsParams) (Order, error) {
	var o Order
	err := scanOrder(q.db.QueryRow(ctx, updateOrderTotals, arg.ID, arg.Subtotal, arg.Tip, arg.Total), &o)
	return o, err
}

const deleteOrderItemsByOrder = `
DELETE FROM order_items
WHERE order_id = $1
`

func (q *Queries) DeleteOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteOrderItemsByOrder, orderID)
	return err
}

const deleteOrder = `
DELETE FROM orders
WHERE id = $1
RETURNING id
`

func (q *Queries) DeleteOrder(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var deleted uuid.UUID
	err := q.db.QueryRow(ctx, deleteOrder, id).Scan(&deleted)
	return deleted, err
}

const listFinishedOrderIDs = `
SELECT id
FROM orders
WHERE status IN ('DELIVERED', 'CANCELLED')
`

func (q *Queries) ListFinishedOrderIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := q.db.Query(ctx, listFinishedOrderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanOrder(row rowScanner, o *Order) error {
	return row.Scan(
		&o.ID, &o.Reference, &o.OrderNumber, &o.CustomerName, &o.CustomerPhone,
		&o.CustomerAddress, &o.DeliveryType, &o.Status,
		&o.Subtotal, &o.Tip, &o.Total, &o.Notes, &o.CreatedAt, &o.UpdatedAt,
	)
}
