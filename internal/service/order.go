package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/tarascos/api/internal/cart"
	"github.com/tarascos/api/internal/database"
	"github.com/tarascos/api/internal/enum"
)

const maxOrderNumberRetries = 3

// Errors returned by the order service.
var (
	ErrEmptyItems          = errors.New("items are required")
	ErrInvalidDeliveryType = errors.New("invalid delivery_type")
	ErrInvalidQuantity     = errors.New("quantity must be > 0")
	ErrProductNotFound     = errors.New("product not found")
	ErrSauceNotFound       = errors.New("sauce not found")
	ErrCustomerName        = errors.New("customer_name is required")
	ErrCustomerPhone       = errors.New("customer_phone is required")
	ErrDeliveryAddress     = errors.New("customer_address is required for DELIVERY orders")
	ErrInvalidProductID    = errors.New("invalid product_id")
	ErrInvalidSauceID      = errors.New("invalid sauce_id")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed to create and edit orders.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetNextOrderNumber(ctx context.Context) (int32, error)
	GetProductForOrder(ctx context.Context, id uuid.UUID) (database.GetProductForOrderRow, error)
	GetSauceForOrder(ctx context.Context, id uuid.UUID) (database.GetSauceForOrderRow, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	CreateOrderItemSauce(ctx context.Context, arg database.CreateOrderItemSauceParams) (database.OrderItemSauce, error)
	RecordClientOrder(ctx context.Context, arg database.RecordClientOrderParams) (database.Client, error)
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	DeleteOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) error
	UpdateOrderCustomer(ctx context.Context, arg database.UpdateOrderCustomerParams) (database.Order, error)
	UpdateOrderTotals(ctx context.Context, arg database.UpdateOrderTotalsParams) (database.Order, error)
	ListFinishedOrderIDs(ctx context.Context) ([]uuid.UUID, error)
	DeleteOrder(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// CheckoutRequest is the validated input for a storefront checkout.
// NoTip is set for orders captured by staff, which carry no tip.
type CheckoutRequest struct {
	CustomerName    string
	CustomerPhone   string
	CustomerAddress string
	DeliveryType    string
	Notes           string
	NoTip           bool
	Items           []OrderItemRequest
}

// OrderItemRequest is a single line in a checkout or order edit.
type OrderItemRequest struct {
	ProductID string
	Quantity  int32
	Notes     string
	SauceIDs  []string
}

// UpdateOrderRequest replaces an order's contact fields and lines.
type UpdateOrderRequest struct {
	ID              uuid.UUID
	CustomerName    string
	CustomerPhone   string
	CustomerAddress string
	DeliveryType    string
	Notes           string
	Items           []OrderItemRequest
}

// CheckoutResult is the full created order with items and the client
// ledger row the order was recorded against.
type CheckoutResult struct {
	Order  database.Order
	Items  []OrderItemResult
	Client database.Client
}

// OrderItemResult is an item with its sauces.
type OrderItemResult struct {
	Item   database.OrderItem
	Sauces []database.OrderItemSauce
}

// OrderService handles order business logic.
type OrderService struct {
	pool     TxBeginner
	store    OrderStore
	newStore NewOrderStore
}

// NewOrderService creates a new OrderService. store is the pool-backed
// store used for non-transactional work.
func NewOrderService(pool TxBeginner, store OrderStore, newStore NewOrderStore) *OrderService {
	return &OrderService{pool: pool, store: store, newStore: newStore}
}

// Checkout validates, prices from current DB data, and creates an order
// atomically, recording it against the client ledger in the same
// transaction. Retries up to maxOrderNumberRetries times on order_number
// unique constraint violations (race where concurrent transactions read
// the same MAX).
func (s *OrderService) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	if req.DeliveryType == "" {
		req.DeliveryType = enum.DeliveryTypeDelivery
	}
	if err := validateCustomer(req.CustomerName, req.CustomerPhone, req.CustomerAddress, req.DeliveryType); err != nil {
		return nil, err
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	var lastErr error
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		result, err := s.checkoutTx(ctx, req)
		if err == nil {
			return result, nil
		}
		if isOrderNumberConflict(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

// isOrderNumberConflict checks if the error is a unique constraint violation
// on the order number (pgconn error code 23505).
func isOrderNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_order_number_key"
	}
	return false
}

func (s *OrderService) checkoutTx(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	orderNumber, err := store.GetNextOrderNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("get next order number: %w", err)
	}

	c, err := buildCart(ctx, store, req.Items)
	if err != nil {
		return nil, err
	}

	subtotal := c.Subtotal()
	tip := c.Tip()
	if req.NoTip {
		tip = decimal.Zero
	}
	total := subtotal.Add(tip)

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		Reference:       newReference(),
		OrderNumber:     orderNumber,
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		CustomerAddress: req.CustomerAddress,
		DeliveryType:    req.DeliveryType,
		Status:          enum.OrderStatusPending,
		Subtotal:        decimalToNumeric(subtotal),
		Tip:             decimalToNumeric(tip),
		Total:           decimalToNumeric(total),
		Notes:           textOrNull(req.Notes),
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	items, err := insertLines(ctx, store, order.ID, c.Lines)
	if err != nil {
		return nil, err
	}

	client, err := store.RecordClientOrder(ctx, database.RecordClientOrderParams{
		Name:       req.CustomerName,
		Phone:      req.CustomerPhone,
		Address:    req.CustomerAddress,
		Email:      pgtype.Text{},
		OrderTotal: decimalToNumeric(total),
	})
	if err != nil {
		return nil, fmt.Errorf("record client order: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &CheckoutResult{Order: order, Items: items, Client: client}, nil
}

// Update replaces an order's contact fields and lines in one transaction.
// Lines are repriced from current product and sauce data; the original tip
// is kept, so total = new subtotal + stored tip.
func (s *OrderService) Update(ctx context.Context, req UpdateOrderRequest) (*CheckoutResult, error) {
	if req.DeliveryType == "" {
		req.DeliveryType = enum.DeliveryTypeDelivery
	}
	if err := validateCustomer(req.CustomerName, req.CustomerPhone, req.CustomerAddress, req.DeliveryType); err != nil {
		return nil, err
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	existing, err := store.GetOrder(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	c, err := buildCart(ctx, store, req.Items)
	if err != nil {
		return nil, err
	}

	if err := store.DeleteOrderItemsByOrder(ctx, req.ID); err != nil {
		return nil, fmt.Errorf("delete order items: %w", err)
	}

	items, err := insertLines(ctx, store, req.ID, c.Lines)
	if err != nil {
		return nil, err
	}

	if _, err := store.UpdateOrderCustomer(ctx, database.UpdateOrderCustomerParams{
		ID:              req.ID,
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		CustomerAddress: req.CustomerAddress,
		DeliveryType:    req.DeliveryType,
		Notes:           textOrNull(req.Notes),
	}); err != nil {
		return nil, fmt.Errorf("update order customer: %w", err)
	}

	tip := numericToDecimal(existing.Tip)
	subtotal := c.Subtotal()
	order, err := store.UpdateOrderTotals(ctx, database.UpdateOrderTotalsParams{
		ID:       req.ID,
		Subtotal: decimalToNumeric(subtotal),
		Tip:      decimalToNumeric(tip),
		Total:    decimalToNumeric(subtotal.Add(tip)),
	})
	if err != nil {
		return nil, fmt.Errorf("update order totals: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &CheckoutResult{Order: order, Items: items}, nil
}

// DeleteFinished removes every DELIVERED and CANCELLED order. Deletions are
// independent: one failure doesn't stop the rest, and the count of orders
// actually removed is returned.
func (s *OrderService) DeleteFinished(ctx context.Context) (int64, error) {
	ids, err := s.store.ListFinishedOrderIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list finished orders: %w", err)
	}

	var deleted atomic.Int64
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.store.DeleteOrder(ctx, id); err == nil {
				deleted.Add(1)
			}
		}()
	}
	wg.Wait()
	return deleted.Load(), nil
}

// buildCart reads current prices and surcharges for every requested line
// and assembles the priced cart. Matching lines merge.
func buildCart(ctx context.Context, store OrderStore, items []OrderItemRequest) (*cart.Cart, error) {
	var c cart.Cart
	for i, item := range items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidProductID)
		}
		product, err := store.GetProductForOrder(ctx, productID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("item[%d]: %w", i, ErrProductNotFound)
			}
			return nil, fmt.Errorf("item[%d]: get product: %w", i, err)
		}

		line := cart.Line{
			ProductID:   product.ID,
			ProductName: product.Name,
			UnitPrice:   numericToDecimal(product.Price),
			Quantity:    item.Quantity,
			Notes:       item.Notes,
		}
		for j, rawID := range item.SauceIDs {
			sauceID, err := uuid.Parse(rawID)
			if err != nil {
				return nil, fmt.Errorf("item[%d].sauces[%d]: %w", i, j, ErrInvalidSauceID)
			}
			sauce, err := store.GetSauceForOrder(ctx, sauceID)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return nil, fmt.Errorf("item[%d].sauces[%d]: %w", i, j, ErrSauceNotFound)
				}
				return nil, fmt.Errorf("item[%d].sauces[%d]: get sauce: %w", i, j, err)
			}
			line.Sauces = append(line.Sauces, cart.LineSauce{
				SauceID:   sauce.ID,
				Name:      sauce.Name,
				Surcharge: numericToDecimal(sauce.Surcharge),
			})
		}
		c.Add(line)
	}
	return &c, nil
}

// insertLines persists cart lines as order item rows with their sauce
// snapshots.
func insertLines(ctx context.Context, store OrderStore, orderID uuid.UUID, lines []cart.Line) ([]OrderItemResult, error) {
	var results []OrderItemResult
	for _, line := range lines {
		item, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:     orderID,
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			UnitPrice:   decimalToNumeric(line.UnitPrice),
			Quantity:    line.Quantity,
			Notes:       textOrNull(line.Notes),
		})
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}

		var sauces []database.OrderItemSauce
		for _, s := range line.Sauces {
			ois, err := store.CreateOrderItemSauce(ctx, database.CreateOrderItemSauceParams{
				OrderItemID: item.ID,
				SauceID:     s.SauceID,
				SauceName:   s.Name,
				Surcharge:   decimalToNumeric(s.Surcharge),
			})
			if err != nil {
				return nil, fmt.Errorf("create order item sauce: %w", err)
			}
			sauces = append(sauces, ois)
		}
		results = append(results, OrderItemResult{Item: item, Sauces: sauces})
	}
	return results, nil
}

// --- Helpers ---

const referenceAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// newReference builds a customer-facing order reference like
// TAR-1756500000000-k3x9. Uniqueness is enforced by the DB; the random
// suffix keeps same-millisecond checkouts apart.
func newReference() string {
	suffix := make([]byte, 4)
	for i := range suffix {
		suffix[i] = referenceAlphabet[rand.IntN(len(referenceAlphabet))]
	}
	return fmt.Sprintf("TAR-%d-%s", time.Now().UnixMilli(), suffix)
}

func validateCustomer(name, phone, address, deliveryType string) error {
	switch deliveryType {
	case enum.DeliveryTypeDelivery, enum.DeliveryTypePickup:
	default:
		return ErrInvalidDeliveryType
	}
	if name == "" {
		return ErrCustomerName
	}
	if phone == "" {
		return ErrCustomerPhone
	}
	if deliveryType == enum.DeliveryTypeDelivery && address == "" {
		return ErrDeliveryAddress
	}
	return nil
}

func textOrNull(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
