package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/tarascos/api/internal/database"
	"github.com/tarascos/api/internal/enum"
	"github.com/tarascos/api/internal/service"
	"github.com/tarascos/api/internal/ws"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	Checkout(ctx context.Context, req service.CheckoutRequest) (*service.CheckoutResult, error)
	Update(ctx context.Context, req service.UpdateOrderRequest) (*service.CheckoutResult, error)
	DeleteFinished(ctx context.Context) (int64, error)
}

// OrderStore defines the database methods needed by order read/update handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	ListOrderItemSaucesByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItemSauce, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	DeleteOrder(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

// OrderNotifier publishes order events to connected admin clients.
// Satisfied by *ws.Hub.
type OrderNotifier interface {
	BroadcastJSON(eventType string, payload any)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc      OrderServicer
	store    OrderStore
	notifier OrderNotifier
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, store OrderStore, notifier OrderNotifier) *OrderHandler {
	return &OrderHandler{svc: svc, store: store, notifier: notifier}
}

// RegisterPublicRoutes registers the storefront checkout endpoint.
func (h *OrderHandler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/orders", h.Create)
}

// RegisterRoutes registers admin order endpoints on the given Chi router.
// Expected to be mounted inside the admin subrouter: /admin/orders
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.CreateManual)
	r.Delete("/completed", h.DeleteFinished)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Patch("/{id}/status", h.UpdateStatus)
	r.Post("/{id}/advance", h.Advance)
	r.Post("/{id}/cancel", h.Cancel)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type createOrderRequest struct {
	CustomerName    string                   `json:"customer_name"`
	CustomerPhone   string                   `json:"customer_phone"`
	CustomerAddress string                   `json:"customer_address"`
	DeliveryType    string                   `json:"delivery_type"`
	Notes           string                   `json:"notes"`
	Items           []createOrderItemRequest `json:"items"`
}

type createOrderItemRequest struct {
	ProductID string   `json:"product_id"`
	Quantity  int32    `json:"quantity"`
	Notes     string   `json:"notes"`
	SauceIDs  []string `json:"sauce_ids"`
}

type orderResponse struct {
	ID              uuid.UUID           `json:"id"`
	Reference       string              `json:"reference"`
	OrderNumber     int32               `json:"order_number"`
	CustomerName    string              `json:"customer_name"`
	CustomerPhone   string              `json:"customer_phone"`
	CustomerAddress string              `json:"customer_address"`
	DeliveryType    string              `json:"delivery_type"`
	Status          string              `json:"status"`
	Subtotal        string              `json:"subtotal"`
	Tip             string              `json:"tip"`
	Total           string              `json:"total"`
	Notes           *string             `json:"notes"`
	CreatedAt       time.Time           `json:"created_at"`
	CreatedAtText   string              `json:"created_at_text"`
	UpdatedAt       time.Time           `json:"updated_at"`
	Items           []orderItemResponse `json:"items,omitempty"`
}

type orderItemResponse struct {
	ID          uuid.UUID                `json:"id"`
	ProductID   uuid.UUID                `json:"product_id"`
	ProductName string                   `json:"product_name"`
	UnitPrice   string                   `json:"unit_price"`
	Quantity    int32                    `json:"quantity"`
	Notes       *string                  `json:"notes"`
	Sauces      []orderItemSauceResponse `json:"sauces"`
}

type orderItemSauceResponse struct {
	ID        uuid.UUID `json:"id"`
	SauceID   uuid.UUID `json:"sauce_id"`
	SauceName string    `json:"sauce_name"`
	Surcharge string    `json:"surcharge"`
}

// orderListResponse wraps a list of orders with pagination metadata.
type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type deleteFinishedResponse struct {
	Deleted int64 `json:"deleted"`
}

// --- Handlers ---

// Create handles POST /orders: the storefront checkout.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, false)
}

// CreateManual handles POST /admin/orders: orders captured by staff over
// the phone or at the counter. No tip is applied.
func (h *OrderHandler) CreateManual(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, true)
}

func (h *OrderHandler) create(w http.ResponseWriter, r *http.Request, noTip bool) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if msg := validateOrderItems(req.Items); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	result, err := h.svc.Checkout(r.Context(), service.CheckoutRequest{
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		CustomerAddress: req.CustomerAddress,
		DeliveryType:    req.DeliveryType,
		Notes:           req.Notes,
		NoTip:           noTip,
		Items:           toServiceItems(req.Items),
	})
	if err != nil {
		// Map known service errors to appropriate HTTP status codes.
		if isValidationError(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: checkout: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := toOrderResponse(result)
	h.notifier.BroadcastJSON(ws.EventOrderCreated, resp)
	writeJSON(w, http.StatusCreated, resp)
}

// List handles GET /admin/orders.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset := 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}

	params := database.ListOrdersParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	}

	if s := r.URL.Query().Get("status"); s != "" {
		if !isValidOrderStatus(s) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
			return
		}
		params.Status = pgtype.Text{String: s, Valid: true}
	}
	if s := r.URL.Query().Get("date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date format, use YYYY-MM-DD"})
			return
		}
		params.Date = pgtype.Date{Time: t, Valid: true}
	}

	orders, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = dbOrderToResponse(o)
	}

	writeJSON(w, http.StatusOK, orderListResponse{
		Orders: resp,
		Limit:  limit,
		Offset: offset,
	})
}

// Get handles GET /admin/orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: list order items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	sauces, err := h.store.ListOrderItemSaucesByOrder(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: list order item sauces: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	// Group sauces by item
	saucesByItem := make(map[uuid.UUID][]database.OrderItemSauce)
	for _, s := range sauces {
		saucesByItem[s.OrderItemID] = append(saucesByItem[s.OrderItemID], s)
	}

	resp := dbOrderToResponse(order)
	resp.Items = make([]orderItemResponse, len(items))
	for i, item := range items {
		resp.Items[i] = dbOrderItemToResponse(item, saucesByItem[item.ID])
	}

	writeJSON(w, http.StatusOK, resp)
}

// Update handles PUT /admin/orders/{id}: replaces contact fields and lines.
func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if msg := validateOrderItems(req.Items); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	result, err := h.svc.Update(r.Context(), service.UpdateOrderRequest{
		ID:              orderID,
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		CustomerAddress: req.CustomerAddress,
		DeliveryType:    req.DeliveryType,
		Notes:           req.Notes,
		Items:           toServiceItems(req.Items),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		if isValidationError(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: update order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := toOrderResponse(result)
	h.notifier.BroadcastJSON(ws.EventOrderUpdated, resp)
	writeJSON(w, http.StatusOK, resp)
}

// UpdateStatus handles PATCH /admin/orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}
	if !isValidOrderStatus(req.Status) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}

	h.transition(w, r, orderID, func(current string) (string, error) {
		if err := validateStatusTransition(current, req.Status); err != nil {
			return "", err
		}
		return req.Status, nil
	})
}

// Advance handles POST /admin/orders/{id}/advance: moves the order one step
// along PENDING -> PREPARING -> READY -> DELIVERED.
func (h *OrderHandler) Advance(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	h.transition(w, r, orderID, func(current string) (string, error) {
		next, ok := nextStatus[current]
		if !ok {
			return "", fmt.Errorf("cannot advance from %s", current)
		}
		return next, nil
	})
}

// Cancel handles POST /admin/orders/{id}/cancel. Any non-terminal order
// can be cancelled.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	h.transition(w, r, orderID, func(current string) (string, error) {
		if err := validateStatusTransition(current, enum.OrderStatusCancelled); err != nil {
			return "", err
		}
		return enum.OrderStatusCancelled, nil
	})
}

// transition reads the order, picks the target status, and applies it with
// a compare-and-swap so concurrent updates can't double-apply.
func (h *OrderHandler) transition(w http.ResponseWriter, r *http.Request, orderID uuid.UUID, pick func(current string) (string, error)) {
	current, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order for transition: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	target, err := pick(current.Status)
	if err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}

	updated, err := h.store.UpdateOrderStatus(r.Context(), database.UpdateOrderStatusParams{
		ID:         orderID,
		FromStatus: current.Status,
		ToStatus:   target,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// No rows updated means the status changed between our read and write.
			writeJSON(w, http.StatusConflict, map[string]string{"error": "order status changed, please retry"})
			return
		}
		log.Printf("ERROR: update order status: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := dbOrderToResponse(updated)
	h.notifier.BroadcastJSON(ws.EventOrderStatusUpdated, resp)
	writeJSON(w, http.StatusOK, resp)
}

// Delete handles DELETE /admin/orders/{id}. Items and sauce snapshots go
// with it via ON DELETE CASCADE.
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	_, err = h.store.DeleteOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: delete order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteFinished handles DELETE /admin/orders/completed: bulk removal of
// DELIVERED and CANCELLED orders.
func (h *OrderHandler) DeleteFinished(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.svc.DeleteFinished(r.Context())
	if err != nil {
		log.Printf("ERROR: delete finished orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, deleteFinishedResponse{Deleted: deleted})
}

// --- Helpers ---

func validateOrderItems(items []createOrderItemRequest) string {
	if len(items) == 0 {
		return "items are required"
	}
	for i, item := range items {
		if item.ProductID == "" {
			return fmt.Sprintf("items[%d]: product_id is required", i)
		}
		if item.Quantity <= 0 {
			return fmt.Sprintf("items[%d]: quantity must be > 0", i)
		}
	}
	return ""
}

func toServiceItems(items []createOrderItemRequest) []service.OrderItemRequest {
	svcItems := make([]service.OrderItemRequest, len(items))
	for i, item := range items {
		svcItems[i] = service.OrderItemRequest{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Notes:     item.Notes,
			SauceIDs:  item.SauceIDs,
		}
	}
	return svcItems
}

// isValidationError checks if the error is a known validation error
// from the service layer that should result in 400 Bad Request.
func isValidationError(err error) bool {
	return errors.Is(err, service.ErrEmptyItems) ||
		errors.Is(err, service.ErrInvalidDeliveryType) ||
		errors.Is(err, service.ErrInvalidQuantity) ||
		errors.Is(err, service.ErrProductNotFound) ||
		errors.Is(err, service.ErrSauceNotFound) ||
		errors.Is(err, service.ErrCustomerName) ||
		errors.Is(err, service.ErrCustomerPhone) ||
		errors.Is(err, service.ErrDeliveryAddress) ||
		errors.Is(err, service.ErrInvalidProductID) ||
		errors.Is(err, service.ErrInvalidSauceID)
}

func toOrderResponse(result *service.CheckoutResult) orderResponse {
	resp := dbOrderToResponse(result.Order)
	resp.Items = make([]orderItemResponse, len(result.Items))
	for i, ir := range result.Items {
		resp.Items[i] = dbOrderItemToResponse(ir.Item, ir.Sauces)
	}
	return resp
}

// dbOrderToResponse converts a database.Order to an orderResponse without
// items, for the list and transition endpoints.
func dbOrderToResponse(o database.Order) orderResponse {
	resp := orderResponse{
		ID:              o.ID,
		Reference:       o.Reference,
		OrderNumber:     o.OrderNumber,
		CustomerName:    o.CustomerName,
		CustomerPhone:   o.CustomerPhone,
		CustomerAddress: o.CustomerAddress,
		DeliveryType:    o.DeliveryType,
		Status:          o.Status,
		Subtotal:        numericToString(o.Subtotal),
		Tip:             numericToString(o.Tip),
		Total:           numericToString(o.Total),
		CreatedAt:       o.CreatedAt,
		CreatedAtText:   spanishTimestamp(o.CreatedAt),
		UpdatedAt:       o.UpdatedAt,
	}
	if o.Notes.Valid {
		resp.Notes = &o.Notes.String
	}
	return resp
}

var spanishMonths = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

var mexicoCity = loadMexicoCity()

func loadMexicoCity() *time.Location {
	loc, err := time.LoadLocation("America/Mexico_City")
	if err != nil {
		// Mexico City dropped DST in 2022, so a fixed UTC-6 is exact on
		// hosts without tzdata.
		return time.FixedZone("CST", -6*60*60)
	}
	return loc
}

// spanishTimestamp renders an es-MX display timestamp for receipts and
// the dashboard, e.g. "30 de agosto de 2026, 14:05". Timestamps are
// stored in UTC; the shop reads clocks in Mexico City.
func spanishTimestamp(t time.Time) string {
	t = t.In(mexicoCity)
	return fmt.Sprintf("%d de %s de %d, %02d:%02d",
		t.Day(), spanishMonths[t.Month()-1], t.Year(), t.Hour(), t.Minute())
}

func dbOrderItemToResponse(item database.OrderItem, sauces []database.OrderItemSauce) orderItemResponse {
	resp := orderItemResponse{
		ID:          item.ID,
		ProductID:   item.ProductID,
		ProductName: item.ProductName,
		UnitPrice:   numericToString(item.UnitPrice),
		Quantity:    item.Quantity,
	}
	if item.Notes.Valid {
		resp.Notes = &item.Notes.String
	}
	resp.Sauces = make([]orderItemSauceResponse, len(sauces))
	for i, s := range sauces {
		resp.Sauces[i] = orderItemSauceResponse{
			ID:        s.ID,
			SauceID:   s.SauceID,
			SauceName: s.SauceName,
			Surcharge: numericToString(s.Surcharge),
		}
	}
	return resp
}

// isValidOrderStatus checks if the given status is a valid order status.
func isValidOrderStatus(s string) bool {
	switch s {
	case enum.OrderStatusPending,
		enum.OrderStatusPreparing,
		enum.OrderStatusReady,
		enum.OrderStatusDelivered,
		enum.OrderStatusCancelled:
		return true
	}
	return false
}

// allowedTransitions defines valid status transitions.
// Key is current status, value is the set of statuses it can transition to.
// DELIVERED and CANCELLED are terminal.
var allowedTransitions = map[string][]string{
	enum.OrderStatusPending:   {enum.OrderStatusPreparing, enum.OrderStatusCancelled},
	enum.OrderStatusPreparing: {enum.OrderStatusReady, enum.OrderStatusCancelled},
	enum.OrderStatusReady:     {enum.OrderStatusDelivered, enum.OrderStatusCancelled},
}

// nextStatus maps each non-terminal status to its happy-path successor.
var nextStatus = map[string]string{
	enum.OrderStatusPending:   enum.OrderStatusPreparing,
	enum.OrderStatusPreparing: enum.OrderStatusReady,
	enum.OrderStatusReady:     enum.OrderStatusDelivered,
}

// validateStatusTransition checks if the transition from current to next is allowed.
func validateStatusTransition(current, next string) error {
	allowed, ok := allowedTransitions[current]
	if !ok {
		return fmt.Errorf("cannot transition from %s", current)
	}
	for _, s := range allowed {
		if s == next {
			return nil
		}
	}
	return fmt.Errorf("cannot transition from %s to %s", current, next)
}
