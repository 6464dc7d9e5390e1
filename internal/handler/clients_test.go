package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/tarascos/api/internal/database"
	"github.com/tarascos/api/internal/enum"
	"github.com/tarascos/api/internal/handler"
)

// mockClientStore is a map-backed ClientStore. Phone uniqueness is enforced
// the way the database would, with a 23505 error.
type mockClientStore struct {
	clients map[uuid.UUID]database.Client
	orders  map[string][]database.Order
}

func newMockClientStore() *mockClientStore {
	return &mockClientStore{
		clients: make(map[uuid.UUID]database.Client),
		orders:  make(map[string][]database.Order),
	}
}

func (m *mockClientStore) phoneTaken(phone string, except uuid.UUID) bool {
	for _, c := range m.clients {
		if c.Phone == phone && c.ID != except {
			return true
		}
	}
	return false
}

func (m *mockClientStore) ListClients(ctx context.Context, arg database.ListClientsParams) ([]database.Client, error) {
	out := make([]database.Client, 0, len(m.clients))
	for _, c := range m.clients {
		if arg.Search.Valid {
			term := strings.ToLower(arg.Search.String)
			if !strings.Contains(strings.ToLower(c.Name), term) && !strings.Contains(c.Phone, term) {
				continue
			}
		}
		out = append(out, c)
	}
	return out, nil
}

func (m *mockClientStore) GetClient(ctx context.Context, id uuid.UUID) (database.Client, error) {
	c, ok := m.clients[id]
	if !ok {
		return database.Client{}, pgx.ErrNoRows
	}
	return c, nil
}

func (m *mockClientStore) CreateClient(ctx context.Context, arg database.CreateClientParams) (database.Client, error) {
	if m.phoneTaken(arg.Phone, uuid.Nil) {
		return database.Client{}, &pgconn.PgError{Code: "23505", ConstraintName: "clients_phone_key"}
	}
	c := database.Client{
		ID:         uuid.New(),
		Name:       arg.Name,
		Phone:      arg.Phone,
		Address:    arg.Address,
		Email:      arg.Email,
		Notes:      arg.Notes,
		Status:     arg.Status,
		TotalSpent: testNumeric("0.00"),
		CreatedAt:  time.Now(),
	}
	m.clients[c.ID] = c
	return c, nil
}

func (m *mockClientStore) UpdateClient(ctx context.Context, arg database.UpdateClientParams) (database.Client, error) {
	c, ok := m.clients[arg.ID]
	if !ok {
		return database.Client{}, pgx.ErrNoRows
	}
	if m.phoneTaken(arg.Phone, arg.ID) {
		return database.Client{}, &pgconn.PgError{Code: "23505", ConstraintName: "clients_phone_key"}
	}
	c.Name = arg.Name
	c.Phone = arg.Phone
	c.Address = arg.Address
	c.Email = arg.Email
	c.Notes = arg.Notes
	c.Status = arg.Status
	m.clients[arg.ID] = c
	return c, nil
}

func (m *mockClientStore) DeleteClient(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	if _, ok := m.clients[id]; !ok {
		return uuid.Nil, pgx.ErrNoRows
	}
	delete(m.clients, id)
	return id, nil
}

func (m *mockClientStore) ListOrdersByPhone(ctx context.Context, phone string) ([]database.Order, error) {
	return m.orders[phone], nil
}

func setupClientRouter(store handler.ClientStore) chi.Router {
	r := chi.NewRouter()
	r.Route("/clients", handler.NewClientHandler(store).RegisterRoutes)
	return r
}

// --- Tests ---

func TestCreateClient(t *testing.T) {
	store := newMockClientStore()
	router := setupClientRouter(store)

	rec := doRequest(t, router, http.MethodPost, "/clients", map[string]string{
		"name":    "Maria Lopez",
		"phone":   "5512345678",
		"address": "Av. Juarez 10",
		"email":   "maria@example.com",
	})

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Name   string  `json:"name"`
		Phone  string  `json:"phone"`
		Email  *string `json:"email"`
		Status string  `json:"status"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Phone != "5512345678" {
		t.Errorf("phone: got %s", resp.Phone)
	}
	if resp.Email == nil || *resp.Email != "maria@example.com" {
		t.Errorf("email: got %v", resp.Email)
	}
	// Status defaults to ACTIVE when omitted.
	if resp.Status != enum.ClientStatusActive {
		t.Errorf("status: got %s, want %s", resp.Status, enum.ClientStatusActive)
	}
}

func TestCreateClient_MissingPhone(t *testing.T) {
	router := setupClientRouter(newMockClientStore())

	rec := doRequest(t, router, http.MethodPost, "/clients", map[string]string{
		"name": "Maria Lopez",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "phone is required" {
		t.Errorf("error message: got %q", msg)
	}
}

func TestCreateClient_InvalidStatus(t *testing.T) {
	router := setupClientRouter(newMockClientStore())

	rec := doRequest(t, router, http.MethodPost, "/clients", map[string]string{
		"name":   "Maria Lopez",
		"phone":  "5512345678",
		"status": "BANNED",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "invalid status" {
		t.Errorf("error message: got %q", msg)
	}
}

func TestCreateClient_DuplicatePhone(t *testing.T) {
	store := newMockClientStore()
	router := setupClientRouter(store)

	body := map[string]string{"name": "Maria Lopez", "phone": "5512345678"}
	if rec := doRequest(t, router, http.MethodPost, "/clients", body); rec.Code != http.StatusCreated {
		t.Fatalf("first create failed: %d", rec.Code)
	}

	rec := doRequest(t, router, http.MethodPost, "/clients", body)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "a client with this phone or email already exists" {
		t.Errorf("error message: got %q", msg)
	}
}

func TestListClients_Search(t *testing.T) {
	store := newMockClientStore()
	router := setupClientRouter(store)

	for _, c := range []struct{ name, phone string }{
		{"Maria Lopez", "5512345678"},
		{"Juan Ramirez", "5587654321"},
	} {
		doRequest(t, router, http.MethodPost, "/clients", map[string]string{"name": c.name, "phone": c.phone})
	}

	rec := doRequest(t, router, http.MethodGet, "/clients?search=maria", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Clients []struct {
			Name string `json:"name"`
		} `json:"clients"`
		Limit  int `json:"limit"`
		Offset int `json:"offset"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Clients) != 1 {
		t.Fatalf("expected 1 match, got %d", len(resp.Clients))
	}
	if resp.Clients[0].Name != "Maria Lopez" {
		t.Errorf("match: got %s", resp.Clients[0].Name)
	}
	if resp.Limit != 20 || resp.Offset != 0 {
		t.Errorf("pagination defaults: limit=%d offset=%d", resp.Limit, resp.Offset)
	}
}

func TestListClients_LimitCapped(t *testing.T) {
	router := setupClientRouter(newMockClientStore())

	rec := doRequest(t, router, http.MethodGet, "/clients?limit=500", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Limit int `json:"limit"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Limit != 100 {
		t.Errorf("limit: got %d, want 100", resp.Limit)
	}
}

func TestUpdateClient_DuplicatePhone(t *testing.T) {
	store := newMockClientStore()
	router := setupClientRouter(store)

	a := uuid.New()
	b := uuid.New()
	store.clients[a] = database.Client{ID: a, Name: "Maria Lopez", Phone: "5512345678", TotalSpent: testNumeric("0.00")}
	store.clients[b] = database.Client{ID: b, Name: "Juan Ramirez", Phone: "5587654321", TotalSpent: testNumeric("0.00")}

	rec := doRequest(t, router, http.MethodPut, "/clients/"+b.String(), map[string]string{
		"name":  "Juan Ramirez",
		"phone": "5512345678",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestDeleteClient(t *testing.T) {
	store := newMockClientStore()
	router := setupClientRouter(store)

	id := uuid.New()
	store.clients[id] = database.Client{ID: id, Name: "Maria Lopez", Phone: "5512345678", TotalSpent: testNumeric("0.00")}

	rec := doRequest(t, router, http.MethodDelete, "/clients/"+id.String(), nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if _, ok := store.clients[id]; ok {
		t.Error("client still present after delete")
	}
}

func TestClientOrders(t *testing.T) {
	store := newMockClientStore()
	router := setupClientRouter(store)

	id := uuid.New()
	store.clients[id] = database.Client{ID: id, Name: "Maria Lopez", Phone: "5512345678", TotalSpent: testNumeric("330.00")}
	store.orders["5512345678"] = []database.Order{
		{
			ID:            uuid.New(),
			Reference:     "TAR-1756500000000-ab3f",
			OrderNumber:   7,
			CustomerName:  "Maria Lopez",
			CustomerPhone: "5512345678",
			DeliveryType:  enum.DeliveryTypePickup,
			Status:        enum.OrderStatusDelivered,
			Subtotal:      testNumeric("300.00"),
			Tip:           testNumeric("30.00"),
			Total:         testNumeric("330.00"),
		},
	}

	rec := doRequest(t, router, http.MethodGet, "/clients/"+id.String()+"/orders", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp []struct {
		Reference string `json:"reference"`
		Total     string `json:"total"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp) != 1 {
		t.Fatalf("expected 1 order, got %d", len(resp))
	}
	if resp[0].Total != "330.00" {
		t.Errorf("total: got %s, want 330.00", resp[0].Total)
	}
}

func TestClientOrders_ClientNotFound(t *testing.T) {
	router := setupClientRouter(newMockClientStore())

	rec := doRequest(t, router, http.MethodGet, "/clients/"+uuid.NewString()+"/orders", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
