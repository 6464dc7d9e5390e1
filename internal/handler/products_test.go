package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/tarascos/api/internal/database"
	"github.com/tarascos/api/internal/handler"
)

// mockProductStore is a map-backed ProductStore. Creating or updating with
// a category ID outside knownCategories fails like a foreign key would.
type mockProductStore struct {
	products        map[uuid.UUID]database.Product
	knownCategories map[uuid.UUID]bool
}

func newMockProductStore() *mockProductStore {
	return &mockProductStore{
		products:        make(map[uuid.UUID]database.Product),
		knownCategories: make(map[uuid.UUID]bool),
	}
}

func (m *mockProductStore) ListProducts(ctx context.Context) ([]database.ListProductsRow, error) {
	out := make([]database.ListProductsRow, 0, len(m.products))
	for _, p := range m.products {
		if !p.IsActive {
			continue
		}
		out = append(out, database.ListProductsRow{
			Product:       p,
			CategoryName:  "Tacos",
			CategoryColor: "#E63946",
			CategoryIcon:  "taco",
		})
	}
	return out, nil
}

func (m *mockProductStore) GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error) {
	p, ok := m.products[id]
	if !ok || !p.IsActive {
		return database.Product{}, pgx.ErrNoRows
	}
	return p, nil
}

func (m *mockProductStore) CreateProduct(ctx context.Context, arg database.CreateProductParams) (database.Product, error) {
	if !m.knownCategories[arg.CategoryID] {
		return database.Product{}, &pgconn.PgError{Code: "23503", ConstraintName: "products_category_id_fkey"}
	}
	p := database.Product{
		ID:          uuid.New(),
		Name:        arg.Name,
		Description: arg.Description,
		Price:       arg.Price,
		ImageURL:    arg.ImageURL,
		CategoryID:  arg.CategoryID,
		Featured:    arg.Featured,
		IsActive:    true,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	m.products[p.ID] = p
	return p, nil
}

func (m *mockProductStore) UpdateProduct(ctx context.Context, arg database.UpdateProductParams) (database.Product, error) {
	p, ok := m.products[arg.ID]
	if !ok || !p.IsActive {
		return database.Product{}, pgx.ErrNoRows
	}
	if !m.knownCategories[arg.CategoryID] {
		return database.Product{}, &pgconn.PgError{Code: "23503", ConstraintName: "products_category_id_fkey"}
	}
	p.Name = arg.Name
	p.Description = arg.Description
	p.Price = arg.Price
	p.ImageURL = arg.ImageURL
	p.CategoryID = arg.CategoryID
	p.Featured = arg.Featured
	m.products[arg.ID] = p
	return p, nil
}

func (m *mockProductStore) SoftDeleteProduct(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	p, ok := m.products[id]
	if !ok || !p.IsActive {
		return uuid.Nil, pgx.ErrNoRows
	}
	p.IsActive = false
	m.products[id] = p
	return id, nil
}

func setupProductRouter(store handler.ProductStore) chi.Router {
	r := chi.NewRouter()
	r.Route("/products", handler.NewProductHandler(store).RegisterRoutes)
	return r
}

func productRequest(categoryID uuid.UUID) map[string]interface{} {
	return map[string]interface{}{
		"name":        "Taco de Carnitas",
		"description": "Carnitas estilo Quiroga",
		"price":       "35.00",
		"category_id": categoryID.String(),
		"featured":    true,
	}
}

// --- Tests ---

func TestCreateProduct(t *testing.T) {
	store := newMockProductStore()
	categoryID := uuid.New()
	store.knownCategories[categoryID] = true
	router := setupProductRouter(store)

	rec := doRequest(t, router, http.MethodPost, "/products", productRequest(categoryID))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		ID       uuid.UUID `json:"id"`
		Name     string    `json:"name"`
		Price    string    `json:"price"`
		Featured bool      `json:"featured"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Name != "Taco de Carnitas" {
		t.Errorf("name: got %s", resp.Name)
	}
	if resp.Price != "35.00" {
		t.Errorf("price: got %s, want 35.00", resp.Price)
	}
	if !resp.Featured {
		t.Error("expected featured product")
	}
}

func TestCreateProduct_InvalidPrice(t *testing.T) {
	store := newMockProductStore()
	categoryID := uuid.New()
	store.knownCategories[categoryID] = true
	router := setupProductRouter(store)

	req := productRequest(categoryID)
	req["price"] = "thirty-five"

	rec := doRequest(t, router, http.MethodPost, "/products", req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "invalid price" {
		t.Errorf("error message: got %q", msg)
	}
}

func TestCreateProduct_NegativePrice(t *testing.T) {
	store := newMockProductStore()
	categoryID := uuid.New()
	store.knownCategories[categoryID] = true
	router := setupProductRouter(store)

	req := productRequest(categoryID)
	req["price"] = "-5.00"

	rec := doRequest(t, router, http.MethodPost, "/products", req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "price must be >= 0" {
		t.Errorf("error message: got %q", msg)
	}
}

func TestCreateProduct_MissingCategory(t *testing.T) {
	router := setupProductRouter(newMockProductStore())

	req := productRequest(uuid.New())
	delete(req, "category_id")

	rec := doRequest(t, router, http.MethodPost, "/products", req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "category_id is required" {
		t.Errorf("error message: got %q", msg)
	}
}

func TestCreateProduct_UnknownCategory(t *testing.T) {
	router := setupProductRouter(newMockProductStore())

	// Category ID parses fine but the FK insert fails.
	rec := doRequest(t, router, http.MethodPost, "/products", productRequest(uuid.New()))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "category not found" {
		t.Errorf("error message: got %q", msg)
	}
}

func TestListProducts_SkipsInactive(t *testing.T) {
	store := newMockProductStore()
	categoryID := uuid.New()
	store.knownCategories[categoryID] = true

	active := uuid.New()
	inactive := uuid.New()
	store.products[active] = database.Product{ID: active, Name: "Taco", Price: testNumeric("35.00"), CategoryID: categoryID, IsActive: true}
	store.products[inactive] = database.Product{ID: inactive, Name: "Old Taco", Price: testNumeric("30.00"), CategoryID: categoryID, IsActive: false}

	router := setupProductRouter(store)

	rec := doRequest(t, router, http.MethodGet, "/products", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp []struct {
		ID           uuid.UUID `json:"id"`
		CategoryName string    `json:"category_name"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp) != 1 {
		t.Fatalf("expected 1 product, got %d", len(resp))
	}
	if resp[0].ID != active {
		t.Errorf("expected the active product, got %s", resp[0].ID)
	}
	if resp[0].CategoryName != "Tacos" {
		t.Errorf("category name: got %s", resp[0].CategoryName)
	}
}

func TestUpdateProduct_NotFound(t *testing.T) {
	store := newMockProductStore()
	categoryID := uuid.New()
	store.knownCategories[categoryID] = true
	router := setupProductRouter(store)

	rec := doRequest(t, router, http.MethodPut, "/products/"+uuid.NewString(), productRequest(categoryID))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestDeleteProduct_SoftDeletes(t *testing.T) {
	store := newMockProductStore()
	id := uuid.New()
	store.products[id] = database.Product{ID: id, Name: "Taco", Price: testNumeric("35.00"), IsActive: true}
	router := setupProductRouter(store)

	rec := doRequest(t, router, http.MethodDelete, "/products/"+id.String(), nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	// Row survives but is hidden from reads.
	if _, ok := store.products[id]; !ok {
		t.Fatal("product row should still exist")
	}
	if store.products[id].IsActive {
		t.Error("product should be inactive")
	}

	rec = doRequest(t, router, http.MethodGet, "/products/"+id.String(), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after soft delete, got %d", rec.Code)
	}
}
