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
	"github.com/tarascos/api/internal/database"
	"github.com/tarascos/api/internal/handler"
)

// mockSauceStore is a map-backed SauceStore.
type mockSauceStore struct {
	sauces map[uuid.UUID]database.Sauce
}

func newMockSauceStore() *mockSauceStore {
	return &mockSauceStore{sauces: make(map[uuid.UUID]database.Sauce)}
}

func (m *mockSauceStore) ListSauces(ctx context.Context) ([]database.Sauce, error) {
	out := make([]database.Sauce, 0, len(m.sauces))
	for _, s := range m.sauces {
		if s.IsActive {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockSauceStore) CreateSauce(ctx context.Context, arg database.CreateSauceParams) (database.Sauce, error) {
	s := database.Sauce{
		ID:          uuid.New(),
		Name:        arg.Name,
		Description: arg.Description,
		Surcharge:   arg.Surcharge,
		SpiceLevel:  arg.SpiceLevel,
		IsActive:    true,
		CreatedAt:   time.Now(),
	}
	m.sauces[s.ID] = s
	return s, nil
}

func (m *mockSauceStore) UpdateSauce(ctx context.Context, arg database.UpdateSauceParams) (database.Sauce, error) {
	s, ok := m.sauces[arg.ID]
	if !ok || !s.IsActive {
		return database.Sauce{}, pgx.ErrNoRows
	}
	s.Name = arg.Name
	s.Description = arg.Description
	s.Surcharge = arg.Surcharge
	s.SpiceLevel = arg.SpiceLevel
	m.sauces[arg.ID] = s
	return s, nil
}

func (m *mockSauceStore) SoftDeleteSauce(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	s, ok := m.sauces[id]
	if !ok || !s.IsActive {
		return uuid.Nil, pgx.ErrNoRows
	}
	s.IsActive = false
	m.sauces[id] = s
	return id, nil
}

func setupSauceRouter(store handler.SauceStore) chi.Router {
	r := chi.NewRouter()
	r.Route("/sauces", handler.NewSauceHandler(store).RegisterRoutes)
	return r
}

// --- Tests ---

func TestCreateSauce(t *testing.T) {
	store := newMockSauceStore()
	router := setupSauceRouter(store)

	rec := doRequest(t, router, http.MethodPost, "/sauces", map[string]interface{}{
		"name":        "Habanero",
		"description": "Solo para valientes",
		"surcharge":   "5.00",
		"spice_level": 5,
	})

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Name       string `json:"name"`
		Surcharge  string `json:"surcharge"`
		SpiceLevel int32  `json:"spice_level"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Name != "Habanero" {
		t.Errorf("name: got %s", resp.Name)
	}
	if resp.Surcharge != "5.00" {
		t.Errorf("surcharge: got %s, want 5.00", resp.Surcharge)
	}
	if resp.SpiceLevel != 5 {
		t.Errorf("spice level: got %d, want 5", resp.SpiceLevel)
	}
}

func TestCreateSauce_DefaultsToFreeSauce(t *testing.T) {
	router := setupSauceRouter(newMockSauceStore())

	rec := doRequest(t, router, http.MethodPost, "/sauces", map[string]interface{}{
		"name":        "Salsa Verde",
		"spice_level": 2,
	})

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Surcharge string `json:"surcharge"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Surcharge != "0.00" {
		t.Errorf("surcharge: got %s, want 0.00", resp.Surcharge)
	}
}

func TestCreateSauce_SpiceLevelTooHigh(t *testing.T) {
	router := setupSauceRouter(newMockSauceStore())

	rec := doRequest(t, router, http.MethodPost, "/sauces", map[string]interface{}{
		"name":        "Fantasma",
		"spice_level": 6,
	})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "spice_level must be between 0 and 5" {
		t.Errorf("error message: got %q", msg)
	}
}

func TestCreateSauce_NegativeSpiceLevel(t *testing.T) {
	router := setupSauceRouter(newMockSauceStore())

	rec := doRequest(t, router, http.MethodPost, "/sauces", map[string]interface{}{
		"name":        "Crema",
		"spice_level": -1,
	})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreateSauce_NegativeSurcharge(t *testing.T) {
	router := setupSauceRouter(newMockSauceStore())

	rec := doRequest(t, router, http.MethodPost, "/sauces", map[string]interface{}{
		"name":        "Guacamole",
		"surcharge":   "-10.00",
		"spice_level": 1,
	})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "surcharge must be >= 0" {
		t.Errorf("error message: got %q", msg)
	}
}

func TestUpdateSauce_NotFound(t *testing.T) {
	router := setupSauceRouter(newMockSauceStore())

	rec := doRequest(t, router, http.MethodPut, "/sauces/"+uuid.NewString(), map[string]interface{}{
		"name":        "Salsa Roja",
		"spice_level": 3,
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestDeleteSauce_SoftDeletes(t *testing.T) {
	store := newMockSauceStore()
	id := uuid.New()
	store.sauces[id] = database.Sauce{ID: id, Name: "Salsa Roja", Surcharge: testNumeric("0.00"), IsActive: true}
	router := setupSauceRouter(store)

	rec := doRequest(t, router, http.MethodDelete, "/sauces/"+id.String(), nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if store.sauces[id].IsActive {
		t.Error("sauce should be inactive")
	}

	rec = doRequest(t, router, http.MethodGet, "/sauces", nil)
	var resp []json.RawMessage
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp) != 0 {
		t.Errorf("expected empty list after soft delete, got %d", len(resp))
	}
}
