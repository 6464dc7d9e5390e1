package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/tarascos/api/internal/database"
	"github.com/tarascos/api/internal/enum"
)

// SauceStore defines the database methods needed by sauce handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type SauceStore interface {
	ListSauces(ctx context.Context) ([]database.Sauce, error)
	CreateSauce(ctx context.Context, arg database.CreateSauceParams) (database.Sauce, error)
	UpdateSauce(ctx context.Context, arg database.UpdateSauceParams) (database.Sauce, error)
	SoftDeleteSauce(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

// SauceHandler handles sauce CRUD endpoints.
type SauceHandler struct {
	store SauceStore
}

// NewSauceHandler creates a new SauceHandler.
func NewSauceHandler(store SauceStore) *SauceHandler {
	return &SauceHandler{store: store}
}

// RegisterRoutes registers sauce CRUD endpoints on the given Chi router.
// Expected to be mounted inside the admin subrouter: /admin/sauces
func (h *SauceHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type createSauceRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Surcharge   string `json:"surcharge"`
	SpiceLevel  int32  `json:"spice_level"`
}

type sauceResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Surcharge   string    `json:"surcharge"`
	SpiceLevel  int32     `json:"spice_level"`
	CreatedAt   time.Time `json:"created_at"`
}

func toSauceResponse(s database.Sauce) sauceResponse {
	resp := sauceResponse{
		ID:         s.ID,
		Name:       s.Name,
		Surcharge:  numericToString(s.Surcharge),
		SpiceLevel: s.SpiceLevel,
		CreatedAt:  s.CreatedAt,
	}
	if s.Description.Valid {
		resp.Description = &s.Description.String
	}
	return resp
}

// parseSauceRequest validates the shared create/update fields.
func parseSauceRequest(req createSauceRequest) (database.CreateSauceParams, string) {
	if req.Name == "" {
		return database.CreateSauceParams{}, "name is required"
	}
	if req.SpiceLevel < 0 || req.SpiceLevel > enum.MaxSpiceLevel {
		return database.CreateSauceParams{}, "spice_level must be between 0 and 5"
	}

	surcharge := decimal.Zero
	if req.Surcharge != "" {
		var err error
		surcharge, err = decimal.NewFromString(req.Surcharge)
		if err != nil {
			return database.CreateSauceParams{}, "invalid surcharge"
		}
		if surcharge.IsNegative() {
			return database.CreateSauceParams{}, "surcharge must be >= 0"
		}
	}

	desc := pgtype.Text{}
	if req.Description != "" {
		desc = pgtype.Text{String: req.Description, Valid: true}
	}

	return database.CreateSauceParams{
		Name:        req.Name,
		Description: desc,
		Surcharge:   decimalToNumeric(surcharge),
		SpiceLevel:  req.SpiceLevel,
	}, ""
}

// --- Handlers ---

// List returns all active sauces.
func (h *SauceHandler) List(w http.ResponseWriter, r *http.Request) {
	sauces, err := h.store.ListSauces(r.Context())
	if err != nil {
		log.Printf("ERROR: list sauces: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]sauceResponse, len(sauces))
	for i, s := range sauces {
		resp[i] = toSauceResponse(s)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Create adds a new sauce.
func (h *SauceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSauceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	params, msg := parseSauceRequest(req)
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	sauce, err := h.store.CreateSauce(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: create sauce: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toSauceResponse(sauce))
}

// Update modifies an existing active sauce.
func (h *SauceHandler) Update(w http.ResponseWriter, r *http.Request) {
	sauceID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid sauce ID"})
		return
	}

	var req createSauceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	params, msg := parseSauceRequest(req)
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	sauce, err := h.store.UpdateSauce(r.Context(), database.UpdateSauceParams{
		ID:          sauceID,
		Name:        params.Name,
		Description: params.Description,
		Surcharge:   params.Surcharge,
		SpiceLevel:  params.SpiceLevel,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "sauce not found"})
			return
		}
		log.Printf("ERROR: update sauce: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toSauceResponse(sauce))
}

// Delete soft-deletes a sauce by setting is_active=false. Existing order
// lines keep their surcharge snapshots.
func (h *SauceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sauceID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid sauce ID"})
		return
	}

	_, err = h.store.SoftDeleteSauce(r.Context(), sauceID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "sauce not found"})
			return
		}
		log.Printf("ERROR: delete sauce: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
