package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/tarascos/api/internal/database"
	"github.com/tarascos/api/internal/enum"
)

// ClientStore defines the database methods needed by client handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ClientStore interface {
	ListClients(ctx context.Context, arg database.ListClientsParams) ([]database.Client, error)
	GetClient(ctx context.Context, id uuid.UUID) (database.Client, error)
	CreateClient(ctx context.Context, arg database.CreateClientParams) (database.Client, error)
	UpdateClient(ctx context.Context, arg database.UpdateClientParams) (database.Client, error)
	DeleteClient(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	ListOrdersByPhone(ctx context.Context, phone string) ([]database.Order, error)
}

// ClientHandler handles the customer ledger endpoints.
type ClientHandler struct {
	store ClientStore
}

// NewClientHandler creates a new ClientHandler.
func NewClientHandler(store ClientStore) *ClientHandler {
	return &ClientHandler{store: store}
}

// RegisterRoutes registers client endpoints on the given Chi router.
// Expected to be mounted inside the admin subrouter: /admin/clients
func (h *ClientHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Get("/{id}/orders", h.Orders)
}

// --- Request / Response types ---

type createClientRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Email   string `json:"email"`
	Notes   string `json:"notes"`
	Status  string `json:"status"`
}

type clientResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone"`
	Address     string    `json:"address"`
	Email       *string   `json:"email"`
	Notes       *string   `json:"notes"`
	Status      string    `json:"status"`
	TotalSpent  string    `json:"total_spent"`
	OrderCount  int32     `json:"order_count"`
	LastOrderAt time.Time `json:"last_order_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// clientListResponse wraps a list of clients with pagination metadata.
type clientListResponse struct {
	Clients []clientResponse `json:"clients"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}

func toClientResponse(c database.Client) clientResponse {
	resp := clientResponse{
		ID:          c.ID,
		Name:        c.Name,
		Phone:       c.Phone,
		Address:     c.Address,
		Status:      c.Status,
		TotalSpent:  numericToString(c.TotalSpent),
		OrderCount:  c.OrderCount,
		LastOrderAt: c.LastOrderAt,
		CreatedAt:   c.CreatedAt,
	}
	if c.Email.Valid {
		resp.Email = &c.Email.String
	}
	if c.Notes.Valid {
		resp.Notes = &c.Notes.String
	}
	return resp
}

// parseClientRequest validates the shared create/update fields.
func parseClientRequest(req createClientRequest) (database.CreateClientParams, string) {
	if req.Name == "" {
		return database.CreateClientParams{}, "name is required"
	}
	if req.Phone == "" {
		return database.CreateClientParams{}, "phone is required"
	}

	status := req.Status
	if status == "" {
		status = enum.ClientStatusActive
	}
	switch status {
	case enum.ClientStatusActive, enum.ClientStatusInactive:
	default:
		return database.CreateClientParams{}, "invalid status"
	}

	email := pgtype.Text{}
	if req.Email != "" {
		email = pgtype.Text{String: req.Email, Valid: true}
	}
	notes := pgtype.Text{}
	if req.Notes != "" {
		notes = pgtype.Text{String: req.Notes, Valid: true}
	}

	return database.CreateClientParams{
		Name:    req.Name,
		Phone:   req.Phone,
		Address: req.Address,
		Email:   email,
		Notes:   notes,
		Status:  status,
	}, ""
}

// --- Handlers ---

// List returns clients, newest first, optionally filtered by a name or
// phone search term.
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
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

	search := pgtype.Text{}
	if s := r.URL.Query().Get("search"); s != "" {
		search = pgtype.Text{String: s, Valid: true}
	}

	clients, err := h.store.ListClients(r.Context(), database.ListClientsParams{
		Limit:  int32(limit),
		Offset: int32(offset),
		Search: search,
	})
	if err != nil {
		log.Printf("ERROR: list clients: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]clientResponse, len(clients))
	for i, c := range clients {
		resp[i] = toClientResponse(c)
	}

	writeJSON(w, http.StatusOK, clientListResponse{
		Clients: resp,
		Limit:   limit,
		Offset:  offset,
	})
}

// Get returns a single client.
func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	clientID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid client ID"})
		return
	}

	client, err := h.store.GetClient(r.Context(), clientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "client not found"})
			return
		}
		log.Printf("ERROR: get client: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toClientResponse(client))
}

// Create adds a new client. Phone and email must be unique.
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	params, msg := parseClientRequest(req)
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	client, err := h.store.CreateClient(r.Context(), params)
	if err != nil {
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "a client with this phone or email already exists"})
			return
		}
		log.Printf("ERROR: create client: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toClientResponse(client))
}

// Update modifies an existing client.
func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	clientID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid client ID"})
		return
	}

	var req createClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	params, msg := parseClientRequest(req)
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	client, err := h.store.UpdateClient(r.Context(), database.UpdateClientParams{
		ID:      clientID,
		Name:    params.Name,
		Phone:   params.Phone,
		Address: params.Address,
		Email:   params.Email,
		Notes:   params.Notes,
		Status:  params.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "client not found"})
			return
		}
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "a client with this phone or email already exists"})
			return
		}
		log.Printf("ERROR: update client: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toClientResponse(client))
}

// Delete removes a client. Order history survives because orders carry
// their own customer snapshot.
func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	clientID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid client ID"})
		return
	}

	_, err = h.store.DeleteClient(r.Context(), clientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "client not found"})
			return
		}
		log.Printf("ERROR: delete client: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Orders returns the order history for a client, matched by phone.
func (h *ClientHandler) Orders(w http.ResponseWriter, r *http.Request) {
	clientID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid client ID"})
		return
	}

	client, err := h.store.GetClient(r.Context(), clientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "client not found"})
			return
		}
		log.Printf("ERROR: get client for orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	orders, err := h.store.ListOrdersByPhone(r.Context(), client.Phone)
	if err != nil {
		log.Printf("ERROR: list orders by phone: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = dbOrderToResponse(o)
	}

	writeJSON(w, http.StatusOK, resp)
}

// --- Helpers ---

// isUniqueViolation checks for pgconn error code 23505.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
