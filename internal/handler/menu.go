package handler

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/tarascos/api/internal/database"
)

// MenuStore defines the database methods needed by the public menu handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type MenuStore interface {
	ListProducts(ctx context.Context) ([]database.ListProductsRow, error)
	ListCategories(ctx context.Context) ([]database.Category, error)
	ListSauces(ctx context.Context) ([]database.Sauce, error)
}

// MenuHandler serves the unauthenticated storefront catalog.
type MenuHandler struct {
	store MenuStore
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(store MenuStore) *MenuHandler {
	return &MenuHandler{store: store}
}

// RegisterRoutes registers public menu endpoints on the given Chi router.
func (h *MenuHandler) RegisterRoutes(r chi.Router) {
	r.Get("/menu/products", h.Products)
	r.Get("/menu/categories", h.Categories)
	r.Get("/menu/sauces", h.Sauces)
}

// --- Response types ---

// menuProductResponse flattens the category display fields onto the
// product so the storefront can render cards without a second request.
type menuProductResponse struct {
	productResponse
	CategoryName  string `json:"category_name"`
	CategoryColor string `json:"category_color"`
	CategoryIcon  string `json:"category_icon"`
}

func toMenuProductResponse(row database.ListProductsRow) menuProductResponse {
	return menuProductResponse{
		productResponse: toProductResponse(row.Product),
		CategoryName:    row.CategoryName,
		CategoryColor:   row.CategoryColor,
		CategoryIcon:    row.CategoryIcon,
	}
}

// --- Handlers ---

// Products returns all active products with category display fields.
// ?featured=true narrows to featured products for the storefront hero.
func (h *MenuHandler) Products(w http.ResponseWriter, r *http.Request) {
	products, err := h.store.ListProducts(r.Context())
	if err != nil {
		log.Printf("ERROR: list menu products: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	featuredOnly := r.URL.Query().Get("featured") == "true"

	resp := make([]menuProductResponse, 0, len(products))
	for _, p := range products {
		if featuredOnly && !p.Featured {
			continue
		}
		resp = append(resp, toMenuProductResponse(p))
	}

	writeJSON(w, http.StatusOK, resp)
}

// Categories returns all categories.
func (h *MenuHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.ListCategories(r.Context())
	if err != nil {
		log.Printf("ERROR: list menu categories: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]categoryResponse, len(categories))
	for i, c := range categories {
		resp[i] = toCategoryResponse(c)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Sauces returns all active sauces.
func (h *MenuHandler) Sauces(w http.ResponseWriter, r *http.Request) {
	sauces, err := h.store.ListSauces(r.Context())
	if err != nil {
		log.Printf("ERROR: list menu sauces: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]sauceResponse, len(sauces))
	for i, s := range sauces {
		resp[i] = toSauceResponse(s)
	}

	writeJSON(w, http.StatusOK, resp)
}

// --- Helpers ---

func numericToString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0.00"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0.00"
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return "0.00"
	}
	return d.StringFixed(2)
}
