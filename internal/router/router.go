package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tarascos/api/internal/config"
	"github.com/tarascos/api/internal/database"
	"github.com/tarascos/api/internal/handler"
	mw "github.com/tarascos/api/internal/middleware"
	"github.com/tarascos/api/internal/service"
	"github.com/tarascos/api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// The storefront surface (menu, checkout) is public; everything under
// /admin requires a valid JWT.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{
			"http://localhost:3000",          // storefront dev server
			"https://tacoslostarascos.com",   // production storefront
			"https://admin.tacoslostarascos.com",
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// Storefront catalog (public)
	menuHandler := handler.NewMenuHandler(queries)
	menuHandler.RegisterRoutes(r)

	// Order service shared by the public checkout and the admin surface
	newOrderStore := func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}
	orderService := service.NewOrderService(pool, queries, newOrderStore)
	orderHandler := handler.NewOrderHandler(orderService, queries, hub)

	// Storefront checkout (public)
	orderHandler.RegisterPublicRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Admin routes (require authentication)
	r.Route("/admin", func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		categoryHandler := handler.NewCategoryHandler(queries)
		r.Route("/categories", categoryHandler.RegisterRoutes)

		productHandler := handler.NewProductHandler(queries)
		r.Route("/products", productHandler.RegisterRoutes)

		sauceHandler := handler.NewSauceHandler(queries)
		r.Route("/sauces", sauceHandler.RegisterRoutes)

		clientHandler := handler.NewClientHandler(queries)
		r.Route("/clients", clientHandler.RegisterRoutes)

		r.Route("/orders", orderHandler.RegisterRoutes)
	})

	return r
}
