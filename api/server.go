/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/receipts/*        Goods receipt documents
  /api/transfers/*       Inter-store transfers
  /api/inventories/*     Physical count sessions
  /api/risk/*            Speculative risk assessment
  /api/reconciliation    Drift detection
  /api/stock             Stock level snapshot

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Goods receipt routes
		r.Route("/receipts", func(r chi.Router) {
			r.Get("/", h.ListReceipts)
			r.Post("/", h.CreateReceipt)
			r.Get("/{id}", h.GetReceipt)
			r.Delete("/{id}", h.DeleteReceipt)
			r.Post("/{id}/validate", h.ValidateReceipt)
			r.Get("/{id}/cump", h.PreviewCUMP)
		})

		// Transfer routes
		r.Route("/transfers", func(r chi.Router) {
			r.Get("/", h.ListTransfers)
			r.Post("/", h.CreateTransfer)
			r.Get("/{id}", h.GetTransfer)
			r.Post("/{id}/receive", h.ReceiveTransfer)
			r.Post("/{id}/cancel", h.CancelTransfer)
		})

		// Inventory count routes
		r.Route("/inventories", func(r chi.Router) {
			r.Get("/", h.ListInventories)
			r.Post("/", h.CreateInventory)
			r.Get("/{id}", h.GetInventory)
			r.Post("/{id}/count", h.RecordCount)
			r.Post("/{id}/submit", h.SubmitInventory)
			r.Post("/{id}/resolve", h.ResolveInventory)
		})

		// Analysis routes
		r.Post("/risk/preview", h.PreviewRisk)
		r.Post("/reconciliation", h.RunReconciliation)

		// Stock snapshot routes
		r.Route("/stock", func(r chi.Router) {
			r.Get("/", h.GetStockLevels)
			r.Put("/", h.UpsertStockLevel)
		})
	})

	// Landing page: a minimal API index, no frontend is bundled.
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Stock Engine</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Stock Engine API</h1>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/receipts">/api/receipts</a> - Goods receipts</li>
<li><a href="/api/transfers">/api/transfers</a> - Inter-store transfers</li>
<li><a href="/api/inventories">/api/inventories</a> - Count sessions</li>
<li><a href="/api/stock">/api/stock</a> - Stock snapshot</li>
</ul>
</body>
</html>`))
	})

	return r
}
