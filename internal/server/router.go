// Package server wires the HTTP routes and middleware for the document store.
package server

import (
	"net/http"

	"github.com/maruel/docdb/internal/docdb"
	"github.com/maruel/docdb/internal/server/handlers"
	"github.com/maruel/docdb/internal/server/ratelimit"
)

// NewRouter creates and configures the HTTP router. limiter may be nil to
// disable rate limiting.
func NewRouter(store *docdb.Store, limiter *ratelimit.Limiter) http.Handler {
	mux := http.NewServeMux()

	collectionHandler := handlers.NewCollectionHandler(store)
	healthHandler := handlers.NewHealthHandler()

	// Health check
	mux.HandleFunc("GET /api/health", healthHandler.Health)

	// Collections
	mux.HandleFunc("GET /api/collections", collectionHandler.ListCollections)

	// Records
	mux.HandleFunc("POST /api/collections/{name}/records", collectionHandler.CreateRecord)
	mux.HandleFunc("GET /api/collections/{name}/records", collectionHandler.ListRecords)
	mux.HandleFunc("GET /api/collections/{name}/records/{id}", collectionHandler.GetRecord)
	mux.HandleFunc("PUT /api/collections/{name}/records/{id}", collectionHandler.UpdateRecord)
	mux.HandleFunc("PATCH /api/collections/{name}/records/{id}", collectionHandler.PatchRecord)
	mux.HandleFunc("DELETE /api/collections/{name}/records/{id}", collectionHandler.DeleteRecord)

	var handler http.Handler = mux
	handler = ratelimit.Middleware(limiter)(handler)
	handler = LoggingMiddleware(handler)
	handler = RecoverMiddleware(handler)
	return handler
}
