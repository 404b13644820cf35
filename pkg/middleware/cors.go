package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS returns the cross-origin middleware for the dashboard frontends.
// The API is read-only and unauthenticated, so credentials stay disabled.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	})
}
