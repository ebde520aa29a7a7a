package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/angelmondragon/listing-qa-backend/pkg/types"
)

var defaultCORSOrigins = []string{"http://localhost:3000"}

// CORS applies the origin policy for the seller and admin consoles.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = defaultCORSOrigins
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", IdempotencyKeyHeader, types.RequestIDHeader},
		ExposedHeaders:   []string{types.RequestIDHeader, idempotentReplayedHeader},
		AllowCredentials: false,
		MaxAge:           300,
	})
}
