package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS allows the configured frontend origins (matched case-insensitively by
// go-chi/cors) and answers preflight requests with 200.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:     allowedOrigins,
		AllowedMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "X-Requested-With"},
		ExposedHeaders:     []string{"Content-Disposition", "X-Request-Id"},
		AllowCredentials:   true,
		MaxAge:             300,
		OptionsPassthrough: false,
	})
}
