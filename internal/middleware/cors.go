// Package middleware holds the HTTP middleware shared by the taxi analytics API.
package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// corsMaxAge is how long, in seconds, browsers may cache a preflight result.
const corsMaxAge = 600

// NewCORSHandler returns a middleware applying CORS headers for allowedOrigins.
// Origins are full scheme+host strings without a trailing slash.
// X-Request-Id is exposed so dashboards can quote it when reporting a failed
// ingest.
func NewCORSHandler(allowedOrigins []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Accept"},
		ExposedHeaders: []string{"X-Request-Id", "Content-Disposition"},
		MaxAge:         corsMaxAge,
	})
	return c.Handler
}
