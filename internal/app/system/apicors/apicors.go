// Package apicors configures CORS for the bearer-key attendance API.
//
// The API never reads cookies, so credentials stay disabled and any origin
// may be allowed when no allow-list is configured.
package apicors

import (
	"net/http"

	"github.com/go-chi/cors"
)

const maxAge = 86400 // seconds

var (
	allowedMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions}
	allowedHeaders = []string{"Authorization", "Content-Type", "Accept"}
	exposedHeaders = []string{"Content-Disposition", "X-Export-Rows"}
)

// Middleware allows any origin.
func Middleware() func(http.Handler) http.Handler {
	return MiddlewareWithOrigins("*")
}

// MiddlewareWithOrigins allows only the listed origins. Browsers calling from
// other origins get no CORS headers and block the response.
func MiddlewareWithOrigins(allowedOrigins ...string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   allowedMethods,
		AllowedHeaders:   allowedHeaders,
		ExposedHeaders:   exposedHeaders,
		AllowCredentials: false,
		MaxAge:           maxAge,
	})
}
