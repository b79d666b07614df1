package middleware

import (
	"net/http"
	"strings"
)

// ParseAllowedOrigins splits a comma-separated origin list into a set.
func ParseAllowedOrigins(list string) map[string]struct{} {
	origins := make(map[string]struct{})
	for o := range strings.SplitSeq(list, ",") {
		o = strings.TrimSpace(strings.TrimRight(o, "/"))
		if o != "" {
			origins[o] = struct{}{}
		}
	}
	return origins
}

// isLocalhostOrigin returns true if the origin is http(s)://localhost[:port].
func isLocalhostOrigin(origin string) bool {
	for _, base := range []string{"http://localhost", "https://localhost", "http://127.0.0.1", "https://127.0.0.1"} {
		if origin == base || strings.HasPrefix(origin, base+":") {
			return true
		}
	}
	return false
}

// isOriginAllowed checks whether a request origin should receive CORS headers.
func isOriginAllowed(origin string, allowed map[string]struct{}) bool {
	if origin == "" {
		return false
	}
	if isLocalhostOrigin(origin) {
		return true
	}
	if _, ok := allowed["*"]; ok {
		return true
	}
	_, ok := allowed[origin]
	return ok
}

// CORS returns middleware that handles CORS headers with an origin whitelist.
// Localhost origins are always permitted for development; "*" in the list
// allows every origin.
func CORS(allowedOrigins string) func(http.Handler) http.Handler {
	allowed := ParseAllowedOrigins(allowedOrigins)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if isOriginAllowed(origin, allowed) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Add("Vary", "Origin")
			}

			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Requested-With")
			w.Header().Set("Access-Control-Max-Age", "86400")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
