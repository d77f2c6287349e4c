package server

import (
	"net/http"
	"regexp"
)

const localDevOrigin = "http://localhost:3000"

// corsMiddleware allows the local dev frontend, the configured production
// frontend, and per-branch preview deployments matching the origin pattern.
func corsMiddleware(frontendURL string, previewOrigin *regexp.Regexp) func(http.Handler) http.Handler {
	allowed := func(origin string) bool {
		if origin == "" {
			return false
		}
		if origin == localDevOrigin {
			return true
		}
		if frontendURL != "" && origin == frontendURL {
			return true
		}
		return previewOrigin.MatchString(origin)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if allowed(origin) {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Content-Type")
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Add("Vary", "Origin")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
