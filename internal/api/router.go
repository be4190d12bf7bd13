// Package api exposes the gateway's REST surface: the chat orchestration
// entry point, the trace read and stream endpoints, and a health probe.
package api

import (
	"net/http"
	"strings"
)

// NewRouter builds the /api handler tree. A non-empty token enables bearer
// auth on every route except OPTIONS preflights.
func NewRouter(h *Handler, token string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", h.chat)
	mux.HandleFunc("GET /api/trace", h.readTrace)
	mux.HandleFunc("GET /api/trace/stream", h.streamTrace)
	mux.HandleFunc("GET /api/healthz", h.health)

	return authMiddleware(token)(corsMiddleware(mux))
}

func authMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
			if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") &&
				strings.TrimSpace(authHeader[7:]) == token {
				next.ServeHTTP(w, r)
				return
			}
			jsonError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid bearer token")
		})
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
