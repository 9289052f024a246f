package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// setupRoutes configures all HTTP routes and middleware
func (s *Server) setupRoutes() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", s.healthHandler)
	r.Get("/stats", s.statsHandler)

	r.Group(func(r chi.Router) {
		r.Use(s.rateLimitMiddleware, s.authMiddleware, s.requestSizeLimitMiddleware)

		r.Post("/sessions", s.createSessionHandler)
		r.Get("/sessions/{id}", s.getSessionHandler)
		r.Delete("/sessions/{id}", s.resetSessionHandler)
		r.Post("/sessions/{id}/cv", s.submitCVHandler)
		r.Post("/sessions/{id}/briefing", s.submitBriefingHandler)
		r.Post("/sessions/{id}/chat", s.submitChatHandler)
		r.Post("/sessions/{id}/tick", s.tickHandler)
		r.Post("/sessions/{id}/navigate", s.navigateHandler)
		r.Get("/sessions/{id}/telemetry", s.telemetryHandler)

		r.Post("/score", s.scoreHandler)
		r.Post("/salary", s.salaryHandler)
	})

	return r
}

// requestAPIKey reads X-API-Key, falling back to a Bearer token
func requestAPIKey(r *http.Request) string {
	if apiKey := r.Header.Get("X-API-Key"); apiKey != "" {
		return apiKey
	}
	if after, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return after
	}
	return ""
}

// authMiddleware provides API key authentication
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip authentication if no API keys are configured
		if len(s.APIKeys) == 0 {
			next.ServeHTTP(w, r)
			return
		}

		apiKey := requestAPIKey(r)
		if apiKey == "" {
			s.Logger.Info("Authentication failed: missing API key",
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r))
			writeErrorResponse(w, "Missing API key", "X-API-Key header or Authorization Bearer token required", http.StatusUnauthorized)
			return
		}

		if !s.APIKeys[apiKey] {
			s.Logger.Info("Authentication failed: invalid API key",
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r),
				"api_key_prefix", maskAPIKey(apiKey))
			writeErrorResponse(w, "Invalid API key", "Unauthorized access", http.StatusUnauthorized)
			return
		}

		s.Logger.Debug("API authentication successful",
			"endpoint", r.URL.Path,
			"api_key_prefix", maskAPIKey(apiKey))

		next.ServeHTTP(w, r)
	})
}

// requestSizeLimitMiddleware limits the size of incoming requests
func (s *Server) requestSizeLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.MaxRequestSize > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, s.MaxRequestSize)
		}
		next.ServeHTTP(w, r)
	})
}

// maskAPIKey masks an API key for logging (shows only first 8 characters)
func maskAPIKey(apiKey string) string {
	if len(apiKey) <= 8 {
		return "****"
	}
	return apiKey[:8] + "****"
}
