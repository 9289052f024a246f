package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"cvcoach/internal/errors"
)

const defaultHealthCheckTimeout = 5 * time.Second

// getHealthCheckTimeout returns the configured health check timeout
func (s *Server) getHealthCheckTimeout() time.Duration {
	if s.AppConfig == nil || s.AppConfig.Observability.HealthCheck.Timeout <= 0 {
		return defaultHealthCheckTimeout
	}
	return s.AppConfig.Observability.HealthCheck.Timeout
}

// healthHandler reports model availability and circuit breaker state per operation
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":   "healthy",
		"service":  "cvcoach",
		"version":  s.Version,
		"sessions": s.Router.Store().Len(),
	}

	aiStatus, breakerStatus, healthy := s.checkAIModelsHealth(r.Context())
	response["ai_models"] = aiStatus
	response["circuit_breakers"] = breakerStatus

	status := http.StatusOK
	if !healthy {
		response["status"] = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}

// checkAIModelsHealth probes every configured model. A model is unhealthy
// when it is unavailable or its breaker is not closed.
func (s *Server) checkAIModelsHealth(ctx context.Context) (map[string]any, map[string]any, bool) {
	ctx, cancel := context.WithTimeout(ctx, s.getHealthCheckTimeout())
	defer cancel()

	aiStatus := make(map[string]any, len(s.Models))
	breakerStatus := make(map[string]any, len(s.Models))
	healthy := true

	for operation, model := range s.Models {
		info := model.CheckModel(ctx)
		aiStatus[operation] = info
		if info == nil || !info.Available {
			healthy = false
		}

		breaker := model.Breaker()
		breakerStatus[operation] = breaker.GetStats()
		if !breaker.IsHealthy() {
			healthy = false
		}
	}
	return aiStatus, breakerStatus, healthy
}

// statsHandler provides server statistics including rate limiting info
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"service":        "cvcoach",
		"version":        s.Version,
		"uptime_seconds": int(time.Since(s.startedAt).Seconds()),
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
		},
		"sessions": s.Router.Store().GetStats(),
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{
			"enabled": false,
		}
	}

	if s.RateLimit != nil {
		response["rate_limit_config"] = map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
			"by_ip":            s.RateLimit.ByIP,
			"by_api_key":       s.RateLimit.ByAPIKey,
		}
	}

	if s.Audit != nil {
		stats, err := s.Audit.StatsSince(r.Context(), s.startedAt)
		if err != nil {
			s.Logger.LogError(err, "Failed to aggregate LLM calls")
		} else {
			response["llm_calls"] = stats
		}
	}

	writeJSON(w, http.StatusOK, response)
}

// parseJSONRequest parses JSON request body into the provided struct
func parseJSONRequest(r *http.Request, v any) error {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"Envie o corpo como application/json", nil)
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return errors.NewValidationError(errors.ErrCodeInvalidRequest,
				fmt.Sprintf("Requisição grande demais (limite de %d bytes)", maxBytesErr.Limit), err)
		}
		return errors.NewIOError(errors.ErrCodeFileNotReadable, "Falha ao ler a requisição", err)
	}
	defer func() {
		if err := r.Body.Close(); err != nil {
			log.Printf("Failed to close request body: %v", err)
		}
	}()

	if err := json.Unmarshal(body, v); err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "JSON inválido", err)
	}

	return nil
}

// statusFor maps an application error to its HTTP status
func statusFor(err error) int {
	var appErr *errors.AppError
	if errors.As(err, &appErr) && appErr.Code == errors.ErrCodeSessionNotFound {
		return http.StatusNotFound
	}

	switch errors.TypeOf(err) {
	case errors.ErrorTypeValidation:
		return http.StatusBadRequest
	case errors.ErrorTypePrecondition:
		return http.StatusConflict
	case errors.ErrorTypeRateLimit:
		return http.StatusTooManyRequests
	case errors.ErrorTypeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// errorBody builds the response for err. Internal causes are never exposed.
func errorBody(err error) ErrorResponse {
	var appErr *errors.AppError
	if !errors.As(err, &appErr) {
		return ErrorResponse{Error: string(errors.ErrorTypeInternal), Code: errors.ErrCodeInternal,
			Message: "Erro interno. Tente novamente."}
	}
	return ErrorResponse{Error: string(appErr.Type), Code: appErr.Code, Message: appErr.Message}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, error, message string, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{
		Error:   error,
		Message: message,
	})
}
