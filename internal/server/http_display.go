package server

import "fmt"

// displayServerInfo shows server configuration information
func (s *Server) displayServerInfo() {
	s.displayEndpoints()
	s.displayAuthInfo()
	s.displayRequestLimitInfo()
	s.displayRateLimitInfo()
	s.displayAuditInfo()
}

// displayEndpoints shows available API endpoints
func (s *Server) displayEndpoints() {
	fmt.Println("Available endpoints:")
	fmt.Println("  GET    /health                   - Health check")
	fmt.Println("  GET    /stats                    - Server statistics")
	fmt.Println("  POST   /sessions                 - Start a coaching session")
	fmt.Println("  GET    /sessions/{id}            - Session snapshot")
	fmt.Println("  DELETE /sessions/{id}            - Reset a session")
	fmt.Println("  POST   /sessions/{id}/cv         - Submit a CV (JSON or multipart PDF/TXT)")
	fmt.Println("  POST   /sessions/{id}/briefing   - Submit the briefing")
	fmt.Println("  POST   /sessions/{id}/chat       - Send a chat message")
	fmt.Println("  POST   /sessions/{id}/tick       - Re-render the current phase")
	fmt.Println("  POST   /sessions/{id}/navigate   - Jump to a phase")
	fmt.Println("  GET    /sessions/{id}/telemetry  - LLM call counters")
	fmt.Println("  POST   /score                    - One-shot ATS score")
	fmt.Println("  POST   /salary                   - Salary band check")
}

// displayAuthInfo shows authentication configuration
func (s *Server) displayAuthInfo() {
	if len(s.APIKeys) > 0 {
		fmt.Printf("API authentication: ENABLED (%d keys configured)\n", len(s.APIKeys))
		fmt.Println("Include 'X-API-Key: <your-key>' header in requests to /sessions, /score and /salary")
	} else {
		fmt.Println("API authentication: DISABLED (no API keys configured)")
		fmt.Println("WARNING: API endpoints are publicly accessible!")
	}
}

// displayRequestLimitInfo shows request size limit configuration
func (s *Server) displayRequestLimitInfo() {
	if s.MaxRequestSize > 0 {
		fmt.Printf("Request size limit: %d bytes (%.1f MB)\n", s.MaxRequestSize, float64(s.MaxRequestSize)/(1024*1024))
	} else {
		fmt.Println("Request size limit: DISABLED")
		fmt.Println("WARNING: No request size limits configured!")
	}
}

// displayRateLimitInfo shows rate limiting configuration
func (s *Server) displayRateLimitInfo() {
	if s.RateLimit != nil && s.RateLimit.Enabled {
		fmt.Printf("Rate limiting: ENABLED (%d requests/min, burst: %d)\n",
			s.RateLimit.RequestsPerMin, s.RateLimit.BurstCapacity)
		if s.RateLimit.ByAPIKey {
			fmt.Println("  - Per API key rate limiting enabled")
		}
		if s.RateLimit.ByIP {
			fmt.Println("  - Per IP address rate limiting enabled")
		}
	} else {
		fmt.Println("Rate limiting: DISABLED")
		fmt.Println("WARNING: No rate limiting configured!")
	}
}

func (s *Server) displayAuditInfo() {
	if s.Audit != nil {
		fmt.Println("LLM call audit log: ENABLED")
	} else {
		fmt.Println("LLM call audit log: DISABLED")
	}
}
