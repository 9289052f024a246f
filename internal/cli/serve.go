package cli

import (
	"cvcoach/internal/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the coaching HTTP API",
	Long: `Start an HTTP server exposing coaching sessions and one-shot tools.

Session endpoints:
- POST   /sessions                 start a session
- GET    /sessions/{id}            session snapshot
- DELETE /sessions/{id}            reset the session
- POST   /sessions/{id}/cv         submit a CV (JSON text or multipart PDF/TXT)
- POST   /sessions/{id}/briefing   submit the briefing
- POST   /sessions/{id}/chat       send a chat message
- POST   /sessions/{id}/tick       re-render the current phase
- POST   /sessions/{id}/navigate   jump to a phase
- GET    /sessions/{id}/telemetry  LLM call counters

Tools:
- POST /score    one-shot ATS score
- POST /salary   salary band check
- GET  /health   model and circuit breaker status
- GET  /stats    server statistics`,
	RunE: runServe,
}

var serveFlags struct {
	host string
	port string
}

func init() {
	serveCmd.Flags().StringVarP(&serveFlags.port, "port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().StringVar(&serveFlags.host, "host", "", "Host to bind to (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	if serveFlags.port != "" {
		cfg.Server.Port = serveFlags.port
	}
	if serveFlags.host != "" {
		cfg.Server.Host = serveFlags.host
	}

	a, err := newApp(cfg, logger, appOptions{observe: true})
	if err != nil {
		return err
	}
	defer a.Close()

	srv := server.NewServer(cfg, server.ConfigFrom(cfg, Version), server.Deps{
		Router:        a.router,
		Audit:         a.audit,
		Models:        a.models(),
		Observability: a.om,
	}, logger)
	return srv.Start(cmd.Context())
}
