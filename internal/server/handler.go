package server

import (
	"context"
	"net/http"
	"strings"

	"cvcoach/internal/ats"
	"cvcoach/internal/errors"
	"cvcoach/internal/phase"
	"cvcoach/internal/salary"
	"cvcoach/internal/telemetry"
	"cvcoach/internal/types"
	"cvcoach/internal/utils"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// oneShotSession labels audit rows of calls made outside a session
const oneShotSession = "oneshot"

// defaultMultipartMemory bounds the in-memory part of a CV upload
const defaultMultipartMemory = 10 << 20

type portFunc func(ctx context.Context, id string, r *http.Request) (*phase.Outcome, error)

// sessionHandler wraps a router port with a span and the error mapping
func (s *Server) sessionHandler(operation string, port portFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := s.tracer.Start(r.Context(), "api."+operation)
		defer span.End()

		id := chi.URLParam(r, "id")
		span.SetAttributes(
			attribute.String("operation", operation),
			attribute.String("session.id", id),
		)

		out, err := port(ctx, id, r)
		if err != nil {
			s.writePortError(w, span, out, err)
			return
		}
		span.SetAttributes(attribute.String("session.phase", string(out.Session.Phase)))
		writeJSON(w, http.StatusOK, out)
	}
}

func (s *Server) writePortError(w http.ResponseWriter, span oteltrace.Span, out *phase.Outcome, err error) {
	status := statusFor(err)
	span.RecordError(err)
	span.SetAttributes(attribute.String("error.type", string(errors.TypeOf(err))))
	if status >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, err.Error())
	}

	body := errorBody(err)
	if out != nil {
		body.Session = &out.Session
	}
	writeJSON(w, status, body)
}

func (s *Server) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	s.sessionHandler("create", func(ctx context.Context, _ string, _ *http.Request) (*phase.Outcome, error) {
		return s.Router.Create(ctx)
	})(w, r)
}

func (s *Server) getSessionHandler(w http.ResponseWriter, r *http.Request) {
	s.sessionHandler("get", func(_ context.Context, id string, _ *http.Request) (*phase.Outcome, error) {
		view, err := s.Router.Get(id)
		if err != nil {
			return nil, err
		}
		return &phase.Outcome{Session: view}, nil
	})(w, r)
}

func (s *Server) resetSessionHandler(w http.ResponseWriter, r *http.Request) {
	s.sessionHandler("reset", func(ctx context.Context, id string, _ *http.Request) (*phase.Outcome, error) {
		return s.Router.Reset(ctx, id)
	})(w, r)
}

func (s *Server) tickHandler(w http.ResponseWriter, r *http.Request) {
	s.sessionHandler("tick", func(ctx context.Context, id string, _ *http.Request) (*phase.Outcome, error) {
		return s.Router.Tick(ctx, id)
	})(w, r)
}

// submitCVHandler accepts a JSON body with the pasted text or a multipart
// upload whose "file" part is a PDF or plain text document
func (s *Server) submitCVHandler(w http.ResponseWriter, r *http.Request) {
	s.sessionHandler("submit_cv", func(ctx context.Context, id string, r *http.Request) (*phase.Outcome, error) {
		text, err := s.readCV(r)
		if err != nil {
			return nil, err
		}
		return s.Router.SubmitCV(ctx, id, text)
	})(w, r)
}

func (s *Server) readCV(r *http.Request) (string, error) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		var req CVRequest
		if err := parseJSONRequest(r, &req); err != nil {
			return "", err
		}
		return req.Text, nil
	}

	maxMemory := s.MaxRequestSize
	if maxMemory <= 0 {
		maxMemory = defaultMultipartMemory
	}
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		return "", errors.NewValidationError(errors.ErrCodeInvalidRequest, "Envio de arquivo inválido", err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", errors.NewValidationError(errors.ErrCodeInvalidRequest, "Anexe o currículo no campo \"file\"", err)
	}
	defer file.Close()

	s.Logger.Debug("CV upload received", "filename", header.Filename, "size", utils.FormatFileSize(header.Size))
	return utils.ReadCV(file)
}

func (s *Server) submitBriefingHandler(w http.ResponseWriter, r *http.Request) {
	s.sessionHandler("submit_briefing", func(ctx context.Context, id string, r *http.Request) (*phase.Outcome, error) {
		var req phase.Briefing
		if err := parseJSONRequest(r, &req); err != nil {
			return nil, err
		}
		return s.Router.SubmitBriefing(ctx, id, req)
	})(w, r)
}

func (s *Server) submitChatHandler(w http.ResponseWriter, r *http.Request) {
	s.sessionHandler("submit_chat", func(ctx context.Context, id string, r *http.Request) (*phase.Outcome, error) {
		var req ChatRequest
		if err := parseJSONRequest(r, &req); err != nil {
			return nil, err
		}
		return s.Router.SubmitChat(ctx, id, req.Message)
	})(w, r)
}

func (s *Server) navigateHandler(w http.ResponseWriter, r *http.Request) {
	s.sessionHandler("navigate", func(ctx context.Context, id string, r *http.Request) (*phase.Outcome, error) {
		var req NavigateRequest
		if err := parseJSONRequest(r, &req); err != nil {
			return nil, err
		}
		return s.Router.Navigate(ctx, id, req.Phase)
	})(w, r)
}

// telemetryHandler returns the session counters and, when the audit log is
// enabled, every recorded call
func (s *Server) telemetryHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.tracer.Start(r.Context(), "api.telemetry")
	defer span.End()

	id := chi.URLParam(r, "id")
	snapshot, err := s.Router.Telemetry(id)
	if err != nil {
		s.writePortError(w, span, nil, err)
		return
	}

	response := map[string]any{"telemetry": snapshot}
	if s.Audit != nil {
		calls, err := s.Audit.SessionCalls(ctx, id)
		if err != nil {
			s.writePortError(w, span, nil, err)
			return
		}
		response["calls"] = calls
	}
	writeJSON(w, http.StatusOK, response)
}

// scoreHandler runs one ATS evaluation without a session
func (s *Server) scoreHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.tracer.Start(r.Context(), "api.score")
	defer span.End()

	var req ScoreRequest
	if err := parseJSONRequest(r, &req); err != nil {
		s.writePortError(w, span, nil, err)
		return
	}
	if strings.TrimSpace(req.CV) == "" {
		s.writePortError(w, span, nil, errors.NewValidationError(errors.ErrCodeEmptyCV, "O currículo está vazio", nil))
		return
	}
	role, err := phase.ValidateTargetRole(req.TargetRole)
	if err != nil {
		s.writePortError(w, span, nil, err)
		return
	}
	objective := strings.TrimSpace(req.Objective)
	if objective == "" {
		objective = phase.DefaultObjective
	}

	span.SetAttributes(
		attribute.Int("request.cv_length", len(req.CV)),
		attribute.String("request.role", role),
		attribute.Bool("request.job_description", req.JobDescription != ""),
	)

	counters := telemetry.NewCounters()
	result := s.Router.Scorer().Score(ctx, s.Router.Caller(counters, oneShotSession), ats.Request{
		CVText:     req.CV,
		TargetRole: role,
		Objective:  objective,
		JobText:    req.JobDescription,
		Tag:        telemetry.TagOther,
	})
	s.Metrics.ATSScored(ctx, "oneshot", result.ScoreTotal, string(result.Details.Method))

	writeJSON(w, http.StatusOK, map[string]any{
		"result":    result,
		"telemetry": counters.Snapshot(),
	})
}

// salaryHandler checks an expectation against the band of a role
func (s *Server) salaryHandler(w http.ResponseWriter, r *http.Request) {
	_, span := s.tracer.Start(r.Context(), "api.salary")
	defer span.End()

	var req SalaryRequest
	if err := parseJSONRequest(r, &req); err != nil {
		s.writePortError(w, span, nil, err)
		return
	}
	role, err := phase.ValidateTargetRole(req.Role)
	if err != nil {
		s.writePortError(w, span, nil, err)
		return
	}
	if _, err := salary.ParseExpectation(req.Expectation); err != nil {
		s.writePortError(w, span, nil, err)
		return
	}

	profile := &types.Profile{TargetRole: role, Location: req.Location, Remote: req.Remote}
	result := salary.Validate(req.Expectation, role, req.Location, profile)
	span.SetAttributes(attribute.String("salary.level", string(result.Level)))
	writeJSON(w, http.StatusOK, result)
}
