// Package phase is the top-level state machine of a coaching session. Each
// port locks the session, runs the handler of the current phase and
// returns a client snapshot.
package phase

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"cvcoach/internal/ai"
	"cvcoach/internal/ats"
	"cvcoach/internal/config"
	"cvcoach/internal/cvcache"
	"cvcoach/internal/errors"
	"cvcoach/internal/optimizer"
	"cvcoach/internal/questions"
	"cvcoach/internal/session"
	"cvcoach/internal/telemetry"
)

// DefaultObjective is assumed when the briefing leaves the objective blank
const DefaultObjective = "Recolocação no Mercado"

// maxRendersPerTick bounds automatic phase advancement within one tick
const maxRendersPerTick = 8

// Deps wires the router. Only Client is required; the rest default from
// Session and Prompts.
type Deps struct {
	Store     *session.Store
	Client    ai.Completer
	Scorer    *ats.Scorer
	Cache     *cvcache.Cache
	Optimizer *optimizer.Engine
	Prompts   *config.PromptStore
	Session   config.SessionConfig
	Recorder  telemetry.Recorder
	Events    Events
	Logger    *errors.Logger
}

// Events receives business events for metrics
type Events interface {
	SessionCreated(ctx context.Context)
	PhaseEntered(ctx context.Context, phase string)
	ATSScored(ctx context.Context, moment string, score int, method string)
	OptimizerDone(ctx context.Context)
}

type noEvents struct{}

func (noEvents) SessionCreated(context.Context) {}
func (noEvents) PhaseEntered(context.Context, string) {}
func (noEvents) ATSScored(context.Context, string, int, string) {}
func (noEvents) OptimizerDone(context.Context) {}

// Redirect is returned when a phase precondition is unmet
type Redirect struct {
	From    session.Phase `json:"from"`
	To      session.Phase `json:"to"`
	Code    string        `json:"code"`
	Message string        `json:"message"`
}

// Outcome is what every port returns
type Outcome struct {
	Session   session.View      `json:"session"`
	Redirect  *Redirect         `json:"redirect,omitempty"`
	Optimizer *optimizer.Result `json:"optimizer,omitempty"`
}

// Briefing is the candidate's answer to the briefing form
type Briefing struct {
	Objective         string `json:"objective"`
	TargetRole        string `json:"targetRole"`
	SalaryExpectation string `json:"salaryExpectation"`
	Location          string `json:"location"`
	Remote            bool   `json:"remote"`
	CompanySize       string `json:"companySize,omitempty"`
}

type renderFunc func(r *Router, ctx context.Context, s *session.Session, t *tick) error

// tick carries per-call state through the handlers
type tick struct {
	caller    *telemetry.Caller
	redirect  *Redirect
	optimizer *optimizer.Result
}

// Router dispatches ports to phase handlers
type Router struct {
	store     *session.Store
	client    ai.Completer
	scorer    *ats.Scorer
	cache     *cvcache.Cache
	optimizer *optimizer.Engine
	prompts   *config.PromptStore
	cfg       config.SessionConfig
	recorder  telemetry.Recorder
	events    Events
	logger    *errors.Logger
	renders   map[session.Phase]renderFunc
}

// NewRouter creates a Router
func NewRouter(d Deps) *Router {
	if d.Logger == nil {
		d.Logger = errors.Discard()
	}
	if d.Store == nil {
		d.Store = session.NewStore(d.Session.IdleTTL, 0, d.Logger)
	}
	if d.Scorer == nil {
		d.Scorer = ats.NewScorer(d.Prompts, d.Logger, d.Session.ScoreCacheSize)
	}
	if d.Cache == nil {
		d.Cache = cvcache.New(d.Prompts, d.Logger)
	}
	if d.Optimizer == nil {
		d.Optimizer = optimizer.New(optimizer.SettingsFrom(d.Session),
			questions.NewEngine(d.Prompts, d.Logger), d.Prompts, d.Logger)
	}
	if d.Events == nil {
		d.Events = noEvents{}
	}
	if strings.TrimSpace(d.Session.DefaultObjective) == "" {
		d.Session.DefaultObjective = DefaultObjective
	}

	r := &Router{
		store:     d.Store,
		client:    d.Client,
		scorer:    d.Scorer,
		cache:     d.Cache,
		optimizer: d.Optimizer,
		prompts:   d.Prompts,
		cfg:       d.Session,
		recorder:  d.Recorder,
		events:    d.Events,
		logger:    d.Logger,
	}
	r.renders = map[session.Phase]renderFunc{
		session.PhaseIntro:           renderStatic(introMessage),
		session.PhaseUpload:          renderStatic(uploadMessage),
		session.PhaseDiagnosis:       renderDiagnosis,
		session.PhaseBriefing:        renderStatic(briefingMessage),
		session.PhaseReality:         renderReality,
		session.PhaseAnalysisLoading: renderAnalysisLoading,
		session.PhaseBridge:          renderBridge,
		session.PhaseChat:            renderChat,
		session.PhaseValidationScore: renderValidationScore,
		session.PhaseExports:         renderExports,
		session.PhaseHelp:            renderStatic(helpMessage),
		session.PhasePrivacy:         renderStatic(privacyMessage),
	}
	return r
}

// Store exposes the session store
func (r *Router) Store() *session.Store { return r.store }

// Scorer exposes the shared ATS scorer
func (r *Router) Scorer() *ats.Scorer { return r.scorer }

// Caller builds a telemetry-aware caller bound to counters
func (r *Router) Caller(counters *telemetry.Counters, sessionID string) *telemetry.Caller {
	opts := []telemetry.CallerOption{telemetry.WithLogger(r.logger)}
	if r.recorder != nil {
		opts = append(opts, telemetry.WithRecorder(r.recorder, sessionID))
	}
	return telemetry.NewCaller(r.client, counters, opts...)
}

// Create starts a new session and renders its intro
func (r *Router) Create(ctx context.Context) (*Outcome, error) {
	s := r.store.Create()
	r.events.SessionCreated(ctx)
	r.logger.Info("Session created", "session_id", s.ID)
	return r.with(ctx, s.ID, func(ctx context.Context, s *session.Session, t *tick) error {
		return r.render(ctx, s, t)
	})
}

// Get returns the snapshot of a session
func (r *Router) Get(id string) (session.View, error) {
	s, err := r.store.Get(id)
	if err != nil {
		return session.View{}, err
	}
	s.Lock()
	defer s.Unlock()
	return s.View(), nil
}

// Telemetry returns the LLM call counters of a session
func (r *Router) Telemetry(id string) (telemetry.Snapshot, error) {
	s, err := r.store.Get(id)
	if err != nil {
		return telemetry.Snapshot{}, err
	}
	return s.Telemetry.Snapshot(), nil
}

// SubmitCV stores a new CV, runs the deep scan and the initial ATS score
func (r *Router) SubmitCV(ctx context.Context, id, raw string) (*Outcome, error) {
	return r.with(ctx, id, func(ctx context.Context, s *session.Session, t *tick) error {
		if err := r.submitCV(ctx, s, t, raw); err != nil {
			return err
		}
		return r.render(ctx, s, t)
	})
}

// SubmitBriefing validates and stores the candidate profile
func (r *Router) SubmitBriefing(ctx context.Context, id string, b Briefing) (*Outcome, error) {
	return r.with(ctx, id, func(ctx context.Context, s *session.Session, t *tick) error {
		if r.checkPreconditions(s, session.PhaseBriefing, t) {
			return r.render(ctx, s, t)
		}
		if err := r.applyBriefing(s, b); err != nil {
			return err
		}
		s.Enter(session.PhaseReality)
		return r.render(ctx, s, t)
	})
}

// SubmitChat feeds a candidate message to the current phase
func (r *Router) SubmitChat(ctx context.Context, id, message string) (*Outcome, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, errors.NewValidationError(errors.ErrCodeEmptyAnswer, "A mensagem não pode ficar vazia", nil)
	}
	if limit := r.cfg.MaxChatMessageLength; limit > 0 && utf8.RuneCountInString(message) > limit {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"Mensagem muito longa", nil).WithContext("limit", limit)
	}

	return r.with(ctx, id, func(ctx context.Context, s *session.Session, t *tick) error {
		if r.checkPreconditions(s, s.Phase, t) {
			return r.render(ctx, s, t)
		}
		at, phase := len(s.Messages), s.Phase
		if err := r.chat(ctx, s, t, message); err != nil {
			return err
		}
		insertUserMessage(s, at, phase, message)
		return r.render(ctx, s, t)
	})
}

// Navigate moves the session to an explicit phase
func (r *Router) Navigate(ctx context.Context, id, target string) (*Outcome, error) {
	p, err := session.ParsePhase(target)
	if err != nil {
		return nil, err
	}
	return r.with(ctx, id, func(ctx context.Context, s *session.Session, t *tick) error {
		if !r.checkPreconditions(s, p, t) {
			s.Enter(p)
		}
		return r.render(ctx, s, t)
	})
}

// Reset clears the session and returns to the intro
func (r *Router) Reset(ctx context.Context, id string) (*Outcome, error) {
	return r.with(ctx, id, func(ctx context.Context, s *session.Session, t *tick) error {
		s.Reset()
		r.logger.Info("Session reset", "session_id", s.ID)
		return r.render(ctx, s, t)
	})
}

// Tick re-renders the current phase, retrying whatever failed last time
func (r *Router) Tick(ctx context.Context, id string) (*Outcome, error) {
	return r.with(ctx, id, func(ctx context.Context, s *session.Session, t *tick) error {
		if r.checkPreconditions(s, s.Phase, t) {
			return r.render(ctx, s, t)
		}
		if s.Phase == session.PhaseChat && optimizer.Active(s) {
			res, err := r.optimizer.Tick(ctx, s, t.caller)
			t.optimizer = &res
			if err != nil {
				return err
			}
			if res.Done {
				r.optimizerDone(ctx, s)
			}
		}
		return r.render(ctx, s, t)
	})
}

// with locks the session, runs fn and builds the outcome. The snapshot is
// returned even when fn fails so clients can show LastError.
func (r *Router) with(ctx context.Context, id string, fn func(context.Context, *session.Session, *tick) error) (*Outcome, error) {
	s, err := r.store.Get(id)
	if err != nil {
		return nil, err
	}
	s.Lock()
	defer s.Unlock()

	start := time.Now()
	t := &tick{caller: r.Caller(s.Telemetry, s.ID)}
	err = fn(ctx, s, t)
	if !s.Phase.Valid() {
		r.logger.Error("Phase left the enumerated set", "session_id", s.ID, "phase", string(s.Phase))
		s.Phase = session.PhaseIntro
	}
	switch {
	case err == nil:
		s.LastError = ""
	case !errors.IsType(err, errors.ErrorTypeValidation):
		s.LastError = userMessage(err)
		r.logger.LogError(err, "Tick failed", "session_id", s.ID, "phase", string(s.Phase))
	}
	s.Touch()
	r.events.PhaseEntered(ctx, string(s.Phase))
	r.logger.Debug("Tick finished", "session_id", s.ID, "phase", string(s.Phase), "duration", time.Since(start))

	return &Outcome{Session: s.View(), Redirect: t.redirect, Optimizer: t.optimizer}, err
}

// render runs the on-entry handler of the current phase, following
// automatic advances
func (r *Router) render(ctx context.Context, s *session.Session, t *tick) error {
	for i := 0; i < maxRendersPerTick; i++ {
		p := s.Phase
		if s.Rendered[p] {
			return nil
		}
		if r.checkPreconditions(s, p, t) {
			continue
		}
		handler, ok := r.renders[p]
		if !ok {
			return errors.NewInternalError(errors.ErrCodeUnknownPhase, "no handler for phase", nil).
				WithContext("phase", string(p))
		}
		if err := handler(r, ctx, s, t); err != nil {
			return err
		}
		if s.Rendered == nil {
			s.Rendered = make(map[session.Phase]bool)
		}
		s.Rendered[p] = true
		if s.Phase == p {
			return nil
		}
	}
	return nil
}

// userMessage is the Portuguese text stored in LastError
func userMessage(err error) string {
	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		switch appErr.Type {
		case errors.ErrorTypeTimeout:
			return "O modelo demorou demais para responder. Tente novamente."
		case errors.ErrorTypeRateLimit:
			return "Muitas requisições ao modelo. Aguarde um instante e tente novamente."
		case errors.ErrorTypePrecondition:
			return appErr.Message
		}
	}
	return "Algo deu errado. Tente novamente."
}

func insertUserMessage(s *session.Session, at int, phase session.Phase, content string) {
	msg := session.Message{
		Role:       ai.RoleUser,
		Content:    content,
		Visibility: session.Visible,
		Phase:      phase,
		CreatedAt:  time.Now(),
	}
	if at > len(s.Messages) {
		at = len(s.Messages)
	}
	s.Messages = append(s.Messages, session.Message{})
	copy(s.Messages[at+1:], s.Messages[at:])
	s.Messages[at] = msg
}
