package optimizer

import (
	"context"
	"fmt"
	"strings"

	"cvcoach/internal/ai"
	"cvcoach/internal/config"
	"cvcoach/internal/errors"
	"cvcoach/internal/questions"
	"cvcoach/internal/resume"
	"cvcoach/internal/session"
	"cvcoach/internal/telemetry"
)

// maxRendersPerTick bounds the render chain of a single tick
const maxRendersPerTick = 16

// Settings tune the conversation
type Settings struct {
	MinCollectionAnswers int
	DeepDiveMaxQuestions int
	MaxSEOKeywords       int
}

// DefaultSettings mirror the session defaults
func DefaultSettings() Settings {
	return Settings{MinCollectionAnswers: 4, DeepDiveMaxQuestions: 10, MaxSEOKeywords: 5}
}

// SettingsFrom reads the optimizer knobs of the session config
func SettingsFrom(cfg config.SessionConfig) Settings {
	s := DefaultSettings()
	if cfg.MinCollectionAnswers > 0 {
		s.MinCollectionAnswers = cfg.MinCollectionAnswers
	}
	if cfg.DeepDiveMaxQuestions > 0 {
		s.DeepDiveMaxQuestions = cfg.DeepDiveMaxQuestions
	}
	if cfg.MaxSEOKeywords > 0 {
		s.MaxSEOKeywords = cfg.MaxSEOKeywords
	}
	return s
}

// Step is what a handler wants done. Call runs first; Apply only runs once
// Call succeeded, so a failed call leaves the session untouched.
type Step struct {
	Call  func(ctx context.Context, caller *telemetry.Caller) (string, error)
	Apply func(reply string) error
	Next  string
}

type (
	renderHandler func(e *Engine, s *session.Session, n int) (Step, error)
	inputHandler  func(e *Engine, s *session.Session, n int, input string) (Step, error)
)

// Result reports what a tick did
type Result struct {
	Stage string   `json:"stage"`
	Trail []string `json:"trail"`
	Calls int      `json:"calls"`
	Done  bool     `json:"done"`
}

// Engine runs the optimizer state machine over a session
type Engine struct {
	settings  Settings
	questions *questions.Engine
	prompts   *config.PromptStore
	logger    *errors.Logger
	renders   map[string]renderHandler
	inputs    map[string]inputHandler
}

// New creates an Engine. prompts and logger may be nil.
func New(settings Settings, q *questions.Engine, prompts *config.PromptStore, logger *errors.Logger) *Engine {
	if logger == nil {
		logger = errors.Discard()
	}
	if q == nil {
		q = questions.NewEngine(prompts, logger)
	}
	e := &Engine{
		settings:  settings,
		questions: q,
		prompts:   prompts,
		logger:    logger,
	}
	e.renders = map[string]renderHandler{
		StageDiagnosis:         renderDiagnosis,
		StageGapItem:           renderGapItem,
		StageGapProbe:          renderGapProbe,
		StageDiagnosisSummary:  renderDiagnosisSummary,
		StageSEOIntro:          renderSEOIntro,
		StageSEOKeyword:        renderSEOKeyword,
		StageSEOSummary:        renderSEOSummary,
		StageFocusedCollection: renderFocusedCollection,
		StageCheckpoint1:       renderCheckpoint,
		stageRewriteExpPrefix:  renderRewriteExp,
		StageRewriteFinal:      renderRewriteFinal,
		StageLinkedIn:          renderHeadlines,
		StageLinkedInSkills:    renderSkills,
		StageLinkedInAbout:     renderAbout,
		StageExport:            renderExport,
	}
	e.inputs = map[string]inputHandler{
		AwaitGapResponse:       inputGapResponse,
		AwaitGapProbeResponse:  inputGapProbe,
		AwaitDiagnosisOK:       proceed(StageSEOIntro),
		AwaitSEOStart:          proceed(StageSEOKeyword),
		AwaitSEOResp:           inputSEOResponse,
		AwaitSEOOK:             proceed(StageFocusedCollection),
		AwaitCollectionData:    inputCollection,
		AwaitValidationOK:      inputValidation,
		awaitApprovalExpPrefix: inputApprovalExp,
		AwaitContinueCP2:       approveOrAdjust(StageRewriteFinal, StageLinkedIn),
		AwaitHeadlineChoice:    inputHeadlineChoice,
		AwaitSkillsOK:          approveOrAdjust(StageLinkedInSkills, StageLinkedInAbout),
		AwaitAboutOK:           approveOrAdjust(StageLinkedInAbout, StageExport),
	}
	return e
}

// Start activates the optimizer on a session that finished the bridge phase
func (e *Engine) Start(s *session.Session) error {
	if !s.HasCV() {
		return errors.NewPreconditionError(errors.ErrCodeMissingCV, "Envie seu currículo antes de otimizar", nil)
	}
	if !s.HasProfile() {
		return errors.NewPreconditionError(errors.ErrCodeMissingProfile, "Complete o briefing antes de otimizar", nil)
	}
	s.ResetOptimizer()
	s.ModuleActive = session.ModuleOptimizer
	s.Stage = StageDiagnosis
	s.Optimizer.HistoryBase = make(map[string]int)
	for _, stage := range s.QAHistory.Stages() {
		s.Optimizer.HistoryBase[stage] = s.QAHistory.Len(stage)
	}
	s.StructuredCV = resume.New(s.TargetRole())
	s.StructuredCV.UpdateGaps(s.GapsTarget, nil, nil)
	return nil
}

// Active reports whether the optimizer owns the conversation
func Active(s *session.Session) bool { return s.ModuleActive == session.ModuleOptimizer }

// Tick renders any pending stage without consuming input. Ticking an
// AWAITING_* stage is a no-op.
func (e *Engine) Tick(ctx context.Context, s *session.Session, caller *telemetry.Caller) (Result, error) {
	if !Active(s) {
		return Result{}, errors.NewPreconditionError(errors.ErrCodeMissingOptimizer, "Otimizador não iniciado", nil)
	}
	res := Result{Stage: s.Stage}
	err := e.renderChain(ctx, s, caller, &res)
	return res, err
}

// Submit feeds the candidate's answer into the current AWAITING_* stage and
// renders whatever follows. When a render is still pending the input is not
// consumed and the pending render is retried instead.
func (e *Engine) Submit(ctx context.Context, s *session.Session, caller *telemetry.Caller, input string) (Result, error) {
	if !Active(s) {
		return Result{}, errors.NewPreconditionError(errors.ErrCodeMissingOptimizer, "Otimizador não iniciado", nil)
	}
	res := Result{Stage: s.Stage}
	if !IsAwaiting(s.Stage) {
		err := e.renderChain(ctx, s, caller, &res)
		return res, err
	}

	input = strings.TrimSpace(input)
	if input == "" {
		return res, errors.NewValidationError(errors.ErrCodeEmptyAnswer, "A resposta não pode ficar vazia", nil).
			WithContext("stage", s.Stage)
	}

	key, n := splitIndexed(s.Stage)
	handler, ok := e.inputs[key]
	if !ok {
		return res, errors.NewInternalError(errors.ErrCodeInternal, "no input handler for stage", nil).
			WithContext("stage", s.Stage)
	}
	step, err := handler(e, s, n, input)
	if err != nil {
		return res, err
	}
	if err := e.run(ctx, s, caller, step, &res); err != nil {
		return res, err
	}

	err = e.renderChain(ctx, s, caller, &res)
	return res, err
}

func (e *Engine) renderChain(ctx context.Context, s *session.Session, caller *telemetry.Caller, res *Result) error {
	for i := 0; i < maxRendersPerTick && IsRender(s.Stage); i++ {
		key := e.triggerKey(s)
		if s.Optimizer.Triggered[key] {
			e.logger.Debug("Stage already rendered", "session_id", s.ID, "stage", s.Stage)
			break
		}
		prefix, n := splitIndexed(s.Stage)
		handler, ok := e.renders[prefix]
		if !ok {
			return errors.NewInternalError(errors.ErrCodeInternal, "no render handler for stage", nil).
				WithContext("stage", s.Stage)
		}
		step, err := handler(e, s, n)
		if err != nil {
			return err
		}
		if err := e.run(ctx, s, caller, step, res); err != nil {
			return err
		}
		if s.Optimizer.Triggered == nil {
			s.Optimizer.Triggered = make(map[string]bool)
		}
		s.Optimizer.Triggered[key] = true
		s.Optimizer.Feedback = ""
	}
	if s.Stage == StageDone {
		s.Optimizer.Done = true
		res.Done = true
	}
	res.Stage = s.Stage
	return nil
}

func (e *Engine) run(ctx context.Context, s *session.Session, caller *telemetry.Caller, step Step, res *Result) error {
	var reply string
	if step.Call != nil {
		if caller == nil {
			return errors.NewInternalError(errors.ErrCodeInternal, "no model caller configured", nil)
		}
		text, err := step.Call(ctx, caller)
		res.Calls++
		if err != nil {
			s.LastError = err.Error()
			e.logger.LogError(err, "Optimizer stage failed", "session_id", s.ID, "stage", s.Stage)
			return err
		}
		reply = strings.TrimSpace(text)
		if reply == "" {
			err := errors.NewAIError(errors.ErrCodeAIEmptyResponse, "O modelo retornou uma resposta vazia", nil).
				WithContext("stage", s.Stage)
			s.LastError = err.Error()
			e.logger.LogError(err, "Optimizer stage failed", "session_id", s.ID, "stage", s.Stage)
			return err
		}
	}
	if step.Apply != nil {
		if err := step.Apply(reply); err != nil {
			return err
		}
	}
	if step.Next != "" && step.Next != s.Stage {
		e.logger.Debug("Optimizer transition", "session_id", s.ID, "from", s.Stage, "to", step.Next)
		s.Stage = step.Next
		res.Trail = append(res.Trail, step.Next)
	}
	s.LastError = ""
	return nil
}

// triggerKey identifies one rendering of a stage. Stages that repeat per
// item carry the item index so each item renders once.
func (e *Engine) triggerKey(s *session.Session) string {
	index := 0
	switch s.Stage {
	case StageGapItem, StageGapProbe:
		index = s.Optimizer.GapIndex
	case StageSEOKeyword:
		index = s.Optimizer.SEOIndex
	case StageFocusedCollection:
		index = s.QAHistory.Len(StageFocusedCollection)
	}
	return renderKey(s.Stage, index)
}

func renderKey(stage string, index int) string { return fmt.Sprintf("%s#%d", stage, index) }

// adjust records feedback on a rendered stage and schedules it again
func adjust(s *session.Session, stage, feedback string) Step {
	return Step{
		Apply: func(string) error {
			s.QAHistory.Append(stage, s.LastAssistantMessage(), feedback)
			s.Note(fmt.Sprintf("Ajuste pedido pelo candidato em %s: %s", stage, feedback))
			s.Optimizer.Feedback = feedback
			delete(s.Optimizer.Triggered, renderKey(stage, 0))
			return nil
		},
		Next: stage,
	}
}

// proceed accepts an approval word and moves to next
func proceed(next string) inputHandler {
	return func(_ *Engine, _ *session.Session, _ int, input string) (Step, error) {
		if !IsApproval(input) {
			return Step{}, errors.NewValidationError(errors.ErrCodeInvalidRequest,
				"Digite *continuar* para seguir", nil)
		}
		return Step{Next: next}, nil
	}
}

// approveOrAdjust moves to next on approval and re-renders stage with the
// candidate's feedback otherwise
func approveOrAdjust(stage, next string) inputHandler {
	return func(_ *Engine, s *session.Session, _ int, input string) (Step, error) {
		if IsApproval(input) {
			return Step{Next: next}, nil
		}
		return adjust(s, stage, input), nil
	}
}

// ask sends the persona plus prompt under tag
func (e *Engine) ask(tag telemetry.Tag, prompt string, opts ...ai.CallOption) func(context.Context, *telemetry.Caller) (string, error) {
	messages := []ai.Message{ai.PersonaMessage(e.prompts), ai.User(prompt)}
	return func(ctx context.Context, caller *telemetry.Caller) (string, error) {
		return caller.Call(ctx, tag, messages, opts...)
	}
}

// question asks the question engine
func (e *Engine) question(s *session.Session, req questions.Request) func(context.Context, *telemetry.Caller) (string, error) {
	return func(ctx context.Context, caller *telemetry.Caller) (string, error) {
		return e.questions.NextQuestion(ctx, caller, s, req)
	}
}

// feedbackBlock renders pending candidate feedback for a prompt
func feedbackBlock(s *session.Session) string {
	if s.Optimizer.Feedback == "" {
		return ""
	}
	return "\n\nAJUSTES PEDIDOS PELO CANDIDATO (aplique-os):\n" + s.Optimizer.Feedback
}
