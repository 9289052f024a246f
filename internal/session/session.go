// Package session holds the per-candidate conversation state. A Session is
// the single source of truth for one candidate; Store keeps the live ones.
package session

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"cvcoach/internal/ai"
	"cvcoach/internal/errors"
	"cvcoach/internal/resume"
	"cvcoach/internal/salary"
	"cvcoach/internal/telemetry"
	"cvcoach/internal/types"
)

// Phase is a top-level step of the conversation
type Phase string

const (
	PhaseIntro           Phase = "INTRO"
	PhaseUpload          Phase = "UPLOAD"
	PhaseDiagnosis       Phase = "DIAGNOSIS"
	PhaseBriefing        Phase = "BRIEFING"
	PhaseReality         Phase = "REALITY"
	PhaseAnalysisLoading Phase = "ANALYSIS_LOADING"
	PhaseBridge          Phase = "BRIDGE"
	PhaseChat            Phase = "CHAT"
	PhaseValidationScore Phase = "VALIDATION_SCORE"
	PhaseExports         Phase = "EXPORTS"
	PhaseHelp            Phase = "HELP"
	PhasePrivacy         Phase = "PRIVACY"
)

// Phases returns every phase in flow order, auxiliary pages last
func Phases() []Phase {
	return []Phase{
		PhaseIntro, PhaseUpload, PhaseDiagnosis, PhaseBriefing, PhaseReality,
		PhaseAnalysisLoading, PhaseBridge, PhaseChat, PhaseValidationScore, PhaseExports,
		PhaseHelp, PhasePrivacy,
	}
}

// Valid reports whether p is an enumerated phase
func (p Phase) Valid() bool {
	for _, known := range Phases() {
		if p == known {
			return true
		}
	}
	return false
}

// ParsePhase accepts a phase name in any case
func ParsePhase(s string) (Phase, error) {
	p := Phase(strings.ToUpper(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", errors.NewValidationError(errors.ErrCodeUnknownPhase,
			fmt.Sprintf("Fase desconhecida: %q", s), nil)
	}
	return p, nil
}

// ModuleOptimizer is the only sub-module of the CHAT phase
const ModuleOptimizer = "OPTIMIZER"

// Visibility tags a message as shown to the candidate or kept for the model only
type Visibility string

const (
	Visible  Visibility = "visible"
	Internal Visibility = "internal"
)

// Message is one conversation entry. The model sees every message; the
// candidate sees only Visible ones.
type Message struct {
	Role       ai.Role    `json:"role"`
	Content    string     `json:"content"`
	Visibility Visibility `json:"visibility"`
	Phase      Phase      `json:"phase"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// OptimizerState is the optimizer's cursor within its stages
type OptimizerState struct {
	GapIndex        int             `json:"gapIndex"`
	SEOKeywords     []string        `json:"seoKeywords"`
	SEOIndex        int             `json:"seoIndex"`
	ExperienceIndex int             `json:"experienceIndex"`
	Triggered       map[string]bool `json:"triggered"`
	PendingQuestion string          `json:"pendingQuestion"`
	ProbeFirstReply string          `json:"probeFirstReply,omitempty"`
	Feedback        string          `json:"feedback,omitempty"`
	LastEvasive     bool            `json:"lastEvasive"`
	Done            bool            `json:"done"`
	// HistoryBase is the QAHistory length of each stage when the run started
	HistoryBase map[string]int `json:"historyBase,omitempty"`
}

// Session is the state of one candidate
type Session struct {
	mu sync.Mutex

	ID                  string                       `json:"id"`
	Phase               Phase                        `json:"phase"`
	CVText              string                       `json:"cvText"`
	CVSummary           string                       `json:"cvSummary"`
	Profile             *types.Profile               `json:"profile"`
	AnalysisInitial     string                       `json:"analysisInitial"`
	Messages            []Message                    `json:"messages"`
	ModuleActive        string                       `json:"moduleActive"`
	Stage               string                       `json:"stage"`
	StructuredCV        *resume.StructuredCV         `json:"structuredCV"`
	QAHistory           *resume.QAHistory            `json:"-"`
	ATSInitial          *types.ATSResult             `json:"atsInitial"`
	ATSTarget           *types.ATSResult             `json:"atsTarget"`
	ATSFinal            *types.ATSResult             `json:"atsFinal"`
	Salary              *salary.Result               `json:"salary"`
	GapsTarget          []string                     `json:"gapsTarget"`
	GapResponses        map[string]types.GapResponse `json:"gapResponses"`
	SEOKeywordResponses map[string]string            `json:"seoKeywordResponses"`
	Telemetry           *telemetry.Counters          `json:"-"`
	Optimizer           OptimizerState               `json:"optimizer"`
	Rendered            map[Phase]bool               `json:"rendered"`
	LastError           string                       `json:"lastError,omitempty"`
	CreatedAt           time.Time                    `json:"createdAt"`
	UpdatedAt           time.Time                    `json:"updatedAt"`
}

// New creates a session at INTRO
func New(id string) *Session {
	now := time.Now()
	s := &Session{ID: id, CreatedAt: now}
	s.clear()
	s.UpdatedAt = now
	return s
}

func (s *Session) clear() {
	s.Phase = PhaseIntro
	s.CVText = ""
	s.CVSummary = ""
	s.Profile = nil
	s.AnalysisInitial = ""
	s.Messages = nil
	s.ModuleActive = ""
	s.Stage = ""
	s.StructuredCV = nil
	s.QAHistory = resume.NewQAHistory()
	s.ATSInitial = nil
	s.ATSTarget = nil
	s.ATSFinal = nil
	s.Salary = nil
	s.GapsTarget = nil
	s.GapResponses = make(map[string]types.GapResponse)
	s.SEOKeywordResponses = make(map[string]string)
	if s.Telemetry == nil {
		s.Telemetry = telemetry.NewCounters()
	} else {
		s.Telemetry.Reset()
	}
	s.Optimizer = OptimizerState{Triggered: make(map[string]bool)}
	s.Rendered = make(map[Phase]bool)
	s.LastError = ""
}

// Lock serializes ticks on the session
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the tick lock
func (s *Session) Unlock() { s.mu.Unlock() }

// Reset clears every key except the ID
func (s *Session) Reset() {
	s.clear()
	s.UpdatedAt = time.Now()
}

// Enter moves to phase and schedules its on-entry render
func (s *Session) Enter(p Phase) {
	s.Phase = p
	if s.Rendered == nil {
		s.Rendered = make(map[Phase]bool)
	}
	delete(s.Rendered, p)
}

// Touch updates the activity timestamp
func (s *Session) Touch() { s.UpdatedAt = time.Now() }

// SetCV stores a new CV. The cached summary and everything derived from the
// previous CV are dropped.
func (s *Session) SetCV(text string) {
	s.CVText = text
	s.CVSummary = ""
	s.AnalysisInitial = ""
	s.ATSInitial = nil
	s.ATSTarget = nil
	s.ATSFinal = nil
	s.GapsTarget = nil
	s.GapResponses = make(map[string]types.GapResponse)
	s.SEOKeywordResponses = make(map[string]string)
	s.StructuredCV = nil
	s.ModuleActive = ""
	s.Stage = ""
	s.Optimizer = OptimizerState{Triggered: make(map[string]bool)}
	s.Rendered = make(map[Phase]bool)
}

// HasCV reports whether a CV was uploaded
func (s *Session) HasCV() bool { return strings.TrimSpace(s.CVText) != "" }

// HasProfile reports whether the briefing was completed
func (s *Session) HasProfile() bool {
	return s.Profile != nil && strings.TrimSpace(s.Profile.TargetRole) != ""
}

// TargetRole returns the briefing role or ""
func (s *Session) TargetRole() string {
	if s.Profile == nil {
		return ""
	}
	return s.Profile.TargetRole
}

// Objective returns the briefing objective or fallback
func (s *Session) Objective(fallback string) string {
	if s.Profile == nil || strings.TrimSpace(s.Profile.Objective) == "" {
		return fallback
	}
	return s.Profile.Objective
}

// AddMessage appends a message tagged with the current phase
func (s *Session) AddMessage(role ai.Role, content string, vis Visibility) {
	s.Messages = append(s.Messages, Message{
		Role:       role,
		Content:    content,
		Visibility: vis,
		Phase:      s.Phase,
		CreatedAt:  time.Now(),
	})
}

// Say appends a visible assistant message
func (s *Session) Say(content string) { s.AddMessage(ai.RoleAssistant, content, Visible) }

// Note appends an internal assistant message
func (s *Session) Note(content string) { s.AddMessage(ai.RoleAssistant, content, Internal) }

// VisibleMessages returns the messages shown to the candidate
func (s *Session) VisibleMessages() []Message {
	out := make([]Message, 0, len(s.Messages))
	for _, m := range s.Messages {
		if m.Visibility == Visible {
			out = append(out, m)
		}
	}
	return out
}

// LastAssistantMessage returns the last visible assistant content
func (s *Session) LastAssistantMessage() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		m := s.Messages[i]
		if m.Role == ai.RoleAssistant && m.Visibility == Visible {
			return m.Content
		}
	}
	return ""
}

// ModelMessages converts every message, internal ones included, for the LLM
func (s *Session) ModelMessages() []ai.Message {
	out := make([]ai.Message, 0, len(s.Messages))
	for _, m := range s.Messages {
		out = append(out, ai.Message{Role: m.Role, Content: m.Content})
	}
	return out
}

// ResetOptimizer drops the optimizer run and the answers it collected.
// QAHistory is kept.
func (s *Session) ResetOptimizer() {
	s.ModuleActive = ""
	s.Stage = ""
	s.StructuredCV = nil
	s.GapResponses = make(map[string]types.GapResponse)
	s.SEOKeywordResponses = make(map[string]string)
	s.Optimizer = OptimizerState{Triggered: make(map[string]bool)}
}

// RunHistory returns the turns of stage recorded since the optimizer run
// started
func (s *Session) RunHistory(stage string) []resume.QAPair {
	pairs := s.QAHistory.Get(stage)
	base := s.Optimizer.HistoryBase[stage]
	if base > len(pairs) {
		return nil
	}
	return pairs[base:]
}

// RecordGapResponse stores the answer about gap
func (s *Session) RecordGapResponse(gap string, resp types.GapResponse) error {
	if !resp.Valid() {
		return errors.NewInternalError(errors.ErrCodeInternal,
			"gap response breaks the has_experience/response pairing", nil).WithContext("gap", gap)
	}
	if s.GapResponses == nil {
		s.GapResponses = make(map[string]types.GapResponse)
	}
	s.GapResponses[gap] = resp
	return nil
}

// View is the JSON-friendly snapshot returned to clients
type View struct {
	ID           string             `json:"id"`
	Phase        Phase              `json:"phase"`
	Stage        string             `json:"stage,omitempty"`
	ModuleActive string             `json:"moduleActive,omitempty"`
	HasCV        bool               `json:"hasCV"`
	Profile      *types.Profile     `json:"profile,omitempty"`
	Messages     []Message          `json:"messages"`
	ATSInitial   *types.ATSResult   `json:"atsInitial,omitempty"`
	ATSTarget    *types.ATSResult   `json:"atsTarget,omitempty"`
	ATSFinal     *types.ATSResult   `json:"atsFinal,omitempty"`
	Salary       *salary.Result     `json:"salary,omitempty"`
	GapsTarget   []string           `json:"gapsTarget,omitempty"`
	OptimizedCV  string             `json:"optimizedCV,omitempty"`
	LinkedIn     *resume.LinkedIn   `json:"linkedin,omitempty"`
	Telemetry    telemetry.Snapshot `json:"telemetry"`
	LastError    string             `json:"lastError,omitempty"`
	UpdatedAt    time.Time          `json:"updatedAt"`
}

// View builds the client snapshot with visible messages only
func (s *Session) View() View {
	v := View{
		ID:           s.ID,
		Phase:        s.Phase,
		Stage:        s.Stage,
		ModuleActive: s.ModuleActive,
		HasCV:        s.HasCV(),
		Profile:      s.Profile,
		Messages:     s.VisibleMessages(),
		ATSInitial:   s.ATSInitial,
		ATSTarget:    s.ATSTarget,
		ATSFinal:     s.ATSFinal,
		Salary:       s.Salary,
		GapsTarget:   s.GapsTarget,
		Telemetry:    s.Telemetry.Snapshot(),
		LastError:    s.LastError,
		UpdatedAt:    s.UpdatedAt,
	}
	if s.Phase == PhaseExports && s.StructuredCV != nil {
		v.OptimizedCV = s.StructuredCV.RenderText()
		li := s.StructuredCV.LinkedIn
		v.LinkedIn = &li
	}
	return v
}
