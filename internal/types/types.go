package types

import (
	"strings"
)

// ATSLevel is the qualitative band of an ATS score
type ATSLevel string

const (
	LevelExcellent        ATSLevel = "Excellent"
	LevelGood             ATSLevel = "Good"
	LevelFair             ATSLevel = "Fair"
	LevelNeedsImprovement ATSLevel = "Needs-Improvement"
)

// Label returns the Portuguese label shown to the candidate
func (l ATSLevel) Label() string {
	switch l {
	case LevelExcellent:
		return "Excelente"
	case LevelGood:
		return "Bom"
	case LevelFair:
		return "Regular"
	default:
		return "Precisa melhorar"
	}
}

// Scoring methods recorded in ATSDetails.Method
const (
	MethodLLM       = "llm"
	MethodHeuristic = "heuristic"
)

// ScoreBreakdown is the per-category heuristic score
type ScoreBreakdown struct {
	Sections   int `json:"sections"`   // 0-20
	Keywords   int `json:"keywords"`   // 0-30
	Metrics    int `json:"metrics"`    // 0-20
	Formatting int `json:"formatting"` // 0-15
	Length     int `json:"length"`     // 0-15
}

// Total sums the categories
func (b ScoreBreakdown) Total() int {
	return b.Sections + b.Keywords + b.Metrics + b.Formatting + b.Length
}

// ATSDetails carries scoring diagnostics
type ATSDetails struct {
	Method          string          `json:"method"`
	Archetype       string          `json:"archetype,omitempty"`
	Breakdown       *ScoreBreakdown `json:"breakdown,omitempty"`
	Words           int             `json:"words"`
	KeywordsMatched []string        `json:"keywordsMatched,omitempty"`
	KeywordsMissing []string        `json:"keywordsMissing,omitempty"`
	ParseError      string          `json:"parseError,omitempty"`
}

// ATSResult is the outcome of scoring a CV against a role
type ATSResult struct {
	ScoreTotal         int        `json:"scoreTotal"`
	Level              ATSLevel   `json:"level"`
	Percent            float64    `json:"percent"`
	RoleEvaluated      string     `json:"roleEvaluated"`
	Strengths          []string   `json:"strengths"`
	GapsIdentified     []string   `json:"gapsIdentified"`
	GapsFalselyIgnored []string   `json:"gapsFalselyIgnored"`
	ActionPlan         []string   `json:"actionPlan"`
	JDGenerated        bool       `json:"jdGenerated"`
	Details            ATSDetails `json:"details"`
}

// Profile is the candidate briefing
type Profile struct {
	Objective         string  `json:"objective"`
	TargetRole        string  `json:"targetRole"`
	SalaryExpectation string  `json:"salaryExpectation"`
	SalaryValue       float64 `json:"salaryValue"`
	Location          string  `json:"location"`
	Remote            bool    `json:"remote"`
	CompanySize       string  `json:"companySize,omitempty"`
	CurrentRole       string  `json:"currentRole,omitempty"`
}

// GapResponse is the candidate's answer about one gap. HasExperience is
// false exactly when Response is nil.
type GapResponse struct {
	HasExperience bool    `json:"hasExperience"`
	Response      *string `json:"response"`
}

// NoExperience records that the candidate lacks the gap
func NoExperience() GapResponse {
	return GapResponse{}
}

// WithExperience records a positive answer. Blank text degrades to NoExperience.
func WithExperience(text string) GapResponse {
	text = strings.TrimSpace(text)
	if text == "" {
		return NoExperience()
	}
	return GapResponse{HasExperience: true, Response: &text}
}

// Valid reports whether the record respects the HasExperience/Response pairing
func (g GapResponse) Valid() bool {
	if !g.HasExperience {
		return g.Response == nil
	}
	return g.Response != nil && strings.TrimSpace(*g.Response) != ""
}

// Text returns the response or an empty string
func (g GapResponse) Text() string {
	if g.Response == nil {
		return ""
	}
	return *g.Response
}
