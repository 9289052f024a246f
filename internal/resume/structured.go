// Package resume holds the typed accumulator the optimizer fills while it
// talks to the candidate, plus the per-stage question/answer history.
package resume

import (
	"fmt"
	"strings"

	"cvcoach/internal/utils"
)

// EmptyContextPlaceholder is returned by ContextForPrompt before anything was collected
const EmptyContextPlaceholder = "[Nenhum dado estruturado coletado ainda]"

const groundingInstruction = "IMPORTANTE: use SOMENTE os dados acima. Nunca invente empresas, cargos, datas, números ou ferramentas."

// Positioning is the strategic framing of the candidate
type Positioning struct {
	TargetRole     string `json:"targetRole"`
	Strategy       string `json:"strategy"`
	Seniority      string `json:"seniority"`
	Differentiator string `json:"differentiator"`
}

func (p Positioning) empty() bool {
	return p.TargetRole == "" && p.Strategy == "" && p.Seniority == "" && p.Differentiator == ""
}

// Experience is one job, with its rewritten text once approved
type Experience struct {
	Role         string   `json:"role"`
	Company      string   `json:"company"`
	Period       string   `json:"period"`
	Achievements []string `json:"achievements"`
	Rewritten    string   `json:"rewritten,omitempty"`
}

// Title renders "Role | Company | Period" skipping blanks
func (e Experience) Title() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{e.Role, e.Company, e.Period} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " | ")
}

// LinkedIn holds the generated profile assets
type LinkedIn struct {
	Headline        string   `json:"headline"`
	HeadlineOptions []string `json:"headlineOptions"`
	Skills          []string `json:"skills"`
	About           string   `json:"about"`
}

// Gaps tracks what the target role expects and what the candidate could cover
type Gaps struct {
	Identified []string `json:"identified"`
	Resolved   []string `json:"resolved"`
	Unresolved []string `json:"unresolved"`
}

// MetricKind selects a CollectedMetrics bucket
type MetricKind string

const (
	MetricVolume MetricKind = "volumes"
	MetricTool   MetricKind = "tools"
	MetricResult MetricKind = "results"
	MetricTeam   MetricKind = "team"
)

// CollectedMetrics are the facts gathered during the deep-dive
type CollectedMetrics struct {
	Volumes []string `json:"volumes"`
	Tools   []string `json:"tools"`
	Results []string `json:"results"`
	Team    []string `json:"team"`
}

func (m CollectedMetrics) empty() bool {
	return len(m.Volumes) == 0 && len(m.Tools) == 0 && len(m.Results) == 0 && len(m.Team) == 0
}

// StructuredCV accumulates everything the optimizer learns. Mutators are
// additive except UpdatePositioning, UpdateLinkedIn and UpdateGaps, which
// overwrite the fields they are given.
type StructuredCV struct {
	Header           string           `json:"header"`
	Positioning      Positioning      `json:"positioning"`
	Summary          string           `json:"summary"`
	ATSKeywords      []string         `json:"atsKeywords"`
	Experiences      []Experience     `json:"experiences"`
	Education        []string         `json:"education"`
	Languages        []string         `json:"languages"`
	Certifications   []string         `json:"certifications"`
	LinkedIn         LinkedIn         `json:"linkedin"`
	Gaps             Gaps             `json:"gaps"`
	CollectedMetrics CollectedMetrics `json:"collectedMetrics"`
}

// New returns an empty record positioned for targetRole
func New(targetRole string) *StructuredCV {
	return &StructuredCV{
		Positioning: Positioning{TargetRole: strings.TrimSpace(targetRole)},
	}
}

// SetHeader stores the contact/name header once
func (s *StructuredCV) SetHeader(header string) {
	if header = strings.TrimSpace(header); header != "" && s.Header == "" {
		s.Header = header
	}
}

// SetSummary stores the professional summary when none exists yet
func (s *StructuredCV) SetSummary(summary string) {
	if summary = strings.TrimSpace(summary); summary != "" && s.Summary == "" {
		s.Summary = summary
	}
}

// UpdatePositioning overwrites the non-empty fields of p
func (s *StructuredCV) UpdatePositioning(p Positioning) {
	if p.TargetRole != "" {
		s.Positioning.TargetRole = p.TargetRole
	}
	if p.Strategy != "" {
		s.Positioning.Strategy = p.Strategy
	}
	if p.Seniority != "" {
		s.Positioning.Seniority = p.Seniority
	}
	if p.Differentiator != "" {
		s.Positioning.Differentiator = p.Differentiator
	}
}

// UpdateLinkedIn overwrites the non-empty fields of l
func (s *StructuredCV) UpdateLinkedIn(l LinkedIn) {
	if l.Headline != "" {
		s.LinkedIn.Headline = l.Headline
	}
	if len(l.HeadlineOptions) > 0 {
		s.LinkedIn.HeadlineOptions = append([]string(nil), l.HeadlineOptions...)
	}
	if len(l.Skills) > 0 {
		s.LinkedIn.Skills = utils.Dedupe(l.Skills)
	}
	if l.About != "" {
		s.LinkedIn.About = l.About
	}
}

// UpdateGaps overwrites the gap lists; nil arguments leave a list untouched
func (s *StructuredCV) UpdateGaps(identified, resolved, unresolved []string) {
	if identified != nil {
		s.Gaps.Identified = utils.Dedupe(identified)
	}
	if resolved != nil {
		s.Gaps.Resolved = utils.Dedupe(resolved)
	}
	if unresolved != nil {
		s.Gaps.Unresolved = utils.Dedupe(unresolved)
	}
}

// ClearConsolidated drops the experiences, metrics, positioning and
// credentials so a new validation checkpoint replaces them
func (s *StructuredCV) ClearConsolidated() {
	s.Positioning = Positioning{TargetRole: s.Positioning.TargetRole}
	s.Experiences = nil
	s.Education = nil
	s.Languages = nil
	s.Certifications = nil
	s.CollectedMetrics = CollectedMetrics{}
}

// AddATSKeywords appends keywords not already present
func (s *StructuredCV) AddATSKeywords(keywords ...string) {
	s.ATSKeywords = utils.Dedupe(append(s.ATSKeywords, keywords...))
}

// AddExperience appends a job and returns its index. A job with the same
// title is merged into the existing entry.
func (s *StructuredCV) AddExperience(e Experience) int {
	key := utils.Fold(e.Title())
	for i := range s.Experiences {
		if key != "" && utils.Fold(s.Experiences[i].Title()) == key {
			existing := &s.Experiences[i]
			existing.Achievements = utils.Dedupe(append(existing.Achievements, e.Achievements...))
			return i
		}
	}
	e.Achievements = utils.Dedupe(e.Achievements)
	s.Experiences = append(s.Experiences, e)
	return len(s.Experiences) - 1
}

// AddAchievement appends an achievement to experience i
func (s *StructuredCV) AddAchievement(i int, achievement string) bool {
	if i < 0 || i >= len(s.Experiences) || strings.TrimSpace(achievement) == "" {
		return false
	}
	exp := &s.Experiences[i]
	exp.Achievements = utils.Dedupe(append(exp.Achievements, achievement))
	return true
}

// RecordRewrite stores the approved rewrite of experience i
func (s *StructuredCV) RecordRewrite(i int, text string) bool {
	if i < 0 || i >= len(s.Experiences) {
		return false
	}
	s.Experiences[i].Rewritten = strings.TrimSpace(text)
	return true
}

// AddEducation appends education entries
func (s *StructuredCV) AddEducation(items ...string) {
	s.Education = utils.Dedupe(append(s.Education, items...))
}

// AddLanguages appends languages
func (s *StructuredCV) AddLanguages(items ...string) {
	s.Languages = utils.Dedupe(append(s.Languages, items...))
}

// AddCertifications appends certifications
func (s *StructuredCV) AddCertifications(items ...string) {
	s.Certifications = utils.Dedupe(append(s.Certifications, items...))
}

// AddMetric appends value to the bucket of kind
func (s *StructuredCV) AddMetric(kind MetricKind, value string) {
	m := &s.CollectedMetrics
	switch kind {
	case MetricVolume:
		m.Volumes = utils.Dedupe(append(m.Volumes, value))
	case MetricTool:
		m.Tools = utils.Dedupe(append(m.Tools, value))
	case MetricResult:
		m.Results = utils.Dedupe(append(m.Results, value))
	case MetricTeam:
		m.Team = utils.Dedupe(append(m.Team, value))
	}
}

// IsEmpty reports whether nothing has been collected beyond the target role
func (s *StructuredCV) IsEmpty() bool {
	if s == nil {
		return true
	}
	p := s.Positioning
	p.TargetRole = ""
	return s.Header == "" && p.empty() && s.Summary == "" && len(s.ATSKeywords) == 0 &&
		len(s.Experiences) == 0 && len(s.Education) == 0 && len(s.Languages) == 0 &&
		len(s.Certifications) == 0 && s.LinkedIn.Headline == "" && len(s.LinkedIn.Skills) == 0 &&
		s.LinkedIn.About == "" && len(s.Gaps.Identified) == 0 && len(s.Gaps.Resolved) == 0 &&
		len(s.Gaps.Unresolved) == 0 && s.CollectedMetrics.empty()
}

// ContextForPrompt serializes the non-empty parts in a fixed order and ends
// with the instruction not to invent data
func (s *StructuredCV) ContextForPrompt() string {
	if s.IsEmpty() {
		return EmptyContextPlaceholder
	}

	var b strings.Builder
	section := func(title string) {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "## %s\n", title)
	}
	list := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		section(title)
		for _, it := range items {
			fmt.Fprintf(&b, "- %s\n", it)
		}
	}

	if s.Header != "" {
		section("Cabeçalho")
		b.WriteString(s.Header + "\n")
	}
	if !s.Positioning.empty() {
		section("Posicionamento")
		writeField(&b, "Cargo alvo", s.Positioning.TargetRole)
		writeField(&b, "Estratégia", s.Positioning.Strategy)
		writeField(&b, "Senioridade", s.Positioning.Seniority)
		writeField(&b, "Diferencial", s.Positioning.Differentiator)
	}
	if s.Summary != "" {
		section("Resumo")
		b.WriteString(s.Summary + "\n")
	}
	list("Palavras-chave ATS", s.ATSKeywords)

	if len(s.Experiences) > 0 {
		section("Experiências")
		for i, e := range s.Experiences {
			fmt.Fprintf(&b, "%d. %s\n", i+1, e.Title())
			for _, a := range e.Achievements {
				fmt.Fprintf(&b, "   - %s\n", a)
			}
			if e.Rewritten != "" {
				fmt.Fprintf(&b, "   Versão aprovada:\n%s\n", indent(e.Rewritten, "   "))
			}
		}
	}
	list("Formação", s.Education)
	list("Idiomas", s.Languages)
	list("Certificações", s.Certifications)

	m := s.CollectedMetrics
	if !m.empty() {
		section("Dados coletados")
		writeList(&b, "Volumes", m.Volumes)
		writeList(&b, "Ferramentas", m.Tools)
		writeList(&b, "Resultados", m.Results)
		writeList(&b, "Equipe", m.Team)
	}

	g := s.Gaps
	if len(g.Identified)+len(g.Resolved)+len(g.Unresolved) > 0 {
		section("Gaps")
		writeList(&b, "Identificados", g.Identified)
		writeList(&b, "Resolvidos", g.Resolved)
		writeList(&b, "Não resolvidos", g.Unresolved)
	}

	l := s.LinkedIn
	if l.Headline != "" || len(l.Skills) > 0 || l.About != "" {
		section("LinkedIn")
		writeField(&b, "Headline", l.Headline)
		writeList(&b, "Competências", l.Skills)
		writeField(&b, "Sobre", l.About)
	}

	b.WriteString("\n" + groundingInstruction)
	return b.String()
}

// RenderText renders the optimized CV as plain text for export
func (s *StructuredCV) RenderText() string {
	if s == nil {
		return ""
	}
	var b strings.Builder
	block := func(title, body string) {
		body = strings.TrimSpace(body)
		if body == "" {
			return
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(strings.ToUpper(title) + "\n")
		b.WriteString(body + "\n")
	}

	if s.Header != "" {
		b.WriteString(s.Header + "\n")
	}
	if s.Positioning.TargetRole != "" {
		b.WriteString(s.Positioning.TargetRole + "\n")
	}
	block("Resumo profissional", s.Summary)
	if len(s.ATSKeywords) > 0 {
		block("Competências", strings.Join(s.ATSKeywords, " | "))
	}

	var exp strings.Builder
	for i, e := range s.Experiences {
		if i > 0 {
			exp.WriteString("\n")
		}
		if e.Rewritten != "" {
			exp.WriteString(e.Rewritten + "\n")
			continue
		}
		exp.WriteString(e.Title() + "\n")
		for _, a := range e.Achievements {
			exp.WriteString("• " + a + "\n")
		}
	}
	block("Experiência profissional", exp.String())
	block("Formação", bullets(s.Education))
	block("Certificações", bullets(s.Certifications))
	block("Idiomas", bullets(s.Languages))
	return strings.TrimSpace(b.String())
}

func writeField(b *strings.Builder, label, value string) {
	if value = strings.TrimSpace(value); value != "" {
		fmt.Fprintf(b, "%s: %s\n", label, value)
	}
}

func writeList(b *strings.Builder, label string, items []string) {
	if len(items) > 0 {
		fmt.Fprintf(b, "%s: %s\n", label, strings.Join(items, "; "))
	}
}

func bullets(items []string) string {
	var b strings.Builder
	for _, it := range items {
		b.WriteString("• " + it + "\n")
	}
	return b.String()
}

func indent(text, prefix string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
