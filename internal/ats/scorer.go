// Package ats scores a CV against a target role. The model path asks for a
// strict JSON envelope; the heuristic path is deterministic and always
// available as a fallback.
package ats

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"cvcoach/internal/ai"
	"cvcoach/internal/config"
	"cvcoach/internal/errors"
	"cvcoach/internal/market"
	"cvcoach/internal/telemetry"
	"cvcoach/internal/types"
	"cvcoach/internal/utils"
)

const (
	// scoringCVLimit bounds the CV characters sent to the model
	scoringCVLimit = 10000
	maxRoleLength  = 100
	defaultMemo    = 256
)

// Classify maps a score onto its level
func Classify(score int) types.ATSLevel {
	switch {
	case score >= 70:
		return types.LevelExcellent
	case score >= 50:
		return types.LevelGood
	case score >= 30:
		return types.LevelFair
	default:
		return types.LevelNeedsImprovement
	}
}

// Request is one scoring job
type Request struct {
	CVText      string
	TargetRole  string
	Objective   string
	CurrentRole string
	JobText     string
	// Tag is the telemetry bucket of the model call; it is not part of the prompt
	Tag telemetry.Tag
}

// Scorer runs the model path with heuristic fallback and memoises model
// results per prompt hash
type Scorer struct {
	prompts *config.PromptStore
	logger  *errors.Logger
	client  ai.Completer

	mu       sync.Mutex
	memo     map[string]types.ATSResult
	order    []string
	memoSize int
}

// NewScorer creates a Scorer. prompts may be nil; memoSize <= 0 uses the default.
func NewScorer(prompts *config.PromptStore, logger *errors.Logger, memoSize int) *Scorer {
	if logger == nil {
		logger = errors.Discard()
	}
	if memoSize <= 0 {
		memoSize = defaultMemo
	}
	return &Scorer{
		prompts:  prompts,
		logger:   logger,
		memo:     make(map[string]types.ATSResult),
		memoSize: memoSize,
	}
}

// UseClient routes scoring calls to client while keeping the caller's
// counters and audit recorder
func (s *Scorer) UseClient(client ai.Completer) *Scorer {
	s.client = client
	return s
}

// Score rates req.CVText against req.TargetRole. caller may be nil, in which
// case only the heuristic runs. The result is always within 0-100.
func (s *Scorer) Score(ctx context.Context, caller *telemetry.Caller, req Request) types.ATSResult {
	h := Heuristic(HeuristicInput{CVText: req.CVText, TargetRole: req.TargetRole, JobText: req.JobText})
	jdGenerated := strings.TrimSpace(req.JobText) == ""

	if caller == nil {
		return s.heuristicResult(req, h, jdGenerated, "")
	}

	prompt := s.buildPrompt(req, h.Area)
	key := promptKey(prompt)
	if cached, ok := s.lookup(key); ok {
		s.logger.Debug("ATS memo hit", "role", req.TargetRole)
		return cached
	}

	tag := req.Tag
	if tag == "" {
		tag = telemetry.TagDiagnosis
	}
	if s.client != nil {
		caller = caller.WithClient(s.client)
	}
	text, err := caller.Call(ctx, tag, []ai.Message{ai.User(prompt)}, ai.Deterministic())
	if err != nil {
		s.logger.LogError(err, "ATS model call failed, using heuristic", "role", req.TargetRole)
		return s.heuristicResult(req, h, jdGenerated, "")
	}

	env, err := ParseEnvelope(text)
	if err != nil {
		s.logger.LogError(err, "ATS response parse failed, using heuristic", "role", req.TargetRole)
		return s.heuristicResult(req, h, jdGenerated, err.Error())
	}

	result := s.modelResult(req, h, env, jdGenerated)
	s.store(key, result)
	return result
}

func (s *Scorer) modelResult(req Request, h HeuristicOutcome, env *Envelope, jdGenerated bool) types.ATSResult {
	score := env.Score.Int()
	gaps := FilterPlaceholders(env.GapsIdentified)
	gaps, dropped := FilterSeniorGaps(gaps, req.TargetRole, req.CVText)
	ignored := utils.Dedupe(append(append([]string(nil), env.GapsFalselyIgnored...), dropped...))

	breakdown := h.Breakdown
	archetype := strings.ToUpper(strings.TrimSpace(env.Archetype))
	if archetype == "" {
		archetype = archetypeFor(req.TargetRole, h.Area)
	}
	return types.ATSResult{
		ScoreTotal:         score,
		Level:              Classify(score),
		Percent:            float64(score),
		RoleEvaluated:      strings.TrimSpace(req.TargetRole),
		Strengths:          nonNil(utils.Dedupe(env.Strengths)),
		GapsIdentified:     nonNil(gaps),
		GapsFalselyIgnored: nonNil(ignored),
		ActionPlan:         nonNil(utils.Dedupe(env.ActionPlan)),
		JDGenerated:        jdGenerated,
		Details: types.ATSDetails{
			Method:          types.MethodLLM,
			Archetype:       archetype,
			Breakdown:       &breakdown,
			Words:           h.Words,
			KeywordsMatched: h.Matched,
			KeywordsMissing: h.Missing,
		},
	}
}

func (s *Scorer) heuristicResult(req Request, h HeuristicOutcome, jdGenerated bool, parseErr string) types.ATSResult {
	score := h.Total()
	strengths, gaps, actions := heuristicNarrative(h)
	gaps = FilterPlaceholders(gaps)
	gaps, dropped := FilterSeniorGaps(gaps, req.TargetRole, req.CVText)
	breakdown := h.Breakdown
	return types.ATSResult{
		ScoreTotal:         score,
		Level:              Classify(score),
		Percent:            float64(score),
		RoleEvaluated:      strings.TrimSpace(req.TargetRole),
		Strengths:          nonNil(strengths),
		GapsIdentified:     nonNil(gaps),
		GapsFalselyIgnored: nonNil(dropped),
		ActionPlan:         nonNil(actions),
		JDGenerated:        jdGenerated,
		Details: types.ATSDetails{
			Method:          types.MethodHeuristic,
			Archetype:       archetypeFor(req.TargetRole, h.Area),
			Breakdown:       &breakdown,
			Words:           h.Words,
			KeywordsMatched: h.Matched,
			KeywordsMissing: h.Missing,
			ParseError:      parseErr,
		},
	}
}

// DefaultScoringInstructions is the fixed part of the scoring prompt
const DefaultScoringInstructions = `Você é um sistema ATS (Applicant Tracking System) operado por um headhunter sênior brasileiro.

Avalie o currículo contra o cargo alvo seguindo estes passos:
1. Identifique o arquétipo do cargo (SALES, TECHNICAL, MANAGEMENT, MARKETING, OPERATIONS, FINANCE, HR, CREATIVE, HEALTHCARE, EDUCATION, LEGAL, GENERAL) e use-o para escolher as palavras-chave relevantes.
2. Liste os pontos fortes REAIS evidenciados no texto.
3. Liste as lacunas REAIS (gaps_identified): nomes concretos de ferramentas, competências ou experiências exigidas pelo cargo e ausentes no currículo. Nunca use placeholders como "<ferramenta>", "ferramenta_1" ou termos genéricos como "certified" ou "manager".
4. Liste em gaps_falsely_ignored os itens que você considerou e DESCARTOU como falso positivo (por exemplo, ferramentas operacionais que um cargo de liderança não precisa operar).
5. Dê uma nota de 0 a 100 e um plano de ação objetivo.

Responda SOMENTE com um objeto JSON válido, sem texto antes ou depois, seguindo este schema:`

func (s *Scorer) buildPrompt(req Request, area market.Area) string {
	cvText, _ := utils.TruncateRunes(strings.TrimSpace(req.CVText), scoringCVLimit)

	var b strings.Builder
	b.WriteString(s.prompts.Get(config.PromptATS, DefaultScoringInstructions))
	b.WriteString("\n")
	b.WriteString(EnvelopeSchema())
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "CARGO ALVO: %s\n", strings.TrimSpace(req.TargetRole))
	if obj := strings.TrimSpace(req.Objective); obj != "" {
		fmt.Fprintf(&b, "OBJETIVO DO CANDIDATO: %s\n", obj)
	}
	if cur := strings.TrimSpace(req.CurrentRole); cur != "" {
		fmt.Fprintf(&b, "CARGO ATUAL: %s\n", cur)
	}
	fmt.Fprintf(&b, "ÁREA DE MERCADO: %s\n\n", area.Name)

	if job := strings.TrimSpace(req.JobText); job != "" {
		b.WriteString("DESCRIÇÃO DA VAGA (fornecida pelo candidato):\n")
		b.WriteString(job)
	} else {
		b.WriteString("DESCRIÇÃO DA VAGA (gerada a partir do mercado):\n")
		b.WriteString(SyntheticJobDescription(req.TargetRole, area))
	}
	b.WriteString("\n\nCURRÍCULO:\n")
	b.WriteString(cvText)
	return b.String()
}

// SyntheticJobDescription builds a generic posting from the area table
func SyntheticJobDescription(role string, area market.Area) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Vaga: %s\n", strings.TrimSpace(role))
	fmt.Fprintf(&b, "Requisitos: %s\n", strings.Join(area.Keywords, ", "))
	fmt.Fprintf(&b, "Ferramentas: %s\n", strings.Join(area.Tools, ", "))
	fmt.Fprintf(&b, "Indicadores acompanhados: %s", strings.Join(area.Metrics, ", "))
	return b.String()
}

func archetypeFor(role string, area market.Area) string {
	if IsSeniorRole(role) && !strings.Contains(utils.Fold(role), "senior") {
		return "MANAGEMENT"
	}
	switch area.Slug {
	case "vendas", "revops", "customer_success", "atendimento":
		return "SALES"
	case "software", "dados", "seguranca", "infraestrutura", "engenharia", "qualidade":
		return "TECHNICAL"
	case "marketing", "produto":
		return "MARKETING"
	case "financas", "contabil":
		return "FINANCE"
	case "rh":
		return "HR"
	case "design":
		return "CREATIVE"
	case "saude":
		return "HEALTHCARE"
	case "educacao":
		return "EDUCATION"
	case "juridico":
		return "LEGAL"
	case "compras", "logistica", "operacoes", "projetos", "administrativo", "comex":
		return "OPERATIONS"
	}
	return "GENERAL"
}

func promptKey(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}

func (s *Scorer) lookup(key string) (types.ATSResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.memo[key]
	return r, ok
}

func (s *Scorer) store(key string, r types.ATSResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.memo[key]; ok {
		return
	}
	if len(s.order) >= s.memoSize {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.memo, oldest)
	}
	s.memo[key] = r
	s.order = append(s.order, key)
}

// MemoLen returns the number of memoised model results
func (s *Scorer) MemoLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.memo)
}

// DefaultCurrentRolePrompt asks for the most recent job title only
const DefaultCurrentRolePrompt = `Leia o currículo abaixo e responda APENAS com o cargo atual ou mais recente do candidato, exatamente como está escrito, sem empresa, datas ou qualquer outro texto.`

var roleWords = []string{
	"gerente", "analista", "coordenador", "coordenadora", "diretor", "diretora", "desenvolvedor",
	"desenvolvedora", "engenheiro", "engenheira", "vendedor", "vendedora", "consultor", "consultora",
	"especialista", "assistente", "supervisor", "supervisora", "head", "executivo", "executiva",
	"lider", "manager", "analyst", "engineer", "developer", "tecnico", "tecnica", "auxiliar",
	"designer", "advogado", "advogada", "contador", "contadora", "comprador", "compradora",
	"enfermeiro", "enfermeira", "professor", "professora", "cientista", "product", "sdr", "bdr",
}

var roleLineNoise = regexp.MustCompile(`^[\s*#>"'\-•]+|[\s*"'.]+$`)

// ExtractCurrentRole asks the model for the candidate's current title and
// falls back to the first CV line naming a role word
func (s *Scorer) ExtractCurrentRole(ctx context.Context, caller *telemetry.Caller, cvText string) string {
	if strings.TrimSpace(cvText) == "" {
		return ""
	}
	if caller != nil {
		cv, _ := utils.TruncateRunes(cvText, scoringCVLimit)
		messages := []ai.Message{
			ai.System(s.prompts.Get(config.PromptCurrentRole, DefaultCurrentRolePrompt)),
			ai.User(cv),
		}
		text, err := caller.Call(ctx, telemetry.TagDiagnosis, messages, ai.Deterministic())
		if err == nil {
			if role := cleanRoleLine(text); role != "" {
				return role
			}
		} else {
			s.logger.LogError(err, "Current role extraction failed, using CV lines")
		}
	}
	return currentRoleFromText(cvText)
}

func cleanRoleLine(text string) string {
	line := strings.TrimSpace(text)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = roleLineNoise.ReplaceAllString(line, "")
	line = strings.TrimPrefix(line, "Cargo atual:")
	line = strings.TrimSpace(line)
	if r, cut := utils.TruncateRunes(line, maxRoleLength); cut {
		line = strings.TrimSpace(r)
	}
	return line
}

func currentRoleFromText(cvText string) string {
	lines := strings.Split(cvText, "\n")
	for i, raw := range lines {
		if i >= 40 {
			break
		}
		line := cleanRoleLine(raw)
		if line == "" {
			continue
		}
		folded := " " + utils.Fold(line) + " "
		for _, w := range roleWords {
			if strings.Contains(folded, " "+w+" ") || strings.HasPrefix(strings.TrimSpace(folded), w) {
				for _, sep := range []string{" | ", " - ", " – ", ", "} {
					if j := strings.Index(line, sep); j > 0 {
						line = line[:j]
						break
					}
				}
				return strings.TrimSpace(line)
			}
		}
	}
	return ""
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
