package optimizer

import (
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"cvcoach/internal/ai"
	"cvcoach/internal/ats"
	"cvcoach/internal/config"
	"cvcoach/internal/cvcache"
	"cvcoach/internal/market"
	"cvcoach/internal/questions"
	"cvcoach/internal/resume"
	"cvcoach/internal/session"
	"cvcoach/internal/telemetry"
	"cvcoach/internal/utils"
)

const seoIntroTask = `TAREFA: explique em no máximo 80 palavras que recrutadores e sistemas ATS buscam as palavras-chave abaixo
e que vamos verificar, uma por vez, se o candidato tem experiência real com cada uma.
Termine pedindo para digitar *continuar*.`

const seoSummaryTask = `TAREFA: em no máximo 80 palavras, confirme quais palavras-chave entrarão no currículo
(somente as confirmadas) e quais ficarão de fora por falta de experiência.`

const collectionObjective = "Aprofundar as experiências mais relevantes para o cargo alvo, coletando métricas, ferramentas usadas e escala (equipe, clientes, volumes)"

// DefaultCheckpointInstructions ask for the consolidated validation envelope
const DefaultCheckpointInstructions = `TAREFA: consolide TODOS os dados coletados para validação do candidato.
Responda SOMENTE com um objeto JSON neste formato:
{
  "validacao": "texto em Markdown, no máximo 250 palavras, listando por experiência os fatos e números confirmados",
  "experiencias": [{"cargo": "", "empresa": "", "periodo": "", "conquistas": [""]}],
  "metricas": {"volumes": [], "ferramentas": [], "resultados": [], "equipe": []},
  "posicionamento": {"estrategia": "", "senioridade": "", "diferencial": ""},
  "formacao": [], "idiomas": [], "certificacoes": []
}
REGRAS: use apenas fatos do currículo e das respostas do candidato; nunca use exemplos genéricos,
placeholders ou números que o candidato não informou; mantenha as experiências na ordem do currículo.`

func (e *Engine) seoKeywords(s *session.Session) []string {
	var text strings.Builder
	text.WriteString(s.CVText)
	for _, resp := range s.GapResponses {
		text.WriteString("\n" + resp.Text())
	}
	area := market.DetectArea(s.TargetRole())
	candidates := area.MissingKeywords(text.String(), 0)

	keywords := make([]string, 0, e.settings.MaxSEOKeywords)
	for _, kw := range candidates {
		if len(keywords) == e.settings.MaxSEOKeywords {
			break
		}
		if isMappedGap(s, kw) {
			continue
		}
		keywords = append(keywords, kw)
	}
	return keywords
}

func isMappedGap(s *session.Session, keyword string) bool {
	k := utils.Fold(keyword)
	for _, gap := range s.GapsTarget {
		if utils.Fold(gap) == k {
			return true
		}
	}
	return false
}

func renderSEOIntro(e *Engine, s *session.Session, _ int) (Step, error) {
	keywords := e.seoKeywords(s)
	if len(keywords) == 0 {
		return Step{
			Apply: func(string) error {
				s.Optimizer.SEOKeywords = nil
				s.Say("Seu currículo já cobre as palavras-chave centrais da sua área. Vamos aprofundar suas experiências.")
				return nil
			},
			Next: StageFocusedCollection,
		}, nil
	}

	prompt := fmt.Sprintf("CARGO ALVO: %s\n\nPALAVRAS-CHAVE AUSENTES NO CURRÍCULO:\n%s\n%s",
		s.TargetRole(), bullets(keywords), seoIntroTask)
	return Step{
		Call: e.ask(telemetry.TagFocusedCollection, prompt, ai.WithTemperature(questions.QuestionTemperature)),
		Apply: func(reply string) error {
			s.Optimizer.SEOKeywords = keywords
			s.Optimizer.SEOIndex = 0
			s.Say(reply)
			return nil
		},
		Next: AwaitSEOStart,
	}, nil
}

func renderSEOKeyword(e *Engine, s *session.Session, _ int) (Step, error) {
	kws := s.Optimizer.SEOKeywords
	j := s.Optimizer.SEOIndex
	if j >= len(kws) {
		return Step{Next: StageSEOSummary}, nil
	}
	req := questions.Request{
		Stage:           StageSEOKeyword,
		SpecificContext: fmt.Sprintf("Palavra-chave: %s (%d de %d)", kws[j], j+1, len(kws)),
		TargetRole:      s.TargetRole(),
		Objective:       fmt.Sprintf("Descobrir se e como o candidato trabalhou com %s, com números concretos", kws[j]),
		Tag:             telemetry.TagFocusedCollection,
	}
	return Step{
		Call: e.question(s, req),
		Apply: func(q string) error {
			s.Optimizer.PendingQuestion = q
			s.Say(fmt.Sprintf("**Palavra-chave %d de %d: %s**\n\n%s", j+1, len(kws), kws[j], q))
			return nil
		},
		Next: AwaitSEOResp,
	}, nil
}

func inputSEOResponse(_ *Engine, s *session.Session, _ int, input string) (Step, error) {
	kws := s.Optimizer.SEOKeywords
	j := s.Optimizer.SEOIndex
	if j >= len(kws) {
		return Step{Next: StageSEOSummary}, nil
	}
	kw := kws[j]
	question := s.Optimizer.PendingQuestion
	next := StageSEOSummary
	if j+1 < len(kws) {
		next = StageSEOKeyword
	}
	return Step{
		Apply: func(string) error {
			s.QAHistory.Append(StageSEOKeyword, question, input)
			if !questions.IsNegative(input) {
				if s.SEOKeywordResponses == nil {
					s.SEOKeywordResponses = make(map[string]string)
				}
				s.SEOKeywordResponses[kw] = input
				s.StructuredCV.AddATSKeywords(kw)
			}
			s.Optimizer.SEOIndex++
			s.Optimizer.PendingQuestion = ""
			return nil
		},
		Next: next,
	}, nil
}

func renderSEOSummary(e *Engine, s *session.Session, _ int) (Step, error) {
	var confirmed, dropped []string
	for _, kw := range s.Optimizer.SEOKeywords {
		if _, ok := s.SEOKeywordResponses[kw]; ok {
			confirmed = append(confirmed, kw)
		} else {
			dropped = append(dropped, kw)
		}
	}
	prompt := fmt.Sprintf("CONFIRMADAS:\n%s\nSEM EXPERIÊNCIA:\n%s\n%s", bullets(confirmed), bullets(dropped), seoSummaryTask)
	return Step{
		Call: e.ask(telemetry.TagFocusedCollection, prompt, ai.WithTemperature(questions.QuestionTemperature)),
		Apply: func(reply string) error {
			s.Say(reply + "\n\nDigite *continuar* para aprofundarmos suas experiências.")
			return nil
		},
		Next: AwaitSEOOK,
	}, nil
}

func renderFocusedCollection(e *Engine, s *session.Session, _ int) (Step, error) {
	resolved, _ := splitGaps(s)
	var ctx strings.Builder
	if len(resolved) > 0 {
		ctx.WriteString("Gaps confirmados pelo candidato: " + strings.Join(resolved, ", ") + "\n")
	}
	if len(s.SEOKeywordResponses) > 0 {
		ctx.WriteString("Palavras-chave confirmadas: " + strings.Join(sortedKeys(s.SEOKeywordResponses), ", ") + "\n")
	}
	cov := questions.CoverageOf(s.RunHistory(StageFocusedCollection))
	var missing []string
	if !cov.Metrics {
		missing = append(missing, "resultados numéricos")
	}
	if !cov.Tools {
		missing = append(missing, "ferramentas")
	}
	if !cov.Volume {
		missing = append(missing, "escala (equipe, clientes, volumes)")
	}
	if len(missing) > 0 {
		ctx.WriteString("Ainda faltam dados sobre: " + strings.Join(missing, ", "))
	}

	req := questions.Request{
		Stage:           StageFocusedCollection,
		SpecificContext: ctx.String(),
		TargetRole:      s.TargetRole(),
		MappedGaps:      s.GapsTarget,
		Objective:       collectionObjective,
		LastEvasive:     s.Optimizer.LastEvasive,
	}
	return Step{
		Call: e.question(s, req),
		Apply: func(q string) error {
			s.Optimizer.PendingQuestion = q
			s.Say(q)
			return nil
		},
		Next: AwaitCollectionData,
	}, nil
}

func inputCollection(e *Engine, s *session.Session, _ int, input string) (Step, error) {
	question := s.Optimizer.PendingQuestion
	pairs := append(s.RunHistory(StageFocusedCollection), resume.QAPair{Question: question, Answer: input})

	next := StageFocusedCollection
	if questions.ExperienceCollectionComplete(pairs, e.settings.MinCollectionAnswers) ||
		len(pairs) >= e.settings.DeepDiveMaxQuestions {
		next = StageCheckpoint1
	}
	evasive := questions.IsEvasive(input)
	return Step{
		Apply: func(string) error {
			s.QAHistory.Append(StageFocusedCollection, question, input)
			s.Optimizer.LastEvasive = evasive
			s.Optimizer.PendingQuestion = ""
			return nil
		},
		Next: next,
	}, nil
}

// checkpointEnvelope is the consolidation the validation prompt asks for
type checkpointEnvelope struct {
	Validation  string `json:"validacao"`
	Experiences []struct {
		Role         string   `json:"cargo"`
		Company      string   `json:"empresa"`
		Period       string   `json:"periodo"`
		Achievements []string `json:"conquistas"`
	} `json:"experiencias"`
	Metrics struct {
		Volumes []string `json:"volumes"`
		Tools   []string `json:"ferramentas"`
		Results []string `json:"resultados"`
		Team    []string `json:"equipe"`
	} `json:"metricas"`
	Positioning struct {
		Strategy       string `json:"estrategia"`
		Seniority      string `json:"senioridade"`
		Differentiator string `json:"diferencial"`
	} `json:"posicionamento"`
	Education      []string `json:"formacao"`
	Languages      []string `json:"idiomas"`
	Certifications []string `json:"certificacoes"`
}

// collectedData renders every answer gathered so far
func collectedData(s *session.Session) string {
	var b strings.Builder
	resolved, _ := splitGaps(s)
	if len(resolved) > 0 {
		b.WriteString("GAPS CONFIRMADOS:\n")
		for _, gap := range resolved {
			fmt.Fprintf(&b, "- %s: %s\n", gap, s.GapResponses[gap].Text())
		}
		b.WriteString("\n")
	}
	if len(s.SEOKeywordResponses) > 0 {
		b.WriteString("PALAVRAS-CHAVE CONFIRMADAS:\n")
		for _, kw := range sortedKeys(s.SEOKeywordResponses) {
			fmt.Fprintf(&b, "- %s: %s\n", kw, s.SEOKeywordResponses[kw])
		}
		b.WriteString("\n")
	}
	if h := resume.FormatPairs(s.RunHistory(StageFocusedCollection)); h != "" {
		b.WriteString("ENTREVISTA DE APROFUNDAMENTO:\n" + h + "\n")
	}
	return b.String()
}

func renderCheckpoint(e *Engine, s *session.Session, _ int) (Step, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "CARGO ALVO: %s\n\n", s.TargetRole())
	b.WriteString(cvcache.ContextForPrompt(s) + "\n\n")
	b.WriteString(collectedData(s) + "\n")
	b.WriteString(e.prompts.Get(config.PromptCheckpoint, DefaultCheckpointInstructions))
	b.WriteString(feedbackBlock(s))

	return Step{
		Call: e.ask(telemetry.TagValidation, b.String(), ai.Deterministic()),
		Apply: func(reply string) error {
			summary := applyCheckpoint(s, reply)
			s.Say(summary + "\n\nOs dados acima estão corretos? Digite *aprovar* para seguir para a reescrita ou descreva o que ajustar.")
			return nil
		},
		Next: AwaitValidationOK,
	}, nil
}

// applyCheckpoint replaces the consolidated part of the structured CV with
// the validation envelope and returns the text to show. Unparseable output is shown as is and the job
// list falls back to date lines of the CV.
func applyCheckpoint(s *session.Session, reply string) string {
	cv := s.StructuredCV
	cv.ClearConsolidated()
	region, ok := ats.ExtractObject(reply, "experiencias")
	var env checkpointEnvelope
	if !ok || json.Unmarshal([]byte(region), &env) != nil {
		for _, exp := range experiencesFromText(s.CVText) {
			cv.AddExperience(exp)
		}
		return reply
	}

	for _, x := range env.Experiences {
		cv.AddExperience(resume.Experience{Role: x.Role, Company: x.Company, Period: x.Period, Achievements: nonBlank(x.Achievements)})
	}
	if len(cv.Experiences) == 0 {
		for _, exp := range experiencesFromText(s.CVText) {
			cv.AddExperience(exp)
		}
	}
	for kind, values := range map[resume.MetricKind][]string{
		resume.MetricVolume: env.Metrics.Volumes,
		resume.MetricTool:   env.Metrics.Tools,
		resume.MetricResult: env.Metrics.Results,
		resume.MetricTeam:   env.Metrics.Team,
	} {
		for _, v := range nonBlank(values) {
			cv.AddMetric(kind, v)
		}
	}
	cv.UpdatePositioning(resume.Positioning{
		Strategy:       env.Positioning.Strategy,
		Seniority:      env.Positioning.Seniority,
		Differentiator: env.Positioning.Differentiator,
	})
	cv.AddEducation(nonBlank(env.Education)...)
	cv.AddLanguages(nonBlank(env.Languages)...)
	cv.AddCertifications(nonBlank(env.Certifications)...)

	if strings.TrimSpace(env.Validation) != "" {
		return strings.TrimSpace(env.Validation)
	}
	var b strings.Builder
	for _, exp := range cv.Experiences {
		b.WriteString("**" + exp.Title() + "**\n")
		for _, a := range exp.Achievements {
			b.WriteString("- " + a + "\n")
		}
	}
	return b.String()
}

var (
	yearPattern    = regexp.MustCompile(`(19|20)\d{2}`)
	titleSeparator = regexp.MustCompile(`\s+[|–—-]\s+|\s*\|\s*`)
)

// experiencesFromText picks CV lines that look like "Role | Company | 2019 - 2023"
func experiencesFromText(cv string) []resume.Experience {
	var out []resume.Experience
	for _, line := range strings.Split(cv, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "•-* "))
		if line == "" || len(line) > 160 || !yearPattern.MatchString(line) {
			continue
		}
		parts := titleSeparator.Split(line, -1)
		if len(parts) < 2 {
			continue
		}
		exp := resume.Experience{Role: strings.TrimSpace(parts[0])}
		var rest []string
		for _, p := range parts[1:] {
			p = strings.TrimSpace(p)
			if yearPattern.MatchString(p) {
				if exp.Period != "" {
					exp.Period += " - "
				}
				exp.Period += p
			} else if p != "" {
				rest = append(rest, p)
			}
		}
		exp.Company = strings.Join(rest, " | ")
		if exp.Role == "" || yearPattern.MatchString(exp.Role) {
			continue
		}
		out = append(out, exp)
	}
	return out
}

func nonBlank(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" && !ats.IsPlaceholder(item) {
			out = append(out, item)
		}
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func inputValidation(_ *Engine, s *session.Session, _ int, input string) (Step, error) {
	if !IsApproval(input) {
		return adjust(s, StageCheckpoint1, input), nil
	}
	next := StageRewriteFinal
	if len(s.StructuredCV.Experiences) > 0 {
		next = StageRewriteExp(1)
	}
	return Step{
		Apply: func(string) error {
			s.Optimizer.ExperienceIndex = 0
			return nil
		},
		Next: next,
	}, nil
}
