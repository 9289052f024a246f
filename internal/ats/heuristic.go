package ats

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"cvcoach/internal/market"
	"cvcoach/internal/types"
	"cvcoach/internal/utils"
)

// Category weights of the heuristic score
const (
	weightSections   = 20
	weightKeywords   = 30
	weightMetrics    = 20
	weightFormatting = 15
	weightLength     = 15

	pointsPerSection = 4
	pointsPerMetric  = 4
	bulletPoints     = 8
	datePoints       = 7

	idealMinWords = 300
	idealMaxWords = 800

	maxJobKeywords = 15
)

// each group counts once when any of its headings is present
var sectionGroups = [][]string{
	{"experiencia", "experience", "historico profissional", "trajetoria"},
	{"formacao", "educacao", "education", "escolaridade", "graduacao"},
	{"competencias", "habilidades", "skills", "conhecimentos", "ferramentas"},
	{"resumo", "perfil", "objetivo", "summary", "sobre mim"},
	{"idiomas", "languages", "certificacoes", "certificados", "cursos"},
}

var (
	metricPattern = regexp.MustCompile(`(?i)(r\$\s*\d[\d.,]*\s*(mi|mil|k|bi)?|\d[\d.,]*\s*(%|k\b|mil\b|mi\b|milh|clientes|contas|pessoas|projetos|usuarios|leads)|\b\d+x\b)`)
	bulletPattern = regexp.MustCompile(`(?m)^\s*([-•*▪►✓]|\d+[.)])\s+\S`)
	datePattern   = regexp.MustCompile(`\b(0?[1-9]|1[0-2])/(19|20)\d{2}\b|\b(19|20)\d{2}\b`)
	wordPattern   = regexp.MustCompile(`[\p{L}][\p{L}\d+#.-]*`)
)

// ptStopwords are dropped when mining keywords from a job posting
var ptStopwords = map[string]bool{
	"para": true, "como": true, "com": true, "pela": true, "pelo": true, "sobre": true,
	"entre": true, "será": true, "sera": true, "você": true, "voce": true, "nossa": true,
	"nosso": true, "nossos": true, "nossas": true, "empresa": true, "vaga": true, "área": true,
	"area": true, "experiência": true, "experiencia": true, "conhecimento": true,
	"conhecimentos": true, "desejável": true, "desejavel": true, "requisitos": true,
	"atividades": true, "responsabilidades": true, "diferencial": true, "diferenciais": true,
	"trabalho": true, "time": true, "equipe": true, "buscamos": true, "profissional": true,
	"além": true, "alem": true, "também": true, "tambem": true, "todos": true, "todas": true,
	"mais": true, "muito": true, "este": true, "esta": true, "isso": true, "onde": true,
	"quando": true, "benefícios": true, "beneficios": true, "the": true, "and": true,
	"with": true, "from": true, "that": true, "have": true, "will": true, "your": true,
	"sólida": true, "solida": true, "forte": true, "boa": true, "bom": true, "ótima": true,
}

// HeuristicInput is what the deterministic scorer looks at
type HeuristicInput struct {
	CVText     string
	TargetRole string
	JobText    string
}

// HeuristicOutcome is the deterministic score and its evidence
type HeuristicOutcome struct {
	Breakdown types.ScoreBreakdown
	Words     int
	Area      market.Area
	Matched   []string
	Missing   []string
}

// Total returns the clamped total
func (h HeuristicOutcome) Total() int {
	return clampScore(h.Breakdown.Total())
}

// Heuristic scores a CV on sections, keywords, metrics, formatting and length
func Heuristic(in HeuristicInput) HeuristicOutcome {
	area := market.DetectArea(in.TargetRole)
	keywords := area.Keywords
	if strings.TrimSpace(in.JobText) != "" {
		keywords = JobKeywords(in.JobText, area)
	}
	matched, missing := splitKeywords(in.CVText, keywords)

	words := utils.WordCount(in.CVText)
	out := HeuristicOutcome{
		Words:   words,
		Area:    area,
		Matched: matched,
		Missing: missing,
	}
	out.Breakdown = types.ScoreBreakdown{
		Sections:   scoreSections(in.CVText),
		Keywords:   scoreKeywords(len(matched), len(keywords)),
		Metrics:    scoreMetrics(in.CVText),
		Formatting: scoreFormatting(in.CVText),
		Length:     scoreLength(words),
	}
	return out
}

func scoreSections(cv string) int {
	folded := utils.Fold(cv)
	points := 0
	for _, group := range sectionGroups {
		for _, heading := range group {
			if strings.Contains(folded, heading) {
				points += pointsPerSection
				break
			}
		}
	}
	return min(points, weightSections)
}

func scoreKeywords(matched, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(weightKeywords) * float64(matched) / float64(total)))
}

func scoreMetrics(cv string) int {
	seen := make(map[string]bool)
	for _, m := range metricPattern.FindAllString(cv, -1) {
		seen[strings.ToLower(strings.TrimSpace(m))] = true
	}
	return min(len(seen)*pointsPerMetric, weightMetrics)
}

func scoreFormatting(cv string) int {
	points := 0
	switch bullets := len(bulletPattern.FindAllString(cv, -1)); {
	case bullets >= 3:
		points += bulletPoints
	case bullets > 0:
		points += bulletPoints / 2
	}
	switch dates := len(datePattern.FindAllString(cv, -1)); {
	case dates >= 2:
		points += datePoints
	case dates == 1:
		points += datePoints / 2
	}
	return min(points, weightFormatting)
}

func scoreLength(words int) int {
	switch {
	case words <= 0:
		return 0
	case words < idealMinWords:
		return int(math.Round(weightLength * float64(words) / idealMinWords))
	case words <= idealMaxWords:
		return weightLength
	default:
		return int(math.Round(weightLength * idealMaxWords / float64(words)))
	}
}

func splitKeywords(cv string, keywords []string) (matched, missing []string) {
	folded := utils.Fold(cv)
	for _, kw := range keywords {
		if strings.Contains(folded, utils.Fold(kw)) {
			matched = append(matched, kw)
		} else {
			missing = append(missing, kw)
		}
	}
	return matched, missing
}

// JobKeywords mines the keyword set from a job posting: area keywords and
// tools it mentions first, then its most frequent significant terms
func JobKeywords(jobText string, area market.Area) []string {
	var out []string
	for _, kw := range append(append([]string(nil), area.Keywords...), area.Tools...) {
		if utils.ContainsFolded(jobText, kw) {
			out = append(out, kw)
		}
	}

	freq := make(map[string]int)
	display := make(map[string]string)
	for _, w := range wordPattern.FindAllString(jobText, -1) {
		w = strings.TrimRight(w, ".-")
		if utf8.RuneCountInString(w) < 4 {
			continue
		}
		key := utils.Fold(w)
		if ptStopwords[key] || ptStopwords[strings.ToLower(w)] {
			continue
		}
		freq[key]++
		if _, ok := display[key]; !ok {
			display[key] = w
		}
	}
	terms := make([]string, 0, len(freq))
	for k, n := range freq {
		if n >= 2 {
			terms = append(terms, k)
		}
	}
	sort.Slice(terms, func(i, j int) bool {
		if freq[terms[i]] != freq[terms[j]] {
			return freq[terms[i]] > freq[terms[j]]
		}
		return terms[i] < terms[j]
	})
	for _, t := range terms {
		out = append(out, display[t])
	}

	out = utils.Dedupe(out)
	if len(out) > maxJobKeywords {
		out = out[:maxJobKeywords]
	}
	if len(out) == 0 {
		return area.Keywords
	}
	return out
}

// heuristicNarrative turns the breakdown into strengths, gaps and actions
func heuristicNarrative(h HeuristicOutcome) (strengths, gaps, actions []string) {
	b := h.Breakdown
	if len(h.Matched) > 0 {
		strengths = append(strengths, "Palavras-chave presentes: "+strings.Join(limit(h.Matched, 6), ", "))
	}
	if b.Metrics >= weightMetrics/2 {
		strengths = append(strengths, "Resultados quantificados com números")
	}
	if b.Sections >= weightSections-pointsPerSection {
		strengths = append(strengths, "Estrutura de seções completa")
	}
	if b.Formatting >= weightFormatting-datePoints/2 {
		strengths = append(strengths, "Formatação escaneável com tópicos e datas")
	}

	gaps = limit(h.Missing, 8)

	if b.Keywords < weightKeywords/2 && len(h.Missing) > 0 {
		actions = append(actions, "Inclua as palavras-chave do cargo onde forem verdadeiras: "+strings.Join(limit(h.Missing, 5), ", "))
	}
	if b.Metrics < weightMetrics/2 {
		actions = append(actions, "Quantifique conquistas (%, R$, volumes, tamanho de equipe)")
	}
	if b.Sections < weightSections-pointsPerSection {
		actions = append(actions, "Use seções padrão: Resumo, Experiência, Formação, Competências, Idiomas")
	}
	if b.Formatting < weightFormatting/2 {
		actions = append(actions, "Organize experiências em tópicos com mês/ano de início e fim")
	}
	if b.Length < weightLength {
		if h.Words < idealMinWords {
			actions = append(actions, "Detalhe mais as experiências (ideal entre 300 e 800 palavras)")
		} else {
			actions = append(actions, "Enxugue o texto (ideal entre 300 e 800 palavras)")
		}
	}
	return strengths, gaps, actions
}

func limit(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[:n]
}

func clampScore(v int) int {
	return max(0, min(100, v))
}
