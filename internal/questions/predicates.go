package questions

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"cvcoach/internal/resume"
	"cvcoach/internal/utils"
)

const (
	evasiveMinLength   = 15
	shallowGapLength   = 50
	minCoverageBuckets = 2
	// DefaultMinAnswers is the collection floor before coverage is checked
	DefaultMinAnswers = 4
)

var evasivePhrases = []string{
	"nao sei", "nao lembro", "mais ou menos", "nao tenho certeza", "talvez", "acho que",
	"nao me recordo", "sei la", "tanto faz", "nao faco ideia", "prefiro nao", "pular",
}

var negativePhrases = []string{
	"nao tenho", "nao possuo", "nunca", "nao", "nenhum", "nenhuma", "sem experiencia",
	"nao trabalhei", "nao usei", "nao conheco", "desconheco", "jamais", "negativo",
}

var gapContextWords = []string{
	"empresa", "projeto", "cargo", "trabalhei", "atuei", "utilizei", "usei", "implementei",
	"liderei", "gerenciei", "desenvolvi", "cliente", "time", "equipe", "anos", "meses",
	"resultado", "responsavel", "fui", "fiz",
}

var (
	metricsBucket = regexp.MustCompile(`\d|%|r\$|\b(aument|reduz|cresc|econom|receita|faturamento|meta|roi|conversao|margem|lucro|resultado)`)
	toolsBucket   = []string{
		"salesforce", "hubspot", "pipedrive", "excel", "power bi", "tableau", "sql", "python", "sap",
		"totvs", "oracle", "jira", "crm", "erp", "sistema", "ferramenta", "plataforma", "software",
		"google", "aws", "azure", "looker", "notion", "slack", "zendesk", "rd station", "tecnologia", "stack",
	}
	volumeBucket = []string{
		"equipe", "time", "clientes", "contas", "projetos", "pessoas", "colaboradores", "usuarios",
		"lojas", "unidades", "fornecedores", "pedidos", "contratos", "leads", "vendedores", "sdrs", "volume",
	}
)

// IsEvasive reports whether an answer is too short or dodges the question
func IsEvasive(answer string) bool {
	a := strings.TrimSpace(answer)
	if utf8.RuneCountInString(a) < evasiveMinLength {
		return true
	}
	folded := utils.Fold(a)
	for _, p := range evasivePhrases {
		if strings.Contains(folded, p) {
			return true
		}
	}
	return false
}

// IsNegative reports whether a gap or keyword answer denies experience. It
// matches when the answer equals or starts with a negative phrase.
func IsNegative(answer string) bool {
	folded := strings.Trim(utils.Fold(strings.TrimSpace(answer)), " .!,;")
	if folded == "" {
		return false
	}
	for _, p := range negativePhrases {
		if folded == p || strings.HasPrefix(folded, p+" ") || strings.HasPrefix(folded, p+",") || strings.HasPrefix(folded, p+".") {
			return true
		}
	}
	return false
}

// NeedsDeeperGapProbe reports whether a positive gap answer is too thin to record as is
func NeedsDeeperGapProbe(answer string) bool {
	a := strings.TrimSpace(answer)
	if a == "" || IsNegative(a) {
		return false
	}
	if utf8.RuneCountInString(a) < shallowGapLength {
		return true
	}
	return !utils.ContainsAnyFolded(a, gapContextWords...)
}

// Coverage says which evidence buckets appear in the collected answers
type Coverage struct {
	Metrics bool `json:"metrics"`
	Tools   bool `json:"tools"`
	Volume  bool `json:"volume"`
}

// Count returns how many buckets are covered
func (c Coverage) Count() int {
	n := 0
	for _, b := range []bool{c.Metrics, c.Tools, c.Volume} {
		if b {
			n++
		}
	}
	return n
}

// CoverageOf inspects the concatenated answers
func CoverageOf(history []resume.QAPair) Coverage {
	var b strings.Builder
	for _, p := range history {
		b.WriteString(p.Answer)
		b.WriteString("\n")
	}
	text := utils.Fold(b.String())
	return Coverage{
		Metrics: metricsBucket.MatchString(text),
		Tools:   containsAny(text, toolsBucket),
		Volume:  containsAny(text, volumeBucket),
	}
}

// ExperienceCollectionComplete reports whether the deep-dive has enough
// answers covering at least two evidence buckets
func ExperienceCollectionComplete(history []resume.QAPair, minQuestions int) bool {
	if minQuestions <= 0 {
		minQuestions = DefaultMinAnswers
	}
	if len(history) < minQuestions {
		return false
	}
	return CoverageOf(history).Count() >= minCoverageBuckets
}

func containsAny(folded string, words []string) bool {
	for _, w := range words {
		if strings.Contains(folded, w) {
			return true
		}
	}
	return false
}
