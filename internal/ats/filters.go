package ats

import (
	"regexp"
	"strings"

	"cvcoach/internal/utils"
)

var placeholderPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^<.*>$`),
	regexp.MustCompile(`^.*_\d+$`),
	regexp.MustCompile(`^(exemplo|example)_`),
	regexp.MustCompile(`^\[.*\]$`),
	regexp.MustCompile(`^\d+$`),
}

// lone tokens that say nothing about the candidate
var genericTokens = map[string]bool{
	"certified": true, "certificado": true, "certificacao": true, "certificacoes": true,
	"manager": true, "gerente": true, "skill": true, "skills": true, "habilidade": true,
	"habilidades": true, "tool": true, "tools": true, "ferramenta": true, "ferramentas": true,
	"experience": true, "experiencia": true, "n/a": true, "na": true, "none": true,
	"nenhum": true, "nenhuma": true, "tbd": true, "xxx": true, "etc": true, "outros": true,
}

// IsPlaceholder reports whether a gap is template filler rather than a real item
func IsPlaceholder(gap string) bool {
	g := strings.TrimSpace(gap)
	if g == "" {
		return true
	}
	folded := utils.Fold(g)
	for _, re := range placeholderPatterns {
		if re.MatchString(folded) {
			return true
		}
	}
	return genericTokens[strings.Trim(folded, " .,;:")]
}

// FilterPlaceholders drops placeholder gaps and duplicates, preserving order
func FilterPlaceholders(gaps []string) []string {
	out := make([]string, 0, len(gaps))
	for _, g := range gaps {
		if !IsPlaceholder(g) {
			out = append(out, strings.TrimSpace(g))
		}
	}
	return utils.Dedupe(out)
}

var seniorTitles = []string{
	" gerente ", " diretor ", " diretora ", " senior ", " sr ", " sr. ", " head ", " vp ",
	" vice-presidente ", " vice presidente ", " ceo ", " cto ", " cfo ", " coo ", " cro ",
	" cmo ", " cio ", " chief ", " superintendente ",
}

var strategicIndicators = []string{
	"gestao de equipe", "gestao de time", "gestao de pessoas", "lideranca", "liderei",
	"lider de", "coordenacao", "coordenei", "gerenciei", "gestao de area", "equipe de",
	"time de", "reporte direto", "planejamento estrategico", "headcount",
}

// TacticalTools are hands-on sales engagement products senior roles are not
// expected to operate personally
var TacticalTools = []string{
	"Outreach", "Gong", "Salesloft", "Apollo", "ZoomInfo", "Drift", "Intercom", "Chorus",
}

// IsSeniorRole reports whether role names a management or executive title
func IsSeniorRole(role string) bool {
	r := " " + strings.NewReplacer("-", " - ", "/", " / ", ",", " , ", "(", " ( ", ")", " ) ").
		Replace(utils.Fold(role)) + " "
	for _, t := range seniorTitles {
		if strings.Contains(r, t) {
			return true
		}
	}
	return false
}

// HasStrategicExperience reports whether the CV shows leadership indicators
func HasStrategicExperience(cvText string) bool {
	return utils.ContainsAnyFolded(cvText, strategicIndicators...)
}

// IsTacticalTool reports whether gap names a tactical tool
func IsTacticalTool(gap string) bool {
	folded := utils.Fold(gap)
	for _, t := range TacticalTools {
		tf := utils.Fold(t)
		if folded == tf || strings.HasPrefix(folded, tf+" ") || strings.HasPrefix(folded, tf+".") {
			return true
		}
	}
	return false
}

// FilterSeniorGaps removes tactical-tool gaps when the target role is senior
// and the CV shows strategic experience. It returns the kept and dropped gaps.
func FilterSeniorGaps(gaps []string, targetRole, cvText string) (kept, dropped []string) {
	if !IsSeniorRole(targetRole) || !HasStrategicExperience(cvText) {
		return gaps, nil
	}
	kept = make([]string, 0, len(gaps))
	for _, g := range gaps {
		if IsTacticalTool(g) {
			dropped = append(dropped, g)
			continue
		}
		kept = append(kept, g)
	}
	return kept, dropped
}
