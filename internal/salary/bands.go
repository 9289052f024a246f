// Package salary validates a candidate's salary expectation against static
// market bands per role and company category.
package salary

import (
	"math"
	"strings"

	"cvcoach/internal/utils"
)

// Category is the company-size or region bucket of a band
type Category string

const (
	CategorySmall      Category = "small"
	CategoryMedium     Category = "medium"
	CategoryLarge      Category = "large"
	CategoryMulti      Category = "multi"
	CategorySPCapitals Category = "sp_capitals"
	CategoryDefault    Category = "default"
)

// Band is a monthly gross salary range in BRL
type Band struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
}

// FallbackBand applies to roles missing from the table
var FallbackBand = Band{Min: 5000, Max: 25000, Median: 12000}

// Multipliers applied to a role's default band for company-size categories
var sizeMultipliers = map[Category]float64{
	CategorySmall:  0.8,
	CategoryMedium: 1.0,
	CategoryLarge:  1.2,
	CategoryMulti:  1.35,
}

type roleBands struct {
	role       string
	patterns   []string
	defaults   Band
	spCapitals Band
}

// band returns the role's band for a category
func (r roleBands) band(cat Category) Band {
	switch cat {
	case CategorySPCapitals:
		return r.spCapitals
	case CategoryDefault, "":
		return r.defaults
	}
	m, ok := sizeMultipliers[cat]
	if !ok {
		return r.defaults
	}
	return Band{
		Min:    roundTo500(r.defaults.Min * m),
		Max:    roundTo500(r.defaults.Max * m),
		Median: roundTo500(r.defaults.Median * m),
	}
}

func roundTo500(v float64) float64 {
	return math.Round(v/500) * 500
}

// lookupRole finds the most specific table entry for a role title
func lookupRole(role string) (roleBands, bool) {
	folded := " " + utils.Fold(strings.TrimSpace(role)) + " "
	best := -1
	bestLen := 0
	for i, r := range table {
		for _, p := range r.patterns {
			if strings.Contains(folded, p) && len(p) > bestLen {
				best = i
				bestLen = len(p)
			}
		}
	}
	if best < 0 {
		return roleBands{}, false
	}
	return table[best], true
}

// BandFor returns the band for role and category, and whether the role was known
func BandFor(role string, cat Category) (Band, bool) {
	r, ok := lookupRole(role)
	if !ok {
		return FallbackBand, false
	}
	return r.band(cat), true
}

var table = []roleBands{
	{role: "Assistente Administrativo", patterns: []string{"assistente administrativ", "auxiliar administrativ"},
		defaults: Band{2000, 3500, 2700}, spCapitals: Band{2500, 4200, 3300}},
	{role: "Analista Administrativo", patterns: []string{"analista administrativ"},
		defaults: Band{3000, 5500, 4200}, spCapitals: Band{3800, 6500, 5000}},
	{role: "Comprador", patterns: []string{"comprador"},
		defaults: Band{3500, 6000, 4700}, spCapitals: Band{4200, 7000, 5500}},
	{role: "Analista de Compras", patterns: []string{"analista de compras", "analista de suprimentos"},
		defaults: Band{4000, 7500, 5500}, spCapitals: Band{5000, 8500, 6500}},
	{role: "Coordenador de Compras", patterns: []string{"coordenador de compras", "coordenadora de compras", "coordenador de suprimentos"},
		defaults: Band{11000, 15000, 13000}, spCapitals: Band{14000, 18000, 16000}},
	{role: "Gerente de Compras", patterns: []string{"gerente de compras", "gerente de suprimentos", "head de compras", "head de procurement"},
		defaults: Band{16000, 24000, 20000}, spCapitals: Band{19000, 28000, 23000}},
	{role: "SDR", patterns: []string{" sdr ", " bdr ", "pre-vendas", "pre vendas"},
		defaults: Band{2500, 4500, 3500}, spCapitals: Band{3000, 5500, 4200}},
	{role: "Vendedor", patterns: []string{"vendedor", "vendedora", "consultor de vendas", "consultora de vendas"},
		defaults: Band{2500, 6000, 4000}, spCapitals: Band{3000, 7500, 5000}},
	{role: "Executivo de Contas", patterns: []string{"executivo de contas", "executiva de contas", "account executive", "key account"},
		defaults: Band{6000, 12000, 8500}, spCapitals: Band{7500, 14000, 10000}},
	{role: "Coordenador de Vendas", patterns: []string{"coordenador de vendas", "coordenadora de vendas", "coordenador comercial"},
		defaults: Band{9000, 14000, 11500}, spCapitals: Band{11000, 17000, 14000}},
	{role: "Gerente de Vendas", patterns: []string{"gerente de vendas", "gerente comercial", "head de vendas", "head comercial"},
		defaults: Band{14000, 22000, 18000}, spCapitals: Band{17000, 26000, 21000}},
	{role: "Diretor Comercial", patterns: []string{"diretor comercial", "diretora comercial", "diretor de vendas", "vp de vendas", " cro "},
		defaults: Band{25000, 40000, 32000}, spCapitals: Band{30000, 50000, 40000}},
	{role: "Analista de Revenue Operations", patterns: []string{"analista de revenue operations", "analista de revops", "analista de sales operations"},
		defaults: Band{6000, 10000, 8000}, spCapitals: Band{7000, 12000, 9500}},
	{role: "Gerente de Revenue Operations", patterns: []string{"gerente de revenue operations", "gerente de revops", "head de revops", "head de revenue operations", "gerente de sales operations"},
		defaults: Band{16000, 24000, 20000}, spCapitals: Band{19000, 28000, 23500}},
	{role: "Customer Success", patterns: []string{"customer success", "sucesso do cliente"},
		defaults: Band{5000, 9000, 7000}, spCapitals: Band{6000, 11000, 8500}},
	{role: "Analista de Marketing", patterns: []string{"analista de marketing"},
		defaults: Band{4000, 7500, 5500}, spCapitals: Band{5000, 9000, 6800}},
	{role: "Gerente de Marketing", patterns: []string{"gerente de marketing", "head de marketing", "head de growth"},
		defaults: Band{14000, 22000, 18000}, spCapitals: Band{17000, 26000, 21000}},
	{role: "Desenvolvedor", patterns: []string{"desenvolvedor", "desenvolvedora", "developer", "programador", "engenheiro de software", "engenheira de software"},
		defaults: Band{6000, 14000, 9500}, spCapitals: Band{8000, 17000, 12000}},
	{role: "Desenvolvedor Sênior", patterns: []string{"desenvolvedor senior", "engenheiro de software senior", "senior developer", "desenvolvedora senior"},
		defaults: Band{12000, 20000, 16000}, spCapitals: Band{14000, 24000, 19000}},
	{role: "Tech Lead", patterns: []string{"tech lead", "lider tecnico", "staff engineer"},
		defaults: Band{16000, 25000, 20000}, spCapitals: Band{19000, 30000, 24000}},
	{role: "Analista de Dados", patterns: []string{"analista de dados", "analista de bi", "data analyst"},
		defaults: Band{5000, 9500, 7000}, spCapitals: Band{6000, 11500, 8500}},
	{role: "Cientista de Dados", patterns: []string{"cientista de dados", "data scientist", "engenheiro de dados", "data engineer"},
		defaults: Band{9000, 17000, 12500}, spCapitals: Band{11000, 20000, 15000}},
	{role: "Product Manager", patterns: []string{"product manager", "gerente de produto", "product owner"},
		defaults: Band{11000, 19000, 15000}, spCapitals: Band{13000, 23000, 18000}},
	{role: "Analista de RH", patterns: []string{"analista de rh", "analista de recursos humanos", "analista de recrutamento"},
		defaults: Band{3500, 6500, 5000}, spCapitals: Band{4500, 8000, 6000}},
	{role: "Gerente de RH", patterns: []string{"gerente de rh", "gerente de recursos humanos", "head de pessoas", "hrbp"},
		defaults: Band{13000, 20000, 16500}, spCapitals: Band{16000, 24000, 20000}},
	{role: "Analista Financeiro", patterns: []string{"analista financeiro", "analista financeira", "analista de fp&a"},
		defaults: Band{4500, 8500, 6300}, spCapitals: Band{5500, 10000, 7500}},
	{role: "Controller", patterns: []string{"controller", "gerente financeiro", "gerente de controladoria"},
		defaults: Band{15000, 24000, 19000}, spCapitals: Band{18000, 28000, 23000}},
	{role: "Contador", patterns: []string{"contador", "contadora", "analista contabil"},
		defaults: Band{4500, 9000, 6500}, spCapitals: Band{5500, 10500, 7800}},
	{role: "Analista de Logística", patterns: []string{"analista de logistica", "analista de supply chain"},
		defaults: Band{4000, 7000, 5500}, spCapitals: Band{5000, 8500, 6500}},
	{role: "Gerente de Logística", patterns: []string{"gerente de logistica", "gerente de supply chain"},
		defaults: Band{14000, 22000, 18000}, spCapitals: Band{17000, 26000, 21000}},
	{role: "Gerente de Projetos", patterns: []string{"gerente de projetos", "gerente de projeto", "project manager"},
		defaults: Band{11000, 18000, 14500}, spCapitals: Band{13000, 22000, 17000}},
	{role: "Designer UX/UI", patterns: []string{"designer", "ux writer"},
		defaults: Band{5000, 11000, 8000}, spCapitals: Band{6500, 13500, 9500}},
	{role: "Advogado", patterns: []string{"advogado", "advogada"},
		defaults: Band{5000, 12000, 8000}, spCapitals: Band{6500, 15000, 10000}},
	{role: "Enfermeiro", patterns: []string{"enfermeiro", "enfermeira"},
		defaults: Band{4000, 7000, 5300}, spCapitals: Band{4800, 8500, 6300}},
	{role: "Professor", patterns: []string{"professor", "professora", "docente"},
		defaults: Band{3000, 7000, 4800}, spCapitals: Band{3800, 8500, 5800}},
}
