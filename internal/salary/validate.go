package salary

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"cvcoach/internal/errors"
	"cvcoach/internal/types"
	"cvcoach/internal/utils"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Accepted expectation range in BRL
const (
	MinExpectation = 1000.0
	MaxExpectation = 1000000.0

	// above the band but within this factor of Max is a mild warning
	aboveTolerance = 1.2
)

// Level grades an expectation against its band
type Level string

const (
	LevelOK       Level = "ok"
	LevelAbove    Level = "above"
	LevelFarAbove Level = "far_above"
	LevelInvalid  Level = "invalid"
)

// Result is the outcome of Validate
type Result struct {
	Value       float64  `json:"value"`
	Band        Band     `json:"band"`
	BandText    string   `json:"bandText"`
	InBand      bool     `json:"inBand"`
	Message     string   `json:"message"`
	Level       Level    `json:"level"`
	Category    Category `json:"category"`
	Role        string   `json:"role"`
	RoleMatched bool     `json:"roleMatched"`
}

var (
	brlPrinter  = message.NewPrinter(language.BrazilianPortuguese)
	thousandsK  = regexp.MustCompile(`^(\d+(?:[.,]\d+)?)\s*(k|mil)$`)
	nonNumeric  = regexp.MustCompile(`[^\d.,]`)
	currencyRun = regexp.MustCompile(`(?i)(r\$|us\$|brl|reais|real|por mes|/mes|mensais|mensal|bruto|liquido|clt|pj)`)
)

// ParseExpectation converts a Brazilian-formatted amount ("R$ 25.000,00",
// "25000", "25k", "25 mil") into a float and enforces the accepted range
func ParseExpectation(raw string) (float64, error) {
	s := strings.TrimSpace(utils.Fold(raw))
	if s == "" {
		return 0, errors.NewValidationError(errors.ErrCodeInvalidSalary,
			"Informe sua pretensão salarial (ex.: R$ 12.000)", nil)
	}
	s = currencyRun.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)

	multiplier := 1.0
	if m := thousandsK.FindStringSubmatch(s); m != nil {
		s = m[1]
		multiplier = 1000
		s = strings.ReplaceAll(s, ",", ".")
	} else {
		s = normalizeNumber(nonNumeric.ReplaceAllString(s, ""))
	}

	value, err := strconv.ParseFloat(s, 64)
	if err != nil || s == "" {
		return 0, errors.NewValidationError(errors.ErrCodeInvalidSalary,
			fmt.Sprintf("Não entendi o valor %q. Use o formato R$ 12.000", raw), err)
	}
	value *= multiplier

	if value < MinExpectation || value > MaxExpectation {
		return 0, errors.NewValidationError(errors.ErrCodeInvalidSalary,
			fmt.Sprintf("A pretensão deve estar entre %s e %s", FormatBRL(MinExpectation), FormatBRL(MaxExpectation)), nil).
			WithContext("value", value)
	}
	return value, nil
}

// normalizeNumber turns "25.000,00" / "25,000.00" / "25.000" / "25000.5"
// into a strconv-friendly string
func normalizeNumber(s string) string {
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			// 25.000,00
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		// 25,000.00
		return strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		if hasDecimalComma(s) {
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case lastDot >= 0:
		// Brazilian thousands: every group after a dot has three digits
		if len(s)-lastDot-1 == 3 || strings.Count(s, ".") > 1 {
			return strings.ReplaceAll(s, ".", "")
		}
		return s
	}
	return s
}

// hasDecimalComma reports a single comma followed by one or two digits
func hasDecimalComma(s string) bool {
	i := strings.LastIndex(s, ",")
	return strings.Count(s, ",") == 1 && len(s)-i-1 <= 2
}

// FormatBRL renders v as "R$ 14.000" (or "R$ 14.000,50" with cents)
func FormatBRL(v float64) string {
	whole := math.Trunc(v)
	if cents := math.Round((v - whole) * 100); cents != 0 {
		return "R$ " + brlPrinter.Sprintf("%.2f", v)
	}
	return "R$ " + brlPrinter.Sprintf("%d", int64(whole))
}

// FormatBand renders "R$ 14.000 - R$ 18.000"
func FormatBand(b Band) string {
	return FormatBRL(b.Min) + " - " + FormatBRL(b.Max)
}

// Validate grades an expectation for role/location. profile may be nil; its
// CompanySize selects a company-size category when present.
func Validate(expectation, role, location string, profile *types.Profile) Result {
	category := ResolveCategory(location, profile)
	band, matched := BandFor(role, category)

	result := Result{
		Band:        band,
		BandText:    FormatBand(band),
		Category:    category,
		Role:        strings.TrimSpace(role),
		RoleMatched: matched,
	}

	value, err := ParseExpectation(expectation)
	if err != nil {
		result.Level = LevelInvalid
		var appErr *errors.AppError
		if errors.As(err, &appErr) {
			result.Message = appErr.Message
		} else {
			result.Message = err.Error()
		}
		return result
	}

	result.Value = value
	result.InBand = value >= band.Min && value <= band.Max
	where := describePlace(location, category)
	valueText := FormatBRL(value)

	switch {
	case value <= band.Max:
		result.Level = LevelOK
		if value < band.Min {
			result.Message = fmt.Sprintf("Sua pretensão de %s está abaixo da faixa de mercado para %s%s (%s). Você pode pedir mais.",
				valueText, result.Role, where, result.BandText)
		} else {
			result.Message = fmt.Sprintf("Sua pretensão de %s está dentro da faixa de mercado para %s%s (%s).",
				valueText, result.Role, where, result.BandText)
		}
	case value <= aboveTolerance*band.Max:
		result.Level = LevelAbove
		result.Message = fmt.Sprintf("Sua pretensão de %s está um pouco acima da faixa de mercado para %s%s (%s). Esteja pronto para justificar com resultados concretos.",
			valueText, result.Role, where, result.BandText)
	default:
		result.Level = LevelFarAbove
		result.Message = fmt.Sprintf("Sua pretensão de %s está muito acima da faixa de mercado para %s%s (%s). Isso pode eliminar você da triagem; considere revisar o valor ou mirar um cargo mais sênior.",
			valueText, result.Role, where, result.BandText)
	}
	if !matched {
		result.Message += " (faixa genérica: cargo não mapeado)"
	}
	return result
}

func describePlace(location string, cat Category) string {
	location = strings.TrimSpace(location)
	switch {
	case location != "":
		return " em " + location
	case cat == CategorySPCapitals:
		return " em capitais"
	}
	return ""
}

var companySizes = map[string]Category{
	"small":         CategorySmall,
	"pequena":       CategorySmall,
	"startup":       CategorySmall,
	"medium":        CategoryMedium,
	"media":         CategoryMedium,
	"large":         CategoryLarge,
	"grande":        CategoryLarge,
	"multi":         CategoryMulti,
	"multinacional": CategoryMulti,
}

var capitals = []string{
	"sao paulo", " sp", "rio de janeiro", " rj", "belo horizonte", "brasilia", "curitiba", "porto alegre",
	"salvador", "recife", "fortaleza", "florianopolis", "goiania", "manaus", "belem", "vitoria",
	"campo grande", "cuiaba", "natal", "joao pessoa", "maceio", "aracaju", "teresina", "sao luis",
}

// ResolveCategory picks an explicit company size first, then capitals, then default
func ResolveCategory(location string, profile *types.Profile) Category {
	if profile != nil && profile.CompanySize != "" {
		if cat, ok := companySizes[utils.Fold(strings.TrimSpace(profile.CompanySize))]; ok {
			return cat
		}
	}
	loc := " " + utils.Fold(strings.TrimSpace(location)) + " "
	for _, c := range capitals {
		if strings.Contains(loc, c+" ") || strings.Contains(loc, c+",") || strings.Contains(loc, c+"/") || strings.Contains(loc, c+"-") {
			return CategorySPCapitals
		}
	}
	return CategoryDefault
}
