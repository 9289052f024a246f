package formatters

import (
	"encoding/json"
	"fmt"
	"strings"

	"cvcoach/internal/salary"
	"cvcoach/internal/telemetry"
	"cvcoach/internal/types"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("text", "ATSResult", &ATSTextFormatter{})
	registry.RegisterFormatter("markdown", "ATSResult", &ATSMarkdownFormatter{})
	registry.RegisterFormatter("text", "SalaryResult", &SalaryTextFormatter{})
	registry.RegisterFormatter("markdown", "SalaryResult", &SalaryMarkdownFormatter{})
	registry.RegisterFormatter("text", "TelemetrySnapshot", &TelemetryTextFormatter{})
	registry.RegisterFormatter("markdown", "TelemetrySnapshot", &TelemetryTextFormatter{markdown: true})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case types.ATSResult:
		return "ATSResult"
	case salary.Result:
		return "SalaryResult"
	case telemetry.Snapshot:
		return "TelemetrySnapshot"
	default:
		return "any"
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// ATSTextFormatter handles text formatting for ATS results
type ATSTextFormatter struct{}

func (atf *ATSTextFormatter) Format(data any) (string, error) {
	result, ok := data.(types.ATSResult)
	if !ok {
		return "", fmt.Errorf("expected ATSResult, got %T", data)
	}

	var output strings.Builder

	output.WriteString("=== NOTA ATS ===\n")
	output.WriteString(fmt.Sprintf("Cargo avaliado: %s\n", result.RoleEvaluated))
	output.WriteString(fmt.Sprintf("Nota: %d/100 (%s)\n", result.ScoreTotal, result.Level.Label()))
	output.WriteString(fmt.Sprintf("Método: %s\n", result.Details.Method))
	if result.JDGenerated {
		output.WriteString("Vaga de referência: gerada a partir do cargo\n")
	}
	if b := result.Details.Breakdown; b != nil {
		output.WriteString(fmt.Sprintf("Seções %d/20 | Palavras-chave %d/30 | Métricas %d/20 | Formatação %d/15 | Tamanho %d/15\n",
			b.Sections, b.Keywords, b.Metrics, b.Formatting, b.Length))
	}
	output.WriteString("\n")

	writeTextList(&output, "PONTOS FORTES", result.Strengths)
	writeTextList(&output, "GAPS", result.GapsIdentified)
	writeTextList(&output, "PLANO DE AÇÃO", result.ActionPlan)

	return output.String(), nil
}

func (atf *ATSTextFormatter) SupportedType() string {
	return "ATSResult"
}

// ATSMarkdownFormatter handles markdown formatting for ATS results
type ATSMarkdownFormatter struct{}

func (amf *ATSMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(types.ATSResult)
	if !ok {
		return "", fmt.Errorf("expected ATSResult, got %T", data)
	}
	return ATSMarkdown(result), nil
}

func (amf *ATSMarkdownFormatter) SupportedType() string {
	return "ATSResult"
}

// ATSMarkdown renders an ATS result for the chat
func ATSMarkdown(result types.ATSResult) string {
	var output strings.Builder

	output.WriteString(fmt.Sprintf("**Nota ATS para %s: %d/100 (%s)**\n\n",
		result.RoleEvaluated, result.ScoreTotal, result.Level.Label()))
	writeMarkdownList(&output, "Pontos fortes", result.Strengths)
	writeMarkdownList(&output, "Gaps para o cargo", result.GapsIdentified)
	writeMarkdownList(&output, "Plano de ação", result.ActionPlan)

	return strings.TrimSpace(output.String())
}

// SalaryTextFormatter handles text formatting for salary checks
type SalaryTextFormatter struct{}

func (stf *SalaryTextFormatter) Format(data any) (string, error) {
	result, ok := data.(salary.Result)
	if !ok {
		return "", fmt.Errorf("expected salary.Result, got %T", data)
	}

	var output strings.Builder

	output.WriteString("=== PRETENSÃO SALARIAL ===\n")
	output.WriteString(fmt.Sprintf("Cargo: %s\n", result.Role))
	output.WriteString(fmt.Sprintf("Pretensão: %s\n", salary.FormatBRL(result.Value)))
	output.WriteString(fmt.Sprintf("Faixa de mercado: %s\n", result.BandText))
	output.WriteString(fmt.Sprintf("Categoria: %s\n", result.Category))
	output.WriteString(fmt.Sprintf("Situação: %s\n\n", result.Level))
	output.WriteString(result.Message)
	output.WriteString("\n")

	return output.String(), nil
}

func (stf *SalaryTextFormatter) SupportedType() string {
	return "SalaryResult"
}

// SalaryMarkdownFormatter handles markdown formatting for salary checks
type SalaryMarkdownFormatter struct{}

func (smf *SalaryMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(salary.Result)
	if !ok {
		return "", fmt.Errorf("expected salary.Result, got %T", data)
	}
	return SalaryMarkdown(result), nil
}

func (smf *SalaryMarkdownFormatter) SupportedType() string {
	return "SalaryResult"
}

// SalaryMarkdown renders a salary check for the chat
func SalaryMarkdown(result salary.Result) string {
	var output strings.Builder

	output.WriteString("**Pretensão salarial**\n\n")
	output.WriteString(fmt.Sprintf("- Sua pretensão: %s\n", salary.FormatBRL(result.Value)))
	output.WriteString(fmt.Sprintf("- Faixa de mercado para %s: %s\n", result.Role, result.BandText))
	if !result.RoleMatched {
		output.WriteString("- Cargo fora da nossa tabela: usamos uma faixa de referência geral\n")
	}
	output.WriteString("\n")
	output.WriteString(result.Message)

	return output.String()
}

// TelemetryTextFormatter renders LLM call counters
type TelemetryTextFormatter struct {
	markdown bool
}

func (ttf *TelemetryTextFormatter) Format(data any) (string, error) {
	snap, ok := data.(telemetry.Snapshot)
	if !ok {
		return "", fmt.Errorf("expected telemetry.Snapshot, got %T", data)
	}

	var output strings.Builder

	if ttf.markdown {
		output.WriteString("## Chamadas ao modelo\n\n")
		output.WriteString("| Contexto | Chamadas |\n|---|---|\n")
		for _, ctx := range snap.SortedContexts() {
			output.WriteString(fmt.Sprintf("| %s | %d |\n", ctx, snap.ByContext[ctx]))
		}
		output.WriteString(fmt.Sprintf("| **total** | **%d** |\n", snap.Total))
		return output.String(), nil
	}

	output.WriteString("=== CHAMADAS AO MODELO ===\n")
	for _, ctx := range snap.SortedContexts() {
		output.WriteString(fmt.Sprintf("%-20s %d\n", ctx, snap.ByContext[ctx]))
	}
	output.WriteString(fmt.Sprintf("%-20s %d\n", "total", snap.Total))

	return output.String(), nil
}

func (ttf *TelemetryTextFormatter) SupportedType() string {
	return "TelemetrySnapshot"
}

func writeTextList(output *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	output.WriteString(title + ":\n")
	for _, item := range items {
		output.WriteString(fmt.Sprintf("- %s\n", item))
	}
	output.WriteString("\n")
}

func writeMarkdownList(output *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	output.WriteString(fmt.Sprintf("**%s**\n", title))
	for _, item := range items {
		output.WriteString(fmt.Sprintf("- %s\n", item))
	}
	output.WriteString("\n")
}
