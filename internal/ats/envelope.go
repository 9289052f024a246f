package ats

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"cvcoach/internal/errors"

	"github.com/invopop/jsonschema"
)

// Archetypes the model may assign to a role
var Archetypes = []string{
	"SALES", "TECHNICAL", "MANAGEMENT", "MARKETING", "OPERATIONS",
	"FINANCE", "HR", "CREATIVE", "HEALTHCARE", "EDUCATION", "LEGAL", "GENERAL",
}

// Score accepts a JSON number or a numeric string
type Score float64

// UnmarshalJSON tolerates "75" as well as 75
func (s *Score) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	raw = strings.TrimSuffix(raw, "%")
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("score %q is not a finite number", raw)
	}
	*s = Score(v)
	return nil
}

// Int rounds the score into 0-100. The clamp happens before the conversion
// so huge values never reach int.
func (s Score) Int() int {
	v := float64(s)
	if math.IsNaN(v) {
		return 0
	}
	return int(math.Round(math.Max(0, math.Min(100, v))))
}

// JSONSchema describes Score as a bounded number
func (Score) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "number",
		Minimum:     json.Number("0"),
		Maximum:     json.Number("100"),
		Description: "Nota ATS de 0 a 100",
	}
}

// Envelope is the strict JSON object the scoring prompt asks for
type Envelope struct {
	Score              Score    `json:"score" jsonschema:"required"`
	Archetype          string   `json:"archetype" jsonschema:"required,enum=SALES,enum=TECHNICAL,enum=MANAGEMENT,enum=MARKETING,enum=OPERATIONS,enum=FINANCE,enum=HR,enum=CREATIVE,enum=HEALTHCARE,enum=EDUCATION,enum=LEGAL,enum=GENERAL"`
	Strengths          []string `json:"strengths" jsonschema:"required,description=Pontos fortes reais evidenciados no CV"`
	GapsIdentified     []string `json:"gaps_identified" jsonschema:"required,description=Lacunas reais para o cargo alvo (nomes concretos de ferramentas ou competências)"`
	GapsFalselyIgnored []string `json:"gaps_falsely_ignored" jsonschema:"required,description=Itens descartados como falso positivo"`
	ActionPlan         []string `json:"action_plan" jsonschema:"required,description=Ações objetivas para melhorar o CV"`
}

var (
	schemaOnce sync.Once
	schemaText string
)

// EnvelopeSchema returns the indented JSON schema of Envelope
func EnvelopeSchema() string {
	schemaOnce.Do(func() {
		reflector := jsonschema.Reflector{
			AllowAdditionalProperties:  false,
			DoNotReference:             true,
			RequiredFromJSONSchemaTags: true,
		}
		raw, err := reflector.Reflect(&Envelope{}).MarshalJSON()
		if err != nil {
			panic(err)
		}
		var buf bytes.Buffer
		if err := json.Indent(&buf, raw, "", "  "); err != nil {
			schemaText = string(raw)
			return
		}
		schemaText = buf.String()
	})
	return schemaText
}

// ParseEnvelope extracts and decodes the scoring envelope from free-form model output
func ParseEnvelope(text string) (*Envelope, error) {
	region, ok := ExtractObject(text, "gaps_identified")
	if !ok {
		return nil, errors.NewParseError(errors.ErrCodeATSParseFailed,
			"no JSON object with gaps_identified in model output", nil)
	}
	var env Envelope
	if err := json.Unmarshal([]byte(region), &env); err != nil {
		return nil, errors.NewParseError(errors.ErrCodeATSParseFailed,
			"invalid scoring JSON", err)
	}
	return &env, nil
}

// StripCodeFences removes a surrounding ```json fence
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// ExtractObject returns the first outermost balanced {...} region of
// model output that mentions the JSON key. Braces inside strings are ignored.
func ExtractObject(text, key string) (string, bool) {
	s := StripCodeFences(text)
	needle := `"` + key + `"`
	depth := 0
	start := -1
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				region := s[start : i+1]
				if strings.Contains(region, needle) {
					return region, true
				}
				start = -1
			}
		}
	}
	return "", false
}
