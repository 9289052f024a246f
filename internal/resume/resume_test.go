package resume

import (
	"strings"
	"testing"
)

func TestContextForPromptEmpty(t *testing.T) {
	var nilCV *StructuredCV
	if got := nilCV.ContextForPrompt(); got != EmptyContextPlaceholder {
		t.Errorf("Expected placeholder for nil, got %q", got)
	}
	if got := New("Gerente de Vendas").ContextForPrompt(); got != EmptyContextPlaceholder {
		t.Errorf("Expected placeholder for fresh record, got %q", got)
	}
}

func TestContextForPromptOrder(t *testing.T) {
	cv := New("Gerente de Vendas")
	cv.UpdatePositioning(Positioning{Strategy: "Liderança comercial B2B"})
	cv.AddExperience(Experience{Role: "Coordenador Comercial", Company: "ACME", Period: "2020-2023",
		Achievements: []string{"Pipeline de R$ 1M"}})
	cv.AddMetric(MetricTool, "Salesforce")
	cv.UpdateGaps([]string{"HubSpot"}, nil, nil)
	cv.UpdateLinkedIn(LinkedIn{Headline: "Gerente de Vendas | B2B"})

	ctx := cv.ContextForPrompt()

	order := []string{"## Posicionamento", "## Experiências", "## Dados coletados", "## Gaps", "## LinkedIn"}
	last := -1
	for _, heading := range order {
		idx := strings.Index(ctx, heading)
		if idx < 0 {
			t.Fatalf("Missing section %q in:\n%s", heading, ctx)
		}
		if idx < last {
			t.Errorf("Section %q out of order", heading)
		}
		last = idx
	}
	if !strings.HasSuffix(ctx, groundingInstruction) {
		t.Error("Expected context to end with the grounding instruction")
	}
	if strings.Contains(ctx, "## Formação") {
		t.Error("Empty sections must be omitted")
	}
}

func TestOverwriteVersusAdditive(t *testing.T) {
	cv := New("Analista")
	cv.UpdatePositioning(Positioning{Strategy: "A", Seniority: "Pleno"})
	cv.UpdatePositioning(Positioning{Strategy: "B"})
	if cv.Positioning.Strategy != "B" || cv.Positioning.Seniority != "Pleno" {
		t.Errorf("Positioning overwrite wrong: %+v", cv.Positioning)
	}

	cv.AddATSKeywords("CRM", "Forecast")
	cv.AddATSKeywords("crm", "Pipeline")
	if len(cv.ATSKeywords) != 3 {
		t.Errorf("Expected 3 deduped keywords, got %v", cv.ATSKeywords)
	}

	cv.UpdateGaps([]string{"a", "b"}, nil, nil)
	cv.UpdateGaps(nil, []string{"a"}, []string{"b"})
	if len(cv.Gaps.Identified) != 2 || len(cv.Gaps.Resolved) != 1 || len(cv.Gaps.Unresolved) != 1 {
		t.Errorf("Unexpected gaps: %+v", cv.Gaps)
	}

	cv.SetSummary("first")
	cv.SetSummary("second")
	if cv.Summary != "first" {
		t.Errorf("Summary must be set once, got %q", cv.Summary)
	}
}

func TestRenderTextUsesRewrites(t *testing.T) {
	cv := New("Gerente de Vendas")
	cv.SetHeader("Maria Silva | maria@example.com")
	i := cv.AddExperience(Experience{Role: "Coordenadora", Company: "ACME", Period: "2020-2023", Achievements: []string{"Bateu metas"}})
	cv.AddExperience(Experience{Role: "Vendedora", Company: "Beta", Achievements: []string{"Top 3"}})
	if !cv.RecordRewrite(i, "Coordenadora Comercial | ACME\n• Cresceu a receita em 30%") {
		t.Fatal("RecordRewrite failed")
	}
	if cv.RecordRewrite(5, "x") {
		t.Error("RecordRewrite must reject out-of-range index")
	}

	text := cv.RenderText()
	for _, want := range []string{"Maria Silva", "EXPERIÊNCIA PROFISSIONAL", "Cresceu a receita em 30%", "Vendedora | Beta", "• Top 3"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in rendered text:\n%s", want, text)
		}
	}
	if strings.Contains(text, "Bateu metas") {
		t.Error("Rewritten experience must replace the original achievements")
	}
}

func TestQAHistory(t *testing.T) {
	h := NewQAHistory()
	h.Append("ETAPA_1", "Quantos clientes?", " 40 contas ")
	h.Append("ETAPA_1", "Qual CRM?", "Salesforce")
	h.Append("ETAPA_2", "Q", "A")

	if h.Len("ETAPA_1") != 2 {
		t.Fatalf("Expected 2 pairs, got %d", h.Len("ETAPA_1"))
	}
	got := h.Get("ETAPA_1")
	got[0].Answer = "mutated"
	if h.Get("ETAPA_1")[0].Answer != "40 contas" {
		t.Error("Get must return a copy with trimmed answers")
	}

	want := "P1: Quantos clientes?\nR1: 40 contas\nP2: Qual CRM?\nR2: Salesforce"
	if f := h.Format("ETAPA_1"); f != want {
		t.Errorf("Format = %q, want %q", f, want)
	}

	if stages := h.Stages(); len(stages) != 2 || stages[0] != "ETAPA_1" {
		t.Errorf("Unexpected stages %v", stages)
	}

	h.Clear("ETAPA_2")
	if h.Len("ETAPA_2") != 0 {
		t.Error("Clear did not drop the stage")
	}
	if h.Answers("ETAPA_1") != "40 contas\nSalesforce" {
		t.Errorf("Unexpected answers %q", h.Answers("ETAPA_1"))
	}
}
