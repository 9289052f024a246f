package questions

import (
	"context"
	"strings"
	"testing"

	"cvcoach/internal/ai/aitest"
	"cvcoach/internal/resume"
	"cvcoach/internal/session"
	"cvcoach/internal/telemetry"
)

func TestIsEvasive(t *testing.T) {
	tests := []struct {
		answer string
		want   bool
	}{
		{"sim", true},
		{"uns 10 clientes", false},
		{"Não sei exatamente quantos eram", true},
		{"Mais ou menos uns vinte projetos por ano", true},
		{"Gerenciei 40 contas enterprise no Salesforce", false},
		{"   ", true},
	}
	for _, tt := range tests {
		if got := IsEvasive(tt.answer); got != tt.want {
			t.Errorf("IsEvasive(%q) = %v, want %v", tt.answer, got, tt.want)
		}
	}
}

func TestIsNegative(t *testing.T) {
	tests := []struct {
		answer string
		want   bool
	}{
		{"não tenho", true},
		{"Não", true},
		{"nunca usei", true},
		{"Nenhuma experiência com isso.", true},
		{"sim, usei por 2 anos", false},
		{"Tenho, na empresa X", false},
		{"Naomi me ensinou", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsNegative(tt.answer); got != tt.want {
			t.Errorf("IsNegative(%q) = %v, want %v", tt.answer, got, tt.want)
		}
	}
}

func TestNeedsDeeperGapProbe(t *testing.T) {
	tests := []struct {
		answer string
		want   bool
	}{
		{"sim, já usei", true},
		{"não tenho", false},
		{"Usei HubSpot por dois anos na empresa ACME para automação de marketing e nutrição de leads", false},
		{"Tenho bastante familiaridade com a ferramenta e seus recursos principais de automação", true},
	}
	for _, tt := range tests {
		if got := NeedsDeeperGapProbe(tt.answer); got != tt.want {
			t.Errorf("NeedsDeeperGapProbe(%q) = %v, want %v", tt.answer, got, tt.want)
		}
	}
}

func TestExperienceCollectionComplete(t *testing.T) {
	history := []resume.QAPair{
		{Question: "Q1", Answer: "Aumentei a conversão em 25%"},
		{Question: "Q2", Answer: "Usava Salesforce diariamente"},
		{Question: "Q3", Answer: "Liderava uma equipe de 10 vendedores"},
		{Question: "Q4", Answer: "Atendia o mercado enterprise"},
		{Question: "Q5", Answer: "Reportava ao diretor comercial"},
	}

	if !ExperienceCollectionComplete(history, 4) {
		t.Error("Expected collection to be complete")
	}
	if ExperienceCollectionComplete(history[:3], 4) {
		t.Error("Below the minimum the collection is never complete")
	}

	thin := []resume.QAPair{
		{Answer: "atendia o mercado"}, {Answer: "reportava ao diretor"},
		{Answer: "era legal"}, {Answer: "gostava muito"},
	}
	if ExperienceCollectionComplete(thin, 4) {
		t.Error("Answers without coverage must not complete the collection")
	}

	cov := CoverageOf(history)
	if !cov.Metrics || !cov.Tools || !cov.Volume || cov.Count() != 3 {
		t.Errorf("Unexpected coverage %+v", cov)
	}
}

func TestBuildPromptOrder(t *testing.T) {
	sess := session.New("s")
	sess.SetCV("Gerente de Vendas na ACME")
	sess.QAHistory.Append("ETAPA_1_FOCUSED_COLLECTION", "Quantos clientes?", "40 contas")

	prompt := NewEngine(nil, nil).BuildPrompt(sess, Request{
		Stage:           "ETAPA_1_FOCUSED_COLLECTION",
		SpecificContext: "Experiência na ACME",
		TargetRole:      "Gerente Comercial",
		MappedGaps:      []string{"HubSpot"},
		Objective:       "Coletar métricas",
		LastEvasive:     true,
	})

	parts := []string{
		questionHeader, "CARGO ALVO: Gerente Comercial", "CURRÍCULO:", "GAPS MAPEADOS:\n- HubSpot",
		"P1: Quantos clientes?\nR1: 40 contas", "CONTEXTO ESPECÍFICO:", "OBJETIVO DESTA ETAPA:", "REGRAS OBRIGATÓRIAS", antiLoopNote,
	}
	last := -1
	for _, p := range parts {
		idx := strings.Index(prompt, p)
		if idx < 0 {
			t.Fatalf("Prompt missing %q:\n%s", p, prompt)
		}
		if idx <= last {
			t.Errorf("Part %q out of order", p)
		}
		last = idx
	}
}

func TestNextQuestion(t *testing.T) {
	sess := session.New("s")
	sess.SetCV("cv")
	fake := aitest.New("  Quantas contas você gerenciava?  \n")
	caller := telemetry.NewCaller(fake, sess.Telemetry)

	q, err := NewEngine(nil, nil).NextQuestion(context.Background(), caller, sess, Request{Stage: "X", TargetRole: "Gerente"})
	if err != nil {
		t.Fatalf("NextQuestion: %v", err)
	}
	if q != "Quantas contas você gerenciava?" {
		t.Errorf("Unexpected question %q", q)
	}
	if sess.Telemetry.Count(telemetry.TagFocusedCollection) != 1 {
		t.Error("Expected focused_collection bucket by default")
	}
	call, _ := fake.LastCall()
	if call.Options.Temperature != QuestionTemperature || call.Options.Seed != nil {
		t.Errorf("Expected temperature 0.4 without seed, got %+v", call.Options)
	}

	fake.Push(aitest.Reply{Text: "   "})
	if _, err := NewEngine(nil, nil).NextQuestion(context.Background(), caller, sess, Request{Stage: "X", Tag: telemetry.TagDiagnosis}); err == nil {
		t.Error("Expected error for empty question")
	}
	if sess.Telemetry.Count(telemetry.TagDiagnosis) != 1 {
		t.Error("Expected tag override to be honoured")
	}
}
