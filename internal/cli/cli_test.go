package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cvcoach/internal/ai/aitest"
	"cvcoach/internal/config"
	"cvcoach/internal/errors"
	"cvcoach/internal/phase"
	"cvcoach/internal/session"
)

const testCV = `Maria Souza
Gerente de Vendas | ACME | 2019 - 2023
Liderei equipe de 12 vendedores e cresci a receita em 35% com Salesforce.
Coordenadora Comercial | Beta Ltda | 2015 - 2019
Estruturei o processo de prospecção B2B.`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := Execute(context.Background(), config.Default(), errors.Discard())
	return buf.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, "cvcoach version "+Version) {
		t.Errorf("Unexpected output: %q", out)
	}
}

func TestSalaryCommand(t *testing.T) {
	out, err := execute(t, "salary", "--role", "Gerente de Vendas", "--expectation", "R$ 18.000", "--location", "São Paulo", "--format", "text", "--output", "")
	if err != nil {
		t.Fatalf("salary: %v", err)
	}
	if !strings.Contains(out, "PRETENSÃO SALARIAL") || !strings.Contains(out, "Gerente de Vendas") {
		t.Errorf("Unexpected output: %q", out)
	}

	if _, err := execute(t, "salary", "--role", "x", "--expectation", "18000", "--format", "text"); err == nil {
		t.Error("Expected an invalid role to fail")
	}
	if _, err := execute(t, "salary", "--role", "Gerente de Vendas", "--expectation", "18000", "--format", "xml"); err == nil {
		t.Error("Expected an unsupported format to fail")
	}
}

func TestScoreCommandOffline(t *testing.T) {
	cv := writeFile(t, "cv.txt", testCV)
	out := filepath.Join(t.TempDir(), "score.json")

	if _, err := execute(t, "score", cv, "--role", "Gerente de Vendas", "--offline", "--format", "json", "--output", out); err != nil {
		t.Fatalf("score: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var result struct {
		ScoreTotal int `json:"scoreTotal"`
		Details    struct {
			Method string `json:"method"`
		} `json:"details"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.ScoreTotal < 0 || result.ScoreTotal > 100 || result.Details.Method != "heuristic" {
		t.Errorf("Unexpected result: %+v", result)
	}
}

func newScriptedRouter() (*phase.Router, *aitest.Completer) {
	model := &aitest.Completer{Respond: func(c aitest.Call) (string, error) {
		prompt := c.Prompt()
		switch {
		case strings.Contains(prompt, "CARGO ALVO:"):
			return `{"score": 58, "archetype": "SALES", "strengths": [], "gaps_identified": ["Forecast"], "gaps_falsely_ignored": [], "action_plan": []}`, nil
		case strings.Contains(prompt, "cargo atual ou mais recente"):
			return "Gerente de Vendas", nil
		}
		return "Perfil comercial sólido.", nil
	}}
	return phase.NewRouter(phase.Deps{Client: model}), model
}

func TestTerminalSession(t *testing.T) {
	router, model := newScriptedRouter()
	cv := writeFile(t, "cv.txt", testCV)
	input := strings.Join([]string{
		"/cv " + cv,
		"/telemetria",
		"/sair",
	}, "\n")

	var out bytes.Buffer
	term := newTerminal(strings.NewReader(input), &out, router, errors.Discard())
	if err := term.run(context.Background(), ""); err != nil {
		t.Fatalf("run: %v", err)
	}

	text := out.String()
	for _, want := range []string{"Perfil comercial sólido.", "CHAMADAS AO MODELO", "Até logo!"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in output:\n%s", want, text)
		}
	}
	if model.CallCount() != 3 {
		t.Errorf("Expected 3 model calls, got %d", model.CallCount())
	}
	if term.phase != session.PhaseDiagnosis {
		t.Errorf("Expected DIAGNOSIS, got %s", term.phase)
	}
}

func TestTerminalBriefingForm(t *testing.T) {
	router, _ := newScriptedRouter()
	cv := writeFile(t, "cv.txt", testCV)
	input := strings.Join([]string{
		"continuar",
		"",
		"Gerente de Vendas",
		"R$ 18.000",
		"São Paulo",
		"n",
		"/sair",
	}, "\n")

	var out bytes.Buffer
	term := newTerminal(strings.NewReader(input), &out, router, errors.Discard())
	if err := term.run(context.Background(), cv); err != nil {
		t.Fatalf("run: %v", err)
	}

	view, err := router.Get(term.id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if view.Profile == nil || view.Profile.TargetRole != "Gerente de Vendas" || view.Profile.Objective != phase.DefaultObjective {
		t.Errorf("Expected the briefing to be stored, got %+v", view.Profile)
	}
	if view.Phase == session.PhaseBriefing {
		t.Error("Expected the session to leave BRIEFING")
	}
}

func TestTerminalEndsOnEOF(t *testing.T) {
	router, _ := newScriptedRouter()
	var out bytes.Buffer
	term := newTerminal(strings.NewReader(""), &out, router, errors.Discard())
	if err := term.run(context.Background(), ""); err != nil {
		t.Fatalf("run: %v", err)
	}
	if term.phase != session.PhaseIntro {
		t.Errorf("Expected INTRO, got %s", term.phase)
	}
}
