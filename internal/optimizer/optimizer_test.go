package optimizer

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"cvcoach/internal/ai/aitest"
	apperrors "cvcoach/internal/errors"
	"cvcoach/internal/resume"
	"cvcoach/internal/session"
	"cvcoach/internal/telemetry"
	"cvcoach/internal/types"
)

const testCV = `Maria Souza
Gerente de Vendas | ACME | 2019 - 2023
Coordenadora Comercial | Beta Ltda | 2015 - 2019`

func newOptimizerSession(t *testing.T, role string, gaps ...string) (*Engine, *session.Session) {
	t.Helper()
	s := session.New("test")
	s.SetCV(testCV)
	s.Profile = &types.Profile{TargetRole: role, Objective: "Recolocação no Mercado"}
	s.GapsTarget = gaps

	e := New(DefaultSettings(), nil, nil, nil)
	if err := e.Start(s); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return e, s
}

func TestStartRequiresCVAndProfile(t *testing.T) {
	e := New(DefaultSettings(), nil, nil, nil)

	s := session.New("s")
	if err := e.Start(s); apperrors.TypeOf(err) != apperrors.ErrorTypePrecondition {
		t.Errorf("Expected precondition error without CV, got %v", err)
	}
	s.SetCV(testCV)
	if err := e.Start(s); apperrors.TypeOf(err) != apperrors.ErrorTypePrecondition {
		t.Errorf("Expected precondition error without profile, got %v", err)
	}
	if _, err := e.Tick(context.Background(), s, nil); err == nil {
		t.Error("Expected Tick to fail while the optimizer is inactive")
	}
}

func TestGapFlowNegativeAnswers(t *testing.T) {
	e, s := newOptimizerSession(t, "Gerente Comercial", "HubSpot", "Power BI")
	fake := &aitest.Completer{Default: "Você já trabalhou com isso?"}
	caller := telemetry.NewCaller(fake, s.Telemetry)
	ctx := context.Background()

	res, err := e.Tick(ctx, s, caller)
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if res.Calls != 2 || s.Stage != AwaitGapResponse {
		t.Fatalf("Expected diagnosis plus first gap question, got %+v", res)
	}

	t.Run("re-rendering an awaiting stage makes no call", func(t *testing.T) {
		res, err := e.Tick(ctx, s, caller)
		if err != nil {
			t.Fatalf("Tick: %v", err)
		}
		if res.Calls != 0 || fake.CallCount() != 2 {
			t.Errorf("Expected no additional calls, got %d", fake.CallCount())
		}
	})

	t.Run("negative answer records no experience", func(t *testing.T) {
		res, err := e.Submit(ctx, s, caller, "não tenho")
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		got := s.GapResponses["HubSpot"]
		if got.HasExperience || got.Response != nil {
			t.Errorf("Expected {false, nil}, got %+v", got)
		}
		if len(res.Trail) == 0 || res.Trail[0] != StageGapItem {
			t.Errorf("Expected transition to %s, got %v", StageGapItem, res.Trail)
		}
		if s.Optimizer.GapIndex != 1 || s.Stage != AwaitGapResponse {
			t.Errorf("Expected second gap pending, index %d stage %s", s.Optimizer.GapIndex, s.Stage)
		}
	})

	t.Run("last gap leads to the summary", func(t *testing.T) {
		res, err := e.Submit(ctx, s, caller, "Nunca usei")
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		if !slices.Contains(res.Trail, StageDiagnosisSummary) || s.Stage != AwaitDiagnosisOK {
			t.Errorf("Expected summary, got trail %v stage %s", res.Trail, s.Stage)
		}
		if len(s.StructuredCV.Gaps.Unresolved) != 2 || len(s.StructuredCV.Gaps.Resolved) != 0 {
			t.Errorf("Unexpected gaps %+v", s.StructuredCV.Gaps)
		}
	})

	t.Run("approval stage rejects other input", func(t *testing.T) {
		if _, err := e.Submit(ctx, s, caller, "talvez depois"); apperrors.TypeOf(err) != apperrors.ErrorTypeValidation {
			t.Errorf("Expected validation error, got %v", err)
		}
		if s.Stage != AwaitDiagnosisOK {
			t.Errorf("Stage changed to %s", s.Stage)
		}
	})
}

func TestGapProbe(t *testing.T) {
	e, s := newOptimizerSession(t, "Gerente Comercial", "HubSpot")
	caller := telemetry.NewCaller(&aitest.Completer{Default: "Conte mais."}, s.Telemetry)
	ctx := context.Background()

	if _, err := e.Tick(ctx, s, caller); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if _, err := e.Submit(ctx, s, caller, "sim, já usei"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if s.Stage != AwaitGapProbeResponse {
		t.Fatalf("Expected probe for shallow answer, got %s", s.Stage)
	}
	if _, ok := s.GapResponses["HubSpot"]; ok {
		t.Error("Shallow answer must not be recorded before the probe")
	}

	if _, err := e.Submit(ctx, s, caller, "Na empresa ACME, por 2 anos, automatizei 30 fluxos"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	got := s.GapResponses["HubSpot"]
	if !got.HasExperience || !strings.Contains(got.Text(), "sim, já usei") || !strings.Contains(got.Text(), "30 fluxos") {
		t.Errorf("Expected combined answer, got %+v", got)
	}
	if s.Stage != AwaitDiagnosisOK {
		t.Errorf("Expected summary after last gap, got %s", s.Stage)
	}
}

func TestEmptyAnswerRejected(t *testing.T) {
	e, s := newOptimizerSession(t, "Gerente Comercial", "HubSpot")
	caller := telemetry.NewCaller(&aitest.Completer{Default: "Pergunta?"}, s.Telemetry)
	if _, err := e.Tick(context.Background(), s, caller); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	before := len(s.Messages)

	_, err := e.Submit(context.Background(), s, caller, "   ")
	if apperrors.TypeOf(err) != apperrors.ErrorTypeValidation {
		t.Errorf("Expected validation error, got %v", err)
	}
	if len(s.Messages) != before || s.Stage != AwaitGapResponse {
		t.Error("Empty answer must not change the session")
	}
}

func TestFailedCallLeavesStateUntouched(t *testing.T) {
	e, s := newOptimizerSession(t, "Gerente Comercial", "HubSpot")
	caller := telemetry.NewCaller(aitest.Failing(errors.New("boom")), s.Telemetry)

	if _, err := e.Tick(context.Background(), s, caller); err == nil {
		t.Fatal("Expected error")
	}
	if s.Stage != StageDiagnosis || len(s.Optimizer.Triggered) != 0 || len(s.Messages) != 0 {
		t.Errorf("Failure must be a no-op, stage %s triggered %v", s.Stage, s.Optimizer.Triggered)
	}
	if s.LastError == "" {
		t.Error("Expected LastError to be recorded")
	}

	caller = caller.WithClient(&aitest.Completer{Default: "ok"})
	if _, err := e.Tick(context.Background(), s, caller); err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if s.Stage != AwaitGapResponse || s.LastError != "" {
		t.Errorf("Expected retry to render, stage %s", s.Stage)
	}
}

func TestCollectionCompletesOnCoverage(t *testing.T) {
	e, s := newOptimizerSession(t, "Gerente Comercial")
	s.Stage = StageFocusedCollection
	caller := telemetry.NewCaller(&aitest.Completer{Default: "Qual foi o resultado?"}, s.Telemetry)
	ctx := context.Background()

	if _, err := e.Tick(ctx, s, caller); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	thin := []string{
		"Atendia clientes do varejo",
		"Reportava ao diretor comercial",
		"Trabalhava no escritório central",
		"Cuidava do relacionamento",
	}
	for _, answer := range thin {
		if _, err := e.Submit(ctx, s, caller, answer); err != nil {
			t.Fatalf("Submit(%q): %v", answer, err)
		}
		if s.Stage != AwaitCollectionData {
			t.Fatalf("Collection finished early after %q", answer)
		}
	}

	res, err := e.Submit(ctx, s, caller, "Cresci a receita em 30% usando Salesforce com uma equipe de 10")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !slices.Contains(res.Trail, StageCheckpoint1) {
		t.Errorf("Expected checkpoint, trail %v", res.Trail)
	}
	if s.Stage != AwaitValidationOK {
		t.Errorf("Expected validation prompt, got %s", s.Stage)
	}
	if s.QAHistory.Len(StageFocusedCollection) != 5 {
		t.Errorf("Expected 5 answers, got %d", s.QAHistory.Len(StageFocusedCollection))
	}
	if len(s.StructuredCV.Experiences) != 2 {
		t.Errorf("Expected experiences from CV date lines, got %+v", s.StructuredCV.Experiences)
	}
}

func TestEvasiveAnswerAddsAntiLoopNote(t *testing.T) {
	e, s := newOptimizerSession(t, "Gerente Comercial")
	s.Stage = StageFocusedCollection
	fake := &aitest.Completer{Default: "Quantos clientes?"}
	caller := telemetry.NewCaller(fake, s.Telemetry)

	if _, err := e.Tick(context.Background(), s, caller); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if _, err := e.Submit(context.Background(), s, caller, "não sei"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	call, _ := fake.LastCall()
	if !strings.Contains(call.Prompt(), "vaga ou evasiva") {
		t.Error("Expected anti-loop note after an evasive answer")
	}
}

func TestSEOIntroSkippedWithoutKeywords(t *testing.T) {
	e, s := newOptimizerSession(t, "Astronauta")
	s.SetCV("gestão de projetos, comunicação, resultados, indicadores, melhoria contínua, planejamento, " +
		"negociação, trabalho em equipe, resolução de problemas, processos")
	if err := e.Start(s); err != nil {
		t.Fatalf("Start: %v", err)
	}
	s.Stage = StageSEOIntro
	fake := &aitest.Completer{Default: "Pergunta?"}
	caller := telemetry.NewCaller(fake, s.Telemetry)

	res, err := e.Tick(context.Background(), s, caller)
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if res.Calls != 1 || s.Stage != AwaitCollectionData {
		t.Errorf("Expected only the collection question, calls %d stage %s", res.Calls, s.Stage)
	}
	if s.Telemetry.Count(telemetry.TagFocusedCollection) != 1 {
		t.Error("Expected the question to be tagged focused_collection")
	}
}

func TestSEOKeywords(t *testing.T) {
	e, s := newOptimizerSession(t, "Gerente Comercial", "CRM")
	s.Stage = StageSEOIntro
	caller := telemetry.NewCaller(&aitest.Completer{Default: "Você já usou?"}, s.Telemetry)
	ctx := context.Background()

	if _, err := e.Tick(ctx, s, caller); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	kws := s.Optimizer.SEOKeywords
	if len(kws) == 0 || len(kws) > DefaultSettings().MaxSEOKeywords || slices.Contains(kws, "CRM") {
		t.Fatalf("Unexpected keywords %v", kws)
	}
	if _, err := e.Submit(ctx, s, caller, "continuar"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := e.Submit(ctx, s, caller, "Sim, fazia prospecção ativa de 50 contas por mês"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if s.SEOKeywordResponses[kws[0]] == "" {
		t.Errorf("Expected response stored for %s", kws[0])
	}
	if !slices.Contains(s.StructuredCV.ATSKeywords, kws[0]) {
		t.Error("Confirmed keyword must reach the structured CV")
	}
	if len(kws) > 1 {
		if _, err := e.Submit(ctx, s, caller, "não tenho"); err != nil {
			t.Fatalf("Submit: %v", err)
		}
		if _, ok := s.SEOKeywordResponses[kws[1]]; ok {
			t.Error("Negative answer must not be stored")
		}
	}
}

func TestRewriteApprovalAndFeedback(t *testing.T) {
	e, s := newOptimizerSession(t, "Gerente Comercial")
	s.StructuredCV.AddExperience(resume.Experience{Role: "Gerente de Vendas", Company: "ACME"})
	s.StructuredCV.AddExperience(resume.Experience{Role: "Coordenadora", Company: "Beta"})
	s.Stage = StageRewriteExp(1)
	fake := &aitest.Completer{Default: "Liderei a equipe comercial."}
	caller := telemetry.NewCaller(fake, s.Telemetry)
	ctx := context.Background()

	if _, err := e.Tick(ctx, s, caller); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if s.Stage != AwaitApprovalExp(1) || s.StructuredCV.Experiences[0].Rewritten == "" {
		t.Fatalf("Expected first rewrite, stage %s", s.Stage)
	}

	res, err := e.Submit(ctx, s, caller, "inclua o número de clientes")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	call, _ := fake.LastCall()
	if res.Calls != 1 || !strings.Contains(call.Prompt(), "inclua o número de clientes") {
		t.Error("Expected feedback to trigger a re-render carrying the request")
	}
	if s.Stage != AwaitApprovalExp(1) || s.Optimizer.Feedback != "" {
		t.Errorf("Expected to stay on approval with feedback consumed, stage %s", s.Stage)
	}

	if _, err := e.Submit(ctx, s, caller, "Aprovado!"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if s.Stage != AwaitApprovalExp(2) {
		t.Errorf("Expected second experience, got %s", s.Stage)
	}
	if _, err := e.Submit(ctx, s, caller, "ok"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if s.Stage != AwaitContinueCP2 || s.StructuredCV.Summary == "" {
		t.Errorf("Expected final rewrite, stage %s", s.Stage)
	}
	if s.Telemetry.Count(telemetry.TagRewrite) != 4 {
		t.Errorf("Expected 4 rewrite calls, got %d", s.Telemetry.Count(telemetry.TagRewrite))
	}
}

func TestLinkedInToDone(t *testing.T) {
	e, s := newOptimizerSession(t, "Gerente Comercial")
	s.StructuredCV.AddExperience(resume.Experience{Role: "Gerente de Vendas", Company: "ACME", Rewritten: "Liderei vendas."})
	s.Stage = StageLinkedIn
	fake := &aitest.Completer{Default: "Negociação\nCRM\nProspecção"}
	fake.Push(aitest.Reply{Text: "A) Gerente Comercial | B2B\n**B)** Líder de Vendas | SaaS\nC) Executiva de Negócios"})
	caller := telemetry.NewCaller(fake, s.Telemetry)
	ctx := context.Background()

	if _, err := e.Tick(ctx, s, caller); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if got := s.StructuredCV.LinkedIn.HeadlineOptions; len(got) != 3 || got[1] != "Líder de Vendas | SaaS" {
		t.Fatalf("Unexpected headline options %q", got)
	}

	if _, err := e.Submit(ctx, s, caller, "x"); apperrors.TypeOf(err) != apperrors.ErrorTypeValidation {
		t.Errorf("Expected validation error for unknown choice, got %v", err)
	}
	if _, err := e.Submit(ctx, s, caller, "Opção B"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if s.StructuredCV.LinkedIn.Headline != "Líder de Vendas | SaaS" || s.Stage != AwaitSkillsOK {
		t.Errorf("Unexpected headline %q at %s", s.StructuredCV.LinkedIn.Headline, s.Stage)
	}
	if len(s.StructuredCV.LinkedIn.Skills) != 3 {
		t.Errorf("Unexpected skills %v", s.StructuredCV.LinkedIn.Skills)
	}

	if _, err := e.Submit(ctx, s, caller, "ok"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	res, err := e.Submit(ctx, s, caller, "perfeito")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !res.Done || s.Stage != StageDone || !s.Optimizer.Done {
		t.Errorf("Expected DONE, got %+v", res)
	}
	if s.Telemetry.Count(telemetry.TagLinkedIn) != 3 {
		t.Errorf("Expected 3 linkedin calls, got %d", s.Telemetry.Count(telemetry.TagLinkedIn))
	}
}

func TestApplyCheckpointEnvelope(t *testing.T) {
	s := session.New("s")
	s.SetCV(testCV)
	s.StructuredCV = resume.New("Gerente Comercial")

	reply := "```json\n" + `{
  "validacao": "Tudo confirmado",
  "experiencias": [{"cargo": "Gerente de Vendas", "empresa": "ACME", "periodo": "2019 - 2023", "conquistas": ["Cresci a receita em 30%", "<conquista>"]}],
  "metricas": {"volumes": ["40 contas"], "ferramentas": ["Salesforce"], "resultados": [], "equipe": ["10 pessoas"]},
  "posicionamento": {"estrategia": "Liderança B2B", "senioridade": "Sênior", "diferencial": ""},
  "formacao": ["Administração - USP"], "idiomas": ["Inglês avançado"], "certificacoes": []
}` + "\n```"

	shown := applyCheckpoint(s, reply)
	if shown != "Tudo confirmado" {
		t.Errorf("Unexpected text %q", shown)
	}
	cv := s.StructuredCV
	if len(cv.Experiences) != 1 || len(cv.Experiences[0].Achievements) != 1 {
		t.Errorf("Expected placeholder achievement dropped, got %+v", cv.Experiences)
	}
	if cv.CollectedMetrics.Tools[0] != "Salesforce" || cv.Positioning.Seniority != "Sênior" {
		t.Errorf("Unexpected metrics or positioning %+v %+v", cv.CollectedMetrics, cv.Positioning)
	}
	if len(cv.Education) != 1 || len(cv.Languages) != 1 {
		t.Error("Expected education and languages")
	}
}

func TestExperiencesFromText(t *testing.T) {
	got := experiencesFromText(testCV)
	if len(got) != 2 {
		t.Fatalf("Expected 2 experiences, got %+v", got)
	}
	if got[0].Role != "Gerente de Vendas" || got[0].Company != "ACME" || got[0].Period != "2019 - 2023" {
		t.Errorf("Unexpected experience %+v", got[0])
	}
}

func TestIsApproval(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"ok", true},
		{"OK!", true},
		{"Próxima", true},
		{" aprovar ", true},
		{"sim", true},
		{"sim, mas mude o título", false},
		{"não", false},
	}
	for _, tt := range tests {
		if got := IsApproval(tt.input); got != tt.want {
			t.Errorf("IsApproval(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestGapCursorPastShrunkenList(t *testing.T) {
	e, s := newOptimizerSession(t, "Gerente Comercial", "HubSpot", "Power BI")
	caller := telemetry.NewCaller(&aitest.Completer{Default: "Conte mais."}, s.Telemetry)
	ctx := context.Background()

	if _, err := e.Tick(ctx, s, caller); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if _, err := e.Submit(ctx, s, caller, "não tenho"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := e.Submit(ctx, s, caller, "sim, já usei"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if s.Stage != AwaitGapProbeResponse || s.Optimizer.GapIndex != 1 {
		t.Fatalf("Expected follow-up on the second gap, got %s at %d", s.Stage, s.Optimizer.GapIndex)
	}

	s.GapsTarget = []string{"HubSpot"}
	if _, err := e.Submit(ctx, s, caller, "Na ACME por 2 anos"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if s.Stage != AwaitDiagnosisOK {
		t.Errorf("Expected the summary once the cursor is past the list, got %s", s.Stage)
	}

	e, s = newOptimizerSession(t, "Gerente Comercial", "HubSpot")
	s.Stage = StageGapProbe
	s.Optimizer.GapIndex = 5
	if _, err := e.Tick(ctx, s, caller); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if s.Stage != AwaitDiagnosisOK {
		t.Errorf("Expected the summary, got %s", s.Stage)
	}
}

func TestValidationFeedbackReplacesFacts(t *testing.T) {
	e, s := newOptimizerSession(t, "Gerente Comercial")
	s.Stage = StageCheckpoint1
	envelope := func(achievement string) string {
		return `{"validacao": "Confira", "experiencias": [{"cargo": "Gerente de Vendas", "empresa": "ACME", "periodo": "2019 - 2023", "conquistas": ["` +
			achievement + `"]}], "metricas": {"volumes": [], "ferramentas": [], "resultados": ["` + achievement + `"], "equipe": []}}`
	}
	fake := aitest.New(envelope("Cresci a receita em 10%"), envelope("Cresci a receita em 35%"))
	caller := telemetry.NewCaller(fake, s.Telemetry)
	ctx := context.Background()

	if _, err := e.Tick(ctx, s, caller); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if s.Stage != AwaitValidationOK {
		t.Fatalf("Expected validation prompt, got %s", s.Stage)
	}

	if _, err := e.Submit(ctx, s, caller, "o crescimento foi de 35%, não 10%"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if s.Stage != AwaitValidationOK {
		t.Fatalf("Expected the checkpoint again, got %s", s.Stage)
	}
	if call, _ := fake.LastCall(); !strings.Contains(call.Prompt(), "o crescimento foi de 35%") {
		t.Error("Expected the correction in the second checkpoint prompt")
	}
	cv := s.StructuredCV
	if len(cv.Experiences) != 1 || !slices.Equal(cv.Experiences[0].Achievements, []string{"Cresci a receita em 35%"}) {
		t.Errorf("Expected only the corrected achievement, got %+v", cv.Experiences)
	}
	if !slices.Equal(cv.CollectedMetrics.Results, []string{"Cresci a receita em 35%"}) {
		t.Errorf("Expected only the corrected result, got %v", cv.CollectedMetrics.Results)
	}
}

func TestRestartIgnoresPreviousRunAnswers(t *testing.T) {
	e, s := newOptimizerSession(t, "Gerente Comercial")
	for range 4 {
		s.QAHistory.Append(StageFocusedCollection, "Qual foi o resultado?", "Cresci a receita em 30% usando Salesforce com uma equipe de 10")
	}
	s.SEOKeywordResponses["Forecast"] = "fiz forecast semanal"
	if err := s.RecordGapResponse("HubSpot", types.NoExperience()); err != nil {
		t.Fatalf("RecordGapResponse: %v", err)
	}

	s.Profile.TargetRole = "Gerente de Marketing"
	if err := e.Start(s); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if len(s.SEOKeywordResponses) != 0 || len(s.GapResponses) != 0 {
		t.Errorf("Expected a clean run, got %v %v", s.SEOKeywordResponses, s.GapResponses)
	}
	if s.QAHistory.Len(StageFocusedCollection) != 4 {
		t.Errorf("Expected the history to be kept, got %d", s.QAHistory.Len(StageFocusedCollection))
	}

	s.Stage = StageFocusedCollection
	fake := &aitest.Completer{Default: "Qual canal?"}
	caller := telemetry.NewCaller(fake, s.Telemetry)
	ctx := context.Background()
	if _, err := e.Tick(ctx, s, caller); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if call, _ := fake.LastCall(); strings.Contains(call.Prompt(), "Cresci a receita em 30%") {
		t.Error("Previous run answers must not reach the question prompt")
	}
	if _, err := e.Submit(ctx, s, caller, "campanhas no Google"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if s.Stage != AwaitCollectionData {
		t.Errorf("Expected collection to continue, got %s", s.Stage)
	}
	if got := len(s.RunHistory(StageFocusedCollection)); got != 1 {
		t.Errorf("Expected one answer in this run, got %d", got)
	}
}

func TestEmptyReplyRecordsError(t *testing.T) {
	e, s := newOptimizerSession(t, "Gerente Comercial", "HubSpot")
	caller := telemetry.NewCaller(&aitest.Completer{Default: "   "}, s.Telemetry)

	_, err := e.Tick(context.Background(), s, caller)
	if apperrors.TypeOf(err) != apperrors.ErrorTypeAI {
		t.Errorf("Expected AI error, got %v", err)
	}
	if s.LastError == "" {
		t.Error("Expected LastError to be recorded")
	}
	if s.Stage != StageDiagnosis || len(s.Messages) != 0 {
		t.Errorf("Empty reply must not advance, stage %s", s.Stage)
	}
}

func TestGapAnswersNotedForModel(t *testing.T) {
	e, s := newOptimizerSession(t, "Gerente Comercial", "HubSpot", "Power BI")
	fake := &aitest.Completer{Default: "Pergunta?"}
	caller := telemetry.NewCaller(fake, s.Telemetry)
	ctx := context.Background()

	if _, err := e.Tick(ctx, s, caller); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if _, err := e.Submit(ctx, s, caller, "não tenho"); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	const note = "Gap HubSpot: sem experiência"
	if call, _ := fake.LastCall(); !strings.Contains(call.Prompt(), note) {
		t.Error("Expected the gap note in the next question call")
	}
	var internal bool
	for _, m := range s.Messages {
		if m.Visibility == session.Internal && strings.Contains(m.Content, note) {
			internal = true
		}
	}
	if !internal {
		t.Error("Expected an internal note for the answered gap")
	}
	for _, m := range s.VisibleMessages() {
		if strings.Contains(m.Content, note) {
			t.Error("Internal note leaked to the candidate")
		}
	}
}
