package phase

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"cvcoach/internal/ai/aitest"
	apperrors "cvcoach/internal/errors"
	"cvcoach/internal/optimizer"
	"cvcoach/internal/session"
	"cvcoach/internal/telemetry"
	"cvcoach/internal/types"
)

const testCV = `Maria Souza
Gerente de Vendas | ACME | 2019 - 2023
Liderei equipe de 12 vendedores e cresci a receita em 35% com Salesforce.
Coordenadora Comercial | Beta Ltda | 2015 - 2019
Estruturei o processo de prospecção B2B.
Formação: Administração - USP`

const scoreJSON = `{"score": 58, "archetype": "SALES", "strengths": ["Salesforce"], "gaps_identified": ["Forecast de vendas"], "gaps_falsely_ignored": [], "action_plan": ["Quantificar metas"]}`

// scriptedModel answers by recognizing the prompt. failing switches every
// call to an error.
type scriptedModel struct {
	*aitest.Completer
	failing atomic.Bool
}

func newScriptedModel() *scriptedModel {
	m := &scriptedModel{}
	m.Completer = &aitest.Completer{Respond: func(c aitest.Call) (string, error) {
		if m.failing.Load() {
			return "", errors.New("model unavailable")
		}
		prompt := c.Prompt()
		switch {
		case strings.Contains(prompt, "CARGO ALVO:"):
			return scoreJSON, nil
		case strings.Contains(prompt, "cargo atual ou mais recente"):
			return "Gerente de Vendas", nil
		case strings.Contains(prompt, "primeira leitura"):
			return "Perfil comercial sólido, faltam números nas experiências antigas.", nil
		}
		return "Você já trabalhou com forecast de vendas?", nil
	}}
	return m
}

func newTestRouter(t *testing.T) (*Router, *scriptedModel) {
	t.Helper()
	model := newScriptedModel()
	return NewRouter(Deps{Client: model}), model
}

func mustCreate(t *testing.T, r *Router) string {
	t.Helper()
	out, err := r.Create(context.Background())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return out.Session.ID
}

func lookup(t *testing.T, r *Router, id string) *session.Session {
	t.Helper()
	s, err := r.Store().Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	return s
}

func TestCreateRendersIntroWithoutCalls(t *testing.T) {
	r, model := newTestRouter(t)
	out, err := r.Create(context.Background())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if out.Session.Phase != session.PhaseIntro {
		t.Errorf("Expected INTRO, got %s", out.Session.Phase)
	}
	if len(out.Session.Messages) != 1 {
		t.Errorf("Expected one intro message, got %d", len(out.Session.Messages))
	}
	if model.CallCount() != 0 {
		t.Errorf("Expected no model calls, got %d", model.CallCount())
	}

	out, err = r.Tick(context.Background(), out.Session.ID)
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(out.Session.Messages) != 1 {
		t.Errorf("Expected ticking a rendered phase to add nothing, got %d messages", len(out.Session.Messages))
	}
}

func TestSubmitCVRunsDeepScanAndInitialScore(t *testing.T) {
	r, _ := newTestRouter(t)
	id := mustCreate(t, r)

	out, err := r.SubmitCV(context.Background(), id, testCV)
	if err != nil {
		t.Fatalf("SubmitCV: %v", err)
	}
	if out.Session.Phase != session.PhaseDiagnosis {
		t.Fatalf("Expected DIAGNOSIS, got %s", out.Session.Phase)
	}
	if out.Session.ATSInitial == nil || out.Session.ATSInitial.ScoreTotal != 58 {
		t.Errorf("Expected initial ATS score 58, got %+v", out.Session.ATSInitial)
	}
	if out.Session.Profile == nil || out.Session.Profile.CurrentRole != "Gerente de Vendas" {
		t.Errorf("Expected current role to be extracted, got %+v", out.Session.Profile)
	}
	if got := out.Session.Telemetry.ByContext[string(telemetry.TagDiagnosis)]; got != 3 {
		t.Errorf("Expected deep scan, role and score calls, got %d", got)
	}
	last := out.Session.Messages[len(out.Session.Messages)-1]
	if !strings.Contains(last.Content, "Perfil comercial") {
		t.Errorf("Expected the deep scan in the diagnosis message, got %q", last.Content)
	}
}

func TestSubmitCVValidation(t *testing.T) {
	r, model := newTestRouter(t)
	id := mustCreate(t, r)

	out, err := r.SubmitCV(context.Background(), id, "   \n ")
	if apperrors.TypeOf(err) != apperrors.ErrorTypeValidation {
		t.Fatalf("Expected validation error, got %v", err)
	}
	if out.Session.Phase != session.PhaseIntro || out.Session.HasCV || out.Session.LastError != "" {
		t.Errorf("Expected validation to leave the session untouched, got %+v", out.Session)
	}
	if model.CallCount() != 0 {
		t.Errorf("Expected no model calls, got %d", model.CallCount())
	}
}

func TestSubmitCVFailedCallKeepsPreviousState(t *testing.T) {
	r, model := newTestRouter(t)
	id := mustCreate(t, r)

	model.failing.Store(true)
	out, err := r.SubmitCV(context.Background(), id, testCV)
	if err == nil {
		t.Fatal("Expected the deep scan failure to surface")
	}
	if out.Session.HasCV || out.Session.Phase != session.PhaseIntro {
		t.Errorf("Expected no CV after a failed scan, got phase %s", out.Session.Phase)
	}
	if out.Session.LastError == "" {
		t.Error("Expected LastError to be set")
	}

	model.failing.Store(false)
	out, err = r.SubmitCV(context.Background(), id, testCV)
	if err != nil {
		t.Fatalf("SubmitCV retry: %v", err)
	}
	if out.Session.LastError != "" {
		t.Errorf("Expected a successful submit to clear LastError, got %q", out.Session.LastError)
	}
}

func TestPreconditionRedirects(t *testing.T) {
	r, _ := newTestRouter(t)
	ctx := context.Background()
	id := mustCreate(t, r)

	out, err := r.Navigate(ctx, id, "REALITY")
	if err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	if out.Redirect == nil || out.Redirect.To != session.PhaseUpload || out.Redirect.Code != apperrors.ErrCodeMissingCV {
		t.Fatalf("Expected redirect to UPLOAD, got %+v", out.Redirect)
	}
	if out.Session.Phase != session.PhaseUpload {
		t.Errorf("Expected UPLOAD, got %s", out.Session.Phase)
	}

	if _, err := r.SubmitCV(ctx, id, testCV); err != nil {
		t.Fatalf("SubmitCV: %v", err)
	}
	out, err = r.Navigate(ctx, id, "CHAT")
	if err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	if out.Redirect == nil || out.Redirect.To != session.PhaseBriefing || out.Redirect.Code != apperrors.ErrCodeMissingProfile {
		t.Fatalf("Expected redirect to BRIEFING, got %+v", out.Redirect)
	}

	if _, err := r.SubmitBriefing(ctx, id, Briefing{TargetRole: "Gerente Comercial", SalaryExpectation: "15.000"}); err != nil {
		t.Fatalf("SubmitBriefing: %v", err)
	}
	out, err = r.Navigate(ctx, id, "EXPORTS")
	if err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	if out.Redirect == nil || out.Redirect.To != session.PhaseChat || out.Redirect.Code != apperrors.ErrCodeMissingOptimizer {
		t.Fatalf("Expected redirect to CHAT, got %+v", out.Redirect)
	}

	if _, err := r.Navigate(ctx, id, "NOWHERE"); err == nil {
		t.Error("Expected unknown phase to be rejected")
	}
}

func TestBriefingValidation(t *testing.T) {
	tests := []struct {
		name     string
		briefing Briefing
		code     string
	}{
		{"role too short", Briefing{TargetRole: "TI", SalaryExpectation: "10000"}, apperrors.ErrCodeInvalidRole},
		{"role with digits", Briefing{TargetRole: "Dev 3", SalaryExpectation: "10000"}, apperrors.ErrCodeInvalidRole},
		{"role too long", Briefing{TargetRole: strings.Repeat("a", 101), SalaryExpectation: "10000"}, apperrors.ErrCodeInvalidRole},
		{"missing salary", Briefing{TargetRole: "Gerente Comercial"}, apperrors.ErrCodeInvalidSalary},
		{"salary below range", Briefing{TargetRole: "Gerente Comercial", SalaryExpectation: "500"}, apperrors.ErrCodeInvalidSalary},
		{"salary not a number", Briefing{TargetRole: "Gerente Comercial", SalaryExpectation: "a combinar"}, apperrors.ErrCodeInvalidSalary},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestRouter(t)
			id := mustCreate(t, r)
			if _, err := r.SubmitCV(context.Background(), id, testCV); err != nil {
				t.Fatalf("SubmitCV: %v", err)
			}

			out, err := r.SubmitBriefing(context.Background(), id, tt.briefing)
			var appErr *apperrors.AppError
			if !errors.As(err, &appErr) || appErr.Code != tt.code {
				t.Fatalf("Expected %s, got %v", tt.code, err)
			}
			if out.Session.Phase != session.PhaseDiagnosis {
				t.Errorf("Expected phase to stay DIAGNOSIS, got %s", out.Session.Phase)
			}
			if out.Session.Profile.TargetRole != "" {
				t.Errorf("Expected no target role, got %q", out.Session.Profile.TargetRole)
			}
		})
	}
}

func TestValidateTargetRole(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Gerente Comercial", "Gerente Comercial", true},
		{"  Analista   de Dados ", "Analista de Dados", true},
		{"Desenvolvedor(a) Back-end/Go", "Desenvolvedor(a) Back-end/Go", true},
		{"Coordenação", "Coordenação", true},
		{"ab", "", false},
		{"C++ Developer", "", false},
	}
	for _, tt := range tests {
		got, err := ValidateTargetRole(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("ValidateTargetRole(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestFlowFromBriefingToChat(t *testing.T) {
	r, model := newTestRouter(t)
	ctx := context.Background()
	id := mustCreate(t, r)
	if _, err := r.SubmitCV(ctx, id, testCV); err != nil {
		t.Fatalf("SubmitCV: %v", err)
	}

	out, err := r.SubmitBriefing(ctx, id, Briefing{
		TargetRole:        "Gerente Comercial",
		SalaryExpectation: "R$ 18.000",
		Location:          "São Paulo",
	})
	if err != nil {
		t.Fatalf("SubmitBriefing: %v", err)
	}
	if out.Session.Phase != session.PhaseReality {
		t.Fatalf("Expected REALITY, got %s", out.Session.Phase)
	}
	if out.Session.ATSTarget == nil || out.Session.Salary == nil {
		t.Fatal("Expected target score and salary check")
	}
	if out.Session.Profile.Objective != DefaultObjective {
		t.Errorf("Expected default objective, got %q", out.Session.Profile.Objective)
	}
	if out.Session.Profile.CurrentRole != "Gerente de Vendas" {
		t.Errorf("Expected current role to survive the briefing, got %q", out.Session.Profile.CurrentRole)
	}

	out, err = r.SubmitChat(ctx, id, "continuar")
	if err != nil {
		t.Fatalf("SubmitChat: %v", err)
	}
	if out.Session.Phase != session.PhaseBridge {
		t.Fatalf("Expected loading to advance to BRIDGE, got %s", out.Session.Phase)
	}
	if got := out.Session.Telemetry.ByContext[string(telemetry.TagOther)]; got != 1 {
		t.Errorf("Expected one summary call, got %d", got)
	}

	before := model.CallCount()
	out, err = r.SubmitChat(ctx, id, "ok")
	if err != nil {
		t.Fatalf("SubmitChat: %v", err)
	}
	if out.Session.Phase != session.PhaseChat || out.Session.ModuleActive != session.ModuleOptimizer {
		t.Fatalf("Expected the optimizer to be active in CHAT, got %s/%s", out.Session.Phase, out.Session.ModuleActive)
	}
	if out.Optimizer == nil || out.Session.Stage != optimizer.AwaitGapResponse {
		t.Errorf("Expected the first gap question, got stage %s", out.Session.Stage)
	}
	if model.CallCount()-before != 2 {
		t.Errorf("Expected diagnosis plus gap question, got %d calls", model.CallCount()-before)
	}

	out, err = r.SubmitChat(ctx, id, "não tenho")
	if err != nil {
		t.Fatalf("SubmitChat: %v", err)
	}
	s := lookup(t, r, id)
	if resp, ok := s.GapResponses[s.GapsTarget[0]]; !ok || resp.HasExperience {
		t.Errorf("Expected a recorded negative gap response, got %+v", resp)
	}
	var userSeen bool
	for _, m := range out.Session.Messages {
		if m.Content == "não tenho" {
			userSeen = true
		}
	}
	if !userSeen {
		t.Error("Expected the candidate message in the transcript")
	}
}

func TestSameRoleScoreMatchesAcrossPhases(t *testing.T) {
	r, model := newTestRouter(t)
	ctx := context.Background()
	id := mustCreate(t, r)

	out, err := r.SubmitCV(ctx, id, testCV)
	if err != nil {
		t.Fatalf("SubmitCV: %v", err)
	}
	initial := out.Session.ATSInitial.ScoreTotal

	out, err = r.SubmitBriefing(ctx, id, Briefing{TargetRole: "Gerente de Vendas", SalaryExpectation: "15000"})
	if err != nil {
		t.Fatalf("SubmitBriefing: %v", err)
	}
	if out.Session.ATSTarget.ScoreTotal != initial {
		t.Errorf("Expected equal scores, got %d and %d", initial, out.Session.ATSTarget.ScoreTotal)
	}

	var scoring int
	for _, c := range model.Calls() {
		if strings.Contains(c.Prompt(), "CARGO ALVO:") {
			scoring++
		}
	}
	if scoring != 1 {
		t.Errorf("Expected the second score to be memoised, got %d scoring calls", scoring)
	}
}

func TestSubmitChat(t *testing.T) {
	t.Run("empty message is rejected", func(t *testing.T) {
		r, _ := newTestRouter(t)
		id := mustCreate(t, r)
		if _, err := r.SubmitChat(context.Background(), id, "  "); apperrors.TypeOf(err) != apperrors.ErrorTypeValidation {
			t.Errorf("Expected validation error, got %v", err)
		}
	})

	t.Run("intro advances to upload", func(t *testing.T) {
		r, _ := newTestRouter(t)
		id := mustCreate(t, r)
		out, err := r.SubmitChat(context.Background(), id, "oi")
		if err != nil {
			t.Fatalf("SubmitChat: %v", err)
		}
		if out.Session.Phase != session.PhaseUpload {
			t.Errorf("Expected UPLOAD, got %s", out.Session.Phase)
		}
	})

	t.Run("pasted CV in upload is submitted", func(t *testing.T) {
		r, _ := newTestRouter(t)
		ctx := context.Background()
		id := mustCreate(t, r)
		if _, err := r.Navigate(ctx, id, "UPLOAD"); err != nil {
			t.Fatalf("Navigate: %v", err)
		}
		out, err := r.SubmitChat(ctx, id, testCV)
		if err != nil {
			t.Fatalf("SubmitChat: %v", err)
		}
		if !out.Session.HasCV || out.Session.Phase != session.PhaseDiagnosis {
			t.Errorf("Expected the pasted CV to reach DIAGNOSIS, got %s", out.Session.Phase)
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		r, _ := newTestRouter(t)
		_, err := r.SubmitChat(context.Background(), "missing", "oi")
		var appErr *apperrors.AppError
		if !errors.As(err, &appErr) || appErr.Code != apperrors.ErrCodeSessionNotFound {
			t.Errorf("Expected session not found, got %v", err)
		}
	})
}

func TestResetReturnsToIntro(t *testing.T) {
	r, _ := newTestRouter(t)
	ctx := context.Background()
	id := mustCreate(t, r)
	if _, err := r.SubmitCV(ctx, id, testCV); err != nil {
		t.Fatalf("SubmitCV: %v", err)
	}

	out, err := r.Reset(ctx, id)
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if out.Session.Phase != session.PhaseIntro || out.Session.HasCV || out.Session.ATSInitial != nil {
		t.Errorf("Expected a clean session, got %+v", out.Session)
	}
}

func TestRealityWithNewGapsRestartsOptimizer(t *testing.T) {
	r, _ := newTestRouter(t)
	ctx := context.Background()
	id := mustCreate(t, r)
	if _, err := r.SubmitCV(ctx, id, testCV); err != nil {
		t.Fatalf("SubmitCV: %v", err)
	}
	if _, err := r.SubmitBriefing(ctx, id, Briefing{TargetRole: "Gerente Comercial", SalaryExpectation: "R$ 18.000"}); err != nil {
		t.Fatalf("SubmitBriefing: %v", err)
	}
	for _, msg := range []string{"continuar", "ok"} {
		if _, err := r.SubmitChat(ctx, id, msg); err != nil {
			t.Fatalf("SubmitChat(%q): %v", msg, err)
		}
	}
	s := lookup(t, r, id)
	if !optimizer.Active(s) {
		t.Fatal("Expected the optimizer to be active")
	}

	// same gaps: the run survives a second look at REALITY
	if _, err := r.Navigate(ctx, id, "REALITY"); err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	if !optimizer.Active(s) || s.Stage != optimizer.AwaitGapResponse {
		t.Fatalf("Expected the run to survive, got %q/%s", s.ModuleActive, s.Stage)
	}

	s.GapsTarget = []string{"HubSpot", "Power BI", "SQL"}
	s.Optimizer.GapIndex = 2
	s.SEOKeywordResponses["HubSpot"] = "usei"
	out, err := r.Navigate(ctx, id, "REALITY")
	if err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	if out.Session.ModuleActive != "" || s.Optimizer.GapIndex != 0 || len(s.SEOKeywordResponses) != 0 {
		t.Errorf("Expected the optimizer to be reset, got %q at %d", out.Session.ModuleActive, s.Optimizer.GapIndex)
	}
	if len(s.GapsTarget) != 1 || s.GapsTarget[0] != "Forecast de vendas" {
		t.Errorf("Expected the new gap list, got %v", s.GapsTarget)
	}

	if _, err := r.Navigate(ctx, id, "CHAT"); err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	if _, err := r.SubmitChat(ctx, id, "não tenho"); err != nil {
		t.Fatalf("SubmitChat: %v", err)
	}
	if _, ok := s.GapResponses["Forecast de vendas"]; !ok {
		t.Errorf("Expected the answer on the new list, got %v", s.GapResponses)
	}
}

func TestBriefingClearsPreviousRunAnswers(t *testing.T) {
	r, _ := newTestRouter(t)
	ctx := context.Background()
	id := mustCreate(t, r)
	if _, err := r.SubmitCV(ctx, id, testCV); err != nil {
		t.Fatalf("SubmitCV: %v", err)
	}
	s := lookup(t, r, id)
	s.SEOKeywordResponses["Forecast"] = "semanal"
	s.GapResponses["HubSpot"] = types.NoExperience()
	s.QAHistory.Append("ETAPA_2_COLETA", "Qual foi a meta?", "R$ 2 mi")

	if _, err := r.SubmitBriefing(ctx, id, Briefing{TargetRole: "Gerente de Marketing", SalaryExpectation: "R$ 18.000"}); err != nil {
		t.Fatalf("SubmitBriefing: %v", err)
	}
	if len(s.SEOKeywordResponses) != 0 || len(s.GapResponses) != 0 {
		t.Errorf("Expected answers from the previous run to be cleared, got %v %v", s.SEOKeywordResponses, s.GapResponses)
	}
	if s.QAHistory.Len("ETAPA_2_COLETA") != 1 {
		t.Error("Expected QAHistory to be kept")
	}
}

func TestSubmitCVNotesProfileForModel(t *testing.T) {
	r, _ := newTestRouter(t)
	id := mustCreate(t, r)
	out, err := r.SubmitCV(context.Background(), id, testCV)
	if err != nil {
		t.Fatalf("SubmitCV: %v", err)
	}
	s := lookup(t, r, id)
	var noted bool
	for _, m := range s.Messages {
		if m.Visibility == session.Internal && strings.Contains(m.Content, "Cargo atual identificado: Gerente de Vendas") {
			noted = true
		}
	}
	if !noted {
		t.Error("Expected an internal note with the current role")
	}
	for _, m := range out.Session.Messages {
		if strings.Contains(m.Content, "Cargo atual identificado") {
			t.Error("Internal note leaked into the view")
		}
	}
}
