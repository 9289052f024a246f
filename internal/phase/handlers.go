package phase

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"cvcoach/internal/ai"
	"cvcoach/internal/ats"
	"cvcoach/internal/config"
	"cvcoach/internal/cvcache"
	"cvcoach/internal/errors"
	"cvcoach/internal/formatters"
	"cvcoach/internal/optimizer"
	"cvcoach/internal/salary"
	"cvcoach/internal/session"
	"cvcoach/internal/telemetry"
	"cvcoach/internal/types"
	"cvcoach/internal/utils"
)

// DefaultDeepScanPrompt asks for the first read of the CV
const DefaultDeepScanPrompt = `Você é um headhunter sênior fazendo a primeira leitura de um currículo.
Em no máximo 200 palavras, em Markdown simples, apresente:
- o perfil profissional em uma frase
- os 3 pontos mais fortes com evidência do próprio CV
- os 3 problemas mais graves de forma e conteúdo (falta de números, textos genéricos, formatação)
Não invente nada que não esteja no CV.`

const (
	minRoleLength = 3
	maxRoleLength = 100
	// pastedCVMinLength lets a long chat message in UPLOAD count as a pasted CV
	pastedCVMinLength = 200
)

var rolePattern = regexp.MustCompile(`^[\p{L}\s\-/()]+$`)

// ValidateTargetRole enforces the 3-100 character letters-only contract
func ValidateTargetRole(role string) (string, error) {
	role = strings.Join(strings.Fields(role), " ")
	n := utf8.RuneCountInString(role)
	if n < minRoleLength || n > maxRoleLength {
		return "", errors.NewValidationError(errors.ErrCodeInvalidRole,
			fmt.Sprintf("O cargo alvo deve ter entre %d e %d caracteres", minRoleLength, maxRoleLength), nil)
	}
	if !rolePattern.MatchString(role) {
		return "", errors.NewValidationError(errors.ErrCodeInvalidRole,
			"O cargo alvo aceita apenas letras, espaços, hífen, barra e parênteses", nil)
	}
	return role, nil
}

// checkPreconditions redirects to the earliest unmet phase. It reports
// whether a redirect happened.
func (r *Router) checkPreconditions(s *session.Session, p session.Phase, t *tick) bool {
	var to session.Phase
	var code, message string

	switch {
	case needsCV(p) && !s.HasCV():
		to, code, message = session.PhaseUpload, errors.ErrCodeMissingCV, "Envie seu currículo para continuar."
	case needsProfile(p) && !s.HasProfile():
		to, code, message = session.PhaseBriefing, errors.ErrCodeMissingProfile, "Complete o briefing para continuar."
	case needsOptimizer(p) && (s.StructuredCV == nil || !s.Optimizer.Done):
		to, code, message = session.PhaseChat, errors.ErrCodeMissingOptimizer, "Conclua a otimização do currículo primeiro."
	default:
		return false
	}

	r.logger.Warn("Phase precondition unmet", "session_id", s.ID, "phase", string(p), "redirect", string(to), "code", code)
	t.redirect = &Redirect{From: p, To: to, Code: code, Message: message}
	s.Enter(to)
	return true
}

func needsCV(p session.Phase) bool {
	switch p {
	case session.PhaseIntro, session.PhaseUpload, session.PhaseHelp, session.PhasePrivacy:
		return false
	}
	return true
}

func needsProfile(p session.Phase) bool {
	switch p {
	case session.PhaseReality, session.PhaseAnalysisLoading, session.PhaseBridge,
		session.PhaseChat, session.PhaseValidationScore, session.PhaseExports:
		return true
	}
	return false
}

func needsOptimizer(p session.Phase) bool {
	return p == session.PhaseValidationScore || p == session.PhaseExports
}

// submitCV runs the deep scan first and only then replaces the CV, so a
// failed call leaves the session as it was
func (r *Router) submitCV(ctx context.Context, s *session.Session, t *tick, raw string) error {
	text := strings.TrimSpace(raw)
	if text == "" {
		return errors.NewValidationError(errors.ErrCodeEmptyCV, "O currículo está vazio", nil)
	}
	if limit := r.cfg.MaxCVCharacters; limit > 0 && utf8.RuneCountInString(text) > limit {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("O currículo excede o limite de %d caracteres", limit), nil)
	}

	excerpt, _ := utils.TruncateRunes(text, cvcache.SummaryInputLimit)
	analysis, err := t.caller.Call(ctx, telemetry.TagDiagnosis, []ai.Message{
		ai.System(r.prompts.Get(config.PromptDeepScan, DefaultDeepScanPrompt)),
		ai.User("CURRÍCULO:\n" + excerpt),
	}, ai.Deterministic())
	if err != nil {
		return err
	}
	analysis = strings.TrimSpace(analysis)
	if analysis == "" {
		return errors.NewAIError(errors.ErrCodeAIEmptyResponse, "O modelo não analisou o currículo", nil)
	}

	s.SetCV(text)
	s.AnalysisInitial = analysis

	currentRole := r.scorer.ExtractCurrentRole(ctx, t.caller, text)
	if s.Profile == nil {
		s.Profile = &types.Profile{}
	}
	s.Profile.CurrentRole = currentRole

	role := currentRole
	if role == "" {
		role = "Profissional"
	}
	initial := r.scorer.Score(ctx, t.caller, ats.Request{
		CVText:      text,
		TargetRole:  role,
		Objective:   r.cfg.DefaultObjective,
		CurrentRole: currentRole,
		Tag:         telemetry.TagDiagnosis,
	})
	s.ATSInitial = &initial
	s.Note(fmt.Sprintf("Cargo atual identificado: %s. Score ATS inicial: %d (%s).",
		role, initial.ScoreTotal, initial.Details.Method))
	r.events.ATSScored(ctx, "initial", initial.ScoreTotal, initial.Details.Method)
	r.logger.Info("CV submitted", "session_id", s.ID, "chars", utf8.RuneCountInString(text),
		"current_role", currentRole, "ats_initial", initial.ScoreTotal)

	s.Enter(session.PhaseDiagnosis)
	return nil
}

// applyBriefing validates every field before touching the session
func (r *Router) applyBriefing(s *session.Session, b Briefing) error {
	role, err := ValidateTargetRole(b.TargetRole)
	if err != nil {
		return err
	}
	value, err := salary.ParseExpectation(b.SalaryExpectation)
	if err != nil {
		return err
	}

	objective := strings.TrimSpace(b.Objective)
	if objective == "" {
		objective = r.cfg.DefaultObjective
	}
	current := ""
	if s.Profile != nil {
		current = s.Profile.CurrentRole
	}
	s.Profile = &types.Profile{
		Objective:         objective,
		TargetRole:        role,
		SalaryExpectation: strings.TrimSpace(b.SalaryExpectation),
		SalaryValue:       value,
		Location:          strings.TrimSpace(b.Location),
		Remote:            b.Remote,
		CompanySize:       strings.TrimSpace(b.CompanySize),
		CurrentRole:       current,
	}

	// a new profile invalidates everything derived from the previous one
	s.ATSTarget = nil
	s.ATSFinal = nil
	s.Salary = nil
	s.GapsTarget = nil
	s.ResetOptimizer()
	r.logger.Info("Briefing stored", "session_id", s.ID, "target_role", role)
	return nil
}

// chat dispatches a candidate message by phase
func (r *Router) chat(ctx context.Context, s *session.Session, t *tick, message string) error {
	if s.Phase != session.PhaseChat && utils.Fold(message) == "ajuda" {
		s.Enter(session.PhaseHelp)
		return nil
	}
	switch s.Phase {
	case session.PhaseChat:
		if !optimizer.Active(s) {
			if err := r.renderChatStart(ctx, s, t); err != nil {
				return err
			}
		}
		res, err := r.optimizer.Submit(ctx, s, t.caller, message)
		t.optimizer = &res
		if err != nil {
			return err
		}
		if res.Done {
			r.optimizerDone(ctx, s)
		}
		return nil
	case session.PhaseUpload:
		if utf8.RuneCountInString(message) >= pastedCVMinLength {
			return r.submitCV(ctx, s, t, message)
		}
	case session.PhaseIntro:
		s.Enter(session.PhaseUpload)
		return nil
	case session.PhaseDiagnosis, session.PhaseReality, session.PhaseBridge, session.PhaseValidationScore:
		if optimizer.IsApproval(message) {
			s.Enter(nextPhase(s.Phase))
			return nil
		}
	}
	s.Say(hintFor(s.Phase))
	return nil
}

func nextPhase(p session.Phase) session.Phase {
	switch p {
	case session.PhaseIntro:
		return session.PhaseUpload
	case session.PhaseDiagnosis:
		return session.PhaseBriefing
	case session.PhaseReality:
		return session.PhaseAnalysisLoading
	case session.PhaseBridge:
		return session.PhaseChat
	case session.PhaseValidationScore:
		return session.PhaseExports
	}
	return p
}

func renderStatic(message string) renderFunc {
	return func(_ *Router, _ context.Context, s *session.Session, _ *tick) error {
		s.Say(message)
		return nil
	}
}

func renderDiagnosis(_ *Router, _ context.Context, s *session.Session, _ *tick) error {
	var b strings.Builder
	b.WriteString("**Primeira leitura do seu currículo**\n\n")
	b.WriteString(s.AnalysisInitial)
	if s.ATSInitial != nil {
		b.WriteString("\n\n" + formatters.ATSMarkdown(*s.ATSInitial))
	}
	b.WriteString("\n\nDigite *continuar* para definirmos seu objetivo.")
	s.Say(b.String())
	return nil
}

func renderReality(r *Router, ctx context.Context, s *session.Session, t *tick) error {
	p := s.Profile
	check := salary.Validate(p.SalaryExpectation, p.TargetRole, p.Location, p)
	target := r.scorer.Score(ctx, t.caller, ats.Request{
		CVText:      s.CVText,
		TargetRole:  p.TargetRole,
		Objective:   s.Objective(r.cfg.DefaultObjective),
		CurrentRole: p.CurrentRole,
		Tag:         telemetry.TagDiagnosis,
	})

	s.Salary = &check
	s.ATSTarget = &target
	r.events.ATSScored(ctx, "target", target.ScoreTotal, target.Details.Method)
	gaps := append([]string(nil), target.GapsIdentified...)
	if optimizer.Active(s) && !slices.Equal(gaps, s.GapsTarget) {
		// the running optimizer is walking the previous gap list
		r.logger.Info("Target gaps changed, restarting optimization", "session_id", s.ID,
			"previous", len(s.GapsTarget), "current", len(gaps))
		s.ResetOptimizer()
		s.Say("Os gaps para o cargo alvo mudaram, então a otimização vai recomeçar com a nova lista.")
	}
	s.GapsTarget = gaps

	var b strings.Builder
	b.WriteString("**Choque de realidade**\n\n")
	b.WriteString(formatters.ATSMarkdown(target) + "\n\n")
	b.WriteString(formatters.SalaryMarkdown(check))
	b.WriteString("\n\nDigite *continuar* para eu preparar a otimização.")
	s.Say(b.String())
	return nil
}

func renderAnalysisLoading(r *Router, ctx context.Context, s *session.Session, t *tick) error {
	if _, err := r.cache.EnsureSummary(ctx, s, t.caller); err != nil {
		return err
	}
	s.Enter(session.PhaseBridge)
	return nil
}

func renderBridge(_ *Router, _ context.Context, s *session.Session, _ *tick) error {
	s.Say(fmt.Sprintf(bridgeMessage, s.TargetRole(), len(s.GapsTarget)))
	return nil
}

// optimizerDone hands a finished optimizer over to the final score
func (r *Router) optimizerDone(ctx context.Context, s *session.Session) {
	r.events.OptimizerDone(ctx)
	r.logger.Info("Optimizer finished", "session_id", s.ID, "calls", s.Telemetry.Total())
	s.Enter(session.PhaseValidationScore)
}

// renderChatStart activates the optimizer without rendering it
func (r *Router) renderChatStart(_ context.Context, s *session.Session, _ *tick) error {
	return r.optimizer.Start(s)
}

func renderChat(r *Router, ctx context.Context, s *session.Session, t *tick) error {
	if !optimizer.Active(s) {
		if err := r.renderChatStart(ctx, s, t); err != nil {
			return err
		}
	}
	res, err := r.optimizer.Tick(ctx, s, t.caller)
	t.optimizer = &res
	if err != nil {
		return err
	}
	if res.Done {
		r.optimizerDone(ctx, s)
	}
	return nil
}

func renderValidationScore(r *Router, ctx context.Context, s *session.Session, t *tick) error {
	if s.ATSFinal == nil {
		final := r.scorer.Score(ctx, t.caller, ats.Request{
			CVText:      s.StructuredCV.RenderText(),
			TargetRole:  s.TargetRole(),
			Objective:   s.Objective(r.cfg.DefaultObjective),
			CurrentRole: s.Profile.CurrentRole,
			Tag:         telemetry.TagValidation,
		})
		s.ATSFinal = &final
		r.events.ATSScored(ctx, "final", final.ScoreTotal, final.Details.Method)
	}

	var b strings.Builder
	b.WriteString("**Nota ATS do currículo otimizado**\n\n")
	if s.ATSTarget != nil {
		b.WriteString(fmt.Sprintf("Antes: %d/100 → Depois: %d/100\n\n", s.ATSTarget.ScoreTotal, s.ATSFinal.ScoreTotal))
	}
	b.WriteString(formatters.ATSMarkdown(*s.ATSFinal))
	b.WriteString("\n\nDigite *continuar* para ver seus arquivos finais.")
	s.Say(b.String())
	return nil
}

func renderExports(_ *Router, _ context.Context, s *session.Session, _ *tick) error {
	li := s.StructuredCV.LinkedIn
	var b strings.Builder
	b.WriteString("**Seus arquivos finais**\n\n")
	b.WriteString("Currículo otimizado:\n\n```\n" + s.StructuredCV.RenderText() + "\n```\n")
	if li.Headline != "" || li.About != "" {
		b.WriteString("\n**LinkedIn**\n\n")
		if li.Headline != "" {
			b.WriteString("Headline: " + li.Headline + "\n\n")
		}
		if len(li.Skills) > 0 {
			b.WriteString("Competências: " + strings.Join(li.Skills, ", ") + "\n\n")
		}
		if li.About != "" {
			b.WriteString("Sobre:\n" + li.About + "\n")
		}
	}
	s.Say(b.String())
	return nil
}
