package optimizer

import (
	"fmt"
	"strings"

	"cvcoach/internal/ai"
	"cvcoach/internal/config"
	"cvcoach/internal/market"
	"cvcoach/internal/session"
	"cvcoach/internal/telemetry"
)

// RewriteTemperature keeps rewrites close to the collected facts
const RewriteTemperature float32 = 0.5

// DefaultRewriteInstructions guide the per-experience rewrite
const DefaultRewriteInstructions = `TAREFA: reescreva a experiência indicada para o cargo alvo.
- Comece com uma linha de contexto (escopo, equipe, mercado) e depois 3 a 6 bullets no formato ação + resultado
- Cada bullet começa com um verbo forte no passado e traz um número sempre que o candidato informou um
- Use as palavras-chave da área de forma natural, sem repetição
- Use SOMENTE fatos do currículo e das respostas do candidato; se faltar número, não invente
- Responda apenas com o texto da experiência, sem comentários`

const finalTask = `TAREFA: escreva o resumo profissional do currículo otimizado, com 3 a 4 frases e no máximo 80 palavras.
Posicione o candidato para o cargo alvo, cite os diferenciais comprovados e até duas métricas reais.
Responda apenas com o resumo.`

func renderRewriteExp(e *Engine, s *session.Session, n int) (Step, error) {
	cv := s.StructuredCV
	if n < 1 || n > len(cv.Experiences) {
		return Step{Next: StageRewriteFinal}, nil
	}
	exp := cv.Experiences[n-1]
	area := market.DetectArea(s.TargetRole())

	var b strings.Builder
	fmt.Fprintf(&b, "CARGO ALVO: %s\n\n", s.TargetRole())
	b.WriteString(cv.ContextForPrompt() + "\n\n")
	b.WriteString(collectedData(s) + "\n")
	fmt.Fprintf(&b, "EXPERIÊNCIA %d DE %d: %s\n", n, len(cv.Experiences), exp.Title())
	if len(exp.Achievements) > 0 {
		b.WriteString("Fatos confirmados:\n" + bullets(exp.Achievements))
	}
	fmt.Fprintf(&b, "\nVERBOS FORTES DA ÁREA: %s\n", strings.Join(area.StrongVerbs, ", "))
	fmt.Fprintf(&b, "PALAVRAS-CHAVE: %s\n\n", strings.Join(cv.ATSKeywords, ", "))
	b.WriteString(e.prompts.Get(config.PromptRewrite, DefaultRewriteInstructions))
	b.WriteString(feedbackBlock(s))

	return Step{
		Call: e.ask(telemetry.TagRewrite, b.String(), ai.WithTemperature(RewriteTemperature)),
		Apply: func(reply string) error {
			cv.RecordRewrite(n-1, reply)
			s.Optimizer.ExperienceIndex = n - 1
			s.Say(fmt.Sprintf("**Experiência %d de %d: %s**\n\n%s\n\nDigite *aprovar* para seguir ou descreva o ajuste desejado.",
				n, len(cv.Experiences), exp.Title(), reply))
			return nil
		},
		Next: AwaitApprovalExp(n),
	}, nil
}

func inputApprovalExp(_ *Engine, s *session.Session, n int, input string) (Step, error) {
	if !IsApproval(input) {
		return adjust(s, StageRewriteExp(n), input), nil
	}
	next := StageRewriteFinal
	if n < len(s.StructuredCV.Experiences) {
		next = StageRewriteExp(n + 1)
	}
	return Step{
		Apply: func(string) error {
			s.Optimizer.ExperienceIndex = n
			return nil
		},
		Next: next,
	}, nil
}

func renderRewriteFinal(e *Engine, s *session.Session, _ int) (Step, error) {
	cv := s.StructuredCV
	var b strings.Builder
	fmt.Fprintf(&b, "CARGO ALVO: %s\n\n", s.TargetRole())
	b.WriteString(cv.ContextForPrompt() + "\n\n")
	b.WriteString(finalTask)
	b.WriteString(feedbackBlock(s))

	area := market.DetectArea(s.TargetRole())
	adjusting := s.Optimizer.Feedback != ""
	return Step{
		Call: e.ask(telemetry.TagRewrite, b.String(), ai.WithTemperature(RewriteTemperature)),
		Apply: func(reply string) error {
			if adjusting {
				cv.Summary = ""
			}
			cv.SetSummary(reply)
			cv.AddATSKeywords(area.MatchedKeywords(s.CVText)...)
			s.Say(fmt.Sprintf("**Resumo profissional**\n\n%s\n\nSeu currículo está reescrito. Digite *continuar* para criarmos seu perfil do LinkedIn ou descreva um ajuste no resumo.",
				reply))
			return nil
		},
		Next: AwaitContinueCP2,
	}, nil
}
