package optimizer

import (
	"fmt"
	"strings"

	"cvcoach/internal/ai"
	"cvcoach/internal/cvcache"
	"cvcoach/internal/questions"
	"cvcoach/internal/session"
	"cvcoach/internal/telemetry"
	"cvcoach/internal/types"
)

const diagnosisIntroTask = `TAREFA: apresente ao candidato, em no máximo 120 palavras, o diagnóstico do currículo frente ao cargo alvo.
Cite os pontos fortes reais e explique que vamos verificar cada gap, um por vez, antes de reescrever qualquer coisa.
Não faça perguntas nesta mensagem.`

const diagnosisSummaryTask = `TAREFA: em no máximo 100 palavras, resuma o resultado da verificação de gaps.
Deixe claro que os gaps não resolvidos NÃO entrarão no currículo, pois nunca inventamos experiência,
e que os resolvidos serão destacados na reescrita.`

func renderDiagnosis(e *Engine, s *session.Session, _ int) (Step, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "CARGO ALVO: %s\n\n", s.TargetRole())
	b.WriteString(cvcache.ContextForPrompt(s) + "\n\n")
	if s.ATSTarget != nil && len(s.ATSTarget.Strengths) > 0 {
		b.WriteString("PONTOS FORTES:\n" + bullets(s.ATSTarget.Strengths) + "\n")
	}
	b.WriteString("GAPS PARA O CARGO ALVO:\n")
	if len(s.GapsTarget) == 0 {
		b.WriteString("- nenhum gap relevante encontrado\n")
	} else {
		b.WriteString(bullets(s.GapsTarget))
	}
	b.WriteString("\n" + diagnosisIntroTask)

	next := StageGapItem
	if len(s.GapsTarget) == 0 {
		next = StageDiagnosisSummary
	}
	return Step{
		Call: e.ask(telemetry.TagDiagnosis, b.String(), ai.Deterministic()),
		Apply: func(reply string) error {
			s.Say(reply)
			return nil
		},
		Next: next,
	}, nil
}

func renderGapItem(e *Engine, s *session.Session, _ int) (Step, error) {
	i := s.Optimizer.GapIndex
	if i >= len(s.GapsTarget) {
		return Step{Next: StageDiagnosisSummary}, nil
	}
	gap := s.GapsTarget[i]
	req := questions.Request{
		Stage:           StageGapItem,
		SpecificContext: fmt.Sprintf("Gap atual: %s (%d de %d)", gap, i+1, len(s.GapsTarget)),
		TargetRole:      s.TargetRole(),
		MappedGaps:      s.GapsTarget,
		Objective:       fmt.Sprintf("Descobrir se o candidato tem experiência real com %s e, se tiver, onde e com qual resultado", gap),
		Tag:             telemetry.TagDiagnosis,
	}
	return Step{
		Call: e.question(s, req),
		Apply: func(q string) error {
			s.Optimizer.PendingQuestion = q
			s.Say(fmt.Sprintf("**Gap %d de %d: %s**\n\n%s\n\n_Se não tiver experiência com isso, responda \"não tenho\"._",
				i+1, len(s.GapsTarget), gap, q))
			return nil
		},
		Next: AwaitGapResponse,
	}, nil
}

func inputGapResponse(_ *Engine, s *session.Session, _ int, input string) (Step, error) {
	i := s.Optimizer.GapIndex
	if i >= len(s.GapsTarget) {
		return Step{Next: StageDiagnosisSummary}, nil
	}
	gap := s.GapsTarget[i]
	question := s.Optimizer.PendingQuestion

	switch {
	case questions.IsNegative(input):
		return Step{
			Apply: func(string) error {
				s.QAHistory.Append(StageGapItem, question, input)
				return finishGap(s, gap, types.NoExperience())
			},
			Next: nextGapStage(s),
		}, nil
	case questions.NeedsDeeperGapProbe(input):
		return Step{
			Apply: func(string) error {
				s.QAHistory.Append(StageGapItem, question, input)
				s.Optimizer.ProbeFirstReply = input
				return nil
			},
			Next: StageGapProbe,
		}, nil
	default:
		return Step{
			Apply: func(string) error {
				s.QAHistory.Append(StageGapItem, question, input)
				return finishGap(s, gap, types.WithExperience(input))
			},
			Next: nextGapStage(s),
		}, nil
	}
}

func renderGapProbe(e *Engine, s *session.Session, _ int) (Step, error) {
	i := s.Optimizer.GapIndex
	if i >= len(s.GapsTarget) {
		return Step{Next: StageDiagnosisSummary}, nil
	}
	gap := s.GapsTarget[i]
	req := questions.Request{
		Stage: StageGapItem,
		SpecificContext: fmt.Sprintf("O candidato disse ter experiência com %s, mas respondeu de forma superficial: %q",
			gap, s.Optimizer.ProbeFirstReply),
		TargetRole: s.TargetRole(),
		MappedGaps: s.GapsTarget,
		Objective:  "Pedir onde (empresa ou projeto), por quanto tempo e com qual resultado mensurável",
		Tag:        telemetry.TagDiagnosis,
	}
	return Step{
		Call: e.question(s, req),
		Apply: func(q string) error {
			s.Optimizer.PendingQuestion = q
			s.Say(q)
			return nil
		},
		Next: AwaitGapProbeResponse,
	}, nil
}

func inputGapProbe(_ *Engine, s *session.Session, _ int, input string) (Step, error) {
	i := s.Optimizer.GapIndex
	if i >= len(s.GapsTarget) {
		return Step{Next: StageDiagnosisSummary}, nil
	}
	gap := s.GapsTarget[i]
	first := s.Optimizer.ProbeFirstReply
	combined := first
	if !questions.IsNegative(input) {
		combined = strings.TrimSpace(first + "\n" + input)
	}
	question := s.Optimizer.PendingQuestion
	return Step{
		Apply: func(string) error {
			s.QAHistory.Append(StageGapItem, question, input)
			s.Optimizer.ProbeFirstReply = ""
			return finishGap(s, gap, types.WithExperience(combined))
		},
		Next: nextGapStage(s),
	}, nil
}

// finishGap stores the answer and moves the gap cursor
func finishGap(s *session.Session, gap string, resp types.GapResponse) error {
	if err := s.RecordGapResponse(gap, resp); err != nil {
		return err
	}
	if resp.HasExperience {
		s.Note(fmt.Sprintf("Gap %s: experiência confirmada (%s)", gap, resp.Text()))
	} else {
		s.Note(fmt.Sprintf("Gap %s: sem experiência, fica fora do currículo", gap))
	}
	s.Optimizer.GapIndex++
	s.Optimizer.PendingQuestion = ""
	return nil
}

// nextGapStage is the stage after the current gap is answered
func nextGapStage(s *session.Session) string {
	if s.Optimizer.GapIndex+1 < len(s.GapsTarget) {
		return StageGapItem
	}
	return StageDiagnosisSummary
}

// splitGaps separates the mapped gaps by whether the candidate covered them
func splitGaps(s *session.Session) (resolved, unresolved []string) {
	resolved, unresolved = []string{}, []string{}
	for _, gap := range s.GapsTarget {
		if resp, ok := s.GapResponses[gap]; ok && resp.HasExperience {
			resolved = append(resolved, gap)
		} else {
			unresolved = append(unresolved, gap)
		}
	}
	return resolved, unresolved
}

func renderDiagnosisSummary(e *Engine, s *session.Session, _ int) (Step, error) {
	resolved, unresolved := splitGaps(s)

	var b strings.Builder
	fmt.Fprintf(&b, "CARGO ALVO: %s\n\n", s.TargetRole())
	b.WriteString("GAPS RESOLVIDOS (o candidato comprovou experiência):\n")
	for _, gap := range resolved {
		fmt.Fprintf(&b, "- %s: %s\n", gap, s.GapResponses[gap].Text())
	}
	b.WriteString("\nGAPS NÃO RESOLVIDOS:\n" + bullets(unresolved) + "\n")
	b.WriteString(diagnosisSummaryTask)

	return Step{
		Call: e.ask(telemetry.TagDiagnosis, b.String(), ai.Deterministic()),
		Apply: func(reply string) error {
			s.StructuredCV.UpdateGaps(s.GapsTarget, resolved, unresolved)
			s.Say(fmt.Sprintf("%s\n\n**Gaps resolvidos: %d | Não resolvidos: %d**\n\nDigite *continuar* para seguir.",
				reply, len(resolved), len(unresolved)))
			return nil
		},
		Next: AwaitDiagnosisOK,
	}, nil
}

func bullets(items []string) string {
	if len(items) == 0 {
		return "- (nenhum)\n"
	}
	var b strings.Builder
	for _, item := range items {
		fmt.Fprintf(&b, "- %s\n", item)
	}
	return b.String()
}
